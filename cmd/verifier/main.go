// Package main drives one guest verification flow end to end from the command
// line: resolve the link, pick a path, and either upload-and-submit or follow
// a hosted KYC session to its verdict. Business logic lives in the internal
// verification packages; main only wires dependencies.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"guestpass/internal/platform/config"
	"guestpass/internal/platform/logger"
	"guestpass/internal/platform/metrics"
	platformredis "guestpass/internal/platform/redis"
	"guestpass/internal/verification/client"
	"guestpass/internal/verification/extraction"
	"guestpass/internal/verification/flow"
	"guestpass/internal/verification/form"
	"guestpass/internal/verification/kyc"
	"guestpass/internal/verification/models"
	"guestpass/internal/verification/resolver"
	"guestpass/internal/verification/store/dispatch"
	"guestpass/internal/verification/tracer"
	dErrors "guestpass/pkg/domain-errors"
)

func main() {
	token := flag.String("token", "", "Verification link token (required)")
	hosted := flag.Bool("hosted", false, "Use the hosted KYC path instead of document upload")
	document := flag.String("document", "", "Path to a JPEG/PNG document photo (required for the upload path)")
	fullName := flag.String("full-name", "", "Guest full name")
	docType := flag.String("document-type", "", "Document type: id_card or passport")
	idNumber := flag.String("id-number", "", "Identification number")
	birthDate := flag.String("birth-date", "", "Birth date (YYYY-MM-DD)")
	nationality := flag.String("nationality", "", "Nationality")
	address := flag.String("address", "", "Address (optional)")
	flag.Parse()

	if *token == "" || (!*hosted && *document == "") {
		fmt.Fprintln(os.Stderr, "usage: verifier -token <token> (-hosted | -document photo.jpg [form flags])")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	log.Info("initializing verifier",
		"backend_url", cfg.BackendURL,
		"poll_interval", cfg.PollInterval,
	)

	// SIGINT cancels an in-flight hosted session cleanly.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	f, err := buildFlow(ctx, cfg, log, m, *token)
	if err != nil {
		log.Error("initialization failed", "error", err)
		os.Exit(1)
	}
	go func() {
		<-ctx.Done()
		f.Cancel()
	}()

	step, err := f.Start(ctx)
	if err != nil {
		log.Error("link resolution failed", "error", err, "message", f.ErrorMessage())
		os.Exit(1)
	}
	if step == models.StepSuccess {
		fmt.Printf("guest %q is already verified\n", f.GuestName())
		return
	}
	fmt.Printf("verifying guest %q\n", f.GuestName())

	if *hosted {
		runHosted(ctx, f, log)
		return
	}
	runBasic(ctx, f, log, *document, map[string]string{
		"full_name":     strings.TrimSpace(*fullName),
		"document_type": strings.ToLower(strings.TrimSpace(*docType)),
		"id_number":     strings.TrimSpace(*idNumber),
		"birth_date":    strings.TrimSpace(*birthDate),
		"nationality":   strings.TrimSpace(*nationality),
		"address":       strings.TrimSpace(*address),
	})
}

// buildFlow wires the backend client and the verification components for one
// token. The dispatch guard is Redis-backed when a Redis URL is configured so
// concurrent runs against the same link still dispatch downstream only once.
func buildFlow(ctx context.Context, cfg config.Config, log *slog.Logger, m *metrics.Metrics, token string) (*flow.Flow, error) {
	api, err := client.New(cfg.BackendURL,
		client.WithTimeout(cfg.HTTPTimeout),
		client.WithLogger(log),
		client.WithMetrics(m),
		client.WithTracer(tracer.NewOTel()),
	)
	if err != nil {
		return nil, err
	}

	resolve, err := resolver.New(api, resolver.WithLogger(log))
	if err != nil {
		return nil, err
	}
	extract, err := extraction.New(api,
		extraction.WithLogger(log),
		extraction.WithMetrics(m),
	)
	if err != nil {
		return nil, err
	}
	poller, err := kyc.New(api,
		kyc.WithInterval(cfg.PollInterval),
		kyc.WithForceAfter(cfg.PollForceAfter),
		kyc.WithCeiling(cfg.PollCeiling),
		kyc.WithLogger(log),
		kyc.WithMetrics(m),
	)
	if err != nil {
		return nil, err
	}

	opts := []flow.Option{
		flow.WithLogger(log),
		flow.WithMetrics(m),
	}
	if cfg.RedisURL != "" {
		rdb, err := platformredis.New(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis guard init: %w", err)
		}
		go rdb.Monitor(ctx, 15*time.Second, log)
		opts = append(opts, flow.WithDispatchGuard(dispatch.NewRedis(rdb.Client)))
	}

	return flow.New(token, flow.Deps{
		Resolver:  resolve,
		Extractor: extract,
		Validator: form.New(),
		Poller:    poller,
		Submitter: api,
	}, opts...)
}

// runHosted opens a hosted session, prints the redirect URL for the guest to
// visit, and blocks until the poll loop resolves.
func runHosted(ctx context.Context, f *flow.Flow, log *slog.Logger) {
	url, err := f.ChooseAdvanced(ctx)
	if err != nil {
		log.Error("could not open hosted session", "error", err)
		os.Exit(1)
	}
	fmt.Printf("complete verification at: %s\n", url)
	fmt.Println("waiting for the session to resolve (Ctrl-C to cancel)...")

	step, err := f.AwaitKyc(ctx)
	switch {
	case dErrors.HasCode(err, dErrors.CodeSessionFailed):
		fmt.Println("verification failed; run again to retry")
		os.Exit(1)
	case err != nil:
		fmt.Println("cancelled")
		return
	}
	switch step {
	case models.StepSuccess:
		fmt.Println("identity verified")
	default:
		fmt.Println("session did not resolve; try again later")
		os.Exit(1)
	}
}

// runBasic uploads the document photo, applies the form flags over whatever
// extraction pre-filled, and submits.
func runBasic(ctx context.Context, f *flow.Flow, log *slog.Logger, documentPath string, fields map[string]string) {
	if _, err := f.ChooseBasic(); err != nil {
		log.Error("could not start document upload path", "error", err)
		os.Exit(1)
	}

	data, err := os.ReadFile(documentPath)
	if err != nil {
		log.Error("could not read document", "path", documentPath, "error", err)
		os.Exit(1)
	}
	if _, err := f.Upload(ctx, extraction.Upload{
		Filename: filepath.Base(documentPath),
		Data:     data,
	}); err != nil {
		if dErrors.HasCode(err, dErrors.CodeUploadQuality) {
			// The photo was rejected, not the request.
			log.Error("document could not be read; retry with a clearer photo")
		} else {
			log.Error("document upload failed", "code", string(dErrors.CodeOf(err)), "error", err)
		}
		os.Exit(1)
	}

	for field, value := range fields {
		if value == "" {
			continue
		}
		if err := f.SetField(field, value); err != nil {
			log.Error("invalid form field", "field", field, "error", err)
			os.Exit(1)
		}
	}

	if _, err := f.Submit(ctx); err != nil {
		if errs := f.FieldErrors(); !errs.Valid() {
			for field, reason := range errs {
				fmt.Fprintf(os.Stderr, "  %s: %s\n", field, reason)
			}
		}
		log.Error("submission failed", "error", err)
		os.Exit(1)
	}
	fmt.Println("identity verified")
}
