// Package kyc drives one externally-hosted verification session: it opens the
// session, exposes the redirect URL, and polls the provider's status on a
// fixed interval until a terminal signal, the forced-completion threshold, or
// cancellation.
//
// The forced-completion behavior deserves a warning: after the early attempt
// budget a still-pending session is marked completed and reported as a
// success, so absence of a negative signal is treated as success. This
// mirrors the observed product behavior for slow third-party redirects and is
// flagged for review in DESIGN.md rather than silently changed here.
package kyc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"guestpass/internal/platform/metrics"
	"guestpass/internal/verification/models"
)

// SessionClient covers the three hosted-KYC calls the poller issues.
type SessionClient interface {
	KycStart(ctx context.Context, token string) (models.HostedKycSession, error)
	KycStatus(ctx context.Context, token string) (models.SessionStatus, error)
	KycMarkCompleted(ctx context.Context, token string) error
}

// Outcome is the poller's terminal verdict for one session.
type Outcome string

const (
	// OutcomeVerified means the provider confirmed the verification.
	OutcomeVerified Outcome = "verified"
	// OutcomeFailed means the provider rejected the verification.
	OutcomeFailed Outcome = "failed"
	// OutcomeForced means the early attempt budget ran out while still
	// pending and the session was force-completed.
	OutcomeForced Outcome = "forced_verified"
	// OutcomeExhausted means the hard attempt ceiling was reached with no
	// terminal signal; polling stopped without advancing the flow.
	OutcomeExhausted Outcome = "exhausted"
)

// Result summarizes one finished polling run.
type Result struct {
	Outcome  Outcome
	Attempts int
}

// Poller polls a hosted KYC session until it resolves. A Poller is stateless
// across runs; each Run carries its own attempt counter.
type Poller struct {
	client     SessionClient
	interval   time.Duration
	forceAfter int
	ceiling    int
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// Option configures a Poller.
type Option func(*Poller)

// WithInterval overrides the poll interval when greater than zero.
func WithInterval(interval time.Duration) Option {
	return func(p *Poller) {
		if interval > 0 {
			p.interval = interval
		}
	}
}

// WithForceAfter overrides the forced-completion attempt threshold.
func WithForceAfter(attempts int) Option {
	return func(p *Poller) {
		if attempts > 0 {
			p.forceAfter = attempts
		}
	}
}

// WithCeiling overrides the hard attempt ceiling.
func WithCeiling(attempts int) Option {
	return func(p *Poller) {
		if attempts > 0 {
			p.ceiling = attempts
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Poller) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics attaches poll metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Poller) {
		p.metrics = m
	}
}

// New constructs a Poller with the reference defaults: 3s interval, forced
// completion after 40 attempts, hard ceiling at 200.
func New(client SessionClient, opts ...Option) (*Poller, error) {
	if client == nil {
		return nil, fmt.Errorf("session client is required")
	}
	p := &Poller{
		client:     client,
		interval:   3 * time.Second,
		forceAfter: 40,
		ceiling:    200,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p, nil
}

// CreateSession opens a hosted session for the token. The caller shows the
// redirect URL to the guest; what happens in that external context is outside
// the poller's control.
func (p *Poller) CreateSession(ctx context.Context, token string) (models.HostedKycSession, error) {
	return p.client.KycStart(ctx, token)
}

// Run polls the session status every interval until a terminal state, the
// forced-completion threshold, the hard ceiling, or context cancellation.
// The ticker is stopped before Run returns, so no poll can fire against a
// session that already resolved.
//
// A failed individual poll (network error) is counted as a normal pending
// tick; one flaky check must not abort the session.
func (p *Poller) Run(ctx context.Context, token string) (Result, error) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	attempts := 0
	for {
		select {
		case <-ctx.Done():
			p.logger.InfoContext(ctx, "kyc polling cancelled",
				"attempts", attempts,
			)
			return Result{Attempts: attempts}, ctx.Err()
		case <-ticker.C:
		}

		attempts++
		status, err := p.client.KycStatus(ctx, token)
		if err != nil {
			// Swallowed deliberately: a single flaky poll is a pending tick.
			p.logger.DebugContext(ctx, "kyc status check failed, counting as pending",
				"attempt", attempts,
				"error", err,
			)
			status = models.SessionStatusPending
		}

		switch status {
		case models.SessionStatusVerified:
			p.observeAttempts(attempts)
			return Result{Outcome: OutcomeVerified, Attempts: attempts}, nil

		case models.SessionStatusFailed:
			p.observeAttempts(attempts)
			return Result{Outcome: OutcomeFailed, Attempts: attempts}, nil
		}

		if attempts >= p.forceAfter {
			// Best effort: the forced transition happens whether or not the
			// backend accepts the mark-completed call.
			if err := p.client.KycMarkCompleted(ctx, token); err != nil {
				p.logger.WarnContext(ctx, "mark-completed call failed, forcing completion anyway",
					"attempts", attempts,
					"error", err,
				)
			}
			p.logger.InfoContext(ctx, "kyc session force-completed after poll budget",
				"attempts", attempts,
			)
			if p.metrics != nil {
				p.metrics.IncrementForcedCompletions()
			}
			p.observeAttempts(attempts)
			return Result{Outcome: OutcomeForced, Attempts: attempts}, nil
		}

		if attempts >= p.ceiling {
			p.logger.WarnContext(ctx, "kyc poll ceiling reached with no terminal signal",
				"attempts", attempts,
			)
			p.observeAttempts(attempts)
			return Result{Outcome: OutcomeExhausted, Attempts: attempts}, nil
		}
	}
}

func (p *Poller) observeAttempts(attempts int) {
	if p.metrics != nil {
		p.metrics.ObservePollAttempts(attempts)
	}
}
