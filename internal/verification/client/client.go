// Package client implements the typed HTTP client for the property-management
// backend that owns verification links, OCR extraction, and the hosted KYC
// provider. Each method covers exactly one consumed endpoint; the wire format
// is a JSON envelope over HTTPS.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/google/uuid"

	"guestpass/internal/platform/metrics"
	"guestpass/internal/verification/models"
	"guestpass/internal/verification/tracer"
	dErrors "guestpass/pkg/domain-errors"
)

// Endpoint labels used for latency metrics.
const (
	endpointInfo      = "verification_info"
	endpointUpload    = "upload"
	endpointSubmit    = "submit"
	endpointKycStart  = "kyc_start"
	endpointKycStatus = "kyc_status"
	endpointKycMark   = "kyc_mark_completed"
	endpointContract  = "contract_dispatch"
)

// Client talks to the backend REST API. It holds no mutable state between
// calls; every method issues one request with its own timeout and request ID.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  tracer.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-call timeout applied to every request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics attaches Prometheus metrics for call latency.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithTracer overrides the tracer.
func WithTracer(t tracer.Tracer) Option {
	return func(c *Client) {
		if t != nil {
			c.tracer = t
		}
	}
}

// New constructs a backend client for the given base URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("backend base URL is required")
	}
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{},
		timeout: 15 * time.Second,
		logger:  slog.Default(),
		tracer:  tracer.NewNoop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// envelope is the common response wrapper for every backend endpoint.
type envelope struct {
	Success            bool                          `json:"success"`
	Error              string                        `json:"error,omitempty"`
	GuestName          string                        `json:"guest_name,omitempty"`
	GuestStatus        models.GuestStatus            `json:"guest_status,omitempty"`
	ExpiresAt          time.Time                     `json:"expires_at,omitzero"`
	Data               *models.ExtractedDocumentData `json:"data,omitempty"`
	SessionID          string                        `json:"session_id,omitempty"`
	VerificationURL    string                        `json:"verification_url,omitempty"`
	VerificationStatus models.SessionStatus          `json:"verification_status,omitempty"`
}

// VerificationInfo resolves a verification token into its link record.
// Unknown tokens map to link_invalid, expired tokens to link_expired.
func (c *Client) VerificationInfo(ctx context.Context, token string) (models.VerificationLink, error) {
	ctx, span := c.tracer.Start(ctx, tracer.SpanResolve,
		tracer.String(tracer.AttrToken, tracer.HashToken(token)),
	)
	env, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/verification-info/%s", token), nil, "", endpointInfo)
	span.End(err)
	if err != nil {
		return models.VerificationLink{}, err
	}
	if !env.Success {
		switch env.Error {
		case "link_expired":
			return models.VerificationLink{}, dErrors.New(dErrors.CodeLinkExpired, "verification link has expired")
		default:
			return models.VerificationLink{}, dErrors.New(dErrors.CodeLinkInvalid, "verification link not found")
		}
	}
	return models.VerificationLink{
		Token:     token,
		GuestName: env.GuestName,
		Status:    env.GuestStatus,
		ExpiresAt: env.ExpiresAt,
	}, nil
}

// Upload submits one document image for OCR extraction. The returned record
// may carry a quality-failure message instead of field values; transport and
// server failures surface as upload_transport.
func (c *Client) Upload(ctx context.Context, token, filename, mimeType string, image []byte) (models.ExtractedDocumentData, error) {
	ctx, span := c.tracer.Start(ctx, tracer.SpanUpload,
		tracer.String(tracer.AttrToken, tracer.HashToken(token)),
		tracer.Int64("image_bytes", int64(len(image))),
	)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	header.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(header)
	if err == nil {
		_, err = part.Write(image)
	}
	if err == nil {
		err = mw.Close()
	}
	if err != nil {
		span.End(err)
		return models.ExtractedDocumentData{}, dErrors.Wrap(err, dErrors.CodeUploadTransport, "failed to encode upload")
	}

	env, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/verify/%s/upload", token), &body, mw.FormDataContentType(), endpointUpload)
	span.End(err)
	if err != nil {
		return models.ExtractedDocumentData{}, dErrors.Recode(err, dErrors.CodeUploadTransport, "document upload failed")
	}
	if !env.Success {
		return models.ExtractedDocumentData{}, dErrors.New(dErrors.CodeUploadTransport, errorOrDefault(env.Error, "document upload failed"))
	}
	if env.Data == nil {
		return models.ExtractedDocumentData{}, nil
	}
	return *env.Data, nil
}

// Submit sends the completed identity form for the given token.
func (c *Client) Submit(ctx context.Context, token string, form models.GuestVerificationForm) error {
	ctx, span := c.tracer.Start(ctx, tracer.SpanSubmit,
		tracer.String(tracer.AttrToken, tracer.HashToken(token)),
	)
	payload, err := json.Marshal(form)
	if err != nil {
		span.End(err)
		return dErrors.Wrap(err, dErrors.CodeSubmitFailed, "failed to encode form")
	}
	env, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/verify/%s/submit", token), bytes.NewReader(payload), "application/json", endpointSubmit)
	span.End(err)
	if err != nil {
		return dErrors.Recode(err, dErrors.CodeSubmitFailed, "form submission failed")
	}
	if !env.Success {
		return dErrors.New(dErrors.CodeSubmitFailed, errorOrDefault(env.Error, "form submission failed"))
	}
	return nil
}

// KycStart opens a hosted KYC session for the token and returns its redirect URL.
func (c *Client) KycStart(ctx context.Context, token string) (models.HostedKycSession, error) {
	ctx, span := c.tracer.Start(ctx, tracer.SpanKycStart,
		tracer.String(tracer.AttrToken, tracer.HashToken(token)),
	)
	env, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/kyc/start/%s", token), nil, "", endpointKycStart)
	span.End(err)
	if err != nil {
		return models.HostedKycSession{}, dErrors.Recode(err, dErrors.CodeSessionCreateFailed, "could not open hosted verification session")
	}
	if !env.Success || env.VerificationURL == "" {
		return models.HostedKycSession{}, dErrors.New(dErrors.CodeSessionCreateFailed, errorOrDefault(env.Error, "could not open hosted verification session"))
	}
	return models.HostedKycSession{
		ID:          env.SessionID,
		RedirectURL: env.VerificationURL,
		Status:      models.SessionStatusPending,
		CreatedAt:   time.Now(),
	}, nil
}

// KycStatus reports the provider's current view of the hosted session.
func (c *Client) KycStatus(ctx context.Context, token string) (models.SessionStatus, error) {
	ctx, span := c.tracer.Start(ctx, tracer.SpanKycStatus,
		tracer.String(tracer.AttrToken, tracer.HashToken(token)),
	)
	env, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/kyc/status/%s", token), nil, "", endpointKycStatus)
	span.End(err)
	if err != nil {
		return "", err
	}
	if !env.Success {
		return "", dErrors.New(dErrors.CodeInternal, errorOrDefault(env.Error, "status check rejected"))
	}
	return env.VerificationStatus, nil
}

// KycMarkCompleted issues the best-effort "mark completed" call used when the
// poll budget runs out with no terminal signal from the provider.
func (c *Client) KycMarkCompleted(ctx context.Context, token string) error {
	ctx, span := c.tracer.Start(ctx, tracer.SpanKycMark,
		tracer.String(tracer.AttrToken, tracer.HashToken(token)),
	)
	env, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/kyc/mark-completed/%s", token), nil, "", endpointKycMark)
	span.End(err)
	if err != nil {
		return err
	}
	if !env.Success {
		return dErrors.New(dErrors.CodeInternal, "mark-completed rejected")
	}
	return nil
}

// DispatchContract triggers the single downstream contract-generation and
// notification-scheduling call for a verified guest.
func (c *Client) DispatchContract(ctx context.Context, token string) error {
	ctx, span := c.tracer.Start(ctx, tracer.SpanDispatch,
		tracer.String(tracer.AttrToken, tracer.HashToken(token)),
	)
	env, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/verify/%s/contract", token), nil, "", endpointContract)
	span.End(err)
	if err != nil {
		return err
	}
	if !env.Success {
		return dErrors.New(dErrors.CodeInternal, errorOrDefault(env.Error, "contract dispatch rejected"))
	}
	return nil
}

// do issues one request with its own timeout and correlation ID and decodes
// the JSON envelope. Non-2xx responses and undecodable bodies are errors;
// envelope-level failures (success=false) are returned to the caller to map.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType, endpoint string) (*envelope, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build request")
	}
	requestID := uuid.New().String()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if c.metrics != nil {
		c.metrics.ObserveBackendCallLatency(endpoint, time.Since(start).Seconds())
	}
	if err != nil {
		c.logger.WarnContext(ctx, "backend call failed",
			"endpoint", endpoint,
			"request_id", requestID,
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "backend unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.WarnContext(ctx, "backend returned non-2xx status",
			"endpoint", endpoint,
			"request_id", requestID,
			"status", resp.StatusCode,
		)
		return nil, dErrors.New(dErrors.CodeInternal, fmt.Sprintf("backend returned status %d", resp.StatusCode))
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to decode backend response")
	}
	return &env, nil
}

func errorOrDefault(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}
