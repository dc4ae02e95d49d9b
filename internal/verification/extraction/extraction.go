// Package extraction submits an uploaded document image to the backend OCR
// service and normalizes its output. Quality failures (bad photo) surface
// distinctly from transport failures (bad network) because they route the
// guest differently: re-photograph versus retry.
package extraction

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gabriel-vasile/mimetype"

	"guestpass/internal/platform/metrics"
	"guestpass/internal/verification/models"
	dErrors "guestpass/pkg/domain-errors"
)

// MaxUploadBytes bounds the accepted image size. Checked before any network
// call so an input guaranteed to fail never costs a round trip.
const MaxUploadBytes = 10 << 20 // 10 MB

// allowedMIMETypes is the fixed allow-list for document photos.
var allowedMIMETypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Upload is one guest-supplied document image.
type Upload struct {
	Filename string
	Data     []byte
}

// OCRClient is the single backend call the adapter depends on.
type OCRClient interface {
	Upload(ctx context.Context, token, filename, mimeType string, image []byte) (models.ExtractedDocumentData, error)
}

// Adapter validates and submits document images. It retains no state between
// calls; each Extract is one bounded request.
type Adapter struct {
	client  OCRClient
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures the Adapter.
type Option func(*Adapter)

// WithLogger overrides the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMetrics attaches upload failure metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Adapter) {
		a.metrics = m
	}
}

// New constructs an extraction adapter backed by the given OCR client.
func New(client OCRClient, opts ...Option) (*Adapter, error) {
	if client == nil {
		return nil, fmt.Errorf("ocr client is required")
	}
	a := &Adapter{
		client: client,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a, nil
}

// Extract validates the upload locally, submits it for OCR, and returns the
// extracted record. The record may carry a quality-failure message; in that
// case every field is cleared so stale or partial values from a previous
// attempt can never leak into the form.
//
// Error codes:
//   - invalid_input: rejected locally (type or size), no request was issued
//   - upload_transport: the request failed in transit or server-side
func (a *Adapter) Extract(ctx context.Context, token string, upload Upload) (models.ExtractedDocumentData, error) {
	if len(upload.Data) == 0 {
		a.countFailure("empty")
		return models.ExtractedDocumentData{}, dErrors.New(dErrors.CodeInvalidInput, "no image data provided")
	}
	if len(upload.Data) > MaxUploadBytes {
		a.countFailure("oversize")
		return models.ExtractedDocumentData{}, dErrors.New(dErrors.CodeInvalidInput,
			fmt.Sprintf("image exceeds the %d MB limit", MaxUploadBytes>>20))
	}

	// Sniff the actual content rather than trusting a declared type.
	detected := mimetype.Detect(upload.Data)
	if !allowedMIMETypes[detected.String()] {
		a.countFailure("mime_type")
		return models.ExtractedDocumentData{}, dErrors.New(dErrors.CodeInvalidInput,
			fmt.Sprintf("unsupported image type %s, use JPEG or PNG", detected.String()))
	}

	data, err := a.client.Upload(ctx, token, upload.Filename, detected.String(), upload.Data)
	if err != nil {
		a.countFailure("transport")
		return models.ExtractedDocumentData{}, dErrors.Wrap(err, dErrors.CodeUploadTransport, "document upload failed")
	}

	if data.QualityFailure() {
		a.countFailure("quality")
		a.logger.InfoContext(ctx, "ocr rejected document image",
			"reason", data.QualityMessage,
		)
		// A quality failure carries no authoritative field values.
		return models.ExtractedDocumentData{QualityMessage: data.QualityMessage}, nil
	}

	if data.Empty() {
		a.logger.InfoContext(ctx, "ocr extracted no fields, manual entry required")
	}
	return data, nil
}

func (a *Adapter) countFailure(reason string) {
	if a.metrics != nil {
		a.metrics.IncrementUploadFailures(reason)
	}
}
