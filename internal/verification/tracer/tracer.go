// Package tracer provides a lightweight tracing abstraction for the
// verification subsystem.
//
// It defines an internal tracer interface that doesn't depend directly on
// OpenTelemetry APIs, so the backend client and orchestrator can emit
// distributed traces while remaining decoupled from the tracing
// implementation.
//
// Implementations:
//   - NoopTracer: for tests (zero overhead)
//   - OTelTracer: OpenTelemetry adapter for production
package tracer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span, recording any error that occurred.
	// End must be called exactly once, typically via defer.
	End(err error)
}

// Tracer creates spans for distributed tracing.
// Implementations must be safe for concurrent use.
type Tracer interface {
	// Start creates a new span with the given name and attributes.
	// The returned context contains the new span and should be passed to
	// child operations. The span must be ended by calling Span.End().
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

// String creates a string attribute.
func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

// Int64 creates an int64 attribute.
func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// HashToken returns a truncated SHA-256 hash of a verification token for safe
// correlation in traces. The raw token is single-purpose and unguessable, and
// must never appear in telemetry.
func HashToken(token string) string {
	if token == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:8])
}

// Span names used by the verification subsystem.
const (
	SpanResolve   = "verification.resolve"
	SpanUpload    = "verification.upload"
	SpanSubmit    = "verification.submit"
	SpanKycStart  = "verification.kyc.start"
	SpanKycStatus = "verification.kyc.status"
	SpanKycMark   = "verification.kyc.mark_completed"
	SpanDispatch  = "verification.dispatch"
)

// AttrToken carries the hashed verification token on every span.
const AttrToken = "token_hash"
