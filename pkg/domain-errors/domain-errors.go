package domainerrors

import "errors"

// Code represents a domain error category independent of transport layer.
// These codes describe what went wrong in business logic terms, not HTTP terms.
type Code string

const (
	CodeNotFound     Code = "not_found"
	CodeBadRequest   Code = "bad_request"
	CodeInvalidInput Code = "invalid_input"
	CodeValidation   Code = "validation_failed"
	CodeInternal     Code = "internal_error"
	CodeTimeout      Code = "timeout"

	// Verification flow error codes (spec'd per step; each maps to exactly
	// one recovery route in the orchestrator).
	CodeLinkInvalid         Code = "link_invalid"          // Unknown or already-consumed verification token
	CodeLinkExpired         Code = "link_expired"          // Token past its expiry timestamp
	CodeUploadQuality       Code = "upload_quality"        // OCR rejected the image; user re-photographs
	CodeUploadTransport     Code = "upload_transport"      // Upload failed in transit; user retries
	CodeSessionCreateFailed Code = "session_create_failed" // Hosted KYC session could not be opened
	CodeSessionFailed       Code = "session_failed"        // Hosted KYC session ended in provider failure
	CodeSubmitFailed        Code = "submit_failed"         // Form submission rejected by the backend
)

// Error wraps domain or infrastructure failures with a stable code.
// It is transport-agnostic and can be used across service, client, and store layers.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// Unwrap implements error unwrapping for error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is enables errors.Is() to match errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new domain error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap creates a new domain error wrapping an existing error.
// If the wrapped error is already a domain error, the original code is preserved.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		// Preserve the original domain code, update message
		return &Error{Code: existing.Code, Message: msg, Err: err}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// Recode creates a new domain error wrapping an existing error under the
// given code, replacing any code the cause already carries. Use it at layer
// boundaries where the caller's taxonomy, not the cause's, must win.
func Recode(err error, code Code, msg string) error {
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode checks if an error is a domain error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the code carried by err, or CodeInternal when err is not a
// domain error. Callers use this when routing an error to its next step.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Recoverable reports whether the error leaves the user on the current step
// with a retry available, as opposed to routing to a terminal error screen.
func Recoverable(err error) bool {
	switch CodeOf(err) {
	case CodeLinkInvalid, CodeLinkExpired:
		return false
	default:
		return true
	}
}
