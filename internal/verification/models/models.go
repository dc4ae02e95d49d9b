package models

import (
	"strings"
	"time"
)

// GuestStatus is the verification status carried by a link at resolution time.
type GuestStatus string

const (
	GuestStatusUnverified GuestStatus = "unverified"
	GuestStatusVerified   GuestStatus = "verified"
)

// VerificationLink identifies one verification attempt. Links are created by
// the host-facing backend and consumed read-only here; a link whose guest is
// already verified is immutable and short-circuits straight to success.
type VerificationLink struct {
	Token     string
	GuestName string
	Status    GuestStatus
	ExpiresAt time.Time
}

// Verified reports whether the link's guest has already completed verification.
func (l VerificationLink) Verified() bool {
	return l.Status == GuestStatusVerified
}

// DocumentType enumerates the identity documents a guest can submit.
type DocumentType string

const (
	DocumentTypeIDCard   DocumentType = "id_card"
	DocumentTypePassport DocumentType = "passport"
)

// ExtractedDocumentData is the OCR adapter's output for one uploaded image.
// Every field is optional: the OCR may fail to read any of them. A non-empty
// QualityMessage means the record carries no authoritative values at all.
type ExtractedDocumentData struct {
	FullName       *string       `json:"full_name"`
	IDNumber       *string       `json:"id_number"`
	BirthDate      *string       `json:"birth_date"`
	Nationality    *string       `json:"nationality"`
	Address        *string       `json:"address"`
	DocumentType   *DocumentType `json:"document_type"`
	QualityMessage string        `json:"quality_message,omitempty"`
}

// QualityFailure reports whether the OCR rejected the image outright.
func (d ExtractedDocumentData) QualityFailure() bool {
	return d.QualityMessage != ""
}

// Empty reports whether no field at all was recovered from the image.
// The orchestrator distinguishes this from a partial extraction so the user
// is warned that manual entry is required instead of seeing a silently blank
// form that looks like a clean read.
func (d ExtractedDocumentData) Empty() bool {
	return d.FullName == nil &&
		d.IDNumber == nil &&
		d.BirthDate == nil &&
		d.Nationality == nil &&
		d.Address == nil &&
		d.DocumentType == nil
}

// GuestVerificationForm is the canonical identity record being assembled for
// submission. All fields except Address are mandatory at submission time.
// BirthDate is an ISO calendar date (2006-01-02) and must be strictly in the past.
type GuestVerificationForm struct {
	FullName     string       `json:"full_name" validate:"notblank"`
	DocumentType DocumentType `json:"document_type" validate:"required,oneof=id_card passport"`
	IDNumber     string       `json:"id_number" validate:"notblank"`
	BirthDate    string       `json:"birth_date" validate:"notblank"`
	Nationality  string       `json:"nationality" validate:"notblank"`
	Address      string       `json:"address"`
}

// Seed populates the form with whatever the OCR recovered. Fields the OCR
// could not read are left untouched for manual entry. Records carrying a
// quality failure must never reach this method.
func (f *GuestVerificationForm) Seed(data ExtractedDocumentData) {
	if data.FullName != nil {
		f.FullName = strings.TrimSpace(*data.FullName)
	}
	if data.IDNumber != nil {
		f.IDNumber = strings.TrimSpace(*data.IDNumber)
	}
	if data.BirthDate != nil {
		f.BirthDate = strings.TrimSpace(*data.BirthDate)
	}
	if data.Nationality != nil {
		f.Nationality = strings.TrimSpace(*data.Nationality)
	}
	if data.Address != nil {
		f.Address = strings.TrimSpace(*data.Address)
	}
	if data.DocumentType != nil {
		f.DocumentType = *data.DocumentType
	}
}

// SessionStatus is the hosted KYC provider's view of one session.
type SessionStatus string

const (
	SessionStatusPending  SessionStatus = "pending"
	SessionStatusVerified SessionStatus = "verified"
	SessionStatusFailed   SessionStatus = "failed"
)

// Terminal reports whether polling must stop for this status.
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusVerified || s == SessionStatusFailed
}

// HostedKycSession represents one externally-hosted verification attempt.
// Sessions are not reusable across verification attempts.
type HostedKycSession struct {
	ID          string
	RedirectURL string
	Status      SessionStatus
	CreatedAt   time.Time
}

// Step is the single authoritative position of a verification flow.
// Exactly one step is active at any time; Success and Error are terminal.
type Step string

const (
	StepLoading      Step = "loading"
	StepMethodChoice Step = "method_choice"
	StepUpload       Step = "upload"
	StepForm         Step = "form"
	StepKyc          Step = "kyc"
	StepSuccess      Step = "success"
	StepError        Step = "error"
)

// Terminal reports whether the flow admits no further transitions.
func (s Step) Terminal() bool {
	return s == StepSuccess || s == StepError
}

// Method tags which verification path a flow is on. Representing the choice
// as a single tagged value keeps the orchestrator from ever holding an active
// upload and an active hosted session for the same link.
type Method string

const (
	MethodNone     Method = ""
	MethodBasic    Method = "basic"    // self-service document upload + OCR
	MethodAdvanced Method = "advanced" // hosted third-party KYC session
)
