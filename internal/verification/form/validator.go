// Package form enforces field-level and cross-field invariants on the guest
// identity form before submission. Validation is a pure function over a form
// snapshot: every violation is reported at once, keyed by field, and nothing
// is mutated.
package form

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"guestpass/internal/verification/models"
)

// birthDateLayout is the ISO calendar date format the form carries.
const birthDateLayout = "2006-01-02"

// idCardPattern is the fixed identification-number format for ID cards in
// jurisdictions that define one: a single letter prefix followed by digits.
// Passports have no universal pattern, so only presence is checked there.
var idCardPattern = regexp.MustCompile(`^[A-Z][0-9]{6,9}$`)

// FieldErrors maps a form field (by its wire name) to a human-readable reason.
// An empty map means the form is valid.
type FieldErrors map[string]string

// Valid reports whether no violations were found.
func (e FieldErrors) Valid() bool {
	return len(e) == 0
}

// Validator checks guest verification forms. Safe for concurrent use.
type Validator struct {
	validate *validator.Validate
	now      func() time.Time
}

// Option configures the Validator.
type Option func(*Validator)

// WithNow overrides the clock used for the birth-date future check.
func WithNow(now func() time.Time) Option {
	return func(v *Validator) {
		if now != nil {
			v.now = now
		}
	}
}

// New constructs a form validator.
func New(opts ...Option) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	fv := &Validator{
		validate: v,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(fv)
		}
	}
	return fv
}

// Validate evaluates every rule independently and reports all violations
// together. Rules:
//   - full name, identification number, birth date, nationality: required
//     (empty or whitespace-only fails)
//   - document type: required, one of id_card | passport
//   - birth date: must parse as a calendar date and must not be after today
//   - identification number: ID cards must match the letter-prefixed numeric
//     pattern; passports only need presence
//
// Address is optional and never validated.
func (v *Validator) Validate(form models.GuestVerificationForm) FieldErrors {
	errs := FieldErrors{}

	if err := v.validate.Struct(form); err != nil {
		var validationErrs validator.ValidationErrors
		if !errors.As(err, &validationErrs) {
			errs["form"] = "invalid form"
			return errs
		}
		for _, fe := range validationErrs {
			field := wireName(fe.StructField())
			if _, seen := errs[field]; !seen {
				errs[field] = fieldMessage(field, fe)
			}
		}
	}

	// Cross-field and format rules only apply once the field is present;
	// a missing field already carries its "required" violation above.
	if _, blank := errs["birth_date"]; !blank && form.BirthDate != "" {
		if reason := v.checkBirthDate(form.BirthDate); reason != "" {
			errs["birth_date"] = reason
		}
	}
	if _, blank := errs["id_number"]; !blank && form.IDNumber != "" {
		if reason := checkIDNumber(form.DocumentType, form.IDNumber); reason != "" {
			errs["id_number"] = reason
		}
	}

	return errs
}

// checkBirthDate verifies the date parses and is strictly in the past.
// The boundary is the clock's calendar date, not a truncated UTC instant:
// near midnight those disagree in non-UTC locales.
func (v *Validator) checkBirthDate(value string) string {
	birth, err := time.Parse(birthDateLayout, strings.TrimSpace(value))
	if err != nil {
		return "birth date must be a valid date (YYYY-MM-DD)"
	}
	year, month, day := v.now().Date()
	today := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if !birth.Before(today) {
		return "birth date must be in the past"
	}
	return ""
}

// checkIDNumber applies the document-type-specific format where one exists.
func checkIDNumber(docType models.DocumentType, value string) string {
	if docType != models.DocumentTypeIDCard {
		return ""
	}
	if !idCardPattern.MatchString(strings.ToUpper(strings.TrimSpace(value))) {
		return "identification number must be a letter followed by 6-9 digits"
	}
	return ""
}

// fieldMessage converts a validator error into a human-readable reason.
func fieldMessage(field string, fe validator.FieldError) string {
	switch fe.ActualTag() {
	case "required", "notblank":
		return fmt.Sprintf("%s is required", strings.ReplaceAll(field, "_", " "))
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", strings.ReplaceAll(field, "_", " "), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", strings.ReplaceAll(field, "_", " "))
	}
}

// wireName maps struct field names onto the form's wire names.
func wireName(structField string) string {
	switch structField {
	case "FullName":
		return "full_name"
	case "DocumentType":
		return "document_type"
	case "IDNumber":
		return "id_number"
	case "BirthDate":
		return "birth_date"
	case "Nationality":
		return "nationality"
	case "Address":
		return "address"
	default:
		return strings.ToLower(structField)
	}
}
