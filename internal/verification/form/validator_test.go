package form

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"guestpass/internal/verification/models"
)

type ValidatorSuite struct {
	suite.Suite
	validator *Validator
}

func TestValidatorSuite(t *testing.T) {
	suite.Run(t, new(ValidatorSuite))
}

// fixedNow keeps the birth-date boundary tests deterministic.
var fixedNow = time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)

func (s *ValidatorSuite) SetupTest() {
	s.validator = New(WithNow(func() time.Time { return fixedNow }))
}

func validForm() models.GuestVerificationForm {
	return models.GuestVerificationForm{
		FullName:     "Ana Ferreira",
		DocumentType: models.DocumentTypePassport,
		IDNumber:     "X1234567",
		BirthDate:    "1991-04-12",
		Nationality:  "Portuguese",
	}
}

func (s *ValidatorSuite) TestValidForm() {
	s.Run("complete form passes", func() {
		errs := s.validator.Validate(validForm())
		s.True(errs.Valid(), "expected no violations, got %v", errs)
	})

	s.Run("address is optional", func() {
		form := validForm()
		form.Address = ""
		s.True(s.validator.Validate(form).Valid())
	})
}

func (s *ValidatorSuite) TestRequiredFields() {
	s.Run("whitespace-only values fail as missing", func() {
		form := validForm()
		form.FullName = "   "
		form.Nationality = "\t"
		errs := s.validator.Validate(form)
		s.Contains(errs, "full_name")
		s.Contains(errs, "nationality")
	})

	s.Run("all violations are reported together", func() {
		errs := s.validator.Validate(models.GuestVerificationForm{})
		s.Contains(errs, "full_name")
		s.Contains(errs, "document_type")
		s.Contains(errs, "id_number")
		s.Contains(errs, "birth_date")
		s.Contains(errs, "nationality")
		s.NotContains(errs, "address")
	})

	s.Run("unknown document type fails", func() {
		form := validForm()
		form.DocumentType = "drivers_license"
		errs := s.validator.Validate(form)
		s.Contains(errs, "document_type")
	})
}

func (s *ValidatorSuite) TestBirthDate() {
	s.Run("unparseable date fails", func() {
		form := validForm()
		form.BirthDate = "12/04/1991"
		errs := s.validator.Validate(form)
		s.Contains(errs["birth_date"], "valid date")
	})

	s.Run("future date fails", func() {
		form := validForm()
		form.BirthDate = "2027-01-01"
		errs := s.validator.Validate(form)
		s.Contains(errs["birth_date"], "past")
	})

	s.Run("today fails", func() {
		form := validForm()
		form.BirthDate = "2026-08-27"
		errs := s.validator.Validate(form)
		s.Contains(errs["birth_date"], "past")
	})

	s.Run("yesterday passes", func() {
		form := validForm()
		form.BirthDate = "2026-08-26"
		s.True(s.validator.Validate(form).Valid())
	})

	s.Run("local calendar date governs the boundary", func() {
		// Just past midnight in a zone far ahead of UTC: the UTC instant is
		// still the previous day, but "yesterday" must mean yesterday local.
		zone := time.FixedZone("UTC+13", 13*60*60)
		validator := New(WithNow(func() time.Time {
			return time.Date(2026, 8, 28, 0, 30, 0, 0, zone)
		}))

		form := validForm()
		form.BirthDate = "2026-08-27"
		s.True(validator.Validate(form).Valid(), "yesterday in local time is in the past")

		form.BirthDate = "2026-08-28"
		s.Contains(validator.Validate(form)["birth_date"], "past")
	})

	s.Run("blank date reports required, not parse failure", func() {
		form := validForm()
		form.BirthDate = " "
		errs := s.validator.Validate(form)
		s.Contains(errs["birth_date"], "required")
	})
}

func (s *ValidatorSuite) TestIDNumberPattern() {
	s.Run("id card enforces letter-prefixed numeric pattern", func() {
		form := validForm()
		form.DocumentType = models.DocumentTypeIDCard
		form.IDNumber = "1234567"
		errs := s.validator.Validate(form)
		s.Contains(errs, "id_number")
	})

	s.Run("id card accepts matching pattern", func() {
		form := validForm()
		form.DocumentType = models.DocumentTypeIDCard
		form.IDNumber = "A1234567"
		s.True(s.validator.Validate(form).Valid())
	})

	s.Run("id card pattern is case-insensitive on the prefix", func() {
		form := validForm()
		form.DocumentType = models.DocumentTypeIDCard
		form.IDNumber = "a1234567"
		s.True(s.validator.Validate(form).Valid())
	})

	s.Run("passport only needs presence", func() {
		form := validForm()
		form.DocumentType = models.DocumentTypePassport
		form.IDNumber = "weird-format-##"
		s.True(s.validator.Validate(form).Valid())
	})
}

func (s *ValidatorSuite) TestPurity() {
	s.Run("validation does not mutate the form", func() {
		form := validForm()
		snapshot := form
		_ = s.validator.Validate(form)
		s.Equal(snapshot, form)
	})

	s.Run("repeated validation yields identical results", func() {
		form := validForm()
		form.FullName = ""
		first := s.validator.Validate(form)
		second := s.validator.Validate(form)
		s.Equal(first, second)
	})
}
