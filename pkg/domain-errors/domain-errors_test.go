package domainerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
)

// DomainErrorsSuite tests the domain error primitives.
type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestErrorInterface() {
	s.Run("returns message when present", func() {
		err := &Error{Code: CodeLinkInvalid, Message: "verification link not found"}
		s.Equal("verification link not found", err.Error())
	})

	s.Run("returns code when message is empty", func() {
		err := &Error{Code: CodeLinkInvalid}
		s.Equal("link_invalid", err.Error())
	})
}

func (s *DomainErrorsSuite) TestUnwrap() {
	s.Run("returns wrapped error", func() {
		inner := errors.New("connection refused")
		err := &Error{Code: CodeUploadTransport, Message: "upload failed", Err: inner}
		s.Equal(inner, err.Unwrap())
	})

	s.Run("returns nil when no wrapped error", func() {
		err := &Error{Code: CodeLinkExpired, Message: "link expired"}
		s.Nil(err.Unwrap())
	})

	s.Run("works with errors.Unwrap", func() {
		inner := errors.New("root cause")
		err := &Error{Code: CodeInternal, Err: inner}
		s.Equal(inner, errors.Unwrap(err))
	})
}

func (s *DomainErrorsSuite) TestIsMatching() {
	s.Run("matches by code only", func() {
		err1 := &Error{Code: CodeUploadQuality, Message: "photo too blurry"}
		err2 := &Error{Code: CodeUploadQuality, Message: "glare on document"}
		s.True(err1.Is(err2))
	})

	s.Run("does not match different codes", func() {
		err1 := &Error{Code: CodeUploadQuality}
		err2 := &Error{Code: CodeUploadTransport}
		s.False(err1.Is(err2))
	})

	s.Run("errors.Is traverses wrapped chains", func() {
		inner := New(CodeSessionFailed, "provider rejected the session")
		outer := Wrap(inner, CodeInternal, "kyc poll tick failed")
		s.True(errors.Is(outer, &Error{Code: CodeSessionFailed}))
	})
}

func (s *DomainErrorsSuite) TestWrapPreservesCode() {
	s.Run("wrapping a domain error keeps the original code", func() {
		inner := New(CodeSubmitFailed, "backend rejected submission")
		wrapped := Wrap(inner, CodeInternal, "submit call failed")
		s.True(HasCode(wrapped, CodeSubmitFailed))
		s.False(HasCode(wrapped, CodeInternal))
	})

	s.Run("wrapping a plain error applies the given code", func() {
		wrapped := Wrap(errors.New("timeout"), CodeUploadTransport, "upload failed")
		s.True(HasCode(wrapped, CodeUploadTransport))
	})
}

func (s *DomainErrorsSuite) TestRecode() {
	s.Run("replaces the code a domain cause carries", func() {
		inner := New(CodeInternal, "backend unreachable")
		recoded := Recode(inner, CodeUploadTransport, "document upload failed")
		s.True(HasCode(recoded, CodeUploadTransport))
		s.False(HasCode(recoded, CodeInternal))
	})

	s.Run("keeps the cause in the chain", func() {
		inner := errors.New("connection refused")
		recoded := Recode(inner, CodeUploadTransport, "document upload failed")
		s.ErrorIs(recoded, inner)
	})
}

func (s *DomainErrorsSuite) TestCodeOf() {
	s.Run("returns carried code", func() {
		s.Equal(CodeLinkExpired, CodeOf(New(CodeLinkExpired, "")))
	})

	s.Run("returns internal for plain errors", func() {
		s.Equal(CodeInternal, CodeOf(errors.New("boom")))
	})
}

func (s *DomainErrorsSuite) TestRecoverable() {
	s.Run("link errors are terminal", func() {
		s.False(Recoverable(New(CodeLinkInvalid, "")))
		s.False(Recoverable(New(CodeLinkExpired, "")))
	})

	s.Run("step errors leave a retry available", func() {
		s.True(Recoverable(New(CodeUploadQuality, "")))
		s.True(Recoverable(New(CodeUploadTransport, "")))
		s.True(Recoverable(New(CodeValidation, "")))
		s.True(Recoverable(New(CodeSessionCreateFailed, "")))
		s.True(Recoverable(New(CodeSubmitFailed, "")))
	})
}
