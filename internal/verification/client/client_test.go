package client

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"guestpass/internal/verification/models"
	dErrors "guestpass/pkg/domain-errors"
)

// ClientSuite exercises the backend client against a chi-routed fake backend
// speaking the JSON envelope the real API uses.
type ClientSuite struct {
	suite.Suite
	server *httptest.Server
	client *Client
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupTest() {
	r := chi.NewRouter()

	r.Get("/api/verification-info/{token}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch chi.URLParam(r, "token") {
		case "tok-unverified":
			io.WriteString(w, `{"success":true,"guest_name":"Ana Ferreira","guest_status":"unverified","expires_at":"2026-09-01T00:00:00Z"}`)
		case "tok-verified":
			io.WriteString(w, `{"success":true,"guest_name":"Ana Ferreira","guest_status":"verified"}`)
		case "tok-expired":
			io.WriteString(w, `{"success":false,"error":"link_expired"}`)
		default:
			io.WriteString(w, `{"success":false,"error":"link_not_found"}`)
		}
	})

	r.Post("/api/verify/{token}/upload", func(w http.ResponseWriter, r *http.Request) {
		s.NotEmpty(r.Header.Get("X-Request-ID"), "every call carries a correlation ID")
		w.Header().Set("Content-Type", "application/json")
		switch chi.URLParam(r, "token") {
		case "tok-blurry":
			io.WriteString(w, `{"success":true,"data":{"quality_message":"photo is too blurry, please retake"}}`)
		case "tok-servererr":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			io.WriteString(w, `{"success":true,"data":{"full_name":"Ana Ferreira","id_number":"X1234567","document_type":"passport"}}`)
		}
	})

	r.Post("/api/verify/{token}/submit", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if chi.URLParam(r, "token") == "tok-reject" {
			io.WriteString(w, `{"success":false,"error":"id number already registered"}`)
			return
		}
		io.WriteString(w, `{"success":true}`)
	})

	r.Post("/api/kyc/start/{token}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if chi.URLParam(r, "token") == "tok-nokyc" {
			io.WriteString(w, `{"success":false,"error":"provider unavailable"}`)
			return
		}
		io.WriteString(w, `{"success":true,"session_id":"sess-1","verification_url":"https://kyc.example.com/sess-1"}`)
	})

	r.Get("/api/kyc/status/{token}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"success":true,"verification_status":"pending"}`)
	})

	r.Post("/api/kyc/mark-completed/{token}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"success":true}`)
	})

	r.Post("/api/verify/{token}/contract", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"success":true}`)
	})

	s.server = httptest.NewServer(r)

	var err error
	s.client, err = New(s.server.URL,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithTimeout(2*time.Second),
	)
	s.Require().NoError(err)
}

func (s *ClientSuite) TearDownTest() {
	s.server.Close()
}

func (s *ClientSuite) TestNew() {
	s.Run("empty base URL returns error", func() {
		_, err := New("")
		s.Error(err)
	})
}

func (s *ClientSuite) TestVerificationInfo() {
	ctx := context.Background()

	s.Run("resolves unverified link", func() {
		link, err := s.client.VerificationInfo(ctx, "tok-unverified")
		s.NoError(err)
		s.Equal("Ana Ferreira", link.GuestName)
		s.Equal(models.GuestStatusUnverified, link.Status)
		s.False(link.Verified())
		s.False(link.ExpiresAt.IsZero())
	})

	s.Run("resolves already-verified link", func() {
		link, err := s.client.VerificationInfo(ctx, "tok-verified")
		s.NoError(err)
		s.True(link.Verified())
	})

	s.Run("unknown token maps to link_invalid", func() {
		_, err := s.client.VerificationInfo(ctx, "tok-missing")
		s.True(dErrors.HasCode(err, dErrors.CodeLinkInvalid))
	})

	s.Run("expired token maps to link_expired", func() {
		_, err := s.client.VerificationInfo(ctx, "tok-expired")
		s.True(dErrors.HasCode(err, dErrors.CodeLinkExpired))
	})
}

func (s *ClientSuite) TestUpload() {
	ctx := context.Background()
	image := []byte("fake-jpeg-bytes")

	s.Run("returns extracted fields", func() {
		data, err := s.client.Upload(ctx, "tok-unverified", "passport.jpg", "image/jpeg", image)
		s.NoError(err)
		s.Require().NotNil(data.FullName)
		s.Equal("Ana Ferreira", *data.FullName)
		s.Require().NotNil(data.DocumentType)
		s.Equal(models.DocumentTypePassport, *data.DocumentType)
		s.False(data.QualityFailure())
	})

	s.Run("surfaces quality failure without field values", func() {
		data, err := s.client.Upload(ctx, "tok-blurry", "passport.jpg", "image/jpeg", image)
		s.NoError(err)
		s.True(data.QualityFailure())
		s.True(data.Empty())
	})

	s.Run("server error maps to upload_transport", func() {
		_, err := s.client.Upload(ctx, "tok-servererr", "passport.jpg", "image/jpeg", image)
		s.True(dErrors.HasCode(err, dErrors.CodeUploadTransport))
	})

	s.Run("unreachable backend maps to upload_transport", func() {
		broken, err := New("http://127.0.0.1:1", WithTimeout(200*time.Millisecond),
			WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
		s.Require().NoError(err)
		_, err = broken.Upload(ctx, "tok", "passport.jpg", "image/jpeg", image)
		s.True(dErrors.HasCode(err, dErrors.CodeUploadTransport))
	})
}

func (s *ClientSuite) TestSubmit() {
	ctx := context.Background()
	form := models.GuestVerificationForm{
		FullName:     "Ana Ferreira",
		DocumentType: models.DocumentTypePassport,
		IDNumber:     "X1234567",
		BirthDate:    "1991-04-12",
		Nationality:  "Portuguese",
	}

	s.Run("accepted submission returns nil", func() {
		s.NoError(s.client.Submit(ctx, "tok-unverified", form))
	})

	s.Run("rejected submission maps to submit_failed", func() {
		err := s.client.Submit(ctx, "tok-reject", form)
		s.True(dErrors.HasCode(err, dErrors.CodeSubmitFailed))
		s.Contains(err.Error(), "already registered")
	})
}

func (s *ClientSuite) TestKyc() {
	ctx := context.Background()

	s.Run("start returns session with redirect URL", func() {
		sess, err := s.client.KycStart(ctx, "tok-unverified")
		s.NoError(err)
		s.Equal("sess-1", sess.ID)
		s.Equal("https://kyc.example.com/sess-1", sess.RedirectURL)
		s.Equal(models.SessionStatusPending, sess.Status)
	})

	s.Run("start failure maps to session_create_failed", func() {
		_, err := s.client.KycStart(ctx, "tok-nokyc")
		s.True(dErrors.HasCode(err, dErrors.CodeSessionCreateFailed))
	})

	s.Run("status reports provider view", func() {
		status, err := s.client.KycStatus(ctx, "tok-unverified")
		s.NoError(err)
		s.Equal(models.SessionStatusPending, status)
		s.False(status.Terminal())
	})

	s.Run("mark-completed succeeds", func() {
		s.NoError(s.client.KycMarkCompleted(ctx, "tok-unverified"))
	})
}

func (s *ClientSuite) TestDispatchContract() {
	s.NoError(s.client.DispatchContract(context.Background(), "tok-unverified"))
}
