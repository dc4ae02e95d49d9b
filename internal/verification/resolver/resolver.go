// Package resolver validates an opaque verification token and loads its
// current state. Resolution failures are final for the session: the guest
// must obtain a new link from the host, so no retries happen here.
package resolver

import (
	"context"
	"fmt"
	"log/slog"

	"guestpass/internal/verification/models"
	dErrors "guestpass/pkg/domain-errors"
)

// InfoClient is the single backend call the resolver depends on.
type InfoClient interface {
	VerificationInfo(ctx context.Context, token string) (models.VerificationLink, error)
}

// Service resolves verification links. It holds no state between calls, so
// re-resolving the same token is free of side effects.
type Service struct {
	client InfoClient
	logger *slog.Logger
}

// Option configures the resolver Service.
type Option func(*Service)

// WithLogger overrides the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a resolver backed by the given client.
func New(client InfoClient, opts ...Option) (*Service, error) {
	if client == nil {
		return nil, fmt.Errorf("info client is required")
	}
	svc := &Service{
		client: client,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc, nil
}

// Resolve validates the token and returns its link record. Empty tokens are
// rejected locally; everything else is the backend's verdict. An error from
// here always carries link_invalid or link_expired and routes the flow to
// its terminal error state.
func (s *Service) Resolve(ctx context.Context, token string) (models.VerificationLink, error) {
	if token == "" {
		return models.VerificationLink{}, dErrors.New(dErrors.CodeLinkInvalid, "verification token is missing")
	}

	link, err := s.client.VerificationInfo(ctx, token)
	if err != nil {
		s.logger.WarnContext(ctx, "link resolution failed",
			"error", err,
		)
		if dErrors.HasCode(err, dErrors.CodeLinkExpired) || dErrors.HasCode(err, dErrors.CodeLinkInvalid) {
			return models.VerificationLink{}, err
		}
		// Transport faults and unknown tokens are indistinguishable to the
		// guest: both end the session. Wrap would keep the transport code, so
		// the link code is applied explicitly here.
		return models.VerificationLink{}, dErrors.New(dErrors.CodeLinkInvalid, "verification link could not be resolved")
	}

	return link, nil
}
