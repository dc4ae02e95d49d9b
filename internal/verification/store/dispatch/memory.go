package dispatch

import (
	"context"
	"sync"
	"time"
)

// InMemory is a single-process dispatch guard with TTL-based expiry.
// Entries outlive the verification session comfortably; the TTL only keeps
// the map from growing without bound in long-lived processes.
type InMemory struct {
	mu      sync.Mutex
	claimed map[string]time.Time
	ttl     time.Duration
}

// NewInMemory creates an in-memory guard. Entries expire after ttl.
func NewInMemory(ttl time.Duration) *InMemory {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &InMemory{
		claimed: make(map[string]time.Time),
		ttl:     ttl,
	}
}

// Claim implements Guard.
func (s *InMemory) Claim(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if expiry, ok := s.claimed[token]; ok && now.Before(expiry) {
		return false, nil
	}
	// Opportunistic cleanup keeps the map bounded without a background goroutine.
	for key, expiry := range s.claimed {
		if now.After(expiry) {
			delete(s.claimed, key)
		}
	}
	s.claimed[token] = now.Add(s.ttl)
	return true, nil
}

var _ Guard = (*InMemory)(nil)
