package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures everything the verification runner needs from its environment.
type Config struct {
	// BackendURL is the base URL of the property-management REST API that
	// owns verification links, OCR extraction, and the hosted KYC provider.
	BackendURL string

	// HTTPTimeout bounds every individual backend call (upload, poll, submit).
	HTTPTimeout time.Duration

	// PollInterval is the fixed delay between hosted-session status checks.
	PollInterval time.Duration

	// PollForceAfter is the attempt count after which a still-pending hosted
	// session is force-completed rather than failed. See DESIGN.md; this
	// mirrors observed product behavior and is flagged for review.
	PollForceAfter int

	// PollCeiling is the hard attempt ceiling after which polling stops
	// without any further transition.
	PollCeiling int

	// RedisURL enables the Redis-backed dispatch guard when set. Empty means
	// the in-memory guard is used.
	RedisURL string
}

// Defaults matching the reference behavior: 3s interval, forced completion
// after 40 attempts (~2 minutes), hard stop at 200 attempts (~10 minutes).
const (
	DefaultHTTPTimeout    = 15 * time.Second
	DefaultPollInterval   = 3 * time.Second
	DefaultPollForceAfter = 40
	DefaultPollCeiling    = 200
)

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	cfg := Config{
		BackendURL:     os.Getenv("GUESTPASS_BACKEND_URL"),
		HTTPTimeout:    DefaultHTTPTimeout,
		PollInterval:   DefaultPollInterval,
		PollForceAfter: DefaultPollForceAfter,
		PollCeiling:    DefaultPollCeiling,
		RedisURL:       os.Getenv("GUESTPASS_REDIS_URL"),
	}
	if cfg.BackendURL == "" {
		cfg.BackendURL = "http://localhost:8080"
	}
	if v := os.Getenv("GUESTPASS_HTTP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HTTPTimeout = d
		}
	}
	if v := os.Getenv("GUESTPASS_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.PollInterval = d
		}
	}
	if v := os.Getenv("GUESTPASS_POLL_FORCE_AFTER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PollForceAfter = n
		}
	}
	if v := os.Getenv("GUESTPASS_POLL_CEILING"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PollCeiling = n
		}
	}
	return cfg
}
