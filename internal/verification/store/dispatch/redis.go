package dispatch

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis key prefix for dispatch claims.
const claimKeyPrefix = "guestpass:dispatch:"

// Redis is a Redis-backed dispatch guard for deployments where more than one
// instance may drive flows for the same link. SET NX gives the claim its
// atomicity.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisOption configures a Redis guard.
type RedisOption func(*Redis)

// WithTTL overrides the claim TTL when greater than zero.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// NewRedis constructs a Redis-backed dispatch guard.
func NewRedis(client *redis.Client, opts ...RedisOption) *Redis {
	g := &Redis{
		client: client,
		ttl:    24 * time.Hour,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Claim implements Guard using atomic set-if-absent.
func (s *Redis) Claim(ctx context.Context, token string) (bool, error) {
	return s.client.SetNX(ctx, claimKeyPrefix+token, "1", s.ttl).Result()
}

var _ Guard = (*Redis)(nil)
