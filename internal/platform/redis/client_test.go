package redis

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
)

type ClientSuite struct {
	suite.Suite
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) TestNew() {
	ctx := context.Background()

	s.Run("empty URL means not configured", func() {
		client, err := New(ctx, "")
		s.NoError(err)
		s.Nil(client)
	})

	s.Run("malformed URL returns error", func() {
		_, err := New(ctx, "://not-a-url")
		s.Error(err)
	})

	s.Run("unreachable server fails the init ping", func() {
		_, err := New(ctx, "redis://127.0.0.1:1")
		s.Error(err)
	})
}

func (s *ClientSuite) TestMonitor() {
	s.Run("stops on context cancellation", func() {
		client := &Client{Client: goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1"})}
		defer client.Close() //nolint:errcheck

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			// Pool stats recording is local; the failing health checks only log.
			client.Monitor(ctx, time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))
		}()

		time.Sleep(10 * time.Millisecond)
		cancel()

		select {
		case <-done:
		case <-time.After(time.Second):
			s.Fail("monitor did not stop on cancellation")
		}
	})
}
