package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"guestpass/pkg/testutil"
)

type InMemoryGuardSuite struct {
	suite.Suite
}

func TestInMemoryGuardSuite(t *testing.T) {
	suite.Run(t, new(InMemoryGuardSuite))
}

func (s *InMemoryGuardSuite) TestClaim() {
	ctx := context.Background()

	s.Run("first claim wins", func() {
		guard := NewInMemory(time.Hour)
		won, err := guard.Claim(ctx, "tok-1")
		s.NoError(err)
		s.True(won)
	})

	s.Run("second claim for the same token loses", func() {
		guard := NewInMemory(time.Hour)
		_, err := guard.Claim(ctx, "tok-1")
		s.Require().NoError(err)

		won, err := guard.Claim(ctx, "tok-1")
		s.NoError(err)
		s.False(won)
	})

	s.Run("claims are independent per token", func() {
		guard := NewInMemory(time.Hour)
		_, err := guard.Claim(ctx, "tok-1")
		s.Require().NoError(err)

		won, err := guard.Claim(ctx, "tok-2")
		s.NoError(err)
		s.True(won)
	})

	s.Run("expired claim can be retaken", func() {
		guard := NewInMemory(10 * time.Millisecond)
		_, err := guard.Claim(ctx, "tok-1")
		s.Require().NoError(err)

		time.Sleep(20 * time.Millisecond)

		won, err := guard.Claim(ctx, "tok-1")
		s.NoError(err)
		s.True(won)
	})

	s.Run("exactly one concurrent claimant wins", func() {
		guard := NewInMemory(time.Hour)

		wins := testutil.RunConcurrent(32, func(int) bool {
			won, err := guard.Claim(ctx, "tok-contested")
			s.NoError(err)
			return won
		})

		total := 0
		for _, won := range wins {
			if won {
				total++
			}
		}
		s.Equal(1, total)
	})
}
