// Package dispatch guards the single downstream contract-generation call.
// On successful verification the orchestrator must invoke that call exactly
// once per link, never from both paths, and never again when the UI is
// re-rendered. The guard is a set-if-absent claim keyed by token.
package dispatch

import "context"

// Guard records which tokens have already had their downstream call issued.
type Guard interface {
	// Claim attempts to record the dispatch for the given token.
	// It returns true when this call won the claim (the dispatch should
	// proceed) and false when the token was already claimed.
	Claim(ctx context.Context, token string) (bool, error)
}
