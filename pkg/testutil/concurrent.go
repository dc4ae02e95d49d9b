// Package testutil holds shared test helpers.
package testutil

import "sync"

// RunConcurrent executes fn in parallel goroutines and returns each
// goroutine's result, indexed by goroutine. It replaces the common pattern of
// WaitGroup + mutex-guarded slice in concurrency tests.
func RunConcurrent[T any](goroutines int, fn func(idx int) T) []T {
	results := make([]T, goroutines)
	var wg sync.WaitGroup
	for i := range goroutines {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx] = fn(idx)
		}(i)
	}
	wg.Wait()
	return results
}
