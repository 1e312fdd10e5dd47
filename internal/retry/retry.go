// Package retry provides a bounded-retry combinator over an exponential
// backoff policy with jitter. The attempt budget and backoff shape are
// defined here once so every call site shares the same behavior.
package retry

import (
	"context"
	"time"

	"github.com/cenk/backoff"
)

const (
	// DefaultAttempts is the total attempt budget for optimistic-concurrency
	// retries (initial attempt plus retries).
	DefaultAttempts = 3

	// DefaultInitialInterval centers the first backoff wait; with the jitter
	// factor below the actual wait lands in roughly 250–500ms.
	DefaultInitialInterval = 375 * time.Millisecond

	jitterFactor = 1.0 / 3.0
)

// Do runs op up to attempts times. An error for which retryable returns
// false aborts immediately; retryable errors trigger a jittered backoff wait
// and another attempt. The context cancels waits. The returned error is the
// last one produced by op.
func Do(ctx context.Context, attempts uint64, initial time.Duration, retryable func(error) bool, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = initial
	policy.RandomizationFactor = jitterFactor
	policy.Multiplier = 1.0
	policy.MaxElapsedTime = 0

	b := backoff.WithContext(backoff.WithMaxRetries(policy, attempts-1), ctx)

	return backoff.Retry(func() error {
		err := op()
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}
