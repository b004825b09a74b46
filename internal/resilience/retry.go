// Package resilience provides a bounded retry policy for idempotent upstream
// reads. Mutations are never retried; only operations explicitly marked
// idempotent by their callers (search, product detail lookup, cart retrieval)
// go through a [RetryPolicy] with more than one attempt.
package resilience

import (
	"context"
	"log/slog"
	"time"
)

// RetryPolicy bounds how an idempotent operation is retried.
//
// The zero value performs exactly one attempt (no retry), which is the
// correct default for mutations.
type RetryPolicy struct {
	// Attempts is the total number of tries, including the first.
	// Values below 1 behave as 1.
	Attempts int

	// Delay is the pause between consecutive attempts. The wait respects
	// context cancellation.
	Delay time.Duration

	// Retryable reports whether err is worth retrying. When nil, every
	// error is considered retryable.
	Retryable func(error) bool
}

// Execute runs fn up to p.Attempts times, stopping early on success, on a
// non-retryable error, or when ctx is done. The last error is returned.
// op names the operation in retry logs.
func (p RetryPolicy) Execute(ctx context.Context, op string, fn func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			slog.Warn("retrying operation",
				"op", op, "attempt", i+1, "of", attempts, "error", lastErr)
			if err := sleep(ctx, p.Delay); err != nil {
				return lastErr
			}
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

// ExecuteWithResult runs fn under policy p and returns its result. This is a
// package-level function because Go does not support method-level type
// parameters.
func ExecuteWithResult[R any](ctx context.Context, p RetryPolicy, op string, fn func() (R, error)) (R, error) {
	var result R
	err := p.Execute(ctx, op, func() error {
		var innerErr error
		result, innerErr = fn()
		return innerErr
	})
	return result, err
}

// sleep waits for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
