// Package resilience provides the timeout and retry combinators wrapped
// around every language model call.
//
// The two compose by plain nesting:
//
//	err := resilience.Retry(ctx, policy, func(ctx context.Context) error {
//		return resilience.WithTimeout(ctx, 60*time.Second, call)
//	})
package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned by WithTimeout when the deadline elapses first.
// It wraps context.DeadlineExceeded.
var ErrTimeout = fmt.Errorf("operation timed out: %w", context.DeadlineExceeded)

// WithTimeout runs fn with a context that expires after d. If the deadline
// elapses before fn returns, WithTimeout returns ErrTimeout immediately
// without waiting for fn. A non-positive d runs fn without a deadline.
func WithTimeout(ctx context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	if d <= 0 {
		return fn(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	// Buffered so the abandoned goroutine can always finish.
	done := make(chan error, 1)
	go func() {
		done <- fn(ctx)
	}()

	select {
	case err := <-done:
		if errors.Is(err, context.DeadlineExceeded) && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s", ErrTimeout, d)
		}
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s", ErrTimeout, d)
		}
		return ctx.Err()
	}
}
