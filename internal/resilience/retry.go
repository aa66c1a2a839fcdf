package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
)

// Policy configures Retry.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// Delay is the wait before the first retry.
	Delay time.Duration

	// Exponential doubles the delay after every retry when set.
	Exponential bool

	// JitterPercent randomises each delay by up to this percentage.
	JitterPercent int

	// IsPermanent classifies errors that must not be retried. Errors wrapped
	// with Permanent are never retried regardless of this function.
	IsPermanent func(error) bool

	// OnRetry is called before each wait with the 1-based number of the
	// attempt that failed.
	OnRetry func(attempt int, err error, delay time.Duration)
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err so that Retry returns it without further attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retry calls fn until it succeeds, returns a permanent error, the retry
// budget is exhausted, or ctx is done. It returns the last error from fn,
// or the context error when cancelled between attempts.
func Retry(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	var (
		attempt int
		lastErr error
	)

	base := p.backoff()
	backoff := retry.BackoffFunc(func() (time.Duration, bool) {
		delay, stop := base.Next()
		if !stop && p.OnRetry != nil {
			p.OnRetry(attempt, lastErr, delay)
		}
		return delay, stop
	})

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if p.IsPermanent != nil && p.IsPermanent(err) {
			return err
		}
		return retry.RetryableError(err)
	})
}

func (p Policy) backoff() retry.Backoff {
	delay := p.Delay
	if delay <= 0 {
		delay = time.Millisecond
	}

	var b retry.Backoff
	if p.Exponential {
		b = retry.NewExponential(delay)
	} else {
		b = retry.NewConstant(delay)
	}
	if p.JitterPercent > 0 {
		b = retry.WithJitterPercent(uint64(p.JitterPercent), b)
	}

	retries := p.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return retry.WithMaxRetries(uint64(retries), b)
}
