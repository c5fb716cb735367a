// Package retry runs an operation a bounded number of times with linear
// backoff and a per-attempt timeout.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy configures Do.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// BaseDelay is multiplied by the attempt number to get the wait before
	// the next try (1x, 2x, ...).
	BaseDelay time.Duration
	// AttemptTimeout bounds each try. Zero means no per-attempt deadline.
	AttemptTimeout time.Duration

	// Sleep waits between attempts. Defaults to a context-aware timer;
	// tests replace it to avoid real delays.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy returns three attempts, 1s/2s delays and a 10s attempt timeout.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		BaseDelay:      time.Second,
		AttemptTimeout: 10 * time.Second,
	}
}

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying. Do returns the wrapped error
// immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do calls op until it succeeds, returns a Permanent error, the context is
// done, or MaxAttempts is reached. The last error is returned wrapped with
// the attempt count.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	_, err := DoValue(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		v, err := runAttempt(ctx, p.AttemptTimeout, op)
		if err == nil {
			return v, nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return zero, perm.err
		}
		lastErr = err

		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, fmt.Errorf("retry aborted after %d attempt(s): %w", attempt, ctxErr)
		}
		if attempt < attempts {
			if err := sleep(ctx, p.BaseDelay*time.Duration(attempt)); err != nil {
				return zero, fmt.Errorf("retry aborted after %d attempt(s): %w", attempt, err)
			}
		}
	}
	return zero, fmt.Errorf("failed after %d attempt(s): %w", attempts, lastErr)
}

func runAttempt[T any](ctx context.Context, timeout time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return op(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return op(attemptCtx)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
