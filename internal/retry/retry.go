package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// permanentError marks a failure that retrying cannot fix.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so that Do stops retrying and surfaces it
// immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do invokes op up to attempts times, giving each attempt its own timeout
// when perAttempt is positive. Attempts are immediate, with no backoff in
// between. The last error is surfaced once attempts are exhausted; a
// Permanent error or a cancelled parent context stops retrying early.
func Do(ctx context.Context, attempts int, perAttempt time.Duration, op func(ctx context.Context) error) error {
	if attempts < 1 {
		return fmt.Errorf("retry: attempts must be >= 1, got %d", attempts)
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		attemptCtx := ctx
		cancel := context.CancelFunc(func() {})
		if perAttempt > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, perAttempt)
		}
		err := op(attemptCtx)
		cancel()

		if err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		lastErr = err
	}
	return lastErr
}
