package fn

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrRetriesExhausted is returned once every attempt of a Retry call has
// failed with a transient error.
var ErrRetriesExhausted = errors.New("retries exhausted")

// RetryOpts configures the retry executor.
type RetryOpts struct {
	// MaxAttempts bounds the total number of calls, including the first.
	MaxAttempts int
	// Schedule lists the delay before each re-attempt. The last element
	// repeats when the schedule is shorter than MaxAttempts-1. Schedules
	// should be non-decreasing.
	Schedule []time.Duration
	// Transient decides whether an error is worth another attempt. A nil
	// Transient treats every error as transient.
	Transient func(error) bool
	// Sleep suspends between attempts. Nil uses a context-aware timer;
	// tests inject a recording stub.
	Sleep func(context.Context, time.Duration) error
}

// DefaultRetry retries twice more after the first failure, waiting 30s then 60s.
var DefaultRetry = RetryOpts{
	MaxAttempts: 3,
	Schedule:    []time.Duration{30 * time.Second, 60 * time.Second},
}

// Retry runs f up to MaxAttempts times. Transient failures sleep out the next
// schedule slot and try again; any other failure returns immediately. When
// all attempts are consumed the returned error wraps both ErrRetriesExhausted
// and the last underlying error.
func Retry[T any](ctx context.Context, opts RetryOpts, f func(context.Context) Result[T]) Result[T] {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		r := f(ctx)
		if r.IsOk() {
			return r
		}
		_, lastErr = r.Unwrap()

		if opts.Transient != nil && !opts.Transient(lastErr) {
			return r
		}
		if attempt == opts.MaxAttempts {
			break
		}
		if err := sleep(ctx, delayFor(opts.Schedule, attempt-1)); err != nil {
			return Err[T](err)
		}
	}
	return Err[T](fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, opts.MaxAttempts, lastErr))
}

// delayFor returns the schedule slot for the n-th re-attempt (0-based),
// repeating the last slot past the end of the schedule.
func delayFor(schedule []time.Duration, n int) time.Duration {
	if len(schedule) == 0 {
		return time.Second
	}
	if n >= len(schedule) {
		n = len(schedule) - 1
	}
	return schedule[n]
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
