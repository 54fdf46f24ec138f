package tasks

import (
	"context"
	"fmt"
	"time"
)

// Sleeper pauses for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepWithContext is the default [Sleeper].
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryPolicy retries an operation up to MaxAttempts times, waiting Delay between attempts.
//
// MaxAttempts ≤ 0 retries until the operation succeeds or ctx is done. A zero Delay retries immediately.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
	Sleep       Sleeper
}

// Do runs fn until it succeeds and returns the number of attempts made.
//
// ctx is checked before every attempt. When the budget runs out the returned error wraps both
// [ErrExhausted] and the last failure.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) (int, error) {
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepWithContext
	}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}

		err := fn(ctx, attempt)
		if err == nil {
			return attempt, nil
		}

		if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
			return attempt, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempt, err)
		}

		if p.Delay > 0 {
			if err := sleep(ctx, p.Delay); err != nil {
				return attempt, err
			}
		}
	}
}
