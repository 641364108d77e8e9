package httputil

import (
	"context"
	"errors"
	"time"
)

// RetryableError marks a failure as transient. [Backoff.Retry] gives up immediately
// on any error that does not wrap one.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Backoff describes an exponential retry schedule.
type Backoff struct {
	Attempts int           // total calls, at least 1
	Delay    time.Duration // wait after the first failure
	MaxDelay time.Duration // cap for the doubled delay, 0 for none
}

// Retry calls fn until it succeeds, returns a non-retryable error, or the
// schedule is exhausted. attempt counts from 1. It returns the last error,
// or ctx.Err() if ctx ends while waiting.
func (b Backoff) Retry(ctx context.Context, fn func(attempt int) error) error {
	attempts := max(b.Attempts, 1)
	delay := b.Delay
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(attempt); err == nil {
			return nil
		}
		if !errors.As(err, new(*RetryableError)) || attempt == attempts {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
		if b.MaxDelay > 0 && delay > b.MaxDelay {
			delay = b.MaxDelay
		}
	}
	return err
}
