package httputil

import (
	"context"
	"time"
)

// Pacer spaces out successive calls by at least a fixed delay.
// It is meant for a single goroutine issuing calls in sequence and is not
// safe for concurrent use.
type Pacer struct {
	delay time.Duration
	last  time.Time
	now   func() time.Time
}

// NewPacer creates a Pacer with the given minimum interval.
// A delay of zero or less disables waiting.
func NewPacer(delay time.Duration) *Pacer {
	return &Pacer{delay: delay, now: time.Now}
}

// Delay returns the configured interval.
func (p *Pacer) Delay() time.Duration { return p.delay }

// Wait blocks until at least the configured delay has passed since the
// previous call to Wait. The first call returns immediately.
// Returns ctx.Err() if the context is cancelled while waiting.
func (p *Pacer) Wait(ctx context.Context) error {
	if p.delay <= 0 {
		return ctx.Err()
	}
	if !p.last.IsZero() {
		if remaining := p.delay - p.now().Sub(p.last); remaining > 0 {
			t := time.NewTimer(remaining)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
			}
		}
	}
	p.last = p.now()
	return nil
}
