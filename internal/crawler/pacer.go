package crawler

import (
	"context"
	"time"
)

// Pacer enforces a minimum delay between the end of one fetch and the start
// of the next. It is owned by a single crawl loop and is not safe for
// concurrent use.
type Pacer struct {
	delay time.Duration

	// last is when the previous fetch finished. Zero before the first fetch.
	last time.Time

	now func() time.Time
}

// NewPacer creates a Pacer. A zero or negative delay disables pacing.
func NewPacer(delay time.Duration) *Pacer {
	return &Pacer{delay: delay, now: time.Now}
}

// Done records that a fetch attempt finished, successful or not.
func (p *Pacer) Done() {
	p.last = p.now()
}

// Wait blocks until the delay since the last fetch has elapsed or ctx is done.
// It returns immediately before the first fetch.
func (p *Pacer) Wait(ctx context.Context) error {
	if p.delay <= 0 || p.last.IsZero() {
		return ctx.Err()
	}

	remaining := p.delay - p.now().Sub(p.last)
	if remaining <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
