package application

import (
	"context"
	"time"
)

// Pacer enforces a minimum gap between consecutive provider calls. The gap
// is measured from the end of the previous call, whatever its outcome.
type Pacer struct {
	Interval time.Duration
	last     time.Time
}

// Wait blocks until Interval has elapsed since the last Mark, or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if p.Interval <= 0 || p.last.IsZero() {
		return ctx.Err()
	}
	wait := time.Until(p.last.Add(p.Interval))
	if wait <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Mark records the end of a provider call.
func (p *Pacer) Mark() { p.last = time.Now() }
