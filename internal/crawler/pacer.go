package crawler

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces page fetches at least delay apart.
// It is safe for concurrent use; all workers share one Pacer.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer returns a Pacer allowing one fetch per delay.
// The first Wait returns immediately. A non-positive delay disables pacing.
func NewPacer(delay time.Duration) *Pacer {
	if delay <= 0 {
		return &Pacer{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Every(delay), 1)}
}

// Wait blocks until the next fetch may start or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// pause sleeps for d unless ctx is done first.
func pause(ctx context.Context, d time.Duration) error {
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
