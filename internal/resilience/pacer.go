package resilience

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces out lookups against the registry: a jittered fixed interval
// between items, further capped by a per-minute token bucket.
type Pacer struct {
	interval time.Duration
	fraction float64
	limiter  *rate.Limiter
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewPacer creates a Pacer. maxPerMinute <= 0 disables the cap.
func NewPacer(interval time.Duration, jitterFraction float64, maxPerMinute int) *Pacer {
	p := &Pacer{
		interval: interval,
		fraction: jitterFraction,
		sleep:    Sleep,
	}
	if maxPerMinute > 0 {
		p.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(maxPerMinute)), 1)
	}
	return p
}

// Wait blocks until the next lookup may start. It returns ctx.Err() if the
// context ends first.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil {
		return ctx.Err()
	}
	if err := p.sleep(ctx, jitter(p.interval, p.fraction)); err != nil {
		return err
	}
	if p.limiter != nil {
		return p.limiter.Wait(ctx)
	}
	return nil
}
