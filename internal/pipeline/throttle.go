package pipeline

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Throttle paces backend submissions across all callers.
type Throttle interface {
	// Acquire blocks until the caller may submit, or ctx is done.
	Acquire(ctx context.Context) error
}

// RateThrottle spaces successive Acquire returns by at least the configured
// interval, globally across every goroutine sharing it.
type RateThrottle struct {
	lim *rate.Limiter
}

// NewRateThrottle returns a RateThrottle. A zero or negative interval
// disables pacing.
func NewRateThrottle(interval time.Duration) *RateThrottle {
	if interval <= 0 {
		return &RateThrottle{lim: rate.NewLimiter(rate.Inf, 1)}
	}
	return &RateThrottle{lim: rate.NewLimiter(rate.Every(interval), 1)}
}

// SetInterval changes the spacing applied to later acquires. A zero or
// negative interval disables pacing.
func (t *RateThrottle) SetInterval(interval time.Duration) {
	if interval <= 0 {
		t.lim.SetLimit(rate.Inf)
		return
	}
	t.lim.SetLimit(rate.Every(interval))
}

// Acquire implements Throttle.
func (t *RateThrottle) Acquire(ctx context.Context) error {
	if err := t.lim.Wait(ctx); err != nil {
		// Wait reports "would exceed context deadline" without wrapping ctx.Err.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

// Unthrottled never blocks.
type Unthrottled struct{}

// Acquire implements Throttle.
func (Unthrottled) Acquire(ctx context.Context) error { return ctx.Err() }
