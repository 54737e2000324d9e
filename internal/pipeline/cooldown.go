package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/MrWong99/kanaset/internal/clock"
)

// Cooldown is the pool-wide rate-limit gate. It holds a single slot that is
// either clear or "resume after T". Every worker waits on it before each
// submission.
type Cooldown struct {
	clock clock.Clock

	mu       sync.Mutex
	resumeAt time.Time
}

// NewCooldown returns a clear gate. A nil clock selects [clock.System].
func NewCooldown(c clock.Clock) *Cooldown {
	if c == nil {
		c = clock.System
	}
	return &Cooldown{clock: c}
}

// Arm suspends submissions for d from now. While a cooldown is already
// pending the call is a no-op, so concurrent rate-limit signals neither
// extend nor stack it. Reports whether this call armed the gate.
func (g *Cooldown) Arm(d time.Duration) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.clock.Now()
	if now.Before(g.resumeAt) {
		return false
	}
	g.resumeAt = now.Add(d)
	return true
}

// Pending returns the time left until submissions resume, or zero.
func (g *Cooldown) Pending() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	if d := g.resumeAt.Sub(g.clock.Now()); d > 0 {
		return d
	}
	return 0
}

// Wait blocks until no cooldown is pending or ctx is done. The slot is
// re-read after every wake, so a cooldown armed while waiting is honoured.
func (g *Cooldown) Wait(ctx context.Context) error {
	for {
		d := g.Pending()
		if d == 0 {
			return ctx.Err()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-g.clock.After(d):
		}
	}
}
