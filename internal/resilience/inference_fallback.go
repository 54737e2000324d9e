package resilience

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrWong99/kanaset/pkg/provider/inference"
)

// ErrNoHealthyBackend is reported by [InferenceFallback.Ready] when every
// breaker is open.
var ErrNoHealthyBackend = errors.New("resilience: no healthy inference backend")

// InferenceFallback implements [inference.Provider] over a chain of backends.
// Rate limits and transient failures move the batch on to the next backend;
// fatal errors end the chain at once. When every backend fails the joined
// error still satisfies [inference.IsRateLimited] if any of them was rate
// limited, so the pool's cooldown applies. A call that finds every breaker
// open is reported as rate limited too.
type InferenceFallback struct {
	group *FallbackGroup[inference.Provider]
}

var _ inference.Provider = (*InferenceFallback)(nil)

// NewInferenceFallback creates an [InferenceFallback] with primary as the
// preferred backend. Rate limits and context cancellation never count
// against a breaker.
func NewInferenceFallback(primary inference.Provider, primaryName string, cb CircuitBreakerConfig) *InferenceFallback {
	cb.Ignore = func(err error) bool {
		return errors.Is(err, context.Canceled) ||
			errors.Is(err, context.DeadlineExceeded) ||
			inference.IsRateLimited(err)
	}
	return &InferenceFallback{
		group: NewFallbackGroup(primary, primaryName, FallbackConfig{
			CircuitBreaker: cb,
			Abort:          inference.IsFatal,
		}),
	}
}

// AddFallback appends a backend. Call it before the first Infer.
func (f *InferenceFallback) AddFallback(name string, p inference.Provider) {
	f.group.AddFallback(name, p)
}

// Infer implements [inference.Provider].
func (f *InferenceFallback) Infer(ctx context.Context, words []string) (map[string]string, error) {
	called := false
	out, err := ExecuteWithResult(f.group, func(p inference.Provider) (map[string]string, error) {
		called = true
		return p.Infer(ctx, words)
	})
	if err != nil && !called {
		// No backend was reachable; back off instead of burning the batch.
		return nil, fmt.Errorf("%w: %w", inference.ErrRateLimited, err)
	}
	return out, err
}

// States returns the breaker state of each backend.
func (f *InferenceFallback) States() map[string]State {
	return f.group.States()
}

// Ready returns nil while at least one backend's breaker is not open.
func (f *InferenceFallback) Ready(context.Context) error {
	states := f.group.States()
	for _, s := range states {
		if s != StateOpen {
			return nil
		}
	}
	return fmt.Errorf("%w: %d open", ErrNoHealthyBackend, len(states))
}

// Close closes every backend that holds resources.
func (f *InferenceFallback) Close() error {
	var errs []error
	for i := range f.group.entries {
		if c, ok := f.group.entries[i].value.(interface{ Close() error }); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
