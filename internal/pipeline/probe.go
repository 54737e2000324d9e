package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/kanaset/internal/observe"
	"github.com/MrWong99/kanaset/internal/random"
	"github.com/MrWong99/kanaset/pkg/provider/inference"
)

// BisectMax performs integer bisection over [lo, hi] and returns the
// smallest n for which pred(n) is false, assuming pred is true for every
// value below some boundary and false from it on. If pred holds everywhere
// in [lo, hi) the result is hi. An error from pred aborts the search.
func BisectMax(ctx context.Context, lo, hi int, pred func(ctx context.Context, n int) (bool, error)) (int, error) {
	for lo < hi {
		mid := lo + (hi-lo)/2
		ok, err := pred(ctx, mid)
		if err != nil {
			return 0, err
		}
		if ok {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo, nil
}

// Prober discovers the largest batch the backend answers completely. It
// shares the throttle and cooldown gate with the pool so that probing
// respects the same pacing.
type Prober struct {
	// Backend is probed with random samples. Required.
	Backend inference.Provider

	// Rand draws a fresh sample for every probe. Required.
	Rand *random.Rand

	// Throttle paces probes. Nil disables pacing.
	Throttle Throttle

	// Gate is awaited before each probe and armed on rate limits. Nil
	// disables both.
	Gate *Cooldown

	// Cooldown is the pause armed on a rate limit.
	Cooldown time.Duration

	// Metrics records probe sizes. Nil selects [observe.DefaultMetrics].
	Metrics *observe.Metrics
}

// Probe returns the largest size in [lo, hi] for which a random sample of
// that many words came back complete (every submitted word present in the
// raw answer, valid or not). hi is capped at len(words). When even lo fails
// the result is lo-1.
//
// Submission errors count as incomplete answers. Only fatal backend errors
// and context cancellation abort the probe.
func (p *Prober) Probe(ctx context.Context, words []string, lo, hi int) (int, error) {
	if p.Backend == nil || p.Rand == nil {
		return 0, errors.New("pipeline: prober needs a backend and a random source")
	}
	if lo < 1 || hi < lo {
		return 0, fmt.Errorf("pipeline: invalid probe range [%d, %d]", lo, hi)
	}
	hi = min(hi, len(words))
	if hi < lo {
		return lo - 1, nil
	}

	ctx, span := observe.StartSpan(ctx, "pipeline.probe_capacity",
		trace.WithAttributes(attribute.Int("probe.min", lo), attribute.Int("probe.max", hi)))
	defer span.End()

	first, err := BisectMax(ctx, lo, hi+1, func(ctx context.Context, n int) (bool, error) {
		return p.complete(ctx, words, n)
	})
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	span.SetAttributes(attribute.Int("probe.result", first-1))
	return first - 1, nil
}

// complete submits one sample of n words and reports whether every word came
// back.
func (p *Prober) complete(ctx context.Context, words []string, n int) (bool, error) {
	metrics := p.Metrics
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	throttle := p.Throttle
	if throttle == nil {
		throttle = Unthrottled{}
	}
	log := observe.Logger(ctx)

	if err := p.waitGate(ctx); err != nil {
		return false, err
	}
	if err := throttle.Acquire(ctx); err != nil {
		return false, err
	}
	// A cooldown may have been armed while the throttle held this probe.
	if err := p.waitGate(ctx); err != nil {
		return false, err
	}

	sample := random.Sample(p.Rand, words, n)
	raw, err := p.Backend.Infer(ctx, sample)
	if err != nil {
		if ctx.Err() != nil || inference.IsFatal(err) {
			return false, fmt.Errorf("pipeline: probe size %d: %w", n, err)
		}
		if inference.IsRateLimited(err) && p.Gate != nil {
			armed := p.Gate.Arm(p.Cooldown)
			metrics.RecordRateLimit(ctx, armed)
			log.Warn("rate limited while probing", "size", n, "cooldown", p.Cooldown, "armed", armed)
		} else {
			log.Warn("probe submission failed", "size", n, "err", err)
		}
		metrics.RecordProbe(ctx, n, false)
		return false, nil
	}

	got := 0
	for _, w := range sample {
		if _, ok := raw[w]; ok {
			got++
		}
	}
	ok := got == n
	metrics.RecordProbe(ctx, n, ok)
	log.Info("probed batch size", "size", n, "answered", got, "complete", ok)
	return ok, nil
}

func (p *Prober) waitGate(ctx context.Context) error {
	if p.Gate == nil {
		return nil
	}
	return p.Gate.Wait(ctx)
}
