// Package app wires the kanaset subsystems into one dataset run.
//
// The App struct owns the run lifecycle: New validates the configuration
// and providers, Run loads the word list, resolves the batch size, drains
// the pool, and hands the results to the sink. Shutdown releases provider
// resources in order.
//
// Nothing reaches the sink unless the whole run succeeds.
//
// For testing, inject mock providers via [Providers] and test doubles for
// the clock and metrics via functional options.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/MrWong99/kanaset/internal/clock"
	"github.com/MrWong99/kanaset/internal/config"
	"github.com/MrWong99/kanaset/internal/observe"
	"github.com/MrWong99/kanaset/internal/pipeline"
	"github.com/MrWong99/kanaset/internal/random"
	"github.com/MrWong99/kanaset/pkg/provider/inference"
	"github.com/MrWong99/kanaset/pkg/provider/sink"
	"github.com/MrWong99/kanaset/pkg/provider/source"
)

var (
	// ErrTooFewWords is returned when fewer than run.min_num_words words
	// remain after loading and limiting.
	ErrTooFewWords = errors.New("app: too few words")

	// ErrBatchTooSmall is returned when the probed capacity is below
	// run.batch.min_size.
	ErrBatchTooSmall = errors.New("app: batch size too small")
)

// Providers holds one interface value per provider slot. Populated by
// main.go via the config registry.
type Providers struct {
	Source    source.Provider
	Inference inference.Provider
	Sink      sink.Sink
}

// Summary describes a finished run.
type Summary struct {
	RunID string

	// Words is the number of distinct words submitted.
	Words int

	// Capacity is the probed capacity, or zero when a fixed batch size was
	// configured.
	Capacity int

	// BatchSize is the operating batch size.
	BatchSize int

	Results    int
	Invalid    int
	Exhausted  int
	Rounds     int
	Batches    int
	RateLimits int
	Duration   time.Duration

	// DryRun is set when the run stopped after resolving the batch size.
	DryRun bool
}

// App owns one dataset run.
type App struct {
	cfg       *config.Config
	providers *Providers

	rng      *random.Rand
	throttle *pipeline.RateThrottle
	gate     *pipeline.Cooldown
	metrics  *observe.Metrics
	clock    clock.Clock

	onStart func(words, batchSize int)
	onBatch func(pipeline.BatchReport)

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithMetrics sets the metrics sink. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithClock injects the clock driving the cooldown gate.
func WithClock(c clock.Clock) Option {
	return func(a *App) { a.clock = c }
}

// WithOnStart registers fn to be called once the drain is about to begin.
func WithOnStart(fn func(words, batchSize int)) Option {
	return func(a *App) { a.onStart = fn }
}

// WithOnBatch registers fn to be called after every drained batch.
func WithOnBatch(fn func(pipeline.BatchReport)) Option {
	return func(a *App) { a.onBatch = fn }
}

// WithCloser registers fn to be called during Shutdown.
func WithCloser(fn func() error) Option {
	return func(a *App) { a.closers = append(a.closers, fn) }
}

// New creates an App from cfg and providers. All three providers are
// required.
func New(cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config must not be nil")
	}
	if providers == nil || providers.Source == nil || providers.Inference == nil || providers.Sink == nil {
		return nil, errors.New("app: source, inference and sink providers are required")
	}
	a := &App{
		cfg:       cfg,
		providers: providers,
		rng:       random.New(cfg.Run.RandomSeed),
		throttle:  pipeline.NewRateThrottle(cfg.Run.ThrottleInterval),
		clock:     clock.System,
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	a.gate = pipeline.NewCooldown(a.clock)
	return a, nil
}

// SetThrottleInterval changes submission pacing for the rest of the run.
func (a *App) SetThrottleInterval(d time.Duration) {
	a.throttle.SetInterval(d)
}

// LoadWords reads the source, removes duplicates, and applies the word
// limit. A limit keeps a seeded random subset.
func (a *App) LoadWords(ctx context.Context) ([]string, error) {
	words, err := a.providers.Source.Words(ctx)
	if err != nil {
		return nil, fmt.Errorf("app: load words: %w", err)
	}
	words = source.Dedupe(words)
	loaded := len(words)

	if limit := a.cfg.Run.MaxNumWords; limit > 0 && len(words) > limit {
		words = random.Shuffle(a.rng, words)[:limit]
	}
	if n, floor := len(words), a.cfg.Run.MinNumWords; n < floor {
		return nil, fmt.Errorf("%w: have %d, need at least %d", ErrTooFewWords, n, floor)
	}
	observe.Logger(ctx).Info("loaded words", "loaded", loaded, "kept", len(words))
	return words, nil
}

// ResolveBatchSize returns the configured fixed batch size, or probes the
// backend and scales the capacity by the safety ratio. capacity is zero for
// a fixed size.
func (a *App) ResolveBatchSize(ctx context.Context, words []string) (size, capacity int, err error) {
	b := a.cfg.Run.Batch
	log := observe.Logger(ctx)
	if b.Size > 0 {
		log.Info("using fixed batch size", "batch_size", b.Size)
		return b.Size, 0, nil
	}

	prober := &pipeline.Prober{
		Backend:  a.providers.Inference,
		Rand:     a.rng,
		Throttle: a.throttle,
		Gate:     a.gate,
		Cooldown: a.cfg.Run.Cooldown,
		Metrics:  a.metrics,
	}
	capacity, err = prober.Probe(ctx, words, b.ProbeMin, b.ProbeMax)
	if err != nil {
		return 0, 0, fmt.Errorf("app: probe capacity: %w", err)
	}
	if capacity < b.MinSize {
		return 0, capacity, fmt.Errorf("%w: capacity %d is below the minimum %d", ErrBatchTooSmall, capacity, b.MinSize)
	}
	size = max(int(math.Floor(float64(capacity)*b.SafetyRatio)), 1)
	log.Info("probed batch size", "capacity", capacity, "safety_ratio", b.SafetyRatio, "batch_size", size)
	return size, capacity, nil
}

// DryRun loads the words and resolves the batch size without draining.
func (a *App) DryRun(ctx context.Context) (*Summary, error) {
	start := time.Now()
	words, err := a.LoadWords(ctx)
	if err != nil {
		return nil, err
	}
	size, capacity, err := a.ResolveBatchSize(ctx, words)
	if err != nil {
		return nil, err
	}
	return &Summary{
		RunID:     observe.RunID(ctx),
		Words:     len(words),
		Capacity:  capacity,
		BatchSize: size,
		Duration:  time.Since(start),
		DryRun:    true,
	}, nil
}

// Run performs a complete dataset run and writes the results to the sink.
// Words are drained in seeded random order. On any error nothing is written.
func (a *App) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	ctx, span := observe.StartSpan(ctx, "app.run")
	defer span.End()
	log := observe.Logger(ctx)

	words, err := a.LoadWords(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	size, capacity, err := a.ResolveBatchSize(ctx, words)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	pool, err := pipeline.NewPool(a.providers.Inference, pipeline.Config{
		Concurrency: a.cfg.Run.Concurrency,
		BatchSize:   size,
		MaxRetries:  a.cfg.Run.Retries(),
		MaxRounds:   a.cfg.Run.MaxRounds,
		Cooldown:    a.cfg.Run.Cooldown,
	},
		pipeline.WithThrottle(a.throttle),
		pipeline.WithGate(a.gate),
		pipeline.WithMetrics(a.metrics),
		pipeline.WithOnBatch(a.onBatch),
	)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	if a.onStart != nil {
		a.onStart(len(words), size)
	}
	out, err := pool.Run(ctx, random.Shuffle(a.rng, words))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("app: drain: %w", err)
	}

	if err := a.providers.Sink.Write(ctx, out.Results); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("app: write results: %w", err)
	}

	sum := &Summary{
		RunID:      observe.RunID(ctx),
		Words:      len(words),
		Capacity:   capacity,
		BatchSize:  size,
		Results:    len(out.Results),
		Rounds:     out.Rounds,
		Batches:    out.Batches,
		RateLimits: out.RateLimits,
		Duration:   time.Since(start),
	}
	for _, reason := range out.Dropped {
		switch reason {
		case pipeline.DropInvalid:
			sum.Invalid++
		case pipeline.DropExhausted:
			sum.Exhausted++
		}
	}
	log.Info("run finished",
		"results", sum.Results,
		"invalid", sum.Invalid,
		"exhausted", sum.Exhausted,
		"duration", sum.Duration,
	)
	return sum, nil
}

// Shutdown runs the registered closers in order. It respects the context
// deadline: if ctx expires before all closers finish, remaining closers are
// skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		var errs []error
		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				errs = append(errs, ctx.Err())
				shutdownErr = errors.Join(errs...)
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
				errs = append(errs, err)
			}
		}
		shutdownErr = errors.Join(errs...)
	})
	return shutdownErr
}
