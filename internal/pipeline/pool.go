// Package pipeline drives batched inference of word pronunciations.
//
// A [Pool] drains a queue of words with a fixed number of workers. Every
// submission passes the shared [Throttle] and the pool-wide [Cooldown] gate.
// Answers are validated per word: valid pronunciations land in a [ResultSet]
// (first writer wins), invalid ones are dropped for good, and words the
// backend omitted are retried until their attempts run out.
//
// Work proceeds in rounds. A round drains the items pending when it starts;
// anything requeued during the round waits for the next one. The pool stops
// once nothing is pending, and finally verifies that every input word is
// either resolved or dropped, never both.
//
// A [Prober] shares the throttle and gate with the pool and discovers the
// batch size before the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/kanaset/internal/clock"
	"github.com/MrWong99/kanaset/internal/kana"
	"github.com/MrWong99/kanaset/internal/observe"
	"github.com/MrWong99/kanaset/pkg/provider/inference"
)

// Validator turns a raw answer for word into an accepted pronunciation or
// rejects it.
type Validator interface {
	Validate(word, raw string) (string, error)
}

// Config holds the pool's numeric knobs.
type Config struct {
	// Concurrency is the number of workers. Must be at least 1.
	Concurrency int

	// BatchSize is the maximum number of words per submission. Must be at
	// least 1.
	BatchSize int

	// MaxRetries is how many times a word may be requeued after a missing
	// answer or a failed submission. Zero drops it on the first failure.
	MaxRetries int

	// MaxRounds caps the number of rounds. Zero means no cap.
	MaxRounds int

	// Cooldown is the pause armed on a rate limit.
	Cooldown time.Duration
}

func (c Config) validate() error {
	var errs []error
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency))
	}
	if c.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("batch size must be at least 1, got %d", c.BatchSize))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max retries must not be negative, got %d", c.MaxRetries))
	}
	if c.MaxRounds < 0 {
		errs = append(errs, fmt.Errorf("max rounds must not be negative, got %d", c.MaxRounds))
	}
	if c.Cooldown < 0 {
		errs = append(errs, fmt.Errorf("cooldown must not be negative, got %s", c.Cooldown))
	}
	return errors.Join(errs...)
}

// BatchReport summarises one processed batch. It is passed to the hook set
// with [WithOnBatch].
type BatchReport struct {
	Round    int
	Size     int
	Valid    int
	Invalid  int
	Missing  int
	Requeued int
	Dropped  int

	// Resolved counts words with a result or a drop so far, across the run.
	Resolved int
	// Remaining is the number of input words not yet resolved.
	Remaining int

	// Outcome is one of the observe.Outcome* values.
	Outcome string
}

// Outcome is the final state of a successful run.
type Outcome struct {
	Results    map[string]string
	Dropped    map[string]DropReason
	Rounds     int
	Batches    int
	RateLimits int
}

// Option configures a [Pool].
type Option func(*Pool)

// WithThrottle sets the shared submission throttle. Defaults to
// [Unthrottled].
func WithThrottle(t Throttle) Option {
	return func(p *Pool) { p.throttle = t }
}

// WithGate sets the cooldown gate, typically one shared with a [Prober].
// Defaults to a fresh gate on the pool's clock.
func WithGate(g *Cooldown) Option {
	return func(p *Pool) { p.gate = g }
}

// WithValidator replaces the default [kana.Validator].
func WithValidator(v Validator) Option {
	return func(p *Pool) { p.validator = v }
}

// WithMetrics sets the metrics sink. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Pool) { p.metrics = m }
}

// WithOnBatch registers fn to be called after every batch. Calls are
// serialised.
func WithOnBatch(fn func(BatchReport)) Option {
	return func(p *Pool) { p.onBatch = fn }
}

// WithClock sets the clock used by the default gate.
func WithClock(c clock.Clock) Option {
	return func(p *Pool) { p.clock = c }
}

// Pool runs batched inference over a word list.
type Pool struct {
	backend   inference.Provider
	cfg       Config
	throttle  Throttle
	gate      *Cooldown
	validator Validator
	metrics   *observe.Metrics
	clock     clock.Clock

	hookMu  sync.Mutex
	onBatch func(BatchReport)
}

// NewPool returns a pool submitting to backend.
func NewPool(backend inference.Provider, cfg Config, opts ...Option) (*Pool, error) {
	if backend == nil {
		return nil, errors.New("pipeline: backend must not be nil")
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	p := &Pool{
		backend:   backend,
		cfg:       cfg,
		throttle:  Unthrottled{},
		validator: kana.Validator{},
		clock:     clock.System,
	}
	for _, o := range opts {
		o(p)
	}
	if p.gate == nil {
		p.gate = NewCooldown(p.clock)
	}
	if p.metrics == nil {
		p.metrics = observe.DefaultMetrics()
	}
	return p, nil
}

// run is the mutable state shared by the workers of one Run.
type run struct {
	results *ResultSet
	dropped *Dropped
	total   int

	mu         sync.Mutex
	batches    int
	rateLimits int
}

func (r *run) resolved() int { return r.results.Len() + r.dropped.Len() }

// Run processes words until each one has a validated result or has been
// dropped. Duplicate words are processed once. On error no partial outcome
// is returned.
func (p *Pool) Run(ctx context.Context, words []string) (*Outcome, error) {
	keys := dedupe(words)

	ctx, span := observe.StartSpan(ctx, "pipeline.run",
		trace.WithAttributes(
			attribute.Int("run.words", len(keys)),
			attribute.Int("run.batch_size", p.cfg.BatchSize),
			attribute.Int("run.concurrency", p.cfg.Concurrency),
		))
	defer span.End()
	log := observe.Logger(ctx)

	st := &run{results: NewResultSet(), dropped: NewDropped(), total: len(keys)}
	pending := NewQueue(keys...)
	rounds := 0
	for pending.Len() > 0 {
		if p.cfg.MaxRounds > 0 && rounds >= p.cfg.MaxRounds {
			err := fmt.Errorf("%w: %d words pending after %d rounds", ErrTooManyRounds, pending.Len(), rounds)
			span.RecordError(err)
			return nil, err
		}
		rounds++
		current := &Queue{items: pending.Drain()}
		next := &Queue{}
		log.Info("starting round", "round", rounds, "pending", current.Len(), "resolved", st.resolved(), "total", st.total)
		if err := p.runRound(ctx, rounds, st, current, next); err != nil {
			span.RecordError(err)
			return nil, err
		}
		pending = next
	}

	if err := checkAccounting(keys, st.results, st.dropped); err != nil {
		span.RecordError(err)
		return nil, err
	}

	out := &Outcome{
		Results:    st.results.Snapshot(),
		Dropped:    st.dropped.Snapshot(),
		Rounds:     rounds,
		Batches:    st.batches,
		RateLimits: st.rateLimits,
	}
	log.Info("run complete",
		"rounds", out.Rounds,
		"batches", out.Batches,
		"results", len(out.Results),
		"invalid", st.dropped.Count(DropInvalid),
		"exhausted", st.dropped.Count(DropExhausted),
		"rate_limits", out.RateLimits,
	)
	return out, nil
}

func (p *Pool) runRound(ctx context.Context, round int, st *run, current, next *Queue) error {
	g, gctx := errgroup.WithContext(ctx)
	for id := range p.cfg.Concurrency {
		g.Go(func() error {
			return p.worker(gctx, id, round, st, current, next)
		})
	}
	return g.Wait()
}

func (p *Pool) worker(ctx context.Context, id, round int, st *run, current, next *Queue) error {
	p.metrics.ActiveWorkers.Add(ctx, 1)
	defer p.metrics.ActiveWorkers.Add(context.WithoutCancel(ctx), -1)

	for {
		batch := current.PopBatch(p.cfg.BatchSize)
		if batch == nil {
			return nil
		}
		if err := p.submit(ctx, id, round, st, batch, next); err != nil {
			return err
		}
		p.metrics.SetQueueDepth(ctx, current.Len()+next.Len())
	}
}

// submit sends one batch and classifies every item of it.
func (p *Pool) submit(ctx context.Context, worker, round int, st *run, batch []WorkItem, next *Queue) error {
	if err := p.gate.Wait(ctx); err != nil {
		return err
	}
	if err := p.throttle.Acquire(ctx); err != nil {
		return err
	}
	// A cooldown may have been armed while this worker sat in the throttle.
	if err := p.gate.Wait(ctx); err != nil {
		return err
	}

	words := make([]string, len(batch))
	for i, it := range batch {
		words[i] = it.Key
	}

	ctx, span := observe.StartSpan(ctx, "pipeline.batch",
		trace.WithAttributes(
			attribute.Int("batch.round", round),
			attribute.Int("batch.size", len(batch)),
			attribute.Int("batch.worker", worker),
		))
	defer span.End()
	log := observe.Logger(ctx).With("worker", worker, "round", round, "size", len(batch))

	st.mu.Lock()
	st.batches++
	st.mu.Unlock()

	start := time.Now()
	raw, err := p.backend.Infer(ctx, words)
	elapsed := time.Since(start)

	rep := BatchReport{Round: round, Size: len(batch)}
	switch {
	case err == nil:
		rep.Outcome = observe.OutcomeOK
		for _, it := range batch {
			answer, ok := raw[it.Key]
			if !ok {
				rep.Missing++
				p.retry(st, it, next, &rep)
				continue
			}
			pron, verr := p.validator.Validate(it.Key, answer)
			if verr != nil {
				rep.Invalid++
				st.dropped.Add(it.Key, DropInvalid)
				log.Debug("rejected answer", "word", it.Key, "answer", answer, "err", verr)
				continue
			}
			st.results.Insert(it.Key, pron)
			rep.Valid++
		}

	case ctx.Err() != nil || inference.IsFatal(err):
		p.metrics.RecordBatch(ctx, observe.OutcomeFatal, elapsed)
		span.RecordError(err)
		return fmt.Errorf("pipeline: batch of %d: %w", len(batch), err)

	case inference.IsRateLimited(err):
		rep.Outcome = observe.OutcomeRateLimited
		armed := p.gate.Arm(p.cfg.Cooldown)
		p.metrics.RecordRateLimit(ctx, armed)
		st.mu.Lock()
		st.rateLimits++
		st.mu.Unlock()
		if armed {
			log.Warn("rate limited, pausing submissions", "cooldown", p.cfg.Cooldown)
		} else {
			log.Debug("rate limited during pending cooldown")
		}
		for _, it := range batch {
			p.retry(st, it, next, &rep)
		}

	default:
		rep.Outcome = observe.OutcomeError
		span.RecordError(err)
		log.Warn("batch submission failed", "err", err)
		for _, it := range batch {
			p.retry(st, it, next, &rep)
		}
	}

	p.metrics.RecordBatch(ctx, rep.Outcome, elapsed)
	p.metrics.RecordItems(ctx, observe.ItemValid, rep.Valid)
	p.metrics.RecordItems(ctx, observe.ItemInvalid, rep.Invalid)
	p.metrics.RecordItems(ctx, observe.ItemMissing, rep.Missing)
	p.metrics.RecordItems(ctx, observe.ItemRequeued, rep.Requeued)
	p.metrics.RecordItems(ctx, observe.ItemDropped, rep.Dropped)

	span.SetAttributes(
		attribute.String("batch.outcome", rep.Outcome),
		attribute.Int("batch.valid", rep.Valid),
		attribute.Int("batch.missing", rep.Missing),
	)
	log.Log(ctx, slog.LevelDebug, "batch done",
		"outcome", rep.Outcome,
		"valid", rep.Valid,
		"invalid", rep.Invalid,
		"missing", rep.Missing,
		"requeued", rep.Requeued,
		"dropped", rep.Dropped,
		"elapsed", elapsed,
	)

	p.report(st, rep)
	return nil
}

// retry requeues it for the next round, or drops it once its attempts are
// used up.
func (p *Pool) retry(st *run, it WorkItem, next *Queue, rep *BatchReport) {
	if it.Attempts >= p.cfg.MaxRetries {
		st.dropped.Add(it.Key, DropExhausted)
		rep.Dropped++
		return
	}
	next.Push(WorkItem{Key: it.Key, Attempts: it.Attempts + 1})
	rep.Requeued++
}

func (p *Pool) report(st *run, rep BatchReport) {
	if p.onBatch == nil {
		return
	}
	p.hookMu.Lock()
	defer p.hookMu.Unlock()
	rep.Resolved = st.resolved()
	rep.Remaining = st.total - rep.Resolved
	p.onBatch(rep)
}

// checkAccounting verifies that every key is in exactly one of results and
// dropped, and that neither holds anything else.
func checkAccounting(keys []string, results *ResultSet, dropped *Dropped) error {
	res := results.Snapshot()
	drop := dropped.Snapshot()
	for _, k := range keys {
		_, inRes := res[k]
		_, inDrop := drop[k]
		switch {
		case inRes && inDrop:
			return fmt.Errorf("%w: %q is both resolved and dropped", ErrInvariant, k)
		case !inRes && !inDrop:
			return fmt.Errorf("%w: %q was lost", ErrInvariant, k)
		}
	}
	if n := len(res) + len(drop); n != len(keys) {
		return fmt.Errorf("%w: accounted for %d words, want %d", ErrInvariant, n, len(keys))
	}
	return nil
}

func dedupe(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}
