// Package observe provides application-wide observability primitives for
// kanaset: OpenTelemetry metrics, tracing helpers, trace-aware logging, and
// HTTP middleware for the metrics endpoint.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that a long run can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all kanaset metrics.
const meterName = "github.com/MrWong99/kanaset"

// Batch outcomes used as the "outcome" attribute.
const (
	OutcomeOK          = "ok"
	OutcomeRateLimited = "rate_limited"
	OutcomeError       = "error"
	OutcomeFatal       = "fatal"
)

// Item results used as the "result" attribute.
const (
	ItemValid    = "valid"
	ItemInvalid  = "invalid"
	ItemMissing  = "missing"
	ItemRequeued = "requeued"
	ItemDropped  = "dropped"
)

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// BatchDuration tracks the latency of one backend submission. Use with
	// attribute.String("outcome", ...).
	BatchDuration metric.Float64Histogram

	// Batches counts submitted batches by outcome.
	Batches metric.Int64Counter

	// Items counts per-item classifications. Use with
	// attribute.String("result", ...).
	Items metric.Int64Counter

	// RateLimits counts rate-limit signals and whether they armed the
	// cooldown (attribute.Bool("armed", ...)).
	RateLimits metric.Int64Counter

	// QueueDepth reports the retry queue length after each batch.
	QueueDepth metric.Int64Gauge

	// ProbeSize records every probed batch size. Use with
	// attribute.Bool("complete", ...).
	ProbeSize metric.Int64Histogram

	// LLMTokens counts tokens reported by chat backends. Use with
	// attribute.String("kind", "prompt"|"completion").
	LLMTokens metric.Int64Counter

	// ActiveWorkers tracks the number of workers currently draining.
	ActiveWorkers metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP request processing time on the
	// metrics listener.
	HTTPRequestDuration metric.Float64Histogram
}

// batchBuckets defines histogram bucket boundaries (in seconds) for LLM
// batch round-trips.
var batchBuckets = []float64{
	0.1, 0.5, 1, 2.5, 5, 10, 20, 40, 80, 160,
}

// probeBuckets defines bucket boundaries for probed batch sizes.
var probeBuckets = []float64{
	1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.BatchDuration, err = m.Float64Histogram("kanaset.batch.duration",
		metric.WithDescription("Latency of one inference batch submission."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(batchBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Batches, err = m.Int64Counter("kanaset.batches",
		metric.WithDescription("Total inference batches by outcome."),
	); err != nil {
		return nil, err
	}
	if met.Items, err = m.Int64Counter("kanaset.items",
		metric.WithDescription("Total work items by classification result."),
	); err != nil {
		return nil, err
	}
	if met.RateLimits, err = m.Int64Counter("kanaset.rate_limits",
		metric.WithDescription("Total rate-limit signals received from the backend."),
	); err != nil {
		return nil, err
	}
	if met.QueueDepth, err = m.Int64Gauge("kanaset.queue.depth",
		metric.WithDescription("Number of work items waiting in the retry queue."),
	); err != nil {
		return nil, err
	}
	if met.ProbeSize, err = m.Int64Histogram("kanaset.probe.size",
		metric.WithDescription("Batch sizes tried by the capacity prober."),
		metric.WithExplicitBucketBoundaries(probeBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LLMTokens, err = m.Int64Counter("kanaset.llm.tokens",
		metric.WithDescription("Total tokens reported by chat backends."),
	); err != nil {
		return nil, err
	}
	if met.ActiveWorkers, err = m.Int64UpDownCounter("kanaset.active_workers",
		metric.WithDescription("Number of pool workers currently draining the queue."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("kanaset.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordBatch records the duration and outcome of one submission.
func (m *Metrics) RecordBatch(ctx context.Context, outcome string, d time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.BatchDuration.Record(ctx, d.Seconds(), attrs)
	m.Batches.Add(ctx, 1, attrs)
}

// RecordItems adds n items with the given classification result. Zero
// counts are skipped.
func (m *Metrics) RecordItems(ctx context.Context, result string, n int) {
	if n <= 0 {
		return
	}
	m.Items.Add(ctx, int64(n),
		metric.WithAttributes(attribute.String("result", result)),
	)
}

// RecordRateLimit records one rate-limit signal.
func (m *Metrics) RecordRateLimit(ctx context.Context, armed bool) {
	m.RateLimits.Add(ctx, 1,
		metric.WithAttributes(attribute.Bool("armed", armed)),
	)
}

// SetQueueDepth records the current retry queue length.
func (m *Metrics) SetQueueDepth(ctx context.Context, n int) {
	m.QueueDepth.Record(ctx, int64(n))
}

// RecordProbe records one probed size and whether the backend answered it
// completely.
func (m *Metrics) RecordProbe(ctx context.Context, size int, complete bool) {
	m.ProbeSize.Record(ctx, int64(size),
		metric.WithAttributes(attribute.Bool("complete", complete)),
	)
}

// RecordTokens records token usage reported by a chat backend.
func (m *Metrics) RecordTokens(ctx context.Context, prompt, completion int) {
	if prompt > 0 {
		m.LLMTokens.Add(ctx, int64(prompt), metric.WithAttributes(attribute.String("kind", "prompt")))
	}
	if completion > 0 {
		m.LLMTokens.Add(ctx, int64(completion), metric.WithAttributes(attribute.String("kind", "completion")))
	}
}
