package pipeline_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrWong99/kanaset/internal/clock"
	"github.com/MrWong99/kanaset/internal/pipeline"
	"github.com/MrWong99/kanaset/internal/random"
	"github.com/MrWong99/kanaset/pkg/provider/inference"
	"github.com/MrWong99/kanaset/pkg/provider/inference/mock"
)

// cappedBackend answers every word of batches up to limit and drops the last
// word of larger ones.
func cappedBackend(limit int) *mock.Provider {
	return &mock.Provider{
		InferFunc: func(_ context.Context, words []string) (map[string]string, error) {
			if len(words) > limit {
				return answerAll(words[:len(words)-1]), nil
			}
			return answerAll(words), nil
		},
	}
}

func TestBisectMax(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		lo, hi int
		limit  int
		want   int
	}{
		{"boundary inside", 1, 1001, 37, 38},
		{"always true", 1, 100, 1000, 100},
		{"always false", 5, 100, 0, 5},
		{"empty range", 7, 7, 50, 7},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := pipeline.BisectMax(context.Background(), tc.lo, tc.hi, func(_ context.Context, n int) (bool, error) {
				return n <= tc.limit, nil
			})
			if err != nil {
				t.Fatalf("BisectMax: %v", err)
			}
			if got != tc.want {
				t.Errorf("BisectMax = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestBisectMax_Error(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	_, err := pipeline.BisectMax(context.Background(), 1, 10, func(context.Context, int) (bool, error) {
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}

func TestProber_FindsCapacity(t *testing.T) {
	t.Parallel()
	backend := cappedBackend(37)
	p := &pipeline.Prober{Backend: backend, Rand: random.New(1), Metrics: newMetrics(t)}

	got, err := p.Probe(context.Background(), testWords(1000), 1, 1000)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if got != 37 {
		t.Errorf("Probe = %d, want 37", got)
	}
	for _, c := range backend.Calls() {
		if len(c.Words) < 1 || len(c.Words) > 1000 {
			t.Errorf("probed size %d outside [1, 1000]", len(c.Words))
		}
	}
}

func TestProber_CapsAtWordCount(t *testing.T) {
	t.Parallel()
	p := &pipeline.Prober{Backend: cappedBackend(1000), Rand: random.New(1), Metrics: newMetrics(t)}

	got, err := p.Probe(context.Background(), testWords(20), 1, 1000)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if got != 20 {
		t.Errorf("Probe = %d, want 20", got)
	}
}

func TestProber_MinimumFails(t *testing.T) {
	t.Parallel()
	p := &pipeline.Prober{Backend: cappedBackend(3), Rand: random.New(1), Metrics: newMetrics(t)}

	got, err := p.Probe(context.Background(), testWords(100), 10, 100)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if got != 9 {
		t.Errorf("Probe = %d, want 9", got)
	}
}

func TestProber_RateLimitCountsAsFailure(t *testing.T) {
	t.Parallel()
	backend := &mock.Provider{
		InferFunc: func(_ context.Context, words []string) (map[string]string, error) {
			if len(words) > 37 {
				return nil, inference.ErrRateLimited
			}
			return answerAll(words), nil
		},
	}
	clk := clock.NewFake(time.Unix(0, 0))
	gate := pipeline.NewCooldown(clk)
	p := &pipeline.Prober{
		Backend:  backend,
		Rand:     random.New(3),
		Gate:     gate,
		Cooldown: time.Minute,
		Metrics:  newMetrics(t),
	}

	got, err := p.Probe(context.Background(), testWords(1000), 1, 1000)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if got != 37 {
		t.Errorf("Probe = %d, want 37", got)
	}
	for _, d := range clk.Sleeps() {
		if d > time.Minute {
			t.Errorf("waited %s, longer than one cooldown", d)
		}
	}
	if len(clk.Sleeps()) == 0 {
		t.Error("expected the prober to wait out a cooldown")
	}
}

// armingThrottle arms gate on every Acquire, as if another worker hit a rate
// limit while the caller waited for its slot.
type armingThrottle struct {
	gate *pipeline.Cooldown
	d    time.Duration
}

func (a armingThrottle) Acquire(context.Context) error {
	a.gate.Arm(a.d)
	return nil
}

func TestProber_HonoursCooldownArmedDuringThrottle(t *testing.T) {
	t.Parallel()
	clk := clock.NewFake(time.Unix(0, 0))
	gate := pipeline.NewCooldown(clk)
	var submittedAt []time.Time
	backend := &mock.Provider{
		InferFunc: func(_ context.Context, words []string) (map[string]string, error) {
			if gate.Pending() > 0 {
				t.Errorf("submitted %d words during a cooldown", len(words))
			}
			submittedAt = append(submittedAt, clk.Now())
			return answerAll(words), nil
		},
	}
	p := &pipeline.Prober{
		Backend:  backend,
		Rand:     random.New(3),
		Throttle: armingThrottle{gate: gate, d: time.Minute},
		Gate:     gate,
		Cooldown: time.Minute,
		Metrics:  newMetrics(t),
	}

	if _, err := p.Probe(context.Background(), testWords(50), 1, 50); err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if len(submittedAt) == 0 {
		t.Fatal("backend never called")
	}
	if got := len(clk.Sleeps()); got != len(submittedAt) {
		t.Errorf("cooldown waits = %d, want one per probe (%d)", got, len(submittedAt))
	}
}

func TestProber_SubmissionErrorCountsAsFailure(t *testing.T) {
	t.Parallel()
	backend := &mock.Provider{
		InferFunc: func(_ context.Context, words []string) (map[string]string, error) {
			if len(words) > 12 {
				return nil, errors.New("connection reset")
			}
			return answerAll(words), nil
		},
	}
	p := &pipeline.Prober{Backend: backend, Rand: random.New(5), Metrics: newMetrics(t)}

	got, err := p.Probe(context.Background(), testWords(200), 1, 200)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if got != 12 {
		t.Errorf("Probe = %d, want 12", got)
	}
}

func TestProber_FatalAborts(t *testing.T) {
	t.Parallel()
	backend := &mock.Provider{InferErr: inference.ErrFatal}
	p := &pipeline.Prober{Backend: backend, Rand: random.New(1), Metrics: newMetrics(t)}

	if _, err := p.Probe(context.Background(), testWords(100), 1, 100); !errors.Is(err, inference.ErrFatal) {
		t.Fatalf("err = %v, want ErrFatal", err)
	}
	if n := backend.CallCount(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}

func TestProber_InvalidRange(t *testing.T) {
	t.Parallel()
	p := &pipeline.Prober{Backend: cappedBackend(10), Rand: random.New(1)}
	if _, err := p.Probe(context.Background(), testWords(10), 0, 5); err == nil {
		t.Error("expected error for lo = 0")
	}
	if _, err := p.Probe(context.Background(), testWords(10), 6, 5); err == nil {
		t.Error("expected error for hi < lo")
	}
}
