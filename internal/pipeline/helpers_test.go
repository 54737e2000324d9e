package pipeline_test

import (
	"testing"

	"go.opentelemetry.io/otel/metric/noop"

	"github.com/MrWong99/kanaset/internal/observe"
	"github.com/MrWong99/kanaset/pkg/provider/inference/dummy"
)

func newMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	m, err := observe.NewMetrics(noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m
}

// testWords returns n distinct lower-case words.
func testWords(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "k" + string([]byte{
			byte('a' + i/676%26),
			byte('a' + i/26%26),
			byte('a' + i%26),
		})
	}
	return out
}

// answerAll returns a valid pronunciation for every word.
func answerAll(words []string) map[string]string {
	out := make(map[string]string, len(words))
	for _, w := range words {
		out[w] = dummy.Transliterate(w)
	}
	return out
}
