// Package dummy provides an offline inference.Provider for dry runs and
// end-to-end tests. It transliterates each word letter by letter into single
// katakana morae and can simulate the failure modes of a real backend:
// omitted words, garbage answers, spelled-out answers, a hard batch cap and
// rate limiting.
package dummy

import (
	"context"
	"fmt"
	"strings"

	"github.com/MrWong99/kanaset/internal/kana"
	"github.com/MrWong99/kanaset/internal/random"
	"github.com/MrWong99/kanaset/pkg/provider/inference"
)

// DefaultNoiseRate is the default probability of each simulated fault.
const DefaultNoiseRate = 0.001

// morae maps each latin letter to a single katakana mora.
var morae = map[rune]string{
	'a': "ア", 'b': "ブ", 'c': "ク", 'd': "ド", 'e': "エ", 'f': "フ",
	'g': "グ", 'h': "ハ", 'i': "イ", 'j': "ジ", 'k': "ク", 'l': "ル",
	'm': "ム", 'n': "ン", 'o': "オ", 'p': "プ", 'q': "ク", 'r': "ル",
	's': "ス", 't': "ト", 'u': "ウ", 'v': "ヴ", 'w': "ウ", 'x': "クス",
	'y': "イ", 'z': "ズ",
}

// Provider implements inference.Provider without any network access.
type Provider struct {
	rng           *random.Rand
	skipRate      float64
	garbageRate   float64
	spellRate     float64
	rateLimitRate float64
	maxBatch      int
}

// Option is a functional option for Provider.
type Option func(*Provider)

// WithSkipRate sets the probability that a word is omitted from the answer.
func WithSkipRate(r float64) Option {
	return func(p *Provider) { p.skipRate = r }
}

// WithGarbageRate sets the probability that a word is answered with itself
// instead of katakana.
func WithGarbageRate(r float64) Option {
	return func(p *Provider) { p.garbageRate = r }
}

// WithSpellRate sets the probability that a word is answered with its
// letter-by-letter spelling.
func WithSpellRate(r float64) Option {
	return func(p *Provider) { p.spellRate = r }
}

// WithRateLimitRate sets the probability that a whole call is rejected with
// inference.ErrRateLimited.
func WithRateLimitRate(r float64) Option {
	return func(p *Provider) { p.rateLimitRate = r }
}

// WithMaxBatch caps how many words a single call answers. Words beyond the
// cap are silently omitted, the way a model truncates a long reply. Zero
// disables the cap.
func WithMaxBatch(n int) Option {
	return func(p *Provider) { p.maxBatch = n }
}

// New returns a Provider drawing its faults from rng.
func New(rng *random.Rand, opts ...Option) *Provider {
	p := &Provider{
		rng:         rng,
		skipRate:    DefaultNoiseRate,
		garbageRate: DefaultNoiseRate,
		spellRate:   DefaultNoiseRate,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Transliterate returns the mora-by-mora reading of word used as the
// "correct" answer.
func Transliterate(word string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(word) {
		if m, ok := morae[r]; ok {
			b.WriteString(m)
		}
	}
	return b.String()
}

// Infer implements inference.Provider.
func (p *Provider) Infer(ctx context.Context, words []string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.rateLimitRate > 0 && p.rng.Float64() < p.rateLimitRate {
		return nil, fmt.Errorf("dummy: %w", inference.ErrRateLimited)
	}
	if p.maxBatch > 0 && len(words) > p.maxBatch {
		words = words[:p.maxBatch]
	}

	out := make(map[string]string, len(words))
	for _, w := range words {
		switch {
		case p.rng.Float64() < p.skipRate:
			continue
		case p.rng.Float64() < p.garbageRate:
			out[w] = w
		case p.rng.Float64() < p.spellRate:
			out[w] = kana.SpellOut(w)
		default:
			out[w] = Transliterate(w)
		}
	}
	return out, nil
}

// Ensure Provider implements inference.Provider at compile time.
var _ inference.Provider = (*Provider)(nil)
