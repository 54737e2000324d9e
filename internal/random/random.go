// Package random provides the seeded, deterministic random source used for
// probe sampling, word-list limiting, and work ordering.
//
// Two sources created with the same seed yield the same sequence, which keeps
// runs and tests reproducible. A Rand is safe for concurrent use; calls are
// serialised, so the sequence observed by concurrent callers depends on
// scheduling but every individual call is well-formed.
package random

import (
	"math/rand/v2"
	"sync"
)

// Rand is a mutex-guarded PCG generator.
type Rand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a Rand seeded with seed.
func New(seed uint64) *Rand {
	return &Rand{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Float64 returns the next value in [0, 1).
func (r *Rand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}

// IntN returns a value in [0, n). It panics if n <= 0.
func (r *Rand) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.IntN(n)
}

// Shuffle returns a shuffled copy of s. The input is not modified.
func Shuffle[T any](r *Rand, s []T) []T {
	out := make([]T, len(s))
	copy(out, s)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// Sample returns n elements of s in random order, drawn without replacement.
// When n >= len(s) the whole slice is returned shuffled.
func Sample[T any](r *Rand, s []T, n int) []T {
	shuffled := Shuffle(r, s)
	if n < 0 {
		n = 0
	}
	if n > len(shuffled) {
		n = len(shuffled)
	}
	return shuffled[:n]
}
