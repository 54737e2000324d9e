// Package source defines the Provider interface for word lists that feed the
// dataset builder.
package source

import (
	"context"
	"errors"
)

// ErrSource marks a word list that could not be read or parsed. Providers
// wrap their underlying error with it.
var ErrSource = errors.New("source: unreadable word list")

// Provider yields the candidate words. Words are lower-case, unique, and in
// a stable order for a given input.
type Provider interface {
	Words(ctx context.Context) ([]string, error)
}

// Dedupe returns words with later duplicates removed, preserving the order
// of first occurrence.
func Dedupe(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	out := words[:0:0]
	for _, w := range words {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}
