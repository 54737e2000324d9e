// Package shortwords provides every one- and two-letter lower-case latin
// string ("a" .. "z", "aa" .. "zz") as a word list. Such strings are rare in
// dictionaries but common as acronyms and abbreviations.
package shortwords

import (
	"context"

	"github.com/MrWong99/kanaset/pkg/provider/source"
)

// Provider implements source.Provider.
type Provider struct{}

// New returns a Provider.
func New() *Provider { return &Provider{} }

// Words implements source.Provider. The single letters come first, then the
// pairs in lexical order.
func (Provider) Words(context.Context) ([]string, error) {
	words := make([]string, 0, 26+26*26)
	for c := 'a'; c <= 'z'; c++ {
		words = append(words, string(c))
	}
	for a := 'a'; a <= 'z'; a++ {
		for b := 'a'; b <= 'z'; b++ {
			words = append(words, string([]rune{a, b}))
		}
	}
	return words, nil
}

// Ensure Provider implements source.Provider at compile time.
var _ source.Provider = (*Provider)(nil)
