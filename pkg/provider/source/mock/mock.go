// Package mock provides a test double for the source.Provider interface.
package mock

import (
	"context"
	"slices"
	"sync"

	"github.com/MrWong99/kanaset/pkg/provider/source"
)

// Provider is a mock implementation of source.Provider.
type Provider struct {
	mu sync.Mutex

	// WordList is returned (as a copy) by Words.
	WordList []string

	// WordsErr, if non-nil, is returned as the error from Words.
	WordsErr error

	// WordsCallCount is the number of times Words was called.
	WordsCallCount int
}

// Words records the call and returns WordList, WordsErr.
func (p *Provider) Words(context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.WordsCallCount++
	if p.WordsErr != nil {
		return nil, p.WordsErr
	}
	return slices.Clone(p.WordList), nil
}

// Ensure Provider implements source.Provider at compile time.
var _ source.Provider = (*Provider)(nil)
