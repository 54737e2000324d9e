// Package mock provides a test double for the sink.Sink interface.
package mock

import (
	"context"
	"maps"
	"sync"

	"github.com/MrWong99/kanaset/pkg/provider/sink"
)

// Sink is a mock implementation of sink.Sink.
type Sink struct {
	mu sync.Mutex

	// WriteErr, if non-nil, is returned as the error from Write.
	WriteErr error

	// Writes records a copy of every result set passed to Write.
	Writes []map[string]string
}

// Write records the call and returns WriteErr.
func (s *Sink) Write(_ context.Context, results map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Writes = append(s.Writes, maps.Clone(results))
	return s.WriteErr
}

// WriteCount returns the number of recorded Write calls.
func (s *Sink) WriteCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Writes)
}

// Ensure Sink implements sink.Sink at compile time.
var _ sink.Sink = (*Sink)(nil)
