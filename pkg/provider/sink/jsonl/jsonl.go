// Package jsonl provides a sink.Sink that writes the dataset as a JSON Lines
// file, one {"word","kata"} record per line sorted by word. The file is
// replaced atomically.
package jsonl

import (
	"context"
	"fmt"

	"github.com/MrWong99/kanaset/internal/dataset"
	"github.com/MrWong99/kanaset/pkg/provider/sink"
)

// DefaultPath is used when no path is configured.
const DefaultPath = "data.jsonl"

// Sink implements sink.Sink.
type Sink struct {
	path string
}

// New returns a Sink writing to path. An empty path selects [DefaultPath].
func New(path string) *Sink {
	if path == "" {
		path = DefaultPath
	}
	return &Sink{path: path}
}

// Path returns the output file path.
func (s *Sink) Path() string { return s.path }

// Write implements sink.Sink.
func (s *Sink) Write(ctx context.Context, results map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := dataset.WriteFile(s.path, results); err != nil {
		return fmt.Errorf("jsonl: %w", err)
	}
	return nil
}

// Ensure Sink implements sink.Sink at compile time.
var _ sink.Sink = (*Sink)(nil)
