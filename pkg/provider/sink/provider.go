// Package sink defines the Sink interface that persists a finished dataset.
//
// A Sink receives the complete result set exactly once, after the run has
// succeeded. It must either store all of it or nothing: a failed Write must
// not leave a partial dataset behind.
package sink

import "context"

// Sink persists a word → pronunciation result set.
type Sink interface {
	Write(ctx context.Context, results map[string]string) error
}
