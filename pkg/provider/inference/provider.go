// Package inference defines the Provider interface for backends that turn a
// batch of English words into raw katakana pronunciations.
//
// A Provider may answer only part of a batch: words absent from the returned
// map are treated as missing and retried by the caller. Returned values are
// unvalidated; the caller normalises and checks them.
//
// Errors are classified with [IsRateLimited] and [IsFatal]. Anything else is
// a transient failure that the caller retries without pausing.
package inference

import (
	"context"
	"errors"

	"github.com/MrWong99/kanaset/pkg/provider/llm"
)

var (
	// ErrRateLimited signals that the backend refused the batch because of
	// overload or quota. The caller pauses all submissions for a cooldown.
	ErrRateLimited = errors.New("inference: rate limited")

	// ErrFatal signals a failure that retrying cannot fix (bad credentials,
	// unknown model). The caller aborts the run.
	ErrFatal = errors.New("inference: fatal")
)

// Provider is the abstraction over any word → pronunciation backend.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// Infer submits words as one batch and returns the pronunciations the
	// backend produced, keyed by word.
	Infer(ctx context.Context, words []string) (map[string]string, error)
}

// IsRateLimited reports whether err is a rate-limit signal from either an
// inference backend or the underlying LLM client. Errors that carry no
// sentinel are inspected for vendor markers such as "429".
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, llm.ErrRateLimited) {
		return true
	}
	if IsFatal(err) {
		return false
	}
	return llm.ClassifyMessage(err) == llm.ErrRateLimited
}

// IsFatal reports whether err must abort the run.
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatal) ||
		errors.Is(err, llm.ErrUnauthorized) ||
		errors.Is(err, context.Canceled)
}
