package pipeline

import "errors"

var (
	// ErrTooManyRounds is returned when items are still pending after the
	// configured number of rounds.
	ErrTooManyRounds = errors.New("pipeline: too many rounds")

	// ErrInvariant is returned when the final state does not account for
	// every input word exactly once. It indicates a bug, never a backend
	// failure.
	ErrInvariant = errors.New("pipeline: result invariant violated")
)
