// Package mock provides a test double for the inference.Provider interface.
//
// Set InferFunc to script per-call behaviour (capacity caps, omissions, rate
// limits); otherwise Infer returns InferResult and InferErr. Every call is
// recorded with a copy of the submitted batch.
package mock

import (
	"context"
	"slices"
	"sync"

	"github.com/MrWong99/kanaset/pkg/provider/inference"
)

// InferCall records a single invocation of Infer.
type InferCall struct {
	// Words is a copy of the batch passed to Infer.
	Words []string
}

// Provider is a mock implementation of inference.Provider. It is safe for
// concurrent use.
type Provider struct {
	mu sync.Mutex

	// InferFunc, if set, produces the result of every call.
	InferFunc func(ctx context.Context, words []string) (map[string]string, error)

	// InferResult is returned by Infer when InferFunc is nil. Only entries
	// for submitted words are returned.
	InferResult map[string]string

	// InferErr, if non-nil, is returned by Infer when InferFunc is nil.
	InferErr error

	// InferCalls records every invocation of Infer in order.
	InferCalls []InferCall
}

// Infer records the call and returns the scripted result.
func (p *Provider) Infer(ctx context.Context, words []string) (map[string]string, error) {
	p.mu.Lock()
	p.InferCalls = append(p.InferCalls, InferCall{Words: slices.Clone(words)})
	fn, res, err := p.InferFunc, p.InferResult, p.InferErr
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, words)
	}
	if err != nil {
		return nil, err
	}
	return inference.Filter(res, words), nil
}

// Calls returns a copy of the recorded calls.
func (p *Provider) Calls() []InferCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.InferCalls)
}

// CallCount returns the number of recorded calls.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.InferCalls)
}

// Reset clears all recorded calls.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.InferCalls = nil
}

// Ensure Provider implements inference.Provider at compile time.
var _ inference.Provider = (*Provider)(nil)
