// Package chat adapts any llm.Provider into an inference.Provider by
// prompting it with the batch and parsing "word=カタカナ" lines from the reply.
package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrWong99/kanaset/internal/observe"
	"github.com/MrWong99/kanaset/pkg/provider/inference"
	"github.com/MrWong99/kanaset/pkg/provider/llm"
)

// Provider implements inference.Provider over a chat-completion backend.
type Provider struct {
	llm         llm.Provider
	temperature float64
	maxTokens   int
	metrics     *observe.Metrics
}

// Option is a functional option for Provider.
type Option func(*Provider)

// WithTemperature sets the sampling temperature sent with every request.
func WithTemperature(t float64) Option {
	return func(p *Provider) {
		p.temperature = t
	}
}

// WithMaxTokens caps the completion length of every request.
func WithMaxTokens(n int) Option {
	return func(p *Provider) {
		p.maxTokens = n
	}
}

// WithMetrics sets the metrics sink for token accounting. Defaults to
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Provider) {
		p.metrics = m
	}
}

// New wraps backend. backend must not be nil.
func New(backend llm.Provider, opts ...Option) (*Provider, error) {
	if backend == nil {
		return nil, errors.New("chat: backend must not be nil")
	}
	p := &Provider{llm: backend}
	for _, o := range opts {
		o(p)
	}
	if p.metrics == nil {
		p.metrics = observe.DefaultMetrics()
	}
	return p, nil
}

// Infer implements inference.Provider.
func (p *Provider) Infer(ctx context.Context, words []string) (map[string]string, error) {
	if len(words) == 0 {
		return map[string]string{}, nil
	}
	resp, err := p.llm.Complete(ctx, llm.CompletionRequest{
		Messages:    []llm.Message{{Role: "user", Content: inference.BuildPrompt(words)}},
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
	})
	if err != nil {
		if inference.IsRateLimited(err) && !errors.Is(err, inference.ErrRateLimited) {
			return nil, fmt.Errorf("chat: %w: %w", inference.ErrRateLimited, err)
		}
		return nil, fmt.Errorf("chat: %w", err)
	}
	if resp == nil {
		return nil, errors.New("chat: backend returned no response")
	}
	p.metrics.RecordTokens(ctx, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	return inference.Filter(inference.ParseResponse(resp.Content), words), nil
}

// Ensure Provider implements inference.Provider at compile time.
var _ inference.Provider = (*Provider)(nil)
