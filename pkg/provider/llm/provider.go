// Package llm defines the Provider interface for chat-completion backends.
//
// An LLM provider wraps a remote or local model API (OpenAI, Gemini, Anthropic,
// a local Ollama instance, ...) behind a single non-streaming Complete call so
// that the inference layer can prompt any vendor without coupling to its SDK.
//
// Implementations must be safe for concurrent use and must classify vendor
// errors with [ErrRateLimited] and [ErrUnauthorized] where they can, so that
// callers can tell transient overload apart from a permanent failure.
package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

var (
	// ErrRateLimited marks a request rejected because the backend is
	// overloaded or the caller exceeded its quota (HTTP 429).
	ErrRateLimited = errors.New("llm: rate limited")

	// ErrUnauthorized marks a request rejected because of missing or invalid
	// credentials (HTTP 401/403). Retrying will not help.
	ErrUnauthorized = errors.New("llm: unauthorized")
)

// Message is a single message in a conversation.
type Message struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the text content of the message.
	Content string
}

// Usage holds token accounting information returned by the backend.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionRequest carries everything the LLM needs to produce a response.
type CompletionRequest struct {
	// Messages is the ordered conversation. Must be non-empty.
	Messages []Message

	// SystemPrompt is an optional instruction sent before Messages.
	SystemPrompt string

	// Temperature controls output randomness. Zero leaves the provider default.
	Temperature float64

	// MaxTokens caps the completion length. Zero leaves the provider default.
	MaxTokens int
}

// CompletionResponse is returned by Complete.
type CompletionResponse struct {
	// Content is the full text of the assistant's reply.
	Content string

	// Usage contains token accounting for this request/response pair.
	Usage Usage
}

// Provider is the abstraction over any chat-completion backend.
type Provider interface {
	// Complete sends req to the model and waits for the full response.
	// Returns an error if the request fails or ctx is cancelled first.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// ClassifyStatus maps an HTTP status code to [ErrRateLimited] or
// [ErrUnauthorized]. Any other status returns nil.
func ClassifyStatus(status int) error {
	switch status {
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	}
	return nil
}

// rateLimitMarkers are substrings that vendors embed in error messages when
// they reject a request for overload or quota reasons.
var rateLimitMarkers = []string{
	"429",
	"rate limit",
	"ratelimit",
	"resource_exhausted",
	"resource exhausted",
	"quota",
}

// unauthorizedMarkers are substrings that vendors embed in error messages when
// credentials are rejected.
var unauthorizedMarkers = []string{
	"401",
	"unauthorized",
	"invalid api key",
	"permission_denied",
}

// ClassifyMessage inspects the text of err for vendor-specific markers and
// returns [ErrRateLimited], [ErrUnauthorized], or nil. It is the fallback for
// SDKs that do not expose a typed status code.
func ClassifyMessage(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	for _, m := range rateLimitMarkers {
		if strings.Contains(msg, m) {
			return ErrRateLimited
		}
	}
	for _, m := range unauthorizedMarkers {
		if strings.Contains(msg, m) {
			return ErrUnauthorized
		}
	}
	return nil
}
