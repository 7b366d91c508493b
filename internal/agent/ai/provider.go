// Package ai defines the completion-service collaborator interface and its
// provider implementations. The engine only distinguishes success, failure,
// and malformed output; timeouts are the caller's concern via ctx.
package ai

import (
	"context"
	"errors"
)

// ErrModelUnavailable indicates the completion service could not be reached
// or refused the request. Callers fall back to rule-based paths.
var ErrModelUnavailable = errors.New("completion service unavailable")

// ChatMessage is one turn in a completion request.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// ChatRequest is a request to a completion provider.
type ChatRequest struct {
	System      string        `json:"system,omitempty"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
	Model       string        `json:"model,omitempty"` // per-request override
}

// Provider is a completion service. Complete returns the raw assistant text;
// structured-output parsing happens in the caller.
type Provider interface {
	// ID returns the provider identifier (e.g. "anthropic", "openai")
	ID() string

	// Complete sends the request and returns the full response text
	Complete(ctx context.Context, req *ChatRequest) (string, error)
}
