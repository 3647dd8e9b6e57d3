// Package provider defines the LLM completion interface the agent loop
// runs against, keeping model vendors swappable behind one contract.
package provider

import (
	"context"
	"errors"
)

// Sentinel errors implementations map vendor failures onto so callers can
// classify them without knowing the vendor.
var (
	// ErrRateLimit indicates the vendor rejected the request for rate limiting.
	ErrRateLimit = errors.New("provider: rate limited")

	// ErrProviderDown indicates the vendor is unreachable or returning 5xx.
	ErrProviderDown = errors.New("provider: unavailable")

	// ErrContextLength indicates the request exceeded the model's context window.
	ErrContextLength = errors.New("provider: context length exceeded")
)

// Provider is the interface for communicating with an LLM.
type Provider interface {
	// Complete sends a completion request and returns the full response.
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)

	// Stream sends a completion request and returns a channel of chunks.
	// Initial connection errors are returned directly. Mid-stream errors
	// are delivered via StreamChunk.Err.
	Stream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error)

	// ContextWindowSize returns the maximum context window in tokens.
	ContextWindowSize() int

	// ModelName returns the identifier of the underlying model.
	ModelName() string
}
