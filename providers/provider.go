// Package providers implements multi-LLM provider support with a unified
// interface.
//
// It provides a common abstraction over hosted chat-completion APIs (Groq,
// OpenAI) and the Gateway used by the rest of the system: plain text
// generation, plus the tolerant "podcast transcript" structured path that
// parses loosely formatted model output into validated utterances.
package providers

import (
	"context"
)

// TextRequest is a request for plain-text generation.
type TextRequest struct {
	// System is an optional system message prepended to the conversation.
	System string
	// Prompt is the user prompt.
	Prompt string
	// Model is the provider-specific model identifier. Must already be
	// resolved against the provider's allow-list.
	Model string
	// Temperature overrides the provider default when non-zero.
	Temperature float32
	// MaxTokens overrides the provider default when non-zero.
	MaxTokens int
}

// ProviderDefaults holds default generation parameters for a provider.
type ProviderDefaults struct {
	Temperature float32
	MaxTokens   int
}

// Provider is the contract for text-generation providers.
type Provider interface {
	// ID returns the provider identifier ("groq", "openai", ...).
	ID() string

	// GenerateText produces a plain-text completion for the request.
	GenerateText(ctx context.Context, req TextRequest) (string, error)

	// Close cleans up provider resources (e.g. HTTP connections).
	Close() error
}
