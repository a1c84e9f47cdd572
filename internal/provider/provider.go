// Package provider defines the chat-completion contract the agent loop
// depends on. Backends live under modules/provider and register themselves
// as core modules.
package provider

import "context"

// Provider is the interface for communicating with an LLM.
// One Complete call is one blocking request/response exchange.
type Provider interface {
	// Complete sends a completion request and returns the full response.
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)

	// ModelName returns the identifier of the underlying model.
	ModelName() string
}
