// Package providertest provides test helpers for the provider package.
package providertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/flemzord/mcplab/internal/provider"
)

// MockProvider is a configurable test double for provider.Provider.
// When CompleteFunc is nil, Complete replays Responses in order and fails
// once they are exhausted. Every request is recorded.
// All methods are safe for concurrent use.
type MockProvider struct {
	CompleteFunc func(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error)
	Responses    []provider.CompletionResponse
	Model        string

	mu       sync.Mutex
	requests []provider.CompletionRequest
}

// Complete records req and returns the next scripted response.
func (m *MockProvider) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error) {
	m.mu.Lock()
	// Snapshot the history: the caller keeps appending to the same slice.
	req.Messages = append([]provider.LLMMessage(nil), req.Messages...)
	m.requests = append(m.requests, req)
	idx := len(m.requests) - 1
	fn := m.CompleteFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if idx >= len(m.Responses) {
		return provider.CompletionResponse{}, fmt.Errorf("providertest: no response scripted for call %d", idx+1)
	}
	return m.Responses[idx], nil
}

// ModelName returns Model, or "mock-model" when unset.
func (m *MockProvider) ModelName() string {
	if m.Model == "" {
		return "mock-model"
	}
	return m.Model
}

// Requests returns a copy of every request received so far.
func (m *MockProvider) Requests() []provider.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]provider.CompletionRequest(nil), m.requests...)
}

// Calls returns the number of Complete calls.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Interface guard.
var _ provider.Provider = (*MockProvider)(nil)
