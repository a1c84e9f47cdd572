package agent

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/flemzord/mcplab/internal/catalog"
)

// fakeSource is a scripted ToolSource.
type fakeSource struct {
	tools   []catalog.ToolDescriptor
	listErr error
	handler func(name string, args map[string]any) (any, error)

	mu    sync.Mutex
	calls []fakeCall
}

type fakeCall struct {
	Name string
	Args map[string]any
}

func (f *fakeSource) ListTools(_ context.Context) ([]catalog.ToolDescriptor, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.tools, nil
}

func (f *fakeSource) CallTool(_ context.Context, name string, args map[string]any) (any, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{Name: name, Args: args})
	f.mu.Unlock()
	if f.handler == nil {
		return nil, errors.New("no handler")
	}
	return f.handler(name, args)
}

func (f *fakeSource) recorded() []fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakeCall(nil), f.calls...)
}

func labTools() []catalog.ToolDescriptor {
	return []catalog.ToolDescriptor{
		{Name: "echo", Description: "Echo back the provided text.", InputSchema: json.RawMessage(`{"type":"object","properties":{"text":{"type":"string"}},"required":["text"]}`)},
		{Name: "add", Description: "Add two integers.", InputSchema: json.RawMessage(`{"type":"object","properties":{"a":{"type":"integer"},"b":{"type":"integer"}},"required":["a","b"]}`)},
		{Name: "now_iso", Description: "Current UTC time in ISO 8601."},
	}
}
