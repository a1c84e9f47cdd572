// Package catalog converts a remote tool catalog into the function-calling
// schema offered to the model.
package catalog

import (
	"bytes"
	"encoding/json"

	"github.com/flemzord/mcplab/internal/provider"
)

// emptyObjectSchema is the parameters schema used when a tool declares none.
var emptyObjectSchema = json.RawMessage(`{"type":"object","properties":{}}`)

// ToolDescriptor is one entry of a remote tool catalog as discovered.
// An empty Description or nil InputSchema means the server did not send one.
type ToolDescriptor struct {
	Name        string
	Description string
	InputSchema json.RawMessage
}

// Translate maps descriptors to function definitions, preserving order.
// It never fails: a missing description becomes "" and a missing or
// non-object input schema becomes an empty object schema.
func Translate(tools []ToolDescriptor) []provider.ToolDefinition {
	defs := make([]provider.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, provider.ToolDefinition{
			Type: provider.ToolTypeFunction,
			Function: provider.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  parameters(t.InputSchema),
			},
		})
	}
	return defs
}

// Names returns the tool names in catalog order.
func Names(tools []ToolDescriptor) []string {
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name
	}
	return names
}

func parameters(schema json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(schema)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return emptyObjectSchema
	}
	return trimmed
}
