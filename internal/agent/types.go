// Package agent implements the tool-calling agent loop: it offers a remote
// tool catalog to a chat model, executes the tool calls the model requests,
// folds the results back into the conversation and returns the final answer.
package agent

import (
	"context"
	"encoding/json"
	"time"

	"github.com/flemzord/mcplab/internal/catalog"
	"github.com/flemzord/mcplab/internal/provider"
)

// StopReason describes why the agent loop terminated.
type StopReason string

// StopReason constants for agent loop termination.
const (
	// StopReasonComplete means the model answered without requesting tools.
	StopReasonComplete StopReason = "complete"
	// StopReasonRoundLimit means the follow-up turn after the last permitted
	// tool batch requested more tools; those calls were not executed.
	StopReasonRoundLimit StopReason = "round_limit"
	StopReasonTimeout    StopReason = "timeout"
	StopReasonError      StopReason = "error"
)

// ToolSource is the remote tool server as seen by the loop.
type ToolSource interface {
	// ListTools returns the catalog in discovery order.
	ListTools(ctx context.Context) ([]catalog.ToolDescriptor, error)
	// CallTool invokes name and returns the decoded result data.
	CallTool(ctx context.Context, name string, args map[string]any) (any, error)
}

// ToolCallRecord tracks one tool invocation during a run.
type ToolCallRecord struct {
	ID           string
	Name         string
	RawArguments json.RawMessage
	Arguments    map[string]any
	Result       ToolCallResult
	Duration     time.Duration
	Panicked     bool
}

// Request is the input to one agent run.
type Request struct {
	Prompt string
}

// Response is the output of one agent run.
type Response struct {
	RunID string
	// Content is the last assistant message's content.
	Content string
	// Messages is the full conversation, system prompt first.
	Messages []provider.LLMMessage
	// Tools lists the discovered tool names in catalog order.
	Tools     []string
	ToolCalls []ToolCallRecord
	// Unanswered holds tool calls requested by the final turn that the
	// round limit prevented from running.
	Unanswered []provider.ToolCall
	Usage      provider.TokenUsage
	Turns      int
	StopReason StopReason
}
