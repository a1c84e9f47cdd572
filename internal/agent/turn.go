package agent

import (
	"context"
	"fmt"
	"slices"

	"github.com/flemzord/mcplab/internal/provider"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/flemzord/mcplab/internal/agent")

// Turn is the outcome of one model call.
type Turn struct {
	// Message is the assistant message to append, tool calls included.
	Message      provider.LLMMessage
	FinishReason provider.FinishReason
	Usage        provider.TokenUsage
}

// TurnExecutor issues one chat completion per turn.
type TurnExecutor struct {
	provider provider.Provider
}

// NewTurnExecutor creates a TurnExecutor backed by p.
func NewTurnExecutor(p provider.Provider) *TurnExecutor {
	return &TurnExecutor{provider: p}
}

type turnResult struct {
	resp provider.CompletionResponse
	err  error
}

// Execute sends history and tools to the model and waits for the reply.
// The provider call runs on its own goroutine so a cancelled ctx returns
// immediately; the call is never retried. Tool calls without an ID are
// given one so that tool results can reference them.
func (e *TurnExecutor) Execute(ctx context.Context, history []provider.LLMMessage, tools []provider.ToolDefinition) (Turn, error) {
	ctx, span := tracer.Start(ctx, "agent.turn")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", e.provider.ModelName()),
		attribute.Int("llm.messages", len(history)),
		attribute.Int("llm.tools", len(tools)),
	)

	req := provider.CompletionRequest{
		Messages: slices.Clone(history),
		Tools:    tools,
	}

	done := make(chan turnResult, 1)
	go func() {
		resp, err := e.provider.Complete(ctx, req)
		done <- turnResult{resp: resp, err: err}
	}()

	var res turnResult
	select {
	case res = <-done:
	case <-ctx.Done():
		res.err = ctx.Err()
	}
	if res.err != nil {
		span.RecordError(res.err)
		span.SetStatus(codes.Error, "chat turn failed")
		return Turn{}, fmt.Errorf("%w: chat turn: %w", ErrTransport, res.err)
	}

	calls := slices.Clone(res.resp.ToolCalls)
	for i := range calls {
		if calls[i].ID == "" {
			calls[i].ID = "call_" + uuid.NewString()
		}
	}
	span.SetAttributes(attribute.Int("llm.tool_calls", len(calls)))

	return Turn{
		Message: provider.LLMMessage{
			Role:      provider.MessageRoleAssistant,
			Content:   res.resp.Content,
			ToolCalls: calls,
		},
		FinishReason: res.resp.FinishReason,
		Usage:        res.resp.Usage,
	}, nil
}
