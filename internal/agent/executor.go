package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/flemzord/mcplab/internal/provider"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ToolExecutor runs tool calls against a ToolSource, one at a time and in
// request order. Failures are captured into the returned records.
type ToolExecutor struct {
	source ToolSource
	logger *slog.Logger
}

// NewToolExecutor creates a ToolExecutor for source.
func NewToolExecutor(source ToolSource, logger *slog.Logger) *ToolExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ToolExecutor{source: source, logger: logger}
}

// Execute runs every call sequentially and returns one record per call,
// in input order.
func (e *ToolExecutor) Execute(ctx context.Context, calls []provider.ToolCall) []ToolCallRecord {
	records := make([]ToolCallRecord, 0, len(calls))
	for _, tc := range calls {
		records = append(records, e.executeSingle(ctx, tc))
	}
	return records
}

func (e *ToolExecutor) executeSingle(ctx context.Context, tc provider.ToolCall) (record ToolCallRecord) {
	ctx, span := tracer.Start(ctx, "agent.tool_call")
	defer span.End()
	span.SetAttributes(attribute.String("tool.name", tc.Name), attribute.String("tool.call_id", tc.ID))

	record.ID = tc.ID
	record.Name = tc.Name
	record.RawArguments = tc.Arguments

	args, err := parseArguments(tc.Arguments)
	if err != nil {
		e.logger.Warn("tool arguments ignored", "tool", tc.Name, "call_id", tc.ID, "error", err)
	}
	record.Arguments = args

	start := time.Now()
	defer func() {
		record.Duration = time.Since(start)
		if r := recover(); r != nil {
			record.Panicked = true
			record.Result = Failed(tc.Name, fmt.Errorf("panic: %v", r))
		}
		if !record.Result.OK {
			span.SetStatus(codes.Error, record.Result.Error)
		}
	}()

	e.logger.Info("calling tool", "tool", tc.Name, "arguments", args)

	data, err := e.source.CallTool(ctx, tc.Name, args)
	if err != nil {
		execErr := &ToolExecutionError{Tool: tc.Name, Err: err}
		e.logger.Warn("tool call failed", "tool", tc.Name, "error", execErr)
		record.Result = Failed(tc.Name, execErr)
		return record
	}

	record.Result = Succeeded(tc.Name, data)
	return record
}

// parseArguments decodes raw tool-call arguments into an object. Backends
// send either a JSON string holding the object or the object itself. Empty
// and null arguments mean no arguments. Anything else yields an empty map
// and ErrArgumentParse.
func parseArguments(raw json.RawMessage) (map[string]any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return map[string]any{}, nil
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return map[string]any{}, fmt.Errorf("%w: %w", ErrArgumentParse, err)
	}

	if s, ok := v.(string); ok {
		if len(bytes.TrimSpace([]byte(s))) == 0 {
			return map[string]any{}, nil
		}
		v = nil
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return map[string]any{}, fmt.Errorf("%w: %w", ErrArgumentParse, err)
		}
	}

	switch args := v.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return args, nil
	default:
		return map[string]any{}, fmt.Errorf("%w: expected an object, got %T", ErrArgumentParse, v)
	}
}
