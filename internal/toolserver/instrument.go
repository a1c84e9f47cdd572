package toolserver

import (
	"context"
	"time"

	"github.com/flemzord/mcplab/internal/security"
	"github.com/flemzord/mcplab/internal/telemetry"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/flemzord/mcplab/internal/toolserver")

// addTool registers h under tool and wraps it with tracing, metrics and
// the tool_call audit event.
func addTool[In, Out any](t *tools, s *mcp.Server, tool *mcp.Tool, h mcp.ToolHandlerFor[In, Out]) {
	name := tool.Name
	mcp.AddTool(s, tool, func(ctx context.Context, req *mcp.CallToolRequest, in In) (*mcp.CallToolResult, Out, error) {
		ctx, span := tracer.Start(ctx, "toolserver.call")
		defer span.End()
		span.SetAttributes(attribute.String("tool.name", name))

		start := time.Now()
		res, out, err := h(ctx, req, in)
		elapsed := time.Since(start)

		outcome := telemetry.OutcomeOK
		detail := ""
		if err != nil {
			outcome = telemetry.OutcomeError
			detail = err.Error()
			span.RecordError(err)
			span.SetStatus(codes.Error, "tool failed")
		}
		t.metrics.ObserveToolCall(name, outcome, elapsed)
		t.audit.Log(security.AuditEvent{
			Type:   security.EventToolCall,
			Tool:   name,
			Detail: detail,
			Metadata: map[string]string{
				"outcome":  outcome,
				"duration": elapsed.String(),
			},
		})
		t.logger.Debug("tool served", "tool", name, "outcome", outcome, "duration", elapsed)
		return res, out, err
	})
}

// authorization returns the inbound Authorization header, or "" when the
// transport carries no HTTP headers (stdio, in-memory).
func authorization(req *mcp.CallToolRequest) string {
	if req == nil || req.Extra == nil || req.Extra.Header == nil {
		return ""
	}
	return req.Extra.Header.Get("Authorization")
}
