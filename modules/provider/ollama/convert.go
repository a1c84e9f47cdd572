package ollama

import (
	"bytes"
	"encoding/json"
	"log/slog"

	"github.com/flemzord/mcplab/internal/provider"
	ollamaapi "github.com/ollama/ollama/api"
	"github.com/tidwall/gjson"
)

// buildRequest converts a provider.CompletionRequest into a non-streaming
// Ollama chat request.
func buildRequest(cfg Config, req provider.CompletionRequest, logger *slog.Logger) *ollamaapi.ChatRequest {
	stream := false
	out := &ollamaapi.ChatRequest{
		Model:    cfg.Model,
		Messages: convertMessages(req.Messages),
		Stream:   &stream,
	}
	if cfg.KeepAlive != nil {
		out.KeepAlive = &ollamaapi.Duration{Duration: *cfg.KeepAlive}
	}
	if cfg.Think != nil {
		out.Think = &ollamaapi.ThinkValue{Value: *cfg.Think}
	}

	options := map[string]any{}
	if t := req.Temperature; t != nil {
		options["temperature"] = *t
	} else if cfg.Temperature != nil {
		options["temperature"] = *cfg.Temperature
	}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	} else if cfg.NumPredict > 0 {
		options["num_predict"] = cfg.NumPredict
	}
	if len(options) > 0 {
		out.Options = options
	}

	for _, t := range req.Tools {
		out.Tools = append(out.Tools, convertTool(t, logger))
	}
	return out
}

// convertMessages maps the conversation onto Ollama messages. Tool results
// carry the tool name and the id of the call they answer.
func convertMessages(msgs []provider.LLMMessage) []ollamaapi.Message {
	out := make([]ollamaapi.Message, len(msgs))
	for i, m := range msgs {
		msg := ollamaapi.Message{Role: string(m.Role), Content: m.Content}
		if m.Role == provider.MessageRoleTool {
			msg.ToolName = m.Name
			msg.ToolCallID = m.ToolCallID
		}
		for idx, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, ollamaapi.ToolCall{
				ID: tc.ID,
				Function: ollamaapi.ToolCallFunction{
					Index:     idx,
					Name:      tc.Name,
					Arguments: toolArguments(tc.Arguments),
				},
			})
		}
		out[i] = msg
	}
	return out
}

// toolArguments decodes recorded arguments into Ollama's ordered argument
// map. Ollama rejects non-object arguments in the replayed history, so
// anything else becomes an empty map.
func toolArguments(raw json.RawMessage) ollamaapi.ToolCallFunctionArguments {
	args := ollamaapi.NewToolCallFunctionArguments()
	if err := json.Unmarshal(objectArguments(raw), &args); err != nil {
		return ollamaapi.NewToolCallFunctionArguments()
	}
	return args
}

var emptyObject = json.RawMessage(`{}`)

// objectArguments returns raw when it is a JSON object, the decoded object
// when raw is a JSON string holding one, and {} otherwise.
func objectArguments(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return emptyObject
	}
	res := gjson.ParseBytes(trimmed)
	switch {
	case res.IsObject():
		return trimmed
	case res.Type == gjson.String && gjson.Valid(res.Str) && gjson.Parse(res.Str).IsObject():
		return json.RawMessage(res.Str)
	default:
		return emptyObject
	}
}

// convertTool maps a function definition onto an Ollama tool. The JSON
// Schema decodes directly into the tool's parameters; a schema Ollama's
// types cannot hold falls back to an empty object schema.
func convertTool(def provider.ToolDefinition, logger *slog.Logger) ollamaapi.Tool {
	var params ollamaapi.ToolFunctionParameters
	if len(def.Function.Parameters) > 0 {
		if err := json.Unmarshal(def.Function.Parameters, &params); err != nil {
			logger.Warn("tool schema not representable, sending an empty object schema",
				"tool", def.Function.Name, "error", err)
			params = ollamaapi.ToolFunctionParameters{}
		}
	}
	if params.Type == "" {
		params.Type = "object"
	}
	if params.Properties == nil {
		params.Properties = ollamaapi.NewToolPropertiesMap()
	}

	return ollamaapi.Tool{
		Type: "function",
		Function: ollamaapi.ToolFunction{
			Name:        def.Function.Name,
			Description: def.Function.Description,
			Parameters:  params,
		},
	}
}

// chatResult accumulates the chunks of one chat call. With streaming off
// the server sends a single chunk, but chunked replies are folded the same
// way.
type chatResult struct {
	model      string
	content    string
	thinking   int
	toolCalls  []ollamaapi.ToolCall
	doneReason string
	metrics    ollamaapi.Metrics
	done       bool
}

func (r *chatResult) add(chunk ollamaapi.ChatResponse) {
	r.model = chunk.Model
	r.content += chunk.Message.Content
	r.thinking += len(chunk.Message.Thinking)
	r.toolCalls = append(r.toolCalls, chunk.Message.ToolCalls...)
	if chunk.Done {
		r.done = true
		r.doneReason = chunk.DoneReason
		r.metrics = chunk.Metrics
	}
}

// response converts the accumulated reply. Older servers omit tool call
// ids; the agent assigns them.
func (r *chatResult) response() provider.CompletionResponse {
	out := provider.CompletionResponse{
		Content:      r.content,
		FinishReason: mapDoneReason(r.doneReason),
		Usage: provider.TokenUsage{
			PromptTokens:     r.metrics.PromptEvalCount,
			CompletionTokens: r.metrics.EvalCount,
			TotalTokens:      r.metrics.PromptEvalCount + r.metrics.EvalCount,
		},
	}
	for _, tc := range r.toolCalls {
		args, err := json.Marshal(tc.Function.Arguments)
		if err != nil {
			args = emptyObject
		}
		out.ToolCalls = append(out.ToolCalls, provider.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}
	if len(out.ToolCalls) > 0 {
		out.FinishReason = provider.FinishReasonToolUse
	}
	return out
}

func mapDoneReason(reason string) provider.FinishReason {
	switch reason {
	case "", "stop":
		return provider.FinishReasonStop
	case "length":
		return provider.FinishReasonLength
	default:
		return provider.FinishReason(reason)
	}
}
