package anthropic

import (
	"encoding/json"
	"log/slog"
	"strings"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/flemzord/mcplab/internal/provider"
	"github.com/tidwall/gjson"
)

// convertRequest transforms a CompletionRequest into Messages API parameters.
// Leading system messages move into the dedicated System field.
func convertRequest(req provider.CompletionRequest, cfg Config, logger *slog.Logger) sdkanthropic.MessageNewParams {
	system, messages := splitSystemMessages(req.Messages)

	params := sdkanthropic.MessageNewParams{
		Model:     sdkanthropic.Model(cfg.Model),
		Messages:  convertMessages(messages, logger),
		System:    system,
		MaxTokens: int64(cfg.MaxTokens),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = int64(req.MaxTokens)
	}

	temperature := cfg.Temperature
	if req.Temperature != nil {
		temperature = req.Temperature
	}
	if temperature != nil {
		params.Temperature = sdkanthropic.Float(*temperature)
	}

	if len(req.Tools) > 0 {
		params.Tools = convertTools(req.Tools)
	}
	return params
}

// splitSystemMessages extracts leading system messages and returns the rest.
// Empty system prompts are skipped since the API rejects empty text blocks.
func splitSystemMessages(msgs []provider.LLMMessage) ([]sdkanthropic.TextBlockParam, []provider.LLMMessage) {
	var system []sdkanthropic.TextBlockParam
	idx := 0
	for ; idx < len(msgs) && msgs[idx].Role == provider.MessageRoleSystem; idx++ {
		if msgs[idx].Content == "" {
			continue
		}
		system = append(system, sdkanthropic.TextBlockParam{Text: msgs[idx].Content})
	}
	return system, msgs[idx:]
}

// convertMessages transforms the conversation into Anthropic message params.
// Consecutive tool results are grouped into one user message, as the API
// requires every result for a turn in the same message.
func convertMessages(msgs []provider.LLMMessage, logger *slog.Logger) []sdkanthropic.MessageParam {
	var result []sdkanthropic.MessageParam

	for i := 0; i < len(msgs); {
		msg := msgs[i]

		switch msg.Role {
		case provider.MessageRoleTool:
			var blocks []sdkanthropic.ContentBlockParamUnion
			for ; i < len(msgs) && msgs[i].Role == provider.MessageRoleTool; i++ {
				blocks = append(blocks, sdkanthropic.NewToolResultBlock(
					msgs[i].ToolCallID,
					msgs[i].Content,
					isFailedResult(msgs[i].Content),
				))
			}
			result = append(result, sdkanthropic.NewUserMessage(blocks...))

		case provider.MessageRoleAssistant:
			result = append(result, convertAssistantMessage(msg))
			i++

		case provider.MessageRoleUser:
			result = append(result, sdkanthropic.NewUserMessage(sdkanthropic.NewTextBlock(msg.Content)))
			i++

		default:
			logger.Warn("dropping message the Messages API cannot carry", "role", msg.Role, "index", i)
			i++
		}
	}
	return result
}

// isFailedResult reports whether a tool message carries {"ok":false,...}.
func isFailedResult(content string) bool {
	ok := gjson.Get(content, "ok")
	return ok.Exists() && ok.Type == gjson.False
}

// convertAssistantMessage converts an assistant message, including any tool
// calls, into mixed text and tool_use blocks.
func convertAssistantMessage(msg provider.LLMMessage) sdkanthropic.MessageParam {
	var blocks []sdkanthropic.ContentBlockParamUnion

	if msg.Content != "" {
		blocks = append(blocks, sdkanthropic.NewTextBlock(msg.Content))
	}
	for _, tc := range msg.ToolCalls {
		blocks = append(blocks, sdkanthropic.NewToolUseBlock(tc.ID, toolInput(tc.Arguments), tc.Name))
	}
	return sdkanthropic.NewAssistantMessage(blocks...)
}

// toolInput returns arguments as a JSON object. Other providers may have
// recorded them as a string containing the object; anything that is not an
// object becomes {}.
func toolInput(raw json.RawMessage) json.RawMessage {
	v := gjson.ParseBytes(raw)
	if v.Type == gjson.String {
		v = gjson.Parse(v.String())
	}
	if !v.IsObject() {
		return json.RawMessage("{}")
	}
	return json.RawMessage(v.Raw)
}

// convertTools transforms tool definitions into Anthropic tool params.
func convertTools(tools []provider.ToolDefinition) []sdkanthropic.ToolUnionParam {
	result := make([]sdkanthropic.ToolUnionParam, len(tools))
	for i, t := range tools {
		tool := &sdkanthropic.ToolParam{
			Name:        t.Function.Name,
			InputSchema: convertInputSchema(t.Function.Parameters),
		}
		if t.Function.Description != "" {
			tool.Description = sdkanthropic.String(t.Function.Description)
		}
		result[i] = sdkanthropic.ToolUnionParam{OfTool: tool}
	}
	return result
}

// convertInputSchema converts a JSON Schema object into the SDK's input
// schema. Fields beyond properties and required are preserved as extras.
func convertInputSchema(raw json.RawMessage) sdkanthropic.ToolInputSchemaParam {
	var full map[string]any
	if err := json.Unmarshal(raw, &full); err != nil {
		return sdkanthropic.ToolInputSchemaParam{}
	}

	param := sdkanthropic.ToolInputSchemaParam{}
	if props, ok := full["properties"]; ok {
		param.Properties = props
		delete(full, "properties")
	}
	if req, ok := full["required"].([]any); ok {
		for _, v := range req {
			if s, ok := v.(string); ok {
				param.Required = append(param.Required, s)
			}
		}
	}
	delete(full, "required")
	// The SDK always sends type "object".
	delete(full, "type")

	if len(full) > 0 {
		param.ExtraFields = full
	}
	return param
}

// convertResponse transforms an Anthropic message into a CompletionResponse.
func convertResponse(msg *sdkanthropic.Message) provider.CompletionResponse {
	var (
		text      []string
		toolCalls []provider.ToolCall
	)
	for _, block := range msg.Content {
		switch v := block.AsAny().(type) {
		case sdkanthropic.TextBlock:
			text = append(text, v.Text)
		case sdkanthropic.ToolUseBlock:
			toolCalls = append(toolCalls, provider.ToolCall{
				ID:        v.ID,
				Name:      v.Name,
				Arguments: v.Input,
			})
		}
	}

	return provider.CompletionResponse{
		Content:      strings.Join(text, "\n"),
		ToolCalls:    toolCalls,
		FinishReason: convertStopReason(msg.StopReason),
		Usage: provider.TokenUsage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}
}

// convertStopReason maps an Anthropic stop reason to a FinishReason.
func convertStopReason(reason sdkanthropic.StopReason) provider.FinishReason {
	switch reason {
	case sdkanthropic.StopReasonMaxTokens:
		return provider.FinishReasonLength
	case sdkanthropic.StopReasonToolUse:
		return provider.FinishReasonToolUse
	case sdkanthropic.StopReasonRefusal:
		return provider.FinishReasonFiltering
	default:
		return provider.FinishReasonStop
	}
}
