package openai

import (
	"encoding/json"

	"github.com/flemzord/mcplab/internal/provider"
	goopenai "github.com/sashabaranov/go-openai"
)

// buildRequest converts a provider.CompletionRequest into a go-openai request.
// The config max_tokens and temperature apply when the request leaves them unset.
func buildRequest(cfg Config, req provider.CompletionRequest) goopenai.ChatCompletionRequest {
	out := goopenai.ChatCompletionRequest{
		Model:     cfg.Model,
		Messages:  make([]goopenai.ChatCompletionMessage, len(req.Messages)),
		MaxTokens: req.MaxTokens,
	}
	if out.MaxTokens == 0 {
		out.MaxTokens = cfg.MaxTokens
	}

	temp := req.Temperature
	if temp == nil {
		temp = cfg.Temperature
	}
	if temp != nil {
		out.Temperature = float32(*temp)
	}

	for i, m := range req.Messages {
		msg := goopenai.ChatCompletionMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			args := string(tc.Arguments)
			if args == "" {
				args = "{}"
			}
			msg.ToolCalls = append(msg.ToolCalls, goopenai.ToolCall{
				ID:   tc.ID,
				Type: goopenai.ToolTypeFunction,
				Function: goopenai.FunctionCall{
					Name:      tc.Name,
					Arguments: args,
				},
			})
		}
		out.Messages[i] = msg
	}

	for _, t := range req.Tools {
		def := &goopenai.FunctionDefinition{
			Name:        t.Function.Name,
			Description: t.Function.Description,
		}
		if len(t.Function.Parameters) > 0 {
			def.Parameters = t.Function.Parameters
		}
		out.Tools = append(out.Tools, goopenai.Tool{
			Type:     goopenai.ToolTypeFunction,
			Function: def,
		})
	}

	return out
}

// parseResponse converts the first choice into a provider.CompletionResponse.
func parseResponse(resp goopenai.ChatCompletionResponse) provider.CompletionResponse {
	cr := provider.CompletionResponse{
		Usage: provider.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	if len(resp.Choices) == 0 {
		return cr
	}

	choice := resp.Choices[0]
	cr.Content = choice.Message.Content
	cr.FinishReason = mapFinishReason(choice.FinishReason)

	for _, tc := range choice.Message.ToolCalls {
		cr.ToolCalls = append(cr.ToolCalls, provider.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}
	return cr
}

// mapFinishReason converts an OpenAI finish_reason to a provider.FinishReason.
// Unknown values pass through.
func mapFinishReason(reason goopenai.FinishReason) provider.FinishReason {
	switch reason {
	case goopenai.FinishReasonStop:
		return provider.FinishReasonStop
	case goopenai.FinishReasonLength:
		return provider.FinishReasonLength
	case goopenai.FinishReasonToolCalls, goopenai.FinishReasonFunctionCall:
		return provider.FinishReasonToolUse
	case goopenai.FinishReasonContentFilter:
		return provider.FinishReasonFiltering
	default:
		return provider.FinishReason(reason)
	}
}
