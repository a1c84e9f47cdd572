// Package openai implements the provider.openai module on top of
// github.com/sashabaranov/go-openai. It speaks the Chat Completions API with
// function calling against OpenAI or any compatible server.
package openai

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/flemzord/mcplab/internal/core"
	"github.com/flemzord/mcplab/internal/provider"
	goopenai "github.com/sashabaranov/go-openai"
	"gopkg.in/yaml.v3"
)

// ModuleID identifies the OpenAI-compatible provider module.
const ModuleID = "provider.openai"

func init() {
	core.RegisterModule(&Provider{})
}

// Compile-time interface guards.
var (
	_ provider.Provider = (*Provider)(nil)
	_ core.Module       = (*Provider)(nil)
	_ core.Configurable = (*Provider)(nil)
	_ core.Provisioner  = (*Provider)(nil)
	_ core.Validator    = (*Provider)(nil)
)

// Provider implements provider.Provider over Chat Completions.
type Provider struct {
	config Config
	logger *slog.Logger
	client *goopenai.Client
}

// ModuleInfo implements core.Module.
func (p *Provider) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  ModuleID,
		New: func() core.Module { return &Provider{} },
	}
}

// Configure implements core.Configurable.
func (p *Provider) Configure(node *yaml.Node) error {
	if err := node.Decode(&p.config); err != nil {
		return err
	}
	p.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (p *Provider) Provision(ctx *core.AppContext) error {
	p.config.defaults()
	p.logger = ctx.Logger
	p.client = newClient(p.config, &http.Client{Timeout: p.config.parsedTimeout()})

	ctx.RegisterService(ModuleID, p)
	return nil
}

// Validate implements core.Validator.
func (p *Provider) Validate() error {
	return p.config.validate()
}

// ModelName implements provider.Provider.
func (p *Provider) ModelName() string {
	return p.config.Model
}

// Complete implements provider.Provider.
func (p *Provider) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error) {
	resp, err := p.client.CreateChatCompletion(ctx, buildRequest(p.config, req))
	if err != nil {
		return provider.CompletionResponse{}, mapError(err)
	}
	if p.logger != nil {
		p.logger.Debug("chat completion",
			"model", p.config.Model,
			"tool_calls", toolCallCount(resp),
			"total_tokens", resp.Usage.TotalTokens,
		)
	}
	return parseResponse(resp), nil
}

func newClient(cfg Config, httpClient *http.Client) *goopenai.Client {
	oc := goopenai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = cfg.BaseURL
	oc.OrgID = cfg.OrgID
	oc.HTTPClient = httpClient
	return goopenai.NewClientWithConfig(oc)
}

func toolCallCount(resp goopenai.ChatCompletionResponse) int {
	if len(resp.Choices) == 0 {
		return 0
	}
	return len(resp.Choices[0].Message.ToolCalls)
}
