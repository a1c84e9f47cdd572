// Package anthropic implements the provider.anthropic module, bridging the
// agent loop to the Anthropic Messages API with native tool use.
package anthropic

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/flemzord/mcplab/internal/core"
	"github.com/flemzord/mcplab/internal/provider"
	"github.com/flemzord/mcplab/internal/security"
	"gopkg.in/yaml.v3"
)

// ModuleID identifies the Anthropic provider module.
const ModuleID = "provider.anthropic"

func init() {
	core.RegisterModule(&Anthropic{})
}

// Interface guards.
var (
	_ core.Module       = (*Anthropic)(nil)
	_ core.Configurable = (*Anthropic)(nil)
	_ core.Provisioner  = (*Anthropic)(nil)
	_ core.Validator    = (*Anthropic)(nil)
	_ provider.Provider = (*Anthropic)(nil)
)

// Anthropic is the provider.anthropic module.
type Anthropic struct {
	config Config
	client *sdkanthropic.Client
	logger *slog.Logger
}

// ModuleInfo implements core.Module.
func (a *Anthropic) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  ModuleID,
		New: func() core.Module { return &Anthropic{} },
	}
}

// Configure implements core.Configurable.
func (a *Anthropic) Configure(node *yaml.Node) error {
	if err := node.Decode(&a.config); err != nil {
		return err
	}
	a.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (a *Anthropic) Provision(ctx *core.AppContext) error {
	a.config.defaults()
	a.logger = ctx.Logger

	if a.config.APIKey == "" {
		a.config.APIKey = os.Getenv(a.config.APIKeyEnv)
	}
	if redactor, ok := core.ServiceAs[*security.Redactor](ctx, security.ServiceRedactor); ok {
		redactor.AddLiteral(a.config.APIKey)
	}

	a.client = newClient(a.config, &http.Client{Timeout: a.config.Timeout})
	ctx.RegisterService(ModuleID, a)
	return nil
}

// Validate implements core.Validator.
func (a *Anthropic) Validate() error {
	return a.config.validate()
}

// ModelName implements provider.Provider.
func (a *Anthropic) ModelName() string {
	return a.config.Model
}

// Complete implements provider.Provider. System messages become the
// request's system blocks and consecutive tool results are grouped into a
// single user turn.
func (a *Anthropic) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error) {
	msg, err := a.client.Messages.New(ctx, convertRequest(req, a.config, a.logger))
	if err != nil {
		return provider.CompletionResponse{}, mapError(err)
	}

	resp := convertResponse(msg)
	a.logger.Debug("anthropic completion",
		"model", a.config.Model,
		"stop_reason", msg.StopReason,
		"tool_calls", len(resp.ToolCalls),
		"total_tokens", resp.Usage.TotalTokens,
	)
	return resp, nil
}

// newClient builds an SDK client that never retries on its own: the agent
// run decides what a failed turn means.
func newClient(cfg Config, httpClient *http.Client) *sdkanthropic.Client {
	opts := []option.RequestOption{
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := sdkanthropic.NewClient(opts...)
	return &client
}
