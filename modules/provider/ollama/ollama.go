// Package ollama provides the provider.ollama module, a client for Ollama's
// native chat endpoint with tool calling.
package ollama

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/flemzord/mcplab/internal/core"
	"github.com/flemzord/mcplab/internal/provider"
	ollamaapi "github.com/ollama/ollama/api"
	"gopkg.in/yaml.v3"
)

// ModuleID identifies the Ollama provider module.
const ModuleID = "provider.ollama"

func init() {
	core.RegisterModule(&Provider{})
}

// Provider talks to a local or remote Ollama server.
type Provider struct {
	config Config
	client *ollamaapi.Client
	logger *slog.Logger
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

	client, err := newClient(p.config)
	if err != nil {
		return err
	}
	p.client = client

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

// Complete implements provider.Provider. Streaming is disabled so one call
// yields one complete assistant message.
func (p *Provider) Complete(ctx context.Context, req provider.CompletionRequest) (provider.CompletionResponse, error) {
	var result chatResult
	err := p.client.Chat(ctx, buildRequest(p.config, req, p.logger), func(chunk ollamaapi.ChatResponse) error {
		result.add(chunk)
		return nil
	})
	if err != nil {
		return provider.CompletionResponse{}, mapError(ctx, err)
	}
	if !result.done {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return provider.CompletionResponse{}, ctxErr
		}
		return provider.CompletionResponse{}, fmt.Errorf("%w: ollama: response ended before completion", provider.ErrProviderDown)
	}

	out := result.response()
	p.logger.Debug("ollama chat",
		"model", result.model,
		"done_reason", result.doneReason,
		"tool_calls", len(out.ToolCalls),
		"thinking_chars", result.thinking,
	)
	return out, nil
}

// newClient builds the Ollama API client for cfg. Configured headers are
// set on every request.
func newClient(cfg Config) (*ollamaapi.Client, error) {
	base, err := cfg.baseURL()
	if err != nil {
		return nil, err
	}
	httpClient := &http.Client{Timeout: cfg.Timeout}
	if len(cfg.Headers) > 0 {
		httpClient.Transport = &headerTransport{headers: cfg.Headers, base: http.DefaultTransport}
	}
	return ollamaapi.NewClient(base, httpClient), nil
}

// headerTransport adds fixed headers to outgoing requests.
type headerTransport struct {
	headers map[string]string
	base    http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.base.RoundTrip(req)
}

// Compile-time interface assertions.
var (
	_ core.Module       = (*Provider)(nil)
	_ core.Configurable = (*Provider)(nil)
	_ core.Provisioner  = (*Provider)(nil)
	_ core.Validator    = (*Provider)(nil)
	_ provider.Provider = (*Provider)(nil)
)
