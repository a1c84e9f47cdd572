package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/flemzord/mcplab/internal/agent"
	"github.com/flemzord/mcplab/internal/core"
	"github.com/flemzord/mcplab/internal/history"
	"github.com/flemzord/mcplab/internal/provider"
)

// AgentParams configures RunAgent.
type AgentParams struct {
	Prompt      string
	Credentials Credentials

	// JSON prints the whole run as JSON instead of the answer alone.
	JSON bool

	// Provider and Source replace the configured model backend and MCP
	// connection when set.
	Provider provider.Provider
	Source   agent.ToolSource
}

// RunAgent answers one prompt with the tool-calling loop, prints the
// result and records the run in history (in memory when no history module is
// configured).
func RunAgent(ctx context.Context, env *Env, params AgentParams) (agent.Response, error) {
	if params.Prompt == "" {
		return agent.Response{}, errors.New("app: prompt is required")
	}
	if err := env.LoadModules([]string{"provider", "history"}); err != nil {
		return agent.Response{}, err
	}

	model := params.Provider
	if model == nil {
		var err error
		if model, err = resolveProvider(env); err != nil {
			return agent.Response{}, err
		}
	}

	source := params.Source
	if source == nil {
		session, err := ConnectTools(ctx, env, params.Credentials)
		if err != nil {
			return agent.Response{}, err
		}
		defer func() { _ = session.Close() }()
		source = session
	}

	loop := agent.NewLoop(model, source, agent.LoopConfig{
		SystemPrompt: env.Config.Agent.SystemPrompt,
		ToolRounds:   env.Config.Agent.ToolRounds,
		Timeout:      env.Config.Agent.Timeout,
		Logger:       env.Logger,
	})

	started := time.Now()
	resp, runErr := loop.Run(ctx, agent.Request{Prompt: params.Prompt})
	env.Metrics.ObserveRun(string(resp.StopReason), resp.Turns)

	if resp.RunID != "" {
		saveRun(ctx, env, history.FromResponse(params.Prompt, model.ModelName(), started, resp, runErr))
	}
	if runErr != nil {
		return resp, runErr
	}

	if params.JSON {
		return resp, printJSON(env, runOutputFrom(resp))
	}
	_, err := fmt.Fprintln(env.Stdout, resp.Content)
	return resp, err
}

// resolveProvider returns the provider named by agent.provider, or the only
// loaded provider when none is named.
func resolveProvider(env *Env) (provider.Provider, error) {
	id := env.Config.Agent.Provider
	if id != "" {
		p, ok := core.ServiceAs[provider.Provider](env.AppCtx, id)
		if !ok {
			return nil, fmt.Errorf("%w: %s is not loaded", provider.ErrNoProvider, id)
		}
		return p, nil
	}

	var found []string
	for mid := range env.Config.Modules {
		if core.ModuleID(mid).Namespace() == "provider" {
			found = append(found, mid)
		}
	}
	if len(found) != 1 {
		return nil, fmt.Errorf("%w: set agent.provider (configured: %v)", provider.ErrNoProvider, found)
	}
	p, ok := core.ServiceAs[provider.Provider](env.AppCtx, found[0])
	if !ok {
		return nil, fmt.Errorf("%w: %s", provider.ErrNoProvider, found[0])
	}
	return p, nil
}

func saveRun(ctx context.Context, env *Env, run history.Run) {
	store, err := historyStore(env)
	if err != nil {
		env.Logger.Warn("run history unavailable", "run_id", run.ID, "error", err)
		return
	}
	// The run may have ended on cancellation; persist it regardless.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := store.SaveRun(ctx, run); err != nil {
		env.Logger.Warn("saving run history failed", "run_id", run.ID, "error", err)
	}
}

type runOutput struct {
	RunID      string              `json:"run_id"`
	Answer     string              `json:"answer"`
	StopReason string              `json:"stop_reason"`
	Turns      int                 `json:"turns"`
	Tools      []string            `json:"tools"`
	ToolCalls  []toolCallOutput    `json:"tool_calls"`
	Usage      provider.TokenUsage `json:"usage"`
}

type toolCallOutput struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments map[string]any  `json:"arguments"`
	Result    json.RawMessage `json:"result"`
}

func runOutputFrom(resp agent.Response) runOutput {
	out := runOutput{
		RunID:      resp.RunID,
		Answer:     resp.Content,
		StopReason: string(resp.StopReason),
		Turns:      resp.Turns,
		Tools:      resp.Tools,
		ToolCalls:  []toolCallOutput{},
		Usage:      resp.Usage,
	}
	for _, rec := range resp.ToolCalls {
		result, err := json.Marshal(rec.Result)
		if err != nil {
			result = nil
		}
		out.ToolCalls = append(out.ToolCalls, toolCallOutput{
			ID:        rec.ID,
			Name:      rec.Name,
			Arguments: rec.Arguments,
			Result:    result,
		})
	}
	return out
}

func printJSON(env *Env, v any) error {
	enc := json.NewEncoder(env.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
