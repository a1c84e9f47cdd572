// Package history records completed agent runs so they can be listed and
// replayed from the command line.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/flemzord/mcplab/internal/agent"
	"github.com/flemzord/mcplab/internal/provider"
)

// ServiceStore is the service key under which a Store is registered.
const ServiceStore = "history.store"

var (
	// ErrNotFound is returned when no run matches the requested ID.
	ErrNotFound = errors.New("history: run not found")
	// ErrAmbiguous is returned when an ID prefix matches more than one run.
	ErrAmbiguous = errors.New("history: ambiguous run id")
)

// Run is one persisted agent run.
type Run struct {
	ID         string              `json:"id"`
	Prompt     string              `json:"prompt"`
	Model      string              `json:"model"`
	Answer     string              `json:"answer"`
	StopReason string              `json:"stop_reason"`
	Error      string              `json:"error,omitempty"`
	Turns      int                 `json:"turns"`
	Usage      provider.TokenUsage `json:"usage"`
	StartedAt  time.Time           `json:"started_at"`
	Duration   time.Duration       `json:"duration"`
	ToolCalls  []ToolCall          `json:"tool_calls,omitempty"`
	// Messages is the full transcript. ListRuns leaves it empty.
	Messages []provider.LLMMessage `json:"messages,omitempty"`
}

// ToolCall summarizes one executed tool call.
type ToolCall struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Arguments string        `json:"arguments,omitempty"`
	OK        bool          `json:"ok"`
	Duration  time.Duration `json:"duration"`
}

// Store persists runs.
type Store interface {
	SaveRun(ctx context.Context, run Run) error
	// ListRuns returns up to limit runs, newest first, without transcripts.
	// A non-positive limit returns every run.
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	// GetRun returns the run whose ID equals or uniquely starts with id.
	GetRun(ctx context.Context, id string) (Run, error)
}

// FromResponse builds a Run from an agent response. runErr is the error the
// agent returned, if any.
func FromResponse(prompt, model string, startedAt time.Time, resp agent.Response, runErr error) Run {
	run := Run{
		ID:         resp.RunID,
		Prompt:     prompt,
		Model:      model,
		Answer:     resp.Content,
		StopReason: string(resp.StopReason),
		Turns:      resp.Turns,
		Usage:      resp.Usage,
		StartedAt:  startedAt.UTC(),
		Duration:   time.Since(startedAt),
		Messages:   resp.Messages,
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	for _, rec := range resp.ToolCalls {
		run.ToolCalls = append(run.ToolCalls, ToolCall{
			ID:        rec.ID,
			Name:      rec.Name,
			Arguments: string(rec.RawArguments),
			OK:        rec.Result.OK,
			Duration:  rec.Duration,
		})
	}
	return run
}
