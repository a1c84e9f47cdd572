package agent

import (
	"log/slog"
	"time"
)

// DefaultToolRounds keeps the loop to one tool batch followed by one
// follow-up turn.
const DefaultToolRounds = 1

// LoopConfig controls the behavior of the agent loop.
type LoopConfig struct {
	// SystemPrompt is the first message of every run.
	SystemPrompt string

	// ToolRounds is the number of tool-call batches a run may execute.
	ToolRounds int

	// Timeout bounds a whole run. Zero means no bound beyond the caller's context.
	Timeout time.Duration

	Logger *slog.Logger
}

// withDefaults returns a copy with zero fields replaced by defaults.
func (c LoopConfig) withDefaults() LoopConfig {
	if c.ToolRounds <= 0 {
		c.ToolRounds = DefaultToolRounds
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}
