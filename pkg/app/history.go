package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/flemzord/mcplab/internal/core"
	"github.com/flemzord/mcplab/internal/history"
	"github.com/flemzord/mcplab/internal/provider"
)

// historyStore returns the configured run store. Without a history module,
// runs are kept in an in-memory store for the life of the Env.
func historyStore(env *Env) (history.Store, error) {
	if err := env.LoadModules([]string{"history"}); err != nil {
		return nil, err
	}
	if store, ok := core.ServiceAs[history.Store](env.AppCtx, history.ServiceStore); ok {
		return store, nil
	}
	env.Logger.Debug("no history module configured, keeping runs in memory")
	store := history.NewInMemoryStore()
	env.AppCtx.RegisterService(history.ServiceStore, history.Store(store))
	return store, nil
}

// ListHistory prints the most recent runs, newest first.
func ListHistory(ctx context.Context, env *Env, limit int) error {
	store, err := historyStore(env)
	if err != nil {
		return err
	}
	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		msg := "No runs recorded."
		if _, inMemory := store.(*history.InMemoryStore); inMemory {
			msg = "No runs recorded. Configure modules.history.sqlite to keep runs across invocations."
		}
		_, err := fmt.Fprintln(env.Stdout, msg)
		return err
	}

	tw := tabwriter.NewWriter(env.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tMODEL\tSTOP\tTURNS\tTOOLS\tPROMPT")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			shortID(r.ID),
			r.StartedAt.Local().Format(time.DateTime),
			r.Model,
			r.StopReason,
			r.Turns,
			len(r.ToolCalls),
			truncate(r.Prompt, 48),
		)
	}
	return tw.Flush()
}

// ShowHistory prints one run and its transcript. id may be a unique prefix.
func ShowHistory(ctx context.Context, env *Env, id string, asJSON bool) error {
	store, err := historyStore(env)
	if err != nil {
		return err
	}
	run, err := store.GetRun(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: %s", err, id)
	}
	if asJSON {
		return printJSON(env, run)
	}

	w := env.Stdout
	fmt.Fprintf(w, "Run %s\n", run.ID)
	fmt.Fprintf(w, "  started:  %s (%s)\n", run.StartedAt.Local().Format(time.RFC3339), run.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  model:    %s\n", run.Model)
	fmt.Fprintf(w, "  stop:     %s after %d turns\n", run.StopReason, run.Turns)
	if run.Error != "" {
		fmt.Fprintf(w, "  error:    %s\n", run.Error)
	}
	fmt.Fprintf(w, "  tokens:   %d\n\n", run.Usage.TotalTokens)

	for _, msg := range run.Messages {
		printMessage(w, msg)
	}
	return nil
}

func printMessage(w io.Writer, msg provider.LLMMessage) {
	switch {
	case msg.Role == provider.MessageRoleTool:
		fmt.Fprintf(w, "[tool %s %s] %s\n", msg.Name, msg.ToolCallID, msg.Content)
	case len(msg.ToolCalls) > 0:
		if msg.Content != "" {
			fmt.Fprintf(w, "[%s] %s\n", msg.Role, msg.Content)
		}
		for _, tc := range msg.ToolCalls {
			fmt.Fprintf(w, "[%s -> %s %s] %s\n", msg.Role, tc.Name, tc.ID, tc.Arguments)
		}
	default:
		fmt.Fprintf(w, "[%s] %s\n", msg.Role, msg.Content)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
