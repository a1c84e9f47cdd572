package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/flemzord/mcplab/internal/history"
	"github.com/flemzord/mcplab/internal/provider"
)

// timeLayout has a fixed width so started_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store implements history.Store on SQLite.
type Store struct {
	db     *sql.DB
	retain int
}

var _ history.Store = (*Store)(nil)

// SaveRun writes run and its transcript in one transaction, replacing any
// earlier run with the same ID.
func (s *Store) SaveRun(ctx context.Context, run history.Run) error {
	if run.ID == "" {
		return errors.New("sqlite: run id is required")
	}

	calls, err := json.Marshal(run.ToolCalls)
	if err != nil {
		return fmt.Errorf("sqlite: marshal tool calls: %w", err)
	}
	if run.ToolCalls == nil {
		calls = []byte("[]")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, run.ID); err != nil {
		return fmt.Errorf("sqlite: replace run: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, prompt, model, answer, stop_reason, error, turns,
		                  prompt_tokens, completion_tokens, total_tokens,
		                  tool_calls, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Prompt, run.Model, run.Answer, run.StopReason, run.Error, run.Turns,
		run.Usage.PromptTokens, run.Usage.CompletionTokens, run.Usage.TotalTokens,
		string(calls), run.StartedAt.UTC().Format(timeLayout), run.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert run: %w", err)
	}

	for i, msg := range run.Messages {
		toolCalls := []byte("[]")
		if len(msg.ToolCalls) > 0 {
			if toolCalls, err = json.Marshal(msg.ToolCalls); err != nil {
				return fmt.Errorf("sqlite: marshal message tool_calls: %w", err)
			}
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_messages (run_id, seq, role, content, name, tool_call_id, tool_calls)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i+1, string(msg.Role), msg.Content, msg.Name, msg.ToolCallID, string(toolCalls),
		)
		if err != nil {
			return fmt.Errorf("sqlite: insert message %d: %w", i+1, err)
		}
	}

	if s.retain > 0 {
		_, err = tx.ExecContext(ctx, `
			DELETE FROM runs WHERE id NOT IN (
				SELECT id FROM runs ORDER BY started_at DESC LIMIT ?
			)`, s.retain)
		if err != nil {
			return fmt.Errorf("sqlite: prune runs: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

const runColumns = `id, prompt, model, answer, stop_reason, error, turns,
	prompt_tokens, completion_tokens, total_tokens, tool_calls, started_at, duration_ms`

// ListRuns returns runs newest first, without transcripts.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]history.Run, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []history.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list runs rows: %w", err)
	}
	return runs, nil
}

// GetRun resolves id as an exact match or a unique prefix and loads the
// transcript.
func (s *Store) GetRun(ctx context.Context, id string) (history.Run, error) {
	if id == "" {
		return history.Run{}, history.ErrNotFound
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ? OR substr(id, 1, ?) = ? ORDER BY id = ? DESC LIMIT 2`,
		id, len(id), id, id)
	if err != nil {
		return history.Run{}, fmt.Errorf("sqlite: get run: %w", err)
	}

	var matches []history.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			_ = rows.Close()
			return history.Run{}, err
		}
		matches = append(matches, run)
	}
	err = rows.Err()
	_ = rows.Close()
	if err != nil {
		return history.Run{}, fmt.Errorf("sqlite: get run rows: %w", err)
	}

	switch {
	case len(matches) == 0:
		return history.Run{}, history.ErrNotFound
	case len(matches) > 1 && matches[0].ID != id:
		return history.Run{}, history.ErrAmbiguous
	}

	run := matches[0]
	run.Messages, err = s.messages(ctx, run.ID)
	if err != nil {
		return history.Run{}, err
	}
	return run, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) messages(ctx context.Context, runID string) ([]provider.LLMMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content, name, tool_call_id, tool_calls
		FROM run_messages
		WHERE run_id = ?
		ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: load transcript: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var msgs []provider.LLMMessage
	for rows.Next() {
		var (
			msg       provider.LLMMessage
			role      string
			toolCalls string
		)
		if err := rows.Scan(&role, &msg.Content, &msg.Name, &msg.ToolCallID, &toolCalls); err != nil {
			return nil, fmt.Errorf("sqlite: scan message: %w", err)
		}
		msg.Role = provider.MessageRole(role)
		if toolCalls != "" && toolCalls != "[]" {
			if err := json.Unmarshal([]byte(toolCalls), &msg.ToolCalls); err != nil {
				return nil, fmt.Errorf("sqlite: unmarshal message tool_calls: %w", err)
			}
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: transcript rows: %w", err)
	}
	return msgs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (history.Run, error) {
	var (
		run        history.Run
		calls      string
		startedAt  string
		durationMS int64
	)
	err := row.Scan(
		&run.ID, &run.Prompt, &run.Model, &run.Answer, &run.StopReason, &run.Error, &run.Turns,
		&run.Usage.PromptTokens, &run.Usage.CompletionTokens, &run.Usage.TotalTokens,
		&calls, &startedAt, &durationMS,
	)
	if err != nil {
		return history.Run{}, fmt.Errorf("sqlite: scan run: %w", err)
	}

	if calls != "" && calls != "[]" {
		if err := json.Unmarshal([]byte(calls), &run.ToolCalls); err != nil {
			return history.Run{}, fmt.Errorf("sqlite: unmarshal tool calls: %w", err)
		}
	}
	if run.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
		return history.Run{}, fmt.Errorf("sqlite: parse started_at: %w", err)
	}
	run.Duration = time.Duration(durationMS) * time.Millisecond
	return run, nil
}
