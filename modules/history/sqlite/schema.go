package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaVersion = 1

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id                TEXT    PRIMARY KEY,
		prompt            TEXT    NOT NULL,
		model             TEXT    NOT NULL DEFAULT '',
		answer            TEXT    NOT NULL DEFAULT '',
		stop_reason       TEXT    NOT NULL DEFAULT '',
		error             TEXT    NOT NULL DEFAULT '',
		turns             INTEGER NOT NULL DEFAULT 0,
		prompt_tokens     INTEGER NOT NULL DEFAULT 0,
		completion_tokens INTEGER NOT NULL DEFAULT 0,
		total_tokens      INTEGER NOT NULL DEFAULT 0,
		tool_calls        TEXT    NOT NULL DEFAULT '[]',
		started_at        TEXT    NOT NULL,
		duration_ms       INTEGER NOT NULL DEFAULT 0
	)`,

	`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,

	`CREATE TABLE IF NOT EXISTS run_messages (
		run_id       TEXT    NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		seq          INTEGER NOT NULL,
		role         TEXT    NOT NULL,
		content      TEXT    NOT NULL DEFAULT '',
		name         TEXT    NOT NULL DEFAULT '',
		tool_call_id TEXT    NOT NULL DEFAULT '',
		tool_calls   TEXT    NOT NULL DEFAULT '[]',
		PRIMARY KEY (run_id, seq)
	)`,
}

// migrate brings the schema up to schemaVersion. Statements are idempotent.
func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("sqlite: create schema_version: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("sqlite: read schema version: %w", err)
	}

	if current >= schemaVersion {
		return nil
	}

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: migrate: %w\nstatement: %s", err, stmt)
		}
	}

	if _, err := db.ExecContext(ctx, "INSERT OR REPLACE INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("sqlite: record schema version: %w", err)
	}

	return nil
}
