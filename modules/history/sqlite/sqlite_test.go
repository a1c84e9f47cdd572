package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/flemzord/mcplab/internal/core"
	"github.com/flemzord/mcplab/internal/history"
	"github.com/flemzord/mcplab/internal/provider"
	"gopkg.in/yaml.v3"
)

func newTestModule(t *testing.T, cfg Config) (*Module, *core.AppContext) {
	t.Helper()

	dir := t.TempDir()
	m := &Module{config: cfg}
	m.config.defaults()
	if m.config.Path == "" {
		m.config.Path = filepath.Join(dir, "test.db")
	}

	ctx := core.NewAppContext(slog.New(slog.NewTextHandler(io.Discard, nil)), dir)
	if err := m.Provision(ctx); err != nil {
		t.Fatalf("provision: %v", err)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	t.Cleanup(func() { _ = m.Stop(context.Background()) })
	return m, ctx
}

func sampleRun(id string, started time.Time) history.Run {
	return history.Run{
		ID:         id,
		Prompt:     "add 2 and 3",
		Model:      "llama3.1",
		Answer:     "5",
		StopReason: "complete",
		Turns:      2,
		Usage:      provider.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		StartedAt:  started,
		Duration:   1500 * time.Millisecond,
		ToolCalls: []history.ToolCall{
			{ID: "call_1", Name: "add", Arguments: `{"a":2,"b":3}`, OK: true, Duration: time.Millisecond},
		},
		Messages: []provider.LLMMessage{
			{Role: provider.MessageRoleSystem, Content: "system"},
			{Role: provider.MessageRoleUser, Content: "add 2 and 3"},
			{Role: provider.MessageRoleAssistant, ToolCalls: []provider.ToolCall{
				{ID: "call_1", Name: "add", Arguments: json.RawMessage(`{"a":2,"b":3}`)},
			}},
			{Role: provider.MessageRoleTool, Name: "add", ToolCallID: "call_1", Content: `{"ok":true,"tool":"add","data":5}`},
			{Role: provider.MessageRoleAssistant, Content: "5"},
		},
	}
}

func TestModule_RegistersStore(t *testing.T) {
	t.Parallel()

	m, ctx := newTestModule(t, Config{})
	store, ok := core.ServiceAs[history.Store](ctx, history.ServiceStore)
	if !ok {
		t.Fatal("expected history store service to be registered")
	}
	if store != history.Store(m.Store()) {
		t.Error("registered store differs from module store")
	}
}

func TestModule_DefaultPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	m := &Module{}
	ctx := core.NewAppContext(slog.New(slog.NewTextHandler(io.Discard, nil)), dir)
	if err := m.Provision(ctx); err != nil {
		t.Fatalf("provision: %v", err)
	}
	defer func() { _ = m.Stop(context.Background()) }()

	if want := filepath.Join(dir, defaultDBFile); m.config.Path != want {
		t.Errorf("expected path %s, got %s", want, m.config.Path)
	}
}

func TestModule_Configure(t *testing.T) {
	t.Parallel()

	var node yaml.Node
	if err := yaml.Unmarshal([]byte("path: /tmp/x.db\nwal: false\nretain: 10\n"), &node); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	m := &Module{}
	if err := m.Configure(node.Content[0]); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if m.config.Path != "/tmp/x.db" || m.config.walEnabled() || m.config.Retain != 10 {
		t.Errorf("unexpected config: %+v", m.config)
	}
	if m.config.BusyTimeout != defaultBusyTimeout {
		t.Errorf("expected default busy timeout, got %d", m.config.BusyTimeout)
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "defaults", cfg: Config{}},
		{name: "negative busy timeout", cfg: Config{BusyTimeout: -1}, wantErr: true},
		{name: "negative retain", cfg: Config{Retain: -1}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStore_SaveAndGetRoundTrip(t *testing.T) {
	t.Parallel()

	m, _ := newTestModule(t, Config{})
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 12, 0, 0, 123, time.UTC)
	want := sampleRun("3f2a9c1e-0000-4000-8000-000000000001", started)

	if err := m.store.SaveRun(ctx, want); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}

	got, err := m.store.GetRun(ctx, want.ID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}

	if got.Prompt != want.Prompt || got.Answer != want.Answer || got.Model != want.Model {
		t.Errorf("unexpected run fields: %+v", got)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("expected started_at %v, got %v", started, got.StartedAt)
	}
	if got.Duration != want.Duration {
		t.Errorf("expected duration %v, got %v", want.Duration, got.Duration)
	}
	if got.Usage != want.Usage {
		t.Errorf("expected usage %+v, got %+v", want.Usage, got.Usage)
	}
	if len(got.ToolCalls) != 1 || got.ToolCalls[0].Name != "add" || !got.ToolCalls[0].OK {
		t.Errorf("unexpected tool calls: %+v", got.ToolCalls)
	}
	if len(got.Messages) != len(want.Messages) {
		t.Fatalf("expected %d messages, got %d", len(want.Messages), len(got.Messages))
	}
	assistant := got.Messages[2]
	if len(assistant.ToolCalls) != 1 || assistant.ToolCalls[0].ID != "call_1" {
		t.Errorf("expected assistant tool call call_1, got %+v", assistant.ToolCalls)
	}
	tool := got.Messages[3]
	if tool.Role != provider.MessageRoleTool || tool.ToolCallID != "call_1" || tool.Name != "add" {
		t.Errorf("unexpected tool message: %+v", tool)
	}
}

func TestStore_SaveReplacesTranscript(t *testing.T) {
	t.Parallel()

	m, _ := newTestModule(t, Config{})
	ctx := context.Background()
	run := sampleRun("r1", time.Now())
	_ = m.store.SaveRun(ctx, run)

	run.Answer = "five"
	run.Messages = run.Messages[:2]
	if err := m.store.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}

	got, _ := m.store.GetRun(ctx, "r1")
	if got.Answer != "five" {
		t.Errorf("expected answer five, got %q", got.Answer)
	}
	if len(got.Messages) != 2 {
		t.Errorf("expected 2 messages after replace, got %d", len(got.Messages))
	}
}

func TestStore_ListNewestFirst(t *testing.T) {
	t.Parallel()

	m, _ := newTestModule(t, Config{})
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := m.store.SaveRun(ctx, sampleRun(id, base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("SaveRun(%s) error = %v", id, err)
		}
	}

	runs, err := m.store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "c" || runs[1].ID != "b" {
		t.Fatalf("expected [c b], got %+v", runs)
	}
	if runs[0].Messages != nil {
		t.Error("expected ListRuns to omit transcripts")
	}

	all, _ := m.store.ListRuns(ctx, 0)
	if len(all) != 3 {
		t.Errorf("expected 3 runs, got %d", len(all))
	}
}

func TestStore_GetRunPrefix(t *testing.T) {
	t.Parallel()

	m, _ := newTestModule(t, Config{})
	ctx := context.Background()
	_ = m.store.SaveRun(ctx, sampleRun("abc123", time.Now()))
	_ = m.store.SaveRun(ctx, sampleRun("abd456", time.Now()))
	_ = m.store.SaveRun(ctx, sampleRun("ab", time.Now()))

	got, err := m.store.GetRun(ctx, "abd")
	if err != nil || got.ID != "abd456" {
		t.Errorf("expected abd456, got %q (err %v)", got.ID, err)
	}

	// Exact match wins over prefix matches.
	got, err = m.store.GetRun(ctx, "ab")
	if err != nil || got.ID != "ab" {
		t.Errorf("expected exact match ab, got %q (err %v)", got.ID, err)
	}

	_ = m.store.SaveRun(ctx, sampleRun("xyz1", time.Now()))
	_ = m.store.SaveRun(ctx, sampleRun("xyz2", time.Now()))
	if _, err := m.store.GetRun(ctx, "xyz"); !errors.Is(err, history.ErrAmbiguous) {
		t.Errorf("expected ErrAmbiguous, got %v", err)
	}
	if _, err := m.store.GetRun(ctx, "nope"); !errors.Is(err, history.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_Retain(t *testing.T) {
	t.Parallel()

	m, _ := newTestModule(t, Config{Retain: 2})
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		_ = m.store.SaveRun(ctx, sampleRun(id, base.Add(time.Duration(i)*time.Minute)))
	}

	runs, _ := m.store.ListRuns(ctx, 0)
	if len(runs) != 2 {
		t.Fatalf("expected 2 retained runs, got %d", len(runs))
	}
	if _, err := m.store.GetRun(ctx, "old"); !errors.Is(err, history.ErrNotFound) {
		t.Errorf("expected oldest run pruned, got %v", err)
	}

	var n int
	if err := m.store.db.QueryRowContext(ctx, `SELECT count(*) FROM run_messages WHERE run_id = 'old'`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("expected pruned transcript to cascade, got %d rows", n)
	}
}

func TestStore_SaveRequiresID(t *testing.T) {
	t.Parallel()

	m, _ := newTestModule(t, Config{})
	if err := m.store.SaveRun(context.Background(), history.Run{}); err == nil {
		t.Error("expected error for empty run id")
	}
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "runs.db")
	ctx := context.Background()

	s, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	_ = s.SaveRun(ctx, sampleRun("persist", time.Now()))
	_ = s.Close()

	s, err = Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer func() { _ = s.Close() }()

	if _, err := s.GetRun(ctx, "persist"); err != nil {
		t.Errorf("expected run to survive reopen, got %v", err)
	}
}
