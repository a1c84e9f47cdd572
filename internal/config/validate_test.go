package config

import (
	"strings"
	"testing"

	"github.com/flemzord/mcplab/internal/core"
	"gopkg.in/yaml.v3"
)

// stubModule is a basic module for testing.
type stubModule struct {
	id string
}

func (m *stubModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  core.ModuleID(m.id),
		New: func() core.Module { return &stubModule{id: m.id} },
	}
}

func validConfig(t *testing.T, modules ...string) *Config {
	t.Helper()
	cfg, err := Parse([]byte(`version: "1"`), t.Name())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg.Modules = make(map[string]yaml.Node)
	for _, id := range modules {
		cfg.Modules[id] = yaml.Node{}
	}
	return cfg
}

func TestValidate_Valid(t *testing.T) {
	id := "provider.validate" + strings.ReplaceAll(t.Name(), "/", "_")
	core.RegisterModule(&stubModule{id: id})

	cfg := validConfig(t, id)
	cfg.Agent.Provider = id

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_MissingVersion(t *testing.T) {
	cfg := validConfig(t)
	cfg.Version = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error for missing version")
	}
	if !strings.Contains(err.Error(), "version field is required") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_UnknownModule(t *testing.T) {
	cfg := validConfig(t, "provider.nonexistent")

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), `unknown module "provider.nonexistent"`) {
		t.Errorf("expected unknown module error, got %v", err)
	}
}

func TestValidate_AgentProviderNotConfigured(t *testing.T) {
	cfg := validConfig(t)
	cfg.Agent.Provider = "provider.ollama"

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "has no entry under modules") {
		t.Errorf("expected missing provider entry error, got %v", err)
	}
}

func TestValidate_AgentProviderWrongNamespace(t *testing.T) {
	id := "history.validate" + t.Name()
	core.RegisterModule(&stubModule{id: id})

	cfg := validConfig(t, id)
	cfg.Agent.Provider = id

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "is not a provider module") {
		t.Errorf("expected namespace error, got %v", err)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig(t)
	cfg.Version = "2"
	cfg.Log.Level = "chatty"
	cfg.Log.Format = "xml"
	cfg.Agent.ToolRounds = -1
	cfg.MCP.URL = "ftp://tools"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected errors")
	}
	for _, want := range []string{"unsupported version", "log.level", "log.format", "tool_rounds", "mcp.url"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %q, got %v", want, err)
		}
	}
}

func TestValidate_CommandSkipsURLCheck(t *testing.T) {
	cfg := validConfig(t)
	cfg.MCP.URL = ""
	cfg.MCP.Command = []string{"mcplab", "serve", "--stdio"}

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_OTLPEndpoint(t *testing.T) {
	cfg := validConfig(t)
	cfg.Telemetry.OTLPEndpoint = "localhost:4318"

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "telemetry.otlp_endpoint") {
		t.Fatalf("expected otlp endpoint error, got %v", err)
	}

	cfg.Telemetry.OTLPEndpoint = "http://localhost:4318"
	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestResolve_FiltersNamespaces(t *testing.T) {
	t.Parallel()

	cfg := &Config{Modules: map[string]yaml.Node{
		"provider.ollama": {},
		"gateway.mcp":     {},
		"history.sqlite":  {},
		"provider.openai": {},
	}}

	all := Resolve(cfg)
	if len(all) != 4 || all[0] != "gateway.mcp" {
		t.Errorf("expected sorted IDs, got %v", all)
	}

	got := Resolve(cfg, "provider", "history")
	want := []string{"history.sqlite", "provider.ollama", "provider.openai"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}
