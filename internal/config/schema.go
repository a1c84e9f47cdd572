// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for mcplab.
package config

import (
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSystemPrompt seeds every agent run unless agent.system_prompt is set.
const DefaultSystemPrompt = "You are an AI agent connected to an MCP server. " +
	"You can call tools when useful. " +
	"Always prefer precise tool calls with minimal arguments. " +
	"If a tool returns JSON, read it and continue reasoning. " +
	"If no tool is needed, answer directly and clearly."

// Default values applied by Config.defaults.
const (
	DefaultToolRounds  = 1
	DefaultIssuerURL   = "http://127.0.0.1:8080"
	DefaultRealm       = "mcp-lab"
	DefaultClientID    = "mcp-client"
	DefaultMCPURL      = "http://127.0.0.1:9000/mcp"
	DefaultServiceName = "mcplab"
	defaultHTTPTimeout = 10 * time.Second
	defaultLogLevel    = "info"
	defaultLogFormat   = "pretty"
	configVersion      = "1"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	Log       LogConfig       `yaml:"log"`
	Agent     AgentConfig     `yaml:"agent"`
	Identity  IdentityConfig  `yaml:"identity"`
	MCP       MCPConfig       `yaml:"mcp"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Modules maps module IDs to their raw YAML configuration.
	// Keys must match registered module IDs (e.g. "provider.ollama").
	Modules map[string]yaml.Node `yaml:"modules"`
}

// LogConfig selects the log handler.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is one of pretty, json, text.
	Format string `yaml:"format"`
	// NoColor disables ANSI colors in the pretty format.
	NoColor bool `yaml:"no_color"`
	// Audit is a file receiving audit events as JSONL. Empty sends them to
	// the regular log at debug level.
	Audit string `yaml:"audit"`
}

// AgentConfig configures the tool-calling agent loop.
type AgentConfig struct {
	// Provider is the module ID of the chat model backend.
	Provider string `yaml:"provider"`
	// SystemPrompt seeds every run.
	SystemPrompt string `yaml:"system_prompt"`
	// ToolRounds is how many batches of tool calls a run may execute.
	// The model turn that follows the last batch ends the run.
	ToolRounds int `yaml:"tool_rounds"`
	// Timeout bounds a whole run. Zero leaves cancellation to the caller.
	Timeout time.Duration `yaml:"timeout"`
}

// IdentityConfig points at the OpenID Connect provider that issues tokens.
// TokenURL overrides the endpoint derived from IssuerURL and Realm.
type IdentityConfig struct {
	IssuerURL    string        `yaml:"issuer_url"`
	Realm        string        `yaml:"realm"`
	ClientID     string        `yaml:"client_id"`
	ClientSecret string        `yaml:"client_secret"`
	Scopes       []string      `yaml:"scopes"`
	TokenURL     string        `yaml:"token_url"`
	Timeout      time.Duration `yaml:"timeout"`
}

// MCPConfig locates the MCP tool server the agent talks to.
// Command takes precedence over URL when both are set.
type MCPConfig struct {
	URL     string        `yaml:"url"`
	Command []string      `yaml:"command"`
	Timeout time.Duration `yaml:"timeout"`
}

// TelemetryConfig configures trace export.
type TelemetryConfig struct {
	// OTLPEndpoint is an OTLP/HTTP base URL such as http://localhost:4318.
	// Empty disables export.
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	Insecure     bool   `yaml:"insecure"`
	ServiceName  string `yaml:"service_name"`
}

func (c *Config) defaults() {
	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = defaultLogFormat
	}
	if c.Agent.SystemPrompt == "" {
		c.Agent.SystemPrompt = DefaultSystemPrompt
	}
	if c.Agent.ToolRounds == 0 {
		c.Agent.ToolRounds = DefaultToolRounds
	}
	if c.Identity.IssuerURL == "" {
		c.Identity.IssuerURL = DefaultIssuerURL
	}
	if c.Identity.Realm == "" {
		c.Identity.Realm = DefaultRealm
	}
	if c.Identity.ClientID == "" {
		c.Identity.ClientID = DefaultClientID
	}
	if len(c.Identity.Scopes) == 0 {
		c.Identity.Scopes = []string{"openid"}
	}
	if c.Identity.Timeout <= 0 {
		c.Identity.Timeout = defaultHTTPTimeout
	}
	if c.MCP.URL == "" && len(c.MCP.Command) == 0 {
		c.MCP.URL = DefaultMCPURL
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = DefaultServiceName
	}
}
