// Package toolserver builds the lab MCP server: a basic toolset of pure
// functions and a secure toolset whose answers depend on the role claims of
// the caller's bearer token.
package toolserver

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/flemzord/mcplab/internal/claims"
	"github.com/flemzord/mcplab/internal/security"
	"github.com/flemzord/mcplab/internal/telemetry"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Toolset names.
const (
	ToolsetBasic  = "basic"
	ToolsetSecure = "secure"
)

// DefaultName is the implementation name announced to clients.
const DefaultName = "mcplab"

// Options configures New. Zero values get defaults.
type Options struct {
	Name     string
	Version  string
	Toolsets []string

	Extractor claims.Extractor
	Policy    claims.Policy

	Audit   *security.AuditLogger
	Metrics *telemetry.Metrics
	Logger  *slog.Logger

	// Now defaults to time.Now; used by now_iso.
	Now func() time.Time
}

func (o *Options) defaults() {
	if o.Name == "" {
		o.Name = DefaultName
	}
	if o.Version == "" {
		o.Version = "dev"
	}
	if len(o.Toolsets) == 0 {
		o.Toolsets = []string{ToolsetBasic, ToolsetSecure}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// KnownToolsets lists the toolsets New accepts.
func KnownToolsets() []string {
	return []string{ToolsetBasic, ToolsetSecure}
}

// tools carries what every handler shares. Everything in it is immutable or
// internally synchronized, so handlers run concurrently.
type tools struct {
	extractor claims.Extractor
	policy    claims.Policy
	audit     *security.AuditLogger
	metrics   *telemetry.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// New builds an MCP server exposing the requested toolsets.
func New(opts Options) (*mcp.Server, error) {
	opts.defaults()

	for _, name := range opts.Toolsets {
		if !slices.Contains(KnownToolsets(), name) {
			return nil, fmt.Errorf("toolserver: unknown toolset %q", name)
		}
	}

	server := mcp.NewServer(&mcp.Implementation{Name: opts.Name, Version: opts.Version}, &mcp.ServerOptions{
		Instructions: "Lab tool server. Role-gated tools read the caller's bearer token.",
		Logger:       opts.Logger,
	})

	t := &tools{
		extractor: opts.Extractor,
		policy:    opts.Policy,
		audit:     opts.Audit,
		metrics:   opts.Metrics,
		logger:    opts.Logger.With("component", "toolserver"),
		now:       opts.Now,
	}

	if slices.Contains(opts.Toolsets, ToolsetBasic) {
		t.registerBasic(server)
	}
	if slices.Contains(opts.Toolsets, ToolsetSecure) {
		t.registerSecure(server)
	}
	return server, nil
}

// result wraps scalar outputs so every tool returns an object. Clients
// unwrap a lone "result" key.
type result[T any] struct {
	Result T `json:"result"`
}
