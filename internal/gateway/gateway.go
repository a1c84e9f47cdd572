// Package gateway serves the lab tool server over streamable HTTP, next to
// health and Prometheus endpoints.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/flemzord/mcplab/internal/core"
	"github.com/flemzord/mcplab/internal/security"
	"github.com/flemzord/mcplab/internal/telemetry"
	"github.com/flemzord/mcplab/internal/toolserver"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"
)

// ModuleID identifies the gateway in configuration.
const ModuleID = "gateway.mcp"

// ServiceServer is the service name of the *mcp.Server built by Provision,
// used by `serve --stdio` to reach the same tools without HTTP.
const ServiceServer = "gateway.mcp.server"

func init() {
	core.RegisterModule(&Gateway{})
}

// Gateway is the MCP HTTP gateway module.
type Gateway struct {
	config   Config
	appCtx   *core.AppContext
	logger   *slog.Logger
	server   *mcp.Server
	audit    *security.AuditLogger
	metrics  *telemetry.Metrics
	gatherer prometheus.Gatherer

	mu        sync.Mutex
	http      *http.Server
	addr      net.Addr
	startedAt time.Time
}

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  ModuleID,
		New: func() core.Module { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return err
	}
	g.config.defaults()
	return nil
}

// Provision implements core.Provisioner. It builds the MCP server from the
// shared audit logger and metrics, when pkg/app published them.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	g.appCtx = ctx
	g.logger = ctx.Logger

	g.audit, _ = core.ServiceAs[*security.AuditLogger](ctx, security.ServiceAudit)
	g.metrics, _ = core.ServiceAs[*telemetry.Metrics](ctx, telemetry.ServiceMetrics)
	g.gatherer, _ = core.ServiceAs[prometheus.Gatherer](ctx, telemetry.ServiceGatherer)

	server, err := toolserver.New(toolserver.Options{
		Toolsets: g.config.Toolsets,
		Audit:    g.audit,
		Metrics:  g.metrics,
		Logger:   g.logger,
	})
	if err != nil {
		return err
	}
	g.server = server
	ctx.RegisterService(ServiceServer, server)
	return nil
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	var errs []error
	if _, err := net.ResolveTCPAddr("tcp", g.config.Bind); err != nil {
		errs = append(errs, fmt.Errorf("gateway: invalid bind address %q", g.config.Bind))
	}
	if !strings.HasPrefix(g.config.Path, "/") || g.config.Path == "/" {
		errs = append(errs, fmt.Errorf("gateway: path must start with / and not be the root, got %q", g.config.Path))
	}
	if g.config.Path == "/health" || g.config.Path == "/metrics" {
		errs = append(errs, fmt.Errorf("gateway: path %q collides with a built-in route", g.config.Path))
	}
	for _, ts := range g.config.Toolsets {
		if !slices.Contains(toolserver.KnownToolsets(), ts) {
			errs = append(errs, fmt.Errorf("gateway: unknown toolset %q", ts))
		}
	}
	return errors.Join(errs...)
}

// Server returns the MCP server built by Provision.
func (g *Gateway) Server() *mcp.Server {
	return g.server
}

// Start implements core.Starter.
func (g *Gateway) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.startedAt = time.Now()
	srv := &http.Server{
		Handler:      g.buildRouter(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return fmt.Errorf("gateway: listen: %w", err)
	}
	g.http = srv
	g.addr = ln.Addr()

	go func() {
		g.logger.Info("mcp gateway listening", "addr", ln.Addr().String(), "path", g.config.Path,
			"toolsets", g.config.Toolsets, "require_token", g.config.Auth.RequireToken)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound listener address, or nil before Start.
func (g *Gateway) Addr() net.Addr {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addr
}

// Stop implements core.Stopper.
func (g *Gateway) Stop(ctx context.Context) error {
	g.mu.Lock()
	srv := g.http
	g.mu.Unlock()
	if srv == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("mcp gateway shutting down")
	return srv.Shutdown(shutdownCtx)
}
