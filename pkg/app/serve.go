package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/flemzord/mcplab/internal/core"
	"github.com/flemzord/mcplab/internal/gateway"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ServeParams configures Serve.
type ServeParams struct {
	// Stdio serves one client on stdin/stdout instead of HTTP.
	Stdio bool
}

// Serve runs the MCP tool server until ctx is canceled or a shutdown signal
// arrives. The gateway module is loaded even when it has no config entry.
func Serve(ctx context.Context, env *Env, params ServeParams) error {
	if err := env.LoadModules([]string{"gateway"}, gateway.ModuleID); err != nil {
		return err
	}

	if !params.Stdio {
		return env.App.Run(ctx)
	}

	server, ok := core.ServiceAs[*mcp.Server](env.AppCtx, gateway.ServiceServer)
	if !ok {
		return fmt.Errorf("app: %s did not provide an MCP server", gateway.ModuleID)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	env.Logger.Info("serving MCP over stdio")
	err := server.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("app: stdio server: %w", err)
	}
	return nil
}
