// Package app wires configuration, logging, telemetry and modules for the
// mcplab commands. Each command builds an Env, loads the module namespaces
// it needs and closes the Env when done.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/flemzord/mcplab/internal/config"
	"github.com/flemzord/mcplab/internal/core"
	"github.com/flemzord/mcplab/internal/security"
	"github.com/flemzord/mcplab/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Options configures Setup.
type Options struct {
	// ConfigPath is an explicit configuration file. When empty the standard
	// locations are searched and the built-in defaults are used if none exists.
	ConfigPath string

	// DataDir overrides the persistent data directory.
	DataDir string

	// LogLevel overrides log.level when set.
	LogLevel string

	// Version is reported to MCP peers and in telemetry.
	Version string

	Stdout io.Writer
	Stderr io.Writer
}

// Env is the runtime shared by every command.
type Env struct {
	Config *config.Config
	// ConfigPath is empty when the built-in defaults are in use.
	ConfigPath string

	Logger   *slog.Logger
	Redactor *security.Redactor
	Audit    *security.AuditLogger
	Metrics  *telemetry.Metrics
	Registry *prometheus.Registry

	AppCtx *core.AppContext
	App    *core.App

	Version string
	Stdout  io.Writer

	closers []func(context.Context) error
}

// Setup loads and validates configuration and builds the shared services.
// Modules are not loaded; call LoadModules.
func Setup(ctx context.Context, opts Options) (*Env, error) {
	cfg, cfgPath, err := LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	stdout, stderr := opts.Stdout, opts.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}

	env := &Env{
		Config:     cfg,
		ConfigPath: cfgPath,
		Redactor:   security.NewRedactor(),
		Version:    version,
		Stdout:     stdout,
	}
	env.Redactor.AddLiteral(cfg.Identity.ClientSecret)
	env.Logger = NewLogger(cfg.Log, stderr, env.Redactor)

	if err := env.setupAudit(cfg.Log.Audit); err != nil {
		return nil, err
	}

	env.Registry = prometheus.NewRegistry()
	env.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	env.Metrics = telemetry.NewMetrics(env.Registry)

	shutdown, err := telemetry.SetupTracing(ctx, telemetry.TracingConfig{
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Insecure:    cfg.Telemetry.Insecure,
		ServiceName: cfg.Telemetry.ServiceName,
	})
	if err != nil {
		_ = env.Close(ctx)
		return nil, err
	}
	env.closers = append(env.closers, shutdown)

	dataDir := opts.DataDir
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}

	env.AppCtx = core.NewAppContext(env.Logger, dataDir).WithModuleConfigs(cfg.Modules)
	env.AppCtx.RegisterService(security.ServiceRedactor, env.Redactor)
	env.AppCtx.RegisterService(security.ServiceAudit, env.Audit)
	env.AppCtx.RegisterService(telemetry.ServiceMetrics, env.Metrics)
	env.AppCtx.RegisterService(telemetry.ServiceGatherer, prometheus.Gatherer(env.Registry))
	env.App = core.NewApp(env.AppCtx)

	env.Logger.Debug("configuration loaded", "source", env.configSource(), "data_dir", dataDir)
	return env, nil
}

// setupAudit sends audit events to a JSONL file, or to the debug log.
func (e *Env) setupAudit(path string) error {
	cfg := security.AuditLoggerConfig{Redactor: e.Redactor}
	if path == "" {
		logger := e.Logger.With("component", "audit")
		cfg.OnEvent = func(ev security.AuditEvent) {
			logger.Debug(string(ev.Type),
				"tool", ev.Tool,
				"subject", ev.Subject,
				"decision", ev.Decision,
				"detail", ev.Detail,
			)
		}
	} else {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return fmt.Errorf("app: create audit directory: %w", err)
			}
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("app: open audit log: %w", err)
		}
		cfg.Writer = f
		e.closers = append(e.closers, func(context.Context) error { return f.Close() })
	}
	e.Audit = security.NewAuditLogger(cfg)
	return nil
}

// LoadModules loads the configured modules in the given namespaces, plus
// any extra module IDs (loaded with defaults when unconfigured).
func (e *Env) LoadModules(namespaces []string, extra ...string) error {
	ids := config.Resolve(e.Config, namespaces...)
	for _, id := range extra {
		if _, ok := e.Config.Modules[id]; !ok {
			ids = append(ids, id)
		}
	}
	return e.App.LoadModules(ids)
}

// Close stops loaded modules and flushes telemetry.
func (e *Env) Close(ctx context.Context) error {
	if e.App != nil {
		e.App.Stop()
	}
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		errs = append(errs, e.closers[i](ctx))
	}
	e.closers = nil
	return errors.Join(errs...)
}

func (e *Env) configSource() string {
	if e.ConfigPath == "" {
		return "built-in defaults"
	}
	return e.ConfigPath
}

// LoadConfig reads path, or the first file found by ResolveConfigPath, or
// the built-in defaults. The returned path is empty for the defaults.
func LoadConfig(path string) (*config.Config, string, error) {
	if path == "" {
		path = ResolveConfigPath()
	}
	if path == "" {
		cfg, err := config.Default()
		return cfg, "", err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// ResolveConfigPath searches for a config file in standard locations and
// returns "" when none exists.
// Search order: $XDG_CONFIG_HOME/mcplab/mcplab.yaml → ~/.config/mcplab/mcplab.yaml → ./mcplab.yaml
func ResolveConfigPath() string {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok && xdg != "" {
		candidates = append(candidates, filepath.Join(xdg, "mcplab", "mcplab.yaml"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "mcplab", "mcplab.yaml"))
	}
	candidates = append(candidates, "mcplab.yaml")

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// DefaultDataDir returns the default persistent data directory.
// Uses $XDG_DATA_HOME/mcplab if set, otherwise ~/.local/share/mcplab.
func DefaultDataDir() string {
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok && dir != "" {
		return filepath.Join(dir, "mcplab")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "mcplab")
}
