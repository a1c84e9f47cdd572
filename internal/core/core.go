package core

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"
)

const shutdownTimeout = 30 * time.Second

// App manages the lifecycle of a set of modules.
type App struct {
	ctx     *AppContext
	modules []moduleInstance
	logger  *slog.Logger
}

type moduleInstance struct {
	id     ModuleID
	module Module
	// live is true once the module holds resources that Stop must release:
	// immediately for modules without Start, after Start otherwise.
	live bool
}

// NewApp creates a new App with the given context.
func NewApp(ctx *AppContext) *App {
	return &App{
		ctx:    ctx,
		logger: ctx.Logger.With("component", "core"),
	}
}

// LoadModules instantiates, provisions, and validates all modules for the
// given IDs in order. IDs that are already loaded are skipped. If any step
// fails, already-loaded modules are released.
func (a *App) LoadModules(ids []string) error {
	for _, id := range ids {
		if _, loaded := a.Module(id); loaded {
			continue
		}
		mod, err := a.ctx.LoadModule(id)
		if err != nil {
			a.Stop()
			a.modules = nil
			return fmt.Errorf("loading module %s: %w", id, err)
		}
		_, starts := mod.(Starter)
		a.modules = append(a.modules, moduleInstance{
			id:     mod.ModuleInfo().ID,
			module: mod,
			live:   !starts,
		})
		a.logger.Debug("module loaded", "module", id)
	}
	return nil
}

// Module returns the loaded module with the given ID.
func (a *App) Module(id string) (Module, bool) {
	for _, mi := range a.modules {
		if string(mi.id) == id {
			return mi.module, true
		}
	}
	return nil, false
}

// Start starts all loaded modules that implement Starter, in order.
// If any Start() fails, already-started modules are stopped in reverse order.
func (a *App) Start() error {
	for i := range a.modules {
		mi := &a.modules[i]
		s, ok := mi.module.(Starter)
		if !ok {
			continue
		}
		a.logger.Info("starting module", "module", string(mi.id))
		if err := s.Start(); err != nil {
			a.logger.Error("module start failed", "module", string(mi.id), "error", err)
			a.stopModules(i - 1)
			return fmt.Errorf("starting module %s: %w", mi.id, err)
		}
		mi.live = true
	}
	return nil
}

// Stop releases all live modules in reverse order with a timeout.
func (a *App) Stop() {
	a.stopModules(len(a.modules) - 1)
}

func (a *App) stopModules(fromIndex int) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for i := fromIndex; i >= 0; i-- {
		mi := &a.modules[i]
		if !mi.live {
			continue
		}
		if s, ok := mi.module.(Stopper); ok {
			a.logger.Debug("stopping module", "module", string(mi.id))
			if err := s.Stop(ctx); err != nil {
				a.logger.Error("module stop error", "module", string(mi.id), "error", err)
			}
		}
		mi.live = false
	}
}

// Run starts all modules and blocks until ctx is done or a shutdown signal
// is received.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	a.logger.Info("shutdown requested")

	a.Stop()
	a.logger.Info("shutdown complete")
	return nil
}
