// Package sqlite persists agent run history in a local SQLite database
// using modernc.org/sqlite (pure Go, no CGO).
package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/flemzord/mcplab/internal/core"
	"github.com/flemzord/mcplab/internal/history"
	"gopkg.in/yaml.v3"
)

// ModuleID identifies the SQLite history module.
const ModuleID = "history.sqlite"

func init() {
	core.RegisterModule(&Module{})
}

var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

// Module registers a SQLite-backed history.Store under history.ServiceStore.
type Module struct {
	config Config
	store  *Store
	logger *slog.Logger
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  ModuleID,
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("sqlite: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger

	if m.config.Path == "" {
		m.config.Path = filepath.Join(ctx.DataDir, defaultDBFile)
	}

	db, err := openDB(context.Background(), m.config)
	if err != nil {
		return err
	}

	m.store = &Store{db: db, retain: m.config.Retain}
	ctx.RegisterService(history.ServiceStore, m.store)

	m.logger.Debug("sqlite history provisioned",
		"path", m.config.Path,
		"wal", m.config.walEnabled(),
		"retain", m.config.Retain,
	)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if err := m.config.validate(); err != nil {
		return err
	}
	if err := m.store.db.PingContext(context.Background()); err != nil {
		return fmt.Errorf("sqlite: ping failed: %w", err)
	}
	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(_ context.Context) error {
	if m.store == nil {
		return nil
	}
	return m.store.Close()
}

// Store returns the provisioned store.
func (m *Module) Store() *Store {
	return m.store
}
