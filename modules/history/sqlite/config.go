package sqlite

import "fmt"

const (
	defaultBusyTimeout = 5000
	defaultDBFile      = "history.db"
)

// Config holds the SQLite run history configuration.
type Config struct {
	// Path is the database file path. Defaults to {DataDir}/history.db.
	Path string `yaml:"path"`

	// WAL enables WAL journal mode. Defaults to true.
	WAL *bool `yaml:"wal"`

	// BusyTimeout is the milliseconds to wait on a busy lock. Defaults to 5000.
	BusyTimeout int `yaml:"busy_timeout"`

	// Retain caps the number of stored runs; older runs are pruned on save.
	// Zero keeps everything.
	Retain int `yaml:"retain"`
}

func (c *Config) defaults() {
	if c.WAL == nil {
		t := true
		c.WAL = &t
	}
	if c.BusyTimeout == 0 {
		c.BusyTimeout = defaultBusyTimeout
	}
}

func (c *Config) walEnabled() bool {
	return c.WAL == nil || *c.WAL
}

func (c *Config) validate() error {
	if c.BusyTimeout < 0 {
		return fmt.Errorf("sqlite: busy_timeout must be non-negative, got %d", c.BusyTimeout)
	}
	if c.Retain < 0 {
		return fmt.Errorf("sqlite: retain must be non-negative, got %d", c.Retain)
	}
	return nil
}
