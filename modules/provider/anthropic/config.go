package anthropic

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// defaultModel is the model used when none is specified.
// Pinned to a dated release for reproducibility.
const defaultModel = "claude-sonnet-4-5-20250929"

const (
	defaultAPIKeyEnv = "ANTHROPIC_API_KEY"
	defaultMaxTokens = 4096
	defaultTimeout   = 2 * time.Minute
)

// Config holds the YAML-decoded configuration for the Anthropic provider.
type Config struct {
	// APIKey takes precedence over the APIKeyEnv variable.
	APIKey    string `yaml:"api_key"`
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	// MaxTokens is required by the Messages API; requests may lower it.
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature *float64      `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// defaults fills in zero-value fields with sensible defaults.
func (c *Config) defaults() {
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = defaultAPIKeyEnv
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = defaultMaxTokens
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
}

func (c *Config) validate() error {
	var errs []error
	if c.APIKey == "" {
		errs = append(errs, fmt.Errorf("provider.anthropic: api_key or $%s is required", c.APIKeyEnv))
	}
	if c.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("provider.anthropic: max_tokens must be positive, got %d", c.MaxTokens))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("provider.anthropic: timeout must not be negative, got %s", c.Timeout))
	}
	if c.BaseURL != "" {
		if u, err := url.Parse(c.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, fmt.Errorf("provider.anthropic: base_url %q must be an http(s) URL", c.BaseURL))
		}
	}
	return errors.Join(errs...)
}
