package openai

import (
	"fmt"
	"net/url"
	"time"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = "120s"
)

// Config holds the configuration for the OpenAI-compatible provider module.
// Any server implementing Chat Completions works, including Ollama's /v1.
type Config struct {
	// APIKey is sent as a bearer token. Local servers usually ignore it.
	APIKey      string   `yaml:"api_key"`
	Model       string   `yaml:"model"`
	BaseURL     string   `yaml:"base_url"`
	OrgID       string   `yaml:"org_id"`
	MaxTokens   int      `yaml:"max_tokens"`
	Temperature *float64 `yaml:"temperature"`
	Timeout     string   `yaml:"timeout"`
}

// defaults fills zero-valued fields with sensible defaults.
func (c *Config) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.Timeout == "" {
		c.Timeout = defaultTimeout
	}
}

// parsedTimeout returns the timeout as a time.Duration.
// Assumes the value has been validated by validate.
func (c *Config) parsedTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

func (c *Config) validate() error {
	if c.Model == "" {
		return fmt.Errorf("provider.openai: model is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("provider.openai: base_url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("provider.openai: base_url scheme must be http or https, got %q", u.Scheme)
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("provider.openai: invalid timeout %q: %w", c.Timeout, err)
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("provider.openai: max_tokens must not be negative")
	}
	return nil
}
