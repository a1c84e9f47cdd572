package ollama

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL = "http://localhost:11434"
	defaultModel   = "qwen3-vl:235b-cloud"
	defaultTimeout = 5 * time.Minute
)

// Config holds the configuration for the native Ollama provider.
type Config struct {
	BaseURL     string   `yaml:"base_url"`
	Model       string   `yaml:"model"`
	Temperature *float64 `yaml:"temperature"`
	NumPredict  int      `yaml:"num_predict"`
	// KeepAlive controls how long the model stays loaded after a request.
	// Negative keeps it loaded indefinitely.
	KeepAlive *time.Duration `yaml:"keep_alive"`
	// Think enables or disables reasoning on thinking models. Unset leaves
	// the model's default.
	Think *bool `yaml:"think"`
	// Headers are added to every request, e.g. an Authorization header for
	// a proxied server.
	Headers map[string]string `yaml:"headers"`
	// Timeout bounds one chat request. Cloud models can be slow to answer.
	Timeout time.Duration `yaml:"timeout"`
}

func (c *Config) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
}

// baseURL parses BaseURL and checks its scheme.
func (c *Config) baseURL() (*url.URL, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("provider.ollama: base_url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("provider.ollama: base_url scheme must be http or https, got %q", u.Scheme)
	}
	return u, nil
}

func (c *Config) validate() error {
	if _, err := c.baseURL(); err != nil {
		return err
	}
	if c.Model == "" {
		return fmt.Errorf("provider.ollama: model is required")
	}
	if c.NumPredict < 0 {
		return fmt.Errorf("provider.ollama: num_predict must not be negative")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("provider.ollama: timeout must not be negative")
	}
	return nil
}
