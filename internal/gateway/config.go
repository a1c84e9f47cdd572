package gateway

import (
	"time"

	"github.com/flemzord/mcplab/internal/toolserver"
)

// Config holds the MCP gateway configuration.
type Config struct {
	Bind string `yaml:"bind"`
	// Path is where the streamable MCP endpoint is mounted.
	Path     string   `yaml:"path"`
	Toolsets []string `yaml:"toolsets"`
	// Stateless serves every request with a fresh session, so clients need
	// no Mcp-Session-Id affinity.
	Stateless bool `yaml:"stateless"`
	// JSONResponse answers POSTs with application/json instead of an SSE stream.
	JSONResponse    bool          `yaml:"json_response"`
	Auth            AuthConfig    `yaml:"auth"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// defaults fills zero values with sensible defaults.
func (c *Config) defaults() {
	if c.Bind == "" {
		c.Bind = "127.0.0.1:9000"
	}
	if c.Path == "" {
		c.Path = "/mcp"
	}
	if len(c.Toolsets) == 0 {
		c.Toolsets = toolserver.KnownToolsets()
	}
	if c.Auth.ResourceURL == "" {
		c.Auth.ResourceURL = "http://" + c.Bind + c.Path
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 60 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
}

// AuthConfig gates the MCP endpoint.
type AuthConfig struct {
	// RequireToken rejects requests without a well-formed, unexpired bearer
	// token. Signatures are not checked.
	RequireToken bool `yaml:"require_token"`
	// ResourceURL is the public URL of the MCP endpoint, advertised in the
	// protected resource metadata. Defaults to http://<bind><path>.
	ResourceURL string `yaml:"resource_url"`
	// AuthorizationServers lists the issuers clients should get tokens from.
	AuthorizationServers []string `yaml:"authorization_servers"`
}
