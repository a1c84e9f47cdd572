package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/flemzord/mcplab/internal/core"
)

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"pretty", "json", "text"}
)

// Validate checks the structural validity of a Config and reports every
// problem at once.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != configVersion {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: %q)", cfg.Version, configVersion))
	}

	for id := range cfg.Modules {
		if _, ok := core.GetModule(id); !ok {
			errs = append(errs, fmt.Errorf("config: unknown module %q", id))
		}
	}

	errs = append(errs, validateLog(cfg.Log)...)
	errs = append(errs, validateAgent(cfg)...)
	errs = append(errs, validateURL("identity.issuer_url", cfg.Identity.IssuerURL)...)
	if cfg.Identity.TokenURL != "" {
		errs = append(errs, validateURL("identity.token_url", cfg.Identity.TokenURL)...)
	}
	if len(cfg.MCP.Command) == 0 {
		errs = append(errs, validateURL("mcp.url", cfg.MCP.URL)...)
	}
	if cfg.Telemetry.OTLPEndpoint != "" {
		errs = append(errs, validateURL("telemetry.otlp_endpoint", cfg.Telemetry.OTLPEndpoint)...)
	}

	return errors.Join(errs...)
}

func validateLog(c LogConfig) []error {
	var errs []error
	if !slices.Contains(logLevels, strings.ToLower(c.Level)) {
		errs = append(errs, fmt.Errorf("config: log.level %q is not one of %v", c.Level, logLevels))
	}
	if !slices.Contains(logFormats, c.Format) {
		errs = append(errs, fmt.Errorf("config: log.format %q is not one of %v", c.Format, logFormats))
	}
	return errs
}

func validateAgent(cfg *Config) []error {
	var errs []error
	if cfg.Agent.ToolRounds < 0 {
		errs = append(errs, fmt.Errorf("config: agent.tool_rounds must be positive, got %d", cfg.Agent.ToolRounds))
	}
	if cfg.Agent.Timeout < 0 {
		errs = append(errs, fmt.Errorf("config: agent.timeout must not be negative, got %s", cfg.Agent.Timeout))
	}
	if p := cfg.Agent.Provider; p != "" {
		if core.ModuleID(p).Namespace() != "provider" {
			errs = append(errs, fmt.Errorf("config: agent.provider %q is not a provider module", p))
		} else if _, ok := cfg.Modules[p]; !ok {
			errs = append(errs, fmt.Errorf("config: agent.provider %q has no entry under modules", p))
		}
	}
	return errs
}

func validateURL(field, raw string) []error {
	u, err := url.Parse(raw)
	if err != nil {
		return []error{fmt.Errorf("config: %s: %w", field, err)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return []error{fmt.Errorf("config: %s %q must be an http(s) URL", field, raw)}
	}
	if u.Host == "" {
		return []error{fmt.Errorf("config: %s %q has no host", field, raw)}
	}
	return nil
}
