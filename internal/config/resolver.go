package config

import (
	"slices"

	"github.com/flemzord/mcplab/internal/core"
)

// Resolve returns a sorted list of the configured module IDs. When namespaces
// are given only modules in those namespaces are returned, which lets each
// command load the subset it needs.
func Resolve(cfg *Config, namespaces ...string) []string {
	ids := make([]string, 0, len(cfg.Modules))
	for id := range cfg.Modules {
		if len(namespaces) > 0 && !slices.Contains(namespaces, core.ModuleID(id).Namespace()) {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
