package core

// ModuleID is a dotted identifier such as "provider.ollama" or "gateway.mcp".
// The segment before the first dot is the module namespace.
type ModuleID string

// Namespace returns the leading segment of the ID.
func (id ModuleID) Namespace() string {
	for i := 0; i < len(id); i++ {
		if id[i] == '.' {
			return string(id[:i])
		}
	}
	return string(id)
}

// Module is the minimal interface every mcplab module implements.
type Module interface {
	ModuleInfo() ModuleInfo
}

// ModuleInfo describes a registered module.
type ModuleInfo struct {
	ID  ModuleID
	New func() Module
}
