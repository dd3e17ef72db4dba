package datasource

import (
	"context"
	"sort"
	"sync"
)

// AdapterInfo describes a registered adapter.
type AdapterInfo struct {
	Type        string   `json:"type"`         // "motherduck", "duckdb", "postgres", "sqlserver"
	DisplayName string   `json:"display_name"` // "MotherDuck", "PostgreSQL"
	Description string   `json:"description"`
	Schemes     []string `json:"schemes"` // identifier prefixes handled, e.g. "md:"
}

// OpenFunc opens a Session for a normalized target. The token is passed
// separately and must never be written into target.URI or any log line.
type OpenFunc func(ctx context.Context, target Target, token string) (Session, error)

// AdapterRegistration contains info + the open function for an adapter.
type AdapterRegistration struct {
	Info AdapterInfo
	Open OpenFunc
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]AdapterRegistration)
)

// Register is called by each adapter's init() function.
// Thread-safe for concurrent init() calls.
func Register(reg AdapterRegistration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Type] = reg
}

// RegisteredAdapters returns info for all registered adapters, sorted by type.
func RegisteredAdapters() []AdapterInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]AdapterInfo, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Type < result[j].Type })
	return result
}

// GetOpener returns the open function for a backend type.
// Returns nil if type is not registered.
func GetOpener(backend string) OpenFunc {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if reg, ok := registry[backend]; ok {
		return reg.Open
	}
	return nil
}

// IsRegistered checks if an adapter type is available.
func IsRegistered(backend string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[backend]
	return ok
}
