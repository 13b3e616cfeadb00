package store

import (
	"context"
	"encoding/json"
	"maps"
	"slices"
	"sync"
)

// Factory opens a storage backend from its JSON configuration blob.
// Backends register themselves by name in an init func, so selecting
// one with -store-backend is a pure lookup.
type Factory interface {
	// Build validates config and opens the backend. Backends that run
	// cleanup goroutines tie their lifetime to ctx.
	Build(ctx context.Context, config json.RawMessage) (Interface, error)

	// Valid reports whether Build would accept config, without opening
	// anything.
	Valid(config json.RawMessage) error
}

var (
	factoriesMu sync.RWMutex
	factories   = map[string]Factory{}
)

// Register makes a backend selectable by name. A later registration
// under the same name replaces the earlier one, which lets tests swap
// in fakes.
func Register(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// Get looks up a registered backend factory by name.
func Get(name string) (Factory, bool) {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	f, ok := factories[name]
	return f, ok
}

// Methods lists the registered backend names in sorted order, for the
// error message when an unknown backend is configured.
func Methods() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	return slices.Sorted(maps.Keys(factories))
}
