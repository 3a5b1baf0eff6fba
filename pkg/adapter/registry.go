package adapter

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/leapstack-labs/leaptdda/pkg/core"
)

// Factory builds an unconnected adapter. A nil logger discards output.
type Factory func(*slog.Logger) Adapter

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
	// schemes maps connection URL schemes onto adapter names.
	schemes = make(map[string]string)
)

// Register adds an adapter factory under name, reachable from connection
// URLs with any of the given schemes. Called from adapter init() functions.
func Register(name string, factory Factory, urlSchemes ...string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
	for _, s := range urlSchemes {
		schemes[strings.ToLower(s)] = name
	}
}

// Get retrieves an adapter factory by name.
func Get(name string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[name]
	return f, ok
}

// ForScheme returns the adapter name serving a connection URL scheme.
// A "+driver" suffix, as in postgresql+psycopg2, is ignored.
func ForScheme(scheme string) (string, bool) {
	dialect, _, _ := strings.Cut(strings.ToLower(scheme), "+")
	registryMu.RLock()
	defer registryMu.RUnlock()
	name, ok := schemes[dialect]
	return name, ok
}

// NewAdapter creates a new adapter instance based on config type.
func NewAdapter(cfg core.AdapterConfig, logger *slog.Logger) (Adapter, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("adapter type not specified")
	}

	factory, ok := Get(cfg.Type)
	if !ok {
		return nil, &UnknownAdapterError{
			Type:      cfg.Type,
			Available: ListAdapters(),
		}
	}
	return factory(logger), nil
}

// ListAdapters returns all registered adapter names (sorted).
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if an adapter type is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

// UnknownAdapterError is returned when no adapter serves a type or scheme.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown adapter type %q\nAvailable adapters: %v\nHint: Check the credentials `con` URL in conf/<env>/credentials.yml", e.Type, e.Available)
}
