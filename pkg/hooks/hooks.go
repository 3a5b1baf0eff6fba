// Package hooks dispatches project lifecycle events to registered hooks.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/leaptdda/internal/confloader"
	"github.com/leapstack-labs/leaptdda/pkg/core"
)

// ConfigLoader is the part of the config loader hooks may extend.
type ConfigLoader interface {
	Register(section string, patterns []string)
	Get(section string) (*confloader.Section, error)
}

// Context describes a freshly resolved project environment.
type Context struct {
	ProjectRoot string
	Env         string
	Loader      ConfigLoader
	Logger      *slog.Logger
}

// ContextHook runs once the project context has been created.
type ContextHook interface {
	AfterContextCreated(ctx context.Context, hc *Context) error
}

// DatasetHook runs after every successful dataset load.
type DatasetHook interface {
	AfterDatasetLoaded(ctx context.Context, name string, f *core.Frame)
}

// Manager holds registered hooks and fans events out to them in
// registration order.
type Manager struct {
	mu    sync.RWMutex
	hooks []any
}

// NewManager returns a manager with the given hooks registered.
func NewManager(hooks ...any) *Manager {
	m := &Manager{}
	for _, h := range hooks {
		m.Register(h)
	}
	return m
}

// Register adds a hook implementing ContextHook, DatasetHook or both.
// Values implementing neither are ignored.
func (m *Manager) Register(h any) {
	switch h.(type) {
	case ContextHook, DatasetHook:
	default:
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, h)
}

// Len returns the number of registered hooks.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.hooks)
}

func (m *Manager) snapshot() []any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]any(nil), m.hooks...)
}

// AfterContextCreated runs every ContextHook. All hooks run; their errors
// are joined.
func (m *Manager) AfterContextCreated(ctx context.Context, hc *Context) error {
	var errs []error
	for _, h := range m.snapshot() {
		if ch, ok := h.(ContextHook); ok {
			if err := ch.AfterContextCreated(ctx, hc); err != nil {
				errs = append(errs, fmt.Errorf("after_context_created: %w", err))
			}
		}
	}
	return errors.Join(errs...)
}

// AfterDatasetLoaded runs every DatasetHook.
func (m *Manager) AfterDatasetLoaded(ctx context.Context, name string, f *core.Frame) {
	for _, h := range m.snapshot() {
		if dh, ok := h.(DatasetHook); ok {
			dh.AfterDatasetLoaded(ctx, name, f)
		}
	}
}
