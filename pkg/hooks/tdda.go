package hooks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/leaptdda/internal/confloader"
	"github.com/leapstack-labs/leaptdda/internal/report"
	"github.com/leapstack-labs/leaptdda/internal/store"
	"github.com/leapstack-labs/leaptdda/pkg/core"
)

// TddaPatterns are the config loader patterns of constraint specifications.
var TddaPatterns = []string{"tdda/*"}

// Verifier checks a frame against a specification.
type Verifier interface {
	Verify(f *core.Frame, spec *core.Spec) *core.Verification
}

// TddaHooks verifies every loaded dataset that has a stored specification
// and logs the outcome without failing the load.
type TddaHooks struct {
	verifier Verifier

	mu       sync.RWMutex
	specs    map[string]*core.Spec
	reporter *report.Reporter
	logger   *slog.Logger
}

// NewTddaHooks creates the hooks around a verifier.
func NewTddaHooks(v Verifier) *TddaHooks {
	return &TddaHooks{
		verifier: v,
		specs:    make(map[string]*core.Spec),
		reporter: report.New(nil),
		logger:   slog.New(slog.DiscardHandler),
	}
}

// AfterContextCreated adds the tdda section to the config loader and caches
// every specification it exposes.
func (h *TddaHooks) AfterContextCreated(_ context.Context, hc *Context) error {
	hc.Loader.Register(confloader.SectionTdda, TddaPatterns)
	sec, err := hc.Loader.Get(confloader.SectionTdda)
	if err != nil {
		return fmt.Errorf("failed to load constraint specifications: %w", err)
	}

	specs := make(map[string]*core.Spec, sec.Len())
	for _, name := range sec.Keys {
		raw, _ := sec.Get(name)
		spec, err := store.Decode(raw)
		if err != nil {
			return fmt.Errorf("constraint specification %q: %w", name, err)
		}
		specs[name] = spec
	}

	logger := hc.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.specs = specs
	h.logger = logger
	h.reporter = report.New(logger)
	logger.Debug("cached constraint specifications", slog.Int("count", len(specs)))
	return nil
}

// Spec returns the cached specification for a dataset.
func (h *TddaHooks) Spec(name string) (*core.Spec, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.specs[name]
	return s, ok
}

// AfterDatasetLoaded verifies f when a specification for name is cached.
func (h *TddaHooks) AfterDatasetLoaded(_ context.Context, name string, f *core.Frame) {
	spec, ok := h.Spec(name)
	if !ok {
		return
	}
	h.mu.RLock()
	reporter := h.reporter
	h.mu.RUnlock()

	_ = reporter.Report(name, h.verifier.Verify(f, spec), false)
}
