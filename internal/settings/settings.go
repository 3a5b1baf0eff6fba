// Package settings resolves the environment-scoped project context shared by
// every command: conf directories, the data catalog and the constraint store.
package settings

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/leaptdda/internal/catalog"
	"github.com/leapstack-labs/leaptdda/internal/confloader"
	"github.com/leapstack-labs/leaptdda/internal/store"
	"github.com/leapstack-labs/leaptdda/pkg/hooks"
)

// Defaults.
const (
	DefaultConfSource = "conf"
	DefaultBaseEnv    = "base"
	TddaDirName       = "tdda"
)

// Options controls Resolve.
type Options struct {
	ProjectRoot    string
	ConfSource     string
	BaseEnv        string
	Env            string
	DuckDBPath     string
	DuckDBSettings map[string]string
	Logger         *slog.Logger
	// Hooks, when set, observe catalog loads and receive AfterContextCreated.
	Hooks *hooks.Manager
	// Fetch overrides object storage downloads.
	Fetch catalog.FetchFunc
}

// Settings is a resolved project environment.
type Settings struct {
	ProjectRoot string
	ConfSource  string
	BaseEnv     string
	Env         string
	TddaDir     string

	Loader  *confloader.Loader
	Catalog *catalog.Catalog
	Store   *store.Store
}

// ResolveError is fatal: the project context could not be built.
type ResolveError struct {
	Op  string
	Err error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("failed to resolve project settings: %s: %v", e.Op, e.Err)
}

func (e *ResolveError) Unwrap() error { return e.Err }

// Resolve builds the settings for one environment. The environment's tdda
// directory is created when missing.
func Resolve(ctx context.Context, opts Options) (*Settings, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	root := opts.ProjectRoot
	if root == "" {
		root = "."
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, &ResolveError{Op: "project root", Err: err}
	}

	confSource := opts.ConfSource
	if confSource == "" {
		confSource = DefaultConfSource
	}
	if !filepath.IsAbs(confSource) {
		confSource = filepath.Join(root, confSource)
	}
	baseEnv := opts.BaseEnv
	if baseEnv == "" {
		baseEnv = DefaultBaseEnv
	}
	env := opts.Env
	if env == "" {
		env = baseEnv
	}

	for _, dir := range []string{confSource, filepath.Join(confSource, baseEnv), filepath.Join(confSource, env)} {
		if err := requireDir(dir); err != nil {
			return nil, &ResolveError{Op: "conf source", Err: err}
		}
	}

	loader := confloader.New(confSource, baseEnv, env, logger)
	catSection, err := loader.Get(confloader.SectionCatalog)
	if err != nil {
		return nil, &ResolveError{Op: "catalog", Err: err}
	}
	credSection, err := loader.Get(confloader.SectionCredentials)
	if err != nil {
		return nil, &ResolveError{Op: "credentials", Err: err}
	}

	cat, err := catalog.New(catSection, credSection, catalog.Options{
		ProjectRoot:    root,
		DuckDBPath:     opts.DuckDBPath,
		DuckDBSettings: opts.DuckDBSettings,
		Fetch:          opts.Fetch,
		Logger:         logger,
	})
	if err != nil {
		return nil, &ResolveError{Op: "catalog", Err: err}
	}

	tddaDir := filepath.Join(confSource, env, TddaDirName)
	if err := os.MkdirAll(tddaDir, 0o750); err != nil {
		return nil, &ResolveError{Op: "tdda directory", Err: err}
	}

	s := &Settings{
		ProjectRoot: root,
		ConfSource:  confSource,
		BaseEnv:     baseEnv,
		Env:         env,
		TddaDir:     tddaDir,
		Loader:      loader,
		Catalog:     cat,
		Store:       store.New(tddaDir, filepath.Join(confSource, baseEnv, TddaDirName), logger),
	}

	if opts.Hooks != nil {
		cat.AddObserver(opts.Hooks)
		if err := opts.Hooks.AfterContextCreated(ctx, &hooks.Context{
			ProjectRoot: root,
			Env:         env,
			Loader:      loader,
			Logger:      logger,
		}); err != nil {
			_ = cat.Close()
			return nil, &ResolveError{Op: "hooks", Err: err}
		}
	}

	logger.Debug("resolved project settings",
		slog.String("project_root", root),
		slog.String("conf_source", confSource),
		slog.String("env", env),
		slog.Int("datasets", len(cat.List())))
	return s, nil
}

func requireDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("directory %s does not exist", dir)
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}

// TabularDatasets returns the catalog's dataframe entries in catalog order.
func (s *Settings) TabularDatasets() []string {
	return s.Catalog.TabularDatasets()
}

// RelPath renders p relative to the project root as ./path, falling back to
// p when it lies outside the project.
func (s *Settings) RelPath(p string) string {
	rel, err := filepath.Rel(s.ProjectRoot, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		return p
	}
	return "./" + filepath.ToSlash(rel)
}

// Close releases catalog connections.
func (s *Settings) Close() error {
	return s.Catalog.Close()
}
