// Package catalog resolves named datasets from catalog.yml and loads them
// into frames.
//
// File datasets (CSV, Parquet, JSON) are scanned by DuckDB, optionally after
// fetching them from S3-compatible storage. SQL datasets connect through the
// adapter registry using the `con` URL of their credentials.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/leapstack-labs/leaptdda/internal/confloader"
	"github.com/leapstack-labs/leaptdda/internal/objectstore"
	"github.com/leapstack-labs/leaptdda/pkg/adapters/duckdb"
	"github.com/leapstack-labs/leaptdda/pkg/core"
)

// Observer is notified after every successful Load.
type Observer interface {
	AfterDatasetLoaded(ctx context.Context, name string, f *core.Frame)
}

// FetchFunc downloads an object URL into dir and returns the local path.
type FetchFunc func(ctx context.Context, cfg objectstore.Config, url, dir string) (string, error)

// Options configures a Catalog.
type Options struct {
	// ProjectRoot anchors relative filepaths.
	ProjectRoot string
	// DuckDBPath is the DuckDB database used to scan files. Empty means in-memory.
	DuckDBPath string
	// DuckDBSettings are applied with SET on the scanning connection.
	DuckDBSettings map[string]string
	// Fetch overrides object storage downloads.
	Fetch  FetchFunc
	Logger *slog.Logger
}

// Catalog holds the entries of one environment.
type Catalog struct {
	entries     map[string]*Entry
	order       []string
	credentials *confloader.Section
	opts        Options
	logger      *slog.Logger

	mu        sync.Mutex
	duck      *duckdb.Adapter
	observers []Observer
}

// New builds a catalog from loaded catalog and credentials sections.
// Every entry is decoded and validated up front.
func New(entries, credentials *confloader.Section, opts Options) (*Catalog, error) {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Fetch == nil {
		opts.Fetch = fetchObject(opts.Logger)
	}
	if credentials == nil {
		credentials = &confloader.Section{}
	}

	c := &Catalog{
		entries:     make(map[string]*Entry),
		credentials: credentials,
		opts:        opts,
		logger:      opts.Logger,
	}
	if entries == nil {
		return c, nil
	}

	var errs []error
	for _, name := range entries.Keys {
		raw, _ := entries.Get(name)
		e, err := decodeEntry(name, raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		c.entries[name] = e
		c.order = append(c.order, name)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return c, nil
}

// AddObserver registers an observer for successful loads.
func (c *Catalog) AddObserver(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, o)
}

// List returns every entry name in catalog order.
func (c *Catalog) List() []string {
	return append([]string(nil), c.order...)
}

// Entry returns the named entry.
func (c *Catalog) Entry(name string) (*Entry, bool) {
	e, ok := c.entries[name]
	return e, ok
}

// TabularDatasets returns the names of pandas dataframe entries in catalog
// order.
func (c *Catalog) TabularDatasets() []string {
	var out []string
	for _, name := range c.order {
		if c.entries[name].IsTabular() {
			out = append(out, name)
		}
	}
	return out
}

// Load reads the named dataset. Failures are returned as *DatasetError.
func (c *Catalog) Load(ctx context.Context, name string) (*core.Frame, error) {
	e, ok := c.entries[name]
	if !ok {
		return nil, &DatasetError{Name: name, Err: &UnknownDatasetError{Name: name, Available: c.List()}}
	}

	f, err := c.load(ctx, e)
	if err != nil {
		return nil, &DatasetError{Name: name, Err: err}
	}

	c.logger.Debug("dataset loaded",
		slog.String("dataset", name),
		slog.String("type", e.DatasetType()),
		slog.Int("rows", f.NumRows()),
		slog.Int("columns", len(f.Series)))

	c.mu.Lock()
	observers := append([]Observer(nil), c.observers...)
	c.mu.Unlock()
	for _, o := range observers {
		o.AfterDatasetLoaded(ctx, name, f)
	}
	return f, nil
}

func (c *Catalog) load(ctx context.Context, e *Entry) (*core.Frame, error) {
	if !e.Loadable() {
		return nil, fmt.Errorf("unsupported dataset type %q", e.Type)
	}
	if format, ok := e.fileFormat(); ok {
		return c.loadFile(ctx, e, format)
	}
	return c.loadSQL(ctx, e)
}

// Close releases the scanning connection.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.duck == nil {
		return nil
	}
	err := c.duck.Close()
	c.duck = nil
	return err
}

func (c *Catalog) resolvePath(p string) string {
	if p == "" || p == ":memory:" || filepath.IsAbs(p) || c.opts.ProjectRoot == "" {
		return p
	}
	return filepath.Join(c.opts.ProjectRoot, p)
}
