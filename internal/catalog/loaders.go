package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/leapstack-labs/leaptdda/internal/objectstore"
	"github.com/leapstack-labs/leaptdda/pkg/adapter"
	"github.com/leapstack-labs/leaptdda/pkg/adapters/duckdb"
	"github.com/leapstack-labs/leaptdda/pkg/core"

	_ "github.com/leapstack-labs/leaptdda/pkg/adapters/postgres" // registers "postgres"
	_ "github.com/leapstack-labs/leaptdda/pkg/adapters/sqlite"   // registers "sqlite"
)

func (c *Catalog) loadFile(ctx context.Context, e *Entry, format duckdb.Format) (*core.Frame, error) {
	path := e.Filepath
	if objectstore.IsRemote(path) {
		cfg, err := c.objectConfig(e)
		if err != nil {
			return nil, err
		}
		dir, err := os.MkdirTemp("", "leaptdda-")
		if err != nil {
			return nil, fmt.Errorf("failed to create download directory: %w", err)
		}
		defer func() { _ = os.RemoveAll(dir) }()

		if path, err = c.opts.Fetch(ctx, cfg, e.Filepath, dir); err != nil {
			return nil, err
		}
	} else {
		path = c.resolvePath(path)
	}

	duck, err := c.scanner(ctx)
	if err != nil {
		return nil, err
	}
	return duck.ReadFile(ctx, e.Name, format, path, e.LoadArgs)
}

// scanner returns the shared DuckDB connection, opening it on first use.
func (c *Catalog) scanner(ctx context.Context) (*duckdb.Adapter, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.duck != nil {
		return c.duck, nil
	}

	settings := make(map[string]any, len(c.opts.DuckDBSettings))
	for k, v := range c.opts.DuckDBSettings {
		settings[k] = v
	}
	duck := duckdb.New(c.logger)
	if err := duck.Connect(ctx, adapter.Config{
		Type:   "duckdb",
		Path:   c.resolvePath(c.opts.DuckDBPath),
		Params: map[string]any{"settings": settings},
	}); err != nil {
		return nil, err
	}
	c.duck = duck
	return duck, nil
}

func (c *Catalog) loadSQL(ctx context.Context, e *Entry) (*core.Frame, error) {
	creds, err := c.credentialsFor(e)
	if err != nil {
		return nil, err
	}
	con, _ := creds["con"].(string)
	if con == "" {
		return nil, fmt.Errorf("credentials for %s have no con URL", e.Name)
	}

	cfg, err := ConnectionConfig(con)
	if err != nil {
		return nil, err
	}
	if cfg.Type != "postgres" {
		cfg.Path = c.resolvePath(cfg.Path)
	}

	adp, err := adapter.NewAdapter(cfg, c.logger)
	if err != nil {
		return nil, err
	}
	if err := adp.Connect(ctx, cfg); err != nil {
		return nil, err
	}
	defer func() {
		if cerr := adp.Close(); cerr != nil {
			c.logger.Warn("failed to close connection", slog.String("dataset", e.Name), slog.Any("error", cerr))
		}
	}()

	if e.DatasetType() == TypeSQLTable {
		tr, ok := adp.(tableReader)
		if !ok {
			return nil, fmt.Errorf("%s adapter cannot read tables", cfg.Type)
		}
		return tr.ReadTable(ctx, e.Name, e.Schema(), e.TableName)
	}

	query, err := c.queryFor(e)
	if err != nil {
		return nil, err
	}
	return adp.QueryFrame(ctx, e.Name, query)
}

// tableReader is implemented by adapters embedding adapter.BaseSQLAdapter.
type tableReader interface {
	ReadTable(ctx context.Context, name, schema, table string) (*core.Frame, error)
}

func (c *Catalog) queryFor(e *Entry) (string, error) {
	switch {
	case e.SQL != "":
		return e.SQL, nil
	default:
		b, err := os.ReadFile(c.resolvePath(e.Filepath))
		if err != nil {
			return "", fmt.Errorf("failed to read query file: %w", err)
		}
		return string(b), nil
	}
}

// ConnectionConfig maps an SQLAlchemy-style connection URL onto an adapter
// config. sqlite:///rel.db and sqlite:////abs.db select the sqlite adapter,
// postgresql[+driver]:// the postgres adapter, duckdb:///path the duckdb one.
func ConnectionConfig(con string) (adapter.Config, error) {
	scheme, rest, ok := strings.Cut(con, "://")
	if !ok {
		return adapter.Config{}, fmt.Errorf("invalid connection URL %q", redact(con))
	}
	name, ok := adapter.ForScheme(scheme)
	if !ok {
		dialect, _, _ := strings.Cut(scheme, "+")
		return adapter.Config{}, &adapter.UnknownAdapterError{Type: dialect, Available: adapter.ListAdapters()}
	}

	switch name {
	case "postgres":
		u, err := url.Parse("postgresql://" + rest)
		if err != nil {
			return adapter.Config{}, fmt.Errorf("invalid connection URL %q: %w", redact(con), err)
		}
		return adapter.Config{
			Type:     name,
			DSN:      u.String(),
			Host:     u.Hostname(),
			Database: strings.TrimPrefix(u.Path, "/"),
			Username: u.User.Username(),
		}, nil
	default:
		// File databases: sqlite:///rel.db, sqlite:////abs.db, duckdb://
		path := strings.TrimPrefix(rest, "/")
		if path == "" {
			path = ":memory:"
		}
		return adapter.Config{Type: name, Path: path}, nil
	}
}

// redact hides the password of a connection URL.
func redact(con string) string {
	u, err := url.Parse(con)
	if err != nil || u.User == nil {
		return con
	}
	return u.Redacted()
}

// credentialsFor resolves an entry's credentials, either a name in
// credentials.yml or an inline mapping.
func (c *Catalog) credentialsFor(e *Entry) (map[string]any, error) {
	switch v := e.Credentials.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return v, nil
	case string:
		raw, ok := c.credentials.Get(v)
		if !ok {
			return nil, fmt.Errorf("credentials %q not found in credentials.yml", v)
		}
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("credentials %q must be a mapping", v)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("credentials must be a name or a mapping, got %T", v)
	}
}

func (c *Catalog) objectConfig(e *Entry) (objectstore.Config, error) {
	var cfg objectstore.Config
	creds, err := c.credentialsFor(e)
	if err != nil {
		return cfg, err
	}
	// fsspec-style credentials nest the endpoint under client_kwargs.
	if kw, ok := creds["client_kwargs"].(map[string]any); ok {
		merged := make(map[string]any, len(creds)+len(kw))
		for k, v := range creds {
			merged[k] = v
		}
		for k, v := range kw {
			merged[k] = v
		}
		creds = merged
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return cfg, err
	}
	if err := dec.Decode(creds); err != nil {
		return cfg, fmt.Errorf("invalid object storage credentials: %w", err)
	}
	return cfg, nil
}

func fetchObject(logger *slog.Logger) FetchFunc {
	return func(ctx context.Context, cfg objectstore.Config, rawURL, dir string) (string, error) {
		f, err := objectstore.NewFetcher(cfg, logger)
		if err != nil {
			return "", err
		}
		return f.Download(ctx, rawURL, dir)
	}
}
