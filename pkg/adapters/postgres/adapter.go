package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/leapstack-labs/leaptdda/pkg/adapter"
)

const (
	defaultHost    = "localhost"
	defaultPort    = 5432
	defaultSSLMode = "disable"
)

// Adapter reads catalog tables and queries from PostgreSQL through pgx.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New returns an unconnected adapter. A nil logger discards output.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger}}
}

// Connect opens and pings a pgx-backed database/sql pool.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	cc, err := connConfig(cfg)
	if err != nil {
		return err
	}

	a.Logger.Debug("connecting to postgres",
		slog.String("host", cc.Host),
		slog.Int("port", int(cc.Port)),
		slog.String("database", cc.Database))

	db := stdlib.OpenDB(*cc)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres at %s: %w", cc.Host, err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// connConfig parses cfg.DSN, or a URL assembled from the discrete fields.
// A password given only in cfg.Password still applies to a DSN without one.
func connConfig(cfg adapter.Config) (*pgx.ConnConfig, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = connURL(cfg).String()
	}
	cc, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres connection settings: %w", err)
	}
	if cc.Password == "" && cfg.Password != "" {
		cc.Password = cfg.Password
	}
	return cc, nil
}

// connURL renders the discrete fields as a postgresql:// URL. Options become
// query parameters; sslmode defaults to disable.
func connURL(cfg adapter.Config) *url.URL {
	host := cfg.Host
	if host == "" {
		host = defaultHost
	}
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}

	q := url.Values{}
	q.Set("sslmode", defaultSSLMode)
	for k, v := range cfg.Options {
		q.Set(k, v)
	}

	u := &url.URL{
		Scheme:   "postgresql",
		Host:     net.JoinHostPort(host, strconv.Itoa(port)),
		Path:     "/" + cfg.Database,
		RawQuery: q.Encode(),
	}
	switch {
	case cfg.Username != "" && cfg.Password != "":
		u.User = url.UserPassword(cfg.Username, cfg.Password)
	case cfg.Username != "":
		u.User = url.User(cfg.Username)
	}
	return u
}

var _ adapter.Adapter = (*Adapter)(nil)
