package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leaptdda/pkg/adapter"
	"github.com/leapstack-labs/leaptdda/pkg/core"
	"github.com/marcboeker/go-duckdb"
)

// Format is a file format DuckDB can scan directly.
type Format string

// Supported file formats.
const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
	FormatJSON    Format = "json"
)

// Adapter implements the adapter.Adapter interface for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new DuckDB adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger, Convert: convertValue},
	}
}

// Connect establishes a connection to DuckDB.
// Use ":memory:" (or an empty path) for an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	params, err := parseParams(cfg.Params)
	if err != nil {
		return err
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	a.DB = db
	a.Cfg = cfg

	if err := a.applyParams(ctx, params); err != nil {
		_ = a.Close()
		return err
	}
	return nil
}

func (a *Adapter) applyParams(ctx context.Context, p *Params) error {
	for _, ext := range p.Extensions {
		a.Logger.Debug("loading duckdb extension", slog.String("extension", ext))
		if _, err := a.DB.ExecContext(ctx, fmt.Sprintf("INSTALL %s; LOAD %s;", ext, ext)); err != nil {
			return fmt.Errorf("failed to load extension %s: %w", ext, err)
		}
	}

	keys := make([]string, 0, len(p.Settings))
	for k := range p.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		stmt := fmt.Sprintf("SET %s = %s", k, quoteLiteral(p.Settings[k]))
		if _, err := a.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply setting %s: %w", k, err)
		}
	}
	return nil
}

// ReadFile scans a CSV, Parquet or JSON file into a Frame.
// loadArgs uses pandas-style names (sep, header, skiprows, nrows, lines).
func (a *Adapter) ReadFile(ctx context.Context, name string, format Format, path string, loadArgs map[string]any) (*core.Frame, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	query, err := BuildReadQuery(format, absPath, loadArgs)
	if err != nil {
		return nil, err
	}

	a.Logger.Debug("reading file dataset",
		slog.String("dataset", name),
		slog.String("format", string(format)),
		slog.String("path", absPath))

	return a.QueryFrame(ctx, name, query)
}

// BuildReadQuery renders the DuckDB table-function query for a file.
func BuildReadQuery(format Format, path string, loadArgs map[string]any) (string, error) {
	var fn string
	var opts []string
	limit := ""

	switch format {
	case FormatCSV:
		fn = "read_csv_auto"
		opts = append(opts, "header=true")
		for _, key := range sortedKeys(loadArgs) {
			v := loadArgs[key]
			switch key {
			case "sep", "delimiter":
				opts = append(opts, "delim="+quoteLiteral(fmt.Sprint(v)))
			case "header":
				if v == nil || v == false {
					opts[0] = "header=false"
				}
			case "skiprows":
				n, err := rowCountArg(key, v)
				if err != nil {
					return "", err
				}
				opts = append(opts, "skip="+strconv.Itoa(n))
			case "quotechar":
				opts = append(opts, "quote="+quoteLiteral(fmt.Sprint(v)))
			case "nrows":
				n, err := rowCountArg(key, v)
				if err != nil {
					return "", err
				}
				limit = " LIMIT " + strconv.Itoa(n)
			}
		}
	case FormatParquet:
		fn = "read_parquet"
	case FormatJSON:
		fn = "read_json_auto"
		if lines, ok := loadArgs["lines"].(bool); ok && lines {
			opts = append(opts, "format='newline_delimited'")
		}
	default:
		return "", fmt.Errorf("unsupported file format %q", format)
	}

	args := append([]string{quoteLiteral(path)}, opts...)
	return fmt.Sprintf("SELECT * FROM %s(%s)%s", fn, strings.Join(args, ", "), limit), nil
}

// rowCountArg accepts a non-negative whole number, as YAML decodes it.
func rowCountArg(key string, v any) (int, error) {
	var n int
	switch x := v.(type) {
	case int:
		n = x
	case int64:
		n = int(x)
	case uint64:
		n = int(x)
	case float64:
		if x != float64(int(x)) {
			return 0, fmt.Errorf("load_args.%s must be an integer, got %v", key, v)
		}
		n = int(x)
	default:
		return 0, fmt.Errorf("load_args.%s must be an integer, got %T", key, v)
	}
	if n < 0 {
		return 0, fmt.Errorf("load_args.%s must not be negative, got %d", key, n)
	}
	return n, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// convertValue unwraps DuckDB-specific scan types.
func convertValue(v any) any {
	switch x := v.(type) {
	case duckdb.Decimal:
		return x.Float64()
	case *duckdb.Decimal:
		if x == nil {
			return nil
		}
		return x.Float64()
	default:
		return v
	}
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
