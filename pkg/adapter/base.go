package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/leaptdda/pkg/core"
)

// ValueFunc converts a driver-specific value before core normalization.
type ValueFunc func(v any) any

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// Close and QueryFrame implementations.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Cfg    core.AdapterConfig
	Logger *slog.Logger

	// Convert is applied to every scanned value when set.
	Convert ValueFunc
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection")
		}
		return b.DB.Close()
	}
	return nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// QueryFrame executes a query and materializes every returned row.
func (b *BaseSQLAdapter) QueryFrame(ctx context.Context, name, query string, args ...any) (*core.Frame, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	if b.Logger != nil {
		b.Logger.Debug("querying dataset", slog.String("dataset", name))
	}
	rows, err := b.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return ScanFrame(name, rows, b.Convert)
}

// ScanFrame reads all rows into a Frame. Column kinds come from the driver's
// declared type when it agrees with the scanned values, otherwise they are
// inferred from the values.
func ScanFrame(name string, rows *sql.Rows, convert ValueFunc) (*core.Frame, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	declared := make([]core.Kind, len(cols))
	if types, err := rows.ColumnTypes(); err == nil {
		for i, ct := range types {
			declared[i] = KindFromDatabaseType(ct.DatabaseTypeName())
		}
	}

	data := make([][]any, len(cols))
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			if convert != nil {
				v = convert(v)
			}
			data[i] = append(data[i], core.NormalizeValue(v))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	frame := core.NewFrame(name)
	for i, col := range cols {
		values := data[i]
		if values == nil {
			values = []any{}
		}
		kind := reconcileKind(declared[i], core.InferKind(values))
		if kind == core.KindReal {
			widenToReal(values)
		}
		if err := frame.AddSeries(&core.Series{Name: col, Kind: kind, Values: values}); err != nil {
			return nil, err
		}
	}
	return frame, nil
}

func reconcileKind(declared, inferred core.Kind) core.Kind {
	switch {
	case declared == core.KindUnknown:
		return inferred
	case inferred == core.KindUnknown, inferred == declared:
		return declared
	case declared == core.KindReal && inferred == core.KindInt:
		return core.KindReal
	default:
		return inferred
	}
}

func widenToReal(values []any) {
	for i, v := range values {
		if n, ok := v.(int64); ok {
			values[i] = float64(n)
		}
	}
}

// KindFromDatabaseType maps a driver type name onto a Kind.
func KindFromDatabaseType(typeName string) core.Kind {
	t := strings.ToUpper(strings.TrimSpace(typeName))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	switch t {
	case "TINYINT", "SMALLINT", "INTEGER", "INT", "BIGINT", "HUGEINT",
		"UTINYINT", "USMALLINT", "UINTEGER", "UBIGINT",
		"INT2", "INT4", "INT8", "SERIAL", "BIGSERIAL":
		return core.KindInt
	case "FLOAT", "DOUBLE", "REAL", "DECIMAL", "NUMERIC",
		"FLOAT4", "FLOAT8", "DOUBLE PRECISION":
		return core.KindReal
	case "VARCHAR", "TEXT", "CHAR", "BPCHAR", "STRING", "UUID", "CHARACTER VARYING":
		return core.KindString
	case "BOOLEAN", "BOOL":
		return core.KindBool
	case "DATE", "TIMESTAMP", "TIMESTAMPTZ", "DATETIME",
		"TIMESTAMP WITH TIME ZONE", "TIMESTAMP_S", "TIMESTAMP_MS", "TIMESTAMP_NS":
		return core.KindDate
	default:
		return core.KindUnknown
	}
}

// ReadTable loads every row of a table. An empty schema leaves the table
// unqualified, resolved by the connection's search path.
func (b *BaseSQLAdapter) ReadTable(ctx context.Context, name, schema, table string) (*core.Frame, error) {
	if strings.TrimSpace(table) == "" {
		return nil, fmt.Errorf("table name is required")
	}
	ref := QuoteIdentifier(table)
	if schema != "" {
		ref = QuoteIdentifier(schema) + "." + ref
	}
	return b.QueryFrame(ctx, name, "SELECT * FROM "+ref) //nolint:gosec // identifiers are quoted
}

// QuoteIdentifier double-quotes a SQL identifier.
func QuoteIdentifier(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
