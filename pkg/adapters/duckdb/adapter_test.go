package duckdb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leaptdda/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapter_Connect(t *testing.T) {
	tests := []struct {
		name      string
		setupPath func(t *testing.T) string
		verify    func(t *testing.T, path string)
	}{
		{
			name: "in-memory",
			setupPath: func(_ *testing.T) string {
				return ":memory:"
			},
		},
		{
			name: "file-based",
			setupPath: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "test.duckdb")
			},
			verify: func(t *testing.T, path string) {
				_, err := os.Stat(path)
				assert.False(t, os.IsNotExist(err), "database file was not created")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			adp := New(nil)

			dbPath := tt.setupPath(t)
			require.NoError(t, adp.Connect(ctx, core.AdapterConfig{Path: dbPath}))
			defer func() { _ = adp.Close() }()

			if tt.verify != nil {
				tt.verify(t, dbPath)
			}
		})
	}
}

func TestAdapter_NotConnected(t *testing.T) {
	adp := New(nil)
	_, err := adp.ReadFile(context.Background(), "x", FormatCSV, "x.csv", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not established")
}

func TestAdapter_ConnectAppliesSettings(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)
	require.NoError(t, adp.Connect(ctx, core.AdapterConfig{
		Params: map[string]any{"settings": map[string]any{"threads": 1}},
	}))
	defer func() { _ = adp.Close() }()

	f, err := adp.QueryFrame(ctx, "settings", "SELECT current_setting('threads') AS threads")
	require.NoError(t, err)
	assert.Equal(t, "1", fmt.Sprint(f.Column("threads").Values[0]))
}

func TestAdapter_ReadCSV(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "companies.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,name,rating\n1,acme,4.5\n2,globex,\n3,initech,3.0\n"), 0o600))

	adp := New(nil)
	require.NoError(t, adp.Connect(ctx, core.AdapterConfig{}))
	defer func() { _ = adp.Close() }()

	f, err := adp.ReadFile(ctx, "companies", FormatCSV, path, nil)
	require.NoError(t, err)

	assert.Equal(t, "companies", f.Name)
	assert.Equal(t, []string{"id", "name", "rating"}, f.Columns())
	assert.Equal(t, 3, f.NumRows())
	assert.Equal(t, core.KindInt, f.Column("id").Kind)
	assert.Equal(t, core.KindString, f.Column("name").Kind)
	assert.Equal(t, core.KindReal, f.Column("rating").Kind)
	assert.Nil(t, f.Column("rating").Values[1])
}

func TestAdapter_ReadCSVWithLoadArgs(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "semi.csv")
	require.NoError(t, os.WriteFile(path, []byte("a;b\n1;x\n2;y\n3;z\n"), 0o600))

	adp := New(nil)
	require.NoError(t, adp.Connect(ctx, core.AdapterConfig{}))
	defer func() { _ = adp.Close() }()

	f, err := adp.ReadFile(ctx, "semi", FormatCSV, path, map[string]any{"sep": ";", "nrows": 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, f.Columns())
	assert.Equal(t, 2, f.NumRows())
}

func TestAdapter_ReadMissingFile(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)
	require.NoError(t, adp.Connect(ctx, core.AdapterConfig{}))
	defer func() { _ = adp.Close() }()

	_, err := adp.ReadFile(ctx, "missing", FormatCSV, filepath.Join(t.TempDir(), "nope.csv"), nil)
	require.Error(t, err)
}

func TestBuildReadQuery(t *testing.T) {
	tests := []struct {
		name     string
		format   Format
		loadArgs map[string]any
		want     string
		wantErr  bool
	}{
		{
			name:   "csv defaults",
			format: FormatCSV,
			want:   "SELECT * FROM read_csv_auto('/data/a.csv', header=true)",
		},
		{
			name:     "csv args",
			format:   FormatCSV,
			loadArgs: map[string]any{"sep": "|", "header": nil, "skiprows": 2},
			want:     "SELECT * FROM read_csv_auto('/data/a.csv', header=false, delim='|', skip=2)",
		},
		{
			name:     "csv nrows",
			format:   FormatCSV,
			loadArgs: map[string]any{"nrows": int64(5), "skiprows": 1.0},
			want:     "SELECT * FROM read_csv_auto('/data/a.csv', header=true, skip=1) LIMIT 5",
		},
		{
			name:     "nrows not a number",
			format:   FormatCSV,
			loadArgs: map[string]any{"nrows": "1; DROP TABLE t"},
			wantErr:  true,
		},
		{
			name:     "skiprows fractional",
			format:   FormatCSV,
			loadArgs: map[string]any{"skiprows": 1.5},
			wantErr:  true,
		},
		{
			name:     "skiprows negative",
			format:   FormatCSV,
			loadArgs: map[string]any{"skiprows": -1},
			wantErr:  true,
		},
		{
			name:   "parquet",
			format: FormatParquet,
			want:   "SELECT * FROM read_parquet('/data/a.csv')",
		},
		{
			name:     "json lines",
			format:   FormatJSON,
			loadArgs: map[string]any{"lines": true},
			want:     "SELECT * FROM read_json_auto('/data/a.csv', format='newline_delimited')",
		},
		{
			name:    "unknown",
			format:  Format("xlsx"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildReadQuery(tt.format, "/data/a.csv", tt.loadArgs)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQuoteLiteral(t *testing.T) {
	assert.Equal(t, "'it''s'", quoteLiteral("it's"))
}
