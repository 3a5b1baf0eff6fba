package adapter_test

import (
	"testing"

	"github.com/leapstack-labs/leaptdda/pkg/adapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	// Import adapter packages to ensure adapters are registered via init()
	_ "github.com/leapstack-labs/leaptdda/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/leaptdda/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/leaptdda/pkg/adapters/sqlite"
)

func TestListAdapters(t *testing.T) {
	adapters := adapter.ListAdapters()

	assert.Contains(t, adapters, "duckdb", "duckdb should be in adapter list")
	assert.Contains(t, adapters, "postgres", "postgres should be in adapter list")
	assert.Contains(t, adapters, "sqlite", "sqlite should be in adapter list")
}

func TestIsRegistered(t *testing.T) {
	tests := []struct {
		name        string
		adapterName string
		expected    bool
	}{
		{"duckdb registered", "duckdb", true},
		{"postgres registered", "postgres", true},
		{"sqlite registered", "sqlite", true},
		{"unknown not registered", "unknown_db", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, adapter.IsRegistered(tt.adapterName))
		})
	}
}

func TestNewAdapter_Registered(t *testing.T) {
	for _, name := range []string{"duckdb", "postgres", "sqlite"} {
		t.Run(name, func(t *testing.T) {
			adp, err := adapter.NewAdapter(adapter.Config{Type: name}, nil)
			require.NoError(t, err)
			require.NotNil(t, adp)
			assert.NoError(t, adp.Close(), "closing an unconnected adapter is a no-op")
		})
	}
}

func TestForScheme_Registered(t *testing.T) {
	tests := map[string]string{
		"duckdb":              "duckdb",
		"sqlite":              "sqlite",
		"postgres":            "postgres",
		"postgresql":          "postgres",
		"postgresql+psycopg2": "postgres",
	}
	for scheme, want := range tests {
		t.Run(scheme, func(t *testing.T) {
			got, ok := adapter.ForScheme(scheme)
			require.True(t, ok)
			assert.Equal(t, want, got)
		})
	}
}
