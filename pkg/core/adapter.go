package core

import (
	"context"
)

// Adapter defines the interface that all dataset loaders backed by a
// database driver must implement.
type Adapter interface {
	// Connect establishes a connection to the database.
	Connect(ctx context.Context, cfg AdapterConfig) error

	// Close closes the database connection.
	Close() error

	// QueryFrame executes a query and materializes the result as a Frame.
	QueryFrame(ctx context.Context, name, query string, args ...any) (*Frame, error)
}

// AdapterConfig holds configuration for connecting to a database.
type AdapterConfig struct {
	Type     string
	Path     string
	DSN      string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Options  map[string]string
	Params   map[string]any
}
