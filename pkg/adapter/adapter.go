// Package adapter provides the database-backed dataset loader contract for
// leaptdda.
//
// Concrete adapter implementations are in pkg/adapters/ subdirectories and
// register themselves by name from init().
package adapter

import (
	"github.com/leapstack-labs/leaptdda/pkg/core"
)

// Type aliases so adapter implementations only need to import this package.
type (
	// Config is an alias for core.AdapterConfig.
	Config = core.AdapterConfig

	// Adapter is an alias for core.Adapter.
	Adapter = core.Adapter
)
