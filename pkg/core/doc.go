// Package core defines the shared language of leaptdda.
//
// This package contains:
//   - Tabular data (Frame, Series, Kind)
//   - Constraint specifications (Spec, Rules, Metadata)
//   - Verification results (Verification, FieldResult, FailedCheck)
//   - Dataset selection (Target)
//   - Adapter configuration (AdapterConfig)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
