// Package constraints discovers, verifies and detects violations of
// TDDA-style field constraints on a core.Frame.
//
// Rule names and parameter shapes follow the TDDA constraint file format so
// specifications stay interchangeable with TDDA tooling:
//
//	type            int | real | string | bool | date
//	min, max        numeric, date or string bounds
//	min_length      shortest string
//	max_length      longest string
//	sign            positive | non-negative | zero | non-positive | negative | null
//	max_nulls       maximum number of nulls
//	no_duplicates   all non-null values distinct
//	allowed_values  closed set of string values
//	rex             list of regular expressions, one must match each value
package constraints

import (
	"os"
	"time"
)

// DefaultMaxCategories is the largest number of distinct string values for
// which Discover emits an allowed_values rule.
const DefaultMaxCategories = 20

// Engine holds discovery tunables. The zero value is not usable; call New.
type Engine struct {
	// MaxCategories bounds allowed_values discovery.
	MaxCategories int
	// Creator is recorded in creation metadata.
	Creator string
	// Now supplies timestamps for creation metadata.
	Now func() time.Time
}

// New returns an engine with default settings.
func New() *Engine {
	return &Engine{
		MaxCategories: DefaultMaxCategories,
		Creator:       "leaptdda",
		Now:           time.Now,
	}
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return ""
	}
	return h
}

func username() string {
	for _, key := range []string{"USER", "USERNAME", "LOGNAME"} {
		if u := os.Getenv(key); u != "" {
			return u
		}
	}
	return ""
}
