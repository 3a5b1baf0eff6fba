package constraints

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the layout used for date bounds in specifications. Bounds
// are written in UTC; fractional seconds are kept when present.
const DateLayout = "2006-01-02 15:04:05.999999999"

// metadataLayout stamps discovery times to the second.
const metadataLayout = "2006-01-02 15:04:05"

var dateLayouts = []string{
	DateLayout,
	metadataLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}

func asTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		return parseDate(x)
	default:
		return time.Time{}, false
	}
}

// compare orders two values of compatible types. ok is false when the
// values cannot be compared, which counts as a failed check.
func compare(a, b any) (int, bool) {
	if ai, aok := a.(int64); aok {
		if bi, bok := b.(int64); bok {
			return cmpOrdered(ai, bi), true
		}
	}
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			return cmpOrdered(af, bf), true
		}
		return 0, false
	}
	if at, aok := a.(time.Time); aok {
		if bt, bok := asTime(b); bok {
			return at.Compare(bt), true
		}
		return 0, false
	}
	if as, aok := a.(string); aok {
		if bs, bok := b.(string); bok {
			return strings.Compare(as, bs), true
		}
	}
	return 0, false
}

func cmpOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		return int(x), x == float64(int(x))
	default:
		return 0, false
	}
}

// stringList converts a YAML list parameter into strings.
func stringList(v any) ([]string, bool) {
	switch x := v.(type) {
	case []string:
		return x, true
	case []any:
		out := make([]string, len(x))
		for i, item := range x {
			out[i] = fmt.Sprint(item)
		}
		return out, true
	default:
		return nil, false
	}
}

// FormatValue renders a frame value for CSV output. Nulls are empty.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(DateLayout)
	default:
		return fmt.Sprint(x)
	}
}

// formatBound renders a date bound as a UTC instant.
func formatBound(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// valueKey is the identity used for duplicate detection and allowed values.
// Times compare as instants, whatever their zone.
func valueKey(v any) string {
	if t, ok := v.(time.Time); ok {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return FormatValue(v)
}
