package core

import (
	"fmt"
	"math/big"
	"time"
)

// Kind is the logical type of a Series, using TDDA type names.
type Kind string

// Kind constants.
const (
	KindInt     Kind = "int"
	KindReal    Kind = "real"
	KindString  Kind = "string"
	KindBool    Kind = "bool"
	KindDate    Kind = "date"
	KindUnknown Kind = "unknown"
)

// IsNumeric reports whether values of this kind are int64 or float64.
func (k Kind) IsNumeric() bool {
	return k == KindInt || k == KindReal
}

// Series is a single named column of a Frame.
// Values are normalized to int64, float64, string, bool, time.Time or nil.
type Series struct {
	Name   string
	Kind   Kind
	Values []any
}

// NullCount returns the number of nil values in the series.
func (s *Series) NullCount() int {
	n := 0
	for _, v := range s.Values {
		if v == nil {
			n++
		}
	}
	return n
}

// Frame is an in-memory tabular dataset loaded from the catalog.
type Frame struct {
	Name   string
	Series []*Series
}

// NewFrame creates an empty frame with the given name.
func NewFrame(name string) *Frame {
	return &Frame{Name: name}
}

// AddSeries appends a column. All columns must have the same length.
func (f *Frame) AddSeries(s *Series) error {
	if len(f.Series) > 0 && len(s.Values) != f.NumRows() {
		return fmt.Errorf("series %q has %d rows, frame has %d", s.Name, len(s.Values), f.NumRows())
	}
	if f.Column(s.Name) != nil {
		return fmt.Errorf("duplicate column %q", s.Name)
	}
	f.Series = append(f.Series, s)
	return nil
}

// NumRows returns the number of records.
func (f *Frame) NumRows() int {
	if f == nil || len(f.Series) == 0 {
		return 0
	}
	return len(f.Series[0].Values)
}

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	names := make([]string, len(f.Series))
	for i, s := range f.Series {
		names[i] = s.Name
	}
	return names
}

// Column returns the named series or nil.
func (f *Frame) Column(name string) *Series {
	for _, s := range f.Series {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Row returns the values of record i in column order.
func (f *Frame) Row(i int) []any {
	row := make([]any, len(f.Series))
	for j, s := range f.Series {
		row[j] = s.Values[i]
	}
	return row
}

// Head returns a frame with at most n leading records.
func (f *Frame) Head(n int) *Frame {
	if n < 0 || n > f.NumRows() {
		n = f.NumRows()
	}
	out := &Frame{Name: f.Name, Series: make([]*Series, len(f.Series))}
	for i, s := range f.Series {
		out.Series[i] = &Series{Name: s.Name, Kind: s.Kind, Values: s.Values[:n]}
	}
	return out
}

// NormalizeValue converts a driver value into one of the Series value types.
// Byte slices become strings; all integer widths become int64; float32 becomes float64.
func NormalizeValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(x)
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return int64(x) //nolint:gosec // dataset values larger than MaxInt64 are not expected
	case float32:
		return float64(x)
	case float64:
		return x
	case bool, string, time.Time:
		return x
	case *big.Int:
		if x.IsInt64() {
			return x.Int64()
		}
		f, _ := new(big.Float).SetInt(x).Float64()
		return f
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprintf("%v", x)
	}
}

// InferKind derives a Kind from the non-nil values of a column.
// Mixed int and real values widen to real; any other mix is a string column.
func InferKind(values []any) Kind {
	kind := KindUnknown
	for _, v := range values {
		var k Kind
		switch v.(type) {
		case nil:
			continue
		case int64:
			k = KindInt
		case float64:
			k = KindReal
		case bool:
			k = KindBool
		case time.Time:
			k = KindDate
		default:
			k = KindString
		}
		switch {
		case kind == KindUnknown:
			kind = k
		case kind == k:
		case kind.IsNumeric() && k.IsNumeric():
			kind = KindReal
		default:
			return KindString
		}
	}
	return kind
}
