package core

import "sort"

// Rule names understood by the constraints engine, in canonical check order.
const (
	RuleType          = "type"
	RuleMin           = "min"
	RuleMax           = "max"
	RuleMinLength     = "min_length"
	RuleMaxLength     = "max_length"
	RuleSign          = "sign"
	RuleMaxNulls      = "max_nulls"
	RuleNoDuplicates  = "no_duplicates"
	RuleAllowedValues = "allowed_values"
	RuleRex           = "rex"
)

// RuleOrder lists the known rules in the order they are checked and reported.
var RuleOrder = []string{
	RuleType,
	RuleMin,
	RuleMax,
	RuleMinLength,
	RuleMaxLength,
	RuleSign,
	RuleMaxNulls,
	RuleNoDuplicates,
	RuleAllowedValues,
	RuleRex,
}

// Rules maps a rule name to its parameter for a single field.
type Rules map[string]any

// Metadata records how and when a specification was discovered.
type Metadata struct {
	LocalTime string `yaml:"local_time,omitempty" json:"local_time,omitempty"`
	UTCTime   string `yaml:"utc_time,omitempty" json:"utc_time,omitempty"`
	Creator   string `yaml:"creator,omitempty" json:"creator,omitempty"`
	Host      string `yaml:"host,omitempty" json:"host,omitempty"`
	User      string `yaml:"user,omitempty" json:"user,omitempty"`
	NRecords  int    `yaml:"n_records" json:"n_records"`
	NSelected int    `yaml:"n_selected" json:"n_selected"`
}

// Spec is a constraint specification for one dataset.
type Spec struct {
	Metadata *Metadata        `yaml:"creation_metadata,omitempty" json:"creation_metadata,omitempty"`
	Fields   map[string]Rules `yaml:"fields" json:"fields"`
}

// NewSpec returns an empty specification.
func NewSpec() *Spec {
	return &Spec{Fields: make(map[string]Rules)}
}

// FieldNames returns the constrained field names in sorted order.
func (s *Spec) FieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for name := range s.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OrderedRules returns the rule names of a field: known rules in RuleOrder,
// followed by unknown rules sorted by name.
func OrderedRules(r Rules) []string {
	out := make([]string, 0, len(r))
	known := make(map[string]bool, len(RuleOrder))
	for _, name := range RuleOrder {
		known[name] = true
		if _, ok := r[name]; ok {
			out = append(out, name)
		}
	}
	var extra []string
	for name := range r {
		if !known[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

// Normalize coerces rule parameters to the Go types the engine produces,
// so a specification read back from YAML compares equal to the one that
// was written. Integral reals decode from YAML as ints and are widened
// back here using the field's declared type.
func (s *Spec) Normalize() {
	if s.Fields == nil {
		s.Fields = make(map[string]Rules)
	}
	for _, rules := range s.Fields {
		kind, _ := rules[RuleType].(string)
		for name, v := range rules {
			switch name {
			case RuleMin, RuleMax:
				switch Kind(kind) {
				case KindReal:
					if f, ok := toFloat(v); ok {
						rules[name] = f
					}
				case KindInt:
					if n, ok := v.(int); ok {
						rules[name] = int64(n)
					}
				}
			case RuleMinLength, RuleMaxLength, RuleMaxNulls:
				if n, ok := v.(int64); ok {
					rules[name] = int(n)
				}
			case RuleAllowedValues, RuleRex:
				if list, ok := v.([]string); ok {
					out := make([]any, len(list))
					for i, item := range list {
						out[i] = item
					}
					rules[name] = out
				}
			}
		}
	}
}

func toFloat(v any) (float64, bool) {
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
