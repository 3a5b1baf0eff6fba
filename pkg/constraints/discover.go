package constraints

import (
	"sort"
	"time"
	"unicode/utf8"

	"github.com/leapstack-labs/leaptdda/pkg/core"
)

// Discover infers a constraint specification from the data in f.
func (e *Engine) Discover(f *core.Frame) *core.Spec {
	spec := core.NewSpec()
	for _, s := range f.Series {
		spec.Fields[s.Name] = e.discoverField(s)
	}
	spec.Metadata = e.metadata(f)
	spec.Normalize()
	return spec
}

func (e *Engine) metadata(f *core.Frame) *core.Metadata {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	t := now()
	return &core.Metadata{
		LocalTime: t.Local().Format(metadataLayout),
		UTCTime:   t.UTC().Format(metadataLayout),
		Creator:   e.Creator,
		Host:      hostname(),
		User:      username(),
		NRecords:  f.NumRows(),
		NSelected: f.NumRows(),
	}
}

func (e *Engine) discoverField(s *core.Series) core.Rules {
	rules := core.Rules{}
	nulls := s.NullCount()
	values := nonNull(s.Values)

	if s.Kind != core.KindUnknown {
		rules[core.RuleType] = string(s.Kind)
	}
	if nulls < 2 {
		rules[core.RuleMaxNulls] = nulls
	}
	if len(values) == 0 {
		return rules
	}

	switch {
	case s.Kind.IsNumeric():
		lo, hi := extremes(values)
		rules[core.RuleMin] = lo
		rules[core.RuleMax] = hi
		if sign := discoverSign(values); sign != "" {
			rules[core.RuleSign] = sign
		}
	case s.Kind == core.KindDate:
		lo, hi := extremes(values)
		rules[core.RuleMin] = formatBound(lo.(time.Time))
		rules[core.RuleMax] = formatBound(hi.(time.Time))
	case s.Kind == core.KindString:
		minLen, maxLen := -1, 0
		for _, v := range values {
			n := utf8.RuneCountInString(v.(string))
			if minLen < 0 || n < minLen {
				minLen = n
			}
			if n > maxLen {
				maxLen = n
			}
		}
		rules[core.RuleMinLength] = minLen
		rules[core.RuleMaxLength] = maxLen
		if distinct := distinctKeys(values); len(distinct) <= e.maxCategories() {
			allowed := make([]any, len(distinct))
			for i, v := range distinct {
				allowed[i] = v
			}
			rules[core.RuleAllowedValues] = allowed
		}
	}

	if (s.Kind == core.KindString || s.Kind == core.KindInt) && len(values) > 1 &&
		len(distinctKeys(values)) == len(values) {
		rules[core.RuleNoDuplicates] = true
	}
	return rules
}

func (e *Engine) maxCategories() int {
	if e.MaxCategories <= 0 {
		return DefaultMaxCategories
	}
	return e.MaxCategories
}

func nonNull(values []any) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		if v != nil {
			out = append(out, v)
		}
	}
	return out
}

// extremes returns the smallest and largest of a non-empty, comparable list.
func extremes(values []any) (lo, hi any) {
	lo, hi = values[0], values[0]
	for _, v := range values[1:] {
		if c, ok := compare(v, lo); ok && c < 0 {
			lo = v
		}
		if c, ok := compare(v, hi); ok && c > 0 {
			hi = v
		}
	}
	return lo, hi
}

func discoverSign(values []any) string {
	var neg, zero, pos bool
	for _, v := range values {
		f, ok := asFloat(v)
		if !ok {
			return ""
		}
		switch {
		case f < 0:
			neg = true
		case f > 0:
			pos = true
		default:
			zero = true
		}
	}
	switch {
	case pos && !neg && !zero:
		return SignPositive
	case !neg && pos:
		return SignNonNegative
	case zero && !neg && !pos:
		return SignZero
	case neg && !pos && !zero:
		return SignNegative
	case neg && !pos:
		return SignNonPositive
	default:
		return ""
	}
}

func distinctKeys(values []any) []string {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		seen[valueKey(v)] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
