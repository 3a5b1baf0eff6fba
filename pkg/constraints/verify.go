package constraints

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/leapstack-labs/leaptdda/pkg/core"
)

// Sign rule parameters.
const (
	SignPositive    = "positive"
	SignNonNegative = "non-negative"
	SignZero        = "zero"
	SignNonPositive = "non-positive"
	SignNegative    = "negative"
	SignNull        = "null"
)

// Verify checks f against spec. Fields are checked in sorted order and the
// rules of each field in core.RuleOrder, with unrecognized rules last. An
// unrecognized rule, or a field absent from f, counts as a failure.
func (e *Engine) Verify(f *core.Frame, spec *core.Spec) *core.Verification {
	v := &core.Verification{}
	for _, field := range spec.FieldNames() {
		rules := spec.Fields[field]
		col := f.Column(field)
		for _, rule := range core.OrderedRules(rules) {
			if col == nil {
				v.Record(field, rule, false)
				continue
			}
			v.Record(field, rule, checkColumn(col, rule, rules[rule]))
		}
	}
	return v
}

// checkColumn evaluates one rule over a whole column.
func checkColumn(s *core.Series, rule string, param any) bool {
	switch rule {
	case core.RuleType:
		kind, ok := param.(string)
		if !ok {
			return false
		}
		return s.Kind == core.KindUnknown || kindMatches(s.Kind, core.Kind(kind))
	case core.RuleMaxNulls:
		limit, ok := asInt(param)
		return ok && s.NullCount() <= limit
	case core.RuleNoDuplicates:
		want, ok := param.(bool)
		if !ok {
			return false
		}
		return !want || len(duplicateKeys(s.Values)) == 0
	}

	check, ok := valueCheck(rule, param)
	if !ok {
		return false
	}
	for _, v := range s.Values {
		if v != nil && !check(v) {
			return false
		}
	}
	return true
}

func kindMatches(have, want core.Kind) bool {
	return have == want || (want == core.KindReal && have == core.KindInt)
}

// valueCheck returns a predicate for rules that are evaluated per non-null
// value. ok is false for unknown rules or malformed parameters.
func valueCheck(rule string, param any) (check func(any) bool, ok bool) {
	switch rule {
	case core.RuleType:
		kind, ok := param.(string)
		if !ok {
			return nil, false
		}
		return func(v any) bool { return kindMatches(core.InferKind([]any{v}), core.Kind(kind)) }, true
	case core.RuleMin, core.RuleMax:
		if param == nil {
			return nil, false
		}
		wantSign := 1
		if rule == core.RuleMax {
			wantSign = -1
		}
		return func(v any) bool {
			c, ok := compare(v, param)
			return ok && c*wantSign >= 0
		}, true
	case core.RuleMinLength, core.RuleMaxLength:
		limit, ok := asInt(param)
		if !ok {
			return nil, false
		}
		return func(v any) bool {
			s, ok := v.(string)
			if !ok {
				return false
			}
			n := utf8.RuneCountInString(s)
			if rule == core.RuleMinLength {
				return n >= limit
			}
			return n <= limit
		}, true
	case core.RuleSign:
		sign, ok := param.(string)
		if !ok {
			return nil, false
		}
		return signCheck(sign)
	case core.RuleAllowedValues:
		list, ok := stringList(param)
		if !ok {
			return nil, false
		}
		allowed := make(map[string]struct{}, len(list))
		for _, item := range list {
			allowed[item] = struct{}{}
		}
		return func(v any) bool {
			_, ok := allowed[valueKey(v)]
			return ok
		}, true
	case core.RuleRex:
		patterns, ok := stringList(param)
		if !ok {
			if p, isStr := param.(string); isStr {
				patterns, ok = []string{p}, true
			}
		}
		if !ok {
			return nil, false
		}
		res, err := compilePatterns(patterns)
		if err != nil {
			return nil, false
		}
		return func(v any) bool {
			s, ok := v.(string)
			if !ok {
				return false
			}
			for _, re := range res {
				if re.MatchString(s) {
					return true
				}
			}
			return false
		}, true
	default:
		return nil, false
	}
}

func signCheck(sign string) (func(any) bool, bool) {
	var pred func(float64) bool
	switch sign {
	case SignPositive:
		pred = func(f float64) bool { return f > 0 }
	case SignNonNegative:
		pred = func(f float64) bool { return f >= 0 }
	case SignZero:
		pred = func(f float64) bool { return f == 0 }
	case SignNonPositive:
		pred = func(f float64) bool { return f <= 0 }
	case SignNegative:
		pred = func(f float64) bool { return f < 0 }
	case SignNull:
		pred = func(float64) bool { return false }
	default:
		return nil, false
	}
	return func(v any) bool {
		f, ok := asFloat(v)
		return ok && pred(f)
	}, true
}

// compilePatterns anchors each pattern so it must match the whole value.
func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("^(?:" + p + ")$")
		if err != nil {
			return nil, fmt.Errorf("invalid rex pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// duplicateKeys returns the keys of non-null values occurring more than once.
func duplicateKeys(values []any) map[string]bool {
	counts := make(map[string]int, len(values))
	for _, v := range values {
		if v != nil {
			counts[valueKey(v)]++
		}
	}
	dups := make(map[string]bool)
	for k, n := range counts {
		if n > 1 {
			dups[k] = true
		}
	}
	return dups
}
