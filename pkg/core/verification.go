package core

// RuleResult is the outcome of a single rule check on a field.
type RuleResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
}

// FieldResult holds rule outcomes for one field, in check order.
type FieldResult struct {
	Name  string       `json:"name"`
	Rules []RuleResult `json:"rules"`
}

// FailedCheck identifies a (field, rule) pair that did not pass.
type FailedCheck struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// Verification is the result of checking a Frame against a Spec.
// It is never persisted.
type Verification struct {
	Passes   int           `json:"passes"`
	Failures int           `json:"failures"`
	Fields   []FieldResult `json:"fields"`
}

// Record appends a rule outcome for field and updates the counters.
// Fields are kept in first-recorded order.
func (v *Verification) Record(field, rule string, passed bool) {
	if passed {
		v.Passes++
	} else {
		v.Failures++
	}
	for i := range v.Fields {
		if v.Fields[i].Name == field {
			v.Fields[i].Rules = append(v.Fields[i].Rules, RuleResult{Name: rule, Passed: passed})
			return
		}
	}
	v.Fields = append(v.Fields, FieldResult{
		Name:  field,
		Rules: []RuleResult{{Name: rule, Passed: passed}},
	})
}

// FailedChecks returns every failed (field, rule) pair in field order,
// then rule order within the field.
func (v *Verification) FailedChecks() []FailedCheck {
	var out []FailedCheck
	for _, f := range v.Fields {
		for _, r := range f.Rules {
			if !r.Passed {
				out = append(out, FailedCheck{Field: f.Name, Rule: r.Name})
			}
		}
	}
	return out
}
