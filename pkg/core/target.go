package core

// Target selects which catalog datasets an operation applies to.
// The zero value selects every eligible dataset.
type Target struct {
	name string
}

// AllDatasets selects every tabular dataset in the catalog.
func AllDatasets() Target {
	return Target{}
}

// Dataset selects a single named dataset.
func Dataset(name string) Target {
	return Target{name: name}
}

// TargetFromFlag maps an optional --dataset value onto a Target.
func TargetFromFlag(name string) Target {
	if name == "" {
		return AllDatasets()
	}
	return Dataset(name)
}

// IsAll reports whether the target selects all eligible datasets.
func (t Target) IsAll() bool {
	return t.name == ""
}

// Name returns the selected dataset name and whether one was selected.
func (t Target) Name() (string, bool) {
	return t.name, t.name != ""
}

// Resolve returns the dataset names the target applies to, given the
// eligible datasets in catalog order.
func (t Target) Resolve(eligible []string) []string {
	if t.IsAll() {
		out := make([]string, len(eligible))
		copy(out, eligible)
		return out
	}
	return []string{t.name}
}

func (t Target) String() string {
	if t.IsAll() {
		return "<all>"
	}
	return t.name
}
