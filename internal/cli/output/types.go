package output

// DatasetInfo describes one catalog entry for the list command.
type DatasetInfo struct {
	Name           string `json:"name"`
	Type           string `json:"type"`
	Tabular        bool   `json:"tabular"`
	Loadable       bool   `json:"loadable"`
	HasConstraints bool   `json:"has_constraints"`
	ConstraintPath string `json:"constraint_path,omitempty"`
}

// ListOutput is the JSON shape of the list command.
type ListOutput struct {
	Env      string        `json:"env"`
	TddaDir  string        `json:"tdda_dir"`
	Datasets []DatasetInfo `json:"datasets"`
	// Orphaned names stored specifications with no catalog entry.
	Orphaned []string `json:"orphaned"`
}

// ColumnInfo describes a previewed column.
type ColumnInfo struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// PreviewOutput is the JSON shape of the preview command.
type PreviewOutput struct {
	Dataset   string       `json:"dataset"`
	Columns   []ColumnInfo `json:"columns"`
	Rows      [][]any      `json:"rows"`
	TotalRows int          `json:"total_rows"`
}
