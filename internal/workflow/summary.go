package workflow

// Operation names.
const (
	OpDiscover = "discover"
	OpVerify   = "verify"
	OpDetect   = "detect"
)

// Status is the per-dataset result of an operation.
type Status string

// Statuses.
const (
	StatusWritten       Status = "written"
	StatusSkipped       Status = "skipped"
	StatusLoadFailed    Status = "load_failed"
	StatusNoConstraints Status = "no_constraints"
	StatusPassed        Status = "passed"
	StatusFailed        Status = "failed"
	StatusAnomalies     Status = "anomalies"
)

// Outcome records what happened to one dataset.
type Outcome struct {
	Dataset  string `json:"dataset"`
	Status   Status `json:"status"`
	Passes   int    `json:"passes,omitempty"`
	Failures int    `json:"failures,omitempty"`
	Path     string `json:"path,omitempty"`
}

// Summary collects outcomes in processing order.
type Summary struct {
	Operation string    `json:"operation"`
	Outcomes  []Outcome `json:"outcomes"`
}

func (s *Summary) add(o Outcome) {
	s.Outcomes = append(s.Outcomes, o)
}

// Count returns the number of outcomes with the given status.
func (s *Summary) Count(status Status) int {
	n := 0
	for _, o := range s.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Datasets returns the processed dataset names in order.
func (s *Summary) Datasets() []string {
	out := make([]string, len(s.Outcomes))
	for i, o := range s.Outcomes {
		out[i] = o.Dataset
	}
	return out
}
