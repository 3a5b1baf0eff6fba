// Package report turns verification results into log records or errors.
package report

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/leaptdda/pkg/core"
)

// FailureMark prefixes each failed check in a failure message.
const FailureMark = "✗"

// VerificationError is returned in strict mode when a dataset fails one or
// more checks.
type VerificationError struct {
	Dataset string
	Failed  []core.FailedCheck
}

func (e *VerificationError) Error() string {
	return FailureMessage(e.Dataset, e.Failed)
}

// FailureMessage renders the multi-line description of failed checks.
func FailureMessage(dataset string, failed []core.FailedCheck) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Dataset `%s` deviates from constraint specification:", dataset)
	for _, fc := range failed {
		fmt.Fprintf(&sb, "\n%s %s: %s", FailureMark, fc.Field, fc.Rule)
	}
	return sb.String()
}

// SummaryMessage renders the one-line pass/fail summary.
func SummaryMessage(dataset string, v *core.Verification) string {
	return fmt.Sprintf("Verification summary `%s`: %d passes, %d failures", dataset, v.Passes, v.Failures)
}

// Reporter logs verification outcomes.
type Reporter struct {
	logger *slog.Logger
}

// New creates a reporter. A nil logger discards output.
func New(logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reporter{logger: logger}
}

// Report logs the outcome of verifying dataset. With no failures it logs an
// info summary. Otherwise strict mode returns a *VerificationError and
// lenient mode logs the failure message as a warning and returns nil.
func (r *Reporter) Report(dataset string, v *core.Verification, strict bool) error {
	if v.Failures == 0 {
		r.logger.Info(SummaryMessage(dataset, v),
			slog.String("dataset", dataset),
			slog.Int("passes", v.Passes),
			slog.Int("failures", v.Failures))
		return nil
	}

	failed := v.FailedChecks()
	if strict {
		return &VerificationError{Dataset: dataset, Failed: failed}
	}
	r.logger.Warn(FailureMessage(dataset, failed),
		slog.String("dataset", dataset),
		slog.Int("passes", v.Passes),
		slog.Int("failures", v.Failures))
	return nil
}
