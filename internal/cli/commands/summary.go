package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leaptdda/internal/cli/output"
	"github.com/leapstack-labs/leaptdda/internal/workflow"
)

// renderResult prints the summary of a run, even a failed one, and returns
// the run error in preference to a rendering error.
func renderResult(cmdCtx *CommandContext, sum *workflow.Summary, runErr error) error {
	if sum == nil {
		return runErr
	}
	renderErr := renderSummary(cmdCtx.Renderer, sum, cmdCtx.Settings.RelPath)
	if runErr != nil {
		return runErr
	}
	return renderErr
}

func renderSummary(r *output.Renderer, sum *workflow.Summary, display func(string) string) error {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(sum)
	case output.ModeMarkdown:
		summaryMarkdown(r, sum, display)
	default:
		summaryText(r, sum, display)
	}
	return nil
}

func summaryTitle(sum *workflow.Summary) string {
	return fmt.Sprintf("TDDA %s (%d datasets)", sum.Operation, len(sum.Outcomes))
}

// summaryText outputs outcomes as styled status lines.
func summaryText(r *output.Renderer, sum *workflow.Summary, display func(string) string) {
	r.Println("")
	r.Header(2, summaryTitle(sum))
	if len(sum.Outcomes) == 0 {
		r.Muted("No tabular datasets in catalog")
		return
	}
	for _, o := range sum.Outcomes {
		r.StatusLine(o.Dataset, string(o.Status), outcomeDetail(o, display))
	}
}

// summaryMarkdown outputs outcomes as a markdown table.
func summaryMarkdown(r *output.Renderer, sum *workflow.Summary, display func(string) string) {
	r.Println(output.FormatHeader(2, summaryTitle(sum)))
	r.Println("")
	if len(sum.Outcomes) == 0 {
		r.Println("No tabular datasets in catalog.")
		return
	}

	rows := make([][]any, 0, len(sum.Outcomes))
	for _, o := range sum.Outcomes {
		path := ""
		if o.Path != "" {
			path = display(o.Path)
		}
		rows = append(rows, []any{o.Dataset, string(o.Status), o.Passes, o.Failures, path})
	}
	r.Table([]string{"Dataset", "Status", "Passes", "Failures", "Path"}, rows)
}

func outcomeDetail(o workflow.Outcome, display func(string) string) string {
	var parts []string
	if o.Passes > 0 || o.Failures > 0 {
		parts = append(parts, fmt.Sprintf("%d passes, %d failures", o.Passes, o.Failures))
	}
	if o.Path != "" {
		parts = append(parts, display(o.Path))
	}
	return strings.Join(parts, "  ")
}
