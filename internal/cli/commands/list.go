package commands

import (
	"fmt"

	"github.com/leapstack-labs/leaptdda/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	opts := &tddaOptions{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog datasets and their constraint files",
		Long: `List every catalog entry with its dataset type, whether it is tabular,
whether leaptdda can load it, and whether a constraint specification is
stored for it. Stored specifications without a catalog entry are listed as
orphaned.

Output adapts to environment:
  - Terminal: Styled, colored output
  - Piped/Scripted: Markdown format (agent-friendly)

Use --output to override: auto, text, markdown, json`,
		Example: `  # List datasets of the base environment
  leaptdda tdda list

  # List datasets as JSON
  leaptdda tdda list -e local --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, opts)
		},
	}
	addEnvFlag(cmd, opts)
	return cmd
}

func runList(cmd *cobra.Command, opts *tddaOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd, envFor(cmd, opts.env), nil)
	if err != nil {
		return err
	}
	defer cleanup()

	out := collectDatasets(cmdCtx)
	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		listMarkdown(r, out)
	default:
		listText(r, out)
	}
	return nil
}

func collectDatasets(cmdCtx *CommandContext) output.ListOutput {
	s := cmdCtx.Settings
	out := output.ListOutput{
		Env:      s.Env,
		TddaDir:  s.RelPath(s.TddaDir),
		Datasets: []output.DatasetInfo{},
		Orphaned: []string{},
	}

	names := s.Store.Names()
	stored := make(map[string]bool, len(names))
	for _, name := range names {
		stored[name] = true
	}

	for _, name := range s.Catalog.List() {
		entry, _ := s.Catalog.Entry(name)
		info := output.DatasetInfo{
			Name:     name,
			Type:     entry.DatasetType(),
			Tabular:  entry.IsTabular(),
			Loadable: entry.Loadable(),
		}
		if stored[name] {
			info.HasConstraints = true
			info.ConstraintPath = s.RelPath(s.Store.Path(name))
			delete(stored, name)
		}
		out.Datasets = append(out.Datasets, info)
	}

	for _, name := range names {
		if stored[name] {
			out.Orphaned = append(out.Orphaned, name)
		}
	}
	return out
}

// listText outputs datasets in styled text format.
func listText(r *output.Renderer, out output.ListOutput) {
	r.Header(1, fmt.Sprintf("Datasets (%d total)", len(out.Datasets)))
	for _, d := range out.Datasets {
		status := "no_constraints"
		detail := d.Type
		switch {
		case !d.Tabular:
			status = "not tabular"
		case !d.Loadable:
			status = "warning"
			detail += "  (cannot be loaded)"
		case d.HasConstraints:
			status = "success"
			detail += "  " + d.ConstraintPath
		}
		r.StatusLine(d.Name, status, detail)
	}
	for _, name := range out.Orphaned {
		r.StatusLine(name, "warning", "constraints without catalog entry")
	}
	r.Println("")
	r.Muted(fmt.Sprintf("Environment: %s  Constraints: %s", out.Env, out.TddaDir))
}

// listMarkdown outputs datasets in markdown format.
func listMarkdown(r *output.Renderer, out output.ListOutput) {
	r.Println(output.FormatHeader(1, fmt.Sprintf("Datasets (%d total)", len(out.Datasets))))
	r.Println("")
	r.Println(output.FormatKeyValue("Environment", out.Env))
	r.Println(output.FormatKeyValue("Constraints", out.TddaDir))
	r.Println("")

	rows := make([][]any, 0, len(out.Datasets))
	for _, d := range out.Datasets {
		rows = append(rows, []any{d.Name, d.Type, yesNo(d.Tabular), yesNo(d.Loadable), d.ConstraintPath})
	}
	r.Table([]string{"Dataset", "Type", "Tabular", "Loadable", "Constraints"}, rows)

	if len(out.Orphaned) > 0 {
		r.Println("")
		r.Println(output.FormatHeader(2, "Orphaned constraints"))
		r.Println("")
		for _, name := range out.Orphaned {
			r.Println("- " + name)
		}
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
