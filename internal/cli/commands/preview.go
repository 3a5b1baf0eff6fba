package commands

import (
	"fmt"

	"github.com/leapstack-labs/leaptdda/internal/cli/output"
	"github.com/leapstack-labs/leaptdda/pkg/constraints"
	"github.com/leapstack-labs/leaptdda/pkg/core"
	"github.com/leapstack-labs/leaptdda/pkg/hooks"
	"github.com/spf13/cobra"
)

const defaultPreviewRows = 10

// NewPreviewCommand creates the preview command.
func NewPreviewCommand() *cobra.Command {
	opts := &tddaOptions{}
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Load a dataset through the catalog and show its first rows",
		Long: `Load one dataset through the hooked catalog and print its first rows.

When a constraint specification is stored for the dataset, the load is
verified against it and deviations are logged as warnings.`,
		Example: `  # Show the first 10 rows of a dataset
  leaptdda tdda preview -d companies

  # Show 5 rows from the local environment as JSON
  leaptdda tdda preview -d companies -e local --rows 5 --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPreview(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.dataset, flagDataset, "d", "", "Dataset to load")
	_ = cmd.MarkFlagRequired(flagDataset)
	addEnvFlag(cmd, opts)
	cmd.Flags().IntVar(&opts.rows, flagRows, defaultPreviewRows, "Number of rows to show")
	return cmd
}

func runPreview(cmd *cobra.Command, opts *tddaOptions) error {
	mgr := hooks.NewManager(hooks.NewTddaHooks(constraints.New()))
	cmdCtx, cleanup, err := NewCommandContext(cmd, envFor(cmd, opts.env), mgr)
	if err != nil {
		return err
	}
	defer cleanup()

	f, err := cmdCtx.Settings.Catalog.Load(cmd.Context(), opts.dataset)
	if err != nil {
		return err
	}

	out := previewOf(opts.dataset, f, opts.rows)
	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, out.Dataset))
		r.Println("")
	default:
		r.Header(1, out.Dataset)
	}

	header := make([]string, len(out.Columns))
	for i, c := range out.Columns {
		header[i] = fmt.Sprintf("%s (%s)", c.Name, c.Kind)
	}
	rows := make([][]any, len(out.Rows))
	for i, row := range out.Rows {
		rows[i] = make([]any, len(row))
		for j, v := range row {
			rows[i][j] = constraints.FormatValue(v)
		}
	}
	r.Table(header, rows)
	r.Printf("(%d of %d rows)\n", len(out.Rows), out.TotalRows)
	return nil
}

func previewOf(name string, f *core.Frame, n int) output.PreviewOutput {
	head := f.Head(n)
	out := output.PreviewOutput{
		Dataset:   name,
		Columns:   make([]output.ColumnInfo, len(f.Series)),
		Rows:      make([][]any, head.NumRows()),
		TotalRows: f.NumRows(),
	}
	for i, s := range f.Series {
		out.Columns[i] = output.ColumnInfo{Name: s.Name, Kind: string(s.Kind)}
	}
	for i := range out.Rows {
		out.Rows[i] = head.Row(i)
	}
	return out
}
