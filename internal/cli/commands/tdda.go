package commands

import (
	"github.com/leapstack-labs/leaptdda/internal/settings"
	"github.com/leapstack-labs/leaptdda/pkg/core"
	"github.com/spf13/cobra"
)

// Flag names shared by the tdda subcommands.
const (
	flagDataset   = "dataset"
	flagEnv       = "env"
	flagOverwrite = "overwrite"
	flagTargetDir = "target-dir"
	flagRows      = "rows"
)

// tddaOptions holds the flags of a tdda subcommand.
type tddaOptions struct {
	dataset   string
	env       string
	overwrite bool
	targetDir string
	rows      int
}

// NewTddaCommand creates the tdda command group.
func NewTddaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tdda",
		Short: "Test-driven data analysis for catalog datasets",
		Long: `Discover, verify and detect constraints on the tabular datasets of a
project's data catalog.

Constraint specifications are stored as YAML under conf/<env>/tdda/, one
file per dataset.`,
	}

	cmd.AddCommand(NewDiscoverCommand())
	cmd.AddCommand(NewVerifyCommand())
	cmd.AddCommand(NewDetectCommand())
	cmd.AddCommand(NewListCommand())
	cmd.AddCommand(NewPreviewCommand())
	return cmd
}

func addDatasetFlags(cmd *cobra.Command, opts *tddaOptions) {
	cmd.Flags().StringVarP(&opts.dataset, flagDataset, "d", "", "Dataset to process (default: all tabular datasets)")
	addEnvFlag(cmd, opts)
}

func addEnvFlag(cmd *cobra.Command, opts *tddaOptions) {
	cmd.Flags().StringVarP(&opts.env, flagEnv, "e", settings.DefaultBaseEnv, "Configuration environment")
}

// NewDiscoverCommand creates the discover command.
func NewDiscoverCommand() *cobra.Command {
	opts := &tddaOptions{}
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Infer constraints from datasets and store them",
		Long: `Load each selected dataset, infer a constraint specification from its
contents and write it to conf/<env>/tdda/<dataset>.yml.

Existing specifications are kept unless --overwrite is given.`,
		Example: `  # Discover constraints for every tabular dataset
  leaptdda tdda discover

  # Re-discover one dataset in the local environment
  leaptdda tdda discover -d companies -e local --overwrite`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDiscover(cmd, opts)
		},
	}
	addDatasetFlags(cmd, opts)
	cmd.Flags().BoolVarP(&opts.overwrite, flagOverwrite, "o", false, "Replace existing constraint files")
	return cmd
}

func runDiscover(cmd *cobra.Command, opts *tddaOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd, envFor(cmd, opts.env), nil)
	if err != nil {
		return err
	}
	defer cleanup()

	sum, err := cmdCtx.Runner.Discover(cmd.Context(), core.TargetFromFlag(opts.dataset), opts.overwrite)
	return renderResult(cmdCtx, sum, err)
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand() *cobra.Command {
	opts := &tddaOptions{}
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify datasets against stored constraints",
		Long: `Check each selected dataset against its stored constraint specification.

The command fails on the first dataset that deviates from its
specification, listing every failed field and rule.`,
		Example: `  # Verify every dataset with stored constraints
  leaptdda tdda verify

  # Verify one dataset
  leaptdda tdda verify -d companies`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVerify(cmd, opts)
		},
	}
	addDatasetFlags(cmd, opts)
	return cmd
}

func runVerify(cmd *cobra.Command, opts *tddaOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd, envFor(cmd, opts.env), nil)
	if err != nil {
		return err
	}
	defer cleanup()

	sum, err := cmdCtx.Runner.Verify(cmd.Context(), core.TargetFromFlag(opts.dataset))
	return renderResult(cmdCtx, sum, err)
}

// NewDetectCommand creates the detect command.
func NewDetectCommand() *cobra.Command {
	opts := &tddaOptions{}
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Write records that violate stored constraints",
		Long: `Check each selected dataset against its stored constraint specification
and write the failing records to <target-dir>/<dataset>.csv.

Deviations are reported as warnings and never fail the command.`,
		Example: `  # Detect anomalies in every dataset
  leaptdda tdda detect

  # Write anomalies for one dataset to a custom directory
  leaptdda tdda detect -d companies -t ./anomalies`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDetect(cmd, opts)
		},
	}
	addDatasetFlags(cmd, opts)
	cmd.Flags().StringVarP(&opts.targetDir, flagTargetDir, "t", "", "Directory for detection output (default: ./tdda_detect)")
	return cmd
}

func runDetect(cmd *cobra.Command, opts *tddaOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd, envFor(cmd, opts.env), nil)
	if err != nil {
		return err
	}
	defer cleanup()

	targetDir := cmdCtx.Cfg.TargetDirPath(opts.targetDir)
	sum, err := cmdCtx.Runner.Detect(cmd.Context(), core.TargetFromFlag(opts.dataset), targetDir)
	return renderResult(cmdCtx, sum, err)
}
