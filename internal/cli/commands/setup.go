package commands

import (
	"log/slog"

	"github.com/leapstack-labs/leaptdda/internal/cli/config"
	"github.com/leapstack-labs/leaptdda/internal/cli/output"
	"github.com/leapstack-labs/leaptdda/internal/report"
	"github.com/leapstack-labs/leaptdda/internal/settings"
	"github.com/leapstack-labs/leaptdda/internal/workflow"
	"github.com/leapstack-labs/leaptdda/pkg/constraints"
	"github.com/leapstack-labs/leaptdda/pkg/hooks"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Settings *settings.Settings
	Runner   *workflow.Runner
	Renderer *output.Renderer
}

// NewCommandContext resolves the project settings for env and wires a
// workflow runner. When hookMgr is set its hooks observe the catalog.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command, env string, hookMgr *hooks.Manager) (*CommandContext, func(), error) {
	cfg := config.FromContext(cmd.Context())
	logger := config.GetLogger(cmd.Context()).With(slog.String("env", env))

	s, err := settings.Resolve(cmd.Context(), settings.Options{
		ProjectRoot:    cfg.ProjectRoot,
		ConfSource:     cfg.ConfSource,
		BaseEnv:        cfg.BaseEnv,
		Env:            env,
		DuckDBPath:     cfg.DuckDB.Path,
		DuckDBSettings: cfg.DuckDB.Settings,
		Logger:         logger,
		Hooks:          hookMgr,
	})
	if err != nil {
		return nil, nil, err
	}

	runner := &workflow.Runner{
		Catalog:     s.Catalog,
		Store:       s.Store,
		Engine:      constraints.New(),
		Reporter:    report.New(logger),
		Logger:      logger,
		DisplayPath: s.RelPath,
	}

	cleanup := func() {
		if err := s.Close(); err != nil {
			logger.Warn("failed to close catalog", slog.Any("error", err))
		}
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Settings: s,
		Runner:   runner,
		Renderer: newRenderer(cmd, cfg),
	}, cleanup, nil
}

func newRenderer(cmd *cobra.Command, cfg *config.Config) *output.Renderer {
	return output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Output))
}

// envFor returns the --env flag when set, otherwise the configured default.
func envFor(cmd *cobra.Command, flagValue string) string {
	if cmd.Flags().Changed(flagEnv) {
		return flagValue
	}
	return config.FromContext(cmd.Context()).DefaultEnv
}
