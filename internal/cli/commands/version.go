package commands

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// BuildInfo identifies a leaptdda binary.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// resolved fills unknown fields from the VCS stamp the Go toolchain embeds.
func (b BuildInfo) resolved() BuildInfo {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return b
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if b.Commit == "" || b.Commit == "unknown" {
				b.Commit = s.Value
			}
		case "vcs.time":
			if b.Date == "" || b.Date == "unknown" {
				b.Date = s.Value
			}
		}
	}
	return b
}

// NewVersionCommand creates the version command.
func NewVersionCommand(build BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display the leaptdda version, the commit and date it was built from, and the Go runtime.`,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			b := build.resolved()
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "leaptdda v%s\n", b.Version)
			_, _ = fmt.Fprintf(w, "  commit: %s\n", b.Commit)
			_, _ = fmt.Fprintf(w, "  built:  %s\n", b.Date)
			_, _ = fmt.Fprintf(w, "  go:     %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
