package cmd

import (
	"fmt"
	"io"
	"runtime"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"

	"github.com/stacman/stacman/internal/config"
	"github.com/stacman/stacman/internal/core/fetch"
)

var extended bool

func writeVersion(out io.Writer, extended bool) error {
	build := buildInfo()
	if _, err := fmt.Fprintf(out, "%s %s\n", config.AppName, build.Version); err != nil || !extended {
		return err
	}

	deps := crucible.GetVersion()
	lines := [][2]string{
		{"Commit", build.Commit},
		{"Built", build.BuildDate},
		{"Go", runtime.Version()},
		{"User-Agent", fetch.DefaultUserAgent},
		{"Gofulmen", deps.Gofulmen},
		{"Crucible", deps.Crucible},
	}
	for _, l := range lines {
		if _, err := fmt.Fprintf(out, "%s: %s\n", l[0], l[1]); err != nil {
			return err
		}
	}
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print version information. Use --extended to add build, Go and library versions.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeVersion(cmd.OutOrStdout(), extended)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVarP(&extended, "extended", "e", false, "show extended version information")
}
