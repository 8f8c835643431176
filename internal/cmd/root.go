package cmd

import (
	"github.com/spf13/cobra"

	"github.com/stacman/stacman/internal/config"
	"github.com/stacman/stacman/internal/observability"
	"github.com/stacman/stacman/internal/server/handlers"
)

// Persistent flags.
var (
	cfgFile  string
	envFiles []string
	verbose  bool
	apiKey   string
	siteName string
)

// SetVersionInfo records the ldflags build metadata for the CLI and for the
// gateway's /version endpoint.
func SetVersionInfo(version, commit, buildDate string) {
	handlers.SetVersionInfo(version, commit, buildDate)
}

func buildInfo() handlers.BuildInfo {
	return handlers.CurrentBuildInfo()
}

var rootCmd = &cobra.Command{
	Use:   config.AppName,
	Short: "Throttled Stack Exchange API client",
	Long: `stacman queries the Stack Exchange API while keeping to its request
budget and honoring the backoffs the API hands out.

Every invocation shares a persisted window so scripted runs stay inside
the quota. Use "stacman serve" to put the same client behind an HTTP gateway.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Config loading must not emit metrics to stdout; serve turns telemetry
	// back on once the exporter is up.
	observability.DisableGlobalTelemetry()

	cobra.OnInitialize(func() {
		observability.InitCLILogger(config.AppName, verbose)
		config.SetConfigFile(cfgFile)
		config.SetDotEnvFiles(envFiles...)
	})

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/stacman/config.yaml)")
	flags.StringSliceVar(&envFiles, "env-file", []string{".env"}, "dotenv files to load before reading STACMAN_* variables")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
	flags.StringVar(&apiKey, "key", "", "application key (overrides client.key)")
	flags.StringVar(&siteName, "site", "", "default site (overrides client.site)")
}
