package cmd

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stacman/stacman/internal/config"
	"github.com/stacman/stacman/internal/observability"
)

type envField struct {
	label string
	value string
}

type envSection struct {
	title  string
	fields []envField
}

func appSections() []envSection {
	deps, build := crucible.GetVersion(), buildInfo()
	return []envSection{
		{"Application", []envField{
			{"Name", config.AppName},
			{"Version", build.Version},
			{"Commit", build.Commit},
			{"Built", build.BuildDate},
		}},
		{"Libraries", []envField{
			{"Gofulmen", deps.Gofulmen},
			{"Crucible", deps.Crucible},
		}},
		{"Runtime", []envField{
			{"Go Version", runtime.Version()},
			{"Platform", runtime.GOOS + "/" + runtime.GOARCH},
			{"NumCPU", strconv.Itoa(runtime.NumCPU())},
		}},
	}
}

// configSections describes cfg without revealing secrets.
func configSections(cfg *config.Config) []envSection {
	storeField := envField{"DB Path", cfg.Store.Path}
	if strings.TrimSpace(cfg.Store.URL) != "" {
		storeField = envField{"DB URL", cfg.Store.URL}
	}
	file := config.ConfigFileUsed()
	if file == "" {
		file = "(defaults)"
	}

	return []envSection{
		{"Client", []envField{
			{"Base URL", cfg.Client.BaseURL},
			{"Site", cfg.Client.Site},
			{"Key", secretStatus(cfg.Client.Key)},
			{"User-Agent", cfg.Client.UserAgent},
			{"Timeout", cfg.Client.Timeout.String()},
			{"Max Concurrent", strconv.Itoa(cfg.Client.MaxConcurrent)},
			{"Respect Backoffs", strconv.FormatBool(cfg.Client.RespectBackoffs)},
		}},
		{"Throttle", []envField{
			{"Limit", fmt.Sprintf("%d per %s", cfg.Throttle.Limit, cfg.Throttle.Window)},
			{"Safety Margin", fmt.Sprintf("%.2f", cfg.Throttle.SafetyMargin)},
			{"Persist", strconv.FormatBool(cfg.Throttle.Persist)},
		}},
		{"Gateway", []envField{
			{"Listen", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)},
			{"Inbound Limit", fmt.Sprintf("%.1f/s burst %d", cfg.Server.RateLimit, cfg.Server.RateBurst)},
			{"Metrics", fmt.Sprintf("%t (port %d)", cfg.Metrics.Enabled, cfg.Metrics.Port)},
		}},
		{"Storage", []envField{
			{"DB Driver", cfg.Store.Driver},
			storeField,
			{"Auth Token", secretStatus(cfg.Store.AuthToken)},
		}},
		{"Logging", []envField{
			{"Level", cfg.Logging.Level},
			{"Profile", cfg.Logging.Profile},
			{"Config File", file},
		}},
	}
}

func logSections(log observability.Logger, sections []envSection) {
	width := 0
	for _, s := range sections {
		for _, f := range s.fields {
			width = max(width, len(f.label))
		}
	}
	for _, s := range sections {
		log.Info(s.title + ":")
		for _, f := range s.fields {
			log.Info(fmt.Sprintf("  %-*s  %s", width+1, f.label+":", f.value))
		}
		log.Info("")
	}
}

var envInfoCmd = &cobra.Command{
	Use:   "envinfo",
	Short: "Display environment information",
	Long:  "Display environment, configuration, and version information.",
	Run: func(cmd *cobra.Command, args []string) {
		log := observability.CLILogger
		log.Info("=== " + config.AppName + " environment ===")
		log.Info("")
		logSections(log, appSections())

		cfg, err := loadConfig(cmd.Context())
		if err != nil {
			log.Warn("Config load failed", zap.Error(err))
			return
		}
		logSections(log, configSections(cfg))
	},
}

func secretStatus(value string) string {
	if strings.TrimSpace(value) == "" {
		return "(not set)"
	}
	return "(set)"
}

func init() {
	rootCmd.AddCommand(envInfoCmd)
}
