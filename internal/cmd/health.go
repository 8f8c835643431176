package cmd

import (
	"context"
	"errors"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	apperrors "github.com/stacman/stacman/internal/errors"
	"github.com/stacman/stacman/internal/observability"
)

// selfCheck is one step of `stacman health`. A failing step stops the run
// and exits with code.
type selfCheck struct {
	name string
	code foundry.ExitCode
	run  func(ctx context.Context) error
}

func selfChecks() []selfCheck {
	return []selfCheck{
		{"Version information available", foundry.ExitConfigInvalid, func(context.Context) error {
			if buildInfo().Version == "" {
				return errors.New("version information missing")
			}
			return nil
		}},
		{"Configuration valid", foundry.ExitConfigInvalid, func(ctx context.Context) error {
			_, err := loadConfig(ctx)
			return err
		}},
		{"Client ready", foundry.ExitExternalServiceUnavailable, func(ctx context.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}
			s, err := newSession(ctx, cfg, observability.CLILogger)
			if err != nil {
				return err
			}
			return s.Close()
		}},
	}
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run self-health check",
	Long:  "Run a self-health check to verify the application can start successfully.",
	Run: func(cmd *cobra.Command, args []string) {
		log := observability.CLILogger
		if log == nil {
			ExitWithCodeStderr(foundry.ExitConfigInvalid, "Logger not initialized", apperrors.NewInternalError("logger not initialized"))
			return
		}
		log.Info("Running health check...")

		for _, check := range selfChecks() {
			if err := check.run(cmd.Context()); err != nil {
				log.Error("❌ FAIL: "+check.name, zap.Error(err))
				ExitWithCode(log, check.code, check.name+" failed", apperrors.WrapInternal(cmd.Context(), err, check.name))
				return
			}
			log.Info("✅ " + check.name)
		}

		log.Info("")
		log.Info("✅ All health checks passed", zap.String("version", buildInfo().Version))
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
