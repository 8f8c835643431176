package observability_test

import (
	"testing"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stacman/stacman/internal/observability"
)

func TestLoggers(t *testing.T) {
	t.Run("CLI logger creation", func(t *testing.T) {
		observability.InitCLILogger("stacman-test", true)
		require.NotNil(t, observability.CLILogger)

		observability.CLILogger.Debug("Test CLI log message", zap.String("backoff_key", "questions"))
	})

	t.Run("Structured logger creation", func(t *testing.T) {
		observability.InitServerLogger("stacman-test", "debug", "stacman")
		require.NotNil(t, observability.ServerLogger)

		observability.ServerLogger.Info("Test structured log message",
			zap.String("component", "test"),
			zap.Int("in_flight", 3))
	})

	t.Run("Current prefers the server logger", func(t *testing.T) {
		require.Same(t, observability.ServerLogger, observability.Current())
		observability.SyncLoggers()
	})
}

func TestEmbeddedCrucible(t *testing.T) {
	version := crucible.GetVersion()
	require.NotEmpty(t, version.Gofulmen)
	require.NotEmpty(t, version.Crucible)
}

func TestMetricsDisabledByDefault(t *testing.T) {
	observability.DisableGlobalTelemetry()
	require.False(t, observability.MetricsEnabled())
}
