package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stacman/stacman"
	"github.com/stacman/stacman/internal/config"
	errwrap "github.com/stacman/stacman/internal/errors"
	"github.com/stacman/stacman/internal/observability"
	"github.com/stacman/stacman/internal/server"
	"github.com/stacman/stacman/internal/server/handlers"
)

var (
	serverPort int
	serverHost string
)

// telemetryHealthChecker ensures telemetry system and exporter are available
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return errwrap.NewInternalError("telemetry system not initialized")
	}
	return nil
}

// dispatcherHealthChecker reports the gateway unhealthy while its queue is
// longer than the pool can drain within one throttle window.
func dispatcherHealthChecker(client *stacman.Client) handlers.CheckerFunc {
	return func(ctx context.Context) error {
		if client == nil {
			return errwrap.NewServiceUnavailableError("API client is not configured")
		}
		if backlog := client.Queued(); backlog > client.ThrottleLimit()*4 {
			return errwrap.NewServiceUnavailableError(fmt.Sprintf("dispatch backlog of %d requests", backlog))
		}
		return nil
	}
}

// serveOverrides turns --host, --port and the client flags into config
// overrides. They are reapplied on every SIGHUP reload.
func serveOverrides(cmd *cobra.Command) map[string]any {
	overrides := map[string]any{}
	srv := map[string]any{}
	if cmd.Flags().Changed("host") {
		srv["host"] = serverHost
	}
	if cmd.Flags().Changed("port") {
		srv["port"] = serverPort
	}
	if len(srv) > 0 {
		overrides["server"] = srv
	}
	if extra := flagOverrides(); extra != nil {
		overrides["client"] = extra["client"]
	}
	return overrides
}

// publishGatewayState wires the health checkers and the /version client
// block for s.
func publishGatewayState(cfg *config.Config, s *session) {
	handlers.InitHealthManager(buildInfo().Version)
	handlers.SetAppName(config.AppName)
	handlers.SetClientInfo(&handlers.ClientInfo{
		BaseURL:        s.client.BaseURL(),
		Site:           s.client.Site(),
		UserAgent:      cfg.Client.UserAgent,
		Keyed:          s.client.Key() != "",
		ThrottleLimit:  s.client.ThrottleLimit(),
		ThrottleWindow: s.client.ThrottleWindow().String(),
	})

	hm := handlers.GetHealthManager()
	hm.RegisterChecker("dispatcher", dispatcherHealthChecker(s.client))
	if cfg.Metrics.Enabled {
		hm.RegisterChecker("telemetry", telemetryHealthChecker{})
	}
	if db := s.store; db != nil {
		hm.RegisterChecker("store", handlers.CheckerFunc(func(ctx context.Context) error {
			return db.DB.PingContext(ctx)
		}))
	}
}

// installSignalHandlers registers shutdown (LIFO: server, then client, then
// logger) and SIGHUP reload.
func installSignalHandlers(srv *server.Server, s *session, overrides map[string]any, shutdownTimeout time.Duration) {
	log := observability.ServerLogger

	signals.OnShutdown(func(ctx context.Context) error {
		if err := log.Sync(); err != nil {
			// stderr may already be closed
			log.Warn("Logger sync returned error", zap.Error(err))
		}
		return nil
	})

	signals.OnShutdown(func(ctx context.Context) error {
		log.Info("Draining API client...",
			zap.Int("in_flight", s.client.InFlight()),
			zap.Int("queued", s.client.Queued()))
		if err := s.Close(); err != nil {
			log.Warn("Client shutdown incomplete", zap.Error(err))
		}
		return nil
	})

	signals.OnShutdown(func(ctx context.Context) error {
		log.Info("Shutting down HTTP server...")
		ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return errwrap.WrapInternal(ctx, err, "server shutdown failed")
		}
		log.Info("HTTP server stopped gracefully")
		return nil
	})

	signals.OnReload(func(ctx context.Context) error {
		reloaded, err := config.Load(ctx, overrides)
		if err != nil {
			log.Error("Failed to reload config", zap.String("file", config.ConfigFileUsed()), zap.Error(err))
			return errwrap.WrapInvalidInput(ctx, err, "config reload failed")
		}

		// Window, site and store changes need a restart; the dispatcher
		// settings apply to the next queued task.
		s.client.SetMaxConcurrent(reloaded.Client.MaxConcurrent)
		s.client.SetTimeout(reloaded.Client.Timeout)
		s.client.SetRespectBackoffs(reloaded.Client.RespectBackoffs)

		log.Info("Configuration reloaded",
			zap.String("file", config.ConfigFileUsed()),
			zap.Int("max_concurrent", s.client.MaxConcurrent()),
			zap.Duration("timeout", s.client.Timeout()),
			zap.Bool("respect_backoffs", s.client.RespectBackoffs()))
		return nil
	})

	if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
		Window:  2 * time.Second,
		Message: "Press Ctrl+C again within 2 seconds to force quit",
	}); err != nil {
		log.Warn("Failed to enable double-tap force quit", zap.Error(err))
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP gateway",
	Long: `Start an HTTP gateway that proxies GET /v1/{method} to the API through one
shared, throttled client.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Reload config and apply client settings

The gateway drains queued requests and persists throttle state on shutdown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		overrides := serveOverrides(cmd)
		cfg, err := config.Load(ctx, overrides)
		if err != nil {
			return errwrap.WrapInvalidInput(ctx, err, "config load failed")
		}

		namespace := config.AppName
		observability.InitServerLogger(config.AppName, cfg.Logging.Level, namespace)
		log := observability.ServerLogger

		metricsPort := cfg.Metrics.Port
		if cfg.Metrics.Enabled {
			if err := observability.InitMetrics(config.AppName, metricsPort, namespace); err != nil {
				log.Error("Failed to initialize metrics", zap.Error(err))
				return errwrap.WrapInternal(ctx, err, "metrics initialization failed")
			}
			metricsPort = observability.GetMetricsPort()
		}

		s, err := newSession(ctx, cfg, log)
		if err != nil {
			return errwrap.WrapInternal(ctx, err, "client initialization failed")
		}

		log.Info("Initializing server",
			zap.String("version", buildInfo().Version),
			zap.String("addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)),
			zap.Int("metrics_port", metricsPort),
			zap.String("site", s.client.Site()),
			zap.Bool("keyed", s.client.Key() != ""),
			zap.Bool("persist_throttle", s.store != nil))

		publishGatewayState(cfg, s)

		srv := server.New(server.Options{
			Host:         cfg.Server.Host,
			Port:         cfg.Server.Port,
			Client:       s.client,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
			RateLimit:    cfg.Server.RateLimit,
			RateBurst:    cfg.Server.RateBurst,
			AdminToken:   os.Getenv(config.EnvPrefix + "_ADMIN_TOKEN"),
			MetricsPort:  metricsPort,
		})

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if shutdownTimeout <= 0 {
			shutdownTimeout = 10 * time.Second
		}
		installSignalHandlers(srv, s, overrides, shutdownTimeout)

		// Start only reports failures; Listen returns once shutdown handlers
		// have run.
		done := make(chan error, 2)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- err
			}
		}()
		go func() { done <- signals.Listen(ctx) }()

		if err := <-done; err != nil {
			log.Error("Gateway stopped", zap.Error(err))
			_ = s.Close()
			return errwrap.WrapInternal(ctx, err, "server error")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "localhost", "server host")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "server port")
}
