package server

import (
	"net/http"

	"github.com/fulmenhq/gofulmen/signals"
	"go.uber.org/zap"

	"github.com/stacman/stacman/internal/observability"
	"github.com/stacman/stacman/internal/server/handlers"
	servermw "github.com/stacman/stacman/internal/server/middleware"
)

const (
	adminSignalPath = "/admin/signal"
	// per minute
	adminRateLimit = 10
	adminRateBurst = 5
)

// infoRoutes are never rate limited.
var infoRoutes = map[string]http.HandlerFunc{
	"/health":         handlers.HealthHandler,
	"/health/live":    handlers.LivenessHandler,
	"/health/ready":   handlers.ReadinessHandler,
	"/health/startup": handlers.StartupHandler,
	"/version":        handlers.VersionHandler,
	"/metrics":        MetricsHandler,
}

func (s *Server) registerRoutes() {
	for path, h := range infoRoutes {
		s.router.Get(path, h)
	}
	s.router.Get("/throttle", s.handleThrottle)

	// Proxied API calls share the inbound limiter.
	s.router.With(servermw.RateLimit(s.opts.RateLimit, s.opts.RateBurst)).Get("/v1/*", s.handleProxy)

	if s.opts.AdminToken != "" {
		s.mountAdmin(observability.Current())
	}
}

// mountAdmin exposes the gofulmen signal endpoint behind the bearer token.
func (s *Server) mountAdmin(logger observability.Logger) {
	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: s.opts.AdminToken,
		RateLimit: adminRateLimit,
		RateBurst: adminRateBurst,
	})
	s.router.Post(adminSignalPath, handler.ServeHTTP)

	logger.Info("Admin signal endpoint enabled",
		zap.String("path", adminSignalPath),
		zap.Int("rate_limit_per_min", adminRateLimit),
		zap.Int("rate_burst", adminRateBurst))
	logger.Warn("Admin endpoint enabled; keep this gateway off the public internet")
}
