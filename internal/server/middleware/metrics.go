package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/stacman/stacman/internal/metrics"
	"github.com/stacman/stacman/internal/observability"
)

// statusRecorder captures the status and body size a handler wrote.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	n, err := s.ResponseWriter.Write(b)
	s.bytes += int64(n)
	return n, err
}

// routeLabel keeps metric labels bounded: the chi pattern when routing
// matched, otherwise a fixed bucket per known prefix.
func routeLabel(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}

	path := r.URL.Path
	switch {
	case strings.HasPrefix(path, "/v1/"):
		return "/v1/*"
	case path == "/health" || strings.HasPrefix(path, "/health/"):
		return "/health/*"
	case path == "/version", path == "/metrics", path == "/throttle", path == "/":
		return path
	default:
		return "/unknown"
	}
}

// RequestMetrics records count, latency and response size for every gateway
// request and logs it with its correlation id.
func RequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if observability.TelemetrySystem == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		elapsed := time.Since(start)

		route := routeLabel(r)
		metrics.RecordGatewayRequest(r.Method, route, recorder.status, elapsed)
		metrics.RecordGatewayResponse(route, recorder.status, recorder.bytes)

		if observability.ServerLogger != nil {
			observability.ServerLogger.Info("Gateway request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("route", route),
				zap.Int("status", recorder.status),
				zap.Duration("duration", elapsed),
				zap.Int64("response_bytes", recorder.bytes),
				zap.String("request_id", GetRequestID(r.Context())))
		}
	})
}
