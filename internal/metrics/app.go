package metrics

import (
	"strconv"
	"time"

	"github.com/stacman/stacman/internal/observability"
)

// Metric names
const (
	DispatchTotal      = "stacman_dispatch_total"
	DispatchDuration   = "stacman_dispatch_duration_ms"
	ThrottleWaitsTotal = "stacman_throttle_waits_total"
	ThrottleWait       = "stacman_throttle_wait_ms"
	InFlightRequests   = "stacman_in_flight_requests"

	GatewayRequestsTotal = "stacman_gateway_requests_total"
	GatewayDuration      = "stacman_gateway_request_duration_ms"
	GatewayResponseBytes = "stacman_gateway_response_bytes"
	GatewayFailuresTotal = "stacman_gateway_failures_total"

	ErrorsTotal      = "errors_total"
	PanicsTotal      = "panics_total"
	ErrorsByEndpoint = "errors_by_endpoint"

	HealthCheckTotal    = "app_health_check_total"
	HealthCheckDuration = "app_health_check_duration_ms"
	ServerStartTime     = "app_server_start_time_seconds"
)

// Dispatch outcomes
const (
	OutcomeSuccess   = "success"
	OutcomeTransport = "transport_error"
	OutcomeMalformed = "malformed_response"
	OutcomeInternal  = "internal_error"
)

// RecordDispatch records a finished task and how long it took, throttle
// waits included.
func RecordDispatch(backoffKey string, outcome string, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}

	labels := map[string]string{
		"backoff_key": backoffKey,
		"outcome":     outcome,
	}
	_ = observability.TelemetrySystem.Counter(DispatchTotal, 1, labels)
	_ = observability.TelemetrySystem.Histogram(DispatchDuration, duration, labels)
}

// RecordThrottleWait records one sleep of the throttle wait loop.
func RecordThrottleWait(backoffKey string, wait time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}

	labels := map[string]string{"backoff_key": backoffKey}
	_ = observability.TelemetrySystem.Counter(ThrottleWaitsTotal, 1, labels)
	_ = observability.TelemetrySystem.Histogram(ThrottleWait, wait, labels)
}

// SetInFlight publishes the number of admitted, unfinished tasks.
func SetInFlight(count int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(InFlightRequests, float64(count), nil)
	}
}

// RecordGatewayRequest records a request served by the gateway.
func RecordGatewayRequest(method string, route string, status int, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}

	labels := map[string]string{
		"method": method,
		"route":  route,
		"status": strconv.Itoa(status),
	}
	_ = observability.TelemetrySystem.Counter(GatewayRequestsTotal, 1, labels)
	_ = observability.TelemetrySystem.Histogram(GatewayDuration, duration, labels)
}

// RecordGatewayResponse records the body size of a gateway response and
// counts it as a failure when the status is 4xx or 5xx.
func RecordGatewayResponse(route string, status int, bytes int64) {
	if observability.TelemetrySystem == nil {
		return
	}

	_ = observability.TelemetrySystem.Gauge(GatewayResponseBytes, float64(bytes), map[string]string{"route": route})
	if status < 400 {
		return
	}
	class := "client"
	if status >= 500 {
		class = "server"
	}
	_ = observability.TelemetrySystem.Counter(GatewayFailuresTotal, 1, map[string]string{
		"route":  route,
		"status": strconv.Itoa(status),
		"class":  class,
	})
}

// RecordError records an error response with code and status.
func RecordError(errorCode string, httpStatus int) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			ErrorsTotal,
			1,
			map[string]string{
				"error_code":  errorCode,
				"http_status": strconv.Itoa(httpStatus),
			},
		)
	}
}

// RecordErrorByEndpoint records an error response by request path.
func RecordErrorByEndpoint(endpoint string, errorCode string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			ErrorsByEndpoint,
			1,
			map[string]string{
				"endpoint":   endpoint,
				"error_code": errorCode,
			},
		)
	}
}

// RecordPanic records a recovered panic.
func RecordPanic() {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(PanicsTotal, 1, nil)
	}
}

// RecordHealthCheck records a health check execution.
func RecordHealthCheck(checkName string, healthy bool, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}

	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}

	_ = observability.TelemetrySystem.Counter(
		HealthCheckTotal,
		1,
		map[string]string{
			"check":  checkName,
			"status": status,
		},
	)
	_ = observability.TelemetrySystem.Histogram(
		HealthCheckDuration,
		duration,
		map[string]string{
			"check": checkName,
		},
	)
}

// SetServerStartTime records the gateway start time (Unix timestamp).
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(ServerStartTime, float64(timestamp), nil)
	}
}
