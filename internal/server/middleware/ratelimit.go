package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/fulmenhq/gofulmen/errors"
	"golang.org/x/time/rate"

	"github.com/stacman/stacman/internal/metrics"
)

// RateLimit caps inbound gateway traffic with a token bucket shared by all
// callers. Outbound API traffic is governed separately by the client's
// throttle; this only protects the process from being flooded.
// A non-positive limit disables the middleware.
func RateLimit(limit float64, burst int) func(http.Handler) http.Handler {
	if limit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if burst < 1 {
		burst = int(math.Ceil(limit))
	}
	limiter := rate.NewLimiter(rate.Limit(limit), burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reservation := limiter.Reserve()
			if !reservation.OK() {
				writeRateLimited(w, r, 1)
				return
			}
			if delay := reservation.Delay(); delay > 0 {
				reservation.Cancel()
				writeRateLimited(w, r, int(math.Ceil(delay.Seconds())))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeRateLimited(w http.ResponseWriter, r *http.Request, retryAfter int) {
	envelope := errors.NewErrorEnvelope("RATE_LIMITED", "too many requests").
		WithCorrelationID(GetRequestID(r.Context()))
	metrics.RecordError(envelope.Code, http.StatusTooManyRequests)

	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	writeEnvelope(w, envelope, http.StatusTooManyRequests, map[string]interface{}{
		"retry_after_seconds": retryAfter,
	})
}
