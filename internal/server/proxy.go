package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stacman/stacman"
	"github.com/stacman/stacman/api"
	apperrors "github.com/stacman/stacman/internal/errors"
)

// BackoffKeyHeader lets callers choose the backoff key of a proxied request.
const BackoffKeyHeader = "X-Backoff-Key"

// handleProxy forwards GET /v1/{method...} to the API through the shared
// client, so every caller of the gateway draws from one rate budget.
func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request) {
	if s.client == nil {
		writeError(w, r, apperrors.NewServiceUnavailableError("API client is not configured"))
		return
	}

	method := strings.Trim(chi.URLParam(r, "*"), "/")
	if method == "" {
		writeError(w, r, apperrors.NewInvalidInputError("an API method path is required"))
		return
	}

	query := r.URL.Query()
	if query.Get("site") == "" && api.SiteScoped(method) {
		query.Set("site", s.client.Site())
	}
	target := s.client.MethodURL(method)
	if encoded := query.Encode(); encoded != "" {
		target += "?" + encoded
	}

	backoffKey := r.Header.Get(BackoffKeyHeader)
	if backoffKey == "" {
		backoffKey = api.BackoffKeyFor(method)
	}

	result, err := stacman.Get[json.RawMessage](s.client, target, backoffKey).Wait(r.Context())
	if err != nil {
		writeError(w, r, apperrors.FromDispatch(r.Context(), err))
		return
	}

	envelope, err := result.Unwrap()
	if err != nil {
		writeError(w, r, apperrors.FromDispatch(r.Context(), err))
		return
	}

	if envelope.IsError() {
		var apiErr *stacman.APIError
		if errors.As(envelope.APIError(), &apiErr) {
			writeError(w, r, apperrors.FromAPIError(r.Context(), apiErr))
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(BackoffKeyHeader, backoffKey)
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(envelope)
}

// ThrottleResponse reports the client's scheduling state.
type ThrottleResponse struct {
	Limit           int               `json:"limit"`
	WindowMillis    int64             `json:"window_ms"`
	RequestCount    int               `json:"request_count"`
	WindowStart     time.Time         `json:"window_start"`
	Backoffs        map[string]string `json:"backoffs,omitempty"`
	InFlight        int               `json:"in_flight"`
	Queued          int               `json:"queued"`
	MaxConcurrent   int               `json:"max_concurrent"`
	RespectBackoffs bool              `json:"respect_backoffs"`
}

func (s *Server) handleThrottle(w http.ResponseWriter, r *http.Request) {
	if s.client == nil {
		writeError(w, r, apperrors.NewServiceUnavailableError("API client is not configured"))
		return
	}

	snapshot := s.client.ThrottleSnapshot()
	response := ThrottleResponse{
		Limit:           s.client.ThrottleLimit(),
		WindowMillis:    s.client.ThrottleWindow().Milliseconds(),
		RequestCount:    snapshot.RequestCount,
		WindowStart:     snapshot.WindowStart,
		InFlight:        s.client.InFlight(),
		Queued:          s.client.Queued(),
		MaxConcurrent:   s.client.MaxConcurrent(),
		RespectBackoffs: s.client.RespectBackoffs(),
	}
	if len(snapshot.Backoffs) > 0 {
		response.Backoffs = make(map[string]string, len(snapshot.Backoffs))
		for _, entry := range snapshot.Backoffs {
			response.Backoffs[entry.Key] = entry.NotBefore.UTC().Format(time.RFC3339Nano)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}
