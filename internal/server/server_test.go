package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacman/stacman"
	apperrors "github.com/stacman/stacman/internal/errors"
)

func TestServerUsesStandardErrorHandlers(t *testing.T) {
	srv := New(Options{Host: "127.0.0.1"})

	req := httptest.NewRequest(http.MethodGet, "/does-not-exist", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}

	var body apperrors.HTTPErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}

	if body.Error.Code != "NOT_FOUND" {
		t.Fatalf("expected error code NOT_FOUND, got %s", body.Error.Code)
	}
}

func newGateway(t *testing.T, upstream http.HandlerFunc) (*Server, *stacman.Client) {
	t.Helper()

	api := httptest.NewServer(upstream)
	t.Cleanup(api.Close)

	client := stacman.NewClient("gateway-key", stacman.WithBaseURL(api.URL+"/2.3"))
	t.Cleanup(func() { _ = client.Close(context.Background()) })

	return New(Options{Host: "127.0.0.1", Client: client}), client
}

func TestProxyForwardsEnvelope(t *testing.T) {
	var gotPath, gotSite, gotKey string
	srv, _ := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotSite = r.URL.Query().Get("site")
		gotKey = r.URL.Query().Get("key")
		_, _ = w.Write([]byte(`{"items":[{"question_id":1}],"has_more":false,"quota_remaining":10}`))
	})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/questions/1;2/answers?order=desc", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/2.3/questions/1;2/answers", gotPath)
	assert.Equal(t, stacman.DefaultSite, gotSite)
	assert.Equal(t, "gateway-key", gotKey)
	assert.Equal(t, "questions/{ids}/answers", rec.Header().Get(BackoffKeyHeader))

	var envelope stacman.Envelope[json.RawMessage]
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	require.Len(t, envelope.Items, 1)
	assert.JSONEq(t, `{"question_id":1}`, string(envelope.Items[0]))
	require.NotNil(t, envelope.QuotaRemaining)
	assert.Equal(t, 10, *envelope.QuotaRemaining)
}

func TestProxyReportsTransportFailureAsBadGateway(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	target := api.URL
	api.Close()

	client := stacman.NewClient("", stacman.WithBaseURL(target))
	t.Cleanup(func() { _ = client.Close(context.Background()) })
	srv := New(Options{Client: client})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/info", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, apperrors.CodeExternalService, body.Error.Code)
}

func TestProxyMapsAPIErrors(t *testing.T) {
	srv, _ := newGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error_id":502,"error_name":"throttle_violation","error_message":"too many requests from this IP"}`))
	})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/users", nil))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, apperrors.CodeRateLimited, body.Error.Code)
	assert.Equal(t, "throttle_violation", body.Error.Details["error_name"])
}

func TestProxyWithoutClient(t *testing.T) {
	srv := New(Options{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/info", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestThrottleEndpoint(t *testing.T) {
	srv, client := newGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"items":[],"backoff":30}`))
	})

	_, err := stacman.Fetch[json.RawMessage](context.Background(), client, client.MethodURL("sites"), "sites")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/throttle", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body ThrottleResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, 30, body.Limit)
	assert.Equal(t, int64(30000), body.WindowMillis)
	assert.Equal(t, 1, body.RequestCount)
	assert.Contains(t, body.Backoffs, "sites")
	assert.True(t, body.RespectBackoffs)
}

func TestAdminSignalEndpointNeedsToken(t *testing.T) {
	post := func(srv *Server) int {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, adminSignalPath, nil))
		return rec.Code
	}

	assert.Equal(t, http.StatusNotFound, post(New(Options{Host: "127.0.0.1"})))

	code := post(New(Options{Host: "127.0.0.1", AdminToken: "s3cret"}))
	assert.NotEqual(t, http.StatusNotFound, code)
	assert.GreaterOrEqual(t, code, 400, "unauthenticated signal requests are rejected")
}
