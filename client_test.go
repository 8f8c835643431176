package stacman

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type question struct {
	QuestionID int    `json:"question_id"`
	Title      string `json:"title"`
}

func newAPIServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestNewClientDefaults(t *testing.T) {
	client := NewClient("  abc  ")
	t.Cleanup(func() { _ = client.Close(context.Background()) })

	assert.Equal(t, "abc", client.Key())
	assert.Equal(t, DefaultSite, client.Site())
	assert.Equal(t, DefaultBaseURL, client.BaseURL())
	assert.Equal(t, 10, client.MaxConcurrent())
	assert.Equal(t, 5*time.Second, client.Timeout())
	assert.True(t, client.RespectBackoffs())
	assert.Equal(t, 30, client.ThrottleLimit())
	assert.Equal(t, 30*time.Second, client.ThrottleWindow())
}

func TestClientLiveSettings(t *testing.T) {
	client := NewClient("", WithMaxConcurrent(3), WithTimeout(time.Second), WithRespectBackoffs(false))
	t.Cleanup(func() { _ = client.Close(context.Background()) })

	assert.Equal(t, 3, client.MaxConcurrent())
	assert.False(t, client.RespectBackoffs())

	client.SetMaxConcurrent(7)
	client.SetTimeout(2 * time.Second)
	client.SetRespectBackoffs(true)

	assert.Equal(t, 7, client.MaxConcurrent())
	assert.Equal(t, 2*time.Second, client.Timeout())
	assert.True(t, client.RespectBackoffs())
}

func TestMethodURL(t *testing.T) {
	client := NewClient("", WithBaseURL("http://example.test/2.3/"))
	t.Cleanup(func() { _ = client.Close(context.Background()) })

	assert.Equal(t, "http://example.test/2.3/questions/1;2/answers", client.MethodURL("/questions/1;2/answers"))
}

func TestGetDecodesItems(t *testing.T) {
	var gotKey, gotUA string
	server := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("key")
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`{"items":[{"question_id":7,"title":"hello"}],"has_more":false,"quota_max":300,"quota_remaining":299}`))
	})

	client := NewClient("secret", WithBaseURL(server.URL), WithUserAgent("stacman-test"))
	t.Cleanup(func() { _ = client.Close(context.Background()) })

	result, err := Get[question](client, client.MethodURL("questions")+"?site=stackoverflow", "questions").Wait(context.Background())
	require.NoError(t, err)

	envelope, err := result.Unwrap()
	require.NoError(t, err)
	require.Len(t, envelope.Items, 1)
	assert.Equal(t, 7, envelope.Items[0].QuestionID)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "stacman-test", gotUA)
}

func TestGetKeepsExplicitKey(t *testing.T) {
	var gotKey string
	server := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("key")
		_, _ = w.Write([]byte(`{"items":[]}`))
	})

	client := NewClient("default")
	t.Cleanup(func() { _ = client.Close(context.Background()) })

	_, err := Get[json.RawMessage](client, server.URL+"/info?key=override", "info").Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "override", gotKey)
}

func TestFetchReturnsAPIError(t *testing.T) {
	server := newAPIServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error_id":400,"error_name":"bad_parameter","error_message":"site is required"}`))
	})

	client := NewClient("")
	t.Cleanup(func() { _ = client.Close(context.Background()) })

	envelope, err := Fetch[question](context.Background(), client, server.URL+"/questions", "questions")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAPI)
	require.NotNil(t, envelope)
	assert.True(t, envelope.IsError())
}

func TestFetchTransportFailure(t *testing.T) {
	server := newAPIServer(t, func(http.ResponseWriter, *http.Request) {})
	target := server.URL
	server.Close()

	client := NewClient("")
	t.Cleanup(func() { _ = client.Close(context.Background()) })

	envelope, err := Fetch[question](context.Background(), client, target+"/questions", "questions")
	require.Error(t, err)
	assert.Nil(t, envelope)
	assert.ErrorIs(t, err, ErrTransport)
}

func TestBackoffIsHonoredPerKey(t *testing.T) {
	var hits atomic.Int32
	server := newAPIServer(t, func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"items":[],"backoff":10}`))
	})

	var (
		mu     sync.Mutex
		now    = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		sleeps []time.Duration
	)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	sleep := func(d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		sleeps = append(sleeps, d)
		now = now.Add(d)
	}

	client := NewClient("", WithClock(clock), WithSleep(sleep))
	t.Cleanup(func() { _ = client.Close(context.Background()) })

	_, err := Fetch[question](context.Background(), client, server.URL+"/questions", "questions")
	require.NoError(t, err)

	snapshot := client.ThrottleSnapshot()
	require.Len(t, snapshot.Backoffs, 1)
	assert.Equal(t, "questions", snapshot.Backoffs[0].Key)

	_, err = Fetch[question](context.Background(), client, server.URL+"/questions", "questions")
	require.NoError(t, err)

	mu.Lock()
	assert.Equal(t, []time.Duration{10 * time.Second}, sleeps)
	mu.Unlock()
	assert.Equal(t, int32(2), hits.Load())

	assert.Equal(t, 1, client.ClearBackoffs("quest"))
}

func TestCloseRejectsLateRequests(t *testing.T) {
	client := NewClient("")
	require.NoError(t, client.Close(context.Background()))

	result := Get[question](client, "http://127.0.0.1:0/questions", "questions").Get()
	assert.True(t, errors.Is(result.Err(), ErrClosed))
}

func TestNilClient(t *testing.T) {
	var client *Client
	assert.NoError(t, client.Close(context.Background()))

	result := Get[question](client, "http://127.0.0.1:0/questions", "questions").Get()
	assert.Error(t, result.Err())
}

type memoryStore struct {
	saved *ThrottleState
}

func (m *memoryStore) LoadThrottleState(context.Context) (*ThrottleState, error) {
	return m.saved, nil
}

func (m *memoryStore) SaveThrottleState(_ context.Context, state *ThrottleState) error {
	m.saved = state
	return nil
}

func TestCloseFlushesThrottleState(t *testing.T) {
	server := newAPIServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"items":[]}`))
	})

	store := &memoryStore{}
	client := NewClient("", WithThrottleStore(store))

	_, err := Fetch[question](context.Background(), client, server.URL+"/info", "info")
	require.NoError(t, err)
	require.NoError(t, client.Close(context.Background()))

	require.NotNil(t, store.saved)
	assert.Equal(t, 1, store.saved.RequestCount)

	restored := NewClient("", WithThrottleStore(store))
	t.Cleanup(func() { _ = restored.Close(context.Background()) })
	require.NoError(t, restored.RestoreThrottle(context.Background()))
	assert.Equal(t, 1, restored.ThrottleSnapshot().RequestCount)
}
