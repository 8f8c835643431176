package fetch

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/require"

	"github.com/stacman/stacman/internal/core"
)

const payload = `{"items":[{"site_url":"https://stackoverflow.com"}],"has_more":false}`

func gzipBytes(t *testing.T, data string) []byte {
	t.Helper()
	var buf bytes.Buffer
	writer := gzip.NewWriter(&buf)
	_, err := writer.Write([]byte(data))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return buf.Bytes()
}

func zlibBytes(t *testing.T, data string) []byte {
	t.Helper()
	var buf bytes.Buffer
	writer := zlib.NewWriter(&buf)
	_, err := writer.Write([]byte(data))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return buf.Bytes()
}

func rawDeflateBytes(t *testing.T, data string) []byte {
	t.Helper()
	var buf bytes.Buffer
	writer, err := flate.NewWriter(&buf, flate.DefaultCompression)
	require.NoError(t, err)
	_, err = writer.Write([]byte(data))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return buf.Bytes()
}

func serve(t *testing.T, encoding string, body []byte) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if encoding != "" {
			w.Header().Set("Content-Encoding", encoding)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestFetchDecodesEncodings(t *testing.T) {
	cases := []struct {
		name     string
		encoding string
		body     []byte
	}{
		{name: "identity", encoding: "", body: []byte(payload)},
		{name: "gzip", encoding: "gzip", body: gzipBytes(t, payload)},
		{name: "gzip without header", encoding: "", body: gzipBytes(t, payload)},
		{name: "zlib deflate", encoding: "deflate", body: zlibBytes(t, payload)},
		{name: "raw deflate", encoding: "deflate", body: rawDeflateBytes(t, payload)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := serve(t, tc.encoding, tc.body)
			body, err := NewHTTPFetcher(server.Client()).Fetch(context.Background(), server.URL)
			require.NoError(t, err)
			require.JSONEq(t, payload, string(body))
		})
	}
}

func TestFetchSendsHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "stacman-test" || r.Header.Get("Accept-Encoding") != "gzip, deflate" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error_id":400}`))
			return
		}
		_, _ = w.Write([]byte(payload))
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(server.Client())
	fetcher.UserAgent = "stacman-test"
	body, err := fetcher.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	require.JSONEq(t, payload, string(body))
}

func TestFetchReturnsErrorBodies(t *testing.T) {
	errorBody := `{"error_id":502,"error_name":"throttle_violation","error_message":"slow down"}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(errorBody))
	}))
	defer server.Close()

	body, err := NewHTTPFetcher(server.Client()).Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	require.JSONEq(t, errorBody, string(body))
}

func TestFetchCorruptGzip(t *testing.T) {
	server := serve(t, "gzip", []byte("definitely not gzip"))

	_, err := NewHTTPFetcher(server.Client()).Fetch(context.Background(), server.URL)
	require.ErrorIs(t, err, core.ErrTransport)

	var transportErr *core.TransportError
	require.ErrorAs(t, err, &transportErr)
	require.Equal(t, core.StageDecode, transportErr.Stage)
}

func TestFetchTruncatedGzip(t *testing.T) {
	compressed := gzipBytes(t, payload)
	server := serve(t, "gzip", compressed[:len(compressed)-6])

	_, err := NewHTTPFetcher(server.Client()).Fetch(context.Background(), server.URL)
	require.ErrorIs(t, err, core.ErrTransport)

	var transportErr *core.TransportError
	require.ErrorAs(t, err, &transportErr)
	require.Equal(t, core.StageRead, transportErr.Stage)
}

func TestFetchUnsupportedEncoding(t *testing.T) {
	server := serve(t, "br", []byte(payload))

	_, err := NewHTTPFetcher(server.Client()).Fetch(context.Background(), server.URL)
	require.ErrorIs(t, err, core.ErrTransport)
}

func TestFetchConnectionFailure(t *testing.T) {
	server := serve(t, "", []byte(payload))
	url := server.URL
	server.Close()

	_, err := NewHTTPFetcher(nil).Fetch(context.Background(), url)
	var transportErr *core.TransportError
	require.ErrorAs(t, err, &transportErr)
	require.Equal(t, core.StageRequest, transportErr.Stage)
	require.Equal(t, url, transportErr.URL)
}

func TestFetchTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewHTTPFetcher(server.Client()).Fetch(ctx, server.URL)
	require.ErrorIs(t, err, core.ErrTransport)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFetchBodyLimit(t *testing.T) {
	server := serve(t, "", []byte(payload))

	fetcher := NewHTTPFetcher(server.Client())
	fetcher.MaxBodyBytes = 8
	body, err := fetcher.Fetch(context.Background(), server.URL)
	require.ErrorIs(t, err, core.ErrTransport)
	require.NotErrorIs(t, err, core.ErrMalformedResponse)
	require.ErrorContains(t, err, "exceeds 8 bytes")
	require.Nil(t, body)
}

func TestFetchBodyAtLimit(t *testing.T) {
	server := serve(t, "gzip", gzipBytes(t, payload))

	fetcher := NewHTTPFetcher(server.Client())
	fetcher.MaxBodyBytes = int64(len(payload))
	body, err := fetcher.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	require.Equal(t, payload, string(body))
}

func TestIsZlibHeader(t *testing.T) {
	require.True(t, isZlibHeader([]byte{0x78, 0x9c}))
	require.True(t, isZlibHeader([]byte{0x78, 0x01}))
	require.False(t, isZlibHeader([]byte{0x1f, 0x8b}))
	require.False(t, isZlibHeader([]byte{0x78}))
}
