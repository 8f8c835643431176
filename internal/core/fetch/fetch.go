package fetch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"

	"github.com/stacman/stacman/internal/core"
)

// DefaultUserAgent identifies the client to the API.
const DefaultUserAgent = "StacMan Go"

const defaultMaxBodyBytes = 32 << 20

// HTTPFetcher performs GET requests and returns the decompressed body.
type HTTPFetcher struct {
	Client       *http.Client
	UserAgent    string
	MaxBodyBytes int64
}

// NewHTTPFetcher returns a fetcher using the given client, or a default one.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	return &HTTPFetcher{
		Client:    client,
		UserAgent: DefaultUserAgent,
	}
}

// Fetch issues a GET for rawURL. Non-2xx bodies are returned as-is because
// the API reports errors inside the JSON envelope.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &core.TransportError{Stage: core.StageRequest, URL: rawURL, Err: err}
	}
	// Setting Accept-Encoding by hand turns off net/http's transparent gzip,
	// so decoding happens in decodeBody.
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", f.userAgent())

	resp, err := f.client().Do(req)
	if err != nil {
		return nil, &core.TransportError{Stage: core.StageRequest, URL: rawURL, Err: err}
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	reader, err := decodeBody(resp)
	if err != nil {
		return nil, &core.TransportError{Stage: core.StageDecode, URL: rawURL, Err: err}
	}
	defer reader.Close() // nolint:errcheck // decompressor close only releases buffers

	limit := f.maxBodyBytes()
	body, err := io.ReadAll(io.LimitReader(reader, limit+1))
	if err != nil {
		return nil, &core.TransportError{Stage: core.StageRead, URL: rawURL, Err: err}
	}
	if int64(len(body)) > limit {
		return nil, &core.TransportError{Stage: core.StageRead, URL: rawURL, Err: fmt.Errorf("response body exceeds %d bytes", limit)}
	}

	return body, nil
}

func (f *HTTPFetcher) client() *http.Client {
	if f != nil && f.Client != nil {
		return f.Client
	}
	return http.DefaultClient
}

func (f *HTTPFetcher) userAgent() string {
	if f != nil && strings.TrimSpace(f.UserAgent) != "" {
		return f.UserAgent
	}
	return DefaultUserAgent
}

func (f *HTTPFetcher) maxBodyBytes() int64 {
	if f != nil && f.MaxBodyBytes > 0 {
		return f.MaxBodyBytes
	}
	return defaultMaxBodyBytes
}

func decodeBody(resp *http.Response) (io.ReadCloser, error) {
	buffered := bufio.NewReader(resp.Body)
	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))

	switch encoding {
	case "gzip", "x-gzip":
		return gzip.NewReader(buffered)
	case "deflate":
		// Servers disagree on whether "deflate" means zlib framing or raw
		// deflate; sniff the zlib header to pick.
		if header, err := buffered.Peek(2); err == nil && isZlibHeader(header) {
			return zlib.NewReader(buffered)
		}
		return flate.NewReader(buffered), nil
	case "", "identity":
		if magic, err := buffered.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
			return gzip.NewReader(buffered)
		}
		return io.NopCloser(buffered), nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}
}

func isZlibHeader(header []byte) bool {
	if len(header) < 2 {
		return false
	}
	cmf, flg := header[0], header[1]
	return cmf&0x0f == 8 && (uint16(cmf)<<8|uint16(flg))%31 == 0
}
