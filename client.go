package stacman

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/stacman/stacman/internal/core"
	"github.com/stacman/stacman/internal/core/engine"
	"github.com/stacman/stacman/internal/core/fetch"
)

type Client struct {
	key     string
	site    string
	baseURL string

	throttler  *engine.Throttler
	dispatcher *engine.Dispatcher
	logger     Logger
}

// NewClient builds a client. key may be empty for keyless access.
func NewClient(key string, opts ...ConfigOption) *Client {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	throttleOpts := []engine.ThrottlerOption{
		engine.WithWindow(cfg.windowLimit, cfg.window),
		engine.WithSafetyMargin(cfg.safetyMargin),
		engine.WithThrottleLogger(cfg.logger),
	}
	if cfg.clock != nil {
		throttleOpts = append(throttleOpts, engine.WithClock(cfg.clock))
	}
	if cfg.store != nil {
		throttleOpts = append(throttleOpts, engine.WithThrottleStore(cfg.store))
	}
	throttler := engine.NewThrottler(throttleOpts...)
	throttler.SetEnabled(cfg.respectBackoffs)

	fetcher := fetch.NewHTTPFetcher(cfg.httpClient)
	fetcher.UserAgent = cfg.userAgent

	dispatchOpts := []engine.DispatcherOption{
		engine.WithMaxConcurrent(cfg.maxConcurrent),
		engine.WithRequestTimeout(cfg.timeout),
		engine.WithDispatcherLogger(cfg.logger),
	}
	if cfg.sleep != nil {
		dispatchOpts = append(dispatchOpts, engine.WithSleep(cfg.sleep))
	}
	if cfg.clock != nil {
		dispatchOpts = append(dispatchOpts, engine.WithDispatcherClock(cfg.clock))
	}

	return &Client{
		key:        strings.TrimSpace(key),
		site:       cfg.site,
		baseURL:    strings.TrimRight(cfg.baseURL, "/"),
		throttler:  throttler,
		dispatcher: engine.NewDispatcher(throttler, fetcher, dispatchOpts...),
		logger:     cfg.logger,
	}
}

// Get submits a GET for rawURL and returns a future whose items decode as T.
// The client's key is added to the query when the URL does not carry one.
// The call never blocks; throttling happens on the worker.
func Get[T any](c *Client, rawURL string, backoffKey string) *Future[T] {
	if c == nil {
		return engine.Submit[T](nil, core.FetchTask{URL: rawURL, BackoffKey: backoffKey})
	}

	return engine.Submit[T](c.dispatcher, core.FetchTask{
		URL:        c.withKey(rawURL),
		BackoffKey: backoffKey,
	})
}

// Fetch is Get followed by Wait, for callers that want a plain value/error
// pair. API errors inside a well-formed envelope are returned as *APIError
// together with the envelope.
func Fetch[T any](ctx context.Context, c *Client, rawURL string, backoffKey string) (*Envelope[T], error) {
	result, err := Get[T](c, rawURL, backoffKey).Wait(ctx)
	if err != nil {
		return nil, err
	}

	envelope, err := result.Unwrap()
	if err != nil {
		return nil, err
	}
	if envelope.IsError() {
		return envelope, envelope.APIError()
	}
	return envelope, nil
}

// Key returns the application key attached to every request.
func (c *Client) Key() string {
	return c.key
}

// Site returns the default site for site-scoped methods.
func (c *Client) Site() string {
	return c.site
}

// BaseURL returns the API root, without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// MethodURL joins a method path such as "questions/1;2/answers" to the base URL.
func (c *Client) MethodURL(method string) string {
	return c.baseURL + "/" + strings.TrimLeft(method, "/")
}

// SetMaxConcurrent resizes the worker pool. Queued requests pick up the new size.
func (c *Client) SetMaxConcurrent(n int) {
	c.dispatcher.SetMaxConcurrent(n)
}

// MaxConcurrent returns the worker pool size.
func (c *Client) MaxConcurrent() int {
	return c.dispatcher.MaxConcurrent()
}

// SetTimeout changes the timeout for requests that have not started fetching.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.dispatcher.SetRequestTimeout(timeout)
}

// Timeout returns the per-request timeout.
func (c *Client) Timeout() time.Duration {
	return c.dispatcher.RequestTimeout()
}

// SetRespectBackoffs turns rate window and backoff enforcement on or off.
func (c *Client) SetRespectBackoffs(respect bool) {
	c.dispatcher.SetRespectBackoffs(respect)
}

// RespectBackoffs reports whether enforcement is on.
func (c *Client) RespectBackoffs() bool {
	return c.dispatcher.RespectBackoffs()
}

// InFlight returns the number of requests admitted and not yet finished.
func (c *Client) InFlight() int {
	return c.dispatcher.InFlight()
}

// Queued returns the number of requests waiting for a worker.
func (c *Client) Queued() int {
	return c.dispatcher.Queued()
}

// ThrottleSnapshot reports the current window and active backoffs.
func (c *Client) ThrottleSnapshot() ThrottleState {
	return c.throttler.Snapshot()
}

// ThrottleLimit returns the effective requests per window.
func (c *Client) ThrottleLimit() int {
	return c.throttler.Limit()
}

// ThrottleWindow returns the window length.
func (c *Client) ThrottleWindow() time.Duration {
	return c.throttler.WindowDuration()
}

// ClearBackoffs drops in-memory backoffs whose key starts with prefix.
func (c *Client) ClearBackoffs(prefix string) int {
	return c.throttler.ClearBackoffs(prefix)
}

// RestoreThrottle loads persisted throttle state, if a store is configured.
func (c *Client) RestoreThrottle(ctx context.Context) error {
	if err := c.throttler.Restore(ctx); err != nil {
		return fmt.Errorf("restore throttle state: %w", err)
	}
	return nil
}

// FlushThrottle saves throttle state, if a store is configured.
func (c *Client) FlushThrottle(ctx context.Context) error {
	if err := c.throttler.Flush(ctx); err != nil {
		return fmt.Errorf("flush throttle state: %w", err)
	}
	return nil
}

// Close stops accepting requests, waits for queued ones and saves throttle
// state.
func (c *Client) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}

	closeErr := c.dispatcher.Close(ctx)
	flushErr := c.FlushThrottle(ctx)
	if closeErr != nil || flushErr != nil {
		c.logger.Warn("Client did not shut down cleanly",
			zap.NamedError("close_error", closeErr),
			zap.NamedError("flush_error", flushErr))
	}
	return errors.Join(closeErr, flushErr)
}

func (c *Client) withKey(rawURL string) string {
	if c.key == "" {
		return rawURL
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		// Leave it for the fetcher to report as a transport error.
		return rawURL
	}

	query := parsed.Query()
	if query.Get("key") != "" {
		return rawURL
	}
	query.Set("key", c.key)
	parsed.RawQuery = query.Encode()
	return parsed.String()
}
