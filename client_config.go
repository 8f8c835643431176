package stacman

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/stacman/stacman/internal/core/engine"
	"github.com/stacman/stacman/internal/core/fetch"
)

const (
	// DefaultBaseURL is the Stack Exchange API v2.3 root.
	DefaultBaseURL = "https://api.stackexchange.com/2.3"

	// DefaultSite is the site parameter used when none is given.
	DefaultSite = "stackoverflow"
)

type config struct {
	// httpClient performs the requests. Its Timeout is left alone; the
	// per-request timeout below bounds each fetch instead.
	// default: http.DefaultClient
	httpClient *http.Client

	// baseURL is prefixed to every method path
	// default: DefaultBaseURL
	baseURL string

	// site is the default site parameter
	// default: DefaultSite
	site string

	// userAgent is sent with every request
	// default: "StacMan Go"
	userAgent string

	// timeout bounds each fetch
	// default: 5 seconds
	timeout time.Duration

	// maxConcurrent caps simultaneous in-flight requests
	// default: 10
	maxConcurrent int

	// respectBackoffs enables the rate window and server backoffs
	// default: true
	respectBackoffs bool

	// windowLimit and window define the shared request budget
	// default: 30 requests per 30 seconds
	windowLimit int
	window      time.Duration

	// safetyMargin scales windowLimit, in (0, 1]
	// default: 1
	safetyMargin float64

	// store persists throttle state across processes
	// default: none
	store ThrottleStore

	// logger receives client and scheduling logs
	// default: no-op
	logger Logger

	// clock and sleep drive the throttle; tests replace them
	clock func() time.Time
	sleep func(time.Duration)
}

func defaultConfig() *config {
	return &config{
		httpClient:      http.DefaultClient,
		baseURL:         DefaultBaseURL,
		site:            DefaultSite,
		userAgent:       fetch.DefaultUserAgent,
		timeout:         engine.DefaultRequestTimeout,
		maxConcurrent:   engine.DefaultMaxConcurrent,
		respectBackoffs: true,
		windowLimit:     engine.DefaultWindowLimit,
		window:          engine.DefaultWindowDuration,
		safetyMargin:    1,
		logger:          zap.NewNop(),
	}
}

type ConfigOption func(c *config)

func WithHTTPClient(client *http.Client) ConfigOption {
	return func(c *config) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithBaseURL(baseURL string) ConfigOption {
	return func(c *config) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

func WithSite(site string) ConfigOption {
	return func(c *config) {
		if site != "" {
			c.site = site
		}
	}
}

func WithUserAgent(userAgent string) ConfigOption {
	return func(c *config) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

func WithTimeout(timeout time.Duration) ConfigOption {
	return func(c *config) {
		c.timeout = timeout
	}
}

func WithMaxConcurrent(n int) ConfigOption {
	return func(c *config) {
		c.maxConcurrent = n
	}
}

func WithRespectBackoffs(respect bool) ConfigOption {
	return func(c *config) {
		c.respectBackoffs = respect
	}
}

func WithWindow(limit int, window time.Duration) ConfigOption {
	return func(c *config) {
		c.windowLimit = limit
		c.window = window
	}
}

func WithSafetyMargin(margin float64) ConfigOption {
	return func(c *config) {
		c.safetyMargin = margin
	}
}

func WithThrottleStore(store ThrottleStore) ConfigOption {
	return func(c *config) {
		c.store = store
	}
}

func WithLogger(logger Logger) ConfigOption {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithClock(clock func() time.Time) ConfigOption {
	return func(c *config) {
		c.clock = clock
	}
}

func WithSleep(sleep func(time.Duration)) ConfigOption {
	return func(c *config) {
		c.sleep = sleep
	}
}
