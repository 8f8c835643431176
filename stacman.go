// Package stacman is a client for the Stack Exchange API that keeps many
// concurrent callers inside the API's rate limits. Requests are queued on a
// bounded worker pool; a shared throttle enforces a global request window and
// the per-method backoffs the server asks for.
package stacman

import (
	"github.com/stacman/stacman/internal/core"
	"github.com/stacman/stacman/internal/core/engine"
)

// Envelope is the common response wrapper with items of type T.
type Envelope[T any] = core.Envelope[T]

// Result holds either an Envelope or the reason the request failed.
type Result[T any] = core.Result[T]

// Future is the pending Result of a submitted request.
type Future[T any] = engine.Future[T]

// ThrottleState is the persisted form of the request budget.
type ThrottleState = core.ThrottleState

// BackoffEntry is a server imposed cool-down for one backoff key.
type BackoffEntry = core.BackoffEntry

// ThrottleStore persists throttle state between processes.
type ThrottleStore = engine.ThrottleStore

// Logger receives structured logs. *zap.Logger satisfies it.
type Logger = engine.Logger

type (
	TransportError         = core.TransportError
	MalformedResponseError = core.MalformedResponseError
	APIError               = core.APIError
	InternalError          = core.InternalError
)

var (
	ErrTransport         = core.ErrTransport
	ErrMalformedResponse = core.ErrMalformedResponse
	ErrAPI               = core.ErrAPI
	ErrInternal          = core.ErrInternal
	ErrClosed            = engine.ErrDispatcherClosed
)
