package core

import (
	"math"
	"time"
)

// FetchTask describes one outbound API call. It is created per call, handed
// to the dispatcher and never shared afterwards.
type FetchTask struct {
	ID         string
	URL        string
	BackoffKey string
}

// Envelope is the common wrapper every API method responds with.
type Envelope[T any] struct {
	Items          []T     `json:"items"`
	Backoff        *int    `json:"backoff,omitempty"`
	ErrorID        *int    `json:"error_id,omitempty"`
	ErrorMessage   *string `json:"error_message,omitempty"`
	ErrorName      *string `json:"error_name,omitempty"`
	HasMore        bool    `json:"has_more"`
	QuotaMax       *int    `json:"quota_max,omitempty"`
	QuotaRemaining *int    `json:"quota_remaining,omitempty"`
	Page           *int    `json:"page,omitempty"`
	PageSize       *int    `json:"page_size,omitempty"`
	Total          *int    `json:"total,omitempty"`
	Type           *string `json:"type,omitempty"`
}

// BackoffDuration returns the server requested cool-down, or zero.
func (e *Envelope[T]) BackoffDuration() time.Duration {
	if e == nil || e.Backoff == nil || *e.Backoff <= 0 {
		return 0
	}
	seconds := min(int64(*e.Backoff), maxBackoffSeconds)
	return time.Duration(seconds) * time.Second
}

// maxBackoffSeconds is the largest backoff that fits in a time.Duration.
const maxBackoffSeconds = int64(math.MaxInt64 / time.Second)

// IsError reports whether the server flagged the response as an error.
func (e *Envelope[T]) IsError() bool {
	return e != nil && (e.ErrorID != nil || e.ErrorMessage != nil)
}

// APIError converts the error fields into an error value. Nil when the
// envelope carries no error.
func (e *Envelope[T]) APIError() error {
	if !e.IsError() {
		return nil
	}

	apiErr := &APIError{}
	if e.ErrorID != nil {
		apiErr.ID = *e.ErrorID
	}
	if e.ErrorName != nil {
		apiErr.Name = *e.ErrorName
	}
	if e.ErrorMessage != nil {
		apiErr.Message = *e.ErrorMessage
	}
	return apiErr
}

// Result carries either a parsed envelope or the reason the task failed,
// never both.
type Result[T any] struct {
	envelope *Envelope[T]
	err      error
}

// Success wraps a parsed envelope. A nil envelope is treated as an internal
// failure so that a Result always holds exactly one side.
func Success[T any](envelope *Envelope[T]) Result[T] {
	if envelope == nil {
		return Result[T]{err: &InternalError{Panic: "nil envelope"}}
	}
	return Result[T]{envelope: envelope}
}

// Failure wraps a task failure.
func Failure[T any](err error) Result[T] {
	if err == nil {
		err = &InternalError{Panic: "nil failure"}
	}
	return Result[T]{err: err}
}

// OK reports whether the task produced an envelope.
func (r Result[T]) OK() bool {
	return r.envelope != nil
}

// Envelope returns the parsed envelope, nil on failure.
func (r Result[T]) Envelope() *Envelope[T] {
	return r.envelope
}

// Err returns the failure reason, nil on success.
func (r Result[T]) Err() error {
	return r.err
}

// Unwrap returns both halves for (value, err) style call sites.
func (r Result[T]) Unwrap() (*Envelope[T], error) {
	return r.envelope, r.err
}
