package core

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is matching across the taxonomy.
var (
	ErrTransport         = errors.New("transport error")
	ErrMalformedResponse = errors.New("malformed response")
	ErrAPI               = errors.New("api error")
	ErrInternal          = errors.New("internal error")
)

// Stages a transport failure can happen in.
const (
	StageRequest = "request"
	StageRead    = "read"
	StageDecode  = "decode"
)

// TransportError reports a connection, timeout or stream failure.
type TransportError struct {
	Stage string
	URL   string
	Err   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failed during %s for %s: %v", e.Stage, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// MalformedResponseError reports a body that is not a valid envelope.
type MalformedResponseError struct {
	Excerpt string
	Err     error
}

func (e *MalformedResponseError) Error() string {
	if e.Excerpt == "" {
		return fmt.Sprintf("malformed response: %v", e.Err)
	}
	return fmt.Sprintf("malformed response: %v (body: %q)", e.Err, e.Excerpt)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

func (e *MalformedResponseError) Is(target error) bool {
	return target == ErrMalformedResponse
}

// APIError is an application level error reported inside a well-formed
// envelope. The dispatcher never produces it; callers derive it with
// Envelope.APIError.
type APIError struct {
	ID      int
	Name    string
	Message string
}

func (e *APIError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.ID, e.Name, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.ID, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrAPI
}

// InternalError reports an unexpected failure recovered at the task boundary.
type InternalError struct {
	Panic any
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error: %v", e.Panic)
}

func (e *InternalError) Is(target error) bool {
	return target == ErrInternal
}
