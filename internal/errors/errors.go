// Package errors maps client and upstream failures onto gofulmen error
// envelopes and writes them as gateway responses.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"maps"
	"net/http"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stacman/stacman/internal/core"
	"github.com/stacman/stacman/internal/core/engine"
	"github.com/stacman/stacman/internal/metrics"
	"github.com/stacman/stacman/internal/observability"
	"github.com/stacman/stacman/internal/server/middleware"
)

// Error codes used in gateway responses.
const (
	CodeInvalidInput       = "INVALID_INPUT"
	CodeNotFound           = "NOT_FOUND"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeConflict           = "CONFLICT"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInternal           = "INTERNAL_ERROR"
	CodeExternalService    = "EXTERNAL_SERVICE_ERROR"
	CodeMalformedUpstream  = "MALFORMED_UPSTREAM_RESPONSE"
	CodeTimeout            = "TIMEOUT"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

var codeStatus = map[string]int{
	CodeInvalidInput:       http.StatusBadRequest,
	CodeNotFound:           http.StatusNotFound,
	CodeUnauthorized:       http.StatusUnauthorized,
	CodeForbidden:          http.StatusForbidden,
	CodeMethodNotAllowed:   http.StatusMethodNotAllowed,
	CodeConflict:           http.StatusConflict,
	CodeRateLimited:        http.StatusTooManyRequests,
	CodeInternal:           http.StatusInternalServerError,
	CodeExternalService:    http.StatusBadGateway,
	CodeMalformedUpstream:  http.StatusBadGateway,
	CodeTimeout:            http.StatusGatewayTimeout,
	CodeServiceUnavailable: http.StatusServiceUnavailable,
}

// apiErrorCodes maps Stack Exchange error_id values onto gateway codes.
// 502 is throttle_violation.
var apiErrorCodes = map[int]string{
	400: CodeInvalidInput,
	401: CodeUnauthorized,
	402: CodeUnauthorized,
	403: CodeForbidden,
	404: CodeNotFound,
	405: CodeUnauthorized,
	406: CodeUnauthorized,
	409: CodeConflict,
	502: CodeRateLimited,
	503: CodeServiceUnavailable,
}

func NewInvalidInputError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeInvalidInput, message)
}

func NewNotFoundError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeNotFound, message)
}

func NewMethodNotAllowedError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeMethodNotAllowed, message)
}

func NewRateLimitedError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeRateLimited, message)
}

func NewInternalError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeInternal, message)
}

func NewServiceUnavailableError(message string) *errors.ErrorEnvelope {
	return errors.NewErrorEnvelope(CodeServiceUnavailable, message)
}

func WrapInvalidInput(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return wrap(ctx, CodeInvalidInput, err, message)
}

func WrapInternal(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return wrap(ctx, CodeInternal, err, message)
}

func WrapExternalService(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return wrap(ctx, CodeExternalService, err, message)
}

func WrapTimeout(ctx context.Context, err error, message string) *errors.ErrorEnvelope {
	return wrap(ctx, CodeTimeout, err, message)
}

// wrap builds an envelope carrying the request's correlation ID and, when
// err is set, its text under wrapped_error.
func wrap(ctx context.Context, code string, err error, message string) *errors.ErrorEnvelope {
	id := requestID(ctx)
	if id == "" {
		id = uuid.NewString()
	}
	env := errors.NewErrorEnvelope(code, message).WithCorrelationID(id).WithTraceID(id)
	return withCause(env, err)
}

func withCause(env *errors.ErrorEnvelope, err error) *errors.ErrorEnvelope {
	if err == nil {
		return env
	}
	if updated, cerr := env.WithContext(map[string]interface{}{"wrapped_error": err.Error()}); cerr == nil {
		return updated
	}
	return env
}

// escalate marks env high severity, or critical, so it is logged at error
// level.
func escalate(env *errors.ErrorEnvelope, critical bool) *errors.ErrorEnvelope {
	updated, err := env.WithSeverity(errors.SeverityHigh)
	if critical {
		updated, err = env.WithSeverity(errors.SeverityCritical)
	}
	if err != nil {
		return env
	}
	return updated
}

func requestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	return middleware.GetRequestID(ctx)
}

// FromDispatch converts a failed Result into the envelope the gateway
// returns. The caller's own cancellation is reported as a timeout.
func FromDispatch(ctx context.Context, err error) *errors.ErrorEnvelope {
	switch {
	case err == nil:
		return EnsureEnvelope(nil)
	case stderrors.Is(err, context.DeadlineExceeded), stderrors.Is(err, context.Canceled):
		return WrapTimeout(ctx, err, "upstream request timed out")
	case stderrors.Is(err, engine.ErrDispatcherClosed):
		return wrap(ctx, CodeServiceUnavailable, err, "client is shutting down")
	case stderrors.Is(err, core.ErrTransport):
		return WrapExternalService(ctx, err, "upstream request failed")
	case stderrors.Is(err, core.ErrMalformedResponse):
		return wrap(ctx, CodeMalformedUpstream, err, "upstream returned a malformed response")
	}
	return escalate(WrapInternal(ctx, err, "request failed"), false)
}

// FromAPIError maps a Stack Exchange error_id onto a gateway error code and
// keeps the upstream identifiers in the details.
func FromAPIError(ctx context.Context, apiErr *core.APIError) *errors.ErrorEnvelope {
	if apiErr == nil {
		return EnsureEnvelope(nil)
	}
	code, ok := apiErrorCodes[apiErr.ID]
	if !ok {
		code = CodeExternalService
	}
	return wrap(ctx, code, nil, apiErr.Error()).WithDetails(map[string]interface{}{
		"error_id":   apiErr.ID,
		"error_name": apiErr.Name,
	})
}

// EnsureEnvelope returns err's envelope, or an internal-error envelope
// describing it.
func EnsureEnvelope(err error) *errors.ErrorEnvelope {
	if err == nil {
		return escalate(errors.NewErrorEnvelope(CodeInternal, "unexpected nil error"), true)
	}
	var env *errors.ErrorEnvelope
	if stderrors.As(err, &env) && env != nil {
		return env
	}
	env = withCause(errors.NewErrorEnvelope(CodeInternal, "unexpected error"), err)
	return escalate(env, false)
}

// EnsureCorrelationID fills in a missing correlation ID from the request
// context, or a generated fallback.
func EnsureCorrelationID(envelope *errors.ErrorEnvelope, ctx context.Context) *errors.ErrorEnvelope {
	if envelope == nil || envelope.CorrelationID != "" {
		return envelope
	}
	id := requestID(ctx)
	if id == "" {
		id = "fallback-" + errors.GenerateCorrelationID()
	}
	return envelope.WithCorrelationID(id)
}

func HTTPStatusFromEnvelope(envelope *errors.ErrorEnvelope) int {
	if envelope == nil {
		return http.StatusInternalServerError
	}
	return HTTPStatusFromCode(envelope.Code)
}

// HTTPStatusFromCode defaults to 500 for unknown codes.
func HTTPStatusFromCode(code string) int {
	if status, ok := codeStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ResponseDetails merges details and context; details win on key clashes.
func ResponseDetails(envelope *errors.ErrorEnvelope) map[string]interface{} {
	if envelope == nil || len(envelope.Details)+len(envelope.Context) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(envelope.Details)+len(envelope.Context))
	maps.Copy(out, envelope.Context)
	maps.Copy(out, envelope.Details)
	return out
}

// HTTPErrorDetail is the error body returned to callers.
type HTTPErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

type HTTPErrorResponse struct {
	Error HTTPErrorDetail `json:"error"`
}

func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	RespondWithEnvelope(w, r, EnsureEnvelope(err))
}

// RespondWithEnvelope logs the envelope, counts it and writes it as JSON.
func RespondWithEnvelope(w http.ResponseWriter, r *http.Request, envelope *errors.ErrorEnvelope) {
	if w == nil {
		return
	}
	var ctx context.Context
	if r != nil {
		ctx = r.Context()
	}
	envelope = EnsureCorrelationID(EnsureEnvelope(envelopeOrNil(envelope)), ctx)
	status := HTTPStatusFromEnvelope(envelope)

	logEnvelope(envelope, status)
	metrics.RecordError(envelope.Code, status)
	if r != nil {
		metrics.RecordErrorByEndpoint(r.URL.Path, envelope.Code)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(HTTPErrorResponse{Error: HTTPErrorDetail{
		Code:      envelope.Code,
		Message:   envelope.Message,
		Details:   ResponseDetails(envelope),
		RequestID: envelope.CorrelationID,
	}})
}

// envelopeOrNil keeps a typed nil envelope from becoming a non-nil error.
func envelopeOrNil(envelope *errors.ErrorEnvelope) error {
	if envelope == nil {
		return nil
	}
	return envelope
}

func logEnvelope(envelope *errors.ErrorEnvelope, status int) {
	log := observability.ServerLogger
	if log == nil {
		return
	}

	fields := make([]zap.Field, 0, len(envelope.Context)+4)
	fields = append(fields, zap.String("error_code", envelope.Code), zap.Int("http_status", status))
	if envelope.Severity != "" {
		fields = append(fields, zap.String("severity", string(envelope.Severity)))
	}
	if envelope.CorrelationID != "" {
		fields = append(fields, zap.String("request_id", envelope.CorrelationID))
	}
	for key, value := range envelope.Context {
		fields = append(fields, zap.Any(key, value))
	}

	switch envelope.Severity {
	case errors.SeverityCritical, errors.SeverityHigh:
		log.Error(envelope.Message, fields...)
	case errors.SeverityMedium:
		log.Warn(envelope.Message, fields...)
	default:
		log.Info(envelope.Message, fields...)
	}
}
