package apperror

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"strings"
)

// AppError is an error with a stable code, a user-facing message and the
// HTTP status it maps to.
type AppError struct {
	Code       Code   `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
	Context    string `json:"context,omitempty"`

	cause error
	pc    uintptr
}

func (e *AppError) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Code))
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.Context != "" {
		sb.WriteString(" (")
		sb.WriteString(e.Context)
		sb.WriteString(")")
	}
	if e.cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.cause.Error())
	}
	return sb.String()
}

func (e *AppError) Unwrap() error { return e.cause }

// Is matches any AppError with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && e.Code == t.Code
}

// Public is the message safe to return to API clients: no cause, no
// internals.
func (e *AppError) Public() string {
	if e.Context == "" {
		return e.Message
	}
	return e.Message + ": " + e.Context
}

// Source is the file:line that created the error.
func (e *AppError) Source() string {
	if e.pc == 0 {
		return ""
	}
	frame, _ := runtime.CallersFrames([]uintptr{e.pc}).Next()
	return fmt.Sprintf("%s:%d", frame.File, frame.Line)
}

// LogValue renders the error as a group in structured logs.
func (e *AppError) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("code", string(e.Code)),
		slog.String("message", e.Message),
	}
	if e.Context != "" {
		attrs = append(attrs, slog.String("context", e.Context))
	}
	if e.cause != nil {
		attrs = append(attrs, slog.String("cause", e.cause.Error()))
	}
	if src := e.Source(); src != "" {
		attrs = append(attrs, slog.String("source", src))
	}
	return slog.GroupValue(attrs...)
}

// Option configures New.
type Option func(*AppError)

func WithMessage(message string) Option { return func(e *AppError) { e.Message = message } }
func WithContext(context string) Option { return func(e *AppError) { e.Context = context } }
func WithStatusCode(status int) Option  { return func(e *AppError) { e.StatusCode = status } }
func WithCause(cause error) Option      { return func(e *AppError) { e.cause = cause } }

// New creates an error for code. Message and status default from the code.
func New(code Code, opts ...Option) *AppError {
	return newError(2, code, opts...)
}

func newError(skip int, code Code, opts ...Option) *AppError {
	var pcs [1]uintptr
	runtime.Callers(skip+1, pcs[:])

	e := &AppError{
		Code:       code,
		Message:    messages[code],
		StatusCode: statusFor(code),
		pc:         pcs[0],
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.Message == "" {
		e.Message = strings.ReplaceAll(strings.ToLower(string(code)), "_", " ")
	}
	return e
}

// NotFound is a 404.
func NotFound(code Code, context string) *AppError {
	return newError(2, code, WithContext(context), WithStatusCode(http.StatusNotFound))
}

// Validation is a 400.
func Validation(code Code, context string) *AppError {
	return newError(2, code, WithContext(context), WithStatusCode(http.StatusBadRequest))
}

// Internal is a 500 wrapping cause.
func Internal(code Code, context string, cause error) *AppError {
	return newError(2, code, WithContext(context), WithCause(cause), WithStatusCode(http.StatusInternalServerError))
}

// External is a 503 for a failing upstream.
func External(code Code, context string, cause error) *AppError {
	return newError(2, code, WithContext(context), WithCause(cause), WithStatusCode(http.StatusServiceUnavailable))
}

// Wrap returns err unchanged when it already carries an AppError, filling
// in context if it had none. Other errors become Internal. Wrap(nil) is nil.
func Wrap(err error, code Code, context string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.Context == "" {
			appErr.Context = context
		}
		return err
	}
	return newError(2, code, WithContext(context), WithCause(err), WithStatusCode(http.StatusInternalServerError))
}

// GetCode returns the code of the first AppError in err's chain, or
// CodeUnknownError.
func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknownError
}

// HTTPStatus returns the status carried by err, or 500.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// statusFor maps a code to a status by its naming convention: INVALID_* is
// a client error, *_NOT_FOUND a 404, connection and timeout failures a 503.
func statusFor(code Code) int {
	if status, ok := statusOverrides[code]; ok {
		return status
	}
	s := string(code)
	switch {
	case strings.Contains(s, "NOT_FOUND"):
		return http.StatusNotFound
	case strings.HasPrefix(s, "INVALID"), strings.HasSuffix(s, "_INVALID"):
		return http.StatusBadRequest
	case strings.Contains(s, "CONNECTION"), strings.Contains(s, "TIMEOUT"), strings.Contains(s, "UNAVAILABLE"):
		return http.StatusServiceUnavailable
	case strings.HasSuffix(s, "RATE_LIMITED"), strings.HasSuffix(s, "RATE_LIMIT_EXCEEDED"):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

var statusOverrides = map[Code]int{
	CodeRequiredField:        http.StatusBadRequest,
	CodeValidationError:      http.StatusBadRequest,
	CodeRiskLimitExceeded:    http.StatusUnprocessableEntity,
	CodeSlippageExceeded:     http.StatusUnprocessableEntity,
	CodeShortHistory:         http.StatusUnprocessableEntity,
	CodeAggregatorNoPrices:   http.StatusServiceUnavailable,
	CodeCircuitOpen:          http.StatusServiceUnavailable,
	CodeExternalServiceError: http.StatusBadGateway,
}
