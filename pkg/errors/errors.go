package errors

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
)

// ErrorType classifies an AppError for transport mapping and retry decisions
type ErrorType string

const (
	// Domain errors
	ErrorTypeValidation   ErrorType = "VALIDATION"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"

	// Application errors
	ErrorTypeInternal    ErrorType = "INTERNAL"
	ErrorTypeTimeout     ErrorType = "TIMEOUT"
	ErrorTypeRateLimit   ErrorType = "RATE_LIMIT"
	ErrorTypeUnavailable ErrorType = "UNAVAILABLE"
	ErrorTypePartialSync ErrorType = "PARTIAL_SYNC"

	// Infrastructure errors
	ErrorTypeDatabase ErrorType = "DATABASE"
	ErrorTypeNetwork  ErrorType = "NETWORK"
	ErrorTypeExternal ErrorType = "EXTERNAL"
)

// AppError is the error currency of the whole service: every layer either
// returns one directly or wraps a lower-level failure into one. The HTTP
// handler layer renders Type, Message, Code and Details; Cause and the
// stack stay server-side.
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	Code       string                 `json:"code,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	StackTrace string                 `json:"-"`
	HTTPStatus int                    `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap exposes the cause to errors.Is / errors.As
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCode attaches a machine-readable code for clients
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithDetails replaces the detail map
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// WithDetail sets one detail entry, allocating the map on first use
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithCause records the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// newError is the shared constructor; skip=4 puts the top frame at the
// caller of the exported New* function
func newError(t ErrorType, message string, status int) *AppError {
	return &AppError{
		Type:       t,
		Message:    message,
		HTTPStatus: status,
		StackTrace: captureStackTrace(),
	}
}

func captureStackTrace() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(4, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	stack := ""
	for {
		frame, more := frames.Next()
		stack += fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function)
		if !more {
			break
		}
	}
	return stack
}

// NewValidationError reports bad input from a caller
func NewValidationError(message string) *AppError {
	return newError(ErrorTypeValidation, message, http.StatusBadRequest)
}

// NewNotFoundError reports that the named resource does not exist
func NewNotFoundError(resource string) *AppError {
	return newError(ErrorTypeNotFound, resource+" not found", http.StatusNotFound)
}

// NewConflictError reports a state conflict, such as a concurrent writer
// winning a conditional update
func NewConflictError(message string) *AppError {
	return newError(ErrorTypeConflict, message, http.StatusConflict)
}

// NewUnauthorizedError reports missing or invalid credentials
func NewUnauthorizedError(message string) *AppError {
	if message == "" {
		message = "unauthorized"
	}
	return newError(ErrorTypeUnauthorized, message, http.StatusUnauthorized)
}

// NewForbiddenError reports valid credentials with insufficient rights
func NewForbiddenError(message string) *AppError {
	if message == "" {
		message = "forbidden"
	}
	return newError(ErrorTypeForbidden, message, http.StatusForbidden)
}

// NewInternalError reports a failure the caller cannot act on
func NewInternalError(message string) *AppError {
	return newError(ErrorTypeInternal, message, http.StatusInternalServerError)
}

// NewTimeoutError reports an operation that exceeded its deadline
func NewTimeoutError(operation string) *AppError {
	return newError(ErrorTypeTimeout, fmt.Sprintf("operation '%s' timed out", operation), http.StatusRequestTimeout)
}

// NewRateLimitError reports a caller exceeding its request budget
func NewRateLimitError(limit int, window string) *AppError {
	return newError(ErrorTypeRateLimit, fmt.Sprintf("rate limit exceeded: %d requests per %s", limit, window), http.StatusTooManyRequests)
}

// NewUnavailableError reports a dependency that is temporarily down
func NewUnavailableError(service string) *AppError {
	return newError(ErrorTypeUnavailable, fmt.Sprintf("service '%s' is unavailable", service), http.StatusServiceUnavailable)
}

// NewDatabaseError wraps a persistence failure
func NewDatabaseError(operation string, err error) *AppError {
	return newError(ErrorTypeDatabase, fmt.Sprintf("database operation '%s' failed", operation), http.StatusInternalServerError).WithCause(err)
}

// NewNetworkError wraps a transport-level failure
func NewNetworkError(message string, err error) *AppError {
	return newError(ErrorTypeNetwork, message, http.StatusBadGateway).WithCause(err)
}

// NewExternalError wraps a failure reported by an upstream service
func NewExternalError(service string, err error) *AppError {
	return newError(ErrorTypeExternal, fmt.Sprintf("external service '%s' error", service), http.StatusBadGateway).WithCause(err)
}

// IsAppError reports whether err carries an AppError anywhere in its chain
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError returns the first AppError in the chain, or nil
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsType reports whether the chain carries an AppError of the given type
func IsType(err error, errType ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == errType
}

func IsNotFound(err error) bool {
	return IsType(err, ErrorTypeNotFound)
}

func IsValidation(err error) bool {
	return IsType(err, ErrorTypeValidation)
}

func IsUnauthorized(err error) bool {
	return IsType(err, ErrorTypeUnauthorized)
}

func IsRateLimit(err error) bool {
	return IsType(err, ErrorTypeRateLimit)
}

func IsConflict(err error) bool {
	return IsType(err, ErrorTypeConflict)
}

// Wrap prefixes an error with context. An AppError keeps its type and
// status; anything else becomes an internal error.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr := GetAppError(err); appErr != nil {
		appErr.Message = message + ": " + appErr.Message
		return appErr
	}
	return NewInternalError(message).WithCause(err)
}

// Wrapf is Wrap with a format string
func Wrapf(err error, format string, args ...interface{}) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}
