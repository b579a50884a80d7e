package errors

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// ErrorResponse is the JSON body every failed request gets
type ErrorResponse struct {
	Error     bool                   `json:"error"`
	Type      string                 `json:"type"`
	Message   string                 `json:"message"`
	Code      string                 `json:"code,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// ErrorHandler turns errors into HTTP responses and log lines. With debug
// enabled the response carries stack traces and raw error text; production
// keeps those server-side.
type ErrorHandler struct {
	logger *zap.Logger
	debug  bool
}

// NewErrorHandler creates an error handler
func NewErrorHandler(logger *zap.Logger, debug bool) *ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorHandler{logger: logger, debug: debug}
}

// Handle writes the JSON error response for err and logs it. AppErrors keep
// their type and status; anything else is reported as a 500 with a generic
// message.
func (h *ErrorHandler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}
	requestID := r.Header.Get("X-Request-ID")

	appErr := GetAppError(err)
	if appErr == nil {
		h.logger.Error("unhandled error",
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestID),
		)
		resp := ErrorResponse{
			Error:     true,
			Type:      string(ErrorTypeInternal),
			Message:   "an internal error occurred",
			RequestID: requestID,
		}
		if h.debug {
			resp.Message = err.Error()
		}
		h.writeJSON(w, http.StatusInternalServerError, resp)
		return
	}

	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	h.log(r, appErr, status)

	resp := ErrorResponse{
		Error:     true,
		Type:      string(appErr.Type),
		Message:   appErr.Message,
		Code:      appErr.Code,
		Details:   appErr.Details,
		RequestID: requestID,
	}
	if h.debug && appErr.StackTrace != "" {
		if resp.Details == nil {
			resp.Details = make(map[string]interface{})
		}
		resp.Details["stack_trace"] = appErr.StackTrace
	}
	h.writeJSON(w, status, resp)
}

// Middleware recovers panics from downstream handlers and reports them as
// internal errors
func (h *ErrorHandler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				h.Handle(w, r, NewInternalError(fmt.Sprintf("panic: %v", rec)))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (h *ErrorHandler) log(r *http.Request, err *AppError, status int) {
	fields := []zap.Field{
		zap.String("error_type", string(err.Type)),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("request_id", r.Header.Get("X-Request-ID")),
	}
	if err.Code != "" {
		fields = append(fields, zap.String("error_code", err.Code))
	}
	if err.Cause != nil {
		fields = append(fields, zap.Error(err.Cause))
	}
	if err.Details != nil {
		fields = append(fields, zap.Any("details", err.Details))
	}

	// Server faults are errors; caller faults are warnings
	if status >= 500 {
		h.logger.Error(err.Message, fields...)
		return
	}
	h.logger.Warn(err.Message, fields...)
}

func (h *ErrorHandler) writeJSON(w http.ResponseWriter, status int, resp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode error response", zap.Error(err))
	}
}
