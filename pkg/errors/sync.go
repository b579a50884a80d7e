package errors

import (
	"fmt"
	"net/http"
	"strings"
)

// Violation describes a single structural problem found in a pathway.
// A validation pass collects every violation before reporting, so callers
// see the full picture in one error.
type Violation struct {
	Code    string `json:"code"`
	Subject string `json:"subject,omitempty"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	if v.Subject != "" {
		return fmt.Sprintf("%s (%s): %s", v.Code, v.Subject, v.Message)
	}
	return fmt.Sprintf("%s: %s", v.Code, v.Message)
}

// NewPathwayValidationError creates a validation error carrying every
// collected violation.
func NewPathwayValidationError(violations []Violation) *AppError {
	msgs := make([]string, len(violations))
	for i, v := range violations {
		msgs[i] = v.String()
	}
	return NewValidationError("pathway validation failed: " + strings.Join(msgs, "; ")).
		WithCode("PATHWAY_INVALID").
		WithDetail("violations", violations)
}

// Violations extracts the violation list from a validation error, or nil.
func Violations(err error) []Violation {
	appErr := GetAppError(err)
	if appErr == nil || appErr.Type != ErrorTypeValidation {
		return nil
	}
	violations, _ := appErr.Details["violations"].([]Violation)
	return violations
}

// NewPartialSyncError reports a multi-resource sync that committed some
// resources remotely before failing. Succeeded ids are live on the remote
// runtime and must not be silently discarded.
func NewPartialSyncError(succeeded, failed []string, cause error) *AppError {
	msg := fmt.Sprintf("sync partially applied: %d succeeded, %d failed", len(succeeded), len(failed))
	return newError(ErrorTypePartialSync, msg, http.StatusBadGateway).
		WithCause(cause).
		WithDetail("succeeded", succeeded).
		WithDetail("failed", failed)
}

// PartialSyncIDs returns the succeeded and failed resource ids from a
// partial sync error.
func PartialSyncIDs(err error) (succeeded, failed []string) {
	appErr := GetAppError(err)
	if appErr == nil || appErr.Type != ErrorTypePartialSync {
		return nil, nil
	}
	succeeded, _ = appErr.Details["succeeded"].([]string)
	failed, _ = appErr.Details["failed"].([]string)
	return succeeded, failed
}

// IsTransient reports whether an error is worth retrying: network faults,
// timeouts and remote-side throttling or 5xx responses. Validation and
// auth failures are never transient.
func IsTransient(err error) bool {
	appErr := GetAppError(err)
	if appErr == nil {
		return false
	}
	switch appErr.Type {
	case ErrorTypeNetwork, ErrorTypeTimeout, ErrorTypeUnavailable:
		return true
	case ErrorTypeExternal:
		return appErr.HTTPStatus == http.StatusTooManyRequests || appErr.HTTPStatus >= 500
	default:
		return false
	}
}
