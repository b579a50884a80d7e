package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapKeepsAppErrorTypeAndStatus(t *testing.T) {
	err := Wrap(NewNotFoundError("pathway"), "load for sync")

	appErr := GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, ErrorTypeNotFound, appErr.Type)
	assert.Equal(t, http.StatusNotFound, appErr.HTTPStatus)
	assert.Equal(t, "load for sync: pathway not found", appErr.Message)
}

func TestWrapPromotesPlainErrorsToInternal(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := Wrap(cause, "push pathway")

	appErr := GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, ErrorTypeInternal, appErr.Type)
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, Wrap(nil, "noop"))
}

func TestIsTransientCoversRetryableFailures(t *testing.T) {
	assert.True(t, IsTransient(NewNetworkError("dial failed", nil)))
	assert.True(t, IsTransient(NewTimeoutError("create pathway")))
	assert.True(t, IsTransient(NewUnavailableError("runtime")))

	throttled := NewExternalError("runtime", nil)
	throttled.HTTPStatus = http.StatusTooManyRequests
	assert.True(t, IsTransient(throttled))

	upstream := NewExternalError("runtime", nil)
	upstream.HTTPStatus = http.StatusBadGateway
	assert.True(t, IsTransient(upstream))

	rejected := NewExternalError("runtime", nil)
	rejected.HTTPStatus = http.StatusUnprocessableEntity
	assert.False(t, IsTransient(rejected))

	assert.False(t, IsTransient(NewValidationError("bad document")))
	assert.False(t, IsTransient(NewUnauthorizedError("")))
	assert.False(t, IsTransient(fmt.Errorf("plain")))
}

func TestPartialSyncErrorCarriesResourceIDs(t *testing.T) {
	err := NewPartialSyncError([]string{"kb-1", "kb-2"}, []string{"pw-1"}, fmt.Errorf("upstream 500"))

	assert.True(t, IsType(err, ErrorTypePartialSync))
	assert.Equal(t, http.StatusBadGateway, err.HTTPStatus)

	succeeded, failed := PartialSyncIDs(err)
	assert.Equal(t, []string{"kb-1", "kb-2"}, succeeded)
	assert.Equal(t, []string{"pw-1"}, failed)

	succeeded, failed = PartialSyncIDs(NewValidationError("not a sync error"))
	assert.Nil(t, succeeded)
	assert.Nil(t, failed)
}

func TestPathwayValidationErrorCollectsViolations(t *testing.T) {
	violations := []Violation{
		{Code: "NO_START_NODE", Message: "pathway has no start node"},
		{Code: "DANGLING_EDGE", Subject: "edge-3", Message: "target node-9 does not exist"},
	}
	err := NewPathwayValidationError(violations)

	assert.True(t, IsValidation(err))
	assert.Equal(t, "PATHWAY_INVALID", err.Code)
	assert.Contains(t, err.Message, "NO_START_NODE")
	assert.Contains(t, err.Message, "edge-3")
	assert.Equal(t, violations, Violations(err))
}
