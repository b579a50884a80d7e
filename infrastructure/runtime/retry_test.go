package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "pathway-engine/pkg/errors"
)

func fastPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 4, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestRetrySucceedsOnThirdAttempt(t *testing.T) {
	calls := 0
	attempts, err := fastPolicy().Do(context.Background(), "op", nil, func(context.Context) error {
		calls++
		if calls < 3 {
			return pkgerrors.NewNetworkError("flaky", nil)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, calls)
}

func TestRetryNeverRepeatsPermanentFailure(t *testing.T) {
	calls := 0
	attempts, err := fastPolicy().Do(context.Background(), "op", nil, func(context.Context) error {
		calls++
		return pkgerrors.NewValidationError("bad payload")
	})

	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
}

func TestRetryEscalatesAfterMaxAttempts(t *testing.T) {
	calls := 0
	attempts, err := fastPolicy().Do(context.Background(), "op", nil, func(context.Context) error {
		calls++
		return pkgerrors.NewUnavailableError("runtime")
	})

	require.Error(t, err)
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeUnavailable))
	assert.Equal(t, 4, attempts)
	assert.Equal(t, 4, calls)
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	policy := RetryPolicy{MaxAttempts: 10, BaseDelay: 50 * time.Millisecond}

	_, err := policy.Do(ctx, "op", nil, func(context.Context) error {
		calls++
		cancel()
		return pkgerrors.NewNetworkError("flaky", nil)
	})

	require.Error(t, err)
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeTimeout))
	assert.Equal(t, 1, calls)
}
