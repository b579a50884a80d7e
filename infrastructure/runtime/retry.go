package runtime

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	pkgerrors "pathway-engine/pkg/errors"
)

// RetryPolicy retries transient failures with exponential backoff and
// jitter. Validation and auth errors surface immediately; a transient error
// that survives every attempt escalates as-is.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy matches the runtime's documented throttling behavior
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 4,
		BaseDelay:   250 * time.Millisecond,
		MaxDelay:    5 * time.Second,
	}
}

// Do runs fn until it succeeds, fails permanently or attempts run out. The
// returned count is the number of attempts actually made, including the
// final one.
func (p RetryPolicy) Do(ctx context.Context, operation string, logger *zap.Logger, fn func(context.Context) error) (int, error) {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return attempt, nil
		}
		if !pkgerrors.IsTransient(err) {
			return attempt, err
		}
		if attempt == p.MaxAttempts {
			break
		}

		delay := p.backoff(attempt)
		logger.Warn("transient failure, retrying",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, pkgerrors.NewTimeoutError(operation).WithCause(ctx.Err())
		case <-timer.C:
		}
	}
	return p.MaxAttempts, err
}

// backoff doubles the base delay per attempt and adds up to 50% jitter so
// concurrent retries spread out
func (p RetryPolicy) backoff(attempt int) time.Duration {
	delay := p.BaseDelay << (attempt - 1)
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/2 + 1))
	return delay + jitter
}
