package runtime

import (
	"context"
	"sync"
	"time"

	pkgerrors "pathway-engine/pkg/errors"
)

// Limiter is a token bucket guarding outbound runtime calls. A caller that
// arrives with the bucket empty waits for a refill instead of failing; only
// when the wait queue itself is full does Acquire reject immediately.
type Limiter struct {
	mu         sync.Mutex
	tokens     float64
	capacity   float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	waiting    int
	maxWaiting int

	requests int
	window   time.Duration
}

// NewLimiter creates a limiter allowing `requests` calls per `window`, with
// at most `maxWaiting` callers queued for a token
func NewLimiter(requests int, window time.Duration, maxWaiting int) *Limiter {
	if requests < 1 {
		requests = 1
	}
	if window <= 0 {
		window = time.Second
	}
	if maxWaiting < 0 {
		maxWaiting = 0
	}
	return &Limiter{
		tokens:     float64(requests),
		capacity:   float64(requests),
		refillRate: float64(requests) / window.Seconds(),
		lastRefill: time.Now(),
		maxWaiting: maxWaiting,
		requests:   requests,
		window:     window,
	}
}

// Acquire blocks until a token is available or the context ends. It returns
// a rate limit error only when the wait queue is already full.
func (l *Limiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	l.refill()
	if l.tokens >= 1 {
		l.tokens--
		l.mu.Unlock()
		return nil
	}
	if l.waiting >= l.maxWaiting {
		l.mu.Unlock()
		return pkgerrors.NewRateLimitError(l.requests, l.window.String())
	}
	l.waiting++
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.waiting--
		l.mu.Unlock()
	}()

	for {
		l.mu.Lock()
		l.refill()
		if l.tokens >= 1 {
			l.tokens--
			l.mu.Unlock()
			return nil
		}
		wait := time.Duration((1 - l.tokens) / l.refillRate * float64(time.Second))
		l.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return pkgerrors.NewTimeoutError("rate limiter wait").WithCause(ctx.Err())
		case <-timer.C:
		}
	}
}

// Waiting reports how many callers are currently queued for a token
func (l *Limiter) Waiting() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.waiting
}

// refill must be called with the mutex held
func (l *Limiter) refill() {
	now := time.Now()
	elapsed := now.Sub(l.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	l.tokens += elapsed * l.refillRate
	if l.tokens > l.capacity {
		l.tokens = l.capacity
	}
	l.lastRefill = now
}
