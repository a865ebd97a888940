// Package ratelimit provides explicit per-key token buckets for upstream API
// calls. The policy is declared up front: log-only (track and warn, never
// block) or enforce (wait for a token).
package ratelimit

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Policy controls what happens when the budget is exhausted.
type Policy string

const (
	// PolicyLog allows every call and logs a warning when over budget.
	PolicyLog Policy = "log"
	// PolicyEnforce blocks until a token is available or ctx is done.
	PolicyEnforce Policy = "enforce"
)

// Limiter tracks a token bucket per key (typically one per provider).
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	perMin  int
	policy  Policy
	logger  *zap.Logger
}

// New creates a Limiter allowing perMinute requests per key.
// A non-positive perMinute disables limiting entirely.
func New(perMinute int, policy Policy, logger *zap.Logger) *Limiter {
	if policy == "" {
		policy = PolicyLog
	}
	return &Limiter{
		buckets: make(map[string]*rate.Limiter),
		perMin:  perMinute,
		policy:  policy,
		logger:  logger,
	}
}

func (l *Limiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[key]
	if !ok {
		b = rate.NewLimiter(rate.Limit(float64(l.perMin)/60.0), l.perMin)
		l.buckets[key] = b
	}
	return b
}

// Acquire applies the configured policy for one call under key.
// Under PolicyLog it never blocks and never fails.
func (l *Limiter) Acquire(ctx context.Context, key string) error {
	if l.perMin <= 0 {
		return nil
	}

	b := l.bucket(key)

	if l.policy == PolicyEnforce {
		return b.Wait(ctx)
	}

	if !b.Allow() {
		l.logger.Warn("rate budget exceeded, proceeding anyway",
			zap.String("key", key),
			zap.Int("per_minute", l.perMin),
		)
	}
	return nil
}
