package ratelimit

import (
	"context"
	"time"

	"swiftconcur/internal/platform/async"
	"swiftconcur/internal/platform/logger"
	"swiftconcur/internal/platform/metrics"
)

// Counter is the shared counter store
type Counter interface {
	// Get returns the values at keys, zero for missing ones
	Get(ctx context.Context, keys ...string) ([]int64, error)
	// Incr adds one to key and sets its expiry
	Incr(ctx context.Context, key string, ttl time.Duration) error
}

// Limiter checks (tenant, client) pairs against a per-tenant hourly limit
type Limiter struct {
	counter Counter
	bg      async.Runner
	now     func() time.Time
	timeout time.Duration
}

// Option configures a Limiter
type Option func(*Limiter)

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option { return func(l *Limiter) { l.now = now } }

// WithTimeout bounds the counter read; default 250ms
func WithTimeout(d time.Duration) Option { return func(l *Limiter) { l.timeout = d } }

// New builds a Limiter; increments run on bg
func New(c Counter, bg async.Runner, opts ...Option) *Limiter {
	l := &Limiter{counter: c, bg: bg, now: time.Now, timeout: 250 * time.Millisecond}
	for _, o := range opts {
		o(l)
	}
	if l.bg == nil {
		l.bg = async.Inline{}
	}
	return l
}

// Allow decides whether the request may proceed. Store failures allow it
func (l *Limiter) Allow(ctx context.Context, tenant, client string, limit int) Decision {
	now := l.now()
	b := Bucket(now)
	cur, prev := Key(tenant, client, b), Key(tenant, client, b-1)

	rctx, cancel := context.WithTimeout(ctx, l.timeout)
	vals, err := l.counter.Get(rctx, cur, prev)
	cancel()
	if err != nil || len(vals) != 2 {
		metrics.RateDecision(metrics.DecisionFailOpen)
		logger.Named("ratelimit").Warn().Err(err).Str("tenant", tenant).Msg("counter store unavailable, failing open")
		return Open(limit, now)
	}

	d := Decide(limit, vals[1], vals[0], now)
	if !d.Allowed {
		metrics.RateDecision(metrics.DecisionDenied)
		return d
	}
	metrics.RateDecision(metrics.DecisionAllowed)
	l.bg.Go("ratelimit.incr", func(ctx context.Context) error {
		return l.counter.Incr(ctx, cur, TTL)
	})
	return d
}
