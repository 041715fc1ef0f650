// Package ratelimit provides a store-backed fixed-window request limiter.
// Counters live in the shared store, so the limits hold across every
// process serving the same session.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/auxwars/auxwars/internal/metrics"
	"github.com/auxwars/auxwars/internal/store"
)

// Class buckets requests by cost profile. Each class carries its own
// window and budget.
type Class string

const (
	ClassRead   Class = "read"
	ClassVote   Class = "vote"
	ClassAdd    Class = "add"
	ClassSearch Class = "search"
	ClassAdmin  Class = "admin"
)

// Limit is the per-class budget: at most Requests per Window.
type Limit struct {
	Requests int64
	Window   time.Duration
}

// Limits maps every class to its budget.
type Limits map[Class]Limit

// DefaultLimits returns the built-in budgets.
func DefaultLimits() Limits {
	return Limits{
		ClassRead:   {Requests: 120, Window: time.Minute},
		ClassVote:   {Requests: 30, Window: time.Minute},
		ClassAdd:    {Requests: 10, Window: time.Minute},
		ClassSearch: {Requests: 20, Window: time.Minute},
		ClassAdmin:  {Requests: 60, Window: time.Minute},
	}
}

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter counts requests per (class, client) in fixed windows keyed by
// the window's start instant.
type Limiter struct {
	store  store.Store
	limits Limits

	now func() time.Time
}

// New builds a limiter over the given store. Classes missing from limits
// are unlimited.
func New(st store.Store, limits Limits) *Limiter {
	return &Limiter{store: st, limits: limits, now: time.Now}
}

// Allow admits or rejects one request from the given client. Counter
// bumps are atomic store increments, so concurrent requests across
// processes never under-count. On store failure the limiter fails open:
// an unreachable store should degrade throttling, not availability.
func (l *Limiter) Allow(ctx context.Context, class Class, clientID string) Decision {
	limit, ok := l.limits[class]
	if !ok || limit.Requests <= 0 {
		return Decision{Allowed: true}
	}

	now := l.now()
	windowStart := now.Truncate(limit.Window)
	key := fmt.Sprintf("rl:%s:%s:%d", class, clientID, windowStart.Unix())

	n, err := l.store.Incr(ctx, key, 1)
	if err != nil {
		return Decision{Allowed: true}
	}
	if n == 1 {
		// First hit in the window owns the counter's expiry. The TTL is
		// double the window so a slow clock never drops a live counter.
		_ = l.store.Expire(ctx, key, 2*limit.Window)
	}
	if n > limit.Requests {
		metrics.RateLimited.WithLabelValues(string(class)).Inc()
		return Decision{
			Allowed:    false,
			RetryAfter: windowStart.Add(limit.Window).Sub(now),
		}
	}
	return Decision{Allowed: true}
}
