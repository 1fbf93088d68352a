// Package ratelimit provides the request throttle applied to the
// authentication endpoints.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Info reports the state of a rate-limit bucket after a check.
type Info struct {
	TotalRequests     int64
	RemainingRequests int64
	ResetTime         time.Time
	IsRateLimited     bool
}

type Limiter interface {
	// CheckRateLimit counts a request against key and reports whether the
	// caller is over the limit.
	CheckRateLimit(ctx context.Context, key string) (*Info, error)
}

type bucket struct {
	count       int64
	windowStart time.Time
}

// FixedWindowLimiter counts requests per key in fixed windows, in memory.
// Counts are per process; behind multiple nodes each node enforces its own
// share of the limit.
type FixedWindowLimiter struct {
	limit   int64
	window  time.Duration
	nowFunc func() time.Time

	buckets map[string]*bucket
	lock    sync.Mutex
}

type LimiterOption func(*FixedWindowLimiter)

func WithNowFunc(now func() time.Time) LimiterOption {
	return func(l *FixedWindowLimiter) { l.nowFunc = now }
}

func NewFixedWindowLimiter(limit int64, window time.Duration, options ...LimiterOption) *FixedWindowLimiter {
	l := &FixedWindowLimiter{
		limit:   limit,
		window:  window,
		nowFunc: time.Now,
		buckets: make(map[string]*bucket),
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

func (l *FixedWindowLimiter) CheckRateLimit(ctx context.Context, key string) (*Info, error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	now := l.nowFunc()
	b, ok := l.buckets[key]
	if !ok || now.Sub(b.windowStart) >= l.window {
		b = &bucket{windowStart: now}
		l.buckets[key] = b
	}
	b.count++

	remaining := l.limit - b.count
	if remaining < 0 {
		remaining = 0
	}
	return &Info{
		TotalRequests:     b.count,
		RemainingRequests: remaining,
		ResetTime:         b.windowStart.Add(l.window),
		IsRateLimited:     b.count > l.limit,
	}, nil
}

// Prune drops buckets whose window has passed. Callers run this
// periodically to bound memory.
func (l *FixedWindowLimiter) Prune() int {
	l.lock.Lock()
	defer l.lock.Unlock()

	now := l.nowFunc()
	pruned := 0
	for key, b := range l.buckets {
		if now.Sub(b.windowStart) >= l.window {
			delete(l.buckets, key)
			pruned++
		}
	}
	return pruned
}
