// Package ratelimit bounds outbound request rate to a rolling window quota.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultLimit keeps the effective ceiling a safety margin below the
	// registry's 600-requests-per-5-minutes quota.
	DefaultLimit = 580
	// DefaultWindow is the registry's quota window.
	DefaultWindow = 5 * time.Minute
)

// Limiter admits requests only while the count of requests within the
// trailing window stays at or below the configured limit. It owns the rolling
// window of request timestamps: entries are appended on each admit and expired
// entries pruned on each check.
type Limiter struct {
	now    func() time.Time
	sleep  func(context.Context, time.Duration) error
	window time.Duration
	limit  int
	times  []time.Time
	mu     sync.Mutex
}

// New creates a limiter admitting at most limit requests per trailing window.
func New(limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{
		limit:  limit,
		window: window,
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

// Acquire blocks until issuing one more request would not push the trailing
// window count above the limit, then records the request timestamp.
func (l *Limiter) Acquire(ctx context.Context) error {
	for {
		wait, ok := l.tryAdmit()
		if ok {
			return nil
		}
		if err := l.sleep(ctx, wait); err != nil {
			return fmt.Errorf("rate limiter canceled: %w", err)
		}
	}
}

// tryAdmit prunes expired entries and either records a new timestamp or
// reports how long to wait for the oldest entry to leave the window.
func (l *Limiter) tryAdmit() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.times) && !l.times[i].After(cutoff) {
		i++
	}
	l.times = l.times[i:]

	if len(l.times) < l.limit {
		l.times = append(l.times, now)
		return 0, true
	}

	wait := l.window - now.Sub(l.times[0]) + time.Second
	if wait < time.Second {
		wait = time.Second
	}
	return wait, false
}

// Pending returns the number of requests currently counted in the window.
func (l *Limiter) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.window)
	n := 0
	for _, t := range l.times {
		if t.After(cutoff) {
			n++
		}
	}
	return n
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
