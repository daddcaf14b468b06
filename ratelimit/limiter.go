// Package ratelimit provides a fixed-window rate limiter that delays callers
// instead of rejecting them. Windows are aligned to epoch boundaries so that
// two clients with the same configuration agree on window edges.
package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

const (
	// DefaultWindow is the default window duration.
	DefaultWindow = time.Minute

	// DefaultMaxRequests is the default number of requests per window.
	DefaultMaxRequests = 1000

	// maxJitter bounds the random offset added to window waits so concurrent
	// callers do not all wake on the exact window boundary.
	maxJitter = 250 * time.Millisecond
)

// Config describes a fixed window.
//
// MaxRequests <= 0 means unlimited: Acquire never blocks. Window <= 0 falls
// back to DefaultWindow.
type Config struct {
	Window      time.Duration `mapstructure:"window"`
	MaxRequests int           `mapstructure:"max_requests"`
}

func (c Config) withDefaults() Config {
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	return c
}

// FixedWindow is a thread-safe fixed-window limiter. One instance is owned by
// each client; all mutation happens under the mutex, sleeping happens outside it.
type FixedWindow struct {
	cfg Config

	// Clock reports the current time. Overridable in tests.
	Clock func() time.Time

	mu          sync.Mutex
	windowStart time.Time
	count       int

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() time.Duration
}

// New returns a limiter for the given config. Zero-value fields take defaults.
func New(cfg Config) *FixedWindow {
	l := &FixedWindow{
		cfg:   cfg.withDefaults(),
		Clock: time.Now,
		sleep: sleepContext,
		jitter: func() time.Duration {
			return time.Duration(rand.Int63n(int64(maxJitter)))
		},
	}
	return l
}

// Acquire blocks until a request slot is available in the current window,
// increments the in-window count, and returns. It never rejects; the only
// error it returns is the context's, when the caller's deadline expires or
// the caller cancels while waiting for the next window.
func (l *FixedWindow) Acquire(ctx context.Context) error {
	if l.cfg.MaxRequests <= 0 {
		return ctx.Err()
	}

	for {
		wait, ok := l.tryAcquire()
		if ok {
			return nil
		}
		if err := l.sleep(ctx, wait+l.jitter()); err != nil {
			return err
		}
	}
}

// tryAcquire takes a slot if one is free, returning (0, true). Otherwise it
// returns the time remaining until the next window opens.
func (l *FixedWindow) tryAcquire() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.Clock()
	start := l.currentWindowStart(now)
	if !start.Equal(l.windowStart) {
		l.windowStart = start
		l.count = 0
	}

	if l.count < l.cfg.MaxRequests {
		l.count++
		return 0, true
	}

	next := l.windowStart.Add(l.cfg.Window)
	wait := next.Sub(now)
	if wait < 0 {
		wait = 0
	}
	return wait, false
}

// currentWindowStart aligns now to the fixed window grid:
// floor(unix(now) / window) * window.
func (l *FixedWindow) currentWindowStart(now time.Time) time.Time {
	return now.Truncate(l.cfg.Window)
}

// Count reports the number of slots taken in the window containing now.
func (l *FixedWindow) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.currentWindowStart(l.Clock()).Equal(l.windowStart) {
		return 0
	}
	return l.count
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
