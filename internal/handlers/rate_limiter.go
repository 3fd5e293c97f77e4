package handlers

import (
	"strings"
	"sync"
	"time"
)

// rateLimiter throttles catalog mutations per session key.
type rateLimiter interface {
	Allow(key string) bool
}

// fixedWindowLimiter counts mutations per key inside a fixed window. Counters
// live in memory only, the same lifetime as the catalog they guard.
type fixedWindowLimiter struct {
	limit  int
	window time.Duration
	clock  func() time.Time

	mu      sync.Mutex
	windows map[string]*mutationWindow
}

type mutationWindow struct {
	openedAt time.Time
	used     int
}

// newMutationLimiter returns a fixed-window limiter, or nil when the limit or
// window is unset so callers can skip throttling entirely.
func newMutationLimiter(limit int, window time.Duration, clock func() time.Time) rateLimiter {
	if limit <= 0 || window <= 0 {
		return nil
	}
	if clock == nil {
		clock = time.Now
	}
	return &fixedWindowLimiter{
		limit:   limit,
		window:  window,
		clock:   clock,
		windows: make(map[string]*mutationWindow),
	}
}

func (l *fixedWindowLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	if key = strings.TrimSpace(key); key == "" {
		key = "anonymous"
	}

	now := l.clock()
	l.mu.Lock()
	defer l.mu.Unlock()

	win := l.windows[key]
	if win == nil || now.Sub(win.openedAt) >= l.window {
		l.dropClosedWindows(now)
		l.windows[key] = &mutationWindow{openedAt: now, used: 1}
		return true
	}
	if win.used >= l.limit {
		return false
	}
	win.used++
	return true
}

// dropClosedWindows evicts counters whose window has ended so the map does not
// grow with one entry per historical session. Callers hold the lock.
func (l *fixedWindowLimiter) dropClosedWindows(now time.Time) {
	for key, win := range l.windows {
		if now.Sub(win.openedAt) >= l.window {
			delete(l.windows, key)
		}
	}
}
