package admission

import (
	"sync"
	"time"
)

// rateLimitEntry tracks one key's budget inside the current window.
type rateLimitEntry struct {
	count   int
	resetAt time.Time
}

// RateLimiter is a fixed-window per-key limiter with a bounded table.
// When the table is full, expired entries are evicted before any new key
// is refused admission.
type RateLimiter struct {
	mu      sync.Mutex
	entries map[string]*rateLimitEntry
	max     int
	window  time.Duration
	maxKeys int
	now     func() time.Time
}

// NewRateLimiter creates a limiter allowing max events per key per window.
func NewRateLimiter(max int, window time.Duration, maxKeys int) *RateLimiter {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Hour
	}
	if maxKeys <= 0 {
		maxKeys = 10000
	}
	return &RateLimiter{
		entries: make(map[string]*rateLimitEntry),
		max:     max,
		window:  window,
		maxKeys: maxKeys,
		now:     time.Now,
	}
}

// SetClock overrides the time source. Tests only.
func (l *RateLimiter) SetClock(now func() time.Time) {
	l.now = now
}

// Allow consumes one unit of the key's budget and reports whether the
// event is admitted.
func (l *RateLimiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok || now.After(entry.resetAt) {
		if !ok && len(l.entries) >= l.maxKeys {
			l.evictExpiredLocked(now)
			if len(l.entries) >= l.maxKeys {
				// Table still full of live entries; refuse rather than grow
				return false
			}
		}
		l.entries[key] = &rateLimitEntry{count: 1, resetAt: now.Add(l.window)}
		return true
	}

	if entry.count >= l.max {
		return false
	}
	entry.count++
	return true
}

// Remaining reports the unused budget for a key. A key with no entry or
// an expired window has the full budget.
func (l *RateLimiter) Remaining(key string) int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok || now.After(entry.resetAt) {
		return l.max
	}
	if entry.count >= l.max {
		return 0
	}
	return l.max - entry.count
}

// Size returns the number of tracked keys.
func (l *RateLimiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *RateLimiter) evictExpiredLocked(now time.Time) {
	for k, e := range l.entries {
		if now.After(e.resetAt) {
			delete(l.entries, k)
		}
	}
}
