package ratelimiter

import (
	"context"
	"sync"
	"time"
)

type windowState struct {
	start time.Time // The start time of the window.
	count int       // Number of requests seen in the window.
}

// FixedWindowCounter implements the RateLimiter interface using a fixed window counter algorithm.
// It allows limit requests per key in each window. Windows are aligned to
// multiples of the window duration so that all keys roll over together.
type FixedWindowCounter struct {
	limit   int           // Maximum number of requests allowed in the window.
	window  time.Duration // The duration of the time window.
	windows map[string]*windowState
	now     func() time.Time
	mutex   sync.Mutex
}

// NewFixedWindowCounter creates a new FixedWindowCounter.
// limit: the maximum number of requests allowed in the window.
// window: the duration of the time window.
func NewFixedWindowCounter(limit int, window time.Duration) *FixedWindowCounter {
	return &FixedWindowCounter{
		limit:   limit,
		window:  window,
		windows: make(map[string]*windowState),
		now:     time.Now,
	}
}

// Allow counts the request against the key's current window.
func (fwc *FixedWindowCounter) Allow(_ context.Context, key string) bool {
	fwc.mutex.Lock()
	defer fwc.mutex.Unlock()

	start := fwc.now().Truncate(fwc.window)
	w, ok := fwc.windows[key]
	if !ok {
		if len(fwc.windows) >= maxIdleKeys {
			fwc.prune(start)
		}
		w = &windowState{start: start}
		fwc.windows[key] = w
	}
	// If the window has passed, reset it.
	if !w.start.Equal(start) {
		w.start = start
		w.count = 0
	}

	if w.count < fwc.limit {
		w.count++
		return true
	}
	return false
}

// prune drops windows that ended before current.
func (fwc *FixedWindowCounter) prune(current time.Time) {
	for key, w := range fwc.windows {
		if w.start.Before(current) {
			delete(fwc.windows, key)
		}
	}
}
