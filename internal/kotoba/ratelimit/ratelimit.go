// Package ratelimit enforces per-user, per-action sliding-window limits on
// the gated command path.
package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// Result is the outcome of a limit check.
type Result struct {
	Allowed bool
	Reason  string
}

// Limiter is the contract consumed by the router. windowSeconds and
// maxRequests come from the gated action's metadata so different action
// types can carry different budgets.
type Limiter interface {
	Check(user, actionType string, window time.Duration, maxRequests int) Result
}

// SlidingWindow tracks call timestamps per (user, actionType) key and
// prunes stale entries on every check, keeping memory bounded to
// O(maxRequests) per active key. Safe for concurrent use.
type SlidingWindow struct {
	mu       sync.Mutex
	counters map[string][]time.Time
	now      func() time.Time
}

// NewSlidingWindow returns an empty limiter.
func NewSlidingWindow() *SlidingWindow {
	return &SlidingWindow{
		counters: make(map[string][]time.Time),
		now:      time.Now,
	}
}

// Check records the current attempt when allowed. A denied attempt is not
// recorded, so a user hammering a denied action does not push their window
// further out.
func (l *SlidingWindow) Check(user, actionType string, window time.Duration, maxRequests int) Result {
	if window <= 0 || maxRequests <= 0 {
		return Result{Allowed: true}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := user + "|" + actionType
	now := l.now()
	cutoff := now.Add(-window)

	existing := l.counters[key]
	valid := existing[:0] // reuse backing array
	for _, t := range existing {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}

	if len(valid) >= maxRequests {
		l.counters[key] = valid
		return Result{
			Allowed: false,
			Reason: fmt.Sprintf("rate limit reached for %s: max %d per %s, try again later",
				actionType, maxRequests, window),
		}
	}

	l.counters[key] = append(valid, now)
	return Result{Allowed: true}
}
