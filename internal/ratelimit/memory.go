package ratelimit

import (
	"context"
	"sync"
	"time"
)

// memorySweepThreshold bounds how many keys accumulate before closed windows are dropped.
const memorySweepThreshold = 4096

type memoryWindow struct {
	index  int64
	closes time.Time
	count  int
}

var _ Limiter = (*MemoryLimiter)(nil)

// MemoryLimiter is a process-local fixed-window counter.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow
}

// NewMemoryLimiter constructs a MemoryLimiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{windows: make(map[string]*memoryWindow)}
}

// Allow consumes one request for key in the window holding now.
func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error) {
	if limit <= 0 || key == "" {
		return Result{Allowed: true}, nil
	}
	index, closes := windowBounds(now, window)

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.windows) >= memorySweepThreshold {
		l.sweep(now)
	}
	current := l.windows[key]
	if current == nil || current.index != index {
		current = &memoryWindow{index: index, closes: closes}
		l.windows[key] = current
	}
	if current.count >= limit {
		return Result{Allowed: false, Remaining: 0, Reset: closes}, nil
	}
	current.count++
	return Result{Allowed: true, Remaining: limit - current.count, Reset: closes}, nil
}

func (l *MemoryLimiter) sweep(now time.Time) {
	for key, w := range l.windows {
		if !now.Before(w.closes) {
			delete(l.windows, key)
		}
	}
}

// Len reports the number of tracked keys.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
