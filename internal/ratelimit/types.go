package ratelimit

import (
	"context"
	"errors"
	"time"
)

// ErrRateLimited is returned when a caller exceeds its limit.
var ErrRateLimited = errors.New("rate limit exceeded")

// Result describes the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

// Limiter counts requests per key in fixed windows of the given length.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error)
}

// Scope indicates which action the rate limit applies to.
type Scope int

const (
	ScopeNone Scope = iota
	ScopeLogin
	ScopeVote
)

// String returns the scope label used in keys and metrics.
func (s Scope) String() string {
	switch s {
	case ScopeLogin:
		return "login"
	case ScopeVote:
		return "vote"
	default:
		return "none"
	}
}

// Decision is the resolved budget for a scope: Limit requests per Window.
type Decision struct {
	Limit  int
	Window time.Duration
	Scope  Scope
}

// windowBounds returns the index of the fixed window holding now and the
// instant that window closes. Windows shorter than a second are widened.
func windowBounds(now time.Time, window time.Duration) (int64, time.Time) {
	if window < time.Second {
		window = time.Second
	}
	index := now.UnixNano() / int64(window)
	return index, time.Unix(0, (index+1)*int64(window)).UTC()
}
