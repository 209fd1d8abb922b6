package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// SettingsProvider supplies the latest settings snapshot.
type SettingsProvider func() SettingsConfig

// RedisClientFactory constructs a Redis client for the given options.
type RedisClientFactory func(options *redis.Options) *redis.Client

// Manager resolves per-scope budgets and counts requests in Redis when it
// is enabled and reachable, in memory otherwise.
type Manager struct {
	provider SettingsProvider
	nowFn    func() time.Time
	memory   *MemoryLimiter
	redis    *redisBackend
}

// NewManager constructs a Manager. Nil arguments select the defaults.
func NewManager(provider SettingsProvider, nowFn func() time.Time, newRedisClient RedisClientFactory) *Manager {
	if provider == nil {
		provider = LoadSettingsConfig
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	if newRedisClient == nil {
		newRedisClient = redis.NewClient
	}
	return &Manager{
		provider: provider,
		nowFn:    nowFn,
		memory:   NewMemoryLimiter(),
		redis:    &redisBackend{dial: newRedisClient},
	}
}

// Check consumes one request for subject under scope's budget.
// It returns ErrRateLimited when the request must be rejected.
func (m *Manager) Check(ctx context.Context, scope Scope, subject string) (Result, error) {
	if m == nil {
		return Result{Allowed: true}, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := m.provider()
	decision := cfg.ResolveLimit(scope)
	key := KeyForDecision(subject, decision)
	if key == "" {
		return Result{Allowed: true}, nil
	}

	now := m.nowFn()
	result, errAllow := m.count(ctx, cfg, key, decision, now)
	if errAllow != nil {
		return Result{}, errAllow
	}
	if !result.Allowed {
		return result, ErrRateLimited
	}
	return result, nil
}

func (m *Manager) count(ctx context.Context, cfg SettingsConfig, key string, decision Decision, now time.Time) (Result, error) {
	if cfg.RedisEnabled {
		if limiter, ok := m.redis.limiterFor(ctx, cfg, now); ok {
			result, errAllow := limiter.Allow(ctx, key, decision.Limit, decision.Window, now)
			if errAllow == nil {
				return result, nil
			}
			m.redis.trip(errAllow, now)
		}
	}
	return m.memory.Allow(ctx, key, decision.Limit, decision.Window, now)
}
