package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	redisBreakerDuration = 30 * time.Second
	redisPingTimeout     = 2 * time.Second
	// redisExpiryGrace keeps a counter alive briefly past its window so
	// clock skew between instances cannot reopen a closed window.
	redisExpiryGrace = time.Second
)

// windowCounter increments the counter and sets its expiry on first use.
var windowCounter = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

var _ Limiter = (*RedisLimiter)(nil)

// RedisLimiter is a fixed-window counter shared by every instance through Redis.
type RedisLimiter struct {
	client *redis.Client
	prefix string
}

// NewRedisLimiter constructs a RedisLimiter.
func NewRedisLimiter(client *redis.Client, prefix string) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: strings.TrimSpace(prefix)}
}

// Allow consumes one request for key in the window holding now.
func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error) {
	if limit <= 0 || key == "" || l == nil || l.client == nil {
		return Result{Allowed: true}, nil
	}
	if window < time.Second {
		window = time.Second
	}
	index, closes := windowBounds(now, window)
	ttl := window + redisExpiryGrace

	count, errEval := windowCounter.Run(ctx, l.client, []string{l.counterKey(key, window, index)}, ttl.Milliseconds()).Int64()
	if errEval != nil {
		return Result{}, fmt.Errorf("rate limit redis: %w", errEval)
	}
	if count > int64(limit) {
		return Result{Allowed: false, Remaining: 0, Reset: closes}, nil
	}
	return Result{Allowed: true, Remaining: limit - int(count), Reset: closes}, nil
}

// counterKey embeds the window length so changing it never reuses old counters.
func (l *RedisLimiter) counterKey(key string, window time.Duration, index int64) string {
	suffix := fmt.Sprintf("%s:%ds:%d", key, int64(window/time.Second), index)
	if l.prefix == "" {
		return suffix
	}
	return l.prefix + ":" + suffix
}

// redisTarget identifies the Redis instance a limiter is connected to.
type redisTarget struct {
	addr     string
	password string
	prefix   string
	db       int
}

func targetFromSettings(cfg SettingsConfig) (redisTarget, error) {
	target := redisTarget{
		addr:     strings.TrimSpace(cfg.RedisAddr),
		password: strings.TrimSpace(cfg.RedisPassword),
		prefix:   strings.TrimSpace(cfg.RedisPrefix),
		db:       cfg.RedisDB,
	}
	if target.addr == "" {
		return redisTarget{}, errors.New("rate limit redis: missing address")
	}
	if target.db < 0 {
		target.db = 0
	}
	return target, nil
}

// redisBackend owns the Redis connection and a breaker that parks the
// backend after a failure so requests fall back to memory.
type redisBackend struct {
	dial RedisClientFactory

	mu           sync.Mutex
	limiter      *RedisLimiter
	target       redisTarget
	blockedUntil time.Time
}

// limiterFor returns a connected limiter for cfg, or false while the
// breaker is open or the connection cannot be made.
func (b *redisBackend) limiterFor(ctx context.Context, cfg SettingsConfig, now time.Time) (*RedisLimiter, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if now.Before(b.blockedUntil) {
		return nil, false
	}
	target, errTarget := targetFromSettings(cfg)
	if errTarget != nil {
		b.openLocked(errTarget, now)
		return nil, false
	}
	if b.limiter != nil && b.target == target {
		return b.limiter, true
	}
	b.closeLocked()

	client := b.dial(&redis.Options{Addr: target.addr, Password: target.password, DB: target.db})
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if errPing := client.Ping(pingCtx).Err(); errPing != nil {
		_ = client.Close()
		b.openLocked(errPing, now)
		return nil, false
	}
	b.limiter = NewRedisLimiter(client, target.prefix)
	b.target = target
	return b.limiter, true
}

// trip opens the breaker after a failed command.
func (b *redisBackend) trip(err error, now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.openLocked(err, now)
}

func (b *redisBackend) openLocked(err error, now time.Time) {
	if now.Before(b.blockedUntil) {
		return
	}
	b.blockedUntil = now.Add(redisBreakerDuration)
	log.WithError(err).Warn("rate limit: redis unavailable, falling back to memory")
}

func (b *redisBackend) closeLocked() {
	if b.limiter != nil {
		_ = b.limiter.client.Close()
		b.limiter = nil
	}
	b.target = redisTarget{}
}
