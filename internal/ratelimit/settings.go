package ratelimit

import (
	"strings"
	"time"

	internalsettings "github.com/stevensoneremeh/eriggalive-sub000/internal/settings"
)

// SettingsConfig captures rate limit settings stored in DB config.
type SettingsConfig struct {
	LoginLimit    int
	LoginWindow   time.Duration
	VoteLimit     int
	VoteWindow    time.Duration
	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// LoadSettingsConfig loads the current rate limit settings snapshot.
func LoadSettingsConfig() SettingsConfig {
	cfg := SettingsConfig{
		LoginLimit:  internalsettings.IntValue(internalsettings.LoginRateLimitKey, internalsettings.DefaultLoginRateLimit),
		LoginWindow: windowSetting(internalsettings.LoginRateWindowKey, internalsettings.DefaultLoginRateWindowSeconds),
		VoteLimit:   internalsettings.IntValue(internalsettings.VoteRateLimitKey, internalsettings.DefaultVoteRateLimit),
		VoteWindow:  windowSetting(internalsettings.VoteRateWindowKey, internalsettings.DefaultVoteRateWindowSeconds),
		RedisDB:     internalsettings.IntValue(internalsettings.RateLimitRedisDBKey, 0),
		RedisPrefix: internalsettings.DefaultRateLimitRedisPrefix,
	}

	if raw, ok := internalsettings.DBConfigValue(internalsettings.RateLimitRedisEnabledKey); ok {
		if enabled, okParse := internalsettings.ParseBool(raw); okParse {
			cfg.RedisEnabled = enabled
		}
	}
	if raw, ok := internalsettings.DBConfigValue(internalsettings.RateLimitRedisAddrKey); ok {
		if addr, okParse := internalsettings.ParseString(raw); okParse {
			cfg.RedisAddr = addr
		}
	}
	if raw, ok := internalsettings.DBConfigValue(internalsettings.RateLimitRedisPasswordKey); ok {
		if password, okParse := internalsettings.ParseString(raw); okParse {
			cfg.RedisPassword = password
		}
	}
	if raw, ok := internalsettings.DBConfigValue(internalsettings.RateLimitRedisPrefixKey); ok {
		if prefix, okParse := internalsettings.ParseString(raw); okParse {
			cfg.RedisPrefix = prefix
		}
	}
	cfg.RedisPrefix = strings.TrimSpace(cfg.RedisPrefix)
	if cfg.RedisPrefix == "" {
		cfg.RedisPrefix = internalsettings.DefaultRateLimitRedisPrefix
	}
	return cfg
}

func windowSetting(key string, fallbackSeconds int) time.Duration {
	seconds := internalsettings.IntValue(key, fallbackSeconds)
	if seconds <= 0 {
		seconds = fallbackSeconds
	}
	return time.Duration(seconds) * time.Second
}

// ResolveLimit returns the configured budget for scope. A zero window
// falls back to the scope default.
func (cfg SettingsConfig) ResolveLimit(scope Scope) Decision {
	switch scope {
	case ScopeLogin:
		window := cfg.LoginWindow
		if window <= 0 {
			window = internalsettings.DefaultLoginRateWindowSeconds * time.Second
		}
		return Decision{Limit: cfg.LoginLimit, Window: window, Scope: scope}
	case ScopeVote:
		window := cfg.VoteWindow
		if window <= 0 {
			window = internalsettings.DefaultVoteRateWindowSeconds * time.Second
		}
		return Decision{Limit: cfg.VoteLimit, Window: window, Scope: scope}
	default:
		return Decision{}
	}
}
