package settings

// DB config keys and defaults for settings.
const (
	// VoteCostKey controls the coin amount moved by a single vote.
	VoteCostKey = "VOTE_COST"
	// LoginRateLimitKey limits login attempts per client IP per login window.
	LoginRateLimitKey = "LOGIN_RATE_LIMIT"
	// LoginRateWindowKey is the login window length in seconds.
	LoginRateWindowKey = "LOGIN_RATE_LIMIT_WINDOW_SECONDS"
	// VoteRateLimitKey limits vote calls per user per vote window.
	VoteRateLimitKey = "VOTE_RATE_LIMIT"
	// VoteRateWindowKey is the vote window length in seconds.
	VoteRateWindowKey = "VOTE_RATE_LIMIT_WINDOW_SECONDS"
	// RateLimitRedisEnabledKey toggles Redis-backed rate limiting.
	RateLimitRedisEnabledKey = "RATE_LIMIT_REDIS_ENABLED"
	// RateLimitRedisAddrKey defines the Redis address for rate limiting.
	RateLimitRedisAddrKey = "RATE_LIMIT_REDIS_ADDR"
	// RateLimitRedisPasswordKey defines the Redis password for rate limiting.
	RateLimitRedisPasswordKey = "RATE_LIMIT_REDIS_PASSWORD"
	// RateLimitRedisDBKey defines the Redis DB index for rate limiting.
	RateLimitRedisDBKey = "RATE_LIMIT_REDIS_DB"
	// RateLimitRedisPrefixKey defines the Redis key prefix for rate limiting.
	RateLimitRedisPrefixKey = "RATE_LIMIT_REDIS_PREFIX"
	// DefaultVoteCost is the fallback vote cost in coins.
	DefaultVoteCost = 100
	// DefaultLoginRateLimit is the fallback login rate limit (0 means unlimited).
	DefaultLoginRateLimit = 5
	// DefaultLoginRateWindowSeconds is the fallback login window (one minute).
	DefaultLoginRateWindowSeconds = 60
	// DefaultVoteRateWindowSeconds is the fallback vote window (one second).
	DefaultVoteRateWindowSeconds = 1
	// DefaultVoteRateLimit is the fallback vote rate limit (0 means unlimited).
	DefaultVoteRateLimit = 0
	// DefaultRateLimitRedisPrefix is the fallback Redis key prefix.
	DefaultRateLimitRedisPrefix = "eriggalive:rl"
)
