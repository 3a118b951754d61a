package middleware

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// DistributedRateLimiter counts requests per fixed window in Redis so that
// limits are shared across instances
type DistributedRateLimiter struct {
	redis  *redis.Client
	config *RateLimitConfig
	prefix string
}

// NewDistributedRateLimiter creates a new Redis-backed rate limiter
func NewDistributedRateLimiter(redisClient *redis.Client, config *RateLimitConfig, prefix string) *DistributedRateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	if prefix == "" {
		prefix = "auditlog:ratelimit"
	}

	return &DistributedRateLimiter{
		redis:  redisClient,
		config: config,
		prefix: prefix,
	}
}

func (rl *DistributedRateLimiter) redisKey(key string) string {
	return fmt.Sprintf("%s:%s", rl.prefix, key)
}

// Allow increments key's counter for the current window. On Redis errors the
// returned decision allows the request.
func (rl *DistributedRateLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	redisKey := rl.redisKey(key)
	limit := rl.config.RequestsPerWindow + rl.config.BurstSize

	pipe := rl.redis.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	ttl := pipe.TTL(ctx, redisKey)

	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{Allowed: true, Limit: rl.config.RequestsPerWindow}, fmt.Errorf("redis error: %w", err)
	}

	// the window is anchored at the first request, so only a fresh key gets a TTL
	reset := ttl.Val()
	if reset < 0 {
		if err := rl.redis.Expire(ctx, redisKey, rl.config.WindowDuration).Err(); err != nil {
			return Decision{Allowed: true, Limit: rl.config.RequestsPerWindow}, fmt.Errorf("redis error: %w", err)
		}
		reset = rl.config.WindowDuration
	}

	count := incr.Val()
	remaining := int64(limit) - count
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   count <= int64(limit),
		Limit:     rl.config.RequestsPerWindow,
		Remaining: int(remaining),
		Reset:     reset,
	}, nil
}
