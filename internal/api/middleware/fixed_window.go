package middleware

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

const rateLimitKeyPrefix = "loan-engine:ratelimit:"

// fixedWindowLimiter counts requests per client in one-second windows kept
// in Redis, so every replica shares the same budget.
type fixedWindowLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func newFixedWindowLimiter(client *redis.Client, rps float64) *fixedWindowLimiter {
	limit := int64(math.Ceil(rps))
	if limit < 1 {
		limit = 1
	}
	return &fixedWindowLimiter{client: client, limit: limit, window: time.Second}
}

func (l *fixedWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := rateLimitKeyPrefix + key

	pipe := l.client.Pipeline()
	incrCmd := pipe.Incr(ctx, redisKey)
	ttlCmd := pipe.TTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit pipeline for %s: %w", redisKey, err)
	}

	count, err := incrCmd.Result()
	if err != nil {
		return false, fmt.Errorf("rate limit counter for %s: %w", redisKey, err)
	}

	// A negative TTL means the key has no expiry yet.
	if ttl, err := ttlCmd.Result(); err == nil && ttl < 0 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return false, fmt.Errorf("rate limit expiry for %s: %w", redisKey, err)
		}
	}

	return count <= l.limit, nil
}
