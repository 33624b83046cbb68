package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const quotaCounterKey = "quota:autofind:%s"

// RedisCounterStore is the shared atomic increment-with-expiry primitive
// behind the auto-find rate limiter.
type RedisCounterStore struct {
	client *redis.Client
}

func NewRedisCounterStore(client *redis.Client) *RedisCounterStore {
	return &RedisCounterStore{client: client}
}

// Increment atomically bumps the counter for key and returns the new value.
// The expiry window starts on the increment that creates the counter, never
// on later ones (increment-then-check, so concurrent bursts cannot bypass
// the quota).
func (s *RedisCounterStore) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	redisKey := fmt.Sprintf(quotaCounterKey, key)

	count, err := s.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return 0, err
	}

	if count == 1 {
		if err := s.client.Expire(ctx, redisKey, window).Err(); err != nil {
			return count, err
		}
	}
	return count, nil
}
