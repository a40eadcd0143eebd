package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "rl:"

// RedisStore keeps counters as plain INCR counters with a TTL equal to
// the window, so expiry is handled by redis itself.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func (s *RedisStore) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	k := redisKeyPrefix + key

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	// set the TTL only when the key was just created
	pipe.ExpireNX(ctx, k, window)
	ttl := pipe.TTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, fmt.Errorf("redis error: %w", err)
	}

	return incr.Val(), s.now().Add(ttl.Val()), nil
}

func (s *RedisStore) Peek(ctx context.Context, key string) (int64, time.Time, error) {
	k := redisKeyPrefix + key

	pipe := s.client.TxPipeline()
	get := pipe.Get(ctx, k)
	ttl := pipe.TTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, time.Time{}, nil
		}
		return 0, time.Time{}, fmt.Errorf("redis error: %w", err)
	}

	count, err := get.Int64()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis error: %w", err)
	}
	return count, s.now().Add(ttl.Val()), nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("redis error: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}
