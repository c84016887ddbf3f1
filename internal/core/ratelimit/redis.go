package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCounter keeps windows in Redis
type RedisCounter struct{ c redis.UniversalClient }

// NewRedisCounter wraps c
func NewRedisCounter(c redis.UniversalClient) *RedisCounter { return &RedisCounter{c: c} }

// Get reads keys with one MGET
func (r *RedisCounter) Get(ctx context.Context, keys ...string) ([]int64, error) {
	raw, err := r.c.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]int64, len(keys))
	for i, v := range raw {
		s, ok := v.(string)
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// Incr bumps key and refreshes its expiry in one round trip
func (r *RedisCounter) Incr(ctx context.Context, key string, ttl time.Duration) error {
	_, err := r.c.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, key)
		p.PExpire(ctx, key, ttl)
		return nil
	})
	return err
}
