package cache

import (
	"context"
	"time"
)

// memoryLayerTTL bounds how long a Redis-backed value may be served
// from the in-process layer before it is re-checked against Redis.
const memoryLayerTTL = time.Minute

// LayeredCache puts a MemoryCache in front of Redis. Writes go through
// to both layers; reads prefer memory and fall back to Redis, refilling
// the memory layer on the way back.
type LayeredCache struct {
	memory *MemoryCache
	redis  *RedisCache
}

// NewLayeredCache wraps a Redis cache with a fresh memory layer.
func NewLayeredCache(r *RedisCache) *LayeredCache {
	return &LayeredCache{memory: NewMemoryCache(), redis: r}
}

func (l *LayeredCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := l.redis.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	_ = l.memory.Set(ctx, key, value, boundTTL(ttl))
	return nil
}

func (l *LayeredCache) Get(ctx context.Context, key string) (string, error) {
	if value, err := l.memory.Get(ctx, key); err == nil {
		return value, nil
	}
	value, err := l.redis.Get(ctx, key)
	if err != nil {
		return "", err
	}
	_ = l.memory.Set(ctx, key, value, memoryLayerTTL)
	return value, nil
}

func (l *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = l.memory.Delete(ctx, keys...)
	return l.redis.Delete(ctx, keys...)
}

func (l *LayeredCache) Close() error {
	_ = l.memory.Close()
	return l.redis.Close()
}

func boundTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 || ttl > memoryLayerTTL {
		return memoryLayerTTL
	}
	return ttl
}
