package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisDialTimeout = 5 * time.Second

// RedisCache is a Service backed by a Redis server. All keys are stored
// under a configurable prefix so several deployments can share one
// instance.
type RedisCache struct {
	client *redis.Client
	prefix string
}

type redisOptions struct {
	host     string
	port     int
	password string
	db       int
	prefix   string
	poolSize int
}

// RedisOption configures a RedisCache.
type RedisOption func(*redisOptions)

// WithRedisHost sets the server host.
func WithRedisHost(host string) RedisOption {
	return func(o *redisOptions) { o.host = host }
}

// WithRedisPort sets the server port.
func WithRedisPort(port int) RedisOption {
	return func(o *redisOptions) { o.port = port }
}

// WithRedisPassword sets the auth password.
func WithRedisPassword(password string) RedisOption {
	return func(o *redisOptions) { o.password = password }
}

// WithRedisDB selects the logical database.
func WithRedisDB(db int) RedisOption {
	return func(o *redisOptions) { o.db = db }
}

// WithRedisPrefix sets the key namespace prefix.
func WithRedisPrefix(prefix string) RedisOption {
	return func(o *redisOptions) { o.prefix = prefix }
}

// WithRedisPoolSize sets the connection pool size.
func WithRedisPoolSize(n int) RedisOption {
	return func(o *redisOptions) { o.poolSize = n }
}

// NewRedisCache connects to Redis and verifies the connection with a
// ping before returning.
func NewRedisCache(opts ...RedisOption) (*RedisCache, error) {
	options := redisOptions{
		host:     "localhost",
		port:     6379,
		prefix:   "cache",
		poolSize: 10,
	}
	for _, opt := range opts {
		opt(&options)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", options.host, options.port),
		Password: options.password,
		DB:       options.db,
		PoolSize: options.poolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisDialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisCache{client: client, prefix: options.prefix}, nil
}

func (r *RedisCache) key(key string) string {
	return r.prefix + ":" + key
}

func (r *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

func (r *RedisCache) Get(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	if err != nil {
		return "", fmt.Errorf("redis get %q: %w", key, err)
	}
	return value, nil
}

func (r *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = r.key(key)
	}
	if err := r.client.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
