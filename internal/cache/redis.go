package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "mlb:raw:"

// RedisCache stores raw Stats API responses keyed by request URL
type RedisCache struct {
	client *redis.Client
}

// Options configures the Redis connection
type Options struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisCache creates a new Redis cache connection and pings it
func NewRedisCache(ctx context.Context, opts Options) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &RedisCache{client: client}, nil
}

// Close closes the Redis connection
func (rc *RedisCache) Close() error {
	return rc.client.Close()
}

// HealthCheck pings Redis to verify connection
func (rc *RedisCache) HealthCheck(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

// Get returns the cached body for a request URL. A miss is (nil, false, nil).
func (rc *RedisCache) Get(ctx context.Context, url string) ([]byte, bool, error) {
	body, err := rc.client.Get(ctx, Key(url)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return body, true, nil
}

// Set stores a response body with TTL
func (rc *RedisCache) Set(ctx context.Context, url string, body []byte, ttl time.Duration) error {
	return rc.client.Set(ctx, Key(url), body, ttl).Err()
}

// Key returns the Redis key for a request URL
func Key(url string) string {
	return keyPrefix + url
}
