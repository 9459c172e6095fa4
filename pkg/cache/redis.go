package cache

import (
	"context"
	"errors"
	"time"

	"github.com/mnandhu/learningpath/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// RedisCache implements Cache on a Redis backend. All backend errors are
// logged at warning level and reported as a miss so an unreachable Redis
// never fails a run.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCacheParams contains configuration for creating a RedisCache.
type NewRedisCacheParams struct {
	Addr string
	DB   int
}

// NewRedisCache connects to Redis and verifies the connection. A failed
// ping is returned as an error so callers can fall back to an in-memory
// cache at startup.
func NewRedisCache(ctx context.Context, params NewRedisCacheParams) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        params.Addr,
		DB:          params.DB,
		DialTimeout: 5 * time.Second,
		ReadTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &RedisCache{client: client}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	value, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("Cache get failed, treating as miss", "key", key, "err", err)
		}
		return nil, false
	}
	return value, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		logger.Warn("Cache set failed", "key", key, "err", err)
	}
}

func (c *RedisCache) Has(ctx context.Context, key string) bool {
	n, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		logger.Warn("Cache exists failed, treating as miss", "key", key, "err", err)
		return false
	}
	return n > 0
}

// Close releases the underlying Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
