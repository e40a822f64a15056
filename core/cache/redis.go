package cache

import (
	"context"
	"fmt"
	"time"

	"meetsync-api/core/constants"
	"meetsync-api/core/logger"

	"github.com/redis/go-redis/v9"
)

// Cache is the redis surface the engine uses. The regeneration lease
// serializes concurrent proposal regenerations for one event.
type Cache interface {
	AcquireRegenerateLock(ctx context.Context, eventID string) (bool, error)
	ReleaseRegenerateLock(ctx context.Context, eventID string) error

	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, key string) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type redisCache struct {
	client *redis.Client
}

func InitCache(cfg RedisConfig) (Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to redis", "error", err, "addr", cfg.Addr)
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis cache initialized", "addr", cfg.Addr, "db", cfg.DB)
	return &redisCache{client: client}, nil
}

func (c *redisCache) AcquireRegenerateLock(ctx context.Context, eventID string) (bool, error) {
	key := constants.RedisKeyRegenerateLock + eventID
	return c.client.SetNX(ctx, key, "1", constants.RegenerateLockTTL).Result()
}

func (c *redisCache) ReleaseRegenerateLock(ctx context.Context, eventID string) error {
	return c.client.Del(ctx, constants.RedisKeyRegenerateLock+eventID).Err()
}

func (c *redisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *redisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

func (c *redisCache) Del(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

func (c *redisCache) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return c.client.Expire(ctx, key, ttl).Err()
}
