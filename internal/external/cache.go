package external

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// Cache is a Redis-backed response cache for external fetches. Cache
// failures are logged and treated as misses; the source of truth is
// always the upstream API.
type Cache struct {
	client *redis.Client
	logger *logrus.Logger
}

// CacheConfig holds Redis connection settings.
type CacheConfig struct {
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
}

// NewCache connects to Redis and verifies the connection.
func NewCache(ctx context.Context, config *CacheConfig, logger *logrus.Logger) (*Cache, error) {
	if logger == nil {
		logger = logrus.New()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	logger.WithField("addr", config.Addr).Info("Connected to redis cache")
	return &Cache{client: client, logger: logger}, nil
}

// Get loads a cached value into out. Returns false on miss or error.
func (c *Cache) Get(ctx context.Context, key string, out interface{}) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Cache read failed")
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Cache entry corrupt")
		return false
	}
	return true
}

// Set stores a value with the given TTL. Errors are logged, not returned.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Cache serialization failed")
		return
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Cache write failed")
	}
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}
