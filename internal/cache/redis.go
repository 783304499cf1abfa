package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"tether/pkg/logging"
)

const keyPrefix = "tether:host:"

// RedisHostnameCache stores hostname entries in redis as JSON id lists.
type RedisHostnameCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisHostnameCache connects lazily to addr.
func NewRedisHostnameCache(addr string, ttl time.Duration) *RedisHostnameCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 2 * time.Second,
	})
	return &RedisHostnameCache{client: rdb, ttl: ttl}
}

func key(hostname string) string {
	return keyPrefix + strings.ToLower(hostname)
}

func (c *RedisHostnameCache) Get(ctx context.Context, hostname string) ([]string, bool) {
	val, err := c.client.Get(ctx, key(hostname)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	} else if err != nil {
		logging.Debug("HostnameCache", "redis get %s failed: %v", hostname, err)
		return nil, false
	}

	var ids []string
	if err := json.Unmarshal(val, &ids); err != nil {
		return nil, false
	}
	return ids, true
}

func (c *RedisHostnameCache) Set(ctx context.Context, hostname string, ids []string) error {
	b, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key(hostname), b, c.ttl).Err()
}

func (c *RedisHostnameCache) Invalidate(ctx context.Context, hostname string) error {
	return c.client.Del(ctx, key(hostname)).Err()
}

// Ping checks the connection.
func (c *RedisHostnameCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the client.
func (c *RedisHostnameCache) Close() error {
	return c.client.Close()
}
