// file: service/cache.go

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"go-task-api/logger"
	"time"

	"github.com/redis/go-redis/v9"
)

// ICacheClient defines the contract for a cache client.
// This abstraction decouples the services from a concrete Redis client; a nil
// ICacheClient disables caching.
type ICacheClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

const (
	projectsCacheTTL  = 10 * time.Minute
	taskStatsCacheTTL = 5 * time.Minute
)

func projectsCacheKey(userID string) string  { return fmt.Sprintf("projects:%s", userID) }
func taskStatsCacheKey(userID string) string { return fmt.Sprintf("taskstats:%s", userID) }

// cacheGet decodes key into dst and reports whether it was a usable hit.
func cacheGet(ctx context.Context, c ICacheClient, key string, dst any) bool {
	if c == nil {
		return false
	}
	cached, err := c.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Log.WithError(err).WithField("key", key).Warn("Cache read failed")
		}
		return false
	}
	return json.Unmarshal(cached, dst) == nil
}

func cacheSet(ctx context.Context, c ICacheClient, key string, v any, ttl time.Duration) {
	if c == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.Set(ctx, key, data, ttl).Err(); err != nil {
		logger.Log.WithError(err).WithField("key", key).Warn("Cache write failed")
	}
}

func cacheDel(ctx context.Context, c ICacheClient, keys ...string) {
	if c == nil {
		return
	}
	if err := c.Del(ctx, keys...).Err(); err != nil {
		logger.Log.WithError(err).WithField("keys", keys).Warn("Cache invalidation failed")
	}
}
