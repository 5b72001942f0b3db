package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kantai/blockstack-search-indexer/internal/model"
)

// Redis key prefix for cached profiles.
const profileKeyPrefix = "search:profile:"

// RedisCache caches resolved profiles in Redis with a TTL so repeated runs
// can skip lookups that recently succeeded. Cache failures degrade to a live
// lookup and never fail a resolution.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisCache constructs a Redis-backed profile cache.
func NewRedisCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

// Get returns the cached profile for name, or ok=false on a miss or any
// cache failure.
func (c *RedisCache) Get(ctx context.Context, name string) (model.Profile, bool) {
	raw, err := c.client.Get(ctx, profileKeyPrefix+name).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("profile cache read failed", "name", name, "error", err.Error())
		return nil, false
	}
	var profile model.Profile
	if err := json.Unmarshal(raw, &profile); err != nil {
		c.logger.Warn("profile cache entry malformed", "name", name, "error", err.Error())
		return nil, false
	}
	return profile, true
}

// Set stores the profile for name with the configured TTL. Failures are
// logged and swallowed.
func (c *RedisCache) Set(ctx context.Context, name string, profile model.Profile) {
	raw, err := json.Marshal(profile)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, profileKeyPrefix+name, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("profile cache write failed", "name", name, "error", err.Error())
	}
}
