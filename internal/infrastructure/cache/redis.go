package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/vidshelf/internal/domain/model"
	"github.com/hszk-dev/vidshelf/internal/infrastructure/metrics"
)

const (
	// recordCacheKeyPrefix is the prefix for video record keys in Redis.
	recordCacheKeyPrefix = "video:"
)

// RedisRecordCache implements RecordCache using Redis as the backing store.
// Records are stored in their on-bucket JSON form.
type RedisRecordCache struct {
	client *redis.Client
}

var _ RecordCache = (*RedisRecordCache)(nil)

// NewRedisRecordCache creates a new Redis-backed record cache.
func NewRedisRecordCache(client *redis.Client) *RedisRecordCache {
	return &RedisRecordCache{
		client: client,
	}
}

// Get retrieves a record from Redis.
// Returns nil, nil on cache miss.
func (c *RedisRecordCache) Get(ctx context.Context, user, videoID string) (*model.VideoRecord, error) {
	data, err := c.client.Get(ctx, buildKey(user, videoID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			record(metrics.CacheOpGet, metrics.CacheStatusMiss)
			return nil, nil
		}
		record(metrics.CacheOpGet, metrics.CacheStatusError)
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var v model.VideoRecord
	if err := json.Unmarshal(data, &v); err != nil {
		record(metrics.CacheOpGet, metrics.CacheStatusError)
		return nil, fmt.Errorf("deserialize record: %w", err)
	}

	record(metrics.CacheOpGet, metrics.CacheStatusHit)
	return &v, nil
}

// Set stores a record in Redis with the specified TTL.
func (c *RedisRecordCache) Set(ctx context.Context, v *model.VideoRecord, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("serialize record: %w", err)
	}

	if err := c.client.Set(ctx, buildKey(v.UserID, v.VideoID), data, ttl).Err(); err != nil {
		record(metrics.CacheOpSet, metrics.CacheStatusError)
		return fmt.Errorf("redis set: %w", err)
	}

	record(metrics.CacheOpSet, metrics.CacheStatusSuccess)
	return nil
}

// Delete removes a record from Redis.
func (c *RedisRecordCache) Delete(ctx context.Context, user, videoID string) error {
	if err := c.client.Del(ctx, buildKey(user, videoID)).Err(); err != nil {
		record(metrics.CacheOpDelete, metrics.CacheStatusError)
		return fmt.Errorf("redis del: %w", err)
	}

	record(metrics.CacheOpDelete, metrics.CacheStatusSuccess)
	return nil
}

// buildKey constructs the Redis key "video:{user}:{video_id}".
func buildKey(user, videoID string) string {
	return recordCacheKeyPrefix + user + ":" + videoID
}

func record(op, status string) {
	metrics.CacheOperationsTotal.WithLabelValues(op, status, metrics.CacheTypeRedis).Inc()
}
