package cache

import (
	"context"
	"time"

	"soundhub/logger"
	"soundhub/media"

	"github.com/go-redis/redis/v8"
)

// maxPresignTTL 缓存必须早于预签名URL过期
const maxPresignTTL = media.PresignExpiry - 30*time.Second

// PresignCache keeps read presigned URLs in Redis. The TTL stays below
// media.PresignExpiry so a cached URL is never served after it stops working.
type PresignCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPresignCache creates a cache backed by client. A ttl at or above the
// presign expiry is clamped to maxPresignTTL.
func NewPresignCache(client *redis.Client, ttl time.Duration) *PresignCache {
	if ttl >= media.PresignExpiry {
		logger.Warn("presign cache ttl clamped",
			logger.String("requested", ttl.String()),
			logger.String("effective", maxPresignTTL.String()))
		ttl = maxPresignTTL
	}
	return &PresignCache{client: client, ttl: ttl}
}

// TTL returns the effective lifetime of cached URLs.
func (c *PresignCache) TTL() time.Duration {
	return c.ttl
}

// PresignKey 根据对象key生成Redis键
func PresignKey(objectKey string) string {
	return "presign:get:" + objectKey
}

// Get returns a cached URL. Redis errors are treated as a miss.
func (c *PresignCache) Get(ctx context.Context, objectKey string) (string, bool) {
	val, err := c.client.Get(ctx, PresignKey(objectKey)).Result()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("presign cache get failed", logger.String("key", objectKey), logger.ErrorField(err))
		}
		return "", false
	}
	return val, true
}

// Set stores url for the configured TTL. Failures are logged only.
func (c *PresignCache) Set(ctx context.Context, objectKey, url string) {
	if c.ttl <= 0 {
		return
	}
	if err := c.client.Set(ctx, PresignKey(objectKey), url, c.ttl).Err(); err != nil {
		logger.Warn("presign cache set failed", logger.String("key", objectKey), logger.ErrorField(err))
	}
}
