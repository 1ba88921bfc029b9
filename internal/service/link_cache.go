package service

import (
	"context"
	"time"

	"github.com/user/shortlinks/internal/database"
	"github.com/user/shortlinks/internal/models"
)

// RedisLinkCache is a cache-aside store of link snapshots in Redis.
//
// A snapshot can only be more permissive than the row it was taken from:
// counters grow, is_active never comes back and expiry is immutable. The
// conditional update in ConsumeClick rejects whatever a stale snapshot
// lets through, so staleness never grants an extra click.
type RedisLinkCache struct {
	redis *database.RedisDB
	now   func() time.Time
}

// NewRedisLinkCache creates a link cache on top of redis.
func NewRedisLinkCache(redis *database.RedisDB) *RedisLinkCache {
	return &RedisLinkCache{redis: redis, now: time.Now}
}

func (c *RedisLinkCache) Get(ctx context.Context, shortCode string) (*models.Link, error) {
	var link models.Link
	found, err := c.redis.GetJSON(ctx, database.LinkCacheKey(shortCode), &link)
	if err != nil || !found {
		return nil, err
	}
	return &link, nil
}

// Set stores a snapshot. The TTL never outlives the link's expiry, and
// the QR data URL is left out of the snapshot.
func (c *RedisLinkCache) Set(ctx context.Context, link *models.Link) error {
	ttl := c.redis.CacheTTL
	if link.ExpiresAt != nil {
		remaining := link.ExpiresAt.Sub(c.now())
		if remaining <= 0 {
			return nil
		}
		if remaining < ttl {
			ttl = remaining
		}
	}

	snapshot := *link
	snapshot.QRCode = ""
	return c.redis.SetJSON(ctx, database.LinkCacheKey(link.ShortCode), &snapshot, ttl)
}

func (c *RedisLinkCache) Invalidate(ctx context.Context, shortCode string) error {
	return c.redis.Delete(ctx, database.LinkCacheKey(shortCode))
}

// noCache is used when Redis is not configured.
type noCache struct{}

func (noCache) Get(context.Context, string) (*models.Link, error) { return nil, nil }
func (noCache) Set(context.Context, *models.Link) error           { return nil }
func (noCache) Invalidate(context.Context, string) error          { return nil }

func cacheOrNoop(cache LinkCache) LinkCache {
	if cache == nil {
		return noCache{}
	}
	return cache
}
