package services

import (
	"context"
	"log"
	"time"

	"github.com/belajaryuk/roadmap-api/internal/config"
	"github.com/redis/go-redis/v9"
)

// TagPublicRoadmaps invalidates every cached public listing page.
const TagPublicRoadmaps = "public-roadmaps"

// SlugTag is the invalidation tag for a single published roadmap.
func SlugTag(slug string) string {
	return "public-roadmap:" + slug
}

// Cache is a tag-based read cache over Redis for the public roadmap surface.
// Cached keys are registered under tag sets; invalidating a tag deletes every
// key registered under it. All operations are best effort: with no Redis
// configured, or on any Redis error, the caller just reads the database.
type Cache struct {
	rdb *redis.Client
}

// NewCache builds a Cache from configuration. An empty Redis address yields
// a disabled cache.
func NewCache(cfg *config.Config) *Cache {
	if cfg.RedisAddr == "" {
		return &Cache{}
	}
	return &Cache{
		rdb: redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}),
	}
}

// Enabled reports whether a Redis backend is configured.
func (c *Cache) Enabled() bool {
	return c != nil && c.rdb != nil
}

// Get returns the cached payload for key, if any.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if !c.Enabled() {
		return nil, false
	}
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// Set stores a payload under key and registers the key in each tag set.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) {
	if !c.Enabled() {
		return
	}
	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, key, value, ttl)
	for _, tag := range tags {
		pipe.SAdd(ctx, tagSetKey(tag), key)
		// Tag sets outlive their members a little; they are bounded by
		// invalidation and only hold key names.
		pipe.Expire(ctx, tagSetKey(tag), 24*time.Hour)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("Cache set failed for %s: %v", key, err)
	}
}

// Invalidate deletes every key registered under each tag, then the tag sets
// themselves.
func (c *Cache) Invalidate(ctx context.Context, tags ...string) {
	if !c.Enabled() {
		return
	}
	for _, tag := range tags {
		keys, err := c.rdb.SMembers(ctx, tagSetKey(tag)).Result()
		if err != nil {
			log.Printf("Cache invalidate failed for tag %s: %v", tag, err)
			continue
		}
		keys = append(keys, tagSetKey(tag))
		if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
			log.Printf("Cache invalidate failed for tag %s: %v", tag, err)
		}
	}
}

// Ping checks Redis connectivity for health reporting.
func (c *Cache) Ping(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Ping(ctx).Err()
}

func tagSetKey(tag string) string {
	return "tag:" + tag
}
