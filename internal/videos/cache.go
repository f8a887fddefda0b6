package videos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shortreel/backend/internal/models"
)

const feedKeyPrefix = "videos:feed:"

// FeedCache stores rendered feed listings keyed by listing variant.
type FeedCache interface {
	// Get returns the cached listing and whether it was present.
	Get(ctx context.Context, variant string) ([]models.Video, bool, error)
	Set(ctx context.Context, variant string, feed []models.Video) error
	// Invalidate drops every cached variant.
	Invalidate(ctx context.Context) error
}

type cacheEntry struct {
	feed    []models.Video
	expires time.Time
}

// MemoryFeedCache is a TTL-based in-memory FeedCache.
type MemoryFeedCache struct {
	ttl time.Duration
	now func() time.Time

	mu    sync.RWMutex
	items map[string]cacheEntry
}

// NewMemoryFeedCache returns a cache that keeps listings for the provided TTL.
func NewMemoryFeedCache(ttl time.Duration) *MemoryFeedCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &MemoryFeedCache{
		ttl:   ttl,
		now:   time.Now,
		items: make(map[string]cacheEntry),
	}
}

// Get returns a copy of the cached listing when it has not expired.
func (c *MemoryFeedCache) Get(_ context.Context, variant string) ([]models.Video, bool, error) {
	c.mu.RLock()
	entry, ok := c.items[variant]
	c.mu.RUnlock()
	if !ok || !c.now().Before(entry.expires) {
		return nil, false, nil
	}
	return cloneFeed(entry.feed), true, nil
}

// Set stores a copy of the listing.
func (c *MemoryFeedCache) Set(_ context.Context, variant string, feed []models.Video) error {
	c.mu.Lock()
	c.items[variant] = cacheEntry{feed: cloneFeed(feed), expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return nil
}

// Invalidate clears every variant.
func (c *MemoryFeedCache) Invalidate(context.Context) error {
	c.mu.Lock()
	c.items = make(map[string]cacheEntry)
	c.mu.Unlock()
	return nil
}

func cloneFeed(feed []models.Video) []models.Video {
	out := make([]models.Video, len(feed))
	copy(out, feed)
	return out
}

// RedisFeedCache stores listings as JSON so every replica shares one feed.
type RedisFeedCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisFeedCache returns a FeedCache backed by Redis.
func NewRedisFeedCache(client redis.UniversalClient, ttl time.Duration) *RedisFeedCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisFeedCache{client: client, ttl: ttl}
}

// Get loads and decodes the listing for variant.
func (c *RedisFeedCache) Get(ctx context.Context, variant string) ([]models.Video, bool, error) {
	raw, err := c.client.Get(ctx, feedKeyPrefix+variant).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get feed: %w", err)
	}

	var feed []models.Video
	if err := json.Unmarshal(raw, &feed); err != nil {
		return nil, false, fmt.Errorf("decode feed: %w", err)
	}
	if feed == nil {
		feed = []models.Video{}
	}
	return feed, true, nil
}

// Set encodes and stores the listing with the cache TTL.
func (c *RedisFeedCache) Set(ctx context.Context, variant string, feed []models.Video) error {
	raw, err := json.Marshal(feed)
	if err != nil {
		return fmt.Errorf("encode feed: %w", err)
	}
	if err := c.client.Set(ctx, feedKeyPrefix+variant, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set feed: %w", err)
	}
	return nil
}

// Invalidate deletes every feed key.
func (c *RedisFeedCache) Invalidate(ctx context.Context) error {
	var keys []string
	iter := c.client.Scan(ctx, 0, feedKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan feed keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete feed keys: %w", err)
	}
	return nil
}

var (
	_ FeedCache = (*MemoryFeedCache)(nil)
	_ FeedCache = (*RedisFeedCache)(nil)
)
