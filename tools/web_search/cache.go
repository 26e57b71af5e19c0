package web_search

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Wolverine971/bubble-search/tools/web_search/models"
)

// ResultCache stores serialized search responses keyed by query digest.
// Implemented by redis; stubbed in tests.
type ResultCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

// RedisCache adapts a redis client to ResultCache.
type RedisCache struct {
	Client *redis.Client
}

func (r RedisCache) Get(ctx context.Context, key string) (string, error) {
	return r.Client.Get(ctx, key).Result()
}

func (r RedisCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.Client.Set(ctx, key, value, ttl).Err()
}

// CachedSearcher wraps a Searcher with a TTL cache. Cache failures are
// logged and degrade to a direct provider call; they never fail a search.
type CachedSearcher struct {
	Inner  Searcher
	Cache  ResultCache
	TTL    time.Duration
	Logger *log.Logger
}

func (c *CachedSearcher) Search(ctx context.Context, q string) (models.Response, error) {
	key := cacheKey(q)
	if raw, err := c.Cache.Get(ctx, key); err == nil {
		var cached models.Response
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			return cached, nil
		}
		c.logf("discarding unreadable cache entry for %q", q)
	}

	resp, err := c.Inner.Search(ctx, q)
	if err != nil {
		return models.Response{}, err
	}

	if raw, err := json.Marshal(resp); err == nil {
		if err := c.Cache.Set(ctx, key, string(raw), c.TTL); err != nil {
			c.logf("cache write failed for %q: %v", q, err)
		}
	}
	return resp, nil
}

func (c *CachedSearcher) logf(format string, args ...interface{}) {
	if c.Logger != nil {
		c.Logger.Printf(format, args...)
	}
}

func cacheKey(q string) string {
	sum := sha1.Sum([]byte(q))
	return "search:" + hex.EncodeToString(sum[:])
}
