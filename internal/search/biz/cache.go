package biz

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/needleref/needleref/internal/imagesearch/rank"
	"github.com/needleref/needleref/internal/pkg/cache"
	"github.com/needleref/needleref/internal/pkg/redis"
)

// ResultCache stores whole smart-search result lists.
type ResultCache interface {
	Get(ctx context.Context, key string) ([]rank.ScoredCandidate, bool)
	Put(ctx context.Context, key string, results []rank.ScoredCandidate)
}

// LRUResultCache is the in-process default: bounded, TTL on read.
type LRUResultCache struct {
	inner *cache.TTLCache[[]rank.ScoredCandidate]
}

const (
	defaultResultCacheCapacity = 500
	defaultResultCacheTTL      = 24 * time.Hour
)

func NewLRUResultCache(capacity int, ttl time.Duration) *LRUResultCache {
	if capacity <= 0 {
		capacity = defaultResultCacheCapacity
	}
	if ttl <= 0 {
		ttl = defaultResultCacheTTL
	}
	inner, _ := cache.NewTTL[[]rank.ScoredCandidate](capacity, ttl)
	return &LRUResultCache{inner: inner}
}

func (c *LRUResultCache) Get(_ context.Context, key string) ([]rank.ScoredCandidate, bool) {
	return c.inner.Get(key)
}

func (c *LRUResultCache) Put(_ context.Context, key string, results []rank.ScoredCandidate) {
	c.inner.Put(key, results)
}

// RedisResultCache shares results across instances. Marshal and transport
// errors degrade to cache misses.
type RedisResultCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisResultCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisResultCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisResultCache{client: client, ttl: ttl, logger: logger}
}

func (c *RedisResultCache) Get(ctx context.Context, key string) ([]rank.ScoredCandidate, bool) {
	raw, err := c.client.Get(ctx, key)
	if err != nil {
		return nil, false
	}
	var results []rank.ScoredCandidate
	if err := json.Unmarshal([]byte(raw), &results); err != nil {
		c.logger.Warn("discarding undecodable cached result", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return results, true
}

func (c *RedisResultCache) Put(ctx context.Context, key string, results []rank.ScoredCandidate) {
	raw, err := json.Marshal(results)
	if err != nil {
		c.logger.Warn("failed to encode results for cache", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl); err != nil {
		c.logger.Warn("failed to cache results", zap.String("key", key), zap.Error(err))
	}
}
