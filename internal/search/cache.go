package search

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/bibliograph/bibliograph/internal/index"
	"github.com/bibliograph/bibliograph/pkg/config"
	"github.com/bibliograph/bibliograph/pkg/kafka"
	"github.com/bibliograph/bibliograph/pkg/metrics"
	pkgredis "github.com/bibliograph/bibliograph/pkg/redis"
)

const cacheKeyPrefix = "search:"

// CacheKey identifies one cached response. Mode separates the endpoints so
// a keyword query and a pattern with the same text never collide.
type CacheKey struct {
	Mode  string
	Query string
	Sort  string
	Limit int
}

// QueryCache stores serialized query responses in Redis with a TTL.
// Concurrent misses for the same key collapse into a single computation.
type QueryCache struct {
	client  *pkgredis.Client
	cfg     config.RedisConfig
	metrics *metrics.Metrics
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewQueryCache creates a QueryCache on top of an established Redis client.
func NewQueryCache(client *pkgredis.Client, cfg config.RedisConfig, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		client:  client,
		cfg:     cfg,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

// Get returns the cached payload for key, if present.
func (c *QueryCache) Get(ctx context.Context, key CacheKey) ([]byte, bool) {
	k := c.buildKey(key)
	data, err := c.client.Get(ctx, k)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", k, "error", err)
		}
		c.miss()
		return nil, false
	}
	c.hit()
	c.logger.Debug("cache hit", "mode", key.Mode, "key", k)
	return []byte(data), true
}

// Set stores a payload under key for the configured TTL.
func (c *QueryCache) Set(ctx context.Context, key CacheKey, payload []byte) {
	k := c.buildKey(key)
	if err := c.client.Set(ctx, k, payload, c.cfg.CacheTTL); err != nil {
		c.logger.Error("cache set failed", "key", k, "error", err)
	}
}

// GetOrCompute returns the cached payload or runs compute once per key,
// caching its result. The boolean reports whether the cache served the hit.
func (c *QueryCache) GetOrCompute(ctx context.Context, key CacheKey, compute func() ([]byte, error)) ([]byte, bool, error) {
	if payload, ok := c.Get(ctx, key); ok {
		return payload, true, nil
	}
	k := c.buildKey(key)
	val, err, _ := c.group.Do(k, func() (interface{}, error) {
		if payload, ok := c.Get(ctx, key); ok {
			return payload, nil
		}
		payload, err := compute()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, payload)
		return payload, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]byte), false, nil
}

// InvalidationHandler returns the Kafka handler for the cache-invalidate
// topic. Returning an error leaves the message uncommitted so a transient
// Redis failure gets another delivery.
func (c *QueryCache) InvalidationHandler() kafka.MessageHandler {
	return func(ctx context.Context, key, value []byte) error {
		event, err := kafka.DecodeJSON[index.InvalidateEvent](value)
		if err != nil {
			c.logger.Error("undecodable invalidate event dropped", "error", err)
			return nil
		}
		c.logger.Info("cache invalidation requested", "reason", event.Reason)
		return c.Invalidate(ctx)
	}
}

// Invalidate deletes every cached search response.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.client.FlushByPattern(ctx, cacheKeyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

// Stats returns the hit and miss counts since startup.
func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) hit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// buildKey hashes the key fields into a bounded Redis key. Keyword queries
// are case-folded first so equivalent queries share an entry; patterns are
// kept verbatim since their flags can be case-sensitive.
func (c *QueryCache) buildKey(key CacheKey) string {
	q := key.Query
	if key.Mode == "keyword" || key.Mode == "grouped" {
		q = strings.ToLower(strings.TrimSpace(q))
	}
	raw := fmt.Sprintf("%s|%s|sort=%s|limit=%d", key.Mode, q, key.Sort, key.Limit)
	sum := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", cacheKeyPrefix, sum[:16])
}
