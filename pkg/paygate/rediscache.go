package paygate

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisQuoteCache is a QuoteCache backed by Redis, for deployments that
// want price quotes shared across processes. Redis errors degrade to
// cache misses so a broken cache never fails a request; the pricing
// gateway remains the source of truth.
type RedisQuoteCache struct {
	client *redis.Client
	log    *zap.Logger
}

// NewRedisQuoteCache wraps an existing Redis client. A nil logger is
// replaced with a no-op logger.
func NewRedisQuoteCache(client *redis.Client, log *zap.Logger) *RedisQuoteCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisQuoteCache{client: client, log: log}
}

// Get fetches and decodes a cached quote. Expiry is handled by Redis
// key TTLs set in Set.
func (c *RedisQuoteCache) Get(ctx context.Context, key string) (PriceQuote, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return PriceQuote{}, false
	}
	if err != nil {
		c.log.Warn("quote cache read failed", zap.String("key", key), zap.Error(err))
		return PriceQuote{}, false
	}

	var quote PriceQuote
	if err := json.Unmarshal(data, &quote); err != nil {
		c.log.Warn("quote cache entry corrupt", zap.String("key", key), zap.Error(err))
		return PriceQuote{}, false
	}
	return quote, true
}

// Set stores a quote under the given TTL.
func (c *RedisQuoteCache) Set(ctx context.Context, key string, quote PriceQuote, ttl time.Duration) {
	data, err := json.Marshal(quote)
	if err != nil {
		c.log.Warn("quote cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.log.Warn("quote cache write failed", zap.String("key", key), zap.Error(err))
	}
}
