package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/owlscommerce/shipping/pkg/carrier"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// RedisFeeCache is a FeeCache backed by Redis, suitable for deployments
// where multiple instances share quote state. Stampede protection is
// per-instance via singleflight; writes are idempotent last-writer-wins
// refreshes of the same key, which is safe because the computed value for
// a key is stable within a TTL window.
//
// Redis unavailability degrades to a cache miss: fee resolution must keep
// working when the cache does not.
type RedisFeeCache struct {
	client    *redis.Client
	keyPrefix string
	ttls      TTLs
	logger    *otelzap.Logger
	group     singleflight.Group
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisFeeCache creates a Redis-backed fee cache and verifies the
// connection.
func NewRedisFeeCache(cfg RedisConfig, ttls TTLs, logger *otelzap.Logger) (*RedisFeeCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisFeeCache{
		client:    client,
		keyPrefix: "shipping:fee:",
		ttls:      ttls,
		logger:    logger,
	}, nil
}

// NewRedisFeeCacheWithClient creates a cache around an existing client.
// Useful for tests and for sharing a client across components.
func NewRedisFeeCacheWithClient(client *redis.Client, ttls TTLs, logger *otelzap.Logger) *RedisFeeCache {
	return &RedisFeeCache{
		client:    client,
		keyPrefix: "shipping:fee:",
		ttls:      ttls,
		logger:    logger,
	}
}

// GetOrCompute returns the cached quote if Redis holds a live entry;
// otherwise computes once per key per instance and stores the result
// with the TTL matching its source.
func (c *RedisFeeCache) GetOrCompute(ctx context.Context, key string, fn ComputeFunc) (*carrier.FeeQuote, bool, error) {
	if q, ok := c.get(ctx, key); ok {
		return q, true, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if q, ok := c.get(ctx, key); ok {
			return flightResult{quote: q, cached: true}, nil
		}
		q, err := fn(ctx)
		if err != nil {
			return flightResult{}, err
		}
		c.set(ctx, key, q)
		return flightResult{quote: q}, nil
	})
	if err != nil {
		return nil, false, err
	}
	res := v.(flightResult)
	return res.quote, res.cached, nil
}

func (c *RedisFeeCache) get(ctx context.Context, key string) (*carrier.FeeQuote, bool) {
	payload, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Ctx(ctx).Warn("Redis fee cache read failed", zap.Error(err))
		}
		return nil, false
	}

	var q carrier.FeeQuote
	if err := json.Unmarshal(payload, &q); err != nil {
		c.logger.Ctx(ctx).Warn("Redis fee cache entry corrupt", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &q, true
}

func (c *RedisFeeCache) set(ctx context.Context, key string, q *carrier.FeeQuote) {
	payload, err := json.Marshal(q)
	if err != nil {
		c.logger.Ctx(ctx).Warn("Redis fee cache marshal failed", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, c.keyPrefix+key, payload, c.ttls.ttlFor(q)).Err(); err != nil {
		c.logger.Ctx(ctx).Warn("Redis fee cache write failed", zap.Error(err))
	}
}

// Close closes the Redis client.
func (c *RedisFeeCache) Close() error {
	return c.client.Close()
}

var _ FeeCache = (*RedisFeeCache)(nil)
