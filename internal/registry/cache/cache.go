// Package cache provides a Redis-backed read-through cache for fingerprint
// lookups. Payment latency is dominated by the fingerprint resolve; caching
// the digest→profile-id edge keeps the hot path off the profiles table.
// Entries map digests to profile IDs only, so they stay valid across profile
// mutations; the TTL bounds staleness after an off-band delete.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	regmetrics "facepay/internal/registry/metrics"
	"facepay/pkg/domain"
)

const keyPrefix = "facepay:fp:"

// LookupCache maps fingerprint digests to profile IDs with a TTL.
type LookupCache struct {
	client  *redis.Client
	ttl     time.Duration
	metrics *regmetrics.Metrics
}

func New(client *redis.Client, ttl time.Duration, metrics *regmetrics.Metrics) *LookupCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &LookupCache{client: client, ttl: ttl, metrics: metrics}
}

// Get returns the cached profile ID for a digest, or ok=false on miss.
// Cache errors degrade to misses; the store remains the source of truth.
func (c *LookupCache) Get(ctx context.Context, digest string) (domain.ProfileID, bool) {
	val, err := c.client.Get(ctx, keyPrefix+digest).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			// Treat infrastructure errors as misses; lookups fall through.
			return domain.ProfileID{}, false
		}
		c.recordMiss()
		return domain.ProfileID{}, false
	}
	id, err := domain.ParseProfileID(val)
	if err != nil {
		c.recordMiss()
		return domain.ProfileID{}, false
	}
	c.recordHit()
	return id, true
}

// Put stores the digest→profile edge. Errors are dropped: a failed cache
// write only costs a future miss.
func (c *LookupCache) Put(ctx context.Context, digest string, id domain.ProfileID) {
	_ = c.client.Set(ctx, keyPrefix+digest, id.String(), c.ttl).Err()
}

// Invalidate removes the cached edge for a digest.
func (c *LookupCache) Invalidate(ctx context.Context, digest string) {
	_ = c.client.Del(ctx, keyPrefix+digest).Err()
}

func (c *LookupCache) recordHit() {
	if c.metrics != nil {
		c.metrics.RecordCacheHit()
	}
}

func (c *LookupCache) recordMiss() {
	if c.metrics != nil {
		c.metrics.RecordCacheMiss()
	}
}
