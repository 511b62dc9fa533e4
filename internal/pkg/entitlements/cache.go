package entitlements

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "entitlement:tenant:"

// CacheKey returns the Redis key holding a tenant's effective plan.
func CacheKey(tenantID string) string {
	return cacheKeyPrefix + tenantID
}

// Cache is the downstream access-control cache the billing sync propagates
// entitlement deltas into. The subscription table stays the source of
// truth; the cache is eventually consistent.
type Cache interface {
	Apply(ctx context.Context, d Delta) error
}

type redisCache struct {
	client *redis.Client
}

// NewRedisCache creates an entitlement cache backed by Redis.
func NewRedisCache(client *redis.Client) Cache {
	return &redisCache{client: client}
}

func (c *redisCache) Apply(ctx context.Context, d Delta) error {
	key := CacheKey(d.TenantID)
	if d.Revoke {
		return c.client.Del(ctx, key).Err()
	}

	var ttl time.Duration
	if d.ValidUntil != nil {
		ttl = time.Until(*d.ValidUntil)
		if ttl <= 0 {
			return c.client.Del(ctx, key).Err()
		}
	}
	return c.client.Set(ctx, key, string(NormalizePlan(string(d.Plan))), ttl).Err()
}

// CachedPlan reads a tenant's effective plan from the cache. A miss or a
// cache error reports false; callers fall back to the subscription table.
func CachedPlan(ctx context.Context, client *redis.Client, tenantID string) (Plan, bool) {
	val, err := client.Get(ctx, CacheKey(tenantID)).Result()
	if err != nil {
		return PlanFree, false
	}
	return NormalizePlan(val), true
}
