package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vyrodovalexey/aviotgw/internal/observability"
	"github.com/vyrodovalexey/aviotgw/internal/tenant"
)

// CachedTenantClient decorates a TenantClient with a Redis read-through
// cache. The gateway core itself never caches descriptors; this
// decorator is the external caching collaborator.
type CachedTenantClient struct {
	next      TenantClient
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
	logger    observability.Logger
}

// CachedTenantClientOption is a functional option for the cached client.
type CachedTenantClientOption func(*CachedTenantClient)

// WithCacheLogger sets the logger for the cached client.
func WithCacheLogger(logger observability.Logger) CachedTenantClientOption {
	return func(c *CachedTenantClient) {
		c.logger = logger
	}
}

// WithCacheKeyPrefix sets the cache key prefix.
func WithCacheKeyPrefix(prefix string) CachedTenantClientOption {
	return func(c *CachedTenantClient) {
		c.keyPrefix = prefix
	}
}

// NewCachedTenantClient creates a caching decorator around next.
func NewCachedTenantClient(
	next TenantClient,
	client redis.UniversalClient,
	ttl time.Duration,
	opts ...CachedTenantClientOption,
) *CachedTenantClient {
	c := &CachedTenantClient{
		next:      next,
		client:    client,
		keyPrefix: "tenant:",
		ttl:       ttl,
		logger:    observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get resolves a tenant descriptor, consulting the cache first. Cache
// failures degrade to the wrapped client; lookup errors are never
// cached.
func (c *CachedTenantClient) Get(ctx context.Context, tenantID string) (*tenant.Descriptor, error) {
	key := c.keyPrefix + tenantID

	cached, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var descriptor tenant.Descriptor
		if unmarshalErr := json.Unmarshal(cached, &descriptor); unmarshalErr == nil {
			return &descriptor, nil
		}
		// A corrupt entry falls through to a fresh lookup.
		c.logger.Warn("discarding corrupt tenant cache entry",
			observability.String("tenant_id", tenantID))
	case errors.Is(err, redis.Nil):
		// miss
	default:
		c.logger.Warn("tenant cache unavailable",
			observability.String("tenant_id", tenantID),
			observability.Error(err),
		)
	}

	descriptor, err := c.next.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if raw, marshalErr := json.Marshal(descriptor); marshalErr == nil {
		if setErr := c.client.Set(ctx, key, raw, c.ttl).Err(); setErr != nil {
			c.logger.Warn("failed to cache tenant descriptor",
				observability.String("tenant_id", tenantID),
				observability.Error(setErr),
			)
		}
	}
	return descriptor, nil
}

// Invalidate drops the cached descriptor of the given tenant.
func (c *CachedTenantClient) Invalidate(ctx context.Context, tenantID string) error {
	if err := c.client.Del(ctx, c.keyPrefix+tenantID).Err(); err != nil {
		return fmt.Errorf("failed to invalidate tenant %s: %w", tenantID, err)
	}
	return nil
}

var _ TenantClient = (*CachedTenantClient)(nil)
