package rediscache

// Package rediscache provides the Redis-backed persisted identity cache.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/commercekit/storefront-identity/internal/domain/identity"
	"github.com/commercekit/storefront-identity/internal/ports"
)

// Compile-time conformance to the port.
var _ ports.IdentityCache = (*IdentityCache)(nil)

// IdentityCache stores a single serialized identity record under a fixed key.
// The record is versionless: absent or malformed content reads as "no cached
// identity", so no migration logic exists. Writes replace the whole value
// atomically (one SET), never field by field.
type IdentityCache struct {
	client redis.UniversalClient
	key    string
}

// NewIdentityCache creates a Redis-backed identity cache. Each state store
// instance owns its own key, e.g. "identity:customer" and "identity:admin".
func NewIdentityCache(client redis.UniversalClient, key string) *IdentityCache {
	return &IdentityCache{client: client, key: key}
}

func (c *IdentityCache) Read(ctx context.Context) (*identity.CachedIdentity, error) {
	data, err := c.client.Get(ctx, c.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var cached identity.CachedIdentity
	if unmarshalErr := json.Unmarshal([]byte(data), &cached); unmarshalErr != nil {
		// Malformed content is treated as no cached identity.
		return nil, nil
	}
	return &cached, nil
}

func (c *IdentityCache) Write(ctx context.Context, cached identity.CachedIdentity) error {
	data, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("marshal cached identity: %w", err)
	}
	// No TTL: the record survives restarts until an explicit Clear.
	return c.client.Set(ctx, c.key, data, 0).Err()
}

func (c *IdentityCache) Clear(ctx context.Context) error {
	return c.client.Del(ctx, c.key).Err()
}
