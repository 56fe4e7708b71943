package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// EntryCache implements ports.EntryCache using Redis. It shortcuts retried
// idempotent operations without a store round trip; the ledger store stays
// the single source of truth.
type EntryCache struct {
	client *goredis.Client
	prefix string
}

// NewEntryCache creates a Redis-backed entry cache.
func NewEntryCache(client *goredis.Client) *EntryCache {
	return &EntryCache{
		client: client,
		prefix: "wallet:entry:",
	}
}

// Get retrieves a cached committed entry by idempotency cache key.
// Returns nil, nil if the key does not exist.
func (c *EntryCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis entry cache get: %w", err)
	}
	return val, nil
}

// Set stores a committed entry in the cache with TTL.
func (c *EntryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis entry cache set: %w", err)
	}
	return nil
}
