package integrations

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	stateCachePrefix = "shopify_oauth_state:"
	stateTTL         = 600 * time.Second
)

// StateCache stores short-lived OAuth state tokens. A token maps to the shop
// it was issued for and is consumed exactly once.
type StateCache interface {
	Set(ctx context.Context, state string, shop string) error
	// GetDel returns the shop a state was issued for and deletes the entry,
	// so the token is unusable afterwards even when verification fails.
	GetDel(ctx context.Context, state string) (string, error)
}

type RedisStateCache struct {
	client redis.UniversalClient
}

func NewRedisStateCache(client redis.UniversalClient) *RedisStateCache {
	return &RedisStateCache{client: client}
}

func (c *RedisStateCache) Set(ctx context.Context, state string, shop string) error {
	return c.client.Set(ctx, stateCachePrefix+state, shop, stateTTL).Err()
}

func (c *RedisStateCache) GetDel(ctx context.Context, state string) (string, error) {
	shop, err := c.client.GetDel(ctx, stateCachePrefix+state).Result()
	if err == redis.Nil {
		return "", nil
	}
	return shop, err
}

// MemoryStateCache backs development and tests without a Redis server.
type MemoryStateCache struct {
	mu      sync.Mutex
	entries map[string]memoryStateEntry
}

type memoryStateEntry struct {
	shop      string
	expiresAt time.Time
}

func NewMemoryStateCache() *MemoryStateCache {
	return &MemoryStateCache{entries: make(map[string]memoryStateEntry)}
}

func (c *MemoryStateCache) Set(_ context.Context, state string, shop string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[state] = memoryStateEntry{shop: shop, expiresAt: time.Now().Add(stateTTL)}
	return nil
}

func (c *MemoryStateCache) GetDel(_ context.Context, state string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[state]
	delete(c.entries, state)
	if !ok || time.Now().After(entry.expiresAt) {
		return "", nil
	}
	return entry.shop, nil
}
