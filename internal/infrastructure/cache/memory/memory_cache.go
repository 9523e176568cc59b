package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/dreschagin/crm-dashboard/internal/application/port"
)

// MemoryCache implements port.Cache in process memory.
// Values are stored as JSON so callers get copies, same as with Redis.
type MemoryCache struct {
	store *gocache.Cache
}

// NewMemoryCache creates an in-memory cache with the given TTL
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	cleanup := 2 * ttl
	if ttl <= 0 {
		ttl = gocache.NoExpiration
		cleanup = 0
	}

	return &MemoryCache{
		store: gocache.New(ttl, cleanup),
	}
}

// Get retrieves a value from cache
func (c *MemoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := c.store.Get(key)
	if !ok {
		return fmt.Errorf("%w: %s", port.ErrCacheMiss, key)
	}

	data, ok := raw.([]byte)
	if !ok {
		return fmt.Errorf("unexpected cached type %T", raw)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal cached value: %w", err)
	}

	return nil
}

// Set stores a value with the default TTL
func (c *MemoryCache) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	c.store.Set(key, data, gocache.DefaultExpiration)
	return nil
}

// Delete removes a value from cache
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.store.Delete(key)
	return nil
}

// DeletePattern removes all keys matching a glob pattern (Redis-style '*' and '?')
func (c *MemoryCache) DeletePattern(ctx context.Context, pattern string) error {
	if _, err := path.Match(pattern, ""); err != nil {
		return fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	for key := range c.store.Items() {
		if matched, _ := path.Match(pattern, key); matched {
			c.store.Delete(key)
		}
	}

	return nil
}

// Len returns the number of unexpired entries
func (c *MemoryCache) Len() int {
	return c.store.ItemCount()
}

// Close drops all entries
func (c *MemoryCache) Close() error {
	c.store.Flush()
	return nil
}
