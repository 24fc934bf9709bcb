package cache

import (
	"context"
	"errors"
)

// LayeredCache puts a memory layer in front of a durable backend
type LayeredCache struct {
	memory Cache
	store  Cache
}

// NewLayeredCache creates a new layered cache over store
func NewLayeredCache(store Cache) *LayeredCache {
	return &LayeredCache{
		memory: NewMemoryCache(),
		store:  store,
	}
}

// Get retrieves a value from the cache (checks memory first, then the store)
func (c *LayeredCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if val, found := c.memory.Get(ctx, key); found {
		return val, true
	}

	if val, found := c.store.Get(ctx, key); found {
		// Promote to memory cache
		_ = c.memory.Set(ctx, key, val)
		return val, true
	}

	return nil, false
}

// Set stores a value in both layers
func (c *LayeredCache) Set(ctx context.Context, key string, value []byte) error {
	if err := c.store.Set(ctx, key, value); err != nil {
		return err
	}
	return c.memory.Set(ctx, key, value)
}

// Delete removes a value from both layers
func (c *LayeredCache) Delete(ctx context.Context, key string) error {
	return errors.Join(c.memory.Delete(ctx, key), c.store.Delete(ctx, key))
}

// Clear removes all values from both layers
func (c *LayeredCache) Clear(ctx context.Context) error {
	return errors.Join(c.memory.Clear(ctx), c.store.Clear(ctx))
}

// Close closes the durable store
func (c *LayeredCache) Close() error {
	return errors.Join(c.memory.Close(), c.store.Close())
}
