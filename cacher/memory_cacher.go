package cacher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// MemoryCacher is the in-process Cacher. It stores values in go-cache and uses
// singleflight so concurrent misses for one key trigger a single fetch.
type MemoryCacher[T any] struct {
	cache *cache.Cache
	group singleflight.Group
}

// NewMemoryCacher creates an in-memory cache.
//
// Parameters:
//   - defaultExpiration: Default TTL for cached items (cache.NoExpiration for none)
//   - cleanupInterval: Interval at which expired items are purged
//
// Returns:
//   - A new MemoryCacher
func NewMemoryCacher[T any](defaultExpiration, cleanupInterval time.Duration) *MemoryCacher[T] {
	return &MemoryCacher[T]{
		cache: cache.New(defaultExpiration, cleanupInterval),
	}
}

// GetOrFetch implements Cacher.
func (c *MemoryCacher[T]) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetchFn FetchFunc[T]) (T, error) {
	var zero T

	if v, ok := c.lookup(key); ok {
		return v, nil
	}

	val, err, _ := c.group.Do(key, func() (any, error) {
		// another caller may have filled the key while we waited
		if v, ok := c.lookup(key); ok {
			return v, nil
		}

		fetched, err := fetchFn(ctx)
		if err != nil {
			return zero, err
		}

		c.cache.Set(key, fetched, ttl)
		return fetched, nil
	})
	if err != nil {
		return zero, err
	}

	typed, ok := val.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected type in cache for key %s", key)
	}

	return typed, nil
}

func (c *MemoryCacher[T]) lookup(key string) (T, bool) {
	if v, found := c.cache.Get(key); found {
		if typed, ok := v.(T); ok {
			return typed, true
		}
	}

	var zero T
	return zero, false
}

// Delete implements Cacher.
func (c *MemoryCacher[T]) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.cache.Delete(key)
	return nil
}

// DeleteByPrefix implements Cacher.
func (c *MemoryCacher[T]) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	deleted := 0
	for key := range c.cache.Items() {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}

		if strings.HasPrefix(key, prefix) {
			c.cache.Delete(key)
			deleted++
		}
	}

	return deleted, nil
}

// Clear implements Cacher.
func (c *MemoryCacher[T]) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.cache.Flush()
	return nil
}

// ItemCount implements Cacher.
func (c *MemoryCacher[T]) ItemCount(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	return c.cache.ItemCount(), nil
}

// Close implements Cacher. It drops all items.
func (c *MemoryCacher[T]) Close() error {
	c.cache.Flush()
	return nil
}
