package cacher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// RedisCacher stores JSON-encoded values in Redis under a namespace. Misses are
// collapsed per process with singleflight; values written by another process
// are picked up on the next read.
type RedisCacher[T any] struct {
	client    *redis.Client
	namespace string
	group     singleflight.Group
}

// NewRedisCacher wraps client. Every key is stored as namespace+key.
//
// Parameters:
//   - client: A connected Redis client; Close closes it
//   - namespace: Key prefix owned by this cache
//
// Returns:
//   - A new RedisCacher
func NewRedisCacher[T any](client *redis.Client, namespace string) *RedisCacher[T] {
	return &RedisCacher[T]{client: client, namespace: namespace}
}

// GetOrFetch implements Cacher.
func (c *RedisCacher[T]) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetchFn FetchFunc[T]) (T, error) {
	var zero T

	if v, ok, err := c.lookup(ctx, key); err != nil || ok {
		return v, err
	}

	val, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok, err := c.lookup(ctx, key); err != nil || ok {
			return v, err
		}

		fetched, err := fetchFn(ctx)
		if err != nil {
			return zero, err
		}

		data, err := json.Marshal(fetched)
		if err != nil {
			return zero, fmt.Errorf("failed to marshal value: %w", err)
		}

		if err := c.client.Set(ctx, c.namespace+key, data, ttl).Err(); err != nil {
			return zero, fmt.Errorf("failed to cache value: %w", err)
		}

		return fetched, nil
	})
	if err != nil {
		return zero, err
	}

	return val.(T), nil
}

func (c *RedisCacher[T]) lookup(ctx context.Context, key string) (T, bool, error) {
	var result T

	raw, err := c.client.Get(ctx, c.namespace+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return result, false, nil
	}
	if err != nil {
		return result, false, fmt.Errorf("redis get error: %w", err)
	}

	if err := json.Unmarshal(raw, &result); err != nil {
		return result, false, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}

	return result, true, nil
}

// Delete implements Cacher.
func (c *RedisCacher[T]) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.namespace+key).Err(); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}

	return nil
}

// DeleteByPrefix implements Cacher.
func (c *RedisCacher[T]) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	keys, err := c.scan(ctx, c.namespace+prefix)
	if err != nil {
		return 0, err
	}

	if len(keys) == 0 {
		return 0, nil
	}

	deleted, err := c.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to delete keys: %w", err)
	}

	return int(deleted), nil
}

// Clear implements Cacher. Only keys under the namespace are removed.
func (c *RedisCacher[T]) Clear(ctx context.Context) error {
	_, err := c.DeleteByPrefix(ctx, "")
	return err
}

// ItemCount implements Cacher.
func (c *RedisCacher[T]) ItemCount(ctx context.Context) (int, error) {
	keys, err := c.scan(ctx, c.namespace)
	if err != nil {
		return 0, err
	}

	return len(keys), nil
}

// Close implements Cacher.
func (c *RedisCacher[T]) Close() error {
	return c.client.Close()
}

func (c *RedisCacher[T]) scan(ctx context.Context, prefix string) ([]string, error) {
	var keys []string

	iter := c.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan keys: %w", err)
	}

	return keys, nil
}
