// Package cacher provides read-through caches for converter read-back values.
// An in-memory backend (go-cache) is the default; a Redis backend lets several
// bench tools share the read-back of one board.
package cacher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Backend names accepted by New.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// FetchFunc reads a value from its source when the cache misses.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Cacher is a read-through cache keyed by string. Concurrent misses for the
// same key result in a single fetch.
type Cacher[T any] interface {
	// GetOrFetch returns the cached value for key, or calls fetchFn, stores its
	// result for ttl and returns it. A failed fetch is not cached.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - key: The cache key to retrieve or set
	//   - ttl: Time-to-live duration for the cached value
	//   - fetchFn: Function to fetch the value if not in cache
	//
	// Returns:
	//   - The cached or fetched value of type T
	//   - An error if retrieval or fetching fails
	GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetchFn FetchFunc[T]) (T, error)

	// Delete removes a key from the cache.
	Delete(ctx context.Context, key string) error

	// DeleteByPrefix deletes all keys with the given prefix.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - prefix: The prefix to match keys against
	//
	// Returns:
	//   - The number of keys deleted
	//   - An error if the operation fails
	DeleteByPrefix(ctx context.Context, prefix string) (int, error)

	// Clear removes every item owned by this cache.
	Clear(ctx context.Context) error

	// ItemCount returns the number of items owned by this cache.
	ItemCount(ctx context.Context) (int, error)

	// Close releases backend connections.
	Close() error
}

// Options selects and configures a cache backend.
type Options struct {
	// Backend is BackendMemory (default) or BackendRedis.
	Backend string
	// TTL is the default expiration of the memory backend.
	TTL time.Duration
	// RedisAddr is the host:port of the Redis server.
	RedisAddr string
	// Namespace prefixes every Redis key so Clear and ItemCount only touch
	// this cache's keys.
	Namespace string
}

// New creates the cache selected by opts. The Redis backend is pinged before
// it is returned.
//
// Parameters:
//   - ctx: Bounds the Redis connectivity check
//   - opts: Backend selection
//
// Returns:
//   - The Cacher, or an error for unknown backends and unreachable servers
func New[T any](ctx context.Context, opts Options) (Cacher[T], error) {
	switch strings.ToLower(opts.Backend) {
	case "", BackendMemory:
		return NewMemoryCacher[T](opts.TTL, cleanupInterval(opts.TTL)), nil
	case BackendRedis:
		client := redis.NewClient(&redis.Options{Addr: opts.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis ping %s: %w", opts.RedisAddr, err)
		}

		return NewRedisCacher[T](client, opts.Namespace), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}

func cleanupInterval(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return time.Minute
	}

	return 2 * ttl
}
