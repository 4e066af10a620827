package cacher

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constant[T any](v T) FetchFunc[T] {
	return func(context.Context) (T, error) { return v, nil }
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	t.Run("memory is the default backend", func(t *testing.T) {
		c, err := New[uint32](ctx, Options{TTL: time.Second})
		require.NoError(t, err)
		defer c.Close()

		_, ok := c.(*MemoryCacher[uint32])
		assert.True(t, ok)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := New[uint32](ctx, Options{Backend: "memcached"})
		assert.Error(t, err)
	})

	t.Run("unreachable redis", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
		defer cancel()

		_, err := New[uint32](ctx, Options{Backend: BackendRedis, RedisAddr: "127.0.0.1:1"})
		assert.Error(t, err)
	})
}

func TestMemoryCacher_GetOrFetch(t *testing.T) {
	ctx := context.Background()

	t.Run("miss fetches and hit does not", func(t *testing.T) {
		c := NewMemoryCacher[uint32](cache.NoExpiration, time.Minute)

		fetches := 0
		fetch := func(context.Context) (uint32, error) {
			fetches++
			return 8, nil
		}

		v, err := c.GetOrFetch(ctx, "decimation:0:0:1", time.Minute, fetch)
		require.NoError(t, err)
		assert.Equal(t, uint32(8), v)

		v, err = c.GetOrFetch(ctx, "decimation:0:0:1", time.Minute, fetch)
		require.NoError(t, err)
		assert.Equal(t, uint32(8), v)
		assert.Equal(t, 1, fetches)
	})

	t.Run("failed fetch is not cached", func(t *testing.T) {
		c := NewMemoryCacher[uint32](cache.NoExpiration, time.Minute)

		_, err := c.GetOrFetch(ctx, "k", time.Minute, func(context.Context) (uint32, error) {
			return 0, assert.AnError
		})
		assert.ErrorIs(t, err, assert.AnError)

		v, err := c.GetOrFetch(ctx, "k", time.Minute, constant[uint32](2))
		require.NoError(t, err)
		assert.Equal(t, uint32(2), v)
	})

	t.Run("fetch sees cancelled context", func(t *testing.T) {
		c := NewMemoryCacher[string](cache.NoExpiration, time.Minute)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := c.GetOrFetch(cctx, "k", time.Minute, func(ctx context.Context) (string, error) {
			return "", ctx.Err()
		})
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("expired entries are fetched again", func(t *testing.T) {
		c := NewMemoryCacher[int](cache.NoExpiration, time.Minute)

		_, err := c.GetOrFetch(ctx, "k", 10*time.Millisecond, constant(1))
		require.NoError(t, err)
		time.Sleep(30 * time.Millisecond)

		v, err := c.GetOrFetch(ctx, "k", time.Minute, constant(2))
		require.NoError(t, err)
		assert.Equal(t, 2, v)
	})

	t.Run("struct values", func(t *testing.T) {
		type mixer struct {
			Freq  float64
			Phase float64
		}

		c := NewMemoryCacher[mixer](cache.NoExpiration, time.Minute)
		want := mixer{Freq: 1000, Phase: 90}

		v, err := c.GetOrFetch(ctx, "mixer:1:0:0", time.Minute, constant(want))
		require.NoError(t, err)
		assert.Equal(t, want, v)
	})
}

func TestMemoryCacher_GetOrFetch_ConcurrentSameKey(t *testing.T) {
	c := NewMemoryCacher[string](cache.NoExpiration, time.Minute)
	ctx := context.Background()

	var fetches int32
	fetch := func(context.Context) (string, error) {
		atomic.AddInt32(&fetches, 1)
		time.Sleep(20 * time.Millisecond)
		return "value", nil
	}

	const concurrency = 10
	var wg sync.WaitGroup
	results := make([]string, concurrency)
	errs := make([]error, concurrency)

	for i := range concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = c.GetOrFetch(ctx, "same-key", time.Minute, fetch)
		}()
	}
	wg.Wait()

	for i := range concurrency {
		require.NoError(t, errs[i])
		assert.Equal(t, "value", results[i])
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&fetches))
}

func TestMemoryCacher_Delete(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCacher[string](cache.NoExpiration, time.Minute)

	_, err := c.GetOrFetch(ctx, "k", time.Minute, constant("old"))
	require.NoError(t, err)
	require.NoError(t, c.Delete(ctx, "k"))

	v, err := c.GetOrFetch(ctx, "k", time.Minute, constant("new"))
	require.NoError(t, err)
	assert.Equal(t, "new", v)

	t.Run("missing key", func(t *testing.T) {
		assert.NoError(t, c.Delete(ctx, "missing"))
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		assert.ErrorIs(t, c.Delete(cctx, "k"), context.Canceled)
	})
}

func TestMemoryCacher_DeleteByPrefix(t *testing.T) {
	ctx := context.Background()

	fill := func() *MemoryCacher[string] {
		c := NewMemoryCacher[string](cache.NoExpiration, time.Minute)
		for _, k := range []string{"mixer:0:0:0", "mixer:0:0:1", "mixer:0:1:0", "decimation:0:0:0"} {
			_, err := c.GetOrFetch(ctx, k, time.Minute, constant("v"))
			require.NoError(t, err)
		}
		return c
	}

	t.Run("removes matching keys only", func(t *testing.T) {
		c := fill()
		n, err := c.DeleteByPrefix(ctx, "mixer:0:0:")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		count, err := c.ItemCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("no match", func(t *testing.T) {
		c := fill()
		n, err := c.DeleteByPrefix(ctx, "interpolation:")
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("empty prefix removes everything", func(t *testing.T) {
		c := fill()
		n, err := c.DeleteByPrefix(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, 4, n)
	})

	t.Run("cancelled context", func(t *testing.T) {
		c := fill()
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		n, err := c.DeleteByPrefix(cctx, "mixer:")
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, n)
	})
}

func TestMemoryCacher_ClearAndCount(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCacher[int](cache.NoExpiration, time.Minute)

	count, err := c.ItemCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, _ = c.GetOrFetch(ctx, "a", time.Minute, constant(1))
	_, _ = c.GetOrFetch(ctx, "b", time.Minute, constant(2))

	count, err = c.ItemCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, c.Clear(ctx))
	count, err = c.ItemCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		assert.ErrorIs(t, c.Clear(cctx), context.Canceled)
		_, err := c.ItemCount(cctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestCacher_Interface(t *testing.T) {
	var _ Cacher[string] = (*MemoryCacher[string])(nil)
	var _ Cacher[string] = (*RedisCacher[string])(nil)
}
