package cacher

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mixerReadback struct {
	Freq  float64
	Phase float64
}

// newRedisCacher connects to the server named by RFTOOL_TEST_REDIS_ADDR and
// skips the test when it is unset.
func newRedisCacher[T any](t *testing.T, namespace string) Cacher[T] {
	t.Helper()

	addr := os.Getenv("RFTOOL_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("RFTOOL_TEST_REDIS_ADDR not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	c, err := New[T](ctx, Options{Backend: BackendRedis, RedisAddr: addr, Namespace: namespace})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = c.Clear(context.Background())
		_ = c.Close()
	})

	return c
}

func TestRedisCacher(t *testing.T) {
	ctx := context.Background()
	ns := "rftool-test:" + t.Name() + ":"

	t.Run("round trips structs and counts only its namespace", func(t *testing.T) {
		mixers := newRedisCacher[mixerReadback](t, ns+"mixer:")
		values := newRedisCacher[uint32](t, ns+"value:")

		want := mixerReadback{Freq: 1250.5, Phase: 45}
		got, err := mixers.GetOrFetch(ctx, "adc:0:0:mixer", time.Minute, constant(want))
		require.NoError(t, err)
		assert.Equal(t, want, got)

		got, err = mixers.GetOrFetch(ctx, "adc:0:0:mixer", time.Minute, func(context.Context) (mixerReadback, error) {
			t.Fatal("cached value was refetched")
			return mixerReadback{}, nil
		})
		require.NoError(t, err)
		assert.Equal(t, want, got)

		_, err = values.GetOrFetch(ctx, "dac:0:1:decimation", time.Minute, constant(uint32(4)))
		require.NoError(t, err)

		n, err := mixers.ItemCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		require.NoError(t, mixers.Clear(ctx))
		n, err = values.ItemCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("delete by prefix", func(t *testing.T) {
		values := newRedisCacher[uint32](t, ns+"prefix:")

		for _, key := range []string{"adc:0:0:decimation", "adc:0:0:mode", "adc:0:1:mode"} {
			_, err := values.GetOrFetch(ctx, key, time.Minute, constant(uint32(1)))
			require.NoError(t, err)
		}

		deleted, err := values.DeleteByPrefix(ctx, "adc:0:0:")
		require.NoError(t, err)
		assert.Equal(t, 2, deleted)

		require.NoError(t, values.Delete(ctx, "adc:0:1:mode"))
		n, err := values.ItemCount(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}
