package memmap

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSim(t *testing.T) {
	t.Run("read back written words", func(t *testing.T) {
		r := NewSim(64)
		assert.Equal(t, 64, r.Size())

		require.NoError(t, r.Write32(0x10, 0xdeadbeef))
		v, err := r.Read32(0x10)
		require.NoError(t, err)
		assert.Equal(t, uint32(0xdeadbeef), v)

		v, err = r.Read32(0x14)
		require.NoError(t, err)
		assert.Zero(t, v)
	})

	t.Run("bounds and alignment", func(t *testing.T) {
		r := NewSim(16)

		_, err := r.Read32(16)
		assert.ErrorIs(t, err, ErrOutOfRange)
		assert.ErrorIs(t, r.Write32(0xfffffffc, 1), ErrOutOfRange)
		assert.ErrorIs(t, r.Write32(2, 1), ErrUnaligned)
	})

	t.Run("size rounds down", func(t *testing.T) {
		assert.Equal(t, 8, NewSim(10).Size())
		assert.Zero(t, NewSim(-1).Size())
	})

	t.Run("closed region", func(t *testing.T) {
		r := NewSim(16)
		require.NoError(t, r.Close())

		_, err := r.Read32(0)
		assert.ErrorIs(t, err, ErrClosed)
		assert.ErrorIs(t, r.Write32(0, 1), ErrClosed)
	})
}

func TestOpenDevMem(t *testing.T) {
	if runtime.GOOS != "linux" {
		_, err := OpenDevMem("/dev/mem", 0, 4096)
		assert.ErrorIs(t, err, ErrUnsupported)
		return
	}

	t.Run("maps a file", func(t *testing.T) {
		ps := os.Getpagesize()
		path := filepath.Join(t.TempDir(), "mem")
		require.NoError(t, os.WriteFile(path, make([]byte, 2*ps), 0o600))

		r, err := OpenDevMem(path, int64(ps), ps)
		require.NoError(t, err)

		require.NoError(t, r.Write32(4, 0x12345678))
		v, err := r.Read32(4)
		require.NoError(t, err)
		assert.Equal(t, uint32(0x12345678), v)
		assert.Equal(t, ps, r.Size())

		_, err = r.Read32(uint32(ps))
		assert.ErrorIs(t, err, ErrOutOfRange)

		require.NoError(t, r.Close())
		require.NoError(t, r.Close())
		_, err = r.Read32(4)
		assert.ErrorIs(t, err, ErrClosed)
	})

	t.Run("unaligned base", func(t *testing.T) {
		_, err := OpenDevMem("/dev/null", 3, 4096)
		assert.Error(t, err)
	})

	t.Run("missing device", func(t *testing.T) {
		_, err := OpenDevMem(filepath.Join(t.TempDir(), "missing"), 0, 4096)
		assert.Error(t, err)
	})
}

func TestRegionInterface(t *testing.T) {
	var _ Region = (*Sim)(nil)
	var _ Region = (*DevMem)(nil)
}
