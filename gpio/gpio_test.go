package gpio

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPins = []Pin{
	{Number: 0, Direction: Out},
	{Number: 1, Direction: Out},
	{Number: 2, Direction: In},
}

// fakeSysfs lays out a gpio class directory with the given lines already
// present, the way the kernel shows exported lines.
func fakeSysfs(t *testing.T, lines ...int) string {
	t.Helper()

	root := t.TempDir()
	for _, name := range []string{"export", "unexport"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), nil, 0o644))
	}

	for _, line := range lines {
		dir := filepath.Join(root, "gpio"+strconv.Itoa(line))
		require.NoError(t, os.Mkdir(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "direction"), []byte("in"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "value"), []byte("0\n"), 0o644))
	}

	return root
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestNewSysfs(t *testing.T) {
	t.Run("rejects duplicate pins", func(t *testing.T) {
		_, err := NewSysfs("", 0, []Pin{{Number: 1, Direction: In}, {Number: 1, Direction: Out}})
		assert.Error(t, err)
	})

	t.Run("rejects bad direction", func(t *testing.T) {
		_, err := NewSysfs("", 0, []Pin{{Number: 1, Direction: "both"}})
		assert.Error(t, err)
	})

	t.Run("default root", func(t *testing.T) {
		s, err := NewSysfs("", 0, nil)
		require.NoError(t, err)
		assert.Equal(t, DefaultSysfsRoot, s.root)
	})
}

func TestSysfs(t *testing.T) {
	const base = 486

	t.Run("configures present lines and reads values", func(t *testing.T) {
		root := fakeSysfs(t, base, base+1, base+2)
		s, err := NewSysfs(root, base, testPins)
		require.NoError(t, err)
		require.NoError(t, s.Init())

		assert.Equal(t, "out", readFile(t, filepath.Join(root, "gpio486", "direction")))
		assert.Equal(t, "in", readFile(t, filepath.Join(root, "gpio488", "direction")))

		require.NoError(t, s.Set(1, 1))
		assert.Equal(t, "1", readFile(t, filepath.Join(root, "gpio487", "value")))

		v, err := s.Get(1)
		require.NoError(t, err)
		assert.Equal(t, 1, v)

		v, err = s.Get(2)
		require.NoError(t, err)
		assert.Equal(t, 0, v)

		// nothing was exported by us, so nothing is unexported
		require.NoError(t, s.Deinit())
		assert.Empty(t, readFile(t, filepath.Join(root, "unexport")))
	})

	t.Run("rejects invalid requests", func(t *testing.T) {
		root := fakeSysfs(t, base, base+1, base+2)
		s, err := NewSysfs(root, base, testPins)
		require.NoError(t, err)

		_, err = s.Get(0)
		assert.ErrorIs(t, err, ErrNotReady)

		require.NoError(t, s.Init())
		assert.ErrorIs(t, s.Set(2, 1), ErrInputPin)
		assert.ErrorIs(t, s.Set(0, 2), ErrInvalidValue)
		assert.ErrorIs(t, s.Set(9, 1), ErrUnknownPin)
		_, err = s.Get(9)
		assert.ErrorIs(t, err, ErrUnknownPin)
	})

	t.Run("export that does not produce the line fails and rolls back", func(t *testing.T) {
		root := fakeSysfs(t)
		s, err := NewSysfs(root, base, []Pin{{Number: 5, Direction: Out}})
		require.NoError(t, err)

		err = s.Init()
		require.Error(t, err)

		assert.Equal(t, "491", readFile(t, filepath.Join(root, "export")))
		assert.Equal(t, "491", readFile(t, filepath.Join(root, "unexport")))
		assert.Empty(t, s.exported.Values())
	})

	t.Run("missing class directory", func(t *testing.T) {
		s, err := NewSysfs(filepath.Join(t.TempDir(), "nope"), base, testPins)
		require.NoError(t, err)
		assert.Error(t, s.Init())
	})
}

func TestSim(t *testing.T) {
	t.Run("set and get", func(t *testing.T) {
		s, err := NewSim(testPins)
		require.NoError(t, err)
		require.NoError(t, s.Init())

		v, err := s.Get(0)
		require.NoError(t, err)
		assert.Zero(t, v)

		require.NoError(t, s.Set(0, 1))
		v, err = s.Get(0)
		require.NoError(t, err)
		assert.Equal(t, 1, v)
	})

	t.Run("inputs are driven externally", func(t *testing.T) {
		s, err := NewSim(testPins)
		require.NoError(t, err)
		require.NoError(t, s.Init())

		assert.ErrorIs(t, s.Set(2, 1), ErrInputPin)
		require.NoError(t, s.Drive(2, 1))

		v, err := s.Get(2)
		require.NoError(t, err)
		assert.Equal(t, 1, v)

		assert.ErrorIs(t, s.Drive(7, 1), ErrUnknownPin)
	})

	t.Run("init failure and deinit", func(t *testing.T) {
		s, err := NewSim(testPins)
		require.NoError(t, err)

		s.FailInit = true
		assert.Error(t, s.Init())

		s.FailInit = false
		require.NoError(t, s.Init())
		require.NoError(t, s.Deinit())

		_, err = s.Get(0)
		assert.ErrorIs(t, err, ErrNotReady)
	})
}

func TestControllerInterface(t *testing.T) {
	var _ Controller = (*Sysfs)(nil)
	var _ Controller = (*Sim)(nil)
}
