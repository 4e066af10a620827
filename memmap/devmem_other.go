//go:build !linux

package memmap

// DevMem is only available on linux.
type DevMem struct{}

// OpenDevMem always fails with ErrUnsupported outside linux.
func OpenDevMem(path string, base int64, size int) (*DevMem, error) {
	return nil, ErrUnsupported
}

func (m *DevMem) Read32(off uint32) (uint32, error) { return 0, ErrUnsupported }
func (m *DevMem) Write32(off, v uint32) error       { return ErrUnsupported }
func (m *DevMem) Size() int                         { return 0 }
func (m *DevMem) Close() error                      { return nil }
