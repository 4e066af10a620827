//go:build linux

package memmap

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// DevMem is a Region mapped from a memory device with mmap.
type DevMem struct {
	mu   sync.RWMutex
	fd   int
	data []byte
}

// OpenDevMem maps size bytes at physical address base of path, normally
// /dev/mem.
//
// Parameters:
//   - path: Memory device to open
//   - base: Page-aligned physical address of the window
//   - size: Window size in bytes
//
// Returns:
//   - The mapped region, or an error if the device cannot be opened or mapped
func OpenDevMem(path string, base int64, size int) (*DevMem, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid map size %d", size)
	}
	if base%int64(unix.Getpagesize()) != 0 {
		return nil, fmt.Errorf("base %#x is not page aligned", base)
	}

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	data, err := unix.Mmap(fd, base, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("mmap %s at %#x: %w", path, base, err)
	}

	return &DevMem{fd: fd, data: data}, nil
}

// Read32 implements Region.
func (m *DevMem) Read32(off uint32) (uint32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.data == nil {
		return 0, ErrClosed
	}
	if err := checkOffset(off, len(m.data)); err != nil {
		return 0, err
	}

	return atomic.LoadUint32((*uint32)(unsafe.Pointer(&m.data[off]))), nil
}

// Write32 implements Region.
func (m *DevMem) Write32(off, v uint32) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.data == nil {
		return ErrClosed
	}
	if err := checkOffset(off, len(m.data)); err != nil {
		return err
	}

	atomic.StoreUint32((*uint32)(unsafe.Pointer(&m.data[off])), v)
	return nil
}

// Size implements Region.
func (m *DevMem) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Close unmaps the window and closes the device. It is safe to call more
// than once.
func (m *DevMem) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.data == nil {
		return nil
	}

	err := unix.Munmap(m.data)
	m.data = nil
	if cerr := unix.Close(m.fd); err == nil {
		err = cerr
	}

	return err
}
