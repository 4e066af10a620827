// Package memmap gives 32-bit register access to a physical memory window,
// either through /dev/mem or a simulated region.
package memmap

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfRange  = errors.New("offset outside the mapped region")
	ErrUnaligned   = errors.New("offset is not 32-bit aligned")
	ErrClosed      = errors.New("region is closed")
	ErrUnsupported = errors.New("physical memory mapping is not supported on this platform")
)

// Region is a mapped register window. Offsets are in bytes from the start of
// the window.
type Region interface {
	Read32(off uint32) (uint32, error)
	Write32(off, v uint32) error
	Size() int
	Close() error
}

func checkOffset(off uint32, size int) error {
	if off%4 != 0 {
		return fmt.Errorf("%w: %#x", ErrUnaligned, off)
	}
	if uint64(off)+4 > uint64(size) {
		return fmt.Errorf("%w: %#x (size %#x)", ErrOutOfRange, off, size)
	}

	return nil
}
