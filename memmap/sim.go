package memmap

import "sync"

// Sim is a Region backed by ordinary memory.
type Sim struct {
	mu     sync.RWMutex
	words  []uint32
	closed bool
}

// NewSim returns a zeroed simulated region of size bytes. size is rounded
// down to a multiple of 4.
func NewSim(size int) *Sim {
	if size < 0 {
		size = 0
	}

	return &Sim{words: make([]uint32, size/4)}
}

// Read32 implements Region.
func (s *Sim) Read32(off uint32) (uint32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, ErrClosed
	}
	if err := checkOffset(off, len(s.words)*4); err != nil {
		return 0, err
	}

	return s.words[off/4], nil
}

// Write32 implements Region.
func (s *Sim) Write32(off, v uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if err := checkOffset(off, len(s.words)*4); err != nil {
		return err
	}

	s.words[off/4] = v
	return nil
}

// Size implements Region.
func (s *Sim) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.words) * 4
}

// Close implements Region.
func (s *Sim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
