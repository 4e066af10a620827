// Package safeset provides a small concurrent set used to track resources that
// must be released later, such as exported GPIO lines.
package safeset

import "sync"

// SafeSet is a thread-safe set of unique comparable elements.
type SafeSet[T comparable] struct {
	mu sync.RWMutex
	m  map[T]struct{}
}

// NewSafeSet creates and returns a new empty SafeSet.
func NewSafeSet[T comparable]() *SafeSet[T] {
	return &SafeSet[T]{m: make(map[T]struct{})}
}

// Add adds an element to the set.
//
// Parameters:
//   - value: The element to add
func (s *SafeSet[T]) Add(value T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[value] = struct{}{}
}

// Remove removes an element from the set.
//
// Parameters:
//   - value: The element to remove
func (s *SafeSet[T]) Remove(value T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, value)
}

// Contains reports whether the set contains the given element.
func (s *SafeSet[T]) Contains(value T) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.m[value]
	return ok
}

// Values returns a snapshot of the elements in unspecified order. The set may
// be modified while the caller walks the snapshot.
func (s *SafeSet[T]) Values() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]T, 0, len(s.m))
	for k := range s.m {
		out = append(out, k)
	}

	return out
}
