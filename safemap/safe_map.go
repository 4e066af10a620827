// Package safemap provides a generic map guarded by a read/write mutex. It is
// used for simulated hardware state (converter blocks, GPIO lines) that is
// read by the command loop and written by startup code.
package safemap

import "sync"

// SafeMap is a concurrent map that is safe for use by multiple goroutines.
// Unlike sync.Map it supports atomic read-modify-write through Update, which
// simulated converter blocks need when one setter changes a single field.
//
// SafeMap must not be copied after first use.
type SafeMap[K comparable, V any] struct {
	mu sync.RWMutex
	m  map[K]V
}

// NewSafeMap returns a new empty SafeMap ready for use.
//
// Returns:
//   - A pointer to a new SafeMap[K, V]
func NewSafeMap[K comparable, V any]() *SafeMap[K, V] {
	return &SafeMap[K, V]{m: make(map[K]V)}
}

// Store sets the value for key k, overwriting any existing value.
//
// Parameters:
//   - k: The key to store
//   - v: The value to associate with k
func (m *SafeMap[K, V]) Store(k K, v V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.m[k] = v
}

// Load returns the value for key k and whether it was present. A missing key
// yields the zero value of V.
//
// Parameters:
//   - k: The key to look up
//
// Returns:
//   - The value associated with k, or the zero value of V if not found
//   - true if the key was present, false otherwise
func (m *SafeMap[K, V]) Load(k K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.m[k]
	return v, ok
}

// LoadOrStore returns the existing value for k if present. Otherwise it stores
// and returns v. The boolean is true if the value was loaded.
func (m *SafeMap[K, V]) LoadOrStore(k K, v V) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.m[k]; ok {
		return existing, true
	}

	m.m[k] = v
	return v, false
}

// Update replaces the value for k with the result of fn, holding the write lock
// for the whole call. fn receives the current value (zero if absent) and
// whether it was present. fn must not call back into the map.
//
// Parameters:
//   - k: The key to update
//   - fn: Computes the new value from the current one
//
// Returns:
//   - The value stored for k after the update
func (m *SafeMap[K, V]) Update(k K, fn func(v V, ok bool) V) V {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.m[k]
	next := fn(cur, ok)
	m.m[k] = next
	return next
}

// Len returns the number of entries in the map.
func (m *SafeMap[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.m)
}

// Range calls f for each key and value under the read lock. If f returns
// false, Range stops the iteration. f must not modify the map.
//
// Parameters:
//   - f: Function called for each entry; return false to stop iteration
func (m *SafeMap[K, V]) Range(f func(k K, v V) bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for k, v := range m.m {
		if !f(k, v) {
			return
		}
	}
}
