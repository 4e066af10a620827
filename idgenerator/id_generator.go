// Package idgenerator hands out the sequence numbers that identify command
// sessions in logs, metrics and session summaries.
package idgenerator

import "sync/atomic"

// IdGenerator generates monotonically increasing uint32 IDs in a concurrency-safe
// manner. The first Id() returns startValue+1, so a start of 0 keeps 0 free to
// mean "no session".
type IdGenerator struct {
	id atomic.Uint32
}

// NewIdGenerator creates an IdGenerator whose first Id() returns startValue+1.
//
// Parameters:
//   - startValue: The value to initialize the counter to
//
// Returns:
//   - A new IdGenerator instance
func NewIdGenerator(startValue uint32) *IdGenerator {
	gen := &IdGenerator{}
	gen.id.Store(startValue)
	return gen
}

// Id returns the next ID.
func (l *IdGenerator) Id() uint32 {
	return l.id.Add(1)
}
