// Package perfmonitor measures elapsed time and byte throughput of the data
// path. The byte counter may be advanced from the worker goroutine while
// another goroutine reads it.
package perfmonitor

import (
	"sync"
	"sync/atomic"
	"time"
)

// PerformanceMonitor records a start and stop time and the number of bytes
// moved in between.
type PerformanceMonitor struct {
	mu        sync.Mutex
	startTime time.Time
	endTime   time.Time
	bytes     atomic.Uint64
}

// NewPerformanceMonitor returns a monitor with no measurement in progress.
func NewPerformanceMonitor() *PerformanceMonitor {
	return &PerformanceMonitor{}
}

// Start records the start time, overwriting a previous one, and clears the
// stop time.
func (p *PerformanceMonitor) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.startTime = time.Now()
	p.endTime = time.Time{}
}

// Stop records the stop time. It has no effect if Start was not called.
func (p *PerformanceMonitor) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startTime.IsZero() {
		return
	}

	p.endTime = time.Now()
}

// Reset clears both times and the byte counter.
func (p *PerformanceMonitor) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.startTime = time.Time{}
	p.endTime = time.Time{}
	p.bytes.Store(0)
}

// Add counts n transferred bytes. Non-positive values are ignored.
func (p *PerformanceMonitor) Add(n int) {
	if n > 0 {
		p.bytes.Add(uint64(n))
	}
}

// Bytes returns the number of bytes counted since the last Reset.
func (p *PerformanceMonitor) Bytes() uint64 {
	return p.bytes.Load()
}

// Elapsed returns the time between Start and Stop, or zero if either is
// missing.
func (p *PerformanceMonitor) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startTime.IsZero() || p.endTime.IsZero() {
		return 0
	}

	return p.endTime.Sub(p.startTime)
}

// ElapsedMilliseconds returns Elapsed in fractional milliseconds.
func (p *PerformanceMonitor) ElapsedMilliseconds() float64 {
	return float64(p.Elapsed()) / float64(time.Millisecond)
}

// MegabytesPerSecond returns the average throughput over the measured interval
// in units of 10^6 bytes per second, or zero when nothing has been measured.
func (p *PerformanceMonitor) MegabytesPerSecond() float64 {
	elapsed := p.Elapsed()
	if elapsed <= 0 {
		return 0
	}

	return float64(p.Bytes()) / 1e6 / elapsed.Seconds()
}
