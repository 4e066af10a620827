//go:build !linux

package datapath

import (
	"errors"
	"io"
	"time"
)

// DeviceMover is only available on linux.
type DeviceMover struct{}

// NewDeviceMover always fails outside linux.
func NewDeviceMover(path string, chunk int, wait time.Duration) (*DeviceMover, error) {
	return nil, errors.New("DMA device capture not supported on this platform")
}

func (m *DeviceMover) Start() error                       { return errors.New("not supported") }
func (m *DeviceMover) Move(ch io.ReadWriter) (int, error) { return 0, errors.New("not supported") }
func (m *DeviceMover) Stop() error                        { return nil }
