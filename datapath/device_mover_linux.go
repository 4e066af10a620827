//go:build linux

package datapath

import (
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/sys/unix"
)

// DeviceMover forwards sample chunks read from a DMA character device such as
// /dev/xdma0_c2h_0.
type DeviceMover struct {
	path    string
	chunk   int
	wait    time.Duration
	fd      int
	buf     []byte
	pending []byte
}

// NewDeviceMover creates a mover for path. Each read requests up to chunk
// bytes; a read waits at most wait for the device to become readable.
func NewDeviceMover(path string, chunk int, wait time.Duration) (*DeviceMover, error) {
	if chunk <= 0 {
		return nil, errors.New("chunk size must be positive")
	}
	if wait <= 0 {
		wait = DefaultPollInterval
	}

	return &DeviceMover{path: path, chunk: chunk, wait: wait, fd: -1}, nil
}

// Start implements Mover.
func (m *DeviceMover) Start() error {
	fd, err := unix.Open(m.path, unix.O_RDONLY, 0)
	if err != nil {
		return fmt.Errorf("could not open device %s: %w", m.path, err)
	}

	m.fd = fd
	if m.buf == nil {
		m.buf = make([]byte, m.chunk)
	}
	m.pending = nil
	return nil
}

// Move implements Mover. When the device has no data within the wait time
// Move returns (0, nil) so the worker can re-check its flag.
func (m *DeviceMover) Move(ch io.ReadWriter) (int, error) {
	if m.fd < 0 {
		return 0, errors.New("device not open")
	}

	if len(m.pending) == 0 {
		ready, err := m.poll()
		if err != nil || !ready {
			return 0, err
		}

		n, err := m.read()
		if err != nil {
			return 0, err
		}
		m.pending = m.buf[:n]
	}

	n, err := ch.Write(m.pending)
	m.pending = m.pending[n:]
	return n, err
}

func (m *DeviceMover) poll() (bool, error) {
	fds := []unix.PollFd{{Fd: int32(m.fd), Events: unix.POLLIN}}
	for {
		n, err := unix.Poll(fds, int(m.wait/time.Millisecond))
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("poll %s: %w", m.path, err)
		}

		return n > 0, nil
	}
}

func (m *DeviceMover) read() (int, error) {
	for {
		n, err := unix.Read(m.fd, m.buf)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("read %s: %w", m.path, err)
		}
		if n == 0 {
			return 0, fmt.Errorf("read %s: %w", m.path, io.EOF)
		}

		return n, nil
	}
}

// Stop implements Mover.
func (m *DeviceMover) Stop() error {
	if m.fd < 0 {
		return nil
	}

	err := unix.Close(m.fd)
	m.fd = -1
	m.pending = nil
	return err
}
