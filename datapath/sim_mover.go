package datapath

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"time"
)

// SimConfig describes the synthetic test tone.
type SimConfig struct {
	// FrameSamples is the number of I/Q pairs per frame.
	FrameSamples int
	SampleRateHz float64
	ToneHz       float64
	// Amplitude is the peak value of each component, at most 32767.
	Amplitude float64
	// FrameInterval paces frames; zero sends as fast as the channel accepts.
	FrameInterval time.Duration
	// MaxWait bounds a single Move spent waiting for the next frame, so the
	// worker sees its running flag at least this often. DefaultPollInterval
	// if zero.
	MaxWait time.Duration
}

// DefaultSimConfig is a 10 MHz tone at a 245.76 MS/s sample rate.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		FrameSamples: 1024,
		SampleRateHz: 245.76e6,
		ToneHz:       10e6,
		Amplitude:    8191,
	}
}

// SimMover produces frames of interleaved little-endian int16 I/Q samples of
// a complex tone. A frame that was only partly written when the channel
// deadline passed is resumed by the next Move.
type SimMover struct {
	cfg     SimConfig
	frame   []byte
	pending []byte
	phase   uint32
	tuning  uint32
	next    time.Time
}

// NewSimMover validates cfg and returns a mover.
func NewSimMover(cfg SimConfig) (*SimMover, error) {
	if cfg.FrameSamples <= 0 {
		return nil, errors.New("frame samples must be positive")
	}
	if cfg.SampleRateHz <= 0 || cfg.ToneHz < 0 || cfg.ToneHz >= cfg.SampleRateHz {
		return nil, errors.New("tone must be below the sample rate")
	}
	if cfg.Amplitude <= 0 || cfg.Amplitude > math.MaxInt16 {
		return nil, errors.New("amplitude out of range")
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = DefaultPollInterval
	}

	return &SimMover{
		cfg:    cfg,
		frame:  make([]byte, cfg.FrameSamples*4),
		tuning: uint32(cfg.ToneHz / cfg.SampleRateHz * (1 << 32)),
	}, nil
}

// Start implements Mover. Each session starts at phase zero.
func (m *SimMover) Start() error {
	m.phase = 0
	m.pending = nil
	m.next = time.Time{}
	return nil
}

// Move implements Mover. When the next frame is not due within MaxWait it
// waits MaxWait and returns without writing.
func (m *SimMover) Move(ch io.ReadWriter) (int, error) {
	if len(m.pending) == 0 {
		if m.cfg.FrameInterval > 0 {
			if wait := time.Until(m.next); wait > 0 {
				if wait > m.cfg.MaxWait {
					time.Sleep(m.cfg.MaxWait)
					return 0, nil
				}
				time.Sleep(wait)
			}
			m.next = time.Now().Add(m.cfg.FrameInterval)
		}

		m.fill()
		m.pending = m.frame
	}

	n, err := ch.Write(m.pending)
	m.pending = m.pending[n:]
	return n, err
}

// Stop implements Mover.
func (m *SimMover) Stop() error {
	m.pending = nil
	return nil
}

// fill renders the next frame with a phase accumulator.
func (m *SimMover) fill() {
	const rad = 2 * math.Pi / (1 << 32)

	for s := range m.cfg.FrameSamples {
		angle := float64(m.phase) * rad
		i := int16(math.Round(m.cfg.Amplitude * math.Cos(angle)))
		q := int16(math.Round(m.cfg.Amplitude * math.Sin(angle)))

		binary.LittleEndian.PutUint16(m.frame[s*4:], uint16(i))
		binary.LittleEndian.PutUint16(m.frame[s*4+2:], uint16(q))
		m.phase += m.tuning
	}
}
