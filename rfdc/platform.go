package rfdc

import (
	"fmt"
	"sync/atomic"
)

// DefaultLMKConfig is the clock chip configuration loaded at startup.
const DefaultLMKConfig = 0

// Clock drives the board clock chip.
type Clock interface {
	// Init probes the clock chip through its control GPIO.
	Init(gpioID int) error

	// SetConfig loads one of the chip's predefined frequency plans.
	SetConfig(configID int) error
}

// Platform holds the process-wide hardware facts established at startup: the
// board, whether the clock chip answered, and its current configuration. It is
// safe for concurrent use.
type Platform struct {
	board        Board
	clock        Clock
	clockPresent atomic.Bool
	lmkConfig    atomic.Int32
}

// NewPlatform returns a Platform with no clock chip detected.
func NewPlatform(board Board, clock Clock) *Platform {
	p := &Platform{board: board, clock: clock}
	p.lmkConfig.Store(-1)
	return p
}

// Board returns the board profile.
func (p *Platform) Board() Board {
	return p.board
}

// ClockPresent reports whether the clock chip was initialized.
func (p *Platform) ClockPresent() bool {
	return p.clockPresent.Load()
}

// LMKConfig returns the active clock configuration id, or -1 if none.
func (p *Platform) LMKConfig() int {
	return int(p.lmkConfig.Load())
}

// InitClock probes the clock chip and loads DefaultLMKConfig. A failure leaves
// the platform without a clock; it is never fatal.
//
// Returns:
//   - nil on success, or the step that failed wrapped with its cause
func (p *Platform) InitClock() error {
	if p.clock == nil {
		return fmt.Errorf("%s: %w", OpClockInit, ErrClockNotPresent)
	}

	if err := p.clock.Init(p.board.ClockGPIO); err != nil {
		return fmt.Errorf("%s: %w", OpClockInit, err)
	}

	if err := p.clock.SetConfig(DefaultLMKConfig); err != nil {
		return fmt.Errorf("%s: %w", OpClockConfig, err)
	}

	p.lmkConfig.Store(DefaultLMKConfig)
	p.clockPresent.Store(true)
	return nil
}

// SetLMKConfig switches the clock chip to another frequency plan.
//
// Parameters:
//   - configID: Predefined configuration index
//
// Returns:
//   - ErrClockNotPresent if startup did not find the chip, or the chip error
func (p *Platform) SetLMKConfig(configID int) error {
	if !p.ClockPresent() {
		return ErrClockNotPresent
	}

	if err := p.clock.SetConfig(configID); err != nil {
		return fmt.Errorf("%s: %w", OpClockConfig, err)
	}

	p.lmkConfig.Store(int32(configID))
	return nil
}

// SimClock is a Clock for hosts without a clock chip. Absent makes Init fail;
// Configs bounds the valid configuration ids.
type SimClock struct {
	Absent  bool
	Configs int

	gpio   atomic.Int32
	config atomic.Int32
}

// NewSimClock returns a present clock with n configurations.
func NewSimClock(n int) *SimClock {
	return &SimClock{Configs: n}
}

// Init implements Clock.
func (c *SimClock) Init(gpioID int) error {
	if c.Absent {
		return fmt.Errorf("no clock chip on gpio %d", gpioID)
	}

	c.gpio.Store(int32(gpioID))
	return nil
}

// SetConfig implements Clock.
func (c *SimClock) SetConfig(configID int) error {
	if configID < 0 || configID >= c.Configs {
		return fmt.Errorf("unknown clock configuration %d", configID)
	}

	c.config.Store(int32(configID))
	return nil
}

// GPIO returns the line passed to the last successful Init.
func (c *SimClock) GPIO() int {
	return int(c.gpio.Load())
}
