package gpio

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/cyberinferno/rftool/safemap"
)

// Sim keeps line values in memory. Inputs can be driven from tests with
// Drive.
type Sim struct {
	pins   map[int]Pin
	values *safemap.SafeMap[int, int]
	ready  atomic.Bool

	// FailInit makes Init fail, for startup tests.
	FailInit bool
}

// NewSim creates a simulated controller for pins.
func NewSim(pins []Pin) (*Sim, error) {
	idx, err := indexPins(pins)
	if err != nil {
		return nil, err
	}

	return &Sim{pins: idx, values: safemap.NewSafeMap[int, int]()}, nil
}

// Init implements Controller. Every line starts low.
func (s *Sim) Init() error {
	if s.FailInit {
		return errors.New("simulated gpio init failure")
	}

	for n := range s.pins {
		s.values.Store(n, 0)
	}

	s.ready.Store(true)
	return nil
}

// Deinit implements Controller.
func (s *Sim) Deinit() error {
	s.ready.Store(false)
	return nil
}

// Get implements Controller.
func (s *Sim) Get(pin int) (int, error) {
	if _, err := s.lookup(pin); err != nil {
		return 0, err
	}

	v, _ := s.values.Load(pin)
	return v, nil
}

// Set implements Controller.
func (s *Sim) Set(pin, value int) error {
	p, err := s.lookup(pin)
	if err != nil {
		return err
	}
	if p.Direction != Out {
		return fmt.Errorf("%w: %d", ErrInputPin, pin)
	}
	if err := checkValue(value); err != nil {
		return err
	}

	s.values.Store(pin, value)
	return nil
}

// Drive sets the level of any configured line, including inputs.
func (s *Sim) Drive(pin, value int) error {
	if _, ok := s.pins[pin]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownPin, pin)
	}
	if err := checkValue(value); err != nil {
		return err
	}

	s.values.Store(pin, value)
	return nil
}

func (s *Sim) lookup(pin int) (Pin, error) {
	if !s.ready.Load() {
		return Pin{}, ErrNotReady
	}

	p, ok := s.pins[pin]
	if !ok {
		return Pin{}, fmt.Errorf("%w: %d", ErrUnknownPin, pin)
	}

	return p, nil
}
