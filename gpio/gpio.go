// Package gpio controls the board GPIO lines exposed on the command channel.
package gpio

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownPin   = errors.New("unknown gpio pin")
	ErrInvalidValue = errors.New("gpio value must be 0 or 1")
	ErrInputPin     = errors.New("gpio pin is an input")
	ErrNotReady     = errors.New("gpio controller not initialized")
)

// Direction of a line.
type Direction string

const (
	In  Direction = "in"
	Out Direction = "out"
)

// Pin is one configured line. Number is the index used on the command
// channel; the controller maps it to the hardware line.
type Pin struct {
	Number    int       `mapstructure:"number" yaml:"number" validate:"gte=0"`
	Direction Direction `mapstructure:"direction" yaml:"direction" validate:"oneof=in out"`
}

// Controller is the GPIO collaborator. Init and Deinit bracket the process
// lifetime; a failed Init is fatal to startup.
type Controller interface {
	Init() error
	Deinit() error
	Get(pin int) (int, error)
	Set(pin, value int) error
}

func checkValue(v int) error {
	if v != 0 && v != 1 {
		return fmt.Errorf("%w: %d", ErrInvalidValue, v)
	}

	return nil
}

func indexPins(pins []Pin) (map[int]Pin, error) {
	m := make(map[int]Pin, len(pins))
	for _, p := range pins {
		if p.Direction != In && p.Direction != Out {
			return nil, fmt.Errorf("pin %d: invalid direction %q", p.Number, p.Direction)
		}
		if _, dup := m[p.Number]; dup {
			return nil, fmt.Errorf("pin %d configured twice", p.Number)
		}
		m[p.Number] = p
	}

	return m, nil
}
