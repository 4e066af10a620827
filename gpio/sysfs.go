package gpio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/cyberinferno/rftool/safeset"
)

// DefaultSysfsRoot is the kernel GPIO class directory.
const DefaultSysfsRoot = "/sys/class/gpio"

// Sysfs drives lines through the legacy sysfs interface. Pin numbers are
// offsets from the GPIO chip base.
type Sysfs struct {
	root     string
	base     int
	pins     map[int]Pin
	exported *safeset.SafeSet[int]
	ready    atomic.Bool
}

// NewSysfs creates a sysfs controller.
//
// Parameters:
//   - root: The gpio class directory, normally DefaultSysfsRoot
//   - base: First line number of the GPIO chip
//   - pins: Lines to export and configure on Init
//
// Returns:
//   - The controller, or an error for an invalid pin list
func NewSysfs(root string, base int, pins []Pin) (*Sysfs, error) {
	idx, err := indexPins(pins)
	if err != nil {
		return nil, err
	}

	if root == "" {
		root = DefaultSysfsRoot
	}

	return &Sysfs{
		root:     root,
		base:     base,
		pins:     idx,
		exported: safeset.NewSafeSet[int](),
	}, nil
}

// Init exports every configured line that is not exported yet and sets its
// direction. Lines exported by Init are unexported again if a later line
// fails.
func (s *Sysfs) Init() error {
	for _, p := range s.pins {
		if err := s.setup(p); err != nil {
			_ = s.Deinit()
			return fmt.Errorf("gpio %d: %w", p.Number, err)
		}
	}

	s.ready.Store(true)
	return nil
}

func (s *Sysfs) setup(p Pin) error {
	line := s.base + p.Number
	dir := s.lineDir(line)

	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		if err := s.write(filepath.Join(s.root, "export"), strconv.Itoa(line)); err != nil {
			return fmt.Errorf("export: %w", err)
		}
		s.exported.Add(line)

		if _, err := os.Stat(dir); err != nil {
			return fmt.Errorf("line %d not available after export: %w", line, err)
		}
	}

	return s.write(filepath.Join(dir, "direction"), string(p.Direction))
}

// Deinit unexports the lines exported by Init. It is safe to call more than
// once.
func (s *Sysfs) Deinit() error {
	s.ready.Store(false)

	var errs []error
	for _, line := range s.exported.Values() {
		if err := s.write(filepath.Join(s.root, "unexport"), strconv.Itoa(line)); err != nil {
			errs = append(errs, fmt.Errorf("unexport %d: %w", line, err))
			continue
		}
		s.exported.Remove(line)
	}

	return errors.Join(errs...)
}

// Get implements Controller.
func (s *Sysfs) Get(pin int) (int, error) {
	p, err := s.lookup(pin)
	if err != nil {
		return 0, err
	}

	raw, err := os.ReadFile(filepath.Join(s.lineDir(s.base+p.Number), "value"))
	if err != nil {
		return 0, err
	}

	return strconv.Atoi(strings.TrimSpace(string(raw)))
}

// Set implements Controller.
func (s *Sysfs) Set(pin, value int) error {
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

	return s.write(filepath.Join(s.lineDir(s.base+p.Number), "value"), strconv.Itoa(value))
}

func (s *Sysfs) lookup(pin int) (Pin, error) {
	if !s.ready.Load() {
		return Pin{}, ErrNotReady
	}

	p, ok := s.pins[pin]
	if !ok {
		return Pin{}, fmt.Errorf("%w: %d", ErrUnknownPin, pin)
	}

	return p, nil
}

func (s *Sysfs) lineDir(line int) string {
	return filepath.Join(s.root, "gpio"+strconv.Itoa(line))
}

func (s *Sysfs) write(path, value string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}

	if _, err := f.WriteString(value); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}
