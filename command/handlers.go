package command

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cyberinferno/rftool/gpio"
	"github.com/cyberinferno/rftool/memmap"
	"github.com/cyberinferno/rftool/rfdc"
	"github.com/cyberinferno/rftool/status"
	"github.com/cyberinferno/rftool/utils"
)

// Deps are the collaborators the built-in commands act on. A nil collaborator
// makes its commands fail with ExecutionError.
type Deps struct {
	Converter rfdc.Converter
	Platform  *rfdc.Platform
	GPIO      gpio.Controller
	Memory    memmap.Region
	// Startup returns the report of the startup default pass.
	Startup func() rfdc.StartupReport
	Version string
}

type builtins struct {
	Deps
}

// NewDefaultRegistry returns a registry holding the built-in command set.
//
// Parameters:
//   - deps: Collaborators used by the handlers
//
// Returns:
//   - The registry
func NewDefaultRegistry(deps Deps) *Registry {
	r := NewRegistry()
	b := builtins{Deps: deps}

	for _, cmd := range b.commands() {
		// names are unique and every handler is set
		_ = r.Register(cmd)
	}

	return r
}

func (b builtins) commands() []Command {
	u := Uint
	f := Float

	return []Command{
		{Name: "Disconnect", Raw: true, Handler: b.disconnect},
		{Name: "GetVersion", Handler: b.getVersion},
		{Name: "GetBoard", Handler: b.getBoard},
		{Name: "GetClockStatus", Handler: b.getClockStatus},
		{Name: "SetLMKConfig", Args: []ArgKind{u}, Handler: b.setLMKConfig},
		{Name: "GetMixerSettings", Args: []ArgKind{u, u, u}, Handler: b.getMixerSettings},
		{Name: "SetMixerSettings", Args: []ArgKind{u, u, u, u, u, u, f, f, u}, Handler: b.setMixerSettings},
		{Name: "UpdateEvent", Args: []ArgKind{u, u, u, u}, Handler: b.updateEvent},
		{Name: "SetDecimationFactor", Args: []ArgKind{u, u, u}, Handler: b.setDecimationFactor},
		{Name: "GetDecimationFactor", Args: []ArgKind{u, u}, Handler: b.getDecimationFactor},
		{Name: "SetInterpolationFactor", Args: []ArgKind{u, u, u}, Handler: b.setInterpolationFactor},
		{Name: "GetInterpolationFactor", Args: []ArgKind{u, u}, Handler: b.getInterpolationFactor},
		{Name: "SetDataPathMode", Args: []ArgKind{u, u, u}, Handler: b.setDataPathMode},
		{Name: "GetDataPathMode", Args: []ArgKind{u, u}, Handler: b.getDataPathMode},
		{Name: "SetMMCM", Args: []ArgKind{u, u}, Handler: b.setMMCM},
		{Name: "GetStartupReport", Handler: b.getStartupReport},
		{Name: "GpioGet", Args: []ArgKind{u}, Handler: b.gpioGet},
		{Name: "GpioSet", Args: []ArgKind{u, u}, Handler: b.gpioSet},
		{Name: "ReadReg", Args: []ArgKind{u}, Handler: b.readReg},
		{Name: "WriteReg", Args: []ArgKind{u, u}, Variadic: true, Handler: b.writeReg},
	}
}

func uintText(v uint32) string {
	return strconv.FormatUint(uint64(v), 10)
}

func floatText(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (b builtins) disconnect(context.Context, Args) ([]string, error) {
	return []string{status.DisconnectSentinel}, nil
}

func (b builtins) getVersion(context.Context, Args) ([]string, error) {
	return []string{b.Version}, nil
}

func (b builtins) getBoard(context.Context, Args) ([]string, error) {
	if b.Platform == nil {
		return nil, ErrUnavailable
	}
	return []string{b.Platform.Board().Name}, nil
}

func (b builtins) getClockStatus(context.Context, Args) ([]string, error) {
	if b.Platform == nil {
		return nil, ErrUnavailable
	}
	return []string{utils.BoolToDigit(b.Platform.ClockPresent()), strconv.Itoa(b.Platform.LMKConfig())}, nil
}

func (b builtins) setLMKConfig(_ context.Context, a Args) ([]string, error) {
	if b.Platform == nil {
		return nil, ErrUnavailable
	}
	return nil, b.Platform.SetLMKConfig(int(a.Uint(0)))
}

func (b builtins) converter() (rfdc.Converter, error) {
	if b.Converter == nil {
		return nil, ErrUnavailable
	}
	return b.Converter, nil
}

func (b builtins) getMixerSettings(ctx context.Context, a Args) ([]string, error) {
	conv, err := b.converter()
	if err != nil {
		return nil, err
	}
	kind, err := rfdc.ParseKind(a.Uint(0))
	if err != nil {
		return nil, err
	}

	m, err := conv.GetMixerSettings(ctx, kind, a.Uint(1), a.Uint(2))
	if err != nil {
		return nil, err
	}

	return []string{
		uintText(m.Type),
		uintText(m.Mode),
		uintText(m.CoarseFreq),
		floatText(m.FreqMHz),
		floatText(m.Phase),
		uintText(m.EventSource),
	}, nil
}

func (b builtins) setMixerSettings(ctx context.Context, a Args) ([]string, error) {
	conv, err := b.converter()
	if err != nil {
		return nil, err
	}
	kind, err := rfdc.ParseKind(a.Uint(0))
	if err != nil {
		return nil, err
	}

	m := rfdc.MixerSettings{
		Type:        a.Uint(3),
		Mode:        a.Uint(4),
		CoarseFreq:  a.Uint(5),
		FreqMHz:     a.Float(6),
		Phase:       a.Float(7),
		EventSource: a.Uint(8),
	}
	return nil, conv.SetMixerSettings(ctx, kind, a.Uint(1), a.Uint(2), m)
}

func (b builtins) updateEvent(ctx context.Context, a Args) ([]string, error) {
	conv, err := b.converter()
	if err != nil {
		return nil, err
	}
	kind, err := rfdc.ParseKind(a.Uint(0))
	if err != nil {
		return nil, err
	}
	return nil, conv.UpdateEvent(ctx, kind, a.Uint(1), a.Uint(2), a.Uint(3))
}

func (b builtins) setDecimationFactor(ctx context.Context, a Args) ([]string, error) {
	conv, err := b.converter()
	if err != nil {
		return nil, err
	}
	return nil, conv.SetDecimationFactor(ctx, a.Uint(0), a.Uint(1), a.Uint(2))
}

func (b builtins) getDecimationFactor(ctx context.Context, a Args) ([]string, error) {
	conv, err := b.converter()
	if err != nil {
		return nil, err
	}
	v, err := conv.GetDecimationFactor(ctx, a.Uint(0), a.Uint(1))
	if err != nil {
		return nil, err
	}
	return []string{uintText(v)}, nil
}

func (b builtins) setInterpolationFactor(ctx context.Context, a Args) ([]string, error) {
	conv, err := b.converter()
	if err != nil {
		return nil, err
	}
	return nil, conv.SetInterpolationFactor(ctx, a.Uint(0), a.Uint(1), a.Uint(2))
}

func (b builtins) getInterpolationFactor(ctx context.Context, a Args) ([]string, error) {
	conv, err := b.converter()
	if err != nil {
		return nil, err
	}
	v, err := conv.GetInterpolationFactor(ctx, a.Uint(0), a.Uint(1))
	if err != nil {
		return nil, err
	}
	return []string{uintText(v)}, nil
}

func (b builtins) setDataPathMode(ctx context.Context, a Args) ([]string, error) {
	conv, err := b.converter()
	if err != nil {
		return nil, err
	}
	return nil, conv.SetDataPathMode(ctx, a.Uint(0), a.Uint(1), a.Uint(2))
}

func (b builtins) getDataPathMode(ctx context.Context, a Args) ([]string, error) {
	conv, err := b.converter()
	if err != nil {
		return nil, err
	}
	v, err := conv.GetDataPathMode(ctx, a.Uint(0), a.Uint(1))
	if err != nil {
		return nil, err
	}
	return []string{uintText(v)}, nil
}

func (b builtins) setMMCM(ctx context.Context, a Args) ([]string, error) {
	conv, err := b.converter()
	if err != nil {
		return nil, err
	}
	kind, err := rfdc.ParseKind(a.Uint(0))
	if err != nil {
		return nil, err
	}
	return nil, conv.SetMMCM(ctx, kind, a.Uint(1))
}

// getStartupReport answers with the number of steps and of failed steps.
func (b builtins) getStartupReport(context.Context, Args) ([]string, error) {
	if b.Startup == nil {
		return nil, ErrUnavailable
	}
	report := b.Startup()
	return []string{strconv.Itoa(len(report.Steps)), strconv.Itoa(len(report.Failures()))}, nil
}

func (b builtins) gpioGet(_ context.Context, a Args) ([]string, error) {
	if b.GPIO == nil {
		return nil, ErrUnavailable
	}
	v, err := b.GPIO.Get(int(a.Uint(0)))
	if err != nil {
		return nil, err
	}
	return []string{strconv.Itoa(v)}, nil
}

func (b builtins) gpioSet(_ context.Context, a Args) ([]string, error) {
	if b.GPIO == nil {
		return nil, ErrUnavailable
	}
	return nil, b.GPIO.Set(int(a.Uint(0)), int(a.Uint(1)))
}

func (b builtins) readReg(_ context.Context, a Args) ([]string, error) {
	if b.Memory == nil {
		return nil, ErrUnavailable
	}
	v, err := b.Memory.Read32(a.Uint(0))
	if err != nil {
		return nil, err
	}
	return []string{fmt.Sprintf("0x%08x", v)}, nil
}

// writeReg stores the values at consecutive words starting at the offset.
// Every word is checked before the first write.
func (b builtins) writeReg(_ context.Context, a Args) ([]string, error) {
	if b.Memory == nil {
		return nil, ErrUnavailable
	}

	base := uint64(a.Uint(0))
	last := base + 4*uint64(a.Len()-2)
	if last+4 > uint64(b.Memory.Size()) {
		return nil, fmt.Errorf("%w: 0x%x", memmap.ErrOutOfRange, last)
	}

	for i := 1; i < a.Len(); i++ {
		if err := b.Memory.Write32(uint32(base)+uint32(4*(i-1)), a.Uint(i)); err != nil {
			return nil, err
		}
	}
	return nil, nil
}
