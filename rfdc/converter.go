package rfdc

import "context"

// Converter is the configuration interface of the RF data converter. Every
// operation reports failure through its error; callers translate errors into
// command statuses or startup report entries.
type Converter interface {
	// SetClkDistribution programs the clock distribution of all tiles.
	SetClkDistribution(ctx context.Context, settings DistributionSettings) error

	// GetMixerSettings returns the mixer configuration of a block.
	GetMixerSettings(ctx context.Context, kind Kind, tile, block uint32) (MixerSettings, error)

	// SetMixerSettings replaces the mixer configuration of a block. The new
	// settings take effect after the matching UpdateEvent when the event
	// source requires it.
	SetMixerSettings(ctx context.Context, kind Kind, tile, block uint32, settings MixerSettings) error

	// UpdateEvent triggers an update event on a block.
	UpdateEvent(ctx context.Context, kind Kind, tile, block, event uint32) error

	SetDecimationFactor(ctx context.Context, tile, block, factor uint32) error
	GetDecimationFactor(ctx context.Context, tile, block uint32) (uint32, error)

	SetInterpolationFactor(ctx context.Context, tile, block, factor uint32) error
	GetInterpolationFactor(ctx context.Context, tile, block uint32) (uint32, error)

	SetDataPathMode(ctx context.Context, tile, block, mode uint32) error
	GetDataPathMode(ctx context.Context, tile, block uint32) (uint32, error)

	// SetMMCM reprograms the fabric clock manager of a tile to match its
	// current sample rate.
	SetMMCM(ctx context.Context, kind Kind, tile uint32) error

	// NumBlocks returns the number of enabled blocks of a tile.
	NumBlocks(kind Kind, tile uint32) (int, error)
}

// Op names a Converter operation. Startup report entries and simulator
// failure injection refer to operations by name.
type Op string

const (
	OpSetClkDistribution     Op = "SetClkDistribution"
	OpGetMixerSettings       Op = "GetMixerSettings"
	OpSetMixerSettings       Op = "SetMixerSettings"
	OpUpdateEvent            Op = "UpdateEvent"
	OpSetDecimationFactor    Op = "SetDecimationFactor"
	OpGetDecimationFactor    Op = "GetDecimationFactor"
	OpSetInterpolationFactor Op = "SetInterpolationFactor"
	OpGetInterpolationFactor Op = "GetInterpolationFactor"
	OpSetDataPathMode        Op = "SetDataPathMode"
	OpGetDataPathMode        Op = "GetDataPathMode"
	OpSetMMCM                Op = "SetMMCM"
	OpClockInit              Op = "ClockInit"
	OpClockConfig            Op = "ClockConfig"
)
