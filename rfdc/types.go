// Package rfdc models the RF data converter configuration surface used by the
// command channel and the startup default pass: tiles of ADC and DAC blocks,
// mixer, decimation/interpolation and datapath settings, clock distribution
// and the board clock chip.
package rfdc

import (
	"errors"
	"fmt"
)

// Kind selects the converter type of a tile. The numeric values are the ones
// clients send on the command channel.
type Kind uint32

const (
	ADC Kind = 0
	DAC Kind = 1
)

// String returns "adc" or "dac".
func (k Kind) String() string {
	switch k {
	case ADC:
		return "adc"
	case DAC:
		return "dac"
	default:
		return fmt.Sprintf("kind(%d)", uint32(k))
	}
}

// ParseKind validates a raw converter type.
func ParseKind(v uint32) (Kind, error) {
	k := Kind(v)
	if k != ADC && k != DAC {
		return 0, fmt.Errorf("%w: %d", ErrInvalidKind, v)
	}

	return k, nil
}

// MaxTiles is the number of tiles per converter kind.
const MaxTiles = 4

// Mixer types.
const (
	MixerTypeCoarse uint32 = 1
	MixerTypeFine   uint32 = 2
	MixerTypeOff    uint32 = 3
)

// Mixer modes.
const (
	MixerModeOff uint32 = 0
	MixerModeC2C uint32 = 1
	MixerModeC2R uint32 = 2
	MixerModeR2C uint32 = 3
	MixerModeR2R uint32 = 4
)

// Coarse mixer frequencies.
const (
	CoarseMixOff                 uint32 = 0x0
	CoarseMixSampleFreqByTwo     uint32 = 0x2
	CoarseMixSampleFreqByFour    uint32 = 0x4
	CoarseMixMinSampleFreqByFour uint32 = 0x8
	CoarseMixBypass              uint32 = 0x10
)

// Event sources.
const (
	EventSourceImmediate uint32 = 0
	EventSourceSlice     uint32 = 1
	EventSourceTile      uint32 = 2
	EventSourceSysref    uint32 = 3
	EventSourceMarker    uint32 = 4
	EventSourcePL        uint32 = 5
)

// Update events.
const (
	EventMixer       uint32 = 1
	EventCoarseDelay uint32 = 2
	EventQMC         uint32 = 4
)

// DAC datapath modes.
const (
	DataPathModeDUC0FsDivTwo      uint32 = 1
	DataPathModeDUC0FsDivFour     uint32 = 2
	DataPathModeFsDivFourFsDivTwo uint32 = 3
	DataPathModeNoDUC0FsDivTwo    uint32 = 4
)

// Distributed clock outputs.
const (
	DistOutNone uint32 = 0
	DistOutRX   uint32 = 1
)

var validFactors = map[uint32]bool{
	1: true, 2: true, 3: true, 4: true, 5: true, 6: true, 8: true,
	10: true, 12: true, 16: true, 20: true, 24: true, 40: true,
}

var (
	ErrInvalidKind     = errors.New("invalid converter type")
	ErrInvalidTile     = errors.New("invalid tile")
	ErrInvalidBlock    = errors.New("invalid block")
	ErrInvalidFactor   = errors.New("invalid decimation/interpolation factor")
	ErrInvalidMode     = errors.New("invalid datapath mode")
	ErrInvalidMixer    = errors.New("invalid mixer settings")
	ErrInvalidEvent    = errors.New("invalid update event")
	ErrClockNotPresent = errors.New("clock chip not present")
	ErrInjected        = errors.New("injected failure")
)

// MixerSettings is the mixer configuration of one block.
type MixerSettings struct {
	Type        uint32  `json:"type"`
	Mode        uint32  `json:"mode"`
	CoarseFreq  uint32  `json:"coarse_freq"`
	FreqMHz     float64 `json:"freq_mhz"`
	Phase       float64 `json:"phase"`
	EventSource uint32  `json:"event_source"`
}

// Validate checks the enumerated fields of m.
func (m MixerSettings) Validate() error {
	if m.Type < MixerTypeCoarse || m.Type > MixerTypeOff {
		return fmt.Errorf("%w: type %d", ErrInvalidMixer, m.Type)
	}
	if m.Mode > MixerModeR2R {
		return fmt.Errorf("%w: mode %d", ErrInvalidMixer, m.Mode)
	}
	switch m.CoarseFreq {
	case CoarseMixOff, CoarseMixSampleFreqByTwo, CoarseMixSampleFreqByFour, CoarseMixMinSampleFreqByFour, CoarseMixBypass:
	default:
		return fmt.Errorf("%w: coarse frequency %#x", ErrInvalidMixer, m.CoarseFreq)
	}
	if m.EventSource > EventSourcePL {
		return fmt.Errorf("%w: event source %d", ErrInvalidMixer, m.EventSource)
	}

	return nil
}

// TileDistribution is the clocking of one tile.
type TileDistribution struct {
	SourceTile       uint32
	PLLEnable        bool
	RefClkFreq       float64
	SampleRate       float64
	DivisionFactor   uint32
	DistributedClock uint32
}

// DistributionSettings is the clock distribution of every tile.
type DistributionSettings struct {
	DAC [MaxTiles]TileDistribution
	ADC [MaxTiles]TileDistribution
}
