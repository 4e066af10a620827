package rfdc

import (
	"context"
	"fmt"
	"strings"
)

// Startup defaults.
const (
	DefaultRefClkMHz           = 245.76
	DefaultDACSampleRateMHz    = 7864.32
	DefaultADCSampleRateMHz    = 4423.68
	DefaultDivisionFactor      = 1
	DefaultDecimationFactor    = 1
	DefaultInterpolationFactor = 1
	DefaultDataPathMode        = DataPathModeNoDUC0FsDivTwo
)

// StepResult is the outcome of one bring-up step. Tile and Block are -1 when
// the step is not specific to one.
type StepResult struct {
	Step  Op
	Kind  Kind
	Tile  int
	Block int
	Err   error
}

// String formats the step for logs.
func (r StepResult) String() string {
	var b strings.Builder
	b.WriteString(string(r.Step))
	if r.Tile >= 0 {
		fmt.Fprintf(&b, " %s tile %d", r.Kind, r.Tile)
	}
	if r.Block >= 0 {
		fmt.Fprintf(&b, " block %d", r.Block)
	}
	if r.Err != nil {
		fmt.Fprintf(&b, ": %v", r.Err)
	}

	return b.String()
}

// StartupReport lists bring-up steps in execution order.
type StartupReport struct {
	Steps []StepResult
}

// Add appends a step result.
func (r *StartupReport) Add(step StepResult) {
	r.Steps = append(r.Steps, step)
}

// Failures returns the steps that failed.
func (r StartupReport) Failures() []StepResult {
	var failed []StepResult
	for _, s := range r.Steps {
		if s.Err != nil {
			failed = append(failed, s)
		}
	}

	return failed
}

// OK reports whether every step succeeded.
func (r StartupReport) OK() bool {
	return len(r.Failures()) == 0
}

// DefaultDistribution returns the startup clock distribution for board.
func DefaultDistribution(board Board) DistributionSettings {
	var d DistributionSettings
	for tile := range MaxTiles {
		d.DAC[tile] = TileDistribution{
			SourceTile:     board.DACSourceTile,
			PLLEnable:      true,
			RefClkFreq:     DefaultRefClkMHz,
			SampleRate:     DefaultDACSampleRateMHz,
			DivisionFactor: DefaultDivisionFactor,
		}
		if uint32(tile) == board.DACDistTile {
			d.DAC[tile].DistributedClock = DistOutRX
		}

		d.ADC[tile] = TileDistribution{
			SourceTile:     board.ADCSourceTile,
			PLLEnable:      true,
			RefClkFreq:     DefaultRefClkMHz,
			SampleRate:     DefaultADCSampleRateMHz,
			DivisionFactor: DefaultDivisionFactor,
		}
		if uint32(tile) == board.ADCDistTile {
			d.ADC[tile].DistributedClock = DistOutRX
		}
	}

	return d
}

// defaultMixer rewrites the fields set at startup and keeps the rest of the
// block's current configuration.
func defaultMixer(m MixerSettings) MixerSettings {
	m.Type = MixerTypeCoarse
	m.CoarseFreq = CoarseMixBypass
	m.Mode = MixerModeR2R
	m.EventSource = EventSourceTile
	return m
}

// ApplyDefaults runs the startup configuration pass against conv. Every step
// is attempted even if earlier steps failed; the report records each outcome.
//
// Order: clock distribution, then per ADC block mixer, decimation and MMCM,
// then per DAC block mixer, mixer update event, interpolation, datapath mode
// and MMCM.
//
// Parameters:
//   - ctx: Context passed to every converter call
//   - conv: The converter to configure
//   - board: Board profile selecting distribution tiles and DAC block layout
//
// Returns:
//   - The ordered report of all steps
func ApplyDefaults(ctx context.Context, conv Converter, board Board) StartupReport {
	var report StartupReport

	report.Add(StepResult{
		Step:  OpSetClkDistribution,
		Tile:  -1,
		Block: -1,
		Err:   conv.SetClkDistribution(ctx, DefaultDistribution(board)),
	})

	for tile := uint32(0); tile < MaxTiles; tile++ {
		blocks, err := conv.NumBlocks(ADC, tile)
		if err != nil {
			report.Add(StepResult{Step: OpGetMixerSettings, Kind: ADC, Tile: int(tile), Block: -1, Err: err})
			continue
		}

		for block := uint32(0); block < uint32(blocks); block++ {
			rec := recorder(&report, ADC, tile, block)

			m, err := conv.GetMixerSettings(ctx, ADC, tile, block)
			rec(OpGetMixerSettings, err)
			rec(OpSetMixerSettings, conv.SetMixerSettings(ctx, ADC, tile, block, defaultMixer(m)))
			rec(OpSetDecimationFactor, conv.SetDecimationFactor(ctx, tile, block, DefaultDecimationFactor))
			rec(OpSetMMCM, conv.SetMMCM(ctx, ADC, tile))
		}
	}

	step := uint32(1)
	if board.SkipOddDACBlocks {
		step = 2
	}

	for tile := uint32(0); tile < MaxTiles; tile++ {
		blocks, err := conv.NumBlocks(DAC, tile)
		if err != nil {
			report.Add(StepResult{Step: OpGetMixerSettings, Kind: DAC, Tile: int(tile), Block: -1, Err: err})
			continue
		}

		for block := uint32(0); block < uint32(blocks)*step; block += step {
			rec := recorder(&report, DAC, tile, block)

			m, err := conv.GetMixerSettings(ctx, DAC, tile, block)
			rec(OpGetMixerSettings, err)
			rec(OpSetMixerSettings, conv.SetMixerSettings(ctx, DAC, tile, block, defaultMixer(m)))
			rec(OpUpdateEvent, conv.UpdateEvent(ctx, DAC, tile, block, EventMixer))
			rec(OpSetInterpolationFactor, conv.SetInterpolationFactor(ctx, tile, block, DefaultInterpolationFactor))
			rec(OpSetDataPathMode, conv.SetDataPathMode(ctx, tile, block, DefaultDataPathMode))
			rec(OpSetMMCM, conv.SetMMCM(ctx, DAC, tile))
		}
	}

	return report
}

func recorder(report *StartupReport, kind Kind, tile, block uint32) func(Op, error) {
	return func(op Op, err error) {
		report.Add(StepResult{Step: op, Kind: kind, Tile: int(tile), Block: int(block), Err: err})
	}
}
