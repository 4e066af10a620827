package rfdc

import (
	"context"
	"fmt"
	"sync"

	"github.com/cyberinferno/rftool/safemap"
	"github.com/cyberinferno/rftool/safeset"
)

// Power-on values of a simulated block.
const (
	powerOnFactor       uint32 = 8
	powerOnDataPathMode        = DataPathModeDUC0FsDivTwo
)

type blockKey struct {
	kind  Kind
	tile  uint32
	block uint32
}

type tileKey struct {
	kind Kind
	tile uint32
}

type blockState struct {
	mixer         MixerSettings
	mixerPending  bool
	decimation    uint32
	interpolation uint32
	dataPathMode  uint32
}

// Simulator is an in-memory Converter laid out like a real board. It is used
// on hosts without converter hardware and in tests.
type Simulator struct {
	board   Board
	blocks  *safemap.SafeMap[blockKey, blockState]
	mmcm    *safemap.SafeMap[tileKey, int]
	failing *safeset.SafeSet[Op]

	mu           sync.Mutex
	distribution DistributionSettings
	distributed  bool
}

// NewSimulator creates a simulated converter for board with every block at
// its power-on configuration.
func NewSimulator(board Board) *Simulator {
	s := &Simulator{
		board:   board,
		blocks:  safemap.NewSafeMap[blockKey, blockState](),
		mmcm:    safemap.NewSafeMap[tileKey, int](),
		failing: safeset.NewSafeSet[Op](),
	}

	for _, kind := range []Kind{ADC, DAC} {
		for tile := uint32(0); tile < MaxTiles; tile++ {
			for block := 0; block < s.physicalBlocks(kind); block++ {
				s.blocks.Store(blockKey{kind, tile, uint32(block)}, blockState{
					mixer: MixerSettings{
						Type:        MixerTypeOff,
						Mode:        MixerModeOff,
						CoarseFreq:  CoarseMixOff,
						EventSource: EventSourceImmediate,
					},
					decimation:    powerOnFactor,
					interpolation: powerOnFactor,
					dataPathMode:  powerOnDataPathMode,
				})
			}
		}
	}

	return s
}

// FailOn makes every later call of op fail with ErrInjected.
func (s *Simulator) FailOn(op Op) {
	s.failing.Add(op)
}

// Heal undoes FailOn for op.
func (s *Simulator) Heal(op Op) {
	s.failing.Remove(op)
}

// Distribution returns the last clock distribution and whether one was set.
func (s *Simulator) Distribution() (DistributionSettings, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.distribution, s.distributed
}

// MMCMUpdates returns how often SetMMCM succeeded for a tile.
func (s *Simulator) MMCMUpdates(kind Kind, tile uint32) int {
	n, _ := s.mmcm.Load(tileKey{kind, tile})
	return n
}

// MixerPending reports whether a block has mixer settings waiting for an
// update event.
func (s *Simulator) MixerPending(kind Kind, tile, block uint32) bool {
	st, _ := s.blocks.Load(blockKey{kind, tile, block})
	return st.mixerPending
}

// SetClkDistribution implements Converter.
func (s *Simulator) SetClkDistribution(_ context.Context, settings DistributionSettings) error {
	if err := s.injected(OpSetClkDistribution); err != nil {
		return err
	}

	for tile := range MaxTiles {
		for _, d := range []TileDistribution{settings.ADC[tile], settings.DAC[tile]} {
			if d.DivisionFactor == 0 || d.SampleRate <= 0 || (d.PLLEnable && d.RefClkFreq <= 0) {
				return fmt.Errorf("tile %d: invalid clock distribution", tile)
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.distribution = settings
	s.distributed = true
	return nil
}

// GetMixerSettings implements Converter.
func (s *Simulator) GetMixerSettings(_ context.Context, kind Kind, tile, block uint32) (MixerSettings, error) {
	if err := s.injected(OpGetMixerSettings); err != nil {
		return MixerSettings{}, err
	}

	st, err := s.block(kind, tile, block)
	if err != nil {
		return MixerSettings{}, err
	}

	return st.mixer, nil
}

// SetMixerSettings implements Converter. Settings with an event source other
// than immediate stay pending until UpdateEvent(EventMixer).
func (s *Simulator) SetMixerSettings(_ context.Context, kind Kind, tile, block uint32, settings MixerSettings) error {
	if err := s.injected(OpSetMixerSettings); err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	return s.update(kind, tile, block, func(st blockState) blockState {
		st.mixer = settings
		st.mixerPending = settings.EventSource != EventSourceImmediate
		return st
	})
}

// UpdateEvent implements Converter.
func (s *Simulator) UpdateEvent(_ context.Context, kind Kind, tile, block, event uint32) error {
	if err := s.injected(OpUpdateEvent); err != nil {
		return err
	}

	switch event {
	case EventMixer, EventCoarseDelay, EventQMC:
	default:
		return fmt.Errorf("%w: %d", ErrInvalidEvent, event)
	}

	return s.update(kind, tile, block, func(st blockState) blockState {
		if event == EventMixer {
			st.mixerPending = false
		}
		return st
	})
}

// SetDecimationFactor implements Converter.
func (s *Simulator) SetDecimationFactor(_ context.Context, tile, block, factor uint32) error {
	if err := s.injected(OpSetDecimationFactor); err != nil {
		return err
	}
	if !validFactors[factor] {
		return fmt.Errorf("%w: %d", ErrInvalidFactor, factor)
	}

	return s.update(ADC, tile, block, func(st blockState) blockState {
		st.decimation = factor
		return st
	})
}

// GetDecimationFactor implements Converter.
func (s *Simulator) GetDecimationFactor(_ context.Context, tile, block uint32) (uint32, error) {
	if err := s.injected(OpGetDecimationFactor); err != nil {
		return 0, err
	}

	st, err := s.block(ADC, tile, block)
	return st.decimation, err
}

// SetInterpolationFactor implements Converter.
func (s *Simulator) SetInterpolationFactor(_ context.Context, tile, block, factor uint32) error {
	if err := s.injected(OpSetInterpolationFactor); err != nil {
		return err
	}
	if !validFactors[factor] {
		return fmt.Errorf("%w: %d", ErrInvalidFactor, factor)
	}

	return s.update(DAC, tile, block, func(st blockState) blockState {
		st.interpolation = factor
		return st
	})
}

// GetInterpolationFactor implements Converter.
func (s *Simulator) GetInterpolationFactor(_ context.Context, tile, block uint32) (uint32, error) {
	if err := s.injected(OpGetInterpolationFactor); err != nil {
		return 0, err
	}

	st, err := s.block(DAC, tile, block)
	return st.interpolation, err
}

// SetDataPathMode implements Converter.
func (s *Simulator) SetDataPathMode(_ context.Context, tile, block, mode uint32) error {
	if err := s.injected(OpSetDataPathMode); err != nil {
		return err
	}
	if mode < DataPathModeDUC0FsDivTwo || mode > DataPathModeNoDUC0FsDivTwo {
		return fmt.Errorf("%w: %d", ErrInvalidMode, mode)
	}

	return s.update(DAC, tile, block, func(st blockState) blockState {
		st.dataPathMode = mode
		return st
	})
}

// GetDataPathMode implements Converter.
func (s *Simulator) GetDataPathMode(_ context.Context, tile, block uint32) (uint32, error) {
	if err := s.injected(OpGetDataPathMode); err != nil {
		return 0, err
	}

	st, err := s.block(DAC, tile, block)
	return st.dataPathMode, err
}

// SetMMCM implements Converter.
func (s *Simulator) SetMMCM(_ context.Context, kind Kind, tile uint32) error {
	if err := s.injected(OpSetMMCM); err != nil {
		return err
	}
	if _, err := ParseKind(uint32(kind)); err != nil {
		return err
	}
	if tile >= MaxTiles {
		return fmt.Errorf("%w: %d", ErrInvalidTile, tile)
	}

	s.mmcm.Update(tileKey{kind, tile}, func(n int, _ bool) int { return n + 1 })
	return nil
}

// NumBlocks implements Converter.
func (s *Simulator) NumBlocks(kind Kind, tile uint32) (int, error) {
	if _, err := ParseKind(uint32(kind)); err != nil {
		return 0, err
	}
	if tile >= MaxTiles {
		return 0, fmt.Errorf("%w: %d", ErrInvalidTile, tile)
	}

	n := s.physicalBlocks(kind)
	if kind == DAC && s.board.SkipOddDACBlocks {
		n /= 2
	}

	return n, nil
}

func (s *Simulator) physicalBlocks(kind Kind) int {
	if kind == ADC {
		return s.board.ADCBlocks
	}

	return s.board.DACBlocks
}

func (s *Simulator) injected(op Op) error {
	if s.failing.Contains(op) {
		return fmt.Errorf("%s: %w", op, ErrInjected)
	}

	return nil
}

func (s *Simulator) check(kind Kind, tile, block uint32) error {
	if _, err := ParseKind(uint32(kind)); err != nil {
		return err
	}
	if tile >= MaxTiles {
		return fmt.Errorf("%w: %d", ErrInvalidTile, tile)
	}
	if int(block) >= s.physicalBlocks(kind) {
		return fmt.Errorf("%w: %s tile %d block %d", ErrInvalidBlock, kind, tile, block)
	}
	if kind == DAC && s.board.SkipOddDACBlocks && block%2 == 1 {
		return fmt.Errorf("%w: %s tile %d block %d is disabled", ErrInvalidBlock, kind, tile, block)
	}

	return nil
}

func (s *Simulator) block(kind Kind, tile, block uint32) (blockState, error) {
	if err := s.check(kind, tile, block); err != nil {
		return blockState{}, err
	}

	st, _ := s.blocks.Load(blockKey{kind, tile, block})
	return st, nil
}

func (s *Simulator) update(kind Kind, tile, block uint32, fn func(blockState) blockState) error {
	if err := s.check(kind, tile, block); err != nil {
		return err
	}

	s.blocks.Update(blockKey{kind, tile, block}, func(st blockState, _ bool) blockState {
		return fn(st)
	})
	return nil
}
