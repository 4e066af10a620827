package rfdc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	k, err := ParseKind(0)
	require.NoError(t, err)
	assert.Equal(t, ADC, k)

	k, err = ParseKind(1)
	require.NoError(t, err)
	assert.Equal(t, DAC, k)

	_, err = ParseKind(2)
	assert.ErrorIs(t, err, ErrInvalidKind)

	assert.Equal(t, "adc", ADC.String())
	assert.Equal(t, "dac", DAC.String())
	assert.Equal(t, "kind(7)", Kind(7).String())
}

func TestBoardByName(t *testing.T) {
	b, err := BoardByName("zcu208")
	require.NoError(t, err)
	assert.Equal(t, ZCU208, b)

	_, err = BoardByName("zcu102")
	assert.Error(t, err)
}

func TestSimulator_Mixer(t *testing.T) {
	ctx := context.Background()
	sim := NewSimulator(ZCU216)

	t.Run("power-on settings", func(t *testing.T) {
		m, err := sim.GetMixerSettings(ctx, ADC, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, MixerTypeOff, m.Type)
	})

	t.Run("immediate settings apply at once", func(t *testing.T) {
		want := MixerSettings{Type: MixerTypeFine, Mode: MixerModeR2C, CoarseFreq: CoarseMixOff, FreqMHz: 1200.5, Phase: 45}
		require.NoError(t, sim.SetMixerSettings(ctx, ADC, 1, 2, want))

		got, err := sim.GetMixerSettings(ctx, ADC, 1, 2)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.False(t, sim.MixerPending(ADC, 1, 2))
	})

	t.Run("tile event source waits for update event", func(t *testing.T) {
		m := MixerSettings{Type: MixerTypeCoarse, Mode: MixerModeR2R, CoarseFreq: CoarseMixBypass, EventSource: EventSourceTile}
		require.NoError(t, sim.SetMixerSettings(ctx, DAC, 0, 0, m))
		assert.True(t, sim.MixerPending(DAC, 0, 0))

		require.NoError(t, sim.UpdateEvent(ctx, DAC, 0, 0, EventMixer))
		assert.False(t, sim.MixerPending(DAC, 0, 0))
	})

	t.Run("invalid settings are rejected", func(t *testing.T) {
		err := sim.SetMixerSettings(ctx, ADC, 0, 0, MixerSettings{Type: 9})
		assert.ErrorIs(t, err, ErrInvalidMixer)

		err = sim.SetMixerSettings(ctx, ADC, 0, 0, MixerSettings{Type: MixerTypeCoarse, CoarseFreq: 0x3})
		assert.ErrorIs(t, err, ErrInvalidMixer)
	})

	t.Run("invalid addressing", func(t *testing.T) {
		_, err := sim.GetMixerSettings(ctx, ADC, MaxTiles, 0)
		assert.ErrorIs(t, err, ErrInvalidTile)

		_, err = sim.GetMixerSettings(ctx, DAC, 0, 4)
		assert.ErrorIs(t, err, ErrInvalidBlock)

		_, err = sim.GetMixerSettings(ctx, Kind(3), 0, 0)
		assert.ErrorIs(t, err, ErrInvalidKind)
	})

	t.Run("invalid event", func(t *testing.T) {
		assert.ErrorIs(t, sim.UpdateEvent(ctx, DAC, 0, 0, 3), ErrInvalidEvent)
	})
}

func TestSimulator_FactorsAndModes(t *testing.T) {
	ctx := context.Background()
	sim := NewSimulator(ZCU216)

	t.Run("decimation round trip", func(t *testing.T) {
		require.NoError(t, sim.SetDecimationFactor(ctx, 2, 3, 4))
		f, err := sim.GetDecimationFactor(ctx, 2, 3)
		require.NoError(t, err)
		assert.Equal(t, uint32(4), f)
	})

	t.Run("interpolation round trip", func(t *testing.T) {
		require.NoError(t, sim.SetInterpolationFactor(ctx, 1, 0, 40))
		f, err := sim.GetInterpolationFactor(ctx, 1, 0)
		require.NoError(t, err)
		assert.Equal(t, uint32(40), f)
	})

	t.Run("unsupported factors", func(t *testing.T) {
		assert.ErrorIs(t, sim.SetDecimationFactor(ctx, 0, 0, 7), ErrInvalidFactor)
		assert.ErrorIs(t, sim.SetInterpolationFactor(ctx, 0, 0, 0), ErrInvalidFactor)
	})

	t.Run("datapath mode", func(t *testing.T) {
		m, err := sim.GetDataPathMode(ctx, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, DataPathModeDUC0FsDivTwo, m)

		require.NoError(t, sim.SetDataPathMode(ctx, 0, 0, DataPathModeNoDUC0FsDivTwo))
		m, err = sim.GetDataPathMode(ctx, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, DataPathModeNoDUC0FsDivTwo, m)

		assert.ErrorIs(t, sim.SetDataPathMode(ctx, 0, 0, 0), ErrInvalidMode)
		assert.ErrorIs(t, sim.SetDataPathMode(ctx, 0, 0, 5), ErrInvalidMode)
	})
}

func TestSimulator_OddDACBlocks(t *testing.T) {
	ctx := context.Background()
	sim := NewSimulator(ZCU208)

	n, err := sim.NumBlocks(DAC, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = sim.NumBlocks(ADC, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = sim.GetInterpolationFactor(ctx, 0, 2)
	assert.NoError(t, err)

	_, err = sim.GetInterpolationFactor(ctx, 0, 1)
	assert.ErrorIs(t, err, ErrInvalidBlock)
}

func TestSimulator_MMCMAndDistribution(t *testing.T) {
	ctx := context.Background()
	sim := NewSimulator(ZCU216)

	require.NoError(t, sim.SetMMCM(ctx, DAC, 3))
	require.NoError(t, sim.SetMMCM(ctx, DAC, 3))
	assert.Equal(t, 2, sim.MMCMUpdates(DAC, 3))
	assert.Zero(t, sim.MMCMUpdates(ADC, 3))
	assert.ErrorIs(t, sim.SetMMCM(ctx, ADC, 4), ErrInvalidTile)

	_, set := sim.Distribution()
	assert.False(t, set)

	require.NoError(t, sim.SetClkDistribution(ctx, DefaultDistribution(ZCU216)))
	d, set := sim.Distribution()
	assert.True(t, set)
	assert.Equal(t, DistOutRX, d.DAC[2].DistributedClock)

	assert.Error(t, sim.SetClkDistribution(ctx, DistributionSettings{}))
}

func TestSimulator_FailOn(t *testing.T) {
	ctx := context.Background()
	sim := NewSimulator(ZCU216)

	sim.FailOn(OpSetDecimationFactor)
	err := sim.SetDecimationFactor(ctx, 0, 0, 2)
	assert.ErrorIs(t, err, ErrInjected)

	f, err := sim.GetDecimationFactor(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, powerOnFactor, f)

	sim.Heal(OpSetDecimationFactor)
	assert.NoError(t, sim.SetDecimationFactor(ctx, 0, 0, 2))
}
