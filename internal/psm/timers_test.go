package psm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestActiveTimeRoundTripNeverExceedsRequest(t *testing.T) {
	for seconds := 1; seconds <= 11160; seconds += 7 {
		bits := EncodeActiveTime(seconds)
		require.Len(t, bits, 8)

		got, ok, err := DecodeActiveTime(bits)
		require.NoError(t, err)
		require.True(t, ok)
		require.LessOrEqualf(t, got, seconds, "active time %d decoded to %d (bits %s)", seconds, got, bits)
	}
}

func TestActiveTimeZeroIsDeactivated(t *testing.T) {
	bits := EncodeActiveTime(0)
	_, ok, err := DecodeActiveTime(bits)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestActiveTimeExactForSmallValues(t *testing.T) {
	// Anything representable exactly by the finest (x2s) unit round-trips
	// without loss.
	for _, seconds := range []int{2, 4, 10, 60, 62} {
		bits := EncodeActiveTime(seconds)
		got, ok, err := DecodeActiveTime(bits)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, seconds, got)
	}
}

func TestPeriodicTAURoundTripNeverExceedsRequest(t *testing.T) {
	for _, ext := range []bool{false, true} {
		max := 31 * 36000
		if ext {
			max = 31 * 1152000
		}
		step := max / 500
		if step == 0 {
			step = 1
		}
		for seconds := 1; seconds <= max; seconds += step {
			bits := EncodePeriodicTAU(seconds, ext)
			got, ok, err := DecodePeriodicTAU(bits, ext)
			require.NoError(t, err)
			require.True(t, ok)
			require.LessOrEqualf(t, got, seconds, "periodic TAU %d (ext=%v) decoded to %d", seconds, ext, got)
		}
	}
}

func TestPeriodicTAUScenarioUsesSmallestFittingUnit(t *testing.T) {
	// 600 seconds doesn't fit the x2s unit's 31-count ceiling (300 > 31)
	// but does fit the x30s unit (count 20), matching the narrative in
	// the power-saving negotiation walkthrough.
	bits := EncodePeriodicTAU(600, true)
	got, ok, err := DecodePeriodicTAU(bits, true)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 600, got)
}

func TestDecodeTimerRejectsBadLength(t *testing.T) {
	_, _, err := DecodeActiveTime("101")
	require.Error(t, err)
}

func TestSaraR4PSMVersionOverrideForcesLowBits(t *testing.T) {
	require.Equal(t, 0b11000100, SaraR4PSMVersionOverride(0b11000111))
	require.Equal(t, 0b00000100, SaraR4PSMVersionOverride(0))
}
