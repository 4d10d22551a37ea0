package psm

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ubxmodem/ubxmodem/internal/caps"
)

func TestEncodeEDRXCatM1PicksSmallestNotSmallerThanRequest(t *testing.T) {
	for seconds := 0; seconds <= 3000; seconds += 13 {
		value, err := EncodeEDRX(caps.RatCatM1, seconds)
		require.NoError(t, err)

		cycle, err := DecodeEDRX(caps.RatCatM1, value)
		require.NoError(t, err)

		if seconds > catM1EDRXSeconds[len(catM1EDRXSeconds)-1] {
			require.Equal(t, catM1EDRXSeconds[len(catM1EDRXSeconds)-1], cycle)
			continue
		}
		require.GreaterOrEqual(t, cycle, seconds)
		// No smaller table entry should also satisfy the request.
		for v, c := range catM1EDRXSeconds {
			if v == value || c < 0 {
				continue
			}
			if c >= seconds {
				require.GreaterOrEqual(t, c, cycle)
			}
		}
	}
}

func TestEncodeEDRXNB1SkipsReservedEntries(t *testing.T) {
	value, err := EncodeEDRX(caps.RatNB1, 15)
	require.NoError(t, err)
	cycle, err := DecodeEDRX(caps.RatNB1, value)
	require.NoError(t, err)
	require.GreaterOrEqual(t, cycle, 15)
}

func TestDecodeEDRXRejectsReservedValue(t *testing.T) {
	_, err := DecodeEDRX(caps.RatNB1, 0)
	require.Error(t, err)
}

func TestEncodeEDRXUnsupportedRAT(t *testing.T) {
	_, err := EncodeEDRX(caps.RatUTRAN, 10)
	require.Error(t, err)
}

func TestEncodeEDRXGPRSUsesFormula(t *testing.T) {
	value, err := EncodeEDRX(caps.RatGPRS, 0)
	require.NoError(t, err)
	require.Equal(t, 0, value)

	value, err = EncodeEDRX(caps.RatGPRS, 1000000)
	require.NoError(t, err)
	require.Equal(t, 15, value)
}

func TestDecodePagingTimeWindowEUTRAN(t *testing.T) {
	ms := DecodePagingTimeWindow(caps.RatCatM1, 0)
	require.Equal(t, 1280, ms)

	ms = DecodePagingTimeWindow(caps.RatNB1, 0)
	require.Equal(t, 2560, ms)
}

func TestDecodePagingTimeWindowPassesThroughForNonEUTRAN(t *testing.T) {
	require.Equal(t, 7, DecodePagingTimeWindow(caps.RatUTRAN, 7))
}
