package psm

import (
	"fmt"

	"github.com/ubxmodem/ubxmodem/internal/caps"
)

// catM1EDRXSeconds is the 4-bit eDRX cycle-length table for Cat-M1,
// index is the encoded value (spec §4.4).
var catM1EDRXSeconds = []int{5, 10, 20, 41, 61, 82, 102, 122, 143, 164, 328, 655, 1310, 2621}

// nb1EDRXSeconds is the matching table for NB1; entries marked -1 are
// reserved / not applicable and are never selected by EncodeEDRX.
var nb1EDRXSeconds = []int{-1, -1, 20, 41, 20, 82, 20, 20, 20, 164, 328, 655, 1310, 2621, 5243, 10486}

func edrxTableFor(rat caps.RAT) ([]int, bool) {
	switch rat {
	case caps.RatCatM1:
		return catM1EDRXSeconds, true
	case caps.RatNB1:
		return nb1EDRXSeconds, true
	default:
		return nil, false
	}
}

// EncodeEDRX returns the 4-bit eDRX value for rat whose cycle length is
// the smallest table entry >= seconds, or the largest valid entry if
// seconds exceeds everything the table offers. For RatGPRS it uses the
// legacy formula instead of a table.
func EncodeEDRX(rat caps.RAT, seconds int) (int, error) {
	if rat == caps.RatGPRS {
		return edrxGPRSValue(seconds), nil
	}
	table, ok := edrxTableFor(rat)
	if !ok {
		return 0, fmt.Errorf("psm: rat %v has no eDRX table", rat)
	}

	best := -1
	bestSeconds := -1
	for value, cycle := range table {
		if cycle < 0 {
			continue
		}
		if cycle >= seconds && (bestSeconds == -1 || cycle < bestSeconds) {
			best, bestSeconds = value, cycle
		}
	}
	if best != -1 {
		return best, nil
	}
	// Every entry is smaller than requested: fall back to the largest
	// valid entry in the table.
	for value := len(table) - 1; value >= 0; value-- {
		if table[value] >= 0 {
			return value, nil
		}
	}
	return 0, fmt.Errorf("psm: rat %v eDRX table has no valid entries", rat)
}

// DecodeEDRX is the inverse of EncodeEDRX's table lookup (it does not
// invert the GPRS formula, which is lossy).
func DecodeEDRX(rat caps.RAT, value int) (int, error) {
	table, ok := edrxTableFor(rat)
	if !ok {
		return 0, fmt.Errorf("psm: rat %v has no eDRX table", rat)
	}
	if value < 0 || value >= len(table) {
		return 0, fmt.Errorf("psm: eDRX value %d out of range for rat %v", value, rat)
	}
	cycle := table[value]
	if cycle < 0 {
		return 0, fmt.Errorf("psm: eDRX value %d is reserved for rat %v", value, rat)
	}
	return cycle, nil
}

// pagingWindowScale maps a RAT to the scale factor used to turn a raw
// 4-bit paging time window value into seconds, per 3GPP TS 24.008's
// EUTRAN paging-window encoding: window = (value+1) * scale.
func pagingWindowScale(rat caps.RAT) (float64, bool) {
	switch rat {
	case caps.RatCatM1:
		return 1.28, true
	case caps.RatNB1:
		return 2.56, true
	default:
		return 0, false
	}
}

// DecodePagingTimeWindow converts a raw AT+CEDRXRDP/+CEDRXP paging time
// window nibble to milliseconds for the EUTRAN RATs; non-EUTRAN RATs
// pass the raw value through unchanged since they have no windowing IE.
func DecodePagingTimeWindow(rat caps.RAT, value int) int {
	scale, ok := pagingWindowScale(rat)
	if !ok {
		return value
	}
	return roundHalfAwayFromZero(float64(value+1) * scale * 1000)
}

// EncodePagingTimeWindow is the inverse of DecodePagingTimeWindow: the
// smallest 4-bit value whose decoded window is >= seconds, clamped to
// the largest valid value if seconds exceeds everything representable.
// Non-EUTRAN RATs have no windowing IE and always encode to 0.
func EncodePagingTimeWindow(rat caps.RAT, seconds float64) int {
	scale, ok := pagingWindowScale(rat)
	if !ok || seconds <= 0 {
		return 0
	}
	for value := 0; value <= 0xF; value++ {
		if (float64(value+1) * scale) >= seconds {
			return value
		}
	}
	return 0xF
}
