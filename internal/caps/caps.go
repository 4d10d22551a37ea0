// Package caps holds the static per-module-variant capability table (spec
// §3 "ModuleCapability"): supported RATs, feature bits and the timing
// budgets the power/sleep state machine consults to sequence a given
// u-blox module correctly.
package caps

import "time"

// Kind tags a supported module variant.
type Kind int

const (
	SaraR4 Kind = iota
	SaraR5
	SaraR422
	LaraR6
	SaraU201
)

func (k Kind) String() string {
	switch k {
	case SaraR4:
		return "SARA-R4"
	case SaraR5:
		return "SARA-R5"
	case SaraR422:
		return "SARA-R422"
	case LaraR6:
		return "LARA-R6"
	case SaraU201:
		return "SARA-U201"
	default:
		return "unknown"
	}
}

// RAT is a radio access technology bit, matching AT+URAT's numeric values.
type RAT int

const (
	RatGSM RAT = 0
	RatGPRS RAT = 1
	RatUTRAN RAT = 2
	RatLTE RAT = 3
	RatCatM1 RAT = 7
	RatNB1 RAT = 8
)

// Feature is a bitmask flag on a Capability row.
type Feature uint32

const (
	FeatureMNOProfile Feature = 1 << iota
	FeatureUARTPowerSaving
	FeatureDTRPowerSaving
	Feature3GPPPowerSaving
	FeatureEDRX
	FeatureDeepSleepURC
	FeatureUCGED5
	FeatureSupportsPagingWindowSet
	Feature3GPPPowerSavingPagingWindow
	FeatureAckAidingViaCfgVal
)

// Capability is one immutable row of the module capability table.
type Capability struct {
	Kind Kind

	SupportedRATs          []RAT
	MaxNumSimultaneousRATs int
	RadioOffCfun           int

	BootTime          time.Duration
	RebootTime        time.Duration
	PowerDownTime     time.Duration
	PowerOffPullTime  time.Duration
	PowerOnPullTime   time.Duration
	ResponseMaxWait   time.Duration

	Features Feature
}

// HasFeature reports whether f is set on c.
func (c Capability) HasFeature(f Feature) bool {
	return c.Features&f != 0
}

// Table is keyed by module Kind.
var Table = map[Kind]Capability{
	SaraR4: {
		Kind:                   SaraR4,
		SupportedRATs:          []RAT{RatCatM1, RatNB1, RatGSM},
		MaxNumSimultaneousRATs: 1,
		RadioOffCfun:           0,
		BootTime:               6 * time.Second,
		RebootTime:             15 * time.Second,
		PowerDownTime:          1500 * time.Millisecond,
		PowerOffPullTime:       1500 * time.Millisecond,
		PowerOnPullTime:        150 * time.Millisecond,
		ResponseMaxWait:        8 * time.Second,
		Features:               FeatureUARTPowerSaving | Feature3GPPPowerSaving | FeatureEDRX,
	},
	SaraR5: {
		Kind:                   SaraR5,
		SupportedRATs:          []RAT{RatCatM1, RatNB1},
		MaxNumSimultaneousRATs: 2,
		RadioOffCfun:           4,
		BootTime:               6 * time.Second,
		RebootTime:             16 * time.Second,
		PowerDownTime:          1500 * time.Millisecond,
		PowerOffPullTime:       1500 * time.Millisecond,
		PowerOnPullTime:        200 * time.Millisecond,
		ResponseMaxWait:        8 * time.Second,
		Features: FeatureMNOProfile | FeatureUARTPowerSaving | FeatureDTRPowerSaving |
			Feature3GPPPowerSaving | FeatureEDRX | FeatureDeepSleepURC |
			FeatureSupportsPagingWindowSet | Feature3GPPPowerSavingPagingWindow,
	},
	SaraR422: {
		Kind:                   SaraR422,
		SupportedRATs:          []RAT{RatCatM1, RatNB1},
		MaxNumSimultaneousRATs: 2,
		RadioOffCfun:           4,
		BootTime:               6 * time.Second,
		RebootTime:             16 * time.Second,
		PowerDownTime:          1500 * time.Millisecond,
		PowerOffPullTime:       1500 * time.Millisecond,
		PowerOnPullTime:        200 * time.Millisecond,
		ResponseMaxWait:        8 * time.Second,
		Features: FeatureMNOProfile | FeatureUARTPowerSaving | FeatureDTRPowerSaving |
			Feature3GPPPowerSaving | FeatureEDRX | FeatureDeepSleepURC |
			FeatureSupportsPagingWindowSet | Feature3GPPPowerSavingPagingWindow |
			FeatureAckAidingViaCfgVal,
	},
	LaraR6: {
		Kind:                   LaraR6,
		SupportedRATs:          []RAT{RatLTE, RatUTRAN, RatGSM},
		MaxNumSimultaneousRATs: 3,
		RadioOffCfun:           4,
		BootTime:               10 * time.Second,
		RebootTime:             18 * time.Second,
		PowerDownTime:          1500 * time.Millisecond,
		PowerOffPullTime:       1500 * time.Millisecond,
		PowerOnPullTime:        150 * time.Millisecond,
		ResponseMaxWait:        8 * time.Second,
		Features:               FeatureUARTPowerSaving | FeatureUCGED5,
	},
	SaraU201: {
		Kind:                   SaraU201,
		SupportedRATs:          []RAT{RatUTRAN, RatGSM},
		MaxNumSimultaneousRATs: 1,
		RadioOffCfun:           0,
		BootTime:               6 * time.Second,
		RebootTime:             15 * time.Second,
		PowerDownTime:          1500 * time.Millisecond,
		PowerOffPullTime:       1500 * time.Millisecond,
		PowerOnPullTime:        50 * time.Millisecond,
		ResponseMaxWait:        8 * time.Second,
		Features:               0,
	},
}

// Lookup returns the capability row for kind and whether it was found.
func Lookup(kind Kind) (Capability, bool) {
	c, ok := Table[kind]
	return c, ok
}
