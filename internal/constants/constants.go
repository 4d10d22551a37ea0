// Package constants collects the timing and sizing knobs the AT client and
// power/sleep state machine need to agree on.
package constants

import "time"

// Buffer sizing.
const (
	// DefaultRingBufferSize is the default capacity of the ring buffer
	// sitting between a UART receive callback and the AT parser.
	DefaultRingBufferSize = 1024

	// DefaultResponseLineMax is a nominal upper size for a single parsed
	// response line. The AT client's line assembler does not enforce it:
	// a line with no newline keeps growing until one arrives.
	DefaultResponseLineMax = 512

	// URCQueueDepth is the depth of the deferred-callback queue drained by
	// the AT client's worker goroutine.
	URCQueueDepth = 32
)

// Retry and attempt budgets (spec §6, §4.4).
const (
	// ConfigurationCommandTries is how many times each command inside
	// module_configure is retried before its failure is surfaced.
	ConfigurationCommandTries = 3

	// IsAliveAttemptsPowerOn is the number of bare "AT" probes issued
	// after toggling PWR_ON before giving up on liveness.
	IsAliveAttemptsPowerOn = 10

	// PowerOnAttempts is the number of full power-on sequences
	// (hardware toggle + configure) attempted before surfacing failure.
	PowerOnAttempts = 2

	// RebootAttempts mirrors PowerOnAttempts for the reboot path: one
	// reboot, and on failure one power-cycle-and-retry.
	RebootAttempts = 2
)

// Gap and wait timings.
//
// These come straight from the vendor AT command manual: CFUN mode changes
// touch NVRAM and the modem rejects a second one issued too soon, CPWROFF
// needs time to walk down the network gracefully, and VINT/liveness probes
// need to avoid declaring a module dead while it is still booting.
const (
	// AtCfunFlipDelay is the minimum gap enforced between two CFUN mode
	// changes (spec: AT_CFUN_FLIP_DELAY_SECONDS).
	AtCfunFlipDelay = 3 * time.Second

	// AtCfunOffResponseTime is how long AT+CFUN=<radio_off_cfun> may take
	// to return OK once issued.
	AtCfunOffResponseTime = 3 * time.Second

	// CpwroffWait is how long power_off waits for the module to stop
	// responding to AT after AT+CPWROFF.
	CpwroffWait = 10 * time.Second

	// EnablePowerSettleDelay is the wait after asserting ENABLE_POWER
	// before pulsing PWR_ON.
	EnablePowerSettleDelay = 100 * time.Millisecond

	// KeepGoingPollInterval bounds how long any single blocking wait
	// sleeps before re-checking a keep_going_callback.
	KeepGoingPollInterval = 1 * time.Second

	// ResetHoldDefault is the RESET pin active-hold time ResetHard uses
	// when its caller passes no positive hold time.
	ResetHoldDefault = 100 * time.Millisecond
)

// UART power-saving constants (spec §6).
const (
	// PowerSavingUARTInactivityTimeout is how long the UART must be idle
	// before the module may enter UART power saving.
	PowerSavingUARTInactivityTimeout = 20 * time.Second

	// PowerSavingUARTWakeupMargin pads the wake-up handler's computed
	// inactivity threshold so a wake is issued before the module actually
	// sleeps, not after.
	PowerSavingUARTWakeupMargin = 100 * time.Millisecond

	// UARTPowerSavingDTRReady is the lead time the DTR activity pin must
	// be asserted before the module is expected to listen.
	UARTPowerSavingDTRReady = 20 * time.Millisecond

	// UARTPowerSavingDTRHysteresis is how long the DTR activity pin stays
	// asserted after the last transmitted byte.
	UARTPowerSavingDTRHysteresis = 10 * time.Millisecond
)

// MaxNumContexts bounds how many existing PDP contexts context_set scans
// via AT+CGDCONT? before giving up on finding a matching context id.
const MaxNumContexts = 8
