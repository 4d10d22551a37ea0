// Package interfaces collects the narrow seams the AT client and power
// state machine depend on, kept separate from the public package to avoid
// circular imports between it and the internal packages (mirroring how the
// block-device backend/logger/observer contracts are split out from the
// teacher's internal packages).
package interfaces

import "time"

// Port is the blocking byte-stream the AT client reads from and writes to.
// A *goserial.Port satisfies it directly; internal/serialport adapts one
// from a device path, and the root package's MockPort satisfies it for
// tests.
type Port interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Close() error
}

// Logger is the Printf-style subset of *logging.Logger's methods. The
// public API does not take it: NewOptions.Logger is a *logging.Logger.
type Logger interface {
	Printf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Observer describes a receiver of lifecycle and transaction events for
// metrics collection. Nothing in this module calls an Observer; the root
// package's Metrics counts these events directly.
type Observer interface {
	ObserveCommand(prefix string, latency time.Duration, success bool)
	ObserveURC(prefix string)
	ObservePowerEvent(event string)
}

// Polarity describes whether a GPIO pin's "active"/"asserted" level is
// logic-high or logic-low, matching spec §6's "polarity bit packed into
// pin_states".
type Polarity int

const (
	ActiveHigh Polarity = iota
	ActiveLow
)

// Direction is a GPIO pin's data direction.
type Direction int

const (
	DirectionInput Direction = iota
	DirectionOutput
)

// Pin is a single GPIO line: ENABLE_POWER, PWR_ON, VINT, DTR or RESET.
type Pin interface {
	// Configure sets the pin's direction and, for outputs, its initial
	// level (false = inactive per Polarity).
	Configure(dir Direction, polarity Polarity, initialActive bool) error
	// Set drives an output pin active or inactive (polarity-adjusted).
	Set(active bool) error
	// Get reads an input (or output) pin's current asserted state
	// (polarity-adjusted).
	Get() (active bool, err error)
	// WaitEdge blocks until the pin transitions to the given asserted
	// state or the deadline elapses, returning false on timeout.
	WaitEdge(active bool, timeout time.Duration) (bool, error)
	// Close releases any OS resources (sysfs export, epoll fd, ...).
	Close() error
}

// Clock abstracts wall-clock reads and sleeping so tests can run the power
// state machine without real delays.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}
