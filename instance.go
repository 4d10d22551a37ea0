// Package ubxmodem drives u-blox cellular modules (SARA-R4/R5/R422,
// LARA-R6, SARA-U201) over an AT-command UART: an asynchronous
// command/response/URC engine plus the power-on/power-off/reboot/reset
// and 3GPP power-saving state machine that sequences them correctly.
package ubxmodem

import (
	"sync"
	"time"

	"github.com/ubxmodem/ubxmodem/internal/atclient"
	"github.com/ubxmodem/ubxmodem/internal/caps"
	"github.com/ubxmodem/ubxmodem/internal/interfaces"
	"github.com/ubxmodem/ubxmodem/internal/logging"
	"github.com/ubxmodem/ubxmodem/internal/registry"
)

// DeepSleepState is one of the four states spec §3 defines for deep
// sleep, driven by the +UUPSMR URC, power-on/reboot, and explicit calls.
type DeepSleepState int

const (
	DeepSleepUnknown DeepSleepState = iota
	DeepSleepUnavailable
	DeepSleepProtocolStackAsleep
	DeepSleepAsleep
)

func (s DeepSleepState) String() string {
	switch s {
	case DeepSleepUnavailable:
		return "unavailable"
	case DeepSleepProtocolStackAsleep:
		return "protocol-stack-asleep"
	case DeepSleepAsleep:
		return "asleep"
	default:
		return "unknown"
	}
}

// EDRXRequest is the last eDRX cycle length and paging window requested
// for a given RAT (spec §4.4 "eDRX").
type EDRXRequest struct {
	Seconds             int
	PagingWindowSeconds float64
}

// SleepContext is created lazily the first time PSM, eDRX or a wake-up
// callback is configured (spec §3).
type SleepContext struct {
	PowerSaving3gppAgreed          bool
	PowerSaving3gppOnNotOffCereg   bool
	ActiveTimeSecondsCereg         int
	PeriodicWakeupSecondsCereg     int

	// EDRXRequested tracks, per RAT, whether eDRX is currently requested
	// and at what cycle length / paging window, so SARA-R4's
	// module_configure can re-enable the +CEDRXP URC for each RAT
	// across a reboot.
	EDRXRequested map[caps.RAT]EDRXRequest

	On3gppPSMUpdate  func(ctx interface{}, agreed bool, activeSeconds, periodicSeconds int)
	On3gppPSMCtx     interface{}
	OnEDRXUpdate     func(ctx interface{}, rat caps.RAT, requestedOn bool, requestedSeconds, assignedSeconds int, pagingWindowMs int)
	OnEDRXCtx        interface{}
	OnDeepSleepWake  func(ctx interface{})
	OnDeepSleepWakeCtx interface{}
}

// UartSleepCache stashes the AT+UPSV mode and sleep time while the user
// has temporarily disabled UART power saving (spec §3).
type UartSleepCache struct {
	Mode       int
	SleepTimeS int
	Saved      bool
}

// PinSet names the four GPIO lines a CellInstance may own, plus an
// ephemeral RESET pin used only by reset_hard (spec §6 GPIO surface).
// A nil Pin means "absent".
type PinSet struct {
	EnablePower interfaces.Pin
	PwrOn       interfaces.Pin
	Vint        interfaces.Pin
	Dtr         interfaces.Pin
	Reset       interfaces.Pin
}

// CellInstance is one attached module (spec §3). External code only
// ever holds a registry.Handle; CellInstance itself is owned by the
// registry and must only be mutated while mu is held, mirroring
// the "registry mutex guards all instance fields" invariant of spec
// §4.3 — realized here as a per-instance mutex rather than one global
// lock, since Go's GC makes the arena-and-index trick spec §9 describes
// unnecessary: each instance is its own heap object with its own lock,
// and the registry only serializes the handle table.
type CellInstance struct {
	mu sync.Mutex

	// opMu is held for the full duration of every public operation
	// (PowerOn/PowerOff/Reboot/ResetHard, SetRAT, SetPSM, SetEDRX, ...),
	// including the AT transactions it performs, realizing spec §5's
	// "all mutations are serialized by the single registry mutex...
	// held across AT transactions" at instance granularity: the AT
	// client's own transmit lock only orders the wire, it does not
	// prevent two goroutines from interleaving two different multi-
	// command operations on the same instance. URC handlers and
	// deferred callbacks must never acquire it, since they may call
	// back into the public API (spec §5 "Re-entrancy").
	opMu sync.Mutex

	handle registry.Handle
	client *atclient.Client
	cap    caps.Capability
	pins   PinSet

	hwFlowControl bool

	mnoProfile      int
	lastCfunFlipAt  time.Time
	rebootRequired  bool
	sleep           *SleepContext
	uartSleepCache  *UartSleepCache
	deepSleepState  DeepSleepState
	deepSleepBlocker int
	inWakeUpCallback bool

	log *logging.Logger

	metrics *Metrics
	clock   interfaces.Clock
}

// realClock is the default interfaces.Clock backed by the standard
// library; tests substitute a fake one to avoid real sleeps.
type realClock struct{}

func (realClock) Now() time.Time        { return time.Now() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

// NewOptions configures Add.
type NewOptions struct {
	Logger *logging.Logger
	Clock  interfaces.Clock

	// HardwareFlowControl reports whether RTS/CTS are wired and under
	// hardware control on this UART, deciding module_configure's
	// AT&K3 (both lines) vs AT&K0 (spec §4.4 "Query UART flow-control
	// state to decide AT&K3 ... or AT&K0").
	HardwareFlowControl bool
}

// Add registers a new CellInstance for an already-bound AT client and
// returns its handle (spec §4.3 "add"). leavePowered is accepted for API
// compatibility but intentionally unused on first Add: a power state is
// discovered, not assumed.
func Add(kind caps.Kind, client *atclient.Client, pins PinSet, leavePowered bool, opts *NewOptions) (registry.Handle, error) {
	capRow, ok := caps.Lookup(kind)
	if !ok {
		return 0, newError("Add", ErrInvalidParameter, "unknown module kind")
	}
	if opts == nil {
		opts = &NewOptions{}
	}
	log := opts.Logger
	if log == nil {
		log = logging.Default().WithComponent("instance")
	}
	clock := opts.Clock
	if clock == nil {
		clock = realClock{}
	}

	inst := &CellInstance{
		client:         client,
		cap:            capRow,
		pins:           pins,
		hwFlowControl:  opts.HardwareFlowControl,
		deepSleepState: DeepSleepUnknown,
		log:            log,
		metrics:        NewMetrics(clock.Now()),
		clock:          clock,
	}
	_ = leavePowered
	h := registry.Add(inst)
	inst.handle = h
	return h, nil
}

// Remove unregisters and tears down the instance at h (spec §4.3
// "remove"). It closes the underlying AT client.
func Remove(h registry.Handle) error {
	v, ok := registry.Get(h)
	if !ok {
		return newError("Remove", ErrInvalidParameter, "unknown handle")
	}
	inst := v.(*CellInstance)
	registry.Remove(h)
	return inst.client.Close()
}

// Get resolves a handle to its instance for tests and advanced callers
// that need direct access beyond the helper functions below. Ordinary
// callers should prefer the package-level operations that take a handle.
func Get(h registry.Handle) (*CellInstance, bool) {
	v, ok := registry.Get(h)
	if !ok {
		return nil, false
	}
	return v.(*CellInstance), true
}

// Metrics returns the instance's metrics counters.
func (c *CellInstance) Metrics() *Metrics {
	return c.metrics
}

// DeepSleepState reports the instance's cached deep-sleep state.
func (c *CellInstance) DeepSleepState() DeepSleepState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deepSleepState
}

// RebootIsRequired reports whether a configuration helper has flagged
// the instance dirty (spec §7 "self-recovery").
func (c *CellInstance) RebootIsRequired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rebootRequired
}

func (c *CellInstance) setDeepSleepState(s DeepSleepState) {
	c.mu.Lock()
	c.deepSleepState = s
	c.mu.Unlock()
}

func (c *CellInstance) ensureSleepContext() *SleepContext {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sleep == nil {
		c.sleep = &SleepContext{EDRXRequested: make(map[caps.RAT]EDRXRequest)}
	}
	return c.sleep
}
