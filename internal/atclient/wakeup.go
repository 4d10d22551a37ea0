package atclient

import "time"

// WakeUpFunc is the user-supplied predicate invoked when a command is
// issued after inactivityMs of tx silence. It may send bytes (e.g. "AT"),
// wait for OK, and toggle the activity pin; it returns whether the module
// is now believed awake.
type WakeUpFunc func(ctx interface{}) bool

// wakeState holds the optional wake-up handler and activity pin (spec §3
// "optional wake-up handler" / "optional activity pin").
type wakeState struct {
	fn             WakeUpFunc
	ctx            interface{}
	inactivity     time.Duration
	lastActivity   time.Time
	inWakeCallback bool

	pin                 ActivityPinSetter
	readyMs             time.Duration
	hysteresisMs        time.Duration
	assertedLevelIsHigh bool
}

// ActivityPinSetter is the minimal surface the AT client needs from an
// activity GPIO: assert/release around transmissions.
type ActivityPinSetter interface {
	Set(active bool) error
}

// SetWakeUpHandler installs fn, called before a command is written if the
// UART has been idle for at least inactivity.
func (c *Client) SetWakeUpHandler(fn WakeUpFunc, ctx interface{}, inactivity time.Duration) {
	c.wake.fn = fn
	c.wake.ctx = ctx
	c.wake.inactivity = inactivity
}

// RemoveWakeUpHandler clears any previously installed wake-up handler.
func (c *Client) RemoveWakeUpHandler() {
	c.wake.fn = nil
	c.wake.ctx = nil
}

// IsWakeUpHandlerSet reports whether a wake-up handler is currently
// installed.
func (c *Client) IsWakeUpHandlerSet() bool {
	return c.wake.fn != nil
}

// SetActivityPin registers the GPIO that must be asserted with readyMs
// lead time and released after hysteresisMs of tx idle, for DTR-driven
// wake mode.
func (c *Client) SetActivityPin(pin ActivityPinSetter, readyMs, hysteresisMs time.Duration, assertedLevelIsHigh bool) {
	c.wake.pin = pin
	c.wake.readyMs = readyMs
	c.wake.hysteresisMs = hysteresisMs
	c.wake.assertedLevelIsHigh = assertedLevelIsHigh
}

// maybeWakeUp runs the wake-up handler if the UART has been idle longer
// than the configured threshold. The in-progress flag prevents recursion
// if the predicate itself issues a command on this same client.
func (c *Client) maybeWakeUp() {
	if c.wake.fn == nil || c.wake.inWakeCallback {
		return
	}
	if c.wake.inactivity <= 0 {
		return
	}
	if time.Since(c.wake.lastActivity) < c.wake.inactivity {
		return
	}
	c.wake.inWakeCallback = true
	if c.wake.pin != nil {
		c.wake.pin.Set(true)
		time.Sleep(c.wake.readyMs)
	}
	c.wake.fn(c.wake.ctx)
	c.wake.inWakeCallback = false
}

// InWakeUpCallback reports whether the client is currently re-entrantly
// inside its own wake-up predicate. maybeWakeUp checks the same flag to
// skip a second wake attempt; nothing outside this package calls this.
func (c *Client) InWakeUpCallback() bool {
	return c.wake.inWakeCallback
}

func (c *Client) noteActivity() {
	c.wake.lastActivity = time.Now()
	if c.wake.pin != nil && c.wake.hysteresisMs > 0 {
		go func(d time.Duration, pin ActivityPinSetter) {
			time.Sleep(d)
			pin.Set(false)
		}(c.wake.hysteresisMs, c.wake.pin)
	}
}
