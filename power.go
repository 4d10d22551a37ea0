package ubxmodem

import (
	"time"

	"github.com/ubxmodem/ubxmodem/internal/constants"
	"github.com/ubxmodem/ubxmodem/internal/interfaces"
	"github.com/ubxmodem/ubxmodem/internal/registry"
)

// KeepGoing is polled at every significant step of a long operation; it
// returning false cancels the operation promptly (spec §5
// "Cancellation and timeouts").
type KeepGoing func(h registry.Handle) bool

func alwaysKeepGoing(registry.Handle) bool { return true }

func (c *CellInstance) checkKeepGoing(kg KeepGoing) error {
	if kg == nil {
		return nil
	}
	if !kg(c.handle) {
		return newError("keep_going", ErrCancelled, "operation cancelled")
	}
	return nil
}

// vintAsserted reports whether VINT currently reads asserted, or false
// with ok=false if there is no VINT pin (spec §6 "any may be absent").
func (c *CellInstance) vintAsserted() (asserted bool, ok bool) {
	if c.pins.Vint == nil {
		return false, false
	}
	v, err := c.pins.Vint.Get()
	if err != nil {
		return false, true
	}
	return v, true
}

// PowerOn brings the module up: probes whether it's already on, toggles
// ENABLE_POWER/PWR_ON if not, probes liveness, configures it, and
// retries once with a hardware power cycle on configure failure
// (spec §4.4 "power_on").
func PowerOn(h registry.Handle, radioOff bool, kg KeepGoing) error {
	inst, ok := Get(h)
	if !ok {
		return newError("PowerOn", ErrInvalidParameter, "unknown handle")
	}
	inst.opMu.Lock()
	defer inst.opMu.Unlock()
	return inst.powerOn(radioOff, kg)
}

func (c *CellInstance) powerOn(radioOff bool, kg KeepGoing) error {
	c.mu.Lock()
	wasAsleep := c.deepSleepState == DeepSleepAsleep
	c.deepSleepBlocker = 0
	c.mu.Unlock()
	c.setDeepSleepState(DeepSleepUnknown)

	c.metrics.PowerOnAttempts.Add(1)

	var lastErr error
	for attempt := 0; attempt < constants.PowerOnAttempts; attempt++ {
		if err := c.checkKeepGoing(kg); err != nil {
			return err
		}

		alreadyOn := c.probeAlreadyOn()
		if !alreadyOn {
			if err := c.hardwarePowerOnToggle(); err != nil {
				lastErr = err
				continue
			}
			if !c.probeLiveness(kg) {
				lastErr = newError("PowerOn", ErrNotResponding, "module did not respond after power-on toggle")
				c.quickPowerOff()
				continue
			}
		}

		if err := c.checkKeepGoing(kg); err != nil {
			return err
		}

		err := c.moduleConfigure(radioOff, false)
		if err == nil {
			c.metrics.PowerOnSuccesses.Add(1)
			if wasAsleep {
				c.fireDeepSleepWake()
			}
			return nil
		}
		lastErr = err
		c.quickPowerOff()
	}
	if lastErr == nil {
		lastErr = newError("PowerOn", ErrNotConfigured, "power-on retries exhausted")
	}
	return lastErr
}

// probeAlreadyOn implements spec §4.4 step 2: VINT asserted, or (absent
// VINT) a single AT succeeding, means the hardware toggle can be skipped.
func (c *CellInstance) probeAlreadyOn() bool {
	if asserted, ok := c.vintAsserted(); ok {
		return asserted
	}
	return c.isAlive()
}

func (c *CellInstance) hardwarePowerOnToggle() error {
	if c.pins.EnablePower != nil {
		if err := c.pins.EnablePower.Set(true); err != nil {
			return wrapError("PowerOn", ErrPlatformError, err)
		}
		c.clock.Sleep(constants.EnablePowerSettleDelay)
	}
	if c.pins.PwrOn != nil {
		if err := c.pins.PwrOn.Set(true); err != nil {
			return wrapError("PowerOn", ErrPlatformError, err)
		}
		c.clock.Sleep(c.cap.PowerOnPullTime)
		if err := c.pins.PwrOn.Set(false); err != nil {
			return wrapError("PowerOn", ErrPlatformError, err)
		}
	}
	return nil
}

// probeLiveness issues up to IsAliveAttemptsPowerOn bare AT probes.
func (c *CellInstance) probeLiveness(kg KeepGoing) bool {
	for i := 0; i < constants.IsAliveAttemptsPowerOn; i++ {
		if err := c.checkKeepGoing(kg); err != nil {
			return false
		}
		if c.isAlive() {
			return true
		}
	}
	return false
}

func (c *CellInstance) fireDeepSleepWake() {
	sc := c.ensureSleepContext()
	c.mu.Lock()
	fn, ctx := sc.OnDeepSleepWake, sc.OnDeepSleepWakeCtx
	c.mu.Unlock()
	if fn != nil {
		c.client.Callback(func(interface{}) { fn(ctx) }, nil)
	}
}

// PowerOff gracefully shuts the module down (spec §4.4 "power_off"): if
// a wake-up handler is set, disable UART power saving first so sleep
// can't race the shutdown, then AT+CPWROFF, then wait for the module to
// stop responding before deasserting the power pins.
func PowerOff(h registry.Handle) error {
	inst, ok := Get(h)
	if !ok {
		return newError("PowerOff", ErrInvalidParameter, "unknown handle")
	}
	inst.opMu.Lock()
	defer inst.opMu.Unlock()
	return inst.powerOff()
}

func (c *CellInstance) powerOff() error {
	c.metrics.PowerOffCount.Add(1)

	if c.client.IsWakeUpHandlerSet() {
		_ = c.sendSimpleIntParam("PowerOff", "AT+UPSV", 0)
	}

	c.mu.Lock()
	c.rebootRequired = false
	c.mu.Unlock()

	if err := c.sendSimple("PowerOff", "AT+CPWROFF"); err != nil {
		c.log.Warnf("AT+CPWROFF returned an error, continuing shutdown: %v", err)
	}

	deadline := c.clock.Now().Add(constants.CpwroffWait)
	for c.clock.Now().Before(deadline) {
		if asserted, ok := c.vintAsserted(); ok {
			if !asserted {
				break
			}
		} else if !c.isAlive() {
			break
		}
		c.clock.Sleep(constants.KeepGoingPollInterval)
	}

	c.deassertPowerPins()
	return nil
}

func (c *CellInstance) deassertPowerPins() {
	if c.pins.EnablePower != nil {
		_ = c.pins.EnablePower.Set(false)
	}
	if c.pins.PwrOn != nil {
		_ = c.pins.PwrOn.Set(false)
	}
}

// quickPowerOff scrubs a half-powered module after a failed configure
// (spec §7 "a quick_power_off is used internally").
func (c *CellInstance) quickPowerOff() {
	c.deassertPowerPins()
}

// PowerOffHard cuts power without a graceful AT+CPWROFF (spec §4.4
// "power_off_hard"). When truly_hard and ENABLE_POWER exists, it drops
// immediately; otherwise PWR_ON is pulsed to its power-off toggle level.
func PowerOffHard(h registry.Handle, trulyHard bool) error {
	inst, ok := Get(h)
	if !ok {
		return newError("PowerOffHard", ErrInvalidParameter, "unknown handle")
	}
	inst.opMu.Lock()
	defer inst.opMu.Unlock()
	return inst.powerOffHard(trulyHard)
}

func (c *CellInstance) powerOffHard(trulyHard bool) error {
	if trulyHard && c.pins.EnablePower != nil {
		if err := c.pins.EnablePower.Set(false); err != nil {
			return wrapError("PowerOffHard", ErrPlatformError, err)
		}
		return nil
	}
	if c.pins.PwrOn != nil {
		if err := c.pins.PwrOn.Set(true); err != nil {
			return wrapError("PowerOffHard", ErrPlatformError, err)
		}
		c.clock.Sleep(c.cap.PowerOffPullTime)
		if err := c.pins.PwrOn.Set(false); err != nil {
			return wrapError("PowerOffHard", ErrPlatformError, err)
		}

		if c.pins.Vint != nil {
			_, _ = c.pins.Vint.WaitEdge(false, c.cap.PowerDownTime*4)
		}
	}
	if c.pins.EnablePower != nil {
		_ = c.pins.EnablePower.Set(false)
	}
	return nil
}

// Reboot issues AT+CFUN=15 (or 16 on SARA-R5/R422) and waits for the
// module to come back up, retrying once with a power cycle on failure
// (spec §4.4 "reboot").
func Reboot(h registry.Handle, radioOff bool, kg KeepGoing) error {
	inst, ok := Get(h)
	if !ok {
		return newError("Reboot", ErrInvalidParameter, "unknown handle")
	}
	inst.opMu.Lock()
	defer inst.opMu.Unlock()
	return inst.reboot(radioOff, kg)
}

func (c *CellInstance) rebootCfunMode() int {
	switch c.cap.Kind.String() {
	case "SARA-R5", "SARA-R422":
		return 16
	default:
		return 15
	}
}

func (c *CellInstance) reboot(radioOff bool, kg KeepGoing) error {
	c.metrics.RebootCount.Add(1)

	var lastErr error
	for attempt := 0; attempt < constants.RebootAttempts; attempt++ {
		if err := c.checkKeepGoing(kg); err != nil {
			return err
		}
		if err := c.cfunFlip("Reboot", c.rebootCfunMode(), constants.AtCfunFlipDelay); err != nil {
			lastErr = err
		}

		deadline := c.clock.Now().Add(c.cap.RebootTime)
		for c.clock.Now().Before(deadline) {
			if asserted, ok := c.vintAsserted(); ok && !asserted {
				break
			}
			c.clock.Sleep(constants.KeepGoingPollInterval)
		}

		if !c.probeLiveness(kg) {
			lastErr = newError("Reboot", ErrNotResponding, "module did not come back after reboot")
			if attempt+1 < constants.RebootAttempts {
				_ = c.powerOffHard(false)
				_ = c.hardwarePowerOnToggle()
			}
			continue
		}

		if err := c.moduleConfigure(radioOff, false); err != nil {
			lastErr = err
			if attempt+1 < constants.RebootAttempts {
				_ = c.powerOffHard(false)
				_ = c.hardwarePowerOnToggle()
			}
			continue
		}
		return nil
	}
	return lastErr
}

// ResetHard drives the RESET pin for resetHold (or ResetHoldDefault) and
// waits for the module to come back (spec §4.4 "reset_hard").
func ResetHard(h registry.Handle, resetHold time.Duration, radioOff bool, kg KeepGoing) error {
	inst, ok := Get(h)
	if !ok {
		return newError("ResetHard", ErrInvalidParameter, "unknown handle")
	}
	inst.opMu.Lock()
	defer inst.opMu.Unlock()
	return inst.resetHard(resetHold, radioOff, kg)
}

func (c *CellInstance) resetHard(resetHold time.Duration, radioOff bool, kg KeepGoing) error {
	if c.pins.Reset == nil {
		return newError("ResetHard", ErrNotSupported, "no RESET pin configured")
	}
	if resetHold <= 0 {
		resetHold = constants.ResetHoldDefault
	}

	if err := c.pins.Reset.Configure(interfaces.DirectionOutput, interfaces.ActiveLow, false); err != nil {
		return wrapError("ResetHard", ErrPlatformError, err)
	}
	if err := c.pins.Reset.Set(true); err != nil {
		return wrapError("ResetHard", ErrPlatformError, err)
	}
	c.clock.Sleep(resetHold)
	if err := c.pins.Reset.Set(false); err != nil {
		return wrapError("ResetHard", ErrPlatformError, err)
	}

	c.clock.Sleep(c.cap.RebootTime)
	if err := c.checkKeepGoing(kg); err != nil {
		return err
	}
	if !c.probeLiveness(kg) {
		return newError("ResetHard", ErrNotResponding, "module did not respond after hard reset")
	}
	return c.moduleConfigure(radioOff, false)
}
