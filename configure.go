package ubxmodem

import (
	"github.com/ubxmodem/ubxmodem/internal/caps"
	"github.com/ubxmodem/ubxmodem/internal/constants"
)

// upsvMode values, per spec §4.4 "Determine UART power-saving mode".
const (
	upsvModeDisabled = 0
	upsvModeGPIO     = 1
	upsvModeData     = 2
	upsvModeDTR      = 3
	upsvModeR4Data   = 4 // SARA-R4's numeric "DATA" equivalent
)

// moduleConfigure runs the fixed configuration script of spec §4.4,
// retrying each command up to ConfigurationCommandTries times, and
// resolves Open Question (a) (DESIGN.md): when a command still fails
// after its retries and its very first attempt returned +CME ERROR: 4,
// one in-sequence reboot and a single re-run of the script follow; the
// re-run's result is returned.
func (c *CellInstance) moduleConfigure(radioOff, returningFromSleep bool) error {
	err := c.runConfigureScript(radioOff, returningFromSleep)
	if err == nil {
		return nil
	}
	if ae, ok := err.(*Error); ok && ae.Kind == ErrDeviceError &&
		ae.Device != nil && ae.Device.Class == "CME" && ae.Device.Code == 4 {
		if rebootErr := c.cfunFlip("module_configure", 16, constants.AtCfunFlipDelay); rebootErr == nil {
			c.clock.Sleep(c.cap.RebootTime)
			if c.probeLiveness(nil) {
				return c.runConfigureScript(radioOff, returningFromSleep)
			}
		}
	}
	return err
}

func (c *CellInstance) runConfigureScript(radioOff, returningFromSleep bool) error {
	type step struct {
		cmd      string
		optional bool
	}
	steps := []step{
		{cmd: "ATE0"},
		{cmd: "AT+CMEE=2"},
		{cmd: "AT+UDCONF=92,1,1", optional: true},
		{cmd: "AT+UDCONF=1,0"},
		{cmd: "ATI9"},
		{cmd: "AT&C1"},
		{cmd: "AT&D0"},
	}

	for _, st := range steps {
		err, firstErr := c.sendSimpleRetry("module_configure", st.cmd, constants.ConfigurationCommandTries)
		if err != nil {
			if st.optional {
				continue
			}
			if firstErr != nil {
				return firstErr
			}
			return err
		}
	}

	if c.cap.Kind == caps.SaraR4 || c.cap.Kind == caps.LaraR6 {
		ucged := "AT+UCGED=2"
		if c.cap.HasFeature(caps.FeatureUCGED5) {
			ucged = "AT+UCGED=5"
		}
		if err, firstErr := c.sendSimpleRetry("module_configure", ucged, constants.ConfigurationCommandTries); err != nil {
			return firstOf(firstErr, err)
		}
	}

	if err := c.configureFlowControl(); err != nil {
		return err
	}

	if err := c.configureUARTPowerSaving(returningFromSleep); err != nil {
		return err
	}

	if c.cap.HasFeature(caps.FeatureDeepSleepURC) {
		if err, firstErr := c.sendSimpleRetry("module_configure", "AT+UPSMR=1", constants.ConfigurationCommandTries); err != nil {
			return firstOf(firstErr, err)
		}
		c.installCoreURCHandlers()
	}

	c.refreshPSMState()
	c.reenableSaraR4EDRX()

	c.refreshMNOProfile()

	if radioOff {
		if err := c.cfunFlip("module_configure", c.cap.RadioOffCfun, constants.AtCfunFlipDelay); err != nil {
			return err
		}
	}

	return nil
}

func firstOf(first, fallback error) error {
	if first != nil {
		return first
	}
	return fallback
}

// configureFlowControl queries the UART's flow-control wiring and picks
// AT&K3 (both RTS and CTS under hardware flow control) or AT&K0 (no
// hardware flow control) accordingly (spec §4.4 "Query UART flow-
// control state to decide AT&K3 ... or AT&K0"). The query itself is the
// instance's HardwareFlowControl option, set at Add time from the
// platform's UART configuration, since this module never owns the
// UART's termios state directly.
func (c *CellInstance) configureFlowControl() error {
	cmd := "AT&K0"
	if c.hwFlowControl {
		cmd = "AT&K3"
	}
	err, firstErr := c.sendSimpleRetry("module_configure", cmd, constants.ConfigurationCommandTries)
	if err != nil {
		return firstOf(firstErr, err)
	}
	return nil
}

// configureUARTPowerSaving decides and applies the UART power-saving
// mode (spec §4.4's UART_POWER_SAVING decision tree). The HW-flow-
// control / CTS-suspend probing spec describes as platform capabilities
// is simplified here to the wake-up-handler/DTR-pin signals the AT
// client and instance already carry, since this module never owns the
// platform's flow-control wiring directly.
func (c *CellInstance) configureUARTPowerSaving(returningFromSleep bool) error {
	if !c.cap.HasFeature(caps.FeatureUARTPowerSaving) {
		return nil
	}

	mode := upsvModeDisabled
	switch {
	case c.pins.Dtr != nil && c.cap.HasFeature(caps.FeatureDTRPowerSaving):
		mode = upsvModeDTR
	case c.client.IsWakeUpHandlerSet():
		mode = upsvModeData
	}
	if mode == upsvModeData && c.cap.Kind == caps.SaraR4 {
		mode = upsvModeR4Data
	}

	if mode == upsvModeDisabled && c.client.IsWakeUpHandlerSet() && !returningFromSleep {
		c.client.RemoveWakeUpHandler()
	}

	err := c.sendSimpleIntParam("module_configure", "AT+UPSV", mode)
	if err != nil && !returningFromSleep {
		c.client.RemoveWakeUpHandler()
		return err
	}

	if mode == upsvModeDTR && c.pins.Dtr != nil {
		c.client.SetActivityPin(c.pins.Dtr, constants.UARTPowerSavingDTRReady, constants.UARTPowerSavingDTRHysteresis, true)
	}
	return nil
}

// refreshMNOProfile caches AT+UMNOPROF? without surfacing an error: it
// is a best-effort cache refresh, not load-bearing for configure's
// success.
func (c *CellInstance) refreshMNOProfile() {
	profile, err := c.queryMNOProfile()
	if err != nil {
		return
	}
	c.mu.Lock()
	c.mnoProfile = profile
	c.mu.Unlock()
}
