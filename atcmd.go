package ubxmodem

import (
	"time"

	"github.com/ubxmodem/ubxmodem/internal/atclient"
)

// sendSimple issues cmd with no parameters and waits for the final
// status, recording latency and outcome in the instance's metrics.
func (c *CellInstance) sendSimple(op, cmd string) error {
	start := c.clock.Now()
	c.client.Lock()
	var err error
	if err = c.client.CommandStart(cmd); err == nil {
		if err = c.client.CommandStop(); err == nil {
			err = c.client.ResponseStop()
		}
	}
	err = c.client.Unlock(err)
	c.metrics.RecordCommand(c.clock.Now().Sub(start), err)
	if err != nil {
		return translateATError(op, err)
	}
	return nil
}

// sendSimpleRetry retries sendSimple up to tries times, returning the
// last error (spec §4.4 "each AT command inside module_configure is
// retried up to CONFIGURATION_COMMAND_TRIES times"). firstAttemptErr
// reports whether the *first* attempt failed, which the re-entrant
// reboot-on-CME-4 logic (DESIGN.md Open Question (a)) needs to
// distinguish from a later retry failing.
func (c *CellInstance) sendSimpleRetry(op, cmd string, tries int) (err error, firstAttemptErr error) {
	for i := 0; i < tries; i++ {
		err = c.sendSimple(op, cmd)
		if i == 0 {
			firstAttemptErr = err
		}
		if err == nil {
			return nil, firstAttemptErr
		}
	}
	return err, firstAttemptErr
}

// isAlive issues a bare AT probe. Per spec §4.4 step 5, any OK *or*
// device error counts as "alive" since the module may be replying to
// some prior stimulus.
func (c *CellInstance) isAlive() bool {
	err := c.sendSimple("is_alive", "AT")
	if err == nil {
		return true
	}
	ae, ok := err.(*Error)
	return ok && ae.Kind == ErrDeviceError
}

// translateATError maps an *atclient.Status into the public *Error type.
func translateATError(op string, err error) error {
	if err == nil {
		return nil
	}
	st, ok := err.(*atclient.Status)
	if !ok {
		return wrapError(op, ErrAtError, err)
	}
	switch st.Kind {
	case atclient.KindOK:
		return nil
	case atclient.KindTimeout:
		return newError(op, ErrTimeout, st.Message)
	case atclient.KindDeviceError:
		return deviceError(op, st.Device.Class, st.Device.Code)
	case atclient.KindInvalidParameter:
		return newError(op, ErrInvalidParameter, st.Message)
	default:
		return newError(op, ErrAtError, st.Message)
	}
}

// cfunFlip issues AT+CFUN=<mode>, honoring the minimum inter-CFUN gap
// (spec §4.4 "reboot... respect the AT_CFUN_FLIP_DELAY_SECONDS minimum
// gap since last_cfun_flip_ms").
func (c *CellInstance) cfunFlip(op string, mode int, minGap time.Duration) error {
	c.mu.Lock()
	elapsed := c.clock.Now().Sub(c.lastCfunFlipAt)
	c.mu.Unlock()
	if elapsed < minGap {
		c.clock.Sleep(minGap - elapsed)
	}

	err := c.sendSimpleIntParam(op, "AT+CFUN", mode)

	c.mu.Lock()
	c.lastCfunFlipAt = c.clock.Now()
	c.mu.Unlock()
	return err
}

// sendSimpleIntParam issues "<prefix>=<v>" and waits for the final status.
func (c *CellInstance) sendSimpleIntParam(op, prefix string, v int) error {
	start := c.clock.Now()
	c.client.Lock()
	var err error
	if err = c.client.CommandStart(prefix); err == nil {
		if err = c.client.WriteInt(v); err == nil {
			if err = c.client.CommandStop(); err == nil {
				err = c.client.ResponseStop()
			}
		}
	}
	err = c.client.Unlock(err)
	c.metrics.RecordCommand(c.clock.Now().Sub(start), err)
	if err != nil {
		return translateATError(op, err)
	}
	return nil
}
