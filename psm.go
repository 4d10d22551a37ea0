package ubxmodem

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ubxmodem/ubxmodem/internal/caps"
	"github.com/ubxmodem/ubxmodem/internal/psm"
)

// SetPSM requests 3GPP power-saving mode be enabled or disabled, with
// the given active-time and periodic-wakeup seconds encoded to their
// 8-bit GPRS-Timer IEs and sent via AT+CPSMS (spec §4.4 "3GPP PSM").
// On SARA-R4, AT+UPSMVER? is read first and its low three bits forced to
// 100 so the modem does not sleep before the network has agreed to PSM.
func (c *CellInstance) SetPSM(enable bool, activeSeconds, periodicSeconds int) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	if !c.cap.HasFeature(caps.Feature3GPPPowerSaving) {
		return newError("SetPSM", ErrNotSupported, "module has no 3GPP power-saving feature")
	}

	if c.cap.Kind == caps.SaraR4 {
		if err := c.applySaraR4PSMVersionOverride(); err != nil {
			return err
		}
	}

	on := 0
	if enable {
		on = 1
	}

	c.client.Lock()
	var err error
	if err = c.client.CommandStart("AT+CPSMS"); err == nil {
		if err = c.client.WriteInt(on); err == nil {
			if enable {
				if err = c.client.WriteString("", false); err == nil { // req periodic-RAU, unused
					if err = c.client.WriteString("", false); err == nil { // req GPRS ready timer, unused
						if err = c.client.WriteString(psm.EncodePeriodicTAU(periodicSeconds, true), true); err == nil {
							err = c.client.WriteString(psm.EncodeActiveTime(activeSeconds), true)
						}
					}
				}
			}
			if err == nil {
				if err = c.client.CommandStop(); err == nil {
					err = c.client.ResponseStop()
				}
			}
		}
	}
	err = c.client.Unlock(err)
	if err != nil {
		return translateATError("SetPSM", err)
	}
	return nil
}

// applySaraR4PSMVersionOverride reads AT+UPSMVER? and rewrites it with
// the low three bits forced to 0b100 via AT+UPSMVER=.
func (c *CellInstance) applySaraR4PSMVersionOverride() error {
	c.client.Lock()
	var err error
	var raw int
	if err = c.client.CommandStart("AT+UPSMVER?"); err == nil {
		if err = c.client.CommandStop(); err == nil {
			if err = c.client.ResponseStart("+UPSMVER:"); err == nil {
				raw, err = c.client.ReadInt()
				if err == nil {
					err = c.client.ResponseStop()
				}
			}
		}
	}
	err = c.client.Unlock(err)
	if err != nil {
		return translateATError("SetPSM", err)
	}

	overridden := psm.SaraR4PSMVersionOverride(raw)
	return c.sendSimpleIntParam("SetPSM", "AT+UPSMVER", overridden)
}

// refreshPSMState reads the network-assigned (AT+UCPSMS?) PSM timer IEs
// (the requested values, AT+CPSMS?, are not read) and updates the
// instance's cached
// SleepContext, mirroring what the +CEREG URC handler does for
// spontaneous updates (spec §4.4 "Read the current 3GPP PSM and update
// the cached sleep state").
func (c *CellInstance) refreshPSMState() {
	if !c.cap.HasFeature(caps.Feature3GPPPowerSaving) {
		return
	}
	_, activeIE, periodicIE, err := c.queryPSM("AT+UCPSMS")
	if err != nil {
		return
	}
	active, activeOK, err := psm.DecodeActiveTime(activeIE)
	if err != nil {
		return
	}
	periodic, periodicOK, err := psm.DecodePeriodicTAU(periodicIE, true)
	if err != nil {
		return
	}

	sc := c.ensureSleepContext()
	c.mu.Lock()
	sc.PowerSaving3gppOnNotOffCereg = activeOK || periodicOK
	sc.ActiveTimeSecondsCereg = active
	sc.PeriodicWakeupSecondsCereg = periodic
	sc.PowerSaving3gppAgreed = activeOK && periodicOK
	fn, ctx := sc.On3gppPSMUpdate, sc.On3gppPSMCtx
	c.mu.Unlock()

	if fn != nil {
		c.client.Callback(func(interface{}) {
			fn(ctx, activeOK && periodicOK, active, periodic)
		}, nil)
	}
}

// queryPSM issues AT+CPSMS? or AT+UCPSMS? and returns the parsed
// <mode>,<T3412>,<T3324> fields (the intervening reserved parameters
// are skipped).
func (c *CellInstance) queryPSM(cmd string) (mode int, activeIE, periodicIE string, err error) {
	c.client.Lock()
	var werr error
	if werr = c.client.CommandStart(cmd + "?"); werr == nil {
		if werr = c.client.CommandStop(); werr == nil {
			if werr = c.client.ResponseStart(cmd[2:] + ":"); werr == nil {
				mode, werr = c.client.ReadInt()
				if werr == nil {
					_ = c.client.SkipParameters(2) // periodic-RAU, GPRS ready timer
					periodicIE, werr = c.client.ReadString(true)
					if werr == nil {
						activeIE, werr = c.client.ReadString(true)
						if werr == nil {
							werr = c.client.ResponseStop()
						}
					}
				}
			}
		}
	}
	werr = c.client.Unlock(werr)
	if werr != nil {
		return 0, "", "", translateATError("queryPSM", werr)
	}
	return mode, activeIE, periodicIE, nil
}

// SetEDRX requests an eDRX cycle length and paging time window for rat
// via AT+CEDRXS, encoding seconds to the per-RAT 4-bit value and, on
// modules with FeatureSupportsPagingWindowSet, pagingWindowSeconds to
// its own 4-bit EUTRAN windowing IE (spec §4.4 "eDRX" and spec §8
// scenario 3). enable=false disables eDRX for rat. The requested cycle
// and paging window are cached in SleepContext so SARA-R4's
// module_configure can re-enable the +CEDRXP URC for this RAT across a
// reboot.
func (c *CellInstance) SetEDRX(rat caps.RAT, enable bool, seconds int, pagingWindowSeconds float64) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.setEDRXLocked(rat, enable, seconds, pagingWindowSeconds)
}

// setEDRXLocked is SetEDRX's body, factored out so reenableSaraR4EDRX
// (called from inside module_configure, which already holds opMu) can
// reach the wire logic without re-locking it.
func (c *CellInstance) setEDRXLocked(rat caps.RAT, enable bool, seconds int, pagingWindowSeconds float64) error {
	if !c.cap.HasFeature(caps.FeatureEDRX) {
		return newError("SetEDRX", ErrNotSupported, "module has no eDRX feature")
	}

	mode := 0
	if enable {
		mode = 2 // enable eDRX and the +CEDRXP unsolicited indication
	}

	value := 0
	pagingWindow := 0
	if enable {
		v, err := psm.EncodeEDRX(rat, seconds)
		if err != nil {
			return wrapError("SetEDRX", ErrInvalidParameter, err)
		}
		value = v
		if c.cap.HasFeature(caps.FeatureSupportsPagingWindowSet) {
			pagingWindow = psm.EncodePagingTimeWindow(rat, pagingWindowSeconds)
		}
	}

	c.client.Lock()
	var err error
	if err = c.client.CommandStart("AT+CEDRXS"); err == nil {
		if err = c.client.WriteInt(mode); err == nil {
			if err = c.client.WriteInt(edrxActType(rat)); err == nil {
				if enable {
					if err = c.client.WriteString(edrxBits(value), true); err == nil {
						if c.cap.HasFeature(caps.FeatureSupportsPagingWindowSet) {
							err = c.client.WriteString(edrxBits(pagingWindow), true)
						}
					}
				}
				if err == nil {
					if err = c.client.CommandStop(); err == nil {
						err = c.client.ResponseStop()
					}
				}
			}
		}
	}
	err = c.client.Unlock(err)
	if err != nil {
		return translateATError("SetEDRX", err)
	}

	sc := c.ensureSleepContext()
	c.mu.Lock()
	if enable {
		sc.EDRXRequested[rat] = EDRXRequest{Seconds: seconds, PagingWindowSeconds: pagingWindowSeconds}
	} else {
		delete(sc.EDRXRequested, rat)
	}
	c.mu.Unlock()
	return nil
}

// edrxActType maps a caps.RAT to AT+CEDRXS's <AcT-type> wire parameter,
// the inverse of cedrxpActTypeToRAT's +CEDRXP decode for the two RATs
// this module can request eDRX for (Cat-M1, NB1), which map to their own
// distinct E-UTRAN AcT-type codes; LTE shares Cat-M1's code, UTRAN maps
// to 3, and everything else falls back to the GERAN code 2.
func edrxActType(rat caps.RAT) int {
	switch rat {
	case caps.RatCatM1, caps.RatLTE:
		return 4
	case caps.RatNB1:
		return 6
	case caps.RatUTRAN:
		return 3
	default:
		return 2
	}
}

// edrxBits renders a 4-bit eDRX value as its zero-padded binary string
// parameter (AT+CEDRXS's e-drx-value is a fixed 4-bit field, so "5" must
// be sent as "0101", not "101").
func edrxBits(value int) string {
	return fmt.Sprintf("%04b", value&0xF)
}

// reenableSaraR4EDRX re-sends AT+CEDRXS for every RAT SleepContext
// records as currently having eDRX requested (spec §4.4 "SARA-R4 only:
// re-enable the +CEDRXP URC for each RAT that currently has eDRX
// requested"). Best-effort: a single RAT failing does not abort the rest.
func (c *CellInstance) reenableSaraR4EDRX() {
	if c.cap.Kind != caps.SaraR4 {
		return
	}
	sc := c.ensureSleepContext()
	c.mu.Lock()
	requested := make(map[caps.RAT]EDRXRequest, len(sc.EDRXRequested))
	for rat, req := range sc.EDRXRequested {
		requested[rat] = req
	}
	c.mu.Unlock()
	for rat, req := range requested {
		_ = c.setEDRXLocked(rat, true, req.Seconds, req.PagingWindowSeconds)
	}
}

// handleCEDRXP decodes `+CEDRXP: <AcT-type>,<Requested-eDRX>,
// <Assigned-eDRX>,<Assigned-Paging-Time-Window>` and re-posts it via a
// deferred callback (spec §4.4 "+CEDRXP URC delivers requested/assigned
// eDRX and assigned paging-window; it is re-posted via a deferred
// callback").
func (c *CellInstance) handleCEDRXP(line string) {
	if c.metrics != nil {
		c.metrics.RecordURC()
	}
	rest := strings.TrimSpace(strings.TrimPrefix(line, "+CEDRXP:"))
	fields := strings.Split(rest, ",")
	if len(fields) < 4 {
		return
	}
	actType, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return
	}
	rat := cedrxpActTypeToRAT(actType)

	requestedBits := unquoteField(fields[1])
	assignedBits := unquoteField(fields[2])
	pagingRaw, err := strconv.ParseInt(unquoteField(fields[3]), 2, 16)
	if err != nil {
		return
	}

	requestedValue, rErr := parseBinaryField(requestedBits)
	assignedValue, aErr := parseBinaryField(assignedBits)
	if rErr != nil || aErr != nil {
		return
	}

	requestedSeconds, _ := psm.DecodeEDRX(rat, requestedValue)
	assignedSeconds, _ := psm.DecodeEDRX(rat, assignedValue)
	pagingMs := psm.DecodePagingTimeWindow(rat, int(pagingRaw))

	sc := c.ensureSleepContext()
	c.mu.Lock()
	fn, ctx := sc.OnEDRXUpdate, sc.OnEDRXCtx
	c.mu.Unlock()
	if fn != nil {
		c.client.Callback(func(interface{}) {
			fn(ctx, rat, true, requestedSeconds, assignedSeconds, pagingMs)
		}, nil)
	}
}

func parseBinaryField(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, newError("handleCEDRXP", ErrAtError, "empty eDRX field")
	}
	v, err := strconv.ParseInt(s, 2, 16)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// cedrxpActTypeToRAT maps +CEDRXP's <AcT-type> enumeration (3GPP TS
// 27.007 10.1.54) to the subset of RATs this module cares about.
func cedrxpActTypeToRAT(actType int) caps.RAT {
	switch actType {
	case 4, 5:
		return caps.RatCatM1
	case 6:
		return caps.RatNB1
	case 1, 2, 3:
		return caps.RatGPRS
	default:
		return caps.RatGPRS
	}
}
