package ubxmodem

import (
	"strconv"
	"strings"

	"github.com/ubxmodem/ubxmodem/internal/psm"
)

// installCoreURCHandlers wires the AT client's URC registry to this
// instance's cached state: +UUPSMR for deep-sleep tracking (spec §4.4
// "Deep-sleep tracking") and +CEREG for PSM negotiation (spec §9 Open
// Question (b), resolved in DESIGN.md). Safe to call more than once;
// the underlying registry just overwrites the same prefixes.
func (c *CellInstance) installCoreURCHandlers() {
	c.client.SetURCHandler("+UUPSMR:", func(ctx interface{}, line string) {
		c.handleUUPSMR(line)
	}, nil)
	c.client.SetURCHandler("+CEREG:", func(ctx interface{}, line string) {
		c.handleCEREG(line)
	}, nil)
	c.client.SetURCHandler("+CEDRXP:", func(ctx interface{}, line string) {
		c.handleCEDRXP(line)
	}, nil)
}

// handleUUPSMR decodes `+UUPSMR: <v>[,<blocker>]`. v=0 is a wake
// notification and is ignored; v=1 means the protocol stack went to
// sleep; v=2 means sleep was blocked and blocker identifies why.
func (c *CellInstance) handleUUPSMR(line string) {
	rest := strings.TrimSpace(strings.TrimPrefix(line, "+UUPSMR:"))
	fields := strings.Split(rest, ",")
	if len(fields) == 0 {
		return
	}
	v, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return
	}
	switch v {
	case 0:
		// Waking; power_on handles the Asleep -> Unknown transition.
	case 1:
		c.setDeepSleepState(DeepSleepProtocolStackAsleep)
	case 2:
		blocker := 0
		if len(fields) > 1 {
			blocker, _ = strconv.Atoi(strings.TrimSpace(fields[1]))
		}
		c.mu.Lock()
		c.deepSleepBlocker = blocker
		c.mu.Unlock()
	}
	if c.metrics != nil {
		c.metrics.RecordURC()
	}
}

// handleCEREG decodes `+CEREG: <stat>[,[<tac>],[<ci>],[<AcT>],[<RAC>],
// [<cause_type>],[<reject_cause>],[<Active-Time>],[<Periodic-TAU>]]`.
// Only the optional trailing Active-Time/Periodic-TAU IEs (present when
// the UE has URC mode 4/5 enabled) are consumed here; everything else is
// the caller's concern.
func (c *CellInstance) handleCEREG(line string) {
	if c.metrics != nil {
		c.metrics.RecordURC()
	}
	rest := strings.TrimSpace(strings.TrimPrefix(line, "+CEREG:"))
	fields := strings.Split(rest, ",")
	if len(fields) < 8 {
		return
	}
	activeIE := unquoteField(fields[len(fields)-2])
	periodicIE := unquoteField(fields[len(fields)-1])
	if activeIE == "" || periodicIE == "" {
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
	c.mu.Unlock()
}

func unquoteField(s string) string {
	s = strings.TrimSpace(s)
	return strings.Trim(s, `"`)
}
