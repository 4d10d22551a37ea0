package ubxmodem

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ubxmodem/ubxmodem/internal/atclient"
	"github.com/ubxmodem/ubxmodem/internal/caps"
)

// TestSetPSMWireFormat exercises spec §8 scenario 2: active=10s encodes
// to the x2s unit with count 5 ("00000101"), periodic=600s encodes to
// the x30s unit with count 20 ("10010100") -- see DESIGN.md's note on
// the scenario text's own transposed literal vs. its narrated values.
func TestSetPSMWireFormat(t *testing.T) {
	port := NewMockPort()
	var lastCPSMS string
	port.Responder = func(p *MockPort, line string) {
		if len(line) >= 8 && line[:8] == "AT+CPSMS" {
			lastCPSMS = line
		}
		p.Reply("OK")
	}
	client := atclient.New(port, 256, nil)
	defer client.Close()

	h, err := Add(caps.SaraR5, client, PinSet{}, false, nil)
	require.NoError(t, err)
	defer Remove(h)
	inst, _ := Get(h)

	require.NoError(t, inst.SetPSM(true, 10, 600))
	require.Equal(t, `AT+CPSMS=1,,,"10010100","00000101"`, lastCPSMS)
}

// TestPSMRoundTripViaUCPSMSQuery exercises the getter half of scenario 2:
// AT+UCPSMS? reporting the same IE strings decodes back to the original
// seconds.
func TestPSMRoundTripViaUCPSMSQuery(t *testing.T) {
	port := NewMockPort()
	port.Responder = func(p *MockPort, line string) {
		if line == "AT+UCPSMS?" {
			p.ReplyLines(`+UCPSMS: 1,,,"10010100","00000101"`, "OK")
			return
		}
		p.Reply("OK")
	}
	client := atclient.New(port, 256, nil)
	defer client.Close()

	h, err := Add(caps.SaraR5, client, PinSet{}, false, nil)
	require.NoError(t, err)
	defer Remove(h)
	inst, _ := Get(h)

	inst.refreshPSMState()
	sc := inst.ensureSleepContext()
	require.Equal(t, 10, sc.ActiveTimeSecondsCereg)
	require.Equal(t, 600, sc.PeriodicWakeupSecondsCereg)
	require.True(t, sc.PowerSaving3gppAgreed)
}

// TestSetEDRXWireFormat exercises spec §8 scenario 3: 82s on Cat-M1
// encodes to 4-bit value 0b0101 (5, the table entry for 82s), AcT-type 4
// (the E-UTRAN WB-S1 code cedrxpActTypeToRAT decodes back to Cat-M1),
// and a requested 2.56s paging window on a module with
// FeatureSupportsPagingWindowSet encodes to 4-bit value 1 (the smallest
// value whose decoded window, (v+1)*1.28s, is >= 2.56s).
func TestSetEDRXWireFormat(t *testing.T) {
	port := NewMockPort()
	var lastCEDRXS string
	port.Responder = func(p *MockPort, line string) {
		if len(line) >= 9 && line[:9] == "AT+CEDRXS" {
			lastCEDRXS = line
		}
		p.Reply("OK")
	}
	client := atclient.New(port, 256, nil)
	defer client.Close()

	h, err := Add(caps.SaraR5, client, PinSet{}, false, nil)
	require.NoError(t, err)
	defer Remove(h)
	inst, _ := Get(h)

	require.NoError(t, inst.SetEDRX(caps.RatCatM1, true, 82, 2.56))
	require.Equal(t, `AT+CEDRXS=2,4,"0101","0001"`, lastCEDRXS)
}

func TestSetEDRXDisable(t *testing.T) {
	port := NewMockPort()
	var lastCEDRXS string
	port.Responder = func(p *MockPort, line string) {
		if len(line) >= 9 && line[:9] == "AT+CEDRXS" {
			lastCEDRXS = line
		}
		p.Reply("OK")
	}
	client := atclient.New(port, 256, nil)
	defer client.Close()

	h, err := Add(caps.SaraR5, client, PinSet{}, false, nil)
	require.NoError(t, err)
	defer Remove(h)
	inst, _ := Get(h)

	require.NoError(t, inst.SetEDRX(caps.RatCatM1, false, 0, 0))
	require.Equal(t, `AT+CEDRXS=0,4`, lastCEDRXS)
}
