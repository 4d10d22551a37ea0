package ubxmodem

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ubxmodem/ubxmodem/internal/atclient"
	"github.com/ubxmodem/ubxmodem/internal/caps"
	"github.com/ubxmodem/ubxmodem/internal/registry"
)

func TestAddRemoveLeavesNoLeak(t *testing.T) {
	before := registry.Count()

	port := NewMockPort()
	port.Responder = func(p *MockPort, line string) { p.Reply("OK") }
	client := atclient.New(port, 256, nil)

	h, err := Add(caps.SaraU201, client, PinSet{}, false, nil)
	require.NoError(t, err)
	require.Equal(t, before+1, registry.Count())

	require.NoError(t, Remove(h))
	require.Equal(t, before, registry.Count())

	_, ok := Get(h)
	require.False(t, ok)
}

func TestAddUnknownKindFails(t *testing.T) {
	_, err := Add(caps.Kind(999), nil, PinSet{}, false, nil)
	require.Error(t, err)
	ae, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, ErrInvalidParameter, ae.Kind)
}

func TestDeepSleepStateTransitionsOnUUPSMR(t *testing.T) {
	port := NewMockPort()
	port.Responder = func(p *MockPort, line string) {
		if line == "AT+UPSMR=1" {
			p.Reply("OK")
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
	require.Equal(t, DeepSleepUnknown, inst.DeepSleepState())

	inst.installCoreURCHandlers()
	port.Reply("+UUPSMR: 1")
	require.Eventually(t, func() bool {
		return inst.DeepSleepState() == DeepSleepProtocolStackAsleep
	}, time.Second, 5*time.Millisecond)
}

func TestRebootIsRequiredFlaggedBySetRAT(t *testing.T) {
	port := NewMockPort()
	port.Responder = func(p *MockPort, line string) {
		switch line {
		case "AT+URAT?":
			p.ReplyLines("+URAT: 0", "OK")
		default:
			p.Reply("OK")
		}
	}
	client := atclient.New(port, 256, nil)
	defer client.Close()

	h, err := Add(caps.LaraR6, client, PinSet{}, false, nil)
	require.NoError(t, err)
	defer Remove(h)

	inst, _ := Get(h)
	require.False(t, inst.RebootIsRequired())
	require.NoError(t, inst.SetRAT(caps.RatLTE))
	require.True(t, inst.RebootIsRequired())
}
