package ubxmodem

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ubxmodem/ubxmodem/internal/atclient"
	"github.com/ubxmodem/ubxmodem/internal/caps"
	"github.com/ubxmodem/ubxmodem/internal/gpio"
	"github.com/ubxmodem/ubxmodem/internal/registry"
)

func TestPowerOnBasicVintAbsent(t *testing.T) {
	port := NewMockPort()
	port.Responder = func(p *MockPort, line string) {
		if strings.HasPrefix(line, "AT+UMNOPROF?") {
			p.ReplyLines("+UMNOPROF: 0", "OK")
			return
		}
		p.Reply("OK")
	}
	client := atclient.New(port, 256, nil)
	defer client.Close()

	pwrOn := gpio.NewMockPin()
	h, err := Add(caps.SaraU201, client, PinSet{PwrOn: pwrOn}, false, nil)
	require.NoError(t, err)
	defer Remove(h)

	require.NoError(t, PowerOn(h, false, nil))

	lines := port.TransmittedLines()
	require.Contains(t, lines, "AT")
	require.Contains(t, lines, "ATE0")
}

func TestPowerOnSkipsHardwareToggleWhenVintAsserted(t *testing.T) {
	port := NewMockPort()
	port.Responder = func(p *MockPort, line string) {
		if strings.HasPrefix(line, "AT+UMNOPROF?") {
			p.ReplyLines("+UMNOPROF: 0", "OK")
			return
		}
		p.Reply("OK")
	}
	client := atclient.New(port, 256, nil)
	defer client.Close()

	vint := gpio.NewMockPin()
	vint.SetFromTest(true)
	pwrOn := gpio.NewMockPin()
	h, err := Add(caps.SaraR5, client, PinSet{Vint: vint, PwrOn: pwrOn}, false, nil)
	require.NoError(t, err)
	defer Remove(h)

	require.NoError(t, PowerOn(h, false, nil))

	// PWR_ON must never have been toggled: its asserted state stays false.
	active, _ := pwrOn.Get()
	require.False(t, active)
}

func TestPowerOffStopsWhenVintDeasserts(t *testing.T) {
	port := NewMockPort()
	port.Responder = func(p *MockPort, line string) { p.Reply("OK") }
	client := atclient.New(port, 256, nil)
	defer client.Close()

	vint := gpio.NewMockPin()
	vint.SetFromTest(true)
	h, err := Add(caps.SaraR5, client, PinSet{Vint: vint}, false, nil)
	require.NoError(t, err)
	defer Remove(h)

	done := make(chan error, 1)
	go func() { done <- PowerOff(h) }()

	time.Sleep(20 * time.Millisecond)
	vint.SetFromTest(false)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("PowerOff did not return after VINT deasserted")
	}
}

func TestRebootRetriesOnceOnConfigureFailure(t *testing.T) {
	port := NewMockPort()
	var ateAttempts int
	port.Responder = func(p *MockPort, line string) {
		switch {
		case line == "ATE0":
			ateAttempts++
			if ateAttempts <= 3 {
				p.Reply("ERROR")
				return
			}
			p.Reply("OK")
		case strings.HasPrefix(line, "AT+UMNOPROF?"):
			p.ReplyLines("+UMNOPROF: 0", "OK")
		default:
			p.Reply("OK")
		}
	}
	client := atclient.New(port, 256, nil)
	defer client.Close()

	vint := gpio.NewMockPin()
	pwrOn := gpio.NewMockPin()
	h, err := Add(caps.SaraR5, client, PinSet{Vint: vint, PwrOn: pwrOn}, false, nil)
	require.NoError(t, err)
	defer Remove(h)

	require.NoError(t, Reboot(h, false, nil))
	// ATE0 failed 3 times on the first configure attempt, then succeeded
	// on the retried attempt's first try.
	require.Equal(t, 4, ateAttempts)
}

func TestPowerOnCancelledByKeepGoing(t *testing.T) {
	port := NewMockPort()
	port.Responder = func(p *MockPort, line string) { p.Reply("OK") }
	client := atclient.New(port, 256, nil)
	defer client.Close()

	pwrOn := gpio.NewMockPin()
	h, err := Add(caps.SaraU201, client, PinSet{PwrOn: pwrOn}, false, nil)
	require.NoError(t, err)
	defer Remove(h)

	err = PowerOn(h, false, func(registry.Handle) bool { return false })
	require.Error(t, err)
	ae, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, ErrCancelled, ae.Kind)
}
