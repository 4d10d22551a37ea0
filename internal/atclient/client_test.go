package atclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBasicCommandResponse(t *testing.T) {
	port := newLoopbackPort()
	c := New(port, 256, nil)
	defer c.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		require.Equal(t, "AT+CFUN?", port.readLineFromClient())
		port.sendFromModem("+CFUN: 1")
		port.sendFromModem("OK")
	}()

	c.Lock()
	require.NoError(t, c.CommandStart("AT+CFUN?"))
	require.NoError(t, c.CommandStop())
	require.NoError(t, c.ResponseStart("+CFUN:"))
	mode, err := c.ReadInt()
	require.NoError(t, err)
	require.Equal(t, 1, mode)
	require.NoError(t, c.ResponseStop())
	require.NoError(t, c.Unlock(nil))

	<-done
}

func TestDeviceErrorSurfaces(t *testing.T) {
	port := newLoopbackPort()
	c := New(port, 256, nil)
	defer c.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		require.Equal(t, "AT+CFUN=1", port.readLineFromClient())
		port.sendFromModem("+CME ERROR: 10")
	}()

	c.Lock()
	require.NoError(t, c.CommandStart("AT+CFUN"))
	require.NoError(t, c.WriteInt(1))
	require.NoError(t, c.CommandStop())
	err := c.ResponseStop()
	require.Error(t, err)
	st, ok := err.(*Status)
	require.True(t, ok)
	require.Equal(t, KindDeviceError, st.Kind)
	require.Equal(t, 10, st.Device.Code)
	require.NotNil(t, c.DeviceErrorGet())
	c.Unlock(err)

	<-done
}

func TestURCDeliveredOutsideTransaction(t *testing.T) {
	port := newLoopbackPort()
	c := New(port, 256, nil)
	defer c.Close()

	received := make(chan string, 1)
	c.SetURCHandler("+UUPSMR:", func(ctx interface{}, line string) {
		received <- line
	}, nil)

	port.sendFromModem("+UUPSMR: 1")

	select {
	case line := <-received:
		require.Equal(t, "+UUPSMR: 1", line)
	case <-time.After(2 * time.Second):
		t.Fatal("URC was not delivered")
	}
}

func TestURCDeliveredDuringTransaction(t *testing.T) {
	port := newLoopbackPort()
	c := New(port, 256, nil)
	defer c.Close()

	received := make(chan string, 1)
	c.SetURCHandler("+CEDRXP:", func(ctx interface{}, line string) {
		received <- line
	}, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		require.Equal(t, "AT+UMNOPROF?", port.readLineFromClient())
		port.sendFromModem("+CEDRXP: 4,1,1,\"0101\"")
		port.sendFromModem("+UMNOPROF: 1")
		port.sendFromModem("OK")
	}()

	c.Lock()
	require.NoError(t, c.CommandStart("AT+UMNOPROF?"))
	require.NoError(t, c.CommandStop())
	require.NoError(t, c.ResponseStart("+UMNOPROF:"))
	profile, err := c.ReadInt()
	require.NoError(t, err)
	require.Equal(t, 1, profile)
	require.NoError(t, c.ResponseStop())
	require.NoError(t, c.Unlock(nil))

	<-done
	select {
	case line := <-received:
		require.Equal(t, `+CEDRXP: 4,1,1,"0101"`, line)
	case <-time.After(2 * time.Second):
		t.Fatal("URC interleaved in a response block was not delivered")
	}
}

func TestTimeoutWhenNoResponse(t *testing.T) {
	port := newLoopbackPort()
	c := New(port, 256, nil)
	defer c.Close()

	go port.readLineFromClient()

	c.Lock()
	c.SetTimeout(30 * time.Millisecond)
	require.NoError(t, c.CommandStart("AT"))
	require.NoError(t, c.CommandStop())
	err := c.ResponseStop()
	require.Error(t, err)
	st := err.(*Status)
	require.Equal(t, KindTimeout, st.Kind)
	c.Unlock(err)
}

func TestCallbackRunsOnWorker(t *testing.T) {
	port := newLoopbackPort()
	c := New(port, 256, nil)
	defer c.Close()

	done := make(chan struct{})
	c.Callback(func(ctx interface{}) {
		close(done)
	}, nil)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("deferred callback never ran")
	}
}
