package gpio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ubxmodem/ubxmodem/internal/interfaces"
)

func TestMockPinSetGet(t *testing.T) {
	p := NewMockPin()
	require.NoError(t, p.Configure(interfaces.DirectionOutput, interfaces.ActiveHigh, false))

	active, err := p.Get()
	require.NoError(t, err)
	require.False(t, active)

	require.NoError(t, p.Set(true))
	active, err = p.Get()
	require.NoError(t, err)
	require.True(t, active)
}

func TestMockPinWaitEdgeTimesOut(t *testing.T) {
	p := NewMockPin()
	require.NoError(t, p.Configure(interfaces.DirectionInput, interfaces.ActiveHigh, false))

	ok, err := p.WaitEdge(true, 20*time.Millisecond)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMockPinWaitEdgeSucceedsOnChange(t *testing.T) {
	p := NewMockPin()
	require.NoError(t, p.Configure(interfaces.DirectionInput, interfaces.ActiveHigh, false))

	go func() {
		time.Sleep(10 * time.Millisecond)
		p.SetFromTest(true)
	}()

	ok, err := p.WaitEdge(true, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
}
