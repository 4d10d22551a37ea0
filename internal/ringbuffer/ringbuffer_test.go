package ringbuffer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddReadRoundTrip(t *testing.T) {
	rb := New(8)
	require.True(t, rb.Add([]byte("abcd")))
	require.Equal(t, 4, rb.DataSize())
	require.Equal(t, 4, rb.AvailableSize())

	out := make([]byte, 4)
	n := rb.Read(out)
	require.Equal(t, 4, n)
	require.Equal(t, "abcd", string(out))
	require.Equal(t, 0, rb.DataSize())
}

func TestAddAllOrNothing(t *testing.T) {
	rb := New(4)
	require.True(t, rb.Add([]byte("ab")))
	require.False(t, rb.Add([]byte("xyz"))) // would need 3, only 2 free
	require.Equal(t, 2, rb.DataSize(), "a failed Add must not partially write")

	out := make([]byte, 2)
	rb.Read(out)
	require.Equal(t, "ab", string(out))
}

func TestWrapAround(t *testing.T) {
	rb := New(4)
	require.True(t, rb.Add([]byte("ab")))
	out := make([]byte, 1)
	rb.Read(out)
	require.Equal(t, "a", string(out))

	// write_idx is now ahead of read_idx; this write must wrap.
	require.True(t, rb.Add([]byte("cde")))
	buf := make([]byte, 4)
	n := rb.Read(buf)
	require.Equal(t, 4, n)
	require.Equal(t, "bcde", string(buf))
}

func TestReadPartialWhenShortOfData(t *testing.T) {
	rb := New(8)
	rb.Add([]byte("xy"))
	out := make([]byte, 5)
	n := rb.Read(out)
	require.Equal(t, 2, n)
	require.Equal(t, "xy", string(out[:n]))
}

func TestReset(t *testing.T) {
	rb := New(4)
	rb.Add([]byte("ab"))
	rb.Reset()
	require.Equal(t, 0, rb.DataSize())
	require.Equal(t, 4, rb.AvailableSize())
	require.True(t, rb.Add([]byte("wxyz")))
}

func TestPeekDoesNotConsume(t *testing.T) {
	rb := New(8)
	rb.Add([]byte("hi"))
	out := make([]byte, 2)
	n := rb.Peek(out)
	require.Equal(t, 2, n)
	require.Equal(t, 2, rb.DataSize())
}
