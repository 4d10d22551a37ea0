package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddGetRemove(t *testing.T) {
	h := Add("instance-a")
	defer Remove(h)

	v, ok := Get(h)
	require.True(t, ok)
	require.Equal(t, "instance-a", v)

	Remove(h)
	_, ok = Get(h)
	require.False(t, ok)
}

func TestHandlesAreUnique(t *testing.T) {
	a := Add("a")
	b := Add("b")
	defer Remove(a)
	defer Remove(b)
	require.NotEqual(t, a, b)
}

func TestConcurrentAddRemove(t *testing.T) {
	before := Count()
	var wg sync.WaitGroup
	handles := make(chan Handle, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handles <- Add(i)
		}(i)
	}
	wg.Wait()
	close(handles)

	require.Equal(t, before+50, Count())
	for h := range handles {
		Remove(h)
	}
	require.Equal(t, before, Count())
}

func TestMustGetPanicsOnUnknownHandle(t *testing.T) {
	require.Panics(t, func() {
		MustGet(Handle(999999))
	})
}
