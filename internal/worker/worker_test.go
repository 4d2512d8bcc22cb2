package worker

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPool(t *testing.T) {
	p := NewPool(3)
	var mu sync.Mutex
	count := 0
	for i := 0; i < 50; i++ {
		require.True(t, p.Submit(func() {
			mu.Lock()
			count++
			mu.Unlock()
		}))
	}
	p.Stop()
	require.Equal(t, 50, count)
}

func TestPoolDefaultsAndNil(t *testing.T) {
	p := NewPool(0)
	var n atomic.Int32
	require.True(t, p.Submit(nil))
	require.True(t, p.Submit(func() { n.Add(1) }))
	p.Stop()
	require.EqualValues(t, 1, n.Load())
}

func TestPoolRecoversPanic(t *testing.T) {
	p := NewPool(1)
	var n atomic.Int32
	p.Submit(func() { panic("boom") })
	p.Submit(func() { n.Add(1) })
	p.Stop()
	require.EqualValues(t, 1, n.Load())
}

func TestPoolStopTwiceAndSubmitAfterStop(t *testing.T) {
	p := NewPool(2)
	p.Stop()
	p.Stop()
	require.False(t, p.Submit(func() { t.Fatal("should not run") }))
}
