package eventloop

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoSerializes(t *testing.T) {
	loop := New()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			loop.Do(func() { counter++ })
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

func TestTimerFires(t *testing.T) {
	loop := New()
	fired := make(chan struct{})

	timer := loop.After(10*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}

	loop.Do(func() {
		assert.True(t, timer.Fired())
	})
}

func TestTimerStopSuppressesCallback(t *testing.T) {
	loop := New()
	fired := false

	var timer *Timer
	loop.Do(func() {
		timer = loop.After(20*time.Millisecond, func() { fired = true })
		timer.Stop()
	})

	time.Sleep(50 * time.Millisecond)
	loop.Do(func() {
		require.False(t, fired)
		assert.False(t, timer.Fired())
	})
}

// Stopping after the callback ran is harmless.
func TestTimerStopAfterFire(t *testing.T) {
	loop := New()
	fired := make(chan struct{})
	timer := loop.After(5*time.Millisecond, func() { close(fired) })

	<-fired
	loop.Do(func() { timer.Stop() })
}
