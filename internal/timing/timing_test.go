package timing

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSleep(t *testing.T) {
	require.NoError(t, Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
}

func TestDebouncer_CollapsesBurst(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(30*time.Millisecond, func() { calls.Add(1) })

	for i := 0; i < 10; i++ {
		d.Trigger()
		time.Sleep(2 * time.Millisecond)
	}

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDebouncer_Stop(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(10*time.Millisecond, func() { calls.Add(1) })
	d.Trigger()
	d.Stop()
	d.Trigger()

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestThrottler_CoalescesWhileRunning(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	th := NewThrottler(func() {
		calls.Add(1)
		<-release
	})

	th.Trigger()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	th.Trigger()
	th.Trigger()
	th.Trigger()
	assert.True(t, th.Running())

	close(release)
	th.Wait()

	assert.Equal(t, int32(2), calls.Load())
	assert.False(t, th.Running())
}

func TestThrottler_Stop(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	th := NewThrottler(func() {
		calls.Add(1)
		<-release
	})

	th.Trigger()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	th.Trigger()
	th.Stop()
	close(release)
	th.Wait()

	th.Trigger()
	assert.Equal(t, int32(1), calls.Load())
}
