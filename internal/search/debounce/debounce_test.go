package debounce

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncer_OnlyLastTriggerRuns(t *testing.T) {
	d := New(50 * time.Millisecond)
	defer d.Stop()

	var calls atomic.Int32
	var last atomic.Int32
	for i := 1; i <= 5; i++ {
		d.Trigger(func() {
			calls.Add(1)
			last.Store(int32(i))
		})
		time.Sleep(10 * time.Millisecond)
	}

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(5), last.Load())

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load(), "no extra runs after the quiet period")
	assert.False(t, d.Pending())
}

func TestDebouncer_QuietPeriodRestarts(t *testing.T) {
	d := New(80 * time.Millisecond)
	defer d.Stop()

	var fired atomic.Bool
	start := time.Now()
	d.Trigger(func() {})
	time.Sleep(50 * time.Millisecond)
	d.Trigger(func() { fired.Store(true) })

	assert.Eventually(t, fired.Load, time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, time.Since(start), 130*time.Millisecond)
}

func TestDebouncer_Flush(t *testing.T) {
	d := New(time.Hour)
	defer d.Stop()

	assert.False(t, d.Flush(), "nothing pending")

	var ran bool
	d.Trigger(func() { ran = true })
	assert.True(t, d.Pending())
	assert.True(t, d.Flush())
	assert.True(t, ran)
	assert.False(t, d.Pending())
}

func TestDebouncer_Stop(t *testing.T) {
	d := New(20 * time.Millisecond)

	var calls atomic.Int32
	d.Trigger(func() { calls.Add(1) })
	d.Stop()
	d.Trigger(func() { calls.Add(1) })

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
	assert.False(t, d.Pending())
}
