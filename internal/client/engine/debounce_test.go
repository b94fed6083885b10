package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncer_TrailingEdge(t *testing.T) {
	sched := &fakeScheduler{}
	d := NewDebouncer(time.Second, sched)

	var got []string
	for _, v := range []string{"a", "ab", "abc"} {
		d.Trigger(func() { got = append(got, v) })
	}
	assert.True(t, d.Pending())
	assert.Empty(t, got)

	assert.Equal(t, 1, sched.FireAll())
	assert.Equal(t, []string{"abc"}, got)
	assert.False(t, d.Pending())
}

func TestDebouncer_Cancel(t *testing.T) {
	sched := &fakeScheduler{}
	d := NewDebouncer(time.Second, sched)

	ran := false
	d.Trigger(func() { ran = true })
	assert.True(t, d.Cancel())
	assert.False(t, d.Cancel())

	sched.FireAll()
	assert.False(t, ran)
}

func TestDebouncer_Flush(t *testing.T) {
	sched := &fakeScheduler{}
	d := NewDebouncer(time.Second, sched)

	assert.False(t, d.Flush())

	runs := 0
	d.Trigger(func() { runs++ })
	assert.True(t, d.Flush())
	assert.Equal(t, 1, runs)

	// The timer that was pending is dead now.
	sched.FireAll()
	assert.Equal(t, 1, runs)
}

func TestDebouncer_StaleTimerIgnored(t *testing.T) {
	var captured []func()
	sched := schedulerFunc(func(f func()) { captured = append(captured, f) })
	d := NewDebouncer(time.Second, sched)

	var got []int
	d.Trigger(func() { got = append(got, 1) })
	d.Trigger(func() { got = append(got, 2) })

	// A superseded timer that fires anyway must not run anything.
	captured[0]()
	assert.Empty(t, got)
	captured[1]()
	assert.Equal(t, []int{2}, got)
}

func TestDebouncer_RealTime(t *testing.T) {
	d := NewDebouncer(10*time.Millisecond, nil)
	done := make(chan struct{})
	d.Trigger(func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("debounced call did not run")
	}
}

type schedulerFunc func(f func())

type nopTimer struct{}

func (nopTimer) Stop() bool { return true }

func (s schedulerFunc) AfterFunc(_ time.Duration, f func()) Timer {
	s(f)
	return nopTimer{}
}
