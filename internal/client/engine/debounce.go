package engine

import (
	"sync"
	"time"
)

// Timer is a pending scheduled call.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d. The default uses time.AfterFunc.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Debouncer collapses bursts of Trigger calls into a single call of the last
// function passed, run once delay has elapsed without a new Trigger.
type Debouncer struct {
	delay time.Duration
	sched Scheduler

	mu    sync.Mutex
	fn    func()
	timer Timer
	// gen invalidates timers that fired after being superseded.
	gen uint64
}

// NewDebouncer returns a trailing-edge Debouncer. A nil sched means real time.
func NewDebouncer(delay time.Duration, sched Scheduler) *Debouncer {
	if sched == nil {
		sched = realScheduler{}
	}
	return &Debouncer{delay: delay, sched: sched}
}

// Trigger cancels any pending call and schedules fn.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.fn = fn
	d.timer = d.sched.AfterFunc(d.delay, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.fn == nil {
		d.mu.Unlock()
		return
	}
	fn := d.take()
	d.mu.Unlock()
	fn()
}

// take clears the pending call and returns it. d.mu must be held.
func (d *Debouncer) take() func() {
	fn := d.fn
	d.fn = nil
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	return fn
}

// Cancel drops the pending call, reporting whether there was one.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fn == nil {
		return false
	}
	d.take()
	return true
}

// Flush runs the pending call now, on the caller's goroutine, reporting
// whether there was one.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	if d.fn == nil {
		d.mu.Unlock()
		return false
	}
	fn := d.take()
	d.mu.Unlock()
	fn()
	return true
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fn != nil
}
