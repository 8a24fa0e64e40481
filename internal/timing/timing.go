// Package timing holds the debounce, throttle and sleep helpers used to
// pace automatic refreshes.
package timing

import (
	"context"
	"sync"
	"time"
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the real SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Debouncer runs fn once after calls to Trigger stop arriving for delay.
type Debouncer struct {
	delay time.Duration
	fn    func()

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// NewDebouncer creates a debouncer. fn runs on its own goroutine.
func NewDebouncer(delay time.Duration, fn func()) *Debouncer {
	return &Debouncer{delay: delay, fn: fn}
}

// Trigger (re)starts the quiet period.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fn)
}

// Stop cancels a pending run and ignores later triggers.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Throttler runs fn at most once at a time. Triggers that arrive while fn
// is running collapse into a single follow-up run.
type Throttler struct {
	fn func()

	mu      sync.Mutex
	running bool
	pending bool
	stopped bool
	idle    *sync.Cond
}

// NewThrottler creates a throttler. fn runs on its own goroutine.
func NewThrottler(fn func()) *Throttler {
	t := &Throttler{fn: fn}
	t.idle = sync.NewCond(&t.mu)
	return t
}

// Trigger schedules a run.
func (t *Throttler) Trigger() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	if t.running {
		t.pending = true
		return
	}
	t.running = true
	go t.loop()
}

func (t *Throttler) loop() {
	for {
		t.fn()

		t.mu.Lock()
		if !t.pending || t.stopped {
			t.running = false
			t.pending = false
			t.idle.Broadcast()
			t.mu.Unlock()
			return
		}
		t.pending = false
		t.mu.Unlock()
	}
}

// Running reports whether fn is currently executing or queued.
func (t *Throttler) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Wait blocks until no run is in progress.
func (t *Throttler) Wait() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for t.running {
		t.idle.Wait()
	}
}

// Stop drops a queued follow-up and ignores later triggers. A run in
// progress is not interrupted.
func (t *Throttler) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	t.pending = false
}
