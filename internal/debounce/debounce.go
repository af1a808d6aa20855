// Package debounce provides cancellable debounce timers. A Timer owns its
// pending fire: rescheduling restarts the window, cancelling drops it, and a
// fire that lost a race with either is discarded instead of running late.
package debounce

import (
	"sync"
	"sync/atomic"
	"time"
)

// Timer runs fn once the delay has elapsed without another Schedule
type Timer struct {
	mu      sync.Mutex
	delay   time.Duration
	fn      func()
	timer   *time.Timer
	gen     uint64
	pending bool
	stopped bool

	// running callbacks, waited on by Stop
	wg sync.WaitGroup

	fires   atomic.Uint64
	cancels atomic.Uint64
}

// New creates an idle timer. fn runs on its own goroutine and must not call Stop.
func New(delay time.Duration, fn func()) *Timer {
	return &Timer{delay: delay, fn: fn}
}

// Schedule starts or restarts the debounce window. It returns false once the
// timer has been stopped.
func (t *Timer) Schedule() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return false
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	t.gen++
	gen := t.gen
	t.pending = true
	t.timer = time.AfterFunc(t.delay, func() { t.fire(gen) })
	return true
}

func (t *Timer) fire(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || !t.pending || t.stopped {
		t.mu.Unlock()
		return
	}
	t.pending = false
	t.timer = nil
	t.wg.Add(1)
	t.mu.Unlock()

	defer t.wg.Done()
	t.fires.Add(1)
	t.fn()
}

// Cancel drops a pending fire and reports whether one was pending
func (t *Timer) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.pending {
		return false
	}
	t.cancelLocked()
	t.cancels.Add(1)
	return true
}

func (t *Timer) cancelLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.gen++
	t.pending = false
}

// Flush runs fn immediately on the caller's goroutine if a fire was pending
func (t *Timer) Flush() bool {
	t.mu.Lock()
	if !t.pending || t.stopped {
		t.mu.Unlock()
		return false
	}
	t.cancelLocked()
	t.wg.Add(1)
	t.mu.Unlock()

	defer t.wg.Done()
	t.fires.Add(1)
	t.fn()
	return true
}

// Pending reports whether a fire is scheduled
func (t *Timer) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending
}

// SetDelay changes the window used by later Schedule calls
func (t *Timer) SetDelay(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.delay = d
}

// Stop cancels any pending fire, waits for a running fn to return and makes
// later Schedule calls no-ops. It is safe to call more than once.
func (t *Timer) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.cancelLocked()
	t.mu.Unlock()

	t.wg.Wait()
}

// Stats contains fire and cancel counters
type Stats struct {
	Fires   uint64
	Cancels uint64
}

// Stats returns counters
func (t *Timer) Stats() Stats {
	return Stats{Fires: t.fires.Load(), Cancels: t.cancels.Load()}
}

// Keyed debounces independently per key, e.g. one window per file path
type Keyed struct {
	mu      sync.Mutex
	delay   time.Duration
	fn      func(key string)
	timers  map[string]*Timer
	stopped bool
}

// NewKeyed creates a per-key debouncer; fn receives the key whose window elapsed
func NewKeyed(delay time.Duration, fn func(key string)) *Keyed {
	return &Keyed{delay: delay, fn: fn, timers: make(map[string]*Timer)}
}

// Schedule starts or restarts the window for key
func (k *Keyed) Schedule(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.stopped {
		return false
	}
	t, ok := k.timers[key]
	if !ok {
		var self *Timer
		self = New(k.delay, func() {
			k.fn(key)
			k.release(key, self)
		})
		t = self
		k.timers[key] = t
	}
	return t.Schedule()
}

func (k *Keyed) release(key string, t *Timer) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.timers[key] == t && !t.Pending() {
		delete(k.timers, key)
	}
}

// Cancel drops the pending fire for key
func (k *Keyed) Cancel(key string) bool {
	k.mu.Lock()
	t, ok := k.timers[key]
	if ok {
		delete(k.timers, key)
	}
	k.mu.Unlock()

	if !ok {
		return false
	}
	return t.Cancel()
}

// Pending returns the number of keys with a scheduled fire
func (k *Keyed) Pending() int {
	k.mu.Lock()
	timers := make([]*Timer, 0, len(k.timers))
	for _, t := range k.timers {
		timers = append(timers, t)
	}
	k.mu.Unlock()

	n := 0
	for _, t := range timers {
		if t.Pending() {
			n++
		}
	}
	return n
}

// Stop cancels every pending fire and waits for running callbacks
func (k *Keyed) Stop() {
	k.mu.Lock()
	k.stopped = true
	timers := k.timers
	k.timers = make(map[string]*Timer)
	k.mu.Unlock()

	for _, t := range timers {
		t.Stop()
	}
}
