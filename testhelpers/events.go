package testhelpers

import (
	"sync"
	"testing"
	"time"

	"github.com/standardbeagle/i18nsync/internal/events"
)

// EventRecorder captures events published on a bus so tests can synchronize
// on them instead of sleeping
type EventRecorder struct {
	mu     sync.Mutex
	events []events.Event
	unsub  func()
}

// RecordEvents subscribes to bus for the duration of the test.
// With no kinds every event is recorded.
func RecordEvents(t *testing.T, bus *events.Bus, kinds ...events.Kind) *EventRecorder {
	t.Helper()

	r := &EventRecorder{}
	var filter events.Filter
	if len(kinds) > 0 {
		filter = events.Kinds(kinds...)
	}
	r.unsub = bus.Subscribe(func(e events.Event) {
		r.mu.Lock()
		r.events = append(r.events, e)
		r.mu.Unlock()
	}, filter)
	t.Cleanup(r.unsub)
	return r
}

// Events returns a copy of everything recorded so far
func (r *EventRecorder) Events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

// Count returns how many events of kind were recorded
func (r *EventRecorder) Count(kind events.Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind() == kind {
			n++
		}
	}
	return n
}

// Last returns the most recent event of kind
func (r *EventRecorder) Last(kind events.Kind) (events.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Kind() == kind {
			return r.events[i], true
		}
	}
	return nil, false
}

// WaitForCount blocks until at least n events of kind were recorded
func (r *EventRecorder) WaitForCount(t *testing.T, kind events.Kind, n int, timeout time.Duration) {
	t.Helper()
	WaitFor(t, func() bool { return r.Count(kind) >= n }, timeout)
}

// Reset drops recorded events
func (r *EventRecorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
