package events

import (
	"log"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
)

// Handler receives published events
type Handler func(Event)

// Filter selects which kinds a subscription receives; nil receives everything
type Filter func(Kind) bool

// Kinds builds a Filter accepting only the listed kinds
func Kinds(kinds ...Kind) Filter {
	set := make(map[Kind]struct{}, len(kinds))
	for _, k := range kinds {
		set[k] = struct{}{}
	}
	return func(k Kind) bool {
		_, ok := set[k]
		return ok
	}
}

type subscription struct {
	id      uint64
	handler Handler
	filter  Filter
}

// Bus delivers events synchronously, in subscription order, on the publisher's goroutine.
// A panicking handler is recovered and logged so it cannot break the publisher.
type Bus struct {
	mu     sync.RWMutex
	subs   map[uint64]*subscription
	nextID uint64

	published atomic.Uint64
	delivered atomic.Uint64
	panics    atomic.Uint64
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{subs: make(map[uint64]*subscription)}
}

// Subscribe registers handler and returns a function that removes it.
// The returned function is safe to call more than once.
func (b *Bus) Subscribe(handler Handler, filter Filter) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[id] = &subscription{id: id, handler: handler, filter: filter}
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers e to every matching subscriber before returning
func (b *Bus) Publish(e Event) {
	if b == nil || e == nil {
		return
	}
	b.published.Add(1)

	b.mu.RLock()
	subs := make([]*subscription, 0, len(b.subs))
	for _, s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	sort.Slice(subs, func(i, j int) bool { return subs[i].id < subs[j].id })

	kind := e.Kind()
	for _, s := range subs {
		if s.filter != nil && !s.filter(kind) {
			continue
		}
		b.deliver(s, e)
	}
}

func (b *Bus) deliver(s *subscription, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.panics.Add(1)
			log.Printf("event handler panic on %s: %v\n%s", e.Kind(), r, debug.Stack())
		}
	}()
	s.handler(e)
	b.delivered.Add(1)
}

// SubscriberCount returns the number of active subscriptions
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// BusStats contains delivery counters
type BusStats struct {
	Published uint64
	Delivered uint64
	Panics    uint64
}

// Stats returns delivery counters
func (b *Bus) Stats() BusStats {
	return BusStats{
		Published: b.published.Load(),
		Delivered: b.delivered.Load(),
		Panics:    b.panics.Load(),
	}
}
