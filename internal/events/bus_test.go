package events

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/standardbeagle/i18nsync/internal/types"
)

func TestBus_PublishInSubscriptionOrder(t *testing.T) {
	bus := NewBus()
	var order []string
	bus.Subscribe(func(Event) { order = append(order, "first") }, nil)
	bus.Subscribe(func(Event) { order = append(order, "second") }, nil)

	bus.Publish(Set{KeyPath: "a", Language: "en", Value: types.StringValue("x")})

	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, uint64(1), bus.Stats().Published)
	assert.Equal(t, uint64(2), bus.Stats().Delivered)
}

func TestBus_Filter(t *testing.T) {
	bus := NewBus()
	var got []Kind
	bus.Subscribe(func(e Event) { got = append(got, e.Kind()) }, Kinds(KindSet, KindDelete))

	bus.Publish(Set{KeyPath: "a"})
	bus.Publish(Clear{})
	bus.Publish(Delete{KeyPath: "a"})
	bus.Publish(FileProcessed{Type: FileChange})

	assert.Equal(t, []Kind{KindSet, KindDelete}, got)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()
	calls := 0
	unsubscribe := bus.Subscribe(func(Event) { calls++ }, nil)

	bus.Publish(Clear{})
	unsubscribe()
	unsubscribe() // idempotent
	bus.Publish(Clear{})

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, bus.SubscriberCount())
}

func TestBus_HandlerPanicIsContained(t *testing.T) {
	bus := NewBus()
	reached := false
	bus.Subscribe(func(Event) { panic("boom") }, nil)
	bus.Subscribe(func(Event) { reached = true }, nil)

	assert.NotPanics(t, func() { bus.Publish(Ready{}) })
	assert.True(t, reached, "later subscribers still receive the event")
	assert.Equal(t, uint64(1), bus.Stats().Panics)
}

func TestBus_ExhaustiveSwitch(t *testing.T) {
	all := []Event{Set{}, Delete{}, Clear{}, BatchUpdate{}, FileProcessed{}, WatchError{}, Ready{}}
	for _, e := range all {
		var name string
		switch ev := e.(type) {
		case Set:
			name = "set"
		case Delete:
			name = "delete"
		case Clear:
			name = "clear"
		case BatchUpdate:
			name = "batchUpdate"
		case FileProcessed:
			name = "fileProcessed"
		case WatchError:
			name = "error"
		case Ready:
			name = "ready"
		default:
			t.Fatalf("unhandled event %T", ev)
		}
		assert.Equal(t, name, e.Kind().String())
	}
}

func TestBus_ConcurrentPublishAndSubscribe(t *testing.T) {
	bus := NewBus()
	var mu sync.Mutex
	count := 0
	bus.Subscribe(func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			bus.Publish(Clear{})
		}()
		go func() {
			defer wg.Done()
			unsub := bus.Subscribe(func(Event) {}, nil)
			unsub()
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, count)
}
