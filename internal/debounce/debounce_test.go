package debounce

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestTimer_CoalescesSchedules(t *testing.T) {
	var calls atomic.Int32
	tm := New(30*time.Millisecond, func() { calls.Add(1) })
	defer tm.Stop()

	for i := 0; i < 5; i++ {
		assert.True(t, tm.Schedule())
		time.Sleep(5 * time.Millisecond)
	}
	assert.True(t, tm.Pending())

	waitFor(t, func() bool { return calls.Load() == 1 })
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, tm.Pending())
	assert.Equal(t, uint64(1), tm.Stats().Fires)
}

func TestTimer_Cancel(t *testing.T) {
	var calls atomic.Int32
	tm := New(20*time.Millisecond, func() { calls.Add(1) })
	defer tm.Stop()

	assert.False(t, tm.Cancel(), "nothing pending yet")
	tm.Schedule()
	assert.True(t, tm.Cancel())
	assert.False(t, tm.Pending())

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, uint64(1), tm.Stats().Cancels)
}

func TestTimer_Flush(t *testing.T) {
	var calls atomic.Int32
	tm := New(time.Hour, func() { calls.Add(1) })
	defer tm.Stop()

	assert.False(t, tm.Flush())
	tm.Schedule()
	assert.True(t, tm.Flush())
	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, tm.Pending())
}

func TestTimer_StopWaitsAndDisables(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool

	tm := New(time.Millisecond, func() {
		close(started)
		<-release
		finished.Store(true)
	})
	tm.Schedule()
	<-started

	done := make(chan struct{})
	go func() {
		tm.Stop()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Stop returned while the callback was running")
	case <-time.After(20 * time.Millisecond):
	}
	close(release)
	<-done

	assert.True(t, finished.Load())
	assert.False(t, tm.Schedule())
	tm.Stop()
}

func TestKeyed_PerKeyWindows(t *testing.T) {
	var mu sync.Mutex
	got := map[string]int{}
	k := NewKeyed(25*time.Millisecond, func(key string) {
		mu.Lock()
		got[key]++
		mu.Unlock()
	})
	defer k.Stop()

	for i := 0; i < 3; i++ {
		k.Schedule("a.json")
		k.Schedule("b.json")
	}
	k.Schedule("c.json")
	assert.True(t, k.Cancel("c.json"))
	assert.False(t, k.Cancel("missing"))
	assert.Equal(t, 2, k.Pending())

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return got["a.json"] == 1 && got["b.json"] == 1
	})
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	assert.Equal(t, map[string]int{"a.json": 1, "b.json": 1}, got)
	mu.Unlock()
	assert.Equal(t, 0, k.Pending())
}

func TestKeyed_StopDropsPending(t *testing.T) {
	var calls atomic.Int32
	k := NewKeyed(20*time.Millisecond, func(string) { calls.Add(1) })
	k.Schedule("x")
	k.Stop()

	assert.False(t, k.Schedule("y"))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}
