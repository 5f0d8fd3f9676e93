package bridge

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/markd/internal/errors"
	"github.com/conneroisu/markd/internal/watcher"
)

func modifiedEvent(path string) watcher.Event {
	return watcher.Event{Type: watcher.EventModified, Path: path, Timestamp: time.Now()}
}

// startBridge runs the bridge and waits until it is accepting events.
func startBridge(t *testing.T, b *EventBridge, sink Sink) context.CancelFunc {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	go b.Run(ctx, sink)

	end := time.Now().Add(time.Second)
	for !b.Running() {
		if time.Now().After(end) {
			t.Fatal("bridge did not start")
		}
		time.Sleep(time.Millisecond)
	}
	return cancel
}

func TestSubmitBeforeRunFailsFast(t *testing.T) {
	b := NewEventBridge(50*time.Millisecond, nil)

	start := time.Now()
	err := b.Submit(modifiedEvent("/docs/readme.md"))
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, errors.IsBridgeError(err))
	assert.Less(t, elapsed, 20*time.Millisecond, "down bridge must not block the caller")
}

func TestSubmitDeliversToSink(t *testing.T) {
	b := NewEventBridge(time.Second, nil)

	var mutex sync.Mutex
	var received []watcher.Event
	cancel := startBridge(t, b, func(_ context.Context, event watcher.Event) {
		mutex.Lock()
		received = append(received, event)
		mutex.Unlock()
	})
	defer cancel()

	require.NoError(t, b.Submit(modifiedEvent("/docs/a.md")))
	require.NoError(t, b.Submit(modifiedEvent("/docs/b.md")))

	assert.Eventually(t, func() bool {
		mutex.Lock()
		defer mutex.Unlock()
		return len(received) == 2
	}, time.Second, 5*time.Millisecond)

	mutex.Lock()
	defer mutex.Unlock()
	assert.Equal(t, "/docs/a.md", received[0].Path)
	assert.Equal(t, "/docs/b.md", received[1].Path)
}

func TestSubmitTimesOutWhenQueueIsStuck(t *testing.T) {
	b := NewEventBridge(50*time.Millisecond, nil)

	entered := make(chan struct{})
	blocked := make(chan struct{})
	var once sync.Once
	cancel := startBridge(t, b, func(_ context.Context, event watcher.Event) {
		once.Do(func() { close(entered) })
		<-blocked
	})
	defer cancel()
	defer close(blocked)

	// One event occupies the sink, the rest fill the queue.
	require.NoError(t, b.Submit(modifiedEvent("/docs/first.md")))
	<-entered
	for i := 0; i < queueDepth; i++ {
		if err := b.Submit(modifiedEvent("/docs/fill.md")); err != nil {
			t.Fatalf("queue filled early at %d: %v", i, err)
		}
	}

	err := b.Submit(modifiedEvent("/docs/overflow.md"))
	require.Error(t, err)
	assert.True(t, errors.IsBridgeError(err))

	var me *errors.MarkdError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, errors.ErrCodeBridgeTimeout, me.Code)
}

func TestSubmitAfterShutdownFailsFast(t *testing.T) {
	b := NewEventBridge(time.Second, nil)
	cancel := startBridge(t, b, func(context.Context, watcher.Event) {})

	cancel()
	assert.Eventually(t, func() bool { return !b.Running() }, time.Second, time.Millisecond)

	err := b.Submit(modifiedEvent("/docs/late.md"))
	require.Error(t, err)

	var me *errors.MarkdError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, errors.ErrCodeBridgeDown, me.Code)
}

func TestConcurrentSubmitters(t *testing.T) {
	b := NewEventBridge(time.Second, nil)

	var mutex sync.Mutex
	received := 0
	cancel := startBridge(t, b, func(_ context.Context, event watcher.Event) {
		mutex.Lock()
		received++
		mutex.Unlock()
	})
	defer cancel()

	const submitters = 10
	const perSubmitter = 20

	var wg sync.WaitGroup
	for i := 0; i < submitters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perSubmitter; j++ {
				assert.NoError(t, b.Submit(modifiedEvent("/docs/shared.md")))
			}
		}()
	}
	wg.Wait()

	assert.Eventually(t, func() bool {
		mutex.Lock()
		defer mutex.Unlock()
		return received == submitters*perSubmitter
	}, 2*time.Second, 5*time.Millisecond)
}

func TestPanickingSinkIsContained(t *testing.T) {
	b := NewEventBridge(time.Second, nil)

	var mutex sync.Mutex
	var delivered []string
	cancel := startBridge(t, b, func(_ context.Context, event watcher.Event) {
		mutex.Lock()
		defer mutex.Unlock()
		if len(delivered) == 0 {
			delivered = append(delivered, event.Path)
			panic("sink exploded")
		}
		delivered = append(delivered, event.Path)
	})
	defer cancel()

	require.NoError(t, b.Submit(modifiedEvent("/docs/a.md")))
	require.NoError(t, b.Submit(modifiedEvent("/docs/b.md")))

	assert.Eventually(t, func() bool {
		mutex.Lock()
		defer mutex.Unlock()
		return len(delivered) == 2
	}, time.Second, 5*time.Millisecond)
}
