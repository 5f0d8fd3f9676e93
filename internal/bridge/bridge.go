// Package bridge carries change events from the watcher's goroutines to
// the broadcast scheduler. Producers hand events over with a bounded
// wait and receive an acknowledgment that the event was queued, not
// that it was delivered; the scheduler drains the queue serially so
// every consumer observes one consistent event order.
package bridge

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/conneroisu/markd/internal/errors"
	"github.com/conneroisu/markd/internal/logging"
	"github.com/conneroisu/markd/internal/watcher"
)

// DefaultTimeout bounds how long Submit waits for the scheduler to
// accept an event.
const DefaultTimeout = 500 * time.Millisecond

const queueDepth = 16

// Sink consumes events on the scheduler side of the bridge.
type Sink func(ctx context.Context, event watcher.Event)

// EventBridge is the thread-safe handoff between the watcher and the
// scheduler. Submit may be called from any goroutine; Run must be
// called exactly once, and while it is not active every Submit fails
// fast instead of blocking a watcher goroutine.
type EventBridge struct {
	events  chan watcher.Event
	timeout time.Duration
	log     logging.Logger
	running atomic.Bool
	done    chan struct{}
}

// NewEventBridge creates a bridge. A timeout of zero selects
// DefaultTimeout; a nil log discards diagnostics.
func NewEventBridge(timeout time.Duration, log logging.Logger) *EventBridge {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logging.Discard()
	}
	return &EventBridge{
		events:  make(chan watcher.Event, queueDepth),
		timeout: timeout,
		log:     log.WithComponent("bridge"),
		done:    make(chan struct{}),
	}
}

// Running reports whether the scheduler side is draining the queue.
func (b *EventBridge) Running() bool {
	return b.running.Load()
}

// Depth returns the number of queued, not yet drained events.
func (b *EventBridge) Depth() int {
	return len(b.events)
}

// Submit queues event for the scheduler. A nil return acknowledges that
// the event was accepted for processing, not that any client received
// it. When the scheduler is down the event is rejected immediately;
// when the queue stays full past the bridge timeout the event is
// rejected with a timeout. Either way the caller keeps running.
func (b *EventBridge) Submit(event watcher.Event) error {
	if !b.running.Load() {
		return errors.ErrBridgeDown(event.Path)
	}

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case b.events <- event:
		return nil
	case <-b.done:
		return errors.ErrBridgeDown(event.Path)
	case <-timer.C:
		return errors.ErrBridgeTimeout(event.Path)
	}
}

// Run drains the queue until ctx is canceled, invoking sink for each
// event in submission order. Once Run returns the bridge is down for
// good; submitters start failing fast again.
func (b *EventBridge) Run(ctx context.Context, sink Sink) {
	b.running.Store(true)
	defer func() {
		b.running.Store(false)
		close(b.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-b.events:
			b.deliver(ctx, sink, event)
		}
	}
}

// deliver shields the scheduler goroutine from a panicking sink.
func (b *EventBridge) deliver(ctx context.Context, sink Sink, event watcher.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error(ctx, nil, "event sink panicked",
				"panic", r, "path", event.Path)
		}
	}()
	sink(ctx, event)
}
