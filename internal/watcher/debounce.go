package watcher

import (
	"context"
	"sync"
	"time"

	"github.com/conneroisu/markd/internal/logging"
)

// Debouncer coalesces bursts of events into single emissions. Windows
// are keyed per path: every arrival for a path restarts that path's
// timer, and when a window elapses undisturbed the most recent event
// for the path is handed to emit. Changes to different paths debounce
// independently, so ordering is only guaranteed per path.
type Debouncer struct {
	delay time.Duration
	emit  func(Event)
	log   logging.Logger

	mutex   sync.Mutex
	timers  map[string]*time.Timer
	latest  map[string]Event
	stopped bool
}

// NewDebouncer creates a debouncer that calls emit once per settled
// path. A nil log discards diagnostics.
func NewDebouncer(delay time.Duration, log logging.Logger, emit func(Event)) *Debouncer {
	if log == nil {
		log = logging.Discard()
	}
	return &Debouncer{
		delay:  delay,
		emit:   emit,
		log:    log,
		timers: make(map[string]*time.Timer),
		latest: make(map[string]Event),
	}
}

// Add schedules event for emission once its path has been quiet for the
// debounce window. Later events for the same path replace earlier ones.
// Events without a path are malformed; they are dropped and logged,
// never raised.
func (d *Debouncer) Add(event Event) {
	if event.Path == "" {
		d.log.Warn(context.Background(), nil, "dropping malformed watch event",
			"event_type", event.Type.String())
		return
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.stopped {
		return
	}

	d.latest[event.Path] = event
	if timer, ok := d.timers[event.Path]; ok {
		timer.Reset(d.delay)
		return
	}
	path := event.Path
	d.timers[path] = time.AfterFunc(d.delay, func() {
		d.fire(path)
	})
}

// fire runs on the timer goroutine when a path's window elapses.
func (d *Debouncer) fire(path string) {
	d.mutex.Lock()
	if d.stopped {
		d.mutex.Unlock()
		return
	}
	event, ok := d.latest[path]
	delete(d.latest, path)
	delete(d.timers, path)
	d.mutex.Unlock()

	if !ok {
		return
	}
	d.safeEmit(event)
}

// safeEmit shields the timer goroutine from a panicking handler.
func (d *Debouncer) safeEmit(event Event) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error(context.Background(), nil, "change handler panicked",
				"panic", r, "path", event.Path)
		}
	}()
	d.emit(event)
}

// Stop cancels every open window without emitting. It is idempotent;
// events added after Stop are ignored.
func (d *Debouncer) Stop() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.stopped {
		return
	}
	d.stopped = true
	for path, timer := range d.timers {
		timer.Stop()
		delete(d.timers, path)
	}
	clear(d.latest)
}

// Pending returns the number of paths with an open window.
func (d *Debouncer) Pending() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return len(d.timers)
}
