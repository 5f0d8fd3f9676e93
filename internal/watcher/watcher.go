// Package watcher observes a directory tree for changes and reports
// them as debounced events. Raw OS notifications arrive on a dedicated
// goroutine, are classified into Events, coalesced per path by a
// Debouncer, and handed to registered handlers. Handler failures are
// logged and contained; they never terminate the watch loop.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/conneroisu/markd/internal/errors"
	"github.com/conneroisu/markd/internal/logging"
)

// joinTimeout bounds how long Stop waits for the watch loop to exit.
const joinTimeout = 2 * time.Second

// Handler receives a debounced change event. A returned error is logged
// and otherwise ignored.
type Handler func(Event) error

// Options configures a FileWatcher.
type Options struct {
	// Debounce is the quiet window a path must observe before its
	// pending event is emitted.
	Debounce time.Duration
	// Recursive watches the whole tree under the root instead of the
	// root directory alone. Dot-directories are skipped either way.
	Recursive bool
	Logger    logging.Logger
}

// FileWatcher subscribes to OS file notifications under a root
// directory. Lifecycle is Stopped, Running, Stopped: Start spawns the
// watch goroutine and Stop joins it. Stop is idempotent and safe to
// call before Start.
type FileWatcher struct {
	root      string
	recursive bool
	debouncer *Debouncer
	log       logging.Logger

	mutex    sync.RWMutex
	handlers []Handler
	watcher  *fsnotify.Watcher
	running  bool
	done     chan struct{}
}

// NewFileWatcher creates a watcher for root. No OS resources are held
// until Start.
func NewFileWatcher(root string, opts Options) *FileWatcher {
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	log = log.WithComponent("watcher")

	fw := &FileWatcher{
		root:      root,
		recursive: opts.Recursive,
		log:       log,
	}
	fw.debouncer = NewDebouncer(opts.Debounce, log, fw.dispatch)
	return fw
}

// AddHandler registers a handler for debounced events. Handlers run on
// the watcher's goroutines, never on a request goroutine.
func (fw *FileWatcher) AddHandler(handler Handler) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.handlers = append(fw.handlers, handler)
}

// IsRunning reports whether the watch loop is active.
func (fw *FileWatcher) IsRunning() bool {
	fw.mutex.RLock()
	defer fw.mutex.RUnlock()
	return fw.running
}

// Start subscribes to OS notifications and launches the watch loop. On
// failure the watcher stays in Stopped and the error is returned so the
// caller can continue without live reload.
func (fw *FileWatcher) Start(ctx context.Context) error {
	fw.mutex.Lock()
	if fw.running {
		fw.mutex.Unlock()
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		fw.mutex.Unlock()
		return errors.ErrWatchFailed(fw.root, err)
	}
	fw.watcher = w
	fw.running = true
	fw.done = make(chan struct{})
	done := fw.done
	fw.mutex.Unlock()

	if err := fw.subscribe(); err != nil {
		_ = w.Close()
		fw.mutex.Lock()
		fw.running = false
		fw.watcher = nil
		fw.mutex.Unlock()
		return errors.ErrWatchFailed(fw.root, err)
	}

	go fw.watchLoop(ctx, w, done)

	fw.log.Info(ctx, "watching for changes",
		"root", fw.root, "recursive", fw.recursive,
		"debounce", fw.debouncer.delay.String())
	return nil
}

// Stop cancels pending debounce windows, closes the OS subscription,
// and joins the watch goroutine with a bounded wait.
func (fw *FileWatcher) Stop() error {
	fw.mutex.Lock()
	if !fw.running {
		fw.mutex.Unlock()
		return nil
	}
	fw.running = false
	w := fw.watcher
	done := fw.done
	fw.watcher = nil
	fw.mutex.Unlock()

	fw.debouncer.Stop()

	// Closing the backend closes its event channel, which ends the
	// watch loop.
	err := w.Close()

	select {
	case <-done:
	case <-time.After(joinTimeout):
		fw.log.Warn(context.Background(), nil, "watch loop did not exit before deadline")
	}
	return err
}

// subscribe adds the root, and in recursive mode every non-hidden
// subdirectory, to the OS watch list.
func (fw *FileWatcher) subscribe() error {
	if !fw.recursive {
		return fw.watcher.Add(fw.root)
	}
	return fw.addTree(fw.root)
}

func (fw *FileWatcher) addTree(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(info.Name(), ".") {
			return filepath.SkipDir
		}
		return fw.watcher.Add(path)
	})
}

func (fw *FileWatcher) watchLoop(ctx context.Context, w *fsnotify.Watcher, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			fw.handleFsnotifyEvent(event)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			fw.log.Warn(ctx, err, "watch backend error")
		}
	}
}

func (fw *FileWatcher) handleFsnotifyEvent(event fsnotify.Event) {
	// Permission-only changes do not affect rendered content.
	if event.Op == fsnotify.Chmod {
		return
	}

	var eventType EventType
	switch {
	case event.Op&fsnotify.Create == fsnotify.Create:
		eventType = EventCreated
	case event.Op&fsnotify.Write == fsnotify.Write:
		eventType = EventModified
	case event.Op&fsnotify.Remove == fsnotify.Remove:
		eventType = EventDeleted
	case event.Op&fsnotify.Rename == fsnotify.Rename:
		eventType = EventMoved
	default:
		eventType = EventModified
	}

	switch eventType {
	case EventCreated:
		// A directory created inside a watched tree needs its own
		// subscription before changes within it are visible.
		if fw.recursive && !strings.HasPrefix(filepath.Base(event.Name), ".") {
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				if err := fw.addTree(event.Name); err != nil {
					fw.log.Warn(context.Background(), err, "could not watch new directory",
						"path", event.Name)
				}
			}
		}
	case EventDeleted, EventMoved:
		// The backend drops watches for vanished paths on its own;
		// this just tidies up eagerly when it has not yet.
		_ = fw.removeWatch(event.Name)
	}

	fw.debouncer.Add(Event{
		Type:      eventType,
		Path:      event.Name,
		Timestamp: time.Now(),
	})
}

func (fw *FileWatcher) removeWatch(path string) error {
	fw.mutex.RLock()
	w := fw.watcher
	fw.mutex.RUnlock()
	if w == nil {
		return nil
	}
	return w.Remove(path)
}

// dispatch fans a debounced event out to the registered handlers.
// Handler errors are logged, never propagated; a broken handler must
// not take the watcher down with it.
func (fw *FileWatcher) dispatch(event Event) {
	fw.mutex.RLock()
	handlers := make([]Handler, len(fw.handlers))
	copy(handlers, fw.handlers)
	fw.mutex.RUnlock()

	for _, handler := range handlers {
		if err := handler(event); err != nil {
			fw.log.Error(context.Background(), err, "change handler failed",
				"path", event.Path, "event_type", event.Type.String())
		}
	}
}
