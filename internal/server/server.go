// Package server wires the preview pipeline together behind one HTTP
// listener: rendered pages, the JSON file API, the WebSocket reload
// feed, and the health endpoint. It owns the lifecycle of the
// filesystem watcher, the event bridge, and the connection registry,
// and tears them down in a fixed order on shutdown.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/conneroisu/markd/internal/bridge"
	"github.com/conneroisu/markd/internal/config"
	"github.com/conneroisu/markd/internal/errors"
	"github.com/conneroisu/markd/internal/logging"
	"github.com/conneroisu/markd/internal/middleware"
	"github.com/conneroisu/markd/internal/registry"
	"github.com/conneroisu/markd/internal/renderer"
	"github.com/conneroisu/markd/internal/validation"
	"github.com/conneroisu/markd/internal/watcher"
)

// browserDelay is how long Start waits before opening the browser, so
// the listener is accepting by the time the tab loads.
const browserDelay = 1500 * time.Millisecond

// bridgeDrainWait bounds how long Shutdown waits for the bridge
// goroutine to observe cancellation.
const bridgeDrainWait = 2 * time.Second

// PreviewServer serves rendered markdown from a root directory or a
// single file and pushes reload notifications to connected browsers
// when sources change.
type PreviewServer struct {
	config   *config.Config
	log      logging.Logger
	engine   *renderer.Engine
	watcher  *watcher.FileWatcher
	bridge   *bridge.EventBridge
	registry *registry.ConnectionRegistry

	// root is the canonical directory every file access is validated
	// against. In single-file mode it is the file's parent directory
	// and singleFile holds the file's base name.
	root       string
	singleFile string

	serverMutex sync.RWMutex
	httpServer  *http.Server

	bridgeCancel context.CancelFunc
	bridgeDone   chan struct{}

	shutdownOnce  sync.Once
	shutdownError error
}

// New builds a server for cfg.ServePath. The path must exist; a file
// selects single-file mode, a directory serves the whole tree.
func New(cfg *config.Config, log logging.Logger) (*PreviewServer, error) {
	if log == nil {
		log = logging.Discard()
	}
	log = log.WithComponent("server")

	abs, err := filepath.Abs(cfg.ServePath)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidPath,
			fmt.Sprintf("cannot resolve %s: %v", cfg.ServePath, err))
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, errors.ErrPathNotFound(cfg.ServePath)
	}
	// Resolve symlinks up front so the watcher and the validator agree
	// on what the root is.
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, errors.ErrPathNotFound(cfg.ServePath)
	}

	root := canonical
	singleFile := ""
	recursive := cfg.Watcher.Recursive
	if !info.IsDir() {
		root = filepath.Dir(canonical)
		singleFile = filepath.Base(canonical)
		recursive = false
	}

	engine, err := renderer.New(renderer.Options{
		SyntaxTheme: cfg.Render.SyntaxTheme,
		CacheSize:   cfg.Render.CacheSize,
		MaxFileSize: cfg.Render.MaxFileSize,
		Logger:      log,
	})
	if err != nil {
		return nil, err
	}

	return &PreviewServer{
		config: cfg,
		log:    log,
		engine: engine,
		watcher: watcher.NewFileWatcher(root, watcher.Options{
			Debounce:  cfg.Watcher.Debounce(),
			Recursive: recursive,
			Logger:    log,
		}),
		bridge: bridge.NewEventBridge(0, log),
		registry: registry.NewRegistry(registry.Options{
			PingInterval: cfg.Watcher.PingInterval(),
			PongTimeout:  cfg.Watcher.PongTimeout(),
			Logger:       log,
		}),
		root:       root,
		singleFile: singleFile,
	}, nil
}

// Root returns the canonical directory file access is validated
// against.
func (s *PreviewServer) Root() string {
	return s.root
}

// SingleFile returns the base name of the served file, or "" when a
// directory is being served.
func (s *PreviewServer) SingleFile() string {
	return s.singleFile
}

// Start runs the server until ctx is canceled or the listener fails.
// It blocks; callers that need the address before the first request
// should rely on the configured port rather than a readiness signal.
func (s *PreviewServer) Start(ctx context.Context) error {
	handler := middleware.NewChain(
		middleware.RequestLogging(s.log),
		middleware.SecurityHeaders(),
		middleware.CORS(s.config.Server.AllowedOrigins),
	).Apply(s.routes())

	httpServer := &http.Server{
		Addr:              s.config.Server.Address(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.serverMutex.Lock()
	s.httpServer = httpServer
	s.serverMutex.Unlock()

	if s.config.Watcher.Enabled {
		s.startReloadPipeline(ctx)
	} else {
		s.log.Info(ctx, "live reload disabled by configuration")
	}

	if s.config.Server.Open {
		go func() {
			time.Sleep(browserDelay)
			if err := s.openBrowser(s.config.Server.URL()); err != nil {
				s.log.Warn(ctx, err, "could not open browser")
			}
		}()
	}

	s.log.Info(ctx, "serving markdown preview",
		"address", s.config.Server.Address(),
		"root", s.root,
		"single_file", s.singleFile != "")

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// startReloadPipeline launches the bridge drain goroutine and the
// filesystem watcher. Watcher failure is not fatal: the server keeps
// serving pages without live reload.
func (s *PreviewServer) startReloadPipeline(ctx context.Context) {
	bridgeCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.bridgeCancel = cancel
	s.bridgeDone = done
	go func() {
		defer close(done)
		s.bridge.Run(bridgeCtx, s.deliverReload)
	}()

	s.watcher.AddHandler(s.onFileEvent)
	if err := s.watcher.Start(ctx); err != nil {
		s.log.Warn(ctx, err, "file watching unavailable, live reload disabled")
	}
}

// onFileEvent runs on the watcher goroutine. It filters events to the
// ones that affect rendered output and hands them to the bridge; a
// full or stopped bridge drops the event rather than stall the
// watcher.
func (s *PreviewServer) onFileEvent(event watcher.Event) error {
	if s.singleFile != "" {
		if filepath.Base(event.Path) != s.singleFile {
			return nil
		}
	} else if !event.ShouldTriggerReload() {
		return nil
	}

	if err := s.bridge.Submit(event); err != nil {
		s.log.Warn(context.Background(), err, "reload event dropped", "path", event.Path)
	}
	return nil
}

// deliverReload runs on the bridge drain goroutine. The render cache is
// flushed before broadcasting so the reloading tabs fetch fresh HTML.
func (s *PreviewServer) deliverReload(ctx context.Context, event watcher.Event) {
	s.engine.Invalidate()

	rel := s.relPath(event.Path)
	count, err := s.registry.Broadcast(registry.NewReloadMessage(rel))
	if err != nil {
		s.log.Warn(ctx, err, "reload broadcast failed")
		return
	}
	s.log.Debug(ctx, "reload broadcast",
		"path", rel,
		"event", event.Type.String(),
		"clients", count)
}

// relPath converts an absolute event path to a root-relative one for
// client messages. Paths outside the root pass through unchanged.
func (s *PreviewServer) relPath(path string) string {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

// Shutdown stops the pipeline and the listener in dependency order:
// watcher first so no new events arrive, then the bridge drain, then
// the WebSocket registry, and the HTTP listener last. Safe to call
// more than once; later calls return the first result.
func (s *PreviewServer) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.log.Info(ctx, "shutting down")

		if err := s.watcher.Stop(); err != nil {
			s.log.Warn(ctx, err, "watcher stop")
		}

		if s.bridgeCancel != nil {
			s.bridgeCancel()
			select {
			case <-s.bridgeDone:
			case <-time.After(bridgeDrainWait):
				s.log.Warn(ctx, nil, "bridge did not drain in time")
			case <-ctx.Done():
			}
		}

		s.registry.Close()

		s.serverMutex.RLock()
		httpServer := s.httpServer
		s.serverMutex.RUnlock()
		if httpServer != nil {
			s.shutdownError = httpServer.Shutdown(ctx)
		}
	})
	return s.shutdownError
}

// openBrowser launches the platform browser at url. The URL is
// validated before it is passed to a shell-external command.
func (s *PreviewServer) openBrowser(url string) error {
	if err := validation.ValidateURL(url); err != nil {
		return err
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		return fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}
	return cmd.Start()
}
