// Package internal contains the core implementation packages for markd.
//
// This package follows Go's internal package convention, making these
// packages unavailable for import by external modules while providing
// all the core functionality for the markd CLI tool.
//
// # Package Organization
//
// The internal packages are organized by functional domain:
//
//   - bridge: Bounded handoff between watcher callbacks and broadcast
//   - config: Configuration loading, defaults, and validation
//   - errors: Typed errors with security and not-found classification
//   - export: Static HTML generation with a worker pool
//   - logging: Structured component-scoped logging over slog
//   - middleware: Request logging, security headers, and CORS
//   - registry: WebSocket connection registry and reload broadcasting
//   - renderer: Markdown to HTML pipeline with caching and theming
//   - server: HTTP server, page and API handlers, WebSocket accept
//   - validation: Path containment and origin checks
//   - version: Build metadata stamped at link time
//   - watcher: File system monitoring with per-path debouncing
//
// # Inter-Package Communication
//
// The live-reload pipeline flows through narrow seams: the watcher
// debounces raw file system events and invokes handlers; the server's
// handler filters and submits through the bridge, which bounds how
// long a watcher callback can block; the bridge's drain loop
// invalidates the render cache and hands the event to the registry,
// which fans a reload message out to every connected browser.
//
// # Security Considerations
//
// Every requested path is resolved and containment-checked by the
// validation package before any read, symlinks included. Security
// rejections surface as generic 403 bodies that never echo resolved
// paths. WebSocket upgrades and cross-origin requests are gated on an
// origin allowlist that always admits localhost.
//
// For detailed documentation, see the individual package documentation.
package internal
