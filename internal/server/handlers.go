package server

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/conneroisu/markd/internal/errors"
	"github.com/conneroisu/markd/internal/renderer"
	"github.com/conneroisu/markd/internal/validation"
	"github.com/conneroisu/markd/internal/version"
	"github.com/conneroisu/markd/internal/watcher"
)

// handleIndex serves the root page: the file itself in single-file
// mode, a rendered listing of the markdown tree otherwise. The "/"
// pattern also catches every unrouted path, so anything but "/" is a
// 404 here.
func (s *PreviewServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	if s.singleFile != "" {
		s.servePage(w, r, filepath.Join(s.root, s.singleFile), s.singleFile)
		return
	}
	s.serveListing(w, r, s.root)
}

// handleView renders a markdown file under the root. Non-markdown
// files are served raw so pages can reference images and other assets;
// directories get the same listing page as the root.
func (s *PreviewServer) handleView(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	rel := strings.TrimPrefix(r.URL.Path, "/view/")
	if rel == "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	resolved, err := validation.Validate(rel, s.root)
	if err != nil {
		s.writePageError(w, r, err)
		return
	}

	info, err := os.Stat(resolved)
	if err != nil {
		s.writePageError(w, r, errors.ErrPathNotFound(rel))
		return
	}
	if info.IsDir() {
		s.serveListing(w, r, resolved)
		return
	}
	if !watcher.IsMarkdownFile(resolved) {
		http.ServeFile(w, r, resolved)
		return
	}

	s.servePage(w, r, resolved, strings.TrimSuffix(rel, "/"))
}

// servePage renders one markdown file into the full preview page.
// display is the root-relative path shown in the page header; it comes
// from the request, never from the resolved filesystem path.
func (s *PreviewServer) servePage(w http.ResponseWriter, r *http.Request, abs, display string) {
	doc, err := s.engine.RenderFile(abs)
	if err != nil {
		s.writePageError(w, r, err)
		return
	}

	page, err := s.engine.RenderPage(doc, renderer.PageOptions{
		Theme:      s.config.Render.Theme,
		LiveReload: s.config.Watcher.Enabled,
		Path:       display,
	})
	if err != nil {
		s.writePageError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, page)
}

// serveListing renders a generated markdown index of dir. The listing
// goes through the same render and page pipeline as real files, so it
// picks up theming and live reload for free.
func (s *PreviewServer) serveListing(w http.ResponseWriter, r *http.Request, dir string) {
	tree, err := buildTree(dir, ".")
	if err != nil {
		s.writePageError(w, r, err)
		return
	}

	prefix := s.relPath(dir)
	if prefix == "." {
		prefix = ""
	}

	var md strings.Builder
	fmt.Fprintf(&md, "# %s\n\n", filepath.Base(dir))
	if !writeListing(&md, tree, prefix, 0) {
		md.WriteString("*No markdown files found.*\n")
	}

	doc, err := s.engine.Render([]byte(md.String()))
	if err != nil {
		s.writePageError(w, r, err)
		return
	}
	// Rendered documents are cached and shared; copy before retitling.
	listing := *doc
	listing.Title = filepath.Base(dir)

	page, err := s.engine.RenderPage(&listing, renderer.PageOptions{
		Theme:      s.config.Render.Theme,
		LiveReload: s.config.Watcher.Enabled,
		Path:       prefix,
	})
	if err != nil {
		s.writePageError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, page)
}

// writeListing emits nested markdown bullets for a directory tree.
// Subdirectories with no markdown anywhere below them are omitted.
// Reports whether anything was written.
func writeListing(md *strings.Builder, node *treeNode, prefix string, depth int) bool {
	wrote := false
	indent := strings.Repeat("  ", depth)

	for _, file := range node.Files {
		rel := file.Path
		if prefix != "" {
			rel = prefix + "/" + rel
		}
		fmt.Fprintf(md, "%s- [%s](/view/%s)\n", indent, file.Name, escapePath(rel))
		wrote = true
	}
	for _, sub := range node.Subdirs {
		if !hasMarkdown(sub) {
			continue
		}
		fmt.Fprintf(md, "%s- **%s/**\n", indent, sub.Name)
		writeListing(md, sub, prefix, depth+1)
		wrote = true
	}
	return wrote
}

// hasMarkdown reports whether any markdown file exists at or below
// node.
func hasMarkdown(node *treeNode) bool {
	if len(node.Files) > 0 {
		return true
	}
	for _, sub := range node.Subdirs {
		if hasMarkdown(sub) {
			return true
		}
	}
	return false
}

// escapePath percent-escapes each segment of a slash path so it
// survives markdown link syntax and URL parsing.
func escapePath(rel string) string {
	segments := strings.Split(rel, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}

func (s *PreviewServer) handleAppCSS(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	_, _ = io.WriteString(w, renderer.AppCSS)
}

func (s *PreviewServer) handleHighlightCSS(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	css, err := s.engine.StylesheetCSS()
	if err != nil {
		s.writePageError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	_, _ = io.WriteString(w, css)
}

// handleWebSocket upgrades the connection and hands it to the
// registry, which runs it until the client leaves or the server shuts
// down. Browsers send an Origin header; it is checked against the
// allowlist before the upgrade. Clients without one, such as local
// tooling, are let through like the CORS middleware does.
func (s *PreviewServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !s.config.Watcher.Enabled {
		http.Error(w, "Live reload is disabled", http.StatusNotFound)
		return
	}
	if origin := r.Header.Get("Origin"); origin != "" {
		if err := validation.ValidateOrigin(origin, s.config.Server.AllowedOrigins); err != nil {
			s.log.Warn(r.Context(), err, "websocket origin rejected")
			http.Error(w, "Access forbidden", http.StatusForbidden)
			return
		}
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Origin was already checked against the configured allowlist.
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.log.Warn(r.Context(), err, "websocket accept failed")
		return
	}

	conn, err := s.registry.Register(ws)
	if err != nil {
		_ = ws.Close(websocket.StatusGoingAway, "server is shutting down")
		return
	}
	s.registry.Serve(r.Context(), conn)
}

// handleHealth reports liveness of each pipeline stage alongside build
// information.
func (s *PreviewServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	health := map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   version.GetShortVersion(),
		"checks": map[string]any{
			"server": map[string]any{
				"address":     s.config.Server.Address(),
				"root":        s.root,
				"single_file": s.singleFile != "",
			},
			"watcher": map[string]any{
				"enabled": s.config.Watcher.Enabled,
				"running": s.watcher.IsRunning(),
			},
			"bridge": map[string]any{
				"running": s.bridge.Running(),
				"depth":   s.bridge.Depth(),
			},
			"connections": map[string]any{
				"count": s.registry.Count(),
			},
			"cache": s.engine.CacheStats(),
		},
	}
	writeJSON(w, http.StatusOK, health)
}

// writePageError maps pipeline errors onto page responses. Forbidden
// and not-found bodies are fixed strings; resolved filesystem paths
// never reach the client.
func (s *PreviewServer) writePageError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.IsSecurityError(err):
		http.Error(w, "Access forbidden", http.StatusForbidden)
	case errors.IsNotFoundError(err):
		http.Error(w, "File not found", http.StatusNotFound)
	case errors.HasCode(err, errors.ErrCodeFileTooLarge):
		http.Error(w, "File too large", http.StatusRequestEntityTooLarge)
	default:
		s.log.Error(r.Context(), err, "request failed", "path", r.URL.Path)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
