package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/markd/internal/config"
)

func testConfig(servePath string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host: "127.0.0.1",
			Port: 8000,
		},
		Watcher: config.WatcherConfig{
			Enabled:     true,
			Recursive:   true,
			DebounceMS:  10,
			PingSeconds: 30,
			PongSeconds: 60,
		},
		Render: config.RenderConfig{
			Theme:       "light",
			SyntaxTheme: "monokai",
			CacheSize:   16,
			MaxFileSize: 1 << 20,
		},
		ServePath: servePath,
	}
}

func newTestServer(t *testing.T, servePath string) *PreviewServer {
	t.Helper()
	s, err := New(testConfig(servePath), nil)
	require.NoError(t, err)
	return s
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func get(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestIndexSingleFile(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "note.md"), "# Hello Note\n\nSome text.")
	s := newTestServer(t, filepath.Join(dir, "note.md"))

	w := get(t, s.routes(), "/")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	body := w.Body.String()
	assert.Contains(t, body, `<h1 id="hello-note">Hello Note`)
	assert.Contains(t, body, `data-theme="light"`)
	assert.Contains(t, body, "note.md")
}

func TestIndexDirectoryListing(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "alpha.md"), "# Alpha")
	writeTestFile(t, filepath.Join(dir, "docs", "guide.md"), "# Guide")
	writeTestFile(t, filepath.Join(dir, ".hidden", "inner.md"), "# Inner")
	writeTestFile(t, filepath.Join(dir, "notes.txt"), "plain")
	s := newTestServer(t, dir)

	w := get(t, s.routes(), "/")

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `href="/view/alpha.md"`)
	assert.Contains(t, body, `href="/view/docs/guide.md"`)
	assert.Contains(t, body, "<strong>docs/</strong>")
	assert.NotContains(t, body, ".hidden")
	assert.NotContains(t, body, "notes.txt")
}

func TestIndexEmptyDirectory(t *testing.T) {
	s := newTestServer(t, t.TempDir())

	w := get(t, s.routes(), "/")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No markdown files found.")
}

func TestIndexUnknownPathIs404(t *testing.T) {
	s := newTestServer(t, t.TempDir())

	w := get(t, s.routes(), "/no-such-route")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestViewRendersMarkdown(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "docs", "guide.md"), "# Guide\n\nBody here.")
	s := newTestServer(t, dir)

	w := get(t, s.routes(), "/view/docs/guide.md")

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `<h1 id="guide">Guide`)
	assert.Contains(t, body, "docs/guide.md")
}

func TestViewMissingFile(t *testing.T) {
	s := newTestServer(t, t.TempDir())

	w := get(t, s.routes(), "/view/nope.md")

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "File not found\n", w.Body.String())
}

func TestViewTraversalRejected(t *testing.T) {
	s := newTestServer(t, t.TempDir())

	// Bypass the mux: it cleans ".." segments before routing, so the
	// validator is exercised directly.
	r := httptest.NewRequest(http.MethodGet, "/view/../escape.md", nil)
	w := httptest.NewRecorder()
	s.handleView(w, r)

	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Access forbidden\n", w.Body.String())
}

func TestViewFileTooLarge(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "big.md"), strings.Repeat("content ", 16))

	cfg := testConfig(dir)
	cfg.Render.MaxFileSize = 32
	s, err := New(cfg, nil)
	require.NoError(t, err)

	w := get(t, s.routes(), "/view/big.md")

	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "File too large\n", w.Body.String())
}

func TestViewSymlinkEscapeRejected(t *testing.T) {
	outside := t.TempDir()
	secret := filepath.Join(outside, "secret.md")
	writeTestFile(t, secret, "# TOPSECRET")

	dir := t.TempDir()
	require.NoError(t, os.Symlink(secret, filepath.Join(dir, "link.md")))
	s := newTestServer(t, dir)

	w := get(t, s.routes(), "/view/link.md")

	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Access forbidden\n", w.Body.String())
	assert.NotContains(t, w.Body.String(), "TOPSECRET")
	assert.NotContains(t, w.Body.String(), outside)
}

func TestViewServesStaticAsset(t *testing.T) {
	dir := t.TempDir()
	payload := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "logo.png"), payload, 0o644))
	s := newTestServer(t, dir)

	w := get(t, s.routes(), "/view/logo.png")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "image/png")
	assert.Equal(t, payload, w.Body.Bytes())
}

func TestViewDirectoryShowsListing(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "docs", "guide.md"), "# Guide")
	s := newTestServer(t, dir)

	w := get(t, s.routes(), "/view/docs")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `href="/view/docs/guide.md"`)
}

func TestViewEmptyPathRedirects(t *testing.T) {
	s := newTestServer(t, t.TempDir())

	w := get(t, s.routes(), "/view/")

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestStaticAppCSS(t *testing.T) {
	s := newTestServer(t, t.TempDir())

	w := get(t, s.routes(), "/static/app.css")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/css")
	assert.Contains(t, w.Body.String(), ":root")
	assert.Contains(t, w.Body.String(), ".status.connected")
}

func TestStaticHighlightCSS(t *testing.T) {
	s := newTestServer(t, t.TempDir())

	w := get(t, s.routes(), "/static/highlight.css")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/css")
	assert.Contains(t, w.Body.String(), ".chroma")
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, t.TempDir())
	routes := s.routes()

	for _, path := range []string{"/", "/api/files", "/health"} {
		w := httptest.NewRecorder()
		routes.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, nil))

		assert.Equal(t, http.StatusMethodNotAllowed, w.Code, path)
		assert.Equal(t, http.MethodGet, w.Header().Get("Allow"), path)
	}
}

func TestEscapePath(t *testing.T) {
	assert.Equal(t, "a/b.md", escapePath("a/b.md"))
	assert.Equal(t, "with%20space/no%28tes%29.md", escapePath("with space/no(tes).md"))
}
