package export

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	markderrors "github.com/conneroisu/markd/internal/errors"
)

func newTestExporter(t *testing.T, opts Options) *Exporter {
	t.Helper()
	e, err := New(opts)
	require.NoError(t, err)
	return e
}

func writeSource(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestExportFile(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	writeSource(t, filepath.Join(src, "note.md"),
		"# Note\n\n```go\nfunc main() {}\n```\n")
	e := newTestExporter(t, Options{Theme: "dark"})

	written, err := e.ExportFile(context.Background(), filepath.Join(src, "note.md"), out)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "note.html"), written)

	page, err := os.ReadFile(written)
	require.NoError(t, err)
	body := string(page)
	assert.Contains(t, body, `data-theme="dark"`)
	assert.Contains(t, body, `<h1 id="note">Note`)
	assert.Contains(t, body, "<style>")
	assert.Contains(t, body, ".chroma")
	assert.NotContains(t, body, "/static/app.css")
	assert.NotContains(t, body, "new WebSocket")
}

func TestExportFileMissing(t *testing.T) {
	e := newTestExporter(t, Options{})

	_, err := e.ExportFile(context.Background(), filepath.Join(t.TempDir(), "gone.md"), t.TempDir())

	require.Error(t, err)
	assert.True(t, markderrors.IsNotFoundError(err))
}

func TestExportFileNotMarkdown(t *testing.T) {
	src := t.TempDir()
	writeSource(t, filepath.Join(src, "data.txt"), "plain")
	e := newTestExporter(t, Options{})

	_, err := e.ExportFile(context.Background(), filepath.Join(src, "data.txt"), t.TempDir())

	require.Error(t, err)
	var markdErr *markderrors.MarkdError
	require.ErrorAs(t, err, &markdErr)
	assert.Equal(t, markderrors.ErrCodeInvalidPath, markdErr.Code)
}

func TestExportFileRejectsDirectory(t *testing.T) {
	e := newTestExporter(t, Options{})

	_, err := e.ExportFile(context.Background(), t.TempDir(), t.TempDir())

	assert.Error(t, err)
}

func TestExportDirectory(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	writeSource(t, filepath.Join(src, "a.md"), "# A")
	writeSource(t, filepath.Join(src, "docs", "b.md"), "# B")
	writeSource(t, filepath.Join(src, "docs", "deep", "c.markdown"), "# C")
	writeSource(t, filepath.Join(src, ".hidden", "d.md"), "# D")
	writeSource(t, filepath.Join(src, "note.txt"), "plain")
	e := newTestExporter(t, Options{Workers: 2})

	summary, err := e.ExportDirectory(context.Background(), src, out)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Exported)
	assert.Zero(t, summary.Failed)
	assert.Positive(t, summary.Bytes)
	require.Len(t, summary.Results, 3)

	// Results come back sorted by source even with concurrent workers.
	assert.Equal(t, filepath.Join(src, "a.md"), summary.Results[0].Source)
	assert.Equal(t, filepath.Join(src, "docs", "b.md"), summary.Results[1].Source)
	assert.Equal(t, filepath.Join(src, "docs", "deep", "c.markdown"), summary.Results[2].Source)

	assert.FileExists(t, filepath.Join(out, "a.html"))
	assert.FileExists(t, filepath.Join(out, "docs", "b.html"))
	assert.FileExists(t, filepath.Join(out, "docs", "deep", "c.html"))
	assert.NoFileExists(t, filepath.Join(out, "note.html"))
	assert.NoDirExists(t, filepath.Join(out, ".hidden"))
}

func TestExportDirectoryEmpty(t *testing.T) {
	e := newTestExporter(t, Options{})

	summary, err := e.ExportDirectory(context.Background(), t.TempDir(), t.TempDir())
	require.NoError(t, err)

	assert.Zero(t, summary.Exported)
	assert.Zero(t, summary.Failed)
	assert.Empty(t, summary.Results)
}

func TestExportDirectoryMissingSource(t *testing.T) {
	e := newTestExporter(t, Options{})

	_, err := e.ExportDirectory(context.Background(), filepath.Join(t.TempDir(), "gone"), t.TempDir())

	require.Error(t, err)
	assert.True(t, markderrors.IsNotFoundError(err))
}

func TestExportDirectoryContinuesPastFailures(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	writeSource(t, filepath.Join(src, "good.md"), "# Good")
	require.NoError(t, os.Symlink(filepath.Join(src, "missing.md"), filepath.Join(src, "broken.md")))
	e := newTestExporter(t, Options{})

	summary, err := e.ExportDirectory(context.Background(), src, out)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Exported)
	assert.Equal(t, 1, summary.Failed)
	assert.FileExists(t, filepath.Join(out, "good.html"))

	require.Len(t, summary.Results, 2)
	assert.Error(t, summary.Results[0].Err) // broken.md sorts first
	assert.NoError(t, summary.Results[1].Err)
}

func TestExportMinifyShrinksOutput(t *testing.T) {
	src := t.TempDir()
	writeSource(t, filepath.Join(src, "doc.md"),
		"# Doc\n\nSome paragraph.\n\n```go\nfunc spaced() {\n\tindented()\n}\n```\n")

	plain := newTestExporter(t, Options{})
	mini := newTestExporter(t, Options{Minify: true})

	outPlain := t.TempDir()
	outMini := t.TempDir()
	_, err := plain.ExportFile(context.Background(), filepath.Join(src, "doc.md"), outPlain)
	require.NoError(t, err)
	_, err = mini.ExportFile(context.Background(), filepath.Join(src, "doc.md"), outMini)
	require.NoError(t, err)

	plainBytes, err := os.ReadFile(filepath.Join(outPlain, "doc.html"))
	require.NoError(t, err)
	miniBytes, err := os.ReadFile(filepath.Join(outMini, "doc.html"))
	require.NoError(t, err)

	assert.Less(t, len(miniBytes), len(plainBytes))
	// Code content survives minification with its whitespace.
	assert.Contains(t, string(miniBytes), "indented")
	assert.Contains(t, string(miniBytes), "</pre>")
}

func TestHTMLName(t *testing.T) {
	assert.Equal(t, filepath.Join("a", "b.html"), htmlName(filepath.Join("a", "b.md")))
	assert.Equal(t, "c.html", htmlName("c.markdown"))
}
