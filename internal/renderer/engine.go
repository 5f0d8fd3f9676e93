// Package renderer converts markdown files into themed HTML pages.
//
// The pipeline is: split YAML front matter, parse with goldmark (GFM
// plus footnotes, definition lists, typographer and emoji), highlight
// fenced code with chroma, collect a table of contents from the heading
// tree, then retarget external links and attach heading permalinks.
// Rendered documents are cached by content hash so repeated requests
// for an unchanged file skip the whole pipeline.
package renderer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	emoji "github.com/yuin/goldmark-emoji"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmrenderer "github.com/yuin/goldmark/renderer"
	ghtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/conneroisu/markd/internal/errors"
	"github.com/conneroisu/markd/internal/logging"
)

const (
	defaultSyntaxTheme = "monokai"
	defaultCacheSize   = 128
	defaultMaxFileSize = 10 * 1024 * 1024
)

// Document is the rendered form of one markdown file.
type Document struct {
	HTML        string
	TOC         string
	Title       string
	Meta        map[string]any
	ContentHash string
}

// Options configure an Engine. Zero values fall back to the package
// defaults, so renderer.New(renderer.Options{}) is usable as-is.
type Options struct {
	SyntaxTheme string
	CacheSize   int
	MaxFileSize int64
	Logger      logging.Logger
}

// Engine renders markdown to HTML documents.
//
// An Engine is safe for concurrent use. goldmark parsers and renderers
// are stateless between calls, and the cache carries its own locking.
type Engine struct {
	md        goldmark.Markdown
	highlight *codeBlockRenderer
	cache     *renderCache
	page      *template.Template
	maxSize   int64
	log       logging.Logger
}

// New builds an Engine with the configured syntax theme, cache size and
// file size limit.
func New(opts Options) (*Engine, error) {
	if opts.SyntaxTheme == "" {
		opts.SyntaxTheme = defaultSyntaxTheme
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = defaultMaxFileSize
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}

	cache, err := newRenderCache(opts.CacheSize)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid,
			fmt.Sprintf("invalid render cache size %d", opts.CacheSize))
	}

	page, err := template.New("page").Parse(pageTemplate)
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInternalError, "cannot parse page template", err)
	}

	highlight := newCodeBlockRenderer(opts.SyntaxTheme)
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
			extension.DefinitionList,
			extension.Typographer,
			emoji.Emoji,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			ghtml.WithHardWraps(),
			ghtml.WithUnsafe(),
			gmrenderer.WithNodeRenderers(
				util.Prioritized(highlight, 200),
			),
		),
	)

	return &Engine{
		md:        md,
		highlight: highlight,
		cache:     cache,
		page:      page,
		maxSize:   opts.MaxFileSize,
		log:       log.WithComponent("renderer"),
	}, nil
}

// Render converts markdown content into a Document. Identical content
// hits the cache and returns the previously rendered document.
func (e *Engine) Render(content []byte) (*Document, error) {
	hash := ContentHash(content)
	if doc, ok := e.cache.get(hash); ok {
		return doc, nil
	}

	meta, body := extractFrontMatter(content)

	root := e.md.Parser().Parse(text.NewReader(body))
	var buf bytes.Buffer
	if err := e.md.Renderer().Render(&buf, body, root); err != nil {
		return nil, errors.NewRenderError(errors.ErrCodeRenderFailed, "markdown rendering failed", err)
	}

	entries, headingTitle := collectHeadings(root, body)
	title := frontMatterTitle(meta)
	if title == "" {
		title = headingTitle
	}

	doc := &Document{
		HTML:        postprocessHTML(buf.String()),
		TOC:         renderTOC(entries),
		Title:       title,
		Meta:        meta,
		ContentHash: hash,
	}
	e.cache.add(hash, doc)
	return doc, nil
}

// RenderFile renders the markdown file at path. Files over the size
// limit are rejected before any bytes are read. Documents with no
// front matter title and no h1 get a title derived from the filename.
func (e *Engine) RenderFile(path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ErrPathNotFound(path)
		}
		return nil, errors.NewIOError(errors.ErrCodeReadFailed, "cannot stat file", err).WithPath(path)
	}
	if info.Size() > e.maxSize {
		e.log.Warn(context.Background(), nil, "refusing oversized file",
			"path", path, "size", info.Size(), "limit", e.maxSize)
		return nil, errors.ErrFileTooLarge(path, info.Size(), e.maxSize)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeReadFailed, "cannot read file", err).WithPath(path)
	}

	doc, err := e.Render(content)
	if err != nil {
		return nil, err
	}
	if doc.Title == "" {
		// Copy before titling: the cached document is shared across
		// callers and keyed only by content.
		titled := *doc
		titled.Title = TitleFromFilename(path)
		return &titled, nil
	}
	return doc, nil
}

// Invalidate drops every cached document. The watcher calls this when a
// relevant file changes so the next request re-renders from disk.
func (e *Engine) Invalidate() {
	e.cache.purge()
	e.log.Debug(context.Background(), "render cache invalidated")
}

// CacheStats reports cache counters for the health endpoint.
func (e *Engine) CacheStats() CacheStats {
	return e.cache.stats()
}

// StylesheetCSS returns the chroma class rules for the configured
// syntax theme, served as /static/highlight.css.
func (e *Engine) StylesheetCSS() (string, error) {
	var buf bytes.Buffer
	if err := e.highlight.stylesheet(&buf); err != nil {
		return "", errors.NewRenderError(errors.ErrCodeRenderFailed, "cannot generate highlight stylesheet", err)
	}
	return buf.String(), nil
}

// TitleFromFilename derives a human title from a file name, so
// "getting-started.md" becomes "Getting Started". Existing capitals are
// kept, so "README.md" stays "README".
func TitleFromFilename(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	return cases.Title(language.English, cases.NoLower).String(base)
}
