package renderer

import (
	"bytes"
	stdhtml "html"
	"io"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark/ast"
	gmrenderer "github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

// mermaidLanguage marks fenced blocks that carry diagram source instead
// of code. They are emitted as a div for the client-side mermaid runtime
// rather than being highlighted.
const mermaidLanguage = "mermaid"

// codeBlockRenderer replaces goldmark's fenced code block output with
// chroma class-based highlighting. Colors come from the stylesheet served
// alongside the page, never from inline styles.
type codeBlockRenderer struct {
	formatter *chromahtml.Formatter
	style     *chroma.Style
}

func newCodeBlockRenderer(syntaxTheme string) *codeBlockRenderer {
	return &codeBlockRenderer{
		formatter: chromahtml.New(chromahtml.WithClasses(true)),
		style:     syntaxStyle(syntaxTheme),
	}
}

// RegisterFuncs implements goldmark's renderer.NodeRenderer.
func (r *codeBlockRenderer) RegisterFuncs(reg gmrenderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindFencedCodeBlock, r.renderFencedCodeBlock)
}

func (r *codeBlockRenderer) renderFencedCodeBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	block := node.(*ast.FencedCodeBlock)
	lang := string(block.Language(source))
	code := fencedCodeText(block, source)

	switch lang {
	case mermaidLanguage:
		// Mermaid reads textContent, so escaped entities decode back to
		// the raw diagram source.
		_, _ = w.WriteString(`<div class="mermaid">`)
		_, _ = w.WriteString(stdhtml.EscapeString(code))
		_, _ = w.WriteString("</div>\n")
	case "":
		writePlainCode(w, "", code)
	default:
		r.writeHighlighted(w, lang, code)
	}
	return ast.WalkContinue, nil
}

func (r *codeBlockRenderer) writeHighlighted(w util.BufWriter, lang, code string) {
	lexer := lexers.Get(lang)
	if lexer == nil {
		writePlainCode(w, lang, code)
		return
	}
	iterator, err := chroma.Coalesce(lexer).Tokenise(nil, code)
	if err != nil {
		writePlainCode(w, lang, code)
		return
	}

	var buf bytes.Buffer
	if err := r.formatter.Format(&buf, r.style, iterator); err != nil {
		writePlainCode(w, lang, code)
		return
	}
	_, _ = w.WriteString(`<div class="highlight">`)
	_, _ = w.Write(buf.Bytes())
	_, _ = w.WriteString("</div>\n")
}

// stylesheet writes the CSS rules for the configured chroma style.
func (r *codeBlockRenderer) stylesheet(w io.Writer) error {
	return r.formatter.WriteCSS(w, r.style)
}

func fencedCodeText(block *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer
	lines := block.Lines()
	for i := 0; i < lines.Len(); i++ {
		buf.Write(lines.At(i).Value(source))
	}
	return buf.String()
}

// writePlainCode emits an unstyled block for languages chroma cannot
// tokenise. The language still lands in a class so client code can style
// or retry it.
func writePlainCode(w util.BufWriter, lang, code string) {
	if lang == "" {
		_, _ = w.WriteString("<pre><code>")
	} else {
		_, _ = w.WriteString(`<pre><code class="language-` + stdhtml.EscapeString(lang) + `">`)
	}
	_, _ = w.WriteString(stdhtml.EscapeString(code))
	_, _ = w.WriteString("</code></pre>\n")
}

// syntaxStyle resolves a chroma style name. Unknown names fall back to
// chroma's default rather than failing the render.
func syntaxStyle(name string) *chroma.Style {
	style := styles.Get(name)
	if style == nil {
		return styles.Fallback
	}
	return style
}
