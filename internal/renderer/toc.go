package renderer

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/yuin/goldmark/ast"
)

// tocDepth bounds how deep the generated table of contents goes.
// Headings below h3 still render in the body, they just stay out of the
// sidebar.
const tocDepth = 3

type tocEntry struct {
	Level int
	Title string
	ID    string
}

type tocNode struct {
	tocEntry
	children []*tocNode
}

// collectHeadings walks a parsed document and returns the headings that
// belong in the table of contents, along with the first h1 text for use
// as the document title.
func collectHeadings(doc ast.Node, source []byte) ([]tocEntry, string) {
	var entries []tocEntry
	title := ""
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		text := headingText(heading, source)
		if heading.Level == 1 && title == "" {
			title = text
		}
		if heading.Level <= tocDepth {
			entries = append(entries, tocEntry{
				Level: heading.Level,
				Title: text,
				ID:    headingID(heading),
			})
		}
		return ast.WalkSkipChildren, nil
	})
	return entries, title
}

// renderTOC turns collected headings into the nested list markup the
// page template drops into the sidebar. An empty slice yields an empty
// string so the template can omit the nav entirely.
func renderTOC(entries []tocEntry) string {
	if len(entries) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(`<div class="toc">`)
	renderTOCList(&b, buildTOCTree(entries))
	b.WriteString(`</div>`)
	return b.String()
}

// buildTOCTree nests entries by heading level. A heading adopts the
// nearest preceding heading with a smaller level as its parent, which
// keeps skipped levels (h1 straight to h3) from breaking the list.
func buildTOCTree(entries []tocEntry) []*tocNode {
	var roots []*tocNode
	var stack []*tocNode
	for _, entry := range entries {
		node := &tocNode{tocEntry: entry}
		for len(stack) > 0 && stack[len(stack)-1].Level >= node.Level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			roots = append(roots, node)
		} else {
			parent := stack[len(stack)-1]
			parent.children = append(parent.children, node)
		}
		stack = append(stack, node)
	}
	return roots
}

func renderTOCList(b *strings.Builder, nodes []*tocNode) {
	b.WriteString("<ul>")
	for _, node := range nodes {
		b.WriteString(`<li><a href="#`)
		b.WriteString(template.HTMLEscapeString(node.ID))
		b.WriteString(`">`)
		b.WriteString(template.HTMLEscapeString(node.Title))
		b.WriteString(`</a>`)
		if len(node.children) > 0 {
			renderTOCList(b, node.children)
		}
		b.WriteString(`</li>`)
	}
	b.WriteString("</ul>")
}

// headingText flattens a heading's inline content to plain text.
func headingText(heading *ast.Heading, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(heading, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(source))
		case *ast.String:
			buf.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func headingID(heading *ast.Heading) string {
	id, ok := heading.AttributeString("id")
	if !ok {
		return ""
	}
	switch v := id.(type) {
	case []byte:
		return string(v)
	case string:
		return v
	}
	return ""
}
