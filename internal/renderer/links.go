package renderer

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// postprocessHTML applies the rewrites goldmark has no hook for:
// anchors pointing at absolute http(s) URLs get target="_blank" and a
// safe rel so following a reference does not replace the preview tab,
// and headings that carry an id get a trailing permalink anchor.
// Fragments with neither anchors nor headings pass through untouched.
func postprocessHTML(fragment string) string {
	if !strings.Contains(fragment, "<a") && !strings.Contains(fragment, "<h") {
		return fragment
	}

	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), ctx)
	if err != nil {
		return fragment
	}

	var buf bytes.Buffer
	for _, node := range nodes {
		rewriteNode(node)
		if err := html.Render(&buf, node); err != nil {
			return fragment
		}
	}
	return buf.String()
}

func rewriteNode(node *html.Node) {
	if node.Type == html.ElementNode {
		switch node.DataAtom {
		case atom.A:
			if isExternalHref(attrVal(node, "href")) {
				setAttr(node, "target", "_blank")
				setAttr(node, "rel", "noopener noreferrer")
			}
		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			if id := attrVal(node, "id"); id != "" {
				appendPermalink(node, id)
			}
		}
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		rewriteNode(child)
	}
}

// appendPermalink adds the pilcrow link shown when hovering a heading.
func appendPermalink(heading *html.Node, id string) {
	anchor := &html.Node{
		Type:     html.ElementNode,
		Data:     "a",
		DataAtom: atom.A,
		Attr: []html.Attribute{
			{Key: "class", Val: "headerlink"},
			{Key: "href", Val: "#" + id},
			{Key: "title", Val: "Permanent link"},
		},
	}
	anchor.AppendChild(&html.Node{Type: html.TextNode, Data: "¶"})
	heading.AppendChild(anchor)
}

func isExternalHref(href string) bool {
	return strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://")
}

func attrVal(node *html.Node, key string) string {
	for _, attr := range node.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func setAttr(node *html.Node, key, val string) {
	for i := range node.Attr {
		if node.Attr[i].Key == key {
			node.Attr[i].Val = val
			return
		}
	}
	node.Attr = append(node.Attr, html.Attribute{Key: key, Val: val})
}
