package renderer

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

var frontMatterDelim = []byte("---")

// extractFrontMatter splits a leading YAML front matter block from
// content and returns the parsed metadata plus the remaining markdown.
// Documents without a block, and documents whose block is not valid
// YAML, come back untouched with nil metadata so they still render.
func extractFrontMatter(content []byte) (map[string]any, []byte) {
	body, ok := cutDelimiterLine(content)
	if !ok {
		return nil, content
	}

	var block []byte
	rest := body
	for {
		line, remainder, found := bytes.Cut(rest, []byte("\n"))
		if bytes.Equal(bytes.TrimRight(line, "\r"), frontMatterDelim) {
			var meta map[string]any
			if err := yaml.Unmarshal(block, &meta); err != nil {
				return nil, content
			}
			return meta, remainder
		}
		if !found {
			// No closing delimiter; treat the whole document as markdown.
			return nil, content
		}
		block = append(block, line...)
		block = append(block, '\n')
		rest = remainder
	}
}

// cutDelimiterLine strips an opening "---" line, tolerating CRLF input.
func cutDelimiterLine(content []byte) ([]byte, bool) {
	rest, ok := bytes.CutPrefix(content, frontMatterDelim)
	if !ok {
		return nil, false
	}
	rest = bytes.TrimPrefix(rest, []byte("\r"))
	rest, ok = bytes.CutPrefix(rest, []byte("\n"))
	if !ok {
		return nil, false
	}
	return rest, true
}

// frontMatterTitle picks a title out of parsed metadata when one exists.
func frontMatterTitle(meta map[string]any) string {
	if meta == nil {
		return ""
	}
	if title, ok := meta["title"].(string); ok {
		return title
	}
	return ""
}
