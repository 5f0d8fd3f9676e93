package export

import "strings"

// protectedTags are elements whose content is whitespace-significant
// or executable and must survive minification byte for byte.
var protectedTags = []string{"pre", "script", "style", "textarea"}

// minifyHTML strips indentation and blank lines outside protected
// elements. It is a line-oriented pass, not a parser; whitespace that
// HTML rendering already collapses is all it touches.
func minifyHTML(html string) string {
	lower := strings.ToLower(html)

	var out strings.Builder
	out.Grow(len(html))

	pos := 0
	for pos < len(html) {
		start, tag := nextProtected(lower, pos)
		if start < 0 {
			out.WriteString(collapse(html[pos:]))
			break
		}
		out.WriteString(collapse(html[pos:start]))

		closer := "</" + tag + ">"
		end := strings.Index(lower[start:], closer)
		if end < 0 {
			// Unterminated element; keep the rest untouched.
			out.WriteString(html[start:])
			break
		}
		stop := start + end + len(closer)
		out.WriteString(html[start:stop])
		pos = stop
	}
	return out.String()
}

// nextProtected returns the earliest protected opening tag at or after
// from, or -1.
func nextProtected(lower string, from int) (int, string) {
	best := -1
	bestTag := ""
	for _, tag := range protectedTags {
		if idx := indexTag(lower, tag, from); idx >= 0 && (best < 0 || idx < best) {
			best, bestTag = idx, tag
		}
	}
	return best, bestTag
}

// indexTag finds "<tag" followed by a delimiter, so "<pre" does not
// match "<pretty>".
func indexTag(lower, tag string, from int) int {
	needle := "<" + tag
	for search := from; search < len(lower); {
		idx := strings.Index(lower[search:], needle)
		if idx < 0 {
			return -1
		}
		abs := search + idx
		after := abs + len(needle)
		if after >= len(lower) {
			return abs
		}
		switch lower[after] {
		case ' ', '\t', '\n', '\r', '>', '/':
			return abs
		}
		search = after
	}
	return -1
}

// collapse trims every line and drops the empty ones.
func collapse(segment string) string {
	lines := strings.Split(segment, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
