package renderer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPostprocessExternalLinks(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		check func(t *testing.T, out string)
	}{
		{
			name:  "https link retargeted",
			input: `<p><a href="https://example.com">x</a></p>`,
			check: func(t *testing.T, out string) {
				assert.Contains(t, out, `target="_blank"`)
				assert.Contains(t, out, `rel="noopener noreferrer"`)
			},
		},
		{
			name:  "http link retargeted",
			input: `<p><a href="http://example.com">x</a></p>`,
			check: func(t *testing.T, out string) {
				assert.Contains(t, out, `target="_blank"`)
			},
		},
		{
			name:  "relative link untouched",
			input: `<p><a href="./guide.md">x</a></p>`,
			check: func(t *testing.T, out string) {
				assert.NotContains(t, out, "target=")
			},
		},
		{
			name:  "fragment link untouched",
			input: `<p><a href="#setup">x</a></p>`,
			check: func(t *testing.T, out string) {
				assert.NotContains(t, out, "target=")
			},
		},
		{
			name:  "existing target replaced",
			input: `<p><a href="https://example.com" target="_self">x</a></p>`,
			check: func(t *testing.T, out string) {
				assert.Contains(t, out, `target="_blank"`)
				assert.NotContains(t, out, "_self")
			},
		},
		{
			name:  "nested anchors all handled",
			input: `<ul><li><a href="https://a.example">a</a></li><li><a href="https://b.example">b</a></li></ul>`,
			check: func(t *testing.T, out string) {
				assert.Equal(t, 2, strings.Count(out, `target="_blank"`))
			},
		},
		{
			name:  "no anchors or headings passes through untouched",
			input: `<p>plain <strong>text</strong></p>`,
			check: func(t *testing.T, out string) {
				assert.Equal(t, `<p>plain <strong>text</strong></p>`, out)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tc.check(t, postprocessHTML(tc.input))
		})
	}
}

func TestPostprocessHeadingPermalinks(t *testing.T) {
	t.Run("all levels get a permalink", func(t *testing.T) {
		for level := 1; level <= 6; level++ {
			in := fmt.Sprintf(`<h%d id="sec">Sec</h%d>`, level, level)
			out := postprocessHTML(in)
			assert.Contains(t, out,
				`<a class="headerlink" href="#sec" title="Permanent link">`+"¶"+`</a>`, in)
		}
	})

	t.Run("heading without id untouched", func(t *testing.T) {
		out := postprocessHTML(`<h2>Plain</h2>`)
		assert.NotContains(t, out, "headerlink")
	})

	t.Run("permalink lands inside the heading", func(t *testing.T) {
		out := postprocessHTML(`<h1 id="top">Top</h1><p>body</p>`)
		assert.Contains(t, out, `<h1 id="top">Top<a class="headerlink" href="#top" title="Permanent link">`+"¶"+`</a></h1>`)
	})

	t.Run("permalink anchor is not retargeted", func(t *testing.T) {
		out := postprocessHTML(`<h1 id="top">Top</h1>`)
		assert.NotContains(t, out, "target=")
	})
}
