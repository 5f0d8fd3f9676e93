package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildTOCTree(t *testing.T) {
	t.Run("levels nest under nearest smaller level", func(t *testing.T) {
		entries := []tocEntry{
			{Level: 1, Title: "Guide", ID: "guide"},
			{Level: 2, Title: "Setup", ID: "setup"},
			{Level: 3, Title: "Linux", ID: "linux"},
			{Level: 2, Title: "Usage", ID: "usage"},
		}

		roots := buildTOCTree(entries)
		assert.Len(t, roots, 1)
		assert.Equal(t, "Guide", roots[0].Title)
		assert.Len(t, roots[0].children, 2)
		assert.Equal(t, "Setup", roots[0].children[0].Title)
		assert.Equal(t, "Linux", roots[0].children[0].children[0].Title)
		assert.Equal(t, "Usage", roots[0].children[1].Title)
	})

	t.Run("skipped levels still nest", func(t *testing.T) {
		entries := []tocEntry{
			{Level: 1, Title: "Top", ID: "top"},
			{Level: 3, Title: "Deep", ID: "deep"},
		}

		roots := buildTOCTree(entries)
		assert.Len(t, roots, 1)
		assert.Equal(t, "Deep", roots[0].children[0].Title)
	})

	t.Run("document starting below h1", func(t *testing.T) {
		entries := []tocEntry{
			{Level: 2, Title: "First", ID: "first"},
			{Level: 1, Title: "Late Top", ID: "late-top"},
		}

		roots := buildTOCTree(entries)
		assert.Len(t, roots, 2)
	})
}

func TestRenderTOCMarkup(t *testing.T) {
	entries := []tocEntry{
		{Level: 1, Title: "A & B", ID: "a-b"},
		{Level: 2, Title: "Child", ID: "child"},
	}

	out := renderTOC(entries)
	assert.Contains(t, out, `<div class="toc">`)
	assert.Contains(t, out, `<a href="#a-b">A &amp; B</a>`)
	assert.Contains(t, out, `<a href="#child">Child</a>`)
	// Child sits inside the parent list item.
	assert.Contains(t, out, `</a><ul><li><a href="#child">`)
}

func TestRenderTOCEmpty(t *testing.T) {
	assert.Empty(t, renderTOC(nil))
}
