// Package preview renders an outline tree for inspection before it is
// committed to the document.
package preview

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"

	"zotoc/internal/outline"
)

// Markdown renders the tree as a nested Markdown list with one-based
// page numbers.
func Markdown(roots []*outline.Node) string {
	var b strings.Builder
	outline.Walk(roots, func(n *outline.Node, depth int) {
		fmt.Fprintf(&b, "%s- %s (p. %d)\n", strings.Repeat("  ", depth), n.Title, n.Page+1)
	})
	return b.String()
}

// HTML renders the Markdown representation to HTML.
func HTML(roots []*outline.Node) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.New().Convert([]byte(Markdown(roots)), &buf); err != nil {
		return "", fmt.Errorf("render outline preview: %w", err)
	}
	return buf.String(), nil
}
