package extract

import (
	"strings"

	"golang.org/x/net/html"
)

// NormalizeTitle prepares annotation text for use as an outline title.
// Zotero and other producers store rich-text fragments in the contents
// entry, so markup is stripped first. All runs of whitespace, including
// the line breaks of a wrapped highlight, collapse to single spaces.
func NormalizeTitle(s string) string {
	if strings.ContainsRune(s, '<') {
		s = stripMarkup(s)
	}
	return strings.Join(strings.Fields(s), " ")
}

// stripMarkup reduces an HTML fragment to its text content. Parse errors
// cannot happen here: the html package builds a tree for any input.
func stripMarkup(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return b.String()
}
