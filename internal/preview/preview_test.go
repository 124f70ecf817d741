package preview

import (
	"strings"
	"testing"

	"zotoc/internal/outline"
)

func tree() []*outline.Node {
	return []*outline.Node{
		{
			Title: "Introduction", Page: 0, Top: 700,
			Children: []*outline.Node{
				{Title: "Background", Page: 1, Top: 650, Level: 1},
			},
		},
		{Title: "Conclusion", Page: 4, Top: 700},
	}
}

func TestMarkdown(t *testing.T) {
	got := Markdown(tree())
	want := "- Introduction (p. 1)\n" +
		"  - Background (p. 2)\n" +
		"- Conclusion (p. 5)\n"
	if got != want {
		t.Errorf("Markdown:\n%s\nwant:\n%s", got, want)
	}
}

func TestHTML(t *testing.T) {
	got, err := HTML(tree())
	if err != nil {
		t.Fatalf("HTML: %v", err)
	}
	for _, frag := range []string{"<ul>", "<li>Introduction", "<li>Background", "Conclusion (p. 5)"} {
		if !strings.Contains(got, frag) {
			t.Errorf("HTML output missing %q:\n%s", frag, got)
		}
	}
}
