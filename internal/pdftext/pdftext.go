// Package pdftext reconstructs the text covered by highlight regions.
//
// Annotation dictionaries are not required to carry the highlighted text,
// so when the contents entry is empty the title is rebuilt from the
// page's positioned text runs instead.
package pdftext

import (
	"fmt"
	"sort"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"zotoc/internal/pdfdoc"
)

// Source reads positioned text from one PDF file. The file is opened per
// call and released before returning.
type Source struct {
	path string
}

func New(path string) *Source {
	return &Source{path: path}
}

// margin widens each region slightly; text coordinates are baseline
// positions and sit a little inside the highlight rectangle.
const margin = 1.0

// TextInRegions returns the text inside the given regions of a zero-based
// page, region by region in the order given, left to right within each.
func (s *Source) TextInRegions(page int, regions []pdfdoc.Rect) (string, error) {
	f, reader, err := pdflib.Open(s.path)
	if err != nil {
		return "", fmt.Errorf("open pdf for text: %w", err)
	}
	defer f.Close()

	p := reader.Page(page + 1)
	if p.V.IsNull() {
		return "", fmt.Errorf("page %d has no content", page)
	}
	content := p.Content()

	var parts []string
	for _, region := range regions {
		var runs []pdflib.Text
		for _, t := range content.Text {
			if t.X >= region.LLx-margin && t.X <= region.URx+margin &&
				t.Y >= region.LLy-margin && t.Y <= region.URy+margin {
				runs = append(runs, t)
			}
		}
		if len(runs) == 0 {
			continue
		}
		sort.SliceStable(runs, func(i, j int) bool {
			if runs[i].Y != runs[j].Y {
				return runs[i].Y > runs[j].Y
			}
			return runs[i].X < runs[j].X
		})
		var b strings.Builder
		for _, t := range runs {
			b.WriteString(t.S)
		}
		parts = append(parts, strings.TrimSpace(b.String()))
	}
	return strings.Join(parts, " "), nil
}
