// Package pdftest builds small in-memory PDF documents for tests, so the
// extraction and outline pipeline runs against real document structures
// without touching the filesystem.
package pdftest

import (
	"testing"

	"seehuhn.de/go/pdf"

	"zotoc/internal/pdfdoc"
)

// Doc accumulates pages and annotations and produces a pdfdoc.File.
type Doc struct {
	data     *pdf.Data
	pagesRef pdf.Reference
	pageRefs []pdf.Reference
	pages    []pdf.Dict
}

// NewDoc creates a document with the given number of empty pages.
func NewDoc(numPages int) *Doc {
	d := &Doc{data: pdf.NewData(pdf.V1_7)}
	d.pagesRef = d.data.Alloc()

	for i := 0; i < numPages; i++ {
		ref := d.data.Alloc()
		dict := pdf.Dict{
			"Type":     pdf.Name("Page"),
			"Parent":   d.pagesRef,
			"MediaBox": pdf.Array{pdf.Integer(0), pdf.Integer(0), pdf.Integer(612), pdf.Integer(792)},
		}
		d.pageRefs = append(d.pageRefs, ref)
		d.pages = append(d.pages, dict)
	}
	return d
}

// Quad returns the QuadPoints numbers for one rectangle, in the vertex
// order highlight producers write: upper left, upper right, lower left,
// lower right.
func Quad(llx, lly, urx, ury float64) []float64 {
	return []float64{llx, ury, urx, ury, llx, lly, urx, lly}
}

// AddHighlight appends a highlight annotation to a zero-based page. Each
// quad becomes one region. contents may be empty.
func (d *Doc) AddHighlight(page int, color [3]float64, quads [][]float64, contents string) {
	var quadPoints pdf.Array
	llx, lly := quads[0][0], quads[0][1]
	urx, ury := llx, lly
	for _, q := range quads {
		for i := 0; i+1 < len(q); i += 2 {
			x, y := q[i], q[i+1]
			quadPoints = append(quadPoints, pdf.Real(x), pdf.Real(y))
			llx, urx = min(llx, x), max(urx, x)
			lly, ury = min(lly, y), max(ury, y)
		}
	}

	dict := pdf.Dict{
		"Type":       pdf.Name("Annot"),
		"Subtype":    pdf.Name("Highlight"),
		"C":          pdf.Array{pdf.Real(color[0]), pdf.Real(color[1]), pdf.Real(color[2])},
		"QuadPoints": quadPoints,
		"Rect":       pdf.Array{pdf.Real(llx), pdf.Real(lly), pdf.Real(urx), pdf.Real(ury)},
	}
	if contents != "" {
		dict["Contents"] = pdf.TextString(contents)
	}
	d.addAnnot(page, dict)
}

// AddRawAnnot appends an arbitrary annotation dictionary to a page, for
// malformed-input tests.
func (d *Doc) AddRawAnnot(page int, dict pdf.Dict) {
	d.addAnnot(page, dict)
}

func (d *Doc) addAnnot(page int, dict pdf.Dict) {
	ref := d.data.Alloc()
	if err := d.data.Put(ref, dict); err != nil {
		panic(err)
	}
	annots, _ := d.pages[page]["Annots"].(pdf.Array)
	d.pages[page]["Annots"] = append(annots, ref)
}

// File finalizes the document structure and wraps it.
func (d *Doc) File(tb testing.TB) *pdfdoc.File {
	tb.Helper()

	kids := make(pdf.Array, len(d.pageRefs))
	for i, ref := range d.pageRefs {
		kids[i] = ref
		if err := d.data.Put(ref, d.pages[i]); err != nil {
			tb.Fatalf("put page %d: %v", i, err)
		}
	}
	pagesDict := pdf.Dict{
		"Type":  pdf.Name("Pages"),
		"Kids":  kids,
		"Count": pdf.Integer(len(kids)),
	}
	if err := d.data.Put(d.pagesRef, pagesDict); err != nil {
		tb.Fatalf("put page tree: %v", err)
	}
	d.data.GetMeta().Catalog.Pages = d.pagesRef

	f, err := pdfdoc.FromData(d.data)
	if err != nil {
		tb.Fatalf("wrap test document: %v", err)
	}
	return f
}
