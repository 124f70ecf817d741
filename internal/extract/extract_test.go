package extract_test

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"seehuhn.de/go/pdf"

	"zotoc/internal/extract"
	"zotoc/internal/pdfdoc"
	"zotoc/internal/pdfdoc/pdftest"
)

var (
	yellow = [3]float64{1, 0.83, 0}
	red    = [3]float64{1, 0.4, 0.4}
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rgb(c [3]float64) pdfdoc.RGB { return pdfdoc.RGB{c[0], c[1], c[2]} }

func TestExtract_ReadingOrder(t *testing.T) {
	// Annotations are added in scrambled order across pages; the
	// extractor must return strict (page, top-to-bottom, left-to-right)
	// order.
	doc := pdftest.NewDoc(3)
	doc.AddHighlight(2, yellow, [][]float64{pdftest.Quad(72, 690, 300, 700)}, "page 3 high")
	doc.AddHighlight(0, yellow, [][]float64{pdftest.Quad(72, 100, 300, 110)}, "page 1 low")
	doc.AddHighlight(1, yellow, [][]float64{pdftest.Quad(200, 490, 400, 500)}, "page 2 right")
	doc.AddHighlight(1, yellow, [][]float64{pdftest.Quad(72, 490, 180, 500)}, "page 2 left")
	doc.AddHighlight(0, yellow, [][]float64{pdftest.Quad(72, 690, 300, 700)}, "page 1 high")

	ex := extract.New(discard(), nil)
	got, err := ex.Extract(doc.File(t), rgb(yellow), 0.02)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	want := []string{"page 1 high", "page 1 low", "page 2 left", "page 2 right", "page 3 high"}
	if len(got) != len(want) {
		t.Fatalf("got %d annotations, want %d", len(got), len(want))
	}
	for i, title := range want {
		if got[i].Text != title {
			t.Errorf("position %d: got %q, want %q", i, got[i].Text, title)
		}
	}
}

func TestExtract_ColorFilterWithTolerance(t *testing.T) {
	doc := pdftest.NewDoc(1)
	doc.AddHighlight(0, yellow, [][]float64{pdftest.Quad(72, 690, 300, 700)}, "keep exact")
	doc.AddHighlight(0, [3]float64{0.995, 0.835, 0.005}, [][]float64{pdftest.Quad(72, 590, 300, 600)}, "keep close")
	doc.AddHighlight(0, red, [][]float64{pdftest.Quad(72, 490, 300, 500)}, "drop red")

	ex := extract.New(discard(), nil)
	got, err := ex.Extract(doc.File(t), rgb(yellow), 0.02)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d annotations, want 2", len(got))
	}
	if got[0].Text != "keep exact" || got[1].Text != "keep close" {
		t.Errorf("wrong selection: %q, %q", got[0].Text, got[1].Text)
	}
}

func TestExtract_NoMatchIsAnError(t *testing.T) {
	doc := pdftest.NewDoc(1)
	doc.AddHighlight(0, red, [][]float64{pdftest.Quad(72, 690, 300, 700)}, "red only")

	ex := extract.New(discard(), nil)
	_, err := ex.Extract(doc.File(t), rgb(yellow), 0.02)
	if !errors.Is(err, extract.ErrNoMatch) {
		t.Errorf("got %v, want ErrNoMatch", err)
	}
}

func TestExtract_MultiRegionHighlight(t *testing.T) {
	// One annotation with three line-wrapped quads stays one
	// annotation, with regions in top-to-bottom order.
	doc := pdftest.NewDoc(1)
	doc.AddHighlight(0, yellow, [][]float64{
		pdftest.Quad(200, 670, 540, 680), // middle line
		pdftest.Quad(200, 690, 540, 700), // first line
		pdftest.Quad(72, 650, 250, 660),  // last line
	}, "a heading that wraps\nacross three\nlines")

	ex := extract.New(discard(), nil)
	got, err := ex.Extract(doc.File(t), rgb(yellow), 0.02)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d annotations, want 1", len(got))
	}
	a := got[0]
	if len(a.Regions) != 3 {
		t.Fatalf("got %d regions, want 3", len(a.Regions))
	}
	if !(a.Regions[0].URy > a.Regions[1].URy && a.Regions[1].URy > a.Regions[2].URy) {
		t.Errorf("regions not top-to-bottom: %+v", a.Regions)
	}
	if a.Top() != 700 {
		t.Errorf("Top = %g, want 700 (top of first region)", a.Top())
	}
	if a.Text != "a heading that wraps across three lines" {
		t.Errorf("line breaks not collapsed: %q", a.Text)
	}
}

func TestExtract_MalformedAnnotationIsSkipped(t *testing.T) {
	doc := pdftest.NewDoc(1)
	doc.AddHighlight(0, yellow, [][]float64{pdftest.Quad(72, 690, 300, 700)}, "good")
	// Highlight without QuadPoints.
	doc.AddRawAnnot(0, pdf.Dict{
		"Type":    pdf.Name("Annot"),
		"Subtype": pdf.Name("Highlight"),
		"C":       pdf.Array{pdf.Real(1), pdf.Real(0.83), pdf.Real(0)},
	})
	// QuadPoints with a number count that is not a multiple of 8.
	doc.AddRawAnnot(0, pdf.Dict{
		"Type":       pdf.Name("Annot"),
		"Subtype":    pdf.Name("Highlight"),
		"C":          pdf.Array{pdf.Real(1), pdf.Real(0.83), pdf.Real(0)},
		"QuadPoints": pdf.Array{pdf.Real(1), pdf.Real(2), pdf.Real(3)},
	})

	ex := extract.New(discard(), nil)
	got, err := ex.Extract(doc.File(t), rgb(yellow), 0.02)
	if err != nil {
		t.Fatalf("one bad annotation must not abort the run: %v", err)
	}
	if len(got) != 1 || got[0].Text != "good" {
		t.Errorf("expected only the valid annotation, got %+v", got)
	}
}

func TestExtract_MalformedWarningLoggedOncePerDocument(t *testing.T) {
	// The interactive flow lists colors first and then extracts one
	// pass per color; a bad annotation must not be reported once per
	// pass.
	doc := pdftest.NewDoc(1)
	doc.AddHighlight(0, yellow, [][]float64{pdftest.Quad(72, 690, 300, 700)}, "good")
	doc.AddRawAnnot(0, pdf.Dict{
		"Type":    pdf.Name("Annot"),
		"Subtype": pdf.Name("Highlight"),
		"C":       pdf.Array{pdf.Real(1), pdf.Real(0.83), pdf.Real(0)},
	})

	var buf bytes.Buffer
	ex := extract.New(slog.New(slog.NewTextHandler(&buf, nil)), nil)
	f := doc.File(t)

	if _, err := ex.Colors(f); err != nil {
		t.Fatalf("Colors: %v", err)
	}
	if _, err := ex.Extract(f, rgb(yellow), 0.02); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if got := strings.Count(buf.String(), "skipping malformed annotation"); got != 1 {
		t.Errorf("warning logged %d times, want 1:\n%s", got, buf.String())
	}
}

func TestExtract_IgnoresOtherAnnotationTypes(t *testing.T) {
	doc := pdftest.NewDoc(1)
	doc.AddHighlight(0, yellow, [][]float64{pdftest.Quad(72, 690, 300, 700)}, "highlight")
	doc.AddRawAnnot(0, pdf.Dict{
		"Type":    pdf.Name("Annot"),
		"Subtype": pdf.Name("Text"),
		"C":       pdf.Array{pdf.Real(1), pdf.Real(0.83), pdf.Real(0)},
	})

	ex := extract.New(discard(), nil)
	got, err := ex.Extract(doc.File(t), rgb(yellow), 0.02)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("got %d annotations, want 1", len(got))
	}
}

// recordingRegionText fakes the positioned-text fallback.
type recordingRegionText struct {
	gotPage    int
	gotRegions []pdfdoc.Rect
	text       string
}

func (r *recordingRegionText) TextInRegions(page int, regions []pdfdoc.Rect) (string, error) {
	r.gotPage = page
	r.gotRegions = regions
	return r.text, nil
}

func TestExtract_FallsBackToRegionText(t *testing.T) {
	doc := pdftest.NewDoc(2)
	doc.AddHighlight(1, yellow, [][]float64{
		pdftest.Quad(72, 690, 540, 700),
		pdftest.Quad(72, 670, 300, 680),
	}, "")

	rt := &recordingRegionText{text: "reconstructed  heading\ntext"}
	ex := extract.New(discard(), rt)
	got, err := ex.Extract(doc.File(t), rgb(yellow), 0.02)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got[0].Text != "reconstructed heading text" {
		t.Errorf("title = %q, want normalized fallback text", got[0].Text)
	}
	if rt.gotPage != 1 || len(rt.gotRegions) != 2 {
		t.Errorf("fallback called with page %d and %d regions", rt.gotPage, len(rt.gotRegions))
	}
}

func TestColors(t *testing.T) {
	doc := pdftest.NewDoc(2)
	doc.AddHighlight(0, yellow, [][]float64{pdftest.Quad(72, 690, 300, 700)}, "first yellow")
	doc.AddHighlight(0, red, [][]float64{pdftest.Quad(72, 590, 300, 600)}, "first red")
	doc.AddHighlight(1, yellow, [][]float64{pdftest.Quad(72, 690, 300, 700)}, "second yellow")

	ex := extract.New(discard(), nil)
	got, err := ex.Colors(doc.File(t))
	if err != nil {
		t.Fatalf("Colors: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d colors, want 2", len(got))
	}
	if got[0].Color != rgb(yellow) || got[0].Count != 2 || got[0].Sample != "first yellow" {
		t.Errorf("yellow entry wrong: %+v", got[0])
	}
	if got[1].Color != rgb(red) || got[1].Count != 1 {
		t.Errorf("red entry wrong: %+v", got[1])
	}
}
