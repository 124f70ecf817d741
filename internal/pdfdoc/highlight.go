package pdfdoc

import (
	"fmt"
	"sort"

	"seehuhn.de/go/pdf"
)

// RGB is a device-RGB color with components in [0, 1].
type RGB [3]float64

// WithinTolerance reports whether every channel of o is within tol of c.
func (c RGB) WithinTolerance(o RGB, tol float64) bool {
	for i := range c {
		d := c[i] - o[i]
		if d < -tol || d > tol {
			return false
		}
	}
	return true
}

// Hex returns the color in #rrggbb notation.
func (c RGB) Hex() string {
	clamp := func(v float64) int {
		n := int(v*255 + 0.5)
		if n < 0 {
			return 0
		}
		if n > 255 {
			return 255
		}
		return n
	}
	return fmt.Sprintf("#%02x%02x%02x", clamp(c[0]), clamp(c[1]), clamp(c[2]))
}

// Rect is an axis-aligned rectangle in PDF user space (y grows upward).
type Rect struct {
	LLx, LLy, URx, URy float64
}

// Highlight is one highlight annotation, normalized. Regions are ordered
// top-to-bottom, left-to-right; a multi-line highlight has one region per
// line but always stays on a single page.
type Highlight struct {
	Page     int
	Color    RGB
	Regions  []Rect
	Contents string
}

// Top is the vertical position of the top edge of the first region.
func (h Highlight) Top() float64 { return h.Regions[0].URy }

// Left is the left edge of the first region.
func (h Highlight) Left() float64 { return h.Regions[0].LLx }

// MalformedAnnotationError describes a highlight that had to be skipped.
// A single bad annotation never aborts the run.
type MalformedAnnotationError struct {
	Page   int
	Reason string
}

func (e *MalformedAnnotationError) Error() string {
	return fmt.Sprintf("page %d: malformed highlight annotation: %s", e.Page, e.Reason)
}

// ReadHighlights scans every page's annotation list and returns all
// highlight annotations in document scan order, together with the
// annotations that were skipped as malformed.
func (f *File) ReadHighlights() ([]Highlight, []*MalformedAnnotationError, error) {
	var (
		res     []Highlight
		skipped []*MalformedAnnotationError
	)
	for pageNo := range f.pages {
		page, err := f.pageDict(pageNo)
		if err != nil {
			return nil, nil, err
		}
		annots, err := pdf.GetArray(f.data, page["Annots"])
		if err != nil {
			return nil, nil, fmt.Errorf("page %d: annotation list: %w", pageNo, err)
		}
		for _, obj := range annots {
			dict, err := pdf.GetDict(f.data, obj)
			if err != nil || dict == nil {
				continue
			}
			subtype, err := pdf.GetName(f.data, dict["Subtype"])
			if err != nil || subtype != "Highlight" {
				continue
			}
			h, bad := f.readHighlight(pageNo, dict)
			if bad != nil {
				skipped = append(skipped, bad)
				continue
			}
			res = append(res, h)
		}
	}
	return res, skipped, nil
}

func (f *File) readHighlight(pageNo int, dict pdf.Dict) (Highlight, *MalformedAnnotationError) {
	h := Highlight{Page: pageNo}

	color, ok := annotationColor(f.data, dict["C"])
	if !ok {
		return h, &MalformedAnnotationError{Page: pageNo, Reason: "missing or invalid color"}
	}
	h.Color = color

	quads, err := pdf.GetArray(f.data, dict["QuadPoints"])
	if err != nil {
		return h, &MalformedAnnotationError{Page: pageNo, Reason: "unreadable QuadPoints"}
	}
	if len(quads) == 0 || len(quads)%8 != 0 {
		return h, &MalformedAnnotationError{
			Page:   pageNo,
			Reason: fmt.Sprintf("QuadPoints has %d numbers, want a positive multiple of 8", len(quads)),
		}
	}
	for i := 0; i+8 <= len(quads); i += 8 {
		coords := make([]float64, 8)
		for j := range coords {
			v, ok := number(f.data, quads[i+j])
			if !ok {
				return h, &MalformedAnnotationError{Page: pageNo, Reason: "non-numeric QuadPoints entry"}
			}
			coords[j] = v
		}
		h.Regions = append(h.Regions, quadRect(coords))
	}

	// Top-to-bottom, then left-to-right, so a line-wrapped highlight
	// reads in text order.
	sort.SliceStable(h.Regions, func(i, j int) bool {
		if h.Regions[i].URy != h.Regions[j].URy {
			return h.Regions[i].URy > h.Regions[j].URy
		}
		return h.Regions[i].LLx < h.Regions[j].LLx
	})

	if s, err := pdf.GetString(f.data, dict["Contents"]); err == nil && len(s) > 0 {
		h.Contents = s.AsTextString()
	}

	return h, nil
}

// quadRect computes the bounding rectangle of one QuadPoints quadrilateral
// (x1 y1 x2 y2 x3 y3 x4 y4, vertex order varies between producers).
func quadRect(q []float64) Rect {
	r := Rect{LLx: q[0], LLy: q[1], URx: q[0], URy: q[1]}
	for i := 2; i+1 < len(q); i += 2 {
		x, y := q[i], q[i+1]
		if x < r.LLx {
			r.LLx = x
		}
		if x > r.URx {
			r.URx = x
		}
		if y < r.LLy {
			r.LLy = y
		}
		if y > r.URy {
			r.URy = y
		}
	}
	return r
}

// annotationColor normalizes the /C entry to device RGB. Producers write
// gray, RGB, or CMYK arrays.
func annotationColor(r pdf.Getter, obj pdf.Object) (RGB, bool) {
	arr, err := pdf.GetArray(r, obj)
	if err != nil || arr == nil {
		return RGB{}, false
	}
	comps := make([]float64, 0, len(arr))
	for _, c := range arr {
		v, ok := number(r, c)
		if !ok {
			return RGB{}, false
		}
		comps = append(comps, v)
	}
	switch len(comps) {
	case 1:
		return RGB{comps[0], comps[0], comps[0]}, true
	case 3:
		return RGB{comps[0], comps[1], comps[2]}, true
	case 4:
		c, m, y, k := comps[0], comps[1], comps[2], comps[3]
		return RGB{(1 - c) * (1 - k), (1 - m) * (1 - k), (1 - y) * (1 - k)}, true
	}
	return RGB{}, false
}
