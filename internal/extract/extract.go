// Package extract selects and orders highlight annotations by color.
package extract

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"zotoc/internal/pdfdoc"
)

// ErrNoMatch is returned when no highlight annotation matches the
// requested color. This usually means the wrong color was picked, so it
// is reported instead of producing an empty outline.
var ErrNoMatch = errors.New("no highlight annotations match the requested color")

// Annotation is one highlight selected for the outline.
type Annotation struct {
	Page    int
	Color   pdfdoc.RGB
	Regions []pdfdoc.Rect
	// Text is the display title: the highlighted text with markup
	// stripped and whitespace collapsed.
	Text string
}

// Top is the vertical position of the top edge of the first region.
func (a Annotation) Top() float64 { return a.Regions[0].URy }

// Left is the left edge of the first region.
func (a Annotation) Left() float64 { return a.Regions[0].LLx }

// RegionText reconstructs the text under a set of regions on a page.
// It is consulted when an annotation carries no usable contents.
type RegionText interface {
	TextInRegions(page int, regions []pdfdoc.Rect) (string, error)
}

// Extractor reads highlights from a document. Malformed annotations are
// skipped with a warning so one bad highlight does not block the run.
type Extractor struct {
	log        *slog.Logger
	regionText RegionText

	// A document is read once and shared between Colors and the
	// per-color passes, so each skipped annotation is reported once.
	cachedFile *pdfdoc.File
	cached     []Annotation
}

// New returns an Extractor. regionText may be nil; annotations without
// contents then fall back to a placeholder title.
func New(log *slog.Logger, regionText RegionText) *Extractor {
	return &Extractor{log: log, regionText: regionText}
}

// Extract returns the highlights whose color matches target within a
// per-channel tolerance, ordered by page, then top-to-bottom, then
// left-to-right. Ties keep document scan order.
func (e *Extractor) Extract(f *pdfdoc.File, target pdfdoc.RGB, tolerance float64) ([]Annotation, error) {
	all, err := e.readAll(f)
	if err != nil {
		return nil, err
	}

	var res []Annotation
	for _, a := range all {
		if a.Color.WithinTolerance(target, tolerance) {
			res = append(res, a)
		}
	}
	if len(res) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMatch, target.Hex())
	}
	return res, nil
}

// ColorCount is one highlight color observed in a document.
type ColorCount struct {
	Color pdfdoc.RGB
	Count int
	// Sample is the title of the first highlight in that color.
	Sample string
}

// Colors lists the distinct highlight colors of a document in reading
// order of their first occurrence.
func (e *Extractor) Colors(f *pdfdoc.File) ([]ColorCount, error) {
	all, err := e.readAll(f)
	if err != nil {
		return nil, err
	}

	index := map[pdfdoc.RGB]int{}
	var res []ColorCount
	for _, a := range all {
		if i, ok := index[a.Color]; ok {
			res[i].Count++
			continue
		}
		index[a.Color] = len(res)
		res = append(res, ColorCount{Color: a.Color, Count: 1, Sample: a.Text})
	}
	return res, nil
}

func (e *Extractor) readAll(f *pdfdoc.File) ([]Annotation, error) {
	if f == e.cachedFile {
		return e.cached, nil
	}

	highlights, skipped, err := f.ReadHighlights()
	if err != nil {
		return nil, fmt.Errorf("read annotations: %w", err)
	}
	for _, bad := range skipped {
		e.log.Warn("skipping malformed annotation", "page", bad.Page, "reason", bad.Reason)
	}

	res := make([]Annotation, 0, len(highlights))
	for _, h := range highlights {
		res = append(res, Annotation{
			Page:    h.Page,
			Color:   h.Color,
			Regions: h.Regions,
			Text:    e.title(h),
		})
	}

	sort.SliceStable(res, func(i, j int) bool {
		a, b := res[i], res[j]
		if a.Page != b.Page {
			return a.Page < b.Page
		}
		// The PDF vertical axis grows upward, so larger y is higher
		// on the rendered page.
		if a.Top() != b.Top() {
			return a.Top() > b.Top()
		}
		return a.Left() < b.Left()
	})

	e.cachedFile, e.cached = f, res
	return res, nil
}

func (e *Extractor) title(h pdfdoc.Highlight) string {
	if t := NormalizeTitle(h.Contents); t != "" {
		return t
	}
	if e.regionText != nil {
		text, err := e.regionText.TextInRegions(h.Page, h.Regions)
		if err != nil {
			e.log.Warn("region text reconstruction failed", "page", h.Page, "error", err)
		} else if t := NormalizeTitle(text); t != "" {
			return t
		}
	}
	return fmt.Sprintf("(highlight p.%d)", h.Page+1)
}
