// Package pdfdoc wraps the narrow PDF capability set the tool needs:
// load a document into memory, enumerate pages, read highlight
// annotations, and read or replace the outline tree.
package pdfdoc

import (
	"fmt"
	"io"
	"os"

	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/pagetree"
)

// File is a PDF document loaded fully into memory. The file handle is
// released as soon as loading finishes, so the original on disk is never
// held open while the tool runs.
type File struct {
	data  *pdf.Data
	pages []pdf.Reference
	// pageNo maps a page object reference back to its zero-based index.
	pageNo map[pdf.Reference]int
}

// Open loads the PDF at path.
func Open(path string) (*File, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer fd.Close()

	data, err := pdf.Read(fd, nil)
	if err != nil {
		return nil, fmt.Errorf("read pdf %s: %w", path, err)
	}
	return FromData(data)
}

// FromData wraps an in-memory document. Tests use this to run the
// pipeline against synthetic documents that never touch the disk.
func FromData(data *pdf.Data) (*File, error) {
	pages, err := pagetree.FindPages(data)
	if err != nil {
		return nil, fmt.Errorf("page tree: %w", err)
	}
	pageNo := make(map[pdf.Reference]int, len(pages))
	for i, ref := range pages {
		pageNo[ref] = i
	}
	return &File{data: data, pages: pages, pageNo: pageNo}, nil
}

// NumPages returns the number of pages in the document.
func (f *File) NumPages() int { return len(f.pages) }

// WriteTo serializes the document.
func (f *File) WriteTo(w io.Writer) error {
	if err := f.data.Write(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// WriteFile serializes the document to a new file at path.
func (f *File) WriteFile(path string) error {
	fd, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := f.WriteTo(fd); err != nil {
		fd.Close()
		return err
	}
	if err := fd.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func (f *File) pageDict(i int) (pdf.Dict, error) {
	if i < 0 || i >= len(f.pages) {
		return nil, fmt.Errorf("page %d out of range (document has %d pages)", i, len(f.pages))
	}
	return pdf.GetDict(f.data, f.pages[i])
}

// number resolves obj and converts it to a float64. PDF files use
// Integer and Real interchangeably for numeric entries.
func number(r pdf.Getter, obj pdf.Object) (float64, bool) {
	resolved, err := pdf.Resolve(r, obj)
	if err != nil {
		return 0, false
	}
	switch x := resolved.(type) {
	case pdf.Integer:
		return float64(x), true
	case pdf.Real:
		return float64(x), true
	}
	return 0, false
}
