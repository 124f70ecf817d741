package pdfdoc

import (
	"errors"
	"fmt"

	"seehuhn.de/go/pdf"

	"zotoc/internal/outline"
)

// SetOutline replaces the document outline with the given tree. Every
// entry is written as a standard outline item dictionary with Title,
// Parent/First/Last/Prev/Next links, Count, and an explicit
// [page /XYZ null top null] destination. All items start out expanded.
func (f *File) SetOutline(roots []*outline.Node) error {
	if len(roots) == 0 {
		return errors.New("refusing to write an empty outline")
	}

	rootRef := f.data.Alloc()
	first, last, count, err := f.writeItems(rootRef, roots)
	if err != nil {
		return err
	}

	rootDict := pdf.Dict{
		"Type":  pdf.Name("Outlines"),
		"First": first,
		"Last":  last,
		"Count": pdf.Integer(count),
	}
	if err := f.data.Put(rootRef, rootDict); err != nil {
		return fmt.Errorf("write outline root: %w", err)
	}

	// Any previous outline is replaced wholesale.
	f.data.GetMeta().Catalog.Outlines = rootRef
	f.data.GetMeta().Catalog.PageMode = "UseOutlines"
	return nil
}

// writeItems writes one sibling chain and returns its first and last
// references together with the number of items visible when all
// ancestors are expanded.
func (f *File) writeItems(parent pdf.Reference, items []*outline.Node) (first, last pdf.Reference, count int, err error) {
	refs := make([]pdf.Reference, len(items))
	for i := range refs {
		refs[i] = f.data.Alloc()
	}

	for i, item := range items {
		if item.Page < 0 || item.Page >= len(f.pages) {
			return 0, 0, 0, fmt.Errorf("outline entry %q: page %d out of range (document has %d pages)",
				item.Title, item.Page, len(f.pages))
		}

		dict := pdf.Dict{
			"Title":  pdf.TextString(item.Title),
			"Parent": parent,
			"Dest": pdf.Array{
				f.pages[item.Page],
				pdf.Name("XYZ"),
				nil,
				pdf.Real(item.Top),
				nil,
			},
		}
		if i > 0 {
			dict["Prev"] = refs[i-1]
		}
		if i < len(items)-1 {
			dict["Next"] = refs[i+1]
		}

		count++
		if len(item.Children) > 0 {
			cFirst, cLast, cCount, err := f.writeItems(refs[i], item.Children)
			if err != nil {
				return 0, 0, 0, err
			}
			dict["First"] = cFirst
			dict["Last"] = cLast
			dict["Count"] = pdf.Integer(cCount)
			count += cCount
		}

		if err := f.data.Put(refs[i], dict); err != nil {
			return 0, 0, 0, fmt.Errorf("write outline entry %q: %w", item.Title, err)
		}
	}

	return refs[0], refs[len(refs)-1], count, nil
}

// ReadOutline reads the document outline back into nodes. It returns nil
// if the document has none. Destinations that do not point at a page of
// this document come back with Page -1. Node levels are re-derived from
// the nesting depth; the file format does not record the level an entry
// was built with, so a tree written with gaps in its levels reads back
// with consecutive ones.
func (f *File) ReadOutline() ([]*outline.Node, error) {
	rootRef := f.data.GetMeta().Catalog.Outlines
	if rootRef == 0 {
		return nil, nil
	}
	rootDict, err := pdf.GetDict(f.data, rootRef)
	if err != nil {
		return nil, fmt.Errorf("outline root: %w", err)
	}
	seen := map[pdf.Reference]bool{rootRef: true}
	return f.readItems(rootDict["First"], 0, seen)
}

func (f *File) readItems(obj pdf.Object, level int, seen map[pdf.Reference]bool) ([]*outline.Node, error) {
	var res []*outline.Node
	for obj != nil {
		ref, ok := obj.(pdf.Reference)
		if !ok || ref == 0 {
			break
		}
		if seen[ref] {
			return nil, errors.New("outline tree contains a loop")
		}
		seen[ref] = true

		dict, err := pdf.GetDict(f.data, ref)
		if err != nil {
			return nil, fmt.Errorf("outline entry: %w", err)
		}

		n := &outline.Node{Page: -1, Level: level}
		if s, err := pdf.GetString(f.data, dict["Title"]); err == nil {
			n.Title = s.AsTextString()
		}
		if dest, err := pdf.GetArray(f.data, dict["Dest"]); err == nil && len(dest) > 0 {
			if pageRef, ok := dest[0].(pdf.Reference); ok {
				if no, ok := f.pageNo[pageRef]; ok {
					n.Page = no
				}
			}
			if len(dest) >= 4 {
				if top, ok := number(f.data, dest[3]); ok {
					n.Top = top
				}
			}
		}

		n.Children, err = f.readItems(dict["First"], level+1, seen)
		if err != nil {
			return nil, err
		}
		res = append(res, n)

		obj = dict["Next"]
	}
	return res, nil
}
