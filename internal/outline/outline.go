// Package outline turns ordered highlight records into a bookmark tree.
package outline

import "sort"

// Node is one entry of a document outline.
type Node struct {
	Title string
	// Page is the zero-based page index of the jump target.
	Page int
	// Top is the vertical offset of the jump target, in PDF user space
	// (origin at the bottom of the page).
	Top      float64
	Level    int
	Children []*Node
}

// Entry is a single highlight scheduled for inclusion in the outline.
// Seq is the position in the extractor's output and breaks ties between
// entries at the same page and vertical position.
type Entry struct {
	Title string
	Page  int
	Top   float64
	Left  float64
	Level int
	Seq   int
}

// Build merges entries from one or more extraction passes into a tree.
//
// Entries are first brought into global reading order (page ascending, then
// top of region descending since the PDF vertical axis grows upward, then
// left edge, then original extraction order). An entry of level L then
// becomes a child of the nearest preceding entry of a lower level; entries
// with no such ancestor stay at the top level.
func Build(entries []Entry) []*Node {
	ordered := make([]Entry, len(entries))
	copy(ordered, entries)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Page != b.Page {
			return a.Page < b.Page
		}
		if a.Top != b.Top {
			return a.Top > b.Top
		}
		if a.Left != b.Left {
			return a.Left < b.Left
		}
		return a.Seq < b.Seq
	})

	var roots []*Node

	// Stack of open ancestors, shallowest first.
	type stackEntry struct {
		node  *Node
		level int
	}
	var stack []stackEntry

	for _, e := range ordered {
		n := &Node{
			Title: e.Title,
			Page:  e.Page,
			Top:   e.Top,
			Level: e.Level,
		}

		// Pop until the top of the stack can be a parent.
		for len(stack) > 0 && stack[len(stack)-1].level >= e.Level {
			stack = stack[:len(stack)-1]
		}

		if len(stack) == 0 {
			roots = append(roots, n)
		} else {
			parent := stack[len(stack)-1].node
			parent.Children = append(parent.Children, n)
		}
		stack = append(stack, stackEntry{node: n, level: e.Level})
	}

	return roots
}

// Count returns the total number of nodes in the forest.
func Count(nodes []*Node) int {
	total := 0
	for _, n := range nodes {
		total += 1 + Count(n.Children)
	}
	return total
}

// Walk visits every node depth-first in reading order.
func Walk(nodes []*Node, fn func(n *Node, depth int)) {
	var rec func(ns []*Node, depth int)
	rec = func(ns []*Node, depth int) {
		for _, n := range ns {
			fn(n, depth)
			rec(n.Children, depth+1)
		}
	}
	rec(nodes, 0)
}
