package view

import "reflect"

// Match pairs an entry of a new list description with the node it reuses.
// Node is nil when the entry needs a new node.
type Match struct {
	Description Description
	Node        Node
}

type matcher func(next, prev Description) bool

// matchers are tried in order; an earlier matcher wins over any later one,
// whatever the position of the candidates.
var matchers = []matcher{
	sameText,
	sameKey,
	sameRef,
	sameDescription,
	sameComponent,
	sameIgnoringContent,
}

// CompareList matches each entry of next against the nodes built for prev.
// An entry equal to the previous entry at the same index keeps that node.
// Otherwise it takes the first unclaimed node found by the matchers, in
// priority order: text, key, ref, whole description, component, and
// description ignoring content. Failing all of them, it takes the node at the
// same index if that node can be updated to the entry. Entries whose keys
// differ never match.
func CompareList(next, prev []Description, nodes []Node) []Match {
	claimed := make([]bool, len(nodes))
	out := make([]Match, len(next))
	for i, d := range next {
		out[i].Description = d
		if i < len(nodes) && !claimed[i] && sameAt(d, prev, nodes, i) {
			out[i].Node = nodes[i]
			claimed[i] = true
			continue
		}
		if j := findMatch(d, nodes, claimed); j >= 0 {
			out[i].Node = nodes[j]
			claimed[j] = true
			continue
		}
		if i < len(nodes) && !claimed[i] {
			old := nodes[i].Description()
			if !keysConflict(d, old) && reusable(d, old) {
				out[i].Node = nodes[i]
				claimed[i] = true
			}
		}
	}
	return out
}

// sameAt reports whether d equals the entry the node at i was built from.
// prev is consulted only when it lines up with the nodes.
func sameAt(d Description, prev []Description, nodes []Node, i int) bool {
	if len(prev) == len(nodes) {
		return reflect.DeepEqual(d, prev[i])
	}
	return reflect.DeepEqual(d, nodes[i].Description())
}

func findMatch(d Description, nodes []Node, claimed []bool) int {
	for _, match := range matchers {
		for j, n := range nodes {
			if claimed[j] {
				continue
			}
			old := n.Description()
			if keysConflict(d, old) {
				continue
			}
			if match(d, old) {
				return j
			}
		}
	}
	return -1
}

// CompareElement reports whether next differs from prev in anything but
// content.
func CompareElement(next, prev *ElementDescription) bool {
	if next == nil || prev == nil {
		return next != prev
	}
	return !reflect.DeepEqual(next.withoutContent(), prev.withoutContent())
}

func keysConflict(a, b Description) bool {
	if a.Kind != KindElement || b.Kind != KindElement {
		return false
	}
	return a.Element.Key != "" && b.Element.Key != "" && a.Element.Key != b.Element.Key
}

func sameText(next, prev Description) bool {
	return next.Kind == KindText && prev.Kind == KindText && next.Text == prev.Text
}

func sameKey(next, prev Description) bool {
	return bothElements(next, prev) && prev.Element.Key != "" && prev.Element.Key == next.Element.Key
}

func sameRef(next, prev Description) bool {
	return bothElements(next, prev) && prev.Element.Ref != "" && prev.Element.Ref == next.Element.Ref
}

func sameDescription(next, prev Description) bool {
	return reflect.DeepEqual(next, prev)
}

func sameComponent(next, prev Description) bool {
	return bothElements(next, prev) && prev.Element.Component != "" && prev.Element.Component == next.Element.Component
}

func sameIgnoringContent(next, prev Description) bool {
	return bothElements(next, prev) && !CompareElement(next.Element, prev.Element)
}

func bothElements(a, b Description) bool {
	return a.Kind == KindElement && b.Kind == KindElement
}

// reusable reports whether a node built for prev can be updated to next
// instead of being rebuilt.
func reusable(next, prev Description) bool {
	if next.Kind != prev.Kind {
		return false
	}
	if next.Kind != KindElement {
		return true
	}
	n, p := next.Element, prev.Element
	return n.Name == p.Name && n.Component == p.Component && (n.Repeat == "") == (p.Repeat == "")
}

// stable marks the positions of a longest increasing run of previous indexes.
// Nodes at those positions keep their place; the others move. A negative
// index stands for a new node.
func stable(prev []int) []bool {
	keep := make([]bool, len(prev))
	// tails[k] is the position ending the best run of length k+1.
	var tails []int
	links := make([]int, len(prev))
	for i, p := range prev {
		if p < 0 {
			continue
		}
		lo, hi := 0, len(tails)
		for lo < hi {
			mid := (lo + hi) / 2
			if prev[tails[mid]] < p {
				lo = mid + 1
			} else {
				hi = mid
			}
		}
		if lo > 0 {
			links[i] = tails[lo-1]
		} else {
			links[i] = -1
		}
		if lo == len(tails) {
			tails = append(tails, i)
		} else {
			tails[lo] = i
		}
	}
	if len(tails) == 0 {
		return keep
	}
	for i := tails[len(tails)-1]; i >= 0; i = links[i] {
		keep[i] = true
	}
	return keep
}
