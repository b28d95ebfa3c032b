package testing

import (
	"fmt"
	"strings"

	"github.com/go-drift/loom/pkg/surface"
)

// Finder locates nodes in the surface tree.
type Finder interface {
	// Evaluate returns all matching nodes under root (depth-first pre-order).
	Evaluate(root *surface.TreeNode) []*surface.TreeNode
	// Description returns a human-readable description for error messages.
	Description() string
}

// FinderResult wraps finder results with convenient accessors.
type FinderResult struct {
	nodes  []*surface.TreeNode
	finder Finder
}

// First returns the first match. Panics if no matches.
func (r FinderResult) First() *surface.TreeNode {
	if len(r.nodes) == 0 {
		panic(fmt.Sprintf("Finder found no nodes: %s", r.description()))
	}
	return r.nodes[0]
}

// FirstOrNil returns the first match, or nil if none.
func (r FinderResult) FirstOrNil() *surface.TreeNode {
	if len(r.nodes) == 0 {
		return nil
	}
	return r.nodes[0]
}

// At returns the match at index. Panics if out of range.
func (r FinderResult) At(index int) *surface.TreeNode {
	if index < 0 || index >= len(r.nodes) {
		panic(fmt.Sprintf("Finder index %d out of range (found %d): %s", index, len(r.nodes), r.description()))
	}
	return r.nodes[index]
}

// All returns all matches in traversal order.
func (r FinderResult) All() []*surface.TreeNode {
	return r.nodes
}

// Count returns the number of matches.
func (r FinderResult) Count() int {
	return len(r.nodes)
}

// Exists returns true if at least one match was found.
func (r FinderResult) Exists() bool {
	return len(r.nodes) > 0
}

// Text returns the text content of the first match. Panics if no matches.
func (r FinderResult) Text() string {
	return r.First().TextContent()
}

func (r FinderResult) description() string {
	if r.finder == nil {
		return "unknown"
	}
	return r.finder.Description()
}

// --- Concrete finders ---

// predicateFinder matches nodes satisfying a predicate.
type predicateFinder struct {
	fn   func(*surface.TreeNode) bool
	desc string
}

func (f *predicateFinder) Evaluate(root *surface.TreeNode) []*surface.TreeNode {
	return collectMatches(root, f.fn)
}

func (f *predicateFinder) Description() string {
	return f.desc
}

// ByTag returns a finder that matches elements with the given tag.
func ByTag(tag string) Finder {
	return &predicateFinder{
		fn: func(n *surface.TreeNode) bool {
			return n.Kind == surface.KindElement && n.Tag == tag
		},
		desc: fmt.Sprintf("ByTag(%q)", tag),
	}
}

// ByText returns a finder that matches elements whose own text, the text
// of their direct text children, equals text. A text split across static
// and bound parts matches as a whole.
func ByText(text string) Finder {
	return &predicateFinder{
		fn: func(n *surface.TreeNode) bool {
			own, ok := ownText(n)
			return ok && own == text
		},
		desc: fmt.Sprintf("ByText(%q)", text),
	}
}

// ByTextContaining returns a finder that matches elements whose own text
// contains substring.
func ByTextContaining(substring string) Finder {
	return &predicateFinder{
		fn: func(n *surface.TreeNode) bool {
			own, ok := ownText(n)
			return ok && strings.Contains(own, substring)
		},
		desc: fmt.Sprintf("ByTextContaining(%q)", substring),
	}
}

// ByAttr returns a finder that matches elements whose attribute name has
// the given value.
func ByAttr(name, value string) Finder {
	return &predicateFinder{
		fn: func(n *surface.TreeNode) bool {
			v, ok := n.Attrs[name]
			return ok && v == value
		},
		desc: fmt.Sprintf("ByAttr(%s=%q)", name, value),
	}
}

// ByPredicate returns a finder that matches nodes satisfying fn.
func ByPredicate(fn func(*surface.TreeNode) bool) Finder {
	return &predicateFinder{fn: fn, desc: "ByPredicate(...)"}
}

// descendantFinder finds nodes matching 'matching' that are descendants
// of nodes matching 'of'.
type descendantFinder struct {
	of       Finder
	matching Finder
}

func (f *descendantFinder) Evaluate(root *surface.TreeNode) []*surface.TreeNode {
	var results []*surface.TreeNode
	seen := make(map[*surface.TreeNode]bool)
	for _, ancestor := range f.of.Evaluate(root) {
		for _, child := range ancestor.Children {
			for _, match := range f.matching.Evaluate(child) {
				if !seen[match] {
					seen[match] = true
					results = append(results, match)
				}
			}
		}
	}
	return results
}

func (f *descendantFinder) Description() string {
	return fmt.Sprintf("Descendant(of: %s, matching: %s)", f.of.Description(), f.matching.Description())
}

// Descendant returns a finder that matches nodes satisfying 'matching'
// that are descendants of nodes matching 'of'.
func Descendant(of, matching Finder) Finder {
	return &descendantFinder{of: of, matching: matching}
}

// ancestorFinder finds nodes matching 'matching' that are ancestors of
// nodes matching 'of'.
type ancestorFinder struct {
	of       Finder
	matching Finder
}

func (f *ancestorFinder) Evaluate(root *surface.TreeNode) []*surface.TreeNode {
	candidates := f.matching.Evaluate(root)
	if len(candidates) == 0 {
		return nil
	}
	ancestors := make(map[*surface.TreeNode]bool)
	for _, n := range f.of.Evaluate(root) {
		for p := n.Parent; p != nil; p = p.Parent {
			ancestors[p] = true
		}
	}
	// Keep traversal order.
	var results []*surface.TreeNode
	for _, c := range candidates {
		if ancestors[c] {
			results = append(results, c)
		}
	}
	return results
}

func (f *ancestorFinder) Description() string {
	return fmt.Sprintf("Ancestor(of: %s, matching: %s)", f.of.Description(), f.matching.Description())
}

// Ancestor returns a finder that matches nodes satisfying 'matching' that
// are ancestors of nodes matching 'of'.
func Ancestor(of, matching Finder) Finder {
	return &ancestorFinder{of: of, matching: matching}
}

// ownText concatenates the direct text children of an element. ok is false
// for elements without text children and for non-elements.
func ownText(n *surface.TreeNode) (string, bool) {
	if n.Kind != surface.KindElement {
		return "", false
	}
	var sb strings.Builder
	found := false
	for _, c := range n.Children {
		if c.Kind == surface.KindText && c.Text != "" {
			sb.WriteString(c.Text)
			found = true
		}
	}
	return sb.String(), found
}

// collectMatches performs depth-first pre-order traversal, collecting
// nodes that satisfy the predicate.
func collectMatches(root *surface.TreeNode, predicate func(*surface.TreeNode) bool) []*surface.TreeNode {
	var results []*surface.TreeNode
	walkTree(root, func(n *surface.TreeNode) {
		if predicate(n) {
			results = append(results, n)
		}
	})
	return results
}

// walkTree visits root and its descendants in depth-first pre-order.
func walkTree(root *surface.TreeNode, visitor func(*surface.TreeNode)) {
	visitor(root)
	for _, child := range root.Children {
		walkTree(child, visitor)
	}
}
