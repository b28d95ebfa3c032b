package view

import (
	"fmt"
	"strings"

	"github.com/go-drift/loom/pkg/errors"
	"github.com/go-drift/loom/pkg/surface"
)

// Fragment renders a description of any kind as a run of sibling nodes.
type Fragment struct {
	base
	sc       *scope
	desc     Description
	children []Node
}

func newFragment(desc Description, sc *scope) (*Fragment, error) {
	desc, err := resolveChain(desc)
	if err != nil {
		return nil, err
	}
	f := &Fragment{base: base{s: sc.surface()}, sc: sc, desc: desc}
	return f, nil
}

// newNode builds the node for one description.
func newNode(desc Description, sc *scope) (Node, error) {
	switch desc.Kind {
	case KindText:
		return newTextNode(desc, sc)
	case KindList, KindNone:
		return newFragment(desc, sc)
	}
	e := desc.Element
	switch {
	case e.Repeat != "":
		return newLoopNode(desc, sc)
	case e.Component != "":
		return newComponentNode(desc, sc)
	default:
		return newElementNode(desc, sc)
	}
}

func entries(desc Description) []Description {
	switch desc.Kind {
	case KindNone:
		return nil
	case KindList:
		return desc.List
	default:
		return []Description{desc}
	}
}

// build creates a node per entry. An entry that fails is left out and its
// error returned with the others.
func (f *Fragment) build(list []Description) ([]Node, error) {
	nodes := make([]Node, 0, len(list))
	var errs []error
	for _, d := range list {
		n, err := newNode(d, f.sc)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		nodes = append(nodes, n)
	}
	return nodes, errors.Join(errs...)
}

// Render builds and appends every child, then the anchor. Children that
// fail to build are skipped; the errors are returned together.
func (f *Fragment) Render(parent surface.Node) error {
	if f.rendered() {
		return nil
	}
	nodes, err := f.build(entries(f.desc))
	errs := []error{err}
	for _, n := range nodes {
		if err := n.Render(parent); err != nil {
			n.Remove()
			errs = append(errs, err)
			continue
		}
		f.children = append(f.children, n)
	}
	f.placeAnchor(parent)
	f.status = StatusMounted
	return errors.Join(errs...)
}

func (f *Fragment) content() []surface.Node {
	var out []surface.Node
	for _, c := range f.children {
		out = append(out, c.Nodes()...)
	}
	return out
}

// Children returns the child nodes in order.
func (f *Fragment) Children() []Node {
	return append([]Node(nil), f.children...)
}

func (f *Fragment) Mount() {
	if f.status != StatusUnmounted {
		return
	}
	f.restoreAnchor()
	f.putBack()
}

func (f *Fragment) Unmount(full bool) {
	f.takeOff(full, f.content())
}

func (f *Fragment) Remove() {
	if f.status == StatusRemoved {
		return
	}
	for _, c := range f.children {
		c.Remove()
	}
	f.children = nil
	f.dropAnchor()
}

// Update reconciles the children with a new description. Lists are matched
// entry by entry with [CompareList]; matched nodes are updated in place and
// only the nodes that are out of order move.
func (f *Fragment) Update(desc Description) error {
	desc, err := resolveChain(desc)
	if err != nil {
		return err
	}
	if !f.rendered() || f.status == StatusRemoved {
		f.desc = desc
		return nil
	}
	prev := f.desc
	f.desc = desc
	if prev.Kind != desc.Kind && (prev.Kind == KindList || desc.Kind == KindList) {
		return f.rebuild(entries(desc))
	}
	return f.reconcile(entries(desc), entries(prev))
}

func (f *Fragment) rebuild(list []Description) error {
	for _, c := range f.children {
		c.Unmount(true)
		c.Remove()
	}
	f.children = nil
	nodes, err := f.build(list)
	errs := []error{err}
	for _, n := range nodes {
		g := f.s.CreateGroup()
		if err := n.Render(g); err != nil {
			n.Remove()
			errs = append(errs, err)
			continue
		}
		f.placeEnd(n.Nodes())
		f.children = append(f.children, n)
	}
	return errors.Join(errs...)
}

func (f *Fragment) reconcile(next, prev []Description) error {
	matches := CompareList(next, prev, f.children)
	index := make(map[Node]int, len(f.children))
	for i, c := range f.children {
		index[c] = i
	}

	kept := make(map[Node]bool, len(matches))
	var errs []error
	final := make([]Node, 0, len(matches))
	order := make([]int, 0, len(matches))
	for _, m := range matches {
		if m.Node != nil && reusable(m.Description, m.Node.Description()) {
			if err := m.Node.Update(m.Description); err != nil {
				errs = append(errs, err)
			}
			kept[m.Node] = true
			final = append(final, m.Node)
			order = append(order, index[m.Node])
			continue
		}
		n, err := newNode(m.Description, f.sc)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		final = append(final, n)
		order = append(order, -1)
	}
	for _, c := range f.children {
		if !kept[c] {
			c.Unmount(true)
			c.Remove()
		}
	}

	keep := stable(order)
	before := f.anchor
	placed := make([]Node, 0, len(final))
	for i := len(final) - 1; i >= 0; i-- {
		n := final[i]
		switch {
		case order[i] < 0:
			g := f.s.CreateGroup()
			if err := n.Render(g); err != nil {
				n.Remove()
				errs = append(errs, err)
				continue
			}
			f.placeBefore(n.Nodes(), before)
		case !keep[i]:
			f.placeBefore(n.Nodes(), before)
		}
		before = first(n, before)
		placed = append(placed, n)
	}
	for i, j := 0, len(placed)-1; i < j; i, j = i+1, j-1 {
		placed[i], placed[j] = placed[j], placed[i]
	}
	f.children = placed
	return errors.Join(errs...)
}

func (f *Fragment) Description() Description {
	return f.desc
}

func (f *Fragment) Nodes() []surface.Node {
	return f.nodes(f.content)
}

// resolveChain rewrites the else and elseif branches of a list into plain
// guards: elseif c after guards a and b becomes !((a) || (b)) && (c), and
// else becomes !((a) || (b)). Any other entry ends the chain.
func resolveChain(desc Description) (Description, error) {
	if desc.Kind != KindList {
		if desc.Kind == KindElement {
			if desc.Element.Else {
				return desc, &errors.DanglingConditionalError{Branch: "else"}
			}
			if desc.Element.ElseIf != "" {
				return desc, &errors.DanglingConditionalError{Branch: "elseif"}
			}
		}
		return desc, nil
	}
	out := make([]Description, len(desc.List))
	var chain []string
	for i, d := range desc.List {
		out[i] = d
		if d.Kind != KindElement {
			chain = nil
			continue
		}
		e := *d.Element
		switch {
		case e.If != "":
			chain = []string{e.If}
			continue
		case e.ElseIf != "":
			if chain == nil {
				return desc, &errors.DanglingConditionalError{Branch: "elseif"}
			}
			e.If = fmt.Sprintf("%s && (%s)", negate(chain), e.ElseIf)
			chain = append(chain, e.ElseIf)
			e.ElseIf = ""
		case e.Else:
			if chain == nil {
				return desc, &errors.DanglingConditionalError{Branch: "else"}
			}
			e.If = negate(chain)
			e.Else = false
			chain = nil
		default:
			chain = nil
			continue
		}
		out[i] = Element(e)
	}
	return List(out...), nil
}

func negate(conds []string) string {
	parts := make([]string, len(conds))
	for i, c := range conds {
		parts[i] = "(" + c + ")"
	}
	return "!(" + strings.Join(parts, " || ") + ")"
}
