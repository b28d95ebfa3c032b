// Package view renders view descriptions into a surface and keeps them in
// sync with state.
//
// Every description becomes a tree of [Node]s. A node binds its expressions
// to the state graph of its scope and, when they change, edits only the
// surface nodes it owns. [Fragment.Update] and [LoopNode] reconcile lists:
// entries are matched with existing nodes by [CompareList] or by key, and
// only nodes that are out of place move.
//
// Each node keeps an empty text node as a trailing anchor. Content is always
// inserted right before the anchor, so a node can leave the surface and come
// back to the same position.
package view

import (
	"github.com/go-drift/loom/pkg/event"
	"github.com/go-drift/loom/pkg/state"
	"github.com/go-drift/loom/pkg/surface"
	"github.com/go-drift/loom/pkg/template"
)

// Status is the lifecycle state of a node.
type Status int

const (
	StatusUnrendered Status = iota
	StatusMounted
	StatusUnmounted
	// StatusRemoved is terminal.
	StatusRemoved
)

func (s Status) String() string {
	switch s {
	case StatusMounted:
		return "mounted"
	case StatusUnmounted:
		return "unmounted"
	case StatusRemoved:
		return "removed"
	default:
		return "unrendered"
	}
}

// Node is one rendered piece of a view.
type Node interface {
	// Render builds the node and appends it to parent. Rendering a node
	// twice is a no-op.
	Render(parent surface.Node) error
	// Mount puts an unmounted node back in place.
	Mount()
	// Unmount takes the node's content off the surface. A full unmount
	// also takes the anchor; the next Mount then appends the node to the
	// parent it was rendered into.
	Unmount(full bool)
	// Remove releases the node for good.
	Remove()
	// Update moves the node to a new description.
	Update(desc Description) error
	Description() Description
	Status() Status
	// Nodes returns the surface nodes the node currently has in its parent,
	// in order.
	Nodes() []surface.Node
}

// Host is the component a view belongs to.
type Host interface {
	State() *state.Graph
	// Actions may return nil.
	Actions() template.ActionSet
	Surface() surface.Surface
	// Slot returns the content the host received for the named slot.
	Slot(name string) (SlotFunc, bool)
	// NewComponent creates a child component.
	NewComponent(name string, props *Props) (Child, error)
	// Directive returns the factory registered under name.
	Directive(name string) (DirectiveFactory, error)
}

// Child is a component created by a view.
type Child interface {
	Render(parent surface.Node) error
	Mount()
	Unmount(full bool)
	Remove()
	Nodes() []surface.Node
	State() *state.Graph
	Events() *event.Emitter
	// Public returns what a ref to the component exposes.
	Public() any
}

// SlotFunc renders slot content into parent. local, when not nil, builds
// the graph through which the content reads the yielding element's
// attributes.
type SlotFunc func(parent surface.Node, local LocalState) (Node, error)

// LocalState returns a graph, child of parent, holding the named attribute
// values, or nil when none of names applies.
type LocalState func(names []string, parent *state.Graph) *state.Graph

// scope is what a node binds against: its host, the graph expressions read
// and the refs of the view.
type scope struct {
	host  Host
	graph *state.Graph
	refs  *Refs
}

func (s *scope) State() *state.Graph { return s.graph }

func (s *scope) Actions() template.ActionSet {
	return s.host.Actions()
}

func (s *scope) surface() surface.Surface {
	return s.host.Surface()
}

func (s *scope) with(graph *state.Graph) *scope {
	c := *s
	c.graph = graph
	return &c
}

// base is the lifecycle shared by every node kind.
type base struct {
	status Status
	s      surface.Surface

	parent    surface.Node
	anchor    surface.Node
	anchorOut bool
	// held is the group keeping the content taken off by Unmount.
	held surface.Node
}

func (b *base) Status() Status {
	return b.status
}

func (b *base) rendered() bool {
	return b.status != StatusUnrendered
}

func (b *base) placeAnchor(parent surface.Node) {
	b.parent = parent
	b.anchor = b.s.CreateText("")
	b.s.Append(parent, b.anchor)
}

// placeEnd adds nodes after the node's current content: before the anchor,
// or at the end of the held group while the node is unmounted.
func (b *base) placeEnd(nodes []surface.Node) {
	if len(nodes) == 0 {
		return
	}
	g := b.group(nodes)
	if b.status == StatusUnmounted && !b.anchorOut {
		if b.held == nil {
			b.held = b.s.CreateGroup()
		}
		b.s.Append(b.held, g)
		return
	}
	b.s.Insert(g, b.anchor)
}

// placeBefore puts nodes right before next, which is either the anchor or a
// node of the content.
func (b *base) placeBefore(nodes []surface.Node, next surface.Node) {
	if next == b.anchor {
		b.placeEnd(nodes)
		return
	}
	if len(nodes) > 0 {
		b.s.Insert(b.group(nodes), next)
	}
}

func (b *base) group(nodes []surface.Node) surface.Node {
	g := b.s.CreateGroup()
	for _, n := range nodes {
		b.s.Append(g, n)
	}
	return g
}

// takeOff moves content into the held group and, for a full unmount, the
// anchor after it. It returns false when there is nothing to do.
func (b *base) takeOff(full bool, content []surface.Node) bool {
	switch b.status {
	case StatusMounted:
		b.held = b.group(content)
	case StatusUnmounted:
		if !full || b.anchorOut {
			return false
		}
	default:
		return false
	}
	if full && !b.anchorOut {
		if b.held == nil {
			b.held = b.s.CreateGroup()
		}
		b.s.Append(b.held, b.anchor)
		b.anchorOut = true
	}
	b.status = StatusUnmounted
	return true
}

// restoreAnchor appends an anchor taken off by a full unmount to the parent.
func (b *base) restoreAnchor() {
	if !b.anchorOut {
		return
	}
	b.s.Append(b.parent, b.anchor)
	b.anchorOut = false
}

// putBack inserts the held content before the anchor.
func (b *base) putBack() {
	if b.held != nil {
		b.s.Insert(b.held, b.anchor)
		b.held = nil
	}
	b.status = StatusMounted
}

func (b *base) nodes(content func() []surface.Node) []surface.Node {
	switch b.status {
	case StatusMounted:
		return append(content(), b.anchor)
	case StatusUnmounted:
		if b.anchorOut {
			return nil
		}
		return []surface.Node{b.anchor}
	default:
		return nil
	}
}

func (b *base) dropAnchor() {
	if b.anchor != nil {
		b.s.Remove(b.anchor)
	}
	b.held = nil
	b.status = StatusRemoved
}

// first returns the first surface node of n, or fallback when n has none.
func first(n Node, fallback surface.Node) surface.Node {
	if nodes := n.Nodes(); len(nodes) > 0 {
		return nodes[0]
	}
	return fallback
}

// targeter is implemented by nodes a ref can point at.
type targeter interface {
	target() any
}
