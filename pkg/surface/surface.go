// Package surface defines the render surface loom draws into.
//
// The reconciler never touches a concrete document; it creates, moves and
// edits nodes through [Surface]. [Tree] is the in-memory implementation used
// by the tests and the loom command.
package surface

// Node is an opaque handle to a node created by a Surface.
type Node any

// Surface is the set of primitive operations the reconciler needs.
//
// A group is a transparent container: appending or inserting a group moves
// its children and leaves the group empty. A group also holds nodes taken
// off the surface; they keep their order and can serve as insertion anchors
// until they are put back.
type Surface interface {
	CreateElement(tag string) Node
	CreateText(text string) Node
	CreateGroup() Node

	// Append adds child as the last child of parent.
	Append(parent, child Node)
	// Insert places node immediately before anchor, under anchor's parent.
	Insert(node, anchor Node)
	// Remove detaches node from its parent. A detached node may be inserted
	// again later.
	Remove(node Node)

	SetText(node Node, text string)
	SetAttribute(node Node, name, value string)
	RemoveAttribute(node Node, name string)
	// SetProperty sets a live property such as value or checked.
	SetProperty(node Node, name string, value any)

	// AddEventListener registers fn for events named name on node and
	// returns a function that removes it.
	AddEventListener(node Node, name string, fn func(*Event)) func()
}

// Event is delivered to event listeners.
type Event struct {
	Name   string
	Target Node
	Data   any

	DefaultPrevented   bool
	PropagationStopped bool
}

// PreventDefault marks the event's default action as cancelled.
func (e *Event) PreventDefault() {
	e.DefaultPrevented = true
}

// StopPropagation stops the event from reaching ancestor listeners.
func (e *Event) StopPropagation() {
	e.PropagationStopped = true
}
