package surface

import (
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies a tree node type.
type Kind int

const (
	KindElement Kind = iota
	KindText
	KindGroup
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindElement:
		return "element"
	case KindText:
		return "text"
	case KindGroup:
		return "group"
	default:
		return "unknown"
	}
}

// TreeNode is a node of a [Tree].
type TreeNode struct {
	ID       int
	Kind     Kind
	Tag      string
	Text     string
	Attrs    map[string]string
	Props    map[string]any
	Parent   *TreeNode
	Children []*TreeNode

	listeners map[string][]*treeListener
}

type treeListener struct {
	fn func(*Event)
}

// Label returns a short identifier such as "li#4" or "text#7".
func (n *TreeNode) Label() string {
	if n == nil {
		return "<nil>"
	}
	name := n.Tag
	if n.Kind != KindElement {
		name = n.Kind.String()
	}
	return name + "#" + strconv.Itoa(n.ID)
}

// TextContent returns the concatenated text of n and its descendants.
func (n *TreeNode) TextContent() string {
	if n.Kind == KindText {
		return n.Text
	}
	var sb strings.Builder
	for _, c := range n.Children {
		sb.WriteString(c.TextContent())
	}
	return sb.String()
}

func (n *TreeNode) indexOf(child *TreeNode) int {
	for i, c := range n.Children {
		if c == child {
			return i
		}
	}
	return -1
}

// Op is one recorded surface mutation.
type Op struct {
	Kind   string
	Node   string
	Target string
	Value  string
}

// String formats the op for logs and diffs.
func (o Op) String() string {
	var sb strings.Builder
	sb.WriteString(o.Kind)
	sb.WriteString(" ")
	sb.WriteString(o.Node)
	if o.Target != "" {
		sb.WriteString(" -> ")
		sb.WriteString(o.Target)
	}
	if o.Value != "" {
		sb.WriteString(" ")
		sb.WriteString(strconv.Quote(o.Value))
	}
	return sb.String()
}

// Tree is an in-memory [Surface]. It records every mutation so tests can
// assert on what the reconciler did, not only on the final markup.
type Tree struct {
	root   *TreeNode
	nextID int
	ops    []Op
}

var _ Surface = (*Tree)(nil)

// NewTree returns a tree with an empty root element.
func NewTree() *Tree {
	t := &Tree{}
	t.root = t.newNode(KindElement, "root")
	return t
}

// Root returns the root element.
func (t *Tree) Root() *TreeNode {
	return t.root
}

// Ops returns the mutations recorded since creation or the last ResetOps.
func (t *Tree) Ops() []Op {
	return append([]Op(nil), t.ops...)
}

// ResetOps clears the mutation log.
func (t *Tree) ResetOps() {
	t.ops = nil
}

func (t *Tree) record(kind string, node *TreeNode, target *TreeNode, value string) {
	op := Op{Kind: kind, Node: node.Label(), Value: value}
	if target != nil {
		op.Target = target.Label()
	}
	t.ops = append(t.ops, op)
}

func (t *Tree) newNode(kind Kind, tag string) *TreeNode {
	t.nextID++
	return &TreeNode{ID: t.nextID, Kind: kind, Tag: tag}
}

func asTreeNode(n Node) *TreeNode {
	tn, ok := n.(*TreeNode)
	if !ok || tn == nil {
		panic(fmt.Sprintf("surface: %T is not a tree node", n))
	}
	return tn
}

// CreateElement creates a detached element.
func (t *Tree) CreateElement(tag string) Node {
	n := t.newNode(KindElement, tag)
	t.record("create", n, nil, "")
	return n
}

// CreateText creates a detached text node.
func (t *Tree) CreateText(text string) Node {
	n := t.newNode(KindText, "")
	n.Text = text
	t.record("create", n, nil, text)
	return n
}

// CreateGroup creates an empty group.
func (t *Tree) CreateGroup() Node {
	return t.newNode(KindGroup, "")
}

// Append adds child as the last child of parent.
func (t *Tree) Append(parent, child Node) {
	p, c := asTreeNode(parent), asTreeNode(child)
	for _, n := range t.expand(c) {
		t.take(n, p)
		n.Parent = p
		p.Children = append(p.Children, n)
		if p.Kind != KindGroup {
			t.record("insert", n, p, "")
		}
	}
}

// Insert places node immediately before anchor.
func (t *Tree) Insert(node, anchor Node) {
	a := asTreeNode(anchor)
	p := a.Parent
	if p == nil {
		panic(fmt.Sprintf("surface: insert before detached anchor %s", a.Label()))
	}
	for _, n := range t.expand(asTreeNode(node)) {
		t.take(n, p)
		i := p.indexOf(a)
		p.Children = append(p.Children, nil)
		copy(p.Children[i+1:], p.Children[i:])
		p.Children[i] = n
		n.Parent = p
		if p.Kind != KindGroup {
			t.record("insert", n, p, "")
		}
	}
}

// expand returns the nodes a group stands for, emptying the group.
func (t *Tree) expand(n *TreeNode) []*TreeNode {
	if n.Kind != KindGroup {
		return []*TreeNode{n}
	}
	children := n.Children
	n.Children = nil
	for _, c := range children {
		c.Parent = nil
	}
	return children
}

// take detaches n before it moves under dst. Moving a node out of the
// document into a group is recorded as a removal.
func (t *Tree) take(n, dst *TreeNode) {
	src := n.Parent
	t.detach(n)
	if src != nil && src.Kind != KindGroup && dst.Kind == KindGroup {
		t.record("remove", n, src, "")
	}
}

func (t *Tree) detach(n *TreeNode) {
	p := n.Parent
	if p == nil {
		return
	}
	if i := p.indexOf(n); i >= 0 {
		p.Children = append(p.Children[:i], p.Children[i+1:]...)
	}
	n.Parent = nil
}

// Remove detaches node from its parent.
func (t *Tree) Remove(node Node) {
	n := asTreeNode(node)
	if n.Parent == nil {
		return
	}
	parent := n.Parent
	t.detach(n)
	if parent.Kind != KindGroup {
		t.record("remove", n, parent, "")
	}
}

// SetText replaces the text of a text node.
func (t *Tree) SetText(node Node, text string) {
	n := asTreeNode(node)
	n.Text = text
	t.record("text", n, nil, text)
}

// SetAttribute sets an attribute.
func (t *Tree) SetAttribute(node Node, name, value string) {
	n := asTreeNode(node)
	if n.Attrs == nil {
		n.Attrs = make(map[string]string)
	}
	n.Attrs[name] = value
	t.record("attr", n, nil, name+"="+value)
}

// RemoveAttribute deletes an attribute.
func (t *Tree) RemoveAttribute(node Node, name string) {
	n := asTreeNode(node)
	if _, ok := n.Attrs[name]; !ok {
		return
	}
	delete(n.Attrs, name)
	t.record("attr", n, nil, name)
}

// SetProperty sets a live property.
func (t *Tree) SetProperty(node Node, name string, value any) {
	n := asTreeNode(node)
	if n.Props == nil {
		n.Props = make(map[string]any)
	}
	n.Props[name] = value
	t.record("prop", n, nil, name+"="+fmt.Sprint(value))
}

// AddEventListener registers fn on node.
func (t *Tree) AddEventListener(node Node, name string, fn func(*Event)) func() {
	n := asTreeNode(node)
	if n.listeners == nil {
		n.listeners = make(map[string][]*treeListener)
	}
	l := &treeListener{fn: fn}
	n.listeners[name] = append(n.listeners[name], l)
	return func() {
		list := n.listeners[name]
		for i, existing := range list {
			if existing == l {
				n.listeners[name] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// Dispatch delivers an event to node and then to its ancestors until a
// listener stops propagation. A nil event is replaced by an empty one.
func (t *Tree) Dispatch(node Node, name string, event *Event) *Event {
	if event == nil {
		event = &Event{}
	}
	event.Name = name
	n := asTreeNode(node)
	event.Target = n
	for cur := n; cur != nil; cur = cur.Parent {
		for _, l := range append([]*treeListener(nil), cur.listeners[name]...) {
			l.fn(event)
		}
		if event.PropagationStopped {
			break
		}
	}
	return event
}

// Listeners returns the number of listeners registered for name on node.
func (t *Tree) Listeners(node Node, name string) int {
	return len(asTreeNode(node).listeners[name])
}

// Markup renders the children of node as markup with sorted attributes.
// Groups and empty text nodes render as nothing.
func (t *Tree) Markup(node Node) string {
	var sb strings.Builder
	for _, c := range asTreeNode(node).Children {
		writeMarkup(&sb, c)
	}
	return sb.String()
}

// String renders the whole tree.
func (t *Tree) String() string {
	return t.Markup(t.root)
}

func writeMarkup(sb *strings.Builder, n *TreeNode) {
	switch n.Kind {
	case KindText:
		sb.WriteString(html.EscapeString(n.Text))
	case KindGroup:
		for _, c := range n.Children {
			writeMarkup(sb, c)
		}
	case KindElement:
		sb.WriteString("<")
		sb.WriteString(n.Tag)
		names := make([]string, 0, len(n.Attrs))
		for name := range n.Attrs {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			sb.WriteString(" ")
			sb.WriteString(name)
			sb.WriteString(`="`)
			sb.WriteString(html.EscapeString(n.Attrs[name]))
			sb.WriteString(`"`)
		}
		sb.WriteString(">")
		for _, c := range n.Children {
			writeMarkup(sb, c)
		}
		sb.WriteString("</")
		sb.WriteString(n.Tag)
		sb.WriteString(">")
	}
}
