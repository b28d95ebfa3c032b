package view

import (
	"testing"

	"github.com/go-drift/loom/pkg/errors"
	"github.com/go-drift/loom/pkg/event"
	"github.com/go-drift/loom/pkg/state"
	"github.com/go-drift/loom/pkg/surface"
	"github.com/go-drift/loom/pkg/template"
)

type testActions map[string]template.Action

func (a testActions) Lookup(name string) (template.Action, bool) {
	fn, ok := a[name]
	return fn, ok
}

func (a testActions) OnChange(func()) func() { return func() {} }

// testHost is a minimal component: a graph, an action set and the
// registries a view looks things up in.
type testHost struct {
	graph      *state.Graph
	tree       *surface.Tree
	actions    testActions
	props      *Props
	slots      map[string]SlotFunc
	components map[string]Description
	directives map[string]DirectiveFactory
	children   []*testChild
}

func newTestHost(values map[string]any) *testHost {
	return &testHost{
		graph:      state.New(nil, values),
		tree:       surface.NewTree(),
		actions:    testActions{},
		slots:      map[string]SlotFunc{},
		components: map[string]Description{},
		directives: map[string]DirectiveFactory{},
	}
}

func (h *testHost) State() *state.Graph { return h.graph }

func (h *testHost) Actions() template.ActionSet {
	if h.actions == nil {
		return nil
	}
	return h.actions
}

func (h *testHost) Surface() surface.Surface { return h.tree }

func (h *testHost) Slot(name string) (SlotFunc, bool) {
	if h.props != nil {
		if fn, ok := h.props.Slot(name); ok {
			return fn, true
		}
	}
	fn, ok := h.slots[name]
	return fn, ok
}

func (h *testHost) NewComponent(name string, props *Props) (Child, error) {
	desc, ok := h.components[name]
	if !ok {
		return nil, &errors.UndefinedComponentError{Name: name}
	}
	childHost := &testHost{
		graph:      state.New(nil, nil),
		tree:       h.tree,
		props:      props,
		components: h.components,
		directives: h.directives,
	}
	if err := childHost.graph.UseProps(props); err != nil {
		return nil, err
	}
	v, err := NewView(desc, childHost)
	if err != nil {
		return nil, err
	}
	c := &testChild{host: childHost, view: v}
	h.children = append(h.children, c)
	return c, nil
}

func (h *testHost) Directive(name string) (DirectiveFactory, error) {
	f, ok := h.directives[name]
	if !ok {
		return nil, &errors.UndefinedDirectiveError{Name: name}
	}
	return f, nil
}

type testChild struct {
	host   *testHost
	view   *View
	events event.Emitter
}

func (c *testChild) Render(parent surface.Node) error { return c.view.Render(parent) }
func (c *testChild) Mount() { c.view.Mount() }
func (c *testChild) Unmount(full bool) { c.view.Unmount(full) }
func (c *testChild) Remove() { c.view.Remove() }
func (c *testChild) Nodes() []surface.Node { return c.view.Nodes() }
func (c *testChild) State() *state.Graph { return c.host.graph }
func (c *testChild) Events() *event.Emitter { return &c.events }
func (c *testChild) Public() any { return c }

func render(t *testing.T, h *testHost, desc Description) *View {
	t.Helper()
	v, err := NewView(desc, h)
	if err != nil {
		t.Fatalf("NewView() error = %v", err)
	}
	if err := v.Render(h.tree.Root()); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return v
}

func opsOfKind(ops []surface.Op, kind string) []surface.Op {
	var out []surface.Op
	for _, op := range ops {
		if op.Kind == kind {
			out = append(out, op)
		}
	}
	return out
}

func elementChildren(n *surface.TreeNode) []*surface.TreeNode {
	var out []*surface.TreeNode
	for _, c := range n.Children {
		if c.Kind == surface.KindElement {
			out = append(out, c)
		}
	}
	return out
}
