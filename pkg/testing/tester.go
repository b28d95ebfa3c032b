package testing

import (
	"fmt"
	"testing"

	"github.com/go-drift/loom/pkg/component"
	"github.com/go-drift/loom/pkg/surface"
	"github.com/go-drift/loom/pkg/view"
)

// RootName is the name a view passed to RenderView is registered under.
const RootName = "loom-test-root"

// ViewTester renders components into an in-memory surface and gives
// access to the result. It drives the same App, graph and reconciler as a
// real program.
type ViewTester struct {
	registry *component.Registry
	tree     *surface.Tree
	app      *component.App
	root     *component.Component
}

// NewViewTester creates a tester with an empty registry.
// Call Cleanup() when done, or use NewViewTesterWithT() instead.
func NewViewTester(opts ...component.Option) *ViewTester {
	tree := surface.NewTree()
	registry := component.NewRegistry()
	opts = append([]component.Option{
		component.WithRegistry(registry),
		component.WithSurface(tree, tree.Root()),
	}, opts...)
	return &ViewTester{
		registry: registry,
		tree:     tree,
		app:      component.NewApp(opts...),
	}
}

// NewViewTesterWithT creates a tester that cleans up via t.Cleanup().
// This is the recommended constructor for tests.
func NewViewTesterWithT(t *testing.T, opts ...component.Option) *ViewTester {
	tester := NewViewTester(opts...)
	t.Cleanup(tester.Cleanup)
	return tester
}

// Cleanup removes the rendered component.
func (t *ViewTester) Cleanup() {
	if t.root != nil {
		t.root.Remove()
		t.root = nil
	}
}

// Registry returns the registry components are resolved from.
func (t *ViewTester) Registry() *component.Registry {
	return t.registry
}

// App returns the application the tester renders with.
func (t *ViewTester) App() *component.App {
	return t.app
}

// Tree returns the surface.
func (t *ViewTester) Tree() *surface.Tree {
	return t.tree
}

// Root returns the rendered component, or nil.
func (t *ViewTester) Root() *component.Component {
	return t.root
}

// RenderView renders desc as a component driven by ctrl, which may be nil.
// A previously rendered component is removed first.
func (t *ViewTester) RenderView(desc view.Description, ctrl component.Controller) error {
	t.registry.Component(RootName, component.Definition{View: desc, Controller: ctrl})
	return t.RenderComponent(RootName)
}

// RenderComponent renders the registered component name. A previously
// rendered component is removed first.
func (t *ViewTester) RenderComponent(name string) error {
	t.Cleanup()
	c, err := t.app.Render(name)
	t.root = c
	return err
}

// Set writes values into the rendered component's graph.
func (t *ViewTester) Set(values map[string]any) error {
	if t.root == nil {
		return fmt.Errorf("Set: nothing rendered")
	}
	return t.root.State().Set(values)
}

// Markup returns the markup of the whole surface.
func (t *ViewTester) Markup() string {
	return t.tree.String()
}

// Ops returns the surface mutations since the last ResetOps.
func (t *ViewTester) Ops() []surface.Op {
	return t.tree.Ops()
}

// ResetOps forgets the recorded mutations.
func (t *ViewTester) ResetOps() {
	t.tree.ResetOps()
}

// Find evaluates a finder against the surface.
func (t *ViewTester) Find(finder Finder) FinderResult {
	return FinderResult{
		nodes:  finder.Evaluate(t.tree.Root()),
		finder: finder,
	}
}

// Dispatch fires an event named name on the first node matched by finder
// and returns the dispatched event.
func (t *ViewTester) Dispatch(finder Finder, name string, data any) (*surface.Event, error) {
	result := t.Find(finder)
	if !result.Exists() {
		return nil, fmt.Errorf("Dispatch: finder matched no nodes: %s", finder.Description())
	}
	return t.tree.Dispatch(result.First(), name, &surface.Event{Data: data}), nil
}

// Click dispatches a click on the first node matched by finder.
func (t *ViewTester) Click(finder Finder) error {
	_, err := t.Dispatch(finder, "click", nil)
	return err
}
