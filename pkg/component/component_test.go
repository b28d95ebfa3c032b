package component

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/go-drift/loom/pkg/errors"
	"github.com/go-drift/loom/pkg/lifecycle"
	"github.com/go-drift/loom/pkg/state"
	"github.com/go-drift/loom/pkg/surface"
	"github.com/go-drift/loom/pkg/template"
	"github.com/go-drift/loom/pkg/view"
)

func counter(c *Component) (any, error) {
	c.State().Add("count", 0)
	c.ActionSet().Add("inc", func(...any) (any, error) {
		n, _ := c.State().Get("count").Value().(int)
		return nil, c.State().SetValue("count", n+1)
	})
	return nil, nil
}

func newTestApp(r *Registry) (*App, *surface.Tree) {
	app := NewApp(WithRegistry(r))
	return app, app.Surface().(*surface.Tree)
}

func TestAppRenderCounter(t *testing.T) {
	r := NewRegistry().Component("counter", Definition{
		View:       view.MustParse("name: button\nevents:\n  click: inc\ncontent: \"{{ count }}\"\n"),
		Controller: counter,
	})
	app, tree := newTestApp(r)
	c, err := app.Render("counter")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got := tree.String(); got != "<button>0</button>" {
		t.Fatalf("markup = %q", got)
	}
	button := tree.Root().Children[0]
	tree.Dispatch(button, "click", nil)
	tree.Dispatch(button, "click", nil)
	if got := tree.String(); got != "<button>2</button>" {
		t.Errorf("markup = %q, want %q", got, "<button>2</button>")
	}
	if got := c.State().Get("count").Value(); got != 2 {
		t.Errorf("count = %v, want 2", got)
	}
}

func TestAppStateIsParent(t *testing.T) {
	r := NewRegistry().Component("label", Definition{View: view.Text("{{ theme }}")})
	app, tree := newTestApp(r)
	app.State().Add("theme", "dark")
	c, err := app.Render("label")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if c.State().Parent() != app.State() {
		t.Errorf("component graph parent is not the App state")
	}
	app.State().SetValue("theme", "light")
	if got := tree.String(); got != "light" {
		t.Errorf("markup = %q, want %q", got, "light")
	}
}

func TestNestedComponent(t *testing.T) {
	var picked []any
	r := NewRegistry().
		Component("item", Definition{
			View: view.MustParse("name: button\nevents:\n  click: pick\ncontent: \"{{ label }}\"\n"),
			Controller: func(c *Component) (any, error) {
				picked := c.Events().Create("picked")
				c.ActionSet().Add("pick", func(...any) (any, error) {
					picked.Emit(c.State().Get("label").Value())
					return nil, nil
				})
				return nil, nil
			},
		}).
		Component("list", Definition{
			View: view.MustParse(`
name: nav
content:
  component: item
  props:
    label: title
  events:
    picked: onPick
`),
			Controller: func(c *Component) (any, error) {
				c.State().Add("title", "home")
				c.ActionSet().Add("onPick", func(args ...any) (any, error) {
					picked = args
					return nil, nil
				})
				return nil, nil
			},
		})
	app, tree := newTestApp(r)
	list, err := app.Render("list")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got := tree.String(); got != "<nav><button>home</button></nav>" {
		t.Fatalf("markup = %q", got)
	}

	list.State().SetValue("title", "about")
	if got := tree.String(); got != "<nav><button>about</button></nav>" {
		t.Errorf("markup = %q", got)
	}
	tree.Dispatch(tree.Root().Children[0].Children[0], "click", nil)
	if diff := cmp.Diff([]any{"about"}, picked); diff != "" {
		t.Errorf("picked mismatch (-want +got):\n%s", diff)
	}
	if n := len(app.Instances("item")); n != 1 {
		t.Errorf("Instances(item) = %d, want 1", n)
	}
}

func TestLifecycleOrder(t *testing.T) {
	var got []lifecycle.Hook
	r := NewRegistry().Component("box", Definition{
		View: view.MustParse("name: div\n"),
		Controller: func(c *Component) (any, error) {
			for _, h := range lifecycle.Hooks {
				c.Lifecycle().On(h, func() { got = append(got, h) })
			}
			return nil, nil
		},
	})
	app, tree := newTestApp(r)
	c, err := app.Render("box")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	c.Unmount(false)
	if markup := tree.String(); markup != "" {
		t.Errorf("markup after Unmount = %q, want empty", markup)
	}
	c.Mount()
	if err := c.UpdateView(view.MustParse("name: section\n")); err != nil {
		t.Fatalf("UpdateView() error = %v", err)
	}
	c.Remove()
	c.Remove()

	want := []lifecycle.Hook{
		lifecycle.BeforeCreate, lifecycle.Created,
		lifecycle.BeforeUnmount, lifecycle.Unmounted,
		lifecycle.BeforeMount, lifecycle.Mounted,
		lifecycle.BeforeUpdate, lifecycle.Updated,
		lifecycle.BeforeRemove, lifecycle.Removed,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("hooks mismatch (-want +got):\n%s", diff)
	}
	if markup := tree.String(); markup != "" {
		t.Errorf("markup after Remove = %q, want empty", markup)
	}
	if n := len(app.Instances("box")); n != 0 {
		t.Errorf("Instances(box) = %d after Remove, want 0", n)
	}
}

func TestComponentErrors(t *testing.T) {
	tests := []struct {
		name string
		ctrl Controller
	}{
		{"error", func(*Component) (any, error) { return nil, errors.New("boom") }},
		{"panic", func(*Component) (any, error) { panic("boom") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry().Component("bad", Definition{View: view.Text("x"), Controller: tt.ctrl})
			app, tree := newTestApp(r)
			if _, err := app.Render("bad"); err == nil {
				t.Errorf("Render() error = nil, want the controller failure")
			}
			if got := tree.String(); got != "" {
				t.Errorf("markup = %q, want empty", got)
			}
		})
	}

	app, _ := newTestApp(NewRegistry())
	_, err := app.Render("missing")
	var undefined *errors.UndefinedComponentError
	if !errors.As(err, &undefined) {
		t.Errorf("Render(missing) error = %v, want *UndefinedComponentError", err)
	}
}

type field struct{ focused bool }

func TestPublicThroughRef(t *testing.T) {
	f := &field{}
	var parent *Component
	r := NewRegistry().
		Component("field", Definition{
			View:       view.MustParse("name: input\n"),
			Controller: func(*Component) (any, error) { return f, nil },
		}).
		Component("form", Definition{
			View: view.MustParse("name: form\ncontent:\n  component: field\n  ref: name\n"),
			Controller: func(c *Component) (any, error) {
				parent = c
				return nil, nil
			},
		})
	app, _ := newTestApp(r)
	if _, err := app.Render("form"); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	got, ok := parent.Refs().Get("name")
	if !ok || got != f {
		t.Errorf("Get(name) = %v, %v, want the controller's public value", got, ok)
	}
	if parent.Public() != parent {
		t.Errorf("Public() without a public value is not the component")
	}
}

type session struct {
	state *state.Graph
}

func TestServices(t *testing.T) {
	var built int
	ctor := func(g *state.Graph) (any, error) {
		built++
		g.Add("user", "ada")
		return &session{state: g}, nil
	}
	r := NewRegistry().
		Service("session", ctor, true).
		Service("scratch", ctor, false).
		Component("badge", Definition{
			View: view.Text("{{ user }}"),
			Controller: func(c *Component) (any, error) {
				_, err := c.UseService("session", "user")
				return nil, err
			},
		})

	a, _ := r.ResolveService("session")
	b, _ := r.ResolveService("session")
	if a != b {
		t.Errorf("unique service resolved to two instances")
	}
	x, _ := r.ResolveService("scratch")
	y, _ := r.ResolveService("scratch")
	if x == y {
		t.Errorf("per-use service resolved to one instance")
	}
	if built != 3 {
		t.Errorf("constructor ran %d times, want 3", built)
	}

	app, tree := newTestApp(r)
	if _, err := app.Render("badge"); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got := tree.String(); got != "ada" {
		t.Fatalf("markup = %q", got)
	}
	a.Value().(*session).state.SetValue("user", "bob")
	if got := tree.String(); got != "bob" {
		t.Errorf("markup = %q, want %q", got, "bob")
	}

	_, err := r.ResolveService("nope")
	var invalid *errors.InvalidServiceError
	if !errors.As(err, &invalid) || invalid.Name != "nope" {
		t.Errorf("ResolveService(nope) error = %v, want *InvalidServiceError", err)
	}
}

func TestAppUpdateViewKeepsState(t *testing.T) {
	r := NewRegistry().Component("counter", Definition{
		View:       view.MustParse("name: button\nevents:\n  click: inc\ncontent: \"{{ count }}\"\n"),
		Controller: counter,
	})
	app, tree := newTestApp(r)
	if _, err := app.Render("counter"); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	button := tree.Root().Children[0]
	tree.Dispatch(button, "click", nil)

	if err := app.UpdateView("counter", view.MustParse("name: button\nevents:\n  click: inc\ncontent: \"n={{ count }}\"\n")); err != nil {
		t.Fatalf("UpdateView() error = %v", err)
	}
	if got := tree.String(); got != "<button>n=1</button>" {
		t.Errorf("markup = %q, want %q", got, "<button>n=1</button>")
	}
	if tree.Root().Children[0] != button {
		t.Errorf("button was rebuilt")
	}
	if err := app.UpdateView("missing", view.Text("x")); err == nil {
		t.Errorf("UpdateView(missing) error = nil")
	}
}

func TestActions(t *testing.T) {
	a := NewActions()
	var changes int
	stop := a.OnChange(func() { changes++ })
	a.Add("one", func(args ...any) (any, error) { return len(args), nil })
	a.Set(map[string]template.Action{
		"two":   func(...any) (any, error) { return 2, nil },
		"three": func(...any) (any, error) { return 3, nil },
	})
	stop()
	a.Add("four", func(...any) (any, error) { return 4, nil })

	if changes != 2 {
		t.Errorf("changes = %d, want 2", changes)
	}
	if got, err := a.Call("one", "a", "b"); err != nil || got != 2 {
		t.Errorf("Call(one) = %v, %v, want 2", got, err)
	}
	if _, err := a.Call("five"); err == nil {
		t.Errorf("Call(five) error = nil")
	}
	if diff := cmp.Diff([]string{"four", "one", "three", "two"}, a.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
}

func TestActionsListenerRemovesItself(t *testing.T) {
	a := NewActions()
	var first, second int
	var stop func()
	stop = a.OnChange(func() {
		first++
		stop()
	})
	a.OnChange(func() { second++ })

	a.Add("one", func(...any) (any, error) { return nil, nil })
	a.Add("two", func(...any) (any, error) { return nil, nil })
	if first != 1 || second != 2 {
		t.Errorf("notifications = %d, %d, want 1, 2", first, second)
	}
}
