package component

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/go-drift/loom/pkg/errors"
	"github.com/go-drift/loom/pkg/event"
	"github.com/go-drift/loom/pkg/lifecycle"
	"github.com/go-drift/loom/pkg/state"
	"github.com/go-drift/loom/pkg/surface"
	"github.com/go-drift/loom/pkg/template"
	"github.com/go-drift/loom/pkg/view"
)

// Component is a live instance of a registered component: its graph,
// actions, events and hooks around one rendered view.
//
// A Component is the view.Host of its view and the view.Child its parent
// view holds.
type Component struct {
	id      uuid.UUID
	name    string
	app     *App
	graph   *state.Graph
	props   *view.Props
	actions *Actions
	events  event.Emitter
	hooks   lifecycle.Listeners
	view    *view.View
	public  any
	removed bool
}

func newComponent(app *App, name string, def *Definition, props *view.Props) (*Component, error) {
	if props == nil {
		props = view.StaticProps(nil)
	}
	c := &Component{
		id:      uuid.New(),
		name:    name,
		app:     app,
		graph:   state.New(app.state, nil),
		props:   props,
		actions: NewActions(),
	}
	if err := c.graph.UseProps(props); err != nil {
		return nil, err
	}
	v, err := view.NewView(def.View, c)
	if err != nil {
		return nil, fmt.Errorf("component %s: %w", name, err)
	}
	c.view = v
	if def.Controller != nil {
		public, err := c.control(def.Controller)
		if err != nil {
			c.graph.Disconnect()
			return nil, fmt.Errorf("component %s: %w", name, err)
		}
		c.public = public
	}
	return c, nil
}

func (c *Component) control(ctrl Controller) (public any, err error) {
	defer errors.RecoverWithCallback("component.Controller", func(r any) {
		err = fmt.Errorf("controller panicked: %v", r)
	})
	return ctrl(c)
}

// ID identifies the instance.
func (c *Component) ID() uuid.UUID {
	return c.id
}

// Name returns the registered name.
func (c *Component) Name() string {
	return c.name
}

// App returns the application the component belongs to.
func (c *Component) App() *App {
	return c.app
}

// State returns the component graph. Its parent is the App state.
func (c *Component) State() *state.Graph {
	return c.graph
}

// Props returns the props the parent passed.
func (c *Component) Props() *view.Props {
	return c.props
}

// Actions implements view.Host.
func (c *Component) Actions() template.ActionSet {
	return c.actions
}

// ActionSet returns the component's actions for registration.
func (c *Component) ActionSet() *Actions {
	return c.actions
}

// Events returns the emitter the parent listens on.
func (c *Component) Events() *event.Emitter {
	return &c.events
}

// Lifecycle returns the component hooks.
func (c *Component) Lifecycle() *lifecycle.Listeners {
	return &c.hooks
}

// Refs returns the refs of the component view.
func (c *Component) Refs() *view.Refs {
	return c.view.Refs()
}

// View returns the component view.
func (c *Component) View() *view.View {
	return c.view
}

// Public returns what the controller exposed, or the component itself.
func (c *Component) Public() any {
	if c.public != nil {
		return c.public
	}
	return c
}

// Service resolves a service through the App registry.
func (c *Component) Service(name string) (*Service, error) {
	return c.app.service(name)
}

// UseService resolves a service and mirrors its state, restricted to only
// when given, into the component graph.
func (c *Component) UseService(name string, only ...string) (*Service, error) {
	s, err := c.Service(name)
	if err != nil {
		return nil, err
	}
	if err := c.graph.UseService(s, only...); err != nil {
		return nil, err
	}
	return s, nil
}

// Surface implements view.Host.
func (c *Component) Surface() surface.Surface {
	return c.app.surface
}

// Slot implements view.Host.
func (c *Component) Slot(name string) (view.SlotFunc, bool) {
	return c.props.Slot(name)
}

// NewComponent implements view.Host.
func (c *Component) NewComponent(name string, props *view.Props) (view.Child, error) {
	child, err := c.app.create(name, props)
	if err != nil {
		return nil, err
	}
	return child, nil
}

// Directive implements view.Host.
func (c *Component) Directive(name string) (view.DirectiveFactory, error) {
	return c.app.registry.ResolveDirective(name)
}

// Render renders the view into parent.
func (c *Component) Render(parent surface.Node) error {
	c.hooks.Fire(lifecycle.BeforeCreate)
	err := c.view.Render(parent)
	c.hooks.Fire(lifecycle.Created)
	return err
}

// Mount puts an unmounted component back.
func (c *Component) Mount() {
	if c.removed {
		return
	}
	c.hooks.Fire(lifecycle.BeforeMount)
	c.view.Mount()
	c.hooks.Fire(lifecycle.Mounted)
}

// Unmount takes the component off the surface.
func (c *Component) Unmount(full bool) {
	if c.removed {
		return
	}
	c.hooks.Fire(lifecycle.BeforeUnmount)
	c.view.Unmount(full)
	c.hooks.Fire(lifecycle.Unmounted)
}

// Remove releases the component: its view, its graph and its listeners.
func (c *Component) Remove() {
	if c.removed {
		return
	}
	c.hooks.Fire(lifecycle.BeforeRemove)
	c.view.Remove()
	c.graph.Disconnect()
	c.events.Disconnect()
	c.removed = true
	c.hooks.Fire(lifecycle.Removed)
	c.app.forget(c)
}

// UpdateView reconciles the rendered view with desc, keeping the state.
func (c *Component) UpdateView(desc view.Description) error {
	if c.removed {
		return nil
	}
	c.hooks.Fire(lifecycle.BeforeUpdate)
	err := c.view.Update(desc)
	c.hooks.Fire(lifecycle.Updated)
	return err
}

// Nodes returns the surface nodes of the view.
func (c *Component) Nodes() []surface.Node {
	return c.view.Nodes()
}

func (c *Component) String() string {
	return fmt.Sprintf("%s#%s", c.name, c.id.String()[:8])
}
