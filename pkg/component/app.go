package component

import (
	"log/slog"

	"github.com/go-drift/loom/pkg/errors"
	"github.com/go-drift/loom/pkg/event"
	"github.com/go-drift/loom/pkg/state"
	"github.com/go-drift/loom/pkg/surface"
	"github.com/go-drift/loom/pkg/view"
)

// App renders components into a surface. Its graph is the parent of every
// component graph, and its emitter is shared by all of them.
type App struct {
	registry *Registry
	surface  surface.Surface
	root     surface.Node
	state    *state.Graph
	events   event.Emitter
	logger   *slog.Logger
	live     map[string][]*Component
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger for debug output. The default discards.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithRegistry sets the registry components are resolved from.
func WithRegistry(r *Registry) Option {
	return func(a *App) {
		if r != nil {
			a.registry = r
		}
	}
}

// WithSurface sets the surface and the node Render renders into. The
// default is a fresh surface.Tree and its root.
func WithSurface(s surface.Surface, root surface.Node) Option {
	return func(a *App) {
		if s != nil {
			a.surface = s
			a.root = root
		}
	}
}

// NewApp returns an App configured by opts.
func NewApp(opts ...Option) *App {
	a := &App{
		state:  state.New(nil, nil),
		logger: slog.New(slog.DiscardHandler),
		live:   make(map[string][]*Component),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.registry == nil {
		a.registry = NewRegistry()
	}
	if a.surface == nil {
		tree := surface.NewTree()
		a.surface = tree
		a.root = tree.Root()
	}
	return a
}

// Render creates the named component and renders it into the App root.
// The component is returned even when some of its view failed to render.
func (a *App) Render(name string) (*Component, error) {
	c, err := a.create(name, nil)
	if err != nil {
		return nil, err
	}
	return c, c.Render(a.root)
}

// State returns the App graph.
func (a *App) State() *state.Graph {
	return a.state
}

// Events returns the App emitter.
func (a *App) Events() *event.Emitter {
	return &a.events
}

// Registry returns the registry components are resolved from.
func (a *App) Registry() *Registry {
	return a.registry
}

// Surface returns the surface the App renders into.
func (a *App) Surface() surface.Surface {
	return a.surface
}

// Root returns the node Render renders into.
func (a *App) Root() surface.Node {
	return a.root
}

// Instances returns the live instances of the named component.
func (a *App) Instances(name string) []*Component {
	return append([]*Component(nil), a.live[name]...)
}

// UpdateView replaces the view of the named component and reconciles every
// live instance with it. Instances keep their state.
func (a *App) UpdateView(name string, desc view.Description) error {
	def, err := a.registry.ResolveComponent(name)
	if err != nil {
		return err
	}
	def.View = desc
	var errs []error
	for _, c := range a.Instances(name) {
		if err := c.UpdateView(desc); err != nil {
			errs = append(errs, err)
		}
	}
	a.logger.Debug("view updated", "component", name, "instances", len(a.live[name]))
	return errors.Join(errs...)
}

func (a *App) create(name string, props *view.Props) (*Component, error) {
	def, err := a.registry.ResolveComponent(name)
	if err != nil {
		return nil, err
	}
	c, err := newComponent(a, name, def, props)
	if err != nil {
		return nil, err
	}
	a.live[name] = append(a.live[name], c)
	a.logger.Debug("component created", "component", c.String())
	return c, nil
}

func (a *App) forget(c *Component) {
	list := a.live[c.name]
	for i, existing := range list {
		if existing == c {
			a.live[c.name] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(a.live[c.name]) == 0 {
		delete(a.live, c.name)
	}
	a.logger.Debug("component removed", "component", c.String())
}

func (a *App) service(name string) (*Service, error) {
	s, err := a.registry.ResolveService(name)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("service resolved", "service", name)
	return s, nil
}
