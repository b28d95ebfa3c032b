package component

import (
	"sort"

	"github.com/go-drift/loom/pkg/errors"
	"github.com/go-drift/loom/pkg/view"
)

// Controller sets a component up: it declares state, registers actions,
// events and lifecycle hooks. The returned value, when not nil, is what a
// ref to the component exposes.
type Controller func(c *Component) (any, error)

// Definition describes a component type.
type Definition struct {
	View       view.Description
	Controller Controller
}

// Registry holds the components, directives and services an App can
// create. It is passed to the App explicitly; there is no global registry.
type Registry struct {
	components map[string]*Definition
	directives map[string]view.DirectiveFactory
	services   map[string]*serviceEntry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		components: make(map[string]*Definition),
		directives: make(map[string]view.DirectiveFactory),
		services:   make(map[string]*serviceEntry),
	}
}

// Component registers def under name, replacing any earlier definition.
func (r *Registry) Component(name string, def Definition) *Registry {
	r.components[name] = &def
	return r
}

// Directive registers a directive factory under name.
func (r *Registry) Directive(name string, factory view.DirectiveFactory) *Registry {
	r.directives[name] = factory
	return r
}

// Service registers a service constructor under name. A unique service is
// built once and shared; otherwise every resolution builds a new instance.
func (r *Registry) Service(name string, ctor ServiceConstructor, unique bool) *Registry {
	r.services[name] = &serviceEntry{name: name, ctor: ctor, unique: unique}
	return r
}

// ResolveComponent returns the definition registered under name.
func (r *Registry) ResolveComponent(name string) (*Definition, error) {
	def, ok := r.components[name]
	if !ok {
		return nil, &errors.UndefinedComponentError{Name: name}
	}
	return def, nil
}

// ResolveDirective returns the directive factory registered under name.
func (r *Registry) ResolveDirective(name string) (view.DirectiveFactory, error) {
	f, ok := r.directives[name]
	if !ok {
		return nil, &errors.UndefinedDirectiveError{Name: name}
	}
	return f, nil
}

// ResolveService returns an instance of the service registered under name.
func (r *Registry) ResolveService(name string) (*Service, error) {
	entry, ok := r.services[name]
	if !ok {
		return nil, &errors.InvalidServiceError{Name: name}
	}
	return entry.instance()
}

// Components returns the registered component names, sorted.
func (r *Registry) Components() []string {
	names := make([]string, 0, len(r.components))
	for name := range r.components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
