package component

import (
	"fmt"
	"slices"
	"sort"

	"github.com/go-drift/loom/pkg/errors"
	"github.com/go-drift/loom/pkg/template"
)

// Actions is the set of functions a controller exposes to its view. Event
// handlers and expressions resolve action names against it.
type Actions struct {
	fns       map[string]template.Action
	listeners []*func()
}

// NewActions returns an empty set.
func NewActions() *Actions {
	return &Actions{fns: make(map[string]template.Action)}
}

// Add registers fn under name, replacing any earlier action. Bindings that
// could not resolve a name are told to try again.
func (a *Actions) Add(name string, fn template.Action) {
	a.fns[name] = fn
	a.changed()
}

// Set registers several actions at once and notifies listeners once.
func (a *Actions) Set(fns map[string]template.Action) {
	for name, fn := range fns {
		a.fns[name] = fn
	}
	if len(fns) > 0 {
		a.changed()
	}
}

// Lookup implements template.ActionSet.
func (a *Actions) Lookup(name string) (template.Action, bool) {
	fn, ok := a.fns[name]
	return fn, ok
}

// Call runs the named action.
func (a *Actions) Call(name string, args ...any) (any, error) {
	fn, ok := a.fns[name]
	if !ok {
		return nil, fmt.Errorf("component: unknown action %q", name)
	}
	return fn(args...)
}

// Names returns the registered names, sorted.
func (a *Actions) Names() []string {
	names := make([]string, 0, len(a.fns))
	for name := range a.fns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OnChange implements template.ActionSet.
func (a *Actions) OnChange(fn func()) func() {
	p := &fn
	a.listeners = append(a.listeners, p)
	return func() {
		for i, l := range a.listeners {
			if l == p {
				a.listeners = append(a.listeners[:i:i], a.listeners[i+1:]...)
				return
			}
		}
	}
}

func (a *Actions) changed() {
	for _, l := range slices.Clone(a.listeners) {
		errors.Guard("component.Actions", *l)
	}
}
