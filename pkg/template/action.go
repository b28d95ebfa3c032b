package template

import (
	"fmt"

	"github.com/go-drift/loom/pkg/surface"
)

// ActionTemplate is a bound event handler expression.
//
// A handler that is a bare action name, such as "save", calls the action
// directly. Anything else is evaluated as an expression in which $event and
// $args are defined and actions are callable, for example "remove($args[0])"
// or "toggle(item.id, $event)".
type ActionTemplate struct {
	tmpl *Template
	bare string
}

// NewAction compiles an event handler expression.
func NewAction(source string, scope Scope) (*ActionTemplate, error) {
	tmpl, err := New(source, scope)
	if err != nil {
		return nil, err
	}
	a := &ActionTemplate{tmpl: tmpl}
	a.bare = bareName(tmpl.Source())
	return a, nil
}

func bareName(source string) string {
	if source == "" {
		return ""
	}
	ids, err := scan(source)
	if err != nil {
		return ""
	}
	return ids.bare
}

// Source returns the handler expression.
func (a *ActionTemplate) Source() string {
	return a.tmpl.Source()
}

// Refresh recompiles the handler for a new source.
func (a *ActionTemplate) Refresh(source string) error {
	if err := a.tmpl.Refresh(source); err != nil {
		return err
	}
	a.bare = bareName(a.tmpl.Source())
	return nil
}

// Handle runs the handler. A bare action name is called with args when args
// is non-nil and with the event otherwise.
func (a *ActionTemplate) Handle(event *surface.Event, args []any) (any, error) {
	if a.bare != "" {
		if fn, ok := a.lookup(a.bare); ok {
			if args != nil {
				return fn(args...)
			}
			return fn(event)
		}
		if a.tmpl.scope == nil || a.tmpl.scope.State() == nil || a.tmpl.scope.State().Get(a.bare) == nil {
			return nil, fmt.Errorf("undefined action %q", a.bare)
		}
	}
	if args == nil {
		args = []any{}
	}
	return a.tmpl.Value(map[string]any{
		"$event": event,
		"$args":  args,
	})
}

func (a *ActionTemplate) lookup(name string) (Action, bool) {
	if a.tmpl.scope == nil || a.tmpl.scope.Actions() == nil {
		return nil, false
	}
	return a.tmpl.scope.Actions().Lookup(name)
}

// Close releases the handler.
func (a *ActionTemplate) Close() {
	a.tmpl.Close()
}
