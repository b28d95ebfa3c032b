package view

import (
	"github.com/go-drift/loom/pkg/errors"
	"github.com/go-drift/loom/pkg/observable"
	"github.com/go-drift/loom/pkg/template"
)

// Props are the bound props and slots a component receives from the view
// that uses it. They implement state.PropsSource.
type Props struct {
	templates map[string]*template.Template
	values    map[string]any
	stops     map[string]func()
	listeners map[string][]*propListener
	slots     map[string]SlotFunc
}

type propListener struct {
	fn func(value, old any)
}

// NewProps returns empty props.
func NewProps() *Props {
	return &Props{
		templates: make(map[string]*template.Template),
		values:    make(map[string]any),
		stops:     make(map[string]func()),
		listeners: make(map[string][]*propListener),
		slots:     make(map[string]SlotFunc),
	}
}

// StaticProps returns props holding fixed values, for components created
// outside a view.
func StaticProps(values map[string]any) *Props {
	p := NewProps()
	for k, v := range values {
		p.values[k] = v
	}
	return p
}

// All returns plain copies of every prop value.
func (p *Props) All() map[string]any {
	out := make(map[string]any, len(p.values))
	for k, v := range p.values {
		out[k] = observable.Plain(v)
	}
	return out
}

// Get returns the current value of a prop.
func (p *Props) Get(name string) any {
	return p.values[name]
}

// Has reports whether the prop exists.
func (p *Props) Has(name string) bool {
	_, ok := p.values[name]
	return ok
}

// Names returns the prop names, sorted.
func (p *Props) Names() []string {
	return sortedKeys(p.values)
}

// Template returns the expression bound to a prop.
func (p *Props) Template(name string) (*template.Template, bool) {
	t, ok := p.templates[name]
	return t, ok
}

// OnUpdate registers fn for changes of the named prop. An unknown prop
// returns an [*errors.InvalidPropsError].
func (p *Props) OnUpdate(name string, fn func(value, old any)) (func(), error) {
	if !p.Has(name) {
		return nil, &errors.InvalidPropsError{Reason: "unknown prop " + name}
	}
	l := &propListener{fn: fn}
	p.listeners[name] = append(p.listeners[name], l)
	return func() {
		list := p.listeners[name]
		for i, existing := range list {
			if existing == l {
				p.listeners[name] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}, nil
}

// Slot returns the content passed for the named slot.
func (p *Props) Slot(name string) (SlotFunc, bool) {
	fn, ok := p.slots[name]
	return fn, ok
}

func (p *Props) emit(name string, value, old any) {
	for _, l := range append([]*propListener(nil), p.listeners[name]...) {
		errors.Guard("view.Props", func() { l.fn(value, old) })
	}
}

func (p *Props) add(name string, tmpl *template.Template) error {
	value, err := tmpl.Value(nil)
	if err != nil {
		tmpl.Close()
		return err
	}
	p.templates[name] = tmpl
	p.values[name] = value
	p.stops[name] = tmpl.OnUpdate(func(v any) {
		old := p.values[name]
		p.values[name] = v
		p.emit(name, v, old)
	})
	return nil
}

func (p *Props) remove(name string) {
	if stop, ok := p.stops[name]; ok {
		stop()
	}
	if t, ok := p.templates[name]; ok {
		t.Close()
	}
	delete(p.stops, name)
	delete(p.templates, name)
	delete(p.values, name)
	delete(p.listeners, name)
}

// refresh moves a prop to a new expression and emits the new value when it
// differs.
func (p *Props) refresh(name, source string) error {
	t, ok := p.templates[name]
	if !ok {
		return &errors.InvalidPropsError{Reason: "unknown prop " + name}
	}
	if t.Source() == source {
		return nil
	}
	if err := t.Refresh(source); err != nil {
		return err
	}
	value, err := t.Value(nil)
	if err != nil {
		return err
	}
	old := p.values[name]
	if observable.Same(value, old) {
		return nil
	}
	p.values[name] = value
	p.emit(name, value, old)
	return nil
}

func (p *Props) setSlot(name string, fn SlotFunc) {
	if fn == nil {
		delete(p.slots, name)
		return
	}
	p.slots[name] = fn
}

// Close releases every prop expression.
func (p *Props) Close() {
	for _, name := range sortedKeys(p.templates) {
		p.remove(name)
	}
	p.listeners = make(map[string][]*propListener)
}
