package view

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-drift/loom/pkg/errors"
	"github.com/go-drift/loom/pkg/state"
	"github.com/go-drift/loom/pkg/surface"
	"github.com/go-drift/loom/pkg/template"
)

// Mapper turns a composite attribute value into its string form.
type Mapper func(value any) string

// Mappers holds the attribute mappers by attribute name.
var Mappers = map[string]Mapper{
	"style": StyleMapper,
	"class": ClassMapper,
}

// properties are set as live properties instead of attributes.
var properties = map[string]bool{
	"value":   true,
	"checked": true,
}

// StyleMapper renders a map as "name: value;" declarations in key order.
func StyleMapper(value any) string {
	m, ok := asMap(value)
	if !ok {
		return template.Stringify(value)
	}
	decls := make([]string, 0, len(m))
	for _, k := range sortedKeys(m) {
		decls = append(decls, k+": "+template.Stringify(m[k])+";")
	}
	return strings.Join(decls, " ")
}

// ClassMapper renders the keys of a map whose values are true, in key order.
func ClassMapper(value any) string {
	m, ok := asMap(value)
	if !ok {
		return template.Stringify(value)
	}
	var names []string
	for _, k := range sortedKeys(m) {
		if truthy(m[k]) {
			names = append(names, k)
		}
	}
	return strings.Join(names, " ")
}

func asMap(v any) (map[string]any, bool) {
	if m, ok := v.(map[string]any); ok {
		return m, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	m := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		m[iter.Key().String()] = iter.Value().Interface()
	}
	return m, true
}

func isComposite(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return true
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Attribute is one bound attribute of an element.
type Attribute struct {
	name string
	// apply is false for attributes read by slot content only.
	apply bool
	s     surface.Surface
	node  surface.Node
	graph *state.Graph
	text  *template.Text

	sub       *state.Subscription
	listeners []*attrListener
	closed    bool
}

type attrListener struct {
	fn func(any)
}

func newAttribute(name, source string, node surface.Node, sc *scope, apply bool) (*Attribute, error) {
	text, err := template.NewText(source, sc)
	if err != nil {
		return nil, err
	}
	a := &Attribute{name: name, apply: apply, s: sc.surface(), node: node, graph: sc.graph, text: text}
	a.write(a.Value())
	a.subscribe()
	return a, nil
}

// Name returns the attribute name.
func (a *Attribute) Name() string {
	return a.name
}

// Source returns the attribute template.
func (a *Attribute) Source() string {
	return a.text.Source()
}

// Value evaluates the attribute. Composite part values go through the
// attribute's mapper, empty values are dropped, and when more than one value
// remains they are joined with spaces.
func (a *Attribute) Value() any {
	var values []any
	for _, part := range a.text.Parts() {
		var v any = part.Static
		if part.Dynamic() {
			var err error
			v, err = part.Template.Value(nil)
			if err != nil {
				errors.Report(&errors.LoomError{
					Op:   "view.Attribute",
					Kind: errors.KindTemplate,
					Err:  fmt.Errorf("attribute %s: %w", a.name, err),
				})
				continue
			}
		}
		if isComposite(v) {
			if m, ok := Mappers[a.name]; ok {
				v = m(v)
			}
		}
		if v == nil || v == "" {
			continue
		}
		values = append(values, v)
	}
	switch len(values) {
	case 0:
		return ""
	case 1:
		return values[0]
	}
	strs := make([]string, len(values))
	for i, v := range values {
		strs[i] = template.Stringify(v)
	}
	return strings.Join(strs, " ")
}

// OnUpdate registers fn to receive the new value whenever the attribute
// changes. It returns a function that removes fn.
func (a *Attribute) OnUpdate(fn func(any)) func() {
	l := &attrListener{fn: fn}
	a.listeners = append(a.listeners, l)
	return func() {
		for i, existing := range a.listeners {
			if existing == l {
				a.listeners = append(a.listeners[:i:i], a.listeners[i+1:]...)
				return
			}
		}
	}
}

func (a *Attribute) subscribe() {
	a.sub.Remove()
	a.sub = nil
	if names := a.text.Names(); len(names) > 0 {
		a.sub = a.graph.OnUpdate(names, a.emit, false)
	}
}

func (a *Attribute) emit() {
	if a.closed {
		return
	}
	v := a.Value()
	a.write(v)
	for _, l := range append([]*attrListener(nil), a.listeners...) {
		errors.Guard("view.Attribute.OnUpdate", func() { l.fn(v) })
	}
}

func (a *Attribute) write(v any) {
	if !a.apply || a.node == nil {
		return
	}
	if properties[a.name] {
		a.s.SetProperty(a.node, a.name, v)
		return
	}
	a.s.SetAttribute(a.node, a.name, template.Stringify(v))
}

// refresh switches to a new template and writes the new value.
func (a *Attribute) refresh(source string) error {
	if source == a.text.Source() {
		return nil
	}
	if err := a.text.Refresh(source); err != nil {
		return err
	}
	a.subscribe()
	a.emit()
	return nil
}

func (a *Attribute) close() {
	a.closed = true
	a.sub.Remove()
	a.sub = nil
	a.listeners = nil
	a.text.Close()
}
