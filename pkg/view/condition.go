package view

import (
	"reflect"

	"github.com/go-drift/loom/pkg/errors"
	"github.com/go-drift/loom/pkg/state"
	"github.com/go-drift/loom/pkg/template"
)

// condition is the if guard of a node. Evaluation errors count as false.
//
// When the node has a local graph, the graph is switched off while the guard
// is false so the hidden content does not update; it resumes as soon as a
// notification arrives for which the guard holds again.
type condition struct {
	tmpl     *template.Template
	local    *state.Graph
	value    bool
	onChange func(bool)
	stop     func()
}

func newCondition(source string, sc *scope, local *state.Graph, onChange func(bool)) (*condition, error) {
	tmpl, err := template.NewGuarded(source, sc, false)
	if err != nil {
		return nil, &errors.SyntaxError{Kind: "if", Text: source, Err: err}
	}
	c := &condition{tmpl: tmpl, local: local, onChange: onChange}
	c.value = c.eval()
	if !c.value && local != nil {
		local.SwitchOff(c.holds)
	}
	c.stop = tmpl.OnUpdate(func(v any) { c.set(truthy(v)) })
	return c, nil
}

func (c *condition) eval() bool {
	v, _ := c.tmpl.Value(nil)
	return truthy(v)
}

func (c *condition) holds(*state.Graph) bool {
	return c.eval()
}

func (c *condition) set(value bool) {
	if value == c.value {
		return
	}
	c.value = value
	if c.local != nil {
		if value {
			c.local.SwitchOn()
		} else {
			c.local.SwitchOff(c.holds)
		}
	}
	c.onChange(value)
}

// refresh moves the guard to a new expression and applies its value.
func (c *condition) refresh(source string) error {
	if err := c.tmpl.Refresh(source); err != nil {
		return &errors.SyntaxError{Kind: "if", Text: source, Err: err}
	}
	c.set(c.eval())
	return nil
}

func (c *condition) close() {
	c.stop()
	c.tmpl.Close()
	if c.local != nil && c.local.IsSwitchedOff() {
		c.local.SwitchOn()
	}
}

// truthy reports whether v counts as true in a guard. Only nil, false, zero
// numbers, empty strings and nil references are false.
func truthy(v any) bool {
	if v == nil {
		return false
	}
	switch x := v.(type) {
	case bool:
		return x
	case string:
		return x != ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Map, reflect.Slice, reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}
