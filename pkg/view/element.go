package view

import (
	"fmt"
	"strings"

	"github.com/go-drift/loom/pkg/errors"
	"github.com/go-drift/loom/pkg/lifecycle"
	"github.com/go-drift/loom/pkg/state"
	"github.com/go-drift/loom/pkg/surface"
	"github.com/go-drift/loom/pkg/template"
)

const (
	// SlotTag is the element name that renders a slot of the host.
	SlotTag = "yield-fragment"
	// DefaultSlot is the slot filled by a component's content.
	DefaultSlot = "default"
)

// Event path segments that act on the event before the handler runs.
const (
	eventPrevent = "prevent"
	eventStop    = "stop"
)

// ElementNode renders an element description. An element without a name is
// a virtual element whose content sits directly in the parent.
//
// An element with an if guard gets its own graph, child of the scope graph,
// which is switched off while the guard is false.
type ElementNode struct {
	base
	sc    *scope
	local *state.Graph
	desc  Description
	cond  *condition
	hooks lifecycle.Listeners

	built bool
	el    surface.Node
	// group carries the content of a virtual element until it is attached.
	group surface.Node

	attrs      map[string]*Attribute
	events     map[string]*elementEvent
	directives map[string]any
	dirValues  []*template.Template
	children   Node
	// collected is set when a loop owns the element's ref.
	collected bool
}

type elementEvent struct {
	name    string
	prevent bool
	stop    bool
	action  *template.ActionTemplate
	remove  func()
}

func newElementNode(desc Description, sc *scope) (*ElementNode, error) {
	e := &ElementNode{base: base{s: sc.surface()}, sc: sc, desc: desc}
	if guard := desc.Element.If; guard != "" {
		e.local = state.New(sc.graph, nil)
		e.sc = sc.with(e.local)
		cond, err := newCondition(guard, e.sc, e.local, e.toggle)
		if err != nil {
			e.local.Disconnect()
			return nil, err
		}
		e.cond = cond
	}
	return e, nil
}

// Hooks returns the element's lifecycle listeners.
func (e *ElementNode) Hooks() *lifecycle.Listeners {
	return &e.hooks
}

// Directive returns the directive instance created for name.
func (e *ElementNode) Directive(name string) (any, bool) {
	d, ok := e.directives[name]
	return d, ok
}

// Attr returns the bound attribute called name.
func (e *ElementNode) Attr(name string) (*Attribute, bool) {
	a, ok := e.attrs[name]
	return a, ok
}

// Target returns the element's surface node, nil for a virtual element or
// before the content is built.
func (e *ElementNode) Target() surface.Node {
	return e.el
}

func (e *ElementNode) target() any {
	if e.el == nil {
		return nil
	}
	return e.el
}

func (e *ElementNode) toggle(visible bool) {
	if visible {
		e.Mount()
	} else {
		e.Unmount(false)
	}
}

// Render builds the element into parent. While the guard is false only the
// anchor is placed and the content is built on the first mount.
func (e *ElementNode) Render(parent surface.Node) error {
	if e.rendered() {
		return nil
	}
	e.hooks.Fire(lifecycle.BeforeCreate)
	if e.cond != nil && !e.cond.value {
		e.placeAnchor(parent)
		e.status = StatusUnmounted
		return nil
	}
	if err := e.renderContent(parent); err != nil {
		return err
	}
	e.placeAnchor(parent)
	e.status = StatusMounted
	return nil
}

func (e *ElementNode) renderContent(parent surface.Node) error {
	if err := e.build(); err != nil {
		return err
	}
	e.built = true
	if e.el != nil {
		if e.children != nil {
			if err := e.children.Render(e.el); err != nil {
				return err
			}
		}
		e.s.Append(parent, e.el)
	} else {
		if e.children != nil {
			if err := e.children.Render(e.group); err != nil {
				return err
			}
		}
		e.s.Append(parent, e.group)
	}
	if ref := e.desc.Element.Ref; ref != "" && !e.collected && e.sc.refs != nil {
		e.sc.refs.set(ref, e.target())
	}
	e.hooks.Fire(lifecycle.Created)
	return nil
}

func (e *ElementNode) build() error {
	d := e.desc.Element
	e.attrs = make(map[string]*Attribute, len(d.Attrs))
	e.events = make(map[string]*elementEvent, len(d.Events))
	if d.Name == SlotTag {
		return e.buildSlot()
	}
	if d.Name != "" {
		e.el = e.s.CreateElement(d.Name)
	} else {
		e.group = e.s.CreateGroup()
	}
	for _, name := range sortedKeys(d.Attrs) {
		a, err := newAttribute(name, d.Attrs[name], e.el, e.sc, e.el != nil)
		if err != nil {
			return err
		}
		e.attrs[name] = a
	}
	if !d.Content.IsZero() {
		f, err := newFragment(d.Content, e.sc)
		if err != nil {
			return err
		}
		e.children = f
	}
	if e.el == nil {
		return nil
	}
	if err := e.buildDirectives(); err != nil {
		return err
	}
	for _, path := range sortedKeys(d.Events) {
		if err := e.bindEvent(path, d.Events[path]); err != nil {
			return err
		}
	}
	return nil
}

// buildSlot renders the host's slot content in place of the element. The
// element's attributes are not written anywhere; slot content may read them
// through a local graph.
func (e *ElementNode) buildSlot() error {
	d := e.desc.Element
	name := d.Slot
	if name == "" {
		name = DefaultSlot
	}
	fn, ok := e.sc.host.Slot(name)
	if !ok {
		return &errors.UndefinedSlotError{Name: name}
	}
	for _, attr := range sortedKeys(d.Attrs) {
		a, err := newAttribute(attr, d.Attrs[attr], nil, e.sc, false)
		if err != nil {
			return err
		}
		e.attrs[attr] = a
	}
	e.group = e.s.CreateGroup()
	node, err := fn(e.group, e.slotState)
	if err != nil {
		return err
	}
	e.children = node
	return nil
}

func (e *ElementNode) slotState(names []string, parent *state.Graph) *state.Graph {
	values := make(map[string]any)
	var bound []string
	for _, name := range names {
		if a, ok := e.attrs[name]; ok {
			values[name] = a.Value()
			bound = append(bound, name)
		}
	}
	if len(bound) == 0 {
		return nil
	}
	g := state.New(parent, values)
	for _, name := range bound {
		e.attrs[name].OnUpdate(func(v any) {
			if err := g.SetValue(name, v); err != nil {
				errors.ReportAs("view.Slot", errors.KindState, err)
			}
		})
	}
	return g
}

func (e *ElementNode) buildDirectives() error {
	d := e.desc.Element
	if len(d.Directives) == 0 {
		return nil
	}
	e.directives = make(map[string]any, len(d.Directives))
	for _, name := range sortedKeys(d.Directives) {
		factory, err := e.sc.host.Directive(name)
		if err != nil {
			return err
		}
		value, err := template.New(d.Directives[name], e.sc)
		if err != nil {
			return err
		}
		e.dirValues = append(e.dirValues, value)
		instance, err := createDirective(name, factory, DirectiveParams{
			Element: e.el,
			Value:   value,
			Attrs:   e.attrs,
			Surface: e.s,
		})
		if err != nil {
			return &errors.LoomError{Op: "view.Directive", Kind: errors.KindComponent, Err: err}
		}
		if binder, ok := instance.(lifecycle.Binder); ok {
			binder.Bind(&e.hooks)
		}
		e.directives[name] = instance
	}
	return nil
}

func (e *ElementNode) bindEvent(path, source string) error {
	segments := strings.Split(path, ".")
	ev := &elementEvent{name: segments[len(segments)-1]}
	for _, seg := range segments[:len(segments)-1] {
		switch seg {
		case eventPrevent:
			ev.prevent = true
		case eventStop:
			ev.stop = true
		}
	}
	action, err := template.NewAction(source, e.sc)
	if err != nil {
		return err
	}
	ev.action = action
	ev.remove = e.s.AddEventListener(e.el, ev.name, func(event *surface.Event) {
		if ev.prevent {
			event.PreventDefault()
		}
		if ev.stop {
			event.StopPropagation()
		}
		errors.Guard("view.Event", func() {
			if _, err := ev.action.Handle(event, nil); err != nil {
				errors.Report(&errors.LoomError{
					Op:   "view.Event",
					Kind: errors.KindTemplate,
					Err:  fmt.Errorf("%s handler: %w", ev.name, err),
				})
			}
		})
	})
	e.events[path] = ev
	return nil
}

func (e *ElementNode) content() []surface.Node {
	if !e.built {
		return nil
	}
	if e.el != nil {
		return []surface.Node{e.el}
	}
	if e.children != nil {
		return e.children.Nodes()
	}
	return nil
}

// Mount shows the element again. It stays unmounted while its guard is
// false.
func (e *ElementNode) Mount() {
	if e.status != StatusUnmounted {
		return
	}
	e.restoreAnchor()
	if e.cond != nil && !e.cond.value {
		return
	}
	e.hooks.Fire(lifecycle.BeforeMount)
	if !e.built {
		g := e.s.CreateGroup()
		if err := e.renderContent(g); err != nil {
			errors.ReportAs("view.Mount", errors.KindView, err)
			return
		}
		e.s.Insert(g, e.anchor)
		e.status = StatusMounted
	} else {
		e.putBack()
	}
	e.hooks.Fire(lifecycle.Mounted)
}

// Unmount hides the element. Its state bindings stay in place.
func (e *ElementNode) Unmount(full bool) {
	mounted := e.status == StatusMounted
	if mounted {
		e.hooks.Fire(lifecycle.BeforeUnmount)
	}
	if e.takeOff(full, e.content()) && mounted {
		e.hooks.Fire(lifecycle.Unmounted)
	}
}

// Remove takes the element off the surface and releases its bindings.
func (e *ElementNode) Remove() {
	if e.status == StatusRemoved {
		return
	}
	e.hooks.Fire(lifecycle.BeforeRemove)
	if e.cond != nil {
		e.cond.close()
	}
	for _, a := range e.attrs {
		a.close()
	}
	for _, ev := range e.events {
		ev.remove()
		ev.action.Close()
	}
	for _, v := range e.dirValues {
		v.Close()
	}
	if e.children != nil {
		e.children.Remove()
	}
	if e.el != nil {
		if ref := e.desc.Element.Ref; ref != "" && !e.collected && e.sc.refs != nil {
			e.sc.refs.unset(ref, e.target())
		}
		e.s.Remove(e.el)
	}
	if e.local != nil {
		e.local.Disconnect()
	}
	e.dropAnchor()
	e.hooks.Fire(lifecycle.Removed)
	e.hooks.Clear()
}

// Update applies a new description with the same name. Attributes, events
// and the guard are patched only when something besides the content
// changed; the content is diffed by the child fragment.
func (e *ElementNode) Update(desc Description) error {
	if desc.Kind != KindElement {
		return fmt.Errorf("view: element node cannot take a %s description", desc.Kind)
	}
	next, prev := desc.Element, e.desc.Element
	if next.Name != prev.Name {
		return fmt.Errorf("view: element %q cannot become %q", prev.Name, next.Name)
	}
	if !e.built {
		if next.If != prev.If {
			if err := e.updateGuard(next.If); err != nil {
				return err
			}
		}
		e.desc = desc
		return nil
	}
	e.hooks.Fire(lifecycle.BeforeUpdate)
	var errs []error
	if CompareElement(next, prev) {
		errs = append(errs, e.updateAttrs(next.Attrs), e.updateEvents(next.Events))
		if next.If != prev.If {
			errs = append(errs, e.updateGuard(next.If))
		}
	}
	if prev.Name != SlotTag {
		errs = append(errs, e.updateContent(next.Content))
	}
	e.desc = desc
	e.hooks.Fire(lifecycle.Updated)
	return errors.Join(errs...)
}

func (e *ElementNode) updateAttrs(attrs map[string]string) error {
	if e.desc.Element.Name == SlotTag {
		return nil
	}
	for _, name := range sortedKeys(e.attrs) {
		if _, ok := attrs[name]; ok {
			continue
		}
		e.attrs[name].close()
		delete(e.attrs, name)
		if e.el != nil {
			e.s.RemoveAttribute(e.el, name)
		}
	}
	for _, name := range sortedKeys(attrs) {
		if a, ok := e.attrs[name]; ok {
			if err := a.refresh(attrs[name]); err != nil {
				return err
			}
			continue
		}
		a, err := newAttribute(name, attrs[name], e.el, e.sc, e.el != nil)
		if err != nil {
			return err
		}
		e.attrs[name] = a
	}
	return nil
}

func (e *ElementNode) updateEvents(events map[string]string) error {
	if e.el == nil {
		return nil
	}
	for _, path := range sortedKeys(e.events) {
		if _, ok := events[path]; ok {
			continue
		}
		ev := e.events[path]
		ev.remove()
		ev.action.Close()
		delete(e.events, path)
	}
	for _, path := range sortedKeys(events) {
		if ev, ok := e.events[path]; ok {
			if err := ev.action.Refresh(events[path]); err != nil {
				return err
			}
			continue
		}
		if err := e.bindEvent(path, events[path]); err != nil {
			return err
		}
	}
	return nil
}

// updateGuard moves the guard to a new expression. An element that gains a
// guard later has no local graph, so its content keeps updating while
// hidden.
func (e *ElementNode) updateGuard(source string) error {
	switch {
	case e.cond == nil && source == "":
		return nil
	case e.cond == nil:
		cond, err := newCondition(source, e.sc, nil, e.toggle)
		if err != nil {
			return err
		}
		e.cond = cond
		e.toggle(cond.value)
		return nil
	case source == "":
		e.cond.close()
		e.cond = nil
		e.Mount()
		return nil
	default:
		return e.cond.refresh(source)
	}
}

func (e *ElementNode) updateContent(content Description) error {
	if e.children != nil {
		return e.children.Update(content)
	}
	if content.IsZero() {
		return nil
	}
	f, err := newFragment(content, e.sc)
	if err != nil {
		return err
	}
	e.children = f
	if e.el != nil {
		return f.Render(e.el)
	}
	g := e.s.CreateGroup()
	if err := f.Render(g); err != nil {
		return err
	}
	e.placeEnd(f.Nodes())
	return nil
}

func (e *ElementNode) Description() Description {
	return e.desc
}

func (e *ElementNode) Nodes() []surface.Node {
	return e.nodes(e.content)
}
