package view

import (
	"fmt"

	"github.com/go-drift/loom/pkg/errors"
	"github.com/go-drift/loom/pkg/state"
	"github.com/go-drift/loom/pkg/surface"
	"github.com/go-drift/loom/pkg/template"
)

// ComponentNode renders a child component created by the host. The child
// reads its props from expressions bound in this node's scope and receives
// the node's content as slots.
type ComponentNode struct {
	base
	sc    *scope
	desc  Description
	cond  *condition
	built bool

	props  *Props
	child  Child
	events map[string]*componentEvent
	slots  map[string][]*slotContent
	// collected is set when a loop owns the component's ref.
	collected bool
}

type componentEvent struct {
	action *template.ActionTemplate
	off    func()
}

// slotContent is slot content rendered into a yielding element. It owns the
// local graph that carries the slot props.
type slotContent struct {
	*Fragment
	local *state.Graph
}

func (s *slotContent) Remove() {
	s.Fragment.Remove()
	if s.local != nil {
		s.local.Disconnect()
	}
}

func newComponentNode(desc Description, sc *scope) (*ComponentNode, error) {
	c := &ComponentNode{
		base:   base{s: sc.surface()},
		sc:     sc,
		desc:   desc,
		events: make(map[string]*componentEvent),
		slots:  make(map[string][]*slotContent),
	}
	if guard := desc.Element.If; guard != "" {
		cond, err := newCondition(guard, sc, nil, c.toggle)
		if err != nil {
			return nil, err
		}
		c.cond = cond
	}
	return c, nil
}

// Child returns the component, nil before it is created.
func (c *ComponentNode) Child() Child {
	return c.child
}

// Props returns the props handed to the component.
func (c *ComponentNode) Props() *Props {
	return c.props
}

func (c *ComponentNode) target() any {
	if c.child == nil {
		return nil
	}
	return c.child.Public()
}

func (c *ComponentNode) toggle(visible bool) {
	if visible {
		c.Mount()
	} else {
		c.Unmount(false)
	}
}

// Render creates the component and renders it into parent. While the guard
// is false the component is created on the first mount.
func (c *ComponentNode) Render(parent surface.Node) error {
	if c.rendered() {
		return nil
	}
	if c.cond != nil && !c.cond.value {
		c.placeAnchor(parent)
		c.status = StatusUnmounted
		return nil
	}
	if err := c.create(parent); err != nil {
		return err
	}
	c.placeAnchor(parent)
	c.status = StatusMounted
	return nil
}

func (c *ComponentNode) create(parent surface.Node) error {
	d := c.desc.Element
	props := NewProps()
	for _, name := range sortedKeys(d.Props) {
		if err := c.addProp(props, name, d.Props[name]); err != nil {
			props.Close()
			return err
		}
	}
	c.props = props
	c.setSlots(d)

	child, err := c.sc.host.NewComponent(d.Component, props)
	if err != nil {
		props.Close()
		c.props = nil
		return err
	}
	c.child = child
	for _, name := range sortedKeys(d.Events) {
		if err := c.bindEvent(name, d.Events[name]); err != nil {
			return err
		}
	}
	if err := child.Render(parent); err != nil {
		return err
	}
	c.built = true
	if ref := d.Ref; ref != "" && !c.collected && c.sc.refs != nil {
		c.sc.refs.set(ref, c.target())
	}
	return nil
}

func (c *ComponentNode) addProp(props *Props, name, source string) error {
	tmpl, err := template.New(source, c.sc)
	if err != nil {
		return err
	}
	return props.add(name, tmpl)
}

// setSlots hands the component its default slot, the content, and the named
// slots.
func (c *ComponentNode) setSlots(d *ElementDescription) {
	if d.Content.IsZero() {
		c.props.setSlot(DefaultSlot, nil)
	} else {
		c.props.setSlot(DefaultSlot, c.slotFunc(DefaultSlot))
	}
	for name := range c.props.slots {
		if _, ok := d.Slots[name]; !ok && name != DefaultSlot {
			c.props.setSlot(name, nil)
		}
	}
	for _, name := range sortedKeys(d.Slots) {
		c.props.setSlot(name, c.slotFunc(name))
	}
}

func (c *ComponentNode) slot(name string) Slot {
	d := c.desc.Element
	if name == DefaultSlot {
		if s, ok := d.Slots[name]; ok && d.Content.IsZero() {
			return s
		}
		return Slot{Content: d.Content}
	}
	return d.Slots[name]
}

// slotFunc renders the current content of a slot in this node's scope. Slot
// props are read from the yielding element through a local graph.
func (c *ComponentNode) slotFunc(name string) SlotFunc {
	return func(parent surface.Node, local LocalState) (Node, error) {
		s := c.slot(name)
		sc := c.sc
		var graph *state.Graph
		if local != nil && len(s.Props) > 0 {
			if graph = local(s.Props, c.sc.graph); graph != nil {
				sc = sc.with(graph)
			}
		}
		f, err := newFragment(s.Content, sc)
		if err != nil {
			if graph != nil {
				graph.Disconnect()
			}
			return nil, err
		}
		content := &slotContent{Fragment: f, local: graph}
		c.slots[name] = append(c.slots[name], content)
		if err := f.Render(parent); err != nil {
			return content, err
		}
		return content, nil
	}
}

// bindEvent listens to an event of the component. The emitted arguments
// become $args of the handler; inside a loop or a guarded element the local
// values are passed last.
func (c *ComponentNode) bindEvent(name, source string) error {
	action, err := template.NewAction(source, c.sc)
	if err != nil {
		return err
	}
	ev := &componentEvent{action: action}
	ev.off = c.child.Events().On(name, func(args ...any) {
		args = append([]any(nil), args...)
		if c.sc.graph != c.sc.host.State() {
			args = append(args, c.sc.graph.All())
		}
		if _, err := ev.action.Handle(nil, args); err != nil {
			errors.Report(&errors.LoomError{
				Op:   "view.ComponentEvent",
				Kind: errors.KindTemplate,
				Err:  fmt.Errorf("%s handler: %w", name, err),
			})
		}
	})
	c.events[name] = ev
	return nil
}

func (c *ComponentNode) content() []surface.Node {
	if c.child == nil {
		return nil
	}
	return c.child.Nodes()
}

// Mount shows the component again, creating it if its guard kept it from
// rendering.
func (c *ComponentNode) Mount() {
	if c.status != StatusUnmounted {
		return
	}
	c.restoreAnchor()
	if c.cond != nil && !c.cond.value {
		return
	}
	if !c.built {
		g := c.s.CreateGroup()
		if err := c.create(g); err != nil {
			errors.ReportAs("view.Mount", errors.KindComponent, err)
			return
		}
		c.s.Insert(g, c.anchor)
		c.status = StatusMounted
		return
	}
	c.putBack()
	c.child.Mount()
}

// Unmount unmounts the component, then takes what is left of it off the
// surface.
func (c *ComponentNode) Unmount(full bool) {
	if c.status == StatusMounted && c.child != nil {
		c.child.Unmount(false)
	}
	c.takeOff(full, c.content())
}

// Remove removes the component and releases its props.
func (c *ComponentNode) Remove() {
	if c.status == StatusRemoved {
		return
	}
	if c.cond != nil {
		c.cond.close()
	}
	for _, ev := range c.events {
		ev.off()
		ev.action.Close()
	}
	if c.child != nil {
		if ref := c.desc.Element.Ref; ref != "" && !c.collected && c.sc.refs != nil {
			c.sc.refs.unset(ref, c.target())
		}
		c.child.Remove()
	}
	for _, list := range c.slots {
		for _, s := range list {
			s.Remove()
		}
	}
	c.slots = nil
	if c.props != nil {
		c.props.Close()
	}
	c.dropAnchor()
}

// Update applies a new description of the same component: props are added,
// refreshed or removed, events rebound, slots updated and the guard moved.
func (c *ComponentNode) Update(desc Description) error {
	if desc.Kind != KindElement || desc.Element.Component == "" {
		return fmt.Errorf("view: component node cannot take a %s description", desc.Kind)
	}
	next, prev := desc.Element, c.desc.Element
	if next.Component != prev.Component {
		return fmt.Errorf("view: component %q cannot become %q", prev.Component, next.Component)
	}
	var errs []error
	if next.If != prev.If {
		errs = append(errs, c.updateGuard(next.If))
	}
	c.desc = desc
	if !c.built {
		return errors.Join(errs...)
	}
	errs = append(errs, c.updateProps(next.Props, prev.Props), c.updateEvents(next.Events))
	c.setSlots(next)
	errs = append(errs, c.updateSlots())
	return errors.Join(errs...)
}

func (c *ComponentNode) updateProps(next, prev map[string]string) error {
	var errs []error
	graph := c.child.State()
	for _, name := range sortedKeys(prev) {
		if _, ok := next[name]; ok {
			continue
		}
		c.props.remove(name)
		if graph != nil {
			graph.DisconnectProps(name)
		}
	}
	added := false
	for _, name := range sortedKeys(next) {
		if _, ok := prev[name]; ok {
			errs = append(errs, c.props.refresh(name, next[name]))
			continue
		}
		if err := c.addProp(c.props, name, next[name]); err != nil {
			errs = append(errs, err)
			continue
		}
		added = true
	}
	if added && graph != nil {
		errs = append(errs, graph.RefreshProps())
	}
	return errors.Join(errs...)
}

func (c *ComponentNode) updateEvents(events map[string]string) error {
	for _, name := range sortedKeys(c.events) {
		if _, ok := events[name]; ok {
			continue
		}
		ev := c.events[name]
		ev.off()
		ev.action.Close()
		delete(c.events, name)
	}
	var errs []error
	for _, name := range sortedKeys(events) {
		if ev, ok := c.events[name]; ok {
			errs = append(errs, ev.action.Refresh(events[name]))
			continue
		}
		errs = append(errs, c.bindEvent(name, events[name]))
	}
	return errors.Join(errs...)
}

// updateSlots moves rendered slot content to the current descriptions and
// forgets content its yielding element removed.
func (c *ComponentNode) updateSlots() error {
	var errs []error
	for _, name := range sortedKeys(c.slots) {
		live := c.slots[name][:0]
		for _, s := range c.slots[name] {
			if s.Status() == StatusRemoved {
				if s.local != nil {
					s.local.Disconnect()
				}
				continue
			}
			errs = append(errs, s.Update(c.slot(name).Content))
			live = append(live, s)
		}
		c.slots[name] = live
	}
	return errors.Join(errs...)
}

func (c *ComponentNode) updateGuard(source string) error {
	switch {
	case c.cond == nil && source == "":
		return nil
	case c.cond == nil:
		cond, err := newCondition(source, c.sc, nil, c.toggle)
		if err != nil {
			return err
		}
		c.cond = cond
		c.toggle(cond.value)
		return nil
	case source == "":
		c.cond.close()
		c.cond = nil
		c.Mount()
		return nil
	default:
		return c.cond.refresh(source)
	}
}

func (c *ComponentNode) Description() Description {
	return c.desc
}

func (c *ComponentNode) Nodes() []surface.Node {
	return c.nodes(c.content)
}
