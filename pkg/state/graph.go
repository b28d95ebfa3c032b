// Package state implements loom's reactive state store.
//
// A [Graph] holds named [Item]s and the listeners bound to them. Graphs form a
// tree: lookups fall back to the parent, and a listener on a name declared by
// an ancestor is relayed from the nearest declaring ancestor. A graph can be
// switched off, in which case the notifications it would deliver are queued
// and replayed once it is switched back on.
//
// Nothing in this package is safe for concurrent use.
package state

import (
	"sort"

	"github.com/go-drift/loom/pkg/errors"
)

// Graph is a scope of state items.
type Graph struct {
	parent *Graph
	items  map[string]*Item

	listeners []*listener

	off      bool
	observer func(*Graph) bool
	pending  []*listener
	queued   map[*listener]bool

	// seq numbers Trigger passes on the root graph; current is the pass
	// whose listeners are running.
	seq     uint64
	current uint64

	props    *propsBinding
	services []func()
}

type listener struct {
	graph   *Graph
	names   []string
	fn      func()
	relays  []*listener
	removed bool
	// replayed is the pass in which a resume already ran the listener.
	replayed uint64
}

func (l *listener) matches(names []string) bool {
	for _, n := range l.names {
		for _, m := range names {
			if n == m {
				return true
			}
		}
	}
	return false
}

// Subscription is returned by [Graph.OnUpdate].
type Subscription struct {
	l *listener
}

// Remove unregisters the listener and every relay created for it.
func (s *Subscription) Remove() {
	if s == nil {
		return
	}
	s.l.graph.removeListener(s.l)
}

// New creates a graph with the given parent (nil for a root) and declares
// an item for each default value.
func New(parent *Graph, defaults map[string]any) *Graph {
	g := &Graph{
		parent: parent,
		items:  make(map[string]*Item, len(defaults)),
		queued: make(map[*listener]bool),
	}
	for _, name := range sortedKeys(defaults) {
		g.Add(name, defaults[name])
	}
	return g
}

// Parent returns the parent graph, or nil.
func (g *Graph) Parent() *Graph {
	return g.parent
}

// Add declares name with value. When name already exists locally it behaves
// like Set on that item.
func (g *Graph) Add(name string, value any) *Item {
	if it, ok := g.items[name]; ok {
		it.Set(value)
		return it
	}
	it := newItem(name, value, g)
	g.items[name] = it
	return it
}

// Set assigns several values and notifies once. Every name must be declared
// in this graph; otherwise nothing is changed and an
// [*errors.UndeclaredStateError] is returned.
func (g *Graph) Set(values map[string]any) error {
	names := sortedKeys(values)
	for _, name := range names {
		if _, ok := g.items[name]; !ok {
			return &errors.UndeclaredStateError{Name: name}
		}
	}
	var changed []*Item
	for _, name := range names {
		if it := g.items[name]; it.SetSilent(values[name]) {
			changed = append(changed, it)
		}
	}
	g.commit(changed)
	return nil
}

// SetValue assigns a single declared value.
func (g *Graph) SetValue(name string, value any) error {
	return g.Set(map[string]any{name: value})
}

func (g *Graph) commit(changed []*Item) {
	if len(changed) == 0 {
		return
	}
	names := make([]string, len(changed))
	for i, it := range changed {
		names[i] = it.name
		it.notify()
	}
	g.Trigger(names...)
}

// Get returns the item for name, looking through the ancestors when it is
// not declared locally. It returns nil when no graph declares name.
func (g *Graph) Get(name string) *Item {
	for s := g; s != nil; s = s.parent {
		if it, ok := s.items[name]; ok {
			return it
		}
	}
	return nil
}

// Exists reports whether name is declared in this graph.
func (g *Graph) Exists(name string) bool {
	_, ok := g.items[name]
	return ok
}

// StateWith returns the nearest graph, starting with g, that declares name.
func (g *Graph) StateWith(name string) *Graph {
	for s := g; s != nil; s = s.parent {
		if _, ok := s.items[name]; ok {
			return s
		}
	}
	return nil
}

// Names returns the locally declared names in sorted order.
func (g *Graph) Names() []string {
	return sortedKeys(g.items)
}

// Values returns the current values of names. Names nobody declares map to
// nil.
func (g *Graph) Values(names []string) map[string]any {
	values := make(map[string]any, len(names))
	for _, name := range names {
		if it := g.Get(name); it != nil {
			values[name] = it.Value()
		} else {
			values[name] = nil
		}
	}
	return values
}

// All returns the current values of the local items.
func (g *Graph) All() map[string]any {
	return g.Values(g.Names())
}

// OnUpdate registers fn to run when any of names changes. A prioritized
// listener runs before those registered earlier.
//
// Names declared only by an ancestor are bound to the nearest declaring
// ancestor now; declaring the same name locally later does not move the
// binding.
func (g *Graph) OnUpdate(names []string, fn func(), prioritized bool) *Subscription {
	l := &listener{graph: g, names: append([]string(nil), names...), fn: fn}
	if prioritized {
		g.listeners = append([]*listener{l}, g.listeners...)
	} else {
		g.listeners = append(g.listeners, l)
	}

	var order []*Graph
	inherited := make(map[*Graph][]string)
	for _, name := range names {
		if g.Exists(name) {
			continue
		}
		owner := g.StateWith(name)
		if owner == nil {
			continue
		}
		if _, ok := inherited[owner]; !ok {
			order = append(order, owner)
		}
		inherited[owner] = append(inherited[owner], name)
	}
	for _, owner := range order {
		relay := &listener{graph: owner, names: inherited[owner]}
		relay.fn = func() {
			if l.removed {
				return
			}
			g.dispatch(l)
		}
		owner.listeners = append(owner.listeners, relay)
		l.relays = append(l.relays, relay)
	}
	return &Subscription{l: l}
}

func (g *Graph) removeListener(l *listener) {
	l.removed = true
	for _, r := range l.relays {
		r.graph.removeListener(r)
	}
	l.relays = nil
	for i, existing := range g.listeners {
		if existing == l {
			g.listeners = append(g.listeners[:i:i], g.listeners[i+1:]...)
			return
		}
	}
}

// Trigger notifies the listeners bound to any of names. While the graph or
// one of its ancestors is switched off the notification is queued instead.
func (g *Graph) Trigger(names ...string) {
	if len(names) == 0 {
		return
	}
	r := g.root()
	outer := r.current
	r.seq++
	r.current = r.seq
	defer func() { r.current = outer }()
	for _, l := range append([]*listener(nil), g.listeners...) {
		if l.removed || !l.matches(names) {
			continue
		}
		g.dispatch(l)
	}
}

// dispatch runs l unless g is blocked by a switched-off graph whose observer
// does not approve resuming, in which case l is queued on that graph.
func (g *Graph) dispatch(l *listener) {
	if r := g.root(); r.current != 0 && l.replayed == r.current {
		return
	}
	for {
		b := g.blocker()
		if b == nil {
			break
		}
		if b.observer == nil || !b.observer(b) {
			b.enqueue(l)
			return
		}
		replayed := b.queued[l]
		b.SwitchOn()
		if replayed {
			return
		}
	}
	if l.removed {
		return
	}
	errors.Guard("state.Graph.Trigger", l.fn)
}

func (g *Graph) root() *Graph {
	r := g
	for r.parent != nil {
		r = r.parent
	}
	return r
}

func (g *Graph) blocker() *Graph {
	for s := g; s != nil; s = s.parent {
		if s.off {
			return s
		}
	}
	return nil
}

func (g *Graph) enqueue(l *listener) {
	if g.queued[l] {
		return
	}
	g.queued[l] = true
	g.pending = append(g.pending, l)
}

// Edit runs fn, then notifies names. It is meant for in-place changes the
// wrappers cannot see.
func (g *Graph) Edit(names []string, fn func()) {
	if fn != nil {
		errors.Guard("state.Graph.Edit", fn)
	}
	g.Trigger(names...)
}

// SwitchOff suspends notifications. While suspended, each notification asks
// observer (when set) whether the graph should resume; if it does not, the
// notification is queued.
func (g *Graph) SwitchOff(observer func(*Graph) bool) {
	g.off = true
	g.observer = observer
}

// SwitchOn resumes notifications and replays the queued ones, each listener
// once, in the order they were first queued.
func (g *Graph) SwitchOn() {
	g.off = false
	g.observer = nil
	queued := g.pending
	g.pending = nil
	g.queued = make(map[*listener]bool)
	r := g.root()
	for _, l := range queued {
		if l.removed {
			continue
		}
		l.graph.dispatch(l)
		l.replayed = r.current
	}
}

// IsSwitchedOff reports whether g or one of its ancestors is switched off.
func (g *Graph) IsSwitchedOff() bool {
	return g.blocker() != nil
}

// Reset restores every local item to its declared value and notifies once.
func (g *Graph) Reset() {
	var changed []*Item
	for _, name := range g.Names() {
		it := g.items[name]
		if it.SetSilent(it.InitialValue()) {
			changed = append(changed, it)
		}
	}
	g.commit(changed)
}

// Disconnect drops every listener, queued notification and mirror
// subscription. Items keep their values.
func (g *Graph) Disconnect() {
	for _, l := range append([]*listener(nil), g.listeners...) {
		g.removeListener(l)
	}
	g.pending = nil
	g.queued = make(map[*listener]bool)
	g.DisconnectProps()
	for _, remove := range g.services {
		remove()
	}
	g.services = nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
