package state

import (
	"github.com/go-drift/loom/pkg/errors"
	"github.com/go-drift/loom/pkg/observable"
)

// Item is one named reactive cell owned by a [Graph].
//
// Composite values are stored wrapped (see package observable), so writes
// made through the wrappers notify the item the same way Set does.
type Item struct {
	name    string
	graph   *Graph
	initial any
	value   any
	last    any

	listeners []*itemListener
	watchers  map[string][]*watcher
}

type itemListener struct {
	fn func(current, last any)
}

type watcher struct {
	fn func(oldValue, newValue any)
}

func newItem(name string, value any, graph *Graph) *Item {
	it := &Item{
		name:     name,
		graph:    graph,
		watchers: make(map[string][]*watcher),
	}
	it.value = observable.Wrap(value, it)
	it.initial = observable.Plain(it.value)
	it.last = it.value
	return it
}

// Name returns the item name.
func (it *Item) Name() string {
	return it.name
}

// Value returns the current value. Composite values are wrappers.
func (it *Item) Value() any {
	return it.value
}

// LastValue returns the value held before the latest change.
func (it *Item) LastValue() any {
	return it.last
}

// InitialValue returns a plain copy of the value the item was declared with.
func (it *Item) InitialValue() any {
	return observable.Plain(it.initial)
}

// Set stores v and notifies listeners. It reports whether the value changed.
// Setting the current value, or the raw value the current wrapper was built
// from, is not a change.
func (it *Item) Set(v any) bool {
	if !it.set(v) {
		return false
	}
	it.Trigger()
	return true
}

// SetSilent stores v without notifying anyone.
func (it *Item) SetSilent(v any) bool {
	return it.set(v)
}

func (it *Item) set(v any) bool {
	if observable.Same(v, it.value) {
		return false
	}
	if observable.IsWrapped(it.value) && observable.Same(v, observable.Target(it.value)) {
		return false
	}
	it.last = it.value
	it.value = observable.Wrap(v, it)
	return true
}

// OnUpdate registers fn to run after every change. The returned function
// removes it.
func (it *Item) OnUpdate(fn func(current, last any)) func() {
	l := &itemListener{fn: fn}
	it.listeners = append(it.listeners, l)
	return func() {
		for i, existing := range it.listeners {
			if existing == l {
				it.listeners = append(it.listeners[:i:i], it.listeners[i+1:]...)
				return
			}
		}
	}
}

// Watch registers fn for writes made at exactly path inside the value,
// for example "user.name" or "items.0".
func (it *Item) Watch(path string, fn func(oldValue, newValue any)) func() {
	w := &watcher{fn: fn}
	it.watchers[path] = append(it.watchers[path], w)
	return func() {
		list := it.watchers[path]
		for i, existing := range list {
			if existing == w {
				it.watchers[path] = append(list[:i:i], list[i+1:]...)
				break
			}
		}
		if len(it.watchers[path]) == 0 {
			delete(it.watchers, path)
		}
	}
}

// HandleUpdate is called by the value wrappers after a write at path.
func (it *Item) HandleUpdate(path string, oldValue, newValue any) {
	it.Trigger()
	if it.suspended() {
		return
	}
	for _, w := range append([]*watcher(nil), it.watchers[path]...) {
		errors.Guard("state.Item.Watch", func() { w.fn(oldValue, newValue) })
	}
}

// Trigger notifies the graph and the item listeners without changing the
// value.
func (it *Item) Trigger() {
	if it.graph != nil {
		it.graph.Trigger(it.name)
	}
	it.notify()
}

// Reset restores the declared value.
func (it *Item) Reset() bool {
	return it.Set(observable.Plain(it.initial))
}

func (it *Item) notify() {
	if it.suspended() {
		return
	}
	current, last := it.value, it.last
	for _, l := range append([]*itemListener(nil), it.listeners...) {
		errors.Guard("state.Item.OnUpdate", func() { l.fn(current, last) })
	}
}

func (it *Item) suspended() bool {
	return it.graph != nil && it.graph.IsSwitchedOff()
}
