// Package event implements the emitter components use to raise events to
// their parent.
package event

import (
	"github.com/go-drift/loom/pkg/errors"
	"github.com/go-drift/loom/pkg/observable"
)

// Listener receives the emitted arguments.
type Listener func(args ...any)

// Emitter dispatches named events to listeners. The zero value is ready to
// use.
type Emitter struct {
	declared  map[string]*Handle
	listeners map[string][]*entry
}

type entry struct {
	fn Listener
}

// Handle emits one declared event.
type Handle struct {
	name    string
	emitter *Emitter
}

// Name returns the event name.
func (h *Handle) Name() string {
	return h.name
}

// Emit raises the event with args.
func (h *Handle) Emit(args ...any) {
	h.emitter.Emit(h.name, args...)
}

// Create declares an event and returns its handle. Declaring the same name
// twice returns nil.
func (e *Emitter) Create(name string) *Handle {
	if e.declared == nil {
		e.declared = make(map[string]*Handle)
	}
	if _, ok := e.declared[name]; ok {
		return nil
	}
	h := &Handle{name: name, emitter: e}
	e.declared[name] = h
	return h
}

// Declared returns the handle of a declared event.
func (e *Emitter) Declared(name string) (*Handle, bool) {
	h, ok := e.declared[name]
	return h, ok
}

// Emit calls the listeners of name. Wrapped state values are passed as plain
// copies so listeners cannot mutate the emitter's state through them.
func (e *Emitter) Emit(name string, args ...any) {
	list := e.listeners[name]
	if len(list) == 0 {
		return
	}
	plain := make([]any, len(args))
	for i, a := range args {
		if observable.IsWrapped(a) {
			plain[i] = observable.Plain(a)
		} else {
			plain[i] = a
		}
	}
	for _, l := range append([]*entry(nil), list...) {
		errors.Guard("event.Emit", func() { l.fn(plain...) })
	}
}

// On registers fn for name and returns a function that removes it.
func (e *Emitter) On(name string, fn Listener) func() {
	if e.listeners == nil {
		e.listeners = make(map[string][]*entry)
	}
	l := &entry{fn: fn}
	e.listeners[name] = append(e.listeners[name], l)
	return func() { e.off(name, l) }
}

func (e *Emitter) off(name string, l *entry) {
	list := e.listeners[name]
	for i, existing := range list {
		if existing == l {
			e.listeners[name] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(e.listeners[name]) == 0 {
		delete(e.listeners, name)
	}
}

// Off removes every listener of name.
func (e *Emitter) Off(name string) {
	delete(e.listeners, name)
}

// Disconnect removes every listener.
func (e *Emitter) Disconnect() {
	e.listeners = nil
}
