// Package lifecycle names the points in a node's or component's life where
// hooks run, and stores the hooks.
package lifecycle

import (
	"github.com/go-drift/loom/pkg/errors"
)

// Hook identifies a lifecycle point.
type Hook string

const (
	BeforeCreate  Hook = "beforeCreate"
	Created       Hook = "created"
	BeforeMount   Hook = "beforeMount"
	Mounted       Hook = "mounted"
	BeforeUnmount Hook = "beforeUnmount"
	Unmounted     Hook = "unmounted"
	BeforeRemove  Hook = "beforeRemove"
	Removed       Hook = "removed"
	BeforeUpdate  Hook = "beforeUpdate"
	Updated       Hook = "updated"
)

// Hooks lists every hook in firing order.
var Hooks = []Hook{
	BeforeCreate, Created,
	BeforeMount, Mounted,
	BeforeUnmount, Unmounted,
	BeforeRemove, Removed,
	BeforeUpdate, Updated,
}

// Parse returns the hook called name.
func Parse(name string) (Hook, bool) {
	for _, h := range Hooks {
		if string(h) == name {
			return h, true
		}
	}
	return "", false
}

// Listeners stores hook functions. The zero value is ready to use.
type Listeners struct {
	hooks map[Hook][]*entry
}

type entry struct {
	fn func()
}

// On registers fn for hook and returns a function that removes it.
func (l *Listeners) On(hook Hook, fn func()) func() {
	if l.hooks == nil {
		l.hooks = make(map[Hook][]*entry)
	}
	e := &entry{fn: fn}
	l.hooks[hook] = append(l.hooks[hook], e)
	return func() {
		list := l.hooks[hook]
		for i, existing := range list {
			if existing == e {
				l.hooks[hook] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// Fire runs the functions registered for hook in registration order. A
// panicking function is reported and does not stop the others.
func (l *Listeners) Fire(hook Hook) {
	if l == nil {
		return
	}
	for _, e := range append([]*entry(nil), l.hooks[hook]...) {
		errors.Guard("lifecycle."+string(hook), e.fn)
	}
}

// Len returns the number of functions registered for hook.
func (l *Listeners) Len(hook Hook) int {
	if l == nil {
		return 0
	}
	return len(l.hooks[hook])
}

// Clear removes every registered function.
func (l *Listeners) Clear() {
	l.hooks = nil
}

// Binder is implemented by values, such as directives, that want to attach
// their own functions to a node's hooks.
type Binder interface {
	Bind(l *Listeners)
}
