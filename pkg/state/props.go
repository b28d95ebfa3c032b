package state

import (
	"github.com/go-drift/loom/pkg/errors"
	"github.com/go-drift/loom/pkg/observable"
)

// PropsSource is the read side of a component's props.
type PropsSource interface {
	// All returns plain copies of every prop value.
	All() map[string]any
	// OnUpdate registers fn for changes of the named prop and returns a
	// function that removes it.
	OnUpdate(name string, fn func(value, old any)) (func(), error)
}

// ServiceSource is anything that owns a state graph, typically a service
// instance.
type ServiceSource interface {
	State() *Graph
}

type propsBinding struct {
	source PropsSource
	only   []string
	remove map[string]func()
}

// UseProps mirrors props into local items, one per prop (restricted to only
// when given). Props flow one way: writing the item does not touch the prop.
// Props mirrored by an earlier call are left alone.
func (g *Graph) UseProps(props PropsSource, only ...string) error {
	if props == nil {
		return &errors.InvalidPropsError{Reason: "nil source"}
	}
	if g.props == nil || g.props.source != props {
		g.DisconnectProps()
		g.props = &propsBinding{source: props, remove: make(map[string]func())}
	}
	g.props.only = only

	values := props.All()
	for _, name := range sortedKeys(values) {
		if len(only) > 0 && !contains(only, name) {
			continue
		}
		if _, ok := g.props.remove[name]; ok {
			continue
		}
		item := g.Add(name, values[name])
		remove, err := props.OnUpdate(name, func(value, old any) {
			if item.Set(value) {
				return
			}
			if observable.IsWrapped(value) || observable.Same(value, old) {
				item.Trigger()
			}
		})
		if err != nil {
			return err
		}
		g.props.remove[name] = remove
	}
	return nil
}

// RefreshProps mirrors props that appeared since the last UseProps call.
func (g *Graph) RefreshProps() error {
	if g.props == nil {
		return nil
	}
	return g.UseProps(g.props.source, g.props.only...)
}

// DisconnectProps stops mirroring the named props, or every prop when no
// name is given. The items keep their last value.
func (g *Graph) DisconnectProps(names ...string) {
	if g.props == nil {
		return
	}
	if len(names) == 0 {
		names = sortedKeys(g.props.remove)
	}
	for _, name := range names {
		if remove, ok := g.props.remove[name]; ok {
			remove()
			delete(g.props.remove, name)
		}
	}
}

// UseService mirrors the items of a service's graph into local items and
// keeps them in sync (restricted to only when given).
func (g *Graph) UseService(svc ServiceSource, only ...string) error {
	if svc == nil {
		return &errors.InvalidServiceError{}
	}
	source := svc.State()
	if source == nil {
		return &errors.InvalidServiceError{}
	}
	for _, name := range source.Names() {
		if len(only) > 0 && !contains(only, name) {
			continue
		}
		from := source.items[name]
		item := g.Add(name, from.Value())
		g.services = append(g.services, from.OnUpdate(func(current, last any) {
			if !item.Set(current) && observable.Same(current, last) {
				item.Trigger()
			}
		}))
	}
	return nil
}

func contains(list []string, name string) bool {
	for _, s := range list {
		if s == name {
			return true
		}
	}
	return false
}
