package view

import (
	"fmt"
	"reflect"

	"github.com/go-drift/loom/pkg/errors"
	"github.com/go-drift/loom/pkg/state"
	"github.com/go-drift/loom/pkg/surface"
	"github.com/go-drift/loom/pkg/template"
)

// LoopNode renders an element once per entry of an iterable. Entries are
// tracked by key: a key seen before keeps its node and only its iteration
// graph is updated.
type LoopNode struct {
	base
	sc   *scope
	desc Description
	// item is the description of one iteration, without repeat.
	item ElementDescription

	loop *template.Loop
	key  *template.Template
	stop func()

	store map[string]*iteration
	order []*iteration
}

type iteration struct {
	key   string
	node  Node
	graph *state.Graph
	data  map[string]any
}

func newLoopNode(desc Description, sc *scope) (*LoopNode, error) {
	d := desc.Element
	loop, err := template.NewLoop(d.Repeat, sc)
	if err != nil {
		return nil, err
	}
	key, err := template.New(keySource(d, loop), sc)
	if err != nil {
		loop.Close()
		return nil, err
	}
	l := &LoopNode{
		base:  base{s: sc.surface()},
		sc:    sc,
		desc:  desc,
		item:  withoutRepeat(d),
		loop:  loop,
		key:   key,
		store: make(map[string]*iteration),
	}
	return l, nil
}

func keySource(d *ElementDescription, loop *template.Loop) string {
	if d.Key != "" {
		return d.Key
	}
	return loop.KeyName()
}

func withoutRepeat(d *ElementDescription) ElementDescription {
	item := *d
	item.Repeat = ""
	item.Key = ""
	return item
}

// Render places the anchor and renders one node per entry before it.
func (l *LoopNode) Render(parent surface.Node) error {
	if l.rendered() {
		return nil
	}
	l.placeAnchor(parent)
	l.status = StatusMounted
	l.stop = l.loop.Iterable().OnUpdate(func(any) {
		if err := l.iterate(); err != nil {
			errors.ReportAs("view.Loop", errors.KindView, err)
		}
	})
	return l.iterate()
}

type entry struct {
	key  any
	item any
}

// each lists the entries of an iterable: slices and arrays by index, maps by
// sorted key.
func each(v any) ([]entry, error) {
	if v == nil {
		return nil, nil
	}
	switch x := v.(type) {
	case []any:
		out := make([]entry, len(x))
		for i, item := range x {
			out[i] = entry{key: i, item: item}
		}
		return out, nil
	case map[string]any:
		out := make([]entry, 0, len(x))
		for _, k := range sortedKeys(x) {
			out = append(out, entry{key: k, item: x[k]})
		}
		return out, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]entry, rv.Len())
		for i := range out {
			out[i] = entry{key: i, item: rv.Index(i).Interface()}
		}
		return out, nil
	case reflect.Map:
		m, ok := asMap(v)
		if !ok {
			return nil, fmt.Errorf("cannot iterate over %T", v)
		}
		return each(m)
	}
	return nil, fmt.Errorf("cannot iterate over %T", v)
}

// iterate reconciles the rendered nodes with the current entries.
func (l *LoopNode) iterate() error {
	if l.status == StatusRemoved {
		return nil
	}
	value, err := l.loop.Iterable().Value(nil)
	if err != nil {
		return err
	}
	list, err := each(value)
	if err != nil {
		return err
	}

	index := make(map[*iteration]int, len(l.order))
	for i, it := range l.order {
		index[it] = i
	}
	seen := make(map[string]bool, len(list))
	next := make([]*iteration, 0, len(list))
	order := make([]int, 0, len(list))
	var errs []error
	for _, e := range list {
		data := map[string]any{l.loop.ItemName(): e.item, l.loop.KeyName(): e.key}
		k, err := l.key.Value(data)
		if err != nil {
			errs = append(errs, err)
			k = e.key
		}
		key := fmt.Sprint(k)
		if seen[key] {
			errs = append(errs, fmt.Errorf("duplicate loop key %q", key))
			key = fmt.Sprintf("%s#%v", key, e.key)
		}
		seen[key] = true

		if it, ok := l.store[key]; ok {
			if !reflect.DeepEqual(it.data, data) {
				it.data = data
				if err := it.graph.Set(data); err != nil {
					errs = append(errs, err)
				}
			}
			next = append(next, it)
			order = append(order, index[it])
			continue
		}
		graph := state.New(l.sc.graph, data)
		node, err := l.newItem(graph)
		if err != nil {
			graph.Disconnect()
			errs = append(errs, err)
			continue
		}
		it := &iteration{key: key, node: node, graph: graph, data: data}
		l.store[key] = it
		next = append(next, it)
		order = append(order, -1)
	}

	for _, it := range l.order {
		if !seen[it.key] || l.store[it.key] != it {
			l.drop(it)
		}
	}

	keep := stable(order)
	anchor := l.anchor
	placed := make([]*iteration, 0, len(next))
	for i := len(next) - 1; i >= 0; i-- {
		it := next[i]
		switch {
		case order[i] < 0:
			g := l.s.CreateGroup()
			if err := it.node.Render(g); err != nil {
				l.drop(it)
				errs = append(errs, err)
				continue
			}
			l.placeBefore(it.node.Nodes(), anchor)
		case !keep[i]:
			l.placeBefore(it.node.Nodes(), anchor)
		}
		anchor = first(it.node, anchor)
		placed = append(placed, it)
	}
	for i, j := 0, len(placed)-1; i < j; i, j = i+1, j-1 {
		placed[i], placed[j] = placed[j], placed[i]
	}
	l.order = placed
	l.collectRefs()
	return errors.Join(errs...)
}

func (l *LoopNode) newItem(graph *state.Graph) (Node, error) {
	node, err := newNode(Element(l.item), l.sc.with(graph))
	if err != nil {
		return nil, err
	}
	switch n := node.(type) {
	case *ElementNode:
		n.collected = true
	case *ComponentNode:
		n.collected = true
	}
	return node, nil
}

func (l *LoopNode) drop(it *iteration) {
	it.node.Unmount(true)
	it.node.Remove()
	it.graph.Disconnect()
	if l.store[it.key] == it {
		delete(l.store, it.key)
	}
}

// collectRefs refills the ref collection with the targets in entry order.
func (l *LoopNode) collectRefs() {
	ref := l.item.Ref
	if ref == "" || l.sc.refs == nil {
		return
	}
	l.sc.refs.clean(ref)
	for _, it := range l.order {
		if t, ok := it.node.(targeter); ok {
			if target := t.target(); target != nil {
				l.sc.refs.collect(ref, target)
			}
		}
	}
}

func (l *LoopNode) content() []surface.Node {
	var out []surface.Node
	for _, it := range l.order {
		out = append(out, it.node.Nodes()...)
	}
	return out
}

// Len returns the number of rendered entries.
func (l *LoopNode) Len() int {
	return len(l.order)
}

// Items returns the node of each entry in order.
func (l *LoopNode) Items() []Node {
	out := make([]Node, len(l.order))
	for i, it := range l.order {
		out[i] = it.node
	}
	return out
}

func (l *LoopNode) Mount() {
	if l.status != StatusUnmounted {
		return
	}
	l.restoreAnchor()
	l.putBack()
}

func (l *LoopNode) Unmount(full bool) {
	l.takeOff(full, l.content())
}

func (l *LoopNode) Remove() {
	if l.status == StatusRemoved {
		return
	}
	if l.stop != nil {
		l.stop()
	}
	for _, it := range l.order {
		it.node.Remove()
		it.graph.Disconnect()
	}
	l.order = nil
	l.store = nil
	l.loop.Close()
	l.key.Close()
	if ref := l.item.Ref; ref != "" && l.sc.refs != nil {
		l.sc.refs.clean(ref)
	}
	l.dropAnchor()
}

// Update refreshes the repeat and key expressions. A different element name,
// component or loop variable drops every entry; otherwise each entry takes
// the new item description.
func (l *LoopNode) Update(desc Description) error {
	if desc.Kind != KindElement || desc.Element.Repeat == "" {
		return fmt.Errorf("view: loop node cannot take a %s description", desc)
	}
	d := desc.Element
	itemName, keyName := l.loop.ItemName(), l.loop.KeyName()
	if err := l.loop.Refresh(d.Repeat); err != nil {
		return err
	}
	if err := l.key.Refresh(keySource(d, l.loop)); err != nil {
		return err
	}
	item := withoutRepeat(d)
	l.desc = desc
	if !l.rendered() || l.status == StatusRemoved {
		l.item = item
		return nil
	}
	var errs []error
	renamed := itemName != l.loop.ItemName() || keyName != l.loop.KeyName()
	if renamed || item.Name != l.item.Name || item.Component != l.item.Component {
		for _, it := range l.order {
			l.drop(it)
		}
		l.order = nil
	} else {
		for _, it := range l.order {
			if err := it.node.Update(Element(item)); err != nil {
				errs = append(errs, err)
			}
		}
	}
	l.item = item
	errs = append(errs, l.iterate())
	return errors.Join(errs...)
}

func (l *LoopNode) Description() Description {
	return l.desc
}

func (l *LoopNode) Nodes() []surface.Node {
	return l.nodes(l.content)
}
