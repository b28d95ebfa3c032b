// Package observable wraps composite state values so that in-place
// mutation is visible to the state item that owns them.
//
// Go has no transparent proxies, so the wrappers are explicit: an [*Object]
// stands for a map[string]any and an [*Array] for a []any. Every read and
// write goes through their methods. Writes report a dotted path plus the old
// and new values to the [Owner]; the whitelisted array mutators (Push, Pop,
// Shift, Unshift, Sort, Reverse, Splice) report only that something changed.
//
// Wrappers are never shared between owners. Wrapping a value that already
// belongs to another owner, or assigning one into a wrapper, deep-clones it
// first.
package observable

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// MutatorsKey is the object key listing the names of methods that mutate
// the object. Calling one of them through [Object.Call] triggers the owner.
const MutatorsKey = "MUTATORS"

// Owner receives change notifications from wrapped values.
type Owner interface {
	// HandleUpdate is called after a write at path.
	HandleUpdate(path string, oldValue, newValue any)
	// Trigger is called after a mutator changed the value in place.
	Trigger()
}

// Method is a function stored as an object field and invoked by
// [Object.Call].
type Method func(self *Object, args ...any) any

// Wrap returns value wrapped for owner. Values that are not maps or slices,
// and any value when owner is nil, are returned unchanged.
func Wrap(value any, owner Owner) any {
	if owner == nil {
		return value
	}
	switch v := value.(type) {
	case *Object:
		if v.owner == owner && len(v.path) == 0 {
			return v
		}
	case *Array:
		if v.owner == owner && len(v.path) == 0 {
			return v
		}
	}
	return wrap(value, owner, nil)
}

// wrap converts raw maps and slices into wrappers. Wrappers are always
// cloned so that no wrapper ends up reachable from two places.
func wrap(value any, owner Owner, path []string) any {
	switch v := value.(type) {
	case nil:
		return nil
	case *Object:
		raw := v.rawMap()
		return newObject(raw, owner, path, raw)
	case *Array:
		raw := v.rawSlice()
		return newArray(raw, owner, path, raw)
	case map[string]any:
		return newObject(v, owner, path, v)
	case []any:
		return newArray(v, owner, path, v)
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return value
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return newObject(m, owner, path, value)
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return value
		}
		s := make([]any, rv.Len())
		for i := range s {
			s[i] = rv.Index(i).Interface()
		}
		return newArray(s, owner, path, value)
	}
	return value
}

// IsWrapped reports whether v is an *Object or an *Array.
func IsWrapped(v any) bool {
	switch v.(type) {
	case *Object, *Array:
		return true
	}
	return false
}

// Target returns the raw value a wrapper was created from, or nil when v is
// not a wrapper.
func Target(v any) any {
	switch w := v.(type) {
	case *Object:
		return w.source
	case *Array:
		return w.source
	}
	return nil
}

// Plain returns a deep copy of v with every wrapper replaced by plain
// map[string]any and []any values. Method fields are dropped.
func Plain(v any) any {
	switch w := v.(type) {
	case *Object:
		return w.plainMap()
	case *Array:
		return w.plainSlice()
	case map[string]any:
		m := make(map[string]any, len(w))
		for k, item := range w {
			if _, ok := item.(Method); ok {
				continue
			}
			m[k] = Plain(item)
		}
		return m
	case []any:
		s := make([]any, len(w))
		for i, item := range w {
			s[i] = Plain(item)
		}
		return s
	}
	return v
}

// Same reports whether a and b are the same value: equal for comparable
// values, the same map or the same slice backing array otherwise.
func Same(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return safeEqual(a, b)
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch va.Kind() {
	case reflect.Map:
		return va.UnsafePointer() == vb.UnsafePointer()
	case reflect.Slice:
		return va.UnsafePointer() == vb.UnsafePointer() && va.Len() == vb.Len()
	}
	return false
}

// safeEqual compares two values of the same comparable type. Interface
// fields holding non-comparable values still panic at runtime; those are
// treated as different.
func safeEqual(a, b any) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return a == b
}

func childPath(path []string, key string) []string {
	out := make([]string, len(path)+1)
	copy(out, path)
	out[len(path)] = key
	return out
}

func joinPath(path []string, key string) string {
	if len(path) == 0 {
		return key
	}
	return strings.Join(path, ".") + "." + key
}

// Object is an observable map[string]any.
type Object struct {
	fields map[string]any
	owner  Owner
	path   []string
	source any
}

func newObject(m map[string]any, owner Owner, path []string, source any) *Object {
	o := &Object{
		fields: make(map[string]any, len(m)),
		owner:  owner,
		path:   path,
		source: source,
	}
	for k, v := range m {
		o.fields[k] = wrap(v, owner, childPath(path, k))
	}
	return o
}

// Get returns the field value. Nested composites are returned as wrappers,
// and the same wrapper is returned until the field is reassigned.
func (o *Object) Get(key string) any {
	return o.fields[key]
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	_, ok := o.fields[key]
	return ok
}

// Keys returns the field names in sorted order.
func (o *Object) Keys() []string {
	keys := make([]string, 0, len(o.fields))
	for k := range o.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of fields.
func (o *Object) Len() int {
	return len(o.fields)
}

// Path returns the dotted path of o inside its owner's value.
func (o *Object) Path() string {
	return strings.Join(o.path, ".")
}

// Set assigns key and reports the write to the owner. Assigning the wrapper
// already stored at key does nothing.
func (o *Object) Set(key string, value any) {
	old := o.fields[key]
	if IsWrapped(value) && Same(value, old) {
		return
	}
	o.fields[key] = wrap(value, o.owner, childPath(o.path, key))
	o.owner.HandleUpdate(joinPath(o.path, key), old, o.fields[key])
}

// Delete removes key and reports the write to the owner.
func (o *Object) Delete(key string) {
	old, ok := o.fields[key]
	if !ok {
		return
	}
	delete(o.fields, key)
	o.owner.HandleUpdate(joinPath(o.path, key), old, nil)
}

// Mutators returns the method names declared under [MutatorsKey].
func (o *Object) Mutators() []string {
	var names []string
	switch list := o.fields[MutatorsKey].(type) {
	case *Array:
		for _, item := range list.items {
			if s, ok := item.(string); ok {
				names = append(names, s)
			}
		}
	case []string:
		names = append(names, list...)
	}
	return names
}

// Call invokes the [Method] stored at name. When name is one of the
// declared mutators the owner is triggered once the method returns.
func (o *Object) Call(name string, args ...any) (any, bool) {
	fn, ok := o.fields[name].(Method)
	if !ok {
		return nil, false
	}
	result := fn(o, args...)
	for _, m := range o.Mutators() {
		if m == name {
			o.owner.Trigger()
			break
		}
	}
	return result, true
}

func (o *Object) rawMap() map[string]any {
	m := make(map[string]any, len(o.fields))
	for k, v := range o.fields {
		m[k] = v
	}
	return m
}

func (o *Object) plainMap() map[string]any {
	m := make(map[string]any, len(o.fields))
	for k, v := range o.fields {
		if _, ok := v.(Method); ok {
			continue
		}
		m[k] = Plain(v)
	}
	return m
}

// Array is an observable []any.
type Array struct {
	items  []any
	owner  Owner
	path   []string
	source any
}

func newArray(s []any, owner Owner, path []string, source any) *Array {
	a := &Array{
		items:  make([]any, len(s)),
		owner:  owner,
		path:   path,
		source: source,
	}
	for i, v := range s {
		a.items[i] = wrap(v, owner, childPath(path, strconv.Itoa(i)))
	}
	return a
}

// Len returns the number of items.
func (a *Array) Len() int {
	return len(a.items)
}

// At returns the item at index i, or nil when i is out of range.
func (a *Array) At(i int) any {
	if i < 0 || i >= len(a.items) {
		return nil
	}
	return a.items[i]
}

// Items returns a copy of the item slice. Nested wrappers are shared.
func (a *Array) Items() []any {
	out := make([]any, len(a.items))
	copy(out, a.items)
	return out
}

// Path returns the dotted path of a inside its owner's value.
func (a *Array) Path() string {
	return strings.Join(a.path, ".")
}

// Set assigns index i and reports the write to the owner. Indexes past the
// end grow the array with nil items.
func (a *Array) Set(i int, value any) {
	if i < 0 {
		return
	}
	for len(a.items) <= i {
		a.items = append(a.items, nil)
	}
	old := a.items[i]
	if IsWrapped(value) && Same(value, old) {
		return
	}
	key := strconv.Itoa(i)
	a.items[i] = wrap(value, a.owner, childPath(a.path, key))
	a.owner.HandleUpdate(joinPath(a.path, key), old, a.items[i])
}

// Push appends values and returns the new length.
func (a *Array) Push(values ...any) int {
	for _, v := range values {
		a.items = append(a.items, a.wrapItem(v, len(a.items)))
	}
	a.owner.Trigger()
	return len(a.items)
}

// Pop removes and returns the last item.
func (a *Array) Pop() any {
	if len(a.items) == 0 {
		a.owner.Trigger()
		return nil
	}
	last := a.items[len(a.items)-1]
	a.items = a.items[:len(a.items)-1]
	a.owner.Trigger()
	return last
}

// Shift removes and returns the first item.
func (a *Array) Shift() any {
	if len(a.items) == 0 {
		a.owner.Trigger()
		return nil
	}
	first := a.items[0]
	a.items = append(a.items[:0:0], a.items[1:]...)
	a.reindex()
	a.owner.Trigger()
	return first
}

// Unshift prepends values and returns the new length.
func (a *Array) Unshift(values ...any) int {
	head := make([]any, len(values))
	for i, v := range values {
		head[i] = a.wrapItem(v, i)
	}
	a.items = append(head, a.items...)
	a.reindex()
	a.owner.Trigger()
	return len(a.items)
}

// Sort sorts the items in place with less. A nil less orders numbers
// numerically and everything else by its string form.
func (a *Array) Sort(less func(x, y any) bool) {
	if less == nil {
		less = defaultLess
	}
	sort.SliceStable(a.items, func(i, j int) bool {
		return less(a.items[i], a.items[j])
	})
	a.reindex()
	a.owner.Trigger()
}

// Reverse reverses the items in place.
func (a *Array) Reverse() {
	for i, j := 0, len(a.items)-1; i < j; i, j = i+1, j-1 {
		a.items[i], a.items[j] = a.items[j], a.items[i]
	}
	a.reindex()
	a.owner.Trigger()
}

// Splice removes deleteCount items at start, inserts values in their place
// and returns the removed items. A negative start counts from the end.
func (a *Array) Splice(start, deleteCount int, values ...any) []any {
	n := len(a.items)
	if start < 0 {
		start += n
		if start < 0 {
			start = 0
		}
	}
	if start > n {
		start = n
	}
	if deleteCount < 0 {
		deleteCount = 0
	}
	if start+deleteCount > n {
		deleteCount = n - start
	}
	removed := make([]any, deleteCount)
	copy(removed, a.items[start:start+deleteCount])

	inserted := make([]any, len(values))
	for i, v := range values {
		inserted[i] = a.wrapItem(v, start+i)
	}
	items := make([]any, 0, n-deleteCount+len(inserted))
	items = append(items, a.items[:start]...)
	items = append(items, inserted...)
	items = append(items, a.items[start+deleteCount:]...)
	a.items = items
	a.reindex()
	a.owner.Trigger()
	return removed
}

func (a *Array) wrapItem(v any, index int) any {
	return wrap(v, a.owner, childPath(a.path, strconv.Itoa(index)))
}

// reindex moves the paths of shifted wrappers so they stay exact. Shifted
// wrappers keep their identity.
func (a *Array) reindex() {
	for i, item := range a.items {
		repath(item, childPath(a.path, strconv.Itoa(i)))
	}
}

func repath(v any, path []string) {
	switch w := v.(type) {
	case *Object:
		w.path = path
		for k, field := range w.fields {
			repath(field, childPath(path, k))
		}
	case *Array:
		w.path = path
		for i, item := range w.items {
			repath(item, childPath(path, strconv.Itoa(i)))
		}
	}
}

func (a *Array) rawSlice() []any {
	s := make([]any, len(a.items))
	copy(s, a.items)
	return s
}

func (a *Array) plainSlice() []any {
	s := make([]any, len(a.items))
	for i, v := range a.items {
		s[i] = Plain(v)
	}
	return s
}

func defaultLess(x, y any) bool {
	fx, okx := toFloat(x)
	fy, oky := toFloat(y)
	if okx && oky {
		return fx < fy
	}
	return toString(x) < toString(y)
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}
