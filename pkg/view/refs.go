package view

// Refs holds the targets registered by ref on the elements and components of
// a view. An element target is its surface node; a component target is its
// public value.
type Refs struct {
	single      map[string]any
	collections map[string]*RefCollection
}

// NewRefs returns an empty ref table.
func NewRefs() *Refs {
	return &Refs{
		single:      make(map[string]any),
		collections: make(map[string]*RefCollection),
	}
}

// Get returns the target registered under name outside a loop.
func (r *Refs) Get(name string) (any, bool) {
	v, ok := r.single[name]
	return v, ok
}

// Collection returns the targets a loop registered under name.
func (r *Refs) Collection(name string) (*RefCollection, bool) {
	c, ok := r.collections[name]
	return c, ok
}

// Names returns every registered name, sorted.
func (r *Refs) Names() []string {
	seen := make(map[string]bool, len(r.single)+len(r.collections))
	for k := range r.single {
		seen[k] = true
	}
	for k := range r.collections {
		seen[k] = true
	}
	return sortedKeys(seen)
}

func (r *Refs) set(name string, target any) {
	if target == nil {
		delete(r.single, name)
		return
	}
	r.single[name] = target
}

func (r *Refs) unset(name string, target any) {
	if r.single[name] == target {
		delete(r.single, name)
	}
}

func (r *Refs) collect(name string, target any) {
	c, ok := r.collections[name]
	if !ok {
		c = &RefCollection{}
		r.collections[name] = c
	}
	c.items = append(c.items, target)
}

// clean empties a collection. The collection itself survives, so holders of
// it see the next pass.
func (r *Refs) clean(name string) {
	if c, ok := r.collections[name]; ok {
		c.items = c.items[:0]
	}
}

// RefCollection is the ordered set of targets of a ref inside a loop.
type RefCollection struct {
	items []any
}

// Len returns the number of targets.
func (c *RefCollection) Len() int {
	return len(c.items)
}

// At returns the i-th target.
func (c *RefCollection) At(i int) any {
	return c.items[i]
}

// Each calls fn for every target in order.
func (c *RefCollection) Each(fn func(i int, target any)) {
	for i, t := range c.items {
		fn(i, t)
	}
}

// All returns a copy of the targets.
func (c *RefCollection) All() []any {
	return append([]any(nil), c.items...)
}
