package view

import (
	"github.com/go-drift/loom/pkg/surface"
)

// View is the rendered view of one host. It renders the host's description
// in the host's graph and collects the refs of its elements.
type View struct {
	root *Fragment
	refs *Refs
}

// NewView prepares desc for rendering in host. A dangling else or elseif at
// the top level is reported here.
func NewView(desc Description, host Host) (*View, error) {
	refs := NewRefs()
	sc := &scope{host: host, graph: host.State(), refs: refs}
	root, err := newFragment(desc, sc)
	if err != nil {
		return nil, err
	}
	return &View{root: root, refs: refs}, nil
}

// Render renders the view into parent. Entries that fail are left out and
// their errors returned together.
func (v *View) Render(parent surface.Node) error {
	return v.root.Render(parent)
}

// Mount puts an unmounted view back.
func (v *View) Mount() {
	v.root.Mount()
}

// Unmount takes the view off the surface.
func (v *View) Unmount(full bool) {
	v.root.Unmount(full)
}

// Remove releases the view.
func (v *View) Remove() {
	v.root.Remove()
}

// Update reconciles the view with a new description.
func (v *View) Update(desc Description) error {
	return v.root.Update(desc)
}

// Refs returns the refs registered by the view.
func (v *View) Refs() *Refs {
	return v.refs
}

// Root returns the top-level fragment.
func (v *View) Root() *Fragment {
	return v.root
}

func (v *View) Nodes() []surface.Node {
	return v.root.Nodes()
}

func (v *View) Status() Status {
	return v.root.Status()
}

func (v *View) Description() Description {
	return v.root.Description()
}
