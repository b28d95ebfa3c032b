package view

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/go-drift/loom/pkg/surface"
)

// stubNode is a node that only carries a description.
type stubNode struct {
	desc Description
}

func (n *stubNode) Render(surface.Node) error { return nil }
func (n *stubNode) Mount() {}
func (n *stubNode) Unmount(bool) {}
func (n *stubNode) Remove() {}
func (n *stubNode) Update(Description) error { return nil }
func (n *stubNode) Description() Description { return n.desc }
func (n *stubNode) Status() Status { return StatusMounted }
func (n *stubNode) Nodes() []surface.Node { return nil }

func stubs(list []Description) []Node {
	out := make([]Node, len(list))
	for i, d := range list {
		out[i] = &stubNode{desc: d}
	}
	return out
}

// matched returns, for each entry, the index of the reused node or -1.
func matched(matches []Match, nodes []Node) []int {
	out := make([]int, len(matches))
	for i, m := range matches {
		out[i] = -1
		for j, n := range nodes {
			if m.Node == n {
				out[i] = j
			}
		}
	}
	return out
}

func TestCompareList(t *testing.T) {
	p := func(e ElementDescription) Description { return Element(e) }
	tests := []struct {
		name string
		prev []Description
		next []Description
		want []int
	}{
		{
			name: "unchanged",
			prev: []Description{Text("a"), p(ElementDescription{Name: "b"})},
			next: []Description{Text("a"), p(ElementDescription{Name: "b"})},
			want: []int{0, 1},
		},
		{
			name: "text moves",
			prev: []Description{Text("a"), Text("b")},
			next: []Description{Text("b"), Text("a")},
			want: []int{1, 0},
		},
		{
			name: "key wins over position",
			prev: []Description{
				p(ElementDescription{Name: "li", Key: "1"}),
				p(ElementDescription{Name: "li", Key: "2"}),
			},
			next: []Description{
				p(ElementDescription{Name: "li", Key: "2"}),
				p(ElementDescription{Name: "li", Key: "1"}),
			},
			want: []int{1, 0},
		},
		{
			name: "key outranks an equal description",
			prev: []Description{
				p(ElementDescription{Name: "li"}),
				p(ElementDescription{Name: "li", Key: "k", Attrs: map[string]string{"a": "1"}}),
			},
			next: []Description{
				p(ElementDescription{Name: "li", Key: "k"}),
			},
			want: []int{1},
		},
		{
			name: "different keys never match",
			prev: []Description{p(ElementDescription{Name: "li", Key: "1"})},
			next: []Description{p(ElementDescription{Name: "li", Key: "2"})},
			want: []int{-1},
		},
		{
			name: "ref",
			prev: []Description{
				p(ElementDescription{Name: "input"}),
				p(ElementDescription{Name: "input", Ref: "field", Attrs: map[string]string{"x": "1"}}),
			},
			next: []Description{
				p(ElementDescription{Name: "input", Ref: "field"}),
			},
			want: []int{1},
		},
		{
			name: "component",
			prev: []Description{
				p(ElementDescription{Name: "div"}),
				p(ElementDescription{Component: "card", Props: map[string]string{"n": "1"}}),
			},
			next: []Description{
				p(ElementDescription{Component: "card", Props: map[string]string{"n": "2"}}),
			},
			want: []int{1},
		},
		{
			name: "ignoring content",
			prev: []Description{
				p(ElementDescription{Name: "p", Content: Text("x")}),
				p(ElementDescription{Name: "div", Content: Text("old")}),
			},
			next: []Description{
				p(ElementDescription{Name: "div", Content: Text("new")}),
			},
			want: []int{1},
		},
		{
			name: "same index fallback",
			prev: []Description{p(ElementDescription{Name: "p", Attrs: map[string]string{"a": "1"}})},
			next: []Description{p(ElementDescription{Name: "p", Attrs: map[string]string{"a": "2"}})},
			want: []int{0},
		},
		{
			name: "no reuse across names",
			prev: []Description{p(ElementDescription{Name: "p"})},
			next: []Description{p(ElementDescription{Name: "span"})},
			want: []int{-1},
		},
		{
			name: "new entries",
			prev: []Description{Text("a")},
			next: []Description{Text("a"), Text("b")},
			want: []int{0, -1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes := stubs(tt.prev)
			got := matched(CompareList(tt.next, tt.prev, nodes), nodes)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("CompareList mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCompareElementIgnoresContent(t *testing.T) {
	a := &ElementDescription{Name: "p", Content: Text("a")}
	b := &ElementDescription{Name: "p", Content: Text("b")}
	if CompareElement(a, b) {
		t.Errorf("CompareElement() = true for a content-only change")
	}
	c := &ElementDescription{Name: "p", Attrs: map[string]string{"x": "1"}}
	if !CompareElement(c, a) {
		t.Errorf("CompareElement() = false for an attribute change")
	}
}

func TestStable(t *testing.T) {
	tests := []struct {
		prev []int
		want []bool
	}{
		{[]int{0, 1, 2}, []bool{true, true, true}},
		{[]int{2, 0, 1}, []bool{false, true, true}},
		{[]int{1, 2, 0}, []bool{true, true, false}},
		{[]int{-1, 0, -1, 1}, []bool{false, true, false, true}},
		{[]int{3, 2, 1, 0}, []bool{false, false, false, true}},
		{nil, []bool{}},
	}
	for _, tt := range tests {
		got := stable(tt.prev)
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("stable(%v) mismatch (-want +got):\n%s", tt.prev, diff)
		}
	}
}
