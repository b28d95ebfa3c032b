package view

import (
	"github.com/go-drift/loom/pkg/errors"
	"github.com/go-drift/loom/pkg/surface"
	"github.com/go-drift/loom/pkg/template"
)

// TextNode renders a text template as one surface text node per part.
type TextNode struct {
	base
	sc    *scope
	desc  Description
	text  *template.Text
	parts []*textPart
}

type textPart struct {
	node  surface.Node
	value string
	stop  func()
}

func newTextNode(desc Description, sc *scope) (*TextNode, error) {
	text, err := template.NewText(desc.Text, sc)
	if err != nil {
		return nil, err
	}
	return &TextNode{base: base{s: sc.surface()}, sc: sc, desc: desc, text: text}, nil
}

// Render appends one text node per part, then the anchor.
func (t *TextNode) Render(parent surface.Node) error {
	if t.rendered() {
		return nil
	}
	t.build()
	for _, p := range t.parts {
		t.s.Append(parent, p.node)
	}
	t.placeAnchor(parent)
	t.status = StatusMounted
	return nil
}

// build binds the parts of the current template, reusing text nodes of the
// previous parts whose value is unchanged. It returns the nodes it dropped.
func (t *TextNode) build() []surface.Node {
	old := t.parts
	for _, p := range old {
		p.stop()
	}
	used := make([]bool, len(old))
	t.parts = make([]*textPart, 0, len(t.text.Parts()))
	for _, part := range t.text.Parts() {
		value, err := part.Value()
		if err != nil {
			errors.ReportAs("view.Text", errors.KindTemplate, err)
		}
		tp := &textPart{value: value, stop: func() {}}
		for i, p := range old {
			if !used[i] && p.value == value {
				used[i] = true
				tp.node = p.node
				break
			}
		}
		if tp.node == nil {
			tp.node = t.s.CreateText(value)
		}
		if part.Dynamic() {
			tp.stop = part.Template.OnUpdate(func(v any) {
				s := template.Stringify(v)
				if s == tp.value {
					return
				}
				tp.value = s
				t.s.SetText(tp.node, s)
			})
		}
		t.parts = append(t.parts, tp)
	}
	var dropped []surface.Node
	for i, p := range old {
		if !used[i] {
			dropped = append(dropped, p.node)
		}
	}
	return dropped
}

func (t *TextNode) content() []surface.Node {
	out := make([]surface.Node, len(t.parts))
	for i, p := range t.parts {
		out[i] = p.node
	}
	return out
}

// Mount puts the text back before its anchor.
func (t *TextNode) Mount() {
	if t.status != StatusUnmounted {
		return
	}
	t.restoreAnchor()
	t.putBack()
}

// Unmount takes the text off the surface.
func (t *TextNode) Unmount(full bool) {
	t.takeOff(full, t.content())
}

// Remove detaches the text and stops listening to state.
func (t *TextNode) Remove() {
	if t.status == StatusRemoved {
		return
	}
	for _, p := range t.parts {
		p.stop()
		t.s.Remove(p.node)
	}
	t.parts = nil
	t.text.Close()
	t.dropAnchor()
}

// Update switches to a new text template. Text nodes whose value does not
// change are kept.
func (t *TextNode) Update(desc Description) error {
	if desc.Kind != KindText {
		return errors.New("view: text node cannot take a " + desc.Kind.String() + " description")
	}
	if desc.Text == t.desc.Text {
		return nil
	}
	if err := t.text.Refresh(desc.Text); err != nil {
		return err
	}
	t.desc = desc
	if !t.rendered() || t.status == StatusRemoved {
		return nil
	}
	dropped := t.build()
	for _, n := range dropped {
		t.s.Remove(n)
	}
	t.placeEnd(t.content())
	return nil
}

func (t *TextNode) Description() Description {
	return t.desc
}

func (t *TextNode) Nodes() []surface.Node {
	return t.nodes(t.content)
}
