package view

import (
	"testing"

	"github.com/go-drift/loom/pkg/errors"
)

func items(ids ...int) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = map[string]any{"id": id}
	}
	return out
}

const keyedList = `
name: ul
content:
  name: li
  repeat: item in items
  key: item.id
  content: "{{ item.id }}"
`

func TestKeyedLoopReorderKeepsNodes(t *testing.T) {
	h := newTestHost(map[string]any{"items": items(1, 2, 3)})
	render(t, h, MustParse(keyedList))
	if got := h.tree.String(); got != "<ul><li>1</li><li>2</li><li>3</li></ul>" {
		t.Fatalf("markup = %q", got)
	}
	ul := h.tree.Root().Children[0]
	before := elementChildren(ul)

	h.tree.ResetOps()
	if err := h.graph.SetValue("items", items(3, 1, 2)); err != nil {
		t.Fatalf("SetValue() error = %v", err)
	}
	if got := h.tree.String(); got != "<ul><li>3</li><li>1</li><li>2</li></ul>" {
		t.Errorf("markup = %q", got)
	}
	after := elementChildren(ul)
	if after[0] != before[2] || after[1] != before[0] || after[2] != before[1] {
		t.Errorf("list items were rebuilt instead of moved")
	}
	ops := h.tree.Ops()
	if creates := opsOfKind(ops, "create"); len(creates) != 0 {
		t.Errorf("creates = %v, want none", creates)
	}
	for _, op := range opsOfKind(ops, "insert") {
		if op.Node == before[0].Label() || op.Node == before[1].Label() {
			t.Errorf("op %v moved an item that was already in order", op)
		}
	}
}

func TestLoopAddsAndRemovesByKey(t *testing.T) {
	h := newTestHost(map[string]any{"names": []any{"a", "b", "c"}})
	render(t, h, MustParse(`
name: li
repeat: name in names
key: name
content: "{{ name }}"
`))

	h.tree.ResetOps()
	h.graph.SetValue("names", []any{"b", "c", "d"})
	if got := h.tree.String(); got != "<li>b</li><li>c</li><li>d</li>" {
		t.Errorf("markup = %q", got)
	}
	var elements int
	for _, op := range opsOfKind(h.tree.Ops(), "create") {
		if op.Value == "" && op.Node[:2] == "li" {
			elements++
		}
	}
	if elements != 1 {
		t.Errorf("created %d list items, want 1", elements)
	}

	h.graph.SetValue("names", []any{})
	if got := h.tree.String(); got != "" {
		t.Errorf("markup after empty list = %q, want empty", got)
	}
}

func TestLoopUpdatesIterationState(t *testing.T) {
	h := newTestHost(map[string]any{"rows": []any{"x", "y"}})
	render(t, h, MustParse(`
name: p
repeat: row in rows
content: "{{ index }}={{ row }}"
`))
	if got := h.tree.String(); got != "<p>0=x</p><p>1=y</p>" {
		t.Fatalf("markup = %q", got)
	}
	h.tree.ResetOps()
	h.graph.SetValue("rows", []any{"z", "y"})
	if got := h.tree.String(); got != "<p>0=z</p><p>1=y</p>" {
		t.Errorf("markup = %q", got)
	}
	if creates := opsOfKind(h.tree.Ops(), "create"); len(creates) != 0 {
		t.Errorf("creates = %v, want none for index keys", creates)
	}
}

func TestLoopOverMapIsSorted(t *testing.T) {
	h := newTestHost(map[string]any{"scores": map[string]any{"bob": 2, "al": 1, "cy": 3}})
	render(t, h, MustParse(`
name: i
repeat: (who, score) in scores
content: "{{ who }}:{{ score }}"
`))
	if got := h.tree.String(); got != "<i>al:1</i><i>bob:2</i><i>cy:3</i>" {
		t.Errorf("markup = %q", got)
	}
}

func TestLoopAsForm(t *testing.T) {
	h := newTestHost(map[string]any{"xs": []any{"a", "b"}})
	render(t, h, MustParse(`
name: b
repeat: xs as x
content: "{{ x }}"
`))
	if got := h.tree.String(); got != "<b>a</b><b>b</b>" {
		t.Errorf("markup = %q", got)
	}
}

type errorRecorder func(error)

func (r errorRecorder) HandleError(err *errors.LoomError) { r(err) }
func (r errorRecorder) HandlePanic(err *errors.PanicError) { r(err) }

func TestLoopDuplicateKeys(t *testing.T) {
	var reported []error
	errors.SetHandler(errorRecorder(func(err error) { reported = append(reported, err) }))
	defer errors.SetHandler(nil)

	h := newTestHost(map[string]any{"xs": []any{"a"}})
	render(t, h, MustParse(`
name: b
repeat: x in xs
key: x
content: "{{ x }}"
`))
	h.graph.SetValue("xs", []any{"a", "a"})
	if got := h.tree.String(); got != "<b>a</b><b>a</b>" {
		t.Errorf("markup = %q", got)
	}
	if len(reported) != 1 {
		t.Errorf("reported %d errors, want 1 for the duplicate key", len(reported))
	}
}

func TestBadRepeatAbortsOnlyItsNode(t *testing.T) {
	h := newTestHost(nil)
	v, err := NewView(MustParse(`
- name: li
  repeat: "for x of xs"
- after
`), h)
	if err != nil {
		t.Fatalf("NewView() error = %v", err)
	}
	err = v.Render(h.tree.Root())
	var syntax *errors.SyntaxError
	if !errors.As(err, &syntax) || syntax.Kind != "repeat" {
		t.Fatalf("Render() error = %v, want repeat *SyntaxError", err)
	}
	if got := h.tree.String(); got != "after" {
		t.Errorf("markup = %q, want %q", got, "after")
	}
}

func TestLoopRefsCollectInOrder(t *testing.T) {
	h := newTestHost(map[string]any{"items": items(1, 2)})
	v := render(t, h, MustParse(`
name: li
repeat: item in items
key: item.id
ref: rows
`))
	c, ok := v.Refs().Collection("rows")
	if !ok || c.Len() != 2 {
		t.Fatalf("Collection(rows) = %v, %v, want 2 targets", c, ok)
	}
	first := c.At(0)

	h.graph.SetValue("items", items(2, 1))
	if c.Len() != 2 || c.At(1) != first {
		t.Errorf("collection not refreshed in entry order")
	}
	if _, ok := v.Refs().Get("rows"); ok {
		t.Errorf("Get(rows) found a single ref for a loop")
	}
}

func TestLoopUpdateChangesItemDescription(t *testing.T) {
	h := newTestHost(map[string]any{"xs": []any{"a", "b"}})
	v := render(t, h, MustParse(`
name: b
repeat: x in xs
content: "{{ x }}"
`))
	if err := v.Update(MustParse(`
name: b
repeat: x in xs
attrs:
  title: "{{ x }}"
content: "{{ x }}!"
`)); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got := h.tree.String(); got != `<b title="a">a!</b><b title="b">b!</b>` {
		t.Errorf("markup = %q", got)
	}

	if err := v.Update(MustParse(`
name: i
repeat: x in xs
content: "{{ x }}"
`)); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got := h.tree.String(); got != "<i>a</i><i>b</i>" {
		t.Errorf("markup after rename = %q", got)
	}
}

func TestLoopUpdateRenamesVariable(t *testing.T) {
	h := newTestHost(map[string]any{"names": []any{"a", "b"}})
	v := render(t, h, MustParse(`
name: li
repeat: name in names
content: "{{ name }}"
`))
	if err := v.Update(MustParse(`
name: li
repeat: x in names
content: "{{ x }}"
`)); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got := h.tree.String(); got != "<li>a</li><li>b</li>" {
		t.Errorf("markup = %q, want %q", got, "<li>a</li><li>b</li>")
	}
	h.graph.SetValue("names", []any{"c"})
	if got := h.tree.String(); got != "<li>c</li>" {
		t.Errorf("markup after change = %q, want %q", got, "<li>c</li>")
	}
}

func TestLoopOverLiteral(t *testing.T) {
	h := newTestHost(nil)
	render(t, h, MustParse(`
name: li
repeat: "item in [{id: 1}, {id: 2}, {id: 3}]"
key: item.id
content: "{{ item.id }}"
`))
	if got := h.tree.String(); got != "<li>1</li><li>2</li><li>3</li>" {
		t.Errorf("markup = %q", got)
	}
}
