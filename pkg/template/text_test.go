package template

import (
	"testing"

	"github.com/go-drift/loom/pkg/errors"
	"github.com/go-drift/loom/pkg/state"
	"github.com/google/go-cmp/cmp"
)

func TestTextParts(t *testing.T) {
	g := state.New(nil, map[string]any{"name": "ada", "count": 2})
	scope := NewScope(g, nil)

	tests := []struct {
		source    string
		want      string
		names     []string
		parts     int
		stateless bool
	}{
		{"Hello {{ name }}!", "Hello ada!", []string{"name"}, 3, false},
		{"{{ count }} of {{ count + 1 }}", "2 of 3", []string{"count"}, 3, false},
		{"plain", "plain", nil, 1, true},
		{"", "", nil, 1, true},
		{"{{ missing }}", "", nil, 1, false},
	}
	for _, tt := range tests {
		text, err := NewText(tt.source, scope)
		if err != nil {
			t.Fatalf("NewText(%q) error = %v", tt.source, err)
		}
		got, err := text.String()
		if err != nil {
			t.Fatalf("String(%q) error = %v", tt.source, err)
		}
		if got != tt.want {
			t.Errorf("String(%q) = %q, want %q", tt.source, got, tt.want)
		}
		if diff := cmp.Diff(tt.names, text.Names()); diff != "" {
			t.Errorf("Names(%q) mismatch (-want +got):\n%s", tt.source, diff)
		}
		if n := len(text.Parts()); n != tt.parts {
			t.Errorf("len(Parts(%q)) = %d, want %d", tt.source, n, tt.parts)
		}
		if text.Stateless() != tt.stateless {
			t.Errorf("Stateless(%q) = %v, want %v", tt.source, text.Stateless(), tt.stateless)
		}
	}
}

func TestTextRefresh(t *testing.T) {
	g := state.New(nil, map[string]any{"a": 1, "b": 2})
	text, err := NewText("{{ a }}", NewScope(g, nil))
	if err != nil {
		t.Fatalf("NewText() error = %v", err)
	}
	old := text.Parts()[0].Template

	if err := text.Refresh("{{ a }}"); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if text.Parts()[0].Template != old {
		t.Error("unchanged Refresh rebuilt the parts")
	}

	if err := text.Refresh("b={{ b }}"); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	got, _ := text.String()
	if got != "b=2" {
		t.Errorf("String() = %q, want %q", got, "b=2")
	}
}

func TestTextSyntaxError(t *testing.T) {
	_, err := NewText("x {{ a + }}", NewScope(state.New(nil, nil), nil))
	var syntaxErr *errors.TemplateSyntaxError
	if !errors.As(err, &syntaxErr) {
		t.Errorf("NewText() error = %v, want *TemplateSyntaxError", err)
	}
}

func TestStringify(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"s", "s"},
		{3, "3"},
		{true, "true"},
		{1.5, "1.5"},
	}
	for _, tt := range tests {
		if got := Stringify(tt.in); got != tt.want {
			t.Errorf("Stringify(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoop(t *testing.T) {
	g := state.New(nil, map[string]any{"items": []any{"a"}, "store": map[string]any{"list": []any{}}})
	scope := NewScope(g, nil)

	tests := []struct {
		source   string
		item     string
		key      string
		iterable string
	}{
		{"item in items", "item", DefaultKeyName, "items"},
		{"i, item in items", "item", "i", "items"},
		{"(k, v) in store.list", "v", "k", "store"},
		{"items as item", "item", DefaultKeyName, "items"},
		{"items as (i, item)", "item", "i", "items"},
		{"n in 1..5", "n", DefaultKeyName, ""},
		{"item in [{id: 1}, {id: 2}]", "item", DefaultKeyName, ""},
	}
	for _, tt := range tests {
		loop, err := NewLoop(tt.source, scope)
		if err != nil {
			t.Fatalf("NewLoop(%q) error = %v", tt.source, err)
		}
		if loop.ItemName() != tt.item || loop.KeyName() != tt.key || loop.IterableName() != tt.iterable {
			t.Errorf("NewLoop(%q) = item %q key %q iterable %q; want %q %q %q",
				tt.source, loop.ItemName(), loop.KeyName(), loop.IterableName(),
				tt.item, tt.key, tt.iterable)
		}
	}
}

func TestLoopLiteralIterable(t *testing.T) {
	loop, err := NewLoop("item in [{id: 1}, {id: 2}, {id: 3}]", NewScope(state.New(nil, nil), nil))
	if err != nil {
		t.Fatalf("NewLoop() error = %v", err)
	}
	got, err := loop.Iterable().Value(nil)
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}
	want := []any{map[string]any{"id": 1}, map[string]any{"id": 2}, map[string]any{"id": 3}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("literal mismatch (-want +got):\n%s", diff)
	}
}

func TestLoopRangeIterable(t *testing.T) {
	loop, err := NewLoop("n in 1..3", NewScope(state.New(nil, nil), nil))
	if err != nil {
		t.Fatalf("NewLoop() error = %v", err)
	}
	got, err := loop.Iterable().Value(nil)
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}
	if diff := cmp.Diff([]any{1, 2, 3}, got); diff != "" {
		t.Errorf("range mismatch (-want +got):\n%s", diff)
	}
}

func TestLoopSyntaxError(t *testing.T) {
	for _, source := range []string{"item of items", "a, b, c in items", "in items", ", in items", "x in [1,"} {
		_, err := NewLoop(source, NewScope(state.New(nil, nil), nil))
		var syntaxErr *errors.SyntaxError
		if !errors.As(err, &syntaxErr) || syntaxErr.Kind != "repeat" {
			t.Errorf("NewLoop(%q) error = %v, want repeat *SyntaxError", source, err)
		}
	}
}

func TestLoopRefresh(t *testing.T) {
	g := state.New(nil, map[string]any{"a": []any{1}, "b": []any{2}})
	loop, err := NewLoop("x in a", NewScope(g, nil))
	if err != nil {
		t.Fatalf("NewLoop() error = %v", err)
	}
	iterable := loop.Iterable()
	if err := loop.Refresh("y in b"); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if loop.Iterable() != iterable {
		t.Error("Refresh replaced the iterable template")
	}
	if loop.ItemName() != "y" {
		t.Errorf("ItemName() = %q, want y", loop.ItemName())
	}
	got, _ := loop.Iterable().Value(nil)
	if diff := cmp.Diff([]any{2}, got); diff != "" {
		t.Errorf("iterable mismatch (-want +got):\n%s", diff)
	}
}
