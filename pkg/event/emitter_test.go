package event

import (
	"testing"

	"github.com/go-drift/loom/pkg/observable"
	"github.com/google/go-cmp/cmp"
)

type nopOwner struct{}

func (nopOwner) HandleUpdate(string, any, any) {}
func (nopOwner) Trigger()                      {}

func TestEmit(t *testing.T) {
	var e Emitter
	var got [][]any
	remove := e.On("save", func(args ...any) { got = append(got, args) })

	e.Emit("save", 1, "a")
	e.Emit("other", 2)
	remove()
	e.Emit("save", 3)

	if diff := cmp.Diff([][]any{{1, "a"}}, got); diff != "" {
		t.Errorf("emitted mismatch (-want +got):\n%s", diff)
	}
}

func TestEmitPassesPlainValues(t *testing.T) {
	var e Emitter
	wrapped := observable.Wrap(map[string]any{"id": 1}, nopOwner{})
	var got any
	e.On("pick", func(args ...any) { got = args[0] })

	e.Emit("pick", wrapped)

	if observable.IsWrapped(got) {
		t.Fatal("listener received a wrapper")
	}
	if diff := cmp.Diff(map[string]any{"id": 1}, got); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestCreate(t *testing.T) {
	var e Emitter
	h := e.Create("done")
	if h == nil || h.Name() != "done" {
		t.Fatalf("Create() = %v", h)
	}
	if e.Create("done") != nil {
		t.Error("declaring an event twice should return nil")
	}
	if got, ok := e.Declared("done"); !ok || got != h {
		t.Error("Declared(done) did not return the handle")
	}

	calls := 0
	e.On("done", func(...any) { calls++ })
	h.Emit()
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestOffAndDisconnect(t *testing.T) {
	var e Emitter
	calls := 0
	e.On("a", func(...any) { calls++ })
	e.On("b", func(...any) { calls++ })

	e.Off("a")
	e.Emit("a")
	e.Emit("b")
	e.Disconnect()
	e.Emit("b")

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
