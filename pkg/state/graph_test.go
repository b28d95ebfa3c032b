package state

import (
	"testing"

	"github.com/go-drift/loom/pkg/errors"
	"github.com/go-drift/loom/pkg/observable"
	"github.com/google/go-cmp/cmp"
)

func counter() (*int, func()) {
	n := 0
	return &n, func() { n++ }
}

func TestSetBatchesNotifications(t *testing.T) {
	g := New(nil, map[string]any{"a": 0, "b": 0, "c": 0})
	calls, fn := counter()
	g.OnUpdate([]string{"a", "b"}, fn, false)

	if err := g.Set(map[string]any{"a": 1, "b": 2, "c": 3}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if *calls != 1 {
		t.Errorf("listener calls = %d, want 1", *calls)
	}

	if err := g.Set(map[string]any{"a": 1, "b": 2}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if *calls != 1 {
		t.Errorf("listener calls after unchanged Set = %d, want 1", *calls)
	}
}

func TestSetUndeclared(t *testing.T) {
	g := New(nil, map[string]any{"a": 0})
	err := g.Set(map[string]any{"a": 1, "missing": 2})

	var undeclared *errors.UndeclaredStateError
	if !errors.As(err, &undeclared) {
		t.Fatalf("Set() error = %v, want *UndeclaredStateError", err)
	}
	if undeclared.Name != "missing" {
		t.Errorf("Name = %q, want %q", undeclared.Name, "missing")
	}
	if got := g.Get("a").Value(); got != 0 {
		t.Errorf("a = %v, want 0 (no partial update)", got)
	}
}

func TestDependencyPrecision(t *testing.T) {
	g := New(nil, map[string]any{"a": 0, "b": 0})
	calls, fn := counter()
	g.OnUpdate([]string{"a"}, fn, false)

	g.SetValue("b", 1)
	if *calls != 0 {
		t.Errorf("calls after unrelated change = %d, want 0", *calls)
	}
	g.SetValue("a", 1)
	if *calls != 1 {
		t.Errorf("calls = %d, want 1", *calls)
	}
}

func TestPrioritizedListenerRunsFirst(t *testing.T) {
	g := New(nil, map[string]any{"a": 0})
	var order []string
	g.OnUpdate([]string{"a"}, func() { order = append(order, "normal") }, false)
	g.OnUpdate([]string{"a"}, func() { order = append(order, "first") }, true)

	g.SetValue("a", 1)

	if diff := cmp.Diff([]string{"first", "normal"}, order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestParentRelay(t *testing.T) {
	parent := New(nil, map[string]any{"x": 0})
	child := New(parent, map[string]any{"y": 0})

	calls, fn := counter()
	sub := child.OnUpdate([]string{"x", "y"}, fn, false)

	parent.SetValue("x", 1)
	child.SetValue("y", 1)
	if *calls != 2 {
		t.Errorf("calls = %d, want 2", *calls)
	}
	if child.Get("x") != parent.Get("x") {
		t.Error("Get should resolve through the parent")
	}
	if child.Exists("x") {
		t.Error("Exists should be local only")
	}
	if child.StateWith("x") != parent {
		t.Error("StateWith(x) should return the parent")
	}

	sub.Remove()
	parent.SetValue("x", 2)
	child.SetValue("y", 2)
	if *calls != 2 {
		t.Errorf("calls after Remove = %d, want 2", *calls)
	}
	if len(parent.listeners) != 0 {
		t.Errorf("parent keeps %d relays after Remove, want 0", len(parent.listeners))
	}
}

func TestBindingFixedAtSubscription(t *testing.T) {
	parent := New(nil, map[string]any{"x": 0})
	child := New(parent, nil)
	calls, fn := counter()
	child.OnUpdate([]string{"x"}, fn, false)

	child.Add("x", 10)
	parent.SetValue("x", 1)
	if *calls != 1 {
		t.Errorf("calls = %d, want 1 (still bound to the parent)", *calls)
	}
}

func TestSuspensionReplay(t *testing.T) {
	parent := New(nil, map[string]any{"x": 0})
	child := New(parent, map[string]any{"y": 0})

	var got []string
	child.OnUpdate([]string{"x"}, func() { got = append(got, "x") }, false)
	child.OnUpdate([]string{"y"}, func() { got = append(got, "y") }, false)

	child.SwitchOff(nil)
	if !child.IsSwitchedOff() {
		t.Fatal("IsSwitchedOff() = false, want true")
	}
	parent.SetValue("x", 1)
	child.SetValue("y", 1)
	parent.SetValue("x", 2)
	if len(got) != 0 {
		t.Fatalf("listeners ran while suspended: %v", got)
	}

	child.SwitchOn()
	if diff := cmp.Diff([]string{"x", "y"}, got); diff != "" {
		t.Errorf("replay mismatch (-want +got):\n%s", diff)
	}

	child.SwitchOn()
	if len(got) != 2 {
		t.Errorf("second SwitchOn replayed again: %v", got)
	}
}

func TestSuspensionObserverResumes(t *testing.T) {
	parent := New(nil, map[string]any{"show": false})
	child := New(parent, nil)

	calls, fn := counter()
	child.OnUpdate([]string{"show"}, fn, false)
	child.SwitchOff(func(g *Graph) bool {
		return g.Get("show").Value() == true
	})

	parent.SetValue("show", false)
	parent.SetValue("show", 0)
	if *calls != 0 {
		t.Fatalf("calls while observer refuses = %d, want 0", *calls)
	}

	parent.SetValue("show", true)
	if child.IsSwitchedOff() {
		t.Error("observer approval should switch the graph on")
	}
	if *calls != 1 {
		t.Errorf("calls = %d, want 1", *calls)
	}
}

func TestAncestorSuspensionQueues(t *testing.T) {
	root := New(nil, nil)
	child := New(root, map[string]any{"v": 0})
	calls, fn := counter()
	child.OnUpdate([]string{"v"}, fn, false)

	root.SwitchOff(nil)
	child.SetValue("v", 1)
	if *calls != 0 {
		t.Fatalf("calls = %d, want 0 while an ancestor is off", *calls)
	}
	root.SwitchOn()
	if *calls != 1 {
		t.Errorf("calls = %d, want 1 after resume", *calls)
	}
}

func TestReentrantTriggerDuringReplay(t *testing.T) {
	g := New(nil, map[string]any{"a": 0, "b": 0})
	var bCalls int
	g.OnUpdate([]string{"a"}, func() {
		g.SwitchOff(nil)
		g.SetValue("b", 1)
	}, false)
	g.OnUpdate([]string{"b"}, func() { bCalls++ }, false)

	g.SwitchOff(nil)
	g.SetValue("a", 1)
	g.SwitchOn()
	if bCalls != 0 {
		t.Fatalf("b ran during the replay that switched off again: %d", bCalls)
	}
	g.SwitchOn()
	if bCalls != 1 {
		t.Errorf("b calls = %d, want 1 after the next resume", bCalls)
	}
}

func TestRoundTrip(t *testing.T) {
	values := []any{
		1,
		"text",
		map[string]any{"a": []any{1, map[string]any{"b": true}}},
		[]any{"x", []any{1.5}},
		nil,
	}
	g := New(nil, map[string]any{"v": nil})
	for _, v := range values {
		g.Get("v").Set(v)
		if diff := cmp.Diff(v, observable.Plain(g.Get("v").Value())); diff != "" {
			t.Errorf("round trip mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestWrapperMutationNotifies(t *testing.T) {
	g := New(nil, map[string]any{"list": []any{1, 2, 3}})
	calls, fn := counter()
	g.OnUpdate([]string{"list"}, fn, false)

	list := g.Get("list").Value().(*observable.Array)
	list.Push(4)

	if *calls != 1 {
		t.Errorf("calls = %d, want 1", *calls)
	}
	if g.Get("list").Value() != list {
		t.Error("Push replaced the wrapper")
	}
}

func TestSetRawTargetIsNoop(t *testing.T) {
	raw := map[string]any{"a": 1}
	g := New(nil, map[string]any{"obj": raw})
	calls, fn := counter()
	g.OnUpdate([]string{"obj"}, fn, false)

	if g.Get("obj").Set(raw) {
		t.Error("Set(raw target) = true, want false")
	}
	if *calls != 0 {
		t.Errorf("calls = %d, want 0", *calls)
	}
}

func TestItemWatch(t *testing.T) {
	g := New(nil, map[string]any{"user": map[string]any{"name": "ada"}})
	item := g.Get("user")

	var changes [][2]any
	remove := item.Watch("name", func(oldValue, newValue any) {
		changes = append(changes, [2]any{oldValue, newValue})
	})
	item.Watch("name", func(any, any) {})
	item.Watch("other", func(any, any) { t.Error("watcher on another path ran") })

	item.Value().(*observable.Object).Set("name", "grace")
	remove()
	item.Value().(*observable.Object).Set("name", "hopper")

	if diff := cmp.Diff([][2]any{{"ada", "grace"}}, changes); diff != "" {
		t.Errorf("watch mismatch (-want +got):\n%s", diff)
	}
}

func TestItemOnUpdate(t *testing.T) {
	g := New(nil, map[string]any{"n": 1})
	item := g.Get("n")

	var cur, last any
	remove := item.OnUpdate(func(c, l any) { cur, last = c, l })
	item.Set(2)
	if cur != 2 || last != 1 {
		t.Errorf("listener got (%v, %v), want (2, 1)", cur, last)
	}

	g.SwitchOff(nil)
	item.Set(3)
	if cur != 2 {
		t.Errorf("item listener ran while graph was off")
	}
	g.SwitchOn()

	remove()
	item.Set(4)
	if cur != 2 {
		t.Errorf("listener ran after remove: %v", cur)
	}
	if item.LastValue() != 3 {
		t.Errorf("LastValue() = %v, want 3", item.LastValue())
	}
}

func TestReset(t *testing.T) {
	g := New(nil, map[string]any{
		"n":    1,
		"list": []any{"a"},
	})
	calls, fn := counter()
	g.OnUpdate([]string{"n", "list"}, fn, false)

	g.Set(map[string]any{"n": 5})
	g.Get("list").Value().(*observable.Array).Push("b")
	*calls = 0

	g.Reset()
	if *calls != 1 {
		t.Errorf("calls = %d, want 1", *calls)
	}
	want := map[string]any{"n": 1, "list": []any{"a"}}
	if diff := cmp.Diff(want, observable.Plain(g.All())); diff != "" {
		t.Errorf("All() after Reset mismatch (-want +got):\n%s", diff)
	}
}

func TestEdit(t *testing.T) {
	g := New(nil, map[string]any{"a": 0})
	calls, fn := counter()
	g.OnUpdate([]string{"a"}, fn, false)

	ran := false
	g.Edit([]string{"a"}, func() { ran = true })
	if !ran || *calls != 1 {
		t.Errorf("Edit ran = %v, calls = %d; want true, 1", ran, *calls)
	}
}

func TestListenerPanicDoesNotStopOthers(t *testing.T) {
	old := errors.DefaultHandler
	errors.SetHandler(&silentHandler{})
	defer errors.SetHandler(old)

	g := New(nil, map[string]any{"a": 0})
	g.OnUpdate([]string{"a"}, func() { panic("bad listener") }, false)
	calls, fn := counter()
	g.OnUpdate([]string{"a"}, fn, false)

	g.SetValue("a", 1)
	if *calls != 1 {
		t.Errorf("calls = %d, want 1", *calls)
	}
}

func TestDisconnect(t *testing.T) {
	parent := New(nil, map[string]any{"x": 0})
	child := New(parent, nil)
	calls, fn := counter()
	child.OnUpdate([]string{"x"}, fn, false)

	child.Disconnect()
	parent.SetValue("x", 1)
	if *calls != 0 {
		t.Errorf("calls = %d, want 0", *calls)
	}
	if len(parent.listeners) != 0 {
		t.Errorf("parent keeps %d relays, want 0", len(parent.listeners))
	}
}

func TestValues(t *testing.T) {
	parent := New(nil, map[string]any{"a": 1})
	child := New(parent, map[string]any{"b": 2})

	got := child.Values([]string{"a", "b", "c"})
	want := map[string]any{"a": 1, "b": 2, "c": nil}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Values mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"b"}, child.Names()); diff != "" {
		t.Errorf("Names mismatch (-want +got):\n%s", diff)
	}
}

type silentHandler struct{}

func (silentHandler) HandleError(*errors.LoomError) {}
func (silentHandler) HandlePanic(*errors.PanicError) {}

func TestResumeInsideTriggerRunsListenerOnce(t *testing.T) {
	parent := New(nil, map[string]any{"show": false, "n": 1})
	child := New(parent, nil)

	// A prioritized guard on the parent switches the child back on while the
	// same notification is still running.
	parent.OnUpdate([]string{"show"}, func() {
		if parent.Get("show").Value() == true {
			child.SwitchOn()
		}
	}, true)
	calls, fn := counter()
	child.OnUpdate([]string{"n"}, fn, false)

	child.SwitchOff(nil)
	parent.SetValue("n", 2)
	if *calls != 0 {
		t.Fatalf("calls while off = %d, want 0", *calls)
	}

	parent.Set(map[string]any{"show": true, "n": 3})
	if *calls != 1 {
		t.Errorf("calls on resume = %d, want 1", *calls)
	}

	parent.SetValue("n", 4)
	if *calls != 2 {
		t.Errorf("calls after resume = %d, want 2", *calls)
	}
}
