package testing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-drift/loom/internal/linediff"
	"github.com/go-drift/loom/pkg/surface"
)

// UpdateEnv is the environment variable that makes MatchesFile rewrite
// golden files instead of comparing against them.
const UpdateEnv = "LOOM_UPDATE_SNAPSHOTS"

// TestingT is the subset of *testing.T used by MatchesFile, allowing
// test doubles to intercept failures.
type TestingT interface {
	Helper()
	Fatalf(format string, args ...any)
	Errorf(format string, args ...any)
	Name() string
}

// Snapshot captures the surface tree and the mutations that produced it.
type Snapshot struct {
	Tree *SnapshotNode `json:"tree"`
	Ops  []string      `json:"ops,omitempty"`
}

// SnapshotNode represents a node in the serialized surface tree. Empty
// text nodes, which only mark positions, are left out.
type SnapshotNode struct {
	ID       string            `json:"id"`
	Type     string            `json:"type"`
	Text     string            `json:"text,omitempty"`
	Attrs    map[string]string `json:"attrs,omitempty"`
	Props    map[string]string `json:"props,omitempty"`
	Children []*SnapshotNode   `json:"children,omitempty"`
}

// CaptureSnapshot captures the current surface tree and the ops recorded
// since the last ResetOps.
func (t *ViewTester) CaptureSnapshot() *Snapshot {
	snap := &Snapshot{Tree: captureNode(t.tree.Root(), &typeCounter{})}
	for _, op := range t.tree.Ops() {
		snap.Ops = append(snap.Ops, op.String())
	}
	return snap
}

// MatchesFile compares this snapshot against a golden file. On mismatch it
// reports a diff and instructions for updating. When LOOM_UPDATE_SNAPSHOTS=1
// is set, the file is silently updated instead.
func (s *Snapshot) MatchesFile(t TestingT, path string) {
	t.Helper()

	if os.Getenv(UpdateEnv) == "1" {
		if err := s.UpdateFile(path); err != nil {
			t.Fatalf("failed to update snapshot: %v", err)
		}
		return
	}

	expected, err := loadSnapshot(path)
	if err != nil {
		if os.IsNotExist(err) {
			t.Fatalf("snapshot file missing: %s\n\nTo create: %s=1 go test -run %s", path, UpdateEnv, t.Name())
			return
		}
		t.Fatalf("failed to load snapshot: %v", err)
		return
	}

	if diff := s.Diff(expected); diff != "" {
		t.Errorf("snapshot mismatch: %s\n%s\n\nTo update: %s=1 go test -run %s", path, diff, UpdateEnv, t.Name())
	}
}

// UpdateFile writes this snapshot to the given path, creating directories
// as needed.
func (s *Snapshot) UpdateFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := marshalSnapshot(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Diff returns a line diff between other, the expected snapshot, and this
// one. Returns empty string if equal.
func (s *Snapshot) Diff(other *Snapshot) string {
	a, _ := marshalSnapshot(s)
	b, _ := marshalSnapshot(other)
	if bytes.Equal(a, b) {
		return ""
	}
	return linediff.Unified(string(b), string(a))
}

// --- Internal ---

// typeCounter assigns stable IDs like "li#0", "li#1", in traversal order,
// so snapshots do not depend on surface node ids.
type typeCounter struct {
	counts map[string]int
}

func (c *typeCounter) next(typeName string) string {
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	n := c.counts[typeName]
	c.counts[typeName] = n + 1
	return fmt.Sprintf("%s#%d", typeName, n)
}

func captureNode(n *surface.TreeNode, counter *typeCounter) *SnapshotNode {
	typeName := n.Kind.String()
	if n.Kind == surface.KindElement {
		typeName = n.Tag
	}
	node := &SnapshotNode{
		ID:   counter.next(typeName),
		Type: typeName,
		Text: n.Text,
	}
	if len(n.Attrs) > 0 {
		node.Attrs = make(map[string]string, len(n.Attrs))
		for k, v := range n.Attrs {
			node.Attrs[k] = v
		}
	}
	if len(n.Props) > 0 {
		node.Props = make(map[string]string, len(n.Props))
		for _, k := range sortedKeys(n.Props) {
			node.Props[k] = fmt.Sprint(n.Props[k])
		}
	}
	for _, child := range n.Children {
		if child.Kind == surface.KindText && child.Text == "" {
			continue
		}
		node.Children = append(node.Children, captureNode(child, counter))
	}
	return node
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func loadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("invalid snapshot JSON: %w", err)
	}
	return &snap, nil
}

func marshalSnapshot(s *Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
