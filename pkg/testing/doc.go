// Package testing provides a view testing framework for loom.
//
// # Quick Start
//
// Create a tester, render a view, and make assertions:
//
//	func TestCounter(t *testing.T) {
//	    tester := loomtest.NewViewTesterWithT(t)
//	    tester.RenderView(view.MustParse(counterView), counterController)
//
//	    // Find nodes
//	    button := tester.Find(loomtest.ByText("Add")).First()
//
//	    // Fire events
//	    tester.Click(loomtest.ByText("Add"))
//
//	    // Assert state
//	    if !tester.Find(loomtest.ByText("Count: 1")).Exists() {
//	        t.Error("expected 'Count: 1'")
//	    }
//	}
//
// Registered components render with RenderComponent; register them on
// tester.Registry() first.
//
// # Snapshot Testing
//
// Capture and compare surface tree snapshots:
//
//	snapshot := tester.CaptureSnapshot()
//	snapshot.MatchesFile(t, "testdata/counter.snapshot.json")
//
// Update snapshots with:
//
//	LOOM_UPDATE_SNAPSHOTS=1 go test ./...
//
// # Import Alias
//
// Since this package has the same name as the standard library testing
// package, import it with an alias:
//
//	import loomtest "github.com/go-drift/loom/pkg/testing"
package testing
