// Package harness drives scopes the way a shell would and exposes what the
// shell would show: results views with categories and departments, and
// previews with columns of widgets.
//
// A ScopeHarness is built from a list of scope .ini files. Each scope runs
// in its own process, started on first use, and talks line-delimited JSON
// over stdio (see package protocol). Requests are synchronous from the
// caller's point of view and bounded by Parameters.Timeout; a reader
// goroutine routes events to the waiting request by id.
//
//	h, err := harness.NewFromScopeList(ctx, harness.Parameters{
//	    ScopeList: []string{"testdata/goscope.ini"},
//	})
//	if err != nil {
//	    return err
//	}
//	defer h.Close()
//
//	view := h.ResultsView()
//	view.SetActiveScope("goscope")
//	view.SetSearchQuery(ctx, "")
//	harness.AssertMatchResult(t, harness.NewCategoryListMatcher().
//	    Mode(harness.CategoryListByID).
//	    Category(harness.NewCategoryMatcher("category").Title("Category")).
//	    Match(view.Categories()))
//
// # Scenarios
//
// Scenarios are YAML files describing steps and expectations:
//
//	name: browse_rock
//	description: "Browsing Rock lists its decades"
//	scopes:
//	  - ../scopes/goscope.ini
//	active_scope: goscope
//	steps:
//	  - search: ""
//	  - department: Rock
//	    expect:
//	      departments:
//	        label: Rock Music
//	        children:
//	          - {id: 60s, has_children: false}
//	          - {id: 70s, has_children: false}
//
// RunScenario executes a scenario and records a snapshot of the view after
// every step. RunWithGolden compares that snapshot with a goldie golden
// file.
//
// # Tracing
//
// When Parameters.Trace names a SQLite file, every request and event is
// appended to it under the harness's session id (a UUIDv7), see package
// store.
package harness
