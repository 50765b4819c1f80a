package harness

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/goscope/internal/variant"
)

// RunOptions configures RunScenario.
type RunOptions struct {
	Launcher    Launcher
	Logger      *slog.Logger
	Timeout     time.Duration
	Trace       string
	Cardinality int
	Locale      string
	FormFactor  string
}

// RunScenario executes s on a fresh harness. Step failures and expectation
// mismatches are reported in the Result; the returned error is reserved for
// failures to set the harness up.
func RunScenario(ctx context.Context, s *Scenario, opts RunOptions) (*RunResult, error) {
	h, err := NewFromScopeList(ctx, Parameters{
		ScopeList:     s.Scopes,
		RuntimeConfig: s.Runtime,
		Timeout:       opts.Timeout,
		Trace:         opts.Trace,
		Cardinality:   opts.Cardinality,
		Locale:        opts.Locale,
		FormFactor:    opts.FormFactor,
		Launcher:      opts.Launcher,
		Logger:        opts.Logger,
	})
	if err != nil {
		return nil, err
	}
	defer h.Close()

	results := h.ResultsView()
	if err := results.SetActiveScope(s.ActiveScope); err != nil {
		return nil, err
	}

	r := &runner{ctx: ctx, results: results, view: results}
	result := NewRunResult()
	for i, step := range s.Steps {
		do, err := r.do(step)
		if err != nil {
			result.AddError(fmt.Sprintf("steps[%d] (%s): %v", i, do, err))
			break
		}
		for _, msg := range r.check(step.Expect) {
			result.AddError(fmt.Sprintf("steps[%d] (%s): %s", i, do, msg))
		}
		result.Snapshot = append(result.Snapshot, StepSnapshot{Step: i, Do: do, View: SnapshotView(r.view)})
	}
	return result, nil
}

// runner holds the state of a scenario run.
type runner struct {
	ctx     context.Context
	results *ResultsView
	view    View
	preview *PreviewView
}

func (r *runner) do(step Step) (string, error) {
	switch {
	case step.Search != nil:
		r.view = r.results
		return fmt.Sprintf("search %q", *step.Search), r.results.SetSearchQuery(r.ctx, *step.Search)

	case step.Department != nil:
		r.view = r.results
		_, err := r.results.BrowseDepartment(r.ctx, *step.Department)
		return fmt.Sprintf("department %q", *step.Department), err

	case step.Refresh:
		r.view = r.results
		return "refresh", r.results.ForceRefresh(r.ctx)

	case step.Tap != nil:
		do := fmt.Sprintf("tap %d/%d", step.Tap.Category, step.Tap.Result)
		cats := r.results.Categories()
		if step.Tap.Category < 0 || step.Tap.Category >= len(cats) {
			return do, fmt.Errorf("category index %d out of range, have %d", step.Tap.Category, len(cats))
		}
		cat := cats[step.Tap.Category]
		if step.Tap.Result < 0 || step.Tap.Result >= cat.Len() {
			return do, fmt.Errorf("result index %d out of range, category %q has %d", step.Tap.Result, cat.ID(), cat.Len())
		}
		pv, err := cat.Result(step.Tap.Result).Tap(r.ctx)
		if err != nil {
			return do, err
		}
		r.preview = pv
		r.view = pv
		return do, nil

	case step.ColumnCount != 0:
		do := fmt.Sprintf("column_count %d", step.ColumnCount)
		if r.preview == nil {
			return do, fmt.Errorf("no preview open")
		}
		r.view = r.preview
		return do, r.preview.SetColumnCount(step.ColumnCount)

	case step.Trigger != nil:
		t := step.Trigger
		do := fmt.Sprintf("trigger %s/%s", t.Widget, t.Action)
		if r.preview == nil {
			return do, fmt.Errorf("no preview open")
		}
		w, ok := r.preview.WidgetsInFirstColumn()[t.Widget]
		if !ok {
			return do, fmt.Errorf("widget %q not in the first column", t.Widget)
		}
		var data any
		if t.Data != nil {
			data = t.Data
		}
		next, err := w.Trigger(r.ctx, t.Action, data)
		if err != nil {
			return do, err
		}
		r.view = next
		if _, ok := next.(*ResultsView); ok {
			r.preview = nil
		}
		return do, nil
	}
	return "expect", nil
}

func (r *runner) check(e *Expect) []string {
	if e == nil {
		return nil
	}
	var failures []string
	if e.View != "" && e.View != r.view.viewName() {
		failures = append(failures, fmt.Sprintf("view is %s, expected %s", r.view.viewName(), e.View))
	}
	if e.Scope != nil {
		failures = append(failures, checkScope(r.results, e.Scope)...)
	}
	if e.Categories != nil {
		failures = append(failures, buildCategoryListMatcher(e.Categories).Match(r.results.Categories()).Failures()...)
	}
	if e.Departments != nil {
		deps, err := r.results.Departments()
		if err != nil {
			failures = append(failures, err.Error())
		} else {
			failures = append(failures, buildDepartmentMatcher(e.Departments).Match(deps).Failures()...)
		}
	}
	if e.Preview != nil {
		if r.preview == nil {
			failures = append(failures, "no preview open")
		} else {
			failures = append(failures, buildPreviewColumnMatcher(e.Preview).Match(r.preview.Widgets()).Failures()...)
		}
	}
	return failures
}

func checkScope(v *ResultsView, e *ScopeExpect) []string {
	var failures []string
	str := func(name string, want *string, got string) {
		if want != nil && *want != got {
			failures = append(failures, fmt.Sprintf("scope %s: expected '%s', got '%s'", name, *want, got))
		}
	}
	str("id", e.ID, v.ScopeID())
	str("display_name", e.DisplayName, v.DisplayName())
	str("icon_hint", e.IconHint, v.IconHint())
	str("description", e.Description, v.Description())
	str("search_hint", e.SearchHint, v.SearchHint())
	str("shortcut", e.Shortcut, v.Shortcut())
	if e.Customizations != nil {
		want, err := variant.FromGo(e.Customizations)
		if err != nil {
			return append(failures, fmt.Sprintf("scope customizations: %v", err))
		}
		got, err := variant.FromGo(v.Customizations())
		if err != nil {
			return append(failures, fmt.Sprintf("scope customizations: %v", err))
		}
		wm, _ := want.(variant.Map)
		gm, _ := got.(variant.Map)
		if !variant.Contains(gm, wm) {
			failures = append(failures, fmt.Sprintf("scope customizations: expected %s to contain %s", show(gm), show(wm)))
		}
	}
	return failures
}

func buildCategoryListMatcher(e *CategoriesExpect) *CategoryListMatcher {
	mode, _ := categoryListMode(e.Mode)
	m := NewCategoryListMatcher().Mode(mode)
	if e.AtLeast != nil {
		m.HasAtLeast(*e.AtLeast)
	}
	if e.Exactly != nil {
		m.HasExactly(*e.Exactly)
	}
	for _, item := range e.Items {
		cmode, _ := categoryMode(item.Mode)
		cm := NewCategoryMatcher(item.ID).Mode(cmode)
		if item.AtLeast != nil {
			cm.HasAtLeast(*item.AtLeast)
		}
		if item.Exactly != nil {
			cm.HasExactly(*item.Exactly)
		}
		if item.Title != nil {
			cm.Title(*item.Title)
		}
		if item.Icon != nil {
			cm.Icon(*item.Icon)
		}
		if item.HeaderLink != nil {
			cm.HeaderLink(*item.HeaderLink)
		}
		for _, re := range item.Results {
			rm := NewResultMatcher(re.URI).Properties(re.Properties)
			if re.DndURI != nil {
				rm.DndURI(*re.DndURI)
			}
			if re.Art != nil {
				rm.Art(*re.Art)
			}
			if re.Title != nil {
				rm.Title(*re.Title)
			}
			if re.Subtitle != nil {
				rm.Subtitle(*re.Subtitle)
			}
			cm.Result(rm)
		}
		m.Category(cm)
	}
	return m
}

func buildDepartmentMatcher(e *DepartmentsExpect) *DepartmentMatcher {
	mode, _ := departmentMode(e.Mode)
	m := NewDepartmentMatcher().Mode(mode)
	if e.AtLeast != nil {
		m.HasAtLeast(*e.AtLeast)
	}
	if e.Exactly != nil {
		m.HasExactly(*e.Exactly)
	}
	setStr := func(v *string, set func(string) *DepartmentMatcher) {
		if v != nil {
			set(*v)
		}
	}
	setStr(e.ID, m.ID)
	setStr(e.Label, m.Label)
	setStr(e.AllLabel, m.AllLabel)
	setStr(e.ParentID, m.ParentID)
	setStr(e.ParentLabel, m.ParentLabel)
	if e.IsRoot != nil {
		m.IsRoot(*e.IsRoot)
	}
	if e.IsHidden != nil {
		m.IsHidden(*e.IsHidden)
	}
	for _, c := range e.Children {
		cm := NewChildDepartmentMatcher(c.ID)
		if c.Label != nil {
			cm.Label(*c.Label)
		}
		if c.AllLabel != nil {
			cm.AllLabel(*c.AllLabel)
		}
		if c.HasChildren != nil {
			cm.HasChildren(*c.HasChildren)
		}
		if c.IsActive != nil {
			cm.IsActive(*c.IsActive)
		}
		m.Child(cm)
	}
	return m
}

func buildPreviewColumnMatcher(cols [][]WidgetExpect) *PreviewColumnMatcher {
	m := NewPreviewColumnMatcher()
	for _, col := range cols {
		pm := NewPreviewMatcher()
		for _, w := range col {
			wm := NewPreviewWidgetMatcher(w.ID)
			if w.Type != nil {
				wm.Type(*w.Type)
			}
			if w.Data != nil {
				wm.Data(w.Data)
			}
			pm.Widget(wm)
		}
		m.Column(pm)
	}
	return m
}
