package harness

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/roach88/goscope/internal/protocol"
	"github.com/roach88/goscope/internal/registry"
	"github.com/roach88/goscope/internal/renderer"
	"github.com/roach88/goscope/internal/variant"
)

// ErrNoDepartments is returned when the last search registered no
// department tree.
var ErrNoDepartments = errors.New("scope registered no departments")

// View is a screen the harness can be on: a *ResultsView or a *PreviewView.
type View interface {
	viewName() string
}

// ResultsView is the search results screen of the active scope.
type ResultsView struct {
	h *ScopeHarness

	mu           sync.Mutex
	activeScope  string
	query        string
	departmentID string
	filterState  variant.Map
	categories   []*Category
	departments  *protocol.Department
	filters      variant.Array
}

func newResultsView(h *ScopeHarness) *ResultsView {
	return &ResultsView{h: h}
}

func (v *ResultsView) viewName() string { return "results" }

// SetActiveScope switches the view to scope id. Results of the previous
// scope are discarded; no search is run.
func (v *ResultsView) SetActiveScope(id string) error {
	if _, err := v.h.registry.Get(id); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.activeScope != id {
		v.activeScope = id
		v.departmentID = ""
		v.filterState = nil
		v.clear()
	}
	return nil
}

// ActiveScope returns the id of the active scope.
func (v *ResultsView) ActiveScope() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.activeScope
}

// SetSearchQuery runs a search for q in the current department.
func (v *ResultsView) SetSearchQuery(ctx context.Context, q string) error {
	v.mu.Lock()
	v.query = q
	v.mu.Unlock()
	return v.search(ctx)
}

// SearchQuery returns the current query string.
func (v *ResultsView) SearchQuery() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.query
}

// DepartmentID returns the department of the last search.
func (v *ResultsView) DepartmentID() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.departmentID
}

// SetFilterState replaces the filter state sent with the next search.
func (v *ResultsView) SetFilterState(state variant.Map) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.filterState = state.Clone()
}

// ForceRefresh re-runs the current search.
func (v *ResultsView) ForceRefresh(ctx context.Context) error {
	return v.search(ctx)
}

// BrowseDepartment runs the current query in department id and returns the
// department list for it. A failed search leaves the view in the previous
// department.
func (v *ResultsView) BrowseDepartment(ctx context.Context, id string) (*DepartmentList, error) {
	v.mu.Lock()
	prev := v.departmentID
	v.departmentID = id
	v.mu.Unlock()
	if err := v.search(ctx); err != nil {
		v.mu.Lock()
		v.departmentID = prev
		v.mu.Unlock()
		return nil, err
	}
	return v.Departments()
}

// HasDepartments reports whether the last search registered departments.
func (v *ResultsView) HasDepartments() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.departments != nil
}

// Departments returns the department list of the current department from
// the last search.
func (v *ResultsView) Departments() (*DepartmentList, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.departments == nil {
		return nil, ErrNoDepartments
	}
	return newDepartmentList(v.departments, v.departmentID)
}

// Categories returns the categories of the last search in registration
// order.
func (v *ResultsView) Categories() []*Category {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]*Category(nil), v.categories...)
}

// Category returns the i-th category. It panics if i is out of range.
func (v *ResultsView) Category(i int) *Category {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.categories[i]
}

// CategoryByID returns the category with the given id, or nil.
func (v *ResultsView) CategoryByID(id string) *Category {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, c := range v.categories {
		if c.id == id {
			return c
		}
	}
	return nil
}

// Filters returns the serialized filters of the last search.
func (v *ResultsView) Filters() variant.Array {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make(variant.Array, len(v.filters))
	copy(out, v.filters)
	return out
}

// ScopeID returns the id of the active scope.
func (v *ResultsView) ScopeID() string { return v.ActiveScope() }

// DisplayName returns the active scope's display name.
func (v *ResultsView) DisplayName() string { return v.metadata().DisplayName }

// IconHint returns the active scope's icon.
func (v *ResultsView) IconHint() string { return v.metadata().Icon }

// Description returns the active scope's description.
func (v *ResultsView) Description() string { return v.metadata().Description }

// SearchHint returns the active scope's search hint.
func (v *ResultsView) SearchHint() string { return v.metadata().SearchHint }

// Shortcut returns the active scope's hot key.
func (v *ResultsView) Shortcut() string { return v.metadata().HotKey }

// Customizations returns the active scope's [Appearance] settings as
// nested maps.
func (v *ResultsView) Customizations() map[string]any {
	e := v.entry()
	if e == nil {
		return map[string]any{}
	}
	return deepCopy(e.Config.Customizations)
}

func (v *ResultsView) entry() *registry.Entry {
	e, err := v.h.registry.Get(v.ActiveScope())
	if err != nil {
		return nil
	}
	return e
}

func (v *ResultsView) metadata() protocol.ScopeMetadata {
	e := v.entry()
	if e == nil {
		return protocol.ScopeMetadata{}
	}
	return e.Metadata()
}

// clear drops the results of the previous search. Callers hold v.mu.
func (v *ResultsView) clear() {
	v.categories = nil
	v.departments = nil
	v.filters = nil
}

// search runs the current query on the active scope and replaces the
// view's categories, departments and filters.
func (v *ResultsView) search(ctx context.Context) error {
	v.mu.Lock()
	scopeID := v.activeScope
	query := protocol.Query{
		ScopeID:      scopeID,
		QueryString:  v.query,
		DepartmentID: v.departmentID,
		FilterState:  v.filterState.Clone(),
	}
	v.mu.Unlock()
	if scopeID == "" {
		return ErrNoActiveScope
	}

	c, err := v.h.client(ctx, scopeID)
	if err != nil {
		return err
	}

	res := &searchResults{view: v, scopeID: scopeID}
	params := protocol.SearchParams{Query: query, Metadata: v.h.searchMetadata()}
	_, err = c.call(ctx, protocol.MethodSearch, params, res.handle)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		v.clear()
		return err
	}
	v.categories = res.categories
	v.departments = res.departments
	v.filters = res.filters
	return nil
}

// searchResults accumulates the events of one search.
type searchResults struct {
	view        *ResultsView
	scopeID     string
	categories  []*Category
	departments *protocol.Department
	filters     variant.Array
}

func (r *searchResults) handle(ev *protocol.Event) error {
	switch ev.Type {
	case protocol.EventCategory:
		var p protocol.CategoryPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		if r.category(p.ID) != nil {
			return nil
		}
		tmpl, err := renderer.Parse(p.Template)
		if err != nil {
			return fmt.Errorf("category %q: %w", p.ID, err)
		}
		r.categories = append(r.categories, &Category{
			id:         p.ID,
			title:      p.Title,
			icon:       p.Icon,
			headerLink: p.HeaderLink,
			template:   p.Template,
			renderer:   tmpl,
		})

	case protocol.EventResult:
		var p protocol.ResultData
		if err := ev.Decode(&p); err != nil {
			return err
		}
		cat := r.category(p.Category)
		if cat == nil {
			return fmt.Errorf("result for unregistered category %q", p.Category)
		}
		cat.results = append(cat.results, &Result{
			view:      r.view,
			scopeID:   r.scopeID,
			category:  cat,
			attrs:     p.Attrs,
			intercept: p.InterceptActivation,
		})

	case protocol.EventDepartments:
		var p protocol.DepartmentsPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		r.departments = &p.Root

	case protocol.EventFilters:
		var p protocol.FiltersPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		r.filters = p.Filters

	default:
		r.view.h.log.Debug("ignoring search event", "scope", r.scopeID, "type", ev.Type)
	}
	return nil
}

func (r *searchResults) category(id string) *Category {
	for _, c := range r.categories {
		if c.id == id {
			return c
		}
	}
	return nil
}

func deepCopy(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if sub, ok := v.(map[string]any); ok {
			out[k] = deepCopy(sub)
			continue
		}
		out[k] = v
	}
	return out
}

// runQuery makes q current and searches it, switching scope if needed.
func (v *ResultsView) runQuery(ctx context.Context, q protocol.Query) error {
	if err := v.SetActiveScope(q.ScopeID); err != nil {
		return err
	}
	v.mu.Lock()
	v.query = q.QueryString
	v.departmentID = q.DepartmentID
	v.filterState = q.FilterState.Clone()
	v.mu.Unlock()
	return v.search(ctx)
}
