package harness

import (
	"fmt"

	"github.com/roach88/goscope/internal/variant"
)

// CategoryListMatcherMode selects how category matchers pair with
// categories.
type CategoryListMatcherMode int

const (
	// CategoryListAll pairs matchers with categories in order and requires
	// as many categories as matchers.
	CategoryListAll CategoryListMatcherMode = iota
	// CategoryListByID finds each matcher's category by id.
	CategoryListByID
	// CategoryListStartsWith pairs matchers with the leading categories.
	CategoryListStartsWith
)

// CategoryMatcherMode selects how result matchers pair with results.
type CategoryMatcherMode int

const (
	CategoryAll CategoryMatcherMode = iota
	CategoryByURI
	CategoryStartsWith
)

// DepartmentMatcherMode selects how child matchers pair with children.
type DepartmentMatcherMode int

const (
	DepartmentAll DepartmentMatcherMode = iota
	DepartmentByID
	DepartmentStartsWith
)

// sizeCheck holds optional at-least and exactly bounds.
type sizeCheck struct {
	atLeast int
	exactly int
}

func newSizeCheck() sizeCheck { return sizeCheck{atLeast: -1, exactly: -1} }

func (s sizeCheck) check(mr *MatchResult, what string, n int) {
	if s.exactly >= 0 && n != s.exactly {
		mr.Failure(fmt.Sprintf("%s contained %d elements, expected exactly %d", what, n, s.exactly))
	}
	if s.atLeast >= 0 && n < s.atLeast {
		mr.Failure(fmt.Sprintf("%s contained %d elements, expected at least %d", what, n, s.atLeast))
	}
}

// pairInOrder applies the pairwise size rule shared by the All and
// StartsWith modes. It returns how many pairs to compare.
func pairInOrder(mr *MatchResult, what string, all bool, have, want int) int {
	switch {
	case all && have != want:
		mr.Failure(fmt.Sprintf("%s contained %d elements, expected %d", what, have, want))
	case !all && have < want:
		mr.Failure(fmt.Sprintf("%s contained %d elements, expected at least %d for starts-with", what, have, want))
	}
	return min(have, want)
}

func show(v variant.Value) string {
	data, err := variant.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// CategoryListMatcher matches the categories of a search.
type CategoryListMatcher struct {
	mode       CategoryListMatcherMode
	size       sizeCheck
	categories []*CategoryMatcher
}

// NewCategoryListMatcher creates a matcher in CategoryListAll mode.
func NewCategoryListMatcher() *CategoryListMatcher {
	return &CategoryListMatcher{size: newSizeCheck()}
}

func (m *CategoryListMatcher) HasAtLeast(n int) *CategoryListMatcher { m.size.atLeast = n; return m }
func (m *CategoryListMatcher) HasExactly(n int) *CategoryListMatcher { m.size.exactly = n; return m }
func (m *CategoryListMatcher) Mode(mode CategoryListMatcherMode) *CategoryListMatcher {
	m.mode = mode
	return m
}

// Category adds a category expectation.
func (m *CategoryListMatcher) Category(c *CategoryMatcher) *CategoryListMatcher {
	m.categories = append(m.categories, c)
	return m
}

// Match checks cats.
func (m *CategoryListMatcher) Match(cats []*Category) MatchResult {
	var mr MatchResult
	m.size.check(&mr, "Category list", len(cats))

	switch m.mode {
	case CategoryListByID:
		for _, cm := range m.categories {
			var found *Category
			for _, c := range cats {
				if c.ID() == cm.id {
					found = c
					break
				}
			}
			if found == nil {
				mr.Failure(fmt.Sprintf("Category with ID '%s' could not be found", cm.id))
				continue
			}
			cm.match(&mr, found)
		}
	default:
		if len(m.categories) == 0 {
			break
		}
		n := pairInOrder(&mr, "Category list", m.mode == CategoryListAll, len(cats), len(m.categories))
		for i := 0; i < n; i++ {
			m.categories[i].match(&mr, cats[i])
		}
	}
	return mr
}

// CategoryMatcher matches one category and its results.
type CategoryMatcher struct {
	id         string
	mode       CategoryMatcherMode
	size       sizeCheck
	title      *string
	icon       *string
	headerLink *string
	results    []*ResultMatcher
}

// NewCategoryMatcher creates a matcher for the category with the given id.
func NewCategoryMatcher(id string) *CategoryMatcher {
	return &CategoryMatcher{id: id, size: newSizeCheck()}
}

func (m *CategoryMatcher) HasAtLeast(n int) *CategoryMatcher { m.size.atLeast = n; return m }
func (m *CategoryMatcher) HasExactly(n int) *CategoryMatcher { m.size.exactly = n; return m }
func (m *CategoryMatcher) Mode(mode CategoryMatcherMode) *CategoryMatcher {
	m.mode = mode
	return m
}
func (m *CategoryMatcher) Title(s string) *CategoryMatcher      { m.title = &s; return m }
func (m *CategoryMatcher) Icon(s string) *CategoryMatcher       { m.icon = &s; return m }
func (m *CategoryMatcher) HeaderLink(s string) *CategoryMatcher { m.headerLink = &s; return m }

// Result adds a result expectation.
func (m *CategoryMatcher) Result(r *ResultMatcher) *CategoryMatcher {
	m.results = append(m.results, r)
	return m
}

// Match checks a single category.
func (m *CategoryMatcher) Match(c *Category) MatchResult {
	var mr MatchResult
	m.match(&mr, c)
	return mr
}

func (m *CategoryMatcher) match(mr *MatchResult, c *Category) {
	if c.ID() != m.id {
		mr.Failure(fmt.Sprintf("Category ID '%s' does not match expected '%s'", c.ID(), m.id))
		return
	}
	field := func(name string, want *string, got string) {
		if want != nil && *want != got {
			mr.Failure(fmt.Sprintf("Category with ID '%s', '%s' does not match: expected '%s', got '%s'", m.id, name, *want, got))
		}
	}
	field("title", m.title, c.Title())
	field("icon", m.icon, c.Icon())
	field("header_link", m.headerLink, c.HeaderLink())

	results := c.Results()
	m.size.check(mr, fmt.Sprintf("Category with ID '%s'", m.id), len(results))

	switch m.mode {
	case CategoryByURI:
		for _, rm := range m.results {
			var found *Result
			for _, r := range results {
				if r.URI() == rm.uri {
					found = r
					break
				}
			}
			if found == nil {
				mr.Failure(fmt.Sprintf("Result with URI '%s' could not be found in category '%s'", rm.uri, m.id))
				continue
			}
			rm.match(mr, found)
		}
	default:
		if len(m.results) == 0 {
			return
		}
		n := pairInOrder(mr, fmt.Sprintf("Category with ID '%s'", m.id), m.mode == CategoryAll, len(results), len(m.results))
		for i := 0; i < n; i++ {
			m.results[i].match(mr, results[i])
		}
	}
}

// ResultMatcher matches one result by uri and attributes.
type ResultMatcher struct {
	uri        string
	properties variant.Map
	errs       []string
}

// NewResultMatcher creates a matcher for the result with the given uri.
func NewResultMatcher(uri string) *ResultMatcher {
	return &ResultMatcher{uri: uri, properties: variant.Map{}}
}

// Properties adds expected attributes. Repeated calls accumulate.
func (m *ResultMatcher) Properties(props map[string]any) *ResultMatcher {
	for k, v := range props {
		m.Property(k, v)
	}
	return m
}

// Property adds one expected attribute.
func (m *ResultMatcher) Property(key string, value any) *ResultMatcher {
	v, err := variant.FromGo(value)
	if err != nil {
		m.errs = append(m.errs, fmt.Sprintf("Result with URI '%s': property '%s': %v", m.uri, key, err))
		return m
	}
	m.properties[key] = v
	return m
}

func (m *ResultMatcher) DndURI(s string) *ResultMatcher   { return m.Property("dnd_uri", s) }
func (m *ResultMatcher) Art(s string) *ResultMatcher      { return m.Property("art", s) }
func (m *ResultMatcher) Title(s string) *ResultMatcher    { return m.Property("title", s) }
func (m *ResultMatcher) Subtitle(s string) *ResultMatcher { return m.Property("subtitle", s) }

// Match checks a single result.
func (m *ResultMatcher) Match(r *Result) MatchResult {
	var mr MatchResult
	m.match(&mr, r)
	return mr
}

func (m *ResultMatcher) match(mr *MatchResult, r *Result) {
	for _, e := range m.errs {
		mr.Failure(e)
	}
	if r.URI() != m.uri {
		mr.Failure(fmt.Sprintf("Result URI '%s' does not match expected '%s'", r.URI(), m.uri))
		return
	}
	for _, k := range m.properties.SortedKeys() {
		want := m.properties[k]
		got := r.Property(k)
		if got == nil {
			mr.Failure(fmt.Sprintf("Result with URI '%s' does not have requested property '%s'", m.uri, k))
			continue
		}
		if !variant.Equal(got, want) {
			mr.Failure(fmt.Sprintf("Result with URI '%s' has incorrect value for property '%s': expected %s, got %s",
				m.uri, k, show(want), show(got)))
		}
	}
}

// DepartmentMatcher matches a DepartmentList.
type DepartmentMatcher struct {
	mode        DepartmentMatcherMode
	size        sizeCheck
	id          *string
	label       *string
	allLabel    *string
	parentID    *string
	parentLabel *string
	isRoot      *bool
	isHidden    *bool
	children    []*ChildDepartmentMatcher
}

// NewDepartmentMatcher creates a matcher in DepartmentAll mode.
func NewDepartmentMatcher() *DepartmentMatcher {
	return &DepartmentMatcher{size: newSizeCheck()}
}

func (m *DepartmentMatcher) HasAtLeast(n int) *DepartmentMatcher { m.size.atLeast = n; return m }
func (m *DepartmentMatcher) HasExactly(n int) *DepartmentMatcher { m.size.exactly = n; return m }
func (m *DepartmentMatcher) Mode(mode DepartmentMatcherMode) *DepartmentMatcher {
	m.mode = mode
	return m
}
func (m *DepartmentMatcher) ID(s string) *DepartmentMatcher          { m.id = &s; return m }
func (m *DepartmentMatcher) Label(s string) *DepartmentMatcher       { m.label = &s; return m }
func (m *DepartmentMatcher) AllLabel(s string) *DepartmentMatcher    { m.allLabel = &s; return m }
func (m *DepartmentMatcher) ParentID(s string) *DepartmentMatcher    { m.parentID = &s; return m }
func (m *DepartmentMatcher) ParentLabel(s string) *DepartmentMatcher { m.parentLabel = &s; return m }
func (m *DepartmentMatcher) IsRoot(b bool) *DepartmentMatcher        { m.isRoot = &b; return m }
func (m *DepartmentMatcher) IsHidden(b bool) *DepartmentMatcher      { m.isHidden = &b; return m }

// Child adds a child expectation.
func (m *DepartmentMatcher) Child(c *ChildDepartmentMatcher) *DepartmentMatcher {
	m.children = append(m.children, c)
	return m
}

// Match checks d.
func (m *DepartmentMatcher) Match(d *DepartmentList) MatchResult {
	var mr MatchResult
	if d == nil {
		mr.Failure("Department list is nil")
		return mr
	}
	str := func(name string, want *string, got string) {
		if want != nil && *want != got {
			mr.Failure(fmt.Sprintf("Department '%s' has incorrect %s: expected '%s', got '%s'", d.ID(), name, *want, got))
		}
	}
	flag := func(name string, want *bool, got bool) {
		if want != nil && *want != got {
			mr.Failure(fmt.Sprintf("Department '%s' has incorrect %s: expected %t, got %t", d.ID(), name, *want, got))
		}
	}
	str("id", m.id, d.ID())
	str("label", m.label, d.Label())
	str("all_label", m.allLabel, d.AllLabel())
	str("parent_id", m.parentID, d.ParentID())
	str("parent_label", m.parentLabel, d.ParentLabel())
	flag("is_root", m.isRoot, d.IsRoot())
	flag("is_hidden", m.isHidden, d.IsHidden())

	children := d.Children()
	m.size.check(&mr, fmt.Sprintf("Department '%s'", d.ID()), len(children))

	switch m.mode {
	case DepartmentByID:
		for _, cm := range m.children {
			var found *ChildDepartment
			for _, c := range children {
				if c.ID() == cm.id {
					found = c
					break
				}
			}
			if found == nil {
				mr.Failure(fmt.Sprintf("Child department with ID '%s' could not be found", cm.id))
				continue
			}
			cm.match(&mr, found)
		}
	default:
		if len(m.children) == 0 {
			break
		}
		n := pairInOrder(&mr, fmt.Sprintf("Department '%s'", d.ID()), m.mode == DepartmentAll, len(children), len(m.children))
		for i := 0; i < n; i++ {
			m.children[i].match(&mr, children[i])
		}
	}
	return mr
}

// ChildDepartmentMatcher matches one child of a DepartmentList.
type ChildDepartmentMatcher struct {
	id          string
	label       *string
	allLabel    *string
	hasChildren *bool
	isActive    *bool
}

// NewChildDepartmentMatcher creates a matcher for the child with the given
// id.
func NewChildDepartmentMatcher(id string) *ChildDepartmentMatcher {
	return &ChildDepartmentMatcher{id: id}
}

func (m *ChildDepartmentMatcher) Label(s string) *ChildDepartmentMatcher    { m.label = &s; return m }
func (m *ChildDepartmentMatcher) AllLabel(s string) *ChildDepartmentMatcher { m.allLabel = &s; return m }
func (m *ChildDepartmentMatcher) HasChildren(b bool) *ChildDepartmentMatcher {
	m.hasChildren = &b
	return m
}
func (m *ChildDepartmentMatcher) IsActive(b bool) *ChildDepartmentMatcher { m.isActive = &b; return m }

func (m *ChildDepartmentMatcher) match(mr *MatchResult, c *ChildDepartment) {
	if c.ID() != m.id {
		mr.Failure(fmt.Sprintf("Child department ID '%s' does not match expected '%s'", c.ID(), m.id))
		return
	}
	if m.label != nil && *m.label != c.Label() {
		mr.Failure(fmt.Sprintf("Child department '%s' has incorrect label: expected '%s', got '%s'", m.id, *m.label, c.Label()))
	}
	if m.allLabel != nil && *m.allLabel != c.AllLabel() {
		mr.Failure(fmt.Sprintf("Child department '%s' has incorrect all_label: expected '%s', got '%s'", m.id, *m.allLabel, c.AllLabel()))
	}
	if m.hasChildren != nil && *m.hasChildren != c.HasChildren() {
		mr.Failure(fmt.Sprintf("Child department '%s' has incorrect has_children: expected %t, got %t", m.id, *m.hasChildren, c.HasChildren()))
	}
	if m.isActive != nil && *m.isActive != c.IsActive() {
		mr.Failure(fmt.Sprintf("Child department '%s' has incorrect is_active: expected %t, got %t", m.id, *m.isActive, c.IsActive()))
	}
}

// PreviewColumnMatcher matches the columns of a preview.
type PreviewColumnMatcher struct {
	columns []*PreviewMatcher
}

// NewPreviewColumnMatcher creates an empty column matcher.
func NewPreviewColumnMatcher() *PreviewColumnMatcher { return &PreviewColumnMatcher{} }

// Column adds the expectation for the next column.
func (m *PreviewColumnMatcher) Column(c *PreviewMatcher) *PreviewColumnMatcher {
	m.columns = append(m.columns, c)
	return m
}

// Match checks cols. The number of columns must match exactly.
func (m *PreviewColumnMatcher) Match(cols []PreviewColumn) MatchResult {
	var mr MatchResult
	if len(cols) != len(m.columns) {
		mr.Failure(fmt.Sprintf("Columns size %d is not equal to expected size %d", len(cols), len(m.columns)))
		return mr
	}
	for i, col := range cols {
		m.columns[i].match(&mr, i, col)
	}
	return mr
}

// PreviewMatcher matches the widgets of one column in order.
type PreviewMatcher struct {
	widgets []*PreviewWidgetMatcher
}

// NewPreviewMatcher creates an empty column expectation.
func NewPreviewMatcher() *PreviewMatcher { return &PreviewMatcher{} }

// Widget adds the expectation for the next widget.
func (m *PreviewMatcher) Widget(w *PreviewWidgetMatcher) *PreviewMatcher {
	m.widgets = append(m.widgets, w)
	return m
}

// Match checks a single column.
func (m *PreviewMatcher) Match(col PreviewColumn) MatchResult {
	var mr MatchResult
	m.match(&mr, 0, col)
	return mr
}

func (m *PreviewMatcher) match(mr *MatchResult, index int, col PreviewColumn) {
	if len(col) != len(m.widgets) {
		mr.Failure(fmt.Sprintf("Column %d has %d widgets, expected %d", index, len(col), len(m.widgets)))
		return
	}
	for i, w := range col {
		m.widgets[i].match(mr, w)
	}
}

// PreviewWidgetMatcher matches one preview widget.
type PreviewWidgetMatcher struct {
	id   string
	typ  *string
	data variant.Map
	errs []string
}

// NewPreviewWidgetMatcher creates a matcher for the widget with the given
// id.
func NewPreviewWidgetMatcher(id string) *PreviewWidgetMatcher {
	return &PreviewWidgetMatcher{id: id}
}

// Type sets the expected widget type.
func (m *PreviewWidgetMatcher) Type(t string) *PreviewWidgetMatcher { m.typ = &t; return m }

// Data sets the expected widget data. It must equal Data() exactly.
func (m *PreviewWidgetMatcher) Data(data map[string]any) *PreviewWidgetMatcher {
	v, err := variant.FromGo(data)
	if err != nil {
		m.errs = append(m.errs, fmt.Sprintf("Widget '%s': data: %v", m.id, err))
		return m
	}
	m.data, _ = v.(variant.Map)
	if m.data == nil {
		m.data = variant.Map{}
	}
	return m
}

// Match checks a single widget.
func (m *PreviewWidgetMatcher) Match(w *PreviewWidget) MatchResult {
	var mr MatchResult
	m.match(&mr, w)
	return mr
}

func (m *PreviewWidgetMatcher) match(mr *MatchResult, w *PreviewWidget) {
	for _, e := range m.errs {
		mr.Failure(e)
	}
	if w.ID() != m.id {
		mr.Failure(fmt.Sprintf("Widget ID '%s' does not match expected '%s'", w.ID(), m.id))
		return
	}
	if m.typ != nil && *m.typ != w.Type() {
		mr.Failure(fmt.Sprintf("Widget '%s' has incorrect type: expected '%s', got '%s'", m.id, *m.typ, w.Type()))
	}
	if m.data != nil {
		got := w.Data()
		if !variant.Equal(got, m.data) {
			mr.Failure(fmt.Sprintf("Widget '%s' has incorrect data: expected %s, got %s", m.id, show(m.data), show(got)))
		}
	}
}
