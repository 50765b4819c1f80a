package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario drives a harness through a sequence of steps and checks the
// views they produce.
type Scenario struct {
	// Name uniquely identifies this scenario; it names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Scopes lists the scope .ini files to register. Relative paths
	// resolve against the scenario file.
	Scopes []string `yaml:"scopes"`

	// Runtime is an optional runtime .ini, resolved like Scopes.
	Runtime string `yaml:"runtime,omitempty"`

	// ActiveScope is the scope the results view starts on.
	ActiveScope string `yaml:"active_scope"`

	// Steps run in order. The first failing step ends the run.
	Steps []Step `yaml:"steps"`
}

// Step performs at most one action, then checks Expect.
type Step struct {
	// Search sets the search query.
	Search *string `yaml:"search,omitempty"`

	// Department browses to a department with the current query.
	Department *string `yaml:"department,omitempty"`

	// Refresh re-runs the current search.
	Refresh bool `yaml:"refresh,omitempty"`

	// Tap opens the preview of a result.
	Tap *TapStep `yaml:"tap,omitempty"`

	// ColumnCount selects the preview layout.
	ColumnCount int `yaml:"column_count,omitempty"`

	// Trigger performs a preview widget action.
	Trigger *TriggerStep `yaml:"trigger,omitempty"`

	// Expect is checked after the action.
	Expect *Expect `yaml:"expect,omitempty"`
}

// TapStep selects a result by category and result index.
type TapStep struct {
	Category int `yaml:"category"`
	Result   int `yaml:"result"`
}

// TriggerStep names a widget of the first preview column and an action.
type TriggerStep struct {
	Widget string         `yaml:"widget"`
	Action string         `yaml:"action"`
	Data   map[string]any `yaml:"data,omitempty"`
}

// Expect groups the expectations of a step. Unset groups are not checked.
type Expect struct {
	View        string             `yaml:"view,omitempty"`
	Scope       *ScopeExpect       `yaml:"scope,omitempty"`
	Categories  *CategoriesExpect  `yaml:"categories,omitempty"`
	Departments *DepartmentsExpect `yaml:"departments,omitempty"`
	Preview     [][]WidgetExpect   `yaml:"preview,omitempty"`
}

// ScopeExpect checks the active scope's properties.
type ScopeExpect struct {
	ID             *string        `yaml:"id,omitempty"`
	DisplayName    *string        `yaml:"display_name,omitempty"`
	IconHint       *string        `yaml:"icon_hint,omitempty"`
	Description    *string        `yaml:"description,omitempty"`
	SearchHint     *string        `yaml:"search_hint,omitempty"`
	Shortcut       *string        `yaml:"shortcut,omitempty"`
	Customizations map[string]any `yaml:"customizations,omitempty"`
}

// CategoriesExpect builds a CategoryListMatcher.
type CategoriesExpect struct {
	Mode    string           `yaml:"mode,omitempty"`
	AtLeast *int             `yaml:"at_least,omitempty"`
	Exactly *int             `yaml:"exactly,omitempty"`
	Items   []CategoryExpect `yaml:"items,omitempty"`
}

// CategoryExpect builds a CategoryMatcher.
type CategoryExpect struct {
	ID         string         `yaml:"id"`
	Mode       string         `yaml:"mode,omitempty"`
	AtLeast    *int           `yaml:"at_least,omitempty"`
	Exactly    *int           `yaml:"exactly,omitempty"`
	Title      *string        `yaml:"title,omitempty"`
	Icon       *string        `yaml:"icon,omitempty"`
	HeaderLink *string        `yaml:"header_link,omitempty"`
	Results    []ResultExpect `yaml:"results,omitempty"`
}

// ResultExpect builds a ResultMatcher.
type ResultExpect struct {
	URI        string         `yaml:"uri"`
	DndURI     *string        `yaml:"dnd_uri,omitempty"`
	Art        *string        `yaml:"art,omitempty"`
	Title      *string        `yaml:"title,omitempty"`
	Subtitle   *string        `yaml:"subtitle,omitempty"`
	Properties map[string]any `yaml:"properties,omitempty"`
}

// DepartmentsExpect builds a DepartmentMatcher.
type DepartmentsExpect struct {
	Mode        string        `yaml:"mode,omitempty"`
	AtLeast     *int          `yaml:"at_least,omitempty"`
	Exactly     *int          `yaml:"exactly,omitempty"`
	ID          *string       `yaml:"id,omitempty"`
	Label       *string       `yaml:"label,omitempty"`
	AllLabel    *string       `yaml:"all_label,omitempty"`
	ParentID    *string       `yaml:"parent_id,omitempty"`
	ParentLabel *string       `yaml:"parent_label,omitempty"`
	IsRoot      *bool         `yaml:"is_root,omitempty"`
	IsHidden    *bool         `yaml:"is_hidden,omitempty"`
	Children    []ChildExpect `yaml:"children,omitempty"`
}

// ChildExpect builds a ChildDepartmentMatcher.
type ChildExpect struct {
	ID          string  `yaml:"id"`
	Label       *string `yaml:"label,omitempty"`
	AllLabel    *string `yaml:"all_label,omitempty"`
	HasChildren *bool   `yaml:"has_children,omitempty"`
	IsActive    *bool   `yaml:"is_active,omitempty"`
}

// WidgetExpect builds a PreviewWidgetMatcher. In YAML it is either a
// widget id or a mapping with id, type and data.
type WidgetExpect struct {
	ID   string         `yaml:"id"`
	Type *string        `yaml:"type,omitempty"`
	Data map[string]any `yaml:"data,omitempty"`
}

// UnmarshalYAML accepts the short form of a bare widget id.
func (w *WidgetExpect) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		w.ID = node.Value
		return nil
	}
	type plain WidgetExpect
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*w = WidgetExpect(p)
	return nil
}

// LoadScenario reads and parses a scenario YAML file. Scope and runtime
// paths are resolved against the file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	for i, p := range scenario.Scopes {
		scenario.Scopes[i] = resolvePath(base, p)
	}
	if scenario.Runtime != "" {
		scenario.Runtime = resolvePath(base, scenario.Runtime)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func resolvePath(base, p string) string {
	if filepath.IsAbs(p) || base == "" {
		return p
	}
	return filepath.Join(base, p)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Scopes) == 0 {
		return fmt.Errorf("scopes list is required and must be non-empty")
	}
	if s.ActiveScope == "" {
		return fmt.Errorf("active_scope is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for _, p := range s.Scopes {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return fmt.Errorf("scope file not found: %s", p)
		}
	}

	for i, step := range s.Steps {
		if n := step.actions(); n > 1 {
			return fmt.Errorf("steps[%d]: %d actions given, at most one allowed", i, n)
		}
		if step.actions() == 0 && step.Expect == nil {
			return fmt.Errorf("steps[%d]: needs an action or expect", i)
		}
		if step.ColumnCount < 0 {
			return fmt.Errorf("steps[%d]: column_count must be positive", i)
		}
		if t := step.Trigger; t != nil && (t.Widget == "" || t.Action == "") {
			return fmt.Errorf("steps[%d].trigger: widget and action are required", i)
		}
		if err := validateExpect(i, step.Expect); err != nil {
			return err
		}
	}
	return nil
}

func validateExpect(index int, e *Expect) error {
	if e == nil {
		return nil
	}
	switch e.View {
	case "", "results", "preview":
	default:
		return fmt.Errorf("steps[%d].expect: unknown view %q", index, e.View)
	}
	if c := e.Categories; c != nil {
		if _, err := categoryListMode(c.Mode); err != nil {
			return fmt.Errorf("steps[%d].expect.categories: %w", index, err)
		}
		for j, item := range c.Items {
			if item.ID == "" {
				return fmt.Errorf("steps[%d].expect.categories.items[%d]: id is required", index, j)
			}
			if _, err := categoryMode(item.Mode); err != nil {
				return fmt.Errorf("steps[%d].expect.categories.items[%d]: %w", index, j, err)
			}
			for k, r := range item.Results {
				if r.URI == "" {
					return fmt.Errorf("steps[%d].expect.categories.items[%d].results[%d]: uri is required", index, j, k)
				}
			}
		}
	}
	if d := e.Departments; d != nil {
		if _, err := departmentMode(d.Mode); err != nil {
			return fmt.Errorf("steps[%d].expect.departments: %w", index, err)
		}
	}
	for j, col := range e.Preview {
		for k, w := range col {
			if w.ID == "" {
				return fmt.Errorf("steps[%d].expect.preview[%d][%d]: widget id is required", index, j, k)
			}
		}
	}
	return nil
}

func (s Step) actions() int {
	n := 0
	for _, set := range []bool{
		s.Search != nil,
		s.Department != nil,
		s.Refresh,
		s.Tap != nil,
		s.ColumnCount != 0,
		s.Trigger != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

func categoryListMode(s string) (CategoryListMatcherMode, error) {
	switch s {
	case "", "all":
		return CategoryListAll, nil
	case "by_id":
		return CategoryListByID, nil
	case "starts_with":
		return CategoryListStartsWith, nil
	}
	return 0, fmt.Errorf("unknown mode %q", s)
}

func categoryMode(s string) (CategoryMatcherMode, error) {
	switch s {
	case "", "all":
		return CategoryAll, nil
	case "by_uri":
		return CategoryByURI, nil
	case "starts_with":
		return CategoryStartsWith, nil
	}
	return 0, fmt.Errorf("unknown mode %q", s)
}

func departmentMode(s string) (DepartmentMatcherMode, error) {
	switch s {
	case "", "all":
		return DepartmentAll, nil
	case "by_id":
		return DepartmentByID, nil
	case "starts_with":
		return DepartmentStartsWith, nil
	}
	return 0, fmt.Errorf("unknown mode %q", s)
}
