// Package renderer parses and validates category renderer templates.
package renderer

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	cuejson "cuelang.org/go/encoding/json"

	"github.com/roach88/goscope/internal/variant"
)

//go:embed schema.cue
var schemaSource string

// DefaultTemplate is used for categories registered without a template.
const DefaultTemplate = `{"schema-version":1,"template":{"category-layout":"grid"},"components":{"title":"title","art":"art"}}`

// Template is a parsed category renderer.
type Template struct {
	SchemaVersion int                  `json:"schema-version"`
	Layout        Layout               `json:"template"`
	Components    map[string]Component `json:"components,omitempty"`
}

// Layout selects how cards of a category are arranged.
type Layout struct {
	CategoryLayout   string `json:"category-layout"`
	CardSize         string `json:"card-size,omitempty"`
	CardLayout       string `json:"card-layout,omitempty"`
	CardBackground   string `json:"card-background,omitempty"`
	CollapsedRows    *int   `json:"collapsed-rows,omitempty"`
	QuickPreviewType string `json:"quick-preview-type,omitempty"`
	Overlay          bool   `json:"overlay,omitempty"`
	NonInteractive   bool   `json:"non-interactive,omitempty"`
}

// Component maps a card component onto a result attribute. It is written
// either as the attribute name or as an object with a "field" key and extra
// options.
type Component struct {
	Field   string
	Options map[string]any
}

// UnmarshalJSON accepts both component forms.
func (c *Component) UnmarshalJSON(data []byte) error {
	var field string
	if err := json.Unmarshal(data, &field); err == nil {
		*c = Component{Field: field}
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("component must be a string or an object: %w", err)
	}
	field, _ = obj["field"].(string)
	delete(obj, "field")
	if len(obj) == 0 {
		obj = nil
	}
	*c = Component{Field: field, Options: obj}
	return nil
}

// MarshalJSON writes the short form when there are no options.
func (c Component) MarshalJSON() ([]byte, error) {
	if len(c.Options) == 0 {
		return json.Marshal(c.Field)
	}
	obj := make(map[string]any, len(c.Options)+1)
	for k, v := range c.Options {
		obj[k] = v
	}
	obj["field"] = c.Field
	return json.Marshal(obj)
}

// SchemaError reports a template that does not satisfy the renderer schema.
type SchemaError struct {
	Message string
	Pos     token.Pos
}

func (e *SchemaError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: renderer: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return "renderer: " + e.Message
}

var (
	schemaOnce sync.Once
	cueCtx     *cue.Context
	schema     cue.Value
	schemaErr  error
)

func loadSchema() (*cue.Context, cue.Value, error) {
	schemaOnce.Do(func() {
		cueCtx = cuecontext.New()
		v := cueCtx.CompileString(schemaSource, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("compile renderer schema: %w", err)
			return
		}
		schema = v.LookupPath(cue.ParsePath("#Template"))
	})
	return cueCtx, schema, schemaErr
}

var parseMu sync.Mutex

// Parse validates tmpl against the renderer schema and decodes it. An empty
// or blank template yields DefaultTemplate.
func Parse(tmpl string) (*Template, error) {
	if strings.TrimSpace(tmpl) == "" {
		tmpl = DefaultTemplate
	}

	// A cue.Context is not safe for concurrent use.
	parseMu.Lock()
	err := validate(tmpl)
	parseMu.Unlock()
	if err != nil {
		return nil, err
	}

	var t Template
	if err := json.Unmarshal([]byte(tmpl), &t); err != nil {
		return nil, &SchemaError{Message: err.Error()}
	}
	if t.SchemaVersion == 0 {
		t.SchemaVersion = 1
	}
	if t.Layout.CategoryLayout == "" {
		t.Layout.CategoryLayout = "grid"
	}
	return &t, nil
}

func validate(tmpl string) error {
	ctx, sch, err := loadSchema()
	if err != nil {
		return err
	}
	expr, err := cuejson.Extract("template.json", []byte(tmpl))
	if err != nil {
		return formatCUEError(err)
	}
	v := ctx.BuildExpr(expr)
	if err := v.Err(); err != nil {
		return formatCUEError(err)
	}
	unified := sch.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	return nil
}

// formatCUEError keeps the first error and its position.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &SchemaError{Message: err.Error()}
	}
	first := errs[0]
	se := &SchemaError{Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		se.Pos = positions[0]
	}
	return se
}

// Mapped resolves each component against attrs. Components whose field is
// not present in attrs are left out.
func (t *Template) Mapped(attrs variant.Map) map[string]variant.Value {
	out := make(map[string]variant.Value, len(t.Components))
	for name, c := range t.Components {
		if v, ok := attrs[c.Field]; ok {
			out[name] = v
		}
	}
	return out
}
