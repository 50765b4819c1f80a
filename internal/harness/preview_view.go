package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/roach88/goscope/internal/protocol"
	"github.com/roach88/goscope/internal/scopes"
	"github.com/roach88/goscope/internal/variant"
)

// PreviewView is the preview of a tapped result.
type PreviewView struct {
	results *ResultsView
	result  *Result

	mu          sync.Mutex
	layouts     map[int][][]string
	widgets     []*PreviewWidget
	attributes  variant.Map
	columnCount int
}

// PreviewColumn holds the widgets of one preview column.
type PreviewColumn []*PreviewWidget

func newPreviewView(results *ResultsView, r *Result) *PreviewView {
	return &PreviewView{results: results, result: r, columnCount: 1}
}

func (p *PreviewView) viewName() string { return "preview" }

// Result returns the previewed result.
func (p *PreviewView) Result() *Result { return p.result }

// SetColumnCount selects the layout used by Widgets.
func (p *PreviewView) SetColumnCount(n int) error {
	if n < 1 {
		return fmt.Errorf("column count must be at least 1, got %d", n)
	}
	p.mu.Lock()
	p.columnCount = n
	p.mu.Unlock()
	return nil
}

// ColumnCount returns the selected column count.
func (p *PreviewView) ColumnCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.columnCount
}

// Widgets returns the widgets arranged by the layout for the current column
// count. Without such a layout the 1-column layout is used; without any
// layout all widgets form a single column in push order. Widget ids named by
// a layout but never pushed are skipped.
func (p *PreviewView) Widgets() []PreviewColumn {
	p.mu.Lock()
	defer p.mu.Unlock()

	layout, ok := p.layouts[p.columnCount]
	if !ok {
		layout, ok = p.layouts[1]
	}
	if !ok {
		return []PreviewColumn{append(PreviewColumn{}, p.widgets...)}
	}

	byID := make(map[string]*PreviewWidget, len(p.widgets))
	for _, w := range p.widgets {
		byID[w.id] = w
	}
	columns := make([]PreviewColumn, len(layout))
	for i, ids := range layout {
		col := PreviewColumn{}
		for _, id := range ids {
			if w, ok := byID[id]; ok {
				col = append(col, w)
			}
		}
		columns[i] = col
	}
	return columns
}

// WidgetsInFirstColumn returns the widgets of the first column by id.
func (p *PreviewView) WidgetsInFirstColumn() map[string]*PreviewWidget {
	out := make(map[string]*PreviewWidget)
	cols := p.Widgets()
	if len(cols) == 0 {
		return out
	}
	for _, w := range cols[0] {
		out[w.id] = w
	}
	return out
}

// Widget returns the pushed widget with the given id, or nil.
func (p *PreviewView) Widget(id string) *PreviewWidget {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, w := range p.widgets {
		if w.id == id {
			return w
		}
	}
	return nil
}

// Attributes returns the attributes pushed with the preview.
func (p *PreviewView) Attributes() variant.Map {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attributes.Clone()
}

// refresh re-runs the preview request and replaces layouts, widgets and
// attributes.
func (p *PreviewView) refresh(ctx context.Context, scopeData json.RawMessage) error {
	h := p.results.h
	c, err := h.client(ctx, p.result.scopeID)
	if err != nil {
		return err
	}

	md := h.actionMetadata()
	md.ScopeData = scopeData
	acc := &previewContent{view: p, layouts: make(map[int][][]string), attributes: variant.Map{}}
	params := protocol.PreviewParams{Result: p.result.wire(), Metadata: md}
	if _, err := c.call(ctx, protocol.MethodPreview, params, acc.handle); err != nil {
		return err
	}

	p.mu.Lock()
	p.layouts = acc.layouts
	p.widgets = acc.widgets
	p.attributes = acc.attributes
	p.mu.Unlock()
	return nil
}

// resolve returns a component's value: a pushed attribute wins over a
// result attribute of the same name.
func (p *PreviewView) resolve(field string) (variant.Value, bool) {
	p.mu.Lock()
	v, ok := p.attributes[field]
	p.mu.Unlock()
	if ok {
		return v, true
	}
	v, ok = p.result.attrs[field]
	return v, ok
}

type previewContent struct {
	view       *PreviewView
	layouts    map[int][][]string
	widgets    []*PreviewWidget
	attributes variant.Map
}

func (c *previewContent) handle(ev *protocol.Event) error {
	switch ev.Type {
	case protocol.EventLayouts:
		var p protocol.LayoutsPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		for _, l := range p.Layouts {
			c.layouts[len(l.Columns)] = l.Columns
		}

	case protocol.EventWidgets:
		var p protocol.WidgetsPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		for _, raw := range p.Widgets {
			w, err := newPreviewWidget(c.view, raw)
			if err != nil {
				return err
			}
			c.widgets = append(c.widgets, w)
		}

	case protocol.EventAttribute:
		var p protocol.AttributePayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		v, err := variant.Decode(p.Value)
		if err != nil {
			return fmt.Errorf("attribute %q: %w", p.Name, err)
		}
		c.attributes[p.Name] = v
	}
	return nil
}

// PreviewWidget is a widget of a preview.
type PreviewWidget struct {
	view       *PreviewView
	id         string
	typ        string
	attrs      variant.Map
	components map[string]string
}

func newPreviewWidget(view *PreviewView, raw variant.Map) (*PreviewWidget, error) {
	id, _ := raw["id"].(variant.String)
	typ, _ := raw["type"].(variant.String)
	if id == "" || typ == "" {
		return nil, fmt.Errorf("widget without id or type: %v", raw)
	}
	w := &PreviewWidget{
		view:       view,
		id:         string(id),
		typ:        string(typ),
		attrs:      variant.Map{},
		components: map[string]string{},
	}
	for k, v := range raw {
		switch k {
		case "id", "type":
		case "components":
			comps, ok := v.(variant.Map)
			if !ok {
				return nil, fmt.Errorf("widget %q: components must be a map", w.id)
			}
			for name, field := range comps {
				f, ok := field.(variant.String)
				if !ok {
					return nil, fmt.Errorf("widget %q: component %q must name a field", w.id, name)
				}
				w.components[name] = string(f)
			}
		default:
			w.attrs[k] = v
		}
	}
	return w, nil
}

// ID returns the widget id.
func (w *PreviewWidget) ID() string { return w.id }

// Type returns the widget type.
func (w *PreviewWidget) Type() string { return w.typ }

// Data returns the widget's attributes with component mappings resolved
// against the preview attributes and the result. Unresolvable components
// are left out.
func (w *PreviewWidget) Data() variant.Map {
	data := w.attrs.Clone()
	for name, field := range w.components {
		if v, ok := w.view.resolve(field); ok {
			data[name] = v
		}
	}
	return data
}

// Trigger performs action actionID of the widget and returns the view the
// scope leads to. NotHandled and ShowPreview return the same preview, the
// latter refreshed with the scope data of the answer, or data when the
// answer carries none. Other answers return the
// results view; PerformQuery first runs the query.
func (w *PreviewWidget) Trigger(ctx context.Context, actionID string, data any) (View, error) {
	p := w.view
	h := p.results.h
	c, err := h.client(ctx, p.result.scopeID)
	if err != nil {
		return nil, err
	}

	md := h.actionMetadata()
	if data != nil {
		if md.ScopeData, err = json.Marshal(data); err != nil {
			return nil, fmt.Errorf("trigger %s: scope data: %w", actionID, err)
		}
	}
	params := protocol.ActionParams{
		Result:   p.result.wire(),
		Metadata: md,
		WidgetID: w.id,
		ActionID: actionID,
	}
	ev, err := c.call(ctx, protocol.MethodPerformAction, params, nil)
	if err != nil {
		return nil, err
	}
	act, err := decodeActivation(ev)
	if err != nil {
		return nil, err
	}

	switch act.Status {
	case scopes.ActivationNotHandled:
		return p, nil
	case scopes.ActivationShowPreview:
		if err := p.refresh(ctx, act.previewData(md.ScopeData)); err != nil {
			return nil, err
		}
		return p, nil
	case scopes.ActivationPerformQuery:
		if act.Query == nil {
			return nil, fmt.Errorf("trigger %s: perform_query without a query", actionID)
		}
		if err := p.results.runQuery(ctx, *act.Query); err != nil {
			return nil, err
		}
		return p.results, nil
	default:
		return p.results, nil
	}
}
