package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/goscope/internal/protocol"
	"github.com/roach88/goscope/internal/renderer"
	"github.com/roach88/goscope/internal/scopes"
	"github.com/roach88/goscope/internal/variant"
)

// ErrNotPreviewable is returned by Tap when the scope intercepts the
// activation and answers with something other than a preview.
var ErrNotPreviewable = errors.New("activation did not lead to a preview")

// Category is a category of a search, with its results.
type Category struct {
	id         string
	title      string
	icon       string
	headerLink string
	template   string
	renderer   *renderer.Template
	results    []*Result
}

// ID returns the category id.
func (c *Category) ID() string { return c.id }

// Title returns the category title.
func (c *Category) Title() string { return c.title }

// Icon returns the category icon.
func (c *Category) Icon() string { return c.icon }

// HeaderLink returns the scope:// query run when the header is tapped.
func (c *Category) HeaderLink() string { return c.headerLink }

// Template returns the raw renderer template sent by the scope.
func (c *Category) Template() string { return c.template }

// Renderer returns the parsed renderer template.
func (c *Category) Renderer() *renderer.Template { return c.renderer }

// Len returns the number of results.
func (c *Category) Len() int { return len(c.results) }

// Results returns the category's results in push order.
func (c *Category) Results() []*Result {
	return append([]*Result(nil), c.results...)
}

// Result returns the i-th result. It panics if i is out of range.
func (c *Category) Result(i int) *Result { return c.results[i] }

// Result is a single search result.
type Result struct {
	view      *ResultsView
	scopeID   string
	category  *Category
	attrs     variant.Map
	intercept bool
}

// URI returns the result's uri attribute.
func (r *Result) URI() string { return r.str("uri") }

// Title returns the result's title attribute.
func (r *Result) Title() string { return r.str("title") }

// Art returns the result's art attribute.
func (r *Result) Art() string { return r.str("art") }

// DndURI returns the result's drag-and-drop uri.
func (r *Result) DndURI() string { return r.str("dnd_uri") }

// Subtitle returns the result's subtitle attribute.
func (r *Result) Subtitle() string { return r.str("subtitle") }

// Category returns the category the result was pushed to.
func (r *Result) Category() *Category { return r.category }

// Property returns attribute key, or nil if unset.
func (r *Result) Property(key string) variant.Value { return r.attrs[key] }

// Properties returns a copy of every attribute.
func (r *Result) Properties() variant.Map { return r.attrs.Clone() }

// Card returns the attributes shown on the result's card, keyed by renderer
// component.
func (r *Result) Card() map[string]variant.Value {
	if r.category == nil || r.category.renderer == nil {
		return map[string]variant.Value{}
	}
	return r.category.renderer.Mapped(r.attrs)
}

func (r *Result) str(key string) string {
	if s, ok := r.attrs[key].(variant.String); ok {
		return string(s)
	}
	return ""
}

func (r *Result) wire() protocol.ResultData {
	return protocol.ResultData{
		Category:            r.category.id,
		Attrs:               r.attrs.Clone(),
		InterceptActivation: r.intercept,
	}
}

// Activation is a scope's answer to an activation or an action.
type Activation struct {
	Status    scopes.ActivationStatus
	Query     *protocol.Query
	ScopeData variant.Value

	rawScopeData json.RawMessage
}

// previewData picks the scope data a ShowPreview answer refreshes the
// preview with: the scope's own data wins over what the client sent.
func (a *Activation) previewData(fallback json.RawMessage) json.RawMessage {
	if len(a.rawScopeData) > 0 {
		return a.rawScopeData
	}
	return fallback
}

// Activate sends an activate request for the result.
func (r *Result) Activate(ctx context.Context) (*Activation, error) {
	c, err := r.view.h.client(ctx, r.scopeID)
	if err != nil {
		return nil, err
	}
	params := protocol.PreviewParams{Result: r.wire(), Metadata: r.view.h.actionMetadata()}
	ev, err := c.call(ctx, protocol.MethodActivate, params, nil)
	if err != nil {
		return nil, err
	}
	return decodeActivation(ev)
}

// Tap opens the result's preview. A result that intercepts activation is
// activated first and previewed only if the scope asks for it.
func (r *Result) Tap(ctx context.Context) (*PreviewView, error) {
	var scopeData json.RawMessage
	if r.intercept {
		act, err := r.Activate(ctx)
		if err != nil {
			return nil, err
		}
		switch act.Status {
		case scopes.ActivationNotHandled, scopes.ActivationShowPreview:
		default:
			return nil, fmt.Errorf("%w: %s", ErrNotPreviewable, act.Status)
		}
		scopeData = act.previewData(nil)
	}
	pv := newPreviewView(r.view, r)
	if err := pv.refresh(ctx, scopeData); err != nil {
		return nil, err
	}
	return pv, nil
}

func decodeActivation(ev *protocol.Event) (*Activation, error) {
	if ev.Type != protocol.EventActivation {
		return nil, fmt.Errorf("expected activation event, got %s", ev.Type)
	}
	var p protocol.ActivationPayload
	if err := ev.Decode(&p); err != nil {
		return nil, err
	}
	status, err := scopes.ParseActivationStatus(p.Status)
	if err != nil {
		return nil, err
	}
	act := &Activation{Status: status, Query: p.Query}
	if len(p.ScopeData) > 0 {
		act.rawScopeData = p.ScopeData
		if act.ScopeData, err = variant.Decode(p.ScopeData); err != nil {
			return nil, fmt.Errorf("activation scope data: %w", err)
		}
	}
	return act, nil
}
