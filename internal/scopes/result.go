package scopes

import (
	"fmt"

	"github.com/roach88/goscope/internal/protocol"
	"github.com/roach88/goscope/internal/variant"
)

// Result is a single search result: a set of named attributes.
type Result struct {
	attrs     variant.Map
	intercept bool
}

func resultFromWire(w protocol.ResultData) *Result {
	attrs := w.Attrs.Clone()
	if attrs == nil {
		attrs = variant.Map{}
	}
	return &Result{attrs: attrs, intercept: w.InterceptActivation}
}

// Get decodes attribute attr into value. It fails if the attribute is unset.
func (r *Result) Get(attr string, value any) error {
	v, ok := r.attrs[attr]
	if !ok {
		return fmt.Errorf("attribute %q not set", attr)
	}
	return variant.DecodeInto(v, value)
}

// Set stores value under attr. Values must be representable as JSON.
func (r *Result) Set(attr string, value any) error {
	v, err := variant.FromGo(value)
	if err != nil {
		return fmt.Errorf("set attribute %q: %w", attr, err)
	}
	if r.attrs == nil {
		r.attrs = variant.Map{}
	}
	r.attrs[attr] = v
	return nil
}

// Has reports whether attr is set.
func (r *Result) Has(attr string) bool {
	_, ok := r.attrs[attr]
	return ok
}

// Attrs returns a copy of every attribute.
func (r *Result) Attrs() variant.Map {
	return r.attrs.Clone()
}

// SetInterceptActivation asks the shell to send activation of this result
// back to the scope.
func (r *Result) SetInterceptActivation() { r.intercept = true }

// InterceptActivation reports whether SetInterceptActivation was called.
func (r *Result) InterceptActivation() bool { return r.intercept }

// SetURI sets the "uri" attribute.
func (r *Result) SetURI(uri string) error { return r.Set("uri", uri) }

// SetTitle sets the "title" attribute.
func (r *Result) SetTitle(title string) error { return r.Set("title", title) }

// SetArt sets the "art" attribute.
func (r *Result) SetArt(art string) error { return r.Set("art", art) }

// SetDndURI sets the "dnd_uri" attribute.
func (r *Result) SetDndURI(uri string) error { return r.Set("dnd_uri", uri) }

// URI returns the "uri" attribute, or "" if unset.
func (r *Result) URI() string { return r.getString("uri") }

// Title returns the "title" attribute, or "" if unset.
func (r *Result) Title() string { return r.getString("title") }

// Art returns the "art" attribute, or "" if unset.
func (r *Result) Art() string { return r.getString("art") }

// DndURI returns the "dnd_uri" attribute, or "" if unset.
func (r *Result) DndURI() string { return r.getString("dnd_uri") }

func (r *Result) getString(attr string) string {
	s, _ := r.attrs[attr].(variant.String)
	return string(s)
}

func (r *Result) wire(category string) protocol.ResultData {
	return protocol.ResultData{
		Category:            category,
		Attrs:               r.attrs.Clone(),
		InterceptActivation: r.intercept,
	}
}

// CategorisedResult is a Result bound to the category it is displayed in.
type CategorisedResult struct {
	Result
	category *Category
}

// NewCategorisedResult creates an empty result in category.
func NewCategorisedResult(category *Category) *CategorisedResult {
	return &CategorisedResult{
		Result:   Result{attrs: variant.Map{}},
		category: category,
	}
}

// Category returns the category the result belongs to.
func (r *CategorisedResult) Category() *Category { return r.category }
