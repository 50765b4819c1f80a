package scopes

import (
	"encoding/json"

	"github.com/roach88/goscope/internal/protocol"
)

type queryMetadata struct {
	locale     string
	formFactor string
}

// Locale returns the locale of the request, e.g. "en_US".
func (m *queryMetadata) Locale() string { return m.locale }

// FormFactor returns the form factor of the device, e.g. "phone".
func (m *queryMetadata) FormFactor() string { return m.formFactor }

// SearchMetadata holds additional information about a search.
type SearchMetadata struct {
	queryMetadata
	cardinality int
}

// NewSearchMetadata creates search metadata.
func NewSearchMetadata(cardinality int, locale, formFactor string) *SearchMetadata {
	return &SearchMetadata{
		queryMetadata: queryMetadata{locale: locale, formFactor: formFactor},
		cardinality:   cardinality,
	}
}

// Cardinality returns the number of results the shell wants, or 0 for no
// limit.
func (m *SearchMetadata) Cardinality() int { return m.cardinality }

// ActionMetadata holds additional information about previews, activations
// and actions.
type ActionMetadata struct {
	queryMetadata
	scopeData json.RawMessage
}

// NewActionMetadata creates action metadata.
func NewActionMetadata(locale, formFactor string) *ActionMetadata {
	return &ActionMetadata{queryMetadata: queryMetadata{locale: locale, formFactor: formFactor}}
}

// SetScopeData attaches arbitrary data to the metadata.
func (m *ActionMetadata) SetScopeData(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.scopeData = data
	return nil
}

// ScopeData decodes the attached data into v. Without data, v is left
// unchanged.
func (m *ActionMetadata) ScopeData(v any) error {
	if len(m.scopeData) == 0 {
		return nil
	}
	return json.Unmarshal(m.scopeData, v)
}

func searchMetadataFromWire(w protocol.SearchMetadata) *SearchMetadata {
	return NewSearchMetadata(w.Cardinality, w.Locale, w.FormFactor)
}

func actionMetadataFromWire(w protocol.ActionMetadata) *ActionMetadata {
	m := NewActionMetadata(w.Locale, w.FormFactor)
	m.scopeData = w.ScopeData
	return m
}
