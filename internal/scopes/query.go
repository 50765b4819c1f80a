package scopes

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/roach88/goscope/internal/protocol"
	"github.com/roach88/goscope/internal/variant"
)

// CannedQuery represents a search query directed at a scope.
type CannedQuery struct {
	scopeID      string
	queryString  string
	departmentID string
	filterState  FilterState
}

// NewCannedQuery creates a query for scopeID.
func NewCannedQuery(scopeID, queryString, departmentID string) *CannedQuery {
	return &CannedQuery{
		scopeID:      scopeID,
		queryString:  queryString,
		departmentID: departmentID,
		filterState:  FilterState{},
	}
}

// ScopeID returns the scope the query is directed at.
func (q *CannedQuery) ScopeID() string { return q.scopeID }

// DepartmentID returns the department the query is directed at.
func (q *CannedQuery) DepartmentID() string { return q.departmentID }

// QueryString returns the query text.
func (q *CannedQuery) QueryString() string { return q.queryString }

// FilterState returns a copy of the filter state attached to the query.
func (q *CannedQuery) FilterState() FilterState {
	out := make(FilterState, len(q.filterState))
	for k, v := range q.filterState {
		out[k] = v
	}
	return out
}

// SetDepartmentID changes the department.
func (q *CannedQuery) SetDepartmentID(departmentID string) { q.departmentID = departmentID }

// SetQueryString changes the query text.
func (q *CannedQuery) SetQueryString(queryString string) { q.queryString = queryString }

// SetFilterState replaces the filter state.
func (q *CannedQuery) SetFilterState(state FilterState) { q.filterState = state }

func (q *CannedQuery) clone() *CannedQuery {
	cp := *q
	cp.filterState = q.FilterState()
	return &cp
}

// ToURI renders the query as a scope:// URI.
func (q *CannedQuery) ToURI() string {
	v := url.Values{}
	v.Set("q", q.queryString)
	if q.departmentID != "" {
		v.Set("dep", q.departmentID)
	}
	return "scope://" + url.PathEscape(q.scopeID) + "?" + v.Encode()
}

// ParseCannedQuery parses a URI produced by ToURI.
func ParseCannedQuery(uri string) (*CannedQuery, error) {
	rest, ok := strings.CutPrefix(uri, "scope://")
	if !ok {
		return nil, fmt.Errorf("invalid query uri %q: missing scope:// prefix", uri)
	}
	rawID, rawQuery, _ := strings.Cut(rest, "?")
	scopeID, err := url.PathUnescape(rawID)
	if err != nil {
		return nil, fmt.Errorf("invalid query uri %q: %w", uri, err)
	}
	if scopeID == "" {
		return nil, fmt.Errorf("invalid query uri %q: missing scope id", uri)
	}
	params, err := url.ParseQuery(rawQuery)
	if err != nil {
		return nil, fmt.Errorf("invalid query uri %q: %w", uri, err)
	}
	return NewCannedQuery(scopeID, params.Get("q"), params.Get("dep")), nil
}

func (q *CannedQuery) wire() protocol.Query {
	state, _ := variant.FromGo(map[string]any(q.filterState))
	m, _ := state.(variant.Map)
	return protocol.Query{
		ScopeID:      q.scopeID,
		QueryString:  q.queryString,
		DepartmentID: q.departmentID,
		FilterState:  m,
	}
}

func queryFromWire(w protocol.Query) *CannedQuery {
	q := NewCannedQuery(w.ScopeID, w.QueryString, w.DepartmentID)
	for k, v := range w.FilterState {
		q.filterState[k] = variant.ToGo(v)
	}
	return q
}
