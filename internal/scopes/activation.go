package scopes

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/goscope/internal/protocol"
)

// ActivationStatus tells the shell what to do after an activation.
type ActivationStatus int

const (
	ActivationNotHandled ActivationStatus = iota
	ActivationShowDash
	ActivationHideDash
	ActivationShowPreview
	ActivationPerformQuery
)

var activationNames = [...]string{
	ActivationNotHandled:   "not_handled",
	ActivationShowDash:     "show_dash",
	ActivationHideDash:     "hide_dash",
	ActivationShowPreview:  "show_preview",
	ActivationPerformQuery: "perform_query",
}

func (s ActivationStatus) String() string {
	if s < 0 || int(s) >= len(activationNames) {
		return fmt.Sprintf("ActivationStatus(%d)", int(s))
	}
	return activationNames[s]
}

// ParseActivationStatus is the inverse of ActivationStatus.String.
func ParseActivationStatus(s string) (ActivationStatus, error) {
	for i, name := range activationNames {
		if name == s {
			return ActivationStatus(i), nil
		}
	}
	return 0, fmt.Errorf("unknown activation status %q", s)
}

// ActivationResponse is returned by Activate and PerformAction.
type ActivationResponse struct {
	Status    ActivationStatus
	Query     *CannedQuery
	ScopeData any
}

// NewActivationResponse creates a response with the given status. Use
// NewActivationResponseForQuery for ActivationPerformQuery.
func NewActivationResponse(status ActivationStatus) *ActivationResponse {
	return &ActivationResponse{Status: status}
}

// NewActivationResponseForQuery creates a response that runs query.
func NewActivationResponseForQuery(query *CannedQuery) *ActivationResponse {
	return &ActivationResponse{Status: ActivationPerformQuery, Query: query}
}

// SetScopeData attaches data passed back to the scope on the next preview.
func (r *ActivationResponse) SetScopeData(v any) { r.ScopeData = v }

func (r *ActivationResponse) wire() (protocol.ActivationPayload, error) {
	p := protocol.ActivationPayload{Status: r.Status.String()}
	if r.Status == ActivationPerformQuery {
		if r.Query == nil {
			return p, fmt.Errorf("perform_query response without a query")
		}
		q := r.Query.wire()
		p.Query = &q
	}
	if r.ScopeData != nil {
		data, err := json.Marshal(r.ScopeData)
		if err != nil {
			return p, fmt.Errorf("encode scope data: %w", err)
		}
		p.ScopeData = data
	}
	return p, nil
}
