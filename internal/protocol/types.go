package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/goscope/internal/variant"
)

// Method names a request.
type Method string

const (
	MethodInit          Method = "init"
	MethodSearch        Method = "search"
	MethodPreview       Method = "preview"
	MethodActivate      Method = "activate"
	MethodPerformAction Method = "perform_action"
	MethodCancel        Method = "cancel"
	MethodShutdown      Method = "shutdown"
)

// EventType names an event.
type EventType string

const (
	EventReady       EventType = "ready"
	EventCategory    EventType = "category"
	EventResult      EventType = "result"
	EventDepartments EventType = "departments"
	EventFilters     EventType = "filters"
	EventLayouts     EventType = "layouts"
	EventWidgets     EventType = "widgets"
	EventAttribute   EventType = "attribute"
	EventActivation  EventType = "activation"
	EventFinished    EventType = "finished"
	EventError       EventType = "error"
)

// Terminal reports whether t ends a request.
func (t EventType) Terminal() bool {
	switch t {
	case EventFinished, EventError, EventActivation, EventReady:
		return true
	}
	return false
}

// Request is a frame sent by the harness.
type Request struct {
	ID     uint64          `json:"id"`
	Method Method          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// NewRequest builds a request with params encoded as JSON. A nil params
// produces a request without a params field.
func NewRequest(id uint64, method Method, params any) (*Request, error) {
	req := &Request{ID: id, Method: method}
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("encode %s params: %w", method, err)
		}
		req.Params = data
	}
	return req, nil
}

// Decode unmarshals the request params into v.
func (r *Request) Decode(v any) error {
	if len(r.Params) == 0 {
		return fmt.Errorf("%s request %d: missing params", r.Method, r.ID)
	}
	if err := json.Unmarshal(r.Params, v); err != nil {
		return fmt.Errorf("%s request %d: %w", r.Method, r.ID, err)
	}
	return nil
}

// Event is a frame sent by the scope.
type Event struct {
	ID      uint64          `json:"id"`
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEvent builds an event with payload encoded as JSON.
func NewEvent(id uint64, typ EventType, payload any) (*Event, error) {
	ev := &Event{ID: id, Type: typ}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", typ, err)
		}
		ev.Payload = data
	}
	return ev, nil
}

// Decode unmarshals the event payload into v.
func (e *Event) Decode(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%s event %d: missing payload", e.Type, e.ID)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("%s event %d: %w", e.Type, e.ID, err)
	}
	return nil
}

// Query is the wire form of a canned query.
type Query struct {
	ScopeID      string      `json:"scope_id"`
	QueryString  string      `json:"query_string"`
	DepartmentID string      `json:"department_id,omitempty"`
	FilterState  variant.Map `json:"filter_state,omitempty"`
}

// ScopeMetadata describes a registered scope.
type ScopeMetadata struct {
	ScopeID              string      `json:"scope_id"`
	DisplayName          string      `json:"display_name"`
	Description          string      `json:"description,omitempty"`
	Author               string      `json:"author,omitempty"`
	Art                  string      `json:"art,omitempty"`
	Icon                 string      `json:"icon,omitempty"`
	SearchHint           string      `json:"search_hint,omitempty"`
	HotKey               string      `json:"hot_key,omitempty"`
	Invisible            bool        `json:"invisible"`
	IsAggregator         bool        `json:"is_aggregator"`
	LocationDataNeeded   bool        `json:"location_data_needed"`
	ScopeDir             string      `json:"scope_dir"`
	Keywords             []string    `json:"keywords,omitempty"`
	AppearanceAttributes variant.Map `json:"appearance_attributes,omitempty"`
}

// InitParams opens a session with a scope.
type InitParams struct {
	ScopeID  string          `json:"scope_id"`
	ScopeDir string          `json:"scope_dir,omitempty"`
	CacheDir string          `json:"cache_dir,omitempty"`
	TmpDir   string          `json:"tmp_dir,omitempty"`
	Settings variant.Map     `json:"settings,omitempty"`
	Registry []ScopeMetadata `json:"registry,omitempty"`
}

// SearchMetadata accompanies a search request.
type SearchMetadata struct {
	Locale      string `json:"locale,omitempty"`
	FormFactor  string `json:"form_factor,omitempty"`
	Cardinality int    `json:"cardinality,omitempty"`
}

// ActionMetadata accompanies preview, activation and action requests.
type ActionMetadata struct {
	Locale     string          `json:"locale,omitempty"`
	FormFactor string          `json:"form_factor,omitempty"`
	ScopeData  json.RawMessage `json:"scope_data,omitempty"`
}

// SearchParams is the payload of a search request.
type SearchParams struct {
	Query    Query          `json:"query"`
	Metadata SearchMetadata `json:"metadata"`
}

// ResultData is the wire form of a result.
type ResultData struct {
	Category            string      `json:"category,omitempty"`
	Attrs               variant.Map `json:"attrs"`
	InterceptActivation bool        `json:"intercept_activation,omitempty"`
}

// PreviewParams is the payload of a preview or activate request.
type PreviewParams struct {
	Result   ResultData     `json:"result"`
	Metadata ActionMetadata `json:"metadata"`
}

// ActionParams is the payload of a perform_action request.
type ActionParams struct {
	Result   ResultData     `json:"result"`
	Metadata ActionMetadata `json:"metadata"`
	WidgetID string         `json:"widget_id"`
	ActionID string         `json:"action_id"`
}

// CancelParams names the request to cancel.
type CancelParams struct {
	Target uint64 `json:"target"`
}

// ReadyPayload answers init.
type ReadyPayload struct {
	ScopeID string `json:"scope_id"`
}

// CategoryPayload registers a category.
type CategoryPayload struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Icon       string `json:"icon"`
	Template   string `json:"template,omitempty"`
	HeaderLink string `json:"header_link,omitempty"`
}

// Department is the wire form of a department tree node.
type Department struct {
	ID                string       `json:"id"`
	Label             string       `json:"label"`
	AlternateLabel    string       `json:"alternate_label,omitempty"`
	Query             Query        `json:"query"`
	HasSubdepartments bool         `json:"has_subdepartments"`
	Hidden            bool         `json:"hidden,omitempty"`
	Subdepartments    []Department `json:"subdepartments,omitempty"`
}

// DepartmentsPayload registers the department tree of a search.
type DepartmentsPayload struct {
	Root Department `json:"root"`
}

// FiltersPayload carries serialized filters and their state.
type FiltersPayload struct {
	Filters variant.Array `json:"filters"`
	State   variant.Map   `json:"state,omitempty"`
}

// Layout is the wire form of a column layout.
type Layout struct {
	Columns [][]string `json:"columns"`
}

// LayoutsPayload registers preview layouts.
type LayoutsPayload struct {
	Layouts []Layout `json:"layouts"`
}

// WidgetsPayload pushes preview widgets.
type WidgetsPayload struct {
	Widgets []variant.Map `json:"widgets"`
}

// AttributePayload pushes one preview attribute.
type AttributePayload struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

// ActivationPayload answers activate and perform_action.
type ActivationPayload struct {
	Status    string          `json:"status"`
	Query     *Query          `json:"query,omitempty"`
	ScopeData json.RawMessage `json:"scope_data,omitempty"`
}

// ErrorPayload reports a failed request.
type ErrorPayload struct {
	Message string `json:"message"`
}
