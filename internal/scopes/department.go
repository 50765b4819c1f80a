package scopes

import (
	"errors"

	"github.com/roach88/goscope/internal/protocol"
)

// Department represents a section of a scope's results. Departments form a
// tree registered on a SearchReply.
type Department struct {
	id             string
	label          string
	alternateLabel string
	query          *CannedQuery
	hasSubdepts    bool
	hidden         bool
	subdepartments []*Department
}

// NewDepartment creates a department with the given id and label. The
// department's query is a copy of query pointing at departmentID.
func NewDepartment(departmentID string, query *CannedQuery, label string) (*Department, error) {
	if label == "" {
		return nil, errors.New("department label must not be empty")
	}
	if query == nil {
		return nil, errors.New("department query must not be nil")
	}
	q := query.clone()
	q.SetDepartmentID(departmentID)
	return &Department{id: departmentID, label: label, query: q}, nil
}

// ID returns the department id.
func (d *Department) ID() string { return d.id }

// Label returns the display label.
func (d *Department) Label() string { return d.label }

// Query returns a copy of the query that selects this department.
func (d *Department) Query() *CannedQuery { return d.query.clone() }

// AddSubdepartment appends child.
func (d *Department) AddSubdepartment(child *Department) {
	d.subdepartments = append(d.subdepartments, child)
}

// SetSubdepartments replaces every child.
func (d *Department) SetSubdepartments(children []*Department) {
	d.subdepartments = append([]*Department(nil), children...)
}

// Subdepartments returns the children in insertion order.
func (d *Department) Subdepartments() []*Department {
	return append([]*Department(nil), d.subdepartments...)
}

// SetAlternateLabel sets the label shown for the "all" entry of this
// department.
func (d *Department) SetAlternateLabel(label string) { d.alternateLabel = label }

// AlternateLabel returns the alternate label.
func (d *Department) AlternateLabel() string { return d.alternateLabel }

// SetHasSubdepartments marks a department as having children that are not
// included in the reply.
func (d *Department) SetHasSubdepartments(has bool) { d.hasSubdepts = has }

// HasSubdepartments reports whether the department has children.
func (d *Department) HasSubdepartments() bool {
	return d.hasSubdepts || len(d.subdepartments) > 0
}

// SetHidden hides the department from navigation.
func (d *Department) SetHidden(hidden bool) { d.hidden = hidden }

// IsHidden reports whether the department is hidden.
func (d *Department) IsHidden() bool { return d.hidden }

func (d *Department) wire() protocol.Department {
	w := protocol.Department{
		ID:                d.id,
		Label:             d.label,
		AlternateLabel:    d.alternateLabel,
		Query:             d.query.wire(),
		HasSubdepartments: d.HasSubdepartments(),
		Hidden:            d.hidden,
	}
	for _, child := range d.subdepartments {
		w.Subdepartments = append(w.Subdepartments, child.wire())
	}
	return w
}
