package harness

import (
	"fmt"

	"github.com/roach88/goscope/internal/protocol"
)

// DepartmentList describes the current department of a search and its
// children.
type DepartmentList struct {
	id          string
	label       string
	allLabel    string
	parentID    string
	parentLabel string
	root        bool
	hidden      bool
	children    []*ChildDepartment
}

// ChildDepartment is one entry of a DepartmentList.
type ChildDepartment struct {
	id          string
	label       string
	allLabel    string
	hasChildren bool
	active      bool
}

// newDepartmentList locates current in the tree under root.
func newDepartmentList(root *protocol.Department, current string) (*DepartmentList, error) {
	path := findDepartment(root, current)
	if path == nil {
		return nil, fmt.Errorf("department %q not in the registered tree", current)
	}
	node := path[len(path)-1]

	dl := &DepartmentList{
		id:       node.ID,
		label:    node.Label,
		allLabel: node.AlternateLabel,
		root:     len(path) == 1,
		hidden:   node.Hidden,
	}
	if len(path) > 1 {
		parent := path[len(path)-2]
		dl.parentID = parent.ID
		dl.parentLabel = parent.Label
	}
	for i := range node.Subdepartments {
		sub := &node.Subdepartments[i]
		dl.children = append(dl.children, &ChildDepartment{
			id:          sub.ID,
			label:       sub.Label,
			allLabel:    sub.AlternateLabel,
			hasChildren: sub.HasSubdepartments || len(sub.Subdepartments) > 0,
			active:      sub.ID == current,
		})
	}
	return dl, nil
}

// findDepartment returns the path from root to the department with the
// given id, or nil.
func findDepartment(root *protocol.Department, id string) []*protocol.Department {
	if root.ID == id {
		return []*protocol.Department{root}
	}
	for i := range root.Subdepartments {
		if path := findDepartment(&root.Subdepartments[i], id); path != nil {
			return append([]*protocol.Department{root}, path...)
		}
	}
	return nil
}

func (d *DepartmentList) ID() string          { return d.id }
func (d *DepartmentList) Label() string       { return d.label }
func (d *DepartmentList) AllLabel() string    { return d.allLabel }
func (d *DepartmentList) ParentID() string    { return d.parentID }
func (d *DepartmentList) ParentLabel() string { return d.parentLabel }
func (d *DepartmentList) IsRoot() bool        { return d.root }
func (d *DepartmentList) IsHidden() bool      { return d.hidden }

// Len returns the number of children.
func (d *DepartmentList) Len() int { return len(d.children) }

// Child returns the i-th child. It panics if i is out of range.
func (d *DepartmentList) Child(i int) *ChildDepartment { return d.children[i] }

// Children returns the children in registration order.
func (d *DepartmentList) Children() []*ChildDepartment {
	return append([]*ChildDepartment(nil), d.children...)
}

func (c *ChildDepartment) ID() string        { return c.id }
func (c *ChildDepartment) Label() string     { return c.label }
func (c *ChildDepartment) AllLabel() string  { return c.allLabel }
func (c *ChildDepartment) HasChildren() bool { return c.hasChildren }
func (c *ChildDepartment) IsActive() bool    { return c.active }
