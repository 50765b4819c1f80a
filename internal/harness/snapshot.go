package harness

import (
	"github.com/roach88/goscope/internal/variant"
)

// SnapshotView describes v with plain Go values suitable for canonical
// JSON.
func SnapshotView(v View) map[string]any {
	switch view := v.(type) {
	case *ResultsView:
		return snapshotResults(view)
	case *PreviewView:
		return snapshotPreview(view)
	}
	return map[string]any{}
}

func snapshotResults(v *ResultsView) map[string]any {
	cats := []any{}
	for _, c := range v.Categories() {
		results := []any{}
		for _, r := range c.Results() {
			results = append(results, variant.ToGo(r.Properties()))
		}
		cat := map[string]any{
			"id":      c.ID(),
			"title":   c.Title(),
			"icon":    c.Icon(),
			"layout":  c.Renderer().Layout.CategoryLayout,
			"results": results,
		}
		if c.HeaderLink() != "" {
			cat["header_link"] = c.HeaderLink()
		}
		cats = append(cats, cat)
	}

	out := map[string]any{
		"type":       "results",
		"scope":      v.ActiveScope(),
		"query":      v.SearchQuery(),
		"department": v.DepartmentID(),
		"categories": cats,
	}
	if deps, err := v.Departments(); err == nil {
		out["departments"] = snapshotDepartments(deps)
	}
	if filters := v.Filters(); len(filters) > 0 {
		out["filters"] = variant.ToGo(filters)
	}
	return out
}

func snapshotDepartments(d *DepartmentList) map[string]any {
	children := []any{}
	for _, c := range d.Children() {
		children = append(children, map[string]any{
			"id":           c.ID(),
			"label":        c.Label(),
			"all_label":    c.AllLabel(),
			"has_children": c.HasChildren(),
			"is_active":    c.IsActive(),
		})
	}
	return map[string]any{
		"id":           d.ID(),
		"label":        d.Label(),
		"all_label":    d.AllLabel(),
		"parent_id":    d.ParentID(),
		"parent_label": d.ParentLabel(),
		"is_root":      d.IsRoot(),
		"is_hidden":    d.IsHidden(),
		"children":     children,
	}
}

func snapshotPreview(p *PreviewView) map[string]any {
	columns := []any{}
	for _, col := range p.Widgets() {
		widgets := []any{}
		for _, w := range col {
			widgets = append(widgets, map[string]any{
				"id":   w.ID(),
				"type": w.Type(),
				"data": variant.ToGo(w.Data()),
			})
		}
		columns = append(columns, widgets)
	}
	return map[string]any{
		"type":         "preview",
		"result":       p.Result().URI(),
		"column_count": p.ColumnCount(),
		"columns":      columns,
	}
}
