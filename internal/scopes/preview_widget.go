package scopes

import "fmt"

// PreviewWidget is a definition of a preview widget: a map holding "id",
// "type" and the widget's attributes.
type PreviewWidget map[string]any

// NewPreviewWidget creates a widget with the given id and type. Attributes
// are set with AddAttributeValue or mapped onto result attributes with
// AddAttributeMapping.
func NewPreviewWidget(id, widgetType string) PreviewWidget {
	return PreviewWidget{"id": id, "type": widgetType}
}

// ID returns the widget id.
func (w PreviewWidget) ID() string {
	id, _ := w["id"].(string)
	return id
}

// WidgetType returns the widget type.
func (w PreviewWidget) WidgetType() string {
	t, _ := w["type"].(string)
	return t
}

// AddAttributeValue sets a widget attribute to a fixed value.
func (w PreviewWidget) AddAttributeValue(key string, value any) {
	w[key] = value
}

// AddAttributeMapping maps widget attribute key onto result attribute
// fieldName.
func (w PreviewWidget) AddAttributeMapping(key, fieldName string) {
	components, ok := w["components"].(map[string]any)
	if !ok {
		components = make(map[string]any)
		w["components"] = components
	}
	components[key] = fieldName
}

// AddWidget nests child inside an expandable widget.
func (w PreviewWidget) AddWidget(child PreviewWidget) error {
	if w.WidgetType() != "expandable" {
		return fmt.Errorf("widget %q: can only add widgets to expandable widgets", w.ID())
	}
	children, _ := w["widgets"].([]any)
	w["widgets"] = append(children, map[string]any(child))
	return nil
}
