package scopes

import (
	"fmt"
	"slices"
)

// Filter is implemented by every filter type a scope can push.
type Filter interface {
	ID() string
	serializeFilter() map[string]any
}

// FilterDisplayHints controls how the shell presents a filter.
type FilterDisplayHints int

const (
	FilterDisplayDefault FilterDisplayHints = 0
	FilterDisplayPrimary FilterDisplayHints = 1
)

// FilterState holds the current value of every filter, keyed by filter id.
type FilterState map[string]any

// FilterOption is one selectable option of a filter.
type FilterOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// filterOptions is the option list shared by the option based filters.
type filterOptions struct {
	Options []FilterOption
}

// AddOption appends an option.
func (o *filterOptions) AddOption(id, label string) {
	o.Options = append(o.Options, FilterOption{ID: id, Label: label})
}

func (o *filterOptions) isValidOption(id string) bool {
	return slices.ContainsFunc(o.Options, func(opt FilterOption) bool { return opt.ID == id })
}

func (o *filterOptions) serializeOptions() []any {
	options := make([]any, len(o.Options))
	for i, opt := range o.Options {
		options[i] = map[string]any{"id": opt.ID, "label": opt.Label}
	}
	return options
}

// stringList reads a list of strings from a state value. The value is a
// []string when set by the scope and a []any once it has crossed the wire.
func stringList(v any) []string {
	switch v := v.(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// number reads a numeric state value.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}

// OptionSelectorFilter lets the user pick one or more options from a list.
type OptionSelectorFilter struct {
	filterOptions
	id           string
	Label        string
	DisplayHints FilterDisplayHints
	MultiSelect  bool
}

// NewOptionSelectorFilter creates an option selector filter.
func NewOptionSelectorFilter(id, label string, multiSelect bool) *OptionSelectorFilter {
	return &OptionSelectorFilter{id: id, Label: label, MultiSelect: multiSelect}
}

// ID returns the filter id.
func (f *OptionSelectorFilter) ID() string { return f.id }

// ActiveOptions returns the ids of the selected options in state.
func (f *OptionSelectorFilter) ActiveOptions(state FilterState) []string {
	return stringList(state[f.id])
}

// HasActiveOption reports whether any known option is selected.
func (f *OptionSelectorFilter) HasActiveOption(state FilterState) bool {
	for _, id := range f.ActiveOptions(state) {
		if f.isValidOption(id) {
			return true
		}
	}
	return false
}

// UpdateState selects or deselects optionID in state. Selecting an option of
// a single-select filter clears the previous selection.
func (f *OptionSelectorFilter) UpdateState(state FilterState, optionID string, active bool) error {
	if !f.isValidOption(optionID) {
		return fmt.Errorf("filter %q: invalid option %q", f.id, optionID)
	}
	var selected []string
	if f.MultiSelect || !active {
		selected = f.ActiveOptions(state)
	}
	slices.Sort(selected)
	pos, found := slices.BinarySearch(selected, optionID)
	switch {
	case active && !found:
		selected = slices.Insert(selected, pos, optionID)
	case !active && found:
		selected = slices.Delete(selected, pos, pos+1)
	}
	state[f.id] = selected
	return nil
}

func (f *OptionSelectorFilter) serializeFilter() map[string]any {
	return map[string]any{
		"filter_type":   "option_selector",
		"id":            f.id,
		"display_hints": int(f.DisplayHints),
		"label":         f.Label,
		"multi_select":  f.MultiSelect,
		"options":       f.serializeOptions(),
	}
}

// RadioButtonsFilter lets the user pick at most one option of a list.
type RadioButtonsFilter struct {
	filterOptions
	id           string
	Label        string
	DisplayHints FilterDisplayHints
}

// NewRadioButtonsFilter creates a radio buttons filter.
func NewRadioButtonsFilter(id, label string) *RadioButtonsFilter {
	return &RadioButtonsFilter{id: id, Label: label}
}

// ID returns the filter id.
func (f *RadioButtonsFilter) ID() string { return f.id }

// ActiveOption returns the selected option in state.
func (f *RadioButtonsFilter) ActiveOption(state FilterState) (string, bool) {
	selected := stringList(state[f.id])
	if len(selected) == 0 {
		return "", false
	}
	return selected[0], true
}

// UpdateState selects optionID, replacing any other selection, or clears
// the selection when optionID is deselected.
func (f *RadioButtonsFilter) UpdateState(state FilterState, optionID string, active bool) error {
	if !f.isValidOption(optionID) {
		return fmt.Errorf("filter %q: invalid option %q", f.id, optionID)
	}
	current, ok := f.ActiveOption(state)
	switch {
	case active:
		state[f.id] = []string{optionID}
	case ok && current == optionID:
		state[f.id] = []string{}
	}
	return nil
}

func (f *RadioButtonsFilter) serializeFilter() map[string]any {
	return map[string]any{
		"filter_type":   "radio_buttons",
		"id":            f.id,
		"display_hints": int(f.DisplayHints),
		"label":         f.Label,
		"options":       f.serializeOptions(),
	}
}

// RatingFilter lets the user pick a rating. Each option is one rating.
type RatingFilter struct {
	filterOptions
	id           string
	Label        string
	DisplayHints FilterDisplayHints
	OnIcon       string
	OffIcon      string
}

// NewRatingFilter creates a rating filter.
func NewRatingFilter(id, label string) *RatingFilter {
	return &RatingFilter{id: id, Label: label}
}

// ID returns the filter id.
func (f *RatingFilter) ID() string { return f.id }

// ActiveRating returns the selected rating in state.
func (f *RatingFilter) ActiveRating(state FilterState) (string, bool) {
	rating, ok := state[f.id].(string)
	return rating, ok
}

// UpdateState selects optionID, or removes the rating from state when the
// selected option is deselected.
func (f *RatingFilter) UpdateState(state FilterState, optionID string, active bool) error {
	if !f.isValidOption(optionID) {
		return fmt.Errorf("filter %q: invalid option %q", f.id, optionID)
	}
	current, ok := f.ActiveRating(state)
	switch {
	case active:
		state[f.id] = optionID
	case ok && current == optionID:
		delete(state, f.id)
	}
	return nil
}

func (f *RatingFilter) serializeFilter() map[string]any {
	m := map[string]any{
		"filter_type":   "rating",
		"id":            f.id,
		"display_hints": int(f.DisplayHints),
		"label":         f.Label,
		"options":       f.serializeOptions(),
	}
	if f.OnIcon != "" {
		m["on_icon"] = f.OnIcon
	}
	if f.OffIcon != "" {
		m["off_icon"] = f.OffIcon
	}
	return m
}

// SwitchFilter is an on/off switch.
type SwitchFilter struct {
	id           string
	Label        string
	DisplayHints FilterDisplayHints
}

// NewSwitchFilter creates a switch filter.
func NewSwitchFilter(id, label string) *SwitchFilter {
	return &SwitchFilter{id: id, Label: label}
}

// ID returns the filter id.
func (f *SwitchFilter) ID() string { return f.id }

// IsOn reports whether the switch is on in state. A missing or malformed
// value reads as off.
func (f *SwitchFilter) IsOn(state FilterState) bool {
	on, _ := state[f.id].(bool)
	return on
}

// UpdateState turns the switch on or off.
func (f *SwitchFilter) UpdateState(state FilterState, on bool) {
	state[f.id] = on
}

func (f *SwitchFilter) serializeFilter() map[string]any {
	return map[string]any{
		"filter_type":   "switch",
		"id":            f.id,
		"display_hints": int(f.DisplayHints),
		"label":         f.Label,
	}
}

// SliderType tells whether a value slider selects values below or above
// its value.
type SliderType int

const (
	SliderLessThan SliderType = 0
	SliderMoreThan SliderType = 1
)

// ValueSliderFilter selects a single value within [Min, Max].
type ValueSliderFilter struct {
	id                 string
	Label              string
	DisplayHints       FilterDisplayHints
	Type               SliderType
	DefaultValue       float64
	Min                float64
	Max                float64
	ValueLabelTemplate string
}

// NewValueSliderFilter creates a value slider filter. The default value is
// max.
func NewValueSliderFilter(id, label, labelTemplate string, min, max float64) *ValueSliderFilter {
	return &ValueSliderFilter{
		id:                 id,
		Label:              label,
		ValueLabelTemplate: labelTemplate,
		Min:                min,
		Max:                max,
		DefaultValue:       max,
	}
}

// ID returns the filter id.
func (f *ValueSliderFilter) ID() string { return f.id }

// Value returns the slider value in state.
func (f *ValueSliderFilter) Value(state FilterState) (float64, bool) {
	return number(state[f.id])
}

// UpdateState sets the slider value. Values outside [Min, Max] are
// rejected.
func (f *ValueSliderFilter) UpdateState(state FilterState, value float64) error {
	if value < f.Min || value > f.Max {
		return fmt.Errorf("filter %q: value %g outside of [%g, %g]", f.id, value, f.Min, f.Max)
	}
	state[f.id] = value
	return nil
}

func (f *ValueSliderFilter) serializeFilter() map[string]any {
	return map[string]any{
		"filter_type":    "value_slider",
		"id":             f.id,
		"display_hints":  int(f.DisplayHints),
		"label":          f.Label,
		"label_template": f.ValueLabelTemplate,
		"min":            f.Min,
		"max":            f.Max,
		"default":        f.DefaultValue,
		"slider_type":    int(f.Type),
	}
}

// RangeInputFilter takes an optional start and an optional end value.
type RangeInputFilter struct {
	id           string
	Label        string
	DisplayHints FilterDisplayHints
	StartLabel   string
	EndLabel     string
	UnitLabel    string
}

// NewRangeInputFilter creates a range input filter.
func NewRangeInputFilter(id, label, startLabel, endLabel, unitLabel string) *RangeInputFilter {
	return &RangeInputFilter{id: id, Label: label, StartLabel: startLabel, EndLabel: endLabel, UnitLabel: unitLabel}
}

// ID returns the filter id.
func (f *RangeInputFilter) ID() string { return f.id }

// StartValue returns the start of the range in state, if set.
func (f *RangeInputFilter) StartValue(state FilterState) (float64, bool) {
	return f.bound(state, 0)
}

// EndValue returns the end of the range in state, if set.
func (f *RangeInputFilter) EndValue(state FilterState) (float64, bool) {
	return f.bound(state, 1)
}

func (f *RangeInputFilter) bound(state FilterState, i int) (float64, bool) {
	bounds, ok := state[f.id].([]any)
	if !ok || len(bounds) != 2 {
		return 0, false
	}
	return number(bounds[i])
}

// UpdateState sets the range. start and end are numbers or nil for an open
// bound; with both nil the filter is removed from state. A start that is not
// below end is rejected.
func (f *RangeInputFilter) UpdateState(state FilterState, start, end any) error {
	if start == nil && end == nil {
		delete(state, f.id)
		return nil
	}
	names := [2]string{"start", "end"}
	bounds := make([]any, 2)
	for i, v := range []any{start, end} {
		if v == nil {
			continue
		}
		n, ok := number(v)
		if !ok {
			return fmt.Errorf("filter %q: bad %s value %v (%T)", f.id, names[i], v, v)
		}
		bounds[i] = n
	}
	if bounds[0] != nil && bounds[1] != nil && bounds[0].(float64) >= bounds[1].(float64) {
		return fmt.Errorf("filter %q: start %v is not below end %v", f.id, bounds[0], bounds[1])
	}
	state[f.id] = bounds
	return nil
}

func (f *RangeInputFilter) serializeFilter() map[string]any {
	return map[string]any{
		"filter_type":   "range_input",
		"id":            f.id,
		"display_hints": int(f.DisplayHints),
		"label":         f.Label,
		"start_label":   f.StartLabel,
		"end_label":     f.EndLabel,
		"unit_label":    f.UnitLabel,
	}
}
