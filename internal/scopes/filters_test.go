package scopes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionSelectorFilter_SingleSelect(t *testing.T) {
	f := NewOptionSelectorFilter("f1", "Options", false)
	f.AddOption("a", "A")
	f.AddOption("b", "B")
	state := FilterState{}

	require.NoError(t, f.UpdateState(state, "a", true))
	assert.Equal(t, []string{"a"}, f.ActiveOptions(state))

	require.NoError(t, f.UpdateState(state, "b", true))
	assert.Equal(t, []string{"b"}, f.ActiveOptions(state), "single select replaces the selection")

	require.NoError(t, f.UpdateState(state, "b", false))
	assert.Empty(t, f.ActiveOptions(state))
	assert.False(t, f.HasActiveOption(state))

	err := f.UpdateState(state, "zzz", true)
	require.Error(t, err)
}

func TestOptionSelectorFilter_MultiSelect(t *testing.T) {
	f := NewOptionSelectorFilter("f1", "Options", true)
	f.AddOption("a", "A")
	f.AddOption("b", "B")
	f.AddOption("c", "C")
	state := FilterState{}

	require.NoError(t, f.UpdateState(state, "c", true))
	require.NoError(t, f.UpdateState(state, "a", true))
	require.NoError(t, f.UpdateState(state, "a", true))
	assert.Equal(t, []string{"a", "c"}, f.ActiveOptions(state))
	assert.True(t, f.HasActiveOption(state))

	require.NoError(t, f.UpdateState(state, "c", false))
	assert.Equal(t, []string{"a"}, f.ActiveOptions(state))
}

func TestOptionSelectorFilter_ActiveOptionsFromWire(t *testing.T) {
	f := NewOptionSelectorFilter("f1", "Options", true)
	f.AddOption("a", "A")
	state := FilterState{"f1": []any{"a", 3}}
	assert.Equal(t, []string{"a"}, f.ActiveOptions(state))
	assert.True(t, f.HasActiveOption(state))
}

func TestOptionSelectorFilter_Serialize(t *testing.T) {
	f := NewOptionSelectorFilter("f1", "Options", false)
	f.AddOption("a", "A")
	assert.Equal(t, map[string]any{
		"filter_type":   "option_selector",
		"id":            "f1",
		"display_hints": 0,
		"label":         "Options",
		"multi_select":  false,
		"options":       []any{map[string]any{"id": "a", "label": "A"}},
	}, f.serializeFilter())
}

func TestRadioButtonsFilter(t *testing.T) {
	f := NewRadioButtonsFilter("decade", "Decade")
	f.AddOption("60s", "Sixties")
	f.AddOption("70s", "Seventies")
	state := FilterState{}

	_, ok := f.ActiveOption(state)
	assert.False(t, ok)

	require.NoError(t, f.UpdateState(state, "60s", true))
	require.NoError(t, f.UpdateState(state, "70s", true))
	active, ok := f.ActiveOption(state)
	require.True(t, ok)
	assert.Equal(t, "70s", active)
	assert.Equal(t, []string{"70s"}, state["decade"])

	require.NoError(t, f.UpdateState(state, "60s", false))
	active, _ = f.ActiveOption(state)
	assert.Equal(t, "70s", active, "deselecting another option keeps the selection")

	require.NoError(t, f.UpdateState(state, "70s", false))
	_, ok = f.ActiveOption(state)
	assert.False(t, ok)

	assert.Error(t, f.UpdateState(state, "80s", true))

	active, ok = f.ActiveOption(FilterState{"decade": []any{"60s"}})
	assert.True(t, ok)
	assert.Equal(t, "60s", active)

	assert.Equal(t, map[string]any{
		"filter_type":   "radio_buttons",
		"id":            "decade",
		"display_hints": 0,
		"label":         "Decade",
		"options": []any{
			map[string]any{"id": "60s", "label": "Sixties"},
			map[string]any{"id": "70s", "label": "Seventies"},
		},
	}, f.serializeFilter())
}

func TestRatingFilter(t *testing.T) {
	f := NewRatingFilter("stars", "Rating")
	f.AddOption("1", "1+")
	f.AddOption("4", "4+")
	state := FilterState{}

	require.NoError(t, f.UpdateState(state, "1", true))
	require.NoError(t, f.UpdateState(state, "4", true))
	rating, ok := f.ActiveRating(state)
	require.True(t, ok)
	assert.Equal(t, "4", rating)

	require.NoError(t, f.UpdateState(state, "1", false))
	rating, _ = f.ActiveRating(state)
	assert.Equal(t, "4", rating)

	require.NoError(t, f.UpdateState(state, "4", false))
	assert.NotContains(t, state, "stars")

	assert.Error(t, f.UpdateState(state, "5", true))

	f.OnIcon = "star-on.png"
	s := f.serializeFilter()
	assert.Equal(t, "rating", s["filter_type"])
	assert.Equal(t, "star-on.png", s["on_icon"])
	assert.NotContains(t, s, "off_icon")
	assert.Len(t, s["options"], 2)
}

func TestSwitchFilter(t *testing.T) {
	f := NewSwitchFilter("vinyl", "Vinyl only")
	state := FilterState{}
	assert.False(t, f.IsOn(state))

	f.UpdateState(state, true)
	assert.True(t, f.IsOn(state))
	f.UpdateState(state, false)
	assert.False(t, f.IsOn(state))

	assert.False(t, f.IsOn(FilterState{"vinyl": "yes"}), "malformed state reads as off")

	assert.Equal(t, map[string]any{
		"filter_type":   "switch",
		"id":            "vinyl",
		"display_hints": 0,
		"label":         "Vinyl only",
	}, f.serializeFilter())
}

func TestValueSliderFilter(t *testing.T) {
	f := NewValueSliderFilter("price", "Max price", "Up to %1", 10, 100)
	assert.Equal(t, 100.0, f.DefaultValue)
	state := FilterState{}

	_, ok := f.Value(state)
	assert.False(t, ok)

	require.NoError(t, f.UpdateState(state, 50))
	v, ok := f.Value(state)
	require.True(t, ok)
	assert.Equal(t, 50.0, v)

	assert.Error(t, f.UpdateState(state, 9.5))
	assert.Error(t, f.UpdateState(state, 101))
	v, _ = f.Value(state)
	assert.Equal(t, 50.0, v, "rejected values leave the state alone")

	v, ok = f.Value(FilterState{"price": int64(20)})
	assert.True(t, ok)
	assert.Equal(t, 20.0, v)

	f.Type = SliderMoreThan
	assert.Equal(t, map[string]any{
		"filter_type":    "value_slider",
		"id":             "price",
		"display_hints":  0,
		"label":          "Max price",
		"label_template": "Up to %1",
		"min":            10.0,
		"max":            100.0,
		"default":        100.0,
		"slider_type":    1,
	}, f.serializeFilter())
}

func TestRangeInputFilter(t *testing.T) {
	f := NewRangeInputFilter("year", "Year", "From", "To", "")
	state := FilterState{}

	_, ok := f.StartValue(state)
	assert.False(t, ok)

	require.NoError(t, f.UpdateState(state, 1960, 1979.5))
	start, ok := f.StartValue(state)
	require.True(t, ok)
	assert.Equal(t, 1960.0, start)
	end, ok := f.EndValue(state)
	require.True(t, ok)
	assert.Equal(t, 1979.5, end)

	require.NoError(t, f.UpdateState(state, nil, 1970))
	_, ok = f.StartValue(state)
	assert.False(t, ok, "open start")
	end, _ = f.EndValue(state)
	assert.Equal(t, 1970.0, end)

	assert.Error(t, f.UpdateState(state, 1980, 1970))
	assert.Error(t, f.UpdateState(state, 1970, 1970))
	assert.Error(t, f.UpdateState(state, "1960", nil))

	require.NoError(t, f.UpdateState(state, nil, nil))
	assert.NotContains(t, state, "year")

	start, ok = f.StartValue(FilterState{"year": []any{int64(1960), nil}})
	assert.True(t, ok)
	assert.Equal(t, 1960.0, start)
	_, ok = f.EndValue(FilterState{"year": []any{int64(1960)}})
	assert.False(t, ok, "malformed state")

	assert.Equal(t, map[string]any{
		"filter_type":   "range_input",
		"id":            "year",
		"display_hints": 0,
		"label":         "Year",
		"start_label":   "From",
		"end_label":     "To",
		"unit_label":    "",
	}, f.serializeFilter())
}
