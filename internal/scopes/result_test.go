package scopes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/goscope/internal/variant"
)

func TestResult_SetAndGet(t *testing.T) {
	cat := &Category{id: "category"}
	res := NewCategorisedResult(cat)

	require.NoError(t, res.SetURI("http://localhost/"))
	require.NoError(t, res.SetTitle("TEST"))
	require.NoError(t, res.Set("test_value_int", 1999))
	require.NoError(t, res.Set("test_value_float", 1.999))
	require.NoError(t, res.Set("test_value_map", map[string]any{"value1": 1, "value2": "string_value"}))

	assert.Equal(t, "http://localhost/", res.URI())
	assert.Equal(t, "TEST", res.Title())
	assert.Equal(t, "", res.Art(), "unset attribute reads as empty")
	assert.Same(t, cat, res.Category())

	var n int
	require.NoError(t, res.Get("test_value_int", &n))
	assert.Equal(t, 1999, n)

	var m map[string]any
	require.NoError(t, res.Get("test_value_map", &m))
	assert.Equal(t, "string_value", m["value2"])

	var missing string
	err := res.Get("nope", &missing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"nope" not set`)

	attrs := res.Attrs()
	assert.Equal(t, variant.Float(1.999), attrs["test_value_float"])
}

func TestResult_SetRejectsUnencodable(t *testing.T) {
	res := NewCategorisedResult(&Category{id: "c"})
	err := res.Set("bad", func() {})
	require.Error(t, err)
	assert.False(t, res.Has("bad"))
}

func TestResult_InterceptActivation(t *testing.T) {
	res := NewCategorisedResult(&Category{id: "c"})
	assert.False(t, res.InterceptActivation())
	res.SetInterceptActivation()

	w := res.wire("c")
	assert.True(t, w.InterceptActivation)
	assert.Equal(t, "c", w.Category)
}

func TestResult_WireIsCopy(t *testing.T) {
	res := NewCategorisedResult(&Category{id: "c"})
	require.NoError(t, res.SetURI("a"))

	w := res.wire("c")
	require.NoError(t, res.SetURI("b"))

	assert.Equal(t, variant.String("a"), w.Attrs["uri"])
}
