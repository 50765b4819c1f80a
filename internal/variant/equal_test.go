package variant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"same int", Int(1999), Int(1999), true},
		{"int vs float", Int(1), Float(1), true},
		{"float vs int", Float(2.1), Int(2), false},
		{"bool mismatch", Bool(true), Bool(false), false},
		{"string vs int", String("1"), Int(1), false},
		{"nil vs null", nil, Null{}, true},
		{"arrays", Array{Int(1999), String("string_value")}, Array{Int(1999), String("string_value")}, true},
		{"array order matters", Array{Int(1), Int(2)}, Array{Int(2), Int(1)}, false},
		{"maps", Map{"value1": Int(1)}, Map{"value1": Float(1)}, true},
		{"map extra key", Map{"a": Int(1)}, Map{"a": Int(1), "b": Int(2)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
		})
	}
}

func TestContains_SubsetSemantics(t *testing.T) {
	actual := Map{"uri": String("http://localhost/"), "test_value_int": Int(1999), "title": String("TEST")}

	assert.True(t, Contains(actual, Map{"test_value_int": Int(1999)}))
	assert.True(t, Contains(actual, Map{}))
	assert.False(t, Contains(actual, Map{"missing": Int(1)}))
	assert.False(t, Contains(actual, Map{"test_value_int": Int(2000)}))
}

func TestContains_NestedMaps(t *testing.T) {
	actual := Map{
		"page-header": Map{"logo": String("logo.svg"), "foreground-color": String("white")},
		"shape-images": Bool(false),
	}

	assert.True(t, Contains(actual, Map{"page-header": Map{"logo": String("logo.svg")}}))
	assert.False(t, Contains(actual, Map{"page-header": Map{"logo": String("other.svg")}}))
	assert.False(t, Contains(actual, Map{"page-header": String("logo.svg")}))
	assert.False(t, Contains(actual, Map{"shape-images": Map{}}))
}
