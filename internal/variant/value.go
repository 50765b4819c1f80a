package variant

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface implemented by the variant kinds.
type Value interface {
	variant()
}

// Null is the absent value.
type Null struct{}

// Bool is a boolean value.
type Bool bool

// Int is a 64-bit integer value.
type Int int64

// Float is a double precision value.
type Float float64

// String is a string value.
type String string

// Array is an ordered list of values.
type Array []Value

// Map is a string-keyed dictionary of values.
type Map map[string]Value

func (Null) variant()   {}
func (Bool) variant()   {}
func (Int) variant()    {}
func (Float) variant()  {}
func (String) variant() {}
func (Array) variant()  {}
func (Map) variant()    {}

// Kind names the variant kind of v, for error messages.
func Kind(v Value) string {
	switch v.(type) {
	case nil, Null:
		return "null"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case String:
		return "string"
	case Array:
		return "array"
	case Map:
		return "map"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// SortedKeys returns the keys of m ordered by UTF-16 code units.
func (m Map) SortedKeys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

// Clone returns a deep copy of m.
func (m Map) Clone() Map {
	if m == nil {
		return nil
	}
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = clone(v)
	}
	return out
}

func clone(v Value) Value {
	switch val := v.(type) {
	case Array:
		out := make(Array, len(val))
		for i, elem := range val {
			out[i] = clone(elem)
		}
		return out
	case Map:
		return val.Clone()
	default:
		return v
	}
}

func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// FromGo converts a Go value into a Value.
//
// Scalars, []any, map[string]any, json.Number and Values are converted
// directly. Other slices, maps and structs go through their JSON encoding, so
// anything json.Marshal accepts is accepted here.
func FromGo(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint:
		return Int(val), nil
	case uint64:
		return Int(val), nil
	case float32:
		return Float(val), nil
	case float64:
		return Float(val), nil
	case json.Number:
		return fromNumber(val)
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			conv, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = conv
		}
		return arr, nil
	case []string:
		arr := make(Array, len(val))
		for i, elem := range val {
			arr[i] = String(elem)
		}
		return arr, nil
	case map[string]any:
		m := make(Map, len(val))
		for k, elem := range val {
			conv, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("map[%q]: %w", k, err)
			}
			m[k] = conv
		}
		return m, nil
	case map[string]string:
		m := make(Map, len(val))
		for k, elem := range val {
			m[k] = String(elem)
		}
		return m, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Struct, reflect.Pointer:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("convert %T: %w", v, err)
		}
		return Decode(data)
	case reflect.Chan, reflect.Func, reflect.Complex64, reflect.Complex128, reflect.UnsafePointer:
		return nil, fmt.Errorf("unsupported type %T", v)
	}

	// Named scalar types (type Status int, etc.)
	switch rv.Kind() {
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Int(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return Float(rv.Float()), nil
	}
	return nil, fmt.Errorf("unsupported type %T", v)
}

// MustFromGo is FromGo for literals known to be convertible.
func MustFromGo(v any) Value {
	val, err := FromGo(v)
	if err != nil {
		panic(err)
	}
	return val
}

// ToGo converts a Value into plain Go values: nil, bool, int64, float64,
// string, []any and map[string]any.
func ToGo(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case Bool:
		return bool(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case String:
		return string(val)
	case Array:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToGo(elem)
		}
		return out
	case Map:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = ToGo(elem)
		}
		return out
	}
	return nil
}
