package variant

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MarshalJSON implements json.Marshaler.
func (Null) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// MarshalJSON implements json.Marshaler. The output always reads back as a
// Float: integral values get a trailing ".0".
func (f Float) MarshalJSON() ([]byte, error) {
	s, err := formatFloat(float64(f))
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

// MarshalJSON implements json.Marshaler with sorted keys.
func (m Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.SortedKeys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", k, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := Marshal(m[k])
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", k, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON implements json.Marshaler.
func (a Array) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, elem := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		val, err := Marshal(elem)
		if err != nil {
			return nil, fmt.Errorf("array[%d]: %w", i, err)
		}
		buf.Write(val)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Map) UnmarshalJSON(data []byte) error {
	v, err := Decode(data)
	if err != nil {
		return err
	}
	switch val := v.(type) {
	case Map:
		*m = val
	case Null:
		*m = nil
	default:
		return fmt.Errorf("expected map, got %s", Kind(v))
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Array) UnmarshalJSON(data []byte) error {
	v, err := Decode(data)
	if err != nil {
		return err
	}
	switch val := v.(type) {
	case Array:
		*a = val
	case Null:
		*a = nil
	default:
		return fmt.Errorf("expected array, got %s", Kind(v))
	}
	return nil
}

// Marshal encodes a single Value with the wire encoding.
func Marshal(v Value) ([]byte, error) {
	switch val := v.(type) {
	case nil, Null:
		return []byte("null"), nil
	case Bool:
		return json.Marshal(bool(val))
	case Int:
		return json.Marshal(int64(val))
	case Float:
		return val.MarshalJSON()
	case String:
		return json.Marshal(string(val))
	case Array:
		return val.MarshalJSON()
	case Map:
		return val.MarshalJSON()
	default:
		return nil, fmt.Errorf("unknown variant type %T", v)
	}
}

// Decode parses JSON into a Value. Numbers containing a decimal point or an
// exponent become Float, all others Int.
func Decode(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return FromGo(raw)
}

// DecodeInto decodes v into target through its wire encoding, with the same
// rules json.Unmarshal applies.
func DecodeInto(v Value, target any) error {
	data, err := Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

func fromNumber(n json.Number) (Value, error) {
	s := string(n)
	if strings.ContainsAny(s, ".eE") {
		f, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %s: %w", s, err)
		}
		return Float(f), nil
	}
	i, err := n.Int64()
	if err != nil {
		// Out of int64 range: keep the magnitude as a float.
		f, ferr := n.Float64()
		if ferr != nil {
			return nil, fmt.Errorf("invalid number %s: %w", s, err)
		}
		return Float(f), nil
	}
	return Int(i), nil
}

func formatFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("unsupported float value %v", f)
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s, nil
}
