// Package variant models the dynamically typed values that travel between a
// scope and its client: result attributes, widget attributes, scope data,
// settings and filter state.
//
// A Value is one of Null, Bool, Int, Float, String, Array or Map. Ints and
// floats are kept apart on the wire: a Float is always encoded with a decimal
// point or an exponent, so 2.0 never comes back as the integer 2.
//
// Two encodings are provided:
//
//   - MarshalJSON / Decode: the wire encoding used by the scope protocol.
//   - Canonical: deterministic JSON (UTF-16 key order, NFC strings, no HTML
//     escaping) used for golden snapshots.
package variant
