package variant

// Equal reports whether a and b hold the same value.
//
// Ints and Floats compare numerically, so Int(1) equals Float(1.0). Maps
// compare key by key and arrays element by element; every other pair must
// share a kind.
func Equal(a, b Value) bool {
	a, b = normalizeNil(a), normalizeNil(b)
	switch av := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Int:
		switch bv := b.(type) {
		case Int:
			return av == bv
		case Float:
			return float64(av) == float64(bv)
		}
		return false
	case Float:
		switch bv := b.(type) {
		case Float:
			return av == bv
		case Int:
			return float64(av) == float64(bv)
		}
		return false
	case Array:
		bv, ok := b.(Array)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Map:
		bv, ok := b.(Map)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, elem := range av {
			other, exists := bv[k]
			if !exists || !Equal(elem, other) {
				return false
			}
		}
		return true
	}
	return false
}

// Contains reports whether every key of expected is present in actual with an
// equal value. Extra keys in actual are ignored, at every level: a nested map
// in expected only has to be contained in the matching map of actual.
func Contains(actual, expected Map) bool {
	for k, want := range expected {
		got, ok := actual[k]
		if !ok {
			return false
		}
		wm, wantMap := want.(Map)
		gm, gotMap := got.(Map)
		if wantMap && gotMap {
			if !Contains(gm, wm) {
				return false
			}
			continue
		}
		if !Equal(got, want) {
			return false
		}
	}
	return true
}

func normalizeNil(v Value) Value {
	if v == nil {
		return Null{}
	}
	return v
}
