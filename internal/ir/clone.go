package ir

// Clone returns a structural deep copy of v.
// A nil value (including a nil entry inside an object or array) becomes IRNull
// so cloned trees never contain untyped nils.
func Clone(v IRValue) IRValue {
	switch val := v.(type) {
	case nil:
		return IRNull{}
	case IRObject:
		return CloneObject(val)
	case IRArray:
		if val == nil {
			return IRArray{}
		}
		arr := make(IRArray, len(val))
		for i, elem := range val {
			arr[i] = Clone(elem)
		}
		return arr
	default:
		// Scalars are immutable values.
		return val
	}
}

// CloneObject returns a deep copy of obj. A nil object yields an empty one.
func CloneObject(obj IRObject) IRObject {
	out := make(IRObject, len(obj))
	for k, v := range obj {
		out[k] = Clone(v)
	}
	return out
}

// Equal reports whether a and b are structurally equal.
// Nil and IRNull compare equal; a nil object equals an empty one.
func Equal(a, b IRValue) bool {
	if a == nil {
		a = IRNull{}
	}
	if b == nil {
		b = IRNull{}
	}

	switch av := a.(type) {
	case IRObject:
		bv, ok := b.(IRObject)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, elem := range av {
			other, ok := bv[k]
			if !ok || !Equal(elem, other) {
				return false
			}
		}
		return true
	case IRArray:
		bv, ok := b.(IRArray)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}
