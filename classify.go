package dynbus

import (
	"iter"
	"math"
)

// maxExactInteger is the largest magnitude up to which a Number
// represents every integer exactly: 2^53, from the 52 bit mantissa
// of a float64 plus its implicit leading bit.
const maxExactInteger = 1 << 53

// Classify returns the wire type that v encodes to when no signature
// is given.
//
// Wrappers classify as their own type. Bools classify as booleans and
// Strings as strings. Numbers with a fractional part classify as
// doubles, integral Numbers as the first of int32, uint32 and int64
// that holds them exactly, or as a double if none does.
//
// A Sequence classifies as an array if all its elements classify to
// the same wire type, otherwise as a struct. Only the elements' own
// wire types are compared, not the shapes nested inside them: [[1],
// ["a"]] is an array of arrays, whose inferred signature "aai" the
// second element then fails to marshal against. A Sequence with gaps
// (Nil elements) classifies as a dictionary keyed by the zero-based
// position of its non-Nil elements. A Mapping classifies as a
// dictionary if all its keys classify to basic types and all its
// values classify successfully.
//
// Empty Sequences and Mappings return [ErrAmbiguousType], since there
// is no element to infer a type from. Nil returns [ErrTypeMismatch].
func Classify(v Value) (WireType, error) {
	return classify(v, 0)
}

func classify(v Value, depth int) (WireType, error) {
	if depth > MaxDepth {
		return TypeInvalid, transcodeErr("classify", ErrRecursionTooDeep, "value nests more than %d containers", MaxDepth)
	}
	switch v := v.(type) {
	case nil, Nil:
		return TypeInvalid, transcodeErr("classify", ErrTypeMismatch, "nil has no wire type")
	case Wrapper:
		if v.typ == TypeInvalid {
			return TypeInvalid, transcodeErr("classify", ErrTypeMismatch, "zero Wrapper has no wire type")
		}
		return v.typ, nil
	case Bool:
		return TypeBoolean, nil
	case String:
		return TypeString, nil
	case Number:
		return classifyNumber(float64(v)), nil
	case Sequence:
		return classifySequence(v, depth)
	case *Mapping:
		return classifyMapping(v, depth)
	}
	return TypeInvalid, transcodeErr("classify", ErrTypeMismatch, "unknown value %T", v)
}

func classifyNumber(f float64) WireType {
	switch {
	case math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f):
		return TypeDouble
	case f >= math.MinInt32 && f <= math.MaxInt32:
		return TypeInt32
	case f >= 0 && f <= math.MaxUint32:
		return TypeUint32
	case f >= -maxExactInteger && f <= maxExactInteger:
		return TypeInt64
	default:
		return TypeDouble
	}
}

// classifySequence tries, in order, array, struct and dictionary. The
// order matters: marshalling relies on a dense homogeneous sequence
// never being treated as a struct.
func classifySequence(s Sequence, depth int) (WireType, error) {
	if len(s) == 0 {
		return TypeInvalid, transcodeErr("classify", ErrAmbiguousType, "empty sequence")
	}
	if s.isGappy() {
		return classifyEntries(gappyEntries(s), depth)
	}
	first := TypeInvalid
	same := true
	for i, e := range s {
		t, err := classify(e, depth+1)
		if err != nil {
			return TypeInvalid, atPath(err, indexPath(i))
		}
		if i == 0 {
			first = t
		} else if t != first {
			same = false
		}
	}
	if same {
		return TypeArray, nil
	}
	return TypeStruct, nil
}

// arrayElemType returns the wire type shared by all elements of s, or
// an error if s cannot be an array.
func arrayElemType(s Sequence, depth int) (WireType, error) {
	if len(s) == 0 {
		return TypeInvalid, transcodeErr("classify", ErrAmbiguousType, "empty array")
	}
	if s.isGappy() {
		return TypeInvalid, transcodeErr("classify", ErrAmbiguousType, "array has nil elements")
	}
	var elem WireType
	for i, e := range s {
		t, err := classify(e, depth+1)
		if err != nil {
			return TypeInvalid, atPath(err, indexPath(i))
		}
		if i == 0 {
			elem = t
		} else if t != elem {
			return TypeInvalid, transcodeErr("classify", ErrAmbiguousType, "array mixes element types %s and %s", elem, t)
		}
	}
	return elem, nil
}

func classifyMapping(m *Mapping, depth int) (WireType, error) {
	if m.Len() == 0 {
		return TypeInvalid, transcodeErr("classify", ErrAmbiguousType, "empty mapping")
	}
	return classifyEntries(m.All(), depth)
}

func classifyEntries(entries iter.Seq2[Value, Value], depth int) (WireType, error) {
	n := 0
	for k, v := range entries {
		n++
		kt, err := classify(k, depth+1)
		if err != nil {
			return TypeInvalid, atPath(err, keyPath(k))
		}
		if !kt.IsBasic() {
			return TypeInvalid, atPath(transcodeErr("classify", ErrTypeMismatch, "dictionary key has non-basic type %s", kt), keyPath(k))
		}
		if _, err := classify(v, depth+1); err != nil {
			return TypeInvalid, atPath(err, keyPath(k))
		}
	}
	if n == 0 {
		return TypeInvalid, transcodeErr("classify", ErrAmbiguousType, "dictionary has no entries")
	}
	return TypeDictionary, nil
}

// gappyEntries iterates over the non-Nil elements of s, keyed by
// their position.
func gappyEntries(s Sequence) iter.Seq2[Value, Value] {
	return func(yield func(Value, Value) bool) {
		for i, v := range s {
			if v == nil || v.Kind() == KindNil {
				continue
			}
			if !yield(Number(i), v) {
				return
			}
		}
	}
}

// dictEntries returns the key/value pairs of a dictionary-like value:
// a Mapping, a dictionary Wrapper, or a Sequence with gaps.
func dictEntries(v Value) (iter.Seq2[Value, Value], bool) {
	switch v := v.(type) {
	case *Mapping:
		return v.All(), true
	case Sequence:
		return gappyEntries(v), true
	case Wrapper:
		if v.typ == TypeDictionary {
			return v.inner.(*Mapping).All(), true
		}
	}
	return nil, false
}
