package dynbus

import (
	"errors"
	"fmt"
)

const (
	// MaxSignatureLength is the maximum length in bytes of a DBus
	// signature.
	MaxSignatureLength = 255
	// MaxDepth is the maximum number of containers that a value or
	// signature may nest.
	MaxDepth = 32
)

// A Signature is a DBus type signature: a sequence of zero or more
// complete types, such as "a{sv}" or "(isb)s".
type Signature string

// ParseSignature checks that sig is a valid DBus type signature.
func ParseSignature(sig string) (Signature, error) {
	if len(sig) > MaxSignatureLength {
		return "", transcodeErr("signature", ErrSignatureTooLong, "%d bytes", len(sig))
	}
	rest := sig
	for rest != "" {
		var err error
		_, rest, err = parseOne(rest, 0, false)
		if err != nil {
			if errors.Is(err, ErrRecursionTooDeep) {
				return "", transcodeErr("signature", ErrRecursionTooDeep, "%q nests more than %d containers", sig, MaxDepth)
			}
			return "", transcodeErr("signature", ErrInvalidSignature, "%q: %v", sig, err)
		}
	}
	return Signature(sig), nil
}

// MustParseSignature is like [ParseSignature], but panics if sig is
// invalid.
func MustParseSignature(sig string) Signature {
	ret, err := ParseSignature(sig)
	if err != nil {
		panic(err)
	}
	return ret
}

// parseOne consumes the first complete type from the front of sig,
// and returns its WireType as well as the remainder of the type
// string.
func parseOne(sig string, depth int, inArray bool) (t WireType, rest string, err error) {
	if sig == "" {
		return TypeInvalid, "", errors.New("missing type")
	}
	if depth > MaxDepth {
		return TypeInvalid, "", ErrRecursionTooDeep
	}
	t, ok := codeToType[sig[0]]
	if !ok {
		return TypeInvalid, "", fmt.Errorf("unknown type specifier %q", sig[0])
	}

	switch t {
	case TypeArray:
		elem, rest, err := parseOne(sig[1:], depth+1, true)
		if err != nil {
			return TypeInvalid, "", err
		}
		if elem == TypeDictEntry {
			return TypeDictionary, rest, nil
		}
		return TypeArray, rest, nil
	case TypeStruct:
		rest := sig[1:]
		n := 0
		for rest != "" && rest[0] != ')' {
			_, rest, err = parseOne(rest, depth+1, false)
			if err != nil {
				return TypeInvalid, "", err
			}
			n++
		}
		if rest == "" {
			return TypeInvalid, "", errors.New("missing closing ) in struct definition")
		}
		if n == 0 {
			return TypeInvalid, "", errors.New("empty struct")
		}
		return TypeStruct, rest[1:], nil
	case TypeDictEntry:
		if !inArray {
			return TypeInvalid, "", errors.New("dict entry type found outside array")
		}
		// The enclosing array already counted toward depth.
		key, rest, err := parseOne(sig[1:], depth, false)
		if err != nil {
			return TypeInvalid, "", err
		}
		if !key.IsBasic() {
			return TypeInvalid, "", fmt.Errorf("invalid dict entry key type %s, must be a basic type", key)
		}
		if rest == "" || rest[0] == '}' {
			return TypeInvalid, "", errors.New("missing dict entry value type")
		}
		_, rest, err = parseOne(rest, depth, false)
		if err != nil {
			return TypeInvalid, "", err
		}
		if rest == "" || rest[0] != '}' {
			return TypeInvalid, "", errors.New("missing closing } in dict entry definition")
		}
		return TypeDictEntry, rest[1:], nil
	default:
		return t, sig[1:], nil
	}
}

// String returns the signature string.
func (s Signature) String() string { return string(s) }

// IsZero reports whether s is the empty signature, which describes
// no values.
func (s Signature) IsZero() bool { return s == "" }

// Types returns the complete types that make up s. s must be valid.
func (s Signature) Types() []Signature {
	var ret []Signature
	for it := s.Iter(); it.CurrentType() != TypeInvalid; it.Next() {
		ret = append(ret, it.Current())
	}
	return ret
}

// isSingle reports whether s is exactly one complete type.
func (s Signature) isSingle() bool {
	return s != "" && completeLen(string(s)) == len(s)
}

// completeLen returns the length of the first complete type in sig,
// which must be a valid signature.
func completeLen(sig string) int {
	switch sig[0] {
	case 'a':
		return 1 + completeLen(sig[1:])
	case '(', '{':
		depth := 0
		for i := range len(sig) {
			switch sig[i] {
			case '(', '{':
				depth++
			case ')', '}':
				depth--
				if depth == 0 {
					return i + 1
				}
			}
		}
		return len(sig)
	default:
		return 1
	}
}

// Iter returns a SignatureIter positioned at the first complete type
// of s.
func (s Signature) Iter() *SignatureIter {
	return &SignatureIter{rest: string(s)}
}

// A SignatureIter walks the complete types of a valid signature, and
// can descend into container types.
type SignatureIter struct {
	rest string
}

// CurrentType returns the wire type of the current complete type, or
// TypeInvalid if the iterator is exhausted. Dictionaries report
// TypeArray, as they do on the wire; use [SignatureIter.ElementType]
// to tell them apart.
func (it *SignatureIter) CurrentType() WireType {
	if it.rest == "" {
		return TypeInvalid
	}
	return codeToType[it.rest[0]]
}

// ElementType returns the element type of the current array, which
// is TypeDictEntry for dictionaries. It returns TypeInvalid if the
// current type is not an array.
func (it *SignatureIter) ElementType() WireType {
	if it.CurrentType() != TypeArray {
		return TypeInvalid
	}
	return codeToType[it.rest[1]]
}

// Current returns the current complete type.
func (it *SignatureIter) Current() Signature {
	if it.rest == "" {
		return ""
	}
	return Signature(it.rest[:completeLen(it.rest)])
}

// Next advances to the next complete type, and reports whether there
// is one.
func (it *SignatureIter) Next() bool {
	if it.rest != "" {
		it.rest = it.rest[completeLen(it.rest):]
	}
	return it.rest != ""
}

// remaining returns the complete types from the current one onwards.
func (it *SignatureIter) remaining() []Signature {
	return Signature(it.rest).Types()
}

// Recurse returns an iterator over the contents of the current
// container: the element type of an array, the fields of a struct, or
// the key and value of a dict entry. It returns an exhausted iterator
// for basic types and variants.
func (it *SignatureIter) Recurse() *SignatureIter {
	cur := string(it.Current())
	switch it.CurrentType() {
	case TypeArray:
		return &SignatureIter{rest: cur[1:]}
	case TypeStruct, TypeDictEntry:
		return &SignatureIter{rest: cur[1 : len(cur)-1]}
	default:
		return &SignatureIter{}
	}
}

// SignatureOf returns the signature of vs, inferring the type of each
// value as [Classify] does.
//
// Arrays take their element signature from their first element
// alone, since classification already established that all elements
// have the same wire type. Dictionaries take their key signature from
// their first key, and always have variant values. Wrappers with a
// cached signature contribute it verbatim.
func SignatureOf(vs ...Value) (Signature, error) {
	var buf []byte
	for i, v := range vs {
		var err error
		buf, err = appendSignature(buf, v, 0)
		if err != nil {
			if len(vs) > 1 {
				err = atPath(err, indexPath(i))
			}
			return "", err
		}
	}
	if len(buf) > MaxSignatureLength {
		return "", transcodeErr("signature", ErrSignatureTooLong, "%d bytes", len(buf))
	}
	return Signature(buf), nil
}

func appendSignature(buf []byte, v Value, depth int) ([]byte, error) {
	if len(buf) >= MaxSignatureLength {
		return nil, transcodeErr("signature", ErrSignatureTooLong, "more than %d bytes", MaxSignatureLength)
	}
	if depth > MaxDepth {
		return nil, transcodeErr("signature", ErrRecursionTooDeep, "value nests more than %d containers", MaxDepth)
	}
	if w, ok := v.(Wrapper); ok && w.typ != TypeVariant {
		if sig, ok := w.sig.GetOK(); ok {
			return append(buf, sig...), nil
		}
	}

	t, err := classify(v, depth)
	if err != nil {
		return nil, err
	}
	switch t {
	case TypeArray:
		elems, _ := elementsOf(v)
		if len(elems) == 0 {
			return nil, transcodeErr("signature", ErrAmbiguousType, "empty array")
		}
		buf, err = appendSignature(append(buf, 'a'), elems[0], depth+1)
		if err != nil {
			return nil, atPath(err, indexPath(0))
		}
		return buf, nil
	case TypeStruct:
		elems, _ := elementsOf(v)
		buf = append(buf, '(')
		for i, e := range elems {
			buf, err = appendSignature(buf, e, depth+1)
			if err != nil {
				return nil, atPath(err, indexPath(i))
			}
		}
		return append(buf, ')'), nil
	case TypeDictionary:
		k, ok := firstKey(v)
		if !ok {
			return nil, transcodeErr("signature", ErrAmbiguousType, "empty dictionary")
		}
		buf, err = appendSignature(append(buf, 'a', '{'), k, depth+1)
		if err != nil {
			return nil, atPath(err, keyPath(k))
		}
		return append(buf, 'v', '}'), nil
	default:
		return append(buf, t.Code()), nil
	}
}

// firstKey returns the first key of a dictionary-like value.
func firstKey(v Value) (Value, bool) {
	entries, ok := dictEntries(v)
	if !ok {
		return nil, false
	}
	for k := range entries {
		return k, true
	}
	return nil, false
}
