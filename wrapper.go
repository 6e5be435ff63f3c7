package dynbus

import (
	"fmt"
	"math"
	"strconv"

	"github.com/creachadair/mds/value"
)

// Wrapper is a Value with an explicit wire type, which overrides the
// type the transcoder would otherwise infer.
//
// For example, Number(5) encodes as an int32, while NewInt64(5)
// encodes as an int64. Container wrappers may additionally carry a
// cached signature, which is used verbatim instead of inferring one.
//
// Integer wrappers hold their value exactly, so the full range of
// int64 and uint64 survives encoding and decoding.
type Wrapper struct {
	typ   WireType
	sig   value.Maybe[Signature]
	inner Value
	// wide is the exact two's complement value of integer wrappers,
	// sign-extended for signed types.
	wide uint64
}

// Wrap returns a Wrapper of type t around v, after checking that v is
// a suitable value for t.
//
// Integer types accept Numbers (truncated to the width of t), integer
// Wrappers, and Strings holding a decimal, hex or octal integer
// literal. Double accepts Numbers and integer Wrappers. String-like
// types accept Strings. Array and Struct accept non-empty Sequences
// without gaps, and Array additionally requires all elements to have
// the same wire type. Dictionary accepts non-empty Mappings with basic
// keys. Variant accepts anything except Nil.
func Wrap(t WireType, v Value) (Wrapper, error) {
	if t == TypeInvalid || t >= numWireTypes || types[t].check == nil {
		return Wrapper{}, transcodeErr("wrap", ErrUnknownWireType, "cannot wrap values as %s", t)
	}
	if v == nil {
		v = Nil{}
	}
	if w, ok := v.(Wrapper); ok && w.typ == t {
		return w, nil
	}
	return types[t].check(v)
}

// MustWrap is like [Wrap], but panics if v cannot be wrapped as t.
func MustWrap(t WireType, v Value) Wrapper {
	w, err := Wrap(t, v)
	if err != nil {
		panic(err)
	}
	return w
}

// NewByte returns a byte Wrapper.
func NewByte(v uint8) Wrapper { return newInteger(TypeByte, uint64(v)) }

// NewBoolean returns a boolean Wrapper.
func NewBoolean(v bool) Wrapper { return Wrapper{typ: TypeBoolean, inner: Bool(v)} }

// NewInt16 returns an int16 Wrapper.
func NewInt16(v int16) Wrapper { return newInteger(TypeInt16, uint64(v)) }

// NewUint16 returns a uint16 Wrapper.
func NewUint16(v uint16) Wrapper { return newInteger(TypeUint16, uint64(v)) }

// NewInt32 returns an int32 Wrapper.
func NewInt32(v int32) Wrapper { return newInteger(TypeInt32, uint64(v)) }

// NewUint32 returns a uint32 Wrapper.
func NewUint32(v uint32) Wrapper { return newInteger(TypeUint32, uint64(v)) }

// NewInt64 returns an int64 Wrapper.
func NewInt64(v int64) Wrapper { return newInteger(TypeInt64, uint64(v)) }

// NewUint64 returns a uint64 Wrapper.
func NewUint64(v uint64) Wrapper { return newInteger(TypeUint64, v) }

// NewUnixFD returns a Wrapper for a unix file descriptor, identified
// by its index in the message's out-of-band descriptor list.
func NewUnixFD(idx uint32) Wrapper { return newInteger(TypeUnixFD, uint64(idx)) }

// NewDouble returns a double Wrapper.
func NewDouble(v float64) Wrapper { return Wrapper{typ: TypeDouble, inner: Number(v)} }

// NewString returns a string Wrapper.
func NewString(s string) Wrapper { return Wrapper{typ: TypeString, inner: String(s)} }

// NewObjectPath returns an object path Wrapper, or an error if p is
// not a valid object path.
func NewObjectPath(p string) (Wrapper, error) { return Wrap(TypeObjectPath, String(p)) }

// NewSignature returns a signature Wrapper, or an error if sig is not
// a valid signature.
func NewSignature(sig string) (Wrapper, error) { return Wrap(TypeSignature, String(sig)) }

// NewArray returns an array Wrapper holding elems. The array's
// element type is inferred from elems, which must be non-empty and
// all of the same wire type.
func NewArray(elems ...Value) (Wrapper, error) { return Wrap(TypeArray, Sequence(elems)) }

// NewTypedArray returns an array Wrapper with element signature
// elemSig. The signature is used as given, elems are not checked
// against it. Unlike NewArray, elems may be empty.
func NewTypedArray(elemSig string, elems ...Value) (Wrapper, error) {
	sig, err := ParseSignature("a" + elemSig)
	if err != nil {
		return Wrapper{}, err
	}
	if !sig.isSingle() {
		return Wrapper{}, transcodeErr("wrap", ErrInvalidSignature, "array element signature %q is not a single complete type", elemSig)
	}
	return Wrapper{typ: TypeArray, sig: value.Just(sig), inner: Sequence(elems)}, nil
}

// NewStruct returns a struct Wrapper with the given fields.
func NewStruct(fields ...Value) (Wrapper, error) { return Wrap(TypeStruct, Sequence(fields)) }

// NewVariant returns a variant Wrapper boxing v. The variant's inner
// signature is inferred from v when the variant is encoded.
func NewVariant(v Value) (Wrapper, error) { return Wrap(TypeVariant, v) }

// NewTypedVariant returns a variant Wrapper boxing v, which encodes v
// with the given signature instead of an inferred one.
func NewTypedVariant(sig string, v Value) (Wrapper, error) {
	w, err := NewVariant(v)
	if err != nil {
		return Wrapper{}, err
	}
	inner, err := ParseSignature(sig)
	if err != nil {
		return Wrapper{}, err
	}
	if !inner.isSingle() {
		return Wrapper{}, transcodeErr("wrap", ErrInvalidSignature, "variant signature %q is not a single complete type", sig)
	}
	w.sig = value.Just("v" + inner)
	return w, nil
}

// NewDictionary returns a dictionary Wrapper for m. Its signature is
// inferred from the first key of m, with variant values.
func NewDictionary(m *Mapping) (Wrapper, error) { return Wrap(TypeDictionary, m) }

// NewTypedDictionary returns a dictionary Wrapper for m with the
// given key and value signatures. Unlike NewDictionary, m may be
// empty or nil.
func NewTypedDictionary(keySig, valSig string, m *Mapping) (Wrapper, error) {
	sig, err := ParseSignature("a{" + keySig + valSig + "}")
	if err != nil {
		return Wrapper{}, err
	}
	if m == nil {
		m = &Mapping{}
	}
	return Wrapper{typ: TypeDictionary, sig: value.Just(sig), inner: m}, nil
}

// Type returns the Wrapper's wire type.
func (w Wrapper) Type() WireType { return w.typ }

// Inner returns the wrapped value. Integer wrappers return a Number,
// which may be inexact for 64-bit values beyond 2^53; use
// [Wrapper.Int64] or [Wrapper.Uint64] to get the exact value.
func (w Wrapper) Inner() Value {
	if w.inner == nil {
		return Nil{}
	}
	return w.inner
}

// Signature returns the Wrapper's cached signature, if it has one.
func (w Wrapper) Signature() (Signature, bool) {
	return w.sig.GetOK()
}

// Int64 returns the exact value of an integer Wrapper as an int64.
func (w Wrapper) Int64() int64 { return int64(w.wide) }

// Uint64 returns the exact value of an integer Wrapper as a uint64.
func (w Wrapper) Uint64() uint64 { return w.wide }

// Equal reports whether w and o have the same type, cached signature
// and contents.
func (w Wrapper) Equal(o Wrapper) bool {
	return w.typ == o.typ && w.sig == o.sig && w.wide == o.wide && Equal(w.Inner(), o.Inner())
}

func (w Wrapper) String() string {
	if integerTypes.Has(w.typ) {
		if signedTypes.Has(w.typ) {
			return fmt.Sprintf("%s(%d)", w.typ, w.Int64())
		}
		return fmt.Sprintf("%s(%d)", w.typ, w.Uint64())
	}
	if sig, ok := w.sig.GetOK(); ok {
		return fmt.Sprintf("%s<%s>(%s)", w.typ, sig, valueString(w.Inner()))
	}
	return fmt.Sprintf("%s(%s)", w.typ, valueString(w.Inner()))
}

// newInteger returns an integer Wrapper of type t holding bits,
// narrowed to the width of t.
func newInteger(t WireType, bits uint64) Wrapper {
	var (
		wide uint64
		num  float64
	)
	switch t {
	case TypeByte:
		wide = uint64(uint8(bits))
		num = float64(wide)
	case TypeInt16:
		v := int16(bits)
		wide, num = uint64(v), float64(v)
	case TypeUint16:
		wide = uint64(uint16(bits))
		num = float64(wide)
	case TypeInt32:
		v := int32(bits)
		wide, num = uint64(v), float64(v)
	case TypeUint32, TypeUnixFD:
		wide = uint64(uint32(bits))
		num = float64(wide)
	case TypeInt64:
		v := int64(bits)
		wide, num = bits, float64(v)
	case TypeUint64:
		wide, num = bits, float64(bits)
	default:
		panic(fmt.Sprintf("newInteger called with non-integer type %s", t))
	}
	return Wrapper{typ: t, inner: Number(num), wide: wide}
}

// integerBits returns v as a 64-bit two's complement pattern,
// truncating any fractional part. Conversion does not range check:
// out of range values are narrowed like a C cast.
func integerBits(v Value) (uint64, bool) {
	switch v := v.(type) {
	case Number:
		f := float64(v)
		if f >= math.MaxInt64 {
			return uint64(f), true
		}
		return uint64(int64(f)), true
	case Wrapper:
		switch {
		case integerTypes.Has(v.typ):
			return v.wide, true
		case v.typ == TypeDouble:
			return integerBits(v.inner)
		}
	}
	return 0, false
}

// floatValue returns v as a float64.
func floatValue(v Value) (float64, bool) {
	switch v := v.(type) {
	case Number:
		return float64(v), true
	case Wrapper:
		switch {
		case v.typ == TypeDouble:
			return floatValue(v.inner)
		case signedTypes.Has(v.typ):
			return float64(int64(v.wide)), true
		case integerTypes.Has(v.typ):
			return float64(v.wide), true
		}
	}
	return 0, false
}

// stringValue returns v as a string, if v is a String or a wrapped
// string-like value.
func stringValue(v Value) (string, bool) {
	switch v := v.(type) {
	case String:
		return string(v), true
	case Wrapper:
		if stringTypes.Has(v.typ) {
			return string(v.inner.(String)), true
		}
	}
	return "", false
}

// boolValue returns v as a bool, if v is a Bool or a boolean Wrapper.
func boolValue(v Value) (bool, bool) {
	switch v := v.(type) {
	case Bool:
		return bool(v), true
	case Wrapper:
		if v.typ == TypeBoolean {
			return bool(v.inner.(Bool)), true
		}
	}
	return false, false
}

func wrapInteger(t WireType) func(Value) (Wrapper, error) {
	return func(v Value) (Wrapper, error) {
		if s, ok := v.(String); ok {
			bits, err := parseIntegerLiteral(t, string(s))
			if err != nil {
				return Wrapper{}, transcodeErr("wrap", ErrTypeMismatch, "%s: %v", t, err)
			}
			return newInteger(t, bits), nil
		}
		bits, ok := integerBits(v)
		if !ok {
			return Wrapper{}, transcodeErr("wrap", ErrTypeMismatch, "cannot wrap %s as %s", v.Kind(), t)
		}
		return newInteger(t, bits), nil
	}
}

func parseIntegerLiteral(t WireType, s string) (uint64, error) {
	if signedTypes.Has(t) {
		i, err := strconv.ParseInt(s, 0, 64)
		return uint64(i), err
	}
	return strconv.ParseUint(s, 0, 64)
}

func wrapBoolean(v Value) (Wrapper, error) {
	b, ok := boolValue(v)
	if !ok {
		return Wrapper{}, transcodeErr("wrap", ErrTypeMismatch, "cannot wrap %s as boolean", v.Kind())
	}
	return NewBoolean(b), nil
}

func wrapDouble(v Value) (Wrapper, error) {
	f, ok := floatValue(v)
	if !ok {
		return Wrapper{}, transcodeErr("wrap", ErrTypeMismatch, "cannot wrap %s as double", v.Kind())
	}
	return NewDouble(f), nil
}

func wrapString(t WireType) func(Value) (Wrapper, error) {
	return func(v Value) (Wrapper, error) {
		s, ok := stringValue(v)
		if !ok {
			return Wrapper{}, transcodeErr("wrap", ErrTypeMismatch, "cannot wrap %s as %s", v.Kind(), t)
		}
		switch t {
		case TypeObjectPath:
			if err := validateObjectPath(s); err != nil {
				return Wrapper{}, transcodeErr("wrap", ErrTypeMismatch, "%v", err)
			}
		case TypeSignature:
			if _, err := ParseSignature(s); err != nil {
				return Wrapper{}, err
			}
		}
		return Wrapper{typ: t, inner: String(s)}, nil
	}
}

func wrapArray(v Value) (Wrapper, error) {
	seq, ok := elementsOf(v)
	if !ok {
		return Wrapper{}, transcodeErr("wrap", ErrTypeMismatch, "cannot wrap %s as array", v.Kind())
	}
	if _, err := arrayElemType(seq, 0); err != nil {
		return Wrapper{}, err
	}
	return Wrapper{typ: TypeArray, inner: seq}, nil
}

func wrapStruct(v Value) (Wrapper, error) {
	seq, ok := elementsOf(v)
	if !ok {
		return Wrapper{}, transcodeErr("wrap", ErrTypeMismatch, "cannot wrap %s as struct", v.Kind())
	}
	if len(seq) == 0 {
		return Wrapper{}, transcodeErr("wrap", ErrAmbiguousType, "struct must have at least one field")
	}
	if seq.isGappy() {
		return Wrapper{}, transcodeErr("wrap", ErrTypeMismatch, "struct fields cannot be nil")
	}
	return Wrapper{typ: TypeStruct, inner: seq}, nil
}

func wrapVariant(v Value) (Wrapper, error) {
	if v.Kind() == KindNil {
		return Wrapper{}, transcodeErr("wrap", ErrTypeMismatch, "cannot box nil in a variant")
	}
	return Wrapper{typ: TypeVariant, inner: v}, nil
}

func wrapDictionary(v Value) (Wrapper, error) {
	m, ok := v.(*Mapping)
	if !ok {
		return Wrapper{}, transcodeErr("wrap", ErrTypeMismatch, "cannot wrap %s as dictionary", v.Kind())
	}
	if _, err := classifyMapping(m, 0); err != nil {
		return Wrapper{}, err
	}
	return Wrapper{typ: TypeDictionary, inner: m}, nil
}

// elementsOf returns the elements of an array-like value: a Sequence,
// or an array or struct Wrapper.
func elementsOf(v Value) (Sequence, bool) {
	switch v := v.(type) {
	case Sequence:
		return v, true
	case Wrapper:
		if v.typ == TypeArray || v.typ == TypeStruct {
			return v.inner.(Sequence), true
		}
	}
	return nil, false
}
