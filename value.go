package dynbus

import (
	"fmt"
	"iter"
	"math"
	"strconv"
	"strings"
)

// Kind identifies which variant of [Value] a value is.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindNumber
	KindString
	KindSequence
	KindMapping
	KindWrapper
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	case KindWrapper:
		return "wrapper"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Value is a dynamically typed value that can be converted to and
// from the DBus wire format.
//
// The set of Values is closed: Nil, Bool, Number, String, Sequence,
// *Mapping and Wrapper are the only implementations.
type Value interface {
	// Kind reports which variant the Value is.
	Kind() Kind
	isValue()
}

// Nil is the absent value. It has no wire representation, and marks
// a gap when it appears inside a Sequence.
type Nil struct{}

// Bool is a boolean.
type Bool bool

// Number is a number. Numbers carry no integer width: the transcoder
// infers one from the value, or takes it from a signature.
type Number float64

// String is a string.
type String string

// Sequence is an ordered list of values.
type Sequence []Value

func (Nil) Kind() Kind      { return KindNil }
func (Bool) Kind() Kind     { return KindBool }
func (Number) Kind() Kind   { return KindNumber }
func (String) Kind() Kind   { return KindString }
func (Sequence) Kind() Kind { return KindSequence }
func (*Mapping) Kind() Kind { return KindMapping }
func (Wrapper) Kind() Kind  { return KindWrapper }

func (Nil) isValue()      {}
func (Bool) isValue()     {}
func (Number) isValue()   {}
func (String) isValue()   {}
func (Sequence) isValue() {}
func (*Mapping) isValue() {}
func (Wrapper) isValue()  {}

func (Nil) String() string { return "nil" }

func (b Bool) String() string { return strconv.FormatBool(bool(b)) }

func (n Number) String() string {
	return strconv.FormatFloat(float64(n), 'g', -1, 64)
}

func (s String) String() string { return strconv.Quote(string(s)) }

func (s Sequence) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range s {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(valueString(v))
	}
	b.WriteByte(']')
	return b.String()
}

func valueString(v Value) string {
	if v == nil {
		return "<nil>"
	}
	return fmt.Sprint(v)
}

// isGappy reports whether s has Nil holes.
func (s Sequence) isGappy() bool {
	for _, v := range s {
		if v == nil || v.Kind() == KindNil {
			return true
		}
	}
	return false
}

// Mapping is a collection of key/value pairs with unique keys, which
// remembers the order in which keys were first inserted.
//
// The zero Mapping is empty and ready to use.
type Mapping struct {
	keys []Value
	vals []Value
	// index maps hashable keys to their position in keys.
	index map[any]int
}

// NewMapping returns a Mapping holding the given alternating keys and
// values. It panics if given an odd number of arguments.
func NewMapping(kvs ...Value) *Mapping {
	if len(kvs)%2 != 0 {
		panic("NewMapping requires an even number of arguments")
	}
	m := &Mapping{}
	for i := 0; i < len(kvs); i += 2 {
		m.Set(kvs[i], kvs[i+1])
	}
	return m
}

// Len returns the number of entries in m.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Set sets the value for k to v. A new key is appended to the
// iteration order, an existing key keeps its position.
func (m *Mapping) Set(k, v Value) {
	if i, ok := m.find(k); ok {
		m.vals[i] = v
		return
	}
	if hk, ok := hashKey(k); ok {
		if m.index == nil {
			m.index = map[any]int{}
		}
		m.index[hk] = len(m.keys)
	}
	m.keys = append(m.keys, k)
	m.vals = append(m.vals, v)
}

// Get returns the value stored for k, if any.
func (m *Mapping) Get(k Value) (Value, bool) {
	if m == nil {
		return nil, false
	}
	if i, ok := m.find(k); ok {
		return m.vals[i], true
	}
	return nil, false
}

// All iterates over the entries of m in insertion order.
func (m *Mapping) All() iter.Seq2[Value, Value] {
	return func(yield func(Value, Value) bool) {
		if m == nil {
			return
		}
		for i, k := range m.keys {
			if !yield(k, m.vals[i]) {
				return
			}
		}
	}
}

// Keys returns the keys of m in insertion order.
func (m *Mapping) Keys() []Value {
	if m == nil {
		return nil
	}
	return append([]Value(nil), m.keys...)
}

func (m *Mapping) find(k Value) (int, bool) {
	if hk, ok := hashKey(k); ok {
		i, found := m.index[hk]
		return i, found
	}
	for i, mk := range m.keys {
		if Equal(mk, k) {
			return i, true
		}
	}
	return 0, false
}

// Equal reports whether m and o have equal entries in the same order.
func (m *Mapping) Equal(o *Mapping) bool {
	if m.Len() != o.Len() {
		return false
	}
	for i := range m.Len() {
		if !Equal(m.keys[i], o.keys[i]) || !Equal(m.vals[i], o.vals[i]) {
			return false
		}
	}
	return true
}

func (m *Mapping) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i := range m.Len() {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %s", valueString(m.keys[i]), valueString(m.vals[i]))
	}
	b.WriteByte('}')
	return b.String()
}

// hashKeyed is the comparable identity of a scalar key.
type hashKeyed struct {
	kind Kind
	typ  WireType
	num  float64
	bits uint64
	str  string
}

// hashKey returns a comparable stand-in for k, if k is a scalar.
func hashKey(k Value) (any, bool) {
	switch k := k.(type) {
	case Bool:
		var b uint64
		if k {
			b = 1
		}
		return hashKeyed{kind: KindBool, bits: b}, true
	case Number:
		if math.IsNaN(float64(k)) {
			return nil, false
		}
		return hashKeyed{kind: KindNumber, num: float64(k) + 0}, true
	case String:
		return hashKeyed{kind: KindString, str: string(k)}, true
	case Wrapper:
		if !k.typ.IsBasic() {
			return nil, false
		}
		hk := hashKeyed{kind: KindWrapper, typ: k.typ, bits: k.wide}
		switch {
		case k.typ == TypeDouble:
			f := float64(k.inner.(Number))
			if math.IsNaN(f) {
				return nil, false
			}
			hk.num = f + 0
		case k.typ == TypeBoolean:
			if k.inner.(Bool) {
				hk.bits = 1
			}
		case stringTypes.Has(k.typ):
			hk.str = string(k.inner.(String))
		}
		return hk, true
	}
	return nil, false
}

// Equal reports whether a and b are structurally identical values.
//
// Wrappers are only equal to Wrappers of the same type, so
// Number(5) and NewInt32(5) are not Equal.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch a := a.(type) {
	case Nil:
		return b.Kind() == KindNil
	case Bool:
		bb, ok := b.(Bool)
		return ok && a == bb
	case Number:
		bn, ok := b.(Number)
		return ok && a == bn
	case String:
		bs, ok := b.(String)
		return ok && a == bs
	case Sequence:
		bs, ok := b.(Sequence)
		if !ok || len(a) != len(bs) {
			return false
		}
		for i := range a {
			if !Equal(a[i], bs[i]) {
				return false
			}
		}
		return true
	case *Mapping:
		bm, ok := b.(*Mapping)
		return ok && a.Equal(bm)
	case Wrapper:
		bw, ok := b.(Wrapper)
		return ok && a.Equal(bw)
	}
	return false
}
