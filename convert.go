package dynbus

import (
	"cmp"
	"fmt"
	"maps"
	"reflect"
	"slices"
)

// FromAny converts generic Go data, of the kind produced by decoding
// JSON, YAML or MessagePack into an interface value, to a Value.
//
// Integers that a Number cannot hold exactly become int64 or uint64
// Wrappers. []byte becomes an array of bytes. Maps become Mappings,
// with their keys sorted. Values that are already Values are returned
// as is.
func FromAny(x any) (Value, error) {
	switch x := x.(type) {
	case nil:
		return Nil{}, nil
	case Value:
		return x, nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case float32:
		return Number(x), nil
	case float64:
		return Number(x), nil
	case []byte:
		elems := make([]Value, len(x))
		for i, b := range x {
			elems[i] = Number(b)
		}
		return NewTypedArray("y", elems...)
	case []any:
		ret := make(Sequence, len(x))
		for i, e := range x {
			v, err := FromAny(e)
			if err != nil {
				return nil, atPath(err, indexPath(i))
			}
			ret[i] = v
		}
		return ret, nil
	case map[string]any:
		ret := &Mapping{}
		for _, k := range slices.Sorted(maps.Keys(x)) {
			v, err := FromAny(x[k])
			if err != nil {
				return nil, atPath(err, keyPath(String(k)))
			}
			ret.Set(String(k), v)
		}
		return ret, nil
	case map[any]any:
		return fromAnyMap(x)
	}

	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i := rv.Int()
		if i < -maxExactInteger || i > maxExactInteger {
			return NewInt64(i), nil
		}
		return Number(i), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > maxExactInteger {
			return NewUint64(u), nil
		}
		return Number(u), nil
	}
	return nil, transcodeErr("convert", ErrTypeMismatch, "cannot convert %T to a Value", x)
}

func fromAnyMap(m map[any]any) (Value, error) {
	type kv struct {
		k    Value
		v    any
		sort string
	}
	kvs := make([]kv, 0, len(m))
	for k, v := range m {
		key, err := FromAny(k)
		if err != nil {
			return nil, err
		}
		kvs = append(kvs, kv{key, v, fmt.Sprint(key)})
	}
	slices.SortFunc(kvs, func(a, b kv) int { return cmp.Compare(a.sort, b.sort) })

	ret := &Mapping{}
	for _, e := range kvs {
		v, err := FromAny(e.v)
		if err != nil {
			return nil, atPath(err, keyPath(e.k))
		}
		ret.Set(e.k, v)
	}
	return ret, nil
}

// ToAny converts v to generic Go data, the inverse of [FromAny].
//
// Integer Wrappers convert to int64 or uint64 exactly, other Numbers
// to float64. Mappings convert to map[string]any if all their keys
// are strings, and map[any]any otherwise.
func ToAny(v Value) any {
	switch v := v.(type) {
	case nil, Nil:
		return nil
	case Bool:
		return bool(v)
	case Number:
		return float64(v)
	case String:
		return string(v)
	case Sequence:
		ret := make([]any, len(v))
		for i, e := range v {
			ret[i] = ToAny(e)
		}
		return ret
	case *Mapping:
		return mappingToAny(v)
	case Wrapper:
		switch {
		case signedTypes.Has(v.typ):
			return v.Int64()
		case integerTypes.Has(v.typ):
			return v.Uint64()
		}
		return ToAny(v.Inner())
	}
	return nil
}

func mappingToAny(m *Mapping) any {
	allStrings := true
	for k := range m.All() {
		if _, ok := stringValue(k); !ok {
			allStrings = false
			break
		}
	}
	if allStrings {
		ret := make(map[string]any, m.Len())
		for k, v := range m.All() {
			s, _ := stringValue(k)
			ret[s] = ToAny(v)
		}
		return ret
	}
	ret := make(map[any]any, m.Len())
	for k, v := range m.All() {
		ak := ToAny(k)
		if ak != nil && !reflect.TypeOf(ak).Comparable() {
			ak = fmt.Sprint(ak)
		}
		ret[ak] = ToAny(v)
	}
	return ret
}
