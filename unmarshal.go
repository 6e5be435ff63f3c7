package dynbus

import (
	"context"
	"errors"
)

// Unmarshal reads all remaining values from r.
//
// Basic values decode to Bool, Number and String. 64-bit integers
// decode to int64 and uint64 Wrappers instead, which hold the full
// range of those types exactly. Arrays and structs decode to
// Sequences, and dictionaries to Mappings whose keys are in wire
// order. Variants decode to the value they box, without a Wrapper.
//
// Values whose wire type is unknown are skipped, and reported on
// [SignalDecodeSkipped].
func Unmarshal(ctx context.Context, r Reader) ([]Value, error) {
	ret, err := decodeAll(ctx, r, "", 0)
	if err != nil {
		return nil, err
	}
	return ret, nil
}

type decodeFunc func(ctx context.Context, r Reader, path string, depth int) (Value, error)

// decoders is indexed by WireType. A nil entry means the type has no
// decoder and is skipped.
var decoders [numWireTypes]decodeFunc

func init() {
	for t := TypeByte; t <= TypeUnixFD; t++ {
		decoders[t] = decodeBasic
	}
	decoders[TypeArray] = decodeArray
	decoders[TypeStruct] = decodeStruct
	decoders[TypeVariant] = decodeVariant
	decoders[TypeDictEntry] = decodeStruct
}

// decodeAll decodes the values of r until it runs out.
func decodeAll(ctx context.Context, r Reader, path string, depth int) (Sequence, error) {
	ret := Sequence{}
	for i := 0; r.CurrentType() != TypeInvalid; i++ {
		elem := path + indexPath(i)
		v, ok, err := decodeValue(ctx, r, elem, depth)
		if err != nil {
			return nil, atPath(err, indexPath(i))
		}
		if ok {
			ret = append(ret, v)
		}
		if err := r.Next(); err != nil {
			return nil, atPath(err, indexPath(i))
		}
	}
	return ret, nil
}

// decodeValue decodes the current value of r. It returns false if
// the value was skipped.
func decodeValue(ctx context.Context, r Reader, path string, depth int) (Value, bool, error) {
	if depth > MaxDepth {
		return nil, false, transcodeErr("unmarshal", ErrRecursionTooDeep, "more than %d nested containers", MaxDepth)
	}
	t := r.CurrentType()
	if t >= numWireTypes || decoders[t] == nil {
		emitDecodeSkipped(ctx, t, path)
		return nil, false, nil
	}
	v, err := decoders[t](ctx, r, path, depth)
	if errors.Is(err, errSkipped) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func decodeBasic(ctx context.Context, r Reader, path string, depth int) (Value, error) {
	v, err := r.Basic()
	if err != nil {
		return nil, err
	}
	switch v := v.(type) {
	case bool:
		return Bool(v), nil
	case uint8:
		return Number(v), nil
	case int16:
		return Number(v), nil
	case uint16:
		return Number(v), nil
	case int32:
		return Number(v), nil
	case uint32:
		return Number(v), nil
	case int64:
		return NewInt64(v), nil
	case uint64:
		return NewUint64(v), nil
	case float64:
		return Number(v), nil
	case string:
		return String(v), nil
	}
	return nil, transcodeErr("unmarshal", ErrTypeMismatch, "reader returned %T for %s", v, r.CurrentType())
}

func decodeArray(ctx context.Context, r Reader, path string, depth int) (Value, error) {
	isDict := r.ElementType() == TypeDictEntry
	sub, err := r.Recurse()
	if err != nil {
		return nil, err
	}
	if isDict {
		return decodeDictionary(ctx, sub, path, depth+1)
	}
	return decodeAll(ctx, sub, path, depth+1)
}

func decodeStruct(ctx context.Context, r Reader, path string, depth int) (Value, error) {
	sub, err := r.Recurse()
	if err != nil {
		return nil, err
	}
	return decodeAll(ctx, sub, path, depth+1)
}

func decodeDictionary(ctx context.Context, r Reader, path string, depth int) (Value, error) {
	ret := &Mapping{}
	for r.CurrentType() != TypeInvalid {
		if t := r.CurrentType(); t != TypeDictEntry {
			return nil, transcodeErr("unmarshal", ErrMalformed, "dictionary element is %s, not a dict entry", t)
		}
		entry, err := r.Recurse()
		if err != nil {
			return nil, err
		}
		k, kok, err := decodeValue(ctx, entry, path+"{}", depth)
		if err != nil {
			return nil, err
		}
		if err := entry.Next(); err != nil {
			return nil, err
		}
		if !kok {
			if err := r.Next(); err != nil {
				return nil, err
			}
			continue
		}
		v, vok, err := decodeValue(ctx, entry, path+keyPath(k), depth)
		if err != nil {
			return nil, atPath(err, keyPath(k))
		}
		if vok {
			ret.Set(k, v)
		}
		if err := r.Next(); err != nil {
			return nil, err
		}
	}
	return ret, nil
}

func decodeVariant(ctx context.Context, r Reader, path string, depth int) (Value, error) {
	sub, err := r.Recurse()
	if err != nil {
		return nil, err
	}
	if sub.CurrentType() == TypeInvalid {
		return nil, transcodeErr("unmarshal", ErrMalformed, "empty variant")
	}
	v, ok, err := decodeValue(ctx, sub, path, depth+1)
	if err != nil {
		return nil, err
	}
	if !ok {
		// The variant's only value was skipped, so the variant goes
		// with it.
		return nil, errSkipped
	}
	return v, nil
}

// errSkipped is returned by decoders whose value turned out to be
// entirely made of unknown types.
var errSkipped = errors.New("value skipped")
