package dynbus

// Marshal writes args to w, according to sig.
//
// The signature is authoritative: each value is converted to the wire
// type its position in sig calls for, rather than the type [Classify]
// would infer for it. If sig is empty, it is inferred from args with
// [SignatureOf].
//
// Numbers and integer Wrappers are narrowed to the width of integer
// wire types by truncation, like a C cast, with no range check.
// Arrays and structs accept Sequences as well as array and struct
// Wrappers. Dictionaries accept Mappings, dictionary Wrappers, and
// Sequences with gaps, which are keyed by position. The values of a
// dictionary with variant values are each boxed with their own
// inferred signature. Variants box their value with the Wrapper's
// cached signature if it has one, or an inferred one otherwise. A
// variant Wrapper in a position that is not a variant marshals as its
// inner value.
//
// Marshal closes every container it opens, even when it fails. On
// failure, the contents of w are incomplete and should be discarded.
func Marshal(w Writer, sig Signature, args ...Value) error {
	if sig == "" && len(args) > 0 {
		var err error
		if sig, err = SignatureOf(args...); err != nil {
			return err
		}
	} else if _, err := ParseSignature(string(sig)); err != nil {
		return err
	}

	if n := len(sig.Types()); n != len(args) {
		return transcodeErr("marshal", ErrSignatureValueCountMismatch, "signature %q describes %d values, got %d", sig, n, len(args))
	}
	it := sig.Iter()
	for i, arg := range args {
		if err := marshalValue(w, it, arg, 0); err != nil {
			if len(args) > 1 {
				err = atPath(err, indexPath(i))
			}
			return err
		}
		it.Next()
	}
	return nil
}

// marshalValue writes v to w as the current type of it.
func marshalValue(w Writer, it *SignatureIter, v Value, depth int) error {
	if depth > MaxDepth {
		return transcodeErr("marshal", ErrRecursionTooDeep, "value nests more than %d containers", MaxDepth)
	}
	if v == nil {
		v = Nil{}
	}
	t := it.CurrentType()
	if vw, ok := v.(Wrapper); ok && vw.typ == TypeVariant && t != TypeVariant {
		v = vw.Inner()
	}

	switch {
	case t.IsBasic():
		bv, err := basicValue(t, v)
		if err != nil {
			return err
		}
		return w.AppendBasic(t, bv)
	case t == TypeArray && it.ElementType() == TypeDictEntry:
		return marshalDictionary(w, it, v, depth)
	case t == TypeArray:
		return marshalArray(w, it, v, depth)
	case t == TypeStruct:
		return marshalStruct(w, it, v, depth)
	case t == TypeVariant:
		return marshalVariant(w, v, depth)
	}
	return transcodeErr("marshal", ErrUnknownWireType, "cannot marshal signature %q", it.Current())
}

// withContainer opens a container on w, calls fn to write its
// contents, and closes the container again whether or not fn
// succeeded.
func withContainer(w Writer, t WireType, sig Signature, fn func(Writer) error) (err error) {
	sub, err := w.OpenContainer(t, sig)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.CloseContainer(sub); err == nil {
			err = cerr
		}
	}()
	return fn(sub)
}

func marshalArray(w Writer, it *SignatureIter, v Value, depth int) error {
	elems, ok := elementsOf(v)
	if !ok {
		return transcodeErr("marshal", ErrTypeMismatch, "cannot marshal %s as array %q", v.Kind(), it.Current())
	}
	if elems.isGappy() {
		return transcodeErr("marshal", ErrTypeMismatch, "array %q has nil elements", it.Current())
	}
	elemSig := it.Recurse().Current()
	return withContainer(w, TypeArray, elemSig, func(arr Writer) error {
		for i, e := range elems {
			if err := marshalValue(arr, elemSig.Iter(), e, depth+1); err != nil {
				return atPath(err, indexPath(i))
			}
		}
		return nil
	})
}

func marshalDictionary(w Writer, it *SignatureIter, v Value, depth int) error {
	entries, ok := dictEntries(v)
	if !ok {
		return transcodeErr("marshal", ErrTypeMismatch, "cannot marshal %s as dictionary %q", v.Kind(), it.Current())
	}
	entry := it.Recurse()
	kv := entry.Recurse()
	keySig := kv.Current()
	kv.Next()
	valSig := kv.Current()

	return withContainer(w, TypeArray, entry.Current(), func(arr Writer) error {
		for k, val := range entries {
			err := withContainer(arr, TypeDictEntry, "", func(e Writer) error {
				if err := marshalValue(e, keySig.Iter(), k, depth+1); err != nil {
					return err
				}
				return marshalValue(e, valSig.Iter(), val, depth+1)
			})
			if err != nil {
				return atPath(err, keyPath(k))
			}
		}
		return nil
	})
}

func marshalStruct(w Writer, it *SignatureIter, v Value, depth int) error {
	fields, ok := elementsOf(v)
	if !ok {
		return transcodeErr("marshal", ErrTypeMismatch, "cannot marshal %s as struct %q", v.Kind(), it.Current())
	}
	if fields.isGappy() {
		return transcodeErr("marshal", ErrTypeMismatch, "struct %q has nil fields", it.Current())
	}
	fit := it.Recurse()
	if n := len(fit.remaining()); n != len(fields) {
		return transcodeErr("marshal", ErrSignatureValueCountMismatch, "struct %q has %d fields, got %d values", it.Current(), n, len(fields))
	}
	return withContainer(w, TypeStruct, "", func(st Writer) error {
		for i, f := range fields {
			if err := marshalValue(st, fit, f, depth+1); err != nil {
				return atPath(err, indexPath(i))
			}
			fit.Next()
		}
		return nil
	})
}

func marshalVariant(w Writer, v Value, depth int) error {
	var sig Signature
	if vw, ok := v.(Wrapper); ok && vw.typ == TypeVariant {
		v = vw.Inner()
		if s, ok := vw.sig.GetOK(); ok {
			sig = s[1:]
		}
	}
	if sig == "" {
		var err error
		if sig, err = SignatureOf(v); err != nil {
			return err
		}
	}
	return withContainer(w, TypeVariant, sig, func(sub Writer) error {
		return marshalValue(sub, sig.Iter(), v, depth+1)
	})
}

// basicValue converts v to the Go representation of basic wire type
// t, as accepted by [Writer.AppendBasic].
func basicValue(t WireType, v Value) (any, error) {
	switch t {
	case TypeBoolean:
		if b, ok := boolValue(v); ok {
			return b, nil
		}
	case TypeDouble:
		if f, ok := floatValue(v); ok {
			return f, nil
		}
	case TypeString:
		if s, ok := stringValue(v); ok {
			return s, nil
		}
	case TypeObjectPath:
		if s, ok := stringValue(v); ok {
			if err := validateObjectPath(s); err != nil {
				return nil, transcodeErr("marshal", ErrTypeMismatch, "%v", err)
			}
			return s, nil
		}
	case TypeSignature:
		if s, ok := stringValue(v); ok {
			if _, err := ParseSignature(s); err != nil {
				return nil, transcodeErr("marshal", ErrTypeMismatch, "%v", err)
			}
			return s, nil
		}
	default:
		if bits, ok := integerBits(v); ok {
			return narrow(t, bits), nil
		}
	}
	return nil, transcodeErr("marshal", ErrTypeMismatch, "cannot marshal %s as %s", v.Kind(), t)
}

// narrow truncates bits to the Go type of integer wire type t.
func narrow(t WireType, bits uint64) any {
	switch t {
	case TypeByte:
		return uint8(bits)
	case TypeInt16:
		return int16(bits)
	case TypeUint16:
		return uint16(bits)
	case TypeInt32:
		return int32(bits)
	case TypeUint32, TypeUnixFD:
		return uint32(bits)
	case TypeInt64:
		return int64(bits)
	default:
		return bits
	}
}
