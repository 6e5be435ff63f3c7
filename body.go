package dynbus

import (
	"math"

	"github.com/creachadair/mds/stack"
	"github.com/danderson/dynbus/fragments"
)

// BodyWriter is a [Writer] that encodes values into a DBus message
// body, and keeps track of the body's signature.
type BodyWriter struct {
	enc  *fragments.Encoder
	open stack.Stack[*containerWriter]
	root *containerWriter
}

// NewBodyWriter returns a BodyWriter that appends to enc.
func NewBodyWriter(enc *fragments.Encoder) *BodyWriter {
	ret := &BodyWriter{enc: enc}
	ret.root = &containerWriter{body: ret, typ: TypeInvalid}
	ret.open.Add(ret.root)
	return ret
}

func (w *BodyWriter) AppendBasic(t WireType, v any) error {
	return w.root.AppendBasic(t, v)
}

func (w *BodyWriter) OpenContainer(t WireType, sig Signature) (Writer, error) {
	return w.root.OpenContainer(t, sig)
}

func (w *BodyWriter) CloseContainer(sub Writer) error {
	return w.root.CloseContainer(sub)
}

// Signature returns the signature of the top-level values written so
// far.
func (w *BodyWriter) Signature() Signature {
	return Signature(w.root.sig)
}

// Complete reports an error if any container is still open.
func (w *BodyWriter) Complete() error {
	if n := w.open.Len() - 1; n > 0 {
		return transcodeErr("marshal", ErrMalformed, "%d containers still open", n)
	}
	return nil
}

// containerWriter is one level of an in-progress body. The root of
// the body is a containerWriter of TypeInvalid.
type containerWriter struct {
	body *BodyWriter
	typ  WireType
	// elem is the element signature of an array, or the boxed
	// signature of a variant.
	elem Signature
	mark fragments.ArrayMark
	// sig is the concatenated signature of the values written so far,
	// for structs, dict entries and the root.
	sig []byte
	n   int
	// depth counts the enclosing containers. A dict entry shares the
	// depth of its array.
	depth int
}

func (c *containerWriter) innermost() error {
	if top, ok := c.body.open.Peek(0); !ok || top != c {
		return transcodeErr("marshal", ErrMalformed, "write to %s container that is not the innermost open container", c.typ)
	}
	return nil
}

// addType checks that a value with signature sig can be the next
// value of c, and records it.
func (c *containerWriter) addType(sig string) error {
	switch c.typ {
	case TypeArray:
		if sig != string(c.elem) {
			return transcodeErr("marshal", ErrTypeMismatch, "array element %q does not match element signature %q", sig, c.elem)
		}
	case TypeVariant:
		if c.n > 0 {
			return transcodeErr("marshal", ErrSignatureValueCountMismatch, "variant holds more than one value")
		}
		if sig != string(c.elem) {
			return transcodeErr("marshal", ErrTypeMismatch, "variant value %q does not match variant signature %q", sig, c.elem)
		}
	case TypeDictEntry:
		switch c.n {
		case 0:
			if !typeForCode(sig).IsBasic() {
				return transcodeErr("marshal", ErrTypeMismatch, "dict entry key %q is not a basic type", sig)
			}
		case 1:
		default:
			return transcodeErr("marshal", ErrSignatureValueCountMismatch, "dict entry holds more than two values")
		}
	}
	c.n++
	if c.typ == TypeArray || c.typ == TypeVariant {
		return nil
	}
	c.sig = append(c.sig, sig...)
	if len(c.sig) > MaxSignatureLength {
		return transcodeErr("marshal", ErrSignatureTooLong, "more than %d bytes", MaxSignatureLength)
	}
	return nil
}

func (c *containerWriter) AppendBasic(t WireType, v any) error {
	if err := c.innermost(); err != nil {
		return err
	}
	if !t.IsBasic() {
		return transcodeErr("marshal", ErrTypeMismatch, "%s is not a basic type", t)
	}
	if err := c.addType(string(t.Code())); err != nil {
		return err
	}
	return writeBasic(c.body.enc, t, v)
}

func (c *containerWriter) OpenContainer(t WireType, sig Signature) (Writer, error) {
	if err := c.innermost(); err != nil {
		return nil, err
	}
	depth := c.depth + 1
	if t == TypeDictEntry {
		depth = c.depth
	}
	if depth > MaxDepth {
		return nil, transcodeErr("marshal", ErrRecursionTooDeep, "more than %d nested containers", MaxDepth)
	}
	if c.typ == TypeArray && c.elem[0] != t.Code() {
		return nil, transcodeErr("marshal", ErrTypeMismatch, "cannot put %s in array of %q", t, c.elem)
	}

	enc := c.body.enc
	sub := &containerWriter{body: c.body, typ: t, depth: depth}
	switch t {
	case TypeArray, TypeVariant:
		// A dict entry only parses inside its array.
		check := string(sig)
		if t == TypeArray {
			check = "a" + check
		}
		if _, err := ParseSignature(check); err != nil {
			return nil, err
		}
		if !sig.isSingle() {
			return nil, transcodeErr("marshal", ErrInvalidSignature, "%s signature %q is not a single complete type", t, sig)
		}
		sub.elem = sig
		if t == TypeArray {
			sub.mark = enc.StartArray(codeToType[sig[0]].align())
		} else if err := enc.Signature(string(sig)); err != nil {
			return nil, transcodeErr("marshal", ErrSignatureTooLong, "%v", err)
		}
	case TypeDictEntry:
		if c.typ != TypeArray {
			return nil, transcodeErr("marshal", ErrTypeMismatch, "dict entry outside of an array")
		}
		enc.Struct()
	case TypeStruct:
		enc.Struct()
	default:
		return nil, transcodeErr("marshal", ErrTypeMismatch, "%s is not a container type", t)
	}
	c.body.open.Add(sub)
	return sub, nil
}

func (c *containerWriter) CloseContainer(sub Writer) error {
	s, ok := sub.(*containerWriter)
	if !ok || s.body != c.body {
		return transcodeErr("marshal", ErrMalformed, "closing a container from another writer")
	}
	if top, _ := c.body.open.Peek(0); top != s {
		return transcodeErr("marshal", ErrMalformed, "closing %s container that is not the innermost open container", s.typ)
	}
	c.body.open.Pop()
	if top, _ := c.body.open.Peek(0); top != c {
		return transcodeErr("marshal", ErrMalformed, "closing %s container through a writer that did not open it", s.typ)
	}

	var sig string
	switch s.typ {
	case TypeArray:
		if err := c.body.enc.EndArray(s.mark); err != nil {
			return transcodeErr("marshal", ErrMalformed, "%v", err)
		}
		sig = "a" + string(s.elem)
	case TypeVariant:
		if s.n != 1 {
			return transcodeErr("marshal", ErrSignatureValueCountMismatch, "variant holds %d values, want 1", s.n)
		}
		sig = "v"
	case TypeStruct:
		if s.n == 0 {
			return transcodeErr("marshal", ErrSignatureValueCountMismatch, "empty struct")
		}
		sig = "(" + string(s.sig) + ")"
	case TypeDictEntry:
		if s.n != 2 {
			return transcodeErr("marshal", ErrSignatureValueCountMismatch, "dict entry holds %d values, want 2", s.n)
		}
		sig = "{" + string(s.sig) + "}"
	}
	return c.addType(sig)
}

func writeBasic(enc *fragments.Encoder, t WireType, v any) error {
	ok := true
	switch t {
	case TypeByte:
		var u uint8
		u, ok = v.(uint8)
		enc.Uint8(u)
	case TypeBoolean:
		var b bool
		b, ok = v.(bool)
		if b {
			enc.Uint32(1)
		} else {
			enc.Uint32(0)
		}
	case TypeInt16:
		var i int16
		i, ok = v.(int16)
		enc.Uint16(uint16(i))
	case TypeUint16:
		var u uint16
		u, ok = v.(uint16)
		enc.Uint16(u)
	case TypeInt32:
		var i int32
		i, ok = v.(int32)
		enc.Uint32(uint32(i))
	case TypeUint32, TypeUnixFD:
		var u uint32
		u, ok = v.(uint32)
		enc.Uint32(u)
	case TypeInt64:
		var i int64
		i, ok = v.(int64)
		enc.Uint64(uint64(i))
	case TypeUint64:
		var u uint64
		u, ok = v.(uint64)
		enc.Uint64(u)
	case TypeDouble:
		var f float64
		f, ok = v.(float64)
		enc.Uint64(math.Float64bits(f))
	case TypeString, TypeObjectPath:
		var s string
		s, ok = v.(string)
		enc.String(s)
	case TypeSignature:
		var s string
		if s, ok = v.(string); ok {
			if err := enc.Signature(s); err != nil {
				return transcodeErr("marshal", ErrSignatureTooLong, "%v", err)
			}
		}
	}
	if !ok {
		return transcodeErr("marshal", ErrTypeMismatch, "%s value has Go type %T", t, v)
	}
	return nil
}

// BodyReader is a [Reader] that decodes values from a DBus message
// body, guided by the body's signature.
type BodyReader struct {
	dec   *fragments.Decoder
	sig   *SignatureIter
	depth int
	// read is whether the current value has been consumed, by Basic
	// or Recurse.
	read  bool
	child *BodyReader

	// For readers of array contents: the element signature, the
	// offset at which the elements end, and whether the end has been
	// reached. end is -1 for other readers.
	elem  Signature
	end   int
	atEnd bool
}

// NewBodyReader returns a BodyReader that reads values of signature
// sig from dec.
func NewBodyReader(dec *fragments.Decoder, sig Signature) *BodyReader {
	return &BodyReader{dec: dec, sig: sig.Iter(), end: -1}
}

func (r *BodyReader) CurrentType() WireType {
	if r.atEnd {
		return TypeInvalid
	}
	return r.sig.CurrentType()
}

func (r *BodyReader) ElementType() WireType {
	if r.atEnd {
		return TypeInvalid
	}
	return r.sig.ElementType()
}

func (r *BodyReader) Basic() (any, error) {
	t := r.CurrentType()
	if !t.IsBasic() {
		return nil, transcodeErr("unmarshal", ErrTypeMismatch, "current value is %s, not a basic type", t)
	}
	if r.read {
		return nil, transcodeErr("unmarshal", ErrMalformed, "current value already read")
	}
	r.read = true
	return readBasic(r.dec, t)
}

func (r *BodyReader) Recurse() (Reader, error) {
	if r.read {
		return nil, transcodeErr("unmarshal", ErrMalformed, "current value already read")
	}
	t := r.CurrentType()
	depth := r.depth + 1
	if t == TypeDictEntry {
		depth = r.depth
	}
	if depth > MaxDepth {
		return nil, transcodeErr("unmarshal", ErrRecursionTooDeep, "more than %d nested containers", MaxDepth)
	}
	sub := &BodyReader{dec: r.dec, depth: depth, end: -1}
	switch t {
	case TypeArray:
		elem := r.sig.Recurse().Current()
		end, err := r.dec.StartArray(codeToType[elem[0]].align())
		if err != nil {
			return nil, malformed(err)
		}
		sub.elem, sub.end, sub.sig = elem, end, elem.Iter()
		sub.atEnd = r.dec.Offset() >= end
	case TypeStruct, TypeDictEntry:
		if err := r.dec.Struct(); err != nil {
			return nil, malformed(err)
		}
		sub.sig = r.sig.Recurse()
	case TypeVariant:
		s, err := r.dec.Signature()
		if err != nil {
			return nil, malformed(err)
		}
		sig, err := ParseSignature(s)
		if err != nil {
			return nil, malformed(err)
		}
		if !sig.isSingle() {
			return nil, transcodeErr("unmarshal", ErrMalformed, "variant signature %q is not a single complete type", sig)
		}
		sub.sig = sig.Iter()
	default:
		return nil, transcodeErr("unmarshal", ErrTypeMismatch, "current value is %s, not a container", t)
	}
	r.read = true
	r.child = sub
	return sub, nil
}

func (r *BodyReader) Next() error {
	if r.CurrentType() == TypeInvalid {
		return nil
	}
	if r.child != nil {
		if err := r.child.drain(); err != nil {
			return err
		}
		r.child = nil
	} else if !r.read {
		if err := r.skip(); err != nil {
			return err
		}
	}
	r.read = false

	if r.end < 0 {
		r.sig.Next()
		return nil
	}
	switch off := r.dec.Offset(); {
	case off > r.end:
		return transcodeErr("unmarshal", ErrMalformed, "array element overruns array length")
	case off == r.end:
		r.atEnd = true
	}
	r.sig = r.elem.Iter()
	return nil
}

// skip consumes the current value without returning it.
func (r *BodyReader) skip() error {
	if r.CurrentType().IsBasic() {
		_, err := r.Basic()
		return err
	}
	sub, err := r.Recurse()
	if err != nil {
		return err
	}
	r.child = nil
	return sub.(*BodyReader).drain()
}

// drain consumes all remaining values of r.
func (r *BodyReader) drain() error {
	if r.end >= 0 {
		switch off := r.dec.Offset(); {
		case off > r.end:
			return transcodeErr("unmarshal", ErrMalformed, "array element overruns array length")
		case off < r.end:
			if _, err := r.dec.Read(r.end - off); err != nil {
				return malformed(err)
			}
		}
		r.atEnd, r.child = true, nil
		return nil
	}
	for r.CurrentType() != TypeInvalid {
		if err := r.Next(); err != nil {
			return err
		}
	}
	return nil
}

func readBasic(dec *fragments.Decoder, t WireType) (any, error) {
	var (
		ret any
		err error
	)
	switch t {
	case TypeByte:
		ret, err = dec.Uint8()
	case TypeBoolean:
		var u uint32
		if u, err = dec.Uint32(); err == nil {
			if u > 1 {
				return nil, transcodeErr("unmarshal", ErrMalformed, "invalid boolean value %d", u)
			}
			ret = u == 1
		}
	case TypeInt16:
		var u uint16
		u, err = dec.Uint16()
		ret = int16(u)
	case TypeUint16:
		ret, err = dec.Uint16()
	case TypeInt32:
		var u uint32
		u, err = dec.Uint32()
		ret = int32(u)
	case TypeUint32, TypeUnixFD:
		ret, err = dec.Uint32()
	case TypeInt64:
		var u uint64
		u, err = dec.Uint64()
		ret = int64(u)
	case TypeUint64:
		ret, err = dec.Uint64()
	case TypeDouble:
		var u uint64
		u, err = dec.Uint64()
		ret = math.Float64frombits(u)
	case TypeString:
		ret, err = dec.String()
	case TypeObjectPath:
		var s string
		if s, err = dec.String(); err == nil {
			if verr := validateObjectPath(s); verr != nil {
				return nil, malformed(verr)
			}
			ret = s
		}
	case TypeSignature:
		var s string
		if s, err = dec.Signature(); err == nil {
			if _, perr := ParseSignature(s); perr != nil {
				return nil, malformed(perr)
			}
			ret = s
		}
	}
	if err != nil {
		return nil, malformed(err)
	}
	return ret, nil
}

func malformed(err error) error {
	return transcodeErr("unmarshal", ErrMalformed, "%v", err)
}
