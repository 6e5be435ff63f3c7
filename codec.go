package dynbus

import (
	"context"
	"time"

	"github.com/danderson/dynbus/fragments"
)

// Codec converts Values to and from the DBus wire format.
//
// The zero Codec is ready to use, and encodes in the host's native
// byte order.
type Codec struct {
	// Order is the byte order used for encoding. If nil, the native
	// byte order is used. Decoding framed data uses the byte order
	// recorded in the data instead.
	Order fragments.ByteOrder
}

func (c Codec) order() fragments.ByteOrder {
	if c.Order == nil {
		return fragments.NativeEndian
	}
	return c.Order
}

// Encode returns the framed wire encoding of args according to sig,
// or to the signature inferred from args if sig is empty.
//
// Framed data records its own byte order and signature, followed by
// the message body, so that [Codec.Decode] needs nothing else to
// decode it.
func (c Codec) Encode(ctx context.Context, sig Signature, args ...Value) (ret []byte, err error) {
	start := time.Now()
	defer func() { emitEncodeComplete(ctx, sig, len(ret), time.Since(start), err) }()

	if sig == "" {
		if sig, err = SignatureOf(args...); err != nil {
			return nil, err
		}
	}
	enc := &fragments.Encoder{}
	hdr := frameHeader{Order: c.order(), Signature: sig}
	if err := hdr.marshal(enc); err != nil {
		return nil, err
	}
	if _, err := marshalBody(enc, sig, args); err != nil {
		return nil, err
	}
	return enc.Out, nil
}

// Decode decodes framed wire data produced by [Codec.Encode], and
// returns its signature and values.
func (c Codec) Decode(ctx context.Context, bs []byte) (sig Signature, ret []Value, err error) {
	start := time.Now()
	defer func() { emitDecodeComplete(ctx, sig, len(ret), time.Since(start), err) }()

	dec := &fragments.Decoder{In: bs}
	var hdr frameHeader
	if err := hdr.unmarshal(dec); err != nil {
		return "", nil, err
	}
	vs, err := unmarshalBody(ctx, dec, hdr.Signature)
	if err != nil {
		return hdr.Signature, nil, err
	}
	return hdr.Signature, vs, nil
}

// MarshalBody returns the unframed encoding of args according to
// sig, along with the signature used. If sig is empty, the signature
// is inferred from args.
//
// The body is encoded in c's byte order, with alignment relative to
// the start of the returned slice, as in the body of a DBus message.
func (c Codec) MarshalBody(ctx context.Context, sig Signature, args ...Value) (retSig Signature, ret []byte, err error) {
	start := time.Now()
	defer func() { emitEncodeComplete(ctx, retSig, len(ret), time.Since(start), err) }()

	enc := &fragments.Encoder{Order: c.order()}
	retSig, err = marshalBody(enc, sig, args)
	if err != nil {
		return "", nil, err
	}
	return retSig, enc.Out, nil
}

// UnmarshalBody decodes an unframed message body of signature sig,
// encoded in c's byte order.
func (c Codec) UnmarshalBody(ctx context.Context, sig Signature, body []byte) (ret []Value, err error) {
	start := time.Now()
	defer func() { emitDecodeComplete(ctx, sig, len(ret), time.Since(start), err) }()

	if _, err := ParseSignature(string(sig)); err != nil {
		return nil, err
	}
	dec := &fragments.Decoder{Order: c.order(), In: body}
	return unmarshalBody(ctx, dec, sig)
}

// marshalBody writes args to enc, and returns the signature of what
// was written.
func marshalBody(enc *fragments.Encoder, sig Signature, args []Value) (Signature, error) {
	w := NewBodyWriter(enc)
	if err := Marshal(w, sig, args...); err != nil {
		return "", err
	}
	if err := w.Complete(); err != nil {
		return "", err
	}
	return w.Signature(), nil
}

func unmarshalBody(ctx context.Context, dec *fragments.Decoder, sig Signature) ([]Value, error) {
	vs, err := Unmarshal(ctx, NewBodyReader(dec, sig))
	if err != nil {
		return nil, err
	}
	if n := dec.Remaining(); n > 0 {
		return nil, transcodeErr("unmarshal", ErrMalformed, "%d trailing bytes after message body", n)
	}
	return vs, nil
}

// Encode is [Codec.Encode] with the zero Codec.
func Encode(ctx context.Context, sig Signature, args ...Value) ([]byte, error) {
	return Codec{}.Encode(ctx, sig, args...)
}

// Decode is [Codec.Decode] with the zero Codec.
func Decode(ctx context.Context, bs []byte) (Signature, []Value, error) {
	return Codec{}.Decode(ctx, bs)
}
