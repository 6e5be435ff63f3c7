package fragments

import (
	"errors"
	"fmt"
	"math"
)

// An Encoder provides utilities to write a DBus wire format message
// to a byte slice.
//
// Methods insert padding as needed to conform to DBus alignment
// rules, except for [Encoder.Write] which outputs bytes verbatim.
type Encoder struct {
	// Order is the byte order to use when encoding multi-byte values.
	Order ByteOrder
	// Out is the encoded output.
	Out []byte
}

// Pad inserts padding bytes as needed to make the message a multiple
// of align bytes. If the message is already correctly aligned, no
// padding is inserted.
func (e *Encoder) Pad(align int) {
	extra := len(e.Out) % align
	if extra == 0 {
		return
	}
	var pad [8]byte
	e.Out = append(e.Out, pad[:align-extra]...)
}

// Write writes bs as-is to the output. It is the caller's
// responsibility to ensure correct padding and encoding.
func (e *Encoder) Write(bs []byte) {
	e.Out = append(e.Out, bs...)
}

// String writes s to the output.
func (e *Encoder) String(s string) {
	e.Uint32(uint32(len(s)))
	e.Out = append(e.Out, s...)
	e.Out = append(e.Out, 0)
}

// Signature writes sig to the output as a DBus signature, which
// unlike a string has a single byte length prefix.
func (e *Encoder) Signature(sig string) error {
	if len(sig) > math.MaxUint8 {
		return fmt.Errorf("signature of length %d exceeds maximum of %d", len(sig), math.MaxUint8)
	}
	e.Uint8(uint8(len(sig)))
	e.Out = append(e.Out, sig...)
	e.Out = append(e.Out, 0)
	return nil
}

// Uint8 writes a uint8.
func (e *Encoder) Uint8(u8 uint8) {
	e.Out = append(e.Out, u8)
}

// Uint16 writes a uint16.
func (e *Encoder) Uint16(u16 uint16) {
	e.Pad(2)
	e.Out = e.Order.AppendUint16(e.Out, u16)
}

// Uint32 writes a uint32.
func (e *Encoder) Uint32(u32 uint32) {
	e.Pad(4)
	e.Out = e.Order.AppendUint32(e.Out, u32)
}

// Uint64 writes a uint64.
func (e *Encoder) Uint64(u64 uint64) {
	e.Pad(8)
	e.Out = e.Order.AppendUint64(e.Out, u64)
}

// An ArrayMark records where an in-progress array started, so that
// its length can be filled in by [Encoder.EndArray].
type ArrayMark struct {
	lenOffset int
	start     int
}

// maxArrayLen is the largest array payload DBus permits, 64MiB.
const maxArrayLen = 1 << 26

// StartArray writes an array header with a placeholder length,
// followed by the padding required before the first element.
//
// elemAlign is the alignment of the array's element type. DBus
// requires the padding even when the array turns out to be empty.
func (e *Encoder) StartArray(elemAlign int) ArrayMark {
	e.Uint32(0)
	offset := len(e.Out) - 4
	e.Pad(elemAlign)
	return ArrayMark{offset, len(e.Out)}
}

// EndArray fills in the length of the array started at m, which
// covers everything written since the element padding.
func (e *Encoder) EndArray(m ArrayMark) error {
	n := len(e.Out) - m.start
	if n > maxArrayLen {
		return errors.New("array exceeds maximum length of 64MiB")
	}
	e.Order.PutUint32(e.Out[m.lenOffset:], uint32(n))
	return nil
}

// Struct aligns the output for the start of a struct or dict entry.
func (e *Encoder) Struct() {
	e.Pad(8)
}

// ByteOrderFlag writes the DBus byte order flag byte ('l' or 'B')
// that matches [Encoder.Order].
func (e *Encoder) ByteOrderFlag() {
	e.Write([]byte{e.Order.dbusFlag()})
}
