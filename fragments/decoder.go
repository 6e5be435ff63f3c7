package fragments

import (
	"errors"
	"fmt"
	"io"
)

// A Decoder provides utilities to read a DBus wire format message
// from a byte slice.
//
// Methods advance the read cursor as needed to account for the
// padding required by DBus alignment rules, except for [Decoder.Read]
// which reads bytes verbatim.
type Decoder struct {
	// Order is the byte order to use when reading multi-byte values.
	Order ByteOrder
	// In is the input to read.
	In []byte

	// offset is the number of bytes consumed off the front of In so
	// far. Alignment is relative to the start of In, so In must begin
	// at an 8-byte aligned position of the original message.
	offset int
}

// Offset returns the number of bytes consumed so far.
func (d *Decoder) Offset() int {
	return d.offset
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.In) - d.offset
}

// Pad consumes padding bytes as needed to make the next read happen
// at a multiple of align bytes. If the decoder is already correctly
// aligned, no bytes are consumed. Padding bytes must be zero.
func (d *Decoder) Pad(align int) error {
	extra := d.offset % align
	if extra == 0 {
		return nil
	}
	skip := align - extra
	bs, err := d.Read(skip)
	if err != nil {
		return err
	}
	for _, b := range bs {
		if b != 0 {
			return fmt.Errorf("non-zero padding byte %#x at offset %d", b, d.offset-skip)
		}
	}
	return nil
}

// Read reads n bytes, with no framing or padding.
func (d *Decoder) Read(n int) ([]byte, error) {
	if n < 0 || n > d.Remaining() {
		return nil, io.ErrUnexpectedEOF
	}
	ret := d.In[d.offset : d.offset+n]
	d.offset += n
	return ret, nil
}

// String reads a DBus string.
func (d *Decoder) String() (string, error) {
	ln, err := d.Uint32()
	if err != nil {
		return "", err
	}
	return d.terminated(int(ln))
}

// Signature reads a DBus signature, which unlike a string has a
// single byte length prefix.
func (d *Decoder) Signature() (string, error) {
	ln, err := d.Uint8()
	if err != nil {
		return "", err
	}
	return d.terminated(int(ln))
}

func (d *Decoder) terminated(ln int) (string, error) {
	bs, err := d.Read(ln + 1)
	if err != nil {
		return "", err
	}
	if bs[ln] != 0 {
		return "", errors.New("string is missing its NUL terminator")
	}
	return string(bs[:ln]), nil
}

// Uint8 reads a uint8.
func (d *Decoder) Uint8() (uint8, error) {
	bs, err := d.Read(1)
	if err != nil {
		return 0, err
	}
	return bs[0], nil
}

// Uint16 reads a uint16.
func (d *Decoder) Uint16() (uint16, error) {
	if err := d.Pad(2); err != nil {
		return 0, err
	}
	bs, err := d.Read(2)
	if err != nil {
		return 0, err
	}
	return d.Order.Uint16(bs), nil
}

// Uint32 reads a uint32.
func (d *Decoder) Uint32() (uint32, error) {
	if err := d.Pad(4); err != nil {
		return 0, err
	}
	bs, err := d.Read(4)
	if err != nil {
		return 0, err
	}
	return d.Order.Uint32(bs), nil
}

// Uint64 reads a uint64.
func (d *Decoder) Uint64() (uint64, error) {
	if err := d.Pad(8); err != nil {
		return 0, err
	}
	bs, err := d.Read(8)
	if err != nil {
		return 0, err
	}
	return d.Order.Uint64(bs), nil
}

// StartArray reads an array header and the padding that precedes the
// first element, and returns the offset at which the array's
// elements end.
//
// elemAlign is the alignment of the array's element type.
func (d *Decoder) StartArray(elemAlign int) (end int, err error) {
	ln, err := d.Uint32()
	if err != nil {
		return 0, err
	}
	if ln > maxArrayLen {
		return 0, fmt.Errorf("array length %d exceeds maximum of 64MiB", ln)
	}
	if err := d.Pad(elemAlign); err != nil {
		return 0, err
	}
	if int(ln) > d.Remaining() {
		return 0, fmt.Errorf("array length %d exceeds remaining input of %d bytes", ln, d.Remaining())
	}
	return d.offset + int(ln), nil
}

// Struct consumes the padding that precedes a struct or dict entry.
func (d *Decoder) Struct() error {
	return d.Pad(8)
}

// ByteOrderFlag reads a DBus byte order flag byte, and sets
// [Decoder.Order] to match it.
func (d *Decoder) ByteOrderFlag() error {
	v, err := d.Uint8()
	if err != nil {
		return err
	}
	ord, err := OrderForFlag(v)
	if err != nil {
		return err
	}
	d.Order = ord
	return nil
}
