package dynbus

import (
	"fmt"

	"github.com/danderson/dynbus/fragments"
)

// frameHeader is the self-describing prefix of an encoded value
// sequence: the byte order flag, then the signature of the values,
// then padding to the 8-byte boundary at which the body starts.
type frameHeader struct {
	Order     fragments.ByteOrder
	Signature Signature
}

func (h *frameHeader) marshal(e *fragments.Encoder) error {
	e.Order = h.Order
	e.ByteOrderFlag()
	if err := e.Signature(string(h.Signature)); err != nil {
		return transcodeErr("marshal", ErrSignatureTooLong, "%v", err)
	}
	e.Pad(8)
	return nil
}

func (h *frameHeader) unmarshal(d *fragments.Decoder) error {
	if err := d.ByteOrderFlag(); err != nil {
		return malformed(fmt.Errorf("reading byte order: %w", err))
	}
	h.Order = d.Order
	s, err := d.Signature()
	if err != nil {
		return malformed(fmt.Errorf("reading signature: %w", err))
	}
	sig, err := ParseSignature(s)
	if err != nil {
		return malformed(err)
	}
	h.Signature = sig
	if err := d.Pad(8); err != nil {
		return malformed(fmt.Errorf("reading header padding: %w", err))
	}
	return nil
}
