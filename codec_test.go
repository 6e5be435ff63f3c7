package dynbus

import (
	"context"
	"errors"
	"testing"

	"github.com/danderson/dynbus/fragments"
	"github.com/google/go-cmp/cmp"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name  string
		codec Codec
		sig   Signature
		in    []Value
		want  []byte
	}{
		{
			"struct big endian",
			Codec{Order: fragments.BigEndian},
			"(isb)",
			[]Value{Sequence{Number(1), String("hello"), Bool(true)}},
			[]byte{
				// header
				'B', 5, '(', 'i', 's', 'b', ')', 0,
				// .0
				0, 0, 0, 1,
				// .1
				0, 0, 0, 5, 'h', 'e', 'l', 'l', 'o', 0,
				// pad
				0, 0,
				// .2
				0, 0, 0, 1,
			},
		},
		{
			"inferred little endian",
			Codec{Order: fragments.LittleEndian},
			"",
			[]Value{Number(1)},
			[]byte{
				// header
				'l', 1, 'i', 0,
				// pad
				0, 0, 0, 0,
				// value
				1, 0, 0, 0,
			},
		},
		{
			"no values",
			Codec{Order: fragments.LittleEndian},
			"",
			nil,
			[]byte{'l', 0, 0, 0, 0, 0, 0, 0},
		},
	}

	ctx := context.Background()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.codec.Encode(ctx, tc.sig, tc.in...)
			if err != nil {
				t.Fatalf("Encode(%q, %v) got err: %v", tc.sig, tc.in, err)
			}
			if diff := cmp.Diff(got, tc.want); diff != "" {
				t.Errorf("Encode(%q, %v) wrong encoding (-got+want):\n%s", tc.sig, tc.in, diff)
			}

			sig, vs, err := Decode(ctx, got)
			if err != nil {
				t.Fatalf("Decode(%x) got err: %v", got, err)
			}
			wantSig := tc.sig
			if wantSig == "" {
				wantSig = must(SignatureOf(tc.in...))
			}
			if sig != wantSig {
				t.Errorf("Decode(%x) signature = %q, want %q", got, sig, wantSig)
			}
			wantVals := tc.in
			if wantVals == nil {
				wantVals = []Value{}
			}
			if diff := cmp.Diff(vs, wantVals); diff != "" {
				t.Errorf("Decode(%x) wrong values (-got+want):\n%s", got, diff)
			}
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	in := []Value{
		Bool(false),
		Number(-3),
		Number(4000000000),
		Number(1 << 40),
		Number(0.25),
		String("héllo"),
		Sequence{String("a"), String("b")},
		Sequence{Number(1), String("two"), Sequence{Bool(true)}},
		NewMapping(
			String("name"), String("dynbus"),
			String("ports"), Sequence{Number(80), Number(443)},
			String("nested"), NewMapping(Number(1), Bool(true)),
		),
		Sequence{Nil{}, String("gap")},
		must(NewTypedArray("s")),
		must(NewVariant(Sequence{Number(1), Bool(false)})),
	}
	want := []Value{
		Bool(false),
		Number(-3),
		Number(4000000000),
		NewInt64(1 << 40),
		Number(0.25),
		String("héllo"),
		Sequence{String("a"), String("b")},
		Sequence{Number(1), String("two"), Sequence{Bool(true)}},
		NewMapping(
			String("name"), String("dynbus"),
			String("ports"), Sequence{Number(80), Number(443)},
			String("nested"), NewMapping(Number(1), Bool(true)),
		),
		NewMapping(Number(1), String("gap")),
		Sequence{},
		Sequence{Number(1), Bool(false)},
	}

	ctx := context.Background()
	for _, order := range []fragments.ByteOrder{fragments.BigEndian, fragments.LittleEndian} {
		c := Codec{Order: order}
		bs, err := c.Encode(ctx, "", in...)
		if err != nil {
			t.Fatalf("Encode(%v) got err: %v", in, err)
		}
		if got, want := bs[0], fragments.Flag(order); got != want {
			t.Errorf("byte order flag = %q, want %q", got, want)
		}
		sig, got, err := c.Decode(ctx, bs)
		if err != nil {
			t.Fatalf("Decode(%x) got err: %v", bs, err)
		}
		if testing.Verbose() {
			t.Logf("signature %q", sig)
		}
		if diff := cmp.Diff(got, want); diff != "" {
			t.Errorf("round trip wrong (-got+want):\n%s", diff)
		}
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want error
	}{
		{"empty", nil, ErrMalformed},
		{"bad flag", []byte{'X', 1, 'y', 0, 0, 0, 0, 0, 5}, ErrMalformed},
		{"bad signature", []byte{'l', 1, 'a', 0, 0, 0, 0, 0, 5}, ErrMalformed},
		{"missing padding", []byte{'l', 1, 'y', 0, 5}, ErrMalformed},
		{"trailing garbage", []byte{'l', 1, 'y', 0, 0, 0, 0, 0, 5, 6}, ErrMalformed},
		{"short body", []byte{'l', 1, 'i', 0, 0, 0, 0, 0, 5}, ErrMalformed},
	}

	ctx := context.Background()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sig, got, err := Decode(ctx, tc.in)
			if !errors.Is(err, tc.want) {
				t.Errorf("Decode(%x) = %q, %v, %v; want err %v", tc.in, sig, got, err, tc.want)
			}
		})
	}
}

func TestEncodeErrors(t *testing.T) {
	tests := []struct {
		name string
		sig  Signature
		in   []Value
		want error
	}{
		{"ambiguous", "", []Value{Sequence{}}, ErrAmbiguousType},
		{"mismatch", "s", []Value{Bool(true)}, ErrTypeMismatch},
		{"count", "ss", []Value{String("a")}, ErrSignatureValueCountMismatch},
		{"nil", "", []Value{Nil{}}, ErrTypeMismatch},
		{"unlike nested arrays", "", []Value{Sequence{Sequence{Number(1)}, Sequence{String("a")}}}, ErrTypeMismatch},
		{"zero wrapper", "", []Value{Wrapper{}}, ErrTypeMismatch},
	}

	ctx := context.Background()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Encode(ctx, tc.sig, tc.in...)
			if !errors.Is(err, tc.want) {
				t.Errorf("Encode(%q, %v) = %x, %v; want err %v", tc.sig, tc.in, got, err, tc.want)
			}
		})
	}
}
