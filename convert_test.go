package dynbus

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFromAny(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Value
	}{
		{"nil", nil, Nil{}},
		{"bool", true, Bool(true)},
		{"string", "foo", String("foo")},
		{"float", 1.5, Number(1.5)},
		{"float32", float32(0.5), Number(0.5)},
		{"int", 42, Number(42)},
		{"negative int8", int8(-3), Number(-3)},
		{"uint16", uint16(7), Number(7)},
		{"exact limit", int64(1 << 53), Number(1 << 53)},
		{"big int64", int64(1<<53 + 1), NewInt64(1<<53 + 1)},
		{"small int64", int64(math.MinInt64), NewInt64(math.MinInt64)},
		{"big uint64", uint64(math.MaxUint64), NewUint64(math.MaxUint64)},
		{"bytes", []byte{1, 2}, mustTypedArray(t, "y", Number(1), Number(2))},
		{"value", NewInt16(3), NewInt16(3)},
		{"list", []any{1, "a", nil}, Sequence{Number(1), String("a"), Nil{}}},
		{
			"string map sorted",
			map[string]any{"b": 2, "a": 1, "c": []any{true}},
			NewMapping(
				String("a"), Number(1),
				String("b"), Number(2),
				String("c"), Sequence{Bool(true)},
			),
		},
		{
			"any map",
			map[any]any{2: "two", 1: "one"},
			NewMapping(Number(1), String("one"), Number(2), String("two")),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := FromAny(tc.in)
			if err != nil {
				t.Fatalf("FromAny(%v) got err: %v", tc.in, err)
			}
			if diff := cmp.Diff(got, tc.want); diff != "" {
				t.Errorf("FromAny(%v) wrong result (-got+want):\n%s", tc.in, diff)
			}
		})
	}
}

func TestFromAnyErrors(t *testing.T) {
	tests := []struct {
		name string
		in   any
	}{
		{"struct", struct{ A int }{1}},
		{"channel", make(chan int)},
		{"nested", []any{1, map[string]any{"x": complex(1, 2)}}},
		{"map key", map[any]any{struct{}{}: 1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := FromAny(tc.in)
			if !errors.Is(err, ErrTypeMismatch) {
				t.Errorf("FromAny(%v) = %v, %v; want err %v", tc.in, got, err, ErrTypeMismatch)
			}
		})
	}

	var te *TranscodeError
	_, err := FromAny([]any{1, map[string]any{"x": complex(1, 2)}})
	if !errors.As(err, &te) {
		t.Fatalf("FromAny error %v is not a TranscodeError", err)
	}
	if want := `[1]{"x"}`; te.Path != want {
		t.Errorf("error path = %q, want %q", te.Path, want)
	}
}

func TestToAny(t *testing.T) {
	tests := []struct {
		name string
		in   Value
		want any
	}{
		{"nil", Nil{}, nil},
		{"bool", Bool(false), false},
		{"number", Number(2.5), 2.5},
		{"string", String("s"), "s"},
		{"int64", NewInt64(1<<53 + 1), int64(1<<53 + 1)},
		{"uint64", NewUint64(math.MaxUint64), uint64(math.MaxUint64)},
		{"byte", NewByte(7), uint64(7)},
		{"int16", NewInt16(-7), int64(-7)},
		{"double", NewDouble(0.5), 0.5},
		{"objpath", MustWrap(TypeObjectPath, String("/a")), "/a"},
		{"variant", mustVariant(t, Sequence{Number(1)}), []any{1.0}},
		{"sequence", Sequence{Number(1), Nil{}, String("x")}, []any{1.0, nil, "x"}},
		{
			"string keys",
			NewMapping(String("a"), Number(1), NewString("b"), Bool(true)),
			map[string]any{"a": 1.0, "b": true},
		},
		{
			"mixed keys",
			NewMapping(String("a"), Number(1), Number(2), String("b")),
			map[any]any{"a": 1.0, 2.0: "b"},
		},
		{
			"sequence key",
			NewMapping(Sequence{Number(1)}, Bool(true)),
			map[any]any{"[1]": true},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ToAny(tc.in)
			if diff := cmp.Diff(got, tc.want); diff != "" {
				t.Errorf("ToAny(%v) wrong result (-got+want):\n%s", tc.in, diff)
			}
		})
	}
}
