package dynbus

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMapping(t *testing.T) {
	m := &Mapping{}
	m.Set(String("b"), Number(1))
	m.Set(String("a"), Number(2))
	m.Set(Number(3), Bool(true))
	m.Set(String("b"), Number(4))
	m.Set(NewInt64(3), String("wrapped"))

	if got, want := m.Len(), 4; got != want {
		t.Errorf("Len() = %d, want %d", got, want)
	}
	wantKeys := []Value{String("b"), String("a"), Number(3), NewInt64(3)}
	if diff := cmp.Diff(m.Keys(), wantKeys); diff != "" {
		t.Errorf("Keys() wrong (-got+want):\n%s", diff)
	}

	lookups := []struct {
		k    Value
		want Value
	}{
		{String("b"), Number(4)},
		{String("a"), Number(2)},
		{Number(3), Bool(true)},
		{NewInt64(3), String("wrapped")},
		{NewInt32(3), nil},
		{String("c"), nil},
	}
	for _, tc := range lookups {
		got, ok := m.Get(tc.k)
		if ok != (tc.want != nil) {
			t.Errorf("Get(%v) found=%v, want %v", tc.k, ok, tc.want != nil)
			continue
		}
		if diff := cmp.Diff(got, tc.want); diff != "" {
			t.Errorf("Get(%v) wrong (-got+want):\n%s", tc.k, diff)
		}
	}
}

func TestMappingUnhashableKeys(t *testing.T) {
	m := &Mapping{}
	m.Set(Sequence{Number(1)}, String("seq"))
	m.Set(Number(math.NaN()), String("nan"))
	m.Set(Sequence{Number(1)}, String("seq2"))

	if got, want := m.Len(), 2; got != want {
		t.Errorf("Len() = %d, want %d", got, want)
	}
	got, ok := m.Get(Sequence{Number(1)})
	if !ok || !Equal(got, String("seq2")) {
		t.Errorf("Get([1]) = %v, %v, want \"seq2\"", got, ok)
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		a, b Value
		want bool
	}{
		{Nil{}, Nil{}, true},
		{nil, nil, true},
		{Nil{}, nil, false},
		{Number(1), Number(1), true},
		{Number(1), NewInt32(1), false},
		{NewInt32(1), NewInt32(1), true},
		{NewInt32(1), NewInt64(1), false},
		{NewInt64(math.MaxInt64), NewInt64(math.MaxInt64 - 1), false},
		{String("a"), String("a"), true},
		{Sequence{Number(1), String("a")}, Sequence{Number(1), String("a")}, true},
		{Sequence{Number(1)}, Sequence{Number(1), Number(2)}, false},
		{NewMapping(String("a"), Number(1), String("b"), Number(2)), NewMapping(String("a"), Number(1), String("b"), Number(2)), true},
		{NewMapping(String("a"), Number(1), String("b"), Number(2)), NewMapping(String("b"), Number(2), String("a"), Number(1)), false},
		{mustTypedArray(t, "i"), mustTypedArray(t, "i"), true},
		{mustTypedArray(t, "i"), mustTypedArray(t, "u"), false},
	}
	for _, tc := range tests {
		if got := Equal(tc.a, tc.b); got != tc.want {
			t.Errorf("Equal(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestValueString(t *testing.T) {
	tests := []struct {
		in   Value
		want string
	}{
		{Nil{}, "nil"},
		{Number(1.5), "1.5"},
		{String("a"), `"a"`},
		{Sequence{Number(1), Bool(true)}, "[1, true]"},
		{NewMapping(String("a"), Number(1)), `{"a": 1}`},
		{NewInt64(-5), "int64(-5)"},
		{NewUint64(math.MaxUint64), "uint64(18446744073709551615)"},
		{mustTypedArray(t, "s"), "array<as>([])"},
	}
	for _, tc := range tests {
		if got := valueString(tc.in); got != tc.want {
			t.Errorf("valueString(%#v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
