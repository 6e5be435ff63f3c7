package hostval

import (
	"math"
	"testing"

	"github.com/danderson/dynbus"
	"github.com/google/go-cmp/cmp"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func TestFromYAML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []dynbus.Value
	}{
		{"empty", "", nil},
		{"scalar", "42", []dynbus.Value{dynbus.Number(42)}},
		{"string", `"42"`, []dynbus.Value{dynbus.String("42")}},
		{"null", "null", []dynbus.Value{dynbus.Nil{}}},
		{
			"plain values",
			"- 1\n- -2.5\n- foo\n- true\n- null\n",
			[]dynbus.Value{
				dynbus.Number(1),
				dynbus.Number(-2.5),
				dynbus.String("foo"),
				dynbus.Bool(true),
				dynbus.Nil{},
			},
		},
		{
			"big integers",
			"- 9007199254740993\n- 18446744073709551615\n",
			[]dynbus.Value{
				dynbus.NewInt64(1<<53 + 1),
				dynbus.NewUint64(math.MaxUint64),
			},
		},
		{
			"mapping order",
			"- {b: 1, a: [true, null]}\n",
			[]dynbus.Value{
				dynbus.NewMapping(
					dynbus.String("b"), dynbus.Number(1),
					dynbus.String("a"), dynbus.Sequence{dynbus.Bool(true), dynbus.Nil{}},
				),
			},
		},
		{
			"tags",
			`
- !int64 9007199254740993
- !uint64 0xffffffffffffffff
- !byte 300
- !string 12
- !objpath /a/b
- !double 2
- !variant {x: 1.5}
- !array [1, 2]
`,
			[]dynbus.Value{
				dynbus.NewInt64(1<<53 + 1),
				dynbus.NewUint64(math.MaxUint64),
				dynbus.NewByte(44),
				dynbus.NewString("12"),
				must(dynbus.NewObjectPath("/a/b")),
				dynbus.NewDouble(2),
				must(dynbus.NewVariant(dynbus.NewMapping(dynbus.String("x"), dynbus.Number(1.5)))),
				must(dynbus.NewArray(dynbus.Number(1), dynbus.Number(2))),
			},
		},
		{
			"alias",
			"- &x {k: v}\n- *x\n",
			[]dynbus.Value{
				dynbus.NewMapping(dynbus.String("k"), dynbus.String("v")),
				dynbus.NewMapping(dynbus.String("k"), dynbus.String("v")),
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := FromYAML([]byte(tc.in))
			if err != nil {
				t.Fatalf("FromYAML(%q) got err: %v", tc.in, err)
			}
			if diff := cmp.Diff(got, tc.want); diff != "" {
				t.Errorf("FromYAML(%q) wrong result (-got+want):\n%s", tc.in, diff)
			}
		})
	}
}

func TestFromYAMLErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"syntax", "[1, 2"},
		{"bad integer tag", "!int32 twelve"},
		{"bad object path", "!objpath foo"},
		{"empty array tag", "!array []"},
		{"nil variant", "!variant null"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := FromYAML([]byte(tc.in))
			if err == nil {
				t.Errorf("FromYAML(%q) = %v, want error", tc.in, got)
			} else if testing.Verbose() {
				t.Logf("FromYAML(%q) err: %v", tc.in, err)
			}
		})
	}
}

func TestToYAML(t *testing.T) {
	in := []dynbus.Value{
		dynbus.Number(1),
		dynbus.Number(0.5),
		dynbus.String("x"),
		dynbus.String("12"),
		dynbus.NewInt64(5),
		dynbus.Sequence{dynbus.Bool(true)},
		dynbus.NewMapping(dynbus.String("k"), dynbus.Nil{}),
	}
	got, err := ToYAML(in)
	if err != nil {
		t.Fatalf("ToYAML(%v) got err: %v", in, err)
	}
	want := `- 1
- 0.5
- x
- "12"
- !int64 5
- - true
- k: null
`
	if diff := cmp.Diff(string(got), want); diff != "" {
		t.Errorf("ToYAML(%v) wrong output (-got+want):\n%s", in, diff)
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	in := []dynbus.Value{
		dynbus.Number(-7),
		dynbus.Number(0.1),
		dynbus.String("true"),
		dynbus.Bool(false),
		dynbus.NewInt16(-3),
		dynbus.NewUint64(math.MaxUint64),
		dynbus.NewUnixFD(2),
		dynbus.NewDouble(3),
		must(dynbus.NewObjectPath("/org/example")),
		must(dynbus.NewSignature("a{sv}")),
		must(dynbus.NewVariant(dynbus.Number(1))),
		must(dynbus.NewArray(dynbus.String("a"))),
		must(dynbus.NewStruct(dynbus.Number(1), dynbus.String("b"))),
		dynbus.NewMapping(
			dynbus.String("z"), dynbus.Number(1),
			dynbus.String("a"), dynbus.Sequence{dynbus.Number(2), dynbus.Nil{}},
		),
	}
	bs, err := ToYAML(in)
	if err != nil {
		t.Fatalf("ToYAML(%v) got err: %v", in, err)
	}
	got, err := FromYAML(bs)
	if err != nil {
		t.Fatalf("FromYAML(%q) got err: %v", bs, err)
	}
	if diff := cmp.Diff(got, in); diff != "" {
		t.Errorf("round trip through %q wrong (-got+want):\n%s", bs, diff)
	}
}

func TestMsgpack(t *testing.T) {
	in := []dynbus.Value{
		dynbus.Number(1),
		dynbus.String("x"),
		dynbus.Bool(true),
		dynbus.Nil{},
		dynbus.Sequence{dynbus.Number(1.5), dynbus.String("y")},
		dynbus.NewMapping(dynbus.String("b"), dynbus.Number(2), dynbus.String("a"), dynbus.Number(3)),
		dynbus.NewInt64(1 << 60),
		dynbus.NewUint64(math.MaxUint64),
	}
	bs, err := ToMsgpack(in)
	if err != nil {
		t.Fatalf("ToMsgpack(%v) got err: %v", in, err)
	}
	got, err := FromMsgpack(bs)
	if err != nil {
		t.Fatalf("FromMsgpack(%x) got err: %v", bs, err)
	}
	want := []dynbus.Value{
		dynbus.Number(1),
		dynbus.String("x"),
		dynbus.Bool(true),
		dynbus.Nil{},
		dynbus.Sequence{dynbus.Number(1.5), dynbus.String("y")},
		// Map keys come back sorted.
		dynbus.NewMapping(dynbus.String("a"), dynbus.Number(3), dynbus.String("b"), dynbus.Number(2)),
		dynbus.NewInt64(1 << 60),
		dynbus.NewUint64(math.MaxUint64),
	}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("msgpack round trip wrong (-got+want):\n%s", diff)
	}

	if _, err := FromMsgpack([]byte{0xc1}); err == nil {
		t.Errorf("FromMsgpack of reserved byte succeeded")
	}
}
