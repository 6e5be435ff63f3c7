package dynbus

import (
	"fmt"
	"strings"
	"testing"
)

func mustArray(t *testing.T, elems ...Value) Wrapper {
	t.Helper()
	w, err := NewArray(elems...)
	if err != nil {
		t.Fatalf("NewArray(%v) failed: %v", elems, err)
	}
	return w
}

func mustTypedArray(t *testing.T, elemSig string, elems ...Value) Wrapper {
	t.Helper()
	w, err := NewTypedArray(elemSig, elems...)
	if err != nil {
		t.Fatalf("NewTypedArray(%q) failed: %v", elemSig, err)
	}
	return w
}

func mustVariant(t *testing.T, v Value) Wrapper {
	t.Helper()
	w, err := NewVariant(v)
	if err != nil {
		t.Fatalf("NewVariant(%v) failed: %v", v, err)
	}
	return w
}

// nested returns v wrapped in n levels of single-element Sequences.
func nested(n int, v Value) Value {
	for range n {
		v = Sequence{v}
	}
	return v
}

// recordingWriter is a Writer that logs the calls made to it, and
// checks that containers are closed in order.
type recordingWriter struct {
	log   *[]string
	depth int
	open  *[]*recordingWriter
	// failOn makes AppendBasic fail for values of this type.
	failOn WireType
}

func newRecordingWriter() *recordingWriter {
	return &recordingWriter{
		log:  new([]string),
		open: new([]*recordingWriter),
	}
}

func (w *recordingWriter) logf(msg string, args ...any) {
	*w.log = append(*w.log, strings.Repeat("  ", w.depth)+fmt.Sprintf(msg, args...))
}

func (w *recordingWriter) AppendBasic(t WireType, v any) error {
	if t == w.failOn {
		return fmt.Errorf("test failure on %s", t)
	}
	w.logf("%s %v", t, v)
	return nil
}

func (w *recordingWriter) OpenContainer(t WireType, sig Signature) (Writer, error) {
	w.logf("open %s %q", t, sig)
	sub := &recordingWriter{log: w.log, depth: w.depth + 1, open: w.open, failOn: w.failOn}
	*w.open = append(*w.open, sub)
	return sub, nil
}

func (w *recordingWriter) CloseContainer(sub Writer) error {
	open := *w.open
	if len(open) == 0 || open[len(open)-1] != sub {
		return fmt.Errorf("closing container out of order")
	}
	*w.open = open[:len(open)-1]
	w.logf("close")
	return nil
}

// fakeItem is one value served by a fakeReader.
type fakeItem struct {
	typ   WireType
	elem  WireType
	basic any
	items []fakeItem
}

func basicItem(t WireType, v any) fakeItem { return fakeItem{typ: t, basic: v} }

func containerItem(t WireType, items ...fakeItem) fakeItem {
	return fakeItem{typ: t, items: items}
}

// fakeReader is a Reader over a fixed list of items. Unlike a
// BodyReader, it can serve wire types that the package does not
// know.
type fakeReader struct {
	items []fakeItem
	pos   int
}

func (r *fakeReader) cur() *fakeItem {
	if r.pos >= len(r.items) {
		return nil
	}
	return &r.items[r.pos]
}

func (r *fakeReader) CurrentType() WireType {
	if c := r.cur(); c != nil {
		return c.typ
	}
	return TypeInvalid
}

func (r *fakeReader) ElementType() WireType {
	if c := r.cur(); c != nil {
		return c.elem
	}
	return TypeInvalid
}

func (r *fakeReader) Basic() (any, error) {
	c := r.cur()
	if c == nil || c.basic == nil {
		return nil, fmt.Errorf("no basic value at position %d", r.pos)
	}
	return c.basic, nil
}

func (r *fakeReader) Recurse() (Reader, error) {
	c := r.cur()
	if c == nil {
		return nil, fmt.Errorf("no container at position %d", r.pos)
	}
	return &fakeReader{items: c.items}, nil
}

func (r *fakeReader) Next() error {
	r.pos++
	return nil
}
