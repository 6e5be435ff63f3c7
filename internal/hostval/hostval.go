// Package hostval converts YAML and MessagePack documents to and from
// dynbus Values.
//
// YAML documents may use local tags named after wire types to wrap a
// value explicitly, for example:
//
//	- !int64 5
//	- !objpath /org/freedesktop/DBus
//	- !variant {a: 1}
//
// Integer tags accept decimal, hex (0x) and octal (0o) literals, and
// are parsed exactly. Mapping order is preserved.
package hostval

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/danderson/dynbus"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// maxExactInteger is the largest magnitude at which a dynbus.Number
// holds every integer exactly.
const maxExactInteger = 1 << 53

// FromYAML parses a YAML document into a list of values. A top-level
// sequence yields one value per element, anything else yields a
// single value.
func FromYAML(doc []byte) ([]dynbus.Value, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(doc, &root); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if root.Kind == 0 {
		// Empty document.
		return nil, nil
	}
	v, err := FromNode(&root)
	if err != nil {
		return nil, err
	}
	if seq, ok := v.(dynbus.Sequence); ok {
		return seq, nil
	}
	return []dynbus.Value{v}, nil
}

// FromNode converts a YAML node to a Value.
func FromNode(n *yaml.Node) (dynbus.Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return dynbus.Nil{}, nil
		}
		return FromNode(n.Content[0])
	case yaml.AliasNode:
		return FromNode(n.Alias)
	}

	if t, ok := wrapperTag(n.Tag); ok {
		return fromTagged(n, t)
	}

	switch n.Kind {
	case yaml.ScalarNode:
		return fromScalar(n)
	case yaml.SequenceNode:
		ret := make(dynbus.Sequence, len(n.Content))
		for i, c := range n.Content {
			v, err := FromNode(c)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", c.Line, err)
			}
			ret[i] = v
		}
		return ret, nil
	case yaml.MappingNode:
		ret := &dynbus.Mapping{}
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, err := FromNode(n.Content[i])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", n.Content[i].Line, err)
			}
			v, err := FromNode(n.Content[i+1])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", n.Content[i+1].Line, err)
			}
			ret.Set(k, v)
		}
		return ret, nil
	}
	return nil, fmt.Errorf("line %d: unsupported YAML node kind %v", n.Line, n.Kind)
}

// wrapperTag returns the wire type named by a local YAML tag such as
// "!int64".
func wrapperTag(tag string) (dynbus.WireType, bool) {
	if !strings.HasPrefix(tag, "!") || strings.HasPrefix(tag, "!!") {
		return dynbus.TypeInvalid, false
	}
	return dynbus.TypeForName(tag[1:])
}

func fromTagged(n *yaml.Node, t dynbus.WireType) (dynbus.Value, error) {
	var (
		inner dynbus.Value
		err   error
	)
	if n.Kind == yaml.ScalarNode && (isInteger(t) || t == dynbus.TypeString || t == dynbus.TypeObjectPath || t == dynbus.TypeSignature) {
		// Use the literal text, so that integers are parsed exactly
		// and strings are not reinterpreted as numbers.
		inner = dynbus.String(n.Value)
	} else {
		untagged := *n
		untagged.Tag = ""
		if inner, err = FromNode(&untagged); err != nil {
			return nil, err
		}
	}
	w, err := dynbus.Wrap(t, inner)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", n.Line, err)
	}
	return w, nil
}

func isInteger(t dynbus.WireType) bool {
	switch t {
	case dynbus.TypeByte, dynbus.TypeInt16, dynbus.TypeUint16, dynbus.TypeInt32, dynbus.TypeUint32, dynbus.TypeInt64, dynbus.TypeUint64, dynbus.TypeUnixFD:
		return true
	}
	return false
}

func fromScalar(n *yaml.Node) (dynbus.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return dynbus.Nil{}, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, err
		}
		return dynbus.Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			if i < -maxExactInteger || i > maxExactInteger {
				return dynbus.NewInt64(i), nil
			}
			return dynbus.Number(i), nil
		}
		var u uint64
		if err := n.Decode(&u); err != nil {
			return nil, err
		}
		return dynbus.NewUint64(u), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, err
		}
		return dynbus.Number(f), nil
	default:
		return dynbus.String(n.Value), nil
	}
}

// ToYAML renders values as a YAML sequence. Wrappers are rendered
// with the local tag of their wire type, except inside variants,
// where the tag of the boxed value wins.
func ToYAML(vs []dynbus.Value) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.SequenceNode}
	for _, v := range vs {
		root.Content = append(root.Content, ToNode(v))
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ToNode converts a Value to a YAML node.
func ToNode(v dynbus.Value) *yaml.Node {
	switch v := v.(type) {
	case nil, dynbus.Nil:
		return scalar("!!null", "null")
	case dynbus.Bool:
		return scalar("!!bool", strconv.FormatBool(bool(v)))
	case dynbus.Number:
		return numberNode(float64(v))
	case dynbus.String:
		return scalar("!!str", string(v))
	case dynbus.Sequence:
		ret := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, e := range v {
			ret.Content = append(ret.Content, ToNode(e))
		}
		return ret
	case *dynbus.Mapping:
		ret := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for k, e := range v.All() {
			ret.Content = append(ret.Content, ToNode(k), ToNode(e))
		}
		return ret
	case dynbus.Wrapper:
		return wrapperNode(v)
	}
	return scalar("!!null", "null")
}

func wrapperNode(w dynbus.Wrapper) *yaml.Node {
	tag := "!" + w.Type().String()
	switch {
	case isInteger(w.Type()):
		switch w.Type() {
		case dynbus.TypeInt16, dynbus.TypeInt32, dynbus.TypeInt64:
			return scalar(tag, strconv.FormatInt(w.Int64(), 10))
		default:
			return scalar(tag, strconv.FormatUint(w.Uint64(), 10))
		}
	case w.Type() == dynbus.TypeVariant:
		ret := ToNode(w.Inner())
		if _, isWrapper := w.Inner().(dynbus.Wrapper); !isWrapper {
			ret.Tag = tag
		}
		return ret
	}
	ret := ToNode(w.Inner())
	ret.Tag = tag
	return ret
}

func numberNode(f float64) *yaml.Node {
	switch {
	case math.IsNaN(f):
		return scalar("!!float", ".nan")
	case math.IsInf(f, 1):
		return scalar("!!float", ".inf")
	case math.IsInf(f, -1):
		return scalar("!!float", "-.inf")
	case f == math.Trunc(f) && math.Abs(f) <= maxExactInteger:
		return scalar("!!int", strconv.FormatInt(int64(f), 10))
	default:
		return scalar("!!float", strconv.FormatFloat(f, 'g', -1, 64))
	}
}

func scalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

// FromMsgpack decodes a stream of MessagePack values. Each top-level
// MessagePack value in bs yields one Value.
func FromMsgpack(bs []byte) ([]dynbus.Value, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(bs))
	var ret []dynbus.Value
	for {
		x, err := dec.DecodeInterface()
		if errors.Is(err, io.EOF) {
			return ret, nil
		} else if err != nil {
			return nil, fmt.Errorf("decoding MessagePack value %d: %w", len(ret), err)
		}
		v, err := dynbus.FromAny(x)
		if err != nil {
			return nil, err
		}
		ret = append(ret, v)
	}
}

// ToMsgpack encodes values as a stream of MessagePack values, one per
// Value.
func ToMsgpack(vs []dynbus.Value) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	for _, v := range vs {
		if err := enc.Encode(dynbus.ToAny(v)); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
