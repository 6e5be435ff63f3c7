package dynbus

import (
	"github.com/creachadair/mds/mapset"
)

// WireType is a DBus basic or container type.
type WireType uint8

const (
	// TypeInvalid marks the absence of a type, for example when a
	// [Reader] has no more values.
	TypeInvalid WireType = iota
	TypeByte
	TypeBoolean
	TypeInt16
	TypeUint16
	TypeInt32
	TypeUint32
	TypeInt64
	TypeUint64
	TypeDouble
	TypeString
	TypeObjectPath
	TypeSignature
	TypeUnixFD
	TypeArray
	TypeStruct
	TypeVariant
	// TypeDictionary is an array of dict entries. It has no type code
	// of its own, its signature is "a{...}".
	TypeDictionary
	// TypeDictEntry is a single key/value pair within a dictionary. It
	// only appears on the wire, never as a Wrapper tag.
	TypeDictEntry

	numWireTypes
)

// typeInfo is the static description of a WireType.
type typeInfo struct {
	code  byte
	name  string
	align int
	// check validates and normalizes the inner value of a Wrapper of
	// this type.
	check func(Value) (Wrapper, error)
}

// types is indexed by WireType. It is populated at init and never
// modified afterwards.
var types [numWireTypes]typeInfo

func init() {
	types = [numWireTypes]typeInfo{
		TypeInvalid:    {0, "invalid", 1, nil},
		TypeByte:       {'y', "byte", 1, wrapInteger(TypeByte)},
		TypeBoolean:    {'b', "boolean", 4, wrapBoolean},
		TypeInt16:      {'n', "int16", 2, wrapInteger(TypeInt16)},
		TypeUint16:     {'q', "uint16", 2, wrapInteger(TypeUint16)},
		TypeInt32:      {'i', "int32", 4, wrapInteger(TypeInt32)},
		TypeUint32:     {'u', "uint32", 4, wrapInteger(TypeUint32)},
		TypeInt64:      {'x', "int64", 8, wrapInteger(TypeInt64)},
		TypeUint64:     {'t', "uint64", 8, wrapInteger(TypeUint64)},
		TypeDouble:     {'d', "double", 8, wrapDouble},
		TypeString:     {'s', "string", 4, wrapString(TypeString)},
		TypeObjectPath: {'o', "objpath", 4, wrapString(TypeObjectPath)},
		TypeSignature:  {'g', "signature", 1, wrapString(TypeSignature)},
		TypeUnixFD:     {'h', "fd", 4, wrapInteger(TypeUnixFD)},
		TypeArray:      {'a', "array", 4, wrapArray},
		TypeStruct:     {'(', "struct", 8, wrapStruct},
		TypeVariant:    {'v', "variant", 1, wrapVariant},
		TypeDictionary: {'a', "dict", 4, wrapDictionary},
		TypeDictEntry:  {'{', "dictentry", 8, nil},
	}
}

var (
	// codeToType maps a DBus type code to its WireType. 'a' maps to
	// TypeArray, dictionaries are recognized by their "a{" prefix.
	codeToType = map[byte]WireType{
		'y': TypeByte,
		'b': TypeBoolean,
		'n': TypeInt16,
		'q': TypeUint16,
		'i': TypeInt32,
		'u': TypeUint32,
		'x': TypeInt64,
		't': TypeUint64,
		'd': TypeDouble,
		's': TypeString,
		'o': TypeObjectPath,
		'g': TypeSignature,
		'h': TypeUnixFD,
		'a': TypeArray,
		'(': TypeStruct,
		'v': TypeVariant,
		'{': TypeDictEntry,
	}

	// basicTypes is the set of non-container types, which are the
	// only types allowed as dictionary keys.
	basicTypes = mapset.New(
		TypeByte,
		TypeBoolean,
		TypeInt16,
		TypeUint16,
		TypeInt32,
		TypeUint32,
		TypeInt64,
		TypeUint64,
		TypeDouble,
		TypeString,
		TypeObjectPath,
		TypeSignature,
		TypeUnixFD,
	)

	// integerTypes is the set of basic types whose Wrappers carry an
	// exact integer.
	integerTypes = mapset.New(
		TypeByte,
		TypeInt16,
		TypeUint16,
		TypeInt32,
		TypeUint32,
		TypeInt64,
		TypeUint64,
		TypeUnixFD,
	)

	// signedTypes is the subset of integerTypes that sign-extend.
	signedTypes = mapset.New(TypeInt16, TypeInt32, TypeInt64)

	// stringTypes is the set of basic types carried as Go strings.
	stringTypes = mapset.New(TypeString, TypeObjectPath, TypeSignature)
)

// Code returns the DBus type code of t. Dictionaries report 'a', like
// any other array.
func (t WireType) Code() byte {
	if t >= numWireTypes {
		return 0
	}
	return types[t].code
}

// String returns a short lowercase name for t, such as "int32" or
// "objpath".
func (t WireType) String() string {
	if t >= numWireTypes {
		return "unknown"
	}
	return types[t].name
}

// IsBasic reports whether t is a basic (non-container) type.
func (t WireType) IsBasic() bool {
	return basicTypes.Has(t)
}

// IsContainer reports whether t is a container type.
func (t WireType) IsContainer() bool {
	return t > TypeUnixFD && t < numWireTypes
}

// align returns the wire alignment of values of type t.
func (t WireType) align() int {
	if t >= numWireTypes {
		return 1
	}
	return types[t].align
}

// TypeForName returns the WireType with the given String name, as
// used by textual value formats.
func TypeForName(name string) (WireType, bool) {
	for t := TypeByte; t < numWireTypes; t++ {
		if types[t].name == name {
			return t, true
		}
	}
	return TypeInvalid, false
}

// typeForCode returns the WireType of the first complete type in sig.
func typeForCode(sig string) WireType {
	if sig == "" {
		return TypeInvalid
	}
	if len(sig) > 1 && sig[0] == 'a' && sig[1] == '{' {
		return TypeDictionary
	}
	return codeToType[sig[0]]
}
