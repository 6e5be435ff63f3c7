package dynbus

// A Writer is a sink for DBus values, such as a message body under
// construction.
//
// Basic values are appended with AppendBasic. Containers are written
// by opening a sub-Writer with OpenContainer, writing the container's
// contents to it, and passing it back to CloseContainer. Containers
// must be closed in the reverse order they were opened, even if
// writing their contents failed.
//
// The Go type of a basic value depends on its wire type: uint8 for
// TypeByte, bool for TypeBoolean, int16, uint16, int32, uint32, int64
// and uint64 for the integer types of the same name, float64 for
// TypeDouble, string for TypeString, TypeObjectPath and
// TypeSignature, and uint32 for TypeUnixFD.
type Writer interface {
	// AppendBasic writes a basic value of type t.
	AppendBasic(t WireType, v any) error
	// OpenContainer starts a container of type t, which must be
	// TypeArray, TypeStruct, TypeVariant or TypeDictEntry. sig is the
	// element signature of an array, or the signature of the value
	// boxed by a variant. It is empty for structs and dict entries.
	OpenContainer(t WireType, sig Signature) (Writer, error)
	// CloseContainer ends the container written by sub, which must
	// have been returned by OpenContainer on the same Writer.
	CloseContainer(sub Writer) error
}

// A Reader is a source of DBus values, such as a received message
// body.
//
// A Reader is positioned on one value at a time. Basic values are
// read with Basic, containers are entered with Recurse. Next moves
// past the current value whether or not it was read.
type Reader interface {
	// CurrentType returns the wire type of the current value, or
	// TypeInvalid if there are no more values. Dictionaries report
	// TypeArray.
	CurrentType() WireType
	// ElementType returns the element type of the current array,
	// which is TypeDictEntry for dictionaries.
	ElementType() WireType
	// Basic reads the current basic value, using the Go types listed
	// in the documentation of [Writer].
	Basic() (any, error)
	// Recurse returns a Reader over the contents of the current
	// container.
	Recurse() (Reader, error)
	// Next advances to the next value.
	Next() error
}
