// Package dynbus converts dynamically typed values to and from the
// DBus wire format.
//
// Values are trees of [Nil], [Bool], [Number], [String], [Sequence],
// [*Mapping] and [Wrapper]. With no signature to guide it, the
// transcoder infers a wire type for each value with [Classify], and a
// signature for a list of values with [SignatureOf]. Numbers become
// int32, uint32, int64 or double depending on their range, sequences
// become arrays if their elements all have the same type or structs
// otherwise, and mappings become dictionaries of variants. Wrappers
// override inference, for example to send a small number as an int64,
// or to send an empty array of a particular type.
//
// [Marshal] writes values to a [Writer] following a signature, and
// [Unmarshal] reads them back from a [Reader]. [BodyWriter] and
// [BodyReader] implement these interfaces over DBus message bodies,
// and [Codec] wraps the whole process into byte slices.
//
// Decoding is lossless for 64-bit integers, which decode to int64 and
// uint64 Wrappers rather than Numbers. Variants decode to the value
// they box. Values of unknown wire types are skipped.
package dynbus
