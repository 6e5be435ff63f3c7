// Package fragments provides low-level encoding and decoding helpers
// for the DBus wire format.
//
// The provided encoder and decoder are very low level, and do not
// encode any DBus type semantics beyond alignment. It is the caller's
// responsibility to produce valid DBus values using these tools.
//
// You should not need to use this package directly, unless you are
// implementing your own dynbus.Writer or dynbus.Reader over a
// different message representation.
package fragments
