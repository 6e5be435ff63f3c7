package dynbus

import (
	"errors"
	"fmt"
)

// Errors reported by the transcoder. Use errors.Is to test for them,
// they are usually wrapped in a [TranscodeError] that says where in
// the value tree the problem was found.
var (
	// ErrSignatureTooLong is returned when a signature would exceed
	// [MaxSignatureLength] bytes.
	ErrSignatureTooLong = errors.New("signature too long")
	// ErrRecursionTooDeep is returned when a value or signature nests
	// containers deeper than [MaxDepth].
	ErrRecursionTooDeep = errors.New("recursion too deep")
	// ErrTypeMismatch is returned when a value cannot be converted to
	// the wire type requested of it.
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrAmbiguousType is returned when no wire type can be inferred
	// for a value, for example an empty sequence.
	ErrAmbiguousType = errors.New("ambiguous type")
	// ErrSignatureValueCountMismatch is returned when a struct or
	// message body has a different number of values than its
	// signature has types.
	ErrSignatureValueCountMismatch = errors.New("signature and value count mismatch")
	// ErrUnknownWireType is returned when encoding meets a wire type
	// the encoder does not know. Decoding skips unknown types instead.
	ErrUnknownWireType = errors.New("unknown wire type")
	// ErrInvalidSignature is returned for syntactically invalid
	// signatures.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrMalformed is returned when wire data does not match the
	// signature that describes it.
	ErrMalformed = errors.New("malformed message")
)

// TranscodeError is the error returned when a value cannot be
// converted to or from the DBus wire format.
type TranscodeError struct {
	// Op is the operation that failed: "classify", "signature",
	// "marshal" or "unmarshal".
	Op string
	// Path locates the offending value within the value tree, for
	// example `[1]{"key"}`. The empty path is the root.
	Path string
	// Err is the reason for the failure. It wraps one of the
	// package's sentinel errors.
	Err error
}

func (e *TranscodeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *TranscodeError) Unwrap() error {
	return e.Err
}

// transcodeErr builds a TranscodeError wrapping sentinel, with a
// formatted detail message.
func transcodeErr(op string, sentinel error, detail string, args ...any) error {
	var err error
	if detail == "" {
		err = sentinel
	} else {
		err = fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(detail, args...))
	}
	return &TranscodeError{Op: op, Err: err}
}

// atPath prefixes the location of err with elem, so that errors
// raised deep in a recursion report the full path to the value.
func atPath(err error, elem string) error {
	var te *TranscodeError
	if !errors.As(err, &te) {
		return err
	}
	return &TranscodeError{Op: te.Op, Path: elem + te.Path, Err: te.Err}
}

func indexPath(i int) string {
	return fmt.Sprintf("[%d]", i)
}

func keyPath(k Value) string {
	return fmt.Sprintf("{%s}", k)
}
