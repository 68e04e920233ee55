package utils

import (
	"errors"
)

// The following errors are the failure classes reported by this module.
// Callers should match them with errors.Is, as returned errors wrap them
// with the name of the failing operation and the offending values.
var (
	// ErrInvalidArgument reports an unusable input: a nil or unready parameter
	// registry, an unresolvable fingerprint or an out-of-range size.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrArithmeticOverflow reports a shape product that cannot be represented.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")

	// ErrResourceExhausted reports an allocation failure.
	ErrResourceExhausted = errors.New("resource exhausted")

	// ErrIOFault reports a fault of the underlying stream while saving or loading.
	ErrIOFault = errors.New("i/o fault")

	// ErrCorruptData reports serialized data that is not self-consistent.
	ErrCorruptData = errors.New("corrupt data")
)
