// Package utils implements the error taxonomy and the small generic helpers shared by the other packages.
package utils

import (
	"fmt"
	"math/bits"

	"golang.org/x/exp/constraints"
)

// Min returns the minimum value of the two inputs.
func Min[V constraints.Ordered](a, b V) (r V) {
	if a <= b {
		return a
	}
	return b
}

// Max returns the maximum value of the two inputs.
func Max[V constraints.Ordered](a, b V) (r V) {
	if a >= b {
		return a
	}
	return b
}

// MulSafe returns the product of the non-negative input values.
// It returns an error wrapping [ErrArithmeticOverflow] if the product cannot
// be represented by V, and an error wrapping [ErrInvalidArgument] if any of
// the inputs is negative. The empty product is 1.
func MulSafe[V constraints.Integer](values ...V) (r V, err error) {

	r = 1

	for i, v := range values {

		if v < 0 {
			return 0, fmt.Errorf("%w: operand %d is negative", ErrInvalidArgument, i)
		}

		if r == 0 || v == 0 {
			r = 0
			continue
		}

		p := r * v
		if p/v != r || p < 0 {
			return 0, fmt.Errorf("%w: product of %v does not fit in %T", ErrArithmeticOverflow, values, r)
		}

		r = p
	}

	return
}

// MulSafeUint64 returns the product of the inputs, or an error wrapping
// [ErrArithmeticOverflow] if it does not fit on 64 bits.
func MulSafeUint64(values ...uint64) (r uint64, err error) {

	r = 1

	for _, v := range values {

		hi, lo := bits.Mul64(r, v)

		if hi != 0 {
			return 0, fmt.Errorf("%w: product of %v exceeds 64 bits", ErrArithmeticOverflow, values)
		}

		r = lo
	}

	return
}

// AllDistinct returns true if all elements in s are distinct, and false otherwise.
func AllDistinct[V comparable](s []V) bool {
	m := make(map[V]struct{}, len(s))
	for _, si := range s {
		if _, exists := m[si]; exists {
			return false
		}
		m[si] = struct{}{}
	}
	return true
}
