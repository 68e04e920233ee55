package rlwe

import (
	"fmt"

	"github.com/tuneinsight/rnsct/utils"
)

// IsMetadataValidFor returns true if the fingerprint of the ciphertext
// identifies a parameter set of reg whose ring degree and number of moduli
// match the shape of the ciphertext. It returns false if reg is nil or not
// ready, and never panics.
func (ct *Ciphertext) IsMetadataValidFor(reg ParameterRegistry) bool {
	_, err := ct.checkMetadata(reg)
	return err == nil
}

// IsValidFor returns true if the metadata of the ciphertext is valid for reg
// and every residue is smaller than its modulus. Its cost is linear in the
// number of residues; it is the check to apply to a ciphertext read from an
// untrusted source before operating on it.
func (ct *Ciphertext) IsValidFor(reg ParameterRegistry) bool {
	return ct.CheckValidFor(reg) == nil
}

// CheckValidFor is as IsValidFor but returns the first violation as an error
// instead of false: an error wrapping [ErrInvalidParameterSet] or
// [ErrParametersNotReady] if the metadata does not match reg, and an error
// wrapping [utils.ErrCorruptData] naming the first out-of-range residue.
func (ct *Ciphertext) CheckValidFor(reg ParameterRegistry) error {

	shape, err := ct.checkMetadata(reg)
	if err != nil {
		return fmt.Errorf("rlwe.Ciphertext.CheckValidFor: %w", err)
	}

	coeffs := ct.buffer().Slice()

	if length, err := utils.MulSafe(ct.size, ct.ringDegree, ct.modulusCount); err != nil || length != len(coeffs) {
		return fmt.Errorf("rlwe.Ciphertext.CheckValidFor: %w: %d residues for a shape of %dx%dx%d",
			utils.ErrCorruptData, len(coeffs), ct.size, ct.ringDegree, ct.modulusCount)
	}

	N := ct.ringDegree

	for i, ptr := 0, 0; i < ct.size; i++ {
		for j, qj := range shape.Moduli {
			for k, c := range coeffs[ptr : ptr+N] {
				if c >= qj {
					return fmt.Errorf("rlwe.Ciphertext.CheckValidFor: %w: residue %d of polynomial %d modulo Q[%d]=%d is %d",
						utils.ErrCorruptData, k, i, j, qj, c)
				}
			}
			ptr += N
		}
	}

	return nil
}

func (ct *Ciphertext) checkMetadata(reg ParameterRegistry) (shape Shape, err error) {

	if shape, err = Resolve(reg, ct.fingerprint); err != nil {
		return
	}

	if shape.RingDegree != ct.ringDegree || shape.ModulusCount != ct.modulusCount {
		return Shape{}, fmt.Errorf("%w: shape %dx%d does not match the ciphertext shape %dx%d",
			ErrInvalidParameterSet, shape.RingDegree, shape.ModulusCount, ct.ringDegree, ct.modulusCount)
	}

	return
}
