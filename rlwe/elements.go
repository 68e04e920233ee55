package rlwe

import (
	"fmt"

	"github.com/tuneinsight/rnsct/ring"
	"github.com/tuneinsight/rnsct/utils/sampling"
)

// PopulateElementRandom fills the polynomials of ct with residues uniformly
// distributed modulo the moduli of the parameter set of reg ct is bound to.
// The metadata of ct must be valid for reg.
func PopulateElementRandom(prng sampling.PRNG, reg ParameterRegistry, ct *Ciphertext) (err error) {

	var shape Shape
	if shape, err = ct.checkMetadata(reg); err != nil {
		return fmt.Errorf("rlwe.PopulateElementRandom: %w", err)
	}

	sampler := ring.NewUniformSampler(prng)

	for i := 0; i < ct.Size(); i++ {
		for j, qj := range shape.Moduli {
			if err = sampler.Read(qj, ct.Residues(i, j)); err != nil {
				return fmt.Errorf("rlwe.PopulateElementRandom: %w", err)
			}
		}
	}

	return
}

// NewCiphertextRandom generates a new uniformly distributed Ciphertext of
// size polynomials at the given level of ctx.
func NewCiphertextRandom(prng sampling.PRNG, ctx *Context, size, level int) (ct *Ciphertext, err error) {

	if ct, err = NewCiphertextFromContext(ctx, size, level, nil); err != nil {
		return nil, fmt.Errorf("rlwe.NewCiphertextRandom: %w", err)
	}

	if err = PopulateElementRandom(prng, ctx, ct); err != nil {
		ct.Release()
		return nil, fmt.Errorf("rlwe.NewCiphertextRandom: %w", err)
	}

	return
}
