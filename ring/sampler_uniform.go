package ring

import (
	"encoding/binary"
	"fmt"
	"io"
	"math/bits"

	"github.com/tuneinsight/rnsct/utils"
	"github.com/tuneinsight/rnsct/utils/sampling"
)

// UniformSampler wraps a sampling.PRNG and samples residues uniformly
// in [0, q-1] by rejection.
// It is not safe for concurrent use.
type UniformSampler struct {
	prng sampling.PRNG
	buff []byte
	ptr  int
}

// NewUniformSampler creates a new instance of UniformSampler drawing its
// randomness from prng.
func NewUniformSampler(prng sampling.PRNG) *UniformSampler {
	buff := make([]byte, 1024)
	return &UniformSampler{prng: prng, buff: buff, ptr: len(buff)}
}

// Read fills coeffs with residues uniformly distributed in [0, q-1].
func (u *UniformSampler) Read(q uint64, coeffs []uint64) (err error) {

	if q == 0 {
		return fmt.Errorf("ring.UniformSampler.Read: %w: modulus is zero", utils.ErrInvalidArgument)
	}

	mask := uint64(1)<<bits.Len64(q-1) - 1

	for i := range coeffs {

		for {

			// Refills the buffer if it runs empty
			if u.ptr == len(u.buff) {
				if _, err = io.ReadFull(u.prng, u.buff); err != nil {
					return fmt.Errorf("ring.UniformSampler.Read: %w", err)
				}
				u.ptr = 0
			}

			randomUint := binary.BigEndian.Uint64(u.buff[u.ptr:u.ptr+8]) & mask
			u.ptr += 8

			if randomUint < q {
				coeffs[i] = randomUint
				break
			}
		}
	}

	return
}
