package ring

import (
	"fmt"
	"math/big"
	"math/bits"

	"github.com/tuneinsight/rnsct/utils"
)

// IsPrime applies the Baillie-PSW test, which is exact for numbers below 2^64.
func IsPrime(x uint64) bool {
	return new(big.Int).SetUint64(x).ProbablyPrime(0)
}

// GenerateNTTPrimes returns n distinct primes q = 1 mod NthRoot, searched
// from 2^logQ alternating upward and downward so that they have the smallest
// available deviation from 2^logQ. The search stays within [2^(logQ-1), 2^(logQ+1)).
// For logQ == 61 only the downward direction is searched, so that no prime
// exceeds 61 bits.
func GenerateNTTPrimes(logQ, NthRoot, n int) (primes []uint64, err error) {

	if logQ < 2 || logQ > 61 {
		return nil, fmt.Errorf("ring.GenerateNTTPrimes: %w: logQ=%d must be in [2, 61]", utils.ErrInvalidArgument, logQ)
	}

	if NthRoot <= 0 || NthRoot&(NthRoot-1) != 0 {
		return nil, fmt.Errorf("ring.GenerateNTTPrimes: %w: NthRoot=%d must be a power of two", utils.ErrInvalidArgument, NthRoot)
	}

	if n < 0 {
		return nil, fmt.Errorf("ring.GenerateNTTPrimes: %w: negative count %d", utils.ErrInvalidArgument, n)
	}

	primes = make([]uint64, 0, n)

	if n == 0 {
		return
	}

	step := uint64(NthRoot)
	pow2 := uint64(1) << logQ

	next, previous := pow2+1, pow2+1
	upward, downward := logQ < 61, true

	for upward || downward {

		if upward {
			if next += step; bits.Len64(next) > logQ+1 {
				upward = false
			} else if IsPrime(next) {
				if primes = append(primes, next); len(primes) == n {
					return
				}
			}
		}

		if downward {
			if previous <= step || bits.Len64(previous-step) < logQ {
				downward = false
			} else if previous -= step; IsPrime(previous) {
				if primes = append(primes, previous); len(primes) == n {
					return
				}
			}
		}
	}

	return nil, fmt.Errorf("ring.GenerateNTTPrimes: %w: only %d primes of %d bits are 1 mod %d, %d requested", utils.ErrInvalidArgument, len(primes), logQ, NthRoot, n)
}
