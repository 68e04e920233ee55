// Package rlwe implements the RNS ciphertext container: its parameter sets and their
// fingerprints, the shape management of its coefficient buffer, its validity checks and its
// binary format.
package rlwe

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math/bits"

	"github.com/google/go-cmp/cmp"

	"github.com/tuneinsight/rnsct/ring"
	"github.com/tuneinsight/rnsct/utils"
)

// MaxLogN is the log2 of the largest supported polynomial modulus degree.
const MaxLogN = 17

// MinLogN is the log2 of the smallest supported polynomial modulus degree.
const MinLogN = 1

// MaxModuliCount is the largest supported number of moduli in the RNS representation.
const MaxModuliCount = 64

// MaxModuliSize is the largest bit-length supported for the moduli in the RNS representation.
const MaxModuliSize = 61

// ParametersLiteral is a literal representation of RLWE parameters. It has public fields and
// is used to express unchecked user-defined parameters literally into Go programs.
// The NewParametersFromLiteral function is used to generate the actual checked parameters
// from the literal representation.
//
// Users must set the polynomial degree (LogN) and the coefficient modulus, by either setting
// the Q field to the desired moduli chain, or by setting the LogQ field to the desired
// moduli sizes.
//
// Optionally, users may specify the scale and NTT flag new ciphertexts start with.
// If left unset, the default scale is 1 and the NTT flag is false.
type ParametersLiteral struct {
	LogN           int
	Q              []uint64 `json:",omitempty"`
	LogQ           []int    `json:",omitempty"`
	DefaultScale   float64  `json:",omitempty"`
	DefaultNTTFlag bool     `json:",omitempty"`
}

// Parameters represents a set of generic RLWE parameters. Its fields are private and
// immutable. See ParametersLiteral for user-specified parameters.
type Parameters struct {
	logN           int
	qi             []uint64
	defaultScale   float64
	defaultNTTFlag bool
}

// NewParameters returns a new set of RLWE parameters from the given ring degree logn and moduli q.
// It returns the empty parameters Parameters{} and a non-nil error if the specified parameters are invalid.
func NewParameters(logn int, q []uint64, defaultScale float64, defaultNTTFlag bool) (params Parameters, err error) {

	if err = checkSizeParams(logn, len(q)); err != nil {
		return Parameters{}, fmt.Errorf("rlwe.NewParameters: %w", err)
	}

	if err = CheckModuli(q); err != nil {
		return Parameters{}, fmt.Errorf("rlwe.NewParameters: %w", err)
	}

	if defaultScale == 0 {
		defaultScale = 1
	}

	params = Parameters{
		logN:           logn,
		qi:             make([]uint64, len(q)),
		defaultScale:   defaultScale,
		defaultNTTFlag: defaultNTTFlag,
	}

	copy(params.qi, q)

	return
}

// NewParametersFromLiteral instantiates a set of RLWE parameters from a ParametersLiteral.
// It returns the empty parameters Parameters{} and a non-nil error if the
// specified parameters are invalid.
//
// If the moduli chain is specified through the LogQ field, the method generates a moduli
// chain matching the specified sizes (see GenModuli).
func NewParametersFromLiteral(paramDef ParametersLiteral) (params Parameters, err error) {
	switch {
	case paramDef.Q != nil && paramDef.LogQ == nil:
		return NewParameters(paramDef.LogN, paramDef.Q, paramDef.DefaultScale, paramDef.DefaultNTTFlag)
	case paramDef.LogQ != nil && paramDef.Q == nil:
		var q []uint64
		if q, err = GenModuli(paramDef.LogN, paramDef.LogQ); err != nil {
			return Parameters{}, fmt.Errorf("rlwe.NewParametersFromLiteral: %w", err)
		}
		return NewParameters(paramDef.LogN, q, paramDef.DefaultScale, paramDef.DefaultNTTFlag)
	default:
		return Parameters{}, fmt.Errorf("rlwe.NewParametersFromLiteral: %w: exactly one of Q and LogQ must be set", utils.ErrInvalidArgument)
	}
}

// ParametersLiteral returns the ParametersLiteral of the target Parameters.
func (p Parameters) ParametersLiteral() ParametersLiteral {
	Q := make([]uint64, len(p.qi))
	copy(Q, p.qi)
	return ParametersLiteral{
		LogN:           p.logN,
		Q:              Q,
		DefaultScale:   p.defaultScale,
		DefaultNTTFlag: p.defaultNTTFlag,
	}
}

// N returns the ring degree
func (p Parameters) N() int {
	return 1 << p.logN
}

// LogN returns the log of the degree of the polynomial ring
func (p Parameters) LogN() int {
	return p.logN
}

// Q returns a new slice with the factors of the ciphertext modulus q
func (p Parameters) Q() []uint64 {
	qi := make([]uint64, len(p.qi))
	copy(qi, p.qi)
	return qi
}

// QCount returns the number of factors of the ciphertext modulus Q
func (p Parameters) QCount() int {
	return len(p.qi)
}

// MaxLevel returns the maximum level of a ciphertext.
func (p Parameters) MaxLevel() int {
	return p.QCount() - 1
}

// DefaultScale returns the scale new ciphertexts are created with.
func (p Parameters) DefaultScale() float64 {
	return p.defaultScale
}

// DefaultNTTFlag returns the NTT flag new ciphertexts are created with.
func (p Parameters) DefaultNTTFlag() bool {
	return p.defaultNTTFlag
}

// AtLevel returns the parameters restricted to the first level+1 moduli.
// It panics if level is not in [0, MaxLevel()].
func (p Parameters) AtLevel(level int) Parameters {
	if level < 0 || level > p.MaxLevel() {
		panic(fmt.Errorf("rlwe.Parameters.AtLevel: level %d is not in [0, %d]", level, p.MaxLevel()))
	}
	pl := p
	pl.qi = p.Q()[:level+1]
	return pl
}

// Equal checks two Parameter structs for equality.
func (p Parameters) Equal(other Parameters) bool {
	res := p.logN == other.logN
	res = res && cmp.Equal(p.qi, other.qi)
	res = res && (p.defaultScale == other.defaultScale)
	res = res && (p.defaultNTTFlag == other.defaultNTTFlag)
	return res
}

// canonical returns the byte encoding of the shape-defining part of the
// parameters: logN and the number of moduli as little-endian uint64, followed
// by the moduli as little-endian uint64. Fingerprints are computed over it.
func (p Parameters) canonical() []byte {
	data := make([]byte, 0, 16+len(p.qi)<<3)
	data = binary.LittleEndian.AppendUint64(data, uint64(p.logN))
	data = binary.LittleEndian.AppendUint64(data, uint64(len(p.qi)))
	for _, qi := range p.qi {
		data = binary.LittleEndian.AppendUint64(data, qi)
	}
	return data
}

// MarshalBinary returns a []byte representation of the parameter set.
func (p Parameters) MarshalBinary() ([]byte, error) {
	return p.MarshalJSON()
}

// UnmarshalBinary decodes a slice of bytes on the target Parameters.
func (p *Parameters) UnmarshalBinary(data []byte) (err error) {
	return p.UnmarshalJSON(data)
}

// MarshalJSON returns a JSON representation of this parameter set. See `Marshal` from the `encoding/json` package.
func (p Parameters) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.ParametersLiteral())
}

// UnmarshalJSON reads a JSON representation of a parameter set into the receiver Parameter. See `Unmarshal` from the `encoding/json` package.
func (p *Parameters) UnmarshalJSON(data []byte) (err error) {
	var params ParametersLiteral
	if err = json.Unmarshal(data, &params); err != nil {
		return err
	}
	*p, err = NewParametersFromLiteral(params)
	return
}

// CheckModuli checks that the provided q corresponds to a valid moduli chain:
// at most MaxModuliCount distinct primes of at most MaxModuliSize bits.
func CheckModuli(q []uint64) error {

	if len(q) == 0 {
		return fmt.Errorf("%w: #Qi is zero", utils.ErrInvalidArgument)
	}

	if len(q) > MaxModuliCount {
		return fmt.Errorf("%w: #Qi is larger than %d", utils.ErrInvalidArgument, MaxModuliCount)
	}

	for i, qi := range q {
		if bits.Len64(qi) > MaxModuliSize {
			return fmt.Errorf("%w: a Qi bit-size (i=%d) is larger than %d", utils.ErrInvalidArgument, i, MaxModuliSize)
		}
	}

	for i, qi := range q {
		if !ring.IsPrime(qi) {
			return fmt.Errorf("%w: a Qi (i=%d) is not a prime", utils.ErrInvalidArgument, i)
		}
	}

	if !utils.AllDistinct(q) {
		return fmt.Errorf("%w: the Qi are not distinct", utils.ErrInvalidArgument)
	}

	return nil
}

func checkSizeParams(logN int, lenQ int) error {
	if logN > MaxLogN {
		return fmt.Errorf("%w: logN=%d is larger than MaxLogN=%d", utils.ErrInvalidArgument, logN, MaxLogN)
	}
	if logN < MinLogN {
		return fmt.Errorf("%w: logN=%d is smaller than MinLogN=%d", utils.ErrInvalidArgument, logN, MinLogN)
	}
	if lenQ > MaxModuliCount {
		return fmt.Errorf("%w: lenQ=%d is larger than MaxModuliCount=%d", utils.ErrInvalidArgument, lenQ, MaxModuliCount)
	}
	return nil
}

func checkModuliLogSize(logQ []int) error {
	for i, qi := range logQ {
		if qi <= 1 || qi > MaxModuliSize {
			return fmt.Errorf("%w: logQ[%d]=%d is not in ]1, %d]", utils.ErrInvalidArgument, i, qi, MaxModuliSize)
		}
	}
	return nil
}

// GenModuli generates a valid moduli chain from the provided moduli sizes.
// The primes are NTT-friendly for the ring of degree 2^logN.
func GenModuli(logN int, logQ []int) (q []uint64, err error) {

	if err = checkSizeParams(logN, len(logQ)); err != nil {
		return
	}

	if err = checkModuliLogSize(logQ); err != nil {
		return
	}

	// Extracts all the different primes bit size and maps their number
	primesbitlen := make(map[int]int)
	for _, qi := range logQ {
		primesbitlen[qi]++
	}

	// For each bit-size, finds that many primes
	primes := make(map[int][]uint64)
	for key, value := range primesbitlen {
		if primes[key], err = ring.GenerateNTTPrimes(key, 2<<logN, value); err != nil {
			return nil, err
		}
	}

	// Assigns the primes to the moduli chain
	for _, qi := range logQ {
		q = append(q, primes[qi][0])
		primes[qi] = primes[qi][1:]
	}

	return
}
