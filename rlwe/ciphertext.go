package rlwe

import (
	"fmt"

	"github.com/tuneinsight/rnsct/ring"
	"github.com/tuneinsight/rnsct/utils"
)

// Bounds are the inclusive bounds on the number of polynomials of a Ciphertext.
// A size of zero is always accepted by [Ciphertext.Resize] and denotes an
// empty ciphertext.
type Bounds struct {
	MinSize int
	MaxSize int
}

// DefaultBounds are the bounds of ciphertexts created without explicit bounds.
var DefaultBounds = Bounds{MinSize: 2, MaxSize: 16}

// Validate returns an error if b is not a valid pair of bounds.
func (b Bounds) Validate() error {
	if b.MinSize < 1 || b.MaxSize < b.MinSize {
		return fmt.Errorf("%w: invalid bounds [%d, %d]", utils.ErrInvalidArgument, b.MinSize, b.MaxSize)
	}
	return nil
}

// Contains returns true if size is within the bounds.
func (b Bounds) Contains(size int) bool {
	return b.MinSize <= size && size <= b.MaxSize
}

// Ciphertext is a tuple of polynomials in RNS form stored in a single
// contiguous buffer of residues. The residue k of polynomial i modulo the
// j-th modulus is stored at offset (i*ModulusCount()+j)*RingDegree()+k.
//
// The shape of a Ciphertext is dictated by the parameter set its fingerprint
// identifies, and is changed with [Ciphertext.Reserve] and [Ciphertext.Resize].
// After every method returns, the buffer holds exactly
// Size()*RingDegree()*ModulusCount() residues and Capacity() >= Size().
// Residues are only checked against their moduli on demand, see
// [Ciphertext.IsValidFor].
//
// The zero value is an empty Ciphertext with [DefaultBounds] drawing its
// storage from [ring.DefaultPool].
// A Ciphertext exclusively owns its buffer and is not safe for concurrent use.
type Ciphertext struct {
	MetaData

	fingerprint  Fingerprint
	size         int
	capacity     int
	ringDegree   int
	modulusCount int

	bounds Bounds
	buff   *ring.Buffer
}

// NewCiphertext returns a new empty Ciphertext with [DefaultBounds] and a
// scale of 1. Its storage is drawn from alloc, or from [ring.DefaultPool] if
// alloc is nil.
func NewCiphertext(alloc ring.Allocator) *Ciphertext {
	return &Ciphertext{
		MetaData: MetaData{Scale: 1},
		bounds:   DefaultBounds,
		buff:     ring.NewBuffer(alloc),
	}
}

// NewCiphertextWithBounds returns a new empty Ciphertext whose size is
// constrained to bounds.
func NewCiphertextWithBounds(bounds Bounds, alloc ring.Allocator) (*Ciphertext, error) {
	if err := bounds.Validate(); err != nil {
		return nil, fmt.Errorf("rlwe.NewCiphertextWithBounds: %w", err)
	}
	ct := NewCiphertext(alloc)
	ct.bounds = bounds
	return ct, nil
}

// NewCiphertextAt returns a new empty Ciphertext bound to the parameter set
// fp of reg, with room for sizeCapacity polynomials.
func NewCiphertextAt(reg ParameterRegistry, fp Fingerprint, sizeCapacity int, alloc ring.Allocator) (*Ciphertext, error) {
	ct := NewCiphertext(alloc)
	if err := ct.Reserve(reg, fp, sizeCapacity); err != nil {
		ct.Release()
		return nil, err
	}
	return ct, nil
}

// NewCiphertextFromContext returns a new zero Ciphertext of size polynomials at
// the given level of ctx. Its metadata is set to the defaults of the parameters.
func NewCiphertextFromContext(ctx *Context, size, level int, alloc ring.Allocator) (*Ciphertext, error) {

	fp, ok := ctx.FingerprintAtLevel(level)
	if !ok {
		return nil, fmt.Errorf("rlwe.NewCiphertextFromContext: %w: no level %d", ErrInvalidParameterSet, level)
	}

	ct := NewCiphertext(alloc)
	if err := ct.Resize(ctx, fp, size); err != nil {
		ct.Release()
		return nil, err
	}

	params := ctx.Parameters()
	ct.MetaData = MetaData{Scale: params.DefaultScale(), IsNTT: params.DefaultNTTFlag()}

	return ct, nil
}

func (ct *Ciphertext) buffer() *ring.Buffer {
	if ct.buff == nil {
		ct.buff = ring.NewBuffer(nil)
	}
	return ct.buff
}

// Fingerprint returns the fingerprint of the parameter set the ciphertext was last bound to.
func (ct *Ciphertext) Fingerprint() Fingerprint {
	return ct.fingerprint
}

// Bounds returns the bounds on the size of the ciphertext.
func (ct *Ciphertext) Bounds() Bounds {
	if ct.bounds == (Bounds{}) {
		return DefaultBounds
	}
	return ct.bounds
}

// Size returns the number of polynomials of the ciphertext.
func (ct *Ciphertext) Size() int {
	return ct.size
}

// Capacity returns the number of polynomials the ciphertext has reserved room for.
func (ct *Ciphertext) Capacity() int {
	return ct.capacity
}

// RingDegree returns the number of coefficients of each polynomial.
func (ct *Ciphertext) RingDegree() int {
	return ct.ringDegree
}

// ModulusCount returns the number of RNS moduli of each polynomial.
func (ct *Ciphertext) ModulusCount() int {
	return ct.modulusCount
}

// Level returns the level of the ciphertext, that is ModulusCount()-1.
func (ct *Ciphertext) Level() int {
	return ct.modulusCount - 1
}

// Buffer returns the buffer backing the ciphertext. Its length must not be
// changed by the caller.
func (ct *Ciphertext) Buffer() *ring.Buffer {
	return ct.buffer()
}

// Coeffs returns all the residues of the ciphertext, without copy.
func (ct *Ciphertext) Coeffs() []uint64 {
	return ct.buffer().Slice()
}

// Poly returns the residues of the i-th polynomial, without copy.
// It panics if i is not in [0, Size()-1].
func (ct *Ciphertext) Poly(i int) []uint64 {
	if i < 0 || i >= ct.size {
		panic(fmt.Errorf("rlwe.Ciphertext.Poly: index %d is not in [0, %d]", i, ct.size-1))
	}
	stride := ct.ringDegree * ct.modulusCount
	return ct.buffer().Slice()[i*stride : (i+1)*stride]
}

// Residues returns the residues of the i-th polynomial modulo the j-th modulus, without copy.
// It panics if i or j is out of range.
func (ct *Ciphertext) Residues(i, j int) []uint64 {
	if j < 0 || j >= ct.modulusCount {
		panic(fmt.Errorf("rlwe.Ciphertext.Residues: modulus index %d is not in [0, %d]", j, ct.modulusCount-1))
	}
	return ct.Poly(i)[j*ct.ringDegree : (j+1)*ct.ringDegree]
}

// At returns the k-th coefficient of the i-th polynomial modulo the j-th modulus.
func (ct *Ciphertext) At(i, j, k int) uint64 {
	return ct.Residues(i, j)[k]
}

// Set sets the k-th coefficient of the i-th polynomial modulo the j-th modulus to v.
func (ct *Ciphertext) Set(i, j, k int, v uint64) {
	ct.Residues(i, j)[k] = v
}

// Reserve binds the ciphertext to the parameter set fp of reg and reserves
// room for sizeCapacity polynomials of that shape.
//
// The fingerprint is rebound as soon as fp is resolved, before sizeCapacity
// is checked, so that a failing Reserve may leave the ciphertext bound to fp
// with its previous shape. The size is clamped to sizeCapacity.
//
// If the shape of fp differs from the current one, the kept residues are
// reinterpreted with the new shape and are not meaningful anymore; the caller
// must re-populate or re-validate the ciphertext.
func (ct *Ciphertext) Reserve(reg ParameterRegistry, fp Fingerprint, sizeCapacity int) (err error) {

	var shape Shape
	if shape, err = Resolve(reg, fp); err != nil {
		return fmt.Errorf("rlwe.Ciphertext.Reserve: %w", err)
	}

	ct.fingerprint = fp

	if bounds := ct.Bounds(); !bounds.Contains(sizeCapacity) {
		return fmt.Errorf("rlwe.Ciphertext.Reserve: %w: size capacity %d is not in [%d, %d]", utils.ErrInvalidArgument, sizeCapacity, bounds.MinSize, bounds.MaxSize)
	}

	var elements int
	if elements, err = utils.MulSafe(sizeCapacity, shape.RingDegree, shape.ModulusCount); err != nil {
		return fmt.Errorf("rlwe.Ciphertext.Reserve: %w", err)
	}

	size := utils.Min(ct.size, sizeCapacity)

	buff := ct.buffer()

	if err = buff.Reserve(elements); err != nil {
		return fmt.Errorf("rlwe.Ciphertext.Reserve: %w", err)
	}

	// Cannot fail: the storage already holds elements >= size*N*L residues.
	if err = buff.Resize(size * shape.RingDegree * shape.ModulusCount); err != nil {
		return fmt.Errorf("rlwe.Ciphertext.Reserve: %w", err)
	}

	ct.capacity = sizeCapacity
	ct.size = size
	ct.ringDegree = shape.RingDegree
	ct.modulusCount = shape.ModulusCount

	return
}

// Resize binds the ciphertext to the parameter set fp of reg and sets its
// number of polynomials to size, which must be zero or within Bounds().
//
// The fingerprint is rebound as soon as fp is resolved, before size is
// checked. Residues of polynomials that are kept are preserved, new residues
// are zero. As with Reserve, changing the shape reinterprets the kept residues.
func (ct *Ciphertext) Resize(reg ParameterRegistry, fp Fingerprint, size int) (err error) {

	var shape Shape
	if shape, err = Resolve(reg, fp); err != nil {
		return fmt.Errorf("rlwe.Ciphertext.Resize: %w", err)
	}

	ct.fingerprint = fp

	if err = ct.resize(size, shape.RingDegree, shape.ModulusCount); err != nil {
		return fmt.Errorf("rlwe.Ciphertext.Resize: %w", err)
	}

	return
}

func (ct *Ciphertext) resize(size, ringDegree, modulusCount int) (err error) {

	if bounds := ct.Bounds(); size != 0 && !bounds.Contains(size) {
		return fmt.Errorf("%w: size %d is not 0 nor in [%d, %d]", utils.ErrInvalidArgument, size, bounds.MinSize, bounds.MaxSize)
	}

	var length int
	if length, err = utils.MulSafe(size, ringDegree, modulusCount); err != nil {
		return
	}

	if err = ct.buffer().Resize(length); err != nil {
		return
	}

	ct.size = size
	ct.capacity = utils.Max(ct.capacity, size)
	ct.ringDegree = ringDegree
	ct.modulusCount = modulusCount

	return
}

// Release returns the storage of the ciphertext to its allocator and resets
// it to an empty ciphertext bound to no parameter set, with a scale of 1.
// The bounds and the allocator are kept.
func (ct *Ciphertext) Release() {
	ct.buffer().Release()
	ct.MetaData = MetaData{Scale: 1}
	ct.fingerprint = Fingerprint{}
	ct.size, ct.capacity = 0, 0
	ct.ringDegree, ct.modulusCount = 0, 0
}

// Copy sets ct to a deep copy of other: its fingerprint, metadata, shape and
// residues. The size of other must be zero or within the bounds of ct.
func (ct *Ciphertext) Copy(other *Ciphertext) (err error) {

	if ct == other {
		return
	}

	ct.fingerprint = other.fingerprint
	ct.MetaData = other.MetaData

	if err = ct.resize(other.size, other.ringDegree, other.modulusCount); err != nil {
		return fmt.Errorf("rlwe.Ciphertext.Copy: %w", err)
	}

	copy(ct.buffer().Slice(), other.buffer().Slice())

	return
}

// CopyNew returns a deep copy of the ciphertext, with the same bounds,
// capacity and allocator.
func (ct *Ciphertext) CopyNew() (*Ciphertext, error) {

	buff, err := ct.buffer().CopyNew()
	if err != nil {
		return nil, fmt.Errorf("rlwe.Ciphertext.CopyNew: %w", err)
	}

	if elements, errMul := utils.MulSafe(ct.capacity, ct.ringDegree, ct.modulusCount); errMul == nil {
		if err = buff.Reserve(elements); err != nil {
			buff.Release()
			return nil, fmt.Errorf("rlwe.Ciphertext.CopyNew: %w", err)
		}
	}

	ctCopy := *ct
	ctCopy.buff = buff

	return &ctCopy, nil
}

// Equal returns true if both ciphertexts have the same fingerprint, metadata,
// shape and residues. The capacity and bounds are not compared.
func (ct *Ciphertext) Equal(other *Ciphertext) bool {
	return ct.fingerprint == other.fingerprint &&
		ct.MetaData.Equal(other.MetaData) &&
		ct.size == other.size &&
		ct.ringDegree == other.ringDegree &&
		ct.modulusCount == other.modulusCount &&
		ct.buffer().Equal(other.buffer())
}

// IsTransparent returns true if the ciphertext does not hide its plaintext:
// it has fewer than two polynomials, or all its polynomials but the first are zero.
func (ct *Ciphertext) IsTransparent() bool {

	if ct.size < 2 {
		return true
	}

	for _, c := range ct.buffer().Slice()[ct.ringDegree*ct.modulusCount:] {
		if c != 0 {
			return false
		}
	}

	return true
}

// swap exchanges the whole state of ct and other, buffers included.
func (ct *Ciphertext) swap(other *Ciphertext) {
	*ct, *other = *other, *ct
}
