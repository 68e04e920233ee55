package rlwe

import (
	"bufio"
	"fmt"
	"io"
	"math"

	"github.com/tuneinsight/rnsct/ring"
	"github.com/tuneinsight/rnsct/utils"
	"github.com/tuneinsight/rnsct/utils/buffer"
)

// HeaderSize is the size in bytes of the header of a serialized Ciphertext:
// fingerprint, NTT flag, size, ring degree, number of moduli and scale.
const HeaderSize = FingerprintSize + 1 + 8 + 8 + 8 + 8

// header is the fixed-size part of a serialized Ciphertext.
type header struct {
	MetaData
	fingerprint  Fingerprint
	size         uint64
	ringDegree   uint64
	modulusCount uint64
}

// BinarySize returns the serialized size of the ciphertext in bytes.
func (ct *Ciphertext) BinarySize() int {
	return HeaderSize + ct.buffer().BinarySize()
}

// WriteTo writes the ciphertext on an io.Writer. It implements the
// io.WriterTo interface, and will write exactly ct.BinarySize() bytes on w.
//
// The layout is, with integers in little-endian:
//   - the fingerprint (32 bytes)
//   - the NTT flag (1 byte, 0 or 1)
//   - the size, ring degree and number of moduli (8 bytes each)
//   - the scale (8 bytes, IEEE-754 binary64)
//   - the residues, as written by ring.Buffer.WriteTo
//
// Unless w implements the buffer.Writer interface (see utils/buffer/writer.go),
// it will be wrapped into a bufio.Writer. Since this requires allocations, it
// is preferable to pass a buffer.Writer directly.
func (ct *Ciphertext) WriteTo(w io.Writer) (n int64, err error) {
	switch w := w.(type) {
	case buffer.Writer:

		var inc int64

		if inc, err = buffer.Write(w, ct.fingerprint[:]); err != nil {
			return n + inc, buffer.WriteFault(err)
		}
		n += inc

		var isNTT uint8
		if ct.IsNTT {
			isNTT = 1
		}

		if inc, err = buffer.WriteUint8(w, isNTT); err != nil {
			return n + inc, buffer.WriteFault(err)
		}
		n += inc

		for _, v := range []int{ct.size, ct.ringDegree, ct.modulusCount} {
			if inc, err = buffer.WriteUint64(w, uint64(v)); err != nil {
				return n + inc, buffer.WriteFault(err)
			}
			n += inc
		}

		if inc, err = buffer.WriteFloat64(w, ct.Scale); err != nil {
			return n + inc, buffer.WriteFault(err)
		}
		n += inc

		inc, err = ct.buffer().WriteTo(w)

		return n + inc, err

	default:
		return ct.WriteTo(bufio.NewWriter(w))
	}
}

// MarshalBinary encodes the ciphertext into a binary form on a newly allocated slice of bytes.
func (ct *Ciphertext) MarshalBinary() (p []byte, err error) {
	buf := buffer.NewBufferSize(ct.BinarySize())
	_, err = ct.WriteTo(buf)
	return buf.Bytes(), err
}

// ReadFrom reads a ciphertext written by WriteTo from an io.Reader. It
// implements the io.ReaderFrom interface.
//
// The residues are decoded into fresh storage and the ciphertext is modified
// only if the whole ciphertext was read and its number of residues matches
// its header. Otherwise ct is left untouched and the returned error wraps
// [utils.ErrCorruptData] for inconsistent or truncated data, and
// [utils.ErrIOFault] for failures of r.
//
// No residue is checked against a parameter set: see [Ciphertext.Load].
// The capacity of the ciphertext is set to its size.
//
// Unless r implements the buffer.Reader interface (see utils/buffer/reader.go),
// it will be wrapped into a bufio.Reader. Since this requires allocation, it
// is preferable to pass a buffer.Reader directly.
func (ct *Ciphertext) ReadFrom(r io.Reader) (n int64, err error) {
	switch r := r.(type) {
	case buffer.Reader:

		var hdr header
		var fresh *ring.Buffer
		if hdr, fresh, n, err = ct.decode(r); err != nil {
			return n, fmt.Errorf("rlwe.Ciphertext.ReadFrom: %w", err)
		}

		ct.apply(hdr, fresh)

		return n, nil

	default:
		return ct.ReadFrom(bufio.NewReader(r))
	}
}

// UnmarshalBinary decodes a slice of bytes generated by MarshalBinary or
// WriteTo on the ciphertext. Trailing bytes are reported as [utils.ErrCorruptData].
// On error, ct is left untouched.
func (ct *Ciphertext) UnmarshalBinary(p []byte) (err error) {

	hdr, fresh, n, err := ct.decode(buffer.NewBuffer(p))
	if err != nil {
		return fmt.Errorf("rlwe.Ciphertext.UnmarshalBinary: %w", err)
	}

	if n != int64(len(p)) {
		fresh.Release()
		return fmt.Errorf("rlwe.Ciphertext.UnmarshalBinary: %w: %d trailing bytes", utils.ErrCorruptData, int64(len(p))-n)
	}

	ct.apply(hdr, fresh)

	return
}

// Save writes the ciphertext on s. The stream is switched to the strict
// fault mode for the duration of the call, so that any fault of the
// underlying writer aborts the write and is returned as an error wrapping
// [utils.ErrIOFault]. The previous mode of s is restored before Save returns.
func (ct *Ciphertext) Save(s *buffer.Stream) (err error) {

	guard := buffer.Guard(s, buffer.Strict)
	defer guard.Restore()

	if _, err = ct.WriteTo(s); err != nil {
		return fmt.Errorf("rlwe.Ciphertext.Save: %w", err)
	}

	return
}

// UnsafeLoad reads a ciphertext written by Save from s, in the strict fault
// mode of s, with the guarantees of ReadFrom. The previous mode of s is
// restored before UnsafeLoad returns.
//
// UnsafeLoad only checks that the ciphertext is consistent with its own
// header: the loaded residues must be validated with [Ciphertext.IsValidFor]
// before they are operated on.
func (ct *Ciphertext) UnsafeLoad(s *buffer.Stream) (err error) {

	guard := buffer.Guard(s, buffer.Strict)
	defer guard.Restore()

	hdr, fresh, _, err := ct.decode(s)
	if err != nil {
		return fmt.Errorf("rlwe.Ciphertext.UnsafeLoad: %w", err)
	}

	ct.apply(hdr, fresh)

	return
}

// Load reads a ciphertext written by Save from s and checks that it is valid
// for reg, see [Ciphertext.CheckValidFor]. On error, ct is left untouched.
func (ct *Ciphertext) Load(reg ParameterRegistry, s *buffer.Stream) (err error) {

	tmp := &Ciphertext{bounds: ct.bounds, buff: ring.NewBuffer(ct.buffer().Allocator())}

	if err = tmp.UnsafeLoad(s); err != nil {
		return fmt.Errorf("rlwe.Ciphertext.Load: %w", err)
	}

	if err = tmp.CheckValidFor(reg); err != nil {
		tmp.Release()
		return fmt.Errorf("rlwe.Ciphertext.Load: %w", err)
	}

	ct.swap(tmp)
	tmp.Release()

	return
}

// decode reads a header and the residues that follow it from r, without
// modifying ct. The returned buffer is drawn from the allocator of ct.
func (ct *Ciphertext) decode(r buffer.Reader) (hdr header, fresh *ring.Buffer, n int64, err error) {

	var inc int64

	if inc, err = buffer.Read(r, hdr.fingerprint[:]); err != nil {
		return hdr, nil, n + inc, buffer.ReadFault(err)
	}
	n += inc

	var isNTT uint8
	if inc, err = buffer.ReadUint8(r, &isNTT); err != nil {
		return hdr, nil, n + inc, buffer.ReadFault(err)
	}
	n += inc

	hdr.IsNTT = isNTT != 0

	for _, v := range []*uint64{&hdr.size, &hdr.ringDegree, &hdr.modulusCount} {
		if inc, err = buffer.ReadUint64(r, v); err != nil {
			return hdr, nil, n + inc, buffer.ReadFault(err)
		}
		n += inc
	}

	if inc, err = buffer.ReadFloat64(r, &hdr.Scale); err != nil {
		return hdr, nil, n + inc, buffer.ReadFault(err)
	}
	n += inc

	fresh = ring.NewBuffer(ct.buffer().Allocator())

	inc, err = fresh.ReadFrom(r)
	n += inc

	if err != nil {
		return hdr, nil, n, err
	}

	expected, err := utils.MulSafeUint64(hdr.size, hdr.ringDegree, hdr.modulusCount)
	if err != nil {
		fresh.Release()
		return hdr, nil, n, fmt.Errorf("%w: %w", utils.ErrCorruptData, err)
	}

	if expected != uint64(fresh.Len()) {
		fresh.Release()
		return hdr, nil, n, fmt.Errorf("%w: %d residues for a shape of %dx%dx%d", utils.ErrCorruptData, fresh.Len(), hdr.size, hdr.ringDegree, hdr.modulusCount)
	}

	if hdr.size > math.MaxInt || hdr.ringDegree > math.MaxInt || hdr.modulusCount > math.MaxInt {
		fresh.Release()
		return hdr, nil, n, fmt.Errorf("%w: shape %dx%dx%d is not representable", utils.ErrCorruptData, hdr.size, hdr.ringDegree, hdr.modulusCount)
	}

	return hdr, fresh, n, nil
}

// apply overwrites the state of ct with a decoded header and buffer, and
// releases the previous storage of ct.
func (ct *Ciphertext) apply(hdr header, fresh *ring.Buffer) {

	ct.buffer().Swap(fresh)
	fresh.Release()

	ct.fingerprint = hdr.fingerprint
	ct.MetaData = hdr.MetaData
	ct.size = int(hdr.size)
	ct.capacity = ct.size
	ct.ringDegree = int(hdr.ringDegree)
	ct.modulusCount = int(hdr.modulusCount)
}
