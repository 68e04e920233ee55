// Package ring implements the storage layer of RNS polynomials: a pooled,
// growable buffer of residues with its own binary format, together with the
// prime and sampling helpers used to generate and populate it.
package ring

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"golang.org/x/exp/slices"

	"github.com/tuneinsight/rnsct/utils"
	"github.com/tuneinsight/rnsct/utils/buffer"
)

// readChunk is the number of elements by which a Buffer grows while
// decoding, so that a forged length prefix cannot trigger an allocation
// larger than the data actually transmitted.
const readChunk = 1 << 16

// Buffer is a growable array of uint64 residues with a logical length
// tracked independently of its reserved capacity. Its backing storage is
// obtained from an [Allocator] and is exclusively owned by the Buffer.
//
// Elements beyond the logical length are always zero, so that growing the
// buffer never exposes data that was previously truncated.
//
// A Buffer is not safe for concurrent use.
type Buffer struct {
	alloc  Allocator
	data   []uint64
	length int
}

// NewBuffer returns a new empty Buffer drawing its storage from alloc.
// If alloc is nil, [DefaultPool] is used.
func NewBuffer(alloc Allocator) *Buffer {
	if alloc == nil {
		alloc = DefaultPool
	}
	return &Buffer{alloc: alloc}
}

// Allocator returns the allocator backing the buffer.
// The zero value of a Buffer uses [DefaultPool].
func (b *Buffer) Allocator() Allocator {
	if b.alloc == nil {
		b.alloc = DefaultPool
	}
	return b.alloc
}

// Len returns the logical length of the buffer.
func (b *Buffer) Len() int {
	return b.length
}

// Cap returns the number of elements the buffer can hold without reallocation.
func (b *Buffer) Cap() int {
	return len(b.data)
}

// Reserve grows the backing storage to hold at least n elements.
// It never shrinks the storage. When a reallocation is needed, the live
// elements are copied to the new storage and the old one is released.
func (b *Buffer) Reserve(n int) (err error) {

	if n < 0 {
		return fmt.Errorf("ring.Buffer.Reserve: %w: negative size %d", utils.ErrInvalidArgument, n)
	}

	if n <= len(b.data) {
		return
	}

	var fresh []uint64
	if fresh, err = b.Allocator().Allocate(n); err != nil {
		return fmt.Errorf("ring.Buffer.Reserve: %w", err)
	}

	fresh = fresh[:cap(fresh)]

	copy(fresh, b.data[:b.length])

	b.Allocator().Release(b.data)

	b.data = fresh

	return
}

// Resize sets the logical length of the buffer to n. The first min(Len(), n)
// elements are preserved, new elements are zero and truncated elements are
// zeroed. The storage is reallocated only if n exceeds Cap().
func (b *Buffer) Resize(n int) (err error) {

	if n < 0 {
		return fmt.Errorf("ring.Buffer.Resize: %w: negative size %d", utils.ErrInvalidArgument, n)
	}

	if err = b.Reserve(n); err != nil {
		return
	}

	if n < b.length {
		clear(b.data[n:b.length])
	}

	b.length = n

	return
}

// Slice returns the live elements of the buffer, without copy.
// The returned slice is valid until the next call to Reserve, Resize,
// Release or Swap.
func (b *Buffer) Slice() []uint64 {
	return b.data[:b.length:b.length]
}

// At returns the i-th element. It panics if i is out of range.
func (b *Buffer) At(i int) uint64 {
	return b.Slice()[i]
}

// Set sets the i-th element to v. It panics if i is out of range.
func (b *Buffer) Set(i int, v uint64) {
	b.Slice()[i] = v
}

// Zero sets all the live elements to zero.
func (b *Buffer) Zero() {
	clear(b.data[:b.length])
}

// Release returns the storage to the allocator. The buffer is empty and
// remains usable afterwards.
func (b *Buffer) Release() {
	b.Allocator().Release(b.data)
	b.data = nil
	b.length = 0
}

// Swap exchanges the content, storage and allocator of b and other.
func (b *Buffer) Swap(other *Buffer) {
	*b, *other = *other, *b
}

// Copy sets the content of b to the content of other.
func (b *Buffer) Copy(other *Buffer) (err error) {

	if b == other {
		return
	}

	if err = b.Resize(other.length); err != nil {
		return
	}

	copy(b.data, other.data[:other.length])

	return
}

// CopyNew returns a deep copy of the buffer, drawn from the same allocator.
func (b *Buffer) CopyNew() (*Buffer, error) {
	bcpy := NewBuffer(b.Allocator())
	if err := bcpy.Copy(b); err != nil {
		return nil, fmt.Errorf("ring.Buffer.CopyNew: %w", err)
	}
	return bcpy, nil
}

// Equal returns true if both buffers have the same logical length and elements.
func (b *Buffer) Equal(other *Buffer) bool {
	return slices.Equal(b.Slice(), other.Slice())
}

// BinarySize returns the serialized size of the buffer in bytes.
func (b *Buffer) BinarySize() int {
	return 8 + b.length<<3
}

// WriteTo writes the buffer on an io.Writer: its length as a little-endian
// uint64 followed by its elements as little-endian uint64. It implements the
// io.WriterTo interface, and will write exactly b.BinarySize() bytes on w.
//
// Unless w implements the buffer.Writer interface (see utils/buffer/writer.go),
// it will be wrapped into a bufio.Writer. Since this requires allocations, it
// is preferable to pass a buffer.Writer directly.
func (b *Buffer) WriteTo(w io.Writer) (n int64, err error) {
	switch w := w.(type) {
	case buffer.Writer:

		var inc int64
		if inc, err = buffer.WriteUint64(w, uint64(b.length)); err != nil {
			return n + inc, buffer.WriteFault(err)
		}

		n += inc

		if inc, err = buffer.WriteUint64Slice(w, b.Slice()); err != nil {
			return n + inc, buffer.WriteFault(err)
		}

		n += inc

		return n, buffer.WriteFault(w.Flush())

	default:
		return b.WriteTo(bufio.NewWriter(w))
	}
}

// ReadFrom reads a buffer written by WriteTo from an io.Reader. It implements
// the io.ReaderFrom interface.
//
// The elements are decoded into fresh storage which replaces the current one
// only if the whole payload was read: on error, b is left untouched.
// A payload shorter than its length prefix is reported as [utils.ErrCorruptData].
//
// Unless r implements the buffer.Reader interface (see utils/buffer/reader.go),
// it will be wrapped into a bufio.Reader. Since this requires allocation, it
// is preferable to pass a buffer.Reader directly.
func (b *Buffer) ReadFrom(r io.Reader) (n int64, err error) {
	switch r := r.(type) {
	case buffer.Reader:

		var length uint64
		if n, err = buffer.ReadUint64(r, &length); err != nil {
			return n, buffer.ReadFault(err)
		}

		if length > math.MaxInt>>3 {
			return n, fmt.Errorf("ring.Buffer.ReadFrom: %w: length prefix %d is not representable", utils.ErrCorruptData, length)
		}

		fresh := NewBuffer(b.Allocator())

		for done, size := 0, int(length); done < size; {

			chunk := utils.Min(size-done, readChunk)

			if err = fresh.Resize(done + chunk); err != nil {
				fresh.Release()
				return n, fmt.Errorf("ring.Buffer.ReadFrom: %w", err)
			}

			var inc int64
			inc, err = buffer.ReadUint64Slice(r, fresh.data[done:done+chunk])
			n += inc

			if err != nil {
				fresh.Release()
				return n, fmt.Errorf("ring.Buffer.ReadFrom: %w", buffer.ReadFault(err))
			}

			done += chunk
		}

		b.Swap(fresh)
		fresh.Release()

		return n, nil

	default:
		return b.ReadFrom(bufio.NewReader(r))
	}
}

// MarshalBinary encodes the buffer into a binary form on a newly allocated slice of bytes.
func (b *Buffer) MarshalBinary() (p []byte, err error) {
	buf := buffer.NewBufferSize(b.BinarySize())
	_, err = b.WriteTo(buf)
	return buf.Bytes(), err
}

// UnmarshalBinary decodes a slice of bytes generated by MarshalBinary or
// WriteTo on the buffer. The length prefix must match the size of the payload
// exactly, otherwise an error wrapping [utils.ErrCorruptData] is returned and b
// is left untouched.
func (b *Buffer) UnmarshalBinary(p []byte) (err error) {

	if len(p) < 8 {
		return fmt.Errorf("ring.Buffer.UnmarshalBinary: %w: %d bytes is shorter than the length prefix", utils.ErrCorruptData, len(p))
	}

	length := binary.LittleEndian.Uint64(p)

	if size, errMul := utils.MulSafeUint64(length, 8); errMul != nil || size != uint64(len(p)-8) {
		return fmt.Errorf("ring.Buffer.UnmarshalBinary: %w: length prefix %d does not match a payload of %d bytes", utils.ErrCorruptData, length, len(p)-8)
	}

	_, err = b.ReadFrom(buffer.NewBuffer(p))
	return
}
