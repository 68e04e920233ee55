package buffer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/tuneinsight/rnsct/utils"
)

// Read reads exactly len(c) bytes from r into c.
func Read(r Reader, c []byte) (n int64, err error) {
	nint, err := io.ReadFull(r, c)
	return int64(nint), err
}

// ReadUint8 reads a byte from r into c.
func ReadUint8(r Reader, c *uint8) (n int64, err error) {

	if c == nil {
		return 0, fmt.Errorf("cannot ReadUint8: c is nil")
	}

	var bb = [1]byte{}

	if n, err = Read(r, bb[:]); err != nil {
		return
	}

	*c = bb[0]

	return n, nil
}

// ReadUint64 reads a little-endian uint64 from r into c.
func ReadUint64(r Reader, c *uint64) (n int64, err error) {

	if c == nil {
		return 0, fmt.Errorf("cannot ReadUint64: c is nil")
	}

	var bb = [8]byte{}

	if n, err = Read(r, bb[:]); err != nil {
		return
	}

	*c = binary.LittleEndian.Uint64(bb[:])

	return n, nil
}

// ReadFloat64 reads an IEEE-754 binary64 value from r into c.
func ReadFloat64(r Reader, c *float64) (n int64, err error) {

	if c == nil {
		return 0, fmt.Errorf("cannot ReadFloat64: c is nil")
	}

	var u uint64
	if n, err = ReadUint64(r, &u); err != nil {
		return
	}

	*c = math.Float64frombits(u)

	return n, nil
}

// ReadUint64Slice reads len(c) little-endian uint64 values from r into c.
// The values are decoded directly from the internal buffer of r.
func ReadUint64Slice(r Reader, c []uint64) (n int64, err error) {

	for len(c) != 0 {

		size := len(c) << 3

		// Avoid peeking beyond the internal buffer
		if buffered := r.Size() &^ 7; buffered < size {
			size = buffered
		}

		if size == 0 {
			size = 8
		}

		var slice []byte
		slice, err = r.Peek(size)

		buffered := len(slice) >> 3

		for i, j := 0, 0; i < buffered; i, j = i+1, j+8 {
			c[i] = binary.LittleEndian.Uint64(slice[j:])
		}

		// Discards what was decoded
		inc, errDiscard := r.Discard(buffered << 3)
		n += int64(inc)

		if err != nil {
			if errors.Is(err, io.EOF) {
				return n, io.ErrUnexpectedEOF
			}
			return
		}

		if errDiscard != nil {
			return n, errDiscard
		}

		if buffered == 0 {
			return n, io.ErrUnexpectedEOF
		}

		c = c[buffered:]
	}

	return
}

// ReadFault classifies an error returned by one of the reading functions of
// this package. Premature ends of input are reported as [utils.ErrCorruptData],
// as the data announced by the input is not present. Any other error is
// reported as [utils.ErrIOFault]. The original error stays in the chain.
func ReadFault(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return fmt.Errorf("%w: truncated input: %w", utils.ErrCorruptData, err)
	case errors.Is(err, utils.ErrIOFault):
		return err
	default:
		return fmt.Errorf("%w: %w", utils.ErrIOFault, err)
	}
}

// WriteFault reports an error returned by one of the writing functions of
// this package as [utils.ErrIOFault], keeping the original error in the chain.
func WriteFault(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, utils.ErrIOFault):
		return err
	default:
		return fmt.Errorf("%w: %w", utils.ErrIOFault, err)
	}
}
