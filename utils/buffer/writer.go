package buffer

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Write writes a slice of bytes to w.
func Write(w Writer, c []byte) (n int64, err error) {
	nint, err := w.Write(c)
	return int64(nint), err
}

// WriteUint8 writes a byte c to w.
func WriteUint8(w Writer, c uint8) (n int64, err error) {

	if w.Available() == 0 {
		if err = w.Flush(); err != nil {
			return
		}

		if w.Available() == 0 {
			return 0, fmt.Errorf("cannot WriteUint8: available buffer is zero even after flush")
		}
	}

	buf := append(w.AvailableBuffer(), c)

	nint, err := w.Write(buf)

	return int64(nint), err
}

// WriteUint64 writes a uint64 c into w.
func WriteUint64(w Writer, c uint64) (n int64, err error) {

	if w.Available()>>3 == 0 {
		if err = w.Flush(); err != nil {
			return
		}

		if w.Available()>>3 == 0 {
			return 0, fmt.Errorf("cannot WriteUint64: available buffer/8 is zero even after flush")
		}
	}

	buf := binary.LittleEndian.AppendUint64(w.AvailableBuffer(), c)

	nint, err := w.Write(buf)

	return int64(nint), err
}

// WriteFloat64 writes the IEEE-754 binary representation of c into w.
func WriteFloat64(w Writer, c float64) (n int64, err error) {
	return WriteUint64(w, math.Float64bits(c))
}

// WriteUint64Slice writes a slice of uint64 into w.
func WriteUint64Slice(w Writer, c []uint64) (n int64, err error) {

	for len(c) != 0 {

		// Remaining available space in the internal buffer
		available := w.Available() >> 3

		if available == 0 {

			if err = w.Flush(); err != nil {
				return
			}

			if available = w.Available() >> 3; available == 0 {
				return n, fmt.Errorf("cannot WriteUint64Slice: available buffer/8 is zero even after flush")
			}
		}

		N := len(c)
		if N > available {
			N = available
		}

		buf := w.AvailableBuffer()
		for i := 0; i < N; i++ {
			buf = binary.LittleEndian.AppendUint64(buf, c[i])
		}

		var inc int
		inc, err = w.Write(buf)
		n += int64(inc)

		if err != nil {
			return
		}

		c = c[N:]
	}

	return
}
