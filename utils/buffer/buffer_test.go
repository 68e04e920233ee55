package buffer

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tuneinsight/rnsct/utils"
)

// faultyWriter accepts limit bytes and fails afterwards.
type faultyWriter struct {
	bytes.Buffer
	limit int
}

var errDiskFull = errors.New("disk full")

func (w *faultyWriter) Write(p []byte) (n int, err error) {
	if w.Len()+len(p) > w.limit {
		n, _ = w.Buffer.Write(p[:w.limit-w.Len()])
		return n, errDiskFull
	}
	return w.Buffer.Write(p)
}

func TestBuffer(t *testing.T) {

	t.Run("WriteRead", func(t *testing.T) {
		b := NewBufferSize(1 + 8 + 8)

		_, err := WriteUint8(b, 0xff)
		require.NoError(t, err)
		_, err = WriteUint64(b, 0x1122334455667788)
		require.NoError(t, err)
		_, err = WriteFloat64(b, -0.5)
		require.NoError(t, err)

		require.Equal(t, []byte{0xff, 0x88, 0x77, 0x66, 0x55, 0x44, 0x33, 0x22, 0x11}, b.Bytes()[:9])
		require.Equal(t, 0, b.Available())

		var c8 uint8
		var c64 uint64
		var f64 float64

		_, err = ReadUint8(b, &c8)
		require.NoError(t, err)
		_, err = ReadUint64(b, &c64)
		require.NoError(t, err)
		_, err = ReadFloat64(b, &f64)
		require.NoError(t, err)

		require.Equal(t, uint8(0xff), c8)
		require.Equal(t, uint64(0x1122334455667788), c64)
		require.Equal(t, -0.5, f64)

		_, err = ReadUint8(b, &c8)
		require.ErrorIs(t, err, io.EOF)
	})

	t.Run("TooSmall", func(t *testing.T) {
		b := NewBufferSize(4)
		_, err := WriteUint64Slice(b, []uint64{1})
		require.Error(t, err)
	})

	t.Run("Uint64Slice/Buffer", func(t *testing.T) {
		c := make([]uint64, 100)
		for i := range c {
			c[i] = uint64(i) * 0x0101010101010101
		}

		b := NewBufferSize(len(c) << 3)
		n, err := WriteUint64Slice(b, c)
		require.NoError(t, err)
		require.Equal(t, int64(len(c)<<3), n)

		cNew := make([]uint64, len(c))
		n, err = ReadUint64Slice(b, cNew)
		require.NoError(t, err)
		require.Equal(t, int64(len(c)<<3), n)
		require.Equal(t, c, cNew)
	})

	t.Run("Uint64Slice/Bufio", func(t *testing.T) {
		// Larger than the internal buffers to exercise the flush and refill paths.
		c := make([]uint64, 3*4096+5)
		for i := range c {
			c[i] = math.MaxUint64 - uint64(i)
		}

		var sink bytes.Buffer
		w := bufio.NewWriterSize(&sink, 64)
		_, err := WriteUint64Slice(w, c)
		require.NoError(t, err)
		require.NoError(t, w.Flush())
		require.Equal(t, len(c)<<3, sink.Len())

		cNew := make([]uint64, len(c))
		_, err = ReadUint64Slice(bufio.NewReaderSize(&sink, 64), cNew)
		require.NoError(t, err)
		require.Equal(t, c, cNew)
	})

	t.Run("Uint64Slice/Truncated", func(t *testing.T) {
		b := NewBuffer(make([]byte, 8*3+5))
		_, err := ReadUint64Slice(b, make([]uint64, 4))
		require.ErrorIs(t, err, io.ErrUnexpectedEOF)
		require.ErrorIs(t, ReadFault(err), utils.ErrCorruptData)
	})
}

func TestReadWriteFault(t *testing.T) {
	require.NoError(t, ReadFault(nil))
	require.NoError(t, WriteFault(nil))

	err := ReadFault(io.EOF)
	require.ErrorIs(t, err, utils.ErrCorruptData)
	require.ErrorIs(t, err, io.EOF)

	err = ReadFault(errDiskFull)
	require.ErrorIs(t, err, utils.ErrIOFault)
	require.ErrorIs(t, err, errDiskFull)

	err = WriteFault(errDiskFull)
	require.ErrorIs(t, err, utils.ErrIOFault)
	require.ErrorIs(t, err, errDiskFull)
}

func TestStream(t *testing.T) {

	t.Run("RoundTrip", func(t *testing.T) {
		var sink bytes.Buffer
		s := NewStream(&sink)
		require.Equal(t, Lenient, s.Mode())

		_, err := WriteUint64Slice(s, []uint64{1, 2, 3})
		require.NoError(t, err)
		require.NoError(t, s.Flush())

		c := make([]uint64, 3)
		_, err = ReadUint64Slice(s, c)
		require.NoError(t, err)
		require.Equal(t, []uint64{1, 2, 3}, c)
		require.False(t, s.Failed())
	})

	t.Run("Strict/WriteFault", func(t *testing.T) {
		s := NewWriteStream(&faultyWriter{limit: 3})
		s.SetMode(Strict)

		_, err := WriteUint64(s, 42)
		require.NoError(t, err) // still buffered

		err = s.Flush()
		require.ErrorIs(t, err, utils.ErrIOFault)
		require.ErrorIs(t, err, errDiskFull)
		require.True(t, s.Failed())

		// Sticky
		_, err = s.Write([]byte{1})
		require.ErrorIs(t, err, utils.ErrIOFault)

		s.Clear()
		require.False(t, s.Failed())
	})

	t.Run("Lenient/WriteFault", func(t *testing.T) {
		s := NewWriteStream(&faultyWriter{limit: 3})

		_, err := WriteUint64Slice(s, make([]uint64, 4096))
		require.NoError(t, err)
		require.NoError(t, s.Flush())

		require.True(t, s.Failed())
		require.ErrorIs(t, s.Fault(), errDiskFull)

		n, err := s.Write([]byte{1, 2, 3})
		require.NoError(t, err)
		require.Equal(t, 3, n)
	})

	t.Run("Lenient/ReadFault", func(t *testing.T) {
		s := NewReadStream(bytes.NewReader([]byte{1, 2, 3}))

		var c uint64
		_, err := ReadUint64(s, &c)
		require.Error(t, err)
		require.True(t, s.Failed())
		require.ErrorIs(t, s.Fault(), io.EOF)

		n, err := s.Read(make([]byte, 1))
		require.Equal(t, 0, n)
		require.Equal(t, io.EOF, err)
	})

	t.Run("Strict/ReadFault", func(t *testing.T) {
		s := NewReadStream(bytes.NewReader([]byte{1, 2, 3}))
		s.SetMode(Strict)

		var c uint64
		_, err := ReadUint64(s, &c)
		require.ErrorIs(t, err, utils.ErrIOFault)
		require.ErrorIs(t, ReadFault(err), utils.ErrCorruptData)
	})

	t.Run("NotWritable", func(t *testing.T) {
		s := NewReadStream(bytes.NewReader(nil))
		s.SetMode(Strict)
		_, err := s.Write([]byte{1})
		require.ErrorIs(t, err, utils.ErrIOFault)
	})

	t.Run("Guard", func(t *testing.T) {
		s := NewWriteStream(io.Discard)

		guard := Guard(s, Strict)
		require.Equal(t, Strict, s.Mode())

		s.SetMode(Lenient) // modified under the guard
		s.SetMode(Strict)

		guard.Restore()
		require.Equal(t, Lenient, s.Mode())

		s.SetMode(Strict)
		guard.Restore() // no-op
		require.Equal(t, Strict, s.Mode())
	})

	t.Run("Guard/ErrorPath", func(t *testing.T) {
		s := NewWriteStream(&faultyWriter{limit: 0})

		write := func() (err error) {
			guard := Guard(s, Strict)
			defer guard.Restore()
			if _, err = WriteUint64(s, 1); err != nil {
				return
			}
			return s.Flush()
		}

		require.ErrorIs(t, write(), utils.ErrIOFault)
		require.Equal(t, Lenient, s.Mode())
		require.NoError(t, s.Flush())
	})

	require.Equal(t, "Strict", Strict.String())
	require.Equal(t, "FaultMode(7)", FaultMode(7).String())
}
