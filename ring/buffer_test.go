package ring

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuneinsight/rnsct/utils"
	"github.com/tuneinsight/rnsct/utils/buffer"
)

func newTestBuffer(t *testing.T, n int) *Buffer {
	b := NewBuffer(nil)
	require.NoError(t, b.Resize(n))
	for i := 0; i < n; i++ {
		b.Set(i, uint64(i+1)*0x9e3779b97f4a7c15)
	}
	return b
}

func TestBuffer(t *testing.T) {

	t.Run("Reserve", func(t *testing.T) {
		b := newTestBuffer(t, 10)
		want := append([]uint64{}, b.Slice()...)

		require.NoError(t, b.Reserve(100))
		require.GreaterOrEqual(t, b.Cap(), 100)
		require.Equal(t, 10, b.Len())
		require.Equal(t, want, b.Slice())

		capacity := b.Cap()
		require.NoError(t, b.Reserve(5))
		require.Equal(t, capacity, b.Cap(), "Reserve must never shrink the storage")

		require.ErrorIs(t, b.Reserve(-1), utils.ErrInvalidArgument)
	})

	t.Run("Resize", func(t *testing.T) {
		b := newTestBuffer(t, 16)
		want := append([]uint64{}, b.Slice()[:4]...)

		require.NoError(t, b.Resize(4))
		require.Equal(t, 4, b.Len())
		require.Equal(t, want, b.Slice())

		require.NoError(t, b.Resize(16))
		require.Equal(t, want, b.Slice()[:4])
		for i := 4; i < 16; i++ {
			require.Zero(t, b.At(i), "element %d was not zeroed", i)
		}

		require.ErrorIs(t, b.Resize(-1), utils.ErrInvalidArgument)
		require.Equal(t, 16, b.Len())
	})

	t.Run("ZeroValue", func(t *testing.T) {
		var b Buffer
		require.Equal(t, 0, b.Len())
		require.NoError(t, b.Resize(3))
		require.Equal(t, []uint64{0, 0, 0}, b.Slice())
		require.Equal(t, DefaultPool, b.Allocator())
		b.Release()
	})

	t.Run("Release", func(t *testing.T) {
		b := newTestBuffer(t, 32)
		b.Release()
		require.Equal(t, 0, b.Len())
		require.Equal(t, 0, b.Cap())
		require.NoError(t, b.Resize(2))
	})

	t.Run("Copy", func(t *testing.T) {
		b := newTestBuffer(t, 7)

		c, err := b.CopyNew()
		require.NoError(t, err)
		require.True(t, b.Equal(c))

		c.Set(0, 1)
		require.False(t, b.Equal(c))
		require.NotEqual(t, uint64(1), b.At(0))

		require.NoError(t, b.Copy(b))
		require.NoError(t, c.Copy(b))
		require.True(t, b.Equal(c))
	})

	t.Run("Swap", func(t *testing.T) {
		a := newTestBuffer(t, 3)
		b := newTestBuffer(t, 5)
		wantA, wantB := append([]uint64{}, a.Slice()...), append([]uint64{}, b.Slice()...)
		a.Swap(b)
		require.Equal(t, wantB, a.Slice())
		require.Equal(t, wantA, b.Slice())
	})

	t.Run("ResourceExhausted", func(t *testing.T) {
		b := NewBuffer(NewPool(64))
		require.NoError(t, b.Resize(64))
		want := append([]uint64{}, b.Slice()...)

		err := b.Reserve(65)
		require.ErrorIs(t, err, utils.ErrResourceExhausted)
		require.Equal(t, 64, b.Len())
		require.Equal(t, want, b.Slice())
	})
}

func TestBufferSerialization(t *testing.T) {

	for _, n := range []int{0, 1, 17, readChunk + 3} {
		t.Run(fmt.Sprintf("RequireSerializerCorrect/n=%d", n), func(t *testing.T) {
			buffer.RequireSerializerCorrect(t, newTestBuffer(t, n))
		})
	}

	t.Run("Layout", func(t *testing.T) {
		b := NewBuffer(nil)
		require.NoError(t, b.Resize(2))
		b.Set(0, 1)
		b.Set(1, 0x0102030405060708)

		data, err := b.MarshalBinary()
		require.NoError(t, err)
		require.Equal(t, b.BinarySize(), len(data))
		require.Equal(t, []byte{
			2, 0, 0, 0, 0, 0, 0, 0,
			1, 0, 0, 0, 0, 0, 0, 0,
			8, 7, 6, 5, 4, 3, 2, 1,
		}, data)
	})

	t.Run("UnmarshalBinary/Corrupt", func(t *testing.T) {
		src := newTestBuffer(t, 4)
		data, err := src.MarshalBinary()
		require.NoError(t, err)

		forged := func(length uint64) []byte {
			p := append([]byte{}, data...)
			binary.LittleEndian.PutUint64(p, length)
			return p
		}

		for name, p := range map[string][]byte{
			"Empty":        nil,
			"ShortPrefix":  data[:5],
			"Truncated":    data[:len(data)-1],
			"Trailing":     append(append([]byte{}, data...), 0),
			"LengthTooBig": forged(5),
			"LengthSmall":  forged(3),
			"Overflow":     forged(math.MaxUint64/8 + 1),
		} {
			t.Run(name, func(t *testing.T) {
				dst := newTestBuffer(t, 3)
				want := append([]uint64{}, dst.Slice()...)
				require.ErrorIs(t, dst.UnmarshalBinary(p), utils.ErrCorruptData)
				require.Equal(t, want, dst.Slice())
			})
		}
	})

	t.Run("ReadFrom/Truncated", func(t *testing.T) {
		src := newTestBuffer(t, 1000)
		data, err := src.MarshalBinary()
		require.NoError(t, err)

		dst := newTestBuffer(t, 3)
		want := append([]uint64{}, dst.Slice()...)

		_, err = dst.ReadFrom(bytes.NewReader(data[:len(data)-9]))
		require.ErrorIs(t, err, utils.ErrCorruptData)
		require.Equal(t, want, dst.Slice())
	})

	t.Run("ReadFrom/ForgedLength", func(t *testing.T) {
		// Announces 2^40 elements but carries none.
		p := make([]byte, 8)
		binary.LittleEndian.PutUint64(p, 1<<40)

		pool := NewPool(0)
		dst := NewBuffer(pool)
		_, err := dst.ReadFrom(bytes.NewReader(p))
		require.ErrorIs(t, err, utils.ErrCorruptData)
		require.Zero(t, pool.InUse())
	})

	t.Run("WriteTo/Fault", func(t *testing.T) {
		src := newTestBuffer(t, 1<<12)
		_, err := src.WriteTo(&limitedWriter{limit: 100})
		require.ErrorIs(t, err, utils.ErrIOFault)
	})
}

// limitedWriter accepts limit bytes and fails afterwards.
type limitedWriter struct {
	n, limit int
}

func (w *limitedWriter) Write(p []byte) (n int, err error) {
	if w.n+len(p) > w.limit {
		n = w.limit - w.n
		w.n = w.limit
		return n, fmt.Errorf("limit of %d bytes reached", w.limit)
	}
	w.n += len(p)
	return len(p), nil
}
