package buffer

import (
	"bytes"
	"encoding"
	"io"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

// binarySerializer is a testing interface for byte encoding and decoding.
type binarySerializer interface {
	io.WriterTo
	io.ReaderFrom
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

// RequireSerializerCorrect tests that:
//   - input and its WriteTo/ReadFrom output are equal
//   - input and its MarshalBinary/UnmarshalBinary output are equal
//   - input.BinarySize() matches the number of bytes written
//
// Equality is checked with the Equal method of input if it has one, and with
// require.Equal otherwise. It fails the test if input does not implement a
// BinarySize() int method.
func RequireSerializerCorrect(t *testing.T, input binarySerializer) {

	sizer, ok := input.(interface{ BinarySize() int })
	require.True(t, ok, "%T does not implement BinarySize() int", input)

	buf := new(bytes.Buffer)
	w := NewWriteStream(buf)

	n, err := input.WriteTo(w)
	require.NoError(t, err)
	require.Equal(t, int64(sizer.BinarySize()), n)
	require.Equal(t, sizer.BinarySize(), buf.Len())

	data := buf.Bytes()

	output := reflect.New(reflect.TypeOf(input).Elem()).Interface().(binarySerializer)

	n, err = output.ReadFrom(NewReadStream(bytes.NewReader(data)))
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), n)
	requireEqual(t, input, output)

	marshalled, err := input.MarshalBinary()
	require.NoError(t, err)
	require.Equal(t, data, marshalled)

	output = reflect.New(reflect.TypeOf(input).Elem()).Interface().(binarySerializer)
	require.NoError(t, output.UnmarshalBinary(marshalled))
	requireEqual(t, input, output)
}

func requireEqual(t *testing.T, want, have any) {
	if eq := reflect.ValueOf(want).MethodByName("Equal"); eq.IsValid() &&
		eq.Type().NumIn() == 1 && eq.Type().NumOut() == 1 &&
		eq.Type().In(0) == reflect.TypeOf(have) && eq.Type().Out(0).Kind() == reflect.Bool {
		require.True(t, eq.Call([]reflect.Value{reflect.ValueOf(have)})[0].Bool(), "decoded %T differs from its source", want)
		return
	}
	require.Equal(t, want, have)
}
