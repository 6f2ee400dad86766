package frame

import (
	"bytes"
	"crypto/rand"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeHeader(t *testing.T) {
	b, err := Encode(nil, []byte{0x01, 0x02})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x02, 0x01, 0x02}, b)

	b, err = Encode(nil, make([]byte, 0x0102))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, b[:HeaderLen])
	assert.Len(t, b, HeaderLen+0x0102)
}

func TestEncodeAppends(t *testing.T) {
	b, err := Encode([]byte{0xaa}, []byte{0xbb})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xaa, 0x00, 0x01, 0xbb}, b)
}

func TestEncodeTooLarge(t *testing.T) {
	_, err := Encode(nil, make([]byte, 0x10000))
	assert.ErrorIs(t, err, ErrOversized)
}

func TestRoundTrip(t *testing.T) {
	sizes := []int{0, 1, 2, 60, 1500, MaxSize - 1, MaxSize}
	buf := make([]byte, MaxSize)

	for _, size := range sizes {
		payload := make([]byte, size)
		_, err := rand.Read(payload)
		require.NoError(t, err)

		wire, err := Encode(nil, payload)
		require.NoError(t, err)

		got, err := Read(bytes.NewReader(wire), buf)
		require.NoError(t, err, "size %d", size)
		assert.Equal(t, payload, got, "size %d", size)
	}
}

func TestReadConsecutiveFrames(t *testing.T) {
	var wire []byte
	wire, _ = Encode(wire, []byte("first"))
	wire, _ = Encode(wire, []byte{})
	wire, _ = Encode(wire, []byte("third"))

	r := bytes.NewReader(wire)
	buf := make([]byte, MaxSize)

	for _, want := range []string{"first", "", "third"} {
		got, err := Read(r, buf)
		require.NoError(t, err)
		assert.Equal(t, want, string(got))
	}

	_, err := Read(r, buf)
	assert.ErrorIs(t, err, ErrShortRead)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadHeaderShort(t *testing.T) {
	_, err := ReadHeader(bytes.NewReader([]byte{0x00}))
	assert.ErrorIs(t, err, ErrShortRead)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReadPayloadShort(t *testing.T) {
	buf := make([]byte, MaxSize)
	_, err := Read(bytes.NewReader([]byte{0x00, 0x04, 0x01, 0x02}), buf)
	assert.ErrorIs(t, err, ErrShortRead)
}

func TestReadPayloadOversized(t *testing.T) {
	buf := make([]byte, MaxSize)
	r := bytes.NewReader([]byte{0x10, 0x01, 0xde, 0xad})

	_, err := Read(r, buf)
	assert.ErrorIs(t, err, ErrOversized)
	// Payload bytes are left untouched on the stream
	assert.Equal(t, 2, r.Len())
}
