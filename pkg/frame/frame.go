package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	HeaderLen = 2
	MaxSize   = 4096

	// Largest length a 2-byte header can carry
	maxWireLen = 0xffff
)

var (
	ErrShortRead = errors.New("short read")
	ErrOversized = errors.New("frame exceeds maximum size")
)

// Encode appends the wire form of payload (2-byte big-endian length followed by
// the payload) to dst and returns the extended slice.
func Encode(dst []byte, payload []byte) ([]byte, error) {
	if len(payload) > maxWireLen {
		return dst, fmt.Errorf("%w: %d bytes", ErrOversized, len(payload))
	}

	dst = binary.BigEndian.AppendUint16(dst, uint16(len(payload)))
	return append(dst, payload...), nil
}

// ReadHeader reads exactly HeaderLen bytes and returns the encoded length.
func ReadHeader(r io.Reader) (uint16, error) {
	var b [HeaderLen]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, fmt.Errorf("%w: header: %w", ErrShortRead, err)
	}

	return binary.BigEndian.Uint16(b[:]), nil
}

// ReadPayload reads exactly length bytes into buf. A length larger than buf is
// a protocol violation and nothing is read.
func ReadPayload(r io.Reader, length uint16, buf []byte) ([]byte, error) {
	if int(length) > len(buf) {
		return nil, fmt.Errorf("%w: %d > %d", ErrOversized, length, len(buf))
	}

	b := buf[:length]
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("%w: payload: %w", ErrShortRead, err)
	}

	return b, nil
}

// Read decodes one frame from r into buf. The returned slice aliases buf.
func Read(r io.Reader, buf []byte) ([]byte, error) {
	length, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}

	return ReadPayload(r, length, buf)
}
