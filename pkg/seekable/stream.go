// Package seekable provides random access byte sources over files, memory
// buffers and one-way input streams.
package seekable

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
)

var (
	ErrNegativeSeek    = errors.New("seekable: negative seek position")
	ErrCopyUnsupported = errors.New("seekable: copy not supported")
	ErrClosed          = errors.New("seekable: stream closed")
)

// Stream is a byte source supporting forward and backward positioning.
//
// Read returns io.EOF once the position is at or beyond the end of the data.
// SeekTo accepts any non-negative position; positions past the end clamp to
// the length.
// FilePointer always reports the position of the next read.
type Stream interface {
	io.Reader
	io.ByteReader
	io.Closer

	// SeekTo moves to an absolute position.
	SeekTo(pos int64) error
	// FilePointer returns the current position.
	FilePointer() int64
	// Skip advances up to n bytes and returns the number actually skipped.
	Skip(n int64) (int64, error)
	// Length returns the total number of bytes in the source.
	Length() (int64, error)
	// CanCopy reports whether Copy is supported.
	CanCopy() bool
	// Copy returns an independent stream over the same data.
	Copy() (Stream, error)
}

// ReadFully fills b or fails with io.ErrUnexpectedEOF.
func ReadFully(s io.Reader, b []byte) error {
	if _, err := io.ReadFull(s, b); err != nil {
		if err == io.EOF {
			return io.ErrUnexpectedEOF
		}
		return err
	}
	return nil
}

// The numeric helpers below read big-endian values. Byte order policy for
// TIFF data lives in the tiff package, not here.

// ReadShort reads a big-endian signed 16-bit value.
func ReadShort(s io.Reader) (int16, error) {
	var b [2]byte
	if err := ReadFully(s, b[:]); err != nil {
		return 0, err
	}
	return int16(binary.BigEndian.Uint16(b[:])), nil
}

// ReadInt reads a big-endian signed 32-bit value.
func ReadInt(s io.Reader) (int32, error) {
	var b [4]byte
	if err := ReadFully(s, b[:]); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b[:])), nil
}

// ReadLong reads a big-endian signed 64-bit value.
func ReadLong(s io.Reader) (int64, error) {
	var b [8]byte
	if err := ReadFully(s, b[:]); err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b[:])), nil
}

// ReadFloat reads a big-endian IEEE-754 single.
func ReadFloat(s io.Reader) (float32, error) {
	v, err := ReadInt(s)
	return math.Float32frombits(uint32(v)), err
}

// ReadDouble reads a big-endian IEEE-754 double.
func ReadDouble(s io.Reader) (float64, error) {
	v, err := ReadLong(s)
	return math.Float64frombits(uint64(v)), err
}

// clampSkip computes the target of skipping n bytes from pos within length.
func clampSkip(pos, n, length int64) int64 {
	if n <= 0 || pos >= length {
		return pos
	}
	if n > length-pos {
		return length
	}
	return pos + n
}
