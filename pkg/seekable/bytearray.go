package seekable

import "io"

// ByteArrayStream reads from an in-memory buffer. SeekTo, Read and Skip are
// arithmetic over the buffer; seeking past the end clamps to the length.
type ByteArrayStream struct {
	buf []byte
	p   int
}

// NewByteArrayStream wraps b without copying it.
func NewByteArrayStream(b []byte) *ByteArrayStream {
	return &ByteArrayStream{buf: b}
}

// Bytes returns the backing buffer. Callers must treat it as read-only.
func (s *ByteArrayStream) Bytes() []byte { return s.buf }

func (s *ByteArrayStream) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	if s.p >= len(s.buf) {
		return 0, io.EOF
	}
	n := copy(b, s.buf[s.p:])
	s.p += n
	return n, nil
}

func (s *ByteArrayStream) ReadByte() (byte, error) {
	if s.p >= len(s.buf) {
		return 0, io.EOF
	}
	c := s.buf[s.p]
	s.p++
	return c, nil
}

func (s *ByteArrayStream) SeekTo(pos int64) error {
	if pos < 0 {
		return ErrNegativeSeek
	}
	if pos > int64(len(s.buf)) {
		pos = int64(len(s.buf))
	}
	s.p = int(pos)
	return nil
}

func (s *ByteArrayStream) FilePointer() int64 { return int64(s.p) }

func (s *ByteArrayStream) Skip(n int64) (int64, error) {
	target := clampSkip(int64(s.p), n, int64(len(s.buf)))
	skipped := target - int64(s.p)
	s.p = int(target)
	return skipped, nil
}

func (s *ByteArrayStream) Length() (int64, error) { return int64(len(s.buf)), nil }

// Close is a no-op; the buffer belongs to the caller.
func (s *ByteArrayStream) Close() error { return nil }

func (s *ByteArrayStream) CanCopy() bool { return true }

// Copy returns a stream sharing the buffer, positioned at the start.
func (s *ByteArrayStream) Copy() (Stream, error) {
	return NewByteArrayStream(s.buf), nil
}
