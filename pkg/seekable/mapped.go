package seekable

import (
	"io"
	"sync"

	"golang.org/x/exp/mmap"
)

// MappedStream reads a memory mapped file. Like ByteArrayStream it clamps
// seeks to the mapped length, but it owns the mapping and cannot be copied.
type MappedStream struct {
	r         *mmap.ReaderAt
	pos       int64
	closeOnce sync.Once
	closeErr  error
}

// OpenMapped maps path read-only.
func OpenMapped(path string) (*MappedStream, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	return &MappedStream{r: r}, nil
}

func (s *MappedStream) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	if s.pos >= int64(s.r.Len()) {
		return 0, io.EOF
	}
	n, err := s.r.ReadAt(b, s.pos)
	s.pos += int64(n)
	if n > 0 && err == io.EOF {
		err = nil
	}
	return n, err
}

func (s *MappedStream) ReadByte() (byte, error) {
	if s.pos >= int64(s.r.Len()) {
		return 0, io.EOF
	}
	c := s.r.At(int(s.pos))
	s.pos++
	return c, nil
}

func (s *MappedStream) SeekTo(pos int64) error {
	if pos < 0 {
		return ErrNegativeSeek
	}
	if n := int64(s.r.Len()); pos > n {
		pos = n
	}
	s.pos = pos
	return nil
}

func (s *MappedStream) FilePointer() int64 { return s.pos }

func (s *MappedStream) Skip(n int64) (int64, error) {
	target := clampSkip(s.pos, n, int64(s.r.Len()))
	skipped := target - s.pos
	s.pos = target
	return skipped, nil
}

func (s *MappedStream) Length() (int64, error) { return int64(s.r.Len()), nil }

func (s *MappedStream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.r.Close()
	})
	return s.closeErr
}

func (s *MappedStream) CanCopy() bool { return false }

func (s *MappedStream) Copy() (Stream, error) { return nil, ErrCopyUnsupported }
