package seekable

import (
	"io"
	"os"
	"sync"
)

// FileStream is a thin pass-through to an *os.File, which it owns.
type FileStream struct {
	f         *os.File
	pos       int64
	closeOnce sync.Once
	closeErr  error
}

// OpenFile opens path read-only.
func OpenFile(path string) (*FileStream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return NewFileStream(f), nil
}

// NewFileStream takes ownership of f; it is closed by Close.
func NewFileStream(f *os.File) *FileStream {
	pos, _ := f.Seek(0, io.SeekCurrent)
	return &FileStream{f: f, pos: pos}
}

func (s *FileStream) Read(b []byte) (int, error) {
	n, err := s.f.Read(b)
	s.pos += int64(n)
	if n > 0 && err == io.EOF {
		err = nil
	}
	return n, err
}

func (s *FileStream) ReadByte() (byte, error) {
	var b [1]byte
	if _, err := s.Read(b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (s *FileStream) SeekTo(pos int64) error {
	if pos < 0 {
		return ErrNegativeSeek
	}
	length, err := s.Length()
	if err != nil {
		return err
	}
	pos = min(pos, length)
	if _, err := s.f.Seek(pos, io.SeekStart); err != nil {
		return err
	}
	s.pos = pos
	return nil
}

func (s *FileStream) FilePointer() int64 { return s.pos }

func (s *FileStream) Skip(n int64) (int64, error) {
	length, err := s.Length()
	if err != nil {
		return 0, err
	}
	target := clampSkip(s.pos, n, length)
	skipped := target - s.pos
	if skipped == 0 {
		return 0, nil
	}
	return skipped, s.SeekTo(target)
}

func (s *FileStream) Length() (int64, error) {
	st, err := s.f.Stat()
	if err != nil {
		return 0, err
	}
	return st.Size(), nil
}

// Close releases the file handle. Further calls return the first result.
func (s *FileStream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.f.Close()
	})
	return s.closeErr
}

func (s *FileStream) CanCopy() bool { return false }

func (s *FileStream) Copy() (Stream, error) { return nil, ErrCopyUnsupported }
