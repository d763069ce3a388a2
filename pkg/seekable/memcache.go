package seekable

import (
	"io"
	"math"
	"sync"
)

const (
	blockShift = 10
	blockSize  = 1 << blockShift
	blockMask  = blockSize - 1
)

// MemoryCacheStream adds random access to a one-way reader by caching every
// byte it pulls in 1024 byte blocks. Each source byte is read once; backward
// seeks are served from the cache. The cache grows for the lifetime of the
// stream and is only released by Close.
type MemoryCacheStream struct {
	src      io.Reader
	blocks   [][]byte
	length   int64 // bytes cached
	pointer  int64
	foundEOF bool
	closed   bool

	closeOnce sync.Once
	closeErr  error
}

// NewMemoryCacheStream wraps src. If src is an io.Closer it is closed with
// the stream.
func NewMemoryCacheStream(src io.Reader) *MemoryCacheStream {
	return &MemoryCacheStream{src: src}
}

// readUntil caches blocks until pos is covered or the source is exhausted.
// Once the end of the source is seen it is never read again.
func (s *MemoryCacheStream) readUntil(pos int64) error {
	if s.closed {
		return ErrClosed
	}
	for pos >= s.length && !s.foundEOF {
		block := make([]byte, blockSize)
		n, err := io.ReadFull(s.src, block)
		if n > 0 {
			s.blocks = append(s.blocks, block)
			s.length += int64(n)
		}
		switch err {
		case nil:
		case io.EOF, io.ErrUnexpectedEOF:
			s.foundEOF = true
		default:
			return err
		}
	}
	return nil
}

func (s *MemoryCacheStream) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	if err := s.readUntil(s.pointer + int64(len(b)) - 1); err != nil {
		return 0, err
	}
	avail := s.length - s.pointer
	if avail <= 0 {
		return 0, io.EOF
	}
	n := len(b)
	if int64(n) > avail {
		n = int(avail)
	}
	read := 0
	for read < n {
		blk := s.blocks[s.pointer>>blockShift]
		off := int(s.pointer & blockMask)
		c := copy(b[read:n], blk[off:])
		read += c
		s.pointer += int64(c)
	}
	return n, nil
}

func (s *MemoryCacheStream) ReadByte() (byte, error) {
	if err := s.readUntil(s.pointer); err != nil {
		return 0, err
	}
	if s.pointer >= s.length {
		return 0, io.EOF
	}
	c := s.blocks[s.pointer>>blockShift][s.pointer&blockMask]
	s.pointer++
	return c, nil
}

// SeekTo caches the source up to pos. A position past the end of the data
// clamps to the length.
func (s *MemoryCacheStream) SeekTo(pos int64) error {
	if pos < 0 {
		return ErrNegativeSeek
	}
	if err := s.readUntil(pos - 1); err != nil {
		return err
	}
	s.pointer = min(pos, s.length)
	return nil
}

func (s *MemoryCacheStream) FilePointer() int64 { return s.pointer }

func (s *MemoryCacheStream) Skip(n int64) (int64, error) {
	if n <= 0 {
		return 0, nil
	}
	if err := s.readUntil(s.pointer + n - 1); err != nil {
		return 0, err
	}
	target := clampSkip(s.pointer, n, s.length)
	skipped := target - s.pointer
	s.pointer = target
	return skipped, nil
}

// Length drains the source into the cache.
func (s *MemoryCacheStream) Length() (int64, error) {
	if err := s.readUntil(math.MaxInt64); err != nil {
		return 0, err
	}
	return s.length, nil
}

// Cached returns the number of bytes pulled from the source so far.
func (s *MemoryCacheStream) Cached() int64 { return s.length }

func (s *MemoryCacheStream) Close() error {
	s.closeOnce.Do(func() {
		if c, ok := s.src.(io.Closer); ok {
			s.closeErr = c.Close()
		}
		s.src = nil
		s.blocks = nil
		s.length = 0
		s.pointer = 0
		s.closed = true
	})
	return s.closeErr
}

func (s *MemoryCacheStream) CanCopy() bool { return false }

func (s *MemoryCacheStream) Copy() (Stream, error) { return nil, ErrCopyUnsupported }
