// Package lzw implements the TIFF flavour of LZW: MSB first codes of 9 to 12
// bits with the code width growing one code early.
package lzw

import (
	"errors"
	"fmt"
)

const (
	clearCode = 256
	eoiCode   = 257
	firstCode = 258
	maxCodes  = 4096
	maxWidth  = 12
)

var (
	// ErrInvalidCode is returned for a code that is not yet in the table.
	ErrInvalidCode = errors.New("lzw: invalid code")
	// ErrTableFull is returned when the data does not clear a full table.
	ErrTableFull = errors.New("lzw: code table overflow")
)

// bitReader reads MSB first codes.
type bitReader struct {
	data  []byte
	pos   int
	acc   uint32
	nbits uint
}

// read returns the next code, or false when fewer than width bits remain.
func (r *bitReader) read(width uint) (int, bool) {
	for r.nbits < width {
		if r.pos >= len(r.data) {
			return 0, false
		}
		r.acc = r.acc<<8 | uint32(r.data[r.pos])
		r.pos++
		r.nbits += 8
	}
	r.nbits -= width
	code := int(r.acc>>r.nbits) & (1<<width - 1)
	r.acc &= 1<<r.nbits - 1
	return code, true
}

// table holds each code as a prefix code plus a final byte.
type table struct {
	prefix [maxCodes]uint16
	suffix [maxCodes]byte
	first  [maxCodes]byte
	length [maxCodes]int
}

func newTable() *table {
	t := &table{}
	for i := 0; i < 256; i++ {
		t.suffix[i] = byte(i)
		t.first[i] = byte(i)
		t.length[i] = 1
	}
	return t
}

// appendCode appends the string for code to out.
func (t *table) appendCode(out []byte, code int) []byte {
	n := t.length[code]
	start := len(out)
	out = append(out, make([]byte, n)...)
	for i := start + n - 1; i >= start; i-- {
		out[i] = t.suffix[code]
		code = int(t.prefix[code])
	}
	return out
}

func (t *table) add(code, prefix int, c byte) {
	t.prefix[code] = uint16(prefix)
	t.suffix[code] = c
	t.first[code] = t.first[prefix]
	t.length[code] = t.length[prefix] + 1
}

// Uncompress expands a TIFF LZW strip. Decoding ends at the end of
// information code, at the end of input, or once byteCount bytes have been
// produced; a byteCount of 0 means no limit.
func Uncompress(input []byte, byteCount int) ([]byte, error) {
	if len(input) == 0 {
		return input, nil
	}
	out := make([]byte, 0, max(byteCount, 2*len(input)))

	t := newTable()
	br := &bitReader{data: input}
	width := uint(9)
	next := firstCode
	old := -1
	for byteCount <= 0 || len(out) < byteCount {
		code, ok := br.read(width)
		if !ok || code == eoiCode {
			break
		}
		if code == clearCode {
			next = firstCode
			width = 9
			if code, ok = br.read(width); !ok || code == eoiCode {
				break
			}
			if code >= 256 {
				return nil, fmt.Errorf("%w: %d after clear", ErrInvalidCode, code)
			}
			out = append(out, byte(code))
			old = code
			continue
		}

		switch {
		case old < 0:
			// no clear code at the start
			if code >= 256 {
				return nil, fmt.Errorf("%w: %d at start", ErrInvalidCode, code)
			}
			out = append(out, byte(code))
			old = code
			continue
		case next >= maxCodes:
			return nil, ErrTableFull
		case code < next:
			out = t.appendCode(out, code)
			t.add(next, old, t.first[code])
		case code == next:
			t.add(next, old, t.first[old])
			out = t.appendCode(out, code)
		default:
			return nil, fmt.Errorf("%w: %d with %d codes", ErrInvalidCode, code, next)
		}
		old = code
		next++
		switch next {
		case 511:
			width = 10
		case 1023:
			width = 11
		case 2047:
			width = maxWidth
		}
	}
	return out, nil
}

// bitWriter writes MSB first codes.
type bitWriter struct {
	out   []byte
	acc   uint32
	nbits uint
}

func (w *bitWriter) write(code int, width uint) {
	w.acc = w.acc<<width | uint32(code)
	w.nbits += width
	for w.nbits >= 8 {
		w.nbits -= 8
		w.out = append(w.out, byte(w.acc>>w.nbits))
	}
	w.acc &= 1<<w.nbits - 1
}

func (w *bitWriter) flush() []byte {
	if w.nbits > 0 {
		w.out = append(w.out, byte(w.acc<<(8-w.nbits)))
		w.nbits, w.acc = 0, 0
	}
	return w.out
}

// Compress encodes data as a TIFF LZW strip, starting with a clear code and
// ending with the end of information code.
func Compress(data []byte) []byte {
	w := &bitWriter{out: make([]byte, 0, len(data)/2+8)}
	width := uint(9)
	w.write(clearCode, width)
	if len(data) == 0 {
		w.write(eoiCode, width)
		return w.flush()
	}

	dict := make(map[uint32]int)
	next := firstCode
	grow := func() {
		switch {
		case next >= 2048:
			width = 12
		case next >= 1024:
			width = 11
		case next >= 512:
			width = 10
		}
	}

	prefix := int(data[0])
	for _, c := range data[1:] {
		key := uint32(prefix)<<8 | uint32(c)
		if code, ok := dict[key]; ok {
			prefix = code
			continue
		}
		w.write(prefix, width)
		dict[key] = next
		next++
		grow()
		if next == maxCodes-2 {
			w.write(clearCode, width)
			clear(dict)
			next = firstCode
			width = 9
		}
		prefix = int(c)
	}
	w.write(prefix, width)
	// the decoder adds an entry for the last code before reading the next
	next++
	grow()
	w.write(eoiCode, width)
	return w.flush()
}
