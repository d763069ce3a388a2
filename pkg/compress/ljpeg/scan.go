package ljpeg

import "fmt"

// bitReader reads entropy coded bits, removing stuffed zero bytes. Past a
// marker or the end of data it supplies zero bits and counts them.
type bitReader struct {
	data   []byte
	pos    int
	acc    uint32
	n      int
	pad    int // zero bytes supplied
	marker bool
}

func (b *bitReader) fill() {
	for b.n <= 24 {
		var c byte
		switch {
		case b.marker || b.pos >= len(b.data):
			b.pad++
		case b.data[b.pos] != 0xFF:
			c = b.data[b.pos]
			b.pos++
		case b.pos+1 < len(b.data) && b.data[b.pos+1] == 0x00:
			c = 0xFF
			b.pos += 2
		default:
			b.marker = true
			b.pad++
		}
		b.acc = b.acc<<8 | uint32(c)
		b.n += 8
	}
}

func (b *bitReader) bit() int {
	if b.n == 0 {
		b.fill()
	}
	b.n--
	return int(b.acc>>b.n) & 1
}

func (b *bitReader) bits(k int) int {
	if b.n < k {
		b.fill()
	}
	b.n -= k
	return int(b.acc>>b.n) & (1<<k - 1)
}

// overrun reports whether supplied zero bits were consumed.
func (b *bitReader) overrun() bool {
	return b.pad*8 > b.n
}

// restart drops the buffered bits and consumes the RSTn marker.
func (b *bitReader) restart(n int) error {
	if b.overrun() {
		return ErrTruncated
	}
	b.acc, b.n, b.pad, b.marker = 0, 0, 0, false
	want := byte(markerRST0 + n&7)
	if b.pos+1 >= len(b.data) || b.data[b.pos] != 0xFF || b.data[b.pos+1] != want {
		return fmt.Errorf("%w: missing RST%d marker at %d", ErrFormat, n&7, b.pos)
	}
	b.pos += 2
	return nil
}

// predict applies selection value p to the left (a), above (b) and above
// left (c) neighbours.
func predict(p, a, b, c int) int {
	switch p {
	case 1:
		return a
	case 2:
		return b
	case 3:
		return c
	case 4:
		return a + b - c
	case 5:
		return a + (b-c)>>1
	case 6:
		return b + (a-c)>>1
	}
	return (a + b) >> 1
}

// extend converts ssss additional bits to a signed difference.
func extend(v, ssss int) int {
	if v < 1<<(ssss-1) {
		return v - (1<<ssss - 1)
	}
	return v
}

// rowsPerInterval converts a restart interval in MCUs to rows. Intervals
// must cover whole rows.
func rowsPerInterval(restart, width int) (int, error) {
	if restart == 0 {
		return 0, nil
	}
	if restart%width != 0 {
		return 0, fmt.Errorf("%w: restart interval %d is not a multiple of the width %d", ErrUnsupported, restart, width)
	}
	return restart / width, nil
}

func (h *header) decodeScan(data []byte) (*Frame, error) {
	w, nc := h.width, len(h.comps)
	rows, err := rowsPerInterval(h.restart, w)
	if err != nil {
		return nil, err
	}
	p := h.precision - h.pointTrans
	mask := 1<<p - 1
	f := &Frame{
		Width:      w,
		Height:     h.height,
		Components: nc,
		Precision:  h.precision,
		Samples:    make([]uint16, w*h.height*nc),
	}
	prev := make([]int, w*nc)
	cur := make([]int, w*nc)
	br := &bitReader{data: data}
	first := true
	for y := 0; y < h.height; y++ {
		if rows > 0 && y > 0 && y%rows == 0 {
			if err := br.restart(y/rows - 1); err != nil {
				return nil, err
			}
			first = true
		}
		for x := 0; x < w; x++ {
			for c := 0; c < nc; c++ {
				ssss, err := h.tables[h.comps[c].table].decode(br)
				if err != nil {
					return nil, fmt.Errorf("sample (%d,%d,%d): %w", x, y, c, err)
				}
				var diff int
				switch {
				case ssss == 16:
					diff = 32768
				case ssss > 16:
					return nil, fmt.Errorf("%w: difference category %d", ErrFormat, ssss)
				case ssss > 0:
					diff = extend(br.bits(ssss), ssss)
				}
				i := x*nc + c
				var pred int
				switch {
				case first && x == 0:
					pred = 1 << (p - 1)
				case first:
					pred = cur[i-nc]
				case x == 0:
					pred = prev[i]
				default:
					pred = predict(h.predictor, cur[i-nc], prev[i], prev[i-nc])
				}
				v := (pred + diff) & mask
				cur[i] = v
				f.Samples[y*w*nc+i] = uint16(v << h.pointTrans)
			}
		}
		prev, cur = cur, prev
		first = false
	}
	if br.overrun() {
		return nil, ErrTruncated
	}
	return f, nil
}
