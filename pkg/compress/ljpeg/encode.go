package ljpeg

import (
	"bufio"
	"fmt"
	"io"
)

// Options configure Encode.
type Options struct {
	// Predictor is the selection value, 1 to 7; 0 selects 1.
	Predictor int
	// RestartRows writes a restart marker every RestartRows rows when set.
	RestartRows int
}

// fixedCounts covers difference categories 0 to 16 with one table.
var fixedCounts = [16]byte{0, 1, 5, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 0, 0}

// Encode writes f as a single scan lossless JPEG stream.
func Encode(w io.Writer, f *Frame, opts *Options) error {
	var o Options
	if opts != nil {
		o = *opts
	}
	if o.Predictor == 0 {
		o.Predictor = 1
	}
	switch {
	case o.Predictor < 1 || o.Predictor > 7:
		return fmt.Errorf("%w: predictor %d", ErrUnsupported, o.Predictor)
	case f.Precision < 2 || f.Precision > 16:
		return fmt.Errorf("%w: precision %d", ErrUnsupported, f.Precision)
	case f.Width <= 0 || f.Height <= 0 || f.Width > 0xFFFF || f.Height > 0xFFFF:
		return fmt.Errorf("%w: frame size %dx%d", ErrUnsupported, f.Width, f.Height)
	case f.Components < 1 || f.Components > 4:
		return fmt.Errorf("%w: %d components", ErrUnsupported, f.Components)
	case len(f.Samples) < f.Width*f.Height*f.Components:
		return fmt.Errorf("%w: %d samples for a %dx%dx%d frame", ErrFormat, len(f.Samples), f.Width, f.Height, f.Components)
	case o.RestartRows*f.Width > 0xFFFF:
		return fmt.Errorf("%w: restart interval of %d rows", ErrUnsupported, o.RestartRows)
	}

	bw := &bitWriter{w: bufio.NewWriter(w)}
	nc := f.Components
	bw.marker(markerSOI)

	sof := []byte{byte(f.Precision), byte(f.Height >> 8), byte(f.Height), byte(f.Width >> 8), byte(f.Width), byte(nc)}
	for c := 0; c < nc; c++ {
		sof = append(sof, byte(c+1), 0x11, 0)
	}
	bw.segment(markerSOF3, sof)

	dht := append([]byte{0x00}, fixedCounts[:]...)
	for v := 0; v <= 16; v++ {
		dht = append(dht, byte(v))
	}
	bw.segment(markerDHT, dht)

	if o.RestartRows > 0 {
		n := o.RestartRows * f.Width
		bw.segment(markerDRI, []byte{byte(n >> 8), byte(n)})
	}

	sos := []byte{byte(nc)}
	for c := 0; c < nc; c++ {
		sos = append(sos, byte(c+1), 0x00)
	}
	sos = append(sos, byte(o.Predictor), 0, 0)
	bw.segment(markerSOS, sos)

	codes, sizes := canonical(fixedCounts)
	mask := 1<<f.Precision - 1
	first := true
	for y := 0; y < f.Height; y++ {
		if o.RestartRows > 0 && y > 0 && y%o.RestartRows == 0 {
			bw.flush()
			bw.marker(byte(markerRST0 + (y/o.RestartRows-1)&7))
			first = true
		}
		for x := 0; x < f.Width; x++ {
			for c := 0; c < nc; c++ {
				v := int(f.At(x, y, c)) & mask
				var pred int
				switch {
				case first && x == 0:
					pred = 1 << (f.Precision - 1)
				case first:
					pred = int(f.At(x-1, y, c)) & mask
				case x == 0:
					pred = int(f.At(x, y-1, c)) & mask
				default:
					pred = predict(o.Predictor,
						int(f.At(x-1, y, c))&mask,
						int(f.At(x, y-1, c))&mask,
						int(f.At(x-1, y-1, c))&mask)
				}
				diff := (v - pred) & 0xFFFF
				if diff >= 0x8000 {
					diff -= 0x10000
				}
				ssss := category(diff)
				bw.bits(int(codes[ssss]), sizes[ssss])
				if ssss > 0 && ssss < 16 {
					if diff < 0 {
						diff += 1<<ssss - 1
					}
					bw.bits(diff, ssss)
				}
			}
		}
		first = false
	}
	bw.flush()
	bw.marker(markerEOI)
	if bw.err != nil {
		return bw.err
	}
	return bw.w.Flush()
}

// category is the number of bits needed for the magnitude of diff.
func category(diff int) int {
	if diff < 0 {
		diff = -diff
	}
	n := 0
	for diff > 0 {
		diff >>= 1
		n++
	}
	return n
}

// bitWriter writes markers and entropy coded bits with byte stuffing. The
// first write error is kept and later writes are dropped.
type bitWriter struct {
	w   *bufio.Writer
	acc uint32
	n   int
	err error
}

func (b *bitWriter) put(c byte) {
	if b.err == nil {
		b.err = b.w.WriteByte(c)
	}
}

func (b *bitWriter) marker(m byte) {
	b.put(0xFF)
	b.put(m)
}

func (b *bitWriter) segment(m byte, payload []byte) {
	b.marker(m)
	n := len(payload) + 2
	b.put(byte(n >> 8))
	b.put(byte(n))
	for _, c := range payload {
		b.put(c)
	}
}

func (b *bitWriter) bits(v, n int) {
	b.acc = b.acc<<n | uint32(v)&(1<<n-1)
	b.n += n
	for b.n >= 8 {
		b.n -= 8
		c := byte(b.acc >> b.n)
		b.put(c)
		if c == 0xFF {
			b.put(0x00)
		}
	}
}

// flush pads the last byte with ones.
func (b *bitWriter) flush() {
	if b.n > 0 {
		b.bits(1<<(8-b.n)-1, 8-b.n)
	}
}
