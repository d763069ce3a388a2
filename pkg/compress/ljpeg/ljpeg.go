// Package ljpeg implements lossless JPEG (ITU-T T.81 process 14, SOF3) as
// found in TIFF strips with compression 7. Frames hold 2 to 16 bit samples
// of one or more interleaved components.
package ljpeg

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
)

var (
	ErrFormat      = errors.New("ljpeg: invalid data")
	ErrUnsupported = errors.New("ljpeg: unsupported feature")
	ErrTruncated   = errors.New("ljpeg: scan data truncated")
)

// JPEG markers, without the 0xFF prefix
const (
	markerSOF0 = 0xC0
	markerSOF3 = 0xC3
	markerDHT  = 0xC4
	markerJPG  = 0xC8
	markerDAC  = 0xCC
	markerSOF  = 0xCF // last start of frame marker
	markerRST0 = 0xD0
	markerSOI  = 0xD8
	markerEOI  = 0xD9
	markerSOS  = 0xDA
	markerDRI  = 0xDD
)

// Frame is a decoded image. Samples are interleaved per pixel and scaled
// back by the point transform.
type Frame struct {
	Width      int
	Height     int
	Components int
	Precision  int
	Samples    []uint16
}

// At returns sample c of the pixel at x, y.
func (f *Frame) At(x, y, c int) uint16 {
	return f.Samples[(y*f.Width+x)*f.Components+c]
}

type component struct {
	id    int
	table int
}

type header struct {
	precision  int
	width      int
	height     int
	comps      []component
	tables     [4]*huffman
	predictor  int
	pointTrans int
	restart    int
}

// IsLossless reports whether data is a JPEG stream whose frame is SOF3.
func IsLossless(data []byte) bool {
	if len(data) < 4 || data[0] != 0xFF || data[1] != markerSOI {
		return false
	}
	pos := 2
	for {
		m, next, ok := nextMarker(data, pos)
		if !ok {
			return false
		}
		if isSOF(m) {
			return m == markerSOF3
		}
		if m == markerSOS || m == markerEOI {
			return false
		}
		n, ok := segmentLength(data, next)
		if !ok {
			return false
		}
		pos = next + n
	}
}

// Decode decodes a complete lossless JPEG stream.
func Decode(data []byte) (*Frame, error) {
	if len(data) < 2 || data[0] != 0xFF || data[1] != markerSOI {
		return nil, fmt.Errorf("%w: missing SOI", ErrFormat)
	}
	var h header
	pos := 2
	for {
		m, next, ok := nextMarker(data, pos)
		if !ok {
			return nil, fmt.Errorf("%w: no marker at %d", ErrFormat, pos)
		}
		if m == markerEOI {
			return nil, fmt.Errorf("%w: EOI before scan", ErrFormat)
		}
		n, ok := segmentLength(data, next)
		if !ok {
			return nil, fmt.Errorf("%w: segment 0x%02X overruns data", ErrFormat, m)
		}
		seg := data[next+2 : next+n]
		var err error
		switch {
		case m == markerSOF3:
			err = h.readSOF(seg)
		case isSOF(m):
			return nil, fmt.Errorf("%w: frame type 0x%02X is not lossless", ErrUnsupported, m)
		case m == markerDHT:
			err = h.readDHT(seg)
		case m == markerDRI:
			if len(seg) < 2 {
				return nil, fmt.Errorf("%w: short DRI", ErrFormat)
			}
			h.restart = int(binary.BigEndian.Uint16(seg))
		case m == markerSOS:
			if err := h.readSOS(seg); err != nil {
				return nil, err
			}
			return h.decodeScan(data[next+n:])
		}
		if err != nil {
			return nil, err
		}
		pos = next + n
	}
}

func isSOF(m byte) bool {
	return m >= markerSOF0 && m <= markerSOF && m != markerDHT && m != markerJPG && m != markerDAC
}

// nextMarker returns the marker at pos, skipping fill bytes, and the
// position after it.
func nextMarker(data []byte, pos int) (byte, int, bool) {
	if pos >= len(data) || data[pos] != 0xFF {
		return 0, 0, false
	}
	for pos < len(data) && data[pos] == 0xFF {
		pos++
	}
	if pos >= len(data) {
		return 0, 0, false
	}
	return data[pos], pos + 1, true
}

// segmentLength returns the length of the segment at pos, its two length
// bytes included.
func segmentLength(data []byte, pos int) (int, bool) {
	if pos+2 > len(data) {
		return 0, false
	}
	n := int(binary.BigEndian.Uint16(data[pos:]))
	return n, n >= 2 && pos+n <= len(data)
}

func (h *header) readSOF(seg []byte) error {
	if len(seg) < 6 {
		return fmt.Errorf("%w: short SOF3", ErrFormat)
	}
	h.precision = int(seg[0])
	h.height = int(binary.BigEndian.Uint16(seg[1:]))
	h.width = int(binary.BigEndian.Uint16(seg[3:]))
	nc := int(seg[5])
	if len(seg) < 6+3*nc || nc == 0 {
		return fmt.Errorf("%w: SOF3 with %d components", ErrFormat, nc)
	}
	if h.precision < 2 || h.precision > 16 {
		return fmt.Errorf("%w: precision %d", ErrFormat, h.precision)
	}
	if h.width == 0 || h.height == 0 {
		return fmt.Errorf("%w: frame size %dx%d", ErrUnsupported, h.width, h.height)
	}
	h.comps = make([]component, nc)
	for i := range h.comps {
		c := seg[6+3*i:]
		if c[1] != 0x11 {
			return fmt.Errorf("%w: subsampled component %d", ErrUnsupported, c[0])
		}
		h.comps[i].id = int(c[0])
	}
	slog.Debug("ljpeg: SOF3",
		slog.Int("precision", h.precision),
		slog.Int("width", h.width),
		slog.Int("height", h.height),
		slog.Int("components", nc))
	return nil
}

func (h *header) readDHT(seg []byte) error {
	for len(seg) > 0 {
		if len(seg) < 17 {
			return fmt.Errorf("%w: short DHT", ErrFormat)
		}
		class, id := seg[0]>>4, int(seg[0]&0x0F)
		var counts [16]byte
		copy(counts[:], seg[1:17])
		total := 0
		for _, c := range counts {
			total += int(c)
		}
		if len(seg) < 17+total {
			return fmt.Errorf("%w: DHT values overrun segment", ErrFormat)
		}
		values := seg[17 : 17+total]
		seg = seg[17+total:]
		if class != 0 {
			continue // AC tables are unused
		}
		if id > 3 {
			return fmt.Errorf("%w: Huffman table id %d", ErrFormat, id)
		}
		t, err := newHuffman(counts, values)
		if err != nil {
			return err
		}
		h.tables[id] = t
	}
	return nil
}

func (h *header) readSOS(seg []byte) error {
	if h.comps == nil {
		return fmt.Errorf("%w: SOS before SOF3", ErrFormat)
	}
	if len(seg) < 1 {
		return fmt.Errorf("%w: short SOS", ErrFormat)
	}
	ns := int(seg[0])
	if len(seg) < 1+2*ns+3 {
		return fmt.Errorf("%w: short SOS", ErrFormat)
	}
	if ns != len(h.comps) {
		return fmt.Errorf("%w: scan of %d of %d components", ErrUnsupported, ns, len(h.comps))
	}
	for i := 0; i < ns; i++ {
		id, table := int(seg[1+2*i]), int(seg[2+2*i]>>4)
		found := false
		for j := range h.comps {
			if h.comps[j].id == id {
				h.comps[j].table = table
				found = true
			}
		}
		if !found || table > 3 || h.tables[table] == nil {
			return fmt.Errorf("%w: component %d has no Huffman table", ErrFormat, id)
		}
	}
	p := seg[1+2*ns:]
	h.predictor = int(p[0])
	h.pointTrans = int(p[2] & 0x0F)
	if h.predictor < 1 || h.predictor > 7 {
		return fmt.Errorf("%w: predictor %d", ErrUnsupported, h.predictor)
	}
	if h.pointTrans >= h.precision {
		return fmt.Errorf("%w: point transform %d", ErrFormat, h.pointTrans)
	}
	return nil
}
