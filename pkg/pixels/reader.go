// Package pixels reads the pixel data of TIFF image planes described by
// tiff.ExtendedFileInfo.
package pixels

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/jpfielding/fasttiff.go/pkg/seekable"
	"github.com/jpfielding/fasttiff.go/pkg/tiff"
)

// Reader decodes the planes of one ExtendedFileInfo. The element type of
// the result depends on the file type:
//
//	GRAY8, COLOR8, BITMAP                   []byte
//	GRAY12, GRAY16                          []uint16
//	GRAY24, GRAY32 (int, unsigned, float),
//	GRAY64                                  []float32
//	RGB, BGR, ARGB, ABGR, BARG, CMYK,
//	RGB_PLANAR                              []uint32 (0xffRRGGBB)
//	RGB48, RGB48_PLANAR                     [][]uint16, one per channel
//
// Bitmap pixels are 0 or 255. Signed 16-bit data is offset by 32768.
type Reader struct {
	fi    *tiff.ExtendedFileInfo
	order binary.ByteOrder
}

func NewReader(fi *tiff.ExtendedFileInfo) *Reader {
	var order binary.ByteOrder = binary.BigEndian
	if fi.IntelByteOrder {
		order = binary.LittleEndian
	}
	return &Reader{fi: fi, order: order}
}

// ReadPixels reads the plane described by the file info. Uncompressed data
// is read from Offset, compressed data strip by strip.
func (r *Reader) ReadPixels(s seekable.Stream) (any, error) {
	raw, err := r.planeBytes(s, r.fi.Offset)
	if err != nil {
		return nil, err
	}
	return r.convert(raw)
}

// ReadPlane reads plane n of a contiguous uncompressed stack such as an
// ImageJ hyperstack, where only the first IFD is decoded.
func (r *Reader) ReadPlane(s seekable.Stream, n int) (any, error) {
	if n < 0 || (n > 0 && n >= r.fi.NImages) {
		return nil, fmt.Errorf("plane %d out of range [0,%d)", n, r.fi.NImages)
	}
	if n > 0 && r.fi.Compression != tiff.CompressionNone {
		return nil, fmt.Errorf("%w: plane %d of a compressed stack", tiff.ErrUnsupported, n)
	}
	raw, err := r.planeBytes(s, r.fi.PlaneOffset(n))
	if err != nil {
		return nil, err
	}
	return r.convert(raw)
}

// channels is the number of samples per pixel of the RGB48 types.
func (r *Reader) channels() int {
	if r.fi.SamplesPerPixel < 3 {
		return 3
	}
	return r.fi.SamplesPerPixel
}

func (r *Reader) planar() bool {
	return r.fi.FileType == tiff.RGBPlanar || r.fi.FileType == tiff.RGB48Planar
}

// planeBytes returns the stored bytes of the plane, uncompressed. For the
// byte array backing of uncompressed data it is a view of the stream's
// buffer and must not be modified.
func (r *Reader) planeBytes(s seekable.Stream, offset int64) ([]byte, error) {
	fi := r.fi
	if fi.Width <= 0 || fi.Height <= 0 {
		return nil, fmt.Errorf("%w: image size %dx%d", tiff.ErrFormat, fi.Width, fi.Height)
	}
	size := fi.ImageSize()
	if size <= 0 {
		return nil, fmt.Errorf("%w: file type %s", tiff.ErrUnsupported, fi.FileType)
	}
	if size > maxPlaneBytes {
		return nil, fmt.Errorf("%w: %d byte plane", tiff.ErrUnsupported, size)
	}
	if fi.Compression == tiff.CompressionNone {
		return readRaw(s, offset, size)
	}
	return r.readStrips(s, size)
}

// maxPlaneBytes is the largest plane a Reader decodes.
const maxPlaneBytes = math.MaxInt32

// readRaw reads n bytes at offset. A byte array stream returns a view of
// its buffer. A range that ends past the stream fails before anything is
// allocated.
func readRaw(s seekable.Stream, offset, n int64) ([]byte, error) {
	if offset < 0 || n < 0 {
		return nil, fmt.Errorf("%w: %d bytes at %d", tiff.ErrFormat, n, offset)
	}
	if ba, ok := s.(*seekable.ByteArrayStream); ok {
		buf := ba.Bytes()
		if offset+n <= int64(len(buf)) {
			if err := s.SeekTo(offset + n); err != nil {
				return nil, err
			}
			return buf[offset : offset+n : offset+n], nil
		}
	}
	length, err := s.Length()
	if err != nil {
		return nil, err
	}
	if offset > length || n > length-offset {
		return nil, fmt.Errorf("reading %d bytes at %d of %d: %w", n, offset, length, io.ErrUnexpectedEOF)
	}
	if err := s.SeekTo(offset); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if err := seekable.ReadFully(s, b); err != nil {
		return nil, fmt.Errorf("reading %d bytes at %d: %w", n, offset, err)
	}
	return b, nil
}

func (r *Reader) convert(raw []byte) (any, error) {
	fi := r.fi
	n := fi.Width * fi.Height
	switch fi.FileType {
	case tiff.Gray8, tiff.Color8:
		out := make([]byte, n)
		copy(out, raw)
		return out, nil
	case tiff.Bitmap:
		return r.bitmap(raw), nil
	case tiff.Gray12Unsigned:
		return r.gray12(raw), nil
	case tiff.Gray16Signed, tiff.Gray16Unsigned:
		out := make([]uint16, n)
		for i := range out {
			out[i] = r.order.Uint16(raw[i*2:])
		}
		if fi.FileType == tiff.Gray16Signed {
			for i, v := range out {
				out[i] = v ^ 0x8000
			}
		}
		return out, nil
	case tiff.Gray24Unsigned:
		out := make([]float32, n)
		for i := range out {
			out[i] = float32(uint32(raw[i*3]) | uint32(raw[i*3+1])<<8 | uint32(raw[i*3+2])<<16)
		}
		return out, nil
	case tiff.Gray32Int, tiff.Gray32Unsigned, tiff.Gray32Float:
		return r.gray32(raw), nil
	case tiff.Gray64Float:
		out := make([]float32, n)
		for i := range out {
			out[i] = float32(math.Float64frombits(r.order.Uint64(raw[i*8:])))
		}
		return out, nil
	case tiff.RGB, tiff.BGR, tiff.ARGB, tiff.ABGR, tiff.BARG, tiff.CMYK:
		return r.chunkyRGB(raw), nil
	case tiff.RGBPlanar:
		out := make([]uint32, n)
		red, green, blue := raw[:n], raw[n:2*n], raw[2*n:3*n]
		for i := range out {
			out[i] = argb(red[i], green[i], blue[i])
		}
		return out, nil
	case tiff.RGB48:
		return r.rgb48(raw, false), nil
	case tiff.RGB48Planar:
		return r.rgb48(raw, true), nil
	}
	return nil, fmt.Errorf("%w: file type %s", tiff.ErrUnsupported, fi.FileType)
}

func (r *Reader) bitmap(raw []byte) []byte {
	w, h := r.fi.Width, r.fi.Height
	scan := (w + 7) / 8
	out := make([]byte, w*h)
	for y := 0; y < h; y++ {
		row := raw[y*scan : (y+1)*scan]
		for x := 0; x < w; x++ {
			if row[x>>3]&(0x80>>(x&7)) != 0 {
				out[y*w+x] = 255
			}
		}
	}
	return out
}

// gray12 unpacks two pixels from every three bytes, each row starting on a
// byte boundary.
func (r *Reader) gray12(raw []byte) []uint16 {
	w, h := r.fi.Width, r.fi.Height
	rowBytes := r.fi.RowBytes()
	out := make([]uint16, w*h)
	for y := 0; y < h; y++ {
		in := raw[y*rowBytes:]
		px := out[y*w : (y+1)*w]
		for x, i := 0, 0; x < w; x, i = x+2, i+3 {
			px[x] = uint16(in[i])<<4 | uint16(in[i+1]>>4)
			if x+1 < w {
				px[x+1] = uint16(in[i+1]&0x0f)<<8 | uint16(in[i+2])
			}
		}
	}
	return out
}

func (r *Reader) gray32(raw []byte) []float32 {
	out := make([]float32, r.fi.Width*r.fi.Height)
	for i := range out {
		v := r.order.Uint32(raw[i*4:])
		switch r.fi.FileType {
		case tiff.Gray32Int:
			out[i] = float32(int32(v))
		case tiff.Gray32Unsigned:
			out[i] = float32(v)
		default:
			out[i] = math.Float32frombits(v)
		}
	}
	return out
}

func argb(red, green, blue byte) uint32 {
	return 0xff000000 | uint32(red)<<16 | uint32(green)<<8 | uint32(blue)
}

// cmyk folds the black channel into c, m or y.
func cmyk(v, k byte) byte {
	if k == 0 {
		return v
	}
	return byte(((int(v) * (256 - int(k))) >> 8) + int(k))
}

func (r *Reader) chunkyRGB(raw []byte) []uint32 {
	fi := r.fi
	out := make([]uint32, fi.Width*fi.Height)
	bpp := fi.BytesPerPixel()
	for i := range out {
		p := raw[i*bpp : (i+1)*bpp]
		var red, green, blue byte
		switch fi.FileType {
		case tiff.RGB:
			red, green, blue = p[0], p[1], p[2]
		case tiff.BGR:
			red, green, blue = p[2], p[1], p[0]
		case tiff.ARGB:
			// samples are stored r, g, b, alpha
			red, green, blue = p[0], p[1], p[2]
		case tiff.ABGR:
			red, green, blue = p[2], p[1], p[0]
		case tiff.BARG:
			red, green, blue = p[2], p[3], p[0]
		case tiff.CMYK:
			red, green, blue = cmyk(p[0], p[3]), cmyk(p[1], p[3]), cmyk(p[2], p[3])
		}
		out[i] = argb(red, green, blue)
	}
	return out
}

func (r *Reader) rgb48(raw []byte, planar bool) [][]uint16 {
	n := r.fi.Width * r.fi.Height
	channels := r.channels()
	out := make([][]uint16, channels)
	for c := range out {
		out[c] = make([]uint16, n)
	}
	for i := 0; i < n; i++ {
		for c := 0; c < channels; c++ {
			pos := (i*channels + c) * 2
			if planar {
				pos = (c*n + i) * 2
			}
			out[c][i] = r.order.Uint16(raw[pos:])
		}
	}
	return out
}

func debugStrip(msg string, strip, got, want int) {
	slog.Debug(msg,
		slog.Int("strip", strip),
		slog.Int("bytes", got),
		slog.Int("expected", want))
}
