package pixels

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"

	"github.com/jpfielding/fasttiff.go/pkg/compress/ljpeg"
	"github.com/jpfielding/fasttiff.go/pkg/compress/lzw"
	"github.com/jpfielding/fasttiff.go/pkg/compress/rle"
	"github.com/jpfielding/fasttiff.go/pkg/seekable"
	"github.com/jpfielding/fasttiff.go/pkg/tiff"
)

// layout describes how the strips of a plane fill the plane buffer.
type layout struct {
	regions  int // 1, or one per channel for planar data
	rowBytes int // bytes of one row of one region
	rows     int // rows of one region
	rowsPer  int // rows per strip
	elem     int // sample size for differencing
	stride   int // samples per pixel within a row
}

func (r *Reader) layout() (layout, error) {
	fi := r.fi
	l := layout{regions: 1, rowBytes: fi.RowBytes(), rows: fi.Height, elem: 1, stride: 1}
	switch fi.FileType {
	case tiff.RGBPlanar:
		l.regions = 3
		l.rowBytes = fi.Width
	case tiff.RGB48Planar:
		l.regions = r.channels()
		l.rowBytes = fi.Width * 2
		l.elem = 2
	case tiff.RGB, tiff.BGR:
		l.stride = 3
	case tiff.ARGB, tiff.ABGR, tiff.BARG, tiff.CMYK:
		l.stride = 4
	case tiff.RGB48:
		l.elem, l.stride = 2, r.channels()
	case tiff.Gray16Signed, tiff.Gray16Unsigned:
		l.elem = 2
	case tiff.Gray32Int, tiff.Gray32Unsigned, tiff.Gray32Float:
		l.elem = 4
	case tiff.Gray64Float:
		l.elem = 8
	case tiff.Gray24Unsigned, tiff.Gray12Unsigned, tiff.Bitmap:
		if fi.Compression.Differencing() {
			return l, fmt.Errorf("%w: horizontal differencing of %s data", tiff.ErrUnsupported, fi.FileType)
		}
	}
	l.rowsPer = fi.RowsPerStrip
	if l.rowsPer <= 0 || l.rowsPer > l.rows {
		l.rowsPer = l.rows
	}
	return l, nil
}

// decoder expands strips of one compression scheme.
type decoder struct {
	compression tiff.Compression
	zstd        *zstd.Decoder
}

func (d *decoder) close() {
	if d.zstd != nil {
		d.zstd.Close()
	}
}

func (d *decoder) expand(data []byte, expected int) ([]byte, error) {
	switch d.compression {
	case tiff.LZW, tiff.LZWWithDifferencing:
		return lzw.Uncompress(data, expected)
	case tiff.PackBits:
		return rle.Uncompress(data, expected)
	case tiff.ZIP, tiff.ZIPWithDifferencing:
		zr, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		out, err := io.ReadAll(io.LimitReader(zr, int64(expected)))
		if err != nil && err != io.ErrUnexpectedEOF {
			return nil, err
		}
		return out, nil
	case tiff.ZSTD:
		if d.zstd == nil {
			zd, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
			if err != nil {
				return nil, err
			}
			d.zstd = zd
		}
		return d.zstd.DecodeAll(data, make([]byte, 0, expected))
	}
	return nil, fmt.Errorf("%w: %s compression", tiff.ErrUnsupported, d.compression)
}

// readStrips decompresses every strip into a plane buffer of size bytes.
// Planar strips are split evenly between the channels. A strip that expands
// past the space left for it is truncated.
func (r *Reader) readStrips(s seekable.Stream, size int64) ([]byte, error) {
	fi := r.fi
	if len(fi.StripOffsets) == 0 || len(fi.StripLengths) < len(fi.StripOffsets) {
		return nil, fmt.Errorf("%w: %d strip offsets with %d lengths", tiff.ErrFormat, len(fi.StripOffsets), len(fi.StripLengths))
	}
	l, err := r.layout()
	if err != nil {
		return nil, err
	}
	if fi.Compression == tiff.JPEG {
		return r.readJPEGStrips(s, size, l)
	}
	dec := &decoder{compression: fi.Compression}
	defer dec.close()

	out := make([]byte, size)
	regionSize := int(size) / l.regions
	perRegion := len(fi.StripOffsets) / l.regions
	if perRegion == 0 {
		return nil, fmt.Errorf("%w: %d strips for %d channels", tiff.ErrFormat, len(fi.StripOffsets), l.regions)
	}
	expected := l.rowBytes * l.rowsPer
	for region := 0; region < l.regions; region++ {
		dst := out[region*regionSize : (region+1)*regionSize]
		pos := 0
		for k := 0; k < perRegion && pos < len(dst); k++ {
			i := region*perRegion + k
			data, err := readRaw(s, fi.StripOffsets[i], fi.StripLengths[i])
			if err != nil {
				return nil, fmt.Errorf("strip %d: %w", i, err)
			}
			strip, err := dec.expand(data, expected)
			if err != nil {
				return nil, fmt.Errorf("strip %d: %w", i, err)
			}
			if len(strip) < expected && pos+len(strip) < len(dst) {
				debugStrip("short strip", i, len(strip), expected)
			}
			if len(strip) > expected {
				strip = strip[:expected]
			}
			if fi.Compression.Differencing() {
				for row := 0; row < len(strip); row += l.rowBytes {
					undoDifferencing(strip[row:min(row+l.rowBytes, len(strip))], l.elem, l.stride, r.order)
				}
			}
			pos += copy(dst[pos:], strip)
		}
	}
	return out, nil
}

// undoDifferencing reverses the horizontal predictor on one row of samples.
func undoDifferencing(row []byte, elem, stride int, order binary.ByteOrder) {
	n := len(row) / elem
	switch elem {
	case 1:
		for i := stride; i < n; i++ {
			row[i] += row[i-stride]
		}
	case 2:
		for i := stride; i < n; i++ {
			order.PutUint16(row[i*2:], order.Uint16(row[i*2:])+order.Uint16(row[(i-stride)*2:]))
		}
	case 4:
		for i := stride; i < n; i++ {
			order.PutUint32(row[i*4:], order.Uint32(row[i*4:])+order.Uint32(row[(i-stride)*4:]))
		}
	case 8:
		for i := stride; i < n; i++ {
			order.PutUint64(row[i*8:], order.Uint64(row[i*8:])+order.Uint64(row[(i-stride)*8:]))
		}
	}
}

// readJPEGStrips decodes each strip as a complete JPEG image into the plane
// buffer. Lossless (SOF3) strips keep their full sample depth; other strips
// go through image/jpeg as 8-bit gray or RGB.
func (r *Reader) readJPEGStrips(s seekable.Stream, size int64, l layout) ([]byte, error) {
	fi := r.fi
	out := make([]byte, size)
	y0 := 0
	for i := range fi.StripOffsets {
		if y0 >= fi.Height {
			break
		}
		data, err := readRaw(s, fi.StripOffsets[i], fi.StripLengths[i])
		if err != nil {
			return nil, fmt.Errorf("strip %d: %w", i, err)
		}
		var rows int
		if ljpeg.IsLossless(data) {
			rows, err = r.putLossless(out, y0, l, data)
		} else {
			rows, err = r.putBaseline(out, y0, l, data)
		}
		if err != nil {
			return nil, fmt.Errorf("strip %d: %w", i, err)
		}
		y0 += rows
	}
	return out, nil
}

// putLossless decodes a lossless JPEG strip into rows y0 onwards and returns
// the number of rows written.
func (r *Reader) putLossless(out []byte, y0 int, l layout, data []byte) (int, error) {
	fi := r.fi
	var comps, size int
	switch fi.FileType {
	case tiff.Gray8:
		comps, size = 1, 1
	case tiff.Gray16Unsigned, tiff.Gray16Signed:
		comps, size = 1, 2
	case tiff.RGB:
		comps, size = 3, 1
	case tiff.RGB48:
		comps, size = r.channels(), 2
	default:
		return 0, fmt.Errorf("%w: lossless JPEG compressed %s data", tiff.ErrUnsupported, fi.FileType)
	}
	f, err := ljpeg.Decode(data)
	if err != nil {
		return 0, err
	}
	if f.Components != comps {
		return 0, fmt.Errorf("%w: %d component lossless JPEG for %s data", tiff.ErrFormat, f.Components, fi.FileType)
	}
	rows := min(f.Height, fi.Height-y0)
	cols := min(f.Width, fi.Width)
	for y := 0; y < rows; y++ {
		row := out[(y0+y)*l.rowBytes:]
		for x := 0; x < cols; x++ {
			for c := 0; c < comps; c++ {
				v := f.At(x, y, c)
				pos := (x*comps + c) * size
				if size == 1 {
					row[pos] = byte(v)
				} else {
					r.order.PutUint16(row[pos:], v)
				}
			}
		}
	}
	return rows, nil
}

func (r *Reader) putBaseline(out []byte, y0 int, l layout, data []byte) (int, error) {
	fi := r.fi
	var samples int
	switch fi.FileType {
	case tiff.Gray8:
		samples = 1
	case tiff.RGB:
		samples = 3
	default:
		return 0, fmt.Errorf("%w: JPEG compressed %s data", tiff.ErrUnsupported, fi.FileType)
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	b := img.Bounds()
	rows := min(b.Dy(), fi.Height-y0)
	cols := min(b.Dx(), fi.Width)
	for y := 0; y < rows; y++ {
		row := out[(y0+y)*l.rowBytes:]
		for x := 0; x < cols; x++ {
			writeSample(row[x*samples:], img, b.Min.X+x, b.Min.Y+y, samples)
		}
	}
	return rows, nil
}

func writeSample(dst []byte, img image.Image, x, y, samples int) {
	if samples == 1 {
		dst[0] = color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y
		return
	}
	c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
	dst[0], dst[1], dst[2] = c.R, c.G, c.B
}
