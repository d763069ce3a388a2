package tiff_test

import (
	"bytes"
	"encoding/binary"
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xtiff "golang.org/x/image/tiff"

	"github.com/jpfielding/fasttiff.go/pkg/seekable"
	"github.com/jpfielding/fasttiff.go/pkg/tiff"
	"github.com/jpfielding/fasttiff.go/pkg/tiff/tag"
	"github.com/jpfielding/fasttiff.go/pkg/tiff/tifftest"
)

var orders = []struct {
	name  string
	order binary.ByteOrder
}{
	{"II", binary.LittleEndian},
	{"MM", binary.BigEndian},
}

// closeRecorder notes whether the decoder closed its stream.
type closeRecorder struct {
	*seekable.ByteArrayStream
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func newDecoder(t *testing.T, data []byte, opts ...tiff.Option) *tiff.Decoder {
	t.Helper()
	d, err := tiff.Create(seekable.NewByteArrayStream(data), "test.tif", opts...)
	require.NoError(t, err)
	return d
}

func gray8(w, h int) []byte {
	b := make([]byte, w*h)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}

func TestCreate_Header(t *testing.T) {
	for _, o := range orders {
		data := tifftest.New(o.order)
		data.AddIFD().Image(2, 2, 8, gray8(2, 2))
		d := newDecoder(t, data.Bytes())
		assert.Equal(t, o.name, d.ByteOrder().String())
		assert.Equal(t, o.name == "II", d.IsLittleEndian())
	}

	for name, hdr := range map[string][]byte{
		"marker":    {'I', 'M', 42, 0, 8, 0, 0, 0},
		"magic":     {'I', 'I', 43, 0, 8, 0, 0, 0},
		"bigMagic":  {'M', 'M', 42, 0, 0, 0, 0, 8},
		"truncated": {'I', 'I'},
	} {
		t.Run(name, func(t *testing.T) {
			in := &closeRecorder{ByteArrayStream: seekable.NewByteArrayStream(hdr)}
			_, err := tiff.Create(in, name)
			require.ErrorIs(t, err, tiff.ErrFormat)
			assert.True(t, in.closed)
		})
	}
}

func TestGetTiffInfo_MinimalIFD(t *testing.T) {
	for _, o := range orders {
		t.Run(o.name, func(t *testing.T) {
			b := tifftest.New(o.order)
			b.AddIFD().Image(3, 2, 8, gray8(3, 2))
			data := b.Bytes()

			list, err := newDecoder(t, data).GetTiffInfo(false)
			require.NoError(t, err)
			require.Len(t, list, 1)
			fi := list[0]
			assert.Equal(t, 3, fi.Width)
			assert.Equal(t, 2, fi.Height)
			assert.Equal(t, tiff.Gray8, fi.FileType)
			assert.Equal(t, tiff.CompressionNone, fi.Compression)
			assert.Equal(t, 1, fi.NImages)
			assert.Equal(t, o.name == "II", fi.IntelByteOrder)
			assert.Equal(t, []int64{6}, fi.StripLengths)
			assert.Equal(t, fi.StripOffsets[0], fi.Offset)
			assert.Equal(t, gray8(3, 2), data[fi.Offset:fi.Offset+6])
			assert.False(t, fi.UnsortedTags)

			n, err := newDecoder(t, data).GetNumberOfImages(false)
			require.NoError(t, err)
			assert.Equal(t, tiff.NumberOfImages{Count: 1}, n)
		})
	}
}

func TestGetTiffInfo_ImageJStackStops(t *testing.T) {
	b := tifftest.New(binary.BigEndian)
	for i := 0; i < 5; i++ {
		ifd := b.AddIFD().Image(4, 4, 8, gray8(4, 4))
		if i == 0 {
			ifd.ASCII(tag.ImageDescription, "ImageJ=1.11a\nimages=5\n")
		}
	}
	data := b.Bytes()

	list, err := newDecoder(t, data).GetTiffInfo(false)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 5, list[0].NImages)
	assert.Equal(t, "ImageJ=1.11a\nimages=5\n", list[0].Description)
	assert.Empty(t, list[0].Info)

	n, err := newDecoder(t, data).GetNumberOfImages(false)
	require.NoError(t, err)
	assert.Equal(t, 5, n.Count)
}

func TestGetTiffInfo_ImageJStackIgnoredWhenCompressed(t *testing.T) {
	b := tifftest.New(binary.LittleEndian)
	b.AddIFD().Image(4, 4, 8, gray8(4, 4)).
		Short(tag.Compression, 32773).
		ASCII(tag.ImageDescription, "ImageJ=1.11a\nimages=5\n")
	b.AddIFD().Image(4, 4, 8, gray8(4, 4)).Short(tag.Compression, 32773)

	list, err := newDecoder(t, b.Bytes()).GetTiffInfo(false)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 1, list[0].NImages)
	assert.Equal(t, tiff.PackBits, list[0].Compression)
}

func TestGetTiffInfo_TiffMetadataInfo(t *testing.T) {
	b := tifftest.New(binary.LittleEndian)
	b.AddIFD().Image(2, 2, 8, gray8(2, 2)).
		ASCII(tag.ImageDescription, "a microscope image").
		ASCII(tag.Software, "acquire 2.0").
		ASCII(tag.DateTime, "2024:01:02 03:04:05").
		ASCII(tag.Artist, "ab") // too short to keep

	list, err := newDecoder(t, b.Bytes()).GetTiffInfo(false)
	require.NoError(t, err)
	fi := list[0]
	assert.Equal(t, "a microscope image", fi.Description)
	assert.Equal(t, "ImageDescription: a microscope image\nSoftware: acquire 2.0\nDateTime: 2024:01:02 03:04:05\n", fi.Info)
}

func TestGetTiffInfo_Latin1Description(t *testing.T) {
	b := tifftest.New(binary.LittleEndian)
	b.AddIFD().Image(2, 2, 8, gray8(2, 2)).
		Raw(tag.ImageDescription, tag.ASCII, 8, []byte{'5', ' ', 0xb5, 'm', ' ', 'x', 'y', 0})

	list, err := newDecoder(t, b.Bytes()).GetTiffInfo(false)
	require.NoError(t, err)
	assert.Equal(t, "5 µm xy", list[0].Description)
}

func TestGetTiffInfo_PrivateTagStops(t *testing.T) {
	b := tifftest.New(binary.LittleEndian)
	b.AddIFD().Image(2, 2, 8, gray8(2, 2)).Long(tag.Tag(20000), 1)
	b.AddIFD().Image(2, 2, 8, gray8(2, 2))
	b.AddIFD().Image(2, 2, 8, gray8(2, 2)).Long(tag.Tag(20000), 1)
	b.AddIFD().Image(2, 2, 8, gray8(2, 2))
	data := b.Bytes()

	list, err := newDecoder(t, data).GetTiffInfo(false)
	require.NoError(t, err)
	assert.Len(t, list, 2, "the private tag only ends the chain after the first IFD")

	n, err := newDecoder(t, data).GetNumberOfImages(false)
	require.NoError(t, err)
	assert.Equal(t, 2, n.Count)
}

func TestGetNumberOfImages_EstimateMatchesExact(t *testing.T) {
	for _, dataFirst := range []bool{false, true} {
		for _, o := range orders {
			b := tifftest.New(o.order)
			b.DataFirst = dataFirst
			for i := 0; i < 7; i++ {
				b.AddIFD().Image(16, 8, 16, make([]byte, 16*8*2)).
					Rational(tag.XResolution, 300, 1).
					Rational(tag.YResolution, 300, 1)
			}
			data := b.Bytes()

			exact, err := newDecoder(t, data).GetNumberOfImages(false)
			require.NoError(t, err)
			assert.Equal(t, 7, exact.Count)
			assert.False(t, exact.Estimated)

			est, err := newDecoder(t, data).GetNumberOfImages(true)
			require.NoError(t, err)
			assert.Equal(t, exact.Count, est.Count)
			assert.True(t, est.Estimated)
			assert.InDelta(t, 0, est.Error, 1e-9)
		}
	}
}

func TestGetNumberOfImages_EstimateError(t *testing.T) {
	b := tifftest.New(binary.LittleEndian)
	for i := 0; i < 4; i++ {
		ifd := b.AddIFD().Image(10, 10, 8, gray8(10, 10))
		if i == 3 {
			ifd.ASCII(tag.Software, "a longer final directory")
		}
	}
	est, err := newDecoder(t, b.Bytes()).GetNumberOfImages(true)
	require.NoError(t, err)
	assert.Equal(t, 4, est.Count)
	assert.Greater(t, est.Error, 0.0)
	assert.Less(t, est.Error, 0.1)
}

func TestGetNumberOfImages_EstimateCompressed(t *testing.T) {
	b := tifftest.New(binary.LittleEndian)
	b.AddIFD().Image(2, 2, 8, gray8(2, 2)).Short(tag.Compression, 8)
	b.AddIFD().Image(2, 2, 8, gray8(2, 2)).Short(tag.Compression, 8)
	in := &closeRecorder{ByteArrayStream: seekable.NewByteArrayStream(b.Bytes())}
	d, err := tiff.Create(in, "zip.tif")
	require.NoError(t, err)

	_, err = d.GetNumberOfImages(true)
	require.ErrorIs(t, err, tiff.ErrEstimateCompressed)
	assert.False(t, in.closed)

	n, err := d.GetNumberOfImages(false)
	require.NoError(t, err)
	assert.Equal(t, 2, n.Count)
}

func TestGetTiffInfo_FormatErrors(t *testing.T) {
	tests := []struct {
		name string
		data func() []byte
		want error
	}{
		{"zero entries", func() []byte {
			return []byte{'I', 'I', 42, 0, 8, 0, 0, 0, 0, 0, 0, 0, 0, 0}
		}, tiff.ErrFormat},
		{"first offset", func() []byte {
			return []byte{'I', 'I', 42, 0, 4, 0, 0, 0}
		}, tiff.ErrFormat},
		{"truncated entries", func() []byte {
			return []byte{'I', 'I', 42, 0, 8, 0, 0, 0, 3, 0, 1, 1}
		}, tiff.ErrFormat},
		{"tiled", func() []byte {
			b := tifftest.New(binary.LittleEndian)
			b.AddIFD().Image(2, 2, 8, gray8(2, 2)).Long(tag.TileWidth, 16)
			return b.Bytes()
		}, tiff.ErrUnsupported},
		{"12-bit lzw", func() []byte {
			b := tifftest.New(binary.LittleEndian)
			b.AddIFD().Image(2, 2, 12, gray8(2, 2)).Short(tag.Compression, 5)
			return b.Bytes()
		}, tiff.ErrUnsupported},
		{"48-bit lzw differencing", func() []byte {
			b := tifftest.New(binary.LittleEndian)
			b.AddIFD().Image(2, 2, 16, make([]byte, 24)).
				Short(tag.SamplesPerPixel, 3).
				Short(tag.Compression, 5).
				Short(tag.Predictor, 2)
			return b.Bytes()
		}, tiff.ErrUnsupported},
		{"jpeg tables", func() []byte {
			b := tifftest.New(binary.LittleEndian)
			b.AddIFD().Image(2, 2, 8, gray8(2, 2)).
				Short(tag.Compression, 7).
				Raw(tag.JPEGTables, tag.Undefined, 8, make([]byte, 8))
			return b.Bytes()
		}, tiff.ErrUnsupported},
		{"16-bit float", func() []byte {
			b := tifftest.New(binary.LittleEndian)
			b.AddIFD().Image(2, 2, 16, make([]byte, 8)).Short(tag.SampleFormat, 3)
			return b.Bytes()
		}, tiff.ErrUnsupported},
		{"bit depth", func() []byte {
			b := tifftest.New(binary.LittleEndian)
			b.AddIFD().Image(2, 2, 7, gray8(2, 2))
			return b.Bytes()
		}, tiff.ErrUnsupported},
		{"compression", func() []byte {
			b := tifftest.New(binary.LittleEndian)
			b.AddIFD().Image(2, 2, 8, gray8(2, 2)).Short(tag.Compression, 4)
			return b.Bytes()
		}, tiff.ErrUnsupported},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := &closeRecorder{ByteArrayStream: seekable.NewByteArrayStream(tc.data())}
			d, err := tiff.Create(in, "bad.tif")
			require.NoError(t, err)
			_, err = d.GetTiffInfo(false)
			require.ErrorIs(t, err, tc.want)
			assert.True(t, in.closed)
		})
	}
}

func TestGetTiffInfo_SpotThumbnailTolerated(t *testing.T) {
	b := tifftest.New(binary.LittleEndian)
	b.AddIFD().Image(80, 60, 8, make([]byte, 80*60)).Short(tag.Compression, 6)
	list, err := newDecoder(t, b.Bytes()).GetTiffInfo(false)
	require.NoError(t, err)
	assert.Equal(t, tiff.CompressionUnknown, list[0].Compression)

	b = tifftest.New(binary.LittleEndian)
	b.AddIFD().Image(80, 60, 8, make([]byte, 80*60)).Short(tag.Compression, 7)
	list, err = newDecoder(t, b.Bytes()).GetTiffInfo(false)
	require.NoError(t, err)
	assert.Equal(t, tiff.JPEG, list[0].Compression, "small new style JPEG images are read")

	b = tifftest.New(binary.LittleEndian)
	b.AddIFD().Image(600, 1, 8, make([]byte, 600)).Short(tag.Compression, 6)
	_, err = newDecoder(t, b.Bytes()).GetTiffInfo(false)
	require.ErrorIs(t, err, tiff.ErrUnsupported)
}

func TestGetTiffInfo_FileTypes(t *testing.T) {
	le := binary.LittleEndian
	tests := []struct {
		name string
		ifd  func(*tifftest.IFD)
		want tiff.FileType
		ws   bool
	}{
		{"gray16", func(i *tifftest.IFD) { i.Image(2, 2, 16, nil) }, tiff.Gray16Unsigned, false},
		{"gray16 signed", func(i *tifftest.IFD) {
			i.Image(2, 2, 16, nil).Short(tag.SampleFormat, 2)
		}, tiff.Gray16Signed, false},
		{"gray32 int", func(i *tifftest.IFD) { i.Image(2, 2, 32, nil) }, tiff.Gray32Int, false},
		{"gray32 float", func(i *tifftest.IFD) {
			i.Image(2, 2, 32, nil).Short(tag.SampleFormat, 3)
		}, tiff.Gray32Float, false},
		{"gray32 unsigned", func(i *tifftest.IFD) {
			i.Image(2, 2, 32, nil).Short(tag.SampleFormat, 1)
		}, tiff.Gray32Unsigned, false},
		{"gray12", func(i *tifftest.IFD) { i.Image(2, 2, 12, nil) }, tiff.Gray12Unsigned, false},
		{"gray24", func(i *tifftest.IFD) { i.Image(2, 2, 24, nil) }, tiff.Gray24Unsigned, false},
		{"gray64", func(i *tifftest.IFD) { i.Image(2, 2, 64, nil) }, tiff.Gray64Float, false},
		{"bitmap white is zero", func(i *tifftest.IFD) {
			i.Image(8, 2, 1, nil).Short(tag.PhotoInterp, 0)
		}, tiff.Bitmap, true},
		{"rgb", func(i *tifftest.IFD) {
			i.Image(2, 2, 8, nil).Short(tag.BitsPerSample, 8, 8, 8).Short(tag.SamplesPerPixel, 3)
		}, tiff.RGB, false},
		{"rgb planar", func(i *tifftest.IFD) {
			i.Image(2, 2, 8, nil).Short(tag.BitsPerSample, 8, 8, 8).
				Short(tag.SamplesPerPixel, 3).Short(tag.PlanarConfiguration, 2)
		}, tiff.RGBPlanar, false},
		{"argb", func(i *tifftest.IFD) {
			i.Image(2, 2, 8, nil).Short(tag.PhotoInterp, 2).Short(tag.SamplesPerPixel, 4)
		}, tiff.ARGB, false},
		{"cmyk", func(i *tifftest.IFD) {
			i.Image(2, 2, 8, nil).Short(tag.PhotoInterp, 5).Short(tag.SamplesPerPixel, 4)
		}, tiff.CMYK, false},
		{"rgb48", func(i *tifftest.IFD) {
			i.Image(2, 2, 16, nil).Short(tag.SamplesPerPixel, 3)
		}, tiff.RGB48, false},
		{"rgb48 planar", func(i *tifftest.IFD) {
			i.Image(2, 2, 16, nil).Short(tag.SamplesPerPixel, 3).Short(tag.PlanarConfiguration, 2)
		}, tiff.RGB48Planar, false},
		{"color map", func(i *tifftest.IFD) {
			lut := make([]uint16, 768)
			for j := 0; j < 256; j++ {
				lut[j] = uint16(j) << 8
			}
			i.Image(2, 2, 8, nil).Short(tag.ColorMap, lut...)
		}, tiff.Color8, false},
		{"empty color map", func(i *tifftest.IFD) {
			i.Image(2, 2, 8, nil).Short(tag.ColorMap, make([]uint16, 768)...)
		}, tiff.Gray8, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := tifftest.New(le)
			tc.ifd(b.AddIFD())
			list, err := newDecoder(t, b.Bytes()).GetTiffInfo(false)
			require.NoError(t, err)
			assert.Equal(t, tc.want, list[0].FileType)
			assert.Equal(t, tc.ws, list[0].WhiteIsZero)
		})
	}
}

func TestGetTiffInfo_ColorMap(t *testing.T) {
	for _, o := range orders {
		t.Run(o.name, func(t *testing.T) {
			lut := make([]uint16, 768)
			for j := 0; j < 256; j++ {
				lut[j] = uint16(j)<<8 | 0x11
				lut[256+j] = uint16(255-j) << 8
				lut[512+j] = 0x7f00
			}
			b := tifftest.New(o.order)
			b.AddIFD().Image(2, 2, 8, gray8(2, 2)).Short(tag.ColorMap, lut...)
			list, err := newDecoder(t, b.Bytes()).GetTiffInfo(false)
			require.NoError(t, err)
			fi := list[0]
			assert.Equal(t, 256, fi.LutSize)
			assert.Equal(t, byte(10), fi.Reds[10])
			assert.Equal(t, byte(245), fi.Greens[10])
			assert.Equal(t, byte(0x7f), fi.Blues[200])
		})
	}
}

func TestGetTiffInfo_Resolution(t *testing.T) {
	b := tifftest.New(binary.BigEndian)
	b.AddIFD().Image(2, 2, 8, gray8(2, 2)).
		Rational(tag.XResolution, 72, 1).
		Rational(tag.YResolution, 36, 1).
		Short(tag.ResolutionUnit, 2)
	list, err := newDecoder(t, b.Bytes()).GetTiffInfo(false)
	require.NoError(t, err)
	fi := list[0]
	assert.Equal(t, "cm", fi.Unit)
	assert.InDelta(t, 2.54/72, fi.PixelWidth, 1e-12)
	assert.InDelta(t, 2.54/36, fi.PixelHeight, 1e-12)
}

func TestGetTiffInfo_PixelDataOnly(t *testing.T) {
	b := tifftest.New(binary.LittleEndian)
	for i := 0; i < 3; i++ {
		b.AddIFD().Image(2, 2, 8, gray8(2, 2)).
			Rational(tag.XResolution, 10, 1).
			Short(tag.SampleFormat, 1)
	}
	data := b.Bytes()

	list, err := newDecoder(t, data).GetTiffInfo(true)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.InDelta(t, 0.1, list[0].PixelWidth, 1e-12, "the first IFD is always fully read")
	assert.Equal(t, 1.0, list[1].PixelWidth)
	assert.Equal(t, 1.0, list[2].PixelWidth)

	list, err = newDecoder(t, data, tiff.WithFullTagScan()).GetTiffInfo(true)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, list[2].PixelWidth, 1e-12)
}

func TestGetTiffInfo_UnsortedTags(t *testing.T) {
	build := func() []byte {
		b := tifftest.New(binary.LittleEndian)
		b.AddIFD().Unsorted().
			Short(tag.Predictor, 2).
			Image(4, 4, 8, gray8(4, 4)).
			Short(tag.Compression, 5)
		return b.Bytes()
	}

	list, err := newDecoder(t, build()).GetTiffInfo(false)
	require.NoError(t, err)
	assert.True(t, list[0].UnsortedTags)
	assert.Equal(t, tiff.LZW, list[0].Compression, "the predictor was seen before the compression")

	list, err = newDecoder(t, build(), tiff.WithFullTagScan()).GetTiffInfo(false)
	require.NoError(t, err)
	assert.True(t, list[0].UnsortedTags)
	assert.Equal(t, tiff.LZWWithDifferencing, list[0].Compression)
}

func TestGetTiffInfo_Progress(t *testing.T) {
	b := tifftest.New(binary.LittleEndian)
	for i := 0; i < 120; i++ {
		b.AddIFD().Image(1, 1, 8, []byte{byte(i)})
	}
	var msgs []string
	progress := tiff.ProgressFunc(func(msg string) { msgs = append(msgs, msg) })

	list, err := newDecoder(t, b.Bytes(), tiff.WithProgress(progress), tiff.WithDebug()).GetTiffInfo(false)
	require.NoError(t, err)
	assert.Len(t, list, 120)
	assert.Equal(t, []string{"Opening IFDs: 50", "Opening IFDs: 100"}, msgs)
	assert.Equal(t, byte(119), b.Bytes()[list[119].Offset])
}

func TestGetTiffInfo_StripsAsShorts(t *testing.T) {
	b := tifftest.New(binary.BigEndian)
	b.AddIFD().
		Short(tag.ImageWidth, 4).
		Short(tag.ImageLength, 4).
		Short(tag.BitsPerSample, 8).
		Short(tag.RowsPerStrip, 1).
		Short(tag.StripOffsets, 100, 90, 80, 70).
		Short(tag.StripByteCount, 4, 4, 4, 4)
	list, err := newDecoder(t, b.Bytes()).GetTiffInfo(false)
	require.NoError(t, err)
	fi := list[0]
	assert.Equal(t, []int64{100, 90, 80, 70}, fi.StripOffsets)
	assert.Equal(t, int64(70), fi.Offset, "the last strip is first in the file")
	assert.Equal(t, 1, fi.RowsPerStrip)
}

func TestGetTiffInfo_Vendors(t *testing.T) {
	t.Run("iplab", func(t *testing.T) {
		b := tifftest.New(binary.LittleEndian)
		b.AddIFD().Image(2, 2, 8, gray8(2, 2)).Long(tag.IPLab, 12)
		list, err := newDecoder(t, b.Bytes()).GetTiffInfo(false)
		require.NoError(t, err)
		assert.Equal(t, 12, list[0].NImages)
	})
	t.Run("metamorph", func(t *testing.T) {
		b := tifftest.New(binary.LittleEndian)
		b.AddIFD().Image(2, 2, 8, gray8(2, 2)).Raw(tag.Metamorph2, tag.Long, 7, make([]byte, 28))
		data := b.Bytes()

		d, err := tiff.Create(seekable.NewByteArrayStream(data), "cells.STK")
		require.NoError(t, err)
		list, err := d.GetTiffInfo(false)
		require.NoError(t, err)
		assert.Equal(t, 7, list[0].NImages)

		list, err = newDecoder(t, data).GetTiffInfo(false)
		require.NoError(t, err)
		assert.Equal(t, 1, list[0].NImages, "only .stk files")
	})
	t.Run("orientation", func(t *testing.T) {
		b := tifftest.New(binary.LittleEndian)
		b.AddIFD().Image(2, 2, 8, gray8(2, 2)).Short(tag.Orientation, 1)
		list, err := newDecoder(t, b.Bytes()).GetTiffInfo(false)
		require.NoError(t, err)
		assert.Equal(t, 0, list[0].NImages)
	})
}

func TestGetTiffInfo_NIHImageHeader(t *testing.T) {
	hdr := make([]byte, 280)
	be := binary.BigEndian
	be.PutUint16(hdr[12:], 160)
	be.PutUint64(hdr[160:], math.Float64bits(2))
	be.PutUint16(hdr[172:], 6)
	hdr[182] = 11
	be.PutUint16(hdr[260:], 3)
	be.PutUint32(hdr[262:], math.Float32bits(1.5))
	be.PutUint32(hdr[268:], math.Float32bits(0.25))
	be.PutUint32(hdr[272:], math.Float32bits(2))

	for _, o := range orders {
		t.Run(o.name, func(t *testing.T) {
			b := tifftest.New(o.order)
			b.AddIFD().Image(2, 2, 8, gray8(2, 2)).Raw(tag.NIHImageHdr, tag.Byte, 256, hdr)
			list, err := newDecoder(t, b.Bytes()).GetTiffInfo(false)
			require.NoError(t, err)
			fi := list[0]
			assert.Equal(t, 0.5, fi.PixelWidth)
			assert.Equal(t, 0.25, fi.PixelHeight)
			assert.Equal(t, "micrometer", fi.Unit)
			assert.Equal(t, "U. OD", fi.ValueUnit)
			assert.Equal(t, 21, fi.CalibrationFunction)
			assert.Equal(t, 3, fi.NImages)
			assert.Equal(t, 1.5, fi.PixelDepth)
			assert.Equal(t, 0.25, fi.FrameInterval)
		})
	}
}

func TestGetTiffInfo_XImageOracle(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 13, 7))
	for i := range img.Pix {
		img.Pix[i] = byte(i * 3)
	}
	for _, opt := range []struct {
		opts *xtiff.Options
		want tiff.Compression
	}{
		{nil, tiff.CompressionNone},
		{&xtiff.Options{Compression: xtiff.Deflate}, tiff.ZIP},
		// x/image writes the predictor tag for LZW only
		{&xtiff.Options{Compression: xtiff.Deflate, Predictor: true}, tiff.ZIP},
		{&xtiff.Options{Compression: xtiff.LZW}, tiff.LZW},
		{&xtiff.Options{Compression: xtiff.LZW, Predictor: true}, tiff.LZWWithDifferencing},
	} {
		var buf bytes.Buffer
		require.NoError(t, xtiff.Encode(&buf, img, opt.opts))
		list, err := newDecoder(t, buf.Bytes()).GetTiffInfo(false)
		require.NoError(t, err)
		fi := list[0]
		assert.Equal(t, 13, fi.Width)
		assert.Equal(t, 7, fi.Height)
		assert.Equal(t, tiff.Gray8, fi.FileType)
		assert.Equal(t, opt.want, fi.Compression)
		assert.True(t, fi.IntelByteOrder)
	}
}
