package tiff

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestByteOrder_RoundTrip(t *testing.T) {
	for _, o := range []ByteOrder{BigEndian, LittleEndian} {
		t.Run(o.String(), func(t *testing.T) {
			for _, v := range []uint32{0, 1, 42, 0x1234, 0x12345678, 0x80000000, 0xffffffff, 0xdeadbeef} {
				var b [4]byte
				o.Binary().PutUint32(b[:], v)
				assert.Equal(t, int32(v), o.Int(b[0], b[1], b[2], b[3]))
			}
			for _, v := range []uint16{0, 1, 0x00ff, 0x1234, 0x8000, 0xffff} {
				var b [2]byte
				o.Binary().PutUint16(b[:], v)
				assert.Equal(t, int(v), o.Short(b[0], b[1]))
			}
			var b [8]byte
			o.Binary().PutUint64(b[:], 0x0102030405060708)
			assert.Equal(t, int64(0x0102030405060708), o.Long(b[:]))
		})
	}
}

func TestByteOrder_Disagree(t *testing.T) {
	b := []byte{0x12, 0x34, 0x56, 0x78}
	assert.Equal(t, int32(0x12345678), BigEndian.Int(b[0], b[1], b[2], b[3]))
	assert.Equal(t, int32(0x78563412), LittleEndian.Int(b[0], b[1], b[2], b[3]))
	assert.NotEqual(t, BigEndian.Short(b[0], b[1]), LittleEndian.Short(b[0], b[1]))

	// palindromes agree
	assert.Equal(t, BigEndian.Int(0xab, 0xcd, 0xcd, 0xab), LittleEndian.Int(0xab, 0xcd, 0xcd, 0xab))
	assert.Equal(t, BigEndian.Short(7, 7), LittleEndian.Short(7, 7))
}

func TestByteOrder_Binary(t *testing.T) {
	assert.Equal(t, binary.ByteOrder(binary.BigEndian), BigEndian.Binary())
	assert.Equal(t, binary.ByteOrder(binary.LittleEndian), LittleEndian.Binary())
	assert.True(t, LittleEndian.IsLittleEndian())
	assert.False(t, BigEndian.IsLittleEndian())
	assert.Equal(t, "MM", BigEndian.String())
}

func TestByteOrder_UTF16(t *testing.T) {
	le, err := LittleEndian.utf16().NewDecoder().Bytes([]byte{'h', 0, 'i', 0})
	assert.NoError(t, err)
	assert.Equal(t, "hi", string(le))
	be, err := BigEndian.utf16().NewDecoder().Bytes([]byte{0, 'h', 0, 'i'})
	assert.NoError(t, err)
	assert.Equal(t, "hi", string(be))
}

func TestFileInfo_Sizes(t *testing.T) {
	fi := NewExtendedFileInfo()
	fi.Width, fi.Height = 5, 3

	fi.FileType = Bitmap
	assert.Equal(t, 1, fi.RowBytes())
	fi.FileType = Gray12Unsigned
	assert.Equal(t, 8, fi.RowBytes())
	fi.FileType = Gray16Unsigned
	assert.Equal(t, 10, fi.RowBytes())
	assert.Equal(t, int64(30), fi.ImageSize())
	fi.FileType = RGB48
	fi.SamplesPerPixel = 4
	assert.Equal(t, 8, fi.BytesPerPixel())

	fi.FileType = Gray8
	fi.Offset = 100
	fi.GapBetweenImages = 5
	assert.Equal(t, int64(100+2*20), fi.PlaneOffset(2))
}

func TestFileType_String(t *testing.T) {
	assert.Equal(t, "GRAY16_SIGNED", Gray16Signed.String())
	assert.Equal(t, "FileType(99)", FileType(99).String())
	assert.Equal(t, "zip+differencing", ZIPWithDifferencing.String())
	assert.True(t, LZWWithDifferencing.Differencing())
	assert.False(t, LZW.Differencing())
}
