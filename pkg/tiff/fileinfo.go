package tiff

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FileType is the resolved pixel encoding of an image plane
type FileType int

const (
	Gray8 FileType = iota
	Gray16Signed
	Gray16Unsigned
	Gray32Int
	Gray32Float
	Color8
	RGB
	RGBPlanar
	Bitmap
	RGB48
	Gray12Unsigned
	Gray24Unsigned
	BGR
	ARGB
	Gray32Unsigned
	Gray64Float
	RGB48Planar
	ABGR
	CMYK
	BARG
)

var fileTypeNames = [...]string{
	Gray8:          "GRAY8",
	Gray16Signed:   "GRAY16_SIGNED",
	Gray16Unsigned: "GRAY16_UNSIGNED",
	Gray32Int:      "GRAY32_INT",
	Gray32Float:    "GRAY32_FLOAT",
	Color8:         "COLOR8",
	RGB:            "RGB",
	RGBPlanar:      "RGB_PLANAR",
	Bitmap:         "BITMAP",
	RGB48:          "RGB48",
	Gray12Unsigned: "GRAY12_UNSIGNED",
	Gray24Unsigned: "GRAY24_UNSIGNED",
	BGR:            "BGR",
	ARGB:           "ARGB",
	Gray32Unsigned: "GRAY32_UNSIGNED",
	Gray64Float:    "GRAY64_FLOAT",
	RGB48Planar:    "RGB48_PLANAR",
	ABGR:           "ABGR",
	CMYK:           "CMYK",
	BARG:           "BARG",
}

func (t FileType) String() string {
	if t >= 0 && int(t) < len(fileTypeNames) {
		return fileTypeNames[t]
	}
	return fmt.Sprintf("FileType(%d)", int(t))
}

func (t FileType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// Compression is the strip compression of an image plane
type Compression int

const (
	CompressionNone Compression = iota
	LZW
	LZWWithDifferencing
	JPEG
	PackBits
	ZIP
	ZIPWithDifferencing
	ZSTD
	CompressionUnknown
)

var compressionNames = [...]string{
	CompressionNone:     "none",
	LZW:                 "lzw",
	LZWWithDifferencing: "lzw+differencing",
	JPEG:                "jpeg",
	PackBits:            "packbits",
	ZIP:                 "zip",
	ZIPWithDifferencing: "zip+differencing",
	ZSTD:                "zstd",
	CompressionUnknown:  "unknown",
}

func (c Compression) String() string {
	if c >= 0 && int(c) < len(compressionNames) {
		return compressionNames[c]
	}
	return fmt.Sprintf("Compression(%d)", int(c))
}

func (c Compression) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// Differencing reports whether the horizontal predictor was applied.
func (c Compression) Differencing() bool {
	return c == LZWWithDifferencing || c == ZIPWithDifferencing
}

// ExtendedFileInfo describes one decoded image plane. The decoder fills it
// while scanning an IFD and does not touch it afterwards.
type ExtendedFileInfo struct {
	FileName         string      `json:"fileName,omitempty"`
	FileType         FileType    `json:"fileType"`
	Width            int         `json:"width"`
	Height           int         `json:"height"`
	Offset           int64       `json:"offset"`
	NImages          int         `json:"nImages"`
	GapBetweenImages int64       `json:"gapBetweenImages,omitempty"`
	WhiteIsZero      bool        `json:"whiteIsZero,omitempty"`
	IntelByteOrder   bool        `json:"intelByteOrder"`
	Compression      Compression `json:"compression"`
	StripOffsets     []int64     `json:"stripOffsets,omitempty"`
	StripLengths     []int64     `json:"stripLengths,omitempty"`
	RowsPerStrip     int         `json:"rowsPerStrip,omitempty"`
	SamplesPerPixel  int         `json:"samplesPerPixel"`

	// 8-bit color table
	LutSize int    `json:"lutSize,omitempty"`
	Reds    []byte `json:"-"`
	Greens  []byte `json:"-"`
	Blues   []byte `json:"-"`

	// Calibration
	PixelWidth          float64   `json:"pixelWidth"`
	PixelHeight         float64   `json:"pixelHeight"`
	PixelDepth          float64   `json:"pixelDepth"`
	Unit                string    `json:"unit,omitempty"`
	CalibrationFunction int       `json:"calibrationFunction,omitempty"`
	Coefficients        []float64 `json:"coefficients,omitempty"`
	ValueUnit           string    `json:"valueUnit,omitempty"`
	FrameInterval       float64   `json:"frameInterval,omitempty"`

	// ImageJ metadata
	Description   string    `json:"description,omitempty"`
	Info          string    `json:"info,omitempty"`
	SliceLabels   []string  `json:"sliceLabels,omitempty"`
	DisplayRanges []float64 `json:"displayRanges,omitempty"`
	ChannelLuts   [][]byte  `json:"-"`
	Plot          []byte    `json:"-"`
	Roi           []byte    `json:"-"`
	Overlay       [][]byte  `json:"-"`
	Properties    []string  `json:"properties,omitempty"`
	MetaDataTypes []int32   `json:"metaDataTypes,omitempty"`
	MetaData      [][]byte  `json:"-"`

	// Micro-Manager metadata
	SummaryMetaData  string `json:"summaryMetaData,omitempty"`
	ExtendedMetaData string `json:"extendedMetaData,omitempty"`

	// UnsortedTags is set when the IFD entries were not in ascending tag order.
	UnsortedTags bool `json:"unsortedTags,omitempty"`
}

// NewExtendedFileInfo returns a record with the defaults of an IFD that has
// not declared any tags yet.
func NewExtendedFileInfo() *ExtendedFileInfo {
	return &ExtendedFileInfo{
		FileType:        Bitmap,
		NImages:         1,
		SamplesPerPixel: 1,
		PixelWidth:      1,
		PixelHeight:     1,
		PixelDepth:      1,
	}
}

// BytesPerPixel returns the storage size of one pixel; 12-bit and bitmap
// data report the size of their unpacked sample.
func (fi *ExtendedFileInfo) BytesPerPixel() int {
	switch fi.FileType {
	case Gray8, Color8, Bitmap:
		return 1
	case Gray16Signed, Gray16Unsigned, Gray12Unsigned:
		return 2
	case Gray32Int, Gray32Unsigned, Gray32Float, ARGB, ABGR, BARG, CMYK:
		return 4
	case Gray24Unsigned, RGB, RGBPlanar, BGR:
		return 3
	case RGB48, RGB48Planar:
		if fi.SamplesPerPixel == 4 {
			return 8
		}
		return 6
	case Gray64Float:
		return 8
	}
	return 0
}

// RowBytes returns the stored size of one row of pixels.
func (fi *ExtendedFileInfo) RowBytes() int {
	switch fi.FileType {
	case Bitmap:
		return (fi.Width + 7) / 8
	case Gray12Unsigned:
		n := fi.Width * 3 / 2
		if fi.Width&1 == 1 {
			n++
		}
		return n
	}
	return fi.Width * fi.BytesPerPixel()
}

// ImageSize returns the uncompressed size of the plane in bytes.
func (fi *ExtendedFileInfo) ImageSize() int64 {
	return int64(fi.RowBytes()) * int64(fi.Height)
}

// PlaneOffset returns the offset of plane n of a contiguous uncompressed
// stack, as written by ImageJ.
func (fi *ExtendedFileInfo) PlaneOffset(n int) int64 {
	return fi.Offset + int64(n)*(fi.ImageSize()+fi.GapBetweenImages)
}

func (fi *ExtendedFileInfo) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "name=%s, width=%d, height=%d, nImages=%d, type=%s",
		fi.FileName, fi.Width, fi.Height, fi.NImages, fi.FileType)
	fmt.Fprintf(&sb, ", offset=%d, compression=%s, strips=%d, samplesPerPixel=%d",
		fi.Offset, fi.Compression, len(fi.StripOffsets), fi.SamplesPerPixel)
	fmt.Fprintf(&sb, ", intelByteOrder=%t, whiteIsZero=%t", fi.IntelByteOrder, fi.WhiteIsZero)
	fmt.Fprintf(&sb, ", pixelWidth=%g, pixelHeight=%g, unit=%q", fi.PixelWidth, fi.PixelHeight, fi.Unit)
	if fi.LutSize > 0 {
		fmt.Fprintf(&sb, ", lutSize=%d", fi.LutSize)
	}
	return sb.String()
}
