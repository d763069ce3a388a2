// Package tag defines the TIFF tags and field types understood by the decoder
package tag

// Tag is a TIFF IFD entry tag number
type Tag uint16

// Baseline TIFF 6.0 tags
const (
	NewSubfileType      Tag = 254
	ImageWidth          Tag = 256
	ImageLength         Tag = 257
	BitsPerSample       Tag = 258
	Compression         Tag = 259
	PhotoInterp         Tag = 262
	ImageDescription    Tag = 270
	StripOffsets        Tag = 273
	Orientation         Tag = 274
	SamplesPerPixel     Tag = 277
	RowsPerStrip        Tag = 278
	StripByteCount      Tag = 279
	XResolution         Tag = 282
	YResolution         Tag = 283
	PlanarConfiguration Tag = 284
	ResolutionUnit      Tag = 296
	Software            Tag = 305
	DateTime            Tag = 306
	Artist              Tag = 315
	HostComputer        Tag = 316
	Predictor           Tag = 317
	ColorMap            Tag = 320
	TileWidth           Tag = 322
	SampleFormat        Tag = 339
	JPEGTables          Tag = 347
)

// Vendor private tags
const (
	Metamorph1           Tag = 33628
	Metamorph2           Tag = 33629
	IPLab                Tag = 34122
	NIHImageHdr          Tag = 43314
	MetaDataByteCounts   Tag = 50838 // ImageJ
	MetaData             Tag = 50839 // ImageJ
	MicroManagerMetaData Tag = 51123
)

// IsPrivateRange reports whether t lies in the range used by vendor trailer
// records. Such a tag on any IFD after the first marks it as not an image.
func (t Tag) IsPrivateRange() bool {
	return t > 10000 && t < 32768
}

// FieldType is the TIFF entry value type
type FieldType uint16

const (
	Byte      FieldType = 1
	ASCII     FieldType = 2
	Short     FieldType = 3
	Long      FieldType = 4
	Rational  FieldType = 5
	SByte     FieldType = 6
	Undefined FieldType = 7
	SShort    FieldType = 8
	SLong     FieldType = 9
	SRational FieldType = 10
	Float     FieldType = 11
	Double    FieldType = 12
)

// Size returns the byte size of one value, or 0 for unknown types.
func (f FieldType) Size() int {
	switch f {
	case Byte, ASCII, SByte, Undefined:
		return 1
	case Short, SShort:
		return 2
	case Long, SLong, Float:
		return 4
	case Rational, SRational, Double:
		return 8
	}
	return 0
}
