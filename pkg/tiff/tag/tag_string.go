package tag

import (
	"encoding/json"
	"fmt"
)

var names = map[Tag]string{
	NewSubfileType:       "NewSubfileType",
	ImageWidth:           "ImageWidth",
	ImageLength:          "ImageLength",
	BitsPerSample:        "BitsPerSample",
	Compression:          "Compression",
	PhotoInterp:          "PhotoInterp",
	ImageDescription:     "ImageDescription",
	StripOffsets:         "StripOffsets",
	Orientation:          "Orientation",
	SamplesPerPixel:      "SamplesPerPixel",
	RowsPerStrip:         "RowsPerStrip",
	StripByteCount:       "StripByteCount",
	XResolution:          "XResolution",
	YResolution:          "YResolution",
	PlanarConfiguration:  "PlanarConfiguration",
	ResolutionUnit:       "ResolutionUnit",
	Software:             "Software",
	DateTime:             "DateTime",
	Artist:               "Artist",
	HostComputer:         "HostComputer",
	Predictor:            "Predictor",
	ColorMap:             "ColorMap",
	TileWidth:            "TileWidth",
	SampleFormat:         "SampleFormat",
	JPEGTables:           "JPEGTables",
	Metamorph1:           "Metamorph1",
	Metamorph2:           "Metamorph2",
	IPLab:                "IPLab",
	NIHImageHdr:          "NIHImageHeader",
	MetaDataByteCounts:   "MetaDataByteCounts",
	MetaData:             "MetaData",
	MicroManagerMetaData: "MicroManagerMetaData",
}

// Name returns the registered name, or an empty string.
func (t Tag) Name() string {
	return names[t]
}

// String returns the name when known, otherwise the number.
func (t Tag) String() string {
	if n, ok := names[t]; ok {
		return n
	}
	return fmt.Sprintf("Tag(%d)", uint16(t))
}

// MarshalJSON returns a JSON representation of the Tag
func (t Tag) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}
