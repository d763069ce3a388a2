package tiff

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/jpfielding/fasttiff.go/pkg/seekable"
	"github.com/jpfielding/fasttiff.go/pkg/tiff/tag"
)

// ImageJ metadata block types
const (
	metaMagic      = 0x494a494a // "IJIJ"
	metaInfo       = 0x696e666f // "info"
	metaLabels     = 0x6c61626c // "labl"
	metaRanges     = 0x72616e67 // "rang"
	metaLuts       = 0x6c757473 // "luts"
	metaPlot       = 0x706c6f74 // "plot"
	metaRoi        = 0x726f6920 // "roi "
	metaOverlay    = 0x6f766572 // "over"
	metaProperties = 0x70726f70 // "prop"
	metaMaxType    = 0xffffff
)

// Micro-Manager header magic numbers
const (
	mmIndexMapHeader = 54773648
	mmIndexMapMagic  = 3453623
	mmSummaryMagic   = 2355492
	mmSummaryOffset  = 32
)

// getString reads an ASCII value as ISO-8859-1, dropping the trailing NUL.
// Values of three characters or fewer are ignored.
func (d *Decoder) getString(e entry) (string, error) {
	n := e.count - 1
	if n <= 3 {
		return "", nil
	}
	if n > maxValueBytes {
		return "", fmt.Errorf("%w: %s value of %d bytes", ErrFormat, e.tag, n)
	}
	b := make([]byte, n)
	if err := d.readAt(e.lvalue(), b); err != nil {
		return "", fmt.Errorf("reading %s: %w", e.tag, err)
	}
	return latin1(b), nil
}

func latin1(b []byte) string {
	s, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(s)
}

func saveMetadata(sc *scan, name, value string) {
	sc.tiffMetadata.WriteString(name)
	sc.tiffMetadata.WriteString(": ")
	sc.tiffMetadata.WriteString(value)
	sc.tiffMetadata.WriteByte('\n')
}

// saveImageDescription keeps the description and, for ImageJ stacks of
// uncompressed planes, takes the plane count from its "images=" line.
func saveImageDescription(sc *scan, fi *ExtendedFileInfo, id string) {
	byImageJ := strings.HasPrefix(id, "ImageJ")
	if !byImageJ {
		saveMetadata(sc, tag.ImageDescription.Name(), id)
	}
	if len(id) < 7 {
		return
	}
	fi.Description = id
	i := strings.Index(id, "images=")
	if i <= 0 || !byImageJ || id[7] == '\n' {
		return
	}
	j := strings.IndexByte(id[i:], '\n')
	if j <= 0 {
		return
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(id[i+7:i+j]), 64)
	if err != nil {
		return
	}
	if int(n) > 1 && fi.Compression == CompressionNone {
		fi.NImages = int(n)
	}
}

// getMetaData decodes the ImageJ metadata blocks at loc. The block sizes
// come from the MetaDataByteCounts tag, which ImageJ writes first. An
// unrecognised header leaves fi untouched.
func (d *Decoder) getMetaData(sc *scan, fi *ExtendedFileInfo, loc int64) error {
	counts := sc.metaDataCounts
	if len(counts) == 0 {
		return nil
	}
	hdrSize := counts[0]
	if hdrSize < 12 || hdrSize > 804 {
		return nil
	}
	save := d.in.FilePointer()
	defer d.in.SeekTo(save)
	if err := d.in.SeekTo(loc); err != nil {
		return err
	}
	magic, err := d.getInt()
	if err != nil {
		return fmt.Errorf("reading metadata header: %w", err)
	}
	if magic != metaMagic {
		return nil
	}

	nTypes := int(hdrSize-4) / 8
	types := make([]int32, nTypes)
	typeCounts := make([]int, nTypes)
	total := 0
	for i := range types {
		typ, err := d.getInt()
		if err != nil {
			return fmt.Errorf("reading metadata header: %w", err)
		}
		c, err := d.getInt()
		if err != nil {
			return fmt.Errorf("reading metadata header: %w", err)
		}
		if c < 0 {
			return fmt.Errorf("%w: metadata type %d has %d blocks", ErrFormat, i, c)
		}
		types[i], typeCounts[i] = typ, int(c)
		total += int(c)
		if total >= len(counts) {
			return fmt.Errorf("%w: %d metadata blocks exceed %d byte counts", ErrFormat, total, len(counts)-1)
		}
	}
	for j, n := range counts[1:] {
		if n < 0 {
			return fmt.Errorf("%w: metadata block %d has %d bytes", ErrFormat, j, n)
		}
	}
	extra := 0
	for i, typ := range types {
		if typ < metaMaxType {
			extra += typeCounts[i]
		}
	}

	start := 1
	for i, typ := range types {
		first, last := start, start+typeCounts[i]-1
		start += typeCounts[i]
		if typeCounts[i] == 0 {
			continue
		}
		switch typ {
		case metaInfo:
			if fi.Info, err = d.utf16Block(counts[first]); err != nil {
				return err
			}
		case metaLabels:
			fi.SliceLabels = make([]string, 0, typeCounts[i])
			for j := first; j <= last; j++ {
				s, err := d.utf16Block(counts[j])
				if err != nil {
					return err
				}
				fi.SliceLabels = append(fi.SliceLabels, s)
			}
		case metaRanges:
			b, err := d.byteBlock(counts[first])
			if err != nil {
				return fmt.Errorf("reading display ranges: %w", err)
			}
			fi.DisplayRanges = make([]float64, len(b)/8)
			for j := range fi.DisplayRanges {
				fi.DisplayRanges[j] = math.Float64frombits(uint64(d.order.Long(b[j*8:])))
			}
		case metaLuts:
			if fi.ChannelLuts, err = d.byteBlocks(counts[first : last+1]); err != nil {
				return err
			}
		case metaPlot:
			if fi.Plot, err = d.byteBlock(counts[first]); err != nil {
				return err
			}
		case metaRoi:
			if fi.Roi, err = d.byteBlock(counts[first]); err != nil {
				return err
			}
		case metaOverlay:
			if fi.Overlay, err = d.byteBlocks(counts[first : last+1]); err != nil {
				return err
			}
		case metaProperties:
			fi.Properties = make([]string, 0, typeCounts[i])
			for j := first; j <= last; j++ {
				s, err := d.utf16Block(counts[j])
				if err != nil {
					return err
				}
				fi.Properties = append(fi.Properties, s)
			}
		default:
			if typ < metaMaxType {
				blocks, err := d.byteBlocks(counts[first : last+1])
				if err != nil {
					return err
				}
				if fi.MetaData == nil {
					fi.MetaData = make([][]byte, 0, extra)
					fi.MetaDataTypes = make([]int32, 0, extra)
				}
				for _, b := range blocks {
					fi.MetaData = append(fi.MetaData, b)
					fi.MetaDataTypes = append(fi.MetaDataTypes, typ)
				}
			} else {
				for j := first; j <= last; j++ {
					if _, err := d.in.Skip(int64(counts[j])); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

func (d *Decoder) byteBlock(n int32) ([]byte, error) {
	if n < 0 || int64(n) > maxValueBytes {
		return nil, fmt.Errorf("%w: metadata block of %d bytes", ErrFormat, n)
	}
	b := make([]byte, n)
	if err := seekable.ReadFully(d.in, b); err != nil {
		return nil, fmt.Errorf("reading metadata block: %w", err)
	}
	return b, nil
}

func (d *Decoder) byteBlocks(counts []int32) ([][]byte, error) {
	out := make([][]byte, len(counts))
	for i, n := range counts {
		b, err := d.byteBlock(n)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

// utf16Block reads n bytes of UTF-16 text in the file's byte order.
func (d *Decoder) utf16Block(n int32) (string, error) {
	b, err := d.byteBlock(n)
	if err != nil || len(b) == 0 {
		return "", err
	}
	s, err := d.order.utf16().NewDecoder().Bytes(b[:len(b)&^1])
	if err != nil {
		return "", fmt.Errorf("%w: decoding UTF-16 metadata: %v", ErrFormat, err)
	}
	return string(s), nil
}

var nihUnits = map[int16]string{
	5:  "nanometer",
	6:  "micrometer",
	7:  "mm",
	8:  "cm",
	9:  "meter",
	10: "km",
	11: "inch",
	12: "ft",
	13: "mi",
}

// NIH Image fit types mapped to ImageJ calibration functions
var nihFitFunctions = map[int]int{
	0: 0,  // straight line
	1: 1,  // poly2
	2: 2,  // poly3
	3: 3,  // poly4
	5: 4,  // exponential
	6: 5,  // power
	7: 6,  // log
	8: 10, // rodbard2
}

const uncalibratedOD = 21

// decodeNIHImageHeader reads the big-endian NIH Image header at offset.
func (d *Decoder) decodeNIHImageHeader(fi *ExtendedFileInfo, offset int64) error {
	save := d.in.FilePointer()
	defer d.in.SeekTo(save)
	if err := d.nihHeader(fi, offset); err != nil {
		return fmt.Errorf("%w: NIH Image header: %v", ErrFormat, err)
	}
	return nil
}

func (d *Decoder) nihHeader(fi *ExtendedFileInfo, offset int64) error {
	in := d.in
	if err := in.SeekTo(offset + 12); err != nil {
		return err
	}
	version, err := seekable.ReadShort(in)
	if err != nil {
		return err
	}

	if err := in.SeekTo(offset + 160); err != nil {
		return err
	}
	scale, err := seekable.ReadDouble(in)
	if err != nil {
		return err
	}
	if version > 106 && scale != 0 {
		fi.PixelWidth = 1 / scale
		fi.PixelHeight = fi.PixelWidth
	}

	if err := in.SeekTo(offset + 172); err != nil {
		return err
	}
	units, err := seekable.ReadShort(in)
	if err != nil {
		return err
	}
	if version <= 153 {
		units += 5
	}
	if u, ok := nihUnits[units]; ok {
		fi.Unit = u
	}

	// density calibration
	if err := in.SeekTo(offset + 182); err != nil {
		return err
	}
	fitType, err := in.ReadByte()
	if err != nil {
		return err
	}
	if _, err := in.ReadByte(); err != nil {
		return err
	}
	nCoefficients, err := seekable.ReadShort(in)
	if err != nil {
		return err
	}
	if fitType == 11 {
		fi.CalibrationFunction = uncalibratedOD
		fi.ValueUnit = "U. OD"
	} else if fitType <= 8 && nCoefficients >= 1 && nCoefficients <= 5 {
		fi.CalibrationFunction = nihFitFunctions[int(fitType)]
		fi.Coefficients = make([]float64, nCoefficients)
		for i := range fi.Coefficients {
			if fi.Coefficients[i], err = seekable.ReadDouble(in); err != nil {
				return err
			}
		}
		if err := in.SeekTo(offset + 234); err != nil {
			return err
		}
		size, err := in.ReadByte()
		if err != nil {
			return err
		}
		if size >= 1 && size <= 11 {
			b := make([]byte, size)
			if err := seekable.ReadFully(in, b); err != nil {
				return err
			}
			fi.ValueUnit = latin1(b)
		} else {
			fi.ValueUnit = " "
		}
	}

	if err := in.SeekTo(offset + 260); err != nil {
		return err
	}
	nImages, err := seekable.ReadShort(in)
	if err != nil {
		return err
	}
	if nImages >= 2 && (fi.FileType == Gray8 || fi.FileType == Color8) {
		fi.NImages = int(nImages)
		spacing, err := seekable.ReadFloat(in)
		if err != nil {
			return err
		}
		fi.PixelDepth = float64(spacing)
		if _, err := seekable.ReadShort(in); err != nil { // current slice
			return err
		}
		interval, err := seekable.ReadFloat(in)
		if err != nil {
			return err
		}
		fi.FrameInterval = float64(interval)
	}

	if err := in.SeekTo(offset + 272); err != nil {
		return err
	}
	aspect, err := seekable.ReadFloat(in)
	if err != nil {
		return err
	}
	if version > 140 && aspect != 0 {
		fi.PixelHeight = fi.PixelWidth / float64(aspect)
	}
	return nil
}

// GetSummaryMetadata returns the Micro-Manager summary JSON stored at
// offset 32, or an empty string when the file has none.
func (d *Decoder) GetSummaryMetadata() (string, error) {
	save := d.in.FilePointer()
	defer d.in.SeekTo(save)
	if err := d.in.SeekTo(mmSummaryOffset); err != nil {
		return "", err
	}
	magic, err := d.getInt()
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if magic != mmSummaryMagic {
		return "", nil
	}
	n, err := d.getUnsignedInt()
	if err != nil {
		return "", nil
	}
	if n > maxValueBytes {
		d.log.Warn("summary metadata length out of range", "name", d.name, "length", n)
		return "", nil
	}
	b := make([]byte, n)
	if err := seekable.ReadFully(d.in, b); err != nil {
		d.log.Warn("summary metadata truncated", "name", d.name, "length", n)
		return "", nil
	}
	return string(b), nil
}
