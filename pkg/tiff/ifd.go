package tiff

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jpfielding/fasttiff.go/pkg/seekable"
	"github.com/jpfielding/fasttiff.go/pkg/tiff/tag"
)

// pixelDataCutoff is the last tag needed for strip geometry; in pixel data
// only mode, tags above it are skipped unless they change the pixel type.
const pixelDataCutoff = tag.StripByteCount

// TIFF sample formats
const (
	sampleUnsigned = 1
	sampleSigned   = 2
	sampleFloat    = 3
)

// entry is one 12 byte IFD record.
type entry struct {
	tag       tag.Tag
	fieldType tag.FieldType
	count     int64
	value     int32
	raw       []byte // the 4 value bytes
}

// lvalue is the value as an unsigned offset.
func (e entry) lvalue() int64 { return int64(uint32(e.value)) }

func (d *Decoder) parseEntry(b []byte) entry {
	e := entry{
		tag:       tag.Tag(d.order.Short(b[0], b[1])),
		fieldType: tag.FieldType(d.order.Short(b[2], b[3])),
		count:     int64(uint32(d.order.Int(b[4], b[5], b[6], b[7]))),
		raw:       b[8:12],
	}
	if e.fieldType == tag.Short && e.count == 1 {
		e.value = int32(d.order.Short(b[8], b[9]))
	} else {
		e.value = d.order.Int(b[8], b[9], b[10], b[11])
	}
	return e
}

// valueBytes returns the bytes of an entry's values, inline or out of line.
func (d *Decoder) valueBytes(e entry, size int) ([]byte, error) {
	n := e.count * int64(size)
	if n <= 4 {
		return e.raw[:n], nil
	}
	if n > maxValueBytes {
		return nil, fmt.Errorf("%w: %s value of %d bytes", ErrFormat, e.tag, n)
	}
	b := make([]byte, n)
	if err := d.readAt(e.lvalue(), b); err != nil {
		return nil, fmt.Errorf("reading %s: %w", e.tag, err)
	}
	return b, nil
}

// readIFDEntries reads the entry count and the whole entry table in one read.
// The stream is left at the next IFD offset.
func (d *Decoder) readIFDEntries(sc *scan) ([]byte, int, error) {
	buf, nEntries, err := d.readEntryTable()
	if err != nil {
		return nil, 0, err
	}
	sc.ifdCount++
	if sc.ifdCount%progressInterval == 0 {
		d.cfg.progress.Status(fmt.Sprintf("Opening IFDs: %d", sc.ifdCount))
	}
	return buf, nEntries, nil
}

func (d *Decoder) readEntryTable() ([]byte, int, error) {
	nEntries, err := d.getShort()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: reading IFD entry count: %v", ErrFormat, err)
	}
	if nEntries < 1 || nEntries > maxEntries {
		return nil, 0, fmt.Errorf("%w: invalid IFD entry count %d", ErrFormat, nEntries)
	}
	buf := make([]byte, nEntries*entrySize)
	if err := seekable.ReadFully(d.in, buf); err != nil {
		return nil, 0, fmt.Errorf("%w: reading %d IFD entries: %v", ErrFormat, nEntries, err)
	}
	return buf, nEntries, nil
}

// entryOrder returns the dispatch order of the entries and whether the table
// was already sorted by tag.
func (d *Decoder) entryOrder(buf []byte, n int) ([]int, bool) {
	order := make([]int, n)
	sorted := true
	prev := -1
	for i := range order {
		order[i] = i
		t := d.order.Short(buf[i*entrySize], buf[i*entrySize+1])
		if t < prev {
			sorted = false
		}
		prev = t
	}
	if !sorted && d.cfg.fullTagScan {
		sort.SliceStable(order, func(a, b int) bool {
			ta := d.order.Short(buf[order[a]*entrySize], buf[order[a]*entrySize+1])
			tb := d.order.Short(buf[order[b]*entrySize], buf[order[b]*entrySize+1])
			return ta < tb
		})
	}
	return order, sorted
}

// isPixelDataTag reports whether a tag above the cutoff still affects how
// pixels are read.
func isPixelDataTag(t tag.Tag) bool {
	switch t {
	case tag.PlanarConfiguration, tag.Predictor, tag.ColorMap, tag.TileWidth,
		tag.SampleFormat, tag.JPEGTables:
		return true
	}
	return false
}

// openIFD decodes the IFD at the current position. It returns nil when the
// IFD is a vendor trailer record rather than an image.
func (d *Decoder) openIFD(sc *scan) (*ExtendedFileInfo, error) {
	buf, nEntries, err := d.readIFDEntries(sc)
	if err != nil {
		return nil, err
	}
	fi := NewExtendedFileInfo()
	fi.FileName = d.name
	sc.photoInterp = 0

	order, sorted := d.entryOrder(buf, nEntries)
	if !sorted {
		fi.UnsortedTags = true
		d.log.Warn("IFD tags not in ascending order", "name", d.name, "ifd", sc.ifdCount, "reordered", d.cfg.fullTagScan)
	}
	skipNonEssential := sc.pixelDataOnly && sc.ifdCount > 1 && !d.cfg.fullTagScan

	for _, i := range order {
		e := d.parseEntry(buf[i*entrySize : (i+1)*entrySize])
		if d.cfg.debug && sc.ifdCount < debugIFDs {
			d.log.Debug("tiff tag", "ifd", sc.ifdCount, "tag", e.tag, "number", uint16(e.tag),
				"type", uint16(e.fieldType), "count", e.count, "value", e.value)
		}
		if skipNonEssential && e.tag > pixelDataCutoff && !isPixelDataTag(e.tag) {
			if e.tag.IsPrivateRange() {
				return nil, nil
			}
			continue
		}
		done, err := d.dispatch(sc, fi, e)
		if err != nil {
			return nil, err
		}
		if done {
			return nil, nil
		}
	}
	return fi, nil
}

// dispatch applies one entry to fi. It returns true when the IFD turns out
// not to describe an image.
func (d *Decoder) dispatch(sc *scan, fi *ExtendedFileInfo, e entry) (bool, error) {
	switch e.tag {
	case tag.ImageWidth:
		fi.Width = int(e.value)
		fi.IntelByteOrder = d.order.IsLittleEndian()
	case tag.ImageLength:
		fi.Height = int(e.value)
	case tag.StripOffsets:
		offsets, err := d.readOffsets(e)
		if err != nil {
			return false, err
		}
		fi.StripOffsets = offsets
		if len(offsets) > 0 {
			fi.Offset = offsets[0]
			if last := offsets[len(offsets)-1]; len(offsets) > 1 && last < offsets[0] {
				fi.Offset = last
			}
		}
	case tag.StripByteCount:
		lengths, err := d.readOffsets(e)
		if err != nil {
			return false, err
		}
		fi.StripLengths = lengths
	case tag.PhotoInterp:
		sc.photoInterp = int(e.value)
		fi.WhiteIsZero = e.value == 0
	case tag.BitsPerSample:
		return false, d.bitsPerSample(fi, e)
	case tag.SamplesPerPixel:
		fi.SamplesPerPixel = int(e.value)
		switch {
		case e.value == 3 && fi.FileType == Gray8:
			fi.FileType = RGB
		case e.value == 3 && fi.FileType == Gray16Unsigned:
			fi.FileType = RGB48
		case e.value == 4 && fi.FileType == Gray8:
			if sc.photoInterp == 5 {
				fi.FileType = CMYK
			} else {
				fi.FileType = ARGB
			}
		case e.value == 4 && fi.FileType == Gray16Unsigned:
			fi.FileType = RGB48
			if sc.photoInterp == 5 {
				fi.WhiteIsZero = true
			}
		}
	case tag.RowsPerStrip:
		fi.RowsPerStrip = int(e.value)
	case tag.XResolution:
		if scale, err := d.getRational(e); err != nil {
			return false, err
		} else if scale != 0 {
			fi.PixelWidth = 1 / scale
		}
	case tag.YResolution:
		if scale, err := d.getRational(e); err != nil {
			return false, err
		} else if scale != 0 {
			fi.PixelHeight = 1 / scale
		}
	case tag.ResolutionUnit:
		switch {
		case e.value == 1 && fi.Unit == "":
			fi.Unit = " "
		case e.value == 2:
			if fi.PixelWidth != 0 {
				fi.PixelWidth *= 2.54
				fi.PixelHeight *= 2.54
				fi.Unit = "cm"
			}
		case e.value == 3:
			fi.Unit = "cm"
		}
	case tag.PlanarConfiguration:
		switch {
		case e.value == 2 && fi.FileType == RGB48:
			fi.FileType = RGB48Planar
		case e.value == 2 && fi.FileType == RGB:
			fi.FileType = RGBPlanar
		case e.value != 2 && fi.SamplesPerPixel != 1 && fi.SamplesPerPixel != 3 && fi.SamplesPerPixel != 4:
			return false, fmt.Errorf("%w: SamplesPerPixel %d", ErrUnsupported, fi.SamplesPerPixel)
		}
	case tag.Compression:
		return false, d.compression(fi, e)
	case tag.Software, tag.DateTime, tag.HostComputer, tag.Artist:
		if sc.ifdCount == 1 {
			s, err := d.getString(e)
			if err != nil {
				return false, err
			}
			if s != "" {
				saveMetadata(sc, e.tag.Name(), s)
			}
		}
	case tag.Predictor:
		switch {
		case e.value == 2 && fi.FileType == RGB48 && (fi.Compression == LZW || fi.Compression == ZIP):
			return false, fmt.Errorf("%w: 48-bit images with horizontal differencing", ErrUnsupported)
		case e.value == 2 && fi.Compression == LZW:
			fi.Compression = LZWWithDifferencing
		case e.value == 2 && fi.Compression == ZIP:
			fi.Compression = ZIPWithDifferencing
		case e.value == 3:
			return false, fmt.Errorf("%w: floating point predictor", ErrUnsupported)
		}
	case tag.ColorMap:
		if e.count == 768 {
			return false, d.getColorMap(fi, e)
		}
	case tag.TileWidth:
		return false, fmt.Errorf("%w: tiled TIFFs", ErrUnsupported)
	case tag.SampleFormat:
		switch fi.FileType {
		case Gray32Int:
			if e.value == sampleFloat {
				fi.FileType = Gray32Float
			} else if e.value == sampleUnsigned {
				fi.FileType = Gray32Unsigned
			}
		case Gray16Unsigned:
			if e.value == sampleSigned {
				fi.FileType = Gray16Signed
			} else if e.value == sampleFloat {
				return false, fmt.Errorf("%w: 16-bit float TIFFs", ErrUnsupported)
			}
		case Gray64Float:
			if e.value == sampleUnsigned || e.value == sampleSigned {
				return false, fmt.Errorf("%w: 64-bit integer TIFFs", ErrUnsupported)
			}
		}
	case tag.JPEGTables:
		if fi.Compression == JPEG {
			return false, fmt.Errorf("%w: JPEG-compressed TIFFs with separate tables", ErrUnsupported)
		}
	case tag.ImageDescription:
		if sc.ifdCount == 1 {
			s, err := d.getString(e)
			if err != nil {
				return false, err
			}
			if s != "" {
				saveImageDescription(sc, fi, s)
			}
		}
	case tag.Orientation:
		// not written by ImageJ, so every IFD must be looked at
		fi.NImages = 0
	case tag.Metamorph1, tag.Metamorph2:
		lower := strings.ToLower(d.name)
		if strings.Contains(lower, ".stk") && fi.Compression == CompressionNone {
			if e.tag == tag.Metamorph2 {
				fi.NImages = int(e.count)
			} else {
				fi.NImages = 9999
			}
		}
	case tag.IPLab:
		fi.NImages = int(e.value)
	case tag.NIHImageHdr:
		if e.count == 256 {
			return false, d.decodeNIHImageHeader(fi, e.lvalue())
		}
	case tag.MetaDataByteCounts:
		b, err := d.valueBytes(e, 4)
		if err != nil {
			return false, err
		}
		sc.metaDataCounts = make([]int32, e.count)
		for c := range sc.metaDataCounts {
			sc.metaDataCounts[c] = d.order.Int(b[c*4], b[c*4+1], b[c*4+2], b[c*4+3])
		}
	case tag.MetaData:
		return false, d.getMetaData(sc, fi, e.lvalue())
	case tag.MicroManagerMetaData:
		if sc.mmRemaining != 0 {
			sc.mmRemaining--
			b, err := d.valueBytes(e, 1)
			if err != nil {
				return false, err
			}
			fi.ExtendedMetaData = strings.TrimRight(string(b), "\x00")
		}
	default:
		if e.tag.IsPrivateRange() && sc.ifdCount > 1 {
			return true, nil
		}
	}
	return false, nil
}

func (d *Decoder) bitsPerSample(fi *ExtendedFileInfo, e entry) error {
	if e.count == 1 {
		switch e.value {
		case 8:
			fi.FileType = Gray8
		case 16:
			fi.FileType = Gray16Unsigned
		case 32:
			fi.FileType = Gray32Int
		case 12:
			fi.FileType = Gray12Unsigned
		case 1:
			fi.FileType = Bitmap
		case 24:
			fi.FileType = Gray24Unsigned
		case 64:
			fi.FileType = Gray64Float
		default:
			return fmt.Errorf("%w: BitsPerSample %d", ErrUnsupported, e.value)
		}
		return nil
	}
	if e.count > 1 {
		b, err := d.valueBytes(e, 2)
		if err != nil {
			return err
		}
		switch depth := d.order.Short(b[0], b[1]); depth {
		case 8:
			fi.FileType = Gray8
		case 16:
			fi.FileType = Gray16Unsigned
		default:
			return fmt.Errorf("%w: only 8 and 16 bit/channel images can be read (%d)", ErrUnsupported, depth)
		}
	}
	return nil
}

func (d *Decoder) compression(fi *ExtendedFileInfo, e entry) error {
	switch v := e.value; {
	case v == 0 || v == 1:
		fi.Compression = CompressionNone
	case v == 5:
		fi.Compression = LZW
		if fi.FileType == Gray12Unsigned {
			return fmt.Errorf("%w: 12-bit LZW-compressed TIFFs", ErrUnsupported)
		}
	case v == 32773:
		fi.Compression = PackBits
	case v == 32946 || v == 8:
		fi.Compression = ZIP
	case v == 7:
		fi.Compression = JPEG
	case v == 50000:
		fi.Compression = ZSTD
	case v == 6 && fi.Width < 500:
		// old style JPEG thumbnails written by Spot cameras; tolerated so the
		// rest of the file can be scanned. ImageJ keys this on 7, which is
		// decoded as JPEG here.
		fi.Compression = CompressionUnknown
	default:
		fi.Compression = CompressionUnknown
		return fmt.Errorf("%w: compression %d", ErrUnsupported, v)
	}
	return nil
}

// readOffsets decodes a SHORT or LONG array as unsigned values.
func (d *Decoder) readOffsets(e entry) ([]int64, error) {
	if e.count == 1 {
		return []int64{e.lvalue()}, nil
	}
	size := 4
	if e.fieldType == tag.Short {
		size = 2
	}
	b, err := d.valueBytes(e, size)
	if err != nil {
		return nil, err
	}
	out := make([]int64, e.count)
	for c := range out {
		if size == 2 {
			out[c] = int64(d.order.Short(b[c*2], b[c*2+1]))
		} else {
			out[c] = int64(uint32(d.order.Int(b[c*4], b[c*4+1], b[c*4+2], b[c*4+3])))
		}
	}
	return out, nil
}

func (d *Decoder) getRational(e entry) (float64, error) {
	var b [8]byte
	if err := d.readAt(e.lvalue(), b[:]); err != nil {
		return 0, fmt.Errorf("reading %s: %w", e.tag, err)
	}
	num := uint32(d.order.Int(b[0], b[1], b[2], b[3]))
	den := uint32(d.order.Int(b[4], b[5], b[6], b[7]))
	if den == 0 {
		return 0, nil
	}
	return float64(num) / float64(den), nil
}

func (d *Decoder) getColorMap(fi *ExtendedFileInfo, e entry) error {
	table := make([]byte, 768*2)
	if err := d.readAt(e.lvalue(), table); err != nil {
		return fmt.Errorf("reading color map: %w", err)
	}
	fi.LutSize = 256
	fi.Reds = make([]byte, 256)
	fi.Greens = make([]byte, 256)
	fi.Blues = make([]byte, 256)
	// keep the high byte of each 16-bit entry
	j := 0
	if d.order.IsLittleEndian() {
		j++
	}
	sum := 0
	for i := 0; i < 256; i++ {
		fi.Reds[i] = table[j]
		fi.Greens[i] = table[512+j]
		fi.Blues[i] = table[1024+j]
		sum += int(fi.Reds[i]) + int(fi.Greens[i]) + int(fi.Blues[i])
		j += 2
	}
	if sum != 0 && fi.FileType == Gray8 {
		fi.FileType = Color8
	}
	return nil
}
