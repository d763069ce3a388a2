// Package tiff decodes TIFF image file directories into ExtendedFileInfo
// records, including the ImageJ, NIH Image and Micro-Manager extensions.
package tiff

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/jpfielding/fasttiff.go/pkg/seekable"
)

const (
	headerSize = 8
	entrySize  = 12
	maxEntries = 1000
	// maxValueBytes bounds a single out-of-line tag value.
	maxValueBytes = 1 << 28
)

// Decoder reads the TIFF structure of one stream. It is not safe for
// concurrent use; decoders sharing a stream must be serialised by the caller.
type Decoder struct {
	in    seekable.Stream
	name  string
	order ByteOrder
	cfg   config
	log   *slog.Logger
}

// Create sniffs the byte order marker and magic number at the start of in
// and returns a decoder for it. On failure the stream is closed.
func Create(in seekable.Stream, name string, opts ...Option) (*Decoder, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	log := cfg.logger
	if log == nil {
		log = slog.Default()
	}

	var hdr [4]byte
	if err := in.SeekTo(0); err != nil {
		in.Close()
		return nil, err
	}
	if err := seekable.ReadFully(in, hdr[:]); err != nil {
		in.Close()
		return nil, fmt.Errorf("%w: reading header: %v", ErrFormat, err)
	}

	var order ByteOrder
	switch {
	case hdr[0] == 'I' && hdr[1] == 'I':
		order = LittleEndian
	case hdr[0] == 'M' && hdr[1] == 'M':
		order = BigEndian
	default:
		in.Close()
		return nil, fmt.Errorf("%w: invalid byte order marker %q", ErrFormat, hdr[:2])
	}
	if magic := order.Short(hdr[2], hdr[3]); magic != 42 {
		in.Close()
		return nil, fmt.Errorf("%w: invalid magic number %d", ErrFormat, magic)
	}

	return &Decoder{
		in:    in,
		name:  name,
		order: order,
		cfg:   cfg,
		log:   log,
	}, nil
}

// ByteOrder returns the byte order declared by the header.
func (d *Decoder) ByteOrder() ByteOrder { return d.order }

// IsLittleEndian reports whether the file is "II".
func (d *Decoder) IsLittleEndian() bool { return d.order.IsLittleEndian() }

// Close closes the underlying stream.
func (d *Decoder) Close() error { return d.in.Close() }

// fail closes the stream; the decoder cannot be reused after a decode failure.
func (d *Decoder) fail(err error) error {
	d.in.Close()
	return err
}

func (d *Decoder) getInt() (int32, error) {
	var b [4]byte
	if err := seekable.ReadFully(d.in, b[:]); err != nil {
		return 0, err
	}
	return d.order.Int(b[0], b[1], b[2], b[3]), nil
}

func (d *Decoder) getUnsignedInt() (int64, error) {
	v, err := d.getInt()
	return int64(uint32(v)), err
}

func (d *Decoder) getShort() (int, error) {
	var b [2]byte
	if err := seekable.ReadFully(d.in, b[:]); err != nil {
		return 0, err
	}
	return d.order.Short(b[0], b[1]), nil
}

// readAt reads len(b) bytes at offset and restores the stream position.
func (d *Decoder) readAt(offset int64, b []byte) error {
	save := d.in.FilePointer()
	if err := d.in.SeekTo(offset); err != nil {
		return err
	}
	if err := seekable.ReadFully(d.in, b); err != nil {
		return err
	}
	return d.in.SeekTo(save)
}

// openImageFileHeader returns the offset of the first IFD.
func (d *Decoder) openImageFileHeader() (int64, error) {
	if err := d.in.SeekTo(4); err != nil {
		return 0, err
	}
	return d.getUnsignedInt()
}

// scan holds the state of one pass over an IFD chain. Each public call gets
// its own, so no scratch state outlives the call.
type scan struct {
	ifdCount       int
	photoInterp    int
	metaDataCounts []int32
	tiffMetadata   strings.Builder
	mmRemaining    int
	pixelDataOnly  bool
}

func (d *Decoder) newScan(pixelDataOnly bool) *scan {
	return &scan{mmRemaining: d.cfg.mmLimit, pixelDataOnly: pixelDataOnly}
}

// GetTiffInfo decodes the IFD chain. The scan stops after the first IFD of
// an ImageJ or NIH Image stack since the remaining planes share its layout.
// With pixelDataOnly, IFDs after the first skip tags not needed to read pixels.
func (d *Decoder) GetTiffInfo(pixelDataOnly bool) ([]*ExtendedFileInfo, error) {
	ifdOffset, err := d.openImageFileHeader()
	if err != nil {
		return nil, d.fail(fmt.Errorf("%w: reading first IFD offset: %v", ErrFormat, err))
	}
	if ifdOffset < headerSize {
		return nil, d.fail(fmt.Errorf("%w: invalid first IFD offset %d", ErrFormat, ifdOffset))
	}

	sc := d.newScan(pixelDataOnly)
	seen := map[int64]bool{}
	var list []*ExtendedFileInfo
	for ifdOffset > 0 {
		if seen[ifdOffset] {
			d.log.Warn("IFD chain loops", "offset", ifdOffset, "ifds", len(list))
			break
		}
		seen[ifdOffset] = true
		if err := d.in.SeekTo(ifdOffset); err != nil {
			return nil, d.fail(err)
		}
		fi, err := d.openIFD(sc)
		if err != nil {
			return nil, d.fail(err)
		}
		if fi == nil {
			break
		}
		list = append(list, fi)
		if ifdOffset, err = d.getUnsignedInt(); err != nil {
			return nil, d.fail(fmt.Errorf("%w: reading next IFD offset: %v", ErrFormat, err))
		}
		if fi.NImages > 1 {
			break
		}
	}
	if len(list) == 0 {
		return nil, d.fail(fmt.Errorf("%w: no image file directories", ErrFormat))
	}

	first := list[0]
	if first.Info == "" && sc.tiffMetadata.Len() > 0 {
		first.Info = sc.tiffMetadata.String()
	}
	summary, err := d.GetSummaryMetadata()
	if err != nil {
		return nil, d.fail(err)
	}
	first.SummaryMetaData = summary
	return list, nil
}

// GetTiffInfoAt decodes the single IFD addressed by entry i of an index map.
// Entry 0 is treated as the first IFD of the file.
func (d *Decoder) GetTiffInfoAt(im *IndexMap, i int, pixelDataOnly bool) (*ExtendedFileInfo, error) {
	if i < 0 || i >= im.Size() {
		return nil, fmt.Errorf("index map entry %d out of range [0,%d)", i, im.Size())
	}
	sc := d.newScan(pixelDataOnly)
	sc.ifdCount = i
	if err := d.in.SeekTo(im.Offset(i)); err != nil {
		return nil, d.fail(err)
	}
	fi, err := d.openIFD(sc)
	if err != nil {
		return nil, d.fail(err)
	}
	if fi == nil {
		return nil, d.fail(fmt.Errorf("%w: index map entry %d does not address an image IFD", ErrFormat, i))
	}
	return fi, nil
}
