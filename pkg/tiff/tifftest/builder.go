// Package tifftest writes synthetic TIFF files for tests.
package tifftest

import (
	"encoding/binary"
	"sort"

	"github.com/jpfielding/fasttiff.go/pkg/tiff/tag"
)

// Micro-Manager magic numbers
const (
	IndexMapHeader = 54773648
	IndexMapMagic  = 3453623
	SummaryMagic   = 2355492
)

// Entry is one IFD entry with its values already encoded.
type Entry struct {
	Tag   tag.Tag
	Type  tag.FieldType
	Count int
	Data  []byte
}

// IFD collects the entries and strips of one image.
type IFD struct {
	order    binary.ByteOrder
	entries  []Entry
	strips   [][]byte
	unsorted bool
}

// Builder lays out a TIFF: the header, then each IFD with its out of line
// values and strips, then the optional index map. Nothing is padded, so the
// size of every IFD is exactly its entries plus its values.
type Builder struct {
	Order binary.ByteOrder
	// DataFirst writes each image's strips before its IFD.
	DataFirst bool
	// Summary is written as Micro-Manager summary metadata at offset 32.
	Summary string
	// Index holds (channel, slice, frame, position) per IFD, written as a
	// Micro-Manager index map.
	Index [][4]int32

	ifds []*IFD
}

func New(order binary.ByteOrder) *Builder {
	return &Builder{Order: order}
}

// AddIFD appends an empty IFD to the chain.
func (b *Builder) AddIFD() *IFD {
	ifd := &IFD{order: b.Order}
	b.ifds = append(b.ifds, ifd)
	return ifd
}

// Image adds the tags of a single strip, single sample image.
func (ifd *IFD) Image(width, height, bitsPerSample int, pixels []byte) *IFD {
	return ifd.
		Long(tag.ImageWidth, uint32(width)).
		Long(tag.ImageLength, uint32(height)).
		Short(tag.BitsPerSample, uint16(bitsPerSample)).
		Long(tag.RowsPerStrip, uint32(height)).
		Strips(pixels)
}

func (ifd *IFD) Short(t tag.Tag, v ...uint16) *IFD {
	data := make([]byte, 2*len(v))
	for i, x := range v {
		ifd.order.PutUint16(data[i*2:], x)
	}
	return ifd.Raw(t, tag.Short, len(v), data)
}

func (ifd *IFD) Long(t tag.Tag, v ...uint32) *IFD {
	data := make([]byte, 4*len(v))
	for i, x := range v {
		ifd.order.PutUint32(data[i*4:], x)
	}
	return ifd.Raw(t, tag.Long, len(v), data)
}

// ASCII adds a NUL terminated string.
func (ifd *IFD) ASCII(t tag.Tag, s string) *IFD {
	data := append([]byte(s), 0)
	return ifd.Raw(t, tag.ASCII, len(data), data)
}

func (ifd *IFD) Rational(t tag.Tag, num, den uint32) *IFD {
	data := make([]byte, 8)
	ifd.order.PutUint32(data, num)
	ifd.order.PutUint32(data[4:], den)
	return ifd.Raw(t, tag.Rational, 1, data)
}

// Raw adds an entry with pre-encoded values.
func (ifd *IFD) Raw(t tag.Tag, typ tag.FieldType, count int, data []byte) *IFD {
	ifd.entries = append(ifd.entries, Entry{Tag: t, Type: typ, Count: count, Data: data})
	return ifd
}

// Strips sets the strip data; StripOffsets and StripByteCount are added when
// the file is laid out.
func (ifd *IFD) Strips(strips ...[]byte) *IFD {
	ifd.strips = strips
	return ifd
}

// Unsorted keeps the entries in insertion order.
func (ifd *IFD) Unsorted() *IFD {
	ifd.unsorted = true
	return ifd
}

func (ifd *IFD) finalEntries() []Entry {
	entries := append([]Entry(nil), ifd.entries...)
	if len(ifd.strips) > 0 {
		n := len(ifd.strips)
		entries = append(entries,
			Entry{Tag: tag.StripOffsets, Type: tag.Long, Count: n, Data: make([]byte, 4*n)},
			Entry{Tag: tag.StripByteCount, Type: tag.Long, Count: n, Data: make([]byte, 4*n)},
		)
	}
	if !ifd.unsorted {
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].Tag < entries[j].Tag })
	}
	return entries
}

type placement struct {
	entries []Entry
	at      int64 // IFD
	values  int64 // first out of line value
	strips  int64 // first strip
}

// Bytes lays out and encodes the file.
func (b *Builder) Bytes() []byte {
	pos := int64(8)
	mm := b.Summary != "" || b.Index != nil
	if mm {
		pos = 40 + int64(len(b.Summary))
	}

	places := make([]placement, len(b.ifds))
	for i, ifd := range b.ifds {
		p := placement{entries: ifd.finalEntries()}
		size := int64(2 + 12*len(p.entries) + 4)
		var values, strips int64
		for _, e := range p.entries {
			if len(e.Data) > 4 {
				values += int64(len(e.Data))
			}
		}
		for _, s := range ifd.strips {
			strips += int64(len(s))
		}
		if b.DataFirst {
			p.strips = pos
			p.at = pos + strips
			p.values = p.at + size
		} else {
			p.at = pos
			p.values = pos + size
			p.strips = p.values + values
		}
		pos += size + values + strips
		places[i] = p
	}
	indexAt := pos
	if b.Index != nil {
		pos += 8 + 20*int64(len(b.Index))
	}

	buf := make([]byte, pos)
	o := b.Order
	if o == binary.LittleEndian {
		copy(buf, "II")
	} else {
		copy(buf, "MM")
	}
	o.PutUint16(buf[2:], 42)
	if len(places) > 0 {
		o.PutUint32(buf[4:], uint32(places[0].at))
	}
	if mm {
		if b.Index != nil {
			o.PutUint32(buf[8:], IndexMapHeader)
			o.PutUint32(buf[12:], uint32(indexAt))
		}
		o.PutUint32(buf[32:], SummaryMagic)
		o.PutUint32(buf[36:], uint32(len(b.Summary)))
		copy(buf[40:], b.Summary)
	}

	for i, p := range places {
		ifd := b.ifds[i]
		off := p.strips
		for j, s := range ifd.strips {
			copy(buf[off:], s)
			for _, e := range p.entries {
				switch e.Tag {
				case tag.StripOffsets:
					o.PutUint32(e.Data[j*4:], uint32(off))
				case tag.StripByteCount:
					o.PutUint32(e.Data[j*4:], uint32(len(s)))
				}
			}
			off += int64(len(s))
		}

		w := p.at
		o.PutUint16(buf[w:], uint16(len(p.entries)))
		w += 2
		values := p.values
		for _, e := range p.entries {
			o.PutUint16(buf[w:], uint16(e.Tag))
			o.PutUint16(buf[w+2:], uint16(e.Type))
			o.PutUint32(buf[w+4:], uint32(e.Count))
			if len(e.Data) <= 4 {
				copy(buf[w+8:w+12], e.Data)
			} else {
				o.PutUint32(buf[w+8:], uint32(values))
				copy(buf[values:], e.Data)
				values += int64(len(e.Data))
			}
			w += 12
		}
		if i+1 < len(places) {
			o.PutUint32(buf[w:], uint32(places[i+1].at))
		}
	}

	if b.Index != nil {
		o.PutUint32(buf[indexAt:], IndexMapMagic)
		o.PutUint32(buf[indexAt+4:], uint32(len(b.Index)))
		w := indexAt + 8
		for i, c := range b.Index {
			for _, v := range c {
				o.PutUint32(buf[w:], uint32(v))
				w += 4
			}
			if i < len(places) {
				o.PutUint32(buf[w:], uint32(places[i].at))
			}
			w += 4
		}
	}
	return buf
}
