package tiff

import (
	"fmt"
	"sync"

	"github.com/jpfielding/fasttiff.go/pkg/seekable"
)

// index map entry layout
const (
	imChannel = iota
	imSlice
	imFrame
	imPosition
	imOffset
	imEntryInts
)

// Range is the inclusive span of one index map dimension.
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Limits are the per dimension spans of an index map.
type Limits struct {
	Channel  Range `json:"channel"`
	Slice    Range `json:"slice"`
	Frame    Range `json:"frame"`
	Position Range `json:"position"`
}

// IndexMap is the Micro-Manager lookup table of (channel, slice, frame,
// position) to IFD offset. It is read only once built.
type IndexMap struct {
	entries []int32

	once   sync.Once
	limits Limits
}

// NewIndexMap wraps a flat table of 5 ints per entry.
func NewIndexMap(entries []int32) (*IndexMap, error) {
	if len(entries)%imEntryInts != 0 {
		return nil, fmt.Errorf("%w: index map length %d is not a multiple of %d", ErrFormat, len(entries), imEntryInts)
	}
	return &IndexMap{entries: entries}, nil
}

// Size is the number of entries.
func (m *IndexMap) Size() int { return len(m.entries) / imEntryInts }

func (m *IndexMap) ChannelIndex(i int) int  { return int(m.entries[i*imEntryInts+imChannel]) }
func (m *IndexMap) SliceIndex(i int) int    { return int(m.entries[i*imEntryInts+imSlice]) }
func (m *IndexMap) FrameIndex(i int) int    { return int(m.entries[i*imEntryInts+imFrame]) }
func (m *IndexMap) PositionIndex(i int) int { return int(m.entries[i*imEntryInts+imPosition]) }

// Offset is the file offset of the IFD for entry i.
func (m *IndexMap) Offset(i int) int64 {
	return int64(uint32(m.entries[i*imEntryInts+imOffset]))
}

// Limits returns the min and max of each dimension, computed on first use.
func (m *IndexMap) Limits() Limits {
	m.once.Do(func() {
		if m.Size() == 0 {
			return
		}
		l := Limits{
			Channel:  Range{m.ChannelIndex(0), m.ChannelIndex(0)},
			Slice:    Range{m.SliceIndex(0), m.SliceIndex(0)},
			Frame:    Range{m.FrameIndex(0), m.FrameIndex(0)},
			Position: Range{m.PositionIndex(0), m.PositionIndex(0)},
		}
		for i := 1; i < m.Size(); i++ {
			l.Channel.add(m.ChannelIndex(i))
			l.Slice.add(m.SliceIndex(i))
			l.Frame.add(m.FrameIndex(i))
			l.Position.add(m.PositionIndex(i))
		}
		m.limits = l
	})
	return m.limits
}

func (r *Range) add(v int) {
	r.Min = min(r.Min, v)
	r.Max = max(r.Max, v)
}

// IsSingleChannel reports whether every entry has the same channel.
func (m *IndexMap) IsSingleChannel() bool {
	l := m.Limits()
	return l.Channel.Min == l.Channel.Max
}

func (m *IndexMap) IsSingleSlice() bool {
	l := m.Limits()
	return l.Slice.Min == l.Slice.Max
}

func (m *IndexMap) IsSingleFrame() bool {
	l := m.Limits()
	return l.Frame.Min == l.Frame.Max
}

func (m *IndexMap) IsSinglePosition() bool {
	l := m.Limits()
	return l.Position.Min == l.Position.Max
}

// GetIndexMap reads the Micro-Manager index map. It returns nil without an
// error when the file has no index map or the map is malformed.
func (d *Decoder) GetIndexMap() (*IndexMap, error) {
	save := d.in.FilePointer()
	defer d.in.SeekTo(save)
	n, err := d.indexMapHeader()
	if err != nil || n <= 0 {
		return nil, err
	}
	if int64(n)*imEntryInts*4 > maxValueBytes {
		d.log.Warn("index map too large", "name", d.name, "entries", n)
		return nil, nil
	}
	b := make([]byte, n*imEntryInts*4)
	if err := seekable.ReadFully(d.in, b); err != nil {
		d.log.Warn("index map truncated", "name", d.name, "entries", n)
		return nil, nil
	}
	entries := make([]int32, n*imEntryInts)
	for i := range entries {
		entries[i] = d.order.Int(b[i*4], b[i*4+1], b[i*4+2], b[i*4+3])
	}
	return NewIndexMap(entries)
}

// indexMapHeader follows the pointer at offset 8 to the index block and
// returns its entry count, leaving the stream at the first entry. It returns
// 0 when there is no index map.
func (d *Decoder) indexMapHeader() (int, error) {
	if err := d.in.SeekTo(headerSize); err != nil {
		return 0, err
	}
	magic, err := d.getInt()
	if err != nil || magic != mmIndexMapHeader {
		return 0, nil
	}
	offset, err := d.getUnsignedInt()
	if err != nil || offset < headerSize {
		d.log.Warn("index map header without a valid offset", "name", d.name)
		return 0, nil
	}
	if err := d.in.SeekTo(offset); err != nil {
		return 0, err
	}
	if magic, err = d.getInt(); err != nil || magic != mmIndexMapMagic {
		d.log.Warn("index map block has the wrong magic", "name", d.name, "offset", offset)
		return 0, nil
	}
	n, err := d.getInt()
	if err != nil || n < 0 {
		d.log.Warn("index map block has no valid entry count", "name", d.name, "offset", offset)
		return 0, nil
	}
	return int(n), nil
}
