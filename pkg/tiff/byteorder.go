package tiff

import (
	"encoding/binary"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

// ByteOrder is the byte order declared by a TIFF header. All multi-byte
// decoding in the decoder goes through these primitives; the arguments are
// bytes in file order.
type ByteOrder int

const (
	BigEndian ByteOrder = iota
	LittleEndian
)

func (o ByteOrder) IsLittleEndian() bool { return o == LittleEndian }

func (o ByteOrder) String() string {
	if o == LittleEndian {
		return "II"
	}
	return "MM"
}

// Int assembles a 32-bit value.
func (o ByteOrder) Int(b1, b2, b3, b4 byte) int32 {
	if o == LittleEndian {
		return int32(uint32(b4)<<24 | uint32(b3)<<16 | uint32(b2)<<8 | uint32(b1))
	}
	return int32(uint32(b1)<<24 | uint32(b2)<<16 | uint32(b3)<<8 | uint32(b4))
}

// Short assembles an unsigned 16-bit value.
func (o ByteOrder) Short(b1, b2 byte) int {
	if o == LittleEndian {
		return int(b2)<<8 | int(b1)
	}
	return int(b1)<<8 | int(b2)
}

// Long assembles a 64-bit value from the first 8 bytes of b.
func (o ByteOrder) Long(b []byte) int64 {
	return int64(o.Binary().Uint64(b))
}

// Binary returns the equivalent encoding/binary order.
func (o ByteOrder) Binary() binary.ByteOrder {
	if o == LittleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// utf16 returns the UTF-16 encoding ImageJ uses for text blocks in this order.
func (o ByteOrder) utf16() encoding.Encoding {
	if o == LittleEndian {
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	}
	return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
}
