// Package rle implements the PackBits run length scheme used by TIFF
// compression 32773.
package rle

import (
	"errors"
	"fmt"
)

// ErrTruncated is returned when a run extends past the end of the input.
var ErrTruncated = errors.New("rle: compressed data truncated")

// Compress encodes data with PackBits. Runs of two or more equal bytes are
// replicated; everything else is written as literals of up to 128 bytes.
func Compress(data []byte) []byte {
	if len(data) == 0 {
		return nil
	}

	out := make([]byte, 0, len(data)+len(data)/128+1)
	i := 0
	for i < len(data) {
		runLen := 1
		for i+runLen < len(data) && runLen < 128 && data[i+runLen] == data[i] {
			runLen++
		}
		if runLen > 1 {
			out = append(out, byte(int8(-(runLen - 1))), data[i])
			i += runLen
			continue
		}

		// literal, ending before the next run of three
		litLen := 1
		for i+litLen < len(data) && litLen < 128 {
			if i+litLen+2 < len(data) &&
				data[i+litLen] == data[i+litLen+1] &&
				data[i+litLen] == data[i+litLen+2] {
				break
			}
			litLen++
		}
		out = append(out, byte(litLen-1))
		out = append(out, data[i:i+litLen]...)
		i += litLen
	}
	return out
}

// Uncompress decodes PackBits data. Decoding stops once expected bytes have
// been produced; an expected length of 0 decodes all of data.
func Uncompress(data []byte, expected int) ([]byte, error) {
	out := make([]byte, 0, max(expected, 0))

	i := 0
	for i < len(data) {
		if expected > 0 && len(out) >= expected {
			break
		}

		n := int8(data[i])
		i++
		switch {
		case n == -128:
			// no-op
		case n >= 0:
			count := int(n) + 1
			if i+count > len(data) {
				return nil, fmt.Errorf("%w in literal run (i=%d, count=%d, len=%d)", ErrTruncated, i, count, len(data))
			}
			out = append(out, data[i:i+count]...)
			i += count
		default:
			if i >= len(data) {
				return nil, fmt.Errorf("%w in replicate run", ErrTruncated)
			}
			v := data[i]
			i++
			for k := int(-n) + 1; k > 0; k-- {
				out = append(out, v)
			}
		}
	}
	return out, nil
}
