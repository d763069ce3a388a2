package ljpeg

import "fmt"

// huffman decodes with the canonical code tables of T.81 F.2.2.3.
type huffman struct {
	maxcode [17]int32
	mincode [17]int32
	valptr  [17]int
	values  []byte
}

func newHuffman(counts [16]byte, values []byte) (*huffman, error) {
	h := &huffman{values: values}
	code, k := int32(0), 0
	for l := 1; l <= 16; l++ {
		n := int(counts[l-1])
		h.maxcode[l] = -1
		if n > 0 {
			h.valptr[l] = k
			h.mincode[l] = code
			code += int32(n)
			k += n
			h.maxcode[l] = code - 1
		}
		if code > 1<<l {
			return nil, fmt.Errorf("%w: over-subscribed Huffman table", ErrFormat)
		}
		code <<= 1
	}
	return h, nil
}

func (h *huffman) decode(br *bitReader) (int, error) {
	code := int32(br.bit())
	for l := 1; l <= 16; l++ {
		if code <= h.maxcode[l] {
			return int(h.values[h.valptr[l]+int(code-h.mincode[l])]), nil
		}
		code = code<<1 | int32(br.bit())
	}
	return 0, fmt.Errorf("%w: invalid Huffman code", ErrFormat)
}

// canonical returns the code and size of each symbol of a table.
func canonical(counts [16]byte) (codes []uint16, sizes []int) {
	code := uint16(0)
	for l := 1; l <= 16; l++ {
		for i := 0; i < int(counts[l-1]); i++ {
			codes = append(codes, code)
			sizes = append(sizes, l)
			code++
		}
		code <<= 1
	}
	return codes, sizes
}
