package rle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackBitsRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"Empty", nil},
		{"Single", []byte{0xAA}},
		{"Run2", []byte{0xAA, 0xAA}},
		{"Run3", []byte{0xAA, 0xAA, 0xAA}},
		{"Literal", []byte{0x01, 0x02, 0x03}},
		{"Mixed", []byte{0xAA, 0xAA, 0xAA, 0x01, 0x02, 0xBB, 0xBB}},
		{"LongRun", makeBytes(0xCC, 130)},
		{"LongLiteral", makeSequence(0, 130)},
		{"MaxRun", makeBytes(0xAA, 128)},
		{"MaxRunPlus1", makeBytes(0xAA, 129)},
		{"MaxLiteral", makeSequence(0, 128)},
		{"MaxLiteralPlus1", makeSequence(0, 129)},
		{"Alternating", []byte{0x00, 0x01, 0x00, 0x01, 0x00, 0x01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compressed := Compress(tt.data)
			decompressed, err := Uncompress(compressed, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.data, decompressed, "Roundtrip mismatch")

			if len(tt.data) > 0 {
				decompressed, err = Uncompress(compressed, len(tt.data))
				require.NoError(t, err)
				assert.Equal(t, tt.data, decompressed)
			}
		})
	}
}

func TestUncompress(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected int
		want     string
	}{
		{"LiteralThenRun", []byte{0x02, 'A', 'B', 'C', 0xFE, 'Z'}, 0, "ABCZZZ"},
		{"NoOp", []byte{0x80, 0x00, 'Q', 0x80}, 0, "Q"},
		{"StopsAtExpected", []byte{0xFF, 'x', 0x00, 'y', 0x02}, 3, "xxy"},
		{"RunOvershoots", []byte{0xFD, 'r'}, 2, "rrrr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Uncompress(tt.input, tt.expected)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestUncompress_Truncated(t *testing.T) {
	tests := []struct {
		name      string
		input     []byte
		errString string
	}{
		{
			name:      "TruncatedLiteral",
			input:     []byte{0x02, 0x01},
			errString: "in literal run",
		},
		{
			name:      "TruncatedReplicate",
			input:     []byte{0xFE},
			errString: "in replicate run",
		},
		{
			name:      "TruncatedLiteralBoundary",
			input:     []byte{0x00},
			errString: "in literal run",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Uncompress(tt.input, 0)
			require.ErrorIs(t, err, ErrTruncated)
			assert.Contains(t, err.Error(), tt.errString)
		})
	}
}

func makeBytes(val byte, n int) []byte {
	res := make([]byte, n)
	for i := range res {
		res[i] = val
	}
	return res
}

func makeSequence(start byte, n int) []byte {
	res := make([]byte, n)
	val := start
	for i := range res {
		res[i] = val
		val++
	}
	return res
}
