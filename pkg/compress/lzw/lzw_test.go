package lzw

import (
	"bytes"
	"io"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xlzw "golang.org/x/image/tiff/lzw"
)

func noise(n int, seed uint64) []byte {
	r := rand.New(rand.NewPCG(seed, seed+1))
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(r.IntN(256))
	}
	return b
}

func inputs() map[string][]byte {
	ramp := make([]byte, 5000)
	for i := range ramp {
		ramp[i] = byte(i / 7)
	}
	return map[string][]byte{
		"single":   {7},
		"repeat":   bytes.Repeat([]byte{'a'}, 10000),
		"kwkwk":    []byte("abababababababab"),
		"ramp":     ramp,
		"noise600": noise(600, 1),   // crosses the 10 bit width
		"noise3k":  noise(3000, 2),  // 11 and 12 bit widths
		"noise50k": noise(50000, 3), // several table clears
	}
}

func TestCompress_Format(t *testing.T) {
	// clear, 7, end of information as 9 bit codes
	assert.Equal(t, []byte{0x80, 0x01, 0xE0, 0x20}, Compress([]byte{7}))
	assert.Equal(t, []byte{0x80, 0x40, 0x40}, Compress(nil))
}

func TestCompress_MatchesReference(t *testing.T) {
	for name, data := range inputs() {
		t.Run(name, func(t *testing.T) {
			r := xlzw.NewReader(bytes.NewReader(Compress(data)), xlzw.MSB, 8)
			defer r.Close()
			got, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, data, got)
		})
	}
}

func TestUncompress_RoundTrip(t *testing.T) {
	for name, data := range inputs() {
		t.Run(name, func(t *testing.T) {
			got, err := Uncompress(Compress(data), 0)
			require.NoError(t, err)
			assert.Equal(t, data, got)

			got, err = Uncompress(Compress(data), len(data))
			require.NoError(t, err)
			assert.Equal(t, data, got)
		})
	}
}

func TestUncompress_StopsAtByteCount(t *testing.T) {
	data := noise(4000, 4)
	got, err := Uncompress(Compress(data), 100)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(got), 100)
	assert.Equal(t, data[:100], got[:100])
	assert.Less(t, len(got), 200)
}

func TestUncompress_WithoutEOI(t *testing.T) {
	data := []byte("hello, hello, hello")
	enc := Compress(data)
	// cut into the end of information code
	got, err := Uncompress(enc[:len(enc)-1], 0)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestUncompress_Invalid(t *testing.T) {
	w := &bitWriter{}
	w.write(clearCode, 9)
	w.write('a', 9)
	w.write(300, 9)
	_, err := Uncompress(w.flush(), 0)
	require.ErrorIs(t, err, ErrInvalidCode)

	got, err := Uncompress(nil, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}
