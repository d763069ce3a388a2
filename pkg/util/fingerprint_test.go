package util

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMd5ThenHex(t *testing.T) {
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", Md5ThenHex(nil))
	assert.Equal(t, "900150983cd24fb0d6963f7d28e17f72", Md5ThenHex([]byte("abc")))
}

func TestHashUUID(t *testing.T) {
	type plane struct {
		Width, Height int
	}
	a := HashUUID(plane{3, 4})
	require.NotEmpty(t, a)
	_, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, a, HashUUID(plane{3, 4}))
	assert.NotEqual(t, a, HashUUID(plane{4, 3}))

	assert.Empty(t, HashUUID(math.NaN()))
}

func TestPixelsUUID(t *testing.T) {
	id, err := uuid.Parse(PixelsUUID([]byte{1, 2, 3}))
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(3), id.Version())
	assert.Equal(t, id.String(), PixelsUUID([]byte{1, 2, 3}))
	assert.NotEqual(t, id.String(), PixelsUUID([]byte{1, 2, 4}))
}
