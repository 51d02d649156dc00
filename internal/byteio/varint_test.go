package byteio_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvrsrc/go-rsrc/internal/byteio"
)

func TestVarUintRoundTrip(t *testing.T) {
	cases := []uint32{0, 1, 0x7fff, 0x8000, 0xffff, 0x10000, 0x7fffffff, 0xffffffff}
	for _, n := range cases {
		enc := byteio.PutVarU(n)
		assert.Equal(t, byteio.SizeVarU(n), len(enc))
		if n <= 0x7fff {
			assert.Len(t, enc, 2)
		} else {
			assert.Len(t, enc, 6)
		}
		got, next, err := byteio.ReadVarU(enc, 0)
		require.NoError(t, err)
		assert.Equal(t, len(enc), next)
		assert.Equal(t, n, got)
	}
}

func TestVarUintShortRead(t *testing.T) {
	_, _, err := byteio.ReadVarU([]byte{0x80}, 0)
	require.Error(t, err)
}

func TestPStringRoundTrip(t *testing.T) {
	buf := byteio.PutPString([]byte("VCTP"))
	got, next, err := byteio.ReadPString(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "VCTP", string(got))
	assert.Equal(t, len(buf), next)
}

func TestLStringRoundTrip(t *testing.T) {
	buf := byteio.PutLString([]byte("a longer content string"))
	got, next, err := byteio.ReadLString(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "a longer content string", string(got))
	assert.Equal(t, len(buf), next)
}
