package codec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvrsrc/go-rsrc/internal/codec"
)

func TestXorRoundTrip(t *testing.T) {
	plain := make([]byte, 16)
	for i := range plain {
		plain[i] = byte(i)
	}
	enc, err := codec.Encode(codec.Xor, plain)
	require.NoError(t, err)
	dec, err := codec.Decode(codec.Xor, enc)
	require.NoError(t, err)
	assert.Equal(t, plain, dec)
}

func TestZlibRoundTrip(t *testing.T) {
	plain := []byte("the quick brown fox jumps over the lazy dog, repeated. " +
		"the quick brown fox jumps over the lazy dog, repeated.")
	enc, err := codec.Encode(codec.Zlib, plain)
	require.NoError(t, err)
	dec, err := codec.Decode(codec.Zlib, enc)
	require.NoError(t, err)
	assert.Equal(t, plain, dec)
}

func TestRunMask8RoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		{0, 0, 0, 0, 0, 0, 0, 0},
		{1, 2, 3, 4, 5, 6, 7, 8, 9},
		append(make([]byte, 20), []byte{1, 0, 2, 0, 3}...),
	}
	for _, plain := range cases {
		enc := mustEncodeRunMask8(t, plain)
		dec, err := codec.Decode(codec.RunMask8, enc)
		require.NoError(t, err)
		assert.Equal(t, plain, dec)
	}
}

func mustEncodeRunMask8(t *testing.T, plain []byte) []byte {
	t.Helper()
	enc, err := codec.Encode(codec.RunMask8, plain)
	require.NoError(t, err)
	return enc
}

func TestRunMask8BoundsViolation(t *testing.T) {
	// A 1-byte body claiming an absurdly large uncompressed size must be
	// rejected rather than read out of bounds.
	raw := append([]byte{0, 0, 0xFF, 0xFF}, 0x00)
	_, err := codec.Decode(codec.RunMask8, raw)
	require.Error(t, err)
}
