package block_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvrsrc/go-rsrc/internal/block"
	"github.com/lvrsrc/go-rsrc/internal/codec"
	"github.com/lvrsrc/go-rsrc/internal/vers"
)

// echoParser treats the section payload as an opaque byte slice, so
// PrepareRaw(ParseRaw(raw)) == raw trivially; it exists only to exercise
// Base's state machine.
type echoParser struct{}

func (echoParser) ParseRaw(sec *block.Section, raw []byte) (interface{}, error) {
	cp := make([]byte, len(raw))
	copy(cp, raw)
	return cp, nil
}

func (echoParser) PrepareRaw(parsed interface{}) ([]byte, error) {
	return parsed.([]byte), nil
}

func (echoParser) ExpectedSize(parsed interface{}) (int, bool) {
	return len(parsed.([]byte)), true
}

func (echoParser) DefaultEncoding(sec *block.Section, fileVersion vers.Tuple) codec.Tag {
	return codec.None
}

func newEchoBlock(ident string) *block.Base {
	b := &block.Base{IdentCode: ident, Sections: map[int32]*block.Section{}}
	b.Impl = echoParser{}
	return b
}

func TestParsePrepareRoundTrip(t *testing.T) {
	b := newEchoBlock("test")
	payload := []byte("hello section")
	sec := block.NewSection(0, func() ([]byte, error) { return payload, nil })
	b.Sections[0] = sec

	require.Equal(t, block.Unread, sec.State())
	require.NoError(t, b.Parse(sec, vers.Tuple{}))
	assert.Equal(t, block.Parsed, sec.State())
	assert.False(t, sec.ParseFailed())

	require.NoError(t, b.Prepare(sec))
	assert.Equal(t, block.RawReprepared, sec.State())

	raw, err := sec.GetRaw()
	require.NoError(t, err)
	assert.Equal(t, payload, raw)
}

func TestDefaultSectionSmallestAbs(t *testing.T) {
	b := newEchoBlock("test")
	b.Sections[5] = block.NewSection(5, nil)
	b.Sections[-1] = block.NewSection(-1, nil)
	b.Sections[0] = block.NewSection(0, nil)
	assert.Equal(t, int32(0), b.DefaultSection().Index)
}

func TestPrepareSizeMismatch(t *testing.T) {
	b := newEchoBlock("test")
	b.Impl = mismatchParser{}
	sec := block.NewSection(0, func() ([]byte, error) { return []byte("0123456789abcdef"), nil })
	require.NoError(t, b.Parse(sec, vers.Tuple{}))
	err := b.Prepare(sec)
	require.Error(t, err)
}

type mismatchParser struct{ echoParser }

func (mismatchParser) ExpectedSize(parsed interface{}) (int, bool) {
	return len(parsed.([]byte)) + 2, true
}

// zlibEchoParser is echoParser but under a non-None encoding, so Parse must
// decompress raw before ParseRaw sees it and Prepare must recompress
// PrepareRaw's plaintext output before it is stored back.
type zlibEchoParser struct{ echoParser }

func (zlibEchoParser) DefaultEncoding(sec *block.Section, fileVersion vers.Tuple) codec.Tag {
	return codec.Zlib
}

func TestParsePrepareRoundTripNonNoneEncoding(t *testing.T) {
	plain := []byte("a section body compressible enough to matter")
	compressed, err := codec.Encode(codec.Zlib, plain)
	require.NoError(t, err)

	b := &block.Base{IdentCode: "test", Sections: map[int32]*block.Section{}}
	b.Impl = zlibEchoParser{}
	sec := block.NewSection(0, func() ([]byte, error) { return compressed, nil })
	b.Sections[0] = sec

	require.NoError(t, b.Parse(sec, vers.Tuple{}))
	require.False(t, sec.ParseFailed())
	assert.Equal(t, plain, sec.Parsed().([]byte))

	require.NoError(t, b.Prepare(sec))
	out, err := sec.GetRaw()
	require.NoError(t, err)

	// The raw bytes must be under the section's encoding, not the bare
	// plaintext PrepareRaw returned: decoding them must recover plain.
	assert.NotEqual(t, plain, out)
	roundTripped, err := codec.Decode(codec.Zlib, out)
	require.NoError(t, err)
	assert.Equal(t, plain, roundTripped)
}
