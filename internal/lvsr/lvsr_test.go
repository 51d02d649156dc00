package lvsr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvrsrc/go-rsrc/internal/block"
	"github.com/lvrsrc/go-rsrc/internal/lvsr"
	"github.com/lvrsrc/go-rsrc/internal/vers"
)

func newRaw(protected bool) []byte {
	flags := uint32(0x0100)
	if protected {
		flags |= 0x4000
	}
	raw := []byte{0x80, 0x00, 0x60, 0x00} // version 8.0.0 release build 0
	raw = append(raw, byte(flags>>24), byte(flags>>16), byte(flags>>8), byte(flags))
	raw = append(raw, make([]byte, 60)...) // pad to baseSize
	return raw
}

func TestParsePrepareRoundTrip(t *testing.T) {
	raw := newRaw(true)
	b := lvsr.New()
	sec := block.NewSection(0, func() ([]byte, error) { return raw, nil })
	b.Sections[0] = sec
	require.NoError(t, b.Parse(sec, vers.Tuple{}))
	require.False(t, sec.ParseFailed())

	info := sec.Parsed().(*lvsr.Info)
	assert.True(t, info.Protected)
	assert.Equal(t, 8, info.Version.Major)

	require.NoError(t, b.Prepare(sec))
	out, err := sec.GetRaw()
	require.NoError(t, err)
	assert.Equal(t, raw, out)
}

func TestSetProtectedClearsFlagOnPrepare(t *testing.T) {
	raw := newRaw(true)
	b := lvsr.New()
	sec := block.NewSection(0, func() ([]byte, error) { return raw, nil })
	b.Sections[0] = sec
	require.NoError(t, b.Parse(sec, vers.Tuple{}))

	info := sec.Parsed().(*lvsr.Info)
	info.SetProtected(false)
	sec.MarkDirty()

	require.NoError(t, b.Prepare(sec))
	out, err := sec.GetRaw()
	require.NoError(t, err)
	assert.Equal(t, newRaw(false), out)
}

func TestParseShortPayload(t *testing.T) {
	b := lvsr.New()
	sec := block.NewSection(0, func() ([]byte, error) { return []byte{1, 2, 3}, nil })
	b.Sections[0] = sec
	require.NoError(t, b.Parse(sec, vers.Tuple{}))
	assert.True(t, sec.ParseFailed())
}
