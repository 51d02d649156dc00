package typemap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvrsrc/go-rsrc/internal/block"
	"github.com/lvrsrc/go-rsrc/internal/typemap"
	"github.com/lvrsrc/go-rsrc/internal/vctp"
	"github.com/lvrsrc/go-rsrc/internal/vers"
)

func TestParsePrepareRoundTrip(t *testing.T) {
	raw := []byte{0, 2}     // count = 2
	raw = append(raw, 0, 5) // indexShift = 5
	raw = append(raw, 0, 1) // entry 0 flags
	raw = append(raw, 0, 8) // entry 1 flags

	b := typemap.New(typemap.IdentTM80)
	sec := block.NewSection(0, func() ([]byte, error) { return raw, nil })
	b.Sections[0] = sec

	require.NoError(t, b.Parse(sec, vers.Tuple{}))
	require.False(t, sec.ParseFailed())

	info := sec.Parsed().(*typemap.Info)
	require.Len(t, info.Entries, 2)
	assert.Equal(t, uint32(5), info.Entries[0].Index)
	assert.Equal(t, uint32(6), info.Entries[1].Index)
	assert.Equal(t, typemap.TMFBit0, info.Entries[0].Flags)

	require.NoError(t, b.Prepare(sec))
	out, err := sec.GetRaw()
	require.NoError(t, err)
	assert.Equal(t, raw, out)
}

func TestEmptyMapRoundTrip(t *testing.T) {
	raw := []byte{0, 0}
	b := typemap.New(typemap.IdentDSTM)
	sec := block.NewSection(0, func() ([]byte, error) { return raw, nil })
	b.Sections[0] = sec
	require.NoError(t, b.Parse(sec, vers.Tuple{}))
	require.False(t, sec.ParseFailed())
	require.NoError(t, b.Prepare(sec))
	out, err := sec.GetRaw()
	require.NoError(t, err)
	assert.Equal(t, raw, out)
}

type lookupStub struct {
	blocks map[string]*block.Base
}

func (l lookupStub) Block(ident string) (*block.Base, bool) { b, ok := l.blocks[ident]; return b, ok }
func (l lookupStub) Version() vers.Tuple                    { return vers.Tuple{} }

func TestIntegrateResolvesTypeDescs(t *testing.T) {
	td1, _ := vctp.PrepareTypeDesc(&vctp.TypeDesc{Kind: vctp.KindI32, Body: []byte{0, 0, 0, 1}})
	vraw := []byte{0, 0, 0, 1}
	vraw = append(vraw, td1...)
	vraw = append(vraw, 0, 1) // top-level count 1
	vraw = append(vraw, 0, 0) // top-level[0] -> flat 0

	vb := vctp.New()
	vsec := block.NewSection(0, func() ([]byte, error) { return vraw, nil })
	vb.Sections[0] = vsec
	require.NoError(t, vb.Parse(vsec, vers.Tuple{}))

	traw := []byte{0, 1, 0, 1, 0, 1} // count 1, indexShift 1 (top-level indices are 1-based), entry 0 flags
	tb := typemap.New(typemap.IdentTM80)
	tsec := block.NewSection(0, func() ([]byte, error) { return traw, nil })
	tb.Sections[0] = tsec
	require.NoError(t, tb.Parse(tsec, vers.Tuple{}))

	lookup := lookupStub{blocks: map[string]*block.Base{vctp.Ident: &vb.Base}}
	require.NoError(t, tb.Integrate(lookup))

	info := tsec.Parsed().(*typemap.Info)
	require.NotNil(t, info.Entries[0].TD)
	assert.Equal(t, vctp.KindI32, info.Entries[0].TD.Kind)
}
