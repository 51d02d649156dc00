package dfds_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvrsrc/go-rsrc/internal/block"
	"github.com/lvrsrc/go-rsrc/internal/byteio"
	"github.com/lvrsrc/go-rsrc/internal/dfds"
	"github.com/lvrsrc/go-rsrc/internal/typemap"
	"github.com/lvrsrc/go-rsrc/internal/vctp"
	"github.com/lvrsrc/go-rsrc/internal/vers"
)

type lookupStub struct {
	blocks map[string]*block.Base
}

func (l lookupStub) Block(ident string) (*block.Base, bool) { b, ok := l.blocks[ident]; return b, ok }
func (l lookupStub) Version() vers.Tuple                    { return vers.Tuple{} }

// TestIntegrateSkipsNonContributingEntry: a type
// map with 3 entries flagged {bit0, bit13, bit3}; the third contributes no
// bytes, so the DFDS payload equals the sum of the first two fills.
func TestIntegrateSkipsNonContributingEntry(t *testing.T) {
	td1, err := vctp.PrepareTypeDesc(&vctp.TypeDesc{Kind: vctp.KindI32, Body: []byte{0, 0, 0, 0}})
	require.NoError(t, err)
	td2, err := vctp.PrepareTypeDesc(&vctp.TypeDesc{Kind: vctp.KindI16, Body: []byte{0, 0}})
	require.NoError(t, err)
	td3, err := vctp.PrepareTypeDesc(&vctp.TypeDesc{Kind: vctp.KindI32, Body: []byte{0, 0, 0, 0}})
	require.NoError(t, err)

	vraw := byteio.ToBigEndian32(3)
	vraw = append(vraw, td1...)
	vraw = append(vraw, td2...)
	vraw = append(vraw, td3...)
	vraw = append(vraw, byteio.PutVarU(3)...) // top-level count 3
	vraw = append(vraw, byteio.PutVarU(0)...)
	vraw = append(vraw, byteio.PutVarU(1)...)
	vraw = append(vraw, byteio.PutVarU(2)...)

	vb := vctp.New()
	vsec := block.NewSection(0, func() ([]byte, error) { return vraw, nil })
	vb.Sections[0] = vsec
	require.NoError(t, vb.Parse(vsec, vers.Tuple{}))

	traw := byteio.PutVarU(3)                 // count
	traw = append(traw, byteio.PutVarU(1)...) // indexShift (top-level indices are 1-based)
	traw = append(traw, byteio.PutVarU(uint32(typemap.TMFBit0))...)
	traw = append(traw, byteio.PutVarU(uint32(typemap.TMFBit13))...)
	traw = append(traw, byteio.PutVarU(uint32(typemap.TMFBit3))...)

	tb := typemap.New(typemap.IdentTM80)
	tsec := block.NewSection(0, func() ([]byte, error) { return traw, nil })
	tb.Sections[0] = tsec
	require.NoError(t, tb.Parse(tsec, vers.Tuple{}))

	lookup := lookupStub{blocks: map[string]*block.Base{vctp.Ident: &vb.Base}}
	require.NoError(t, tb.Integrate(lookup))

	// Fill payload: entry 0 (I32, bit0) = 4 bytes; entry 1 (I16, bit13) = 2
	// bytes; entry 2 (bit3) contributes nothing.
	fillRaw := []byte{0, 0, 0, 7, 0, 9}

	db := dfds.New()
	dsec := block.NewSection(0, func() ([]byte, error) { return fillRaw, nil })
	db.Sections[0] = dsec
	require.NoError(t, db.Parse(dsec, vers.Tuple{}))

	dlookup := lookupStub{blocks: map[string]*block.Base{
		vctp.Ident:        &vb.Base,
		typemap.IdentTM80: &tb.Base,
	}}
	require.NoError(t, db.Integrate(dlookup))
	require.False(t, dsec.ParseFailed())

	info := dsec.Parsed().(*dfds.Info)
	require.Len(t, info.Entries, 2)
	assert.Equal(t, []byte{0, 0, 0, 7}, info.Entries[0].Fill.Scalar)
	assert.Equal(t, []byte{0, 9}, info.Entries[1].Fill.Scalar)

	require.NoError(t, db.Prepare(dsec))
	out, err := dsec.GetRaw()
	require.NoError(t, err)
	assert.Equal(t, fillRaw, out)
}

// TestPrepareWithoutIntegrateIsRawPassthrough covers the case where a
// section is round-tripped before Integrate ever runs.
func TestPrepareWithoutIntegrateIsRawPassthrough(t *testing.T) {
	raw := []byte{1, 2, 3, 4}
	b := dfds.New()
	sec := block.NewSection(0, func() ([]byte, error) { return raw, nil })
	b.Sections[0] = sec
	require.NoError(t, b.Parse(sec, vers.Tuple{}))
	require.NoError(t, b.Prepare(sec))
	out, err := sec.GetRaw()
	require.NoError(t, err)
	assert.Equal(t, raw, out)
}
