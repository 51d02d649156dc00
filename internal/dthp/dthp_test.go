package dthp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvrsrc/go-rsrc/internal/block"
	"github.com/lvrsrc/go-rsrc/internal/dthp"
	"github.com/lvrsrc/go-rsrc/internal/typemap"
	"github.com/lvrsrc/go-rsrc/internal/vers"
)

// peers is a minimal block.PeerLookup over a fixed block set.
type peers map[string]*block.Base

func (p peers) Block(ident string) (*block.Base, bool) {
	b, ok := p[ident]
	return b, ok
}

func (p peers) Version() vers.Tuple { return vers.Tuple{} }

func TestParsePrepareRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{name: "count and shift", raw: []byte{0x00, 0x05, 0x00, 0x02}},
		{name: "zero count omits shift", raw: []byte{0x00, 0x00}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := dthp.New()
			parsed, err := b.ParseRaw(nil, tt.raw)
			require.NoError(t, err)
			out, err := b.PrepareRaw(parsed)
			require.NoError(t, err)
			assert.Equal(t, tt.raw, out)

			size, ok := b.ExpectedSize(parsed)
			require.True(t, ok)
			assert.Equal(t, len(tt.raw), size)
		})
	}
}

func TestParseRejectsTrailingBytes(t *testing.T) {
	b := dthp.New()
	_, err := b.ParseRaw(nil, []byte{0x00, 0x00, 0xAA})
	require.Error(t, err)
	assert.ErrorIs(t, err, block.ErrParseShort)
}

func TestIntegrateCrossChecksTypeMap(t *testing.T) {
	newSection := func(raw []byte) *block.Section {
		sec := block.NewSection(0, func() ([]byte, error) { return raw, nil })
		return sec
	}

	// DTHP: tdCount=5, indexShift=2 -> heap-facing total 7.
	db := dthp.New()
	db.Sections[0] = newSection([]byte{0x00, 0x05, 0x00, 0x02})
	require.NoError(t, db.Parse(db.Sections[0], vers.Tuple{}))

	// TM80: count=6, indexShift=1 -> MaxTypeID 7, consistent.
	tm := typemap.New(typemap.IdentTM80)
	tm.Sections[0] = newSection([]byte{
		0x00, 0x06, // count
		0x00, 0x01, // indexShift
		0x00, 0x01, 0x00, 0x01, 0x00, 0x01, 0x00, 0x01, 0x00, 0x01, 0x00, 0x01, // flags
	})
	require.NoError(t, tm.Parse(tm.Sections[0], vers.Tuple{}))

	lookup := peers{typemap.IdentTM80: &tm.Base}
	require.NoError(t, db.Integrate(lookup))
	info := db.Sections[0].Parsed().(*dthp.Info)
	assert.True(t, info.Consistent)

	// A shifted DTHP no longer matches.
	db2 := dthp.New()
	db2.Sections[0] = newSection([]byte{0x00, 0x05, 0x00, 0x03})
	require.NoError(t, db2.Parse(db2.Sections[0], vers.Tuple{}))
	require.NoError(t, db2.Integrate(lookup))
	info2 := db2.Sections[0].Parsed().(*dthp.Info)
	assert.False(t, info2.Consistent)
}
