package vctp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvrsrc/go-rsrc/internal/block"
	"github.com/lvrsrc/go-rsrc/internal/vctp"
	"github.com/lvrsrc/go-rsrc/internal/vers"
)

func TestTypeDescScalarRoundTrip(t *testing.T) {
	td := &vctp.TypeDesc{Kind: vctp.KindI32, Body: []byte{1, 2, 3, 4}}
	raw, err := vctp.PrepareTypeDesc(td)
	require.NoError(t, err)

	got, next, err := vctp.ParseTypeDesc(raw, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, len(raw), next)
	assert.Equal(t, vctp.KindI32, got.Kind)
	assert.Equal(t, []byte{1, 2, 3, 4}, got.Body)
}

func TestTypeDescClusterRoundTrip(t *testing.T) {
	cluster := &vctp.TypeDesc{
		Kind: vctp.KindCluster,
		Children: []*vctp.TypeDesc{
			{Kind: vctp.KindI32, Body: []byte{0, 0, 0, 1}},
			{Kind: vctp.KindString},
			{Kind: vctp.KindPath},
		},
	}
	raw, err := vctp.PrepareTypeDesc(cluster)
	require.NoError(t, err)

	got, next, err := vctp.ParseTypeDesc(raw, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, len(raw), next)
	require.Len(t, got.Children, 3)
	assert.Equal(t, vctp.KindString, got.Children[1].Kind)

	numeric, str, path := vctp.TerminalCounts(got)
	assert.Equal(t, 1, numeric)
	assert.Equal(t, 1, str)
	assert.Equal(t, 1, path)
}

func TestTypeDescLabelRoundTrip(t *testing.T) {
	td := &vctp.TypeDesc{Kind: vctp.KindBoolean, Body: []byte{1}, Flags: 0x01, Label: []byte("MyControl")}
	raw, err := vctp.PrepareTypeDesc(td)
	require.NoError(t, err)

	got, next, err := vctp.ParseTypeDesc(raw, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, len(raw), next)
	assert.Equal(t, "MyControl", string(got.Label))
}

func TestTypeDescArrayRoundTrip(t *testing.T) {
	arr := &vctp.TypeDesc{
		Kind:      vctp.KindArray,
		ArrayDims: []uint32{0},
		Children:  []*vctp.TypeDesc{{Kind: vctp.KindDouble}},
	}
	raw, err := vctp.PrepareTypeDesc(arr)
	require.NoError(t, err)
	got, next, err := vctp.ParseTypeDesc(raw, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, len(raw), next)
	assert.Equal(t, []uint32{0}, got.ArrayDims)
	require.Len(t, got.Children, 1)
	assert.Equal(t, vctp.KindDouble, got.Children[0].Kind)
}

func TestTypeDescRepeatedBlockDSInit(t *testing.T) {
	rb := &vctp.TypeDesc{
		Kind:       vctp.KindRepeatedBlock,
		NumRepeats: 51,
		Children:   []*vctp.TypeDesc{{Kind: vctp.KindU32}},
	}
	raw, err := vctp.PrepareTypeDesc(rb)
	require.NoError(t, err)
	got, _, err := vctp.ParseTypeDesc(raw, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(51), got.NumRepeats)
}

func TestBlockParsePrepareRoundTrip(t *testing.T) {
	td1, _ := vctp.PrepareTypeDesc(&vctp.TypeDesc{Kind: vctp.KindI32, Body: []byte{0, 0, 0, 1}})
	td2, _ := vctp.PrepareTypeDesc(&vctp.TypeDesc{Kind: vctp.KindString})

	raw := []byte{0, 0, 0, 2} // flat count
	raw = append(raw, td1...)
	raw = append(raw, td2...)
	raw = append(raw, 0, 2) // top-level count (varint, 2 entries)
	raw = append(raw, 0, 0) // top-level[0] -> flat 0
	raw = append(raw, 0, 1) // top-level[1] -> flat 1

	b := vctp.New()
	sec := block.NewSection(0, func() ([]byte, error) { return raw, nil })
	b.Sections[0] = sec

	require.NoError(t, b.Parse(sec, vers.Tuple{}))
	require.False(t, sec.ParseFailed())

	info := sec.Parsed().(*vctp.Info)
	assert.Len(t, info.Flat, 2)
	assert.Equal(t, []uint32{0, 1}, info.TopLevel)
	assert.NotNil(t, info.GetTopType(1))
	assert.Nil(t, info.GetTopType(99))

	require.NoError(t, b.Prepare(sec))
	out, err := sec.GetRaw()
	require.NoError(t, err)
	assert.Equal(t, raw, out)
}

func TestBlockRejectsOutOfRangeTopLevel(t *testing.T) {
	raw := []byte{0, 0, 0, 0} // flat count 0
	raw = append(raw, 0, 1)   // top-level count 1
	raw = append(raw, 0, 5)   // top-level[0] -> flat 5, out of range

	b := vctp.New()
	sec := block.NewSection(0, func() ([]byte, error) { return raw, nil })
	b.Sections[0] = sec
	require.NoError(t, b.Parse(sec, vers.Tuple{}))
	assert.True(t, sec.ParseFailed())
}
