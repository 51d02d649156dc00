package container_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvrsrc/go-rsrc/internal/block"
	"github.com/lvrsrc/go-rsrc/internal/codec"
	"github.com/lvrsrc/go-rsrc/internal/container"
	"github.com/lvrsrc/go-rsrc/internal/vers"
)

// rawPassthrough is the simplest possible block.Parser: it never
// interprets its payload, so prepare_raw(parse_raw(raw)) == raw trivially.
// It stands in for internal/registry's unknown-identifier fallback so this
// package's tests don't need to import the concrete block packages.
type rawPassthrough struct{}

func (rawPassthrough) ParseRaw(_ *block.Section, raw []byte) (interface{}, error) {
	cp := append([]byte(nil), raw...)
	return cp, nil
}
func (rawPassthrough) PrepareRaw(parsed interface{}) ([]byte, error) {
	return parsed.([]byte), nil
}
func (rawPassthrough) ExpectedSize(parsed interface{}) (int, bool) {
	return len(parsed.([]byte)), true
}
func (rawPassthrough) DefaultEncoding(*block.Section, vers.Tuple) codec.Tag {
	return codec.None
}

func constructRaw(ident [4]byte) *block.Base {
	b := &block.Base{IdentCode: string(ident[:]), Sections: map[int32]*block.Section{}}
	b.Impl = rawPassthrough{}
	return b
}

// buildFixture hand-assembles a minimal two-block RSRC file (`vers` and
// `LVSR`, each one anonymous section) byte-for-byte, so Open/Save can be
// exercised without needing a real LabVIEW sample file.
func buildFixture(t *testing.T) []byte {
	t.Helper()

	versPayload := []byte("VERSPAYLOAD")
	lvsrPayload := []byte("LVSRPAYLOADBYTES")

	const (
		headerSize          = 32
		listHeaderSize      = 20
		blockInfoHeaderSize = 4
		blockHeaderSize     = 12
		sectionStartSize    = 20
	)

	be32 := func(v uint32) []byte {
		return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
	}
	pad4 := func(b []byte) []byte {
		for len(b)%4 != 0 {
			b = append(b, 0)
		}
		return b
	}

	dataOffset := int64(headerSize)
	var data []byte
	versDataOff := uint32(len(data))
	data = append(data, be32(uint32(len(versPayload)))...)
	data = append(data, versPayload...)
	data = pad4(data)
	lvsrDataOff := uint32(len(data))
	data = append(data, be32(uint32(len(lvsrPayload)))...)
	data = append(data, lvsrPayload...)
	data = pad4(data)

	infoOffset := dataOffset + int64(len(data))
	biOffset := infoOffset + headerSize + listHeaderSize
	sectionArrayOffset0 := uint32(blockInfoHeaderSize) + 2*blockHeaderSize
	sectionArrayOffset1 := sectionArrayOffset0 + sectionStartSize
	namesBase := biOffset + int64(sectionArrayOffset1) + sectionStartSize

	var info []byte
	info = append(info, []byte("RSRC\r\n")...)
	info = append(info, 0, 3) // format
	info = append(info, []byte("LVIN")...)
	info = append(info, []byte("LBVW")...)
	info = append(info, be32(uint32(infoOffset))...)
	// placeholder info_size, patched below
	infoSizePos := len(info)
	info = append(info, be32(0)...)
	info = append(info, be32(uint32(dataOffset))...)
	info = append(info, be32(uint32(len(data)))...)

	// block info list header
	info = append(info, be32(0)...)
	info = append(info, be32(0)...)
	info = append(info, be32(uint32(listHeaderSize))...)
	info = append(info, be32(0)...)
	info = append(info, be32(uint32(headerSize))...)

	// block info header: count-1 = 1 (two blocks)
	info = append(info, be32(1)...)

	// block headers
	info = append(info, []byte("vers")...)
	info = append(info, be32(0)...) // section count - 1
	info = append(info, be32(sectionArrayOffset0)...)
	info = append(info, []byte("LVSR")...)
	info = append(info, be32(0)...)
	info = append(info, be32(sectionArrayOffset1)...)

	// section-start records
	info = append(info, be32(0)...) // section index 0
	info = append(info, be32(0xFFFFFFFF)...)
	info = append(info, be32(0)...)
	info = append(info, be32(versDataOff)...)
	info = append(info, be32(0)...)

	info = append(info, be32(0)...)
	info = append(info, be32(0xFFFFFFFF)...)
	info = append(info, be32(0)...)
	info = append(info, be32(lvsrDataOff)...)
	info = append(info, be32(0)...)

	infoSize := uint32(len(info))
	copy(info[infoSizePos:infoSizePos+4], be32(infoSize))

	buf := make([]byte, 0, headerSize+len(data)+len(info))
	buf = append(buf, info[:headerSize]...) // first header == terminal header content
	buf = append(buf, data...)
	buf = append(buf, info...)

	_ = namesBase // no named sections in this fixture
	require.Equal(t, int(infoOffset), headerSize+len(data))
	return buf
}

func TestOpenReadsBothBlocks(t *testing.T) {
	buf := buildFixture(t)
	f := &memFile{buf: buf}

	c, err := container.Open(f, f.Size(), constructRaw, container.Options{})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"vers", "LVSR"}, c.Order)
	versBlock, ok := c.Block("vers")
	require.True(t, ok)
	raw, err := versBlock.Sections[0].GetRaw()
	require.NoError(t, err)
	assert.Equal(t, "VERSPAYLOAD", string(raw))

	lvsrBlock, ok := c.Block("LVSR")
	require.True(t, ok)
	raw, err = lvsrBlock.Sections[0].GetRaw()
	require.NoError(t, err)
	assert.Equal(t, "LVSRPAYLOADBYTES", string(raw))
}

func TestOpenThenSaveRoundTrips(t *testing.T) {
	buf := buildFixture(t)
	f := &memFile{buf: buf}

	c, err := container.Open(f, f.Size(), constructRaw, container.Options{})
	require.NoError(t, err)

	out := &memFile{}
	require.NoError(t, c.Save(out, false))

	c2, err := container.Open(out, out.Size(), constructRaw, container.Options{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"vers", "LVSR"}, c2.Order)

	raw, err := c2.Blocks["vers"].Sections[0].GetRaw()
	require.NoError(t, err)
	assert.Equal(t, "VERSPAYLOAD", string(raw))
}

func TestOpenRejectsBadMagic(t *testing.T) {
	buf := buildFixture(t)
	buf[0] = 'X'
	f := &memFile{buf: buf}
	_, err := container.Open(f, f.Size(), constructRaw, container.Options{})
	require.Error(t, err)
}

// badSizeParser reports an expected size its preparer does not honor, the
// mistake the writer's self-check must catch before any output is emitted.
type badSizeParser struct{}

func (badSizeParser) ParseRaw(_ *block.Section, raw []byte) (interface{}, error) {
	return append([]byte(nil), raw...), nil
}
func (badSizeParser) PrepareRaw(interface{}) ([]byte, error) {
	return make([]byte, 18), nil
}
func (badSizeParser) ExpectedSize(interface{}) (int, bool) { return 16, true }
func (badSizeParser) DefaultEncoding(*block.Section, vers.Tuple) codec.Tag {
	return codec.None
}

func TestSaveAbortsOnPrepareSizeMismatchBeforeWriting(t *testing.T) {
	buf := buildFixture(t)
	f := &memFile{buf: buf}

	construct := func(ident [4]byte) *block.Base {
		b := &block.Base{IdentCode: string(ident[:]), Sections: map[int32]*block.Section{}}
		b.Impl = badSizeParser{}
		return b
	}
	c, err := container.Open(f, f.Size(), construct, container.Options{})
	require.NoError(t, err)
	for _, ident := range c.Order {
		b := c.Blocks[ident]
		for _, sec := range b.Sections {
			require.NoError(t, b.Parse(sec, vers.Tuple{}))
			sec.MarkDirty()
		}
	}

	out := &memFile{}
	err = c.Save(out, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, block.ErrPrepareSizeMismatch)
	assert.Empty(t, out.buf, "nothing may be written after a failed self-check")
}
