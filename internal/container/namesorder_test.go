package container_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvrsrc/go-rsrc/internal/container"
)

// buildNamedFixture assembles a two-block file whose sections both carry
// pool names. When reorder is set, the pool stores ICON's name before
// vers's even though the sections walk vers-first, the "ordering
// artifact" shape a round-trip must preserve.
func buildNamedFixture(t *testing.T, reorder bool) []byte {
	t.Helper()

	versPayload := []byte("VERSPAYLOAD")
	iconPayload := []byte("ICONPAYLOADBYTES")
	versName := []byte("front")
	iconName := []byte("save")

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
	pstr := func(s []byte) []byte { return append([]byte{byte(len(s))}, s...) }

	dataOffset := int64(headerSize)
	var data []byte
	versDataOff := uint32(len(data))
	data = append(data, be32(uint32(len(versPayload)))...)
	data = append(data, versPayload...)
	data = pad4(data)
	iconDataOff := uint32(len(data))
	data = append(data, be32(uint32(len(iconPayload)))...)
	data = append(data, iconPayload...)
	data = pad4(data)

	var pool []byte
	var versNameOff, iconNameOff uint32
	if reorder {
		iconNameOff = uint32(len(pool))
		pool = append(pool, pstr(iconName)...)
		versNameOff = uint32(len(pool))
		pool = append(pool, pstr(versName)...)
	} else {
		versNameOff = uint32(len(pool))
		pool = append(pool, pstr(versName)...)
		iconNameOff = uint32(len(pool))
		pool = append(pool, pstr(iconName)...)
	}

	infoOffset := dataOffset + int64(len(data))
	sectionArrayOffset0 := uint32(blockInfoHeaderSize) + 2*blockHeaderSize
	sectionArrayOffset1 := sectionArrayOffset0 + sectionStartSize

	var info []byte
	info = append(info, []byte("RSRC\r\n")...)
	info = append(info, 0, 3)
	info = append(info, []byte("LVIN")...)
	info = append(info, []byte("LBVW")...)
	info = append(info, be32(uint32(infoOffset))...)
	infoSizePos := len(info)
	info = append(info, be32(0)...)
	info = append(info, be32(uint32(dataOffset))...)
	info = append(info, be32(uint32(len(data)))...)

	info = append(info, be32(0)...)
	info = append(info, be32(0)...)
	info = append(info, be32(uint32(listHeaderSize))...)
	info = append(info, be32(0)...)
	info = append(info, be32(uint32(headerSize))...)

	info = append(info, be32(1)...)

	info = append(info, []byte("vers")...)
	info = append(info, be32(0)...)
	info = append(info, be32(sectionArrayOffset0)...)
	info = append(info, []byte("ICON")...)
	info = append(info, be32(0)...)
	info = append(info, be32(sectionArrayOffset1)...)

	info = append(info, be32(0)...)
	info = append(info, be32(versNameOff)...)
	info = append(info, be32(0)...)
	info = append(info, be32(versDataOff)...)
	info = append(info, be32(0)...)

	info = append(info, be32(0)...)
	info = append(info, be32(iconNameOff)...)
	info = append(info, be32(0)...)
	info = append(info, be32(iconDataOff)...)
	info = append(info, be32(0)...)

	info = append(info, pool...)

	infoSize := uint32(len(info))
	copy(info[infoSizePos:infoSizePos+4], be32(infoSize))

	buf := make([]byte, 0, headerSize+len(data)+len(info))
	buf = append(buf, info[:headerSize]...)
	buf = append(buf, data...)
	buf = append(buf, info...)
	return buf
}

func TestNamesOrderNotRememberedWhenSorted(t *testing.T) {
	buf := buildNamedFixture(t, false)
	f := &memFile{buf: buf}

	c, err := container.Open(f, f.Size(), constructRaw, container.Options{})
	require.NoError(t, err)
	assert.Nil(t, c.NamesOrder)
}

func TestNamesOrderRememberedAndHonored(t *testing.T) {
	buf := buildNamedFixture(t, true)
	f := &memFile{buf: buf}

	c, err := container.Open(f, f.Size(), constructRaw, container.Options{})
	require.NoError(t, err)
	require.Equal(t, []container.SectionRef{
		{Ident: "ICON", Index: 0},
		{Ident: "vers", Index: 0},
	}, c.NamesOrder)

	out := &memFile{}
	require.NoError(t, c.Save(out, false))
	assert.Equal(t, buf, out.buf, "reordered name pool must round-trip byte-for-byte")
}

func TestSortedNamedFixtureRoundTrips(t *testing.T) {
	buf := buildNamedFixture(t, false)
	f := &memFile{buf: buf}

	c, err := container.Open(f, f.Size(), constructRaw, container.Options{})
	require.NoError(t, err)

	out := &memFile{}
	require.NoError(t, c.Save(out, false))
	assert.Equal(t, buf, out.buf)
}
