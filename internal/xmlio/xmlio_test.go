package xmlio_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvrsrc/go-rsrc/internal/block"
	"github.com/lvrsrc/go-rsrc/internal/codec"
	"github.com/lvrsrc/go-rsrc/internal/container"
	"github.com/lvrsrc/go-rsrc/internal/registry"
	"github.com/lvrsrc/go-rsrc/internal/vers"
	"github.com/lvrsrc/go-rsrc/internal/versrec"
	"github.com/lvrsrc/go-rsrc/internal/xmlio"
)

// rawPassthrough mirrors internal/registry's unknown-ident fallback so
// structural tests don't depend on the concrete block packages.
type rawPassthrough struct{}

func (rawPassthrough) ParseRaw(_ *block.Section, raw []byte) (interface{}, error) {
	return append([]byte(nil), raw...), nil
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

func rawBlock(ident string, sections map[int32][]byte) *block.Base {
	var id4 [4]byte
	copy(id4[:], ident)
	b := constructRaw(id4)
	for idx, raw := range sections {
		sec := block.NewSection(idx, nil)
		sec.SetRaw(raw)
		b.Sections[idx] = sec
	}
	return b
}

func testContainer() *container.Container {
	c := &container.Container{
		Header: container.Header{
			Magic:  container.MagicModern,
			Format: 3,
			Type:   container.FileTypeVI,
		},
		Blocks: map[string]*block.Base{},
	}
	copy(c.Header.Signature[:], container.SignatureLabVIEW)

	c.Blocks["ICON"] = rawBlock("ICON", map[int32][]byte{0: []byte("iconbytes"), 1: []byte("more")})
	c.Blocks["STRG"] = rawBlock("STRG", map[int32][]byte{-1: []byte("negative section")})
	c.Blocks["STRG"].Sections[-1].Name = []byte("panel")
	c.Order = []string{"ICON", "STRG"}
	return c
}

func TestExportImportBinRoundTrip(t *testing.T) {
	c := testContainer()
	c.NamesOrder = []container.SectionRef{{Ident: "STRG", Index: -1}}

	var buf bytes.Buffer
	sidecar := xmlio.MemSidecar{}
	require.NoError(t, xmlio.Export(c, &buf, sidecar, xmlio.Options{Mode: xmlio.Dump, FileBase: "unit"}))

	assert.Contains(t, buf.String(), `<RSRC FormatVersion="3" Type="LVIN" Encoding="mac_roman">`)
	assert.Contains(t, buf.String(), "<SpecialOrder>")

	c2, err := xmlio.Import(&buf, sidecar, constructRaw)
	require.NoError(t, err)

	assert.Equal(t, c.Order, c2.Order)
	assert.Equal(t, c.Header.Type, c2.Header.Type)
	assert.Equal(t, c.Header.Format, c2.Header.Format)
	assert.Equal(t, c.NamesOrder, c2.NamesOrder)

	for _, ident := range c.Order {
		b1, b2 := c.Blocks[ident], c2.Blocks[ident]
		require.Equal(t, b1.SortedIndices(), b2.SortedIndices(), ident)
		for _, idx := range b1.SortedIndices() {
			raw1, err := b1.Sections[idx].GetRaw()
			require.NoError(t, err)
			raw2, err := b2.Sections[idx].GetRaw()
			require.NoError(t, err)
			assert.Equal(t, raw1, raw2, "%s[%d]", ident, idx)
		}
	}
	assert.Equal(t, []byte("panel"), c2.Blocks["STRG"].Sections[-1].Name)
}

func TestExportInlineVersSection(t *testing.T) {
	c := &container.Container{
		Header: container.Header{Magic: container.MagicModern, Format: 3, Type: container.FileTypeVI},
		Blocks: map[string]*block.Base{},
		Order:  []string{"vers"},
	}
	copy(c.Header.Signature[:], container.SignatureLabVIEW)

	vb := versrec.New()
	sec := block.NewSection(0, nil)
	sec.SetParsed(&versrec.Info{
		Version: vers.Tuple{Major: 14, Stage: vers.StageRelease},
		Text:    []byte("14.0"),
		VerInfo: []byte{},
		Comment: []byte{},
	})
	vb.Sections[0] = sec
	c.Blocks["vers"] = &vb.Base

	var buf bytes.Buffer
	sidecar := xmlio.MemSidecar{}
	require.NoError(t, xmlio.Export(c, &buf, sidecar, xmlio.Options{Mode: xmlio.Extract, FileBase: "unit"}))
	assert.Contains(t, buf.String(), `Format="inline"`)
	assert.Contains(t, buf.String(), `Major="14"`)
	assert.Empty(t, sidecar, "inline export must not write side files")

	c2, err := xmlio.Import(&buf, sidecar, registry.New)
	require.NoError(t, err)
	got, ok := c2.Blocks["vers"].Sections[0].Parsed().(*versrec.Info)
	require.True(t, ok)
	assert.Equal(t, 14, got.Version.Major)
	assert.Equal(t, vers.StageRelease, got.Version.Stage)
	assert.Equal(t, []byte("14.0"), got.Text)
}

func TestImportRejectsWrongRoot(t *testing.T) {
	_, err := xmlio.Import(strings.NewReader("<NotRSRC/>"), xmlio.MemSidecar{}, constructRaw)
	require.Error(t, err)
	assert.ErrorIs(t, err, block.ErrXMLSchemaViolation)
}

func TestImportRejectsUnknownSectionFormat(t *testing.T) {
	doc := `<RSRC FormatVersion="3" Type="LVIN"><ICON><Section Index="0" Format="wat"/></ICON></RSRC>`
	_, err := xmlio.Import(strings.NewReader(doc), xmlio.MemSidecar{}, constructRaw)
	require.Error(t, err)
	assert.ErrorIs(t, err, block.ErrXMLSchemaViolation)
}

func TestExportSectionToSiblingXMLFile(t *testing.T) {
	c := &container.Container{
		Header: container.Header{Magic: container.MagicModern, Format: 3, Type: container.FileTypeVI},
		Blocks: map[string]*block.Base{},
		Order:  []string{"vers"},
	}
	copy(c.Header.Signature[:], container.SignatureLabVIEW)

	vb := versrec.New()
	sec := block.NewSection(0, nil)
	sec.SetParsed(&versrec.Info{
		Version: vers.Tuple{Major: 9, Minor: 2},
		Text:    []byte("9.2"),
		VerInfo: []byte{},
		Comment: []byte{},
	})
	sec.Storage = block.StorageXML
	vb.Sections[0] = sec
	c.Blocks["vers"] = &vb.Base

	var buf bytes.Buffer
	sidecar := xmlio.MemSidecar{}
	require.NoError(t, xmlio.Export(c, &buf, sidecar, xmlio.Options{Mode: xmlio.Extract, FileBase: "unit"}))
	assert.Contains(t, buf.String(), `Format="xml"`)
	require.Contains(t, sidecar, "unit_vers.xml")
	assert.Contains(t, string(sidecar["unit_vers.xml"]), `Major="9"`)

	c2, err := xmlio.Import(&buf, sidecar, registry.New)
	require.NoError(t, err)
	got, ok := c2.Blocks["vers"].Sections[0].Parsed().(*versrec.Info)
	require.True(t, ok)
	assert.Equal(t, 9, got.Version.Major)
	assert.Equal(t, 2, got.Version.Minor)
	assert.Equal(t, []byte("9.2"), got.Text)
	assert.Equal(t, block.StorageXML, c2.Blocks["vers"].Sections[0].Storage)
}
