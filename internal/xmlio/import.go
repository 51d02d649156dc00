// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xmlio

import (
	"bytes"
	"encoding/hex"
	"encoding/xml"
	"io"
	"strconv"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"

	"github.com/lvrsrc/go-rsrc/internal/block"
	"github.com/lvrsrc/go-rsrc/internal/container"
)

// Import rebuilds a container from its XML surface, reading side files
// through sidecar. The result is ready for Save: bin sections carry their
// on-wire bytes, inline sections carry parsed content marked dirty so
// Save re-prepares them.
func Import(r io.Reader, sidecar Sidecar, construct container.Constructor) (*container.Container, error) {
	root, err := decodeRoot(r)
	if err != nil {
		return nil, err
	}
	if root.Tag != "RSRC" {
		return nil, errors.Wrapf(block.ErrXMLSchemaViolation, "root tag <%s>, want <RSRC>", root.Tag)
	}

	c := &container.Container{
		Blocks: map[string]*block.Base{},
	}
	if err := importHeader(c, root); err != nil {
		return nil, err
	}

	for _, child := range root.Children {
		if child.Tag == "SpecialOrder" {
			if err := importNamesOrder(c, child); err != nil {
				return nil, err
			}
			continue
		}
		if err := importBlock(c, child, sidecar, construct); err != nil {
			return nil, err
		}
	}

	// Inline sections get their encoding tag assigned now that the file
	// version is readable (the vers block itself never needs the version
	// to pick its encoding, which breaks the circularity).
	fileVersion := c.Version()
	for _, ident := range c.Order {
		b := c.Blocks[ident]
		for _, idx := range b.SortedIndices() {
			sec := b.Sections[idx]
			if sec.State() == block.DirtyParsed {
				sec.Encoding = b.Impl.DefaultEncoding(sec, fileVersion)
			}
		}
	}
	return c, nil
}

func decodeRoot(r io.Reader) (*block.Element, error) {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, errors.Wrap(block.ErrXMLSchemaViolation, "no root element")
		}
		if err != nil {
			return nil, errors.Wrap(err, "xmlio: decode")
		}
		if start, ok := tok.(xml.StartElement); ok {
			return block.DecodeElement(dec, start)
		}
	}
}

func importHeader(c *container.Container, root *block.Element) error {
	fmtStr, ok := root.Attr("FormatVersion")
	if !ok {
		return errors.Wrap(block.ErrXMLSchemaViolation, "missing FormatVersion")
	}
	format, err := strconv.ParseUint(fmtStr, 0, 16)
	if err != nil {
		return errors.Wrapf(block.ErrXMLSchemaViolation, "FormatVersion %q", fmtStr)
	}
	c.Header.Format = uint16(format)
	if format >= 3 {
		c.Header.Magic = container.MagicModern
	} else {
		c.Header.Magic = container.MagicLegacy
	}
	copy(c.Header.Signature[:], container.SignatureLabVIEW)

	if typeStr, ok := root.Attr("Type"); ok {
		if len(typeStr) != 4 {
			return errors.Wrapf(block.ErrXMLSchemaViolation, "Type %q is not 4 characters", typeStr)
		}
		copy(c.Header.Type[:], typeStr)
	} else if typeHex, ok := root.Attr("TypeHex"); ok {
		raw, err := hex.DecodeString(typeHex)
		if err != nil || len(raw) != 4 {
			return errors.Wrapf(block.ErrXMLSchemaViolation, "TypeHex %q", typeHex)
		}
		copy(c.Header.Type[:], raw)
	} else {
		return errors.Wrap(block.ErrXMLSchemaViolation, "missing Type/TypeHex")
	}

	if v, ok := root.Attr("Int1"); ok {
		n, err := strconv.ParseUint(v, 0, 32)
		if err != nil {
			return errors.Wrapf(block.ErrXMLSchemaViolation, "Int1 %q", v)
		}
		c.ListHeader.Reserved1 = uint32(n)
	}
	if v, ok := root.Attr("Int2"); ok {
		n, err := strconv.ParseUint(v, 0, 32)
		if err != nil {
			return errors.Wrapf(block.ErrXMLSchemaViolation, "Int2 %q", v)
		}
		c.ListHeader.Reserved2 = uint32(n)
	}
	return nil
}

func importNamesOrder(c *container.Container, special *block.Element) error {
	names := special.Child("Names")
	if names == nil {
		return nil
	}
	for _, ref := range names.Children {
		ident, err := elementIdent(ref)
		if err != nil {
			return err
		}
		idx := int64(0)
		if v, ok := ref.Attr("Index"); ok {
			idx, err = strconv.ParseInt(v, 0, 32)
			if err != nil {
				return errors.Wrapf(block.ErrXMLSchemaViolation, "names-order Index %q", v)
			}
		}
		c.NamesOrder = append(c.NamesOrder, container.SectionRef{Ident: ident, Index: int32(idx)})
	}
	return nil
}

// elementIdent resolves an element's four-byte identifier: the Ident
// attribute when present (carrying characters the tag could not), else the
// tag itself padded to four characters with spaces.
func elementIdent(el *block.Element) (string, error) {
	if v, ok := el.Attr("Ident"); ok {
		ident, err := parseIdentAttr(v)
		if err != nil {
			return "", errors.Wrapf(block.ErrXMLSchemaViolation, "Ident %q", v)
		}
		if len(ident) != 4 {
			return "", errors.Wrapf(block.ErrXMLSchemaViolation, "Ident %q is not 4 bytes", v)
		}
		return ident, nil
	}
	tag := el.Tag
	if len(tag) > 4 {
		return "", errors.Wrapf(block.ErrXMLSchemaViolation, "tag <%s> is not a block identifier", tag)
	}
	for len(tag) < 4 {
		tag += " "
	}
	return tag, nil
}

func importBlock(c *container.Container, blockEl *block.Element, sidecar Sidecar, construct container.Constructor) error {
	ident, err := elementIdent(blockEl)
	if err != nil {
		return err
	}
	var ident4 [4]byte
	copy(ident4[:], ident)
	b := construct(ident4)

	for _, secEl := range blockEl.Children {
		if secEl.Tag != "Section" {
			return errors.Wrapf(block.ErrXMLSchemaViolation, "%s: unexpected <%s>", ident, secEl.Tag)
		}
		if err := importSection(b, secEl, sidecar, ident); err != nil {
			return err
		}
	}
	if len(b.Sections) == 0 {
		return errors.Wrapf(block.ErrXMLSchemaViolation, "%s: block has no sections", ident)
	}
	if _, dup := c.Blocks[ident]; dup {
		return errors.Wrapf(block.ErrXMLSchemaViolation, "%s: duplicate block", ident)
	}
	c.Blocks[ident] = b
	c.Order = append(c.Order, ident)
	return nil
}

func importSection(b *block.Base, secEl *block.Element, sidecar Sidecar, ident string) error {
	idxStr, ok := secEl.Attr("Index")
	if !ok {
		return errors.Wrapf(block.ErrXMLSchemaViolation, "%s: Section missing Index", ident)
	}
	idx64, err := strconv.ParseInt(idxStr, 0, 32)
	if err != nil {
		return errors.Wrapf(block.ErrXMLSchemaViolation, "%s: Index %q", ident, idxStr)
	}
	idx := int32(idx64)
	if _, dup := b.Sections[idx]; dup {
		return errors.Wrapf(block.ErrXMLSchemaViolation, "%s: duplicate section %d", ident, idx)
	}
	sec := block.NewSection(idx, nil)

	if nameObj := secEl.Child("NameObject"); nameObj != nil {
		hexStr, _ := nameObj.Attr("Hex")
		raw, err := hex.DecodeString(hexStr)
		if err != nil {
			return errors.Wrapf(block.ErrXMLSchemaViolation, "%s[%d]: NameObject hex", ident, idx)
		}
		sec.Name = raw
		if block.IsPathName(raw) {
			sec.PathName = &block.Path{}
		}
	} else if name, ok := secEl.Attr("Name"); ok {
		raw, err := charmap.Macintosh.NewEncoder().Bytes([]byte(name))
		if err != nil {
			return errors.Wrapf(block.ErrXMLSchemaViolation, "%s[%d]: Name not mac_roman-encodable", ident, idx)
		}
		sec.Name = raw
	}

	format, _ := secEl.Attr("Format")
	switch format {
	case "bin":
		file, ok := secEl.Attr("File")
		if !ok {
			return errors.Wrapf(block.ErrXMLSchemaViolation, "%s[%d]: bin section missing File", ident, idx)
		}
		data, err := sidecar.Read(file)
		if err != nil {
			return errors.Wrapf(err, "%s[%d]: side file", ident, idx)
		}
		sec.SetRaw(data)
	case "inline":
		inline, ok := b.Impl.(block.InlineXMLer)
		if !ok {
			return errors.Wrapf(block.ErrXMLSchemaViolation, "%s[%d]: block has no inline form", ident, idx)
		}
		children := contentChildren(secEl)
		parsed, err := inline.ImportInline(children)
		if err != nil {
			return errors.Wrapf(err, "%s[%d]: inline import", ident, idx)
		}
		sec.SetParsed(parsed)
		sec.Storage = block.StorageInline
	case "xml":
		inline, ok := b.Impl.(block.InlineXMLer)
		if !ok {
			return errors.Wrapf(block.ErrXMLSchemaViolation, "%s[%d]: block has no inline form", ident, idx)
		}
		file, ok := secEl.Attr("File")
		if !ok {
			return errors.Wrapf(block.ErrXMLSchemaViolation, "%s[%d]: xml section missing File", ident, idx)
		}
		data, err := sidecar.Read(file)
		if err != nil {
			return errors.Wrapf(err, "%s[%d]: side xml", ident, idx)
		}
		doc, err := decodeRoot(bytes.NewReader(data))
		if err != nil {
			return errors.Wrapf(err, "%s[%d]: side xml decode", ident, idx)
		}
		if doc.Tag != "Section" {
			return errors.Wrapf(block.ErrXMLSchemaViolation, "%s[%d]: side xml root <%s>", ident, idx, doc.Tag)
		}
		parsed, err := inline.ImportInline(doc.Children)
		if err != nil {
			return errors.Wrapf(err, "%s[%d]: side xml import", ident, idx)
		}
		sec.SetParsed(parsed)
		sec.Storage = block.StorageXML
	default:
		return errors.Wrapf(block.ErrXMLSchemaViolation, "%s[%d]: Format %q", ident, idx, format)
	}

	b.Sections[idx] = sec
	return nil
}

// contentChildren filters a Section element's children down to content,
// dropping the NameObject envelope element.
func contentChildren(secEl *block.Element) []*block.Element {
	var out []*block.Element
	for _, c := range secEl.Children {
		if c.Tag == "NameObject" {
			continue
		}
		out = append(out, c)
	}
	return out
}
