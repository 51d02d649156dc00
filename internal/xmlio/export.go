// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xmlio

import (
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"

	"github.com/lvrsrc/go-rsrc/internal/block"
	"github.com/lvrsrc/go-rsrc/internal/container"
)

// Export renders c as XML to w, writing section side files through
// sidecar. The tree reproduces everything Save needs: block order, section
// indices, names, the names-order hint, and each section's content.
func Export(c *container.Container, w io.Writer, sidecar Sidecar, opts Options) error {
	root, err := buildTree(c, sidecar, opts)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return errors.Wrap(err, "xmlio: write header")
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := root.Encode(enc); err != nil {
		return errors.Wrap(err, "xmlio: encode tree")
	}
	if err := enc.Flush(); err != nil {
		return errors.Wrap(err, "xmlio: flush")
	}
	_, err = io.WriteString(w, "\n")
	return errors.Wrap(err, "xmlio: trailing newline")
}

func buildTree(c *container.Container, sidecar Sidecar, opts Options) (*block.Element, error) {
	root := block.NewElement("RSRC")
	root.SetAttr("FormatVersion", strconv.Itoa(int(c.Header.Format)))
	typeStr := string(c.Header.Type[:])
	if printable(typeStr) {
		root.SetAttr("Type", typeStr)
	} else {
		root.SetAttr("TypeHex", hex.EncodeToString(c.Header.Type[:]))
	}
	root.SetAttr("Encoding", "mac_roman")
	if c.ListHeader.Reserved1 != 0 {
		root.SetAttr("Int1", fmt.Sprintf("0x%08X", c.ListHeader.Reserved1))
	}
	if c.ListHeader.Reserved2 != 0 {
		root.SetAttr("Int2", fmt.Sprintf("0x%08X", c.ListHeader.Reserved2))
	}

	if len(c.NamesOrder) > 0 {
		names := root.AddChild(block.NewElement("SpecialOrder")).AddChild(block.NewElement("Names"))
		for _, ref := range c.NamesOrder {
			el := names.AddChild(block.NewElement(prettyIdent(ref.Ident)))
			if prettyIdent(ref.Ident) != ref.Ident {
				el.SetAttr("Ident", identAttr(ref.Ident))
			}
			el.SetAttr("Index", strconv.Itoa(int(ref.Index)))
		}
	}

	for _, ident := range c.Order {
		b := c.Blocks[ident]
		blockEl := root.AddChild(block.NewElement(prettyIdent(ident)))
		if prettyIdent(ident) != ident {
			blockEl.SetAttr("Ident", identAttr(ident))
		}
		multi := len(b.Sections) > 1
		for _, idx := range b.SortedIndices() {
			sec := b.Sections[idx]
			secEl := blockEl.AddChild(block.NewElement("Section"))
			secEl.SetAttr("Index", strconv.Itoa(int(idx)))
			if err := exportName(secEl, sec); err != nil {
				return nil, errors.Wrapf(err, "xmlio: %s[%d] name", ident, idx)
			}
			if err := exportContent(secEl, b, sec, sidecar, opts, ident, idx, multi); err != nil {
				return nil, errors.Wrapf(err, "xmlio: %s[%d]", ident, idx)
			}
		}
	}
	return root, nil
}

// renderDocument serializes a standalone side-file XML document.
func renderDocument(root *block.Element) ([]byte, error) {
	var buf strings.Builder
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := root.Encode(enc); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	buf.WriteString("\n")
	return []byte(buf.String()), nil
}

// identAttr encodes an exact identifier for the Ident attribute: verbatim
// when printable, hex-prefixed otherwise.
func identAttr(ident string) string {
	if printable(ident) {
		return ident
	}
	return "0x" + hex.EncodeToString([]byte(ident))
}

func parseIdentAttr(s string) (string, error) {
	if strings.HasPrefix(s, "0x") {
		raw, err := hex.DecodeString(s[2:])
		if err != nil {
			return "", errors.Wrap(err, "hex ident")
		}
		return string(raw), nil
	}
	return s, nil
}

// exportName records the section's pool name: structured Path names go to
// a NameObject child carrying the exact bytes, text names to a Name
// attribute under the mac_roman codepage.
func exportName(secEl *block.Element, sec *block.Section) error {
	if sec.Name == nil {
		return nil
	}
	if sec.PathName != nil {
		secEl.AddChild(block.NewElement("NameObject")).SetAttr("Hex", hex.EncodeToString(sec.Name))
		return nil
	}
	text, err := charmap.Macintosh.NewDecoder().Bytes(sec.Name)
	if err != nil {
		return errors.Wrap(err, "mac_roman decode")
	}
	secEl.SetAttr("Name", string(text))
	return nil
}

func exportContent(secEl *block.Element, b *block.Base, sec *block.Section, sidecar Sidecar, opts Options, ident string, idx int32, multi bool) error {
	if opts.Mode == Extract && sec.State() >= block.Parsed && !sec.ParseFailed() {
		if inline, ok := b.Impl.(block.InlineXMLer); ok {
			children, err := inline.ExportInline(sec.Parsed())
			if err != nil {
				return errors.Wrap(err, "inline export")
			}
			if sec.Storage == block.StorageXML {
				// Same parsed form as inline, carried in a sibling XML
				// document instead of the main tree.
				doc := block.NewElement("Section")
				doc.Children = children
				name := sideFileName(opts.FileBase, ident, idx, multi, "xml")
				data, err := renderDocument(doc)
				if err != nil {
					return errors.Wrap(err, "side xml render")
				}
				if err := sidecar.Write(name, data); err != nil {
					return errors.Wrap(err, "side xml write")
				}
				secEl.SetAttr("Format", "xml")
				secEl.SetAttr("File", name)
				return nil
			}
			secEl.SetAttr("Format", "inline")
			secEl.Children = append(secEl.Children, children...)
			return nil
		}
	}

	raw, err := sec.GetRaw()
	if err != nil {
		return errors.Wrap(err, "raw bytes")
	}
	name := sideFileName(opts.FileBase, ident, idx, multi, "bin")
	if err := sidecar.Write(name, raw); err != nil {
		return errors.Wrap(err, "side file write")
	}
	secEl.SetAttr("Format", "bin")
	secEl.SetAttr("File", name)
	return nil
}
