// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package libn

import (
	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"

	"github.com/lvrsrc/go-rsrc/internal/block"
)

// ExportInline implements block.InlineXMLer: one Name element per library
// name, decoded under mac_roman.
func (b *Block) ExportInline(parsed interface{}) ([]*block.Element, error) {
	info, ok := parsed.(*Info)
	if !ok {
		return nil, errors.New("libn: not parsed content")
	}
	out := make([]*block.Element, 0, len(info.Names))
	for _, n := range info.Names {
		text, err := charmap.Macintosh.NewDecoder().Bytes([]byte(n))
		if err != nil {
			return nil, errors.Wrap(err, "libn: mac_roman decode")
		}
		el := block.NewElement("Name")
		el.Text = string(text)
		out = append(out, el)
	}
	return out, nil
}

// ImportInline implements block.InlineXMLer; exact inverse of
// ExportInline.
func (b *Block) ImportInline(children []*block.Element) (interface{}, error) {
	info := &Info{}
	for _, el := range children {
		if el.Tag != "Name" {
			return nil, errors.Wrapf(block.ErrXMLSchemaViolation, "libn: unexpected <%s>", el.Tag)
		}
		raw, err := charmap.Macintosh.NewEncoder().Bytes([]byte(el.Text))
		if err != nil {
			return nil, errors.Wrap(block.ErrXMLSchemaViolation, "libn: name not mac_roman-encodable")
		}
		info.Names = append(info.Names, string(raw))
	}
	return info, nil
}
