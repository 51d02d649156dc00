// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dthp

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/lvrsrc/go-rsrc/internal/block"
)

// ExportInline implements block.InlineXMLer: a single TypeDescSlice
// element with the count and shift.
func (b *Block) ExportInline(parsed interface{}) ([]*block.Element, error) {
	info, ok := parsed.(*Info)
	if !ok {
		return nil, errors.New("dthp: not parsed content")
	}
	el := block.NewElement("TypeDescSlice")
	el.SetAttr("IndexShift", strconv.FormatUint(uint64(info.IndexShift), 10))
	el.SetAttr("Count", strconv.FormatUint(uint64(info.TdCount), 10))
	return []*block.Element{el}, nil
}

// ImportInline implements block.InlineXMLer; exact inverse of
// ExportInline.
func (b *Block) ImportInline(children []*block.Element) (interface{}, error) {
	if len(children) != 1 || children[0].Tag != "TypeDescSlice" {
		return nil, errors.Wrap(block.ErrXMLSchemaViolation, "dthp: want a single <TypeDescSlice>")
	}
	el := children[0]
	info := &Info{}
	if v, ok := el.Attr("Count"); ok {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return nil, errors.Wrapf(block.ErrXMLSchemaViolation, "dthp: Count %q", v)
		}
		info.TdCount = uint32(n)
	}
	if v, ok := el.Attr("IndexShift"); ok {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return nil, errors.Wrapf(block.ErrXMLSchemaViolation, "dthp: IndexShift %q", v)
		}
		info.IndexShift = uint32(n)
	}
	return info, nil
}
