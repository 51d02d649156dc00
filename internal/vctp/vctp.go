// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vctp

import (
	"github.com/pkg/errors"

	"github.com/lvrsrc/go-rsrc/internal/block"
	"github.com/lvrsrc/go-rsrc/internal/byteio"
	"github.com/lvrsrc/go-rsrc/internal/codec"
	"github.com/lvrsrc/go-rsrc/internal/vers"
)

// Ident is the four-byte block identifier for the Consolidated Type Table.
const Ident = "VCTP"

// dsInitRepeats is the fixed size of the DSInit repeated-block.
const dsInitRepeats = 51

// Info is the parsed content of a VCTP section: the flat TypeDesc array
// plus the top-level index list.
type Info struct {
	Flat     []*TypeDesc
	TopLevel []uint32
}

// Block is the VCTP block implementation.
type Block struct {
	block.Base
}

// New constructs an empty VCTP Block ready to receive sections.
func New() *Block {
	b := &Block{Base: block.Base{IdentCode: Ident, Sections: map[int32]*block.Section{}}}
	b.Impl = b
	return b
}

// ParseRaw implements block.Parser: a 32-bit count, count back-to-back
// TypeDescs, then a variable-size-prefixed top-level index list.
func (b *Block) ParseRaw(_ *block.Section, raw []byte) (interface{}, error) {
	count, err := byteio.ReadBEU32(raw, 0)
	if err != nil {
		return nil, errors.Wrap(err, "vctp: flat count")
	}
	off := 4
	flat := make([]*TypeDesc, 0, count)
	for i := 0; i < int(count); i++ {
		td, next, err := ParseTypeDesc(raw, off, i)
		if err != nil {
			return nil, errors.Wrapf(err, "vctp: TypeDesc[%d]", i)
		}
		flat = append(flat, td)
		off = next
	}

	topCount, next, err := byteio.ReadVarU(raw, off)
	if err != nil {
		return nil, errors.Wrap(err, "vctp: top-level count")
	}
	off = next
	top := make([]uint32, 0, topCount)
	for i := 0; i < int(topCount); i++ {
		v, next, err := byteio.ReadVarU(raw, off)
		if err != nil {
			return nil, errors.Wrapf(err, "vctp: top-level[%d]", i)
		}
		top = append(top, v)
		off = next
	}

	if off != len(raw) {
		return nil, errors.Wrapf(block.ErrParseShort, "vctp: %d trailing bytes", len(raw)-off)
	}

	// Every top-level index must resolve inside the flat array.
	for i, idx := range top {
		if int(idx) >= len(flat) {
			return nil, errors.Errorf("vctp: top-level[%d] index %d >= flat count %d", i, idx, len(flat))
		}
	}

	return &Info{Flat: flat, TopLevel: top}, nil
}

// PrepareRaw implements block.Parser; deterministic inverse of ParseRaw.
func (b *Block) PrepareRaw(parsed interface{}) ([]byte, error) {
	info := parsed.(*Info)
	out := byteio.ToBigEndian32(uint32(len(info.Flat)))
	for i, td := range info.Flat {
		tdBytes, err := PrepareTypeDesc(td)
		if err != nil {
			return nil, errors.Wrapf(err, "TypeDesc[%d]", i)
		}
		out = append(out, tdBytes...)
	}
	out = append(out, byteio.PutVarU(uint32(len(info.TopLevel)))...)
	for _, idx := range info.TopLevel {
		out = append(out, byteio.PutVarU(idx)...)
	}
	return out, nil
}

// ExpectedSize implements block.Parser. The flat TypeDesc region has no
// cheap closed-form length (each TypeDesc's own length is self-describing
// but summing them requires walking the tree), so VCTP opts out of the
// self-check the way DFDS does: there is no independent expected-size
// formula to check against.
func (b *Block) ExpectedSize(interface{}) (int, bool) { return 0, false }

// DefaultEncoding implements block.Parser: VCTP is zlib-compressed from
// LabVIEW 8.0 onward.
func (b *Block) DefaultEncoding(_ *block.Section, fileVersion vers.Tuple) codec.Tag {
	if vers.GreaterOrEqual(fileVersion, 8, 0, 0) {
		return codec.Zlib
	}
	return codec.None
}

// GetTopType resolves a 1-based top-level index to its TypeDesc, or nil if
// idx is out of range.
func (info *Info) GetTopType(idx int) *TypeDesc {
	if idx < 1 || idx-1 >= len(info.TopLevel) {
		return nil
	}
	flatIdx := info.TopLevel[idx-1]
	return info.GetFlatType(int(flatIdx))
}

// GetFlatType resolves a flat-array index directly, or nil if out of range.
func (info *Info) GetFlatType(flatIdx int) *TypeDesc {
	if flatIdx < 0 || flatIdx >= len(info.Flat) {
		return nil
	}
	return info.Flat[flatIdx]
}

// TerminalCounts walks iface's direct children and counts how many
// classify as numeric, string, and path, the (nN, nS, nP) triple the
// BDPW salt is derived from.
func TerminalCounts(iface *TypeDesc) (numeric, str, path int) {
	for _, c := range iface.Children {
		switch {
		case c.Kind.IsNumeric():
			numeric++
		case c.Kind.IsString():
			str++
		case c.Kind.IsPath():
			path++
		}
	}
	return numeric, str, path
}

// FunctionTypeDescs returns every KindFunction TypeDesc in the flat array,
// in flat-index order — the candidate set the BDPW salt scan reverses over.
func (info *Info) FunctionTypeDescs() []*TypeDesc {
	var out []*TypeDesc
	for _, td := range info.Flat {
		if td.Kind == KindFunction {
			out = append(out, td)
		}
	}
	return out
}

// Integrate implements block.Integrator: attaches purpose comments to
// well-known shapes for XML readability.
// This never changes wire bytes — Purpose and FillComments are metadata
// only. The shapes recognizable from VCTP alone are handled here; tables
// whose identity is encoded inside the DSInit default fill (probe table,
// hilite index table, subVI patches) are resolved by DFDS's integration,
// which has the fill values in hand.
func (b *Block) Integrate(lookup block.PeerLookup) error {
	sec := b.DefaultSection()
	if sec == nil {
		return nil
	}
	info, ok := sec.Parsed().(*Info)
	if !ok {
		return nil
	}

	if dsInit := info.FindDSInit(); dsInit != nil {
		dsInit.Purpose = "DSInit settings array"
		dsInit.FillComments = make(map[int]string, dsInitRepeats)
		for i, name := range dsInitSlotNames {
			dsInit.FillComments[i] = name
		}
	}

	if table, elem := info.findDCOTable(); table != nil {
		table.Purpose = "Table of Front Panel DCOs"
		elem.Purpose = "Front Panel DCO definition"
		elem.FillComments = make(map[int]string, len(elem.Children))
		for i := range elem.Children {
			elem.FillComments[i] = dcoFieldKinds[i].name
		}
	}
	return nil
}
