// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package typemap implements the Type Map block: a variable-width count,
// a variable-width indexShift, then count variable-width flag words,
// mapping a contiguous range of logical type ids to VCTP top-level types
// (1-based top-level indices).
package typemap

import (
	"github.com/pkg/errors"

	"github.com/lvrsrc/go-rsrc/internal/block"
	"github.com/lvrsrc/go-rsrc/internal/byteio"
	"github.com/lvrsrc/go-rsrc/internal/codec"
	"github.com/lvrsrc/go-rsrc/internal/vctp"
	"github.com/lvrsrc/go-rsrc/internal/vers"
)

// IdentTM80 and IdentDSTM are the two identifiers sharing this
// implementation. DSTM is the pre-8.0 predecessor; TM80 is
// used from LabVIEW 8.0 onward.
const (
	IdentTM80 = "TM80"
	IdentDSTM = "DSTM"
)

// Flag is the per-entry bit-enum gating DFDS contribution and special
// cluster semantics. The meanings of bits 1, 7, 8, and 12 are not
// characterized by any known file: preserved verbatim, never interpreted.
type Flag uint32

const (
	TMFBit0 Flag = 1 << iota
	TMFBit1
	TMFBit2
	TMFBit3
	TMFBit4
	TMFBit5
	TMFBit6
	TMFBit7
	TMFBit8
	TMFBit9
	TMFBit10
	TMFBit11
	TMFBit12
	TMFBit13
)

// Entry is one type-map slot: a logical type id (IndexShift+i), a 1-based
// VCTP top-level index, its flag word, and (after Integrate) the VCTP
// TypeDesc it resolves to.
type Entry struct {
	Index uint32
	Flags Flag
	TD    *vctp.TypeDesc
}

// Info is the parsed content of a TM80/DSTM section.
type Info struct {
	IndexShift uint32
	Entries    []Entry
}

// Block is the TM80/DSTM block implementation.
type Block struct {
	block.Base
	ident string
}

// New constructs an empty Block for the given identifier (IdentTM80 or
// IdentDSTM).
func New(ident string) *Block {
	b := &Block{Base: block.Base{IdentCode: ident, Sections: map[int32]*block.Section{}}, ident: ident}
	b.Impl = b
	return b
}

// ParseRaw implements block.Parser.
func (b *Block) ParseRaw(_ *block.Section, raw []byte) (interface{}, error) {
	count, off, err := byteio.ReadVarU(raw, 0)
	if err != nil {
		return nil, errors.Wrap(err, "typemap: count")
	}
	info := &Info{}
	if count > 0 {
		shift, next, err := byteio.ReadVarU(raw, off)
		if err != nil {
			return nil, errors.Wrap(err, "typemap: indexShift")
		}
		info.IndexShift = shift
		off = next
	}
	info.Entries = make([]Entry, 0, count)
	for i := 0; i < int(count); i++ {
		val, next, err := byteio.ReadVarU(raw, off)
		if err != nil {
			return nil, errors.Wrapf(err, "typemap: entry %d", i)
		}
		info.Entries = append(info.Entries, Entry{Index: info.IndexShift + uint32(i), Flags: Flag(val)})
		off = next
	}
	if off != len(raw) {
		return nil, errors.Wrapf(block.ErrParseShort, "typemap: %d trailing bytes", len(raw)-off)
	}
	return info, nil
}

// PrepareRaw implements block.Parser; deterministic inverse of ParseRaw.
func (b *Block) PrepareRaw(parsed interface{}) ([]byte, error) {
	info := parsed.(*Info)
	out := byteio.PutVarU(uint32(len(info.Entries)))
	if len(info.Entries) > 0 {
		out = append(out, byteio.PutVarU(info.IndexShift)...)
	}
	for _, e := range info.Entries {
		out = append(out, byteio.PutVarU(uint32(e.Flags))...)
	}
	return out, nil
}

// ExpectedSize implements block.Parser's self-check.
func (b *Block) ExpectedSize(parsed interface{}) (int, bool) {
	info := parsed.(*Info)
	size := byteio.SizeVarU(uint32(len(info.Entries)))
	if len(info.Entries) > 0 {
		size += byteio.SizeVarU(info.IndexShift)
	}
	for _, e := range info.Entries {
		size += byteio.SizeVarU(uint32(e.Flags))
	}
	return size, true
}

// DefaultEncoding implements block.Parser. TM80 is zlib from 10.0 onward;
// DSTM (pre-8.0) is always uncompressed.
func (b *Block) DefaultEncoding(_ *block.Section, fileVersion vers.Tuple) codec.Tag {
	if b.ident == IdentTM80 && vers.GreaterOrEqual(fileVersion, 10, 0, 0) {
		return codec.Zlib
	}
	return codec.None
}

// MinTypeID and MaxTypeID bound the contiguous logical-id range this
// section maps.
func (info *Info) MinTypeID() uint32 { return info.IndexShift }
func (info *Info) MaxTypeID() uint32 { return info.IndexShift + uint32(len(info.Entries)) }

// Integrate implements block.Integrator: resolves each entry's VCTP
// TypeDesc by logical index. The logical
// index is passed to GetTopType unmodified, matching cpc2.Block.Integrate.
func (b *Block) Integrate(lookup block.PeerLookup) error {
	sec := b.DefaultSection()
	if sec == nil {
		return nil
	}
	info, ok := sec.Parsed().(*Info)
	if !ok {
		return nil
	}
	vctpBlock, ok := lookup.Block(vctp.Ident)
	if !ok {
		return errors.Wrap(block.ErrCrossReferenceMissing, "typemap: VCTP block missing")
	}
	vsec := vctpBlock.DefaultSection()
	if vsec == nil {
		return errors.Wrap(block.ErrCrossReferenceMissing, "typemap: VCTP has no sections")
	}
	vinfo, ok := vsec.Parsed().(*vctp.Info)
	if !ok {
		return errors.Wrap(block.ErrCrossReferenceMissing, "typemap: VCTP not parsed")
	}
	for i := range info.Entries {
		info.Entries[i].TD = vinfo.GetTopType(int(info.Entries[i].Index))
	}
	return nil
}
