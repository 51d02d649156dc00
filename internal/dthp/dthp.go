// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dthp implements the Data Types for Heap block: the starting
// index and count of the VCTP slice used by the front-panel and
// block-diagram heaps. The slice sits at the end of VCTP, so
// indexShift+tdCount equals the total top-level type count, which is the
// same quantity the type map (TM80) derives from its own indexShift and
// entry count — the two blocks carry it independently and are checked
// against each other after parse.
package dthp

import (
	"github.com/pkg/errors"

	"github.com/lvrsrc/go-rsrc/internal/block"
	"github.com/lvrsrc/go-rsrc/internal/byteio"
	"github.com/lvrsrc/go-rsrc/internal/codec"
	"github.com/lvrsrc/go-rsrc/internal/typemap"
	"github.com/lvrsrc/go-rsrc/internal/vers"
)

// Ident is the four-byte block identifier.
const Ident = "DTHP"

// Info is the parsed content of a DTHP section. TdCount of zero means the
// heaps reference no types; the shift is then absent on the wire.
type Info struct {
	TdCount    uint32
	IndexShift uint32

	// Consistent reports whether the cross-check against the type map
	// held. Zero value is false until Integrate runs; a file without a
	// type map leaves it false as well.
	Consistent bool
}

// Block is the DTHP block implementation.
type Block struct {
	block.Base
}

// New constructs an empty DTHP Block ready to receive sections.
func New() *Block {
	b := &Block{Base: block.Base{IdentCode: Ident, Sections: map[int32]*block.Section{}}}
	b.Impl = b
	return b
}

// ParseRaw implements block.Parser: a variable-width tdCount, then a
// variable-width indexShift present only when tdCount > 0. LV14 still
// emits padding where the shift would sit, which lands in the section's
// 4-byte alignment slack rather than the payload, so the payload itself
// ends after the count.
func (b *Block) ParseRaw(_ *block.Section, raw []byte) (interface{}, error) {
	count, off, err := byteio.ReadVarU(raw, 0)
	if err != nil {
		return nil, errors.Wrap(err, "dthp: tdCount")
	}
	info := &Info{TdCount: count}
	if count > 0 {
		shift, next, err := byteio.ReadVarU(raw, off)
		if err != nil {
			return nil, errors.Wrap(err, "dthp: indexShift")
		}
		info.IndexShift = shift
		off = next
	}
	if off != len(raw) {
		return nil, errors.Wrapf(block.ErrParseShort, "dthp: %d trailing bytes", len(raw)-off)
	}
	return info, nil
}

// PrepareRaw implements block.Parser; deterministic inverse of ParseRaw.
func (b *Block) PrepareRaw(parsed interface{}) ([]byte, error) {
	info := parsed.(*Info)
	out := byteio.PutVarU(info.TdCount)
	if info.TdCount > 0 {
		out = append(out, byteio.PutVarU(info.IndexShift)...)
	}
	return out, nil
}

// ExpectedSize implements block.Parser's self-check.
func (b *Block) ExpectedSize(parsed interface{}) (int, bool) {
	info := parsed.(*Info)
	size := byteio.SizeVarU(info.TdCount)
	if info.TdCount > 0 {
		size += byteio.SizeVarU(info.IndexShift)
	}
	return size, true
}

// DefaultEncoding implements block.Parser: DTHP is a small record, always
// stored uncompressed.
func (b *Block) DefaultEncoding(_ *block.Section, _ vers.Tuple) codec.Tag {
	return codec.None
}

// Integrate implements block.Integrator: cross-checks indexShift+tdCount
// against the type map's own indexShift+count. The two blocks record the
// heap-facing top-level type count independently; a mismatch marks the
// section inconsistent but is not fatal — the bytes still round-trip.
func (b *Block) Integrate(lookup block.PeerLookup) error {
	sec := b.DefaultSection()
	if sec == nil {
		return nil
	}
	info, ok := sec.Parsed().(*Info)
	if !ok {
		return nil
	}
	tmBlock, ok := lookup.Block(typemap.IdentTM80)
	if !ok {
		tmBlock, ok = lookup.Block(typemap.IdentDSTM)
	}
	if !ok {
		return nil
	}
	tsec := tmBlock.DefaultSection()
	if tsec == nil {
		return nil
	}
	tinfo, ok := tsec.Parsed().(*typemap.Info)
	if !ok {
		return nil
	}
	info.Consistent = info.IndexShift+info.TdCount == tinfo.MaxTypeID()
	return nil
}
