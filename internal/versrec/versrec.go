// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package versrec implements the `vers` version-record block. The pure
// version tuple codec and comparisons live in internal/vers, which the
// block framework itself depends on; this package carries only the
// section parse/prepare logic around it.
package versrec

import (
	"github.com/pkg/errors"

	"github.com/lvrsrc/go-rsrc/internal/block"
	"github.com/lvrsrc/go-rsrc/internal/byteio"
	"github.com/lvrsrc/go-rsrc/internal/codec"
	"github.com/lvrsrc/go-rsrc/internal/vers"
)

// Ident is the four-byte block identifier for the version record.
const Ident = "vers"

// Info is the parsed content of a `vers` section: the version tuple plus
// three Pascal-string fields stored alongside it.
// The wire layout is a 4-byte version dword, a P-string version_text,
// one always-zero length byte of undocumented purpose, a P-string
// version_info, and a P-string comment.
type Info struct {
	Version vers.Tuple
	Text    []byte
	VerInfo []byte
	Comment []byte
}

// Block is the `vers` block implementation. It embeds block.Base and sets
// Impl to itself, the self-reference dispatch pattern every concrete block
// in this module follows (see internal/block.Base doc comment).
type Block struct {
	block.Base
}

// New constructs an empty vers Block ready to receive sections from the
// container reader.
func New() *Block {
	b := &Block{Base: block.Base{IdentCode: Ident, Sections: map[int32]*block.Section{}}}
	b.Impl = b
	return b
}

// ParseRaw implements block.Parser.
func (b *Block) ParseRaw(_ *block.Section, raw []byte) (interface{}, error) {
	dword, err := byteio.ReadBEU32(raw, 0)
	if err != nil {
		return nil, errors.Wrap(err, "vers: version dword")
	}
	off := 4

	text, next, err := byteio.ReadPString(raw, off)
	if err != nil {
		return nil, errors.Wrap(err, "vers: version_text")
	}
	off = next

	zero, err := byteio.ReadU8(raw, off)
	if err != nil {
		return nil, errors.Wrap(err, "vers: reserved length byte")
	}
	if zero != 0 {
		return nil, errors.Errorf("vers: reserved length byte is %d, want 0", zero)
	}
	off++

	info, next, err := byteio.ReadPString(raw, off)
	if err != nil {
		return nil, errors.Wrap(err, "vers: version_info")
	}
	off = next

	comment, next, err := byteio.ReadPString(raw, off)
	if err != nil {
		return nil, errors.Wrap(err, "vers: comment")
	}
	off = next

	if off != len(raw) {
		return nil, errors.Wrapf(block.ErrParseShort, "vers: %d trailing bytes", len(raw)-off)
	}

	return &Info{
		Version: vers.Decode(dword),
		Text:    append([]byte(nil), text...),
		VerInfo: append([]byte(nil), info...),
		Comment: append([]byte(nil), comment...),
	}, nil
}

// PrepareRaw implements block.Parser; deterministic inverse of ParseRaw.
func (b *Block) PrepareRaw(parsed interface{}) ([]byte, error) {
	v := parsed.(*Info)
	out := byteio.ToBigEndian32(vers.Encode(v.Version))
	out = append(out, byteio.PutPString(v.Text)...)
	out = append(out, 0)
	out = append(out, byteio.PutPString(v.VerInfo)...)
	out = append(out, byteio.PutPString(v.Comment)...)
	return out, nil
}

// ExpectedSize implements block.Parser.
func (b *Block) ExpectedSize(parsed interface{}) (int, bool) {
	v := parsed.(*Info)
	return 4 + 1 + len(v.Text) + 1 + 1 + len(v.VerInfo) + 1 + len(v.Comment), true
}

// DefaultEncoding implements block.Parser: `vers` is always stored
// uncompressed.
func (b *Block) DefaultEncoding(_ *block.Section, _ vers.Tuple) codec.Tag {
	return codec.None
}

// Version returns the version tuple from the block's default section,
// parsing it first if needed. Returns the zero Tuple if the section has
// not been (and cannot be) parsed.
func (b *Block) Version() vers.Tuple {
	sec := b.DefaultSection()
	if sec == nil {
		return vers.Tuple{}
	}
	if sec.State() < block.Parsed {
		if err := b.Parse(sec, vers.Tuple{}); err != nil {
			return vers.Tuple{}
		}
	}
	info, ok := sec.Parsed().(*Info)
	if !ok {
		return vers.Tuple{}
	}
	return info.Version
}
