// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package libn implements the Library Names block: a short list of the
// library/VI names BDPW's hash_1 depends on.
package libn

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/lvrsrc/go-rsrc/internal/block"
	"github.com/lvrsrc/go-rsrc/internal/byteio"
	"github.com/lvrsrc/go-rsrc/internal/codec"
	"github.com/lvrsrc/go-rsrc/internal/vers"
)

// Ident is the four-byte block identifier.
const Ident = "LIBN"

// Info is the parsed content of a LIBN section: a simple name list.
type Info struct {
	Names []string
}

// Joined returns the names joined with ':', the way BDPW's hash_1
// consumes them.
func (info *Info) Joined() string {
	return strings.Join(info.Names, ":")
}

// Block is the LIBN block implementation.
type Block struct {
	block.Base
}

// New constructs an empty LIBN Block ready to receive sections.
func New() *Block {
	b := &Block{Base: block.Base{IdentCode: Ident, Sections: map[int32]*block.Section{}}}
	b.Impl = b
	return b
}

// ParseRaw implements block.Parser: a 4-byte count followed by that many
// 1-byte-length-prefixed names.
func (b *Block) ParseRaw(_ *block.Section, raw []byte) (interface{}, error) {
	count, err := byteio.ReadBEU32(raw, 0)
	if err != nil {
		return nil, errors.Wrap(err, "libn: count")
	}
	off := 4
	names := make([]string, 0, count)
	for i := uint32(0); i < count; i++ {
		name, next, err := byteio.ReadPString(raw, off)
		if err != nil {
			return nil, errors.Wrapf(err, "libn: name %d", i)
		}
		names = append(names, string(name))
		off = next
	}
	if off != len(raw) {
		return nil, errors.Wrapf(block.ErrParseShort, "libn: %d trailing bytes", len(raw)-off)
	}
	return &Info{Names: names}, nil
}

// PrepareRaw implements block.Parser; deterministic inverse of ParseRaw.
func (b *Block) PrepareRaw(parsed interface{}) ([]byte, error) {
	info := parsed.(*Info)
	out := byteio.ToBigEndian32(uint32(len(info.Names)))
	for _, n := range info.Names {
		out = append(out, byteio.PutPString([]byte(n))...)
	}
	return out, nil
}

// ExpectedSize implements block.Parser.
func (b *Block) ExpectedSize(parsed interface{}) (int, bool) {
	info := parsed.(*Info)
	size := 4
	for _, n := range info.Names {
		size += 1 + len(n)
	}
	return size, true
}

// DefaultEncoding implements block.Parser: LIBN is always stored
// uncompressed, like other small name/record blocks.
func (b *Block) DefaultEncoding(_ *block.Section, _ vers.Tuple) codec.Tag {
	return codec.None
}
