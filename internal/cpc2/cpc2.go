// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cpc2 implements the Connector Pane Content Type blocks, CPC2 and
// its legacy predecessor CPCT. Both idents share one wire layout — a single
// big-endian top-level TypeDesc index into VCTP — so one implementation
// covers both. That index names the Function TypeDesc BDPW's salt
// discovery scans for.
package cpc2

import (
	"github.com/pkg/errors"

	"github.com/lvrsrc/go-rsrc/internal/block"
	"github.com/lvrsrc/go-rsrc/internal/byteio"
	"github.com/lvrsrc/go-rsrc/internal/codec"
	"github.com/lvrsrc/go-rsrc/internal/vctp"
	"github.com/lvrsrc/go-rsrc/internal/vers"
)

// IdentCPC2 and IdentCPCT are the two four-byte block identifiers covered
// by this package.
const (
	IdentCPC2 = "CPC2"
	IdentCPCT = "CPCT"
)

// Info is the parsed content of a CPC2/CPCT section.
type Info struct {
	// TopLevelIndex is the raw on-wire VCTP top-level index, before the off-by-one VCTP itself applies
	// when resolving via GetTopType.
	TopLevelIndex uint16
	// TD is filled in by Integrate once VCTP has resolved it; nil until
	// then.
	TD *vctp.TypeDesc
}

// Block is the CPC2/CPCT block implementation. The same type serves both
// idents; New takes the ident to register under.
type Block struct {
	block.Base
}

// New constructs an empty Block for the given ident ("CPC2" or "CPCT").
func New(ident string) *Block {
	b := &Block{Base: block.Base{IdentCode: ident, Sections: map[int32]*block.Section{}}}
	b.Impl = b
	return b
}

// ParseRaw implements block.Parser.
func (b *Block) ParseRaw(_ *block.Section, raw []byte) (interface{}, error) {
	if len(raw) < 2 {
		return nil, errors.Wrapf(block.ErrParseExceeded, "%s: %d bytes, want >= 2", b.IdentCode, len(raw))
	}
	idx, err := byteio.ReadBEU16(raw, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: top-level index", b.IdentCode)
	}
	if len(raw) > 2 {
		return nil, errors.Wrapf(block.ErrParseShort, "%s: %d trailing bytes", b.IdentCode, len(raw)-2)
	}
	return &Info{TopLevelIndex: idx}, nil
}

// PrepareRaw implements block.Parser; deterministic inverse of ParseRaw.
func (b *Block) PrepareRaw(parsed interface{}) ([]byte, error) {
	info := parsed.(*Info)
	return byteio.ToBigEndian16(info.TopLevelIndex), nil
}

// ExpectedSize implements block.Parser.
func (b *Block) ExpectedSize(interface{}) (int, bool) { return 2, true }

// DefaultEncoding implements block.Parser: stored uncompressed, like other
// small index records.
func (b *Block) DefaultEncoding(_ *block.Section, _ vers.Tuple) codec.Tag {
	return codec.None
}

// Integrate implements block.Integrator: resolves TopLevelIndex against
// VCTP so callers (chiefly BDPW's salt discovery) get the Function
// TypeDesc directly rather than re-resolving the index themselves.
func (b *Block) Integrate(lookup block.PeerLookup) error {
	vctpBlock, ok := lookup.Block(vctp.Ident)
	if !ok {
		return errors.Wrapf(block.ErrCrossReferenceMissing, "%s: no VCTP block", b.IdentCode)
	}
	vsec := vctpBlock.DefaultSection()
	if vsec == nil {
		return errors.Wrapf(block.ErrCrossReferenceMissing, "%s: VCTP has no sections", b.IdentCode)
	}
	vinfo, ok := vsec.Parsed().(*vctp.Info)
	if !ok {
		return errors.Wrapf(block.ErrCrossReferenceMissing, "%s: VCTP not parsed", b.IdentCode)
	}
	for _, sec := range b.Sections {
		info, ok := sec.Parsed().(*Info)
		if !ok {
			continue
		}
		if td := vinfo.GetTopType(int(info.TopLevelIndex)); td != nil {
			info.TD = td
		}
	}
	return nil
}
