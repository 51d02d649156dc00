// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dfds

import (
	"github.com/pkg/errors"

	"github.com/lvrsrc/go-rsrc/internal/block"
	"github.com/lvrsrc/go-rsrc/internal/codec"
	"github.com/lvrsrc/go-rsrc/internal/typemap"
	"github.com/lvrsrc/go-rsrc/internal/vctp"
	"github.com/lvrsrc/go-rsrc/internal/vers"
)

// Ident is the four-byte block identifier for the Default Fill of Data
// Space.
const Ident = "DFDS"

// FillEntry is one contributing type-map entry's decoded default fill.
type FillEntry struct {
	Index   uint32
	Flags   typemap.Flag
	TD      *vctp.TypeDesc
	Special bool
	Fill    *Fill
}

// Info is the parsed content of a DFDS section. Raw holds the plain bytes
// as ParseRaw sees them; Entries is nil until Integrate has resolved the
// peer TM80/VCTP view and walked the fills.
type Info struct {
	Raw     []byte
	Entries []FillEntry
}

// Block is the DFDS block implementation.
type Block struct {
	block.Base
}

// New constructs an empty DFDS Block ready to receive sections.
func New() *Block {
	b := &Block{Base: block.Base{IdentCode: Ident, Sections: map[int32]*block.Section{}}}
	b.Impl = b
	return b
}

// ParseRaw implements block.Parser. The real decode needs TM80's entries
// and VCTP's TypeDescs, neither of which ParseRaw has access to, so it
// only stashes the plain bytes; Integrate fills in Entries.
func (b *Block) ParseRaw(_ *block.Section, raw []byte) (interface{}, error) {
	return &Info{Raw: append([]byte(nil), raw...)}, nil
}

// PrepareRaw implements block.Parser. If Integrate never ran (e.g. the
// section round-trips untouched before any peer resolution), the original
// bytes are still the correct output.
func (b *Block) PrepareRaw(parsed interface{}) ([]byte, error) {
	info := parsed.(*Info)
	if info.Entries == nil {
		return append([]byte(nil), info.Raw...), nil
	}
	var out []byte
	for _, e := range info.Entries {
		var fb []byte
		var err error
		if e.Special {
			fb, err = prepareSpecialClusterFill(e.Fill, e.TD)
		} else {
			fb, err = prepareFill(e.Fill, e.TD)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "dfds: entry %d", e.Index)
		}
		out = append(out, fb...)
	}
	return out, nil
}

// ExpectedSize implements block.Parser. Like VCTP, DFDS has no independent
// closed-form length (summing fills requires walking the same tree
// PrepareRaw already walks), so it opts out of the self-check.
func (b *Block) ExpectedSize(interface{}) (int, bool) { return 0, false }

// DefaultEncoding implements block.Parser: DFDS is zlib-compressed from
// LabVIEW 8.0 onward.
func (b *Block) DefaultEncoding(_ *block.Section, fileVersion vers.Tuple) codec.Tag {
	if vers.GreaterOrEqual(fileVersion, 8, 0, 0) {
		return codec.Zlib
	}
	return codec.None
}

// Integrate implements block.Integrator: resolves the type map (TM80 or
// DSTM, whichever is present) and VCTP, then walks each contributing
// entry's default fill. It must run after both peer blocks'
// own Integrate has resolved their TypeDesc pointers.
func (b *Block) Integrate(lookup block.PeerLookup) error {
	tmBlock, ok := lookup.Block(typemap.IdentTM80)
	if !ok {
		tmBlock, ok = lookup.Block(typemap.IdentDSTM)
	}
	if !ok {
		return errors.Wrap(block.ErrCrossReferenceMissing, "dfds: no TM80/DSTM block")
	}
	tsec := tmBlock.DefaultSection()
	if tsec == nil {
		return errors.Wrap(block.ErrCrossReferenceMissing, "dfds: type map has no sections")
	}
	tinfo, ok := tsec.Parsed().(*typemap.Info)
	if !ok {
		return errors.Wrap(block.ErrCrossReferenceMissing, "dfds: type map not parsed")
	}

	// The type table view is only needed for the DSInit table annotation;
	// fills decode through the TypeDesc pointers the type map's own
	// Integrate already resolved.
	var vinfo *vctp.Info
	if vctpBlock, ok := lookup.Block(vctp.Ident); ok {
		if vsec := vctpBlock.DefaultSection(); vsec != nil {
			vinfo, _ = vsec.Parsed().(*vctp.Info)
		}
	}

	for _, sec := range b.Sections {
		info, ok := sec.Parsed().(*Info)
		if !ok || sec.ParseFailed() {
			continue
		}
		entries, off, err := decodeFills(info.Raw, tinfo.Entries)
		if err != nil {
			sec.MarkParseFailed()
			continue
		}
		if off != len(info.Raw) {
			sec.MarkParseFailed()
			continue
		}
		info.Entries = entries
		if vinfo != nil {
			annotateDSInitTables(info, vinfo, tinfo)
		}
	}
	return nil
}

// decodeFills walks tmEntries in order, dispatching each to the
// contribution rule its flag word selects and consuming b accordingly.
func decodeFills(b []byte, tmEntries []typemap.Entry) ([]FillEntry, int, error) {
	off := 0
	var out []FillEntry
	for _, e := range tmEntries {
		if e.Flags&(typemap.TMFBit3|typemap.TMFBit10|typemap.TMFBit11) != 0 {
			continue
		}
		if e.TD == nil {
			continue
		}
		switch {
		case e.Flags&(typemap.TMFBit0|typemap.TMFBit13) != 0:
			f, next, err := parseFill(b, off, e.TD)
			if err != nil {
				return nil, off, errors.Wrapf(err, "entry %d", e.Index)
			}
			out = append(out, FillEntry{Index: e.Index, Flags: e.Flags, TD: e.TD, Fill: f})
			off = next
		case e.TD.Kind == vctp.KindCluster && e.Flags&(typemap.TMFBit2|typemap.TMFBit4|typemap.TMFBit5|typemap.TMFBit6) != 0:
			f, next, err := parseSpecialClusterFill(b, off, e.TD)
			if err != nil {
				return nil, off, errors.Wrapf(err, "entry %d special cluster", e.Index)
			}
			out = append(out, FillEntry{Index: e.Index, Flags: e.Flags, TD: e.TD, Special: true, Fill: f})
			off = next
		default:
			// No default value for this entry.
		}
	}
	return out, off, nil
}
