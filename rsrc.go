// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rsrc is the top-level facade over this module's block framework:
// it opens an RSRC container, drives every section through parse and the
// peer-resolution integrate pass in dependency order, and exposes the
// password-change transaction that crosses LVSR and BDPW.
package rsrc

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"

	"github.com/lvrsrc/go-rsrc/internal/bdpw"
	"github.com/lvrsrc/go-rsrc/internal/block"
	"github.com/lvrsrc/go-rsrc/internal/container"
	"github.com/lvrsrc/go-rsrc/internal/cpc2"
	"github.com/lvrsrc/go-rsrc/internal/dfds"
	"github.com/lvrsrc/go-rsrc/internal/dthp"
	"github.com/lvrsrc/go-rsrc/internal/lvsr"
	"github.com/lvrsrc/go-rsrc/internal/registry"
	"github.com/lvrsrc/go-rsrc/internal/typemap"
	"github.com/lvrsrc/go-rsrc/internal/vctp"
	"github.com/lvrsrc/go-rsrc/internal/vers"
)

// integrateOrder is the dependency order the peer-resolution pass must run
// in: VCTP has no dependencies; TM80/DSTM and CPC2/CPCT depend on VCTP;
// DFDS depends on whichever type map is present, which in turn depends on
// VCTP.
var integrateOrder = []string{
	vctp.Ident, typemap.IdentTM80, typemap.IdentDSTM, cpc2.IdentCPC2, cpc2.IdentCPCT,
	dthp.Ident, dfds.Ident,
}

// File is an opened RSRC resource fork: the parsed container plus the
// backing file kept open for the section-fetch closures that read from it
// on demand (internal/block.Section's lazy GetRaw).
type File struct {
	C *container.Container

	f io.Closer
}

// Open reads path's RSRC container, parses every section, and runs the
// integrate pass across VCTP -> TM80/DSTM/CPC2/CPCT -> DFDS, followed by
// BDPW's one-time salt discovery.
func Open(path string, opts container.Options) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "rsrc: open")
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "rsrc: stat")
	}
	c, err := container.Open(f, info.Size(), registry.New, opts)
	if err != nil {
		f.Close()
		return nil, err
	}
	rf := &File{C: c, f: f}
	if err := rf.parseAll(); err != nil {
		f.Close()
		return nil, err
	}
	return rf, nil
}

// Close releases the backing file.
func (rf *File) Close() error { return rf.f.Close() }

// parseAll parses every section of every block, then runs the Integrator
// pass. Reading the file version (rf.C.Version()) parses the `vers`
// block's default section as a side effect; `vers`'s own DefaultEncoding
// never depends on file version, which is what breaks the chicken-and-egg
// between "need the version to parse anything" and "the version lives in
// a block like any other".
func (rf *File) parseAll() error {
	fileVersion := rf.C.Version()
	for ident, b := range rf.C.Blocks {
		for _, idx := range b.SortedIndices() {
			sec := b.Sections[idx]
			if sec.State() >= block.Parsed {
				continue
			}
			if err := b.Parse(sec, fileVersion); err != nil {
				return errors.Wrapf(err, "rsrc: parse %s[%d]", ident, idx)
			}
		}
	}

	for _, ident := range integrateOrder {
		b, ok := rf.C.Blocks[ident]
		if !ok {
			continue
		}
		integ, ok := b.Impl.(block.Integrator)
		if !ok {
			continue
		}
		if err := integ.Integrate(rf.C); err != nil {
			return errors.Wrapf(err, "rsrc: integrate %s", ident)
		}
	}

	if pwBlock, ok := rf.C.Blocks[bdpw.Ident]; ok {
		if pw, ok := pwBlock.Impl.(*bdpw.Block); ok {
			if err := pw.DiscoverSalt(rf.C); err != nil {
				return errors.Wrap(err, "rsrc: bdpw discover salt")
			}
		}
	}
	return nil
}

// SetPassword changes the block-diagram password: it installs the new
// password hash on BDPW, clears LVSR's protected flag when the new
// password is empty and re-prepares LVSR, then recalculates BDPW's
// hash_1/hash_2 from the (possibly just-changed) LVSR bytes.
func (rf *File) SetPassword(password string) error {
	pwBlock, ok := rf.C.Blocks[bdpw.Ident]
	if !ok {
		return errors.New("rsrc: no BDPW block")
	}
	pw, ok := pwBlock.Impl.(*bdpw.Block)
	if !ok {
		return errors.New("rsrc: BDPW is not the concrete implementation")
	}
	sec := pw.DefaultSection()
	if sec == nil {
		return errors.New("rsrc: BDPW has no sections")
	}
	info, ok := sec.Parsed().(*bdpw.Info)
	if !ok {
		return errors.New("rsrc: BDPW not parsed")
	}
	info.SetPasswordText(password)
	sec.MarkDirty()

	if lvsrBlock, ok := rf.C.Blocks[lvsr.Ident]; ok {
		if lsec := lvsrBlock.DefaultSection(); lsec != nil {
			if linfo, ok := lsec.Parsed().(*lvsr.Info); ok {
				if password == "" {
					linfo.SetProtected(false)
					lsec.MarkDirty()
				}
				if err := lvsrBlock.Prepare(lsec); err != nil {
					return errors.Wrap(err, "rsrc: re-prepare LVSR")
				}
			}
		}
	}

	if err := pw.Finalize(rf.C); err != nil {
		return errors.Wrap(err, "rsrc: finalize BDPW hashes")
	}
	return nil
}

// Save re-serializes every parsed section and writes the full container to
// w, choosing the save-order rule from the file's own version.
func (rf *File) Save(w io.WriterAt) error {
	before7 := !vers.GreaterOrEqual(rf.C.Version(), 7, 0, 0)
	return rf.C.Save(w, before7)
}

// BlockSummary is one row of a container's block table, the shape
// cmd/rsrctool's `list` command prints.
type BlockSummary struct {
	Ident    string
	Sections int
}

// List returns every block in the order the container was read, the
// natural listing order.
func (rf *File) List() []BlockSummary {
	out := make([]BlockSummary, 0, len(rf.C.Order))
	for _, ident := range rf.C.Order {
		out = append(out, BlockSummary{Ident: ident, Sections: len(rf.C.Blocks[ident].Sections)})
	}
	return out
}

// Summary describes the container's file-level metadata, the shape
// cmd/rsrctool's `info` command prints.
type Summary struct {
	Type      container.FileType
	Extension string
	Version   vers.Tuple
	Blocks    int
}

// Info returns the container's file-level summary.
func (rf *File) Info() Summary {
	return Summary{
		Type:      rf.C.Header.Type,
		Extension: rf.C.Header.Type.Extension(),
		Version:   rf.C.Version(),
		Blocks:    len(rf.C.Order),
	}
}

// PrintMap writes every block's recorded parse map to w, in read order.
// Recording is enabled by opening the file with Options.Verbose > 0;
// otherwise there is nothing to print.
func (rf *File) PrintMap(w io.Writer) error {
	for _, ident := range rf.C.Order {
		b := rf.C.Blocks[ident]
		if len(b.PrintMap().Entries()) == 0 {
			continue
		}
		if _, err := fmt.Fprintf(w, "%s:\n", ident); err != nil {
			return errors.Wrap(err, "rsrc: print map")
		}
		if err := b.PrintMap().Fprint(w); err != nil {
			return errors.Wrap(err, "rsrc: print map")
		}
	}
	return nil
}

// SectionName decodes raw name-pool bytes under the mac_roman codepage
// LabVIEW resource forks default to, for display purposes only;
// the on-wire bytes themselves are never re-encoded through this path.
func SectionName(raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	out, err := charmap.Macintosh.NewDecoder().Bytes(raw)
	if err != nil {
		return "", errors.Wrap(err, "rsrc: mac_roman decode")
	}
	return string(out), nil
}
