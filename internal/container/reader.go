// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package container

import (
	"io"

	"github.com/pkg/errors"

	"github.com/lvrsrc/go-rsrc/internal/block"
	"github.com/lvrsrc/go-rsrc/internal/byteio"
	"github.com/lvrsrc/go-rsrc/internal/vers"
)

const (
	headerSize          = 32 // magic(6) + format(2) + type(4) + sig(4) + 4*offsets/sizes(4*4)
	listHeaderSize      = 20
	blockInfoHeaderSize = 4
	blockHeaderSize     = 12
	sectionStartSize    = 20
)

// Constructor builds an empty, concrete block.Base for ident, wired with
// its Impl (the pattern every package under internal/ follows: versrec.New,
// and eventually vctp.New/typemap.New/dfds.New/bdpw.New/registry's raw
// passthrough). Open takes one as a parameter instead of importing
// internal/registry directly, so internal/container never depends on the
// concrete block packages and those packages can freely depend back on
// internal/container's PeerLookup-shaped needs without a cycle.
type Constructor func(ident [4]byte) *block.Base

// Open reads an RSRC container from r, which must support random access.
// construct supplies a fresh block.Base for every 4-byte identifier
// encountered; raw section bytes are fetched lazily via closures over r,
// so Open reads no section payload except the `vers` block's default
// section, which it parses to learn the file version.
func Open(r io.ReaderAt, size int64, construct Constructor, opts Options) (*Container, error) {
	hdr, err := readHeaderChain(r, size)
	if err != nil {
		return nil, err
	}

	// The terminal header itself occupies headerSize bytes starting at
	// info_offset; the block info list header follows immediately after.
	listHeaderPos := int64(hdr.InfoOffset) + headerSize
	listBuf := make([]byte, listHeaderSize)
	if _, err := r.ReadAt(listBuf, listHeaderPos); err != nil {
		return nil, errors.Wrap(ErrMalformed, "block info list header read")
	}
	list, err := parseListHeader(listBuf)
	if err != nil {
		return nil, err
	}
	if list.BlockinfoOffset != listHeaderSize {
		return nil, errors.Wrapf(ErrMalformed, "blockinfo_offset %d != %d", list.BlockinfoOffset, listHeaderSize)
	}
	if list.RSRCInfoSize != headerSize {
		return nil, errors.Wrapf(ErrMalformed, "rsrc info size %d != header size %d", list.RSRCInfoSize, headerSize)
	}

	biBuf := make([]byte, blockInfoHeaderSize)
	biOffset := listHeaderPos + listHeaderSize
	if _, err := r.ReadAt(biBuf, biOffset); err != nil {
		return nil, errors.Wrap(ErrMalformed, "block info header read")
	}
	countMinusOne, err := byteio.ReadBEU32(biBuf, 0)
	if err != nil {
		return nil, errors.Wrap(ErrMalformed, "block info header decode")
	}
	if countMinusOne+1 > maxBlockCount {
		return nil, errors.Wrapf(ErrMalformed, "block count %d exceeds %d", countMinusOne+1, maxBlockCount)
	}
	count := int(countMinusOne) + 1

	blockHeadersOffset := biOffset + blockInfoHeaderSize
	c := &Container{
		Header:     hdr,
		ListHeader: list,
		Blocks:     make(map[string]*block.Base, count),
		Order:      make([]string, 0, count),
		Options:    opts,
	}

	type pendingBlock struct {
		ident [4]byte
		hdr   BlockHeader
	}
	pending := make([]pendingBlock, 0, count)
	for i := 0; i < count; i++ {
		buf := make([]byte, blockHeaderSize)
		if _, err := r.ReadAt(buf, blockHeadersOffset+int64(i)*blockHeaderSize); err != nil {
			return nil, errors.Wrapf(ErrMalformed, "block header %d read", i)
		}
		bh, err := parseBlockHeader(buf)
		if err != nil {
			return nil, err
		}
		pending = append(pending, pendingBlock{ident: bh.Ident, hdr: bh})
	}

	// Pass 1: read every block's section-start array, tracking the total
	// bytes they occupy so the name pool's base offset can be computed (the
	// pool sits immediately after the last section-start array).
	type sectionStarts struct {
		ident  [4]byte
		starts []BlockSectionStart
	}
	allStarts := make([]sectionStarts, 0, count)
	var sectionStartsTotal int64
	for _, pb := range pending {
		sectionCount := int(pb.hdr.SectionCountMinusOne) + 1
		arrayOffset := biOffset + int64(pb.hdr.SectionStartArrayOffset)
		starts := make([]BlockSectionStart, 0, sectionCount)
		for s := 0; s < sectionCount; s++ {
			buf := make([]byte, sectionStartSize)
			pos := arrayOffset + int64(s)*sectionStartSize
			if _, err := r.ReadAt(buf, pos); err != nil {
				return nil, errors.Wrapf(ErrMalformed, "%s section-start %d read", string(pb.ident[:]), s)
			}
			ss, err := parseSectionStart(buf)
			if err != nil {
				return nil, err
			}
			starts = append(starts, ss)
			sectionStartsTotal += sectionStartSize
		}
		allStarts = append(allStarts, sectionStarts{ident: pb.ident, starts: starts})
	}

	// namesBase = start of the block-info-header, plus the block-info-header
	// itself, plus every block header, plus every section-start array.
	namesBase := biOffset + blockInfoHeaderSize + int64(count)*blockHeaderSize + sectionStartsTotal

	// Pass 2: materialize blocks and sections, resolving each section's
	// name against namesBase.
	for _, group := range allStarts {
		identStr := string(group.ident[:])
		b := construct(group.ident)
		if opts.Verbose > 0 {
			b.PrintMap().Enable()
		}
		for _, ss := range group.starts {
			sec := block.NewSection(ss.SectionIndex, sectionFetcher(r, hdr, ss))
			sec.DataOffset = ss.DataOffset
			sec.BlockPos = int64(hdr.DataOffset) + int64(ss.DataOffset)
			sec.NameOffset = ss.NameOffset
			if ss.NameOffset != anonymousName {
				name, err := readPoolName(r, namesBase+int64(ss.NameOffset))
				if err == nil {
					sec.Name = name
					if block.IsPathName(name) {
						sec.PathName = &block.Path{}
					}
				}
			}
			b.Sections[ss.SectionIndex] = sec
		}
		c.Blocks[identStr] = b
		c.Order = append(c.Order, identStr)
	}

	// The names-order check walks blocks in save order, which for <7.0
	// files differs from read order; reading the version here parses the
	// `vers` block's default section early, which is safe (its encoding
	// never depends on file version).
	before7 := !vers.GreaterOrEqual(c.Version(), 7, 0, 0)
	c.rememberNamesOrder(before7)

	return c, nil
}

// readPoolName reads a single 1-byte-length-prefixed name from the name
// pool at absolute file offset pos.
func readPoolName(r io.ReaderAt, pos int64) ([]byte, error) {
	lenBuf := make([]byte, 1)
	if _, err := r.ReadAt(lenBuf, pos); err != nil {
		return nil, errors.Wrap(ErrMalformed, "name length read")
	}
	n := int(lenBuf[0])
	if n == 0 {
		// Non-nil so an empty pool name is still "named" and keeps its
		// pool slot on re-save.
		return []byte{}, nil
	}
	body := make([]byte, n)
	if _, err := r.ReadAt(body, pos+1); err != nil {
		return nil, errors.Wrap(ErrMalformed, "name body read")
	}
	return body, nil
}

func sectionFetcher(r io.ReaderAt, hdr Header, ss BlockSectionStart) func() ([]byte, error) {
	return func() ([]byte, error) {
		pos := int64(hdr.DataOffset) + int64(ss.DataOffset)
		lenBuf := make([]byte, 4)
		if _, err := r.ReadAt(lenBuf, pos); err != nil {
			return nil, errors.Wrap(ErrSectionOverflow, "section length read")
		}
		length, err := byteio.ReadBEU32(lenBuf, 0)
		if err != nil {
			return nil, err
		}
		if int64(hdr.DataOffset)+int64(hdr.DataSize) < pos+4+int64(length) {
			return nil, errors.Wrap(ErrSectionOverflow, "section payload exceeds data region")
		}
		payload := make([]byte, length)
		if length > 0 {
			if _, err := r.ReadAt(payload, pos+4); err != nil {
				return nil, errors.Wrap(ErrSectionOverflow, "section payload read")
			}
		}
		return payload, nil
	}
}

// readHeaderChain reads the header at file position 0, then follows each
// header's info_offset forward to the next header, until it finds one
// whose own info_offset equals the file position it was read from — the
// terminal header. A degenerate single-header file
// (info_offset == 0) is terminal immediately.
func readHeaderChain(r io.ReaderAt, size int64) (Header, error) {
	pos := int64(0)
	seen := map[int64]bool{}
	for {
		if pos < 0 || pos+headerSize > size {
			return Header{}, errors.Wrap(ErrMalformed, "header position out of range")
		}
		if seen[pos] {
			return Header{}, errors.Wrap(ErrMalformed, "header chain cycle")
		}
		seen[pos] = true

		buf := make([]byte, headerSize)
		if _, err := r.ReadAt(buf, pos); err != nil {
			return Header{}, errors.Wrap(ErrMalformed, "header read")
		}
		hdr, err := parseHeader(buf)
		if err != nil {
			return Header{}, err
		}
		if int64(hdr.InfoOffset) == pos {
			return hdr, nil
		}
		pos = int64(hdr.InfoOffset)
	}
}

func parseHeader(buf []byte) (Header, error) {
	var h Header
	copy(h.Magic[:], buf[0:6])
	if h.Magic != MagicModern && h.Magic != MagicLegacy {
		return Header{}, errors.Wrap(ErrMalformed, "bad RSRC magic")
	}
	format, err := byteio.ReadBEU16(buf, 6)
	if err != nil {
		return Header{}, errors.Wrap(ErrMalformed, "format")
	}
	h.Format = format
	copy(h.Type[:], buf[8:12])
	copy(h.Signature[:], buf[12:16])
	if string(h.Signature[:]) != SignatureLabVIEW && string(h.Signature[:]) != SignatureLegacy && h.Signature != ([4]byte{}) {
		return Header{}, errors.Wrap(ErrMalformed, "bad RSRC signature")
	}
	vals := make([]uint32, 4)
	for i := range vals {
		v, err := byteio.ReadBEU32(buf, 16+i*4)
		if err != nil {
			return Header{}, errors.Wrap(ErrMalformed, "header offsets/sizes")
		}
		vals[i] = v
	}
	h.InfoOffset, h.InfoSize, h.DataOffset, h.DataSize = vals[0], vals[1], vals[2], vals[3]
	if h.DataOffset < headerSize {
		return Header{}, errors.Wrap(ErrMalformed, "data_offset below header size")
	}
	return h, nil
}

func parseListHeader(buf []byte) (BlockInfoListHeader, error) {
	var l BlockInfoListHeader
	vals := make([]uint32, 5)
	for i := range vals {
		v, err := byteio.ReadBEU32(buf, i*4)
		if err != nil {
			return l, errors.Wrap(ErrMalformed, "list header field")
		}
		vals[i] = v
	}
	l.Reserved1, l.Reserved2, l.BlockinfoOffset, l.Reserved3, l.RSRCInfoSize = vals[0], vals[1], vals[2], vals[3], vals[4]
	return l, nil
}

func parseBlockHeader(buf []byte) (BlockHeader, error) {
	var bh BlockHeader
	copy(bh.Ident[:], buf[0:4])
	n, err := byteio.ReadBEU32(buf, 4)
	if err != nil {
		return bh, errors.Wrap(ErrMalformed, "block header section count")
	}
	bh.SectionCountMinusOne = n
	off, err := byteio.ReadBEU32(buf, 8)
	if err != nil {
		return bh, errors.Wrap(ErrMalformed, "block header section-start offset")
	}
	bh.SectionStartArrayOffset = off
	return bh, nil
}

func parseSectionStart(buf []byte) (BlockSectionStart, error) {
	var ss BlockSectionStart
	idx, err := byteio.ReadBEU32(buf, 0)
	if err != nil {
		return ss, errors.Wrap(ErrMalformed, "section-start index")
	}
	ss.SectionIndex = int32(idx)
	if ss.NameOffset, err = byteio.ReadBEU32(buf, 4); err != nil {
		return ss, errors.Wrap(ErrMalformed, "section-start name offset")
	}
	if ss.Reserved1, err = byteio.ReadBEU32(buf, 8); err != nil {
		return ss, errors.Wrap(ErrMalformed, "section-start reserved1")
	}
	if ss.DataOffset, err = byteio.ReadBEU32(buf, 12); err != nil {
		return ss, errors.Wrap(ErrMalformed, "section-start data offset")
	}
	if ss.Reserved2, err = byteio.ReadBEU32(buf, 16); err != nil {
		return ss, errors.Wrap(ErrMalformed, "section-start reserved2")
	}
	return ss, nil
}
