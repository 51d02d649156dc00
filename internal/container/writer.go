// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package container

import (
	"io"

	"github.com/pkg/errors"

	"github.com/lvrsrc/go-rsrc/internal/block"
	"github.com/lvrsrc/go-rsrc/internal/byteio"
)

// identLVSR and identBDPW are the two blocks whose relative position in the
// data region the save-order rule singles out for files older than 7.0.
const (
	identLVSR = "LVSR"
	identBDPW = "BDPW"
)

// Save re-serializes every block's parsed sections (Parsed, DirtyParsed or
// RawReprepared) via block.Base.Prepare; Unread and RawLoaded sections keep
// their original raw bytes. It then writes the full container to w: data region, info region, and both
// RSRC headers with finalized offsets. before7 selects
// the <7.0 save-order rule (LVSR first, BDPW last in the data region);
// callers derive it from the container's own `vers` block.
func (c *Container) Save(w io.WriterAt, before7 bool) error {
	for _, ident := range c.Order {
		b := c.Blocks[ident]
		for _, idx := range b.SortedIndices() {
			sec := b.Sections[idx]
			if sec.State() == block.Unread || sec.State() == block.RawLoaded {
				continue // untouched: original raw bytes are already correct.
			}
			if err := b.Prepare(sec); err != nil {
				return errors.Wrapf(err, "block %s section %d", ident, idx)
			}
		}
	}

	saveOrder := c.saveOrder(before7)

	var cur int64 = headerSize // space reserved for the first RSRC header.
	dataOffset := cur
	sectionData := make([]byte, 0, 4096)
	type writtenSection struct {
		ident      string
		index      int32
		dataOffset uint32
		nameOffset uint32
	}
	var written []writtenSection

	// Build the name pool first so every section's name_offset is known
	// before section-start records are emitted.
	namePool := make([]byte, 0, 256)
	nameOffsets := make(map[SectionRef]uint32)
	for _, ref := range c.nameOrderRefs(c.Order) {
		sec := c.Blocks[ref.Ident].Sections[ref.Index]
		nameOffsets[ref] = uint32(len(namePool))
		namePool = append(namePool, byteio.PutPString(sec.Name)...)
	}

	for _, ident := range saveOrder {
		b := c.Blocks[ident]
		for _, idx := range b.SortedIndices() {
			sec := b.Sections[idx]
			raw, err := sec.GetRaw()
			if err != nil {
				return errors.Wrapf(err, "block %s section %d raw", ident, idx)
			}
			relOffset := uint32(int64(len(sectionData)))
			sectionData = append(sectionData, byteio.ToBigEndian32(uint32(len(raw)))...)
			sectionData = append(sectionData, raw...)
			for len(sectionData)%4 != 0 {
				sectionData = append(sectionData, 0)
			}

			nameOff := uint32(anonymousName)
			if off, ok := nameOffsets[SectionRef{Ident: ident, Index: idx}]; ok {
				nameOff = off
			}
			written = append(written, writtenSection{ident: ident, index: idx, dataOffset: relOffset, nameOffset: nameOff})
		}
	}

	dataSize := int64(len(sectionData))
	if _, err := w.WriteAt(sectionData, dataOffset); err != nil {
		return errors.Wrap(err, "write data region")
	}
	cur = dataOffset + dataSize

	infoOffset := cur
	// biOffset mirrors reader.go's biOffset: the terminal RSRC header
	// (headerSize bytes) followed by the block info list header, landing
	// at the block-info-header's own position.
	biOffset := infoOffset + headerSize + int64(listHeaderSize)
	blockHeadersOffset := biOffset + int64(blockInfoHeaderSize)

	// Lay out section-start arrays per block. SectionStartArrayOffset is
	// relative to biOffset (matching reader.go), so the running offset
	// starts after the block-info-header and every block header.
	blockSectionCount := make(map[string]int)
	for _, ident := range c.Order {
		blockSectionCount[ident] = len(c.Blocks[ident].Sections)
	}
	arrayOffsets := make(map[string]uint32)
	runningArrayOffset := uint32(blockInfoHeaderSize) + uint32(len(saveOrder))*uint32(blockHeaderSize)
	for _, ident := range c.Order {
		arrayOffsets[ident] = runningArrayOffset
		runningArrayOffset += uint32(blockSectionCount[ident] * sectionStartSize)
	}

	namePoolOffset := biOffset + int64(runningArrayOffset)

	// Second RSRC header, block info list header, block info header.
	secondHeaderOffset := infoOffset
	if err := writeHeader(w, secondHeaderOffset, c.Header, uint32(infoOffset), uint32(namePoolOffset+int64(len(namePool))-infoOffset), uint32(dataOffset), uint32(dataSize)); err != nil {
		return err
	}
	if err := writeListHeader(w, infoOffset+headerSize, c.ListHeader); err != nil {
		return err
	}
	if _, err := w.WriteAt(byteio.ToBigEndian32(uint32(len(saveOrder)-1)), blockHeadersOffset-blockInfoHeaderSize); err != nil {
		return errors.Wrap(err, "write block info header")
	}

	for i, ident := range c.Order {
		b := c.Blocks[ident]
		bh := BlockHeader{SectionCountMinusOne: uint32(len(b.Sections) - 1), SectionStartArrayOffset: arrayOffsets[ident]}
		copy(bh.Ident[:], ident)
		if err := writeBlockHeader(w, blockHeadersOffset+int64(i)*blockHeaderSize, bh); err != nil {
			return err
		}
	}

	arrayCursor := make(map[string]int)
	for _, ws := range written {
		pos := biOffset + int64(arrayOffsets[ws.ident]) + int64(arrayCursor[ws.ident])*sectionStartSize
		arrayCursor[ws.ident]++
		ss := BlockSectionStart{SectionIndex: ws.index, NameOffset: ws.nameOffset, DataOffset: ws.dataOffset}
		if err := writeSectionStart(w, pos, ss); err != nil {
			return err
		}
	}

	if _, err := w.WriteAt(namePool, namePoolOffset); err != nil {
		return errors.Wrap(err, "write name pool")
	}

	infoSize := namePoolOffset + int64(len(namePool)) - infoOffset
	return writeHeader(w, 0, c.Header, uint32(infoOffset), uint32(infoSize), uint32(dataOffset), uint32(dataSize))
}

// saveOrder returns block iteration order for the data region: Order,
// except when before7 is set, in which case LVSR is moved first and BDPW
// last within the data region only.
func (c *Container) saveOrder(before7 bool) []string {
	if !before7 {
		return c.Order
	}
	order := make([]string, 0, len(c.Order))
	var bdpw string
	for _, ident := range c.Order {
		if ident == identBDPW {
			bdpw = ident
			continue
		}
		if ident == identLVSR {
			order = append([]string{ident}, order...)
			continue
		}
		order = append(order, ident)
	}
	if bdpw != "" {
		order = append(order, bdpw)
	}
	return order
}

func writeHeader(w io.WriterAt, pos int64, h Header, infoOffset, infoSize, dataOffset, dataSize uint32) error {
	buf := make([]byte, 0, headerSize)
	buf = append(buf, h.Magic[:]...)
	buf = append(buf, byte(h.Format>>8), byte(h.Format))
	buf = append(buf, h.Type[:]...)
	buf = append(buf, h.Signature[:]...)
	buf = append(buf, byteio.ToBigEndian32(infoOffset)...)
	buf = append(buf, byteio.ToBigEndian32(infoSize)...)
	buf = append(buf, byteio.ToBigEndian32(dataOffset)...)
	buf = append(buf, byteio.ToBigEndian32(dataSize)...)
	_, err := w.WriteAt(buf, pos)
	return errors.Wrap(err, "write RSRC header")
}

func writeListHeader(w io.WriterAt, pos int64, l BlockInfoListHeader) error {
	buf := make([]byte, 0, listHeaderSize)
	buf = append(buf, byteio.ToBigEndian32(l.Reserved1)...)
	buf = append(buf, byteio.ToBigEndian32(l.Reserved2)...)
	buf = append(buf, byteio.ToBigEndian32(uint32(listHeaderSize))...)
	buf = append(buf, byteio.ToBigEndian32(l.Reserved3)...)
	buf = append(buf, byteio.ToBigEndian32(uint32(headerSize))...)
	_, err := w.WriteAt(buf, pos)
	return errors.Wrap(err, "write block info list header")
}

func writeBlockHeader(w io.WriterAt, pos int64, bh BlockHeader) error {
	buf := make([]byte, 0, blockHeaderSize)
	buf = append(buf, bh.Ident[:]...)
	buf = append(buf, byteio.ToBigEndian32(bh.SectionCountMinusOne)...)
	buf = append(buf, byteio.ToBigEndian32(bh.SectionStartArrayOffset)...)
	_, err := w.WriteAt(buf, pos)
	return errors.Wrap(err, "write block header")
}

func writeSectionStart(w io.WriterAt, pos int64, ss BlockSectionStart) error {
	buf := make([]byte, 0, sectionStartSize)
	buf = append(buf, byteio.ToBigEndian32(uint32(ss.SectionIndex))...)
	buf = append(buf, byteio.ToBigEndian32(ss.NameOffset)...)
	buf = append(buf, byteio.ToBigEndian32(ss.Reserved1)...)
	buf = append(buf, byteio.ToBigEndian32(ss.DataOffset)...)
	buf = append(buf, byteio.ToBigEndian32(ss.Reserved2)...)
	_, err := w.WriteAt(buf, pos)
	return errors.Wrap(err, "write section-start record")
}
