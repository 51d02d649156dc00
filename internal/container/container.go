// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package container implements the RSRC container codec: the
// two-headed data/info layout, block info list, block headers, section
// starts, and the name pool, plus the save-order rules needed to make
// re-writes byte-identical.
package container

import (
	"github.com/lvrsrc/go-rsrc/internal/block"
	"github.com/lvrsrc/go-rsrc/internal/vers"
	"github.com/lvrsrc/go-rsrc/internal/versrec"
)

// Magic values recognized at offset 0 of an RSRC header.
var (
	// MagicModern is the format>=3 magic.
	MagicModern = [6]byte{'R', 'S', 'R', 'C', '\r', '\n'}
	// MagicLegacy is the format<=2 magic.
	MagicLegacy = [6]byte{'R', 'S', 'R', 'C', 0, 0}
)

// Signature values recognized at offset 12.
const (
	SignatureLabVIEW = "LBVW"
	SignatureLegacy  = "ResC"
)

// FileType is the 4-byte code at offset 8 identifying the artifact kind.
type FileType [4]byte

// Recognized file-type codes and their conventional extensions.
var (
	FileTypeVI      = FileType{'L', 'V', 'I', 'N'}
	FileTypeVITemp  = FileType{'s', 'V', 'I', 'N'}
	FileTypeControl = FileType{'L', 'V', 'C', 'C'}
	FileTypeCtlTemp = FileType{'s', 'V', 'C', 'C'}
	FileTypeDialog  = FileType{'L', 'V', 'D', 'L'}
	FileTypeMenu    = FileType{'L', 'M', 'N', 'U'}
	FileTypeLibrary = FileType{'L', 'I', 'B', 'R'}
	FileTypeLibPack = FileType{'L', 'I', 'B', 'P'}
	FileTypeClass   = FileType{'C', 'L', 'I', 'B'}
	FileTypeProject = FileType{'L', 'V', 'P', 'J'}
	FileTypeLLB     = FileType{'L', 'V', 'A', 'R'}
	FileTypeRSRC    = FileType{'L', 'V', 'R', 'S'}
	FileTypeRSRCAlt = FileType{'r', 's', 'c', ' '}
	FileTypeXCtl    = FileType{'L', 'V', 'X', 'C'}
	FileTypeLSB     = FileType{'L', 'V', 'S', 'B'}
	FileTypeUIR     = FileType{'i', 'U', 'W', 'l'}
)

// Extension returns the conventional file extension for ft, or "" if ft is
// not one of the recognized codes.
func (ft FileType) Extension() string {
	switch ft {
	case FileTypeVI:
		return "vi"
	case FileTypeVITemp:
		return "vit"
	case FileTypeControl:
		return "ctl"
	case FileTypeCtlTemp:
		return "ctt"
	case FileTypeDialog:
		return "dlog"
	case FileTypeMenu:
		return "mnu"
	case FileTypeLibrary:
		return "lvlib"
	case FileTypeLibPack:
		return "lvlibp"
	case FileTypeClass:
		return "lvclass"
	case FileTypeProject:
		return "lvproj"
	case FileTypeLLB:
		return "llb"
	case FileTypeRSRC, FileTypeRSRCAlt:
		return "rsrc"
	case FileTypeXCtl:
		return "xctl"
	case FileTypeLSB:
		return "lsb"
	case FileTypeUIR:
		return "uir"
	default:
		return ""
	}
}

// Header is one of the two identical RSRC headers bookending the file.
type Header struct {
	Magic      [6]byte
	Format     uint16
	Type       FileType
	Signature  [4]byte
	InfoOffset uint32
	InfoSize   uint32
	DataOffset uint32
	DataSize   uint32
}

// BlockInfoListHeader is the five-32-bit-field header introduced at
// info_offset.
type BlockInfoListHeader struct {
	Reserved1       uint32
	Reserved2       uint32
	BlockinfoOffset uint32
	Reserved3       uint32
	RSRCInfoSize    uint32
}

// BlockInfoHeader carries the block count (stored as count-1).
type BlockInfoHeader struct {
	CountMinusOne uint32
}

// BlockHeader identifies a block and points at its section-start array.
type BlockHeader struct {
	Ident                   [4]byte
	SectionCountMinusOne    uint32
	SectionStartArrayOffset uint32
}

// BlockSectionStart is one 20-byte on-wire section descriptor.
type BlockSectionStart struct {
	SectionIndex int32
	NameOffset   uint32
	Reserved1    uint32
	DataOffset   uint32
	Reserved2    uint32
}

// SectionRef addresses one section of one block, the granularity the
// names-order hint is remembered at.
type SectionRef struct {
	Ident string
	Index int32
}

// Container is the top-level, opened RSRC file: the parsed headers plus the
// ordered set of blocks built from them.
type Container struct {
	Header     Header
	ListHeader BlockInfoListHeader
	Blocks     map[string]*block.Base
	// Order is block iteration order as read, the save-order default.
	Order []string
	// NamesOrder, when non-nil, is the order section names were visited
	// when the name pool was originally written, remembered only when it
	// differs from the section walk order. Save follows it verbatim so a
	// reordered pool round-trips byte-for-byte.
	NamesOrder []SectionRef

	Options Options
}

// Block returns the block with the given four-byte identifier string, and
// whether it was present. It implements block.PeerLookup together with
// Version.
func (c *Container) Block(ident string) (*block.Base, bool) {
	b, ok := c.Blocks[ident]
	return b, ok
}

// Version returns the container's file version, read from its `vers`
// block, or the zero Tuple if that block is absent or not the concrete
// version-record implementation.
func (c *Container) Version() vers.Tuple {
	b, ok := c.Blocks[versrec.Ident]
	if !ok {
		return vers.Tuple{}
	}
	vb, ok := b.Impl.(*versrec.Block)
	if !ok {
		return vers.Tuple{}
	}
	return vb.Version()
}
