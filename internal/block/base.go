// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package block

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/lvrsrc/go-rsrc/internal/codec"
	"github.com/lvrsrc/go-rsrc/internal/vers"
)

// Parser is the four-contract interface every concrete block implements:
// parse/prepare symmetry, an optional self-check, and a
// version-conditional default encoding.
type Parser interface {
	// ParseRaw consumes exactly section's payload and returns parsed
	// content. A short or long read is reported via the returned error
	// (wrapping ErrParseShort/ErrParseExceeded); Base.Parse then degrades
	// the section to raw-only rather than propagating it.
	ParseRaw(section *Section, raw []byte) (interface{}, error)
	// PrepareRaw is the deterministic inverse of ParseRaw.
	PrepareRaw(parsed interface{}) ([]byte, error)
	// ExpectedSize optionally self-checks PrepareRaw's output length
	// before it is written. Returning ok=false skips the check.
	ExpectedSize(parsed interface{}) (size int, ok bool)
	// DefaultEncoding picks this section's encoding tag given the
	// container's file version.
	DefaultEncoding(section *Section, fileVersion vers.Tuple) codec.Tag
}

// Integrator is implemented by blocks whose parsed content is only fully
// resolved after every block has completed its local parse: DFDS reads TM80 reads VCTP, for
// instance. Integrate runs strictly after all Parse calls and must not
// mutate peers.
type Integrator interface {
	Integrate(lookup PeerLookup) error
}

// PeerLookup is the narrow interface Integrate uses to read sibling blocks
// by four-byte identifier, resolving cross-block references without direct
// ownership.
type PeerLookup interface {
	Block(ident string) (*Base, bool)
	Version() vers.Tuple
}

// Base is the generic block state every concrete block embeds: an
// identifier, its sections, and a self-reference to the concrete Parser
// implementation so Base's methods can dispatch parse/prepare without
// generics: Go has no virtual dispatch through an embedded struct, so the
// concrete constructor sets Impl to itself right after embedding Base.
type Base struct {
	IdentCode string
	Sections  map[int32]*Section

	// Impl is set by the concrete block's constructor to itself,
	// immediately after embedding Base, so Parse/Prepare/DefaultEncoding
	// below call into the concrete implementation.
	Impl Parser

	log PrintMap
}

// Ident returns the block's four-byte identifier.
func (b *Base) Ident() string { return b.IdentCode }

// PrintMap returns the block's diagnostic print-map, for callers that want
// to Enable it before Parse or Fprint it after.
func (b *Base) PrintMap() *PrintMap { return &b.log }

// DefaultSection returns the section whose index has the smallest absolute
// value. Returns nil if the block has no sections.
func (b *Base) DefaultSection() *Section {
	if len(b.Sections) == 0 {
		return nil
	}
	indices := make([]int32, 0, len(b.Sections))
	for idx := range b.Sections {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool {
		return abs32(indices[i]) < abs32(indices[j])
	})
	return b.Sections[indices[0]]
}

func abs32(n int32) int32 {
	if n < 0 {
		return -n
	}
	return n
}

// SortedIndices returns section indices in ascending order, the order the
// container writer walks a block's sections in.
func (b *Base) SortedIndices() []int32 {
	indices := make([]int32, 0, len(b.Sections))
	for idx := range b.Sections {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
	return indices
}

// Parse drives a single section from RawLoaded to Parsed, degrading it to
// raw-only on any parse error rather than propagating the failure.
func (b *Base) Parse(sec *Section, fileVersion vers.Tuple) error {
	raw, err := sec.GetRaw()
	if err != nil {
		return err
	}
	sec.Encoding = b.Impl.DefaultEncoding(sec, fileVersion)
	plain, err := codec.Decode(sec.Encoding, raw)
	if err != nil {
		sec.parseFailed = true
		b.log.Record(sec.BlockPos, len(raw), b.IdentCode+": codec decode failed, raw-only")
		return nil
	}
	parsed, err := b.Impl.ParseRaw(sec, plain)
	if err != nil {
		sec.parseFailed = true
		b.log.Record(sec.BlockPos, len(plain), b.IdentCode+": "+err.Error()+", degraded to raw-only")
		return nil
	}
	sec.parsed = parsed
	sec.state = Parsed
	b.log.Record(sec.BlockPos, len(plain), b.IdentCode)
	return nil
}

// Prepare drives a section from (Dirty)Parsed to RawReprepared, running the
// expected-size self-check before accepting the result.
func (b *Base) Prepare(sec *Section) error {
	if sec.parseFailed || sec.parsed == nil {
		// Untouched or uninterpretable content: the original raw bytes
		// are the correct output.
		sec.state = RawReprepared
		return nil
	}
	plain, err := b.Impl.PrepareRaw(sec.parsed)
	if err != nil {
		return errors.Wrapf(err, "%s: prepare_raw", b.IdentCode)
	}
	if want, ok := b.Impl.ExpectedSize(sec.parsed); ok && want != len(plain) {
		return errors.Wrapf(ErrPrepareSizeMismatch, "%s: expected %d, got %d", b.IdentCode, want, len(plain))
	}
	raw, err := codec.Encode(sec.Encoding, plain)
	if err != nil {
		return errors.Wrapf(err, "%s: codec encode", b.IdentCode)
	}
	sec.raw = raw
	sec.state = RawReprepared
	sec.rawUpdated = false
	sec.parsedUpdated = false
	return nil
}
