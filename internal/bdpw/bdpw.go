// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bdpw implements the Block-Diagram Password block: the record
// that cryptographically links VCTP (via a salt derived from a Function
// TypeDesc's terminal counts), LIBN, LVSR, and the opaque block-diagram
// heap into two MD5 hashes.
package bdpw

import (
	"crypto/md5"

	"github.com/pkg/errors"

	"github.com/lvrsrc/go-rsrc/internal/block"
	"github.com/lvrsrc/go-rsrc/internal/byteio"
	"github.com/lvrsrc/go-rsrc/internal/codec"
	"github.com/lvrsrc/go-rsrc/internal/cpc2"
	"github.com/lvrsrc/go-rsrc/internal/libn"
	"github.com/lvrsrc/go-rsrc/internal/lvsr"
	"github.com/lvrsrc/go-rsrc/internal/vctp"
	"github.com/lvrsrc/go-rsrc/internal/vers"
)

// Ident is the four-byte block identifier.
const Ident = "BDPW"

// heapIdents lists the block-diagram heap idents, tried in order, whose
// content feeds hash_2.
var heapIdents = []string{"BDHc", "BDHb", "BDHP"}

// Common passwords RecognizePassword checks an MD5 against, purely for
// Password metadata shown to a caller; it never participates in hashing.
var commonPasswords = []string{
	"", "qwerty", "password", "111111", "12345678", "abc123",
	"1234567", "password1", "12345", "123",
}

// SaltSource records where a BDPW's salt was found, mirroring the
// three ways a salt can be located, plus "None" for pre-12.0 files
// and an explicit "Unknown" for round-tripped files DiscoverSalt never ran
// against.
type SaltSource string

const (
	SaltSourceNone    SaltSource = "None"
	SaltSourceCPC2    SaltSource = "CPC2"
	SaltSourceTD      SaltSource = "TD"
	SaltSourceBrute   SaltSource = "Brute"
	SaltSourceUnknown SaltSource = "Unknown"
)

// Info is the parsed content of a BDPW section.
type Info struct {
	PasswordMD5 [16]byte
	Hash1       [16]byte
	Hash2       [16]byte
	HasHash2    bool

	// OriginalHash1 and OriginalPasswordMD5 are the values ParseRaw saw on
	// the wire, kept immutable so DiscoverSalt can compare against them
	// even after SetPassword has overwritten PasswordMD5.
	OriginalHash1       [16]byte
	OriginalPasswordMD5 [16]byte

	// SaltFlatIndex names the VCTP flat index of the Function TypeDesc the
	// salt was derived from, once DiscoverSalt has run; -1 if discovery
	// fell back to a brute-forced or empty salt with no such TypeDesc.
	SaltFlatIndex int
	Salt          []byte
	SaltSource    SaltSource

	// Password is the plaintext password, if recognized from the common
	// list or set directly; never serialized to the wire.
	Password    string
	HasPassword bool
}

// Block is the BDPW block implementation.
type Block struct {
	block.Base
}

// New constructs an empty BDPW Block ready to receive sections.
func New() *Block {
	b := &Block{Base: block.Base{IdentCode: Ident, Sections: map[int32]*block.Section{}}}
	b.Impl = b
	return b
}

// ParseRaw implements block.Parser. hasHash2 is inferred from the payload
// length directly (32 vs 48 bytes) rather than threaded in from the file
// version, since ParseRaw only sees section bytes.
func (b *Block) ParseRaw(_ *block.Section, raw []byte) (interface{}, error) {
	if len(raw) != 32 && len(raw) != 48 {
		return nil, errors.Wrapf(block.ErrParseShort, "bdpw: %d bytes, want 32 or 48", len(raw))
	}
	info := &Info{SaltFlatIndex: -1, SaltSource: SaltSourceUnknown}
	copy(info.PasswordMD5[:], raw[0:16])
	copy(info.OriginalPasswordMD5[:], raw[0:16])
	copy(info.Hash1[:], raw[16:32])
	copy(info.OriginalHash1[:], raw[16:32])
	if len(raw) == 48 {
		info.HasHash2 = true
		copy(info.Hash2[:], raw[32:48])
	}
	return info, nil
}

// PrepareRaw implements block.Parser; deterministic inverse of ParseRaw.
func (b *Block) PrepareRaw(parsed interface{}) ([]byte, error) {
	info := parsed.(*Info)
	out := append([]byte(nil), info.PasswordMD5[:]...)
	out = append(out, info.Hash1[:]...)
	if info.HasHash2 {
		out = append(out, info.Hash2[:]...)
	}
	return out, nil
}

// ExpectedSize implements block.Parser.
func (b *Block) ExpectedSize(parsed interface{}) (int, bool) {
	info := parsed.(*Info)
	if info.HasHash2 {
		return 48, true
	}
	return 32, true
}

// DefaultEncoding implements block.Parser: BDPW is always stored
// uncompressed.
func (b *Block) DefaultEncoding(_ *block.Section, _ vers.Tuple) codec.Tag {
	return codec.None
}

// SetPasswordMD5 installs a new password hash without recalculating
// hash_1/hash_2.
func (info *Info) SetPasswordMD5(md5sum [16]byte) {
	info.PasswordMD5 = md5sum
	info.Password = ""
	info.HasPassword = false
}

// SetPasswordText hashes text and installs it as the new password.
func (info *Info) SetPasswordText(text string) {
	info.SetPasswordMD5(md5.Sum([]byte(text)))
	info.Password = text
	info.HasPassword = true
}

// RecognizePassword sets info.Password/HasPassword if PasswordMD5 matches
// one of a short list of common passwords, purely informational.
func (info *Info) RecognizePassword() {
	for _, p := range commonPasswords {
		if md5.Sum([]byte(p)) == info.PasswordMD5 {
			info.Password = p
			info.HasPassword = true
			return
		}
	}
}

// saltFromCounts builds the 12-byte salt from a Function TypeDesc's
// terminal classification: LE32(nNumeric) || LE32(nString) || LE32(nPath).
func saltFromCounts(numeric, str, path int) []byte {
	out := byteio.ToLittleEndian32(uint32(numeric))
	out = append(out, byteio.ToLittleEndian32(uint32(str))...)
	out = append(out, byteio.ToLittleEndian32(uint32(path))...)
	return out
}

// DiscoverSalt finds which Function TypeDesc (if any) the BDPW's
// already-on-disk hash_1 was salted with, using the original password_md5
// and hash_1 captured at parse time. It must run once, immediately after
// Parse and before any SetPassword/SetPasswordText call — scanning after
// the password changes can never match the original hash_1 again, which is
// exactly why the result is cached in SaltFlatIndex/Salt/SaltSource rather
// than recomputed on demand.
func (b *Block) DiscoverSalt(lookup block.PeerLookup) error {
	sec := b.DefaultSection()
	if sec == nil {
		return nil
	}
	info, ok := sec.Parsed().(*Info)
	if !ok {
		return errors.Wrap(block.ErrCrossReferenceMissing, "bdpw: not parsed")
	}

	if !vers.GreaterOrEqual(lookup.Version(), 1, 0, 0) {
		info.Salt = nil
		info.SaltFlatIndex = -1
		info.SaltSource = SaltSourceNone
		return nil
	}

	presalt, err := presaltData(lookup, info.OriginalPasswordMD5)
	if err != nil {
		return err
	}

	if !vers.GreaterOrEqual(lookup.Version(), 12, 0, 0) {
		info.Salt = nil
		info.SaltFlatIndex = -1
		info.SaltSource = SaltSourceNone
		return nil
	}

	vctpBlock, ok := lookup.Block(vctp.Ident)
	if !ok {
		return errors.Wrap(block.ErrCrossReferenceMissing, "bdpw: no VCTP block")
	}
	vsec := vctpBlock.DefaultSection()
	if vsec == nil {
		return errors.Wrap(block.ErrCrossReferenceMissing, "bdpw: VCTP has no sections")
	}
	vinfo, ok := vsec.Parsed().(*vctp.Info)
	if !ok {
		return errors.Wrap(block.ErrCrossReferenceMissing, "bdpw: VCTP not parsed")
	}

	matches := func(salt []byte) bool {
		sum := md5.Sum(append(append([]byte(nil), presalt...), salt...))
		return sum == info.OriginalHash1
	}

	// CPC2 names the interface directly, so it is tried first.
	if cpcBlock, ok := lookup.Block(cpc2.IdentCPC2); ok {
		if csec := cpcBlock.DefaultSection(); csec != nil {
			if cinfo, ok := csec.Parsed().(*cpc2.Info); ok && cinfo.TD != nil {
				n, s, p := vctp.TerminalCounts(cinfo.TD)
				salt := saltFromCounts(n, s, p)
				if matches(salt) {
					info.Salt = salt
					info.SaltFlatIndex = cinfo.TD.FlatIndex
					info.SaltSource = SaltSourceCPC2
					return nil
				}
			}
		}
	}

	// Otherwise reverse-scan every Function TypeDesc, usually the last one
	// declared is the one used as the salt source.
	funcs := vinfo.FunctionTypeDescs()
	for i := len(funcs) - 1; i >= 0; i-- {
		td := funcs[i]
		n, s, p := vctp.TerminalCounts(td)
		salt := saltFromCounts(n, s, p)
		if matches(salt) {
			info.Salt = salt
			info.SaltFlatIndex = td.FlatIndex
			info.SaltSource = SaltSourceTD
			return nil
		}
	}

	// Last resort: brute-force every (numeric, string, path) triple up to
	// 255 each.
	for n := 0; n < 256; n++ {
		for s := 0; s < 256; s++ {
			for p := 0; p < 256; p++ {
				salt := saltFromCounts(n, s, p)
				if matches(salt) {
					info.Salt = salt
					info.SaltFlatIndex = -1
					info.SaltSource = SaltSourceBrute
					return nil
				}
			}
		}
	}

	info.Salt = nil
	info.SaltFlatIndex = -1
	info.SaltSource = SaltSourceNone
	return nil
}

// presaltData assembles password_md5 || LIBN_content || LVSR_content, the
// bytes every hash_1 candidate is salted onto.
func presaltData(lookup block.PeerLookup, passwordMD5 [16]byte) ([]byte, error) {
	var libnContent string
	if libnBlock, ok := lookup.Block(libn.Ident); ok {
		if lsec := libnBlock.DefaultSection(); lsec != nil {
			if linfo, ok := lsec.Parsed().(*libn.Info); ok {
				libnContent = linfo.Joined()
			}
		}
	}

	lvsrBlock, ok := lookup.Block(lvsr.Ident)
	if !ok {
		return nil, errors.Wrap(block.ErrCrossReferenceMissing, "bdpw: no LVSR block")
	}
	lsec := lvsrBlock.DefaultSection()
	if lsec == nil {
		return nil, errors.Wrap(block.ErrCrossReferenceMissing, "bdpw: LVSR has no sections")
	}
	lvsrBytes, err := lsec.GetBytes(codec.None)
	if err != nil {
		return nil, errors.Wrap(err, "bdpw: LVSR bytes")
	}

	out := append([]byte(nil), passwordMD5[:]...)
	out = append(out, []byte(libnContent)...)
	out = append(out, lvsrBytes...)
	return out, nil
}

// heapContentHash returns MD5 of a heap block's content, stripping its
// leading 4-byte length prefix; it returns a zero
// bool if no heap block is present.
func heapContentHash(lookup block.PeerLookup) ([16]byte, bool, error) {
	for _, ident := range heapIdents {
		heapBlock, ok := lookup.Block(ident)
		if !ok {
			continue
		}
		sec := heapBlock.DefaultSection()
		if sec == nil {
			continue
		}
		raw, err := sec.GetBytes(codec.None)
		if err != nil {
			return [16]byte{}, false, errors.Wrapf(err, "bdpw: %s bytes", ident)
		}
		content := raw
		if len(raw) >= 4 {
			n, err := byteio.ReadBEU32(raw, 0)
			if err == nil && int(n) <= len(raw)-4 {
				content = raw[4 : 4+n]
			}
		}
		return md5.Sum(content), true, nil
	}
	return [16]byte{}, false, nil
}

// Finalize recalculates hash_1 (and hash_2, if present) from the block's
// current PasswordMD5, the cached salt from DiscoverSalt, and the peer
// blocks' current bytes. It must run after SetPassword/SetPasswordText and
// after LVSR has been re-prepared with any pending mutation (e.g. the
// protected flag cleared for an empty password).
func (b *Block) Finalize(lookup block.PeerLookup) error {
	sec := b.DefaultSection()
	if sec == nil {
		return nil
	}
	info, ok := sec.Parsed().(*Info)
	if !ok {
		return errors.Wrap(block.ErrCrossReferenceMissing, "bdpw: not parsed")
	}

	presalt, err := presaltData(lookup, info.PasswordMD5)
	if err != nil {
		return err
	}

	var salt []byte
	if info.SaltFlatIndex >= 0 {
		vctpBlock, ok := lookup.Block(vctp.Ident)
		if !ok {
			return errors.Wrap(block.ErrCrossReferenceMissing, "bdpw: no VCTP block")
		}
		vsec := vctpBlock.DefaultSection()
		if vsec == nil {
			return errors.Wrap(block.ErrCrossReferenceMissing, "bdpw: VCTP has no sections")
		}
		vinfo, ok := vsec.Parsed().(*vctp.Info)
		if !ok {
			return errors.Wrap(block.ErrCrossReferenceMissing, "bdpw: VCTP not parsed")
		}
		td := vinfo.GetFlatType(info.SaltFlatIndex)
		if td == nil {
			return errors.Wrap(block.ErrCrossReferenceMissing, "bdpw: salt TypeDesc missing")
		}
		n, s, p := vctp.TerminalCounts(td)
		salt = saltFromCounts(n, s, p)
	} else {
		salt = info.Salt
	}

	info.Hash1 = md5.Sum(append(append([]byte(nil), presalt...), salt...))

	if info.HasHash2 {
		heapHash, hasHeap, err := heapContentHash(lookup)
		if err != nil {
			return err
		}
		if hasHeap {
			info.Hash2 = md5.Sum(append(append([]byte(nil), info.Hash1[:]...), heapHash[:]...))
		} else {
			info.Hash2 = md5.Sum(nil)
		}
	}

	sec.MarkDirty()
	return nil
}
