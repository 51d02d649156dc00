// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package byteio provides the primitive wire-format helpers shared by every
// block parser: big/little-endian integers, length-prefixed strings, and the
// variable-width integer codec used by the type map.
package byteio

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// ErrShortRead is returned whenever a reader has fewer bytes left than the
// field being decoded requires.
var ErrShortRead = errors.New("byteio: short read")

// ToBigEndian16 serializes i as a 2-byte big-endian value.
func ToBigEndian16(i uint16) []byte {
	dst := make([]byte, 2)
	binary.BigEndian.PutUint16(dst, i)
	return dst
}

// ToBigEndian32 serializes i as a 4-byte big-endian value.
func ToBigEndian32(i uint32) []byte {
	dst := make([]byte, 4)
	binary.BigEndian.PutUint32(dst, i)
	return dst
}

// ToBigEndian64 serializes i as an 8-byte big-endian value.
func ToBigEndian64(i uint64) []byte {
	dst := make([]byte, 8)
	binary.BigEndian.PutUint64(dst, i)
	return dst
}

// ToLittleEndian32 serializes i as a 4-byte little-endian value, used by the
// BDPW salt triple.
func ToLittleEndian32(i uint32) []byte {
	dst := make([]byte, 4)
	binary.LittleEndian.PutUint32(dst, i)
	return dst
}

// ReadU8 reads a single byte at offset off.
func ReadU8(b []byte, off int) (uint8, error) {
	if off < 0 || off+1 > len(b) {
		return 0, errors.Wrapf(ErrShortRead, "u8 at %d", off)
	}
	return b[off], nil
}

// ReadBEU16 reads a big-endian uint16 at offset off.
func ReadBEU16(b []byte, off int) (uint16, error) {
	if off < 0 || off+2 > len(b) {
		return 0, errors.Wrapf(ErrShortRead, "u16 at %d", off)
	}
	return binary.BigEndian.Uint16(b[off:]), nil
}

// ReadBEU32 reads a big-endian uint32 at offset off.
func ReadBEU32(b []byte, off int) (uint32, error) {
	if off < 0 || off+4 > len(b) {
		return 0, errors.Wrapf(ErrShortRead, "u32 at %d", off)
	}
	return binary.BigEndian.Uint32(b[off:]), nil
}

// ReadBEU64 reads a big-endian uint64 at offset off.
func ReadBEU64(b []byte, off int) (uint64, error) {
	if off < 0 || off+8 > len(b) {
		return 0, errors.Wrapf(ErrShortRead, "u64 at %d", off)
	}
	return binary.BigEndian.Uint64(b[off:]), nil
}

// ReadLEU32 reads a little-endian uint32 at offset off.
func ReadLEU32(b []byte, off int) (uint32, error) {
	if off < 0 || off+4 > len(b) {
		return 0, errors.Wrapf(ErrShortRead, "le u32 at %d", off)
	}
	return binary.LittleEndian.Uint32(b[off:]), nil
}
