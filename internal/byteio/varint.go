// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package byteio

import "github.com/pkg/errors"

// ReadVarU reads the 2-or-6 byte variable width integer used by the type map
// (TM80/DSTM), the VCTP top-level list and DTHP: if the high bit of the
// first 16-bit big-endian word is clear, the whole value is those 15 bits;
// otherwise that word is the fixed marker 0x8000, carrying no payload bits
// of its own, and the full 32-bit value follows as a big-endian word. Unlike
// a scheme that folds the continuation flag into the high word's payload
// bits, this leaves every value in [0, 0xFFFFFFFF] representable.
func ReadVarU(b []byte, off int) (uint32, int, error) {
	hi, err := ReadBEU16(b, off)
	if err != nil {
		return 0, off, errors.Wrap(err, "varint high word")
	}
	if hi&0x8000 == 0 {
		return uint32(hi), off + 2, nil
	}
	v, err := ReadBEU32(b, off+2)
	if err != nil {
		return 0, off, errors.Wrap(err, "varint extended value")
	}
	return v, off + 6, nil
}

// PutVarU serializes n using the same 2-or-6 byte scheme as ReadVarU. It is
// 2 bytes iff n <= 0x7fff; the extended form's marker word carries none of
// n's bits, so the full 4-byte payload follows untouched and every n up to
// 0xFFFFFFFF round-trips exactly.
func PutVarU(n uint32) []byte {
	if n <= 0x7fff {
		return []byte{byte(n >> 8), byte(n)}
	}
	out := []byte{0x80, 0x00}
	return append(out, ToBigEndian32(n)...)
}

// SizeVarU returns the number of bytes PutVarU(n) would produce, without
// allocating — used by ExpectedSize self-checks.
func SizeVarU(n uint32) int {
	if n <= 0x7fff {
		return 2
	}
	return 6
}
