// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codec

import (
	"bytes"
	"compress/zlib"
	"io"

	"github.com/lvrsrc/go-rsrc/internal/byteio"
	"github.com/pkg/errors"
)

// zlibExpansionRatio is the theoretical maximum DEFLATE expansion ratio,
// used as the decode bounds check: uncompressed <= 1032 * compressed.
const zlibExpansionRatio = 1032

func decodeZlib(raw []byte) ([]byte, error) {
	usize, err := byteio.ReadBEU32(raw, 0)
	if err != nil {
		return nil, errors.Wrap(err, "zlib uncompressed-size prefix")
	}
	body := raw[4:]
	r, err := zlib.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "zlib open")
	}
	defer r.Close()
	plain, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "zlib inflate")
	}
	if uint32(len(plain)) != usize {
		return nil, errors.Wrapf(ErrBounds, "zlib declared size %d, got %d", usize, len(plain))
	}
	if len(body) > 0 && uint64(len(plain)) > uint64(len(body))*zlibExpansionRatio {
		return nil, errors.Wrapf(ErrBounds, "zlib expansion ratio exceeded: %d from %d", len(plain), len(body))
	}
	return plain, nil
}

func encodeZlib(plain []byte) []byte {
	var body bytes.Buffer
	w := zlib.NewWriter(&body)
	_, _ = w.Write(plain)
	_ = w.Close()

	out := make([]byte, 4+body.Len())
	copy(out, byteio.ToBigEndian32(uint32(len(plain))))
	copy(out[4:], body.Bytes())
	return out
}
