// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bdpw

import (
	"encoding/hex"

	"github.com/pkg/errors"

	"github.com/lvrsrc/go-rsrc/internal/block"
)

// ExportInline implements block.InlineXMLer: a single Password element
// carrying the three hashes in hex, plus the plaintext when it is known.
func (b *Block) ExportInline(parsed interface{}) ([]*block.Element, error) {
	info, ok := parsed.(*Info)
	if !ok {
		return nil, errors.New("bdpw: not parsed content")
	}
	el := block.NewElement("Password")
	if info.HasPassword {
		el.SetAttr("Text", info.Password)
	}
	el.SetAttr("MD5", hex.EncodeToString(info.PasswordMD5[:]))
	el.SetAttr("Hash1", hex.EncodeToString(info.Hash1[:]))
	if info.HasHash2 {
		el.SetAttr("Hash2", hex.EncodeToString(info.Hash2[:]))
	}
	return []*block.Element{el}, nil
}

// ImportInline implements block.InlineXMLer; exact inverse of
// ExportInline. A Text attribute, when present, takes precedence over the
// MD5 attribute the way a plaintext password outranks its own digest.
func (b *Block) ImportInline(children []*block.Element) (interface{}, error) {
	if len(children) != 1 || children[0].Tag != "Password" {
		return nil, errors.Wrap(block.ErrXMLSchemaViolation, "bdpw: want a single <Password>")
	}
	el := children[0]
	info := &Info{SaltFlatIndex: -1, SaltSource: SaltSourceUnknown}

	if text, ok := el.Attr("Text"); ok {
		info.SetPasswordText(text)
	} else if v, ok := el.Attr("MD5"); ok {
		if err := hexInto(info.PasswordMD5[:], v); err != nil {
			return nil, errors.Wrapf(block.ErrXMLSchemaViolation, "bdpw: MD5 %q", v)
		}
	} else {
		return nil, errors.Wrap(block.ErrXMLSchemaViolation, "bdpw: missing Text/MD5")
	}

	v, ok := el.Attr("Hash1")
	if !ok {
		return nil, errors.Wrap(block.ErrXMLSchemaViolation, "bdpw: missing Hash1")
	}
	if err := hexInto(info.Hash1[:], v); err != nil {
		return nil, errors.Wrapf(block.ErrXMLSchemaViolation, "bdpw: Hash1 %q", v)
	}
	if v, ok := el.Attr("Hash2"); ok {
		if err := hexInto(info.Hash2[:], v); err != nil {
			return nil, errors.Wrapf(block.ErrXMLSchemaViolation, "bdpw: Hash2 %q", v)
		}
		info.HasHash2 = true
	}

	info.OriginalPasswordMD5 = info.PasswordMD5
	info.OriginalHash1 = info.Hash1
	return info, nil
}

func hexInto(dst []byte, s string) error {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	if len(raw) != len(dst) {
		return errors.Errorf("want %d bytes, got %d", len(dst), len(raw))
	}
	copy(dst, raw)
	return nil
}
