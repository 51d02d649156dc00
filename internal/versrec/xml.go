// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package versrec

import (
	"strconv"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"

	"github.com/lvrsrc/go-rsrc/internal/block"
	"github.com/lvrsrc/go-rsrc/internal/vers"
)

// ExportInline implements block.InlineXMLer: a Version element carrying
// the decoded tuple, plus Text/Info/Comment elements for the three
// Pascal-string fields, decoded under mac_roman.
func (b *Block) ExportInline(parsed interface{}) ([]*block.Element, error) {
	info, ok := parsed.(*Info)
	if !ok {
		return nil, errors.New("vers: not parsed content")
	}
	ver := block.NewElement("Version")
	ver.SetAttr("Major", strconv.Itoa(info.Version.Major))
	ver.SetAttr("Minor", strconv.Itoa(info.Version.Minor))
	ver.SetAttr("Bugfix", strconv.Itoa(info.Version.Bugfix))
	ver.SetAttr("Stage", info.Version.Stage.String())
	ver.SetAttr("Build", strconv.Itoa(info.Version.Build))
	ver.SetAttr("Flags", strconv.Itoa(info.Version.Flags))

	out := []*block.Element{ver}
	for _, f := range []struct {
		tag  string
		data []byte
	}{
		{"Text", info.Text},
		{"Info", info.VerInfo},
		{"Comment", info.Comment},
	} {
		text, err := charmap.Macintosh.NewDecoder().Bytes(f.data)
		if err != nil {
			return nil, errors.Wrapf(err, "vers: %s mac_roman decode", f.tag)
		}
		el := block.NewElement(f.tag)
		el.Text = string(text)
		out = append(out, el)
	}
	return out, nil
}

// ImportInline implements block.InlineXMLer; exact inverse of
// ExportInline.
func (b *Block) ImportInline(children []*block.Element) (interface{}, error) {
	info := &Info{Text: []byte{}, VerInfo: []byte{}, Comment: []byte{}}
	sawVersion := false
	for _, el := range children {
		switch el.Tag {
		case "Version":
			sawVersion = true
			for _, field := range []struct {
				attr string
				dst  *int
			}{
				{"Major", &info.Version.Major},
				{"Minor", &info.Version.Minor},
				{"Bugfix", &info.Version.Bugfix},
				{"Build", &info.Version.Build},
				{"Flags", &info.Version.Flags},
			} {
				if v, ok := el.Attr(field.attr); ok {
					n, err := strconv.Atoi(v)
					if err != nil {
						return nil, errors.Wrapf(block.ErrXMLSchemaViolation, "vers: %s %q", field.attr, v)
					}
					*field.dst = n
				}
			}
			if v, ok := el.Attr("Stage"); ok {
				stage, err := parseStage(v)
				if err != nil {
					return nil, err
				}
				info.Version.Stage = stage
			}
		case "Text", "Info", "Comment":
			raw, err := charmap.Macintosh.NewEncoder().Bytes([]byte(el.Text))
			if err != nil {
				return nil, errors.Wrapf(block.ErrXMLSchemaViolation, "vers: %s not mac_roman-encodable", el.Tag)
			}
			switch el.Tag {
			case "Text":
				info.Text = raw
			case "Info":
				info.VerInfo = raw
			case "Comment":
				info.Comment = raw
			}
		default:
			return nil, errors.Wrapf(block.ErrXMLSchemaViolation, "vers: unexpected <%s>", el.Tag)
		}
	}
	if !sawVersion {
		return nil, errors.Wrap(block.ErrXMLSchemaViolation, "vers: missing <Version>")
	}
	return info, nil
}

func parseStage(s string) (vers.Stage, error) {
	for _, st := range []vers.Stage{vers.StageDevelopment, vers.StageAlpha, vers.StageBeta, vers.StageRelease} {
		if st.String() == s {
			return st, nil
		}
	}
	return 0, errors.Wrapf(block.ErrXMLSchemaViolation, "vers: stage %q", s)
}
