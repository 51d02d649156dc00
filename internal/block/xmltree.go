// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package block

import (
	"encoding/xml"
	"io"

	"github.com/pkg/errors"
)

// Attr is one XML attribute on an Element.
type Attr struct {
	Name  string
	Value string
}

// Element is a minimal XML element tree, the unit the XML transport moves
// parsed section content through. Built on encoding/xml tokens rather
// than struct tags because block schemas are decided at runtime by each
// block implementation, not at compile time by a fixed Go type.
type Element struct {
	Tag      string
	Attrs    []Attr
	Text     string
	Children []*Element
}

// NewElement constructs an element with the given tag.
func NewElement(tag string) *Element { return &Element{Tag: tag} }

// SetAttr appends an attribute.
func (e *Element) SetAttr(name, value string) *Element {
	e.Attrs = append(e.Attrs, Attr{Name: name, Value: value})
	return e
}

// Attr returns the named attribute's value and whether it was present.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// AddChild appends child and returns it.
func (e *Element) AddChild(child *Element) *Element {
	e.Children = append(e.Children, child)
	return child
}

// Child returns the first child with the given tag, or nil.
func (e *Element) Child(tag string) *Element {
	for _, c := range e.Children {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

// Encode writes the element tree through enc as XML tokens. Indentation is
// the encoder's concern; set it up before calling.
func (e *Element) Encode(enc *xml.Encoder) error {
	start := xml.StartElement{Name: xml.Name{Local: e.Tag}}
	for _, a := range e.Attrs {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: a.Name}, Value: a.Value})
	}
	if err := enc.EncodeToken(start); err != nil {
		return errors.Wrapf(err, "element <%s>", e.Tag)
	}
	if e.Text != "" {
		if err := enc.EncodeToken(xml.CharData(e.Text)); err != nil {
			return errors.Wrapf(err, "element <%s> text", e.Tag)
		}
	}
	for _, c := range e.Children {
		if err := c.Encode(enc); err != nil {
			return err
		}
	}
	if err := enc.EncodeToken(start.End()); err != nil {
		return errors.Wrapf(err, "element </%s>", e.Tag)
	}
	return nil
}

// DecodeElement builds an Element tree from dec, whose last-returned token
// must be start. Character data is accumulated into Text with surrounding
// whitespace trimmed by the caller if needed.
func DecodeElement(dec *xml.Decoder, start xml.StartElement) (*Element, error) {
	e := &Element{Tag: start.Name.Local}
	for _, a := range start.Attr {
		e.Attrs = append(e.Attrs, Attr{Name: a.Name.Local, Value: a.Value})
	}
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, errors.Errorf("xml: unexpected EOF inside <%s>", e.Tag)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "xml: inside <%s>", e.Tag)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := DecodeElement(dec, t)
			if err != nil {
				return nil, err
			}
			e.Children = append(e.Children, child)
		case xml.CharData:
			e.Text += string(t)
		case xml.EndElement:
			return e, nil
		}
	}
}

// InlineXMLer is the optional interface a block implements to carry its
// parsed content inline in the XML tree instead of as a binary side file.
// ExportInline and ImportInline must be exact inverses over the block's
// parsed type, the same symmetry ParseRaw/PrepareRaw obey over bytes.
type InlineXMLer interface {
	// ExportInline renders parsed content as the child elements of a
	// Section element.
	ExportInline(parsed interface{}) ([]*Element, error)
	// ImportInline rebuilds parsed content from a Section element's
	// children.
	ImportInline(children []*Element) (interface{}, error)
}

// SetParsed installs parsed content directly, as the XML importer does for
// inline sections; the section becomes DirtyParsed so the next Save runs
// Prepare on it.
func (s *Section) SetParsed(v interface{}) {
	s.parsed = v
	s.state = DirtyParsed
	s.parsedUpdated = true
}
