package sp

import (
	"strings"

	"github.com/beevik/etree"
)

// CanonicalOptions controls canonical serialization.
type CanonicalOptions struct {
	// OmitAttrs lists attribute names dropped everywhere in the subtree.
	OmitAttrs []string
	// OmitTags lists element names dropped, with their subtree, everywhere.
	OmitTags []string
}

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "\n", "&#xA;", "\t", "&#x9;")
)

// Canonical serializes el with references replaced by their targets.
// Attributes keep document order and are always double-quoted, text is
// trimmed, and whitespace-only text, comments and processing instructions
// are dropped.
func (d *Document) Canonical(el *etree.Element, opts CanonicalOptions) (string, error) {
	c := newCanonicalizer(d, opts)
	if err := c.element(el); err != nil {
		return "", err
	}
	return c.b.String(), nil
}

// CanonicalChildren serializes the child content of el without the element's
// own tag or attributes.
func (d *Document) CanonicalChildren(el *etree.Element, opts CanonicalOptions) (string, error) {
	c := newCanonicalizer(d, opts)
	target, err := d.Resolve(el)
	if err != nil {
		return "", err
	}
	if err := c.children(target); err != nil {
		return "", err
	}
	return c.b.String(), nil
}

type canonicalizer struct {
	doc       *Document
	omitAttrs map[string]bool
	omitTags  map[string]bool
	trail     Trail
	b         strings.Builder
}

func newCanonicalizer(d *Document, opts CanonicalOptions) *canonicalizer {
	c := &canonicalizer{
		doc:       d,
		omitAttrs: make(map[string]bool, len(opts.OmitAttrs)),
		omitTags:  make(map[string]bool, len(opts.OmitTags)),
	}
	for _, a := range opts.OmitAttrs {
		c.omitAttrs[a] = true
	}
	for _, t := range opts.OmitTags {
		c.omitTags[t] = true
	}
	return c
}

func (c *canonicalizer) element(el *etree.Element) error {
	return c.doc.Descend(el, &c.trail, func(target *etree.Element) error {
		if c.omitTags[target.Tag] {
			return nil
		}
		c.b.WriteByte('<')
		c.b.WriteString(target.FullTag())
		for _, a := range target.Attr {
			if c.omitAttrs[a.Key] {
				continue
			}
			c.b.WriteByte(' ')
			c.b.WriteString(a.FullKey())
			c.b.WriteString(`="`)
			c.b.WriteString(attrEscaper.Replace(a.Value))
			c.b.WriteByte('"')
		}
		c.b.WriteByte('>')
		if err := c.children(target); err != nil {
			return err
		}
		c.b.WriteString("</")
		c.b.WriteString(target.FullTag())
		c.b.WriteByte('>')
		return nil
	})
}

func (c *canonicalizer) children(el *etree.Element) error {
	for _, tok := range el.Child {
		switch t := tok.(type) {
		case *etree.Element:
			if err := c.element(t); err != nil {
				return err
			}
		case *etree.CharData:
			if s := strings.TrimSpace(t.Data); s != "" {
				c.b.WriteString(textEscaper.Replace(s))
			}
		}
	}
	return nil
}
