// Package sp is the science-program document model: an XML element tree with a
// document-wide id table through which reference elements are resolved.
package sp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Document is a parsed science program.
// It is not safe for concurrent mutation.
type Document struct {
	doc *etree.Document
	ids map[string]*etree.Element
}

// Parse reads a science-program document and builds its id table.
func Parse(data []byte) (*Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("XML parse error: %w", err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("document has no root element")
	}
	d := &Document{doc: doc, ids: make(map[string]*etree.Element)}
	if err := d.index(doc.Root()); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Document) index(el *etree.Element) error {
	if id := el.SelectAttrValue(AttrID, ""); id != "" {
		if prev, ok := d.ids[id]; ok {
			return fmt.Errorf("duplicate id %q on <%s> (first defined on <%s>)", id, el.Tag, prev.Tag)
		}
		d.ids[id] = el
	}
	for _, c := range el.ChildElements() {
		if err := d.index(c); err != nil {
			return err
		}
	}
	return nil
}

// Root returns the root element.
func (d *Document) Root() *etree.Element {
	return d.doc.Root()
}

// Lookup returns the element defined with the given id.
func (d *Document) Lookup(id string) (*etree.Element, bool) {
	el, ok := d.ids[id]
	return el, ok
}

// Bytes serializes the document with two-space indentation.
func (d *Document) Bytes() ([]byte, error) {
	d.doc.Indent(2)
	return d.doc.WriteToBytes()
}

// Text returns the trimmed text of the first child element named tag.
func Text(el *etree.Element, tag string) string {
	if c := el.SelectElement(tag); c != nil {
		return strings.TrimSpace(c.Text())
	}
	return ""
}

// IntAttr returns the integer value of an attribute, or dflt if absent.
func IntAttr(el *etree.Element, key string, dflt int) (int, error) {
	a := el.SelectAttr(key)
	if a == nil || strings.TrimSpace(a.Value) == "" {
		return dflt, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(a.Value))
	if err != nil {
		return 0, fmt.Errorf("<%s %s=%q>: not an integer", el.Tag, key, a.Value)
	}
	return n, nil
}

// BoolAttr reports whether an attribute is set to "true".
func BoolAttr(el *etree.Element, key string) bool {
	return strings.EqualFold(strings.TrimSpace(el.SelectAttrValue(key, "")), "true")
}

// IsMSB reports whether el is an MSB wrapper: an SpMSB, or an SpObs flagged msb="true".
func IsMSB(el *etree.Element) bool {
	switch el.Tag {
	case TagMSB:
		return true
	case TagObs:
		return BoolAttr(el, AttrMSB)
	}
	return false
}

// Ancestors returns the ancestors of el, root first.
func Ancestors(el *etree.Element) []*etree.Element {
	var out []*etree.Element
	for p := el.Parent(); p != nil; p = p.Parent() {
		out = append(out, p)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// InsertAfter moves el so that it becomes the next sibling of anchor.
func InsertAfter(anchor, el *etree.Element) {
	if old := el.Parent(); old != nil {
		old.RemoveChild(el)
	}
	parent := anchor.Parent()
	parent.InsertChildAt(anchor.Index()+1, el)
}

// Unbind detaches el from its parent.
func Unbind(el *etree.Element) {
	if p := el.Parent(); p != nil {
		p.RemoveChild(el)
	}
}
