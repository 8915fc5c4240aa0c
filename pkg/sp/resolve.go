package sp

import (
	"fmt"

	"github.com/beevik/etree"
)

// DanglingReferenceError is returned when a reference names an id that is
// not defined anywhere in the document.
type DanglingReferenceError struct {
	ID       string
	Referrer string
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("dangling reference: <%s idref=%q> has no matching id", e.Referrer, e.ID)
}

// ReferenceCycleError is returned when following references leads back to an
// element that is already being expanded.
type ReferenceCycleError struct {
	ID string
}

func (e *ReferenceCycleError) Error() string {
	return fmt.Sprintf("reference cycle through id %q", e.ID)
}

// IsReference reports whether el points at another element via idref.
func IsReference(el *etree.Element) bool {
	return el.SelectAttr(AttrIDRef) != nil
}

// Resolve returns the element that el refers to, following chained
// references. An element without idref resolves to itself.
func (d *Document) Resolve(el *etree.Element) (*etree.Element, error) {
	seen := make(map[string]bool)
	cur := el
	for {
		ref := cur.SelectAttr(AttrIDRef)
		if ref == nil {
			return cur, nil
		}
		if seen[ref.Value] {
			return nil, &ReferenceCycleError{ID: ref.Value}
		}
		seen[ref.Value] = true
		target, ok := d.ids[ref.Value]
		if !ok {
			return nil, &DanglingReferenceError{ID: ref.Value, Referrer: cur.Tag}
		}
		cur = target
	}
}

// Trail tracks the reference targets currently being expanded by a
// recursive traversal. The zero value is ready to use.
type Trail struct {
	active map[*etree.Element]string
}

// Descend resolves el and calls fn with the result. While fn runs, a
// reference target is marked on the trail so that a reference nested inside
// it that points back to it fails instead of recursing forever.
func (d *Document) Descend(el *etree.Element, trail *Trail, fn func(*etree.Element) error) error {
	if !IsReference(el) {
		return fn(el)
	}
	target, err := d.Resolve(el)
	if err != nil {
		return err
	}
	if trail.active == nil {
		trail.active = make(map[*etree.Element]string)
	}
	if id, busy := trail.active[target]; busy {
		return &ReferenceCycleError{ID: id}
	}
	trail.active[target] = el.SelectAttrValue(AttrIDRef, "")
	defer delete(trail.active, target)
	return fn(target)
}
