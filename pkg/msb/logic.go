package msb

import (
	"strconv"

	"github.com/beevik/etree"
	"github.com/me/msbkit/pkg/sp"
)

// edits buffers document changes so that an operation touches the tree only
// after every check has passed.
type edits []func()

func (e *edits) add(fns ...func()) {
	*e = append(*e, fns...)
}

func (e edits) apply() {
	for _, f := range e {
		f()
	}
}

func setRemaining(el *etree.Element, r Remaining) func() {
	return func() {
		el.CreateAttr(sp.AttrRemaining, strconv.Itoa(int(r)))
	}
}

// orGroup returns the element that leaves an OR group when the MSB wrapped by
// wrapper is observed, together with that OR. An enclosing AND group or
// survey container moves as a whole. Both are nil outside any OR.
func orGroup(wrapper *etree.Element) (unit, or *etree.Element) {
	unit = wrapper
	p := unit.Parent()
	for p != nil && (p.Tag == sp.TagAND || p.Tag == sp.TagSurvey) {
		unit, p = p, p.Parent()
	}
	if p == nil || p.Tag != sp.TagOR {
		return nil, nil
	}
	return unit, p
}

// planORObserved moves unit out of its OR group, decrements the group's
// numberOfItems and, when that reaches zero, removes every MSB left in the
// group. The returned edits also clear stored checksums inside unit, which
// change once the OR membership is gone.
func planORObserved(unit, or *etree.Element) (edits, error) {
	n, err := sp.IntAttr(or, sp.AttrNumberOfItems, 1)
	if err != nil {
		return nil, &StructureError{Element: or.Tag, Message: err.Error()}
	}
	n--
	if n < 0 {
		n = 0
	}

	var plan edits
	plan.add(func() {
		sp.InsertAfter(or, unit)
		or.CreateAttr(sp.AttrNumberOfItems, strconv.Itoa(n))
	})
	for _, w := range msbWrappers(unit) {
		plan.add(func() { w.RemoveAttr(sp.AttrChecksum) })
	}

	if n == 0 {
		for _, el := range counters(or, unit) {
			r, err := sp.IntAttr(el, sp.AttrRemaining, 1)
			if err != nil {
				return nil, &StructureError{Element: el.Tag, Message: err.Error()}
			}
			plan.add(setRemaining(el, Remaining(r).Removed()))
		}
	}
	return plan, nil
}

// msbWrappers returns the MSB wrappers at or below el.
func msbWrappers(el *etree.Element) []*etree.Element {
	if sp.IsMSB(el) {
		return []*etree.Element{el}
	}
	var out []*etree.Element
	for _, c := range el.ChildElements() {
		out = append(out, msbWrappers(c)...)
	}
	return out
}

// counters returns the elements carrying the remaining counters of every
// MSB below el, skipping the subtree rooted at skip. A survey container's
// counters are its Target elements.
func counters(el, skip *etree.Element) []*etree.Element {
	var out []*etree.Element
	for _, c := range el.ChildElements() {
		switch {
		case c == skip:
		case c.Tag == sp.TagSurvey:
			if list := c.SelectElement(sp.TagTargetList); list != nil {
				out = append(out, list.SelectElements(sp.TagTarget)...)
			}
		case sp.IsMSB(c):
			out = append(out, c)
		default:
			out = append(out, counters(c, skip)...)
		}
	}
	return out
}
