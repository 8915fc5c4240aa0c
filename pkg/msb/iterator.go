package msb

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/me/msbkit/pkg/sp"
)

// Kind identifies an iterator node.
type Kind int

const (
	KindFolder Kind = iota
	KindRepeat
	KindOffset
	KindChop
	KindWaveplate
	KindStare
	KindJiggle
	KindRaster
	KindPointing
	KindFocus
	KindNoise
	KindSkydip
)

var kindNames = [...]string{
	KindFolder:    "folder",
	KindRepeat:    "repeat",
	KindOffset:    "offset",
	KindChop:      "chop",
	KindWaveplate: "waveplate",
	KindStare:     "stare",
	KindJiggle:    "jiggle",
	KindRaster:    "raster",
	KindPointing:  "pointing",
	KindFocus:     "focus",
	KindNoise:     "noise",
	KindSkydip:    "skydip",
}

var kindByTag = map[string]Kind{
	"SpIterRepeat":      KindRepeat,
	"SpIterOffset":      KindOffset,
	"SpIterChop":        KindChop,
	"SpIterPOL":         KindWaveplate,
	"SpIterStareObs":    KindStare,
	"SpIterJiggleObs":   KindJiggle,
	"SpIterRasterObs":   KindRaster,
	"SpIterPointingObs": KindPointing,
	"SpIterFocusObs":    KindFocus,
	"SpIterNoiseObs":    KindNoise,
	"SpIterSkydipObs":   KindSkydip,
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// MarshalText renders the kind by name in JSON and YAML output.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// IsObserve reports whether k is a terminal observe mode.
func (k Kind) IsObserve() bool {
	return k >= KindStare
}

// NeedsTarget reports whether an observation of this mode must point somewhere.
func (k Kind) NeedsTarget() bool {
	return k != KindNoise && k != KindSkydip
}

// IteratorNode is one node of an expanded-iterator tree. Observe leaves have
// no attribute sets and no children; every other node makes one pass over
// its children per attribute set.
type IteratorNode struct {
	Kind     Kind
	Tag      string
	AttrSets []Context
	Fields   Context
	Children []*IteratorNode
}

// HasObserve reports whether the subtree contains an observe leaf.
func (n *IteratorNode) HasObserve() bool {
	if n.Kind.IsObserve() {
		return true
	}
	for _, c := range n.Children {
		if c.HasObserve() {
			return true
		}
	}
	return false
}

// Count returns the number of observations the subtree expands to.
func (n *IteratorNode) Count() int {
	if n.Kind.IsObserve() {
		return 1
	}
	sum := 0
	for _, c := range n.Children {
		sum += c.Count()
	}
	return sum * len(n.AttrSets)
}

func (n *IteratorNode) String() string {
	var b strings.Builder
	n.format(&b, 0)
	return b.String()
}

func (n *IteratorNode) format(b *strings.Builder, depth int) {
	fmt.Fprintf(b, "%s%s", strings.Repeat("  ", depth), n.Kind)
	if !n.Kind.IsObserve() {
		fmt.Fprintf(b, " x%d", len(n.AttrSets))
	}
	b.WriteByte('\n')
	for _, c := range n.Children {
		c.format(b, depth+1)
	}
}

// builder converts an SpIterFolder subtree into an iterator tree.
type builder struct {
	doc   *sp.Document
	trail sp.Trail
}

func (b *builder) build(el *etree.Element) (*IteratorNode, error) {
	var node *IteratorNode
	err := b.doc.Descend(el, &b.trail, func(it *etree.Element) error {
		kind, known := kindByTag[it.Tag]
		if !known {
			kind = KindFolder
		}
		node = &IteratorNode{Kind: kind, Tag: it.Tag}

		if kind.IsObserve() {
			node.Fields = leafFields(it)
			return nil
		}

		sets, err := attrSets(kind, it)
		if err != nil {
			return err
		}
		node.AttrSets = sets

		for _, ch := range it.ChildElements() {
			tag := strings.TrimSuffix(ch.Tag, "Ref")
			if !strings.HasPrefix(tag, sp.PrefixIterator) {
				continue
			}
			child, err := b.build(ch)
			if err != nil {
				return err
			}
			node.Children = append(node.Children, child)
		}
		return nil
	})
	return node, err
}

func attrSets(kind Kind, el *etree.Element) ([]Context, error) {
	var sets []Context
	switch kind {
	case KindRepeat:
		n, err := strconv.Atoi(sp.Text(el, "repeatCount"))
		if err != nil && sp.Text(el, "repeatCount") != "" {
			return nil, &StructureError{Element: el.Tag, Message: fmt.Sprintf("bad repeatCount %q", sp.Text(el, "repeatCount"))}
		}
		for i := 0; i < n; i++ {
			sets = append(sets, Context{})
		}
	case KindOffset:
		sets = offsetSets(el)
	case KindChop:
		sets = chopSets(el)
	case KindWaveplate:
		for _, v := range values(el, "waveplateAngle") {
			sets = append(sets, NewContext(KeyWaveplate, []string{v}))
		}
	default:
		return []Context{{}}, nil
	}
	if len(sets) == 0 {
		return nil, &EmptyIteratorError{Iterator: el.Tag}
	}
	return sets, nil
}

func offsetSets(el *etree.Element) []Context {
	var sets []Context
	for _, area := range el.SelectElements("obsArea") {
		pa := firstNonEmpty(sp.Text(area, "PA"), "0")
		system := area.SelectAttrValue("SYSTEM", "TRACKING")
		for _, off := range area.SelectElements("OFFSET") {
			sets = append(sets, NewContext(
				KeyOffsetDX, firstNonEmpty(sp.Text(off, "DC1"), "0"),
				KeyOffsetDY, firstNonEmpty(sp.Text(off, "DC2"), "0"),
				KeyOffsetPA, pa,
				KeyOffsetSystem, system,
			))
		}
	}
	return sets
}

// chopSets pairs the parallel THROW, ANGLE and SYSTEM lists. A shorter
// ANGLE or SYSTEM list repeats its last value.
func chopSets(el *etree.Element) []Context {
	throws := values(el, "THROW")
	angles := values(el, "ANGLE")
	systems := values(el, "SYSTEM")
	sets := make([]Context, 0, len(throws))
	for i, throw := range throws {
		sets = append(sets, NewContext(
			KeyChopThrow, throw,
			KeyChopPA, nth(angles, i, "0"),
			KeyChopSystem, nth(systems, i, "TRACKING"),
		))
	}
	return sets
}

// values returns the <value> children of the first child named tag.
func values(el *etree.Element, tag string) []string {
	list := el.SelectElement(tag)
	if list == nil {
		return nil
	}
	var out []string
	for _, v := range list.SelectElements("value") {
		out = append(out, strings.TrimSpace(v.Text()))
	}
	return out
}

func nth(list []string, i int, dflt string) string {
	switch {
	case i < len(list):
		return list[i]
	case len(list) > 0:
		return list[len(list)-1]
	default:
		return dflt
	}
}

// leafFields collects the simple-valued children of an observe leaf.
func leafFields(el *etree.Element) Context {
	var ctx Context
	for _, c := range el.ChildElements() {
		if len(c.ChildElements()) > 0 {
			continue
		}
		if v := strings.TrimSpace(c.Text()); v != "" {
			ctx.set(c.Tag, v)
		}
	}
	return ctx
}
