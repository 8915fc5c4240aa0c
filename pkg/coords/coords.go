// Package coords provides the opaque coordinate value attached to targets and
// observations. Only enough is parsed to classify a position and carry it
// through to instrument translators; no astrometry is performed here.
package coords

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// Kind classifies a coordinate.
type Kind string

const (
	KindRADec       Kind = "RADEC"
	KindPlanet      Kind = "PLANET"
	KindElements    Kind = "ELEMENTS"
	KindFixed       Kind = "FIXED"
	KindCalibration Kind = "CAL"
	KindAuto        Kind = "AUTO"
)

// Coordinate is a parsed target position.
type Coordinate struct {
	Kind     Kind          `json:"kind" yaml:"kind"`
	Name     string        `json:"name,omitempty" yaml:"name,omitempty"`
	System   string        `json:"system,omitempty" yaml:"system,omitempty"`
	C1       string        `json:"c1,omitempty" yaml:"c1,omitempty"`
	C2       string        `json:"c2,omitempty" yaml:"c2,omitempty"`
	Elements []OrbitalElem `json:"elements,omitempty" yaml:"elements,omitempty"`
}

// OrbitalElem is one named orbital element of a KindElements coordinate.
type OrbitalElem struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// Tagged is a secondary position (REFERENCE, SKY, GUIDE) of a target component.
type Tagged struct {
	Tag    string     `json:"tag" yaml:"tag"`
	Coords Coordinate `json:"coords" yaml:"coords"`
}

// Calibration returns the placeholder used by observations that need no target.
func Calibration() Coordinate {
	return Coordinate{Kind: KindCalibration, Name: "CAL"}
}

// Auto returns the placeholder for observations whose target is chosen at run time.
func Auto() Coordinate {
	return Coordinate{Kind: KindAuto, Name: "AUTO"}
}

// IsZero reports whether c holds no position at all.
func (c Coordinate) IsZero() bool {
	return c.Kind == ""
}

func (c Coordinate) String() string {
	switch c.Kind {
	case KindRADec, KindFixed:
		return fmt.Sprintf("%s %s %s %s", c.Name, c.System, c.C1, c.C2)
	case "":
		return ""
	default:
		return fmt.Sprintf("%s (%s)", c.Name, c.Kind)
	}
}

// ParseTarget parses a <target> element.
func ParseTarget(el *etree.Element) (Coordinate, error) {
	if el == nil {
		return Coordinate{}, fmt.Errorf("no target element")
	}
	c := Coordinate{Name: childText(el, "targetName")}

	if sys := el.SelectElement("spherSystem"); sys != nil {
		c.System = strings.ToUpper(sys.SelectAttrValue("SYSTEM", "J2000"))
		c.C1 = childText(sys, "c1")
		c.C2 = childText(sys, "c2")
		if c.C1 == "" || c.C2 == "" {
			return Coordinate{}, fmt.Errorf("target %q: spherSystem needs c1 and c2", c.Name)
		}
		c.Kind = KindRADec
		if c.System == "AZEL" {
			c.Kind = KindFixed
		}
		return c, nil
	}

	if sys := el.SelectElement("namedSystem"); sys != nil {
		if c.Name == "" {
			return Coordinate{}, fmt.Errorf("named target without targetName")
		}
		c.Kind = KindPlanet
		c.System = sys.SelectAttrValue("type", "major")
		return c, nil
	}

	if sys := el.SelectElement("conicSystem"); sys != nil {
		c.Kind = KindElements
		c.System = sys.SelectAttrValue("type", "")
		for _, e := range sys.ChildElements() {
			c.Elements = append(c.Elements, OrbitalElem{Name: e.Tag, Value: strings.TrimSpace(e.Text())})
		}
		if len(c.Elements) == 0 {
			return Coordinate{}, fmt.Errorf("target %q: conicSystem has no elements", c.Name)
		}
		return c, nil
	}

	return Coordinate{}, fmt.Errorf("target %q: no coordinate system", c.Name)
}

func childText(el *etree.Element, tag string) string {
	if c := el.SelectElement(tag); c != nil {
		return strings.TrimSpace(c.Text())
	}
	return ""
}
