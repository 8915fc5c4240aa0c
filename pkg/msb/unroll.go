package msb

import (
	"fmt"
	"log/slog"

	"github.com/me/msbkit/pkg/coords"
	"github.com/me/msbkit/pkg/sp"
)

// Observation is one fully specified observation of an unrolled MSB. Fields
// is the flattened Context handed to instrument translators.
type Observation struct {
	Label       string            `json:"label" yaml:"label"`
	Mode        Kind              `json:"mode" yaml:"mode"`
	Coords      coords.Coordinate `json:"coords" yaml:"coords"`
	Fields      map[string]string `json:"fields" yaml:"fields"`
	Context     Context           `json:"-" yaml:"-"`
	MSBChecksum string            `json:"msbChecksum" yaml:"msbChecksum"`
	ProjectID   string            `json:"projectId" yaml:"projectId"`
	Suspended   bool              `json:"suspended,omitempty" yaml:"suspended,omitempty"`
}

// unroller expands iterator trees into observations. The pass counter is
// shared by every observation of one MSB.
type unroller struct {
	title  string
	passes int
	logger *slog.Logger
	debug  bool
}

// observations builds and expands the sequence of one SpObs.
func (u *unroller) observations(doc *sp.Document, s ObsSummary) ([]Observation, error) {
	seq := s.Element.SelectElement(sp.TagIterFolder)
	if seq == nil {
		seq = s.Element.SelectElement(sp.TagIterFolder + "Ref")
	}
	if seq == nil {
		return nil, &MissingObserveError{Title: u.title}
	}

	b := &builder{doc: doc}
	root, err := b.build(seq)
	if err != nil {
		return nil, err
	}
	if !root.HasObserve() {
		return nil, &MissingObserveError{Title: u.title}
	}
	if u.debug {
		u.logger.Debug("iterator tree", "obsnum", s.Index, "expands_to", root.Count(), "tree", root.String())
	}
	return u.unroll(root, s, s.Context)
}

// unroll expands n depth-first: for each attribute set in order, every child
// is expanded under the merged context and the results are concatenated.
func (u *unroller) unroll(n *IteratorNode, s ObsSummary, ctx Context) ([]Observation, error) {
	if n.Kind.IsObserve() {
		o, err := u.emit(n, s, ctx)
		if err != nil {
			return nil, err
		}
		return []Observation{o}, nil
	}

	var out []Observation
	for _, set := range n.AttrSets {
		pass := ctx.Merge(set)
		for _, child := range n.Children {
			obs, err := u.unroll(child, s, pass)
			if err != nil {
				return nil, err
			}
			out = append(out, obs...)
		}
	}
	return out, nil
}

func (u *unroller) emit(leaf *IteratorNode, s ObsSummary, ctx Context) (Observation, error) {
	u.passes++
	label := fmt.Sprintf("obs%d_%d", s.Index, u.passes)
	ctx = ctx.Merge(leaf.Fields)

	var c coords.Coordinate
	target, hasTarget := ctx.Target()
	switch {
	case ctx.String(KeyAutoTarget) == "true":
		c = coords.Auto()
	case hasTarget:
		c = target
	case s.Standard || !leaf.Kind.NeedsTarget():
		c = coords.Calibration()
	default:
		return Observation{}, &MissingTargetError{Title: u.title, Obs: label}
	}
	ctx = ctx.With(KeyCoordsKind, c.Kind)

	o := Observation{Label: label, Mode: leaf.Kind, Coords: c, Fields: ctx.Map(), Context: ctx}
	if u.debug {
		u.logger.Debug("observation", "label", label, "mode", leaf.Kind, "coords", c.String())
	}
	return o, nil
}
