package msb

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/beevik/etree"
	"github.com/me/msbkit/pkg/coords"
	"github.com/me/msbkit/pkg/sp"
)

// ObsSummary is the inheritance-resolved view of one SpObs before its
// iterator sequence is expanded.
type ObsSummary struct {
	Index    int
	Title    string
	Standard bool
	Context  Context
	Element  *etree.Element
}

type componentKind int

const (
	compNone componentKind = iota
	compTelescope
	compSiteQuality
	compSchedConst
	compInstrument
	compDRRecipe
	compTelescopeName
)

func classifyComponent(tag string) componentKind {
	switch {
	case tag == sp.TagTelescope:
		return compTelescope
	case tag == sp.TagSiteQuality:
		return compSiteQuality
	case tag == sp.TagSchedConst:
		return compSchedConst
	case tag == sp.TagDRRecipe:
		return compDRRecipe
	case tag == sp.TagTelescopeID:
		return compTelescopeName
	case strings.HasPrefix(tag, sp.PrefixInstrument):
		return compInstrument
	}
	return compNone
}

// walker performs the top-down inheritance traversal.
type walker struct {
	doc    *sp.Document
	trail  sp.Trail
	logger *slog.Logger

	// obsnums holds obsnum attributes to write once the walk succeeds.
	obsnums []func()
}

func newWalker(doc *sp.Document, logger *slog.Logger) *walker {
	return &walker{doc: doc, logger: logger}
}

// component merges el into ctx if it is a recognized component. Later
// components of the same kind replace earlier ones wholesale.
func (w *walker) component(el *etree.Element, ctx Context) (Context, error) {
	if sp.IsReference(el) && classifyComponent(strings.TrimSuffix(el.Tag, "Ref")) == compNone {
		return ctx, nil
	}
	var out Context
	err := w.doc.Descend(el, &w.trail, func(c *etree.Element) error {
		var err error
		switch classifyComponent(c.Tag) {
		case compTelescope:
			out, err = mergeTelescope(c, ctx)
		case compSiteQuality:
			out = mergeRanges(c, ctx, PrefixWeather)
		case compSchedConst:
			out = mergeRanges(c, ctx, PrefixSchedule)
		case compInstrument:
			out = mergeInstrument(c, ctx)
		case compDRRecipe:
			out = ctx.With(KeyDRRecipe, firstNonEmpty(sp.Text(c, "recipe"), strings.TrimSpace(c.Text())))
		case compTelescopeName:
			out = ctx.With(KeyTelescope, strings.TrimSpace(c.Text()))
		default:
			out = ctx
		}
		return err
	})
	if err != nil {
		return Context{}, err
	}
	return out, nil
}

// parseTelescope extracts the primary position, the secondary positions and
// the auto-target flag of an SpTelescopeObsComp.
func parseTelescope(el *etree.Element) (primary coords.Coordinate, tags []coords.Tagged, auto bool, err error) {
	for _, base := range el.SelectElements("BASE") {
		kind := base.SelectAttrValue("TYPE", "Base")
		tgt := base.SelectElement("target")
		if tgt == nil {
			continue
		}
		c, perr := coords.ParseTarget(tgt)
		if perr != nil {
			return coords.Coordinate{}, nil, false, &StructureError{Element: el.Tag, Message: perr.Error()}
		}
		switch strings.ToUpper(kind) {
		case "BASE", "SCIENCE":
			primary = c
		default:
			tags = append(tags, coords.Tagged{Tag: strings.ToUpper(kind), Coords: c})
		}
	}
	auto = strings.EqualFold(sp.Text(el, "autoTarget"), "true")
	return primary, tags, auto, nil
}

func mergeTelescope(el *etree.Element, ctx Context) (Context, error) {
	primary, tags, auto, err := parseTelescope(el)
	if err != nil {
		return Context{}, err
	}
	out := ctx.Without(targetKeys...)
	if !primary.IsZero() {
		out.set(KeyTarget, primary)
		out.set(KeyCoordsKind, primary.Kind)
	}
	if len(tags) > 0 {
		out.set(KeyCoordTags, tags)
	}
	if auto {
		out.set(KeyAutoTarget, "true")
	}
	return out, nil
}

// mergeRanges flattens a component whose children are either simple values
// or <min>/<max> ranges, replacing every earlier key under prefix.
func mergeRanges(el *etree.Element, ctx Context, prefix string) Context {
	var drop []string
	for _, k := range ctx.keys {
		if strings.HasPrefix(k, prefix) {
			drop = append(drop, k)
		}
	}
	out := ctx.Without(drop...)
	for _, c := range el.ChildElements() {
		lo, hi := c.SelectElement("min"), c.SelectElement("max")
		if lo == nil && hi == nil {
			if v := strings.TrimSpace(c.Text()); v != "" {
				out.set(prefix+c.Tag, v)
			}
			continue
		}
		if lo != nil {
			out.set(prefix+c.Tag+".min", strings.TrimSpace(lo.Text()))
		}
		if hi != nil {
			out.set(prefix+c.Tag+".max", strings.TrimSpace(hi.Text()))
		}
	}
	return out
}

func mergeInstrument(el *etree.Element, ctx Context) Context {
	out := ctx.Without(KeyWaveband)
	out.set(KeyInstrument, strings.TrimPrefix(el.Tag, sp.PrefixInstrument))
	for _, tag := range []string{"waveband", "filter", "restFrequency", "wavelength"} {
		if v := sp.Text(el, tag); v != "" {
			out.set(KeyWaveband, v)
			break
		}
	}
	return out
}

// inherited returns the context an element sees from its ancestors: the
// components that precede the path to el at every level. Passing through a
// survey container drops any inherited target.
func (w *walker) inherited(el *etree.Element) (Context, error) {
	var ctx Context
	anc := sp.Ancestors(el)
	for i, a := range anc {
		next := el
		if i+1 < len(anc) {
			next = anc[i+1]
		}
		for _, ch := range a.ChildElements() {
			if ch == next {
				break
			}
			var err error
			if ctx, err = w.component(ch, ctx); err != nil {
				return Context{}, err
			}
		}
		if a.Tag == sp.TagSurvey {
			ctx = ctx.Without(targetKeys...)
		}
	}
	return ctx, nil
}

// summaries walks an MSB wrapper. It returns the MSB-level context (every
// component directly below the wrapper) and one summary per SpObs.
func (w *walker) summaries(wrapper *etree.Element, base Context) (Context, []ObsSummary, error) {
	if wrapper.Tag == sp.TagObs {
		s, err := w.observation(wrapper, base, 0)
		if err != nil {
			return Context{}, nil, err
		}
		return s.Context, []ObsSummary{s}, nil
	}

	ctx := base
	var out []ObsSummary
	for _, ch := range wrapper.ChildElements() {
		if ch.Tag == sp.TagObs {
			s, err := w.observation(ch, ctx, len(out))
			if err != nil {
				return Context{}, nil, err
			}
			out = append(out, s)
			continue
		}
		var err error
		if ctx, err = w.component(ch, ctx); err != nil {
			return Context{}, nil, err
		}
	}
	return ctx, out, nil
}

// observation snapshots the context seen by one SpObs after its own
// components are applied.
func (w *walker) observation(obs *etree.Element, ctx Context, index int) (ObsSummary, error) {
	for _, ch := range obs.ChildElements() {
		var err error
		if ctx, err = w.component(ch, ctx); err != nil {
			return ObsSummary{}, err
		}
	}

	n, err := sp.IntAttr(obs, sp.AttrObsnum, -1)
	if err != nil {
		return ObsSummary{}, &StructureError{Element: obs.Tag, Message: err.Error()}
	}
	if n < 0 {
		n = index
		w.obsnums = append(w.obsnums, func() {
			obs.CreateAttr(sp.AttrObsnum, fmt.Sprint(index))
		})
	}

	s := ObsSummary{
		Index:    n,
		Title:    sp.Text(obs, sp.TagTitle),
		Standard: sp.BoolAttr(obs, sp.AttrStandard),
		Context:  ctx,
		Element:  obs,
	}
	w.logger.Debug("observation summary", "obsnum", n, "title", s.Title, "keys", ctx.Len())
	return s, nil
}

// commit writes the obsnum attributes assigned during the walk.
func (w *walker) commit() {
	for _, f := range w.obsnums {
		f()
	}
	w.obsnums = nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
