package msb

import (
	"fmt"

	"github.com/beevik/etree"
	"github.com/me/msbkit/pkg/coords"
	"github.com/me/msbkit/pkg/sp"
)

// TargetEntry is one candidate target of a survey container. Targets whose
// canonical XML is identical are merged into one entry that keeps every
// source element; the first source supplies the priority.
type TargetEntry struct {
	Coords   coords.Coordinate
	Tags     []coords.Tagged
	Priority int
	Sources  []*etree.Element

	key string
}

// Name returns the target name.
func (t *TargetEntry) Name() string {
	return t.Coords.Name
}

// Remaining returns the merged repeat counter. Active and exhausted sources
// add up; the entry reads as removed only when every source is removed.
func (t *TargetEntry) Remaining() Remaining {
	var active, removed Remaining
	anyActive, hard := false, false
	for _, src := range t.Sources {
		r := sourceRemaining(src)
		switch {
		case r == RemovedHard:
			hard = true
		case r < 0:
			removed += r
		default:
			anyActive = true
			active += r
		}
	}
	switch {
	case anyActive:
		return active
	case removed == 0 && hard:
		return RemovedHard
	default:
		return removed
	}
}

func sourceRemaining(el *etree.Element) Remaining {
	n, err := sp.IntAttr(el, sp.AttrRemaining, 1)
	if err != nil {
		return 0
	}
	return Remaining(n)
}

// parseTargets reads the TargetList of a survey container in document order.
func parseTargets(doc *sp.Document, container *etree.Element) ([]*TargetEntry, error) {
	list := container.SelectElement(sp.TagTargetList)
	if list == nil {
		return nil, &StructureError{Element: container.Tag, Message: "no TargetList"}
	}

	var entries []*TargetEntry
	byKey := make(map[string]*TargetEntry)
	for _, tgt := range list.SelectElements(sp.TagTarget) {
		key, err := doc.CanonicalChildren(tgt, sp.CanonicalOptions{})
		if err != nil {
			return nil, err
		}
		if _, err := sp.IntAttr(tgt, sp.AttrRemaining, 1); err != nil {
			return nil, &StructureError{Element: tgt.Tag, Message: err.Error()}
		}
		if e, dup := byKey[key]; dup {
			e.Sources = append(e.Sources, tgt)
			continue
		}

		priority, err := sp.IntAttr(tgt, sp.AttrPriority, 1)
		if err != nil {
			return nil, &StructureError{Element: tgt.Tag, Message: err.Error()}
		}
		if priority < 1 || priority > 99 {
			return nil, &StructureError{Element: tgt.Tag, Message: fmt.Sprintf("priority %d outside 1-99", priority)}
		}

		e := &TargetEntry{Priority: priority, Sources: []*etree.Element{tgt}, key: key}
		for _, ch := range tgt.ChildElements() {
			err := doc.Descend(ch, &sp.Trail{}, func(c *etree.Element) error {
				if c.Tag != sp.TagTelescope {
					return nil
				}
				primary, tags, _, err := parseTelescope(c)
				e.Coords, e.Tags = primary, tags
				return err
			})
			if err != nil {
				return nil, err
			}
		}
		if e.Coords.IsZero() {
			return nil, &StructureError{Element: tgt.Tag, Message: "target has no position"}
		}
		byKey[key] = e
		entries = append(entries, e)
	}
	return entries, nil
}

// substitute gives s the entry's position unless the observation carries its
// own target or is a calibration.
func substitute(s ObsSummary, t *TargetEntry) ObsSummary {
	if s.Standard {
		return s
	}
	if _, ok := s.Context.Target(); ok {
		return s
	}
	ctx := s.Context.With(KeyTarget, t.Coords).With(KeyCoordsKind, t.Coords.Kind)
	if len(t.Tags) > 0 && len(s.Context.CoordTags()) == 0 {
		ctx = ctx.With(KeyCoordTags, t.Tags)
	}
	s.Context = ctx
	return s
}

// templates returns the observation summaries of a survey container's
// children: plain SpObs directly below it and every SpObs of each child MSB.
func (w *walker) templates(container *etree.Element, base Context) ([]ObsSummary, error) {
	ctx := base.Without(targetKeys...)
	var out []ObsSummary
	for _, ch := range container.ChildElements() {
		switch {
		case ch.Tag == sp.TagObs:
			s, err := w.observation(ch, ctx, len(out))
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		case ch.Tag == sp.TagMSB:
			_, sums, err := w.summaries(ch, ctx)
			if err != nil {
				return nil, err
			}
			out = append(out, sums...)
		default:
			var err error
			if ctx, err = w.component(ch, ctx); err != nil {
				return nil, err
			}
			ctx = ctx.Without(targetKeys...)
		}
	}
	return out, nil
}

// templateOf returns the MSB below container that holds obs, or container
// itself for observations placed directly in it.
func templateOf(obs, container *etree.Element) *etree.Element {
	for el := obs; el != nil && el != container; el = el.Parent() {
		if sp.IsMSB(el) {
			return el
		}
	}
	return container
}

// ExpandSurvey unrolls every child observation of a survey container once
// per remaining repeat of every target, target-major and repeat-minor.
func ExpandSurvey(doc *sp.Document, container *etree.Element, base Context, opts Options) ([]Observation, error) {
	if container.Tag != sp.TagSurvey {
		return nil, &StructureError{Element: container.Tag, Message: "not a survey container"}
	}
	entries, err := parseTargets(doc, container)
	if err != nil {
		return nil, err
	}

	w := newWalker(doc, opts.logger())
	sums, err := w.templates(container, base)
	if err != nil {
		return nil, err
	}
	if len(sums) == 0 {
		return nil, &MissingObserveError{Title: sp.Text(container, sp.TagTitle)}
	}

	u := &unroller{title: sp.Text(container, sp.TagTitle), logger: opts.logger(), debug: opts.Debug}
	pid := sp.Text(doc.Root(), sp.TagProjectID)
	var out []Observation
	for _, e := range entries {
		checksums := make([]string, len(sums))
		for i, s := range sums {
			cs, err := computeChecksum(doc, templateOf(s.Element, container), e)
			if err != nil {
				return nil, err
			}
			checksums[i] = cs
		}
		for rep := Remaining(0); rep < e.Remaining(); rep++ {
			for i, s := range sums {
				obs, err := u.observations(doc, substitute(s, e))
				if err != nil {
					return nil, err
				}
				for j := range obs {
					obs[j].MSBChecksum, obs[j].ProjectID = checksums[i], pid
				}
				out = append(out, obs...)
			}
		}
	}
	w.commit()
	return out, nil
}
