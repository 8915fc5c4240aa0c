// Package msb models Minimum Schedulable Blocks: inheritance of components,
// expansion of iterator sequences into observations, the content checksum
// and the remaining/suspend state machine.
//
// An MSB operates on a shared document tree and is not safe for concurrent
// use; Program serializes access for all MSBs of one document.
package msb

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/beevik/etree"
	"github.com/me/msbkit/pkg/sp"
)

// MSB is one schedulable block of a science program.
type MSB struct {
	doc      *sp.Document
	wrapper  *etree.Element
	override *TargetEntry
	opts     Options
	logger   *slog.Logger

	checksum     string
	summarized   bool
	msbContext   Context
	summaries    []ObsSummary
	observations []Observation

	// obsnums are written by the first successful Unroll.
	obsnums []func()
}

// New returns the MSB wrapped by wrapper, which must be an SpMSB or an SpObs
// flagged as an MSB.
func New(doc *sp.Document, wrapper *etree.Element, opts Options) (*MSB, error) {
	if !sp.IsMSB(wrapper) {
		return nil, &StructureError{Element: wrapper.Tag, Message: "not an MSB"}
	}
	return newMSB(doc, wrapper, nil, opts), nil
}

func newMSB(doc *sp.Document, wrapper *etree.Element, override *TargetEntry, opts Options) *MSB {
	m := &MSB{
		doc:      doc,
		wrapper:  wrapper,
		override: override,
		opts:     opts,
		logger:   opts.logger().With("component", "msb"),
	}
	m.checksum = m.storedChecksum()
	return m
}

// storedChecksum returns the checksum attribute of the wrapper. Survey
// members never use one since the template is shared.
func (m *MSB) storedChecksum() string {
	if m.override != nil {
		return ""
	}
	return strings.TrimSpace(m.wrapper.SelectAttrValue(sp.AttrChecksum, ""))
}

// Wrapper returns the element the MSB was built from.
func (m *MSB) Wrapper() *etree.Element {
	return m.wrapper
}

// OverrideTarget returns the survey target this MSB was synthesized for, or nil.
func (m *MSB) OverrideTarget() *TargetEntry {
	return m.override
}

// Title returns the MSB title.
func (m *MSB) Title() string {
	return sp.Text(m.wrapper, sp.TagTitle)
}

// ProjectID returns the project the MSB belongs to.
func (m *MSB) ProjectID() string {
	return sp.Text(m.doc.Root(), sp.TagProjectID)
}

// stateElement carries the remaining and suspend attributes.
func (m *MSB) stateElement() *etree.Element {
	if m.override != nil {
		return m.override.Sources[0]
	}
	return m.wrapper
}

// invalidate drops memoized state after the tree changed. Wrappers that
// moved have lost their stored checksum and are recomputed.
func (m *MSB) invalidate() {
	m.checksum = m.storedChecksum()
	m.summarized = false
	m.msbContext = Context{}
	m.summaries = nil
	m.observations = nil
	m.obsnums = nil
}

// Summary returns the inheritance-resolved summaries of the MSB's
// observations. The result is memoized.
func (m *MSB) Summary() ([]ObsSummary, error) {
	if err := m.summarize(); err != nil {
		return nil, err
	}
	return append([]ObsSummary(nil), m.summaries...), nil
}

func (m *MSB) summarize() error {
	if m.summarized {
		return nil
	}
	w := newWalker(m.doc, m.logger)
	base, err := w.inherited(m.wrapper)
	if err != nil {
		return err
	}

	var msbCtx Context
	var sums []ObsSummary
	if m.wrapper.Tag == sp.TagSurvey {
		msbCtx = base.Without(targetKeys...)
		sums, err = w.templates(m.wrapper, base)
	} else {
		msbCtx, sums, err = w.summaries(m.wrapper, base)
	}
	if err != nil {
		return err
	}
	if len(sums) == 0 {
		return &MissingObserveError{Title: m.Title()}
	}
	if m.override != nil {
		for i := range sums {
			sums[i] = substitute(sums[i], m.override)
		}
	}

	m.msbContext, m.summaries, m.summarized = msbCtx, sums, true
	m.obsnums = w.obsnums
	return nil
}

// Unroll expands the MSB into its ordered observations. The expansion is
// memoized; only the Suspended flag reflects the current suspend label.
// Missing obsnum attributes are written only once the expansion succeeded.
func (m *MSB) Unroll() ([]Observation, error) {
	if m.observations == nil {
		if err := m.summarize(); err != nil {
			return nil, err
		}
		u := &unroller{title: m.Title(), logger: m.logger, debug: m.opts.Debug}
		var all []Observation
		for _, s := range m.summaries {
			obs, err := u.observations(m.doc, s)
			if err != nil {
				return nil, err
			}
			all = append(all, obs...)
		}
		if len(all) == 0 {
			return nil, &MissingObserveError{Title: m.Title()}
		}
		cs, err := m.Checksum()
		if err != nil {
			return nil, err
		}
		pid := m.ProjectID()
		for i := range all {
			all[i].MSBChecksum = cs
			all[i].ProjectID = pid
		}
		edits(m.obsnums).apply()
		m.obsnums = nil
		m.observations = all
	}

	label := m.SuspendLabel()
	out := make([]Observation, len(m.observations))
	copy(out, m.observations)
	for i := range out {
		out[i].Suspended = label != "" && out[i].Label == label
	}
	return out, nil
}

// Checksum returns the MSB's content identity. A checksum already stored on
// the wrapper is used verbatim; a computed one is stored there.
func (m *MSB) Checksum() (string, error) {
	if m.checksum != "" {
		return m.checksum, nil
	}
	cs, err := computeChecksum(m.doc, m.wrapper, m.override)
	if err != nil {
		return "", err
	}
	if m.override == nil {
		m.wrapper.CreateAttr(sp.AttrChecksum, cs)
	}
	m.checksum = cs
	return cs, nil
}

// Remaining returns the MSB's repeat counter. Missing counters default to 1.
func (m *MSB) Remaining() (Remaining, error) {
	if m.override != nil {
		return m.override.Remaining(), nil
	}
	n, err := sp.IntAttr(m.wrapper, sp.AttrRemaining, 1)
	if err != nil {
		return 0, &StructureError{Element: m.wrapper.Tag, Message: err.Error()}
	}
	return Remaining(n), nil
}

type counterOp int

const (
	opObserve counterOp = iota
	opUnobserve
	opRemove
	opUnremove
)

func (op counterOp) next(r Remaining) Remaining {
	switch op {
	case opObserve:
		return r.Observed()
	case opUnobserve:
		return r.Unobserved()
	case opRemove:
		return r.Removed()
	default:
		return r.Unremoved()
	}
}

// counterEdits plans a counter update. Survey targets merged from several
// Target elements observe against the first one with repeats left and
// remove or restore all of them.
func (m *MSB) counterEdits(op counterOp) (edits, error) {
	if m.override == nil {
		cur, err := m.Remaining()
		if err != nil {
			return nil, err
		}
		return edits{setRemaining(m.wrapper, op.next(cur))}, nil
	}

	srcs := m.override.Sources
	switch op {
	case opObserve:
		for _, src := range srcs {
			if r := sourceRemaining(src); r > 0 {
				return edits{setRemaining(src, r.Observed())}, nil
			}
		}
		return edits{setRemaining(srcs[0], sourceRemaining(srcs[0]).Observed())}, nil
	case opUnobserve:
		return edits{setRemaining(srcs[0], sourceRemaining(srcs[0]).Unobserved())}, nil
	default:
		var plan edits
		for _, src := range srcs {
			plan.add(setRemaining(src, op.next(sourceRemaining(src))))
		}
		return plan, nil
	}
}

// Observe records one execution of the MSB: the counter decrements, any
// suspension is cleared and, if the MSB sits in an OR group, it leaves the
// group. Observing an MSB that already left its group does not touch the
// group again.
func (m *MSB) Observe() error {
	_, err := m.observe()
	return err
}

// observe returns the element moved out of an OR group, if any.
func (m *MSB) observe() (*etree.Element, error) {
	cur, err := m.Remaining()
	if err != nil {
		return nil, err
	}
	plan, err := m.counterEdits(opObserve)
	if err != nil {
		return nil, err
	}
	state := m.stateElement()
	plan.add(func() { state.RemoveAttr(sp.AttrSuspend) })

	var moved *etree.Element
	if !cur.IsRemoved() {
		if unit, or := orGroup(m.wrapper); or != nil {
			orPlan, err := planORObserved(unit, or)
			if err != nil {
				return nil, err
			}
			plan.add(orPlan...)
			moved = unit
		}
	}

	plan.apply()
	if moved != nil {
		m.invalidate()
	}
	next, _ := m.Remaining()
	m.logger.Info("msb observed", "title", m.Title(), "remaining", int(next), "left_or", moved != nil)
	return moved, nil
}

// Unobserve withdraws one recorded execution.
func (m *MSB) Unobserve() error {
	return m.applyCounter(opUnobserve, "unobserved")
}

// Remove takes the MSB out of scheduling, keeping its count for Unremove.
func (m *MSB) Remove() error {
	return m.applyCounter(opRemove, "removed")
}

// Unremove restores a removed MSB.
func (m *MSB) Unremove() error {
	return m.applyCounter(opUnremove, "unremoved")
}

func (m *MSB) applyCounter(op counterOp, verb string) error {
	plan, err := m.counterEdits(op)
	if err != nil {
		return err
	}
	plan.apply()
	next, _ := m.Remaining()
	m.logger.Info("msb "+verb, "title", m.Title(), "remaining", int(next))
	return nil
}

// SuspendLabel returns the label of the observation at which the MSB was
// suspended, or "".
func (m *MSB) SuspendLabel() string {
	return m.stateElement().SelectAttrValue(sp.AttrSuspend, "")
}

// Suspend marks the MSB as interrupted at the observation with the given
// label. Removed MSBs cannot be suspended.
func (m *MSB) Suspend(label string) error {
	cur, err := m.Remaining()
	if err != nil {
		return err
	}
	if cur.IsRemoved() {
		return &InvalidTransitionError{From: cur.State(), Op: "suspend"}
	}
	obs, err := m.Unroll()
	if err != nil {
		return err
	}
	found := false
	for _, o := range obs {
		if o.Label == label {
			found = true
			break
		}
	}
	if !found {
		return &StructureError{Element: m.wrapper.Tag, Message: fmt.Sprintf("no observation labelled %q", label)}
	}
	m.stateElement().CreateAttr(sp.AttrSuspend, label)
	m.logger.Info("msb suspended", "title", m.Title(), "label", label)
	return nil
}

// Resume clears a suspension.
func (m *MSB) Resume() error {
	cur, err := m.Remaining()
	if err != nil {
		return err
	}
	if cur.IsRemoved() {
		return &InvalidTransitionError{From: cur.State(), Op: "resume"}
	}
	m.stateElement().RemoveAttr(sp.AttrSuspend)
	return nil
}

// Constraints are the scheduling and weather requirements inherited at MSB level.
type Constraints struct {
	Schedule []Field `json:"schedule,omitempty" yaml:"schedule,omitempty"`
	Weather  []Field `json:"weather,omitempty" yaml:"weather,omitempty"`
}

// SchedulingConstraints returns the MSB-level scheduling constraints and
// site-quality ranges, with their key prefixes removed.
func (m *MSB) SchedulingConstraints() (Constraints, error) {
	if err := m.summarize(); err != nil {
		return Constraints{}, err
	}
	var c Constraints
	for _, f := range m.msbContext.Fields() {
		switch {
		case strings.HasPrefix(f.Key, PrefixSchedule):
			c.Schedule = append(c.Schedule, Field{Key: strings.TrimPrefix(f.Key, PrefixSchedule), Value: f.Value})
		case strings.HasPrefix(f.Key, PrefixWeather):
			c.Weather = append(c.Weather, Field{Key: strings.TrimPrefix(f.Key, PrefixWeather), Value: f.Value})
		}
	}
	return c, nil
}

// SiteQuality returns the MSB-level weather ranges.
func (m *MSB) SiteQuality() ([]Field, error) {
	c, err := m.SchedulingConstraints()
	if err != nil {
		return nil, err
	}
	return c.Weather, nil
}
