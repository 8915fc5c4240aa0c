package msb

import (
	"fmt"
	"sync"

	"github.com/beevik/etree"
	"github.com/me/msbkit/pkg/sp"
)

// Program is a parsed science program and the MSBs found in it. Its methods
// serialize access to the shared document.
type Program struct {
	mu   sync.Mutex
	doc  *sp.Document
	opts Options
	msbs []*MSB
}

// ParseProgram parses a science program document.
func ParseProgram(data []byte, opts Options) (*Program, error) {
	doc, err := sp.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing program: %w", err)
	}
	return NewProgram(doc, opts)
}

// NewProgram discovers the MSBs of doc. Survey containers contribute one MSB
// per template and target.
func NewProgram(doc *sp.Document, opts Options) (*Program, error) {
	p := &Program{doc: doc, opts: opts}
	if err := p.discover(doc.Root()); err != nil {
		return nil, err
	}
	opts.logger().Debug("program loaded", "project", p.projectID(), "msbs", len(p.msbs))
	return p, nil
}

func (p *Program) discover(el *etree.Element) error {
	for _, ch := range el.ChildElements() {
		switch {
		case ch.Tag == sp.TagSurvey:
			if err := p.survey(ch); err != nil {
				return err
			}
		case sp.IsMSB(ch):
			p.msbs = append(p.msbs, newMSB(p.doc, ch, nil, p.opts))
		default:
			if err := p.discover(ch); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Program) survey(container *etree.Element) error {
	entries, err := parseTargets(p.doc, container)
	if err != nil {
		return err
	}
	var tmpls []*etree.Element
	for _, ch := range container.ChildElements() {
		if sp.IsMSB(ch) {
			tmpls = append(tmpls, ch)
		}
	}
	if len(tmpls) == 0 {
		tmpls = []*etree.Element{container}
	}
	for _, e := range entries {
		for _, t := range tmpls {
			p.msbs = append(p.msbs, newMSB(p.doc, t, e, p.opts))
		}
	}
	return nil
}

// Document returns the underlying document.
func (p *Program) Document() *sp.Document {
	return p.doc
}

// MSBs returns the program's MSBs in document order.
func (p *Program) MSBs() []*MSB {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*MSB(nil), p.msbs...)
}

// ProjectID returns the program's project identifier.
func (p *Program) ProjectID() string {
	return p.projectID()
}

func (p *Program) projectID() string {
	return sp.Text(p.doc.Root(), sp.TagProjectID)
}

// Find returns the MSB with the given checksum.
func (p *Program) Find(checksum string) (*MSB, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.find(checksum)
}

func (p *Program) find(checksum string) (*MSB, error) {
	for _, m := range p.msbs {
		cs, err := m.Checksum()
		if err != nil {
			return nil, fmt.Errorf("checksum of %q: %w", m.Title(), err)
		}
		if cs == checksum {
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, checksum)
}

// Observe marks the MSB with the given checksum as observed once. The MSB
// is returned; its checksum changes if it left an OR group.
func (p *Program) Observe(checksum string) (*MSB, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, err := p.find(checksum)
	if err != nil {
		return nil, err
	}
	moved, err := m.observe()
	if err != nil {
		return nil, err
	}
	if moved != nil {
		for _, o := range p.msbs {
			o.invalidate()
		}
	}
	return m, nil
}

// Unobserve reverses one observation of the MSB with the given checksum.
func (p *Program) Unobserve(checksum string) (*MSB, error) {
	return p.apply(checksum, (*MSB).Unobserve)
}

// Remove removes the MSB with the given checksum from scheduling.
func (p *Program) Remove(checksum string) (*MSB, error) {
	return p.apply(checksum, (*MSB).Remove)
}

// Unremove restores the MSB with the given checksum.
func (p *Program) Unremove(checksum string) (*MSB, error) {
	return p.apply(checksum, (*MSB).Unremove)
}

// Suspend suspends the MSB with the given checksum at label.
func (p *Program) Suspend(checksum, label string) (*MSB, error) {
	return p.apply(checksum, func(m *MSB) error { return m.Suspend(label) })
}

// Resume clears the suspension of the MSB with the given checksum.
func (p *Program) Resume(checksum string) (*MSB, error) {
	return p.apply(checksum, (*MSB).Resume)
}

func (p *Program) apply(checksum string, fn func(*MSB) error) (*MSB, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, err := p.find(checksum)
	if err != nil {
		return nil, err
	}
	if err := fn(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Bytes serializes the program, including every state change made so far.
func (p *Program) Bytes() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doc.Bytes()
}
