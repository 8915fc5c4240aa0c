package msb

import (
	"errors"
	"testing"

	"github.com/me/msbkit/pkg/sp"
)

func twoObsDoc() string {
	return program(`<SpMSB remaining="2"><title>pair</title>` + telescope("T", "1:00:00", "2:00:00") +
		`<SpObs>` + stare + `</SpObs><SpObs>` + stare + `</SpObs></SpMSB>`)
}

func TestNew_RejectsNonMSB(t *testing.T) {
	doc := mustDoc(t, program(`<SpOR/>`))
	_, err := New(doc, doc.Root().SelectElement(sp.TagOR), Options{})
	var serr *StructureError
	if !errors.As(err, &serr) {
		t.Fatalf("err = %v, want StructureError", err)
	}
}

func TestMSB_Identity(t *testing.T) {
	m := firstMSB(t, twoObsDoc())
	if m.Title() != "pair" {
		t.Errorf("Title() = %q, want pair", m.Title())
	}
	if m.ProjectID() != "M25BP042" {
		t.Errorf("ProjectID() = %q, want M25BP042", m.ProjectID())
	}
	if m.OverrideTarget() != nil {
		t.Error("plain MSB has an override target")
	}
}

func TestMSB_RemainingLifecycle(t *testing.T) {
	m := firstMSB(t, twoObsDoc())
	steps := []struct {
		op   string
		fn   func() error
		want Remaining
	}{
		{"observe", m.Observe, 1},
		{"observe", m.Observe, 0},
		{"observe exhausted", m.Observe, 0},
		{"unobserve", m.Unobserve, 1},
		{"remove", m.Remove, -1},
		{"unremove", m.Unremove, 1},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			t.Fatalf("%s: %v", s.op, err)
		}
		got, err := m.Remaining()
		if err != nil {
			t.Fatalf("Remaining after %s: %v", s.op, err)
		}
		if got != s.want {
			t.Errorf("after %s remaining = %d, want %d", s.op, got, s.want)
		}
	}
}

func TestMSB_DefaultRemaining(t *testing.T) {
	m := firstMSB(t, program(`<SpMSB><title>once</title><SpObs>`+stare+`</SpObs></SpMSB>`))
	r, err := m.Remaining()
	if err != nil || r != 1 {
		t.Errorf("Remaining() = %d, %v; want 1", r, err)
	}
}

func TestMSB_SuspendResume(t *testing.T) {
	m := firstMSB(t, twoObsDoc())

	if err := m.Suspend("obs1_2"); err != nil {
		t.Fatalf("Suspend: %v", err)
	}
	if got := m.SuspendLabel(); got != "obs1_2" {
		t.Errorf("SuspendLabel() = %q, want obs1_2", got)
	}
	obs, err := m.Unroll()
	if err != nil {
		t.Fatalf("Unroll: %v", err)
	}
	if obs[0].Suspended || !obs[1].Suspended {
		t.Errorf("suspended flags = %v, %v; want false, true", obs[0].Suspended, obs[1].Suspended)
	}

	if err := m.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if got := m.SuspendLabel(); got != "" {
		t.Errorf("SuspendLabel() after resume = %q", got)
	}
}

func TestMSB_SuspendUnknownLabel(t *testing.T) {
	m := firstMSB(t, twoObsDoc())
	err := m.Suspend("obs9_9")
	var serr *StructureError
	if !errors.As(err, &serr) {
		t.Fatalf("err = %v, want StructureError", err)
	}
	if m.Wrapper().SelectAttr(sp.AttrSuspend) != nil {
		t.Error("failed suspend left a suspend attribute")
	}
}

func TestMSB_ObserveClearsSuspend(t *testing.T) {
	m := firstMSB(t, twoObsDoc())
	if err := m.Suspend("obs0_1"); err != nil {
		t.Fatalf("Suspend: %v", err)
	}
	if err := m.Observe(); err != nil {
		t.Fatalf("Observe: %v", err)
	}
	if got := m.SuspendLabel(); got != "" {
		t.Errorf("SuspendLabel() after observe = %q, want empty", got)
	}
}

func TestMSB_RemovedCannotSuspend(t *testing.T) {
	m := firstMSB(t, twoObsDoc())
	if err := m.Remove(); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	for op, fn := range map[string]func() error{
		"suspend": func() error { return m.Suspend("obs0_1") },
		"resume":  m.Resume,
	} {
		err := fn()
		var terr *InvalidTransitionError
		if !errors.As(err, &terr) {
			t.Fatalf("%s: err = %v, want InvalidTransitionError", op, err)
		}
		if terr.From != StateRemoved || terr.Op != op {
			t.Errorf("%s: error = %+v", op, terr)
		}
	}
}

func TestMSB_MalformedRemaining(t *testing.T) {
	m := firstMSB(t, program(`<SpMSB remaining="two"><title>bad</title><SpObs>`+stare+`</SpObs></SpMSB>`))
	var serr *StructureError
	if err := m.Observe(); !errors.As(err, &serr) {
		t.Fatalf("err = %v, want StructureError", err)
	}
}

func TestMSB_ObsWrapper(t *testing.T) {
	m := firstMSB(t, program(`<SpObs msb="true" remaining="1"><title>single</title>`+
		telescope("T", "1:00:00", "2:00:00")+stare+`</SpObs>`))
	obs, err := m.Unroll()
	if err != nil {
		t.Fatalf("Unroll: %v", err)
	}
	if len(obs) != 1 || obs[0].Label != "obs0_1" || obs[0].Coords.Name != "T" {
		t.Errorf("observations = %+v", flatten(obs))
	}
}
