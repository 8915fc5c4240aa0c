package msb

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/me/msbkit/pkg/sp"
)

var inheritDoc = program(`
  <SpSiteQualityObsComp id="sq"><tauBand><min>0.05</min><max>0.12</max></tauBand><seeing>1.2</seeing></SpSiteQualityObsComp>
  <SpMSB remaining="1">
    <title>inherit</title>
    <SpSiteQualityObsCompRef idref="sq"/>
    <SpSchedConstObsComp><earliest>2025-01-01T00:00:00</earliest><latest>2025-06-01T00:00:00</latest></SpSchedConstObsComp>
    ` + telescope("M31", "0:42:44.3", "41:16:09") + `
    <SpInstSCUBA2><filter>850</filter></SpInstSCUBA2>
    <SpObs><title>first</title>` + stare + `</SpObs>
    <SpObs><title>second</title>` + telescope("M42", "5:35:17", "-5:23:28") + stare + `</SpObs>
    <SpObs><title>third</title><SpInstHARP><restFrequency>345.796</restFrequency></SpInstHARP>` + stare + `</SpObs>
  </SpMSB>`)

func TestSummary_Inheritance(t *testing.T) {
	m := firstMSB(t, inheritDoc)
	sums, err := m.Summary()
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if len(sums) != 3 {
		t.Fatalf("len(summaries) = %d, want 3", len(sums))
	}

	wantTargets := []string{"M31", "M42", "M31"}
	for i, s := range sums {
		tgt, ok := s.Context.Target()
		if !ok {
			t.Fatalf("summary %d has no target", i)
		}
		if tgt.Name != wantTargets[i] {
			t.Errorf("summary %d target = %q, want %q", i, tgt.Name, wantTargets[i])
		}
		if s.Index != i {
			t.Errorf("summary %d obsnum = %d, want %d", i, s.Index, i)
		}
		if got := s.Context.String(PrefixWeather + "tauBand.max"); got != "0.12" {
			t.Errorf("summary %d tauBand.max = %q, want %q", i, got, "0.12")
		}
	}

	if got := sums[0].Context.String(KeyInstrument); got != "SCUBA2" {
		t.Errorf("instrument = %q, want SCUBA2", got)
	}
	if got := sums[2].Context.String(KeyInstrument); got != "HARP" {
		t.Errorf("overridden instrument = %q, want HARP", got)
	}
	if got := sums[2].Context.String(KeyWaveband); got != "345.796" {
		t.Errorf("overridden waveband = %q, want 345.796", got)
	}
}

func TestUnroll_AssignsObsnums(t *testing.T) {
	m := firstMSB(t, inheritDoc)
	if _, err := m.Summary(); err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if got := m.Wrapper().SelectElement(sp.TagObs).SelectAttrValue(sp.AttrObsnum, ""); got != "" {
		t.Errorf("Summary wrote obsnum %q", got)
	}
	if _, err := m.Unroll(); err != nil {
		t.Fatalf("Unroll: %v", err)
	}
	for i, obs := range m.Wrapper().SelectElements(sp.TagObs) {
		want := []string{"0", "1", "2"}[i]
		if got := obs.SelectAttrValue(sp.AttrObsnum, ""); got != want {
			t.Errorf("obs %d obsnum attr = %q, want %q", i, got, want)
		}
	}
}

func TestSchedulingConstraints(t *testing.T) {
	m := firstMSB(t, inheritDoc)
	c, err := m.SchedulingConstraints()
	if err != nil {
		t.Fatalf("SchedulingConstraints: %v", err)
	}
	want := Constraints{
		Schedule: []Field{
			{Key: "earliest", Value: "2025-01-01T00:00:00"},
			{Key: "latest", Value: "2025-06-01T00:00:00"},
		},
		Weather: []Field{
			{Key: "tauBand.min", Value: "0.05"},
			{Key: "tauBand.max", Value: "0.12"},
			{Key: "seeing", Value: "1.2"},
		},
	}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("constraints mismatch (-want +got):\n%s", diff)
	}
}

func TestSummary_LaterComponentWins(t *testing.T) {
	doc := program(`<SpMSB><title>twice</title>` +
		telescope("A", "1:00:00", "1:00:00") + telescope("B", "2:00:00", "2:00:00") +
		`<SpObs>` + stare + `</SpObs></SpMSB>`)
	sums, err := firstMSB(t, doc).Summary()
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	tgt, _ := sums[0].Context.Target()
	if tgt.Name != "B" {
		t.Errorf("target = %q, want B", tgt.Name)
	}
}

func TestSummary_DanglingReference(t *testing.T) {
	m := firstMSB(t, program(`<SpMSB><title>broken</title><SpTelescopeObsCompRef idref="nope"/><SpObs>`+stare+`</SpObs></SpMSB>`))
	before, _ := m.doc.Bytes()

	_, err := m.Unroll()
	var dangling *sp.DanglingReferenceError
	if !errors.As(err, &dangling) {
		t.Fatalf("err = %v, want DanglingReferenceError", err)
	}

	after, _ := m.doc.Bytes()
	if string(before) != string(after) {
		t.Errorf("failed unroll modified the document:\n%s", after)
	}
}

func TestUnroll_FailureLeavesNoObsnums(t *testing.T) {
	m := firstMSB(t, program(`<SpMSB><title>untargeted</title><SpObs>`+stare+`</SpObs><SpObs>`+stare+`</SpObs></SpMSB>`))
	before, _ := m.doc.Bytes()

	_, err := m.Unroll()
	var missing *MissingTargetError
	if !errors.As(err, &missing) {
		t.Fatalf("err = %v, want MissingTargetError", err)
	}
	for i, obs := range m.Wrapper().SelectElements(sp.TagObs) {
		if got := obs.SelectAttrValue(sp.AttrObsnum, ""); got != "" {
			t.Errorf("obs %d obsnum attr = %q after failed unroll", i, got)
		}
	}
	if after, _ := m.doc.Bytes(); string(before) != string(after) {
		t.Errorf("failed unroll modified the document:\n%s", after)
	}
}

func TestSummary_ReferenceCycle(t *testing.T) {
	m := firstMSB(t, program(`<SpSiteQualityObsComp id="a" idref="b"/><SpSiteQualityObsComp id="b" idref="a"/>`+
		`<SpMSB><title>cyclic</title><SpSiteQualityObsCompRef idref="a"/><SpObs>`+stare+`</SpObs></SpMSB>`))
	_, err := m.Summary()
	var cycle *sp.ReferenceCycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("err = %v, want ReferenceCycleError", err)
	}
}
