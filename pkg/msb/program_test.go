package msb

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/me/msbkit/pkg/sp"
)

func TestProgram_Discovery(t *testing.T) {
	p := mustProgram(t, program(simpleMSB("plain", 1, "P")+
		`<SpOR>`+simpleMSB("ored", 1, "O")+`</SpOR>`+
		`<SpObs msb="true"><title>bare</title>`+telescope("B", "1:00:00", "1:00:00")+stare+`</SpObs>`+
		`<SpObs><title>not an msb</title></SpObs>`))

	var titles []string
	for _, m := range p.MSBs() {
		titles = append(titles, m.Title())
	}
	if diff := cmp.Diff([]string{"plain", "ored", "bare"}, titles); diff != "" {
		t.Errorf("MSBs mismatch (-want +got):\n%s", diff)
	}
	if p.ProjectID() != "M25BP042" {
		t.Errorf("ProjectID() = %q", p.ProjectID())
	}
}

func TestProgram_SurveyMembers(t *testing.T) {
	p := mustProgram(t, surveyDoc(target("A", 2, 1), target("B", 1, 1)))
	msbs := p.MSBs()
	if len(msbs) != 2 {
		t.Fatalf("len(MSBs) = %d, want one per target", len(msbs))
	}

	seen := map[string]bool{}
	for i, want := range []string{"A", "B"} {
		m := msbs[i]
		if m.OverrideTarget().Name() != want {
			t.Errorf("member %d target = %q, want %q", i, m.OverrideTarget().Name(), want)
		}
		cs, err := m.Checksum()
		if err != nil {
			t.Fatalf("Checksum: %v", err)
		}
		if seen[cs] {
			t.Errorf("member %d checksum %s not unique", i, cs)
		}
		seen[cs] = true

		obs, err := m.Unroll()
		if err != nil {
			t.Fatalf("Unroll: %v", err)
		}
		if len(obs) != 1 || obs[0].Coords.Name != want {
			t.Errorf("member %d observations = %+v", i, flatten(obs))
		}
	}
	if got := msbs[0].Wrapper().SelectAttr(sp.AttrChecksum); got != nil {
		t.Errorf("survey member stored checksum %q on the shared template", got.Value)
	}
}

func TestProgram_ObserveSurveyMember(t *testing.T) {
	p := mustProgram(t, surveyDoc(target("A", 2, 1), target("B", 1, 1)))
	a := p.MSBs()[0]
	cs, _ := a.Checksum()

	if _, err := p.Observe(cs); err != nil {
		t.Fatalf("Observe: %v", err)
	}
	if r, _ := a.Remaining(); r != 1 {
		t.Errorf("A remaining = %d, want 1", r)
	}
	src := a.OverrideTarget().Sources[0]
	if got := src.SelectAttrValue(sp.AttrRemaining, ""); got != "1" {
		t.Errorf("Target remaining attr = %q, want 1", got)
	}
	if r, _ := p.MSBs()[1].Remaining(); r != 1 {
		t.Errorf("B remaining = %d, want untouched 1", r)
	}

	if _, err := p.Suspend(cs, "obs0_1"); err != nil {
		t.Fatalf("Suspend: %v", err)
	}
	if got := src.SelectAttrValue(sp.AttrSuspend, ""); got != "obs0_1" {
		t.Errorf("suspend attr = %q, want obs0_1 on the Target", got)
	}
}

func TestProgram_RemoveMergedTarget(t *testing.T) {
	p := mustProgram(t, surveyDoc(target("A", 1, 1), target("A", 2, 1)))
	a := p.MSBs()[0]
	cs, _ := a.Checksum()
	if _, err := p.Remove(cs); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if r, _ := a.Remaining(); r != -3 {
		t.Errorf("merged remaining = %d, want -3", r)
	}
	if _, err := p.Unremove(cs); err != nil {
		t.Fatalf("Unremove: %v", err)
	}
	if r, _ := a.Remaining(); r != 3 {
		t.Errorf("merged remaining = %d, want 3", r)
	}
}

func TestProgram_FindUnknown(t *testing.T) {
	p := mustProgram(t, program(simpleMSB("a", 1, "A")))
	_, err := p.Observe("0123456789abcdef")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestProgram_BytesRoundTrip(t *testing.T) {
	p := mustProgram(t, program(simpleMSB("a", 3, "A")))
	cs, _ := p.MSBs()[0].Checksum()
	if _, err := p.Observe(cs); err != nil {
		t.Fatalf("Observe: %v", err)
	}
	data, err := p.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}

	reloaded := mustProgram(t, string(data))
	m, err := reloaded.Find(cs)
	if err != nil {
		t.Fatalf("Find after reload: %v", err)
	}
	if r, _ := m.Remaining(); r != 2 {
		t.Errorf("remaining after reload = %d, want 2", r)
	}
}

func TestProgram_UnobserveAfterLeavingOR(t *testing.T) {
	p := mustProgram(t, orDoc())
	old, _ := byTitle(t, p, "c").Checksum()
	if _, err := p.Observe(old); err != nil {
		t.Fatalf("Observe: %v", err)
	}
	cs, err := byTitle(t, p, "c").Checksum()
	if err != nil {
		t.Fatalf("Checksum: %v", err)
	}
	if cs == old {
		t.Fatal("checksum unchanged after leaving OR group")
	}
	if got := byTitle(t, p, "c").Wrapper().SelectAttrValue(sp.AttrChecksum, ""); got != cs {
		t.Errorf("stored checksum = %q, want %q", got, cs)
	}

	data, err := p.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	reloaded := mustProgram(t, string(data))
	if _, err := reloaded.Find(old); !errors.Is(err, ErrNotFound) {
		t.Errorf("Find(old) after reload: err = %v, want ErrNotFound", err)
	}
	m, err := reloaded.Unobserve(cs)
	if err != nil {
		t.Fatalf("Unobserve after reload: %v", err)
	}
	if r, _ := m.Remaining(); r != 2 {
		t.Errorf("remaining after unobserve = %d, want 2", r)
	}
}

func TestProgram_StoredChecksumSurvivesORMove(t *testing.T) {
	keep := strings.Replace(simpleMSB("keep", 1, "K"), "<SpMSB", `<SpMSB checksum="fixedsum"`, 1)
	p := mustProgram(t, program(keep+`<SpOR numberOfItems="2">`+
		simpleMSB("a", 1, "TA")+simpleMSB("b", 1, "TB")+`</SpOR>`))
	observeTitle(t, p, "a")

	if cs, err := byTitle(t, p, "keep").Checksum(); err != nil || cs != "fixedsum" {
		t.Errorf("keep checksum = %q, %v; want stored fixedsum", cs, err)
	}
	if _, err := p.Find("fixedsum"); err != nil {
		t.Errorf("Find(fixedsum): %v", err)
	}
}

func TestParseProgram_Invalid(t *testing.T) {
	if _, err := ParseProgram([]byte("<SpProg>"), Options{}); err == nil {
		t.Fatal("expected parse error")
	}
}
