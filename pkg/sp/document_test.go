package sp

import (
	"errors"
	"strings"
	"testing"
)

const refDoc = `<SpProg>
  <projectID>M25AP001</projectID>
  <SpSiteQualityObsComp id="0"><csoTau><max>0.08</max></csoTau></SpSiteQualityObsComp>
  <SpMSB remaining="2">
    <SpSiteQualityObsCompRef idref="0"/>
    <SpObs obsnum="0"><title>first</title></SpObs>
  </SpMSB>
</SpProg>`

func mustParse(t *testing.T, xml string) *Document {
	t.Helper()
	doc, err := Parse([]byte(xml))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return doc
}

func TestParse_DuplicateID(t *testing.T) {
	_, err := Parse([]byte(`<SpProg><a id="1"/><b id="1"/></SpProg>`))
	if err == nil || !strings.Contains(err.Error(), "duplicate id") {
		t.Fatalf("err = %v, want duplicate id", err)
	}
}

func TestResolve(t *testing.T) {
	doc := mustParse(t, refDoc)
	ref := doc.Root().FindElement("//SpSiteQualityObsCompRef")
	if ref == nil {
		t.Fatal("reference element not found")
	}

	target, err := doc.Resolve(ref)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if target.Tag != TagSiteQuality {
		t.Errorf("resolved tag = %q, want %q", target.Tag, TagSiteQuality)
	}

	again, err := doc.Resolve(target)
	if err != nil || again != target {
		t.Errorf("resolving a resolved element should be a no-op, got %v, %v", again, err)
	}
}

func TestResolve_Dangling(t *testing.T) {
	doc := mustParse(t, `<SpProg><SpMSB><SpTelescopeObsCompRef idref="42"/></SpMSB></SpProg>`)
	before, _ := doc.Bytes()

	_, err := doc.Resolve(doc.Root().FindElement("//SpTelescopeObsCompRef"))
	var dangling *DanglingReferenceError
	if !errors.As(err, &dangling) {
		t.Fatalf("err = %v, want DanglingReferenceError", err)
	}
	if dangling.ID != "42" || dangling.Referrer != "SpTelescopeObsCompRef" {
		t.Errorf("dangling = %+v", dangling)
	}

	after, _ := doc.Bytes()
	if string(before) != string(after) {
		t.Error("failed resolution modified the document")
	}
}

func TestResolve_ChainCycle(t *testing.T) {
	doc := mustParse(t, `<SpProg><a id="1" idref="2"/><b id="2" idref="1"/></SpProg>`)
	_, err := doc.Resolve(doc.Root().SelectElement("a"))
	var cycle *ReferenceCycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("err = %v, want ReferenceCycleError", err)
	}
}

func TestCanonical_TransitiveCycle(t *testing.T) {
	doc := mustParse(t, `<SpProg>
  <A id="1"><BRef idref="2"/></A>
  <B id="2"><ARef idref="1"/></B>
</SpProg>`)
	_, err := doc.Canonical(doc.Root(), CanonicalOptions{})
	var cycle *ReferenceCycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("err = %v, want ReferenceCycleError", err)
	}
}

func TestCanonicalChildren(t *testing.T) {
	doc := mustParse(t, refDoc)
	msb := doc.Root().SelectElement(TagMSB)

	got, err := doc.CanonicalChildren(msb, CanonicalOptions{OmitAttrs: []string{AttrObsnum}})
	if err != nil {
		t.Fatalf("CanonicalChildren: %v", err)
	}
	want := `<SpSiteQualityObsComp id="0"><csoTau><max>0.08</max></csoTau></SpSiteQualityObsComp>` +
		`<SpObs><title>first</title></SpObs>`
	if got != want {
		t.Errorf("canonical =\n%s\nwant\n%s", got, want)
	}
	if strings.Contains(got, "remaining") {
		t.Error("wrapper attributes must not be serialized")
	}
}

func TestCanonical_QuoteNormalization(t *testing.T) {
	a := mustParse(t, `<x note="say &quot;hi&quot;">a &amp; b</x>`)
	b := mustParse(t, `<x note='say "hi"'>a &#38; b</x>`)
	ca, err := a.Canonical(a.Root(), CanonicalOptions{})
	if err != nil {
		t.Fatal(err)
	}
	cb, err := b.Canonical(b.Root(), CanonicalOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if ca != cb {
		t.Errorf("canonical forms differ:\n%s\n%s", ca, cb)
	}
}

func TestInsertAfter(t *testing.T) {
	doc := mustParse(t, `<SpProg><SpOR><SpMSB><title>a</title></SpMSB></SpOR><SpMSB><title>b</title></SpMSB></SpProg>`)
	or := doc.Root().SelectElement(TagOR)
	msb := or.SelectElement(TagMSB)

	InsertAfter(or, msb)

	var titles []string
	for _, el := range doc.Root().ChildElements() {
		titles = append(titles, el.Tag+":"+Text(el, TagTitle))
	}
	want := "SpOR:,SpMSB:a,SpMSB:b"
	if got := strings.Join(titles, ","); got != want {
		t.Errorf("children = %s, want %s", got, want)
	}
	if len(or.ChildElements()) != 0 {
		t.Error("OR should be empty after relocation")
	}
}

func TestIsMSB(t *testing.T) {
	doc := mustParse(t, `<SpProg><SpMSB/><SpObs msb="true"/><SpObs msb="false"/><SpObs/></SpProg>`)
	var got []bool
	for _, el := range doc.Root().ChildElements() {
		got = append(got, IsMSB(el))
	}
	want := []bool{true, true, false, false}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("IsMSB(child %d) = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestIntAttr(t *testing.T) {
	doc := mustParse(t, `<SpMSB remaining=" 3 " bad="x"/>`)
	if n, err := IntAttr(doc.Root(), AttrRemaining, 1); err != nil || n != 3 {
		t.Errorf("IntAttr(remaining) = %d, %v; want 3", n, err)
	}
	if n, err := IntAttr(doc.Root(), "missing", 7); err != nil || n != 7 {
		t.Errorf("IntAttr(missing) = %d, %v; want 7", n, err)
	}
	if _, err := IntAttr(doc.Root(), "bad", 0); err == nil {
		t.Error("IntAttr(bad) should fail")
	}
}
