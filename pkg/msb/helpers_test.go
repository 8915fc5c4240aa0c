package msb

import (
	"bytes"
	"fmt"
	"log/slog"
	"testing"

	"github.com/me/msbkit/pkg/coords"
	"github.com/me/msbkit/pkg/sp"
)

func testOptions() Options {
	var buf bytes.Buffer
	return Options{Logger: slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelError}))}
}

func mustDoc(t *testing.T, xml string) *sp.Document {
	t.Helper()
	doc, err := sp.Parse([]byte(xml))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return doc
}

func mustProgram(t *testing.T, xml string) *Program {
	t.Helper()
	p, err := ParseProgram([]byte(xml), testOptions())
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	return p
}

// firstMSB returns the first MSB of a program document.
func firstMSB(t *testing.T, xml string) *MSB {
	t.Helper()
	p := mustProgram(t, xml)
	msbs := p.MSBs()
	if len(msbs) == 0 {
		t.Fatal("program has no MSBs")
	}
	return msbs[0]
}

func telescope(name, c1, c2 string) string {
	return fmt.Sprintf(`<SpTelescopeObsComp><BASE TYPE="Base"><target><targetName>%s</targetName>`+
		`<spherSystem SYSTEM="J2000"><c1>%s</c1><c2>%s</c2></spherSystem></target></BASE></SpTelescopeObsComp>`,
		name, c1, c2)
}

func program(body string) string {
	return `<SpProg><projectID>M25BP042</projectID><title>test program</title>` + body + `</SpProg>`
}

// stare is a one-observation sequence.
const stare = `<SpIterFolder><SpIterStareObs><integrationTime>30</integrationTime></SpIterStareObs></SpIterFolder>`

func simpleMSB(title string, remaining int, target string) string {
	return fmt.Sprintf(`<SpMSB remaining="%d"><title>%s</title>%s<SpInstSCUBA2><filter>850</filter></SpInstSCUBA2>`+
		`<SpObs><title>%s obs</title>%s</SpObs></SpMSB>`,
		remaining, title, telescope(target, "1:00:00", "20:00:00"), title, stare)
}

type flatObs struct {
	Label  string
	Mode   string
	Coords coords.Coordinate
	Fields []Field
}

func flatten(obs []Observation) []flatObs {
	out := make([]flatObs, len(obs))
	for i, o := range obs {
		out[i] = flatObs{Label: o.Label, Mode: o.Mode.String(), Coords: o.Coords, Fields: o.Context.Fields()}
	}
	return out
}

func labels(obs []Observation) []string {
	out := make([]string, len(obs))
	for i, o := range obs {
		out[i] = o.Label
	}
	return out
}
