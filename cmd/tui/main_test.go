package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

const sample = `>P12345 Domain:10-40 Len_Domain:31 Len_Protein:200 PE:Evidence at protein level Evidence:ECO:0000269
DEFGHIKLMNPQRSTVWYACDEFGHIKLMNP
>Q99999 Domain:1-25 Len_Domain:25 Len_Protein:80 PE:Predicted Evidence:Unknown Source:Homology_any
ACDEFGHIKLMNPQRSTVWYACDEF
`

func writeSample(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "microdomains.fasta")
	if err := os.WriteFile(p, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadRecords(t *testing.T) {
	recs, err := loadRecords(writeSample(t))
	if err != nil {
		t.Fatalf("loadRecords: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].Accession != "P12345" || recs[0].Interval.Start != 10 || recs[0].Interval.DomainLen != 31 {
		t.Fatalf("unexpected first record: %+v", recs[0])
	}
	if recs[1].Interval.SourceLabel != "Homology_any" || len(recs[1].Residues) != 25 {
		t.Fatalf("unexpected second record: %+v", recs[1])
	}
}

func TestCycleMode(t *testing.T) {
	m, err := initialModel(writeSample(t))
	if err != nil {
		t.Fatal(err)
	}
	if m.currentMode != modeRaw {
		t.Fatalf("expected initial mode raw, got %v", m.currentMode)
	}
	m = m.cycleMode()
	if m.currentMode != modeGrouped {
		t.Fatalf("expected grouped, got %v", m.currentMode)
	}
	m = m.cycleMode()
	if m.currentMode != modeRaw {
		t.Fatalf("expected raw, got %v", m.currentMode)
	}
}

func TestKeysSwitchModes(t *testing.T) {
	m, err := initialModel(writeSample(t))
	if err != nil {
		t.Fatal(err)
	}
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("2")})
	m = next.(model)
	if m.currentMode != modeGrouped {
		t.Fatalf("'2' should select grouped view, got %v", m.currentMode)
	}
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("h")})
	if !next.(model).showHelp {
		t.Fatalf("'h' should toggle help")
	}
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatalf("'q' should quit")
	}
}

func TestBuildRightLinesWrap(t *testing.T) {
	m, err := initialModel(writeSample(t))
	if err != nil {
		t.Fatal(err)
	}
	m.width = 120
	m.height = 40
	rec := domainRecord{Accession: "V1", Residues: strings.Repeat("MKT", 50)}
	lines := m.buildRightLines(rec)
	if len(lines) == 0 {
		t.Fatalf("expected wrapped lines, got 0")
	}
}

func TestGroupResidues(t *testing.T) {
	got := groupResidues(strings.Repeat("A", 10)+strings.Repeat("C", 10)+"DDD", 10, 2)
	want := []string{
		"    1 AAAAAAAAAA CCCCCCCCCC",
		"   21 DDD",
	}
	if len(got) != len(want) {
		t.Fatalf("got %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("line %d: got %q, want %q", i, got[i], want[i])
		}
	}
}
