package domains

import (
	"fmt"
	"strings"
	"unicode"
)

// DefaultCutAccession names a manual cut when no accession is given.
const DefaultCutAccession = "SEQ"

// Cut is a single manually requested sub-sequence.
type Cut struct {
	Accession string
	Start     int
	End       int
	Residues  string
}

// ID is the FASTA identifier for the cut, e.g. "ACC123_dom_5_40|len=36".
func (c Cut) ID() string {
	return fmt.Sprintf("%s_dom_%d_%d|len=%d", c.Accession, c.Start, c.End, len(c.Residues))
}

// NewCut slices seq at the 1-based inclusive range start..end. The sequence
// is uppercased and stripped of whitespace first. Unlike annotated domains,
// a single-residue cut (start == end) is allowed.
func NewCut(acc, seq string, start, end int) (Cut, error) {
	acc = strings.TrimSpace(acc)
	if acc == "" {
		acc = DefaultCutAccession
	}
	seq = strings.ToUpper(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, seq))
	if start < 1 || end < 1 || start > end {
		return Cut{}, fmt.Errorf("invalid range %d..%d: need 1 <= start <= end", start, end)
	}
	if end > len(seq) {
		return Cut{}, fmt.Errorf("end %d exceeds sequence length %d", end, len(seq))
	}
	return Cut{Accession: acc, Start: start, End: end, Residues: seq[start-1 : end]}, nil
}

// Slice returns residues start..end (1-based, inclusive) of seq. ok is false
// when the interval has no coordinates or does not fit seq.
func Slice(seq string, iv DomainInterval) (string, bool) {
	if iv.IsSentinel() || iv.Start < 1 || iv.Start >= iv.End || iv.End > len(seq) {
		return "", false
	}
	return seq[iv.Start-1 : iv.End], true
}
