// Package domains resolves annotated domain coordinates into intervals over
// linked sequence records: linking, extraction, validation, deduplication and
// length partitioning. Every stage is a pure function over slices.
package domains

import (
	"strings"

	"github.com/dani-ardila/secretome-annotation-pipeline-DAP/internal/annotation"
	"github.com/dani-ardila/secretome-annotation-pipeline-DAP/internal/fasta"
)

// Unknown is reported for annotation metadata that is absent.
const Unknown = "Unknown"

// LinkedRecord is a sequence record left-joined to its annotation.
// Annotation is nil when the accession has no row in the dataset.
type LinkedRecord struct {
	fasta.SequenceRecord
	Annotation *annotation.Record
}

// Matched reports whether an annotation row was joined.
func (r LinkedRecord) Matched() bool { return r.Annotation != nil }

// DomainField returns the raw domain annotation, or "" when unmatched.
func (r LinkedRecord) DomainField() string {
	if r.Annotation == nil {
		return ""
	}
	return r.Annotation.DomainField
}

// ProteinExistence returns the annotation's existence level or Unknown.
func (r LinkedRecord) ProteinExistence() string {
	if r.Annotation == nil {
		return Unknown
	}
	return orUnknown(r.Annotation.ProteinExistence)
}

// Evidence returns the annotation's evidence or Unknown.
func (r LinkedRecord) Evidence() string {
	if r.Annotation == nil {
		return Unknown
	}
	return orUnknown(r.Annotation.Evidence)
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return Unknown
	}
	return s
}

// Link left-joins seqs onto table by accession. Input order is kept and
// nothing is deduplicated: an accession present in two sources yields two
// linked records.
func Link(seqs []fasta.SequenceRecord, table annotation.Table) []LinkedRecord {
	out := make([]LinkedRecord, 0, len(seqs))
	for _, s := range seqs {
		lr := LinkedRecord{SequenceRecord: s}
		if a, ok := table.Lookup(s.Accession); ok {
			a := a
			lr.Annotation = &a
		}
		out = append(out, lr)
	}
	return out
}

// CountUnmatched returns how many records had no annotation row.
func CountUnmatched(recs []LinkedRecord) int {
	n := 0
	for _, r := range recs {
		if !r.Matched() {
			n++
		}
	}
	return n
}

// SequenceIndex resolves an accession to the sequence of its first linked
// record.
type SequenceIndex map[string]string

// NewSequenceIndex indexes recs by accession, first occurrence winning.
func NewSequenceIndex(recs []LinkedRecord) SequenceIndex {
	idx := make(SequenceIndex, len(recs))
	for _, r := range recs {
		if _, ok := idx[r.Accession]; !ok {
			idx[r.Accession] = r.Sequence
		}
	}
	return idx
}

// Lookup returns the sequence for acc.
func (idx SequenceIndex) Lookup(acc string) (string, bool) {
	s, ok := idx[acc]
	return s, ok
}
