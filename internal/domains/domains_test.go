package domains

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dani-ardila/secretome-annotation-pipeline-DAP/internal/annotation"
	"github.com/dani-ardila/secretome-annotation-pipeline-DAP/internal/fasta"
)

func seqRecord(label, acc string, n int) fasta.SequenceRecord {
	seq := strings.Repeat("ACDEFGHIKLMNPQRSTVWY", n/20+1)[:n]
	return fasta.SequenceRecord{SourceLabel: label, Accession: acc, EntryName: acc, Sequence: seq, Length: n}
}

func linked(label, acc string, n int, field string) LinkedRecord {
	return LinkedRecord{
		SequenceRecord: seqRecord(label, acc, n),
		Annotation:     &annotation.Record{Accession: acc, DomainField: field, ProteinExistence: "Evidence at protein level", Evidence: "ECO:0000269"},
	}
}

func TestLink_LeftJoinKeepsDuplicatesAndUnmatched(t *testing.T) {
	seqs := []fasta.SequenceRecord{
		seqRecord("TL_secreted", "P1", 50),
		seqRecord("Homology_any", "P1", 50),
		seqRecord("PL_secreted", "P2", 30),
	}
	tab := annotation.Table{"P1": {Accession: "P1", DomainField: "DOMAIN 1..10"}}

	got := Link(seqs, tab)
	require.Len(t, got, 3)
	assert.True(t, got[0].Matched())
	assert.True(t, got[1].Matched())
	assert.Equal(t, "Homology_any", got[1].SourceLabel)
	assert.False(t, got[2].Matched())
	assert.Equal(t, 1, CountUnmatched(got))

	assert.Equal(t, "", got[2].DomainField())
	assert.Equal(t, Unknown, got[2].ProteinExistence())
	assert.Equal(t, Unknown, got[2].Evidence())
	// blank metadata on a matched row also reads as Unknown
	assert.Equal(t, Unknown, got[0].Evidence())
}

func TestParseDomainField(t *testing.T) {
	got := ParseDomainField(`DOMAIN 10..40; /note="SH3"; /evidence="ECO:0000259"; DOMAIN   50..220; /note="Kinase"`)
	assert.Equal(t, []Candidate{{10, 40}, {50, 220}}, got)

	assert.Empty(t, ParseDomainField(""))
	assert.Empty(t, ParseDomainField("REGION 1..20; DOMAIN ?..30; DOMAIN 5"))
	assert.Equal(t, []Candidate{{30, 10}}, ParseDomainField("DOMAIN 30..10"))
	assert.Empty(t, ParseDomainField("DOMAIN 99999999999999999999999..3"))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(Candidate{1, 200}, 200))

	cases := []struct {
		c      Candidate
		reason Reason
	}{
		{Candidate{0, 10}, ReasonStartBelowOne},
		{Candidate{10, 10}, ReasonStartNotBeforeEnd},
		{Candidate{30, 10}, ReasonStartNotBeforeEnd},
		{Candidate{50, 220}, ReasonEndBeyondProtein},
	}
	for _, tc := range cases {
		err := Validate(tc.c, 200)
		var re *RejectionError
		require.True(t, errors.As(err, &re), "candidate %+v", tc.c)
		assert.Equal(t, tc.reason, re.Reason)
	}
}

func TestExtract_MixedValidAndInvalid(t *testing.T) {
	ivs, rej := Extract(linked("TL_secreted", "P12345", 200, "DOMAIN 10..40; DOMAIN 50..220"))
	require.Len(t, ivs, 1)
	assert.Equal(t, DomainInterval{
		Accession:        "P12345",
		Start:            10,
		End:              40,
		DomainLen:        31,
		ProteinLen:       200,
		SourceLabel:      "TL_secreted",
		ProteinExistence: "Evidence at protein level",
		Evidence:         "ECO:0000269",
	}, ivs[0])
	require.Len(t, rej, 1)
	assert.Equal(t, Candidate{50, 220}, rej[0].Candidate)
	assert.Equal(t, ReasonEndBeyondProtein, rej[0].Reason)
}

func TestExtract_EmptyFieldYieldsSentinel(t *testing.T) {
	ivs, rej := Extract(linked("PL_secreted", "Q1", 120, ""))
	assert.Empty(t, rej)
	require.Len(t, ivs, 1)
	assert.True(t, ivs[0].IsSentinel())
	assert.Equal(t, 120, ivs[0].ProteinLen)
	assert.Zero(t, ivs[0].DomainLen)
}

func TestExtract_UnmatchedYieldsSentinelWithUnknowns(t *testing.T) {
	ivs, _ := Extract(LinkedRecord{SequenceRecord: seqRecord("TL_secreted", "X9", 60)})
	require.Len(t, ivs, 1)
	assert.True(t, ivs[0].IsSentinel())
	assert.Equal(t, Unknown, ivs[0].ProteinExistence)
	assert.Equal(t, Unknown, ivs[0].Evidence)
}

func TestExtract_AllCandidatesInvalidYieldsNothing(t *testing.T) {
	ivs, rej := Extract(linked("TL_secreted", "P2", 30, "DOMAIN 5..40; DOMAIN 20..10"))
	assert.Empty(t, ivs)
	assert.Len(t, rej, 2)
}

func TestExtractAll_Invariants(t *testing.T) {
	recs := []LinkedRecord{
		linked("A", "P1", 300, "DOMAIN 1..300; DOMAIN 20..119; DOMAIN 5..6"),
		linked("B", "P2", 10, "DOMAIN 1..11"),
		linked("C", "P3", 80, "no domains"),
	}
	ivs, rej := ExtractAll(recs)
	assert.Len(t, rej, 1)
	for _, iv := range ivs {
		if iv.IsSentinel() {
			continue
		}
		assert.True(t, ValidInterval(iv), "%+v", iv)
		assert.GreaterOrEqual(t, iv.Start, 1)
		assert.Less(t, iv.Start, iv.End)
		assert.LessOrEqual(t, iv.End, iv.ProteinLen)
		assert.Equal(t, iv.End-iv.Start+1, iv.DomainLen)
	}
	assert.Len(t, Sentinels(ivs), 1)
	assert.Equal(t, 1, DistinctAccessions(ivs))
}

func TestDeduplicate(t *testing.T) {
	recs := []LinkedRecord{
		linked("TL_secreted", "P1", 200, "DOMAIN 10..40"),
		linked("Homology_any", "P1", 200, "DOMAIN 10..40; DOMAIN 50..150"),
		linked("TL_secreted", "Q1", 90, ""),
		linked("Homology_any", "Q1", 90, ""),
	}
	ivs, _ := ExtractAll(recs)
	require.Len(t, ivs, 5)

	out, dropped := Deduplicate(ivs)
	assert.Equal(t, 2, dropped)
	require.Len(t, out, 3)
	assert.Equal(t, "TL_secreted", out[0].SourceLabel, "first occurrence wins")
	assert.Equal(t, 50, out[1].Start)
	assert.True(t, out[2].IsSentinel())
	assert.Equal(t, "TL_secreted", out[2].SourceLabel)

	again, dropped := Deduplicate(out)
	assert.Zero(t, dropped)
	assert.Equal(t, out, again)
}

func TestPartition(t *testing.T) {
	in := []DomainInterval{
		{Accession: "A", Start: 1, End: 99, DomainLen: 99, ProteinLen: 200},
		{Accession: "B", Start: 1, End: 100, DomainLen: 100, ProteinLen: 200},
		{Accession: "C", Start: 2, End: 102, DomainLen: 101, ProteinLen: 200},
		{Accession: "D", ProteinLen: 50},
		{Accession: "E", Start: 3, End: 4, DomainLen: 2, ProteinLen: 200},
	}
	short, long := Partition(in, DefaultShortThreshold)
	require.Len(t, short, 2)
	require.Len(t, long, 2)
	assert.Equal(t, "A", short[0].Accession)
	assert.Equal(t, "E", short[1].Accession)
	assert.Equal(t, "B", long[0].Accession, "domain_len == 100 is long")
	assert.Equal(t, "C", long[1].Accession)

	seen := map[string]int{}
	for _, iv := range append(append([]DomainInterval{}, short...), long...) {
		seen[iv.Accession]++
	}
	for _, iv := range in {
		if iv.IsSentinel() {
			assert.Zero(t, seen[iv.Accession])
			continue
		}
		assert.Equal(t, 1, seen[iv.Accession], "exactly one bucket for %s", iv.Accession)
	}
}

func TestSequenceIndexFirstWins(t *testing.T) {
	a := linked("A", "P1", 10, "")
	b := linked("B", "P1", 12, "")
	idx := NewSequenceIndex([]LinkedRecord{a, b})
	s, ok := idx.Lookup("P1")
	require.True(t, ok)
	assert.Len(t, s, 10)
	_, ok = idx.Lookup("missing")
	assert.False(t, ok)
}

func TestSlice(t *testing.T) {
	seq := "MKTAYIAKQRQISFVKSHFSRQ"
	iv := DomainInterval{Start: 3, End: 7, DomainLen: 5, ProteinLen: len(seq)}
	sub, ok := Slice(seq, iv)
	require.True(t, ok)
	assert.Equal(t, "TAYIA", sub)
	assert.Len(t, sub, iv.DomainLen)

	_, ok = Slice(seq, DomainInterval{ProteinLen: len(seq)})
	assert.False(t, ok)
	_, ok = Slice("MKT", iv)
	assert.False(t, ok)
}

func TestNewCut(t *testing.T) {
	c, err := NewCut("", " mktay iak\n", 2, 5)
	require.NoError(t, err)
	assert.Equal(t, "SEQ", c.Accession)
	assert.Equal(t, "KTAY", c.Residues)
	assert.Equal(t, "SEQ_dom_2_5|len=4", c.ID())

	c, err = NewCut("ACC1", "MKT", 2, 2)
	require.NoError(t, err)
	assert.Equal(t, "K", c.Residues)

	_, err = NewCut("ACC1", "MKT", 3, 2)
	assert.Error(t, err)
	_, err = NewCut("ACC1", "MKT", 0, 2)
	assert.Error(t, err)
	_, err = NewCut("ACC1", "MKT", 1, 4)
	assert.Error(t, err)
}
