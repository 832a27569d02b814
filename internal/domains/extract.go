package domains

import (
	"fmt"
	"regexp"
	"strconv"
)

// DOMAIN start..end, as written in UniProt's "Domain [FT]" column.
var domainRe = regexp.MustCompile(`DOMAIN\s+(\d+)\.\.(\d+)`)

// Candidate is a coordinate pair parsed from a domain field, before it is
// checked against the protein.
type Candidate struct {
	Start int
	End   int
}

// Reason says why a candidate was rejected.
type Reason string

const (
	ReasonStartBelowOne     Reason = "start below 1"
	ReasonStartNotBeforeEnd Reason = "start not before end"
	ReasonEndBeyondProtein  Reason = "end beyond protein length"
)

// RejectionError is returned by Validate for a candidate that does not fit
// its protein.
type RejectionError struct {
	Candidate  Candidate
	ProteinLen int
	Reason     Reason
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("domain %d..%d rejected (protein length %d): %s",
		e.Candidate.Start, e.Candidate.End, e.ProteinLen, e.Reason)
}

// Rejection records a dropped candidate and the record it came from.
type Rejection struct {
	Accession   string
	SourceLabel string
	Candidate   Candidate
	ProteinLen  int
	Reason      Reason
}

// DomainInterval is one domain of one protein. A sentinel interval has zero
// Start, End and DomainLen and stands for a protein whose annotation yielded
// no coordinates.
type DomainInterval struct {
	Accession        string
	Start            int
	End              int
	DomainLen        int
	ProteinLen       int
	SourceLabel      string
	ProteinExistence string
	Evidence         string
}

// IsSentinel reports whether the interval carries no coordinates.
func (iv DomainInterval) IsSentinel() bool {
	return iv.Start == 0 && iv.End == 0
}

// ParseDomainField returns every non-overlapping "DOMAIN a..b" pair in field,
// in order. Numbers too large for an int are skipped.
func ParseDomainField(field string) []Candidate {
	matches := domainRe.FindAllStringSubmatch(field, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]Candidate, 0, len(matches))
	for _, m := range matches {
		start, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		end, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		out = append(out, Candidate{Start: start, End: end})
	}
	return out
}

// Validate checks 1 <= start < end <= proteinLen.
func Validate(c Candidate, proteinLen int) error {
	var reason Reason
	switch {
	case c.Start < 1:
		reason = ReasonStartBelowOne
	case c.Start >= c.End:
		reason = ReasonStartNotBeforeEnd
	case c.End > proteinLen:
		reason = ReasonEndBeyondProtein
	default:
		return nil
	}
	return &RejectionError{Candidate: c, ProteinLen: proteinLen, Reason: reason}
}

// ValidInterval reports whether iv has coordinates satisfying the interval
// invariant, including domain_len = end - start + 1.
func ValidInterval(iv DomainInterval) bool {
	if iv.IsSentinel() {
		return false
	}
	return Validate(Candidate{Start: iv.Start, End: iv.End}, iv.ProteinLen) == nil &&
		iv.DomainLen == iv.End-iv.Start+1
}

// Extract turns one linked record into intervals. Candidates failing
// Validate are returned as rejections. When the domain field yields no
// candidates at all, a single sentinel interval is returned so the protein
// stays accounted for; a record whose candidates were all rejected returns
// no interval.
func Extract(rec LinkedRecord) ([]DomainInterval, []Rejection) {
	protLen := rec.Length
	base := DomainInterval{
		Accession:        rec.Accession,
		ProteinLen:       protLen,
		SourceLabel:      rec.SourceLabel,
		ProteinExistence: rec.ProteinExistence(),
		Evidence:         rec.Evidence(),
	}
	cands := ParseDomainField(rec.DomainField())
	if len(cands) == 0 {
		return []DomainInterval{base}, nil
	}
	var (
		out      []DomainInterval
		rejected []Rejection
	)
	for _, c := range cands {
		if err := Validate(c, protLen); err != nil {
			re := err.(*RejectionError)
			rejected = append(rejected, Rejection{
				Accession:   rec.Accession,
				SourceLabel: rec.SourceLabel,
				Candidate:   c,
				ProteinLen:  protLen,
				Reason:      re.Reason,
			})
			continue
		}
		iv := base
		iv.Start, iv.End = c.Start, c.End
		iv.DomainLen = c.End - c.Start + 1
		out = append(out, iv)
	}
	return out, rejected
}

// ExtractAll runs Extract over recs, concatenating results in input order.
func ExtractAll(recs []LinkedRecord) ([]DomainInterval, []Rejection) {
	var (
		out      []DomainInterval
		rejected []Rejection
	)
	for _, r := range recs {
		ivs, rej := Extract(r)
		out = append(out, ivs...)
		rejected = append(rejected, rej...)
	}
	return out, rejected
}
