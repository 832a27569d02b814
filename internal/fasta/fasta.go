// Package fasta reads labelled protein FASTA collections into sequence
// records and writes wrapped FASTA entries.
package fasta

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"
	"github.com/charmbracelet/log"
)

// ErrMissingInput marks a declared FASTA source that does not exist on disk.
var ErrMissingInput = errors.New("fasta input not found")

// Source is one labelled FASTA file.
type Source struct {
	Label string
	Path  string
}

// SequenceRecord is a single FASTA entry tagged with the source it came from.
type SequenceRecord struct {
	SourceLabel string
	RawHeader   string
	Accession   string
	EntryName   string
	Description string
	Sequence    string
	Length      int
}

// UniProt style headers: sp|ACC|ENTRY_NAME description
var headerRe = regexp.MustCompile(`^(?:\w+\|)?([^|>\s]+)\|([^ \t|]+)\s*(.*)$`)

// ParseHeader splits a UniProt style header into accession, entry name and
// description. ok is false when the header does not follow that layout.
func ParseHeader(raw string) (acc, entryName, desc string, ok bool) {
	m := headerRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return "", "", "", false
	}
	return m[1], m[2], m[3], true
}

// NewRecord builds a record from a raw header and its residues. Headers that
// are not UniProt style use their first token as accession and entry name.
func NewRecord(label, rawHeader, residues string) SequenceRecord {
	rawHeader = strings.TrimSpace(rawHeader)
	seq := stripSpace(residues)
	rec := SequenceRecord{
		SourceLabel: label,
		RawHeader:   rawHeader,
		Sequence:    seq,
		Length:      len(seq),
	}
	if acc, name, desc, ok := ParseHeader(rawHeader); ok {
		rec.Accession, rec.EntryName, rec.Description = acc, name, desc
		return rec
	}
	id := rawHeader
	if fields := strings.Fields(rawHeader); len(fields) > 0 {
		id = fields[0]
	}
	rec.Accession, rec.EntryName, rec.Description = id, id, rawHeader
	return rec
}

// ReadRecords parses every FASTA entry in r.
func ReadRecords(r io.Reader, label string) ([]SequenceRecord, error) {
	sc := seqio.NewScanner(fasta.NewReader(r, linear.NewSeq("", nil, alphabet.Protein)))
	var records []SequenceRecord
	for sc.Next() {
		s, ok := sc.Seq().(*linear.Seq)
		if !ok {
			return records, fmt.Errorf("unexpected sequence type %T", sc.Seq())
		}
		header := s.ID
		if s.Desc != "" {
			header += " " + s.Desc
		}
		records = append(records, NewRecord(label, header, string(s.Seq)))
	}
	if err := sc.Error(); err != nil {
		return records, fmt.Errorf("read fasta %s: %w", label, err)
	}
	return records, nil
}

// Load reads the sources in order. A source whose file does not exist is
// logged, reported in skipped and left out; any other failure aborts.
func Load(sources []Source, logger *log.Logger) (records []SequenceRecord, skipped []error, err error) {
	for _, src := range sources {
		f, err := os.Open(src.Path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				miss := fmt.Errorf("%w: %s (%s)", ErrMissingInput, src.Path, src.Label)
				logger.Warn("fasta not found, skipping source", "source", src.Label, "path", src.Path)
				skipped = append(skipped, miss)
				continue
			}
			return records, skipped, fmt.Errorf("open fasta %s: %w", src.Path, err)
		}
		recs, err := ReadRecords(f, src.Label)
		f.Close()
		if err != nil {
			return records, skipped, err
		}
		malformed := 0
		for _, r := range recs {
			if _, _, _, ok := ParseHeader(r.RawHeader); !ok {
				malformed++
				logger.Debug("header is not UniProt style, using identifier", "source", src.Label, "accession", r.Accession)
			}
		}
		logger.Info("loaded fasta", "source", src.Label, "path", src.Path, "records", len(recs), "fallback_headers", malformed)
		records = append(records, recs...)
	}
	return records, skipped, nil
}

// ReadIndex maps the first header token of every entry in path to its
// residues, keeping letters only. The first entry for an identifier wins.
func ReadIndex(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sc := seqio.NewScanner(fasta.NewReader(f, linear.NewSeq("", nil, alphabet.Protein)))
	idx := make(map[string]string)
	for sc.Next() {
		s := sc.Seq().(*linear.Seq)
		if _, dup := idx[s.ID]; dup || s.ID == "" {
			continue
		}
		idx[s.ID] = strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) {
				return r
			}
			return -1
		}, string(s.Seq))
	}
	if err := sc.Error(); err != nil {
		return idx, fmt.Errorf("read fasta %s: %w", path, err)
	}
	return idx, nil
}

// Writer emits FASTA entries with residues wrapped at a fixed width.
type Writer struct {
	w *fasta.Writer
}

// NewWriter returns a Writer wrapping residue lines at width characters.
func NewWriter(w io.Writer, width int) *Writer {
	if width <= 0 {
		width = 70
	}
	return &Writer{w: fasta.NewWriter(w, width)}
}

// Write writes ">id desc" followed by the wrapped residues.
func (w *Writer) Write(id, desc, residues string) error {
	s := linear.NewSeq(id, alphabet.BytesToLetters([]byte(residues)), alphabet.Protein)
	s.Desc = desc
	_, err := w.w.Write(s)
	return err
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
