// Package export renders domain intervals as summary tables (TSV and XLSX)
// and as FASTA files of the sliced domain sequences.
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/dani-ardila/secretome-annotation-pipeline-DAP/internal/domains"
	"github.com/dani-ardila/secretome-annotation-pipeline-DAP/internal/fasta"
)

// DefaultWidth is the residue line width of written FASTA.
const DefaultWidth = 70

// SummaryColumns is the fixed column order of summary tables.
var SummaryColumns = []string{
	"Entry", "Start", "End", "Domain_Len", "Protein_Len", "SourceFile", "Protein_existence", "Evidence",
}

// cutColumns is the column order of the cuts table.
var cutColumns = []string{
	"Entry", "Start", "End", "Domain_Len", "Protein_Len", "Protein_existence", "Evidence", "SourceFile",
}

// Exporter writes one interval set into Dir as <Base>.txt, <Base>.xlsx and
// <Base>.fasta, plus <Base>_cuts.txt when WriteCuts is set.
type Exporter struct {
	Dir   string
	Base  string
	Mode  Mode
	Width int
	// SourceInHeader appends " Source:<label>" to FASTA headers.
	SourceInHeader bool
	// Title is the first comment line of the TSV summary.
	Title     string
	WriteCuts bool
}

// Report describes what one Export call wrote.
type Report struct {
	Rows      int
	Sentinels int
	Sequences int
	// Unresolved lists accessions whose sequence could not be found or
	// sliced; they are in the summaries but not in the FASTA.
	Unresolved []string
	// Rejected holds intervals whose coordinates break 1 <= start < end <=
	// protein_len or domain_len = end - start + 1. They are left out of the
	// FASTA too.
	Rejected []domains.DomainInterval
	Files    []string
}

func (e *Exporter) path(suffix string) string {
	return filepath.Join(e.Dir, e.Base+suffix)
}

func (e *Exporter) width() int {
	if e.Width <= 0 {
		return DefaultWidth
	}
	return e.Width
}

// Export writes the summaries first and then the FASTA. Sentinel intervals
// appear in the summaries only.
func (e *Exporter) Export(ivs []domains.DomainInterval, idx domains.SequenceIndex) (Report, error) {
	var rep Report
	if e.Dir == "" || e.Base == "" {
		return rep, errors.New("export: Dir and Base are required")
	}
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return rep, fmt.Errorf("create output dir: %w", err)
	}
	rep.Rows = len(ivs)
	rep.Sentinels = len(domains.Sentinels(ivs))

	txt := e.path(".txt")
	if err := writeFile(txt, e.Mode, func(w io.Writer, fresh bool) error {
		return writeSummary(w, ivs, e.Title, fresh)
	}); err != nil {
		return rep, err
	}
	rep.Files = append(rep.Files, txt)

	xlsx := e.path(".xlsx")
	if err := writeWorkbook(xlsx, e.Mode, ivs); err != nil {
		return rep, err
	}
	rep.Files = append(rep.Files, xlsx)

	type cut struct {
		iv       domains.DomainInterval
		residues string
	}
	var cuts []cut
	for _, iv := range ivs {
		if iv.IsSentinel() {
			continue
		}
		if !domains.ValidInterval(iv) {
			rep.Rejected = append(rep.Rejected, iv)
			continue
		}
		seq, ok := idx.Lookup(iv.Accession)
		if !ok {
			rep.Unresolved = append(rep.Unresolved, iv.Accession)
			continue
		}
		sub, ok := domains.Slice(seq, iv)
		if !ok || len(sub) != iv.DomainLen {
			rep.Unresolved = append(rep.Unresolved, iv.Accession)
			continue
		}
		cuts = append(cuts, cut{iv, sub})
	}

	fa := e.path(".fasta")
	if err := writeFile(fa, e.Mode, func(w io.Writer, _ bool) error {
		fw := fasta.NewWriter(w, e.width())
		for _, c := range cuts {
			if err := fw.Write(c.iv.Accession, e.description(c.iv, len(c.residues)), c.residues); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return rep, err
	}
	rep.Sequences = len(cuts)
	rep.Files = append(rep.Files, fa)

	if e.WriteCuts {
		ct := e.path("_cuts.txt")
		if err := writeFile(ct, e.Mode, func(w io.Writer, fresh bool) error {
			if fresh {
				if err := writeComments(w, "Microdomain cuts summary", cutColumns); err != nil {
					return err
				}
			}
			for _, c := range cuts {
				iv := c.iv
				row := []string{
					iv.Accession, itoa(iv.Start), itoa(iv.End), itoa(len(c.residues)), itoa(iv.ProteinLen),
					iv.ProteinExistence, iv.Evidence, iv.SourceLabel,
				}
				if _, err := io.WriteString(w, strings.Join(row, "\t")+"\n"); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return rep, err
		}
		rep.Files = append(rep.Files, ct)
	}
	return rep, nil
}

// Header returns the FASTA description for iv, without the identifier.
func Header(iv domains.DomainInterval, sourceInHeader bool) string {
	desc := fmt.Sprintf("Domain:%d-%d Len_Domain:%d Len_Protein:%d PE:%s Evidence:%s",
		iv.Start, iv.End, iv.DomainLen, iv.ProteinLen, iv.ProteinExistence, iv.Evidence)
	if sourceInHeader {
		desc += " Source:" + iv.SourceLabel
	}
	return desc
}

func (e *Exporter) description(iv domains.DomainInterval, n int) string {
	iv.DomainLen = n
	return Header(iv, e.SourceInHeader)
}

func writeComments(w io.Writer, title string, cols []string) error {
	if title == "" {
		title = "Microdomains extracted from FASTA + UniProt metadata"
	}
	_, err := fmt.Fprintf(w, "# %s\n# Columns: %s\n# %s\n\n", title, strings.Join(cols, " | "), strings.Repeat("-", 46))
	return err
}

func writeSummary(w io.Writer, ivs []domains.DomainInterval, title string, fresh bool) error {
	if fresh {
		if err := writeComments(w, title, SummaryColumns); err != nil {
			return err
		}
	}
	for _, iv := range ivs {
		if _, err := io.WriteString(w, strings.Join(summaryRow(iv), "\t")+"\n"); err != nil {
			return err
		}
	}
	return nil
}

func summaryRow(iv domains.DomainInterval) []string {
	start, end, dlen := "", "", ""
	if !iv.IsSentinel() {
		start, end, dlen = itoa(iv.Start), itoa(iv.End), itoa(iv.DomainLen)
	}
	return []string{
		iv.Accession, start, end, dlen, itoa(iv.ProteinLen), iv.SourceLabel, iv.ProteinExistence, iv.Evidence,
	}
}

func workbookRow(iv domains.DomainInterval) []interface{} {
	row := []interface{}{iv.Accession, nil, nil, nil, iv.ProteinLen, iv.SourceLabel, iv.ProteinExistence, iv.Evidence}
	if !iv.IsSentinel() {
		row[1], row[2], row[3] = iv.Start, iv.End, iv.DomainLen
	}
	return row
}

func writeWorkbook(path string, mode Mode, ivs []domains.DomainInterval) error {
	var (
		f    *excelize.File
		next = 1
	)
	if mode == ModeAppend {
		if _, err := os.Stat(path); err == nil {
			f, err = excelize.OpenFile(path)
			if err != nil {
				return fmt.Errorf("open workbook %s: %w", path, err)
			}
			rows, err := f.GetRows(f.GetSheetName(0))
			if err != nil {
				f.Close()
				return fmt.Errorf("read workbook %s: %w", path, err)
			}
			next = len(rows) + 1
		}
	}
	if f == nil {
		f = excelize.NewFile()
	}
	defer f.Close()
	sheet := f.GetSheetName(0)

	setRow := func(values []interface{}) error {
		cell, err := excelize.CoordinatesToCellName(1, next)
		if err != nil {
			return err
		}
		next++
		return f.SetSheetRow(sheet, cell, &values)
	}
	if next == 1 {
		header := make([]interface{}, len(SummaryColumns))
		for i, c := range SummaryColumns {
			header[i] = c
		}
		if err := setRow(header); err != nil {
			return err
		}
	}
	for _, iv := range ivs {
		if err := setRow(workbookRow(iv)); err != nil {
			return fmt.Errorf("workbook row %s: %w", iv.Accession, err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return replaceFile(path, func(w io.Writer) error {
		_, err := f.WriteTo(w)
		return err
	})
}

// AppendCut appends a manual cut to the FASTA file at path, creating it and
// its directory when needed. Existing entries are never rewritten.
func AppendCut(path string, c domains.Cut, width int) error {
	if width <= 0 {
		width = DefaultWidth
	}
	return writeFile(path, ModeAppend, func(w io.Writer, _ bool) error {
		return fasta.NewWriter(w, width).Write(c.ID(), "", c.Residues)
	})
}

func itoa(n int) string { return strconv.Itoa(n) }

var headerRe = regexp.MustCompile(`^Domain:(\d+)-(\d+) Len_Domain:(\d+) Len_Protein:(\d+) PE:(.*?) Evidence:(.*?)(?: Source:(\S+))?$`)

// ParseHeader reads back a description written by Header. ok is false when
// desc is not in that format.
func ParseHeader(desc string) (iv domains.DomainInterval, ok bool) {
	m := headerRe.FindStringSubmatch(strings.TrimSpace(desc))
	if m == nil {
		return iv, false
	}
	nums := make([]int, 4)
	for i := range nums {
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return iv, false
		}
		nums[i] = n
	}
	return domains.DomainInterval{
		Start:            nums[0],
		End:              nums[1],
		DomainLen:        nums[2],
		ProteinLen:       nums[3],
		ProteinExistence: m[5],
		Evidence:         m[6],
		SourceLabel:      m[7],
	}, true
}
