// Package annotation loads the per-protein annotation table (a UniProt export)
// keyed by accession.
package annotation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Column names read from the dataset header row.
const (
	ColEntry     = "Entry"
	ColDomain    = "Domain [FT]"
	ColExistence = "Protein existence"
	ColEvidence  = "Evidence"
)

var (
	// ErrMissingDataset is returned when the annotation file does not exist.
	// No domain can be resolved without it, so callers treat it as fatal.
	ErrMissingDataset = errors.New("annotation dataset not found")
	// ErrMalformedDataset is returned when the table has no usable header.
	ErrMalformedDataset = errors.New("malformed annotation dataset")
)

// Record holds the annotation columns the domain pipeline reads.
type Record struct {
	Accession        string
	DomainField      string
	ProteinExistence string
	Evidence         string
}

// Table indexes records by accession.
type Table map[string]Record

// Lookup returns the record for acc.
func (t Table) Lookup(acc string) (Record, bool) {
	r, ok := t[acc]
	return r, ok
}

// Options tunes how a dataset is read.
type Options struct {
	// Sheet selects the workbook sheet; empty means the first one.
	Sheet string
}

// Load reads the dataset at path. Workbooks (.xlsx, .xlsm) are read with
// excelize; .csv is comma separated and anything else is tab separated.
func Load(path string, opts Options) (Table, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingDataset, path)
		}
		return nil, fmt.Errorf("stat annotation dataset: %w", err)
	}
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		rows, err = readWorkbook(path, opts.Sheet)
	case ".csv":
		rows, err = readDelimited(path, ',')
	default:
		rows, err = readDelimited(path, '\t')
	}
	if err != nil {
		return nil, err
	}
	return FromRows(rows)
}

func readWorkbook(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%w: %s has no sheets", ErrMalformedDataset, path)
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func readDelimited(path string, comma rune) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open annotation dataset: %w", err)
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.Comma = comma
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedDataset, path, err)
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

// FromRows builds a Table from a header row followed by data rows. The
// header must name an Entry column; the other columns are optional and
// read as empty when absent. The first row for an accession wins.
func FromRows(rows [][]string) (Table, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty table", ErrMalformedDataset)
	}
	col := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := col[name]; !dup {
			col[name] = i
		}
	}
	if _, ok := col[ColEntry]; !ok {
		return nil, fmt.Errorf("%w: no %q column in header", ErrMalformedDataset, ColEntry)
	}
	cell := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	t := make(Table, len(rows)-1)
	for _, row := range rows[1:] {
		acc := cell(row, ColEntry)
		if acc == "" {
			continue
		}
		if _, seen := t[acc]; seen {
			continue
		}
		t[acc] = Record{
			Accession:        acc,
			DomainField:      cell(row, ColDomain),
			ProteinExistence: cell(row, ColExistence),
			Evidence:         cell(row, ColEvidence),
		}
	}
	return t, nil
}
