// Package pipeline runs the extraction end to end: load sequences and
// annotations, link them, extract and deduplicate domain intervals, split
// them by length and export every set.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/dani-ardila/secretome-annotation-pipeline-DAP/internal/annotation"
	"github.com/dani-ardila/secretome-annotation-pipeline-DAP/internal/config"
	"github.com/dani-ardila/secretome-annotation-pipeline-DAP/internal/domains"
	"github.com/dani-ardila/secretome-annotation-pipeline-DAP/internal/export"
	"github.com/dani-ardila/secretome-annotation-pipeline-DAP/internal/fasta"
)

// Output bases and bucket directories under Config.OutputDir.
const (
	AllBase   = "microdomains"
	ShortDir  = "short_domains"
	ShortBase = "microdomains_short"
	LongDir   = "long_domains"
	LongBase  = "microdomains_long"
)

// Result summarises one run.
type Result struct {
	Sequences         int
	SkippedSources    []error
	Annotations       int
	Linked            int
	Unmatched         int
	Intervals         int
	WithDomains       int
	Sentinels         int
	Rejections        []domains.Rejection
	DuplicatesDropped int
	Short             int
	Long              int

	// NoDomain lists, sorted, the accessions represented only by a sentinel.
	NoDomain []string

	All         export.Report
	ShortReport export.Report
	LongReport  export.Report
}

// Run executes the pipeline described by cfg. Missing sequence files are
// skipped; a missing or malformed annotation dataset stops the run.
func Run(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	res := &Result{}

	var sources []fasta.Source
	for _, s := range cfg.ResolvedSources() {
		sources = append(sources, fasta.Source{Label: s.Label, Path: s.Path})
	}
	seqs, skipped, err := fasta.Load(sources, logger)
	if err != nil {
		return nil, err
	}
	res.Sequences = len(seqs)
	res.SkippedSources = skipped
	if len(seqs) == 0 {
		logger.Warn("no sequences loaded, outputs will be empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	annPath := cfg.Resolve(cfg.AnnotationPath)
	table, err := annotation.Load(annPath, annotation.Options{Sheet: cfg.AnnotationSheet})
	if err != nil {
		return nil, err
	}
	res.Annotations = len(table)
	logger.Info("loaded annotations", "path", annPath, "rows", len(table))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	linked := domains.Link(seqs, table)
	res.Linked = len(linked)
	res.Unmatched = domains.CountUnmatched(linked)
	logger.Info("linked records", "records", res.Linked, "without_annotation", res.Unmatched)

	ivs, rejected := domains.ExtractAll(linked)
	res.Rejections = rejected
	for _, r := range rejected {
		logger.Debug("dropped candidate", "accession", r.Accession, "source", r.SourceLabel,
			"start", r.Candidate.Start, "end", r.Candidate.End, "protein_len", r.ProteinLen, "reason", r.Reason)
	}
	ivs, res.DuplicatesDropped = domains.Deduplicate(ivs)
	sentinels := domains.Sentinels(ivs)
	res.Intervals = len(ivs) - len(sentinels)
	res.WithDomains = domains.DistinctAccessions(ivs)
	res.Sentinels = len(sentinels)
	res.NoDomain = noDomainAccessions(sentinels)
	logger.Info("extracted intervals",
		"intervals", res.Intervals, "proteins", res.WithDomains, "sentinels", res.Sentinels,
		"rejected", len(rejected), "duplicates", res.DuplicatesDropped)

	short, long := domains.Partition(ivs, cfg.ShortThreshold)
	res.Short, res.Long = len(short), len(long)
	logger.Info("partitioned", "threshold", cfg.ShortThreshold, "short", res.Short, "long", res.Long)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	idx := domains.NewSequenceIndex(linked)
	out := cfg.Resolve(cfg.OutputDir)
	runs := []struct {
		name string
		ivs  []domains.DomainInterval
		exp  export.Exporter
		dst  *export.Report
	}{
		{"all", ivs, export.Exporter{
			Dir: out, Base: AllBase, Width: cfg.LineWidth, WriteCuts: true,
			Title: "Microdomains extracted from FASTA + UniProt metadata",
		}, &res.All},
		{"short", short, export.Exporter{
			Dir: filepath.Join(out, ShortDir), Base: ShortBase, Width: cfg.LineWidth, SourceInHeader: true,
			Title: fmt.Sprintf("Microdomains shorter than %d residues", cfg.ShortThreshold),
		}, &res.ShortReport},
		{"long", long, export.Exporter{
			Dir: filepath.Join(out, LongDir), Base: LongBase, Width: cfg.LineWidth, SourceInHeader: true,
			Title: fmt.Sprintf("Microdomains of %d residues or more", cfg.ShortThreshold),
		}, &res.LongReport},
	}
	for _, r := range runs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rep, err := r.exp.Export(r.ivs, idx)
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", r.name, err)
		}
		*r.dst = rep
		if len(rep.Rejected) > 0 {
			logger.Warn("intervals with invalid coordinates left out of fasta", "set", r.name, "count", len(rep.Rejected))
		}
		if len(rep.Unresolved) > 0 {
			logger.Warn("intervals without sequence left out of fasta", "set", r.name, "count", len(rep.Unresolved))
		}
		logger.Info("exported", "set", r.name, "rows", rep.Rows, "sequences", rep.Sequences, "dir", r.exp.Dir)
	}
	return res, nil
}

func noDomainAccessions(sentinels []domains.DomainInterval) []string {
	seen := make(map[string]bool, len(sentinels))
	var out []string
	for _, iv := range sentinels {
		if !seen[iv.Accession] {
			seen[iv.Accession] = true
			out = append(out, iv.Accession)
		}
	}
	sort.Strings(out)
	return out
}
