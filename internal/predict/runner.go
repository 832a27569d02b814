package predict

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/dani-ardila/secretome-annotation-pipeline-DAP/internal/fasta"
	"github.com/dani-ardila/secretome-annotation-pipeline-DAP/internal/jobs"
)

// Ledger records job progress. *jobs.Store satisfies it.
type Ledger interface {
	Create(ctx context.Context, acc string) (jobs.Job, error)
	Update(ctx context.Context, id string, state jobs.State, reqID, msg string) error
}

// Entry is one accession to predict.
type Entry struct {
	Accession string
	Sequence  string
}

// Outcome is the result of predicting one entry.
type Outcome struct {
	Accession string
	JSONPath  string
	PDBPath   string
	Err       error
}

// Runner predicts entries one by one and writes <OutDir>/<acc>.json and
// <OutDir>/<acc>.pdb for each success.
type Runner struct {
	Client *Client
	OutDir string
	Logger *log.Logger
	// Ledger is optional.
	Ledger Ledger
}

// Run processes entries in order. A failing entry is logged and recorded in
// its Outcome; the run moves on. Only context cancellation stops it early.
func (r *Runner) Run(ctx context.Context, entries []Entry) ([]Outcome, error) {
	if err := os.MkdirAll(r.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("create prediction dir: %w", err)
	}
	out := make([]Outcome, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		o := r.one(ctx, e)
		out = append(out, o)
		if o.Err != nil && errors.Is(o.Err, context.Canceled) {
			return out, o.Err
		}
	}
	return out, nil
}

func (r *Runner) one(ctx context.Context, e Entry) Outcome {
	o := Outcome{Accession: e.Accession}
	logger := r.logger().With("entry", e.Accession)

	var jobID string
	if r.Ledger != nil {
		j, err := r.Ledger.Create(ctx, e.Accession)
		if err != nil {
			logger.Warn("ledger create failed", "err", err)
		} else {
			jobID = j.ID
		}
	}
	record := func(state jobs.State, reqID, msg string) {
		if r.Ledger == nil || jobID == "" {
			return
		}
		if err := r.Ledger.Update(ctx, jobID, state, reqID, msg); err != nil {
			logger.Warn("ledger update failed", "state", state, "err", err)
		}
	}

	client := *r.Client
	client.Polled = func(reqID string, attempt int) {
		logger.Info("still processing", "request", reqID, "attempt", attempt)
		if attempt == 1 {
			record(jobs.StatePolling, reqID, "")
		}
	}

	logger.Info("submitting", "residues", len(e.Sequence))
	raw, err := client.Predict(ctx, e.Accession, e.Sequence)
	if err != nil {
		o.Err = err
		if errors.Is(err, ErrSequenceTooShort) {
			logger.Warn("skipped", "residues", len(e.Sequence), "min", client.minLength())
			record(jobs.StateSkipped, "", err.Error())
		} else {
			logger.Error("prediction failed", "err", err)
			record(jobs.StateFailed, "", err.Error())
		}
		return o
	}

	o.JSONPath = filepath.Join(r.OutDir, e.Accession+".json")
	if err := os.WriteFile(o.JSONPath, raw, 0o644); err != nil {
		o.Err = err
		logger.Error("write response failed", "err", err)
		record(jobs.StateFailed, "", err.Error())
		return o
	}
	logger.Info("response saved", "path", o.JSONPath)

	pdb, err := ToPDB(raw)
	if err != nil {
		o.Err = err
		logger.Error("json to pdb failed", "err", err)
		record(jobs.StateFailed, "", err.Error())
		return o
	}
	o.PDBPath = filepath.Join(r.OutDir, e.Accession+".pdb")
	if err := os.WriteFile(o.PDBPath, pdb, 0o644); err != nil {
		o.Err = err
		logger.Error("write pdb failed", "err", err)
		record(jobs.StateFailed, "", err.Error())
		return o
	}
	logger.Info("pdb written", "path", o.PDBPath)
	record(jobs.StateDone, "", o.PDBPath)
	return o
}

func (r *Runner) logger() *log.Logger {
	if r.Logger == nil {
		return log.New(io.Discard)
	}
	return r.Logger
}

// Lookup finds accessions in indexes tried in order, typically the short and
// then the long domain FASTA.
type Lookup []map[string]string

// LoadSequences reads each path with fasta.ReadIndex. A missing file yields
// an empty index so the remaining ones are still searched.
func LoadSequences(paths ...string) (Lookup, error) {
	var l Lookup
	for _, p := range paths {
		idx, err := fasta.ReadIndex(p)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				l = append(l, map[string]string{})
				continue
			}
			return nil, err
		}
		l = append(l, idx)
	}
	return l, nil
}

// Find returns the sequence for acc from the first index holding it.
func (l Lookup) Find(acc string) (string, bool) {
	for _, idx := range l {
		if s, ok := idx[acc]; ok {
			return s, true
		}
	}
	return "", false
}
