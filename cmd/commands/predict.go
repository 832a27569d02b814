package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dani-ardila/secretome-annotation-pipeline-DAP/internal/jobs"
	"github.com/dani-ardila/secretome-annotation-pipeline-DAP/internal/pipeline"
	"github.com/dani-ardila/secretome-annotation-pipeline-DAP/internal/predict"
)

// KeyEnv names the environment variable holding the prediction API key.
const KeyEnv = "NVCF_RUN_KEY"

func predictCmd(a *app) *cobra.Command {
	var (
		shortPath string
		longPath  string
		outDir    string
		jobsDB    string
		key       string
	)
	cmd := &cobra.Command{
		Use:   "predict [ENTRY...]",
		Short: "Predict structures for exported domains with AlphaFold2",
		Long: "Look each entry up in the short and then the long domain FASTA, submit it to the\n" +
			"AlphaFold2 service and write <entry>.json and <entry>.pdb. Without arguments,\n" +
			"entries are read from stdin until an empty line.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			out := cfg.Resolve(cfg.OutputDir)
			if shortPath == "" {
				shortPath = filepath.Join(out, pipeline.ShortDir, pipeline.ShortBase+".fasta")
			}
			if longPath == "" {
				longPath = filepath.Join(out, pipeline.LongDir, pipeline.LongBase+".fasta")
			}
			if outDir == "" {
				outDir = cfg.Resolve(cfg.Predict.OutDir)
			}
			if jobsDB == "" && cfg.Predict.JobsDB != "" {
				jobsDB = cfg.Resolve(cfg.Predict.JobsDB)
			}

			lookup, err := predict.LoadSequences(shortPath, longPath)
			if err != nil {
				return err
			}

			in := bufio.NewReader(cmd.InOrStdin())
			apiKey := firstNonEmpty(key, os.Getenv(KeyEnv), cfg.Predict.APIKey)
			if apiKey == "" {
				fmt.Fprint(cmd.OutOrStdout(), "NVIDIA run key: ")
				apiKey = readSecret(cmd.InOrStdin(), in)
				fmt.Fprintln(cmd.OutOrStdout())
			}
			if apiKey == "" {
				return errors.New("no API key: set " + KeyEnv + ", predict.api_key or --key")
			}

			runner := &predict.Runner{
				Client: &predict.Client{
					SubmitURL:    cfg.Predict.SubmitURL,
					StatusURL:    cfg.Predict.StatusURL,
					APIKey:       apiKey,
					PollInterval: cfg.Predict.PollInterval.Duration,
					MinLength:    cfg.Predict.MinLength,
				},
				OutDir: outDir,
				Logger: a.logger,
			}
			if jobsDB != "" {
				store, err := jobs.Open(jobsDB)
				if err != nil {
					return err
				}
				defer store.Close()
				runner.Ledger = store
				a.logger.Debug("recording jobs", "db", jobsDB)
			}

			run := func(acc string) error {
				seq, ok := lookup.Find(acc)
				if !ok {
					a.logger.Warn("no sequence found", "entry", acc, "short", shortPath, "long", longPath)
					return nil
				}
				a.logger.Info("sequence found", "entry", acc, "residues", len(seq))
				outcomes, err := runner.Run(cmd.Context(), []predict.Entry{{Accession: acc, Sequence: seq}})
				if err != nil {
					return err
				}
				for _, o := range outcomes {
					if o.Err == nil {
						fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", o.Accession, o.PDBPath)
					}
				}
				return nil
			}

			if len(args) > 0 {
				for _, acc := range args {
					if err := run(strings.TrimSpace(acc)); err != nil {
						return err
					}
				}
				return nil
			}
			for {
				fmt.Fprint(cmd.OutOrStdout(), "Entry (empty to quit): ")
				line, err := in.ReadString('\n')
				acc := strings.TrimSpace(line)
				if acc == "" {
					return nil
				}
				if rerr := run(acc); rerr != nil {
					return rerr
				}
				if err != nil {
					return nil
				}
			}
		},
	}
	f := cmd.Flags()
	f.StringVar(&shortPath, "short", "", "short domain FASTA (default <output_dir>/short_domains/microdomains_short.fasta)")
	f.StringVar(&longPath, "long", "", "long domain FASTA (default <output_dir>/long_domains/microdomains_long.fasta)")
	f.StringVar(&outDir, "out", "", "directory for .json and .pdb files (default predict.out_dir)")
	f.StringVar(&jobsDB, "jobs-db", "", "sqlite file recording prediction jobs (default predict.jobs_db)")
	f.StringVar(&key, "key", "", "API key (default $"+KeyEnv+")")
	return cmd
}

// readSecret reads without echo when stdin is a terminal and falls back to a
// plain line read otherwise.
func readSecret(src io.Reader, in *bufio.Reader) string {
	if f, ok := src.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(b))
		}
	}
	line, _ := in.ReadString('\n')
	return strings.TrimSpace(line)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
