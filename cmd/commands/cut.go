package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dani-ardila/secretome-annotation-pipeline-DAP/internal/domains"
	"github.com/dani-ardila/secretome-annotation-pipeline-DAP/internal/export"
)

// CutFile is where manual cuts accumulate under the output directory.
const CutFile = "subsequence.fasta"

func cutCmd(a *app) *cobra.Command {
	var (
		acc        string
		seq        string
		start, end int
		out        string
	)
	cmd := &cobra.Command{
		Use:   "cut",
		Short: "Cut one sub-sequence by hand and append it to a FASTA file",
		Long: "Cut residues start..end (1-based, inclusive) out of a sequence and append the result\n" +
			"to " + CutFile + " in the output directory. Values not given as flags are asked for.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := &prompter{r: bufio.NewReader(cmd.InOrStdin()), w: cmd.OutOrStdout()}
			var err error
			if !cmd.Flags().Changed("acc") {
				if acc, err = p.ask("Accession (Enter for " + domains.DefaultCutAccession + "): "); err != nil {
					return err
				}
			}
			if seq == "" {
				if seq, err = p.ask("Sequence: "); err != nil {
					return err
				}
			}
			if start == 0 {
				if start, err = p.askInt("Start (1-based): "); err != nil {
					return err
				}
			}
			if end == 0 {
				if end, err = p.askInt("End (inclusive): "); err != nil {
					return err
				}
			}

			c, err := domains.NewCut(acc, seq, start, end)
			if err != nil {
				return err
			}
			if out == "" {
				out = filepath.Join(a.cfg.Resolve(a.cfg.OutputDir), CutFile)
			}
			if err := export.AppendCut(out, c, a.cfg.LineWidth); err != nil {
				return err
			}
			a.logger.Info("cut appended", "id", c.ID(), "path", out)
			fmt.Fprintf(cmd.OutOrStdout(), ">%s\n%s\n", c.ID(), c.Residues)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&acc, "acc", "", "accession used in the header (default "+domains.DefaultCutAccession+")")
	f.StringVar(&seq, "seq", "", "amino-acid sequence")
	f.IntVar(&start, "start", 0, "first residue, 1-based")
	f.IntVar(&end, "end", 0, "last residue, inclusive")
	f.StringVar(&out, "out", "", "FASTA file to append to (default <output_dir>/"+CutFile+")")
	return cmd
}

// prompter reads answers line by line.
type prompter struct {
	r *bufio.Reader
	w io.Writer
}

func (p *prompter) ask(q string) (string, error) {
	fmt.Fprint(p.w, q)
	line, err := p.r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", errors.New("input closed before all values were given")
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (p *prompter) askInt(q string) (int, error) {
	s, err := p.ask(q)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not a whole number", s)
	}
	return n, nil
}
