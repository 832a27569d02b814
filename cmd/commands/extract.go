package commands

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/dani-ardila/secretome-annotation-pipeline-DAP/internal/pipeline"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(22)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

func extractCmd(a *app) *cobra.Command {
	var (
		baseDir    string
		annotation string
		sheet      string
		outDir     string
		threshold  int
		width      int
		listEmpty  bool
	)
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Link FASTA sources to the annotation table and export domain sequences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if baseDir != "" {
				cfg.BaseDir = baseDir
			}
			if annotation != "" {
				cfg.AnnotationPath = annotation
			}
			if sheet != "" {
				cfg.AnnotationSheet = sheet
			}
			if outDir != "" {
				cfg.OutputDir = outDir
			}
			if threshold > 0 {
				cfg.ShortThreshold = threshold
			}
			if width > 0 {
				cfg.LineWidth = width
			}

			a.logger.Info("starting extraction", "base_dir", cfg.BaseDir, "annotation", cfg.AnnotationPath, "output_dir", cfg.OutputDir)
			res, err := pipeline.Run(cmd.Context(), cfg, a.logger)
			if err != nil {
				a.logger.Error("extraction failed", "err", err)
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderSummary(res, listEmpty))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&baseDir, "base-dir", "", "directory holding the FASTA sources and annotation table")
	f.StringVar(&annotation, "annotation", "", "annotation table (.xlsx, .tsv or .csv)")
	f.StringVar(&sheet, "sheet", "", "workbook sheet to read (default: first)")
	f.StringVar(&outDir, "out", "", "output directory")
	f.IntVar(&threshold, "threshold", 0, "domain length separating short from long (default 100)")
	f.IntVar(&width, "width", 0, "FASTA line width (default 70)")
	f.BoolVar(&listEmpty, "list-empty", true, "print the accessions that have no domain")
	return cmd
}

func renderSummary(res *pipeline.Result, listEmpty bool) string {
	var b strings.Builder
	row := func(label string, v any) {
		fmt.Fprintf(&b, "%s %v\n", labelStyle.Render(label), v)
	}
	b.WriteString(titleStyle.Render("Microdomain extraction") + "\n")
	row("sequences", res.Sequences)
	row("annotations", res.Annotations)
	row("without annotation", res.Unmatched)
	row("domains", res.Intervals)
	row("proteins with domains", res.WithDomains)
	row("without domain", res.Sentinels)
	row("rejected ranges", len(res.Rejections))
	row("duplicates dropped", res.DuplicatesDropped)
	row("short / long", fmt.Sprintf("%d / %d", res.Short, res.Long))
	for _, rep := range []struct {
		name string
		n    int
		u    int
	}{
		{"fasta (all)", res.All.Sequences, len(res.All.Unresolved)},
		{"fasta (short)", res.ShortReport.Sequences, len(res.ShortReport.Unresolved)},
		{"fasta (long)", res.LongReport.Sequences, len(res.LongReport.Unresolved)},
	} {
		v := fmt.Sprint(rep.n)
		if rep.u > 0 {
			v += warnStyle.Render(fmt.Sprintf(" (%d without sequence)", rep.u))
		}
		row(rep.name, v)
	}
	for _, err := range res.SkippedSources {
		b.WriteString(warnStyle.Render("skipped: "+err.Error()) + "\n")
	}
	if listEmpty && len(res.NoDomain) > 0 {
		b.WriteString("\n" + titleStyle.Render("Accessions without domains") + "\n")
		for _, acc := range res.NoDomain {
			b.WriteString(acc + "\n")
		}
	}
	return b.String()
}
