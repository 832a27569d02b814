package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/dani-ardila/secretome-annotation-pipeline-DAP/internal/jobs"
)

func jobsCmd(a *app) *cobra.Command {
	var jobsDB string
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List the prediction jobs recorded in the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if jobsDB == "" && a.cfg.Predict.JobsDB != "" {
				jobsDB = a.cfg.Resolve(a.cfg.Predict.JobsDB)
			}
			if jobsDB == "" {
				return errors.New("no ledger: set predict.jobs_db or --jobs-db")
			}

			store, err := jobs.Open(jobsDB)
			if err != nil {
				return err
			}
			defer store.Close()
			list, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no jobs recorded in", jobsDB)
				return nil
			}

			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("ID", "ENTRY", "STATE", "REQUEST", "UPDATED", "MESSAGE")
			for _, j := range list {
				t.Row(j.ID[:8], j.Accession, string(j.State), j.RequestID, j.UpdatedAt.Format(time.DateTime), j.Message)
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.String())
			return nil
		},
	}
	cmd.Flags().StringVar(&jobsDB, "jobs-db", "", "sqlite file recording prediction jobs (default predict.jobs_db)")
	return cmd
}
