package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sevigo/hook-warden/internal/storage"
)

var decisionsCmd = &cobra.Command{
	Use:   "decisions [job-id]",
	Short: "Shows the persisted decision audit trail",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			var records []storage.DecisionRecord
			if err := apiGet(cmd.Context(), "/api/v1/decisions/"+args[0], &records); err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ACTION\tREASON\tWORKFLOW")
			for _, rec := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\n", rec.Action, rec.Reason, rec.TargetWorkflow)
			}
			return w.Flush()
		}

		var jobs []storage.JobRecord
		if err := apiGet(cmd.Context(), "/api/v1/jobs", &jobs); err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "JOB\tREPOSITORY\tTYPE\tPRIORITY\tSTATE\tATTEMPTS\tCOMPLETED")
		for _, job := range jobs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
				job.JobID,
				job.Repository,
				job.EventType,
				job.Priority,
				job.State,
				job.Attempts,
				job.CompletedAt.Format(time.RFC822),
			)
		}
		return w.Flush()
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	rootCmd.AddCommand(decisionsCmd)
}
