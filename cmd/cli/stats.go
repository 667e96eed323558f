package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sevigo/hook-warden/internal/core"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Shows the queue occupancy of the hook-warden service",
	RunE: func(cmd *cobra.Command, _ []string) error {
		var stats core.QueueStats
		if err := apiGet(cmd.Context(), "/api/v1/queue/stats", &stats); err != nil {
			return err
		}

		if statsJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(stats)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "PENDING\tPROCESSING\tCOMPLETED\tFAILED\tTOTAL")
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%d\n",
			stats.PendingJobs,
			stats.ProcessingJobs,
			color.GreenString("%d", stats.CompletedJobs),
			color.RedString("%d", stats.FailedJobs),
			stats.Total(),
		)
		return w.Flush()
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(statsCmd)
}
