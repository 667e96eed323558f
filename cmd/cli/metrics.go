package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sevigo/hook-warden/internal/perf"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics [metric-id]",
	Short: "Shows performance metrics, either the summary or one metric by id",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			var report perf.Report
			if err := apiGet(cmd.Context(), "/api/v1/metrics/"+args[0], &report); err != nil {
				return err
			}
			return printIndented(report)
		}

		var summary perf.Summary
		if err := apiGet(cmd.Context(), "/api/v1/metrics", &summary); err != nil {
			return err
		}
		if err := printIndented(summary); err != nil {
			return err
		}
		for _, b := range summary.Bottlenecks {
			fmt.Fprintln(os.Stderr, color.YellowString("bottleneck: %s", b))
		}
		return nil
	},
}

func printIndented(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	rootCmd.AddCommand(metricsCmd)
}
