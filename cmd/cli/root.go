package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serverURL string

var rootCmd = &cobra.Command{
	Use:   "warden-hooks",
	Short: "warden-hooks is the command-line interface for the hook pipeline.",
	Long:  `A CLI for observing the hook-warden service: queue occupancy, per-job status, performance metrics, and the persisted decision audit trail.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "http://localhost:8080", "Base URL of the hook-warden service")

	if err := viper.BindPFlag("SERVER_URL", rootCmd.PersistentFlags().Lookup("server")); err != nil {
		slog.Error("Error binding flag", "error", err)
		os.Exit(1)
	}
}

// initConfig reads in ENV variables if set.
func initConfig() {
	viper.SetEnvPrefix("HW")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}
