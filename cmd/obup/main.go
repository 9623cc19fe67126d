package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/obkit/obup/pkg/log"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "obup",
	Short: "obup - cold-start orchestrator for OceanBase-style deployments",
	Long: `obup brings a multi-process database deployment (storage node, proxy
layer, and log-replication service) from a cold, empty environment to a
fully operational, query-able state.

It sequences the bring-up stages, gates each on explicit readiness
probes instead of blind sleeps, isolates non-critical failures, and
produces an auditable report of what happened.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, _ := cmd.Flags().GetString("log-level")
		jsonOut, _ := cmd.Flags().GetBool("log-json")
		log.Init(log.Config{
			Level:      log.Level(level),
			JSONOutput: jsonOut,
		})
	},
}

func init() {
	// Set version template
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"obup version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Emit logs as JSON")
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file (env overrides still apply)")
	rootCmd.PersistentFlags().String("data-dir", "/var/lib/obup", "Directory for the report history database")
}
