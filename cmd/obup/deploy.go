package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/obkit/obup/pkg/bringup"
	"github.com/obkit/obup/pkg/config"
	"github.com/obkit/obup/pkg/execute"
	"github.com/obkit/obup/pkg/history"
	"github.com/obkit/obup/pkg/log"
	"github.com/obkit/obup/pkg/metrics"
	"github.com/obkit/obup/pkg/orchestrator"
	"github.com/obkit/obup/pkg/pipeline"
	"github.com/obkit/obup/pkg/report"
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Run the full bring-up pipeline",
	Long: `Run the cold-start deployment: observer, cluster bootstrap, proxy,
tenant setup, and the log-replication service, in order.

The process exit code reflects the outcome: 0 when every stage
succeeded, 2 when only non-critical stages failed, 3 when a critical
stage failed and the rest of the pipeline was skipped.`,
	RunE: runDeploy,
}

func init() {
	deployCmd.Flags().Bool("json", false, "Print the report as JSON instead of text")
	deployCmd.Flags().String("metrics-addr", "", "Optional address to expose Prometheus metrics on during the run")
	rootCmd.AddCommand(deployCmd)
}

func runDeploy(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	dataDir, _ := cmd.Flags().GetString("data-dir")
	jsonOut, _ := cmd.Flags().GetBool("json")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

	// An absent or structurally invalid config is the one failure that
	// aborts before any report exists.
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		go func() {
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				log.Errorf("metrics listener stopped", err)
			}
		}()
	}

	// An operator interrupt cancels in-progress waits and commands
	// cleanly; the run still produces a report for what did execute.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exec := execute.NewExecutor()
	runner := pipeline.NewRunner(exec)
	stages := bringup.Stages(cfg, exec)

	orch, err := orchestrator.New(runner, cfg.ClusterName, stages)
	if err != nil {
		return fmt.Errorf("failed to build orchestrator: %w", err)
	}

	rep, err := orch.Deploy(ctx)
	if err != nil {
		return err
	}

	if jsonOut {
		data, err := rep.JSON()
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		fmt.Println(string(data))
	} else {
		fmt.Print(rep.Render())
	}

	archiveReport(dataDir, rep)

	os.Exit(rep.ExitCode())
	return nil
}

// archiveReport saves the finished report for later audit. Archive
// trouble never changes the run's outcome.
func archiveReport(dataDir string, rep *report.DeploymentReport) {
	if dataDir == "" {
		return
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Errorf("failed to create data dir, report not archived", err)
		return
	}
	store, err := history.Open(dataDir)
	if err != nil {
		log.Errorf("failed to open history store, report not archived", err)
		return
	}
	defer store.Close()
	if err := store.Save(rep); err != nil {
		log.Errorf("failed to archive report", err)
	}
}
