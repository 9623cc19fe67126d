package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/obkit/obup/pkg/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect archived deployment reports",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived deployment runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		entries, err := store.List()
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}
		if len(entries) == 0 {
			fmt.Println("No archived runs.")
			return nil
		}

		fmt.Printf("%-36s  %-12s  %-15s  %s\n", "RUN ID", "CLUSTER", "STATUS", "STARTED")
		for _, e := range entries {
			fmt.Printf("%-36s  %-12s  %-15s  %s\n",
				e.RunID, e.Cluster, e.Status, e.StartedAt.Format(time.RFC3339))
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one archived deployment report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		rep, err := store.Get(args[0])
		if err != nil {
			return fmt.Errorf("failed to load run %s: %w", args[0], err)
		}

		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			data, err := rep.JSON()
			if err != nil {
				return fmt.Errorf("failed to encode report: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}
		fmt.Print(rep.Render())
		return nil
	},
}

func init() {
	historyShowCmd.Flags().Bool("json", false, "Print the report as JSON instead of text")
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	rootCmd.AddCommand(historyCmd)
}

func openHistory(cmd *cobra.Command) (*history.Store, error) {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	store, err := history.Open(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open history store: %w", err)
	}
	return store, nil
}
