package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/obkit/obup/pkg/bringup"
	"github.com/obkit/obup/pkg/config"
	"github.com/obkit/obup/pkg/execute"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the stage plan for a config without executing it",
	RunE:  runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	stages := bringup.Stages(cfg, execute.NewExecutor())

	fmt.Printf("Deployment plan for cluster %q (%d stages):\n\n", cfg.ClusterName, len(stages))
	for _, stage := range stages {
		criticality := "non-critical"
		if stage.Critical {
			criticality = "critical"
		}
		fmt.Printf("%d. %s [%s]\n", stage.Ordinal, stage.Name, criticality)

		for _, r := range stage.Renders {
			fmt.Printf("     render %s -> %s\n", r.Name, r.Path)
		}
		if stage.Pre != nil {
			fmt.Printf("     wait (pre) %s via %s, every %s up to %s\n",
				stage.Pre.Target, stage.Pre.Checker.Type(), stage.Pre.Interval, stage.Pre.Timeout)
		}
		for _, step := range stage.Steps {
			fmt.Printf("     step %s: %s\n", step.Name, step.Spec.Program)
		}
		if stage.Post != nil {
			fmt.Printf("     wait (post) %s via %s, every %s up to %s\n",
				stage.Post.Target, stage.Post.Checker.Type(), stage.Post.Interval, stage.Post.Timeout)
		}
	}
	return nil
}
