package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/taxsim/pkg/cli"
	"mercator-hq/taxsim/pkg/results/retention"
)

var pruneFlags struct {
	days     int
	maxRuns  int64
	schedule bool
	cron     string
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old runs from the results store",
	Long: `Delete stored runs older than the retention period, then the oldest runs
beyond the maximum run count.

With --schedule the command keeps running and prunes on the configured cron
schedule until interrupted.

Examples:
  # One-shot pruning with the configured retention
  taxsim prune

  # Keep the last 1000 runs of at most 7 days
  taxsim prune --days 7 --max-runs 1000

  # Prune every night at 3 AM
  taxsim prune --schedule --cron "0 3 * * *"`,
	RunE: runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)

	pruneCmd.Flags().IntVar(&pruneFlags.days, "days", 0, "override the retention period in days (negative keeps forever)")
	pruneCmd.Flags().Int64Var(&pruneFlags.maxRuns, "max-runs", 0, "override the maximum number of runs kept")
	pruneCmd.Flags().BoolVar(&pruneFlags.schedule, "schedule", false, "keep running and prune on the cron schedule")
	pruneCmd.Flags().StringVar(&pruneFlags.cron, "cron", "", "override the cron schedule")
}

func runPrune(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.cfg.Results.Retention
	if cmd.Flags().Changed("days") {
		cfg.Days = pruneFlags.days
	}
	if cmd.Flags().Changed("max-runs") {
		cfg.MaxRuns = pruneFlags.maxRuns
	}
	if pruneFlags.cron != "" {
		cfg.PruneSchedule = pruneFlags.cron
	}

	store, err := a.openStore()
	if err != nil {
		return cli.NewCommandError("prune", err)
	}
	defer store.Close()

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	pruner := retention.NewPruner(store, &cfg, retention.WithObserver(a.collector))

	if !pruneFlags.schedule {
		deleted, err := pruner.Prune(ctx)
		if err != nil {
			return cli.NewCommandError("prune", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Pruned %d runs\n", deleted)
		return nil
	}

	if cfg.PruneSchedule == "" {
		return cli.NewConfigError("results.retention.prune_schedule", "scheduled pruning requires a cron schedule")
	}
	if err := pruner.Start(ctx); err != nil {
		return cli.NewCommandError("prune", err)
	}
	defer pruner.Stop()

	if next := pruner.NextPruning(); next != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Pruning scheduled (%s), next run %s\n", cfg.PruneSchedule, next.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop")

	<-ctx.Done()
	fmt.Fprintln(cmd.OutOrStdout(), "✓ Scheduler stopped")
	return nil
}
