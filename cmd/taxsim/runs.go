package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/taxsim/pkg/cli"
	"mercator-hq/taxsim/pkg/results"
	"mercator-hq/taxsim/pkg/rules"
)

var runsFlags struct {
	timeRange string
	status    string
	limit     int
	offset    int
	format    string
	output    bool
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Query the results store",
	Long: `Query evaluation runs recorded in the results store.

Runs are recorded by "taxsim run" when results are enabled in the
configuration or --save is given.

Subcommands:
  list  - List runs, newest first
  show  - Show one run, or its stored output`,
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs",
	Long: `List recorded runs, newest first.

Time Range Format:
  RFC3339 interval format: "start/end"
  Example: "2025-11-19T00:00:00Z/2025-11-20T00:00:00Z"

Examples:
  taxsim runs list --status data
  taxsim runs list --time-range "2025-11-19T00:00:00Z/2025-11-20T00:00:00Z" --format json`,
	RunE: listRuns,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a recorded run",
	Long: `Show a recorded run. With --output the stored result table is written as
CSV instead.

Examples:
  taxsim runs show 3f0c2d1e-8a4b-4c3e-9f5a-1b2c3d4e5f60
  taxsim runs show 3f0c2d1e-8a4b-4c3e-9f5a-1b2c3d4e5f60 --output > result.csv`,
	Args: cobra.ExactArgs(1),
	RunE: showRun,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd, runsShowCmd)

	runsCmd.PersistentFlags().StringVarP(&runsFlags.format, "format", "f", "text", "output format (text, json, csv)")

	runsListCmd.Flags().StringVar(&runsFlags.timeRange, "time-range", "", "only runs started in start/end (RFC3339)")
	runsListCmd.Flags().StringVar(&runsFlags.status, "status", "", "only runs with status (success, config, data, rule, canceled)")
	runsListCmd.Flags().IntVar(&runsFlags.limit, "limit", results.DefaultLimit, "maximum number of runs")
	runsListCmd.Flags().IntVar(&runsFlags.offset, "offset", 0, "number of runs to skip")

	runsShowCmd.Flags().BoolVar(&runsFlags.output, "output", false, "write the stored output table")
}

func listRuns(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	format, err := cli.ParseFormat(runsFlags.format)
	if err != nil {
		return err
	}
	query := &results.Query{
		Status: runsFlags.status,
		Limit:  runsFlags.limit,
		Offset: runsFlags.offset,
	}
	if runsFlags.timeRange != "" {
		if query.Since, query.Until, err = parseTimeRange(runsFlags.timeRange); err != nil {
			return err
		}
	}

	store, err := a.openStore()
	if err != nil {
		return cli.NewCommandError("runs", err)
	}
	defer store.Close()

	runs, err := store.List(cmd.Context(), query)
	if err != nil {
		return cli.NewCommandError("runs", err)
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), runListing(runs))
}

func showRun(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	format, err := cli.ParseFormat(runsFlags.format)
	if err != nil {
		return err
	}

	store, err := a.openStore()
	if err != nil {
		return cli.NewCommandError("runs", err)
	}
	defer store.Close()

	run, err := store.Get(cmd.Context(), args[0])
	if errors.Is(err, results.ErrNotFound) {
		return cli.NewCommandError("runs", fmt.Errorf("run %s not found", args[0]))
	}
	if err != nil {
		return cli.NewCommandError("runs", err)
	}

	if runsFlags.output {
		if len(run.Output) == 0 {
			return cli.NewCommandError("runs", fmt.Errorf("run %s has no stored output (record it with --keep-output)", run.ID))
		}
		_, err := cmd.OutOrStdout().Write(run.Output)
		return err
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), runListing([]*results.Run{run}))
}

// parseTimeRange parses an RFC3339 "start/end" interval.
func parseTimeRange(s string) (*time.Time, *time.Time, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return nil, nil, cli.NewConfigError("time-range", "invalid time range format (expected: start/end)")
	}
	start, err := time.Parse(time.RFC3339, parts[0])
	if err != nil {
		return nil, nil, cli.NewConfigError("time-range", fmt.Sprintf("invalid start time: %v", err))
	}
	end, err := time.Parse(time.RFC3339, parts[1])
	if err != nil {
		return nil, nil, cli.NewConfigError("time-range", fmt.Sprintf("invalid end time: %v", err))
	}
	return &start, &end, nil
}

func runListing(runs []*results.Run) *cli.Listing {
	listing := &cli.Listing{Columns: []string{"id", "started", "policy_date", "status", "rows", "duration", "targets", "error"}}
	for _, r := range runs {
		listing.Append(
			r.ID,
			r.Started.UTC().Format(time.RFC3339),
			r.PolicyDate.Format(rules.DateLayout),
			r.Status,
			strconv.Itoa(r.Rows),
			r.Duration.String(),
			strings.Join(r.Targets, " "),
			r.Error,
		)
	}
	return listing
}
