package main

import (
	"github.com/spf13/cobra"

	"mercator-hq/taxsim/pkg/cli"
	"mercator-hq/taxsim/pkg/lawbook"
)

var planFlags struct {
	date    string
	targets []string
	format  string
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the evaluation order of outputs at a date",
	Long: `Resolve the rules the requested outputs depend on at a policy date and
print them in evaluation order. Rules in the same layer do not depend on each
other.

Examples:
  taxsim plan --date 2020-01-01 --targets income_tax_tu
  taxsim plan --date 2023-06-01 --format json`,
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().StringVarP(&planFlags.date, "date", "d", "", "policy date YYYY-MM-DD (default today)")
	planCmd.Flags().StringSliceVarP(&planFlags.targets, "targets", "t", nil, "outputs to resolve (default: taxes and granted transfers)")
	planCmd.Flags().StringVarP(&planFlags.format, "format", "f", "text", "output format (text, json, csv)")
}

func runPlan(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	date, err := parseDate(planFlags.date)
	if err != nil {
		return err
	}
	format, err := cli.ParseFormat(planFlags.format)
	if err != nil {
		return err
	}
	targets := planFlags.targets
	if len(targets) == 0 {
		targets = lawbook.DefaultTargets()
	}

	eng, err := a.engine(nil)
	if err != nil {
		return cli.NewCommandError("plan", err)
	}
	plan, err := eng.Plan(targets, date, lawbook.Schema())
	if err != nil {
		return cli.NewCommandError("plan", err)
	}
	a.logger.Debug("plan resolved", "key", plan.Key, "rules", len(plan.Order), "roots", plan.Roots)

	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), planListing(plan))
}
