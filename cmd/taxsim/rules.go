package main

import (
	"github.com/spf13/cobra"

	"mercator-hq/taxsim/pkg/cli"
	"mercator-hq/taxsim/pkg/rules"
)

var rulesFlags struct {
	date   string
	all    bool
	format string
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the rules of the law book",
	Long: `List the rule variants valid at a policy date, or every variant with --all.

Examples:
  taxsim rules --date 2020-01-01
  taxsim rules --all --format csv`,
	RunE: runRules,
}

func init() {
	rootCmd.AddCommand(rulesCmd)

	rulesCmd.Flags().StringVarP(&rulesFlags.date, "date", "d", "", "policy date YYYY-MM-DD (default today)")
	rulesCmd.Flags().BoolVar(&rulesFlags.all, "all", false, "list every variant regardless of date")
	rulesCmd.Flags().StringVarP(&rulesFlags.format, "format", "f", "text", "output format (text, json, csv)")
}

func runRules(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	format, err := cli.ParseFormat(rulesFlags.format)
	if err != nil {
		return err
	}
	reg, err := a.registry()
	if err != nil {
		return cli.NewCommandError("rules", err)
	}

	var rs []*rules.Rule
	if rulesFlags.all {
		for _, name := range reg.Names() {
			rs = append(rs, reg.Variants(name)...)
		}
	} else {
		date, err := parseDate(rulesFlags.date)
		if err != nil {
			return err
		}
		rs = reg.ValidAt(date)
	}

	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), ruleListing(rs))
}
