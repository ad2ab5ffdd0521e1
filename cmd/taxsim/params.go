package main

import (
	"github.com/spf13/cobra"

	"mercator-hq/taxsim/pkg/cli"
)

var paramsFlags struct {
	date   string
	prefix string
	format string
}

var paramsCmd = &cobra.Command{
	Use:   "params",
	Short: "Show parameter values at a date",
	Long: `Show the parameter values in force at a policy date and the file each was
loaded from. Without a parameter directory the bundled law book parameters are
shown.

Examples:
  taxsim params --date 2020-01-01
  taxsim params --date 2023-06-01 --prefix child_benefit`,
	RunE: runParams,
}

func init() {
	rootCmd.AddCommand(paramsCmd)

	paramsCmd.Flags().StringVarP(&paramsFlags.date, "date", "d", "", "policy date YYYY-MM-DD (default today)")
	paramsCmd.Flags().StringVar(&paramsFlags.prefix, "prefix", "", "only show keys starting with prefix, e.g. income_tax")
	paramsCmd.Flags().StringVarP(&paramsFlags.format, "format", "f", "text", "output format (text, json, csv)")
}

func runParams(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	date, err := parseDate(paramsFlags.date)
	if err != nil {
		return err
	}
	format, err := cli.ParseFormat(paramsFlags.format)
	if err != nil {
		return err
	}

	provider, err := a.parameters()
	if err != nil {
		return cli.NewCommandError("params", err)
	}
	listing, err := paramListing(provider.At(date), provider.Store(), paramsFlags.prefix)
	if err != nil {
		return cli.NewCommandError("params", err)
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), listing)
}
