package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/taxsim/pkg/cli"
	"mercator-hq/taxsim/pkg/lawbook"
	"mercator-hq/taxsim/pkg/telemetry/health"
)

var checkFlags struct {
	date    string
	timeout time.Duration
	format  string
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the installation",
	Long: `Check that the parameter files load, the law book has no gaps between rule
variants, the default outputs resolve at a date and, if enabled, the results
store is reachable.

The command exits non-zero when a required check fails. A failing results
store only degrades the report.

Examples:
  taxsim check
  taxsim check --config /etc/taxsim/config.yaml --date 2024-01-01`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVarP(&checkFlags.date, "date", "d", "", "policy date to resolve the default outputs at (default today)")
	checkCmd.Flags().DurationVar(&checkFlags.timeout, "timeout", 5*time.Second, "timeout per check")
	checkCmd.Flags().StringVarP(&checkFlags.format, "format", "f", "text", "output format (text, json, csv)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	date, err := parseDate(checkFlags.date)
	if err != nil {
		return err
	}
	format, err := cli.ParseFormat(checkFlags.format)
	if err != nil {
		return err
	}

	report := newChecker(a, date, checkFlags.timeout).Run(cmd.Context())

	var out any = report
	if format != cli.FormatJSON {
		out = reportListing(report)
	}
	if err := cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), out); err != nil {
		return err
	}
	if !report.Healthy() {
		return cli.NewCommandError("check", errors.New("required checks failed"))
	}
	return nil
}

// newChecker registers the checks of a.
func newChecker(a *app, date time.Time, timeout time.Duration) *health.Checker {
	checker := health.New(timeout)

	checker.RegisterCheck("parameters", func(ctx context.Context) error {
		provider, err := a.parameters()
		if err != nil {
			return err
		}
		if provider.Store().Len() == 0 {
			return fmt.Errorf("no parameters in %s", a.cfg.Parameters.Dir)
		}
		return nil
	})

	checker.RegisterCheck("registry", func(ctx context.Context) error {
		reg, err := a.registry()
		if err != nil {
			return err
		}
		return reg.Validate()
	})

	checker.RegisterCheck("plan", func(ctx context.Context) error {
		eng, err := a.engine(nil)
		if err != nil {
			return err
		}
		_, err = eng.Plan(lawbook.DefaultTargets(), date, lawbook.Schema())
		return err
	})

	if a.cfg.Results.Enabled {
		checker.RegisterOptionalCheck("results", func(ctx context.Context) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			_, err = store.Count(ctx, nil)
			return err
		})
	}

	return checker
}

func reportListing(report health.Report) *cli.Listing {
	listing := &cli.Listing{Columns: []string{"check", "status", "required", "duration", "message"}}
	for _, c := range report.Checks {
		required := "no"
		if c.Required {
			required = "yes"
		}
		listing.Append(c.Name, c.Status, required, c.Duration.Round(time.Microsecond).String(), c.Message)
	}
	listing.Append("overall", report.Status, "", "", "")
	return listing
}
