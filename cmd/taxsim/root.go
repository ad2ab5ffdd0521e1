package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/taxsim/pkg/cli"
)

var (
	// Global flags
	cfgFile  string
	verbose  bool
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "taxsim",
	Short: "taxsim - tax and transfer microsimulation",
	Long: `taxsim evaluates a dated law book of tax and transfer rules over
household microdata.

Rules are resolved into an evaluation plan per policy date, executed column by
column over all individuals, and aggregated to tax units and households. Where
the law grants a choice, taxsim computes every option and keeps the one the
law prescribes.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the code of the error class.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults and TAXSIM_* environment variables when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
}
