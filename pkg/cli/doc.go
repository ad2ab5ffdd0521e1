/*
Package cli provides command-line interface utilities for taxsim.

The cli package includes output formatters, progress reporters, typed
command errors and signal handling used by the taxsim command.

Output Formatting:

Result tables and listings are written as aligned text, JSON or CSV:

	formatter := cli.NewFormatter(cli.FormatCSV)
	if err := formatter.FormatTo(os.Stdout, result.Table); err != nil {
		return err
	}

Small listings (rules, plans, parameters) use Listing:

	listing := &cli.Listing{Columns: []string{"rule", "level"}}
	listing.Append("adult", "individual")

Exit Codes:

ExitCode maps an error to the process exit code: 2 for configuration and
rule set errors, 3 for input data the rules reject, 4 for failing rules and
130 for interrupted runs.

Signal Handling:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
	res, err := eng.Evaluate(ctx, req)
*/
package cli
