package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/taxsim/pkg/cli"
	"mercator-hq/taxsim/pkg/dataset"
	"mercator-hq/taxsim/pkg/engine"
	"mercator-hq/taxsim/pkg/entity"
	"mercator-hq/taxsim/pkg/lawbook"
	"mercator-hq/taxsim/pkg/params"
	"mercator-hq/taxsim/pkg/results"
	"mercator-hq/taxsim/pkg/results/retention"
	"mercator-hq/taxsim/pkg/rules"
	"mercator-hq/taxsim/pkg/table"
	"mercator-hq/taxsim/pkg/telemetry/logging"
)

var runFlags struct {
	date       string
	input      string
	output     string
	format     string
	targets    []string
	partitions int
	debug      bool
	noKeys     bool
	save       bool
	keepOutput bool
	watch      bool
	progress   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Evaluate the law book over an input file",
	Long: `Evaluate the law book at a policy date over a CSV file with one row per
individual and write the requested outputs.

The input needs the tax_unit_id and household_id key columns plus the raw
columns the requested outputs depend on. The output has the same rows in the
same order, prefixed with the key columns.

Examples:
  # Default outputs at today's date
  taxsim run --input persons.csv

  # Selected outputs as JSON
  taxsim run --input persons.csv --date 2020-07-01 --targets income_tax_tu,child_benefit_paid --format json

  # Every intermediate column, evaluated in 8 household partitions
  taxsim run --input persons.csv --debug --partitions 8 --output debug.csv

  # Re-evaluate whenever a parameter file changes
  taxsim run --input persons.csv --output out.csv --watch`,
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.date, "date", "d", "", "policy date YYYY-MM-DD (default today)")
	runCmd.Flags().StringVarP(&runFlags.input, "input", "i", "-", "input CSV file, - for stdin")
	runCmd.Flags().StringVarP(&runFlags.output, "output", "o", "-", "output file, - for stdout")
	runCmd.Flags().StringVarP(&runFlags.format, "format", "f", "csv", "output format (csv, json, text)")
	runCmd.Flags().StringSliceVarP(&runFlags.targets, "targets", "t", nil, "outputs to compute (default: taxes and granted transfers)")
	runCmd.Flags().IntVarP(&runFlags.partitions, "partitions", "p", 0, "household partitions evaluated in parallel (default from config)")
	runCmd.Flags().BoolVar(&runFlags.debug, "debug", false, "write every raw and intermediate column")
	runCmd.Flags().BoolVar(&runFlags.noKeys, "no-keys", false, "omit the key columns from the output")
	runCmd.Flags().BoolVar(&runFlags.save, "save", false, "record the run in the results store even if results are disabled")
	runCmd.Flags().BoolVar(&runFlags.keepOutput, "keep-output", false, "store the output table with the run")
	runCmd.Flags().BoolVarP(&runFlags.watch, "watch", "w", false, "re-evaluate when the parameter files change")
	runCmd.Flags().BoolVar(&runFlags.progress, "progress", false, "show a progress bar on stderr")
}

// runOptions are the parsed flags of the run command.
type runOptions struct {
	Date       time.Time
	Targets    []string
	Format     cli.OutputFormat
	Partitions int
	Debug      bool
	Keys       bool
	KeepOutput bool
	Progress   bool
	Output     string
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	date, err := parseDate(runFlags.date)
	if err != nil {
		return err
	}
	format, err := cli.ParseFormat(runFlags.format)
	if err != nil {
		return err
	}
	opts := runOptions{
		Date:       date,
		Targets:    runFlags.targets,
		Format:     format,
		Partitions: runFlags.partitions,
		Debug:      runFlags.debug,
		Keys:       !runFlags.noKeys,
		KeepOutput: runFlags.keepOutput,
		Progress:   runFlags.progress,
		Output:     runFlags.output,
	}
	if len(opts.Targets) == 0 {
		opts.Targets = lawbook.DefaultTargets()
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()
	ctx = logging.WithCommand(ctx, "run")
	ctx = logging.WithPolicyDate(ctx, date.Format(rules.DateLayout))

	provider, err := a.parameters()
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	var store results.Store
	if a.cfg.Results.Enabled || runFlags.save {
		if store, err = a.openStore(); err != nil {
			return cli.NewCommandError("run", err)
		}
		defer store.Close()
	}

	r, err := newRunner(a, provider, store, opts)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	r.stdout = cmd.OutOrStdout()
	r.stderr = cmd.ErrOrStderr()

	if err := r.load(cmd.InOrStdin(), runFlags.input); err != nil {
		return cli.NewCommandError("run", err)
	}
	if err := r.evaluate(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}

	if !runFlags.watch && !a.cfg.Parameters.Watch {
		return nil
	}
	return r.watch(ctx, provider)
}

// runner evaluates one input table, possibly repeatedly.
type runner struct {
	app    *app
	engine *engine.Engine
	store  results.Store
	opts   runOptions
	schema map[string]table.Kind
	data   *table.Table

	stdout io.Writer
	stderr io.Writer
}

func newRunner(a *app, source engine.ParameterSource, store results.Store, opts runOptions) (*runner, error) {
	eng, err := a.engine(source)
	if err != nil {
		return nil, err
	}

	// Resolve once up front so unknown targets fail before the input is read,
	// and so only the raw columns the plan needs are required.
	plan, err := eng.Plan(opts.Targets, opts.Date, lawbook.Schema())
	if err != nil {
		return nil, err
	}
	schema := map[string]table.Kind{
		entity.TaxUnitKey:   table.KindInt,
		entity.HouseholdKey: table.KindInt,
	}
	full := lawbook.Schema()
	for _, root := range plan.Roots {
		schema[root] = full[root]
	}

	return &runner{
		app:    a,
		engine: eng,
		store:  store,
		opts:   opts,
		schema: schema,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}, nil
}

// load reads the input table from path, or from stdin for "-".
func (r *runner) load(stdin io.Reader, path string) error {
	in := stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	data, err := dataset.ReadCSV(in, r.schema)
	if err != nil {
		return fmt.Errorf("failed to read input %s: %w", path, err)
	}
	r.app.logger.Debug("input loaded", "path", path, "rows", data.Len(), "columns", data.Width())
	r.data = data
	return nil
}

// evaluate runs one evaluation, records it and writes the output.
func (r *runner) evaluate(ctx context.Context) error {
	req := engine.Request{
		Targets:    r.opts.Targets,
		Date:       r.opts.Date,
		Data:       r.data,
		Debug:      r.opts.Debug,
		Partitions: r.opts.Partitions,
	}

	var progress cli.ProgressReporter
	if r.opts.Progress {
		progress = cli.NewProgressReporter(r.stderr, "rows")
		progress.Start(int64(r.data.Len()))
		req.Progress = func(rows int) { progress.Add(int64(rows)) }
	}

	res, err := r.engine.Evaluate(ctx, req)
	if progress != nil {
		if err != nil {
			progress.Error(err)
		} else {
			progress.Finish()
		}
	}
	if cache := r.engine.Resolver().Cache(); cache != nil {
		r.app.collector.UpdatePlanCacheSize(cache.Len())
	}
	r.record(ctx, req, res, err)
	if err != nil {
		return err
	}

	out := res.Table
	if r.opts.Keys && !r.opts.Debug {
		if out, err = withKeys(r.data, res.Table); err != nil {
			return err
		}
	}
	return r.write(out)
}

// record saves the run when a store is configured. A failed save is logged
// and does not fail the evaluation.
func (r *runner) record(ctx context.Context, req engine.Request, res *engine.Result, evalErr error) {
	if r.store == nil {
		return
	}
	run, err := results.NewRun(req, res, evalErr, r.engine.Registry().Version(), r.opts.KeepOutput)
	if err == nil {
		err = r.store.Save(context.WithoutCancel(ctx), run)
	}
	if err != nil {
		r.app.logger.WarnContext(ctx, "failed to save run", "error", err)
		return
	}
	r.app.logger.DebugContext(ctx, "run saved", "run_id", run.ID, "status", run.Status)
}

func (r *runner) write(t *table.Table) error {
	formatter := cli.NewFormatter(r.opts.Format)
	if r.opts.Output == "" || r.opts.Output == "-" {
		return formatter.FormatTo(r.stdout, t)
	}

	f, err := os.Create(r.opts.Output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := formatter.FormatTo(f, t); err != nil {
		f.Close()
		return fmt.Errorf("failed to write output: %w", err)
	}
	return f.Close()
}

// watch re-evaluates after every successful parameter reload until ctx is
// canceled. Failed re-evaluations are logged and the previous output is
// left in place.
func (r *runner) watch(ctx context.Context, provider *params.Provider) error {
	if provider.Path() == "" {
		return cli.NewConfigError("parameters.dir", "watching requires a parameter directory")
	}

	watcher, err := params.NewWatcher(provider, r.app.cfg.Parameters.WatchDebounce, r.app.logger)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer watcher.Stop()

	reloaded := make(chan struct{}, 1)
	provider.OnReload(func(err error) {
		if err != nil {
			return
		}
		select {
		case reloaded <- struct{}{}:
		default:
		}
	})

	watchErr := make(chan error, 1)
	go func() { watchErr <- watcher.Watch(ctx) }()

	if r.store != nil {
		pruner := retention.NewPruner(r.store, &r.app.cfg.Results.Retention, retention.WithObserver(r.app.collector))
		if err := pruner.Start(ctx); err != nil {
			r.app.logger.WarnContext(ctx, "failed to start retention scheduler", "error", err)
		} else {
			defer pruner.Stop()
		}
	}

	r.app.logger.InfoContext(ctx, "watching parameters, press Ctrl+C to stop", "dir", provider.Path())
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-watchErr:
			if err != nil {
				return cli.NewCommandError("run", err)
			}
			return nil
		case <-reloaded:
			if err := r.evaluate(ctx); err != nil {
				r.app.logger.ErrorContext(ctx, "re-evaluation failed", "error", err)
			}
		}
	}
}

// withKeys prefixes out with the group key columns of data.
func withKeys(data, out *table.Table) (*table.Table, error) {
	var cols []*table.Column
	for _, key := range []string{entity.TaxUnitKey, entity.HouseholdKey} {
		if out.Has(key) {
			continue
		}
		if c, ok := data.Column(key); ok {
			cols = append(cols, c)
		}
	}
	for _, name := range out.Names() {
		c, _ := out.Column(name)
		cols = append(cols, c)
	}
	return table.NewTable(cols...)
}
