package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/taxsim/pkg/cli"
	"mercator-hq/taxsim/pkg/config"
	"mercator-hq/taxsim/pkg/engine"
	"mercator-hq/taxsim/pkg/lawbook"
	"mercator-hq/taxsim/pkg/params"
	"mercator-hq/taxsim/pkg/results"
	"mercator-hq/taxsim/pkg/rules"
	"mercator-hq/taxsim/pkg/telemetry/logging"
	"mercator-hq/taxsim/pkg/telemetry/metrics"
	"mercator-hq/taxsim/pkg/telemetry/tracing"
)

// app holds what every command shares: the configuration and the telemetry
// built from it.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	collector *metrics.Collector
	tracer    *tracing.Tracer
}

// loadApp loads the configuration named by the global flags.
func loadApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	if logLevel != "" {
		cfg.Telemetry.Logging.Level = logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	return newApp(cfg, cmd.ErrOrStderr())
}

// newApp builds the logger, metrics collector and tracer of cfg. Logs go to
// logOut so result output on stdout stays machine readable.
func newApp(cfg *config.Config, logOut io.Writer) (*app, error) {
	logger, err := logging.FromConfig(cfg.Telemetry.Logging, logOut)
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger)

	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
	if err != nil {
		return nil, cli.NewConfigError("telemetry.tracing", err.Error())
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		collector: metrics.NewCollector(&cfg.Telemetry.Metrics, nil),
		tracer:    tracer,
	}, nil
}

// Close flushes spans and writes the metrics textfile.
func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.tracer.Shutdown(ctx); err != nil {
		a.logger.Warn("failed to flush traces", "error", err)
	}
	if err := a.collector.WriteTextfile(a.cfg.Telemetry.Metrics.TextfilePath); err != nil {
		a.logger.Warn("failed to write metrics", "error", err)
	}
}

// parameters loads the configured parameter directory. When the default
// directory does not exist the parameters bundled with the law book are used.
func (a *app) parameters() (*params.Provider, error) {
	dir := a.cfg.Parameters.Dir
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) && dir == config.DefaultParametersDir {
		store, err := lawbook.Parameters()
		if err != nil {
			return nil, fmt.Errorf("failed to load bundled parameters: %w", err)
		}
		a.logger.Debug("parameter directory not found, using bundled parameters", "dir", dir)
		return params.NewStaticProvider(store), nil
	}

	provider, err := params.NewProvider(dir, a.logger)
	a.collector.RecordParameterReload(err)
	if err != nil {
		return nil, err
	}
	provider.OnReload(a.collector.RecordParameterReload)
	return provider, nil
}

// registry returns the law book registry.
func (a *app) registry() (*rules.Registry, error) {
	reg, err := lawbook.NewRegistry()
	if err != nil {
		return nil, err
	}
	a.logger.Debug("law book registered", "rules", reg.Count(), "version", reg.Version())
	return reg, nil
}

// engine creates an engine over the law book reading parameters from source.
func (a *app) engine(source engine.ParameterSource) (*engine.Engine, error) {
	reg, err := a.registry()
	if err != nil {
		return nil, err
	}

	ec := a.cfg.Engine
	cfg := engine.DefaultConfig().
		WithPartitions(ec.Partitions).
		WithPlanCacheSize(ec.PlanCacheSize).
		WithMaxErrorRows(ec.MaxErrorRows).
		WithRuleTimeout(ec.RuleTimeout).
		WithValidateRegistry(ec.ValidateRegistry).
		WithRecoverPanics(!ec.PropagatePanics)

	return engine.New(reg, source, cfg,
		engine.WithRecorder(a.collector),
		engine.WithTracer(a.tracer.Tracer()),
		engine.WithLogger(a.logger),
	)
}

// openStore opens the configured run store.
func (a *app) openStore() (results.Store, error) {
	switch backend := a.cfg.Results.Backend; backend {
	case "memory":
		return results.NewMemoryStore(), nil
	case "sqlite":
		store, err := results.NewSQLiteStore(&a.cfg.Results.SQLite)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, cli.NewConfigError("results.backend", fmt.Sprintf("unsupported backend %q", backend))
	}
}

// parseDate parses a policy date flag. An empty value is today.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		now := time.Now().UTC()
		return rules.Date(now.Year(), now.Month(), now.Day()), nil
	}
	d, err := rules.ParseDate(s)
	if err != nil {
		return time.Time{}, cli.NewConfigError("date", err.Error())
	}
	return d, nil
}

