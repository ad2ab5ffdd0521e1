// Package telemetry groups the observability packages of taxsim.
//
// # Components
//
//   - logging: structured slog logging with run, command and policy date
//     fields carried on the context
//   - metrics: Prometheus collector for evaluations, rule durations,
//     parameter reloads, the plan cache and pruning, written to a textfile
//   - tracing: OpenTelemetry spans per evaluation and rule
//   - health: checks behind the check command
//
// # Usage
//
//	logger, err := logging.FromConfig(cfg.Telemetry.Logging, os.Stderr)
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
//	defer tracer.Shutdown(context.Background())
//
//	eng, err := engine.New(reg, provider, engineCfg,
//	    engine.WithLogger(logger),
//	    engine.WithRecorder(collector),
//	    engine.WithTracer(tracer.Tracer()),
//	)
//
// A batch run is short lived, so metrics are not scraped. The collector
// writes its registry in the Prometheus text format when the command exits,
// for the node exporter textfile collector to pick up.
package telemetry
