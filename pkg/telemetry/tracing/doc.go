// Package tracing provides OpenTelemetry tracing for taxsim.
//
// Each evaluation is a span named "engine.Evaluate" with one child span
// "engine.rule" per executed rule and partition. Spans carry the run ID,
// policy date, plan key and rule name as taxsim.* attributes, so a slow or
// failing rule can be found in the trace of its run.
//
// # Setup
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	eng, err := engine.New(reg, params, engineCfg, engine.WithTracer(tracer.Tracer()))
//
// With tracing disabled New returns a noop tracer. Enabled tracers export
// over OTLP/gRPC and are installed as the global tracer provider.
//
// # Sampling Strategies
//
//   - always: Sample all traces
//   - never: Sample no traces
//   - ratio: Sample a fraction of traces by trace ID
package tracing
