// Package health runs installation checks for taxsim.
//
// taxsim runs as a batch command, so there are no liveness or readiness
// probes. Instead "taxsim check" registers one check per component it
// depends on and prints the aggregated report:
//
//	checker := health.New(5 * time.Second)
//	checker.RegisterCheck("parameters", func(ctx context.Context) error {
//	    _, err := params.LoadDir(cfg.Parameters.Dir)
//	    return err
//	})
//	checker.RegisterOptionalCheck("results", func(ctx context.Context) error {
//	    _, err := store.Count(ctx, nil)
//	    return err
//	})
//	report := checker.Run(ctx)
//
// A failing required check makes the report unhealthy. A failing optional
// check only degrades it. Checks run concurrently, each bounded by the
// checker's timeout.
package health
