// Package retention prunes old evaluation runs from a results.Store.
//
// Pruning runs in two phases: runs older than the retention period are
// deleted first, then the oldest runs beyond the maximum run count. Either
// phase is skipped when its limit is unset. A Scheduler runs the pruner on a
// cron schedule:
//
//	pruner := retention.NewPruner(store, &cfg.Results.Retention, retention.WithObserver(collector))
//	if err := pruner.Start(ctx); err != nil {
//	    return err
//	}
//	defer pruner.Stop()
package retention
