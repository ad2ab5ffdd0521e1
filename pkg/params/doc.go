// Package params loads dated policy parameters and serves per-date snapshots.
//
// Parameter files map a group to its parameters and every parameter to the
// dates its values take effect:
//
//	basic_subsistence:
//	  standard_rate:
//	    description: monthly standard rate by person type
//	    2020-01-01: {single: 432, partner: 389, child: 308}
//	  income_disregard:
//	    2020-01-01:
//	      thresholds: [0, 100, 1000, 1200]
//	      rates: [1.0, 0.2, 0.1]
//	      top_rate: 0
//
// A value applies from its date until the next dated value of the same
// parameter. Store.At returns an immutable Set for one policy date, which the
// engine injects into rules that declare the "parameters" input.
//
// Provider holds the current Store behind an atomic pointer and Watcher
// reloads it when files change, so parameter edits take effect between
// evaluations without a restart.
package params
