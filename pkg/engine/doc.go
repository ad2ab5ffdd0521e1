// Package engine evaluates rule plans over columnar household data.
//
// An evaluation resolves the requested targets into a plan, checks the raw
// input columns against the kinds the plan's rules declare, and then runs
// every rule in plan order. Each rule sees its declared inputs, pooled to the
// rule's entity level where they are defined below it, and the parameter
// snapshot of the policy date. Outputs above the individual level must be
// constant within their groups.
//
// # Partitioning
//
// With Partitions > 1 the rows are split by household and the partitions are
// evaluated concurrently. Households are never split, so results are
// identical to a sequential run.
//
// # Errors
//
//   - configuration errors (unknown rules, cycles, kind conflicts) match
//     rules.ErrConfiguration and are reported before any row is touched
//   - *DataError reports offending input rows in request order
//   - *EvaluationError and *TimeoutError report a failing rule
//
// No partial results are returned.
//
// # Usage
//
//	eng, err := engine.New(registry, provider, engine.DefaultConfig().WithPartitions(4),
//		engine.WithRecorder(collector),
//		engine.WithLogger(logger))
//	res, err := eng.Evaluate(ctx, engine.Request{
//		Targets: []string{"entitlement"},
//		Date:    rules.Date(2020, 1, 1),
//		Data:    data,
//	})
package engine
