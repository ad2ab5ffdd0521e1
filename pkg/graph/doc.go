// Package graph resolves the rules needed for a set of target columns into an
// evaluation order.
//
// Resolution walks backwards from the targets breadth first. For each name it
// selects the rule variant valid at the policy date and follows its declared
// inputs. Inputs present in the raw data are roots and are not expanded, even
// when a rule of the same name exists. The closure is then sorted with
// Kahn's algorithm; among rules that are ready at the same time the one
// registered first runs first, so identical requests always produce
// identical plans.
//
// Resolution fails before any row is touched when an input cannot be found
// (UnresolvedDependencyError, carrying the chain of requesting rules), when
// the closure contains a cycle (CycleError, with one cycle as witness), or
// when a target has no variant at the date (rules.UnknownRuleError).
//
// Plans are keyed by targets, date, registry version and input schema and can
// be shared through a PlanCache.
package graph
